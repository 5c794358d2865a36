package dto

import (
	"time"

	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/scheduler"
)

type ExecutionResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time,omitempty"`
	Duration    string  `json:"duration,omitempty"`
	UserID      *int64  `json:"user_id,omitempty"`
	Progress    float64 `json:"progress"`
}

func NewExecutionResponse(e *domain.JobExecution) ExecutionResponse {
	resp := ExecutionResponse{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Status:      string(e.Status),
		StartTime:   e.StartTime.Format(time.RFC3339),
		UserID:      e.UserID,
	}
	if e.EndTime != nil {
		resp.EndTime = e.EndTime.Format(time.RFC3339)
		resp.Duration = e.EndTime.Sub(e.StartTime).Round(time.Second).String()
	}
	if e.Status == domain.JobStatusFinished {
		resp.Progress = 1
	}
	return resp
}

func NewExecutionResponses(execs []*domain.JobExecution) []ExecutionResponse {
	out := make([]ExecutionResponse, 0, len(execs))
	for _, e := range execs {
		out = append(out, NewExecutionResponse(e))
	}
	return out
}

type MessageResponse struct {
	Timestamp string   `json:"timestamp"`
	Text      string   `json:"text"`
	Level     string   `json:"level"`
	Progress  *float64 `json:"progress,omitempty"`
	ID        int64    `json:"id"`
}

// ExecutionDetailResponse is an execution with its messages. Progress is
// the last value reported by the job.
type ExecutionDetailResponse struct {
	ExecutionResponse
	Messages []MessageResponse `json:"messages"`
}

func NewExecutionDetailResponse(e *domain.JobExecution, msgs []*domain.JobMessage) ExecutionDetailResponse {
	resp := ExecutionDetailResponse{
		ExecutionResponse: NewExecutionResponse(e),
		Messages:          make([]MessageResponse, 0, len(msgs)),
	}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, MessageResponse{
			ID:        m.ID,
			Timestamp: m.Timestamp.Format(time.RFC3339),
			Text:      m.Text,
			Level:     string(m.Level),
			Progress:  m.Progress,
		})
		if m.Progress != nil && e.Status != domain.JobStatusFinished {
			resp.Progress = *m.Progress
		}
	}
	return resp
}

// JobHandleResponse identifies a queued job. ExecutionID is empty until the
// job starts.
type JobHandleResponse struct {
	Name        string `json:"name"`
	ExecutionID string `json:"execution_id,omitempty"`
}

func NewJobHandleResponse(h *scheduler.Handle) JobHandleResponse {
	if h == nil {
		return JobHandleResponse{}
	}
	return JobHandleResponse{Name: h.Name(), ExecutionID: h.ExecutionID()}
}

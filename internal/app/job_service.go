package app

import (
	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/logger"
	"github.com/cesargomez89/ytmanager/internal/store"
)

const (
	DefaultHistoryPageSize = 50
	MaxHistoryPageSize     = 500
)

type ExecutionRepository interface {
	GetExecution(id string) (*domain.JobExecution, error)
	ListExecutions(userID *int64, limit, offset int) ([]*domain.JobExecution, error)
	ListRunningExecutions() ([]*domain.JobExecution, error)
	ListMessages(jobID string) ([]*domain.JobMessage, error)
	GetExecutionStats() (*store.ExecutionStats, error)
}

// JobService answers job history queries.
type JobService struct {
	Repo   ExecutionRepository
	Logger *logger.Logger
}

func NewJobService(repo ExecutionRepository, log *logger.Logger) *JobService {
	if log == nil {
		log = logger.Default()
	}
	return &JobService{Repo: repo, Logger: log.WithComponent("jobs")}
}

// ExecutionDetail is an execution with its messages in order.
type ExecutionDetail struct {
	Execution *domain.JobExecution `json:"execution"`
	Messages  []*domain.JobMessage `json:"messages"`
}

// ListHistory returns the executions visible to userID, newest first.
// Page sizes outside (0, MaxHistoryPageSize] fall back to the default.
func (s *JobService) ListHistory(userID *int64, limit, offset int) ([]*domain.JobExecution, error) {
	if limit <= 0 || limit > MaxHistoryPageSize {
		limit = DefaultHistoryPageSize
	}
	offset = max(offset, 0)
	return s.Repo.ListExecutions(userID, limit, offset)
}

func (s *JobService) ListRunning() ([]*domain.JobExecution, error) {
	return s.Repo.ListRunningExecutions()
}

func (s *JobService) GetExecution(id string) (*ExecutionDetail, error) {
	exec, err := s.Repo.GetExecution(id)
	if err != nil {
		return nil, err
	}
	msgs, err := s.Repo.ListMessages(id)
	if err != nil {
		return nil, err
	}
	return &ExecutionDetail{Execution: exec, Messages: msgs}, nil
}

func (s *JobService) Stats() (*store.ExecutionStats, error) {
	return s.Repo.GetExecutionStats()
}

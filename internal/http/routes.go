package httpapp

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/ytmanager/internal/app"
	"github.com/cesargomez89/ytmanager/internal/http/dto"
	"github.com/cesargomez89/ytmanager/internal/scheduler"
)

// PollNotifications returns the buffered events after last_id that are
// visible to the caller. Without a user only system-wide events are
// returned.
func (h *Handler) PollNotifications(w http.ResponseWriter, r *http.Request) {
	lastID := int64(queryInt(r, "last_id", 0))

	var uid *int64
	if id, ok := userID(r); ok {
		uid = &id
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events":  h.Notifications.Since(lastID, uid),
		"last_id": h.Notifications.LastID(),
	})
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	page := dto.NewPagination(queryInt(r, "page", 1), queryInt(r, "page_size", app.DefaultHistoryPageSize), 0)
	page.PageSize = min(page.PageSize, app.MaxHistoryPageSize)

	execs, err := h.JobService.ListHistory(&uid, page.PageSize, page.Offset())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":       dto.NewExecutionResponses(execs),
		"pagination": dto.NewPagination(page.CurrentPage, page.PageSize, len(execs)),
	})
}

func (h *Handler) ListRunningJobs(w http.ResponseWriter, r *http.Request) {
	execs, err := h.JobService.ListRunning()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.NewExecutionResponses(execs))
}

func (h *Handler) JobStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.JobService.Stats()
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"total":       stats.Total,
		"running":     stats.Running,
		"finished":    stats.Finished,
		"failed":      stats.Failed,
		"interrupted": stats.Interrupted,
	})
}

func (h *Handler) ListRecurring(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Scheduler.Recurring())
}

// GetJob returns an execution with its messages. Executions of another
// user answer 404; system-wide ones are visible to everyone.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	detail, err := h.JobService.GetExecution(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if owner := detail.Execution.UserID; owner != nil {
		if uid, ok := userID(r); !ok || uid != *owner {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
	}
	writeJSON(w, http.StatusOK, dto.NewExecutionDetailResponse(detail.Execution, detail.Messages))
}

func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	handle, err := h.Manager.SyncNow()
	h.writeHandle(w, handle, err)
}

func (h *Handler) UpdateDownloader(w http.ResponseWriter, r *http.Request) {
	handle, err := h.Manager.UpdateDownloader()
	h.writeHandle(w, handle, err)
}

func (h *Handler) writeHandle(w http.ResponseWriter, handle *scheduler.Handle, err error) {
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, dto.NewJobHandleResponse(handle))
}

func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.FromProviderInfo(h.Providers.List()))
}

// ConfigureProvider stores the JSON body as the provider's settings.
func (h *Handler) ConfigureProvider(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 64<<10))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read body")
		return
	}
	if len(body) == 0 || !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "body must be a JSON document")
		return
	}

	if err := h.Providers.Configure(chi.URLParam(r, "id"), json.RawMessage(body)); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromProviderInfo(h.Providers.List()))
}

func (h *Handler) UnconfigureProvider(w http.ResponseWriter, r *http.Request) {
	if err := h.Providers.Configure(chi.URLParam(r, "id"), nil); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	prefs, err := h.SettingsRepo.GetUserPreferences(uid)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *Handler) SetPreferences(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req dto.PreferencesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	prefs := req.ToPreferences()
	if err := h.SettingsRepo.SetUserPreferences(uid, prefs); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

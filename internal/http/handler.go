package httpapp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cesargomez89/ytmanager/internal/app"
	"github.com/cesargomez89/ytmanager/internal/downloader"
	"github.com/cesargomez89/ytmanager/internal/http/dto"
	"github.com/cesargomez89/ytmanager/internal/logger"
	"github.com/cesargomez89/ytmanager/internal/notify"
	"github.com/cesargomez89/ytmanager/internal/providers"
	"github.com/cesargomez89/ytmanager/internal/scheduler"
	"github.com/cesargomez89/ytmanager/internal/store"
)

// UserHeader identifies the calling user. Authentication happens in front
// of this API.
const UserHeader = "X-User-ID"

type Handler struct {
	Manager       *downloader.Manager
	JobService    *app.JobService
	Folders       *app.FolderService
	Notifications *notify.Bus
	Providers     *providers.Registry
	Scheduler     *scheduler.Scheduler
	Repo          *store.DB
	SettingsRepo  *store.SettingsRepo
	Metrics       http.Handler
	ThumbnailsDir string
	ThumbnailsURL string
	Logger        *logger.Logger
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}
	if h.ThumbnailsDir != "" && strings.HasPrefix(h.ThumbnailsURL, "/") {
		prefix := strings.TrimSuffix(h.ThumbnailsURL, "/") + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(h.ThumbnailsDir))))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/notifications", h.PollNotifications)

		r.Get("/jobs", h.ListJobs)
		r.Get("/jobs/running", h.ListRunningJobs)
		r.Get("/jobs/stats", h.JobStats)
		r.Get("/jobs/recurring", h.ListRecurring)
		r.Get("/jobs/{id}", h.GetJob)

		r.Post("/sync", h.SyncAll)
		r.Post("/downloader/update", h.UpdateDownloader)

		r.Get("/providers", h.ListProviders)
		r.Put("/providers/{id}", h.ConfigureProvider)
		r.Delete("/providers/{id}", h.UnconfigureProvider)

		r.Get("/preferences", h.GetPreferences)
		r.Put("/preferences", h.SetPreferences)

		r.Get("/subscriptions", h.ListSubscriptions)
		r.Post("/subscriptions", h.AddSubscription)
		r.Post("/subscriptions/import", h.ImportSubscriptions)
		r.Get("/subscriptions/{id}", h.GetSubscription)
		r.Patch("/subscriptions/{id}", h.UpdateSubscription)
		r.Delete("/subscriptions/{id}", h.DeleteSubscription)
		r.Post("/subscriptions/{id}/sync", h.SyncSubscription)
		r.Put("/subscriptions/{id}/folder", h.MoveSubscription)
		r.Get("/subscriptions/{id}/videos", h.ListVideos)

		r.Put("/videos/{id}/watched", h.SetWatched)
		r.Post("/videos/{id}/download", h.DownloadVideo)
		r.Delete("/videos/{id}/files", h.DeleteVideoFiles)

		r.Get("/folders", h.FolderTree)
		r.Post("/folders", h.CreateFolder)
		r.Patch("/folders/{id}", h.RenameFolder)
		r.Put("/folders/{id}/parent", h.MoveFolder)
		r.Delete("/folders/{id}", h.DeleteFolder)
	})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.Logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeValidation(w http.ResponseWriter, errs []dto.ValidationError) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":  dto.ToResponse(errs),
		"fields": dto.ToMap(errs),
	})
}

// writeServiceError maps domain errors to status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, providers.ErrNotFound), errors.Is(err, providers.ErrUnknownProvider):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, providers.ErrInvalidURL),
		errors.Is(err, providers.ErrInvalidProviderSetting),
		errors.Is(err, providers.ErrProviderNotConfigured),
		errors.Is(err, app.ErrFolderCycle),
		errors.Is(err, app.ErrEmptyFolderName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrDuplicateFolderName), errors.Is(err, downloader.ErrAlreadySubscribed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrFolderOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, scheduler.ErrStopped), errors.Is(err, scheduler.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.Logger.Error("Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// userID reads the caller from the X-User-ID header, or the user_id query
// parameter.
func userID(r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.Header.Get(UserHeader))
	if raw == "" {
		raw = r.URL.Query().Get("user_id")
	}
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := userID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid "+UserHeader)
	}
	return id, ok
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}

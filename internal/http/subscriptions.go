package httpapp

import (
	"net/http"

	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/downloader"
	"github.com/cesargomez89/ytmanager/internal/http/dto"
)

// subscription loads the subscription named in the path and checks that
// the caller owns it.
func (h *Handler) subscription(w http.ResponseWriter, r *http.Request) (*domain.Subscription, bool) {
	uid, ok := h.requireUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid subscription id")
		return nil, false
	}
	sub, err := h.Repo.GetSubscription(id)
	if err != nil {
		h.writeServiceError(w, err)
		return nil, false
	}
	if sub.UserID != uid {
		writeError(w, http.StatusNotFound, "subscription not found")
		return nil, false
	}
	return sub, true
}

// video loads the video named in the path and checks that the caller owns
// its subscription.
func (h *Handler) video(w http.ResponseWriter, r *http.Request) (*domain.Video, bool) {
	uid, ok := h.requireUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid video id")
		return nil, false
	}
	video, err := h.Repo.GetVideo(id)
	if err != nil {
		h.writeServiceError(w, err)
		return nil, false
	}
	sub, err := h.Repo.GetSubscription(video.SubscriptionID)
	if err != nil {
		h.writeServiceError(w, err)
		return nil, false
	}
	if sub.UserID != uid {
		writeError(w, http.StatusNotFound, "video not found")
		return nil, false
	}
	return video, true
}

func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	subs, err := h.Repo.ListUserSubscriptions(uid)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if subs == nil {
		subs = []*domain.Subscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) AddSubscription(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req dto.AddSubscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	sub, err := h.Manager.AddSubscription(r.Context(), uid, req.URL, req.FolderID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) ImportSubscriptions(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req dto.ImportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	handle, err := h.Manager.ImportSubscriptions(uid, downloader.ParseURLList(req.URLs), req.FolderID)
	h.writeHandle(w, handle, err)
}

func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subscription(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subscription(w, r)
	if !ok {
		return
	}

	var req dto.SubscriptionUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	req.Apply(sub)
	if err := h.Repo.UpdateSubscription(sub); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subscription(w, r)
	if !ok {
		return
	}
	if err := h.Manager.DeleteSubscription(sub.ID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SyncSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subscription(w, r)
	if !ok {
		return
	}
	handle, err := h.Manager.SyncSubscription(sub.ID)
	h.writeHandle(w, handle, err)
}

func (h *Handler) MoveSubscription(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subscription(w, r)
	if !ok {
		return
	}

	var req dto.MoveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.Folders.MoveSubscription(sub.UserID, sub.ID, req.TargetID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	sub.ParentFolderID = req.TargetID
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) ListVideos(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.subscription(w, r)
	if !ok {
		return
	}
	videos, err := h.Repo.ListSubscriptionVideos(sub.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if videos == nil {
		videos = []*domain.Video{}
	}
	writeJSON(w, http.StatusOK, videos)
}

// SetWatched answers with the deletion job when marking the video watched
// triggered one.
func (h *Handler) SetWatched(w http.ResponseWriter, r *http.Request) {
	video, ok := h.video(w, r)
	if !ok {
		return
	}

	var req dto.WatchedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	handle, err := h.Manager.MarkWatched(video.ID, req.Watched)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	resp := map[string]any{"id": video.ID, "watched": req.Watched}
	if handle != nil {
		resp["job"] = dto.NewJobHandleResponse(handle)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	video, ok := h.video(w, r)
	if !ok {
		return
	}
	handle, err := h.Manager.DownloadVideo(video.ID)
	h.writeHandle(w, handle, err)
}

func (h *Handler) DeleteVideoFiles(w http.ResponseWriter, r *http.Request) {
	video, ok := h.video(w, r)
	if !ok {
		return
	}
	handle, err := h.Manager.DeleteVideoFiles(video.ID)
	h.writeHandle(w, handle, err)
}

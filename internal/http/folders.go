package httpapp

import (
	"net/http"

	"github.com/cesargomez89/ytmanager/internal/domain"
	"github.com/cesargomez89/ytmanager/internal/http/dto"
)

func (h *Handler) folder(w http.ResponseWriter, r *http.Request) (*domain.SubscriptionFolder, bool) {
	uid, ok := h.requireUser(w, r)
	if !ok {
		return nil, false
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid folder id")
		return nil, false
	}
	f, err := h.Repo.GetFolder(id)
	if err != nil {
		h.writeServiceError(w, err)
		return nil, false
	}
	if f.UserID != uid {
		writeError(w, http.StatusNotFound, "folder not found")
		return nil, false
	}
	return f, true
}

func (h *Handler) FolderTree(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	tree, err := h.Folders.Tree(uid)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req dto.FolderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	f, err := h.Folders.Create(uid, req.Name, req.ParentID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *Handler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	f, ok := h.folder(w, r)
	if !ok {
		return
	}

	var req dto.FolderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	renamed, err := h.Folders.Rename(f.ID, req.Name)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, renamed)
}

func (h *Handler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	f, ok := h.folder(w, r)
	if !ok {
		return
	}

	var req dto.MoveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	moved, err := h.Folders.Move(f.ID, req.TargetID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moved)
}

// DeleteFolder removes a folder and its descendants. With
// keep_subscriptions=true the subscriptions inside move to the root.
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	f, ok := h.folder(w, r)
	if !ok {
		return
	}
	keep := r.URL.Query().Get("keep_subscriptions") == "true"
	if err := h.Folders.Delete(f.ID, keep); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

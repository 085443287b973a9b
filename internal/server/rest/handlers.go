package rest

import (
	"net/http"

	"github.com/dmitrijs2005/filesmanager/internal/server/services"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status.Status(r.Context()))
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.status.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) postUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(user))
}

func (h *Handler) getConnect(w http.ResponseWriter, r *http.Request) {
	token, err := h.sessions.Connect(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) getDisconnect(w http.ResponseWriter, r *http.Request, p *services.Principal) {
	if err := h.sessions.DestroySession(r.Context(), p.Token); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getMe(w http.ResponseWriter, r *http.Request, p *services.Principal) {
	writeJSON(w, http.StatusOK, newUserResponse(p.User))
}

func (h *Handler) postFile(w http.ResponseWriter, r *http.Request, p *services.Principal) {
	var req createFileRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	file, err := h.files.Create(r.Context(), p.User, services.CreateFileInput{
		Name:     req.Name,
		Type:     req.Type,
		ParentID: string(req.ParentID),
		IsPublic: req.IsPublic,
		Data:     req.Data,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newFileResponse(file))
}

func (h *Handler) getFile(w http.ResponseWriter, r *http.Request, p *services.Principal) {
	file, err := h.files.Get(r.Context(), p.User, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFileResponse(file))
}

func (h *Handler) listFiles(w http.ResponseWriter, r *http.Request, p *services.Principal) {
	q := r.URL.Query()
	nodes, err := h.files.List(r.Context(), p.User, q.Get("parentId"), parsePage(q.Get("page")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFileListResponse(nodes))
}

func (h *Handler) publish(isPublic bool) authedHandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, p *services.Principal) {
		file, err := h.files.SetPublic(r.Context(), p.User, chi.URLParam(r, "id"), isPublic)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newFileResponse(file))
	}
}

// getFileData serves stored content. The token is optional: anonymous
// callers can only read public nodes.
func (h *Handler) getFileData(w http.ResponseWriter, r *http.Request) {
	requester, err := h.optionalUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	data, _, err := h.files.ReadContent(r.Context(), requester, chi.URLParam(r, "id"), r.URL.Query().Get("size"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", mimetype.Detect(data).String())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	writeErrorMessage(w, http.StatusNotFound, "Cannot "+r.Method+" "+r.URL.Path)
}

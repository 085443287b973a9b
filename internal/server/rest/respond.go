package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/filesmanager/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeError translates err into a status code and a client-safe message.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *common.ValidationError
	var maxBytes *http.MaxBytesError

	switch {
	case errors.As(err, &verr):
		writeErrorMessage(w, http.StatusBadRequest, verr.Msg)
	case errors.As(err, &maxBytes):
		writeErrorMessage(w, http.StatusRequestEntityTooLarge, "Request entity too large")
	case errors.Is(err, common.ErrorAlreadyExists):
		writeErrorMessage(w, http.StatusBadRequest, "Already exist")
	case errors.Is(err, common.ErrorUnauthorized):
		writeErrorMessage(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, common.ErrorForbidden):
		writeErrorMessage(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, common.ErrorNotFound):
		writeErrorMessage(w, http.StatusNotFound, "Not found")
	default:
		h.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErrorMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	var maxBytes *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &maxBytes):
		return err
	case errors.Is(err, io.EOF):
		return nil
	default:
		return common.NewValidationError("Invalid JSON")
	}
}

package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lexify-app/lexify-server/internal/common"
)

func readJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, resp any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps sentinel errors to status codes. Internal detail stays in
// the log; the body carries only the sentinel's message.
func (api *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	api.logger.Error(r.Context(), "request failed",
		"method", r.Method,
		"url", r.URL.String(),
		"error", err)

	switch {
	case errors.Is(err, common.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, common.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	case errors.Is(err, common.ErrSuspended):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "account suspended"})
	case errors.Is(err, common.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, common.ErrPersistence):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

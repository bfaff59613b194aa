package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PaulBabatuyi/files-manager/internal/common"
	"go.uber.org/zap"
)

const msgInternal = "Internal server error"

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, errorResponse{Error: reason})
}

// statusFor maps an error from the service layer to its HTTP status and the
// reason shown to the client.
func statusFor(err error) (int, string) {
	var verr *common.ValidationError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, common.ErrNotFound.Error()
	case errors.Is(err, common.ErrParentNotFound),
		errors.Is(err, common.ErrParentNotFolder),
		errors.Is(err, common.ErrFolderHasNoContent),
		errors.Is(err, common.ErrInvalidSize),
		errors.Is(err, common.ErrEmailExists):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "Request too large"
	case errors.Is(err, common.ErrStorageWriteFailed):
		return http.StatusInternalServerError, common.ErrStorageWriteFailed.Error()
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, reason := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, status, reason)
}

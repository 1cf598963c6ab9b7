package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/andreasstove999/marketplace-backend/internal/apperr"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: string(apperr.KindValidation), Message: msg})
}

// writeError maps the error taxonomy onto HTTP statuses. Backend and
// unexpected failures are logged and reported generically; domain
// failures carry their message through.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	kind := apperr.KindOf(err)

	var status int
	message := err.Error()

	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindInsufficientStock, apperr.KindEmptyCart, apperr.KindNoItemsForStore,
		apperr.KindInvalidStatus, apperr.KindInvalidTransition, apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindUpstream:
		status = http.StatusBadGateway
		logger.Error("upstream failure", zap.Error(err))
		message = "upstream service unavailable"
	case apperr.KindStorage:
		status = http.StatusInternalServerError
		logger.Error("storage failure", zap.Error(err))
		message = "storage unavailable"
	default:
		status = http.StatusInternalServerError
		logger.Error("internal error", zap.Error(err))
		message = "internal error"
	}

	writeJSON(w, status, errorResponse{Error: string(kind), Message: message})
}

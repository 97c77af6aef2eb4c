// Package httputil holds the small JSON response helpers shared by the ops
// handlers, plus the mapping from governance errors to HTTP statuses.
package httputil

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dealgrid/dealgrid/pkg/errors"
	"github.com/dealgrid/dealgrid/pkg/json"
)

// WriteJSONError writes a JSON error response and logs the error.
func WriteJSONError(w http.ResponseWriter, log *zap.Logger, status int, msg string, err error, contextFields ...zap.Field) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err != nil {
		log.Error(msg, append(contextFields, zap.Error(err))...)
	} else {
		log.Error(msg, contextFields...)
	}
	details := ""
	if err != nil {
		details = err.Error()
	}
	if encErr := json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   msg,
		"details": details,
	}); encErr != nil {
		log.Error("Failed to write error response", zap.Error(encErr))
	}
}

// WriteJSONResponse writes a JSON response and logs on error.
func WriteJSONResponse(w http.ResponseWriter, log *zap.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write JSON response", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// StatusFromError maps a governance error to the HTTP status the admin
// surface should answer with.
func StatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errors.ErrCampaignNotFound),
		errors.Is(err, errors.ErrSuggestionNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrElevatedRoleRequired):
		return http.StatusForbidden
	case errors.Is(err, errors.ErrIllegalTransition),
		errors.Is(err, errors.ErrNoUpgradeToMain),
		errors.Is(err, errors.ErrReasonRequired),
		errors.Is(err, errors.ErrSuggestionNotApplied),
		errors.Is(err, errors.ErrSuggestionExpired),
		errors.Is(err, errors.ErrUpstreamIntegrity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrSuggestionTerminal):
		return http.StatusConflict
	case errors.Is(err, errors.ErrLearningDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

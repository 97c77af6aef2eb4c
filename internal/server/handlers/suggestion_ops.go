package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dealgrid/dealgrid/internal/server/httputil"
	"github.com/dealgrid/dealgrid/internal/service/suggestion"
	"github.com/dealgrid/dealgrid/pkg/json"
	"github.com/dealgrid/dealgrid/pkg/models"
)

type suggestionRequest struct {
	Action       string `json:"action"`
	SuggestionID string `json:"suggestion_id"`
	State        string `json:"state"`
	Page         int    `json:"page"`
	PageSize     int    `json:"page_size"`

	RunID              string                      `json:"run_id"`
	TrustScores        []models.TrustScore         `json:"trust_scores"`
	ConfidenceFeedback []models.ConfidenceFeedback `json:"confidence_feedback"`
	AdminFeedback      []models.AdminFeedback      `json:"admin_feedback"`
}

// SuggestionOpsHandler dispatches suggestion lifecycle operations: generate,
// list, apply, reject, mark_executed. Apply and reject record review intent
// only; the campaign side effect is a separate visibility operation.
func SuggestionOpsHandler(log *zap.Logger, svc *suggestion.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.WriteJSONError(w, log, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		act, ok := actorFromRequest(r)
		if !ok {
			httputil.WriteJSONError(w, log, http.StatusUnauthorized, "missing or invalid actor identity", nil)
			return
		}
		var req suggestionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "invalid JSON", err)
			return
		}

		switch req.Action {
		case "generate":
			if req.RunID == "" {
				httputil.WriteJSONError(w, log, http.StatusBadRequest, "missing run_id", nil)
				return
			}
			suggestions, err := svc.GenerateAndStore(r.Context(), suggestion.Inputs{
				RunID:              req.RunID,
				Now:                time.Now().UTC(),
				TrustScores:        req.TrustScores,
				ConfidenceFeedback: req.ConfidenceFeedback,
				AdminFeedback:      req.AdminFeedback,
			})
			if err != nil {
				httputil.WriteJSONError(w, log, httputil.StatusFromError(err), "suggestion generation failed", err, zap.String("run_id", req.RunID))
				return
			}
			httputil.WriteJSONResponse(w, log, suggestions)
		case "list":
			state := models.SuggestionState(req.State)
			if req.State != "" && !state.Valid() {
				httputil.WriteJSONError(w, log, http.StatusBadRequest, "invalid state filter", nil, zap.String("state", req.State))
				return
			}
			suggestions, err := svc.List(r.Context(), state, req.Page, req.PageSize)
			if err != nil {
				httputil.WriteJSONError(w, log, httputil.StatusFromError(err), "suggestion list failed", err)
				return
			}
			httputil.WriteJSONResponse(w, log, suggestions)
		case "apply", "reject", "mark_executed":
			if req.SuggestionID == "" {
				httputil.WriteJSONError(w, log, http.StatusBadRequest, "missing suggestion_id", nil)
				return
			}
			var err error
			switch req.Action {
			case "apply":
				err = svc.Apply(r.Context(), req.SuggestionID)
			case "reject":
				err = svc.Reject(r.Context(), req.SuggestionID)
			case "mark_executed":
				err = svc.MarkExecuted(r.Context(), req.SuggestionID)
			}
			if err != nil {
				httputil.WriteJSONError(w, log, httputil.StatusFromError(err), "suggestion review failed", err,
					zap.String("action", req.Action), zap.String("suggestion_id", req.SuggestionID), zap.String("actor_id", act.ID))
				return
			}
			httputil.WriteJSONResponse(w, log, map[string]string{"status": "ok"})
		default:
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "unknown action", nil, zap.String("action", req.Action))
		}
	}
}

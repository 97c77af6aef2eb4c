// Package handlers exposes the governance operations as composable JSON
// endpoints: one POST endpoint per domain, dispatching on the "action" field.
// Authentication lives in the upstream gateway, which injects the verified
// actor identity as X-Actor-ID and X-Actor-Role headers.
package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dealgrid/dealgrid/internal/server/httputil"
	"github.com/dealgrid/dealgrid/internal/service/visibility"
	"github.com/dealgrid/dealgrid/pkg/json"
	"github.com/dealgrid/dealgrid/pkg/models"
)

type actor struct {
	ID   string
	Role models.Role
}

// actorFromRequest reads the gateway-injected identity headers. Requests
// without an actor are rejected; every governance mutation is attributable.
func actorFromRequest(r *http.Request) (actor, bool) {
	id := r.Header.Get("X-Actor-ID")
	role := models.Role(r.Header.Get("X-Actor-Role"))
	if id == "" || (role != models.RoleAdmin && role != models.RoleSuperAdmin) {
		return actor{}, false
	}
	return actor{ID: id, Role: role}, true
}

type visibilityRequest struct {
	Action     string `json:"action"`
	CampaignID int64  `json:"campaign_id"`
	Target     string `json:"target_state"`
	ValueLevel string `json:"value_level"`
	Reason     string `json:"reason"`
}

// VisibilityOpsHandler dispatches visibility mutations: transition,
// set_value_level, pin, unpin.
func VisibilityOpsHandler(log *zap.Logger, svc *visibility.Service) http.HandlerFunc {
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
		var req visibilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "invalid JSON", err)
			return
		}
		if req.CampaignID == 0 {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "missing campaign_id", nil)
			return
		}

		var (
			after *models.Campaign
			err   error
		)
		switch req.Action {
		case "transition":
			after, err = svc.Transition(r.Context(), visibility.TransitionRequest{
				CampaignID: req.CampaignID,
				Target:     models.VisibilityState(req.Target),
				Reason:     req.Reason,
				ActorID:    act.ID,
				Role:       act.Role,
			})
		case "set_value_level":
			after, err = svc.SetValueLevel(r.Context(), req.CampaignID, models.ValueLevel(req.ValueLevel), req.Reason, act.ID, act.Role)
		case "pin", "unpin":
			after, err = svc.SetPinned(r.Context(), visibility.PinRequest{
				CampaignID: req.CampaignID,
				Pinned:     req.Action == "pin",
				ActorID:    act.ID,
				Role:       act.Role,
			})
		default:
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "unknown action", nil, zap.String("action", req.Action))
			return
		}
		if err != nil {
			httputil.WriteJSONError(w, log, httputil.StatusFromError(err), "visibility operation failed", err,
				zap.String("action", req.Action), zap.Int64("campaign_id", req.CampaignID))
			return
		}
		httputil.WriteJSONResponse(w, log, after)
	}
}

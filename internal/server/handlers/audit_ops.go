package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dealgrid/dealgrid/internal/server/httputil"
	"github.com/dealgrid/dealgrid/internal/service/audit"
	"github.com/dealgrid/dealgrid/pkg/models"
)

// AuditHandler serves the audit timeline, most recent first. GET with
// optional actor_id, action, entity_type, entity_id, page, page_size.
func AuditHandler(log *zap.Logger, svc *audit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.WriteJSONError(w, log, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		if _, ok := actorFromRequest(r); !ok {
			httputil.WriteJSONError(w, log, http.StatusUnauthorized, "missing or invalid actor identity", nil)
			return
		}
		q := r.URL.Query()
		filter := models.AuditFilter{
			ActorID:    q.Get("actor_id"),
			Action:     models.AuditAction(q.Get("action")),
			EntityType: q.Get("entity_type"),
			EntityID:   q.Get("entity_id"),
			Page:       queryInt(r, "page", 0),
			PageSize:   queryInt(r, "page_size", defaultPageSize),
		}
		events, total, err := svc.Query(r.Context(), filter)
		if err != nil {
			httputil.WriteJSONError(w, log, httputil.StatusFromError(err), "audit query failed", err)
			return
		}
		httputil.WriteJSONResponse(w, log, map[string]interface{}{
			"events": events,
			"total":  total,
		})
	}
}

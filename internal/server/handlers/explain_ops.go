package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/dealgrid/dealgrid/internal/server/httputil"
	"github.com/dealgrid/dealgrid/internal/service/explain"
	"github.com/dealgrid/dealgrid/pkg/models"
)

// CampaignGetter loads one campaign for diagnosis.
type CampaignGetter interface {
	GetByID(ctx context.Context, id int64) (*models.Campaign, error)
}

// ExplainHandler answers "why is this campaign (not) visible". GET with a
// required id query parameter.
func ExplainHandler(log *zap.Logger, store CampaignGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.WriteJSONError(w, log, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil || id <= 0 {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "missing or invalid id", err)
			return
		}
		c, err := store.GetByID(r.Context(), id)
		if err != nil {
			httputil.WriteJSONError(w, log, httputil.StatusFromError(err), "campaign lookup failed", err, zap.Int64("campaign_id", id))
			return
		}
		httputil.WriteJSONResponse(w, log, explain.Explain(c, time.Now().UTC()))
	}
}

package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dealgrid/dealgrid/internal/guard"
	"github.com/dealgrid/dealgrid/internal/server/httputil"
	"github.com/dealgrid/dealgrid/internal/service/trust"
	"github.com/dealgrid/dealgrid/pkg/errors"
	"github.com/dealgrid/dealgrid/pkg/json"
	"github.com/dealgrid/dealgrid/pkg/models"
)

type scrapeFailure struct {
	Message string `json:"message"`
	Phase   string `json:"phase"`
}

type ingestPayload struct {
	ID              int64   `json:"id"`
	IsHidden        bool    `json:"is_hidden"`
	VisibilityState *string `json:"visibility_state"`
}

type trustRequest struct {
	Action     string `json:"action"`
	SourceName string `json:"source_name"`
	RunID      string `json:"run_id"`
	Signals    struct {
		AvgConfidence      float64 `json:"avg_confidence"`
		LowConfidenceRatio float64 `json:"low_confidence_ratio"`
		EmptyResultCount   int     `json:"empty_result_count"`
	} `json:"signals"`
	Failures []scrapeFailure `json:"failures"`
	Campaign *ingestPayload  `json:"campaign"`
}

// TrustOpsHandler ingests per-run scraper telemetry and serves the rolling
// trust window. Raw failure messages are classified here, so scrapers report
// what happened and never decide what it means. The pipeline also calls
// verify_payload here before writing a scraped campaign, so content carrying
// admin-only state is caught at the boundary.
func TrustOpsHandler(log *zap.Logger, history *trust.History, guards *guard.Guards) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httputil.WriteJSONError(w, log, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		var req trustRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "invalid JSON", err)
			return
		}

		switch req.Action {
		case "record_run":
			if req.SourceName == "" || req.RunID == "" {
				httputil.WriteJSONError(w, log, http.StatusBadRequest, "missing source_name or run_id", nil)
				return
			}
			sig := models.RunSignals{
				AvgConfidence:      req.Signals.AvgConfidence,
				LowConfidenceRatio: req.Signals.LowConfidenceRatio,
				EmptyResultCount:   req.Signals.EmptyResultCount,
			}
			for _, f := range req.Failures {
				switch trust.Classify(errors.New(f.Message), trust.Phase(f.Phase)) {
				case trust.FailureDomChanged:
					sig.DomChangedCount++
				case trust.FailureNetworkBlocked:
					sig.NetworkBlockedCount++
				case trust.FailureEmptyResult:
					sig.EmptyResultCount++
				}
			}
			score, err := history.Record(req.SourceName, req.RunID, sig)
			if err != nil {
				httputil.WriteJSONError(w, log, httputil.StatusFromError(err), "trust scoring failed", err,
					zap.String("source_name", req.SourceName), zap.String("run_id", req.RunID))
				return
			}
			httputil.WriteJSONResponse(w, log, score)
		case "window":
			if req.SourceName == "" {
				httputil.WriteJSONError(w, log, http.StatusBadRequest, "missing source_name", nil)
				return
			}
			httputil.WriteJSONResponse(w, log, map[string]interface{}{
				"source_name":       req.SourceName,
				"window":            history.Window(req.SourceName),
				"learning_disabled": history.LearningDisabled(),
			})
		case "backlog_suggestions":
			httputil.WriteJSONResponse(w, log, history.Suggestions())
		case "verify_payload":
			if req.Campaign == nil {
				httputil.WriteJSONError(w, log, http.StatusBadRequest, "missing campaign payload", nil)
				return
			}
			c := &models.Campaign{ID: req.Campaign.ID, IsHidden: req.Campaign.IsHidden}
			if req.Campaign.VisibilityState != nil {
				state := models.VisibilityState(*req.Campaign.VisibilityState)
				c.VisibilityState = &state
			}
			if err := guards.AssertUpstreamClean(c); err != nil {
				httputil.WriteJSONError(w, log, httputil.StatusFromError(err), "upstream payload rejected", err,
					zap.Int64("campaign_id", req.Campaign.ID))
				return
			}
			httputil.WriteJSONResponse(w, log, map[string]string{"status": "clean"})
		default:
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "unknown action", nil, zap.String("action", req.Action))
		}
	}
}

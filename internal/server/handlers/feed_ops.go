package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/dealgrid/dealgrid/internal/server/httputil"
	"github.com/dealgrid/dealgrid/internal/service/feed"
	"github.com/dealgrid/dealgrid/pkg/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// FeedHandler serves the guarded feed read path. GET with query parameters
// kind (main|light|category|low), limit, offset.
func FeedHandler(log *zap.Logger, svc *feed.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.WriteJSONError(w, log, http.StatusMethodNotAllowed, "method not allowed", nil)
			return
		}
		kind := models.FeedKind(r.URL.Query().Get("kind"))
		if kind == "" {
			kind = models.FeedMain
		}
		limit := queryInt(r, "limit", defaultPageSize)
		if limit > maxPageSize {
			limit = maxPageSize
		}
		offset := queryInt(r, "offset", 0)

		var (
			items []*models.Campaign
			err   error
		)
		switch kind {
		case models.FeedMain:
			items, err = svc.MainFeed(r.Context(), limit, offset)
		case models.FeedLight, models.FeedCategory, models.FeedLow:
			items, err = svc.SecondaryFeed(r.Context(), kind, limit, offset)
		default:
			httputil.WriteJSONError(w, log, http.StatusBadRequest, "unknown feed kind", nil, zap.String("kind", string(kind)))
			return
		}
		if err != nil {
			httputil.WriteJSONError(w, log, httputil.StatusFromError(err), "feed read failed", err, zap.String("kind", string(kind)))
			return
		}
		httputil.WriteJSONResponse(w, log, map[string]interface{}{
			"kind":  kind,
			"items": items,
			"count": len(items),
		})
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

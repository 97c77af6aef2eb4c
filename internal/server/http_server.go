// Package server wires the governance services into the admin HTTP surface.
package server

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dealgrid/dealgrid/internal/guard"
	"github.com/dealgrid/dealgrid/internal/server/handlers"
	"github.com/dealgrid/dealgrid/internal/service/audit"
	"github.com/dealgrid/dealgrid/internal/service/feed"
	"github.com/dealgrid/dealgrid/internal/service/suggestion"
	"github.com/dealgrid/dealgrid/internal/service/trust"
	"github.com/dealgrid/dealgrid/internal/service/visibility"
	"github.com/dealgrid/dealgrid/pkg/logger"
)

// Deps are the wired services the HTTP surface exposes.
type Deps struct {
	Visibility *visibility.Service
	Suggestion *suggestion.Service
	Feed       *feed.Service
	Audit      *audit.Service
	Trust      *trust.History
	Guards     *guard.Guards
	Campaigns  handlers.CampaignGetter
}

// withComponent tags the request context so downstream logging carries the
// originating surface.
func withComponent(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next(w, r.WithContext(logger.WithContext(r.Context(), name)))
	}
}

// New builds the admin HTTP server.
func New(log *zap.Logger, addr string, deps Deps) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/visibility", withComponent("visibility", handlers.VisibilityOpsHandler(log, deps.Visibility)))
	mux.HandleFunc("/api/suggestion", withComponent("suggestion", handlers.SuggestionOpsHandler(log, deps.Suggestion)))
	mux.HandleFunc("/api/trust", withComponent("trust", handlers.TrustOpsHandler(log, deps.Trust, deps.Guards)))
	mux.HandleFunc("/api/feed", withComponent("feed", handlers.FeedHandler(log, deps.Feed)))
	mux.HandleFunc("/api/explain", withComponent("explain", handlers.ExplainHandler(log, deps.Campaigns)))
	mux.HandleFunc("/api/audit", withComponent("audit", handlers.AuditHandler(log, deps.Audit)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second, // Mitigate Slowloris
	}
}

// Start runs the server in a goroutine.
func Start(log *zap.Logger, srv *http.Server) {
	go func() {
		log.Info("Admin HTTP server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Admin HTTP server failed", zap.Error(err))
		}
	}()
}

// Shutdown drains the server within the given timeout.
func Shutdown(ctx context.Context, log *zap.Logger, srv *http.Server) {
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Admin HTTP server shutdown failed", zap.Error(err))
	}
}

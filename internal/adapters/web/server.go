// Package web serves the dashboard: a JSON API over the stores and
// services, a WebSocket push channel, Prometheus metrics, and the
// embedded frontend.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jarvis-lab/netguard/internal/adapters/reporting"
	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
	"github.com/jarvis-lab/netguard/internal/core/services/alerting"
	"github.com/jarvis-lab/netguard/internal/core/services/scoring"
)

// StatusSource is the slice of the collector status board the
// dashboard reads.
type StatusSource interface {
	Statuses() []domain.CollectorStatus
	RowCounts() map[string]int64
}

// Server handles HTTP and WebSocket connections for the dashboard.
type Server struct {
	Addr     string
	Store    ports.Store
	Registry ports.DeviceRegistry
	Auth     ports.AuthService
	Alerts   *alerting.Engine
	Scorer   *scoring.Scorer
	Exporter *reporting.Exporter
	Status   StatusSource

	WS *WSManager

	startedAt time.Time
	srv       *http.Server
}

func NewServer(addr string, store ports.Store, registry ports.DeviceRegistry, authService ports.AuthService, alerts *alerting.Engine, scorer *scoring.Scorer, exporter *reporting.Exporter, status StatusSource, allowedOrigins []string) *Server {
	s := &Server{
		Addr:      addr,
		Store:     store,
		Registry:  registry,
		Auth:      authService,
		Alerts:    alerts,
		Scorer:    scorer,
		Exporter:  exporter,
		Status:    status,
		startedAt: time.Now(),
	}
	s.WS = NewWSManager(s.currentStats, allowedOrigins)
	return s
}

// Notifier exposes the WebSocket broadcaster to the services that push
// events.
func (s *Server) Notifier() ports.EventNotifier { return s.WS }

// Run serves until the context is canceled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	s.WS.Start(ctx)

	handler := otelhttp.NewHandler(s.routes(), "netguard-web")
	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("web server shutdown", "error", err)
		}
	}()

	slog.Info("web server listening", "addr", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// currentStats merges the database aggregate with the live ingest
// counters from the collector status board.
func (s *Server) currentStats(ctx context.Context) (domain.SystemStats, error) {
	stats, err := s.Store.Stats(ctx)
	if err != nil {
		return stats, err
	}
	if s.Status != nil {
		stats.RowsIngested = s.Status.RowCounts()
	}
	return stats, nil
}

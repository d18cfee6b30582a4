// Package app assembles the daemon: storage, device discovery, the
// capture stack, the analysis services, and the dashboard, wired in
// dependency order and supervised as one errgroup.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/jarvis-lab/netguard/internal/adapters/capture"
	"github.com/jarvis-lab/netguard/internal/adapters/fingerprint"
	"github.com/jarvis-lab/netguard/internal/adapters/reporting"
	"github.com/jarvis-lab/netguard/internal/adapters/storage"
	"github.com/jarvis-lab/netguard/internal/adapters/web"
	"github.com/jarvis-lab/netguard/internal/config"
	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
	"github.com/jarvis-lab/netguard/internal/core/services/alerting"
	"github.com/jarvis-lab/netguard/internal/core/services/analysis"
	"github.com/jarvis-lab/netguard/internal/core/services/auth"
	"github.com/jarvis-lab/netguard/internal/core/services/persistence"
	"github.com/jarvis-lab/netguard/internal/core/services/registry"
	"github.com/jarvis-lab/netguard/internal/core/services/scanning"
	"github.com/jarvis-lab/netguard/internal/core/services/scoring"
	"github.com/jarvis-lab/netguard/internal/geo"
	"github.com/jarvis-lab/netguard/internal/mock"
	"github.com/jarvis-lab/netguard/internal/telemetry"

	aiproviders "github.com/jarvis-lab/netguard/internal/adapters/ai"
)

const (
	ouiCacheSize      = 10000
	persistenceBuffer = 1000
	dnsRefreshEvery   = 5 * time.Minute

	// mockARPFile is the synthetic neighbour table the generator writes
	// under LogDir when the daemon runs without real capture tools.
	mockARPFile = "mock_arp"
)

// Application holds the assembled daemon components. Construction order
// lives here; each component owns its own run loop.
type Application struct {
	Config *config.Config

	Store       *storage.SQLiteAdapter
	Registry    *registry.Registry
	Persistence *persistence.Manager
	Tracker     *registry.Tracker
	Scorer      *scoring.Scorer
	Scanner     *scanning.Scanner
	AlertEngine *alerting.Engine
	Aggregator  *analysis.Aggregator
	WebServer   *web.Server

	vendorRepo fingerprint.VendorRepository
	geoDB      geo.Resolver
	aiConfig   *config.AIConfigManager
	stack      *capture.Stack
	generator  *mock.Generator
	stopDNS    context.CancelFunc
}

// New builds an Application from the configuration, ready to Run.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}
	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("bootstrap failed: %w", err)
	}
	return app, nil
}

// bootstrap orchestrates the initialization sequence.
func (app *Application) bootstrap() error {
	ctx := context.Background()

	// 1. Foundation
	telemetry.InitMetrics()

	if err := app.initStorage(ctx); err != nil {
		return err
	}
	app.initExternalData()

	// 2. Registry and discovery
	app.Registry = registry.NewRegistry()
	if devices, err := app.Store.ListDevices(ctx, domain.DeviceFilter{}); err != nil {
		slog.Warn("could not hydrate registry from storage", "error", err)
	} else if len(devices) > 0 {
		app.Registry.Load(devices)
		slog.Info("registry hydrated", "devices", len(devices))
	}
	app.Persistence = persistence.NewManager(app.Store, persistenceBuffer)

	dnsCtx, cancel := context.WithCancel(context.Background())
	app.stopDNS = cancel
	resolver := registry.NewCachedResolver(dnsCtx, dnsRefreshEvery)
	enricher := registry.NewEnricher(app.vendorRepo, resolver, app.geoDB, app.Store)

	arpPath := "" // /proc/net/arp
	if app.Config.MockMode {
		arpPath = filepath.Join(app.Config.LogDir, mockARPFile)
	}
	arp := registry.NewARPTable(arpPath)

	// 3. Analysis services
	authService := auth.NewService(app.Store)
	app.Scorer = scoring.NewScorer(app.Registry, app.Store, app.Store, app.Store)
	app.AlertEngine = alerting.NewEngine(app.Store, app.Store, app.Store, app.Registry,
		nil, time.Duration(app.Config.AlertSecs)*time.Second)
	app.AlertEngine.SetAutoRemediation(app.Config.Remediate)

	// 4. Capture stack, or the generator standing in for it
	status, err := app.initCapture()
	if err != nil {
		return err
	}

	// 5. Dashboard, then the services that push events through it
	app.WebServer = web.NewServer(app.Config.Addr, app.Store, app.Registry, authService,
		app.AlertEngine, app.Scorer, reporting.NewExporter(), status, app.Config.AllowedOrigins)
	notifier := app.WebServer.Notifier()
	app.AlertEngine.SetNotifier(notifier)

	app.Tracker = registry.NewTracker(app.Registry, app.Store, arp, enricher,
		app.Persistence, notifier, time.Duration(app.Config.RegistrySecs)*time.Second)
	app.Tracker.OnCycleComplete(func(ctx context.Context) {
		if _, err := app.Scorer.ScoreAll(ctx); err != nil {
			slog.Warn("scoring pass failed", "error", err)
		}
	})

	app.Scanner = scanning.NewScanner(app.Registry, app.Store, app.Store, app.Store,
		app.Store, notifier, time.Duration(app.Config.ScanSecs)*time.Second)

	app.initAnalysis(notifier)
	return nil
}

func (app *Application) initStorage(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(app.Config.DBPath), 0755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}

	store, err := storage.NewSQLiteAdapter(app.Config.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	app.Store = store

	hash, err := bcrypt.GenerateFromPassword([]byte(app.Config.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := store.Bootstrap(ctx, string(hash)); err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	return nil
}

// initExternalData opens the lookup databases. Both degrade rather than
// fail: the vendor chain falls back to the builtin map, geo to "Local"
// detection only.
func (app *Application) initExternalData() {
	app.vendorRepo = fingerprint.OpenRepository(app.Config.OUIPath, ouiCacheSize)

	app.geoDB = geo.NoopResolver{}
	if app.Config.GeoDBPath != "" {
		db, err := geo.Open(app.Config.GeoDBPath)
		if err != nil {
			slog.Warn("GeoIP database unavailable", "path", app.Config.GeoDBPath, "error", err)
		} else {
			app.geoDB = db
		}
	}
}

func (app *Application) initCapture() (web.StatusSource, error) {
	if app.Config.MockMode {
		slog.Info("mock mode active: generating synthetic traffic")
		board := capture.NewStatusBoard()
		gen, err := mock.NewGenerator(app.Store, board,
			filepath.Join(app.Config.LogDir, mockARPFile))
		if err != nil {
			return nil, fmt.Errorf("init mock generator: %w", err)
		}
		app.generator = gen
		return board, nil
	}

	stack, err := capture.NewStack(capture.StackConfig{
		Interface:     app.Config.Interface,
		LogDir:        app.Config.LogDir,
		SuricataEve:   app.Config.SuricataEve,
		Tools:         app.Config.Tools,
		IftopInterval: time.Duration(app.Config.IftopSecs) * time.Second,
	}, app.Store, app.geoDB)
	if err != nil {
		return nil, fmt.Errorf("init capture stack: %w", err)
	}
	app.stack = stack
	return stack.Board, nil
}

// initAnalysis wires the AI loop. A broken config file disables the
// loop but never the daemon.
func (app *Application) initAnalysis(notifier ports.EventNotifier) {
	mgr, err := config.NewAIConfigManager(app.Config.AIConfigPath)
	if err != nil {
		slog.Warn("AI analysis disabled", "path", app.Config.AIConfigPath, "error", err)
		return
	}
	app.aiConfig = mgr
	if err := mgr.Watch(nil); err != nil {
		slog.Warn("AI config hot reload unavailable", "error", err)
	}

	builder := analysis.NewBuilder(app.Store, app.Registry, app.Store)
	app.Aggregator = analysis.NewAggregator(builder, app.Store, notifier,
		aiproviders.Chain(mgr), func() analysis.Settings {
			c := mgr.Get()
			return analysis.Settings{Enabled: c.Enabled, Interval: c.Interval()}
		})
}

// Run starts every component and blocks until the context is canceled
// or one of them fails terminally.
func (app *Application) Run(ctx context.Context) error {
	slog.Info("starting netguard components")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.Persistence.Run(ctx) })
	g.Go(func() error { return app.Tracker.Run(ctx) })
	g.Go(func() error { return app.AlertEngine.Run(ctx) })
	g.Go(func() error { return app.Scanner.Run(ctx) })
	if app.Aggregator != nil {
		g.Go(func() error { return app.Aggregator.Run(ctx) })
	}
	if app.stack != nil {
		g.Go(func() error { return app.stack.Run(ctx) })
	}
	if app.generator != nil {
		g.Go(func() error { return app.generator.Run(ctx) })
	}
	g.Go(func() error { return app.WebServer.Run(ctx) })

	slog.Info("netguard ready", "addr", app.Config.Addr, "mock", app.Config.MockMode)

	err := g.Wait()
	app.cleanup()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (app *Application) cleanup() {
	slog.Info("cleaning up resources")

	if app.aiConfig != nil {
		app.aiConfig.Stop()
	}
	if app.stopDNS != nil {
		app.stopDNS()
	}
	if app.vendorRepo != nil {
		if err := app.vendorRepo.Close(); err != nil {
			slog.Warn("vendor repository close failed", "error", err)
		}
	}
	if app.geoDB != nil {
		if err := app.geoDB.Close(); err != nil {
			slog.Warn("geo database close failed", "error", err)
		}
	}
	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			slog.Warn("database close failed", "error", err)
		}
	}
}

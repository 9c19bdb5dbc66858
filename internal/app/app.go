package app

import (
	"context"

	"github.com/rs/zerolog"

	"docexport/internal/config"
	"docexport/internal/service"
	"docexport/internal/storage"
)

// App wires configuration, run history and the export service together.
// Every command entry point builds exactly one.
type App struct {
	cfg *config.Config
	log zerolog.Logger

	db     *storage.DB // nil when history is disabled or unavailable
	Export *service.ExportService
}

// New builds an App from a validated configuration. A history database that
// cannot be opened is logged and skipped; it never blocks an export.
func New(cfg *config.Config, log zerolog.Logger, opts ...Option) *App {
	a := &App{cfg: cfg, log: log}

	var runs *storage.RunStore
	if !cfg.History.Disabled {
		db, err := storage.New(cfg.History.Driver, cfg.History.DSN)
		if err != nil {
			log.Warn().Err(err).Str("driver", cfg.History.Driver).Msg("run history unavailable")
		} else {
			a.db = db
			runs = storage.NewRunStore(db)
		}
	}

	svcOpts := service.Options{
		Connection:  cfg.Connection(),
		OutputPath:  cfg.OutputPath,
		Collections: cfg.Collections,
		MaxDepth:    cfg.MaxDepth,
		Runs:        runs,
		Logger:      log,
	}
	for _, opt := range opts {
		opt(&svcOpts)
	}
	a.Export = service.NewExportService(svcOpts)
	return a
}

// Option adjusts the service options before the service is built.
type Option func(*service.Options)

// WithStoreFactory overrides how the store client is opened.
func WithStoreFactory(f service.StoreFactory) Option {
	return func(o *service.Options) { o.NewStore = f }
}

// WithEmitter sets the service event sink.
func WithEmitter(e service.EventEmitter) Option {
	return func(o *service.Options) { o.Emitter = e }
}

// HistoryEnabled reports whether runs are being recorded.
func (a *App) HistoryEnabled() bool {
	return a.db != nil
}

// Shutdown waits for in-flight runs (bounded by ctx), then releases everything.
func (a *App) Shutdown(ctx context.Context) {
	a.Export.WaitRunning(ctx)
	a.Export.Stop()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn().Err(err).Msg("close history database")
		}
		a.db = nil
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"docexport/internal/dbclient"
	"docexport/internal/domain"
	"docexport/internal/etl"
	"docexport/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Export Service: runs exports, records history, schedules reruns
// ─────────────────────────────────────────────────────────────

// StoreFactory opens a store client. dbclient.NewStore in production.
type StoreFactory func(ctx context.Context, conn domain.StoreConnection) (dbclient.Store, error)

// Options configures an ExportService.
type Options struct {
	Connection  domain.StoreConnection
	OutputPath  string
	Collections []string      // empty = all
	MaxDepth    int
	RunTimeout  time.Duration // 0 = no timeout

	Runs     *storage.RunStore // optional run history
	Emitter  EventEmitter      // optional
	Logger   zerolog.Logger
	NewStore StoreFactory // optional, defaults to dbclient.NewStore
}

// ExportService owns the store client and serializes export runs.
type ExportService struct {
	opts    Options
	log     zerolog.Logger
	emitter EventEmitter
	guard   outputGuard

	mu    sync.Mutex
	store dbclient.Store
	stale bool

	// watcher / cron lifecycle
	watchCancel context.CancelFunc
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// NewExportService creates an ExportService. No store connection is made
// until the first operation needs one.
func NewExportService(opts Options) *ExportService {
	if opts.NewStore == nil {
		opts.NewStore = dbclient.NewStore
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = LogEmitter{Logger: opts.Logger}
	}
	return &ExportService{
		opts:    opts,
		log:     opts.Logger.With().Str("component", "service").Logger(),
		emitter: emitter,
	}
}

// ── Store lifecycle ────────────────────────────────────────

// acquireStore returns the cached store, connecting (or reconnecting after a
// credential rotation) as needed. Errors are typed for the exit-code policy.
func (s *ExportService) acquireStore(ctx context.Context) (dbclient.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil && !s.stale {
		return s.store, nil
	}
	if s.store != nil {
		s.log.Info().Msg("credentials changed, reconnecting")
		s.store.Close()
		s.store = nil
	}

	conn := s.opts.Connection
	if err := dbclient.CheckCredentials(conn.CredentialsPath); err != nil {
		return nil, etl.NewConfigurationError(conn.CredentialsPath, err)
	}
	store, err := s.opts.NewStore(ctx, conn)
	if err != nil {
		if errors.Is(err, dbclient.ErrCredentialsNotFound) {
			return nil, etl.NewConfigurationError(conn.CredentialsPath, err)
		}
		return nil, etl.NewInitializationError(err)
	}
	s.store = store
	s.stale = false
	s.log.Debug().Str("driver", string(conn.Driver)).Msg("store client ready")
	return store, nil
}

// MarkStale makes the next operation reconnect with fresh credentials.
func (s *ExportService) MarkStale() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

func (s *ExportService) engine(store dbclient.Store) *etl.Engine {
	return &etl.Engine{
		Store:     store,
		Dest:      &etl.CSVDestination{Path: s.opts.OutputPath},
		Flattener: etl.NewFlattener(s.opts.MaxDepth),
		Logger:    s.opts.Logger.With().Str("component", "etl").Logger(),
		Output:    s.opts.OutputPath,
		Only:      s.opts.Collections,
	}
}

// ── Run ────────────────────────────────────────────────────

// ErrRunInProgress is returned when an export to the same output is already running.
var ErrRunInProgress = errors.New("an export is already running")

// RunExport executes one export and records it in the run history.
// The error is non-nil only for fatal failures (see etl.IsFatal).
func (s *ExportService) RunExport(ctx context.Context) (*etl.ExportResult, error) {
	release, ok := s.guard.Acquire(s.opts.OutputPath)
	if !ok {
		return nil, ErrRunInProgress
	}
	defer release()

	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}

	start := time.Now()
	var (
		result *etl.ExportResult
		runErr error
	)
	store, err := s.acquireStore(ctx)
	if err != nil {
		runErr = err
		result = &etl.ExportResult{
			RunID:      uuid.NewString(),
			StartedAt:  start,
			FinishedAt: time.Now(),
			Status:     etl.StatusError,
			Output:     s.opts.OutputPath,
			Error:      err.Error(),
		}
		result.Duration = result.FinishedAt.Sub(start)
	} else {
		result, runErr = s.engine(store).RunExport(ctx)
	}

	s.record(result)

	if runErr != nil {
		s.log.Error().Err(runErr).Msg("export failed")
		s.emitter.Emit(ctx, EventExportFailed, result)
		return result, runErr
	}
	s.emitter.Emit(ctx, EventExportCompleted, result)
	return result, nil
}

func (s *ExportService) record(result *etl.ExportResult) {
	if s.opts.Runs == nil {
		return
	}
	run := result.RunLog()
	if err := s.opts.Runs.CreateRun(run); err != nil {
		s.log.Warn().Err(err).Msg("could not record run history")
		return
	}
	result.RunID = run.ID
}

// ListRuns returns recent run history, newest first.
func (s *ExportService) ListRuns(limit int) ([]etl.ExportRun, error) {
	if s.opts.Runs == nil {
		return nil, errors.New("run history is not configured")
	}
	return s.opts.Runs.ListRuns(limit)
}

// ── Browse ─────────────────────────────────────────────────

// ListCollections returns the top-level collection ids.
func (s *ExportService) ListCollections(ctx context.Context) ([]string, error) {
	store, err := s.acquireStore(ctx)
	if err != nil {
		return nil, err
	}
	listCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	names, err := store.ListCollections(listCtx)
	if err != nil {
		return nil, etl.NewEnumerationError(err)
	}
	return names, nil
}

// Preview flattens up to maxRows documents of one collection without writing a file.
func (s *ExportService) Preview(ctx context.Context, collection string, maxRows int) (*etl.Table, error) {
	if maxRows <= 0 {
		maxRows = 10
	}
	store, err := s.acquireStore(ctx)
	if err != nil {
		return nil, err
	}
	previewCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.engine(store).Preview(previewCtx, collection, maxRows)
}

// ── Watchers (cron + credential rotation) ─────────────────

// Schedule runs the export on the cron expression and watches the credential
// file for rotation. It replaces any previous schedule.
func (s *ExportService) Schedule(ctx context.Context, expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	s.stopWatchers()

	c := cron.New()
	if _, err := c.AddFunc(expr, func() {
		s.log.Info().Str("schedule", expr).Msg("scheduled export starting")
		result, err := s.RunExport(ctx)
		switch {
		case errors.Is(err, ErrRunInProgress):
			s.log.Warn().Msg("previous export still running, skipping this tick")
		case err != nil:
			s.log.Error().Err(err).Msg("scheduled export failed")
		default:
			s.log.Info().Str("status", result.Status).Int("rows", result.RowsWritten).Msg("scheduled export finished")
		}
	}); err != nil {
		return fmt.Errorf("schedule export: %w", err)
	}
	c.Start()
	s.cronSched = c
	s.log.Info().Str("schedule", expr).Msg("export scheduled")

	if err := s.watchCredentials(); err != nil {
		s.log.Warn().Err(err).Msg("credential watch disabled")
	}
	return nil
}

// watchCredentials marks the store stale whenever the credential file is
// written or replaced, debounced by 500ms.
func (s *ExportService) watchCredentials() error {
	path := s.opts.Connection.CredentialsPath
	if path == "" {
		return errors.New("no credentials path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("bad path %q: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: editors and secret managers replace files by rename.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir %q: %w", filepath.Dir(absPath), err)
	}
	s.watcher = watcher

	watchCtx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel

	go func() {
		var timer *time.Timer
		for {
			select {
			case <-watchCtx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if p, _ := filepath.Abs(event.Name); p != absPath {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(500*time.Millisecond, func() {
					s.log.Info().Str("path", absPath).Msg("credential file changed")
					s.MarkStale()
					s.emitter.Emit(watchCtx, EventCredentialsRotate, absPath)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warn().Err(err).Msg("credential watcher error")
			}
		}
	}()

	s.log.Debug().Str("path", absPath).Msg("watching credential file")
	return nil
}

// WaitRunning blocks until in-flight exports finish or ctx is cancelled.
// Used for graceful shutdown.
func (s *ExportService) WaitRunning(ctx context.Context) {
	s.guard.WaitAll(ctx)
}

// Stop tears down the scheduler and watcher and closes the store client.
// Safe to call more than once.
func (s *ExportService) Stop() {
	s.stopWatchers()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.Warn().Err(err).Msg("close store")
		}
		s.store = nil
	}
}

func (s *ExportService) stopWatchers() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	if s.cronSched != nil {
		<-s.cronSched.Stop().Done()
		s.cronSched = nil
	}
}

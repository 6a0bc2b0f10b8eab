package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"mkvtag/internal/config"
	"mkvtag/internal/deps"
	"mkvtag/internal/history"
	"mkvtag/internal/logging"
	"mkvtag/internal/notifications"
	"mkvtag/internal/rename"
	"mkvtag/internal/statuslog"
	"mkvtag/internal/supervisor"
	"mkvtag/internal/tagger"
	"mkvtag/internal/watcher"
)

// ErrAlreadyRunning reports that another daemon instance holds the lock.
var ErrAlreadyRunning = errors.New("another mkvtag instance is already running")

// Daemon wires the engine together and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	runID  string

	store      *statuslog.Store
	supervisor *supervisor.Supervisor
	watcher    *watcher.Watcher
	history    *history.Store

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
}

// New constructs a daemon with initialized dependencies. The history store
// is opened here when enabled; everything else is wired lazily enough that
// construction never touches the watched directory.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}

	runID := uuid.NewString()

	engine, err := rename.New(cfg.Rename.Pattern)
	if err != nil {
		return nil, fmt.Errorf("compile rename pattern: %w", err)
	}

	store := statuslog.FromConfig(cfg, engine, logger)

	var hist *history.Store
	if cfg.History.Enabled {
		hist, err = history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
	}

	sup := supervisor.New(supervisor.Options{
		Store:    store,
		Runner:   tagger.NewCLI(cfg),
		Notifier: notifications.NewService(cfg),
		History:  hist,
		Logger:   logger,
		Quiet:    cfg.QuietDuration(),
		Precheck: cfg.Tagger.Precheck,
		RunID:    runID,
	})

	watch := watcher.New(watcher.Options{
		Store:        store,
		Supervisor:   sup,
		Logger:       logger,
		Directory:    cfg.Watch.Directory,
		PollInterval: cfg.PollDuration(),
		Loops:        cfg.Watch.Loops,
	})

	// The lock guards the watched directory and its status log, so it lives
	// next to them. Instances watching different directories never contend.
	lockPath := filepath.Join(cfg.Watch.Directory, ".mkvtag.lock")
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		runID:      runID,
		store:      store,
		supervisor: sup,
		watcher:    watch,
		history:    hist,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// RunID identifies this daemon session in history rows and logs.
func (d *Daemon) RunID() string {
	return d.runID
}

// Run acquires the instance lock, verifies external binaries, loads and
// reconciles the status log, then blocks in the watch loop until ctx is
// cancelled or the loop budget runs out.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", d.lockPath, err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release instance lock", logging.Error(err))
		}
	}()

	if err := deps.Verify(d.cfg); err != nil {
		return err
	}

	d.logger.Info("mkvtag started",
		logging.String(logging.FieldRunID, d.runID),
		logging.String("dir", d.cfg.Watch.Directory),
		logging.String("status_log", d.store.Path()),
		logging.String("lock", d.lockPath),
	)

	if err := d.store.Load(); err != nil {
		return fmt.Errorf("load status log: %w", err)
	}
	if err := d.store.Reconcile(); err != nil {
		return fmt.Errorf("initial reconcile: %w", err)
	}
	if err := d.supervisor.ProcessAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	err = d.watcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	d.logger.Info("mkvtag stopped", logging.String(logging.FieldRunID, d.runID))
	return err
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	return d.history.Close()
}

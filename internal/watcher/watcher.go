// Package watcher drives the engine: filesystem events trigger immediate
// per-file processing, and a poll ticker reconciles the whole directory so
// nothing is missed when events are dropped or unavailable.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"mkvtag/internal/logging"
	"mkvtag/internal/statuslog"
	"mkvtag/internal/supervisor"
)

// Options configures a Watcher.
type Options struct {
	Store      *statuslog.Store
	Supervisor *supervisor.Supervisor
	Logger     *slog.Logger
	// Directory is the watched directory.
	Directory string
	// PollInterval is the reconciliation tick. Defaults to 5s.
	PollInterval time.Duration
	// Loops bounds the number of poll iterations; negative means forever.
	Loops int
}

// Watcher owns the main loop.
type Watcher struct {
	store      *statuslog.Store
	supervisor *supervisor.Supervisor
	logger     *slog.Logger
	dir        string
	interval   time.Duration
	loops      int
}

// New constructs a watcher.
func New(opts Options) *Watcher {
	w := &Watcher{
		store:      opts.Store,
		supervisor: opts.Supervisor,
		logger:     logging.NewComponentLogger(opts.Logger, "watcher"),
		dir:        opts.Directory,
		interval:   opts.PollInterval,
		loops:      opts.Loops,
	}
	if w.interval <= 0 {
		w.interval = 5 * time.Second
	}
	return w
}

// Run blocks until ctx is cancelled or the configured loop count is
// exhausted. Filesystem events are a latency optimization only; every poll
// tick performs a full reconcile-and-process pass, so correctness never
// depends on the event stream.
func (w *Watcher) Run(ctx context.Context) error {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("filesystem events unavailable, polling only", logging.Error(err))
		return w.runPoll(ctx, nil, nil)
	}
	defer notifier.Close()

	if err := notifier.Add(w.dir); err != nil {
		w.logger.Warn("cannot watch directory, polling only",
			logging.String("dir", w.dir),
			logging.Error(err),
		)
		return w.runPoll(ctx, nil, nil)
	}

	w.logger.Info("watching directory",
		logging.String("dir", w.dir),
		logging.Duration("poll_interval", w.interval),
	)
	return w.runPoll(ctx, notifier.Events, notifier.Errors)
}

// runPoll is the shared loop body; events and errs may be nil when running
// without filesystem notifications.
func (w *Watcher) runPoll(ctx context.Context, events chan fsnotify.Event, errs chan error) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	remaining := w.loops
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				w.logger.Warn("filesystem watch error", logging.Error(err))
			}
		case <-ticker.C:
			if err := w.pass(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.Error("poll pass failed", logging.Error(err))
			}
			if remaining > 0 {
				remaining--
				if remaining == 0 {
					w.logger.Info("loop budget exhausted, stopping")
					return nil
				}
			}
		}
	}
}

// pass runs one full poll iteration: merge the directory listing into the
// status log, then walk every record through the state machine.
func (w *Watcher) pass(ctx context.Context) error {
	if err := w.store.Reconcile(); err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	return w.supervisor.ProcessAll(ctx)
}

// handleEvent reacts to a single filesystem event. Removal and rename
// events go through a reconcile pass so the vanished file is marked gone;
// creates and writes process the named file directly.
func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	if !w.store.Tracked(name) {
		return
	}
	w.logger.Debug("filesystem event",
		logging.String(logging.FieldFile, name),
		logging.String(logging.FieldEventType, ev.Op.String()),
	)

	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		if err := w.store.Reconcile(); err != nil {
			w.logger.Warn("reconcile after removal failed", logging.Error(err))
		}
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		if err := w.supervisor.ProcessPath(ctx, ev.Name); err != nil && ctx.Err() == nil {
			w.logger.Warn("event processing failed",
				logging.String(logging.FieldFile, name),
				logging.Error(err),
			)
		}
	}
}

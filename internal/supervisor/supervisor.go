package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"mkvtag/internal/history"
	"mkvtag/internal/logging"
	"mkvtag/internal/notifications"
	"mkvtag/internal/record"
	"mkvtag/internal/statuslog"
	"mkvtag/internal/tagger"
)

// Options configures a Supervisor.
type Options struct {
	Store    *statuslog.Store
	Runner   tagger.Runner
	Notifier notifications.Service
	// History is optional; nil disables attempt archiving.
	History *history.Store
	Logger  *slog.Logger
	// Quiet is the stability quiet period.
	Quiet time.Duration
	// Precheck skips files the probe reports as already tagged.
	Precheck bool
	// RunID stamps history rows with this daemon session.
	RunID string
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Supervisor owns the active-file marker and applies the state machine to
// one record at a time.
type Supervisor struct {
	store    *statuslog.Store
	runner   tagger.Runner
	notifier notifications.Service
	history  *history.Store
	logger   *slog.Logger
	quiet    time.Duration
	precheck bool
	runID    string
	now      func() time.Time

	mu     sync.Mutex
	active string
}

// New constructs a supervisor.
func New(opts Options) *Supervisor {
	s := &Supervisor{
		store:    opts.Store,
		runner:   opts.Runner,
		notifier: opts.Notifier,
		history:  opts.History,
		logger:   logging.NewComponentLogger(opts.Logger, "supervisor"),
		quiet:    opts.Quiet,
		precheck: opts.Precheck,
		runID:    opts.RunID,
		now:      opts.Now,
	}
	if s.notifier == nil {
		s.notifier = notifications.NewNop()
	}
	if s.quiet <= 0 {
		s.quiet = 10 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// tryAcquireActiveSlot claims the single processing slot for name. At most
// one external command runs at any time.
func (s *Supervisor) tryAcquireActiveSlot(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != "" {
		return false
	}
	s.active = name
	return true
}

func (s *Supervisor) release() {
	s.mu.Lock()
	s.active = ""
	s.mu.Unlock()
}

// busy reports whether any file currently holds the active slot.
func (s *Supervisor) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != ""
}

// Active returns the filename currently being processed, if any.
func (s *Supervisor) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.active != ""
}

// ProcessAll runs the state machine over every tracked record in name
// order. External command failures are absorbed into record state and never
// returned; only context cancellation aborts the pass.
func (s *Supervisor) ProcessAll(ctx context.Context) error {
	for _, rec := range s.store.Records() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := s.ProcessOne(ctx, rec.Name); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			s.logger.Warn("processing pass failed",
				logging.String(logging.FieldFile, rec.Name),
				logging.Error(err),
			)
		}
	}
	return nil
}

// ProcessPath is the filesystem-event entry point: it starts tracking an
// unknown path when its extension matches, then runs the state machine on
// it. Events for untracked extensions and the status log itself are ignored.
func (s *Supervisor) ProcessPath(ctx context.Context, path string) error {
	name := filepath.Base(path)
	if !s.store.Tracked(name) {
		return nil
	}
	if s.store.Suppressed() {
		return nil
	}
	if _, err := s.store.Track(path); err != nil {
		return err
	}
	return s.ProcessOne(ctx, name)
}

// ProcessOne applies the state machine entry rules to a single record.
func (s *Supervisor) ProcessOne(ctx context.Context, name string) error {
	if s.store.Suppressed() {
		return nil
	}
	rec, ok := s.store.Record(name)
	if !ok {
		return nil
	}

	// Disk presence first: a vanished file is gone regardless of anything
	// else; a gone file that reappeared starts over as new.
	if !rec.Exists() {
		if rec.Status != record.StatusGone {
			if _, _, err := s.store.Transition(name, record.StatusGone); err != nil {
				return err
			}
		}
		return nil
	}
	if rec.Status == record.StatusGone {
		if _, applied, err := s.store.Transition(name, record.StatusNew); err != nil || !applied {
			return err
		}
		rec.Status = record.StatusNew
	}

	// Terminal states stop here. The give-up notice was emitted when the
	// counter crossed the threshold; repeating it every pass is just spam.
	if rec.Status == record.StatusDone || rec.GaveUp() {
		return nil
	}

	// Someone else is mid-flight: cooperative backoff, next pass retries.
	if rec.Status == record.StatusProcessing || s.busy() {
		return nil
	}

	if err := rec.RefreshFromDisk(); err != nil {
		return err
	}
	s.store.Observe(rec)

	if !rec.Stable(s.quiet, s.now()) {
		// Re-entering while already waiting is a deliberate no-op so the
		// log is not rewritten every tick.
		if rec.Status == record.StatusWaiting {
			return nil
		}
		s.logWaiting(rec)
		_, _, err := s.store.Transition(name, record.StatusWaiting)
		return err
	}

	// Stable: promote waiting files, and failed files still under the
	// threshold, to ready.
	if rec.Status == record.StatusWaiting || rec.Status == record.StatusFailed {
		if rec.Status == record.StatusFailed {
			s.logger.Info("retrying failed file",
				logging.String(logging.FieldFile, name),
				logging.Int(logging.FieldFailedCount, rec.FailedCount),
			)
		}
		next, applied, err := s.store.Transition(name, record.StatusReady)
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}
		rec.Status = next
	}

	if s.precheck {
		tagged, err := s.runner.AlreadyTagged(ctx, rec.Path)
		if err != nil {
			s.logger.Warn("precheck probe failed, tagging anyway",
				logging.String(logging.FieldFile, name),
				logging.Error(err),
			)
		} else if tagged {
			s.logger.Info("already tagged, skipping",
				logging.String(logging.FieldFile, name),
			)
			s.recordAttempt(ctx, name, history.OutcomeSkipped, 0, "")
			_, _, err := s.store.Transition(name, record.StatusDone)
			return err
		}
	}

	if !s.tryAcquireActiveSlot(name) {
		return nil
	}
	defer s.release()

	// Re-read the committed record: another context may have finished this
	// file between our checks and the slot acquisition.
	committed, ok := s.store.Record(name)
	if !ok || committed.Status == record.StatusDone || committed.GaveUp() {
		return nil
	}

	if _, applied, err := s.store.Transition(name, record.StatusProcessing); err != nil {
		return err
	} else if !applied {
		return nil
	}

	return s.invoke(ctx, rec)
}

// invoke runs the external tagging command synchronously and folds the
// outcome back into the record. The caller holds the active slot.
func (s *Supervisor) invoke(ctx context.Context, rec *record.Record) error {
	name := rec.Name
	s.logger.Info("processing file",
		logging.String(logging.FieldFile, name),
		logging.String("size", humanize.Bytes(uint64(max(rec.Size, 0)))),
	)

	started := s.now()
	tagErr := s.runner.Tag(ctx, rec.Path)
	elapsed := s.now().Sub(started)

	if tagErr == nil {
		if err := s.store.Succeed(name); err != nil {
			return err
		}
		s.recordAttempt(ctx, name, history.OutcomeSuccess, elapsed, "")
		s.logger.Info("file tagged",
			logging.String(logging.FieldFile, name),
			logging.Duration("elapsed", elapsed),
		)
		if err := s.notifier.NotifyFileTagged(ctx, name); err != nil {
			s.logger.Warn("notification failed", logging.Error(err))
		}
		if renamed, err := s.store.Rename(name); err != nil {
			s.logger.Warn("rename after tagging failed",
				logging.String(logging.FieldFile, name),
				logging.Error(err),
			)
		} else if renamed != name {
			s.logger.Info("file renamed",
				logging.String(logging.FieldFile, name),
				logging.String("renamed_to", renamed),
			)
		}
		return nil
	}

	if errors.Is(tagErr, context.Canceled) {
		return tagErr
	}

	stderr := ""
	var cmdErr *tagger.CommandError
	if errors.As(tagErr, &cmdErr) {
		stderr = cmdErr.Stderr
	}
	count, err := s.store.Fail(name)
	if err != nil {
		return err
	}
	s.recordAttempt(ctx, name, history.OutcomeFailure, elapsed, stderr)
	s.logger.Error("tagging failed",
		logging.String(logging.FieldFile, name),
		logging.Int(logging.FieldFailedCount, count),
		logging.Error(tagErr),
	)
	if count == record.GiveUpThreshold {
		s.logger.Error("giving up on file",
			logging.String(logging.FieldFile, name),
			logging.Int(logging.FieldFailedCount, count),
			logging.String(logging.FieldErrorHint, "reset the record manually to retry"),
		)
		if err := s.notifier.NotifyGiveUp(ctx, name, count); err != nil {
			s.logger.Warn("notification failed", logging.Error(err))
		}
	}
	return nil
}

func (s *Supervisor) logWaiting(rec *record.Record) {
	if rec.Size != rec.LastSize {
		diff := rec.Size - rec.LastSize
		if diff < 0 {
			diff = -diff
		}
		s.logger.Info("file still changing, skipping for now",
			logging.String(logging.FieldFile, rec.Name),
			logging.String("size_change", humanize.Bytes(uint64(diff))),
		)
		return
	}
	s.logger.Info("file recently modified, skipping for now",
		logging.String(logging.FieldFile, rec.Name),
		logging.String("modified", humanize.Time(rec.Mtime)),
	)
}

func (s *Supervisor) recordAttempt(ctx context.Context, name string, outcome history.Outcome, elapsed time.Duration, stderr string) {
	if s.history == nil {
		return
	}
	err := s.history.Record(ctx, history.Attempt{
		RunID:    s.runID,
		File:     name,
		Outcome:  outcome,
		Duration: elapsed,
		Stderr:   stderr,
	})
	if err != nil {
		s.logger.Warn("history write failed", logging.Error(err))
	}
}

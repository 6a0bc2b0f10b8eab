package daemon_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"mkvtag/internal/daemon"
	"mkvtag/internal/logging"
	"mkvtag/internal/record"
	"mkvtag/internal/testsupport"
)

func TestRunProcessesDirectoryAndStops(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Watch.PollInterval = 1
	cfg.Watch.Loops = 1
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	testsupport.WriteStableFile(t, filepath.Join(cfg.Watch.Directory, "movie.mkv"), 64)

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	store := testsupport.MustLoadStore(t, cfg)
	rec, ok := store.Record("movie.mkv")
	if !ok || rec.Status != record.StatusDone {
		t.Fatalf("expected tagged record: %+v ok=%v", rec, ok)
	}
}

func TestRunRefusesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	other := flock.New(filepath.Join(cfg.Watch.Directory, ".mkvtag.lock"))
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-acquire lock: %v locked=%v", err, locked)
	}
	defer other.Unlock()

	// A second instance with its own log directory still targets the same
	// watched directory and must be refused.
	cfg.Logging.Dir = filepath.Join(t.TempDir(), "other-logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	if err := d.Run(context.Background()); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestInstancesOnDifferentDirectoriesDoNotContend(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	// Hold the lock for an unrelated watched directory.
	otherDir := t.TempDir()
	other := flock.New(filepath.Join(otherDir, ".mkvtag.lock"))
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-acquire lock: %v locked=%v", err, locked)
	}
	defer other.Unlock()

	cfg.Watch.Loops = 1
	cfg.Watch.PollInterval = 1
	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestNewRejectsBadRenamePattern(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRenamePattern("["))
	if _, err := daemon.New(cfg, logging.NewNop()); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestRunFailsWhenTaggerMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Tagger.Command = "definitely-not-installed-anywhere"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	if err := d.Run(context.Background()); err == nil {
		t.Fatal("expected dependency verification to fail")
	}
}

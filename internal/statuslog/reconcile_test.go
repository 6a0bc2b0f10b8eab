package statuslog_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mkvtag/internal/record"
	"mkvtag/internal/rename"
	"mkvtag/internal/statuslog"
)

func seedLog(t *testing.T, dir, name string, mtime time.Time, status record.Status, failedCount int) {
	t.Helper()
	entry := fmt.Sprintf(`{
  "%s": {
    "name": "%s",
    "mtime": "%s",
    "size": 64,
    "failed_count": %d,
    "status": "%s"
  }
}`, name, name, mtime.UTC().Format(time.RFC3339Nano), failedCount, status)
	if err := os.WriteFile(filepath.Join(dir, ".mkvtag.json"), []byte(entry), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}
}

func TestReconcileAddsDiskFilesAsNew(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "movie.mkv"), 64)
	writeFile(t, filepath.Join(dir, "notes.txt"), 64)

	store := newStore(t, dir)
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	rec, ok := store.Record("movie.mkv")
	if !ok || rec.Status != record.StatusNew {
		t.Fatalf("expected new record for disk file: %+v ok=%v", rec, ok)
	}
	if _, ok := store.Record("notes.txt"); ok {
		t.Fatal("untracked extension must be ignored")
	}
	if _, ok := store.Record(".mkvtag.json"); ok {
		t.Fatal("the status log itself must never be tracked")
	}
}

func TestReconcileIsByteIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "movie.mkv"), 64)
	backdate(t, filepath.Join(dir, "movie.mkv"), 2*time.Minute)

	store := newStore(t, dir)
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Reconcile(); err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	first, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	if err := store.Reconcile(); err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	second, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("reconcile not idempotent:\n%s\n%s", first, second)
	}
}

func TestReconcileMarksMissingFilesGone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.mkv")
	writeFile(t, path, 64)

	store := newStore(t, dir)
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Reconcile(); err != nil {
		t.Fatalf("Reconcile after removal: %v", err)
	}

	rec, ok := store.Record("movie.mkv")
	if !ok || rec.Status != record.StatusGone {
		t.Fatalf("expected gone record: %+v ok=%v", rec, ok)
	}
}

func TestReconcileGoneFileReappearsAsNewKeepingFailures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.mkv")
	seedLog(t, dir, "movie.mkv", time.Now(), record.StatusGone, 2)
	writeFile(t, path, 64)

	store := newStore(t, dir)
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	rec, ok := store.Record("movie.mkv")
	if !ok {
		t.Fatal("record missing")
	}
	if rec.Status != record.StatusNew {
		t.Fatalf("reappeared file should be new, got %s", rec.Status)
	}
	if rec.FailedCount != 2 {
		t.Fatalf("failure counter must survive reappearance, got %d", rec.FailedCount)
	}
}

func TestReconcilePrunesGoneRecordsPastGrace(t *testing.T) {
	dir := t.TempDir()
	seedLog(t, dir, "movie.mkv", time.Now().Add(-48*time.Hour), record.StatusGone, 0)

	store := newStore(t, dir, func(o *statuslog.Options) { o.GoneGrace = 24 * time.Hour })
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if _, ok := store.Record("movie.mkv"); ok {
		t.Fatal("gone record past the grace period must be pruned")
	}
}

func TestReconcileKeepsGoneRecordsInsideGrace(t *testing.T) {
	dir := t.TempDir()
	seedLog(t, dir, "movie.mkv", time.Now().Add(-time.Hour), record.StatusGone, 0)

	store := newStore(t, dir, func(o *statuslog.Options) { o.GoneGrace = 24 * time.Hour })
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if _, ok := store.Record("movie.mkv"); !ok {
		t.Fatal("gone record inside the grace period must survive")
	}
}

func TestReconcileStartupResetRecoversStuckRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.mkv")
	writeFile(t, path, 64)
	backdate(t, path, 5*time.Minute)
	seedLog(t, dir, "movie.mkv", time.Now().Add(-5*time.Minute), record.StatusProcessing, 1)

	store := newStore(t, dir)
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	rec, ok := store.Record("movie.mkv")
	if !ok || rec.Status != record.StatusNew {
		t.Fatalf("stuck record should be reset to new: %+v ok=%v", rec, ok)
	}
	if rec.FailedCount != 1 {
		t.Fatalf("reset pass must not clear the counter, got %d", rec.FailedCount)
	}
}

func TestReconcileStartupResetSkipsGivenUpRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.mkv")
	writeFile(t, path, 64)
	backdate(t, path, 5*time.Minute)
	seedLog(t, dir, "movie.mkv", time.Now().Add(-5*time.Minute), record.StatusFailed, record.GiveUpThreshold)

	store := newStore(t, dir)
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	rec, ok := store.Record("movie.mkv")
	if !ok || rec.Status != record.StatusFailed {
		t.Fatalf("permanently failed record must stay failed: %+v ok=%v", rec, ok)
	}
}

func TestReconcileResetPassRunsOnlyOnce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.mkv")
	writeFile(t, path, 64)
	backdate(t, path, 5*time.Minute)

	store := newStore(t, dir)
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	// Simulate a file mid-flight during normal operation. A later poll
	// reconcile must leave it alone even though its mtime is old.
	if _, _, err := store.Transition("movie.mkv", record.StatusProcessing); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if err := store.Reconcile(); err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}

	rec, _ := store.Record("movie.mkv")
	if rec.Status != record.StatusProcessing {
		t.Fatalf("steady-state reconcile reset an in-flight record to %s", rec.Status)
	}
}

func TestReconcileDoneRecordStaysDone(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movie.mkv")
	writeFile(t, path, 64)
	backdate(t, path, 5*time.Minute)

	store := newStore(t, dir)
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if err := store.Succeed("movie.mkv"); err != nil {
		t.Fatalf("Succeed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.Reconcile(); err != nil {
			t.Fatalf("Reconcile %d: %v", i, err)
		}
	}
	rec, _ := store.Record("movie.mkv")
	if rec.Status != record.StatusDone {
		t.Fatalf("done record regressed to %s", rec.Status)
	}
}

func TestReconcileRenamesDoneFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movie_t03.mkv")
	writeFile(t, path, 64)
	backdate(t, path, 5*time.Minute)

	engine, err := rename.New(`_t\d{2}`)
	if err != nil {
		t.Fatalf("rename.New: %v", err)
	}
	store := newStore(t, dir, func(o *statuslog.Options) { o.Cleaner = engine })
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if err := store.Succeed("movie_t03.mkv"); err != nil {
		t.Fatalf("Succeed: %v", err)
	}

	if err := store.Reconcile(); err != nil {
		t.Fatalf("rename Reconcile: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "movie.mkv")); err != nil {
		t.Fatalf("renamed file missing: %v", err)
	}
	rec, ok := store.Record("movie.mkv")
	if !ok || rec.Status != record.StatusDone {
		t.Fatalf("renamed record wrong: %+v ok=%v", rec, ok)
	}
}

func TestReconcileNoOpInsideErrorWindow(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, ".mkvtag.json")
	if err := os.WriteFile(logPath, []byte(`{"broken`), 0o644); err != nil {
		t.Fatalf("seed corrupt log: %v", err)
	}
	writeFile(t, filepath.Join(dir, "movie.mkv"), 64)

	store := newStore(t, dir, func(o *statuslog.Options) { o.ErrorBackoff = time.Hour })
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !store.Suppressed() {
		t.Fatal("expected error state after corruption")
	}

	if err := store.Reconcile(); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if store.Len() != 0 {
		t.Fatal("reconcile inside the error window must be a no-op")
	}
}

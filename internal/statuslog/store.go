package statuslog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"mkvtag/internal/config"
	"mkvtag/internal/logging"
	"mkvtag/internal/record"
)

// ErrCorrupt marks a structurally invalid status log: not a single
// well-formed JSON object at the top level.
var ErrCorrupt = errors.New("status log corrupted")

// NameCleaner produces the cleaned-up form of a filename. ok is false when
// no cleanup applies.
type NameCleaner interface {
	CleanName(name string) (string, bool)
}

// Options configures a Store.
type Options struct {
	// Dir is the watched directory.
	Dir string
	// Path is the status log location.
	Path string
	// Extensions are the tracked filename extensions (lowercase, with dot).
	Extensions []string
	// Strict propagates log parse failures instead of self-healing.
	Strict bool
	// GoneGrace bounds how long gone records survive before pruning.
	GoneGrace time.Duration
	// ErrorBackoff is the window during which the store suppresses work
	// after corruption or a failed write. Defaults to 5s.
	ErrorBackoff time.Duration
	// Cleaner optionally renames done files during reconciliation.
	Cleaner NameCleaner
	Logger  *slog.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Store owns the in-memory file table and its durable JSON projection.
type Store struct {
	dir          string
	path         string
	extensions   map[string]struct{}
	strict       bool
	goneGrace    time.Duration
	errorBackoff time.Duration
	cleaner      NameCleaner
	logger       *slog.Logger
	now          func() time.Time

	mu         sync.Mutex
	table      map[string]*record.Record
	errorUntil time.Time
	didReset   bool
}

// New constructs a store. The status log file is created with an empty
// object when missing.
func New(opts Options) *Store {
	s := &Store{
		dir:          opts.Dir,
		path:         opts.Path,
		extensions:   make(map[string]struct{}, len(opts.Extensions)),
		strict:       opts.Strict,
		goneGrace:    opts.GoneGrace,
		errorBackoff: opts.ErrorBackoff,
		cleaner:      opts.Cleaner,
		logger:       logging.NewComponentLogger(opts.Logger, "statuslog"),
		now:          opts.Now,
		table:        make(map[string]*record.Record),
	}
	for _, ext := range opts.Extensions {
		s.extensions[strings.ToLower(ext)] = struct{}{}
	}
	if len(s.extensions) == 0 {
		s.extensions[".mkv"] = struct{}{}
	}
	if s.goneGrace <= 0 {
		s.goneGrace = 24 * time.Hour
	}
	if s.errorBackoff <= 0 {
		s.errorBackoff = 5 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// FromConfig builds a store from application configuration.
func FromConfig(cfg *config.Config, cleaner NameCleaner, logger *slog.Logger) *Store {
	return New(Options{
		Dir:          cfg.Watch.Directory,
		Path:         cfg.Watch.StatusLogPath,
		Extensions:   cfg.Watch.Extensions,
		Strict:       cfg.Watch.StrictStatusLog,
		GoneGrace:    cfg.GoneGrace(),
		ErrorBackoff: cfg.PollDuration(),
		Cleaner:      cleaner,
		Logger:       logger,
	})
}

// Path returns the status log location.
func (s *Store) Path() string {
	return s.path
}

// Tracked reports whether a filename carries a tracked extension.
func (s *Store) Tracked(name string) bool {
	_, ok := s.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Suppressed reports whether the store is inside its error-state window.
func (s *Store) Suppressed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Before(s.errorUntil)
}

func (s *Store) enterErrorStateLocked() {
	s.errorUntil = s.now().Add(s.errorBackoff)
}

// Load reads the persisted mapping into the in-memory table. A missing or
// empty file counts as an empty object. On structural corruption the lenient
// path logs, recreates an empty log, and enters the error state; the strict
// path returns the wrapped parse error.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	table, err := s.readPersistedLocked()
	if err != nil {
		return err
	}
	s.table = table
	return nil
}

// readPersistedLocked reads and decodes the log file, applying the
// corruption policy. Callers hold s.mu.
func (s *Store) readPersistedLocked() (map[string]*record.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			data = []byte("{}")
		} else {
			return nil, fmt.Errorf("read status log: %w", err)
		}
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		data = []byte("{}")
	}

	var raw map[string]*record.Record
	if err := json.Unmarshal(data, &raw); err != nil {
		if s.strict {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
		}
		s.logger.Warn("status log corrupted, recreating",
			logging.String("path", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "previous contents discarded"),
		)
		empty := make(map[string]*record.Record)
		if werr := s.writeSnapshotLocked(empty); werr != nil {
			s.enterErrorStateLocked()
			return nil, werr
		}
		s.enterErrorStateLocked()
		return empty, nil
	}

	table := make(map[string]*record.Record, len(raw))
	for name, rec := range raw {
		if rec == nil {
			continue
		}
		if rec.Name == "" {
			rec.Name = name
		}
		rec.Path = filepath.Join(s.dir, rec.Name)
		table[rec.Name] = rec
	}
	return table, nil
}

// writeSnapshotLocked serializes the full record set to disk in one atomic
// operation (temp file + rename). Callers hold s.mu.
func (s *Store) writeSnapshotLocked(table map[string]*record.Record) error {
	data, err := json.MarshalIndent(table, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status log: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".mkvtag-log-*")
	if err != nil {
		return fmt.Errorf("create status log temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write status log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close status log temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace status log: %w", err)
	}
	return nil
}

func (s *Store) persistLocked() error {
	if err := s.writeSnapshotLocked(s.table); err != nil {
		s.enterErrorStateLocked()
		return err
	}
	return nil
}

// Record returns a copy of the committed record for name.
func (s *Store) Record(name string) (*record.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.table[name]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Records returns copies of all records sorted by name.
func (s *Store) Records() []*record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*record.Record, 0, len(s.table))
	for _, rec := range s.table {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of tracked records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.table)
}

// Track ensures a record exists for path, creating and persisting a new one
// when the file is not yet known. Returns a copy of the committed record.
func (s *Store) Track(path string) (*record.Record, error) {
	name := filepath.Base(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.table[name]; ok {
		return rec.Clone(), nil
	}
	rec := record.New(path)
	s.table[name] = rec
	if err := s.persistLocked(); err != nil {
		delete(s.table, name)
		return nil, err
	}
	return rec.Clone(), nil
}

// Observe folds fresh size/mtime observations from a working copy back into
// the table without touching disk. Observations only become durable with the
// next status change or reconciliation.
func (s *Store) Observe(rec *record.Record) {
	if rec == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	committed, ok := s.table[rec.Name]
	if !ok {
		s.table[rec.Name] = rec.Clone()
		return
	}
	committed.Path = rec.Path
	committed.Mtime = rec.Mtime
	committed.LastMtime = rec.LastMtime
	committed.Size = rec.Size
	committed.LastSize = rec.LastSize
}

// Transition requests a status change for name, validated against the
// transition table using the last committed value so a stale caller can
// never regress a concurrent result. The snapshot is rewritten when the
// transition applies and actually changes the status.
func (s *Store) Transition(name string, requested record.Status) (record.Status, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.table[name]
	if !ok {
		return "", false, fmt.Errorf("transition %s: record not tracked", name)
	}
	next, allowed := record.NextStatus(rec.Status, requested)
	if !allowed {
		s.logger.Debug("transition rejected",
			logging.String(logging.FieldFile, name),
			logging.String("from", string(rec.Status)),
			logging.String("to", string(requested)),
		)
		return rec.Status, false, nil
	}
	if next == rec.Status {
		return rec.Status, true, nil
	}
	previous := rec.Status
	rec.Status = next
	if err := s.persistLocked(); err != nil {
		rec.Status = previous
		return rec.Status, false, err
	}
	return next, true, nil
}

// Fail records a failed processing attempt: counter incremented, status
// failed, snapshot rewritten. Returns the new counter value.
func (s *Store) Fail(name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.table[name]
	if !ok {
		return 0, fmt.Errorf("fail %s: record not tracked", name)
	}
	rec.RecordFailure()
	if err := s.persistLocked(); err != nil {
		return rec.FailedCount, err
	}
	return rec.FailedCount, nil
}

// Succeed marks a record done and rewrites the snapshot.
func (s *Store) Succeed(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.table[name]
	if !ok {
		return fmt.Errorf("succeed %s: record not tracked", name)
	}
	rec.RecordSuccess()
	return s.persistLocked()
}

// ResetRecord forces a record back to new and clears its failure counter.
// This is the manual operator reset; automatic paths never clear the counter.
func (s *Store) ResetRecord(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.table[name]
	if !ok {
		return fmt.Errorf("reset %s: record not tracked", name)
	}
	rec.Status = record.StatusNew
	rec.FailedCount = 0
	return s.persistLocked()
}

// Clear drops every record and rewrites an empty log.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = make(map[string]*record.Record)
	return s.persistLocked()
}

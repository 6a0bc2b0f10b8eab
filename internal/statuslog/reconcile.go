package statuslog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mkvtag/internal/logging"
	"mkvtag/internal/record"
)

// resetAge is how old a non-terminal record's mtime must be before the
// startup reset pass forces it back to new.
const resetAge = 60 * time.Second

// Reconcile diffs the on-disk file set against the persisted log and the
// previous in-memory table, persisting the merged result as one atomic
// write. The first reconciliation after startup additionally resets records
// left mid-flight by a previous crash. Inside the error-state window the
// call is a no-op.
func (s *Store) Reconcile() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.now().Before(s.errorUntil) {
		return nil
	}

	disk, err := s.listDirLocked()
	if err != nil {
		return err
	}

	persisted, err := s.readPersistedLocked()
	if err != nil {
		return err
	}
	// Lenient corruption recovery just rewrote an empty log and armed the
	// error window; let the next pass start from the clean slate.
	if s.now().Before(s.errorUntil) {
		return nil
	}

	previous := s.table
	merged := persisted

	// Disk files unknown to the log enter as new.
	for name, path := range disk {
		if rec, ok := merged[name]; ok {
			rec.Path = path
			continue
		}
		merged[name] = record.New(path)
	}

	// Logged files missing from disk are gone.
	for name, rec := range merged {
		if _, onDisk := disk[name]; !onDisk {
			rec.Status = record.StatusGone
		}
	}

	// Terminal statuses from the previous in-memory table win over the
	// freshly reloaded copy: a read that raced a concurrent writer must not
	// clobber an outcome this process already knows. Disk presence stays
	// authoritative for existence.
	for name, prev := range previous {
		rec, ok := merged[name]
		if !ok {
			continue
		}
		_, onDisk := disk[name]
		switch prev.Status {
		case record.StatusDone:
			if onDisk {
				rec.Status = record.StatusDone
			}
		case record.StatusGone:
			if !onDisk {
				rec.Status = record.StatusGone
			}
		}
		if prev.FailedCount > rec.FailedCount {
			rec.FailedCount = prev.FailedCount
		}
	}

	// A gone file that reappeared starts over as new.
	for name, rec := range merged {
		if rec.Status != record.StatusGone {
			continue
		}
		if _, onDisk := disk[name]; onDisk {
			rec.Status = record.StatusNew
		}
	}

	// Prune gone records past the grace period; transient disappearances
	// (editors that delete-then-recreate) survive inside it.
	for name, rec := range merged {
		if rec.Status == record.StatusGone && s.now().Sub(rec.Mtime) > s.goneGrace {
			delete(merged, name)
		}
	}

	// Startup-only reset: recover files left mid-flight by a crash without
	// resurrecting permanently failed ones.
	if !s.didReset {
		s.didReset = true
		for _, rec := range merged {
			if rec.Status.IsTerminal() {
				continue
			}
			if s.now().Sub(rec.Mtime) > resetAge && rec.FailedCount < record.GiveUpThreshold {
				rec.Status = record.StatusNew
			}
		}
	}

	if s.cleaner != nil {
		s.renamePassLocked(merged, disk)
	}

	s.table = merged
	return s.persistLocked()
}

// listDirLocked enumerates tracked files in the watched directory.
func (s *Store) listDirLocked() (map[string]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list watch directory: %w", err)
	}
	disk := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !s.Tracked(name) {
			continue
		}
		disk[name] = filepath.Join(s.dir, name)
	}
	return disk, nil
}

// renamePassLocked applies the cleanup pattern to done records during
// reconciliation, keeping log keys consistent with disk names.
func (s *Store) renamePassLocked(merged map[string]*record.Record, disk map[string]string) {
	for name, rec := range merged {
		if rec.Status != record.StatusDone {
			continue
		}
		if _, onDisk := disk[name]; !onDisk {
			continue
		}
		renamed, err := s.renameRecordLocked(merged, rec)
		if err != nil {
			s.logger.Warn("rename failed during reconcile",
				logging.String(logging.FieldFile, name),
				logging.Error(err),
			)
			continue
		}
		if renamed != name {
			delete(disk, name)
			disk[renamed] = rec.Path
		}
	}
}

// renameRecordLocked renames the backing file and the table key as one
// logical unit. When the disk rename succeeds but a later persist fails, the
// next reconciliation self-heals: the old key shows up gone, the new one new.
func (s *Store) renameRecordLocked(table map[string]*record.Record, rec *record.Record) (string, error) {
	cleaned, ok := s.cleaner.CleanName(rec.Name)
	if !ok || cleaned == "" || cleaned == rec.Name {
		return rec.Name, nil
	}
	if _, taken := table[cleaned]; taken {
		return rec.Name, fmt.Errorf("rename target %q already tracked", cleaned)
	}
	newPath := filepath.Join(s.dir, cleaned)
	if _, err := os.Stat(newPath); err == nil {
		return rec.Name, fmt.Errorf("rename target %q already exists", newPath)
	}
	if err := os.Rename(rec.Path, newPath); err != nil {
		return rec.Name, fmt.Errorf("rename %s: %w", rec.Name, err)
	}
	delete(table, rec.Name)
	rec.Name = cleaned
	rec.Path = newPath
	table[cleaned] = rec
	return cleaned, nil
}

// Rename applies the cleanup pattern to one done record and persists the
// key change. It returns the resulting filename (unchanged when no cleanup
// applies or no cleaner is configured).
func (s *Store) Rename(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.table[name]
	if !ok {
		return name, fmt.Errorf("rename %s: record not tracked", name)
	}
	if s.cleaner == nil || rec.Status != record.StatusDone {
		return name, nil
	}
	renamed, err := s.renameRecordLocked(s.table, rec)
	if err != nil {
		return name, err
	}
	if renamed == name {
		return name, nil
	}
	return renamed, s.persistLocked()
}

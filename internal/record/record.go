package record

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// GiveUpThreshold is the fixed number of failed attempts after which a file
// is no longer retried automatically.
const GiveUpThreshold = 3

// Record tracks one watched file. Identity is by filename: two records with
// the same Name are the same logical file even across a rename of the
// underlying path.
type Record struct {
	Name        string
	Path        string
	Mtime       time.Time
	LastMtime   time.Time
	Size        int64
	LastSize    int64
	Status      Status
	FailedCount int
}

// New builds a record for a file observed on disk, seeding both observation
// slots from the current stat so a single observation never looks like a
// change. A stat failure leaves zero values; the reconciler decides whether
// the file is actually gone.
func New(path string) *Record {
	rec := &Record{
		Name:   filepath.Base(path),
		Path:   path,
		Status: StatusNew,
	}
	if info, err := os.Stat(path); err == nil {
		rec.Mtime = info.ModTime()
		rec.LastMtime = info.ModTime()
		rec.Size = info.Size()
		rec.LastSize = info.Size()
	}
	return rec
}

// RefreshFromDisk re-stats the backing path and shifts the previous
// observation into the Last slots when the newly observed value differs.
// A vanished file keeps its last-known values; marking it gone is the
// reconciler's job, not this method's.
func (r *Record) RefreshFromDisk() error {
	info, err := os.Stat(r.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if mtime := info.ModTime(); !mtime.Equal(r.Mtime) {
		r.LastMtime = r.Mtime
		r.Mtime = mtime
	}
	if size := info.Size(); size != r.Size {
		r.LastSize = r.Size
		r.Size = size
	}
	return nil
}

// Stable reports whether the file has stopped being written: neither size
// nor mtime changed across the two most recent observations, and the quiet
// period since mtime has elapsed. Deliberately conservative; declaring a
// finished file still-moving is safe, the opposite is not.
func (r *Record) Stable(quiet time.Duration, now time.Time) bool {
	if r.Size != r.LastSize {
		return false
	}
	if !r.Mtime.Equal(r.LastMtime) {
		return false
	}
	return now.Sub(r.Mtime) > quiet
}

// RecordFailure increments the failure counter and marks the record failed.
func (r *Record) RecordFailure() {
	r.FailedCount++
	r.Status = StatusFailed
}

// RecordSuccess marks the record done.
func (r *Record) RecordSuccess() {
	r.Status = StatusDone
}

// GaveUp reports whether the record has exhausted its automatic retries.
func (r *Record) GaveUp() bool {
	return r.Status == StatusFailed && r.FailedCount >= GiveUpThreshold
}

// Exists reports whether the backing file is currently present on disk.
func (r *Record) Exists() bool {
	_, err := os.Stat(r.Path)
	return err == nil
}

// Clone returns a copy of the record.
func (r *Record) Clone() *Record {
	cp := *r
	return &cp
}

// entry is the persisted wire shape: one object per file in the status log.
type entry struct {
	Name        string `json:"name"`
	Mtime       string `json:"mtime"`
	Size        int64  `json:"size"`
	FailedCount int    `json:"failed_count"`
	Status      string `json:"status"`
}

// MarshalJSON serializes the record in the status-log wire format.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(entry{
		Name:        r.Name,
		Mtime:       r.Mtime.UTC().Format(time.RFC3339Nano),
		Size:        r.Size,
		FailedCount: r.FailedCount,
		Status:      string(r.Status),
	})
}

// UnmarshalJSON restores a record from the status-log wire format. Both
// observation slots are seeded from the persisted values; unknown status
// strings degrade to new rather than failing the whole log.
func (r *Record) UnmarshalJSON(data []byte) error {
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	r.Name = e.Name
	r.Size = e.Size
	r.LastSize = e.Size
	r.FailedCount = e.FailedCount
	if status, ok := ParseStatus(e.Status); ok {
		r.Status = status
	} else {
		r.Status = StatusNew
	}
	if ts, err := time.Parse(time.RFC3339Nano, e.Mtime); err == nil {
		r.Mtime = ts
		r.LastMtime = ts
	}
	return nil
}

// Package checkpoint persists the incremental-sync state: a single
// metadata.json per data directory mapping the module and every
// written file to what was last synchronized. Absence of a key means
// "never synced", never an error.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/archive-tools/easydb-exporter/internal/model"
)

// Filename of the checkpoint document inside the data directory.
const Filename = "metadata.json"

// TimeFormat is the timestamp layout used throughout the checkpoint
// document. The fixed .000 fraction matches what the collections
// system emits in _last_modified.
const TimeFormat = "2006-01-02 15:04:05.000"

// ParseTime parses a checkpoint or server timestamp. Comparisons must
// happen on the parsed value: the source system is not consistent
// about fractional-second precision, so lexicographic comparison is
// unsafe.
func ParseTime(s string) (time.Time, error) {
	layouts := []string{
		TimeFormat,
		"2006-01-02 15:04:05.999999",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatTime renders a timestamp in the checkpoint layout, UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// FileRecord is the per-file sync state. Empty fields have never been
// synced for that asset kind.
type FileRecord struct {
	LastUpdated            string `json:"lastUpdated,omitempty"`
	LatestImageDownloadURL string `json:"latestImageDownloadUrl,omitempty"`
	LatestPdfDownloadURL   string `json:"latestPdfDownloadUrl,omitempty"`
}

type document struct {
	LastUpdated string                 `json:"lastUpdated,omitempty"`
	Files       map[string]*FileRecord `json:"files,omitempty"`
}

// Store is the durable checkpoint. Mutators only stage in memory;
// Flush writes the document. Callers pick the durability point: flush
// after every item, or once per batch. A crash between a staged write
// and a flush only loses that batch, which is safe because unflushed
// items are simply reconsidered not-yet-synced on the next run.
//
// The store assumes a single writer per directory; the mutex only
// serializes goroutines of this process.
type Store struct {
	mu   sync.Mutex
	path string
	doc  document
}

// Open loads the checkpoint of a data directory, creating and
// persisting an empty document when none exists yet so later runs
// never have to guess whether prior state existed.
func Open(dir string) (*Store, error) {
	s := &Store{path: filepath.Join(dir, Filename)}

	raw, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		if err := s.flushLocked(); err != nil {
			return nil, fmt.Errorf("initialize checkpoint: %w", err)
		}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	if err := json.Unmarshal(raw, &s.doc); err != nil {
		return nil, fmt.Errorf("parse checkpoint %s: %w", s.path, err)
	}
	return s, nil
}

// ModuleLastUpdated returns the module-level checkpoint timestamp.
func (s *Store) ModuleLastUpdated() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.LastUpdated, s.doc.LastUpdated != ""
}

// SetModuleLastUpdated stages the module-level checkpoint. The caller
// passes the run's start time, not its end, so an interrupted run
// advances only past work it actually attempted.
func (s *Store) SetModuleLastUpdated(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.LastUpdated = FormatTime(t)
}

// File returns the per-file record. The second value reports whether
// the file was seen before.
func (s *Store) File(name string) (FileRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.doc.Files[name]
	if !ok {
		return FileRecord{}, false
	}
	return *rec, true
}

// SetFileLastUpdated stages the source record's own modification
// timestamp for a file.
func (s *Store) SetFileLastUpdated(name, lastUpdated string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(name).LastUpdated = lastUpdated
}

// LatestDownloadURL returns the last successfully synced asset URL
// for a file and kind.
func (s *Store) LatestDownloadURL(name string, kind model.AssetKind) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.doc.Files[name]
	if !ok {
		return ""
	}
	if kind == model.AssetKindPDF {
		return rec.LatestPdfDownloadURL
	}
	return rec.LatestImageDownloadURL
}

// SetLatestDownloadURL stages the asset URL just materialized for a
// file and kind.
func (s *Store) SetLatestDownloadURL(name string, kind model.AssetKind, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind == model.AssetKindPDF {
		s.record(name).LatestPdfDownloadURL = url
		return
	}
	s.record(name).LatestImageDownloadURL = url
}

// RemoveFile stages removal of a per-file record.
func (s *Store) RemoveFile(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.doc.Files, name)
}

// Files lists the filenames currently tracked.
func (s *Store) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.doc.Files))
	for name := range s.doc.Files {
		out = append(out, name)
	}
	return out
}

// Flush writes the staged state to disk.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	raw, err := json.MarshalIndent(s.doc, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o644)
}

// record returns the per-file record, creating it lazily on first
// write.
func (s *Store) record(name string) *FileRecord {
	if s.doc.Files == nil {
		s.doc.Files = map[string]*FileRecord{}
	}
	rec, ok := s.doc.Files[name]
	if !ok {
		rec = &FileRecord{}
		s.doc.Files[name] = rec
	}
	return rec
}

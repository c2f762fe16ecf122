package assets

import (
	"encoding/csv"
	"os"
	"sync"
)

// Manifest records materialized assets for downstream database
// ingestion: one row per asset, generated filename plus absolute
// output path. Safe for concurrent appends.
type Manifest struct {
	mu   sync.Mutex
	f    *os.File
	w    *csv.Writer
	rows int
}

func NewManifest(path string) (*Manifest, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Manifest{f: f, w: csv.NewWriter(f)}, nil
}

// Append writes one row and flushes it; a crashed run keeps every row
// already appended.
func (m *Manifest) Append(generatedFilename, outputPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.w.Write([]string{generatedFilename, outputPath}); err != nil {
		return err
	}
	m.w.Flush()
	m.rows++
	return m.w.Error()
}

// Rows returns the number of rows appended so far.
func (m *Manifest) Rows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows
}

func (m *Manifest) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.w.Flush()
	if err := m.w.Error(); err != nil {
		m.f.Close()
		return err
	}
	return m.f.Close()
}

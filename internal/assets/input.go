package assets

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/archive-tools/easydb-exporter/internal/model"
)

// Extraction CSV header names. The column set drifted between schema
// generations; both spellings of each column are accepted.
var (
	idColumns    = []string{"_system_object_id", "id"}
	imageColumns = []string{"image_url", "image"}
	pdfColumns   = []string{"pdf_url"}
	fileColumns  = []string{"filename"}
)

// ReadTasks loads the extraction CSV and builds one AssetTask per
// asset URL present, windowed by offset/limit (limit 0 means all
// rows). Rows without any asset URL are dropped.
func ReadTasks(path string, offset, limit int) ([]model.AssetTask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}

	header := map[string]int{}
	for i, name := range rows[0] {
		header[strings.TrimSpace(name)] = i
	}
	rows = rows[1:]

	if offset > len(rows) {
		offset = len(rows)
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}

	var tasks []model.AssetTask
	for _, row := range rows {
		id := recordID(pick(header, row, idColumns))
		if id == "" {
			continue
		}
		filename := pick(header, row, fileColumns)

		if u := pick(header, row, imageColumns); u != "" {
			tasks = append(tasks, model.AssetTask{
				RecordID:    id,
				SourceURL:   u,
				XMLFilename: filename,
				Kind:        model.AssetKindImage,
			})
		}
		if u := pick(header, row, pdfColumns); u != "" {
			tasks = append(tasks, model.AssetTask{
				RecordID:    id,
				SourceURL:   u,
				XMLFilename: filename,
				Kind:        model.AssetKindPDF,
			})
		}
	}
	return tasks, nil
}

func pick(header map[string]int, row []string, names []string) string {
	for _, name := range names {
		if i, ok := header[name]; ok && i < len(row) {
			if v := strings.TrimSpace(row[i]); v != "" {
				return v
			}
		}
	}
	return ""
}

// recordID normalizes an identifier cell: older extractions carried
// full record URIs, where only the last path element is the ID.
func recordID(v string) string {
	if i := strings.LastIndex(v, "/"); i >= 0 {
		return v[i+1:]
	}
	return v
}

package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// objectsTagRe matches the opening <objects ...> tag; the namespace
// attributes it carries differ between server versions and break the
// downstream field-extraction pass, so they are stripped on write.
var objectsTagRe = regexp.MustCompile(`<objects\b[^>]*>`)

// recordMeta is what an export XML body says about itself. Filenames
// and checkpoint records derive from these fields, never from the
// archive entry path.
type recordMeta struct {
	ID           string
	LastModified string
}

// unpack iterates the export archive and writes one XML file per
// record into the module directory, staging a checkpoint record for
// each. Returns the number of files written.
func (o *Orchestrator) unpack(raw []byte) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}

	var written int
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() || path.Base(entry.Name) == "" {
			continue
		}

		content, err := readEntry(entry)
		if err != nil {
			return written, fmt.Errorf("read entry %s: %w", entry.Name, err)
		}

		meta, err := extractRecordMeta(content)
		if err != nil || meta.ID == "" {
			slog.Warn("easydb_exporter.export.entry_without_id", slog.String("entry", entry.Name))
			continue
		}

		name := o.cfg.FilenamePrefix + meta.ID + ".xml"
		content = objectsTagRe.ReplaceAll(content, []byte("<objects>"))
		if err := os.WriteFile(filepath.Join(o.dir, name), content, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", name, err)
		}

		o.store.SetFileLastUpdated(name, meta.LastModified)
		written++
	}
	return written, nil
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// extractRecordMeta pulls the record's own _id and _last_modified out
// of an export XML body: first occurrence in document order, matched
// by local name since the files do not declare namespaces
// consistently.
func extractRecordMeta(content []byte) (recordMeta, error) {
	var meta recordMeta
	dec := xml.NewDecoder(bytes.NewReader(content))

	var current string
	for meta.ID == "" || meta.LastModified == "" {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return meta, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Name.Local
		case xml.CharData:
			text := strings.TrimSpace(string(t))
			if text == "" {
				break
			}
			switch current {
			case "_id":
				if meta.ID == "" {
					meta.ID = text
				}
			case "_last_modified":
				if meta.LastModified == "" {
					meta.LastModified = text
				}
			}
		case xml.EndElement:
			current = ""
		}
	}
	return meta, nil
}

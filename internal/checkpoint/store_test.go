package checkpoint_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archive-tools/easydb-exporter/internal/checkpoint"
	"github.com/archive-tools/easydb-exporter/internal/model"
)

func TestOpenCreatesEmptyStore(t *testing.T) {
	dir := t.TempDir()

	s, err := checkpoint.Open(dir)
	require.NoError(t, err)

	// The empty document must be persisted immediately.
	raw, err := os.ReadFile(filepath.Join(dir, checkpoint.Filename))
	require.NoError(t, err)
	assert.JSONEq(t, "{}", string(raw))

	_, ok := s.ModuleLastUpdated()
	assert.False(t, ok)

	// Absence of a key means "never synced", not an error.
	_, ok = s.File("item-1.xml")
	assert.False(t, ok)
	assert.Empty(t, s.LatestDownloadURL("item-1.xml", model.AssetKindImage))
}

func TestOpenRejectsCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, checkpoint.Filename), []byte("{nope"), 0o644))

	_, err := checkpoint.Open(dir)
	assert.Error(t, err)
}

func TestStagingDefersPersistenceUntilFlush(t *testing.T) {
	dir := t.TempDir()
	s, err := checkpoint.Open(dir)
	require.NoError(t, err)

	s.SetFileLastUpdated("item-7.xml", "2024-05-05 10:00:00.000")
	s.SetLatestDownloadURL("item-7.xml", model.AssetKindImage, "http://example.com/a.jpg")

	// Not flushed yet: a fresh open sees nothing.
	fresh, err := checkpoint.Open(dir)
	require.NoError(t, err)
	_, ok := fresh.File("item-7.xml")
	assert.False(t, ok)

	require.NoError(t, s.Flush())

	fresh, err = checkpoint.Open(dir)
	require.NoError(t, err)
	rec, ok := fresh.File("item-7.xml")
	require.True(t, ok)
	assert.Equal(t, "2024-05-05 10:00:00.000", rec.LastUpdated)
	assert.Equal(t, "http://example.com/a.jpg", rec.LatestImageDownloadURL)
	assert.Empty(t, rec.LatestPdfDownloadURL)
}

func TestLatestDownloadURLKeyedByKind(t *testing.T) {
	s, err := checkpoint.Open(t.TempDir())
	require.NoError(t, err)

	s.SetLatestDownloadURL("item-1.xml", model.AssetKindImage, "http://x/img.png")
	s.SetLatestDownloadURL("item-1.xml", model.AssetKindPDF, "http://x/doc.pdf")

	assert.Equal(t, "http://x/img.png", s.LatestDownloadURL("item-1.xml", model.AssetKindImage))
	assert.Equal(t, "http://x/doc.pdf", s.LatestDownloadURL("item-1.xml", model.AssetKindPDF))
}

func TestModuleLastUpdatedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := checkpoint.Open(dir)
	require.NoError(t, err)

	started := time.Date(2024, 5, 5, 10, 30, 0, 0, time.UTC)
	s.SetModuleLastUpdated(started)
	require.NoError(t, s.Flush())

	fresh, err := checkpoint.Open(dir)
	require.NoError(t, err)
	val, ok := fresh.ModuleLastUpdated()
	require.True(t, ok)
	assert.Equal(t, "2024-05-05 10:30:00.000", val)

	parsed, err := checkpoint.ParseTime(val)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(started))
}

func TestDocumentShape(t *testing.T) {
	dir := t.TempDir()
	s, err := checkpoint.Open(dir)
	require.NoError(t, err)

	s.SetModuleLastUpdated(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s.SetFileLastUpdated("item-9.xml", "2024-01-01 00:00:00.000")
	require.NoError(t, s.Flush())

	raw, err := os.ReadFile(filepath.Join(dir, checkpoint.Filename))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "2024-01-01 00:00:00.000", doc["lastUpdated"])
	files, ok := doc["files"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, files, "item-9.xml")
}

func TestRemoveFile(t *testing.T) {
	s, err := checkpoint.Open(t.TempDir())
	require.NoError(t, err)

	s.SetFileLastUpdated("item-1.xml", "2024-01-01 00:00:00.000")
	s.SetFileLastUpdated("item-2.xml", "2024-01-01 00:00:00.000")
	s.RemoveFile("item-1.xml")

	assert.ElementsMatch(t, []string{"item-2.xml"}, s.Files())
}

func TestParseTimeAcceptsVaryingPrecision(t *testing.T) {
	for _, tc := range []string{
		"2024-05-05 10:30:00.000",
		"2024-05-05 10:30:00.123456",
		"2024-05-05 10:30:00",
	} {
		parsed, err := checkpoint.ParseTime(tc)
		require.NoError(t, err, tc)
		assert.Equal(t, 2024, parsed.Year(), tc)
	}

	_, err := checkpoint.ParseTime("yesterday")
	assert.Error(t, err)
}

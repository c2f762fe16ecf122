package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archive-tools/easydb-exporter/internal/model"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extraction.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadTasksModernHeader(t *testing.T) {
	path := writeCSV(t, ""+
		"_system_object_id,filename,image_url,pdf_url\n"+
		"101,item-101.xml,https://host/a.jpg,\n"+
		"102,item-102.xml,https://host/b.png,https://host/b.pdf\n"+
		"103,item-103.xml,,\n")

	tasks, err := ReadTasks(path, 0, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	assert.Equal(t, model.AssetTask{
		RecordID: "101", SourceURL: "https://host/a.jpg",
		XMLFilename: "item-101.xml", Kind: model.AssetKindImage,
	}, tasks[0])

	// Row 102 carries both asset kinds, so it yields two tasks.
	assert.Equal(t, model.AssetKindImage, tasks[1].Kind)
	assert.Equal(t, model.AssetKindPDF, tasks[2].Kind)
	assert.Equal(t, "102", tasks[2].RecordID)
	assert.Equal(t, "https://host/b.pdf", tasks[2].SourceURL)
}

func TestReadTasksLegacyHeaderAndURIIDs(t *testing.T) {
	path := writeCSV(t, ""+
		"id,filename,image\n"+
		"https://catalog.example.org/objects/55021,item-55021.xml,https://host/c.tif\n")

	tasks, err := ReadTasks(path, 0, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "55021", tasks[0].RecordID)
	assert.Equal(t, "https://host/c.tif", tasks[0].SourceURL)
}

func TestReadTasksWindowing(t *testing.T) {
	path := writeCSV(t, ""+
		"_system_object_id,filename,image_url\n"+
		"1,a.xml,https://host/1.jpg\n"+
		"2,b.xml,https://host/2.jpg\n"+
		"3,c.xml,https://host/3.jpg\n"+
		"4,d.xml,https://host/4.jpg\n")

	tasks, err := ReadTasks(path, 1, 2)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "2", tasks[0].RecordID)
	assert.Equal(t, "3", tasks[1].RecordID)

	// Offset past the end is clamped, not an error.
	tasks, err = ReadTasks(path, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestReadTasksEmptyFile(t *testing.T) {
	path := writeCSV(t, "")
	_, err := ReadTasks(path, 0, 0)
	assert.Error(t, err)
}

func TestReadTasksMissingFile(t *testing.T) {
	_, err := ReadTasks(filepath.Join(t.TempDir(), "nope.csv"), 0, 0)
	assert.Error(t, err)
}

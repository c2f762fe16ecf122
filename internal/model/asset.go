package model

// AssetKind distinguishes the two binary asset classes the pipeline
// materializes.
type AssetKind string

const (
	AssetKindImage AssetKind = "image"
	AssetKindPDF   AssetKind = "pdf"
)

// AssetTask is one unit of download work, built from a row of the
// extraction CSV. XMLFilename keys the checkpoint record; it is the
// metadata file the URL was extracted from, not the asset filename.
type AssetTask struct {
	RecordID    string
	SourceURL   string
	XMLFilename string
	Kind        AssetKind
}

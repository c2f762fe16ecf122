package easydb

import "github.com/archive-tools/easydb-exporter/internal/model"

// systemObjectIDField is the search field carrying the stable object
// identifier, used for the chunking subset filter.
const systemObjectIDField = "_system_object_id"

// defaultBatchSize is the server-side produce batch for one export.
const defaultBatchSize = 5000

// SearchClause is one predicate of an export or search query. Clauses
// combine with logical AND; a "should" bool makes the clause an OR
// over its own values.
type SearchClause struct {
	Type   string   `json:"type"`
	Bool   string   `json:"bool,omitempty"`
	Fields []string `json:"fields,omitempty"`
	In     any      `json:"in,omitempty"`
}

// ExportSearch is the embedded search block of an export definition.
type ExportSearch struct {
	Search      []SearchClause `json:"search"`
	Format      string         `json:"format"`
	ObjectTypes []string       `json:"objecttypes"`
	Limit       *int           `json:"limit"`
}

type ProduceOptions struct {
	AddLinkedData bool   `json:"addLinkedData"`
	Plugin        string `json:"plugin"`
}

// ExportBody mirrors the export resource the server accepts on PUT.
// The XML-one-file-per-object shape is what the downstream checkpoint
// and extraction passes rely on.
type ExportBody struct {
	Version              int            `json:"_version"`
	Type                 string         `json:"type"`
	Search               ExportSearch   `json:"search"`
	Fields               []string       `json:"fields"`
	Classes              map[string]any `json:"classes"`
	Assets               map[string]any `json:"assets"`
	CSV                  bool           `json:"csv"`
	Name                 string         `json:"name"`
	XML                  bool           `json:"xml"`
	XMLOneFilePerObject  bool           `json:"xml_one_file_per_object"`
	MergeLinkedObjects   string         `json:"merge_linked_objects"`
	MergeMaxDepth        int            `json:"merge_max_depth"`
	JSON                 bool           `json:"json"`
	JSONOneFilePerObject bool           `json:"json_one_file_per_object"`
	AllLanguages         bool           `json:"all_languages"`
	Mapping              string         `json:"mapping"`
	Flat                 bool           `json:"flat"`
	BatchSize            int            `json:"batch_size"`
	FilenameTemplate     *string        `json:"filename_template"`
	EASFields            map[string]any `json:"eas_fields"`
	ProduceOptions       ProduceOptions `json:"produce_options"`
	Limit                *int           `json:"limit"`
}

type ExportDefinition struct {
	Export ExportBody `json:"export"`
}

// NewExportDefinition builds the export resource for one object type.
// ids, when non-empty, narrows the export to that subset of system
// object IDs; the orchestrator uses it to keep each job under the
// server's per-export ceiling.
func NewExportDefinition(desc model.Descriptor, sample bool, ids []int64) ExportDefinition {
	clauses := []SearchClause{{
		Type:   "in",
		Bool:   "must",
		Fields: []string{"_objecttype"},
		In:     desc.ObjectTypes,
	}}

	if pools := desc.Pools(sample); len(pools) > 0 {
		clauses = append(clauses, SearchClause{
			Type:   "in",
			Bool:   "should",
			Fields: desc.PoolFields,
			In:     pools,
		})
	}
	if len(desc.Tags) > 0 {
		clauses = append(clauses, SearchClause{
			Type:   "in",
			Bool:   "must",
			Fields: []string{"_tags._id"},
			In:     desc.Tags,
		})
	}
	if len(ids) > 0 {
		clauses = append(clauses, SearchClause{
			Type:   "in",
			Bool:   "must",
			Fields: []string{systemObjectIDField},
			In:     ids,
		})
	}

	return ExportDefinition{Export: ExportBody{
		Version: 1,
		Type:    "export",
		Search: ExportSearch{
			Search:      clauses,
			Format:      "long",
			ObjectTypes: desc.ObjectTypes,
		},
		Classes:             map[string]any{},
		Assets:              map[string]any{},
		Name:                desc.Name,
		XML:                 true,
		XMLOneFilePerObject: true,
		MergeLinkedObjects:  "none",
		MergeMaxDepth:       1,
		Mapping:             "easydb",
		BatchSize:           defaultBatchSize,
		EASFields:           map[string]any{},
		ProduceOptions: ProduceOptions{
			AddLinkedData: true,
			Plugin:        "easydb",
		},
	}}
}

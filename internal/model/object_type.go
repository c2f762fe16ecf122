package model

// ObjectType is a logical record category in the collections system.
// Each maps to one or more remote objecttypes plus the tag and pool
// scoping used by the ETL exports.
type ObjectType string

const (
	ObjectTypePerson                   ObjectType = "person"
	ObjectTypeGroup                    ObjectType = "group"
	ObjectTypeArchitecturalCompetition ObjectType = "architectural_competition"
	ObjectTypeArchivalObject           ObjectType = "archival_object"
	ObjectTypeBibliographicItem        ObjectType = "bibliographic_item"
	ObjectTypeDigitalObject            ObjectType = "digital_object"
	ObjectTypeOeuvre                   ObjectType = "oeuvre"
	ObjectTypeBuiltWork                ObjectType = "built_work"
	ObjectTypeProject                  ObjectType = "project"
	ObjectTypePlace                    ObjectType = "place"
)

// approvedTag marks archival units cleared for publication.
const approvedTag = 207

// Descriptor carries everything needed to build a search for one
// object type: export name, tag filter, remote objecttypes and pool
// scoping. Nil Tags or PoolIDs means "no filter of that kind".
type Descriptor struct {
	Name          string
	Tags          []int64
	ObjectTypes   []string
	PoolFields    []string
	PoolIDs       []int64
	SamplePoolIDs []int64
}

// Pools returns the pool IDs effective for a run. Sample runs are
// scoped to the dedicated test pools.
func (d Descriptor) Pools(sample bool) []int64 {
	if sample {
		return d.SamplePoolIDs
	}
	return d.PoolIDs
}

var descriptors = map[ObjectType]Descriptor{
	ObjectTypePerson: {
		Name:          "ETL Process Person [Production]",
		Tags:          []int64{88},
		ObjectTypes:   []string{"act_grpm_0103"},
		PoolFields:    []string{"act_grpm_0103._pool.pool._id"},
		PoolIDs:       []int64{85, 108},
		SamplePoolIDs: []int64{124},
	},
	ObjectTypeGroup: {
		Name:          "ETL Process Group [Production]",
		Tags:          []int64{89, 90},
		ObjectTypes:   []string{"act_grpm_0103"},
		PoolFields:    []string{"act_grpm_0103._pool.pool._id"},
		PoolIDs:       []int64{85, 108},
		SamplePoolIDs: []int64{124},
	},
	ObjectTypeArchitecturalCompetition: {
		Name:        "ETL Process Architectural Competition [Production]",
		ObjectTypes: []string{"ac"},
		PoolFields:  []string{"ac._pool.pool._id"},
	},
	ObjectTypeArchivalObject: {
		Name:          "ETL Process Archival Unit [Production]",
		Tags:          []int64{approvedTag},
		ObjectTypes:   []string{"au_grpm_16"},
		PoolFields:    []string{"au_grpm_16._pool.pool._id"},
		PoolIDs:       []int64{17, 127},
		SamplePoolIDs: []int64{122},
	},
	ObjectTypeBibliographicItem: {
		Name:          "ETL Process Bibliographic Item [Production]",
		ObjectTypes:   []string{"bi_grpm_08"},
		PoolFields:    []string{"bi_grpm_08._pool.pool._id"},
		PoolIDs:       []int64{92},
		SamplePoolIDs: []int64{119},
	},
	ObjectTypeDigitalObject: {
		Name:          "ETL Process Digital Object [Production]",
		ObjectTypes:   []string{"do_grpm_06"},
		PoolFields:    []string{"do_grpm_06._pool.pool._id"},
		PoolIDs:       []int64{26, 59},
		SamplePoolIDs: []int64{125},
	},
	ObjectTypeOeuvre: {
		Name:          "ETL Process Oeuvre [Production]",
		Tags:          []int64{91},
		ObjectTypes:   []string{"oeu"},
		PoolFields:    []string{"oeu._pool.pool._id"},
		PoolIDs:       []int64{92},
		SamplePoolIDs: []int64{119},
	},
	ObjectTypeBuiltWork: {
		Name:          "ETL Process Built Work [Production]",
		Tags:          []int64{92},
		ObjectTypes:   []string{"oeu"},
		PoolFields:    []string{"oeu._pool.pool._id"},
		PoolIDs:       []int64{92},
		SamplePoolIDs: []int64{119},
	},
	ObjectTypeProject: {
		Name:          "ETL Process Architectural Project [Production]",
		Tags:          []int64{93},
		ObjectTypes:   []string{"oeu"},
		PoolFields:    []string{"oeu._pool.pool._id"},
		PoolIDs:       []int64{92},
		SamplePoolIDs: []int64{119},
	},
	ObjectTypePlace: {
		Name:          "ETL Process Place [Production]",
		ObjectTypes:   []string{"pl_grpm_05"},
		PoolFields:    []string{"pl_grpm_05._pool.pool._id"},
		SamplePoolIDs: []int64{128},
	},
}

// Lookup resolves an object type to its export descriptor.
func Lookup(t ObjectType) (Descriptor, bool) {
	d, ok := descriptors[t]
	return d, ok
}

// ObjectTypes lists every supported object type, for CLI validation
// messages.
func ObjectTypes() []ObjectType {
	out := make([]ObjectType, 0, len(descriptors))
	for t := range descriptors {
		out = append(out, t)
	}
	return out
}

// Package resolver turns a logical export target into the bounded
// chunks of system object IDs an export job can handle.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/archive-tools/easydb-exporter/internal/easydb"
	"github.com/archive-tools/easydb-exporter/internal/model"
)

// Searcher is the slice of the catalog client the resolver needs.
type Searcher interface {
	Search(ctx context.Context, sr easydb.SearchRequest) (easydb.SearchResponse, error)
}

// Chunk is one bounded subset of object IDs, processed as a single
// export job. A chunk with no IDs is the unbounded sentinel: the
// remote system's own filters define the job.
type Chunk struct {
	IDs []int64
}

// Bounded reports whether the chunk carries an explicit ID subset.
func (c Chunk) Bounded() bool { return len(c.IDs) > 0 }

type Resolver struct {
	client    Searcher
	pageSize  int
	chunkSize int
}

func New(client Searcher, pageSize, chunkSize int) *Resolver {
	if pageSize <= 0 {
		pageSize = 1000
	}
	if chunkSize <= 0 {
		chunkSize = 30000
	}
	return &Resolver{client: client, pageSize: pageSize, chunkSize: chunkSize}
}

// Resolve builds the chunk list for a descriptor. Targets without
// pool scoping skip pagination entirely and export in one unbounded
// job.
func (r *Resolver) Resolve(ctx context.Context, desc model.Descriptor, sample bool) ([]Chunk, error) {
	pools := desc.Pools(sample)
	if len(pools) == 0 {
		return []Chunk{{}}, nil
	}

	ids, err := r.collectIDs(ctx, desc, pools)
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, 0, len(ids)/r.chunkSize+1)
	for start := 0; start < len(ids); start += r.chunkSize {
		end := min(start+r.chunkSize, len(ids))
		chunks = append(chunks, Chunk{IDs: ids[start:end]})
	}
	if len(chunks) == 0 {
		chunks = []Chunk{{}}
	}

	slog.Info("easydb_exporter.resolver.resolved",
		slog.Int("objects", len(ids)),
		slog.Int("chunks", len(chunks)))
	return chunks, nil
}

// collectIDs pages through the pool-scoped search until a short page.
// The API does not reliably expose a total count, so the short page
// is the only end-of-results sentinel.
func (r *Resolver) collectIDs(ctx context.Context, desc model.Descriptor, pools []int64) ([]int64, error) {
	clauses := []easydb.SearchClause{
		{Type: "in", Bool: "must", Fields: []string{"_objecttype"}, In: desc.ObjectTypes},
		{Type: "in", Bool: "should", Fields: desc.PoolFields, In: pools},
	}
	if len(desc.Tags) > 0 {
		clauses = append(clauses, easydb.SearchClause{
			Type: "in", Bool: "must", Fields: []string{"_tags._id"}, In: desc.Tags,
		})
	}

	var ids []int64
	for offset := 0; ; offset += r.pageSize {
		resp, err := r.client.Search(ctx, easydb.SearchRequest{
			Type:        "object",
			Format:      "standard",
			ObjectTypes: desc.ObjectTypes,
			Search:      clauses,
			Limit:       r.pageSize,
			Offset:      offset,
		})
		if err != nil {
			return nil, fmt.Errorf("page at offset %d: %w", offset, err)
		}
		for _, ob := range resp.Objects {
			ids = append(ids, ob.SystemObjectID)
		}
		if len(resp.Objects) < r.pageSize {
			break
		}
	}
	return ids, nil
}

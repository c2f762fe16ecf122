// Package export drives remote export jobs to completion: one job per
// chunk, create → start → poll → download → delete, with per-chunk
// error isolation and checkpoint bookkeeping.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/archive-tools/easydb-exporter/config"
	"github.com/archive-tools/easydb-exporter/internal/checkpoint"
	"github.com/archive-tools/easydb-exporter/internal/easydb"
	"github.com/archive-tools/easydb-exporter/internal/model"
	"github.com/archive-tools/easydb-exporter/internal/resolver"
)

// ErrExportFailed marks a job the server moved to the failed state, or
// one that matched no records. The chunk is skipped; siblings run.
var ErrExportFailed = errors.New("export job failed")

// maxPollFailures bounds consecutive poll errors before a chunk is
// given up on. The poll loop itself has no timeout: job duration is
// server-bound and unpredictable.
const maxPollFailures = 5

// CatalogClient is the slice of the easydb client the orchestrator
// drives.
type CatalogClient interface {
	Search(ctx context.Context, sr easydb.SearchRequest) (easydb.SearchResponse, error)
	PurgeExports(ctx context.Context) (int, error)
	CreateExport(ctx context.Context, def easydb.ExportDefinition) (int64, error)
	StartExport(ctx context.Context, id int64) error
	ExportState(ctx context.Context, id int64) (model.ExportState, error)
	DownloadExport(ctx context.Context, id int64) ([]byte, error)
	DeleteExport(ctx context.Context, id int64) error
}

// ChunkResolver builds the chunk list for a descriptor.
type ChunkResolver interface {
	Resolve(ctx context.Context, desc model.Descriptor, sample bool) ([]resolver.Chunk, error)
}

type Orchestrator struct {
	client   CatalogClient
	store    *checkpoint.Store
	resolver ChunkResolver
	cfg      *config.ExportConfig

	// dir is the module output directory, {base_folder}/{module}.
	dir string
}

func NewOrchestrator(client CatalogClient, store *checkpoint.Store, res ChunkResolver, cfg *config.ExportConfig, dir string) *Orchestrator {
	return &Orchestrator{client: client, store: store, resolver: res, cfg: cfg, dir: dir}
}

// Run exports one object type. The module checkpoint advances to the
// time sampled here, and only after every chunk was attempted; an
// abort leaves it untouched so the next invocation re-covers the same
// window.
func (o *Orchestrator) Run(ctx context.Context, objectType model.ObjectType) error {
	desc, ok := model.Lookup(objectType)
	if !ok {
		return fmt.Errorf("unsupported object type %q (known: %v)", objectType, model.ObjectTypes())
	}

	runStarted := time.Now().UTC()
	sample := o.cfg.DownloadWhat == config.DownloadSample

	if o.cfg.DownloadWhat == config.DownloadUpdate {
		if skip := o.upToDate(ctx, desc); skip {
			slog.Info("easydb_exporter.export.no_updates", slog.String("module", string(objectType)))
			o.store.SetModuleLastUpdated(runStarted)
			return o.store.Flush()
		}
	}

	chunks, err := o.resolver.Resolve(ctx, desc, sample)
	if err != nil {
		return fmt.Errorf("resolve object set: %w", err)
	}

	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var failed int
	for i, chunk := range chunks {
		if err := o.runChunk(ctx, desc, sample, chunk); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failed++
			slog.Error("easydb_exporter.export.chunk_failed",
				slog.Int("chunk", i+1),
				slog.Int("of", len(chunks)),
				slog.String("module", string(objectType)),
				slog.String("error", err.Error()))
			continue
		}
		slog.Info("easydb_exporter.export.chunk_done",
			slog.Int("chunk", i+1),
			slog.Int("of", len(chunks)),
			slog.String("module", string(objectType)))
	}

	o.store.SetModuleLastUpdated(runStarted)
	if err := o.store.Flush(); err != nil {
		return fmt.Errorf("flush checkpoint: %w", err)
	}

	if failed > 0 {
		slog.Warn("easydb_exporter.export.run_finished_with_failures",
			slog.Int("failed_chunks", failed), slog.Int("chunks", len(chunks)))
	}
	return nil
}

// runChunk drives one chunk through the job state machine. The remote
// export is deleted on every path out of here, success or failure, so
// crashed runs cannot accumulate server-side export objects.
func (o *Orchestrator) runChunk(ctx context.Context, desc model.Descriptor, sample bool, chunk resolver.Chunk) error {
	// Leftovers of a crashed prior run would make the create step
	// collide; purging first keeps it idempotent.
	if purged, err := o.client.PurgeExports(ctx); err != nil {
		return fmt.Errorf("purge stale exports: %w", err)
	} else if purged > 0 {
		slog.Info("easydb_exporter.export.stale_exports_purged", slog.Int("count", purged))
	}

	def := easydb.NewExportDefinition(desc, sample, chunk.IDs)
	id, err := o.client.CreateExport(ctx, def)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	defer func() {
		if err := o.client.DeleteExport(context.WithoutCancel(ctx), id); err != nil {
			slog.Warn("easydb_exporter.export.delete_failed",
				slog.Int64("export_id", id), slog.String("error", err.Error()))
		}
	}()

	if err := o.client.StartExport(ctx, id); err != nil {
		return fmt.Errorf("start export %d: %w", id, err)
	}

	state, err := o.awaitExport(ctx, id)
	if err != nil {
		return err
	}
	if state != model.ExportStateDone {
		return fmt.Errorf("export %d: %w", id, ErrExportFailed)
	}

	raw, err := o.client.DownloadExport(ctx, id)
	if err != nil {
		return fmt.Errorf("download export %d: %w", id, err)
	}

	written, err := o.unpack(raw)
	if err != nil {
		return fmt.Errorf("unpack export %d: %w", id, err)
	}
	slog.Info("easydb_exporter.export.files_written",
		slog.Int64("export_id", id), slog.Int("files", written), slog.String("dir", o.dir))

	// One flush per chunk; per-file records were staged during unpack.
	return o.store.Flush()
}

// awaitExport polls until a terminal state. Transient poll errors are
// retried in place up to maxPollFailures in a row.
func (o *Orchestrator) awaitExport(ctx context.Context, id int64) (model.ExportState, error) {
	interval := o.cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	var misses int
	for {
		state, err := o.client.ExportState(ctx, id)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			misses++
			if misses >= maxPollFailures {
				return "", fmt.Errorf("poll export %d: %w", id, err)
			}
			slog.Warn("easydb_exporter.export.poll_error",
				slog.Int64("export_id", id),
				slog.Int("attempt", misses),
				slog.String("error", err.Error()))
		case state.Terminal():
			return state, nil
		default:
			misses = 0
			slog.Debug("easydb_exporter.export.state",
				slog.Int64("export_id", id), slog.String("state", string(state)))
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}
}

// upToDate asks the server for the newest _last_modified and compares
// it, parsed, against the module checkpoint. Check failures fall back
// to a full export pass rather than skipping work.
func (o *Orchestrator) upToDate(ctx context.Context, desc model.Descriptor) bool {
	last, ok := o.store.ModuleLastUpdated()
	if !ok {
		return false
	}
	lastT, err := checkpoint.ParseTime(last)
	if err != nil {
		slog.Warn("easydb_exporter.export.bad_checkpoint_timestamp", slog.String("value", last))
		return false
	}

	resp, err := o.client.Search(ctx, easydb.SearchRequest{
		Format:      "standard",
		Type:        "object",
		Tags:        desc.Tags,
		ObjectTypes: desc.ObjectTypes,
		Language:    "de-DE",
		Limit:       1,
		Sort:        []easydb.SearchSort{{Field: "_last_modified", Order: "DESC"}},
	})
	if err != nil {
		slog.Warn("easydb_exporter.export.update_check_failed", slog.String("error", err.Error()))
		return false
	}
	if len(resp.Objects) == 0 {
		return true
	}
	serverT, err := checkpoint.ParseTime(resp.Objects[0].LastModified)
	if err != nil {
		slog.Warn("easydb_exporter.export.bad_server_timestamp",
			slog.String("value", resp.Objects[0].LastModified))
		return false
	}
	return !serverT.After(lastT)
}

// Package assets materializes the binary assets referenced by
// exported records. Runs are idempotent against the checkpoint, so a
// repeated run only does new work.
package assets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/archive-tools/easydb-exporter/config"
	"github.com/archive-tools/easydb-exporter/internal/checkpoint"
	"github.com/archive-tools/easydb-exporter/internal/model"
)

// Some asset hosts reject unadorned Go user agents.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X x.y; rv:42.0) Gecko/20100101 Firefox/42.0"

// Summary is the outcome of one pipeline run. Failed tasks were
// logged with enough context to be retried manually; none of them
// aborted the batch.
type Summary struct {
	Done    int
	Skipped int
	Failed  int
}

type Pipeline struct {
	store *checkpoint.Store
	http  *http.Client
	cfg   *config.AssetsConfig

	imagesDir string
	pdfDir    string
	images    *Manifest
	pdfs      *Manifest
}

// NewPipeline prepares the output directories and per-kind manifests.
// httpClient nil gets a default with redirects followed.
func NewPipeline(store *checkpoint.Store, httpClient *http.Client, cfg *config.AssetsConfig) (*Pipeline, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}

	imagesDir := filepath.Join(cfg.AssetsFolder, "images")
	pdfDir := filepath.Join(cfg.AssetsFolder, "pdfs")
	for _, dir := range []string{imagesDir, pdfDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create assets dir: %w", err)
		}
	}

	ts := time.Now().UTC().Format("2006_01_02__15_04_05")
	images, err := NewManifest(filepath.Join(cfg.DataFolder, fmt.Sprintf("to_db_%s.csv", ts)))
	if err != nil {
		return nil, fmt.Errorf("create image manifest: %w", err)
	}
	pdfs, err := NewManifest(filepath.Join(cfg.DataFolder, fmt.Sprintf("to_db_pdf_%s.csv", ts)))
	if err != nil {
		images.Close()
		return nil, fmt.Errorf("create pdf manifest: %w", err)
	}

	return &Pipeline{
		store:     store,
		http:      httpClient,
		cfg:       cfg,
		imagesDir: imagesDir,
		pdfDir:    pdfDir,
		images:    images,
		pdfs:      pdfs,
	}, nil
}

// Close flushes and closes the manifests.
func (p *Pipeline) Close() error {
	err := p.images.Close()
	if err2 := p.pdfs.Close(); err == nil {
		err = err2
	}
	return err
}

// Run processes every task, bounded by the configured worker count
// (1 keeps strictly sequential behavior). Individual failures never
// abort the batch.
func (p *Pipeline) Run(ctx context.Context, tasks []model.AssetTask) Summary {
	var (
		mu  sync.Mutex
		sum Summary
	)

	workers := p.cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			done, skipped := p.process(ctx, task)
			mu.Lock()
			switch {
			case done:
				sum.Done++
			case skipped:
				sum.Skipped++
			default:
				sum.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("easydb_exporter.assets.run_finished",
		slog.Int("done", sum.Done),
		slog.Int("skipped", sum.Skipped),
		slog.Int("failed", sum.Failed))
	return sum
}

func (p *Pipeline) process(ctx context.Context, task model.AssetTask) (done, skipped bool) {
	switch task.Kind {
	case model.AssetKindImage:
		if !acceptedImageURL(task.SourceURL) {
			slog.Warn("easydb_exporter.assets.not_an_image",
				slog.String("record", task.RecordID), slog.String("url", task.SourceURL))
			return false, false
		}
	case model.AssetKindPDF:
		if !strings.HasSuffix(strings.TrimSpace(strings.ToLower(task.SourceURL)), ".pdf") {
			slog.Warn("easydb_exporter.assets.not_a_pdf",
				slog.String("record", task.RecordID), slog.String("url", task.SourceURL))
			return false, false
		}
	}

	// Idempotence gate: an unchanged URL is assumed to reference
	// unchanged content.
	if task.SourceURL == p.store.LatestDownloadURL(task.XMLFilename, task.Kind) {
		slog.Debug("easydb_exporter.assets.already_downloaded",
			slog.String("record", task.RecordID), slog.String("url", task.SourceURL))
		return false, true
	}

	body, err := p.fetch(ctx, task)
	if err != nil {
		slog.Error("easydb_exporter.assets.fetch_failed",
			slog.String("record", task.RecordID),
			slog.String("url", task.SourceURL),
			slog.String("kind", string(task.Kind)),
			slog.String("error", err.Error()))
		return false, false
	}

	outputPath, err := p.persist(task, body)
	if err != nil {
		slog.Error("easydb_exporter.assets.persist_failed",
			slog.String("record", task.RecordID),
			slog.String("url", task.SourceURL),
			slog.String("error", err.Error()))
		return false, false
	}

	manifest := p.images
	if task.Kind == model.AssetKindPDF {
		manifest = p.pdfs
	}
	if err := manifest.Append(filepath.Base(outputPath), outputPath); err != nil {
		slog.Error("easydb_exporter.assets.manifest_write_failed",
			slog.String("record", task.RecordID), slog.String("error", err.Error()))
		return false, false
	}

	p.store.SetLatestDownloadURL(task.XMLFilename, task.Kind, task.SourceURL)
	if err := p.store.Flush(); err != nil {
		slog.Error("easydb_exporter.assets.checkpoint_flush_failed",
			slog.String("error", err.Error()))
	}
	return true, false
}

// fetch GETs the asset, following redirects, and validates the
// content type for the task's kind. Wrong content (interstitial HTML,
// rate-limit pages) is retried after a fixed sleep up to the attempt
// ceiling.
func (p *Pipeline) fetch(ctx context.Context, task model.AssetTask) ([]byte, error) {
	want := "image"
	if task.Kind == model.AssetKindPDF {
		want = "application/pdf"
	}

	maxRetries := p.cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	sleep := p.cfg.RetrySleep
	if sleep <= 0 {
		sleep = time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(sleep):
			}
		}

		body, err := p.get(ctx, task.SourceURL, want)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%d attempts: %w", maxRetries, lastErr)
}

func (p *Pipeline) get(ctx context.Context, url, wantType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, wantType) {
		return nil, fmt.Errorf("unexpected content type %q", ct)
	}
	return io.ReadAll(resp.Body)
}

// persist writes the validated body: images re-encoded to TIFF, PDFs
// byte for byte.
func (p *Pipeline) persist(task model.AssetTask, body []byte) (string, error) {
	if task.Kind == model.AssetKindPDF {
		outputPath := filepath.Join(p.pdfDir, p.cfg.OutputPrefix+task.RecordID+".pdf")
		if err := os.WriteFile(outputPath, body, 0o644); err != nil {
			return "", err
		}
		return outputPath, nil
	}

	img, err := decodeImage(body, task.SourceURL)
	if err != nil {
		return "", err
	}
	outputPath := filepath.Join(p.imagesDir, p.cfg.OutputPrefix+task.RecordID+".tif")
	if err := saveTIFF(img, outputPath); err != nil {
		return "", fmt.Errorf("encode tiff: %w", err)
	}
	return outputPath, nil
}

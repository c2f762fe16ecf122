// Package app wires the exporter's components per run mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	cfg "github.com/archive-tools/easydb-exporter/config"
	"github.com/archive-tools/easydb-exporter/internal/assets"
	"github.com/archive-tools/easydb-exporter/internal/checkpoint"
	"github.com/archive-tools/easydb-exporter/internal/easydb"
	"github.com/archive-tools/easydb-exporter/internal/export"
	"github.com/archive-tools/easydb-exporter/internal/model"
	"github.com/archive-tools/easydb-exporter/internal/resolver"
)

type App struct {
	Config *cfg.AppConfig
}

func New(config *cfg.AppConfig) *App {
	return &App{Config: config}
}

// RunExport opens and authenticates a session, then drives the export
// orchestrator for the configured module. Session and authentication
// failures are fatal: there is no partial progress without them.
func (a *App) RunExport(ctx context.Context) error {
	client := easydb.NewClient(nil)

	if err := client.Open(ctx, a.Config.EasyDB.Server); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	if err := client.Authenticate(ctx, a.Config.EasyDB.Login, a.Config.EasyDB.Password); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	defer func() {
		if err := client.Deauthenticate(context.WithoutCancel(ctx)); err != nil {
			slog.Debug("easydb_exporter.app.deauthenticate_failed", slog.String("error", err.Error()))
		}
	}()

	store, err := checkpoint.Open(a.Config.Export.BaseFolder)
	if err != nil {
		return fmt.Errorf("open checkpoint: %w", err)
	}

	res := resolver.New(client, a.Config.Export.PageSize, a.Config.Export.ChunkSize)
	dir := filepath.Join(a.Config.Export.BaseFolder, a.Config.Export.Module)
	orch := export.NewOrchestrator(client, store, res, a.Config.Export, dir)

	return orch.Run(ctx, model.ObjectType(a.Config.Export.Module))
}

// RunAssets reads the extraction CSV and runs the asset pipeline
// against the checkpoint in the source folder.
func (a *App) RunAssets(ctx context.Context) error {
	store, err := checkpoint.Open(a.Config.Assets.SourceFolder)
	if err != nil {
		return fmt.Errorf("open checkpoint: %w", err)
	}

	inputPath := a.Config.Assets.InputFile
	if !filepath.IsAbs(inputPath) {
		inputPath = filepath.Join(a.Config.Assets.DataFolder, inputPath)
	}
	tasks, err := assets.ReadTasks(inputPath, a.Config.Assets.Offset, a.Config.Assets.Limit)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	slog.Info("easydb_exporter.app.assets_input_loaded",
		slog.String("file", inputPath), slog.Int("tasks", len(tasks)))

	pipeline, err := assets.NewPipeline(store, nil, a.Config.Assets)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	pipeline.Run(ctx, tasks)
	return ctx.Err()
}

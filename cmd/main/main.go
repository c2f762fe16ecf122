package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	conf "github.com/archive-tools/easydb-exporter/config"
	"github.com/archive-tools/easydb-exporter/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Local .env keeps credentials out of flags; absence is fine.
	_ = godotenv.Load()

	config, err := conf.LoadConfig()
	if err != nil {
		slog.Error("easydb_exporter.main.configuration_error", slog.String("error", err.Error()))
		return 1
	}

	setupLogger(config.Log.Level)

	mode := pflag.Arg(0)
	if mode == "" {
		slog.Error("easydb_exporter.main.missing_mode",
			slog.String("usage", "easydb-exporter <export|assets> [flags]"))
		return 1
	}
	if err := config.Validate(mode); err != nil {
		slog.Error("easydb_exporter.main.configuration_error", slog.String("error", err.Error()))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(config)

	slog.Info("easydb_exporter.main.starting", slog.String("mode", mode))
	switch mode {
	case conf.ModeExport:
		err = application.RunExport(ctx)
	case conf.ModeAssets:
		err = application.RunAssets(ctx)
	}
	if err != nil {
		slog.Error("easydb_exporter.main.run_failed", slog.String("error", err.Error()))
		return 1
	}

	slog.Info("easydb_exporter.main.finished", slog.String("mode", mode))
	return 0
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/apcclean/internal/config"
	"github.com/JonMunkholm/apcclean/internal/core"
	"github.com/JonMunkholm/apcclean/internal/core/tables"
	"github.com/JonMunkholm/apcclean/internal/logging"
	"github.com/JonMunkholm/apcclean/internal/store"
	"github.com/JonMunkholm/apcclean/internal/web"
)

func main() {
	// Variables already in the environment win over .env
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"encoding", cfg.Clean.Encoding,
		"max_concurrent", cfg.Clean.MaxConcurrent,
		"export_enabled", cfg.Database.ExportEnabled(),
	)

	names, err := tables.LoadNormalizer(cfg.Clean.SynonymsFile)
	if err != nil {
		slog.Error("failed to load synonyms", "error", err)
		os.Exit(1)
	}
	slog.Info("synonyms loaded", "count", names.Len(), "file", cfg.Clean.SynonymsFile)

	deps := web.Deps{
		Names:   names,
		Limiter: core.NewJobLimiter(cfg.Clean.MaxConcurrent, cfg.Clean.MaxWaitTime),
	}

	if cfg.Database.ExportEnabled() {
		pool, err := store.Open(context.Background(), cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		slog.Info("connected to database",
			"name", store.DatabaseName(cfg.Database.URL),
			"export_table", cfg.Database.ExportTable,
		)
		deps.Exporter = store.NewExporter(pool)
	}

	server := web.NewServer(cfg, deps)

	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
}

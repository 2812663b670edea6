package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/xesinsight/internal/api"
	"github.com/gyaneshwarpardhi/xesinsight/internal/config"
	"github.com/gyaneshwarpardhi/xesinsight/internal/engine"
)

func main() {
	cfgPath := flag.String("config", "configs/server.yaml", "Path to service YAML config")
	envPath := flag.String("env", ".env", "Optional KEY=VALUE file loaded into the environment")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	if err := config.LoadDotEnv(*envPath); err != nil {
		slog.Error("failed to load env file", "err", err)
		os.Exit(1)
	}
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.New(ctx, cfg.Engine, engine.OptionsFrom(cfg.Analysis))
	slog.Info("engine started", "workers", cfg.Engine.Workers, "queue_depth", cfg.Engine.QueueDepth,
		"trace_policy", cfg.Analysis.TracePolicy)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	// Worker count and listen address need a restart; analysis options and
	// upload limits apply to the next request.
	loader.OnChange(func(newCfg *config.ServiceConfig) {
		eng.SwapOptions(engine.OptionsFrom(newCfg.Analysis))
		slog.Info("config hot-reloaded", "trace_policy", newCfg.Analysis.TracePolicy,
			"max_upload_mb", newCfg.Server.MaxUploadMB)
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(eng, loader)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: time.Duration(cfg.Engine.TimeoutMs)*time.Millisecond + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	eng.Shutdown()
	cancel()
	slog.Info("goodbye")
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Kajalmeshram11/workflow-engine/internal/engine"
	"github.com/Kajalmeshram11/workflow-engine/internal/expressions"
	"github.com/Kajalmeshram11/workflow-engine/internal/logging"
	"github.com/Kajalmeshram11/workflow-engine/internal/scheduler"
	"github.com/Kajalmeshram11/workflow-engine/internal/server"
	"github.com/Kajalmeshram11/workflow-engine/internal/store"
	"github.com/Kajalmeshram11/workflow-engine/internal/streaming"
	"github.com/Kajalmeshram11/workflow-engine/internal/tools"
	"github.com/Kajalmeshram11/workflow-engine/internal/validation"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := loadConfig()

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return err
	}

	st, err := store.NewLibSQLStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := st.Migrate(ctx); err != nil {
		return err
	}

	registry := tools.NewRegistry()
	for _, t := range tools.CodeReviewTools() {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	if err := registry.Register(tools.ExprTool()); err != nil {
		return err
	}
	if err := registry.Register(tools.JQTool()); err != nil {
		return err
	}

	celEngine, err := expressions.NewCELEngine()
	if err != nil {
		return err
	}
	evaluator := engine.NewEvaluator(celEngine, logger)

	validator, err := validation.NewGraphValidator(registry)
	if err != nil {
		return err
	}

	hub := streaming.NewMemoryHub()
	svc := engine.NewService(st, validator, registry, hub, evaluator, logger)
	pool := engine.NewRunPool(cfg.PoolSize)

	sched := scheduler.NewScheduler(st, svc, logger)
	if cfg.Scheduler {
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	api := server.NewServer(server.Deps{
		Service:       svc,
		Store:         st,
		Hub:           hub,
		Scheduler:     sched,
		Pool:          pool,
		Logger:        logger,
		MaxIterations: cfg.MaxIterations,
	})

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}

	pool.Shutdown()
	pool.Wait()
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	inner := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(inner))
}

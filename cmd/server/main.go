package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"

	"github.com/atlekbai/query_lowering/internal/config"
	"github.com/atlekbai/query_lowering/internal/db"
	"github.com/atlekbai/query_lowering/internal/lower"
	"github.com/atlekbai/query_lowering/internal/middleware"
	"github.com/atlekbai/query_lowering/internal/schema"
	"github.com/atlekbai/query_lowering/internal/server"
	"github.com/atlekbai/query_lowering/internal/service"
)

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))

	cache := schema.NewCache()
	if cfg.AttributeTypesFile != "" {
		if err := cache.LoadFile(cfg.AttributeTypesFile); err != nil {
			fatal("failed to load attribute types", err)
		}
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			fatal("failed to connect to database", err)
		}
		err = cache.Load(ctx, pool)
		pool.Close()
		if err != nil {
			fatal("failed to load attribute types", err)
		}
	}
	slog.Info("attribute types loaded", "attributes", cache.AttributeCount())

	defaults := service.Defaults{
		Limit:             cfg.DefaultLimit,
		Offset:            cfg.DefaultOffset,
		ExtrapolationMode: lower.ExtrapolationMode(cfg.ExtrapolationMode),
		BatchConcurrency:  cfg.BatchConcurrency,
		ExplainTable:      cfg.ExplainTable,
	}
	probe := lower.Settings{
		DefaultLimit:      defaults.Limit,
		DefaultOffset:     defaults.Offset,
		ExtrapolationMode: defaults.ExtrapolationMode,
	}
	if err := probe.Validate(); err != nil {
		fatal("invalid lowering defaults", err)
	}

	interceptors := []connect.Interceptor{
		server.LoggingInterceptor(),
	}

	services := []server.ConnectService{
		service.NewLoweringService(cache, defaults),
	}

	mux := http.NewServeMux()
	server.Mount(mux, services, interceptors...)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: middleware.Chain(mux, middleware.Recovery, middleware.Logging),
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		srv.Shutdown(context.Background())
	}()

	slog.Info("listening", "addr", cfg.Addr())
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		fatal("server error", err)
	}
}

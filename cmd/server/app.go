package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/PaulBabatuyi/files-manager/internal/config"
	"github.com/PaulBabatuyi/files-manager/internal/database"
	"github.com/PaulBabatuyi/files-manager/internal/observability"
	"github.com/PaulBabatuyi/files-manager/internal/tokens"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// app holds what every subcommand needs. close releases it in reverse order.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *database.PostgresDB
	tp     *trace.TracerProvider
}

func bootstrap(ctx context.Context, envFile, component string) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	logger, err := observability.InitLogger(cfg.LogDev, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(zap.String("component", component))

	a := &app{cfg: cfg, logger: logger}
	if cfg.TracingEnabled {
		a.tp, err = observability.InitTracerProvider(ctx, "files-manager-"+component, logger)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	a.db, err = database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	observability.ShutdownTracerProvider(ctx, a.tp, a.logger)
	_ = a.logger.Sync()
}

func (a *app) metricsPort() string {
	return strconv.Itoa(a.cfg.MetricsPort)
}

// tokenStore builds the configured token backend.
func (a *app) tokenStore(ctx context.Context) (tokens.Store, func(), error) {
	if a.cfg.TokenBackend == config.TokenBackendMemory {
		a.logger.Warn("using in-process token store; sessions are lost on restart")
		return tokens.NewMemoryStore(a.cfg.TokenTTL()), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		// /status reports the outage; requests with tokens fail until it recovers.
		a.logger.Warn("redis not reachable at startup", zap.String("addr", a.cfg.RedisAddr), zap.Error(err))
	}
	return tokens.NewRedisStore(client, a.cfg.TokenTTL()), func() { _ = client.Close() }, nil
}

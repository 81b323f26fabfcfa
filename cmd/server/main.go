// Package main wires the wrap registry: configuration, storage, the
// authorization gate, the event pipeline, and the HTTP surface. All
// domain behavior lives in the internal packages; main only connects
// them and owns the process lifecycle.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"wrapregistry/internal/events"
	jwttoken "wrapregistry/internal/jwt_token"
	"wrapregistry/internal/platform/config"
	"wrapregistry/internal/platform/httpserver"
	"wrapregistry/internal/platform/kafka"
	"wrapregistry/internal/platform/logger"
	"wrapregistry/internal/platform/metrics"
	"wrapregistry/internal/platform/postgres"
	"wrapregistry/internal/platform/redis"
	"wrapregistry/internal/registry/authz"
	registrymetrics "wrapregistry/internal/registry/metrics"
	"wrapregistry/internal/registry/service"
	"wrapregistry/internal/registry/store"
	httptransport "wrapregistry/internal/transport/http"
	id "wrapregistry/pkg/domain"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("wrap registry exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	instance, err := id.ParseInstanceID(cfg.InstanceID)
	if err != nil {
		return fmt.Errorf("instance id: %w", err)
	}
	mode, err := authz.ParseMode(cfg.AuthMode)
	if err != nil {
		return err
	}

	// Storage: PostgreSQL when configured, in-memory otherwise.
	var st store.Store
	pg, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	if pg != nil {
		defer pg.Close()
		if err := store.EnsureSchema(ctx, pg.DB); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		st = store.NewPostgres(pg.DB, instance)
	} else {
		st = store.NewMemory()
		log.Warn("no database configured, registry state will not survive restarts")
	}

	// Optional Redis read-through cache for immutable wrap records.
	rdb, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		defer rdb.Close()
		st = store.NewCached(st, rdb.Client, instance,
			store.WithCacheLogger(logger.Component(log, "cache")),
		)
	}

	var gate authz.Gate
	switch mode {
	case authz.ModeSignature:
		gate = authz.NewSignatureGate(instance)
	default:
		gate = authz.NewCapabilityGate()
	}

	registry := service.New(st, gate, instance,
		service.WithMetrics(registrymetrics.New()),
		service.WithLogger(logger.Component(log, "registry")),
	)

	// Event sink: Kafka when brokers are configured, the structured
	// log otherwise. Either way mint notifications drain from the same
	// outbox the mint committed into.
	var sink events.Sink
	kcl, err := kafka.New(cfg.KafkaBrokers, cfg.KafkaTopic, "wrapregistry-"+cfg.InstanceID)
	if err != nil {
		return fmt.Errorf("connect kafka: %w", err)
	}
	if kcl != nil {
		defer kcl.Close()
		if err := kcl.EnsureTopic(ctx, 3); err != nil {
			log.Warn("ensure kafka topic failed", "topic", cfg.KafkaTopic, "error", err)
		}
		sink = events.NewKafkaSink(kcl)
	} else {
		sink = events.NewLogSink(logger.Component(log, "events"))
	}

	worker := events.NewWorker(st, sink,
		events.WithInterval(cfg.OutboxInterval),
		events.WithLogger(logger.Component(log, "outbox")),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "wrapregistry", "wrapregistry")

	var health []httptransport.HealthCheck
	if pg != nil {
		health = append(health, httptransport.HealthCheck{Name: "postgres", Check: pg.Health})
	}
	if rdb != nil {
		health = append(health, httptransport.HealthCheck{Name: "redis", Check: rdb.Health})
	}
	if kcl != nil {
		health = append(health, httptransport.HealthCheck{Name: "kafka", Check: kcl.Health})
	}

	handler := httptransport.New(
		registry,
		logger.Component(log, "http"),
		metrics.NewHTTP(),
		jwttoken.NewJWTServiceAdapter(jwtService),
		health...,
	)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	log.Info("starting wrap registry",
		"addr", cfg.Addr,
		"instance", instance,
		"auth_mode", mode,
		"postgres", pg != nil,
		"cache", rdb != nil,
		"kafka", kcl != nil,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(ctx, srv, cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		if err := worker.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	err = g.Wait()

	// Flush staged events so a clean shutdown leaves an empty outbox.
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if derr := worker.Drain(drainCtx); derr != nil {
		log.Warn("final outbox drain failed", "error", derr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("wrap registry stopped")
	return nil
}

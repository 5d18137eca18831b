package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"quotaguard/internal/auth/resolver"
	"quotaguard/internal/platform/config"
	"quotaguard/internal/platform/database"
	"quotaguard/internal/platform/kafka/producer"
	"quotaguard/internal/platform/logger"
	platformredis "quotaguard/internal/platform/redis"
	"quotaguard/internal/quota/enforcer"
	quotahandler "quotaguard/internal/quota/handler"
	quotametrics "quotaguard/internal/quota/metrics"
	"quotaguard/internal/quota/store"
	"quotaguard/internal/security"
	"quotaguard/internal/tenant"
	tenanthandler "quotaguard/internal/tenant/handler"
	"quotaguard/internal/tier"
	httptransport "quotaguard/internal/transport/http"
	"quotaguard/migrations"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	signals := resolver.EnvSignals{
		Environment:      cfg.Environment,
		DeploymentRegion: cfg.DeploymentRegion,
		LocalDevOverride: cfg.LocalDevOverride,
	}

	log.Info("initializing quotaguard",
		"addr", cfg.Addr,
		"environment", signals.Label(),
		"store", cfg.StoreBackend,
	)

	catalog, err := loadCatalog(cfg, log)
	if err != nil {
		log.Error("tier catalog load failed", "error", err)
		os.Exit(1)
	}

	quotaStore, cleanupStore, err := buildStore(cfg)
	if err != nil {
		log.Error("quota store init failed", "error", err)
		os.Exit(1)
	}
	defer cleanupStore()

	sink, cleanupSink := buildSink(cfg, log)
	defer cleanupSink()

	res, err := buildResolver(cfg, signals, sink, log)
	if err != nil {
		log.Error("auth resolver init failed", "error", err)
		os.Exit(1)
	}

	enf, err := enforcer.New(quotaStore, catalog,
		enforcer.WithLogger(log),
		enforcer.WithSecuritySink(sink),
		enforcer.WithMetrics(quotametrics.New()),
		enforcer.WithEnvironment(signals.Label()),
		enforcer.WithStoreTimeout(cfg.StoreTimeout),
	)
	if err != nil {
		log.Error("quota enforcer init failed", "error", err)
		os.Exit(1)
	}

	tenantSvc := tenant.NewService(quotaStore, catalog,
		tenant.WithLogger(log),
		tenant.WithSecuritySink(sink),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Resolver: res,
		Quota:    quotahandler.New(enf, quotaStore, log),
		Tenants:  tenanthandler.New(tenantSvc, log),
		Logger:   log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func loadCatalog(cfg config.Server, log *slog.Logger) (*tier.Catalog, error) {
	if cfg.TierFile == "" {
		return tier.NewCatalog(), nil
	}
	log.Info("loading tier catalog override", "path", cfg.TierFile)
	return tier.LoadCatalog(cfg.TierFile)
}

// quotaStore is the intersection of what the enforcer, the tenant service,
// and the usage endpoint need from a backend.
type quotaStore interface {
	enforcer.Store
	tenant.Store
}

func buildStore(cfg config.Server) (quotaStore, func(), error) {
	noop := func() {}

	switch cfg.StoreBackend {
	case "postgres":
		pool, err := database.New(database.DefaultConfig(cfg.DatabaseURL))
		if err != nil {
			return nil, noop, err
		}
		if pool == nil {
			return nil, noop, errors.New("postgres backend selected but DATABASE_URL is empty")
		}
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := migrations.Apply(migrateCtx, pool.DB()); err != nil {
			_ = pool.Close()
			return nil, noop, err
		}
		stop := recordPoolStats(pool.RecordPoolStats)
		return store.NewPostgres(pool.DB()), func() { stop(); _ = pool.Close() }, nil

	case "redis":
		client, err := platformredis.New(platformredis.DefaultConfig(cfg.RedisAddr))
		if err != nil {
			return nil, noop, err
		}
		if client == nil {
			return nil, noop, errors.New("redis backend selected but REDIS_ADDR is empty")
		}
		stop := recordPoolStats(client.RecordPoolStats)
		return store.NewRedis(client.Client), func() { stop(); _ = client.Close() }, nil

	default:
		return store.NewMemory(), noop, nil
	}
}

// recordPoolStats samples backend pool statistics into Prometheus until the
// returned stop function is called.
func recordPoolStats(record func()) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				record()
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

func buildSink(cfg config.Server, log *slog.Logger) (security.Sink, func()) {
	logSink := security.NewLogSink(log)
	if cfg.KafkaBrokers == "" {
		return logSink, func() {}
	}

	prod, err := producer.New(producer.Config{
		Brokers: cfg.KafkaBrokers,
		Retries: 3,
	}, log)
	if err != nil {
		log.Warn("kafka producer init failed, security events stay log-only", "error", err)
		return logSink, func() {}
	}

	kafkaSink := security.NewKafkaSink(prod, cfg.SecurityTopic, 256, log)
	cleanup := func() {
		kafkaSink.Close()
		_ = prod.Close()
	}
	return security.Fanout{logSink, kafkaSink}, cleanup
}

func buildResolver(cfg config.Server, signals resolver.EnvSignals, sink security.Sink, log *slog.Logger) (*resolver.Resolver, error) {
	var service, federated resolver.TokenVerifier

	if cfg.ServiceTokenKey != "" {
		service = resolver.NewServiceTokenVerifier(cfg.ServiceTokenKey, cfg.ServiceTokenIssuer, cfg.ServiceTokenAudience)
	}
	if cfg.FederatedIssuer != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		verifier, err := resolver.NewFederatedVerifier(ctx, cfg.FederatedIssuer, "")
		if err != nil {
			return nil, err
		}
		federated = verifier
	}

	return resolver.New(signals, service, federated,
		resolver.WithLogger(log),
		resolver.WithSecuritySink(sink),
		resolver.WithMetrics(resolver.NewMetrics()),
	), nil
}

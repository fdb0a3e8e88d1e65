package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"chronicle/internal/audit"
	identityhandler "chronicle/internal/identity/handler"
	identityservice "chronicle/internal/identity/service"
	identitystore "chronicle/internal/identity/store"
	"chronicle/internal/identity/token"
	"chronicle/internal/platform/config"
	"chronicle/internal/platform/database"
	"chronicle/internal/platform/health"
	"chronicle/internal/platform/httpserver"
	"chronicle/internal/platform/logger"
	"chronicle/internal/ratelimit"
	"chronicle/internal/seeder"
	timelinehandler "chronicle/internal/timeline/handler"
	"chronicle/internal/timeline/metrics"
	timelineservice "chronicle/internal/timeline/service"
	timelinestore "chronicle/internal/timeline/store"
	"chronicle/internal/timeline/tracer"
	httptransport "chronicle/internal/transport/http"
	"chronicle/migrations"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing chronicle",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var (
		userStore  identitystore.Store
		eventStore timelineservice.Store
		auditStore audit.Store
	)
	if pool != nil {
		if err := database.Migrate(ctx, pool.DB(), migrations.FS); err != nil {
			log.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		userStore = identitystore.NewPostgres(pool.DB())
		eventStore = timelinestore.NewPostgres(pool.DB())
		auditStore = audit.NewPostgresStore(pool.DB())
		log.Info("using postgres storage")
	} else {
		userStore = identitystore.NewInMemory()
		eventStore = timelinestore.NewInMemory()
		auditStore = audit.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	auditPublisher := audit.NewPublisher(auditStore,
		audit.WithAsyncBuffer(256),
		audit.WithPublisherLogger(log),
	)
	defer auditPublisher.Close()

	jwtService := token.NewJWTService(cfg.JWTSigningKey, "chronicle", cfg.TokenTTL)

	identitySvc := identityservice.NewService(userStore, jwtService, log,
		identityservice.WithAudit(auditPublisher),
		identityservice.WithLoginLimiter(ratelimit.NewLoginLimiter()),
	)
	if err := identitySvc.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Error("failed to provision bootstrap admin", "error", err)
		os.Exit(1)
	}

	timelineSvc := timelineservice.NewService(eventStore, log,
		timelineservice.WithMetrics(metrics.New()),
		timelineservice.WithTracer(tracer.NewOTel()),
	)

	// Demo data only for in-memory development instances with an admin.
	if pool == nil && cfg.Environment == "dev" && cfg.AdminUsername != "" {
		if admin, err := userStore.FindByUsername(ctx, cfg.AdminUsername); err == nil {
			if err := seeder.New(identitySvc, timelineSvc, log).Seed(ctx, admin.Principal()); err != nil {
				log.Warn("failed to seed demo data", "error", err)
			}
		}
	}

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", pool.Health)
	}

	router := httptransport.NewRouter(httptransport.Dependencies{
		Timeline: timelinehandler.New(timelineSvc, log),
		Identity: identityhandler.New(identitySvc, cfg.TokenTTL, log),
		Resolver: identitySvc,
		Health:   healthHandler,
		Logger:   log,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	if pool != nil {
		if err := pool.Close(); err != nil {
			log.Error("failed to close database pool", "error", err)
		}
	}
	log.Info("server stopped")
}

package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seqbase/seqsearch/config"
	"github.com/seqbase/seqsearch/internal/adapters/engine"
	"github.com/seqbase/seqsearch/internal/adapters/oidc"
	"github.com/seqbase/seqsearch/internal/core"
	"github.com/seqbase/seqsearch/internal/data"
	httpx "github.com/seqbase/seqsearch/internal/http"
	"github.com/seqbase/seqsearch/internal/observability/statsd"
	"github.com/seqbase/seqsearch/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Search    *service.SearchService
	Reaper    *service.ReaperService
	Collector *service.CollectorService
	Store     *data.JobStore
	Metrics   *statsd.Client
	Verifier  *oidc.Verifier
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient // Optional: only needed when the engine cache is enabled
	Logger      *slog.Logger
}

// BuildServices wires up the enabled services and their shared dependencies.
func BuildServices(ctx context.Context, deps ServiceDeps) (*ServiceContainer, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	if deps.DB == nil {
		return nil, errors.New("database handle is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	metricsSink, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.Observability.Metrics.IsEnabled(),
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  "seqsearch",
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create metrics client: %w", err)
	}

	store := data.NewJobStore(deps.DB, data.StoreConfig{Logger: logger})

	container := &ServiceContainer{
		Store:   store,
		Metrics: metricsSink,
	}

	enabled, err := cfg.GetEnabledServices()
	if err != nil {
		return nil, fmt.Errorf("determine enabled services: %w", err)
	}

	if enabled[config.ServiceModeAPI] {
		eng, engErr := buildEngine(cfg, deps.RedisClient, logger)
		if engErr != nil {
			return nil, engErr
		}

		container.Search, err = service.NewSearchService(service.SearchServiceOptions{
			Store:   store,
			Engine:  eng,
			Config:  cfg.Search,
			Logger:  logger,
			Metrics: metricsSink,
		})
		if err != nil {
			return nil, fmt.Errorf("create search service: %w", err)
		}

		if cfg.Auth.Enabled {
			container.Verifier, err = oidc.NewVerifier(ctx, oidc.VerifierOptions{Config: cfg.Auth.OIDC})
			if err != nil {
				return nil, fmt.Errorf("create token verifier: %w", err)
			}
		}
	}

	if enabled[config.ServiceModeReaper] {
		container.Reaper, err = service.NewReaperService(service.ReaperServiceOptions{
			Store:   store,
			Config:  cfg.Search,
			Logger:  logger,
			Metrics: metricsSink,
		})
		if err != nil {
			return nil, fmt.Errorf("create reaper service: %w", err)
		}
	}

	if enabled[config.ServiceModeCollector] {
		container.Collector, err = service.NewCollectorService(service.CollectorServiceOptions{
			Store:   store,
			Config:  cfg.Search,
			Logger:  logger,
			Metrics: metricsSink,
		})
		if err != nil {
			return nil, fmt.Errorf("create collector service: %w", err)
		}
	}

	return container, nil
}

// buildEngine constructs the engine client, wrapped in the response cache
// when one is configured.
//
//nolint:ireturn // the cache decorator and the plain client share the Engine port.
func buildEngine(cfg *config.AppConfig, redisClient redis.UniversalClient, logger *slog.Logger) (core.Engine, error) {
	client, err := engine.NewClient(engine.ClientOptions{
		Config: cfg.Engine,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create engine client: %w", err)
	}

	if !cfg.Engine.CacheEnabled {
		return client, nil
	}
	if redisClient == nil {
		return nil, errors.New("engine cache is enabled but no redis client was provided")
	}

	return engine.NewCachingEngine(engine.CachingEngineOptions{
		Inner:  client,
		Cache:  data.NewRedisCacheRepo(redisClient),
		TTL:    cfg.Engine.CacheTTL,
		Logger: logger,
	}), nil
}

// RunServices starts the enabled services and blocks until a shutdown signal
// arrives or one of them fails.
//
// Startup order matters for the API: orphaned jobs are recovered before the
// listener accepts new submissions, so capacity accounting starts correct.
func RunServices(ctx context.Context, cfg *config.AppConfig, container *ServiceContainer, logger *slog.Logger) error {
	if cfg == nil || container == nil {
		return errors.New("config and service container are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3)

	var server *http.Server
	if container.Search != nil {
		if err := container.Search.Recover(serviceCtx); err != nil {
			return fmt.Errorf("recover orphaned jobs: %w", err)
		}

		var err error
		server, err = StartHTTPServer(HTTPServerConfig{
			Config:   cfg,
			Services: container,
			Logger:   logger,
			ErrCh:    errCh,
		})
		if err != nil {
			return err
		}
	}

	if container.Reaper != nil {
		go func() {
			if err := container.Reaper.Run(serviceCtx); err != nil {
				errCh <- fmt.Errorf("reaper: %w", err)
			}
		}()
	}

	if container.Collector != nil {
		go func() {
			if err := container.Collector.Run(serviceCtx); err != nil {
				errCh <- fmt.Errorf("collector: %w", err)
			}
		}()
	}

	logger.Info("services started", "services", GetEnabledServices(cfg))

	return waitForShutdown(shutdownParams{
		ctx:       serviceCtx,
		cancel:    cancel,
		errCh:     errCh,
		server:    server,
		container: container,
		logger:    logger,
	})
}

type shutdownParams struct {
	ctx       context.Context
	cancel    context.CancelFunc
	errCh     chan error
	server    *http.Server
	container *ServiceContainer
	logger    *slog.Logger
}

func waitForShutdown(p shutdownParams) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		p.logger.Info("shutdown signal received", "signal", sig.String())
	case runErr = <-p.errCh:
		p.logger.Error("service failed", "error", runErr)
	case <-p.ctx.Done():
	}

	p.cancel()

	if p.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := p.server.Shutdown(shutdownCtx); err != nil {
			p.logger.Error("HTTP server shutdown failed", "error", err)
		}
	}

	if p.container.Search != nil {
		p.container.Search.Shutdown()
	}
	if p.container.Metrics != nil {
		if err := p.container.Metrics.Close(); err != nil {
			p.logger.Error("closing metrics client failed", "error", err)
		}
	}

	p.logger.Info("shutdown complete")
	return runErr
}

// routerForContainer builds the HTTP handler from the service container.
func routerForContainer(cfg *config.AppConfig, container *ServiceContainer, logger *slog.Logger) http.Handler {
	var verifier httpx.TokenVerifier
	if container.Verifier != nil {
		verifier = container.Verifier
	}
	return httpx.NewRouter(httpx.RouterServices{
		Search:   container.Search,
		Verifier: verifier,
		HTTP:     cfg.HTTP,
		Logger:   logger,
	})
}

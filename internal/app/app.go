package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openshopco/searchcore/internal/cache"
	"github.com/openshopco/searchcore/internal/catalog"
	escatalog "github.com/openshopco/searchcore/internal/catalog/elasticsearch"
	"github.com/openshopco/searchcore/internal/catalog/httpapi"
	"github.com/openshopco/searchcore/internal/catalog/memory"
	pgcatalog "github.com/openshopco/searchcore/internal/catalog/postgres"
	"github.com/openshopco/searchcore/internal/config"
	"github.com/openshopco/searchcore/internal/domain"
	"github.com/openshopco/searchcore/internal/event"
	handler "github.com/openshopco/searchcore/internal/handler/http"
	"github.com/openshopco/searchcore/internal/normalize"
	"github.com/openshopco/searchcore/internal/queryopt"
	"github.com/openshopco/searchcore/internal/relevance"
	"github.com/openshopco/searchcore/internal/search"
	"github.com/openshopco/searchcore/internal/trending"
	"github.com/openshopco/searchcore/pkg/database"
	"github.com/openshopco/searchcore/pkg/health"
	"github.com/openshopco/searchcore/pkg/httpclient"
	pkgkafka "github.com/openshopco/searchcore/pkg/kafka"
)

// App wires together all dependencies and runs the search service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	consumers  []*pkgkafka.Consumer
	httpServer *http.Server

	resultCache *cache.Cache[domain.SearchResult]
	countCache  *cache.Cache[int]
	pool        *pgxpool.Pool
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	healthHandler := health.NewHandler()

	store, pool, err := newCatalogStore(ctx, cfg, logger, healthHandler)
	if err != nil {
		return nil, err
	}

	normalizer := normalize.New()
	scorer := relevance.NewScorer(relevance.DefaultWeights())
	advisor := queryopt.NewAdvisor(normalizer, logger)

	resultCache := cache.New[domain.SearchResult]("search_results", logger)
	countCache := cache.New[int]("search_counts", logger)

	searchService := search.NewService(store, normalizer, scorer, resultCache, countCache, advisor, logger)

	tracker := trending.NewTracker(trending.Config{
		MomentumThreshold: cfg.MomentumThreshold,
		MinPurchases:      cfg.MinPurchases,
	}, logger)

	var consumers []*pkgkafka.Consumer
	if cfg.ConsumersOn {
		consumers = event.NewConsumers(cfg.KafkaBrokers, searchService, tracker, logger)
		healthHandler.Register("kafka", func(ctx context.Context) error {
			return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
		})
		logger.Info("kafka consumers initialized",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.Int("consumer_count", len(consumers)),
		)
	}

	router := handler.NewRouter(searchService, tracker, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:         cfg,
		logger:      logger,
		consumers:   consumers,
		httpServer:  httpServer,
		resultCache: resultCache,
		countCache:  countCache,
		pool:        pool,
	}, nil
}

// newCatalogStore builds the configured catalog backend and registers its
// health check.
func newCatalogStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, healthHandler *health.Handler) (catalog.Store, *pgxpool.Pool, error) {
	switch cfg.CatalogBackend {
	case config.BackendElasticsearch:
		store, err := escatalog.New(cfg.ElasticsearchURL, cfg.ElasticsearchIndex, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init elasticsearch catalog: %w", err)
		}
		healthHandler.Register("elasticsearch", store.Ping)
		logger.Info("elasticsearch catalog store initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
		return store, nil, nil

	case config.BackendPostgres:
		pgCfg := cfg.Postgres()
		pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres catalog: %w", err)
		}
		healthHandler.Register("postgres", pool.Ping)
		logger.Info("postgres catalog store initialized",
			slog.String("host", pgCfg.Host),
			slog.String("database", pgCfg.DBName),
		)
		return pgcatalog.New(pool), pool, nil

	case config.BackendHTTP:
		client := httpclient.New(httpclient.DefaultConfig())
		breaker := httpclient.NewBreakerClient(client,
			httpclient.DefaultCircuitBreakerConfig("product-service"), logger)
		logger.Info("http catalog store initialized",
			slog.String("url", cfg.ProductServiceURL),
		)
		return httpapi.New(cfg.ProductServiceURL, breaker, logger), nil, nil

	default:
		logger.Info("in-memory catalog store initialized")
		return memory.New(), nil, nil
	}
}

// Run starts the HTTP server, Kafka consumers, and the cache sweep, blocking
// until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1+len(a.consumers))

	go a.resultCache.StartSweep(ctx, a.cfg.CacheSweepInterval)
	go a.countCache.StartSweep(ctx, a.cfg.CacheSweepInterval)

	for _, c := range a.consumers {
		go func() {
			if err := c.Start(ctx); err != nil {
				errCh <- fmt.Errorf("kafka consumer: %w", err)
			}
		}()
	}

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	for _, c := range a.consumers {
		if err := c.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

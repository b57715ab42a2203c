// Package crmsearch embeds the CRM search layer in-process: record
// registration, faceted search with personalized ranking, relationship
// graph queries, and query-expansion management over a shared store.
package crmsearch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/crmsearch/internal/backend"
	bleveBackend "github.com/kailas-cloud/crmsearch/internal/backend/bleve"
	scanBackend "github.com/kailas-cloud/crmsearch/internal/backend/scan"
	"github.com/kailas-cloud/crmsearch/internal/db"
	dbMemory "github.com/kailas-cloud/crmsearch/internal/db/memory"
	dbRedis "github.com/kailas-cloud/crmsearch/internal/db/redis"
	"github.com/kailas-cloud/crmsearch/internal/domain"
	"github.com/kailas-cloud/crmsearch/internal/provider"
	cacherepo "github.com/kailas-cloud/crmsearch/internal/repository/cache"
	expansionrepo "github.com/kailas-cloud/crmsearch/internal/repository/expansion"
	metricsrepo "github.com/kailas-cloud/crmsearch/internal/repository/metrics"
	expanduc "github.com/kailas-cloud/crmsearch/internal/usecase/expand"
	explainuc "github.com/kailas-cloud/crmsearch/internal/usecase/explain"
	facetuc "github.com/kailas-cloud/crmsearch/internal/usecase/facet"
	gdpruc "github.com/kailas-cloud/crmsearch/internal/usecase/gdpr"
	graphuc "github.com/kailas-cloud/crmsearch/internal/usecase/graph"
	rankuc "github.com/kailas-cloud/crmsearch/internal/usecase/rank"
	searchuc "github.com/kailas-cloud/crmsearch/internal/usecase/search"
	semcacheuc "github.com/kailas-cloud/crmsearch/internal/usecase/semcache"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the crmsearch SDK entry point.
type Client struct {
	store      db.Store
	provider   *provider.Static
	searchSvc  *searchuc.Service
	graphSvc   *graphuc.Service
	expansions *expansionrepo.Repo
	metrics    *metricsrepo.Repo
}

// New creates a crmsearch Client and connects to the store.
func New(opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o(cfg)
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("crmsearch: store not ready: %w", err)
	}

	return wireClient(store, cfg)
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("crmsearch: create redis store: %w", err)
		}
		return s, nil
	case "memory":
		return dbMemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("crmsearch: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig) (*Client, error) {
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	recordProvider := provider.NewStatic()

	var finder backend.Finder
	if cfg.blevePath != "" {
		engine, err := bleveBackend.New(cfg.blevePath, recordProvider, logger)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("crmsearch: open bleve index: %w", err)
		}
		finder = engine
	} else {
		finder = scanBackend.New(recordProvider)
	}

	cacheRepo := cacherepo.New(store, cfg.cacheL1Size, cfg.cacheTTL)
	expansionRepo := expansionrepo.New(store)
	metricsRepo := metricsrepo.New(store)

	ranker := rankuc.New(metricsRepo, cfg.weights)

	searchSvc := searchuc.New(
		finder,
		expanduc.New(expansionRepo),
		semcacheuc.New(cacheRepo, cfg.cacheTTL, logger),
		facetuc.New(),
		gdpruc.New(cfg.gdpr),
		ranker,
		explainuc.New(cfg.weights),
		metricsRepo,
		logger,
	)

	return &Client{
		store:      store,
		provider:   recordProvider,
		searchSvc:  searchSvc,
		graphSvc:   graphuc.New(recordProvider, logger),
		expansions: expansionRepo,
		metrics:    metricsRepo,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WithTenant attaches the tenant id to the context. Every operation
// requires a tenant-scoped context.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return domain.ContextWithTenant(ctx, tenantID)
}

// WithUser attaches the requesting user to the context. Ownership
// boosts and PHI access checks resolve against this principal.
func WithUser(ctx context.Context, userID, role string) context.Context {
	return domain.ContextWithPrincipal(ctx, domain.Principal{UserID: userID, Role: role})
}

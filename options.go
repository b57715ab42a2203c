package crmsearch

import (
	"time"

	"go.uber.org/zap"

	gdpruc "github.com/kailas-cloud/crmsearch/internal/usecase/gdpr"
	rankuc "github.com/kailas-cloud/crmsearch/internal/usecase/rank"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	driver      string
	addrs       []string
	password    string
	blevePath   string
	cacheTTL    time.Duration
	cacheL1Size int
	weights     rankuc.Weights
	gdpr        gdpruc.Config
	logger      *zap.Logger
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		driver:      "memory",
		cacheTTL:    time.Hour,
		cacheL1Size: 1024,
		weights:     rankuc.DefaultWeights(),
		gdpr:        gdpruc.DefaultConfig(),
	}
}

// WithRedis connects the client to a Redis store.
func WithRedis(addrs []string, password string) Option {
	return func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = addrs
		c.password = password
	}
}

// WithMemory uses the in-process store. This is the default.
func WithMemory() Option {
	return func(c *clientConfig) {
		c.driver = "memory"
	}
}

// WithBleveIndex switches the backend from provider scanning to a
// persistent bleve index at the given path.
func WithBleveIndex(path string) Option {
	return func(c *clientConfig) {
		c.blevePath = path
	}
}

// WithCacheTTL overrides the semantic cache time-to-live.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *clientConfig) {
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithRankingWeights overrides the personalization weights.
func WithRankingWeights(w rankuc.Weights) Option {
	return func(c *clientConfig) {
		c.weights = w
	}
}

// WithGDPR overrides the field masking configuration.
func WithGDPR(cfg gdpruc.Config) Option {
	return func(c *clientConfig) {
		c.gdpr = cfg
	}
}

// WithLogger attaches a zap logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

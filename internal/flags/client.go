package flags

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alkitu/gatekeeper/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single flag check
const DefaultTimeout = 5 * time.Second

// Checker reports whether a feature flag is enabled. Implementations fail
// closed: any error means disabled.
type Checker interface {
	Enabled(ctx context.Context, key string) bool
}

// Client checks flags against the remote feature flag service
type Client struct {
	baseURL  string
	client   *http.Client
	timeout  time.Duration
	cache    redis.UniversalClient
	cacheTTL time.Duration
	logger   *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithTimeout overrides the per-check timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCache caches definitive answers in Redis for ttl
func WithCache(client redis.UniversalClient, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = client
		c.cacheTTL = ttl
	}
}

// NewClient creates a new feature flag client for the API at baseURL
func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		timeout: DefaultTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type flagResponse struct {
	Enabled bool `json:"enabled"`
}

// Enabled implements Checker
func (c *Client) Enabled(ctx context.Context, key string) bool {
	if enabled, ok := c.cached(ctx, key); ok {
		metrics.RecordFlagCheck(key, "cached")
		return enabled
	}

	enabled, err := c.fetch(ctx, key)
	if err != nil {
		metrics.RecordFlagCheck(key, "error")
		c.logger.Warn("feature flag check failed, treating as disabled",
			zap.String("flag", key),
			zap.Error(err),
		)
		return false
	}

	if enabled {
		metrics.RecordFlagCheck(key, "enabled")
	} else {
		metrics.RecordFlagCheck(key, "disabled")
	}
	c.store(ctx, key, enabled)
	return enabled
}

func (c *Client) fetch(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/api/feature-flags/%s", c.baseURL, url.PathEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call feature flag service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("feature flag service returned status %d", resp.StatusCode)
	}

	var body flagResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode feature flag response: %w", err)
	}
	return body.Enabled, nil
}

func cacheKey(key string) string {
	return fmt.Sprintf("featureflag:%s", key)
}

func (c *Client) cached(ctx context.Context, key string) (bool, bool) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return false, false
	}

	val, err := c.cache.Get(ctx, cacheKey(key)).Result()
	if err == redis.Nil {
		return false, false
	}
	if err != nil {
		c.logger.Warn("failed to read feature flag cache", zap.String("flag", key), zap.Error(err))
		return false, false
	}
	return val == "1", true
}

func (c *Client) store(ctx context.Context, key string, enabled bool) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}

	val := "0"
	if enabled {
		val = "1"
	}
	if err := c.cache.Set(ctx, cacheKey(key), val, c.cacheTTL).Err(); err != nil {
		c.logger.Warn("failed to write feature flag cache", zap.String("flag", key), zap.Error(err))
	}
}

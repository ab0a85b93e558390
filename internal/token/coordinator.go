package token

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alkitu/gatekeeper/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

var errRefreshFailed = errors.New("refresh failed")

// Coordinator collapses concurrent refreshes of the same refresh token into a
// single upstream call. With a result cache, instances sharing Redis also
// hand a pair that was rotated moments ago back to the client that asked for
// it. Other clients presenting the same token always reach the issuer.
type Coordinator struct {
	next     Refresher
	group    singleflight.Group
	cache    redis.UniversalClient
	cacheTTL time.Duration
	limiter  FailureLimiter
	logger   *zap.Logger
}

// FailureLimiter stops refresh calls for a token that keeps failing
type FailureLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

type clientKey struct{}

// WithClient marks refreshes made with ctx as coming from the client id,
// typically derived from its address and user agent. Cached results are only
// reused by the same client; without an id nothing is cached.
func WithClient(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientKey{}, id)
}

// ClientFrom returns the client id bound to ctx by WithClient
func ClientFrom(ctx context.Context) string {
	id, _ := ctx.Value(clientKey{}).(string)
	return id
}

// CoordinatorOption configures a Coordinator
type CoordinatorOption func(*Coordinator)

// WithResultCache stores successful refresh results in Redis for ttl. A ttl
// of zero disables the cache.
func WithResultCache(client redis.UniversalClient, ttl time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.cache = client
		c.cacheTTL = ttl
	}
}

// WithFailureLimiter skips the refresh call for tokens the limiter has locked
// out. Limiter errors never block a refresh.
func WithFailureLimiter(l FailureLimiter) CoordinatorOption {
	return func(c *Coordinator) {
		c.limiter = l
	}
}

// NewCoordinator wraps next with per-token refresh coordination
func NewCoordinator(next Refresher, logger *zap.Logger, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{next: next, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func refreshKey(parts ...string) string {
	h, _ := blake2b.New256(nil)
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func refreshCacheKey(key string) string {
	return fmt.Sprintf("refresh:result:%s", key)
}

// Refresh implements Refresher
func (c *Coordinator) Refresh(ctx context.Context, refreshToken string) *TokenPair {
	if refreshToken == "" {
		return nil
	}

	// key identifies the token for the limiter; bound also identifies the
	// client and scopes the shared call and the cached result.
	key := refreshKey(refreshToken)
	client := ClientFrom(ctx)
	bound := refreshKey(refreshToken, client)

	if pair := c.cached(ctx, client, bound); pair != nil {
		metrics.RecordRefresh("cached", 0)
		return pair
	}

	// The first caller's cancellation must not fail the callers sharing its
	// result; the refresher's own timeout still bounds the call.
	callCtx := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(bound, func() (interface{}, error) {
		if !c.allowed(callCtx, key) {
			metrics.RecordRefresh("limited", 0)
			return nil, errRefreshFailed
		}
		pair := c.next.Refresh(callCtx, refreshToken)
		if pair == nil {
			c.recordFailure(callCtx, key)
			return nil, errRefreshFailed
		}
		c.store(callCtx, client, bound, pair)
		c.reset(callCtx, key)
		return pair, nil
	})
	if shared {
		metrics.RecordRefresh("shared", 0)
	}
	if err != nil {
		return nil
	}

	pair := *v.(*TokenPair)
	return &pair
}

func (c *Coordinator) cacheable(client string) bool {
	return c.cache != nil && c.cacheTTL > 0 && client != ""
}

func (c *Coordinator) cached(ctx context.Context, client, key string) *TokenPair {
	if !c.cacheable(client) {
		return nil
	}

	data, err := c.cache.Get(ctx, refreshCacheKey(key)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		c.logger.Warn("failed to read refresh cache", zap.Error(err))
		return nil
	}

	var pair TokenPair
	if err := json.Unmarshal(data, &pair); err != nil || pair.AccessToken == "" {
		return nil
	}
	return &pair
}

func (c *Coordinator) store(ctx context.Context, client, key string, pair *TokenPair) {
	if !c.cacheable(client) {
		return
	}

	data, err := json.Marshal(pair)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, refreshCacheKey(key), data, c.cacheTTL).Err(); err != nil {
		c.logger.Warn("failed to write refresh cache", zap.Error(err))
	}
}

func (c *Coordinator) allowed(ctx context.Context, key string) bool {
	if c.limiter == nil {
		return true
	}
	ok, err := c.limiter.Allow(ctx, key)
	if err != nil {
		c.logger.Warn("refresh limiter unavailable", zap.Error(err))
		return true
	}
	return ok
}

func (c *Coordinator) recordFailure(ctx context.Context, key string) {
	if c.limiter == nil {
		return
	}
	if err := c.limiter.RecordFailure(ctx, key); err != nil {
		c.logger.Warn("failed to record refresh failure", zap.Error(err))
	}
}

func (c *Coordinator) reset(ctx context.Context, key string) {
	if c.limiter == nil {
		return
	}
	if err := c.limiter.Reset(ctx, key); err != nil {
		c.logger.Warn("failed to reset refresh limiter", zap.Error(err))
	}
}

package token

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Blacklist reads token revocations from Redis. Entries are written by the
// issuance service on logout under the same key scheme.
type Blacklist struct {
	client redis.UniversalClient
}

// NewBlacklist creates a new token blacklist
func NewBlacklist(client redis.UniversalClient) *Blacklist {
	return &Blacklist{client: client}
}

func blacklistKey(tokenID string) string {
	return fmt.Sprintf("blacklist:jti:%s", tokenID)
}

// IsRevoked checks if a token id is blacklisted
func (b *Blacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	exists, err := b.client.Exists(ctx, blacklistKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}

	return exists > 0, nil
}

package token

import (
	"context"
	"testing"
	"time"

	"github.com/alkitu/gatekeeper/internal/access"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBlacklist_IsRevoked(t *testing.T) {
	mr, client := newRedis(t)
	require.NoError(t, mr.Set("blacklist:jti:revoked-id", "1"))
	b := NewBlacklist(client)

	tests := []struct {
		tokenID string
		want    bool
	}{
		{"revoked-id", true},
		{"other-id", false},
		{"", false},
	}

	for _, tt := range tests {
		got, err := b.IsRevoked(context.Background(), tt.tokenID)
		require.NoError(t, err)
		if got != tt.want {
			t.Errorf("IsRevoked(%q) = %v, want %v", tt.tokenID, got, tt.want)
		}
	}
}

func TestBlacklist_RevokesVerifiedToken(t *testing.T) {
	mr, client := newRedis(t)
	issuer := NewIssuer(testSecret, time.Minute)
	verifier := NewVerifier(testSecret, zap.NewNop(), WithRevocationList(NewBlacklist(client)))

	tokenString, err := issuer.Issue(testSubject(access.RoleClient))
	require.NoError(t, err)

	claims := verifier.Verify(context.Background(), tokenString)
	require.NotNil(t, claims)
	require.NotEmpty(t, claims.ID)

	require.NoError(t, mr.Set(blacklistKey(claims.ID), "1"))
	assert.Nil(t, verifier.Verify(context.Background(), tokenString))

	mr.Close()
	assert.Nil(t, verifier.Verify(context.Background(), tokenString), "lookup errors fail closed")
}

package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alkitu/gatekeeper/internal/access"
	"github.com/alkitu/gatekeeper/internal/metrics"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RevocationList reports whether a token id has been revoked
type RevocationList interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Verifier validates signed access tokens
type Verifier struct {
	secretKey   []byte
	revocations RevocationList
	logger      *zap.Logger
	now         func() time.Time
}

// VerifierOption configures a Verifier
type VerifierOption func(*Verifier)

// WithRevocationList makes the verifier reject revoked token ids
func WithRevocationList(r RevocationList) VerifierOption {
	return func(v *Verifier) {
		v.revocations = r
	}
}

// WithClock overrides the verifier's time source
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier creates a new access token verifier
func NewVerifier(secretKey string, logger *zap.Logger, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		secretKey: []byte(secretKey),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify validates signature, expiry and role of an access token and returns
// its claims. It returns nil for any token that cannot be trusted.
func (v *Verifier) Verify(ctx context.Context, tokenString string) *Claims {
	if tokenString == "" {
		return nil
	}

	claims, err := v.parse(tokenString)
	if err != nil {
		status := "invalid"
		if errors.Is(err, jwt.ErrTokenExpired) {
			status = "expired"
		}
		metrics.RecordJWTValidation(status)
		v.logger.Debug("access token rejected", zap.String("reason", status), zap.Error(err))
		return nil
	}

	role, ok := access.ParseRole(string(claims.Role))
	if !ok {
		metrics.RecordJWTValidation("unknown_role")
		v.logger.Debug("access token carries no usable role",
			zap.String("sub", claims.Subject),
			zap.String("role", string(claims.Role)),
		)
		return nil
	}
	claims.Role = role
	if claims.AccountStatus == "" {
		claims.AccountStatus = access.StatusActive
	}

	if v.revocations != nil && claims.ID != "" {
		revoked, err := v.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			metrics.RecordJWTValidation("revocation_error")
			v.logger.Warn("revocation check failed", zap.String("jti", claims.ID), zap.Error(err))
			return nil
		}
		if revoked {
			metrics.RecordJWTValidation("revoked")
			return nil
		}
	}

	metrics.RecordJWTValidation("success")
	return claims
}

func (v *Verifier) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// ExpiresAt reads the exp claim of a token without verifying it. It is only
// meant for cookie lifetimes, never for trust decisions.
func ExpiresAt(tokenString string) (time.Time, bool) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return time.Time{}, false
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Issuer signs access tokens. Production tokens come from the external
// issuance service; this is used for local development and tests.
type Issuer struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewIssuer creates a new access token issuer
func NewIssuer(secretKey string, ttl time.Duration) *Issuer {
	return &Issuer{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Subject describes the account an access token is issued for
type Subject struct {
	ID              string
	Email           string
	Role            access.Role
	AccountStatus   access.AccountStatus
	EmailVerified   bool
	ProfileComplete bool
}

// Issue signs an access token for subject
func (i *Issuer) Issue(subject Subject) (string, error) {
	now := i.now()
	claims := Claims{
		Email:           subject.Email,
		Role:            subject.Role,
		EmailVerified:   subject.EmailVerified,
		ProfileComplete: subject.ProfileComplete,
		AccountStatus:   subject.AccountStatus,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   subject.ID,
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

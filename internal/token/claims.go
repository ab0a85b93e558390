package token

import (
	"github.com/alkitu/gatekeeper/internal/access"
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the access token claims structure.
// The subject id travels in the registered "sub" claim.
type Claims struct {
	Email           string               `json:"email"`
	Role            access.Role          `json:"role"`
	EmailVerified   bool                 `json:"emailVerified"`
	ProfileComplete bool                 `json:"profileComplete"`
	AccountStatus   access.AccountStatus `json:"accountStatus,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID returns the user identifier the token was issued for
func (c *Claims) SubjectID() string {
	return c.Subject
}

// PendingState evaluates the onboarding sub-state of the account
func (c *Claims) PendingState() access.PendingState {
	return access.EvaluatePending(c.AccountStatus, c.EmailVerified, c.ProfileComplete)
}

// TokenPair represents an access and refresh token pair
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Empty reports whether the pair carries no credentials at all
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}

// TokenType constants
const (
	TokenTypeBearer = "Bearer"
)

package gate

import (
	"net/http"
	"time"

	"github.com/alkitu/gatekeeper/internal/token"
)

// Credential cookie names
const (
	AccessTokenCookie  = "auth-token"
	RefreshTokenCookie = "refresh-token"
)

// CredentialStore reads and replaces the request's credential pair
type CredentialStore interface {
	Get() token.TokenPair
	Set(pair token.TokenPair)
	Clear()
}

// CookiePolicy controls the attributes of credential cookies
type CookiePolicy struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// CookieStore keeps credentials in HttpOnly cookies
type CookieStore struct {
	pair   token.TokenPair
	policy CookiePolicy
	emit   func(*http.Cookie)
	now    func() time.Time
}

// NewCookieStore reads credentials from r. Writes are handed to emit as
// Set-Cookie values.
func NewCookieStore(r *http.Request, policy CookiePolicy, emit func(*http.Cookie)) *CookieStore {
	s := &CookieStore{policy: policy, emit: emit, now: time.Now}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		s.pair.AccessToken = c.Value
	}
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		s.pair.RefreshToken = c.Value
	}
	return s
}

// Get implements CredentialStore
func (s *CookieStore) Get() token.TokenPair {
	return s.pair
}

// Set replaces both credentials
func (s *CookieStore) Set(pair token.TokenPair) {
	s.pair = pair
	s.emit(s.cookie(AccessTokenCookie, pair.AccessToken, s.accessMaxAge(pair.AccessToken)))
	s.emit(s.cookie(RefreshTokenCookie, pair.RefreshToken, int(s.policy.RefreshTTL.Seconds())))
}

// Clear expires both credential cookies
func (s *CookieStore) Clear() {
	s.pair = token.TokenPair{}
	s.emit(s.cookie(AccessTokenCookie, "", -1))
	s.emit(s.cookie(RefreshTokenCookie, "", -1))
}

// accessMaxAge follows the token's own expiry when it can be read.
func (s *CookieStore) accessMaxAge(accessToken string) int {
	if exp, ok := token.ExpiresAt(accessToken); ok {
		if remaining := exp.Sub(s.now()); remaining > 0 {
			return int(remaining.Seconds())
		}
	}
	return int(s.policy.AccessTTL.Seconds())
}

func (s *CookieStore) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.policy.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// MemoryStore is an in-memory CredentialStore
type MemoryStore struct {
	Pair     token.TokenPair
	SetCalls int
	Cleared  bool
}

// NewMemoryStore creates a store holding pair
func NewMemoryStore(pair token.TokenPair) *MemoryStore {
	return &MemoryStore{Pair: pair}
}

// Get implements CredentialStore
func (m *MemoryStore) Get() token.TokenPair {
	return m.Pair
}

// Set implements CredentialStore
func (m *MemoryStore) Set(pair token.TokenPair) {
	m.Pair = pair
	m.SetCalls++
}

// Clear implements CredentialStore
func (m *MemoryStore) Clear() {
	m.Pair = token.TokenPair{}
	m.Cleared = true
}

package gate

import (
	"context"
	"net/http"
	"net/url"

	"github.com/alkitu/gatekeeper/internal/access"
	"github.com/alkitu/gatekeeper/internal/locale"
	"github.com/alkitu/gatekeeper/internal/token"
	apperrors "github.com/alkitu/gatekeeper/pkg/errors"
	"go.uber.org/zap"
)

// Redirect targets, relative to the locale prefix
const (
	LoginPath        = "/auth/login"
	VerifyEmailPath  = "/auth/verify-email"
	OnboardingPath   = "/onboarding"
	UnauthorizedPath = "/unauthorized"
	DashboardPath    = "/dashboard"
)

// Verifier validates access tokens, returning nil for untrusted ones
type Verifier interface {
	Verify(ctx context.Context, tokenString string) *token.Claims
}

// AuthOptions configures an AuthStage
type AuthOptions struct {
	Verifier  Verifier
	Refresher token.Refresher
	Rules     *access.Rules
	Locales   *locale.Resolver
	Logger    *zap.Logger

	// SkipAuth disables the stage in development. Combined with
	// Production it fails every request instead.
	SkipAuth   bool
	Production bool
}

// AuthStage authenticates the request, refreshing credentials at most once,
// and authorizes it against the route table.
type AuthStage struct {
	verifier   Verifier
	refresher  token.Refresher
	routes     *access.RouteTable
	hierarchy  *access.Hierarchy
	rules      *access.Rules
	locales    *locale.Resolver
	logger     *zap.Logger
	skipAuth   bool
	production bool
}

// NewAuthStage creates an auth stage
func NewAuthStage(opts AuthOptions) *AuthStage {
	rules := opts.Rules
	if rules == nil {
		rules = access.DefaultRules()
	}
	return &AuthStage{
		verifier:   opts.Verifier,
		refresher:  opts.Refresher,
		routes:     rules.RouteTable(),
		hierarchy:  rules.RoleHierarchy(),
		rules:      rules,
		locales:    opts.Locales,
		logger:     opts.Logger,
		skipAuth:   opts.SkipAuth,
		production: opts.Production,
	}
}

// Name implements Stage
func (s *AuthStage) Name() string {
	return "auth"
}

// Handle implements Stage
func (s *AuthStage) Handle(ctx context.Context, rc *RequestContext) Result {
	if s.skipAuth {
		if s.production {
			s.logger.Error("SKIP_AUTH is enabled in production, refusing request",
				zap.String("path", rc.Path))
			return ShortCircuit(Fail(apperrors.ErrProductionMisconfiguration))
		}
		return Continue()
	}

	rc.ensureLocale(s.locales)
	path := rc.CleanPath

	if s.rules.IsAuthPage(path) {
		return s.authPage(ctx, rc)
	}

	required, protected := s.routes.RequiredRoles(path)
	if !protected {
		return Continue()
	}

	claims, failure := s.authenticate(ctx, rc)
	if failure != nil {
		return ShortCircuit(s.loginRedirect(rc, failure))
	}

	if !s.hierarchy.HasRole(claims.Role, required) {
		s.logger.Debug("role does not satisfy route",
			zap.String("sub", claims.SubjectID()),
			zap.String("role", string(claims.Role)),
			zap.String("path", path),
		)
		return ShortCircuit(s.redirect(rc, UnauthorizedPath, apperrors.ErrInsufficientRole.Code))
	}

	switch claims.PendingState() {
	case access.PendingEmailUnverified:
		if !access.MatchPrefix(path, VerifyEmailPath) {
			return ShortCircuit(s.redirect(rc, VerifyEmailPath, access.PendingEmailUnverified.String()))
		}
	case access.PendingProfileIncomplete:
		if !access.MatchPrefix(path, OnboardingPath) {
			return ShortCircuit(s.redirect(rc, OnboardingPath, access.PendingProfileIncomplete.String()))
		}
	case access.PendingComplete:
	}

	if path == DashboardPath {
		return ShortCircuit(s.redirect(rc, claims.Role.DashboardPath(), "dashboard_alias"))
	}

	rc.Claims = claims
	return Continue()
}

// authPage sends already authenticated users to their dashboard. Only the
// current access token is considered; no refresh happens here.
func (s *AuthStage) authPage(ctx context.Context, rc *RequestContext) Result {
	claims := s.verifier.Verify(ctx, rc.Credentials.Get().AccessToken)
	if claims == nil || !claims.Role.Valid() {
		return Continue()
	}
	return ShortCircuit(s.redirect(rc, claims.Role.DashboardPath(), "authenticated"))
}

// authenticate resolves trusted claims for the request, attempting at most
// one refresh.
func (s *AuthStage) authenticate(ctx context.Context, rc *RequestContext) (*token.Claims, *apperrors.AppError) {
	creds := rc.Credentials.Get()
	accessToken := creds.AccessToken
	refreshed := false

	if accessToken == "" {
		pair := s.refresh(ctx, rc, creds)
		if pair == nil {
			return nil, apperrors.ErrRefreshFailed
		}
		accessToken = pair.AccessToken
		refreshed = true
	}

	claims := s.verifier.Verify(ctx, accessToken)
	if claims == nil && !refreshed {
		pair := s.refresh(ctx, rc, creds)
		if pair == nil {
			return nil, apperrors.ErrRefreshFailed
		}
		claims = s.verifier.Verify(ctx, pair.AccessToken)
		refreshed = true
	}

	if claims == nil {
		if refreshed {
			// The refreshed pair was already written; drop it again.
			rc.Credentials.Clear()
		}
		return nil, apperrors.ErrTokenInvalid
	}
	if !claims.Role.Valid() {
		return nil, apperrors.ErrMissingRole
	}
	return claims, nil
}

func (s *AuthStage) refresh(ctx context.Context, rc *RequestContext, creds token.TokenPair) *token.TokenPair {
	ctx = token.WithClient(ctx, rc.ClientIP+" "+rc.Request.UserAgent())
	pair := s.refresher.Refresh(ctx, creds.RefreshToken)
	if pair == nil {
		if !creds.Empty() {
			rc.Credentials.Clear()
		}
		return nil
	}

	rc.Credentials.Set(*pair)
	rc.SetForwardHeader("Authorization", token.TokenTypeBearer+" "+pair.AccessToken)
	return pair
}

func (s *AuthStage) loginRedirect(rc *RequestContext, failure *apperrors.AppError) *Response {
	q := url.Values{"redirect": {rc.Path}}
	return Redirect(http.StatusTemporaryRedirect, "/"+rc.Locale+LoginPath+"?"+q.Encode(), failure.Code)
}

func (s *AuthStage) redirect(rc *RequestContext, target, reason string) *Response {
	return Redirect(http.StatusTemporaryRedirect, "/"+rc.Locale+target, reason)
}

package gate

import (
	"context"
	"net/http"

	"github.com/alkitu/gatekeeper/internal/locale"
)

// LocaleStage canonicalizes the request locale and refreshes the locale
// cookie on every response that passes through it.
type LocaleStage struct {
	resolver *locale.Resolver
}

// NewLocaleStage creates a locale stage
func NewLocaleStage(resolver *locale.Resolver) *LocaleStage {
	return &LocaleStage{resolver: resolver}
}

// Name implements Stage
func (s *LocaleStage) Name() string {
	return "locale"
}

// Handle implements Stage
func (s *LocaleStage) Handle(_ context.Context, rc *RequestContext) Result {
	escaped := rc.EscapedPath
	if escaped == "" {
		escaped = rc.Path
	}
	res := s.resolver.Resolve(escaped, rc.RawQuery, rc.CookieValue(locale.CookieName))
	rc.SetCookie(s.resolver.Cookie(res.Locale))

	if res.Redirect != "" {
		return ShortCircuit(Redirect(http.StatusFound, res.Redirect, "locale"))
	}

	rc.Locale = res.Locale
	rc.CleanPath = s.resolver.StripLocale(rc.Path)
	return Continue()
}

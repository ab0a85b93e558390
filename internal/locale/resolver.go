package locale

import (
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// CookieName is the cookie carrying the user's locale preference
const CookieName = "NEXT_LOCALE"

// CookieMaxAge is how long the locale cookie lives
const CookieMaxAge = 365 * 24 * time.Hour

// Resolution is the outcome of resolving a request locale. When Redirect is
// set the request must be redirected there; otherwise it continues with Locale.
// Locale is always the value the cookie must be set to.
type Resolution struct {
	Locale   string
	Redirect string
}

// Resolver selects and canonicalizes request locales
type Resolver struct {
	supported []string
	tags      []language.Tag
	def       string
	secure    bool
}

// NewResolver creates a resolver over the supported locales. secure marks
// the locale cookie Secure, which production deployments require.
func NewResolver(supported []string, defaultLocale string, secure bool) *Resolver {
	r := &Resolver{def: defaultLocale, secure: secure}
	for _, s := range supported {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		r.supported = append(r.supported, s)
		r.tags = append(r.tags, language.Make(s))
	}
	return r
}

// Default returns the default locale
func (r *Resolver) Default() string {
	return r.def
}

// Supported reports whether l is exactly one of the supported locales
func (r *Resolver) Supported(l string) bool {
	for _, s := range r.supported {
		if s == l {
			return true
		}
	}
	return false
}

// Canonicalize maps a loosely formatted locale ("ES", "es-ES", "es_MX") to a
// supported locale, or "" when none matches.
func (r *Resolver) Canonicalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if r.Supported(raw) {
		return raw
	}

	tag, err := language.Parse(strings.ReplaceAll(raw, "_", "-"))
	if err != nil {
		return ""
	}
	for i, s := range r.tags {
		if s == tag {
			return r.supported[i]
		}
	}
	base, _ := tag.Base()
	for i, s := range r.tags {
		if sb, _ := s.Base(); sb == base {
			return r.supported[i]
		}
	}
	return ""
}

// PathLocale returns the first path segment when it is a supported locale
func (r *Resolver) PathLocale(p string) string {
	seg := strings.TrimPrefix(p, "/")
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	if r.Supported(seg) {
		return seg
	}
	return ""
}

// StripLocale removes a leading supported locale segment from p.
// "/es/admin" becomes "/admin" and "/es" becomes "/".
func (r *Resolver) StripLocale(p string) string {
	l := r.PathLocale(p)
	if l == "" {
		return p
	}
	rest := strings.TrimPrefix(p, "/"+l)
	if rest == "" {
		return "/"
	}
	return rest
}

// FromRequest resolves the locale for redirect prefixes: path segment,
// then cookie, then default.
func (r *Resolver) FromRequest(p, cookieValue string) string {
	if l := r.PathLocale(p); l != "" {
		return l
	}
	if l := r.Canonicalize(cookieValue); l != "" {
		return l
	}
	return r.def
}

// Resolve decides whether the request continues or is redirected to a
// locale-prefixed URL. A path locale always wins over the cookie. p is the
// escaped request path so the redirect keeps its percent-encoding.
func (r *Resolver) Resolve(p, rawQuery, cookieValue string) Resolution {
	pathLocale := r.PathLocale(p)
	cookieLocale := r.Canonicalize(cookieValue)

	query := ""
	if rawQuery != "" {
		query = "?" + rawQuery
	}

	if p == "/" || p == "" {
		l := firstNonEmpty(pathLocale, cookieLocale, r.def)
		return Resolution{Locale: l, Redirect: "/" + l + query}
	}

	if pathLocale == "" {
		l := firstNonEmpty(cookieLocale, r.def)
		return Resolution{Locale: l, Redirect: "/" + l + p + query}
	}

	return Resolution{Locale: pathLocale}
}

// Cookie builds the locale cookie for l. It is readable by client scripts.
func (r *Resolver) Cookie(l string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    l,
		Path:     "/",
		MaxAge:   int(CookieMaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
		Secure:   r.secure,
		HttpOnly: false,
	}
}

// excludedPrefixes never go through the gate
var excludedPrefixes = []string{"/api", "/_next", "/_vercel", "/not-found"}

// assetExtensions are the public file types served outside the gate
var assetExtensions = map[string]bool{
	".js": true, ".mjs": true, ".css": true, ".map": true, ".json": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".ico": true, ".webp": true, ".avif": true, ".bmp": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	".txt": true, ".xml": true, ".webmanifest": true,
	".mp3": true, ".mp4": true, ".webm": true, ".pdf": true,
}

// IsExcluded reports whether p never goes through the gate: API routes,
// framework internals, the not-found page and public files at the root of
// the site. Paths under a locale segment are pages and always go through.
func (r *Resolver) IsExcluded(p string) bool {
	for _, prefix := range excludedPrefixes {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	if r.PathLocale(p) != "" {
		return false
	}

	base := path.Base(p)
	ext := path.Ext(base)
	switch {
	case base == "sw.js":
		return p == "/sw.js"
	case strings.HasPrefix(base, "workbox-"), strings.HasPrefix(base, "worker-"):
		return ext == ".js"
	}
	return ext != base && assetExtensions[strings.ToLower(ext)]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

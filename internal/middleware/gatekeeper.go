package middleware

import (
	"net/http"
	"strings"

	"github.com/alkitu/gatekeeper/internal/gate"
	"github.com/alkitu/gatekeeper/internal/token"
	apperrors "github.com/alkitu/gatekeeper/pkg/errors"
	"github.com/alkitu/gatekeeper/pkg/response"
	"github.com/gin-gonic/gin"
)

// Context keys set for requests that passed an authenticated route
const (
	ClaimsKey = "claims"
	UserIDKey = "user_id"
)

// Gatekeeper runs the gate chain in front of every request
func Gatekeeper(chain *gate.Chain, policy gate.CookiePolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if chain.Bypassed(c.Request.URL.Path) {
			c.Next()
			return
		}

		rc := gate.NewRequestContext(c.Request, policy, nil)
		rc.ClientIP = c.ClientIP()
		resp := chain.Run(c.Request.Context(), rc)

		for _, cookie := range rc.Cookies() {
			http.SetCookie(c.Writer, cookie)
		}

		if resp != nil {
			if resp.IsRedirect() {
				c.Redirect(resp.Status, resp.Location)
				c.Abort()
				return
			}
			var err error = apperrors.ErrInternal
			if resp.Err != nil {
				err = resp.Err
			}
			response.Error(c, err)
			return
		}

		for key, values := range rc.ForwardHeaders() {
			c.Request.Header[key] = values
		}
		forwardCredentials(c.Request, rc.Cookies())

		if rc.Claims != nil {
			c.Set(ClaimsKey, rc.Claims)
			c.Set(UserIDKey, rc.Claims.SubjectID())
		}

		c.Next()
	}
}

// ClaimsFromContext returns the claims the gate attached to c, if any
func ClaimsFromContext(c *gin.Context) (*token.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*token.Claims)
	return claims, ok
}

// forwardCredentials rewrites the request Cookie header so the application
// sees refreshed credentials on this same request.
func forwardCredentials(r *http.Request, set []*http.Cookie) {
	updated := make(map[string]*http.Cookie)
	for _, c := range set {
		if c.Name == gate.AccessTokenCookie || c.Name == gate.RefreshTokenCookie {
			updated[c.Name] = c
		}
	}
	if len(updated) == 0 {
		return
	}

	var parts []string
	for _, c := range r.Cookies() {
		if _, ok := updated[c.Name]; ok {
			continue
		}
		parts = append(parts, c.String())
	}
	for _, name := range []string{gate.AccessTokenCookie, gate.RefreshTokenCookie} {
		c, ok := updated[name]
		if !ok || c.MaxAge < 0 {
			continue
		}
		parts = append(parts, (&http.Cookie{Name: c.Name, Value: c.Value}).String())
	}

	if len(parts) == 0 {
		r.Header.Del("Cookie")
		return
	}
	r.Header.Set("Cookie", strings.Join(parts, "; "))
}

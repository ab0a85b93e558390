// Package gate implements the request gatekeeping pipeline: an ordered chain
// of stages that either let a request through to the application or answer
// it themselves with a redirect or an error.
package gate

import (
	"context"
	"net"
	"net/http"

	"github.com/alkitu/gatekeeper/internal/locale"
	"github.com/alkitu/gatekeeper/internal/metrics"
	"github.com/alkitu/gatekeeper/internal/token"
	apperrors "github.com/alkitu/gatekeeper/pkg/errors"
	"go.uber.org/zap"
)

// RequestContext carries per-request state through the chain. Stages read
// what earlier stages resolved and record side effects for the response.
type RequestContext struct {
	Request *http.Request
	// Path is decoded and used for matching. EscapedPath keeps the
	// percent-encoding and is used to build redirects.
	Path        string
	EscapedPath string
	RawQuery    string
	ClientIP    string
	Locale      string
	CleanPath   string
	Claims      *token.Claims
	Credentials CredentialStore

	cookies []*http.Cookie
	forward http.Header
}

// NewRequestContext creates the context for r. Credentials are read from
// and written to cookies unless store is non-nil.
func NewRequestContext(r *http.Request, policy CookiePolicy, store CredentialStore) *RequestContext {
	rc := &RequestContext{
		Request:     r,
		Path:        r.URL.Path,
		EscapedPath: r.URL.EscapedPath(),
		RawQuery:    r.URL.RawQuery,
		ClientIP:    r.RemoteAddr,
		forward:     make(http.Header),
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		rc.ClientIP = host
	}
	if store == nil {
		store = NewCookieStore(r, policy, rc.SetCookie)
	}
	rc.Credentials = store
	return rc
}

// CookieValue returns the request cookie value, or "" when absent
func (rc *RequestContext) CookieValue(name string) string {
	c, err := rc.Request.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetCookie queues a Set-Cookie for the response. A later cookie with the
// same name replaces an earlier one.
func (rc *RequestContext) SetCookie(c *http.Cookie) {
	for i, existing := range rc.cookies {
		if existing.Name == c.Name {
			rc.cookies[i] = c
			return
		}
	}
	rc.cookies = append(rc.cookies, c)
}

// Cookies returns the queued response cookies
func (rc *RequestContext) Cookies() []*http.Cookie {
	return rc.cookies
}

// SetForwardHeader sets a header on the request forwarded to the application
func (rc *RequestContext) SetForwardHeader(key, value string) {
	rc.forward.Set(key, value)
}

// ForwardHeaders returns headers to apply to the forwarded request
func (rc *RequestContext) ForwardHeaders() http.Header {
	return rc.forward
}

// ensureLocale fills Locale and CleanPath when no locale stage ran before.
func (rc *RequestContext) ensureLocale(r *locale.Resolver) {
	if rc.Locale == "" {
		rc.Locale = r.FromRequest(rc.Path, rc.CookieValue(locale.CookieName))
	}
	if rc.CleanPath == "" {
		rc.CleanPath = r.StripLocale(rc.Path)
	}
}

// Response is a terminal answer produced by a stage
type Response struct {
	Status   int
	Location string
	// Reason names why the stage answered; Err is set for failures that
	// are not redirects.
	Reason string
	Err    *apperrors.AppError
}

// Redirect builds a redirect response
func Redirect(status int, location, reason string) *Response {
	return &Response{Status: status, Location: location, Reason: reason}
}

// Fail builds an error response from err
func Fail(err *apperrors.AppError) *Response {
	return &Response{Status: err.Status, Reason: err.Code, Err: err}
}

// IsRedirect reports whether the response is a redirect
func (r *Response) IsRedirect() bool {
	return r.Location != ""
}

// Result is what a stage returns: continue or short-circuit
type Result struct {
	response *Response
}

// Continue hands the request to the next stage
func Continue() Result {
	return Result{}
}

// ShortCircuit ends the chain with resp
func ShortCircuit(resp *Response) Result {
	return Result{response: resp}
}

// Response returns the terminal response, or nil to continue
func (r Result) Response() *Response {
	return r.response
}

// Stage is one step of the gate
type Stage interface {
	Name() string
	Handle(ctx context.Context, rc *RequestContext) Result
}

// Chain runs stages in order until one short-circuits
type Chain struct {
	stages []Stage
	bypass func(path string) bool
	logger *zap.Logger
}

// NewChain composes stages in the given order
func NewChain(logger *zap.Logger, stages ...Stage) *Chain {
	return &Chain{stages: stages, logger: logger}
}

// WithBypass skips every stage for paths where fn returns true
func (c *Chain) WithBypass(fn func(path string) bool) *Chain {
	c.bypass = fn
	return c
}

// Bypassed reports whether path skips the chain entirely
func (c *Chain) Bypassed(path string) bool {
	return c.bypass != nil && c.bypass(path)
}

// Run executes the chain. A nil response means the request passes through
// to the application.
func (c *Chain) Run(ctx context.Context, rc *RequestContext) *Response {
	if c.Bypassed(rc.Path) {
		return nil
	}

	for _, stage := range c.stages {
		resp := stage.Handle(ctx, rc).Response()
		if resp == nil {
			metrics.RecordGateDecision(stage.Name(), "continue")
			continue
		}

		outcome := "redirect"
		if !resp.IsRedirect() {
			outcome = "error"
		}
		metrics.RecordGateDecision(stage.Name(), outcome)
		c.logger.Debug("gate short-circuited",
			zap.String("stage", stage.Name()),
			zap.String("path", rc.Path),
			zap.String("reason", resp.Reason),
			zap.Int("status", resp.Status),
			zap.String("location", resp.Location),
		)
		return resp
	}
	return nil
}

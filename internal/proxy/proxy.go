// Package proxy forwards requests that passed the gate to the application.
package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	apperrors "github.com/alkitu/gatekeeper/pkg/errors"
	"github.com/alkitu/gatekeeper/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Upstream is a reverse proxy to the protected application
type Upstream struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
	logger *zap.Logger
}

// New creates a proxy to the upstream base URL
func New(upstreamURL string, logger *zap.Logger) (*Upstream, error) {
	target, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse upstream URL: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("upstream URL %q must be absolute", upstreamURL)
	}

	u := &Upstream{target: target, logger: logger}
	u.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		ErrorHandler: u.handleError,
	}
	return u, nil
}

// Handle serves the request from the upstream application
func (u *Upstream) Handle(c *gin.Context) {
	u.proxy.ServeHTTP(c.Writer, c.Request)
}

func (u *Upstream) handleError(w http.ResponseWriter, r *http.Request, err error) {
	u.logger.Warn("upstream request failed",
		zap.String("upstream", u.target.Host),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)

	appErr := apperrors.ErrBadGateway
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.Status)
	_ = json.NewEncoder(w).Encode(response.ErrorBody(appErr, w.Header().Get(response.RequestIDHeader)))
}

package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alkitu/gatekeeper/internal/metrics"
	"go.uber.org/zap"
)

// RefreshPath is the path of the refresh endpoint on the application origin
const RefreshPath = "/api/auth/refresh"

// Refresher exchanges a refresh token for a new token pair. Implementations
// return nil on any failure.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) *TokenPair
}

// HTTPRefresher calls the external refresh endpoint
type HTTPRefresher struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewHTTPRefresher creates a refresher for the given application origin.
// The timeout bounds the whole call; there are no retries.
func NewHTTPRefresher(origin string, timeout time.Duration, logger *zap.Logger) *HTTPRefresher {
	return &HTTPRefresher{
		endpoint: strings.TrimRight(origin, "/") + RefreshPath,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh performs a single refresh call
func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) *TokenPair {
	if refreshToken == "" {
		return nil
	}

	start := time.Now()
	pair, err := r.do(ctx, refreshToken)
	if err != nil {
		metrics.RecordRefresh("failure", time.Since(start))
		r.logger.Warn("token refresh failed", zap.Error(err))
		return nil
	}

	metrics.RecordRefresh("success", time.Since(start))
	return pair
}

func (r *HTTPRefresher) do(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call refresh endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("refresh endpoint returned status %d: %s", resp.StatusCode, string(msg))
	}

	var pair TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}

	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil, fmt.Errorf("refresh response is missing tokens")
	}

	return &pair, nil
}

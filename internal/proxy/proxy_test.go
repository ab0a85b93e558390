package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newRequest builds a request with a cancellable context, as the server
// gives every incoming request. ReverseProxy falls back to CloseNotify
// without one, which a ResponseRecorder does not implement.
func newRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
}

func TestNew_InvalidURL(t *testing.T) {
	tests := []string{"", "localhost:3000", "/relative", "://bad"}

	for _, raw := range tests {
		_, err := New(raw, zap.NewNop())
		assert.Error(t, err, raw)
	}
}

func TestUpstream_Forwards(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"path":          r.URL.Path,
			"query":         r.URL.RawQuery,
			"authorization": r.Header.Get("Authorization"),
			"forwardedHost": r.Header.Get("X-Forwarded-Host"),
		})
	}))
	defer upstream.Close()

	u, err := New(upstream.URL, zap.NewNop())
	require.NoError(t, err)

	r := gin.New()
	r.NoRoute(u.Handle)

	req := newRequest(t, "http://app.example.com/es/client/requests?page=2")
	req.Header.Set("Authorization", "Bearer abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "/es/client/requests", body["path"])
	assert.Equal(t, "page=2", body["query"])
	assert.Equal(t, "Bearer abc", body["authorization"])
	assert.Equal(t, "app.example.com", body["forwardedHost"])
}

func TestUpstream_Unavailable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	addr := upstream.URL
	upstream.Close()

	u, err := New(addr, zap.NewNop())
	require.NoError(t, err)

	r := gin.New()
	r.NoRoute(u.Handle)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, newRequest(t, "/es"))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "BAD_GATEWAY")
}

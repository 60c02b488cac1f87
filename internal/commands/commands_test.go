package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Goden-Gun/resilience-lib/pkg/apperr"
	"github.com/Goden-Gun/resilience-lib/pkg/boundary"
	"github.com/Goden-Gun/resilience-lib/pkg/config"
	"github.com/Goden-Gun/resilience-lib/pkg/httpguard"
	"github.com/Goden-Gun/resilience-lib/pkg/logger"
	"github.com/Goden-Gun/resilience-lib/pkg/notify"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestClassify(t *testing.T) {
	tests := []struct {
		args      []string
		code      string
		retryable bool
	}{
		{[]string{"classify", "--status", "503"}, "SERVER_ERROR", true},
		{[]string{"classify", "--status", "404"}, "NOT_FOUND", false},
		{[]string{"classify", "--status", "0", "--message", "refused"}, "NETWORK_ERROR", true},
		{[]string{"classify", "--timeout"}, "TIMEOUT_ERROR", true},
	}
	for _, tc := range tests {
		out, err := runCmd(t, tc.args...)
		require.NoError(t, err, tc.args)
		var d apperr.Details
		require.NoError(t, json.Unmarshal([]byte(out), &d), out)
		assert.Equal(t, tc.code, d.Code, tc.args)
		assert.Equal(t, tc.retryable, d.Retryable, tc.args)
	}

	_, err := runCmd(t, "classify", "--status", "700")
	assert.EqualError(t, err, "invalid status 700")
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Metrics.Enabled = true
	return cfg
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestBuildApp(t *testing.T) {
	a, err := buildApp(context.Background(), testConfig(), logger.Nop(), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(a.close)

	w := get(a.router, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Welcome")

	w = get(a.router, "/blog")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Unable to connect to the content service.")

	w = get(a.router, "/services")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-action="retry"`)

	entries := a.center.Errors()
	require.Len(t, entries, 1)
	assert.Equal(t, "Blog unavailable", entries[0].Title)

	form := url.Values{"email": {"nope"}}
	req := httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	assert.Len(t, a.center.Errors(), 2)

	w = get(a.router, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "resilience_boundary_errors_caught_total")
	assert.Contains(t, w.Body.String(), "resilience_notifications_total")
}

func TestBlogRecoversAfterRetries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	center := notify.NewCenter(notify.Options{Logger: logger.Nop()})
	t.Cleanup(center.Close)
	s := newSite(siteDeps{
		Config: testConfig(),
		Logger: logger.Nop(),
		Center: center,
		Clock:  clock,
	})
	t.Cleanup(s.close)

	r := gin.New()
	r.Use(httpguard.Recovery(httpguard.Options{Center: center, Logger: logger.Nop()}))
	s.register(r)

	assert.Contains(t, get(r, "/blog").Body.String(), "Unable to connect")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	retry := func() {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/blog/retry", nil))
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Contains(t, get(r, "/blog").Body.String(), "Loading content...")
	}

	// The first check finds the content service warming up and chains the
	// next attempt on its own.
	retry()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool {
		snap := s.blog.Snapshot()
		return snap.State == boundary.StateRetrying && snap.RetryCount == 2
	}, time.Second, time.Millisecond)

	// The chained attempt reaches the child, which fails one more time.
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(4 * time.Second)
	require.Eventually(t, func() bool {
		return s.blog.Snapshot().State == boundary.StateErrored
	}, time.Second, time.Millisecond)
	assert.Len(t, center.Errors(), 2)

	retry()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(8 * time.Second)
	require.Eventually(t, func() bool {
		return s.blog.Snapshot().State == boundary.StateNormal
	}, time.Second, time.Millisecond)

	assert.Equal(t, 3, s.blog.Snapshot().RetryCount)
	body := get(r, "/blog").Body.String()
	assert.Contains(t, body, "Containing failures")
	assert.Contains(t, body, `<nav>`)
}

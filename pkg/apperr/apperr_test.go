package apperr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/IBM/sarama"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Goden-Gun/resilience-lib/pkg/codes"
)

func TestFormatErrorFromStatus(t *testing.T) {
	tests := []struct {
		status    int
		code      string
		retryable bool
	}{
		{404, "NOT_FOUND", false},
		{401, "UNAUTHORIZED", false},
		{403, "FORBIDDEN", false},
		{400, "BAD_REQUEST", false},
		{500, "SERVER_ERROR", true},
		{502, "SERVER_ERROR", true},
		{418, "NETWORK_ERROR", true},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			raw := &StatusError{Method: http.MethodGet, URL: "/posts/1", StatusCode: tc.status}
			d := FormatError(raw)
			assert.Equal(t, tc.code, d.Code)
			assert.Equal(t, tc.retryable, d.Retryable)
			assert.NotEmpty(t, d.Title)
			assert.NotEmpty(t, d.Message)

			e := CreateAppError(raw)
			assert.Equal(t, tc.status, e.Status())
			assert.ErrorIs(t, e, raw)
		})
	}
}

func TestNoResponseIsNetwork(t *testing.T) {
	raw := &StatusError{Method: http.MethodGet, URL: "/posts", Err: errors.New("connection refused")}
	d := FormatError(raw)
	assert.Equal(t, "NETWORK_ERROR", d.Code)
	assert.True(t, d.Retryable)
	assert.Equal(t, codes.Network.Message, d.Message)
}

func TestStatusMessagePreferred(t *testing.T) {
	d := FormatError(&StatusError{StatusCode: 403, Message: "members only"})
	assert.Equal(t, "members only", d.Message)
	assert.Equal(t, "Access Denied", d.Title)
}

func TestCreateAppErrorPassthrough(t *testing.T) {
	orig := Validation("title is required")
	assert.Same(t, orig, CreateAppError(orig))
	assert.Same(t, orig, CreateAppError(fmt.Errorf("save: %w", orig)))
	assert.ErrorIs(t, fmt.Errorf("save: %w", orig), ErrValidation)
	assert.NotErrorIs(t, orig, ErrAuth)
}

func TestCreateAppErrorFallbacks(t *testing.T) {
	generic := CreateAppError(errors.New("boom"))
	assert.Equal(t, "UNKNOWN_ERROR", generic.Symbol())
	assert.Equal(t, "boom", generic.Message())
	assert.True(t, generic.Retryable())

	str := CreateAppError("plain text failure")
	assert.Equal(t, "UNKNOWN_ERROR", str.Symbol())
	assert.Equal(t, "plain text failure", str.Message())
	assert.False(t, str.Retryable())

	other := CreateAppError(42)
	assert.Equal(t, "UNKNOWN_ERROR", other.Symbol())
	assert.Equal(t, codes.Unknown.Message, other.Message())
	assert.False(t, other.Retryable())

	assert.Nil(t, CreateAppError(nil))
	assert.Equal(t, Details{}, FormatError(nil))
	assert.False(t, IsRetryable(nil))
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestCreateAppErrorTransports(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), "TIMEOUT_ERROR"},
		{"cancel", context.Canceled, "CANCELLED_ERROR"},
		{"grpc not found", status.Error(grpccodes.NotFound, "no post"), "NOT_FOUND"},
		{"grpc unavailable", status.Error(grpccodes.Unavailable, "down"), "NETWORK_ERROR"},
		{"grpc denied", status.Error(grpccodes.PermissionDenied, "nope"), "FORBIDDEN"},
		{"grpc internal", status.Error(grpccodes.Internal, "bug"), "SERVER_ERROR"},
		{"jwt expired", fmt.Errorf("verify: %w", jwt.ErrTokenExpired), "AUTH_ERROR"},
		{"redis nil", redis.Nil, "NOT_FOUND"},
		{"broker", sarama.ErrOutOfBrokers, "NETWORK_ERROR"},
		{"net timeout", &net.OpError{Op: "dial", Net: "tcp", Err: timeoutErr{}}, "TIMEOUT_ERROR"},
		{"net refused", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, "NETWORK_ERROR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.code, CreateAppError(tc.err).Symbol())
		})
	}

	d := FormatError(status.Error(grpccodes.NotFound, "no such post"))
	assert.Equal(t, "no such post", d.Message)
}

func TestPanicErrorUnwraps(t *testing.T) {
	inner := &StatusError{StatusCode: 404}
	pe := &PanicError{Value: inner}
	assert.Equal(t, "NOT_FOUND", CreateAppError(pe).Symbol())
	assert.Equal(t, inner.Error(), pe.Error())

	str := &PanicError{Value: "render exploded"}
	e := CreateAppError(str)
	assert.Equal(t, "render exploded", e.Message())
	assert.False(t, e.Retryable())

	assert.Equal(t, "panic: 7", (&PanicError{Value: 7}).Error())
}

func TestFromResponse(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://blog.local/posts/9", nil)
	require.NoError(t, err)

	resp := &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader(`{"message":"post 9 is gone"}`)),
		Request:    req,
	}
	got := FromResponse(resp)
	var se *StatusError
	require.ErrorAs(t, got, &se)
	assert.Equal(t, "post 9 is gone", se.Message)
	assert.Equal(t, http.MethodGet, se.Method)
	assert.Equal(t, "http://blog.local/posts/9", se.URL)

	html := &http.Response{StatusCode: 502, Body: io.NopCloser(strings.NewReader("<html>bad gateway</html>"))}
	require.ErrorAs(t, FromResponse(html), &se)
	assert.Empty(t, se.Message)

	assert.NoError(t, FromResponse(&http.Response{StatusCode: 200}))
	assert.NoError(t, FromResponse(nil))
}

func TestFields(t *testing.T) {
	f := Fields(&StatusError{StatusCode: 500, Err: errors.New("upstream")})
	assert.Equal(t, "SERVER_ERROR", f["error_code"])
	assert.Equal(t, 500, f["http_status"])
	assert.Equal(t, true, f["retryable"])
	assert.Contains(t, f["cause"], "status 500")
}

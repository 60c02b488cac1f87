package codes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{400, "BAD_REQUEST"},
		{401, "UNAUTHORIZED"},
		{403, "FORBIDDEN"},
		{404, "NOT_FOUND"},
		{500, "SERVER_ERROR"},
		{503, "SERVER_ERROR"},
		{409, "NETWORK_ERROR"},
		{302, "NETWORK_ERROR"},
		{0, "NETWORK_ERROR"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FromHTTPStatus(tc.status).Symbol, "status %d", tc.status)
	}
}

func TestRegistryRetryPolicy(t *testing.T) {
	retryable := map[string]bool{
		"NETWORK_ERROR":   true,
		"SERVER_ERROR":    true,
		"TIMEOUT_ERROR":   true,
		"CANCELLED_ERROR": true,
	}
	require.Len(t, Registry, 11)
	for _, c := range Registry {
		assert.Equal(t, retryable[c.Symbol], c.Retryable, c.Symbol)
		assert.NotEmpty(t, c.Title, c.Symbol)
		assert.NotEmpty(t, c.Message, c.Symbol)
	}
}

func TestLookup(t *testing.T) {
	c, ok := Lookup("FORBIDDEN")
	require.True(t, ok)
	assert.Equal(t, Forbidden, c)

	_, ok = Lookup("NOPE")
	assert.False(t, ok)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 404, NotFound.HTTPStatus())
	assert.Equal(t, 503, Network.HTTPStatus())
	assert.Equal(t, 422, Validation.HTTPStatus())
	assert.Equal(t, 500, Unknown.HTTPStatus())
	assert.Equal(t, 500, ErrorCode{Numeric: 7}.HTTPStatus())
}

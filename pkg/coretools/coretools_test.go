package coretools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smoreland/sleuth/pkg/toolexecutor"
)

func newRegistry(t *testing.T, opts Options) *toolexecutor.Registry {
	t.Helper()
	registry := toolexecutor.NewRegistry()
	require.NoError(t, Register(registry, opts))
	return registry
}

func TestRegister(t *testing.T) {
	registry := newRegistry(t, Options{})

	assert.Equal(t, 3, registry.Len())
	assert.NotNil(t, registry.Get("current_time"))
	assert.NotNil(t, registry.Get("calculator"))

	fetch := registry.Get("http_fetch")
	require.NotNil(t, fetch)
	assert.True(t, fetch.RequiresApproval, "network access must be approval-gated")
}

func TestRegisterNilRegistry(t *testing.T) {
	assert.Error(t, Register(nil, Options{}))
}

func TestCurrentTime(t *testing.T) {
	registry := newRegistry(t, Options{})
	handler := registry.Get("current_time").Handler

	out, err := handler(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	assert.NotEmpty(t, out)

	out, err = handler(context.Background(), map[string]interface{}{"timezone": "America/New_York"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "EST") || strings.HasSuffix(out, "EDT"), "got: %q", out)

	_, err = handler(context.Background(), map[string]interface{}{"timezone": "Not/AZone"})
	assert.Error(t, err)
}

func TestCalculator(t *testing.T) {
	registry := newRegistry(t, Options{})
	handler := registry.Get("calculator").Handler

	tests := []struct {
		op   string
		a, b interface{}
		want string
	}{
		{"add", 2, 3, "5"},
		{"subtract", float64(10), float64(4), "6"},
		{"multiply", 2.5, float64(4), "10"},
		{"divide", float64(7), float64(2), "3.5"},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			out, err := handler(context.Background(), map[string]interface{}{
				"operation": tt.op, "a": tt.a, "b": tt.b,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCalculatorErrors(t *testing.T) {
	registry := newRegistry(t, Options{})
	handler := registry.Get("calculator").Handler

	_, err := handler(context.Background(), map[string]interface{}{"operation": "divide", "a": float64(1), "b": float64(0)})
	assert.ErrorContains(t, err, "division by zero")

	_, err = handler(context.Background(), map[string]interface{}{"operation": "modulo", "a": float64(1), "b": float64(2)})
	assert.ErrorContains(t, err, "unknown operation")

	_, err = handler(context.Background(), map[string]interface{}{"operation": "add", "a": "one", "b": float64(2)})
	assert.ErrorContains(t, err, "not a number")
}

func TestHTTPFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello from the server"))
	}))
	defer server.Close()

	registry := newRegistry(t, Options{HTTPClient: server.Client()})
	handler := registry.Get("http_fetch").Handler

	out, err := handler(context.Background(), map[string]interface{}{"url": server.URL})
	require.NoError(t, err)
	assert.Equal(t, "hello from the server", out)
}

func TestHTTPFetchRejectsScheme(t *testing.T) {
	registry := newRegistry(t, Options{})
	handler := registry.Get("http_fetch").Handler

	_, err := handler(context.Background(), map[string]interface{}{"url": "file:///etc/passwd"})
	assert.ErrorContains(t, err, "unsupported URL scheme")
}

func TestHTTPFetchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	registry := newRegistry(t, Options{HTTPClient: server.Client()})
	handler := registry.Get("http_fetch").Handler

	_, err := handler(context.Background(), map[string]interface{}{"url": server.URL})
	assert.ErrorContains(t, err, "status 403")
}

func TestHTTPFetchBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer server.Close()

	registry := newRegistry(t, Options{HTTPClient: server.Client(), MaxFetchBytes: 100})
	handler := registry.Get("http_fetch").Handler

	out, err := handler(context.Background(), map[string]interface{}{"url": server.URL})
	require.NoError(t, err)
	assert.Len(t, out, 100)
}

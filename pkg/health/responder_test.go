package health

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/core-tools/hsu-bot/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestLogger struct{}

func (l *TestLogger) LogLevelf(level int, format string, args ...interface{}) {}
func (l *TestLogger) Debugf(format string, args ...interface{})               {}
func (l *TestLogger) Infof(format string, args ...interface{})                {}
func (l *TestLogger) Warnf(format string, args ...interface{})                {}
func (l *TestLogger) Errorf(format string, args ...interface{})               {}

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"liveness", http.MethodGet, "/health", http.StatusOK, "OK"},
		{"root", http.MethodGet, "/", http.StatusNotFound, ""},
		{"other path", http.MethodGet, "/anything-else", http.StatusNotFound, ""},
		{"health subpath", http.MethodGet, "/health/deep", http.StatusNotFound, ""},
		{"post", http.MethodPost, "/health", http.StatusNotFound, ""},
		{"head", http.MethodHead, "/health", http.StatusNotFound, ""},
		{"delete", http.MethodDelete, "/other", http.StatusNotFound, ""},
		{"query string", http.MethodGet, "/health?x=1", http.StatusNotFound, ""},
		{"empty query", http.MethodGet, "/health?", http.StatusNotFound, ""},
		{"absolute form", http.MethodGet, "http://elsewhere/health", http.StatusNotFound, ""},
	}

	handler := Handler()

	// Run twice to show responses do not depend on earlier requests
	for round := 0; round < 2; round++ {
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				var body io.Reader
				if tt.method == http.MethodPost {
					body = strings.NewReader("ignored")
				}
				req := httptest.NewRequest(tt.method, tt.path, body)
				rec := httptest.NewRecorder()

				handler.ServeHTTP(rec, req)

				assert.Equal(t, tt.wantStatus, rec.Code)
				assert.Equal(t, tt.wantBody, rec.Body.String())
			})
		}
	}
}

func TestResponder_StartAndShutdown(t *testing.T) {
	responder := NewResponder(ResponderOptions{Host: "127.0.0.1", Port: 0}, &TestLogger{})

	require.NoError(t, responder.Start())
	assert.True(t, responder.Listening())
	require.NotNil(t, responder.Addr())

	resp, err := http.Get("http://" + responder.Addr().String() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))

	resp, err = http.Get("http://" + responder.Addr().String() + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, responder.Shutdown(ctx))

	select {
	case <-responder.Done():
	case <-time.After(time.Second):
		t.Fatal("responder goroutine did not exit")
	}
	assert.False(t, responder.Listening())
}

func TestResponder_PortInUse(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	port := occupied.Addr().(*net.TCPAddr).Port
	responder := NewResponder(ResponderOptions{Host: "127.0.0.1", Port: port}, &TestLogger{})

	err = responder.Start()
	require.Error(t, err)
	assert.True(t, errors.IsNetworkError(err))
	assert.False(t, responder.Listening())
	assert.Nil(t, responder.Addr())

	select {
	case <-responder.Done():
	default:
		t.Fatal("done should be closed after a bind failure")
	}

	// Shutdown of a responder that never bound is a no-op
	assert.NoError(t, responder.Shutdown(context.Background()))
}

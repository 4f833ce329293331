package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/notebook/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	d, err := store.Select("", t.TempDir())
	require.NoError(t, err)
	st, err := store.Open(ctx, d, logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	_, err = st.Prepare(ctx, logger)
	require.NoError(t, err)
	return st
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestServer_Routes(t *testing.T) {
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>notebook</html>"), 0o644))

	s, err := New(Config{StaticDir: static}, slog.New(slog.NewTextHandler(io.Discard, nil)), newTestStore(t))
	require.NoError(t, err)
	h := s.Handler()

	rr := get(t, h, "/api/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","store":"sqlite"}`, rr.Body.String())

	rr = get(t, h, "/api/notes")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = get(t, h, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	rr = get(t, h, "/notes/3")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "<html>notebook</html>", rr.Body.String())
}

func TestServer_APIOnlyWithoutStaticDir(t *testing.T) {
	s, err := New(Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)), newTestStore(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, s.config.Port)

	rr := get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_BadStaticDir(t *testing.T) {
	_, err := New(Config{StaticDir: t.TempDir()}, slog.New(slog.NewTextHandler(io.Discard, nil)), newTestStore(t))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "static dir"))
}

func TestServer_StartStopsOnContextCancel(t *testing.T) {
	s, err := New(Config{Port: 0}, slog.New(slog.NewTextHandler(io.Discard, nil)), newTestStore(t))
	require.NoError(t, err)
	// Port 0 was replaced by the default; pick a free one instead.
	l, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s.config.Port = l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancel")
	}
}

package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_Run_InvalidMode(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	ts.cfg.Mode = "invalid"

	err := ts.server.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported mode")
}

func TestServer_Run_ServerModeStopsOnCancel(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	ts.cfg.Mode = "server"
	ts.cfg.Host = "127.0.0.1"
	ts.cfg.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ts.server.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the context was cancelled")
	}
}

func TestServer_Router(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	ts.server.metrics.StampsApplied(2, 1)

	sse := server.NewSSEServer(ts.server.mcpServer)
	srv := httptest.NewServer(ts.server.Router(sse))
	defer srv.Close()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/healthz")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "test-server", body["server"])
	})

	t.Run("metrics", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "notam_stamps_total 2")
		assert.Contains(t, string(body), "notam_unmatched_identifiers_total 1")
	})

	t.Run("message endpoint rejects GET", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/message")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("unknown route", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/pdf_read_file")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-notam-briefing/internal/metrics"
	"github.com/a3tai/mcp-notam-briefing/internal/notam"
	pdferrors "github.com/a3tai/mcp-notam-briefing/internal/pdf/errors"
)

const testKey = "secret-test-key"

func geminiReply(text string) string {
	out, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return string(out)
}

func newTestClient(t *testing.T, url string) *GeminiClient {
	t.Helper()
	c, err := NewGeminiClient(GeminiOptions{
		BaseURL:           url,
		APIKey:            testKey,
		RequestsPerSecond: 1000,
		Burst:             100,
	}, metrics.New(), nil)
	require.NoError(t, err)
	return c
}

func TestNewGeminiClient_MissingKey(t *testing.T) {
	_, err := NewGeminiClient(GeminiOptions{APIKey: "  "}, nil, nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGeminiClient_Classify(t *testing.T) {
	var got gmReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, testKey, r.URL.Query().Get("key"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))

		fmt.Fprint(w, geminiReply("```json\n{\"1A293/26\": \"[ RWY | 003 ]\"}\n```"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	tags, err := c.Classify(context.Background(), "1A293/26 NOTAMN\nE) RWY 09 CLSD")
	require.NoError(t, err)
	assert.Equal(t, notam.TagMap{"1A293/26": "[ RWY | 003 ]"}, tags)

	require.Len(t, got.Contents, 1)
	assert.Contains(t, got.Contents[0].Parts[0].Text, "1A293/26 NOTAMN")
	require.NotNil(t, got.GenerationConfig)
	assert.Equal(t, "application/json", got.GenerationConfig.ResponseMIMEType)
}

func TestGeminiClient_Summarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gmReq
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Nil(t, req.GenerationConfig)

		fmt.Fprint(w, geminiReply("- **RWY 09/27 CLOSED**"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	summary, err := c.Summarize(context.Background(), "E) RWY 09/27 CLSD")
	require.NoError(t, err)
	assert.Equal(t, "- **RWY 09/27 CLOSED**", summary)
}

func TestGeminiClient_BadReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, geminiReply("I cannot help with that."))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Classify(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, pdferrors.KindOracleResponse, pdferrors.KindOf(err))
}

func TestGeminiClient_EmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates": []}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Summarize(context.Background(), "text")
	assert.Equal(t, pdferrors.KindOracleResponse, pdferrors.KindOf(err))
}

func TestGeminiClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Classify(context.Background(), "text")
	require.Error(t, err)

	var unavailable *UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, http.StatusServiceUnavailable, unavailable.Status)
	assert.Equal(t, pdferrors.KindOracleUnavailable, pdferrors.KindOf(err))
}

func TestGeminiClient_TransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url)
	_, err := c.Summarize(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, pdferrors.KindOracleUnavailable, pdferrors.KindOf(err))
	assert.NotContains(t, err.Error(), testKey)
}

func TestGeminiClient_CircuitBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	for i := 0; i < 5; i++ {
		_, err := c.Summarize(context.Background(), "text")
		require.Error(t, err)
	}

	_, err := c.Summarize(context.Background(), "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, pdferrors.KindOracleUnavailable, pdferrors.KindOf(err))
	assert.Equal(t, int32(5), hits.Load())
}

func TestGeminiClient_BadRepliesDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	for i := 0; i < 8; i++ {
		_, err := c.Summarize(context.Background(), "text")
		assert.Equal(t, pdferrors.KindOracleResponse, pdferrors.KindOf(err))
	}
}

func TestGeminiClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, geminiReply("{}"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Classify(ctx, "text")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGeminiClient_SatisfiesOracleTypes(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0")
	var classify Classifier = c.Classify
	var summarize Summarizer = c.Summarize
	assert.NotNil(t, classify)
	assert.NotNil(t, summarize)
	assert.Equal(t, DefaultGeminiModel, c.Model())
}

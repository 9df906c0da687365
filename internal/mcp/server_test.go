package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-notam-briefing/internal/config"
	"github.com/a3tai/mcp-notam-briefing/internal/metrics"
	"github.com/a3tai/mcp-notam-briefing/internal/notam"
	"github.com/a3tai/mcp-notam-briefing/internal/oracle"
	"github.com/a3tai/mcp-notam-briefing/internal/pdf"
	"github.com/a3tai/mcp-notam-briefing/internal/pdf/pdftest"
)

// briefingPack builds n pages, each headed by notice A000n/26
func briefingPack(n int) []byte {
	pages := make([]pdftest.Page, n)
	for i := range pages {
		pages[i] = pdftest.NewPage(
			pdftest.At(36, 100, fmt.Sprintf("A%04d/26 NOTAMN", i+1)),
			pdftest.At(36, 112, "Q) EGTT/QMRLC/IV/NBO/A/000/999"),
			pdftest.At(36, 124, "E) RWY 09L/27R CLSD DUE TO WIP"),
		)
	}
	return pdftest.Build(pages...)
}

func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.PDFDirectory = dir
	cfg.ServerName = "test-server"
	cfg.Version = "1.0.0"
	cfg.MaxFileSize = 10 * 1024 * 1024
	return cfg
}

type testServer struct {
	dir    string
	cfg    *config.Config
	server *Server
}

func newTestServer(t *testing.T, classifier oracle.Classifier, summarizer oracle.Summarizer) *testServer {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pack.pdf"), briefingPack(3), 0o644))

	cfg := testConfig(dir)
	recorder := metrics.New()
	svc, err := pdf.NewService(pdf.ServiceConfig{
		Directory:     cfg.PDFDirectory,
		MaxFileSize:   cfg.MaxFileSize,
		TextPageLimit: cfg.TextPageLimit,
		Layout:        cfg.StampLayout(),
	}, classifier, summarizer, recorder, zap.NewNop())
	require.NoError(t, err)

	server, err := NewServer(cfg, svc, recorder, zap.NewNop())
	require.NoError(t, err)

	return &testServer{dir: dir, cfg: cfg, server: server}
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestNewServer(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	svc, err := pdf.NewService(pdf.ServiceConfig{
		Directory:   dir,
		MaxFileSize: cfg.MaxFileSize,
		Layout:      cfg.StampLayout(),
	}, nil, nil, nil, nil)
	require.NoError(t, err)

	server, err := NewServer(cfg, svc, nil, nil)
	require.NoError(t, err)
	assert.Same(t, cfg, server.config)
	assert.Same(t, svc, server.pdfService)
	assert.NotNil(t, server.mcpServer)
	assert.NotNil(t, server.logger)

	_, err = NewServer(cfg, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewServer(nil, svc, nil, nil)
	assert.Error(t, err)
}

func TestServer_HandleCropPages(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	result, err := ts.server.handleCropPages(context.Background(), callRequest(map[string]interface{}{
		"path":  "pack.pdf",
		"pages": "1,3",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))

	text := extractTextFromResult(result)
	assert.Contains(t, text, "Pages retained: 2 of 3 (1,3)")
	assert.Contains(t, text, "Clean_pack.pdf")

	_, err = os.Stat(filepath.Join(ts.dir, "Clean_pack.pdf"))
	assert.NoError(t, err)
}

func TestServer_HandleCropPagesErrors(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{name: "missing path", args: map[string]interface{}{}, want: "path"},
		{name: "malformed range", args: map[string]interface{}{"path": "pack.pdf", "pages": "one"}, want: "invalid page range token"},
		{name: "empty selection", args: map[string]interface{}{"path": "pack.pdf", "pages": "7-9"}, want: "no valid pages selected"},
		{name: "outside directory", args: map[string]interface{}{"path": "../pack.pdf"}, want: "outside configured directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ts.server.handleCropPages(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, extractTextFromResult(result), tt.want)
		})
	}
}

func TestServer_HandleExtractText(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	result, err := ts.server.handleExtractText(context.Background(), callRequest(map[string]interface{}{
		"path": "pack.pdf",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))

	text := extractTextFromResult(result)
	assert.Contains(t, text, "Pages read: 3 of 3")
	assert.Contains(t, text, "Pages with relevant keywords: 3 of 3 (1, 2, 3)")
	assert.Contains(t, text, "--- PAGE 2 ---")
}

func TestServer_HandleBrief(t *testing.T) {
	summarizer := func(ctx context.Context, text string) (string, error) {
		return "EGLL: RWY 09L/27R closed for works.", nil
	}
	ts := newTestServer(t, nil, summarizer)

	result, err := ts.server.handleBrief(context.Background(), callRequest(map[string]interface{}{
		"path": "pack.pdf",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))
	assert.Contains(t, extractTextFromResult(result), "RWY 09L/27R closed for works")
}

func TestServer_HandleBriefWithoutOracle(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	result, err := ts.server.handleBrief(context.Background(), callRequest(map[string]interface{}{
		"path": "pack.pdf",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractTextFromResult(result), "ORACLE_UNAVAILABLE")
}

func TestServer_HandleAnnotate(t *testing.T) {
	classifier := func(ctx context.Context, text string) (notam.TagMap, error) {
		return notam.TagMap{"A0001/26": "[ RWY | 005 ]", "A0003/26": "[ RWY | 000 ]", "B0404/26": "[ IRR | --- ]"}, nil
	}
	ts := newTestServer(t, classifier, nil)

	result, err := ts.server.handleAnnotate(context.Background(), callRequest(map[string]interface{}{
		"path": "pack.pdf",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))

	text := extractTextFromResult(result)
	assert.Contains(t, text, "Stamped: 2 of 3 identifiers")
	assert.Contains(t, text, "page 1: A0001/26 [ RWY | 005 ]")
	assert.Contains(t, text, "page 3: A0003/26 [ RWY | 000 ]")
	assert.Contains(t, text, "No header found for: B0404/26")

	_, err = os.Stat(filepath.Join(ts.dir, "Annotated_pack.pdf"))
	assert.NoError(t, err)
}

func TestServer_HandleAnnotateSelectionKeepsAllPages(t *testing.T) {
	classifier := func(ctx context.Context, text string) (notam.TagMap, error) {
		return notam.TagMap{"A0002/26": "[ RWY | 001 ]"}, nil
	}
	ts := newTestServer(t, classifier, nil)

	result, err := ts.server.handleAnnotate(context.Background(), callRequest(map[string]interface{}{
		"path":  "pack.pdf",
		"pages": "2",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractTextFromResult(result))
	assert.Contains(t, extractTextFromResult(result), "page 2: A0002/26 [ RWY | 001 ]")

	out, err := pdf.LoadDocumentFile(filepath.Join(ts.dir, "Annotated_pack.pdf"), ts.cfg.MaxFileSize)
	require.NoError(t, err)
	assert.Equal(t, 3, out.PageCount())
}

func TestServer_HandleStampTags(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	tests := []struct {
		name string
		tags interface{}
		want string
	}{
		{
			name: "object argument",
			tags: map[string]interface{}{"A0002/26": "[ TWY | 001 ]"},
			want: "page 2: A0002/26 [ TWY | 001 ]",
		},
		{
			name: "json string argument",
			tags: `{"A0002/26": "[ NAV | 010 ]"}`,
			want: "page 2: A0002/26 [ NAV | 010 ]",
		},
		{
			name: "padded identifier and tag",
			tags: map[string]interface{}{" A0002/26 ": "  [ NAV | 010 ] "},
			want: "page 2: A0002/26 [ NAV | 010 ]",
		},
		{
			name: "blank tag",
			tags: map[string]interface{}{"A0001/26": " ", "A0002/26": "[ TWY | 001 ]"},
			want: "Not stamped, empty tag: A0001/26",
		},
		{
			name: "free text tag",
			tags: map[string]interface{}{"A0001/26": "check"},
			want: "Stamped as given",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ts.server.handleStampTags(context.Background(), callRequest(map[string]interface{}{
				"path": "pack.pdf",
				"tags": tt.tags,
			}))
			require.NoError(t, err)
			require.False(t, result.IsError, extractTextFromResult(result))
			assert.Contains(t, extractTextFromResult(result), tt.want)
		})
	}
}

func TestServer_HandleStampTagsBadArguments(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	for name, tags := range map[string]interface{}{
		"missing":        nil,
		"not an object":  42,
		"non-string tag": map[string]interface{}{"A0001/26": 3},
		"invalid json":   "{not json",
	} {
		t.Run(name, func(t *testing.T) {
			args := map[string]interface{}{"path": "pack.pdf"}
			if tags != nil {
				args["tags"] = tags
			}
			result, err := ts.server.handleStampTags(context.Background(), callRequest(args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
		})
	}
}

func TestServer_HandleServerInfo(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	result, err := ts.server.handleServerInfo(context.Background(), callRequest(nil))
	require.NoError(t, err)

	text := extractTextFromResult(result)
	assert.Contains(t, text, "test-server v1.0.0")
	assert.Contains(t, text, "Language Model: none")
	assert.Contains(t, text, "1. pack.pdf")
	assert.Contains(t, text, "notam_annotate")
	assert.Contains(t, text, "NOTAM Briefing Server Usage Guide")
}

// extractTextFromResult returns the first text content of a tool result
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}
	return ""
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-notam-briefing/internal/config"
	"github.com/a3tai/mcp-notam-briefing/internal/descriptions"
	"github.com/a3tai/mcp-notam-briefing/internal/metrics"
	"github.com/a3tai/mcp-notam-briefing/internal/oracle"
	"github.com/a3tai/mcp-notam-briefing/internal/pdf"
	pdferrors "github.com/a3tai/mcp-notam-briefing/internal/pdf/errors"
)

const shutdownTimeout = 10 * time.Second

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
	metrics    *metrics.Recorder
	logger     *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service, recorder *metrics.Recorder, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
		metrics:    recorder,
		logger:     logger,
	}
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	pathParam := mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path to the briefing pack PDF, relative to the working directory or absolute"),
	)
	pagesParam := mcp.WithString("pages",
		mcp.Description("Page range such as \"1-3,5\"; empty selects every page"),
	)
	outputParam := mcp.WithString("output_path",
		mcp.Description("Where to write the result; defaults to a prefixed copy next to the source"),
	)

	s.mcpServer.AddTool(mcp.NewTool(descriptions.ToolCropPages,
		mcp.WithDescription(descriptions.CropPagesDescription),
		pathParam, pagesParam, outputParam,
	), s.handleCropPages)

	s.mcpServer.AddTool(mcp.NewTool(descriptions.ToolExtractText,
		mcp.WithDescription(descriptions.ExtractTextDescription),
		pathParam, pagesParam,
	), s.handleExtractText)

	s.mcpServer.AddTool(mcp.NewTool(descriptions.ToolBrief,
		mcp.WithDescription(descriptions.BriefDescription),
		pathParam, pagesParam,
	), s.handleBrief)

	s.mcpServer.AddTool(mcp.NewTool(descriptions.ToolAnnotate,
		mcp.WithDescription(descriptions.AnnotateDescription),
		pathParam,
		mcp.WithString("pages",
			mcp.Description("Page range whose notices are classified, such as \"1-3,5\"; empty selects every page. The whole pack is stamped."),
		),
		outputParam,
	), s.handleAnnotate)

	s.mcpServer.AddTool(mcp.NewTool(descriptions.ToolStampTags,
		mcp.WithDescription(descriptions.StampTagsDescription),
		pathParam,
		mcp.WithObject("tags",
			mcp.Required(),
			mcp.Description("Object mapping notice identifiers to tags, e.g. {\"A1234/26\": \"[ RWY | 012 ]\"}"),
		),
		outputParam,
	), s.handleStampTags)

	s.mcpServer.AddTool(mcp.NewTool(descriptions.ToolServerInfo,
		mcp.WithDescription(descriptions.ServerInfoDescription),
	), s.handleServerInfo)
}

// Handler functions

func (s *Server) handleCropPages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.CropPages(pdf.CropRequest{
		Path:       path,
		Pages:      request.GetString("pages", ""),
		OutputPath: request.GetString("output_path", ""),
	})
	if err != nil {
		return toolError(err), nil
	}

	text := "Cropped briefing pack written\n"
	text += fmt.Sprintf("Output: %s\n", result.OutputPath)
	text += fmt.Sprintf("Pages retained: %d of %d (%s)\n", result.PagesRetained, result.TotalPages, result.Pages)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleExtractText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.ExtractText(pdf.TextRequest{
		Path:  path,
		Pages: request.GetString("pages", ""),
	})
	if err != nil {
		return toolError(err), nil
	}

	text := fmt.Sprintf("Text of %s\n", result.Path)
	text += fmt.Sprintf("Pages read: %d of %d\n", result.PagesRead, result.TotalPages)
	text += formatKeywordPages(result.PagesRead, result.KeywordPages)
	text += "\nContent:\n" + result.Text
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleBrief(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.Brief(ctx, pdf.BriefRequest{
		Path:  path,
		Pages: request.GetString("pages", ""),
	})
	if err != nil {
		return toolError(err), nil
	}

	text := fmt.Sprintf("Briefing for %s\n", result.Path)
	text += fmt.Sprintf("Pages read: %d of %d\n", result.PagesRead, result.TotalPages)
	text += formatKeywordPages(result.PagesRead, result.KeywordPages)
	if result.Truncated {
		text += "Note: the document text was truncated before briefing\n"
	}
	text += "\n" + result.Summary
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleAnnotate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.Annotate(ctx, pdf.AnnotateRequest{
		Path:       path,
		Pages:      request.GetString("pages", ""),
		OutputPath: request.GetString("output_path", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(formatStampResult(result)), nil
}

func (s *Server) handleStampTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags, err := tagsArgument(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.StampTags(pdf.StampTagsRequest{
		Path:       path,
		Tags:       tags,
		OutputPath: request.GetString("output_path", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(formatStampResult(result)), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := s.pdfService.ServerInfo(ctx, s.config.ServerName, s.config.Version)
	return mcp.NewToolResultText(formatServerInfoResult(result)), nil
}

// tagsArgument accepts the tags either as an object or as a JSON string
// holding one, since some clients flatten object arguments. Both forms are
// normalized the way oracle replies are.
func tagsArgument(args map[string]any) (map[string]string, error) {
	raw, ok := args["tags"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("required argument \"tags\" not found")
	}

	var body string
	switch v := raw.(type) {
	case map[string]any:
		for id, tag := range v {
			if _, ok := tag.(string); !ok {
				return nil, fmt.Errorf("tag for %s must be a string", id)
			}
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("tags must be an object of identifier to tag: %w", err)
		}
		body = string(encoded)
	case string:
		body = v
	default:
		return nil, fmt.Errorf("tags must be an object of identifier to tag")
	}

	tags, err := oracle.ParseTagMap(body)
	if err != nil {
		return nil, fmt.Errorf("tags must be an object of identifier to tag: %w", err)
	}
	return tags, nil
}

// toolError reports a pipeline failure to the client, with a hint when the
// user can fix it
func toolError(err error) *mcp.CallToolResult {
	kind := pdferrors.KindOf(err)
	msg := err.Error()
	if kind.IsUserCorrectable() {
		msg += "\n\nThis can be fixed by changing the request: check the page range and the file."
	}
	if errors.Is(err, context.DeadlineExceeded) {
		msg += "\n\nThe language model did not answer in time."
	}
	return mcp.NewToolResultError(msg)
}

func formatKeywordPages(pagesRead int, keywordPages []int) string {
	if len(keywordPages) == 0 {
		return fmt.Sprintf("Pages with relevant keywords: 0 of %d\n", pagesRead)
	}
	pages := make([]string, len(keywordPages))
	for i, p := range keywordPages {
		pages[i] = fmt.Sprint(p)
	}
	return fmt.Sprintf("Pages with relevant keywords: %d of %d (%s)\n",
		len(keywordPages), pagesRead, strings.Join(pages, ", "))
}

func formatStampResult(result *pdf.StampResult) string {
	text := "Annotated briefing pack written\n"
	text += fmt.Sprintf("Output: %s\n", result.OutputPath)
	text += fmt.Sprintf("Stamped: %d of %d identifiers\n", result.Stamped, result.Total)

	if len(result.Placements) > 0 {
		text += "\nStamps:\n"
		for _, pl := range result.Placements {
			text += fmt.Sprintf("  page %d: %s %s\n", pl.Page+1, pl.ID, pl.Tag)
		}
	}
	if len(result.Unmatched) > 0 {
		text += fmt.Sprintf("\nNo header found for: %s\n", strings.Join(result.Unmatched, ", "))
	}
	if len(result.BlankTags) > 0 {
		text += fmt.Sprintf("Not stamped, empty tag: %s\n", strings.Join(result.BlankTags, ", "))
	}
	if len(result.MalformedTags) > 0 {
		text += fmt.Sprintf("Stamped as given (not \"[ TYPE | AGE ]\"): %s\n", strings.Join(result.MalformedTags, ", "))
	}
	if len(result.UnreadablePages) > 0 {
		pages := make([]string, len(result.UnreadablePages))
		for i, p := range result.UnreadablePages {
			pages[i] = fmt.Sprint(p + 1)
		}
		text += fmt.Sprintf("Pages whose text could not be read: %s\n", strings.Join(pages, ", "))
	}
	return text
}

func formatServerInfoResult(result *pdf.ServerInfoResult) string {
	text := fmt.Sprintf("%s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("Default Directory: %s\n", result.DefaultDirectory)
	text += fmt.Sprintf("Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("Language Model: %s\n", result.Oracle)
	text += fmt.Sprintf("Pages Read For Briefing: %d\n", result.TextPageLimit)
	text += fmt.Sprintf("Stamp Layout: header margin %gpt, right inset %gpt, %s %dpt\n\n",
		result.StampLayout.HeaderMargin, result.StampLayout.RightInset,
		result.StampLayout.FontName, result.StampLayout.FontSize)

	if len(result.DirectoryContents) > 0 {
		text += fmt.Sprintf("Directory Contents (%d PDF files found):\n", len(result.DirectoryContents))
		for i, file := range result.DirectoryContents {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryContents)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "Directory Contents: No PDF files found in default directory\n\n"
	}

	text += "Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Description: %s\n", tool.Description)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n" + result.UsageGuidance
	return text
}

// Run starts the MCP server in the configured mode and blocks until ctx is
// done or the transport fails
func (s *Server) Run(ctx context.Context) error {
	switch {
	case s.config.IsServerMode():
		return s.runServerMode(ctx)
	case s.config.IsStdioMode():
		return s.runStdioMode(ctx)
	default:
		return fmt.Errorf("unsupported mode: %s", s.config.Mode)
	}
}

// runStdioMode serves MCP over stdin/stdout. Logs go to stderr.
func (s *Server) runStdioMode(ctx context.Context) error {
	s.logger.Debug("starting stdio transport", zap.String("directory", s.config.PDFDirectory))

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger.Named("stdio")))

	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// Router returns the HTTP routes served in server mode: the SSE transport,
// Prometheus metrics and a health check
func (s *Server) Router(sse *server.SSEServer) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/sse", sse.SSEHandler()).Methods(http.MethodGet)
	r.Handle("/message", sse.MessageHandler()).Methods(http.MethodPost)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"server":  s.config.ServerName,
		"version": s.config.Version,
	})
}

// runServerMode serves MCP over HTTP with server-sent events
func (s *Server) runServerMode(ctx context.Context) error {
	sse := server.NewSSEServer(s.mcpServer,
		server.WithBaseURL("http://"+s.config.Address()),
		server.WithKeepAlive(true),
	)

	httpServer := &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.Router(sse),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP transport listening",
			zap.String("address", s.config.Address()),
			zap.String("sse", "/sse"),
			zap.String("metrics", "/metrics"))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := sse.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("SSE shutdown failed", zap.Error(err))
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}

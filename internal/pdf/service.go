package pdf

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-notam-briefing/internal/descriptions"
	"github.com/a3tai/mcp-notam-briefing/internal/intelligence"
	"github.com/a3tai/mcp-notam-briefing/internal/metrics"
	"github.com/a3tai/mcp-notam-briefing/internal/notam"
	"github.com/a3tai/mcp-notam-briefing/internal/oracle"
	pdferrors "github.com/a3tai/mcp-notam-briefing/internal/pdf/errors"
	"github.com/a3tai/mcp-notam-briefing/internal/pdf/pagerange"
	"github.com/a3tai/mcp-notam-briefing/internal/pdf/security"
	"github.com/a3tai/mcp-notam-briefing/internal/pdf/stamp"
	"github.com/a3tai/mcp-notam-briefing/internal/pdf/textsearch"
)

// AnnotatedPrefix is prepended to the file name of a stamped document
const AnnotatedPrefix = "Annotated_"

const (
	directoryListingLimit   = 100
	directoryListingTimeout = 5 * time.Second
)

// ServiceConfig holds the settings the service needs from the server
// configuration
type ServiceConfig struct {
	Directory     string
	MaxFileSize   int64
	TextPageLimit int
	Layout        stamp.Layout
	// Keywords overrides the keyword scan's default terms
	Keywords []string
	// OracleName describes the configured classifier for ServerInfo
	OracleName string
}

// Service runs the briefing pipelines against documents in the configured
// directory. It holds no per-document state and is safe for concurrent use.
type Service struct {
	cfg        ServiceConfig
	sandbox    *security.Sandbox
	reader     *Reader
	scanner    *intelligence.KeywordScanner
	stamper    *stamp.Stamper
	search     *Search
	classifier oracle.Classifier
	summarizer oracle.Summarizer
	metrics    *metrics.Recorder
	logger     *zap.Logger
}

// NewService creates a service. classifier and summarizer may be nil, in
// which case the operations needing them fail with KindOracleUnavailable.
func NewService(cfg ServiceConfig, classifier oracle.Classifier, summarizer oracle.Summarizer,
	recorder *metrics.Recorder, logger *zap.Logger,
) (*Service, error) {
	if cfg.MaxFileSize <= 0 {
		return nil, fmt.Errorf("maxFileSize must be greater than 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sandbox, err := security.NewSandbox(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path sandbox: %w", err)
	}

	stamper, err := stamp.New(cfg.Layout, logger.Named("stamp"))
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:        cfg,
		sandbox:    sandbox,
		reader:     NewReader(cfg.TextPageLimit, logger.Named("reader")),
		scanner:    intelligence.NewKeywordScanner(cfg.Keywords...),
		stamper:    stamper,
		search:     NewSearch(cfg.MaxFileSize),
		classifier: classifier,
		summarizer: summarizer,
		metrics:    recorder,
		logger:     logger,
	}, nil
}

// Directory returns the absolute working directory
func (s *Service) Directory() string {
	return s.sandbox.Root()
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.cfg.MaxFileSize
}

// LoadDocument reads the PDF at path, which must lie inside the working
// directory
func (s *Service) LoadDocument(path string) (*Document, error) {
	abs, err := s.sandbox.Resolve(path)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.KindDocumentLoad, err, "security validation failed").WithFile(path)
	}
	return LoadDocumentFile(abs, s.cfg.MaxFileSize)
}

// CropPages keeps the selected pages and writes them to a new document
func (s *Service) CropPages(req CropRequest) (*CropResult, error) {
	result, err := s.cropPages(req)
	if err != nil {
		return nil, s.fail("crop", err)
	}
	return result, nil
}

func (s *Service) cropPages(req CropRequest) (*CropResult, error) {
	doc, err := s.LoadDocument(req.Path)
	if err != nil {
		return nil, err
	}
	out, err := s.sandbox.OutputPath(req.Path, CleanPrefix, req.OutputPath)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.KindWrite, err, "security validation failed").WithFile(req.OutputPath)
	}

	cropped, indices, err := doc.CropRange(req.Pages)
	if err != nil {
		return nil, err
	}
	if err := cropped.WriteFile(out); err != nil {
		return nil, err
	}

	s.metrics.CropWritten(len(indices))
	s.logger.Info("cropped document",
		zap.String("source", doc.Name()),
		zap.String("output", out),
		zap.Int("pages_retained", len(indices)),
		zap.Int("total_pages", doc.PageCount()))

	return &CropResult{
		OutputPath:    out,
		PagesRetained: len(indices),
		TotalPages:    doc.PageCount(),
		Pages:         pagerange.Compact(indices),
	}, nil
}

// ExtractText returns the text the oracle would receive for the selection
func (s *Service) ExtractText(req TextRequest) (*TextResult, error) {
	text, scan, err := s.readSelection(req.Path, req.Pages)
	if err != nil {
		return nil, s.fail("extract", err)
	}
	return &TextResult{
		Path:           req.Path,
		Text:           text.Text,
		PagesRead:      text.PagesRead,
		TotalPages:     text.TotalPages,
		KeywordPages:   scan.RelevantPages,
		KeywordMatches: scan.Matches,
	}, nil
}

// Brief asks the summarizer for an operational briefing of the selection
func (s *Service) Brief(ctx context.Context, req BriefRequest) (*BriefResult, error) {
	if s.summarizer == nil {
		return nil, s.fail("brief", pdferrors.New(pdferrors.KindOracleUnavailable, "no language model configured"))
	}

	text, scan, err := s.readSelection(req.Path, req.Pages)
	if err != nil {
		return nil, s.fail("brief", err)
	}

	summary, err := s.summarizer(ctx, text.Text)
	if err != nil {
		return nil, s.fail("brief", fmt.Errorf("briefing failed: %w", err))
	}

	_, truncated := oracle.Truncate(text.Text, oracle.MaxPromptText)
	return &BriefResult{
		Path:         req.Path,
		Summary:      summary,
		PagesRead:    text.PagesRead,
		TotalPages:   text.TotalPages,
		KeywordPages: scan.RelevantPages,
		Truncated:    truncated,
	}, nil
}

// Annotate classifies the notices in the selected pages and stamps the tags
// into the original document. The selection only narrows the text sent to
// the classifier; the output keeps every page of the source. Every selected
// page is read, regardless of the text page limit.
func (s *Service) Annotate(ctx context.Context, req AnnotateRequest) (*StampResult, error) {
	if s.classifier == nil {
		return nil, s.fail("annotate", pdferrors.New(pdferrors.KindOracleUnavailable, "no classifier configured"))
	}

	doc, err := s.LoadDocument(req.Path)
	if err != nil {
		return nil, s.fail("annotate", err)
	}
	selection, err := s.selectPages(doc, req.Pages)
	if err != nil {
		return nil, s.fail("annotate", err)
	}
	text, err := s.reader.ReadAll(selection)
	if err != nil {
		return nil, s.fail("annotate", err)
	}
	scan := s.scanner.Scan(text.Pages)
	s.logger.Info("pages scanned for relevant keywords",
		zap.Int("pages_scanned", scan.PagesScanned),
		zap.Int("relevant_pages", scan.RelevantCount()))

	tags, err := s.classifier(ctx, text.Text)
	if err != nil {
		return nil, s.fail("annotate", fmt.Errorf("classification failed: %w", err))
	}

	result, err := s.stampDocument(doc, tags, req.Path, req.OutputPath)
	if err != nil {
		return nil, s.fail("annotate", err)
	}
	return result, nil
}

// StampTags stamps the request's tags into the whole document
func (s *Service) StampTags(req StampTagsRequest) (*StampResult, error) {
	doc, err := s.LoadDocument(req.Path)
	if err != nil {
		return nil, s.fail("stamp", err)
	}

	result, err := s.stampDocument(doc, notam.TagMap(req.Tags), req.Path, req.OutputPath)
	if err != nil {
		return nil, s.fail("stamp", err)
	}
	return result, nil
}

// readSelection loads path, crops it to pages and extracts the text layer
// of its leading pages
func (s *Service) readSelection(path, pages string) (*ExtractedText, intelligence.KeywordScan, error) {
	doc, err := s.LoadDocument(path)
	if err != nil {
		return nil, intelligence.KeywordScan{}, err
	}
	doc, err = s.selectPages(doc, pages)
	if err != nil {
		return nil, intelligence.KeywordScan{}, err
	}

	text, err := s.reader.Read(doc)
	if err != nil {
		return nil, intelligence.KeywordScan{}, err
	}
	return text, s.scanner.Scan(text.Pages), nil
}

// selectPages crops doc to expr. A blank expression keeps the document as is.
func (s *Service) selectPages(doc *Document, expr string) (*Document, error) {
	if strings.TrimSpace(expr) == "" {
		return doc, nil
	}
	cropped, _, err := doc.CropRange(expr)
	if err != nil {
		return nil, err
	}
	return cropped, nil
}

// stampDocument stamps tags into doc and writes the result. The document's
// content is only replaced once every stamp has been rendered.
func (s *Service) stampDocument(doc *Document, tags notam.TagMap, input, target string) (*StampResult, error) {
	out, err := s.sandbox.OutputPath(input, AnnotatedPrefix, target)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.KindWrite, err, "security validation failed").WithFile(target)
	}

	var malformed []string
	for _, id := range tags.IDs() {
		if strings.TrimSpace(tags[id]) == "" {
			continue
		}
		if !notam.IsWellFormedTag(tags[id]) {
			malformed = append(malformed, id)
			s.logger.Warn("tag is not in [ TYPE | AGE ] form, stamping as given",
				zap.String("id", id), zap.String("tag", tags[id]))
		}
	}

	pages := doc.Pages()
	sizes := make([]textsearch.Size, len(pages))
	for i, p := range pages {
		sizes[i] = textsearch.Size{Width: p.Width, Height: p.Height}
	}

	data, plan, err := s.stamper.Stamp(doc.Bytes(), sizes, tags)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.KindStamp, err, "cannot stamp document").WithFile(doc.Name())
	}
	doc.replace(data)

	if err := doc.WriteFile(out); err != nil {
		return nil, err
	}

	s.metrics.StampsApplied(plan.Stamped(), len(plan.Unmatched))
	if len(plan.Unmatched) > 0 {
		s.logger.Warn("identifiers without a header occurrence", zap.Strings("ids", plan.Unmatched))
	}
	if len(plan.Blank) > 0 {
		s.logger.Warn("identifiers with an empty tag were not stamped", zap.Strings("ids", plan.Blank))
	}
	s.logger.Info("stamped document",
		zap.String("output", out),
		zap.Int("stamped", plan.Stamped()),
		zap.Int("total", plan.Total))

	placements := plan.Placements
	if placements == nil {
		placements = []stamp.Placement{}
	}
	return &StampResult{
		OutputPath:      out,
		Stamped:         plan.Stamped(),
		Total:           plan.Total,
		Unmatched:       plan.Unmatched,
		Placements:      placements,
		MalformedTags:   malformed,
		BlankTags:       plan.Blank,
		UnreadablePages: plan.UnreadablePages,
		Tags:            tags,
		TotalPages:      doc.PageCount(),
	}, nil
}

// fail records a failed invocation and passes err through
func (s *Service) fail(operation string, err error) error {
	kind := pdferrors.KindOf(err)
	s.metrics.PipelineFailed(operation, kind.String())
	s.logger.Warn("pipeline failed",
		zap.String("operation", operation),
		zap.Stringer("kind", kind),
		zap.Error(err))
	return err
}

// ServerInfo returns server information, the tool catalogue and the PDFs in
// the working directory
func (s *Service) ServerInfo(ctx context.Context, serverName, version string) *ServerInfoResult {
	ctx, cancel := context.WithTimeout(ctx, directoryListingTimeout)
	defer cancel()

	contents, err := s.search.FindPDFs(ctx, s.sandbox.Root(), directoryListingLimit)
	if err != nil {
		s.logger.Debug("directory listing unavailable", zap.Error(err))
		contents = []FileInfo{}
	}

	oracleName := s.cfg.OracleName
	if oracleName == "" {
		oracleName = "none"
	}

	layout := s.stamper.Layout()
	return &ServerInfoResult{
		ServerName:       serverName,
		Version:          version,
		DefaultDirectory: s.sandbox.Root(),
		MaxFileSize:      s.cfg.MaxFileSize,
		TextPageLimit:    s.reader.PageLimit(),
		Oracle:           oracleName,
		StampLayout: StampInfo{
			HeaderMargin: layout.HeaderMargin,
			RightInset:   layout.RightInset,
			BaselineLift: layout.BaselineLift,
			FontName:     layout.FontName,
			FontSize:     layout.FontSize,
		},
		AvailableTools:    availableTools(),
		DirectoryContents: contents,
		UsageGuidance:     s.usageGuidance(),
	}
}

func availableTools() []ToolInfo {
	return []ToolInfo{
		{
			Name:        descriptions.ToolCropPages,
			Description: "Keep only the selected pages of a briefing pack",
			Usage:       "Drop weather, flight plan and other non-NOTAM pages before briefing or annotating.",
			Parameters: "path (required): PDF path, relative to the working directory or absolute; " +
				"pages (optional): page range such as 1-3,5; output_path (optional)",
		},
		{
			Name:        descriptions.ToolExtractText,
			Description: "Read the text layer of the leading pages",
			Usage:       "Check what the model will see and which pages mention closures or outages.",
			Parameters:  "path (required); pages (optional)",
		},
		{
			Name:        descriptions.ToolBrief,
			Description: "Summarise the pack into an operational briefing",
			Usage:       "Requires a language model. Crop first for a focused briefing.",
			Parameters:  "path (required); pages (optional)",
		},
		{
			Name:        descriptions.ToolAnnotate,
			Description: "Classify every notice and stamp [ TYPE | AGE ] tags beside its header",
			Usage:       "Produces Annotated_<name>.pdf with the same pages and page sizes. Pages only narrows the text classified.",
			Parameters:  "path (required); pages (optional); output_path (optional)",
		},
		{
			Name:        descriptions.ToolStampTags,
			Description: "Stamp caller-supplied tags beside notice headers",
			Usage:       "Offline and deterministic. Use when the classification is already known.",
			Parameters:  "path (required); tags (required): object of identifier to tag; output_path (optional)",
		},
		{
			Name:        descriptions.ToolServerInfo,
			Description: "Server status, configuration and available briefing packs",
			Usage:       "Run at the start of a session.",
			Parameters:  "none",
		},
	}
}

func (s *Service) usageGuidance() string {
	return `NOTAM Briefing Server Usage Guide:

1. FIND THE PACK:
   - 'directory_contents' lists the PDFs in the working directory

2. TRIM IT:
   - Use 'notam_extract_text' to see which pages mention operational keywords
   - Use 'notam_crop_pages' with a range such as "1-3,5" to keep only those pages

3. BRIEF OR ANNOTATE:
   - 'notam_brief' returns a pilot-oriented summary of the leading pages
   - 'notam_annotate' stamps "[ RWY | 012 ]" style tags beside every notice header
   - 'notam_stamp_tags' stamps tags you supply, without the model

IMPORTANT NOTES:
- Paths are resolved inside the working directory
- Only the first ` + fmt.Sprintf("%d", s.reader.PageLimit()) + ` pages are read for briefing; classification reads every selected page
- Scanned packs without a text layer cannot be briefed or annotated
- The server can handle files up to ` + fmt.Sprintf("%d", s.cfg.MaxFileSize/(1024*1024)) + `MB`
}

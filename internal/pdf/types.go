package pdf

import (
	"github.com/a3tai/mcp-notam-briefing/internal/pdf/stamp"
)

// FileInfo represents information about a PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Request Types

// CropRequest selects the pages of a briefing pack to keep
type CropRequest struct {
	Path string `json:"path"`
	// Pages is a page range expression such as "1-3,5". Empty keeps every page.
	Pages string `json:"pages,omitempty"`
	// OutputPath overrides the default Clean_<name> next to the source
	OutputPath string `json:"output_path,omitempty"`
}

// TextRequest asks for the text layer of a (optionally cropped) pack
type TextRequest struct {
	Path  string `json:"path"`
	Pages string `json:"pages,omitempty"`
}

// BriefRequest asks the oracle for a pilot briefing
type BriefRequest struct {
	Path  string `json:"path"`
	Pages string `json:"pages,omitempty"`
}

// AnnotateRequest classifies every notice and stamps the tags into the pack
type AnnotateRequest struct {
	Path string `json:"path"`
	// Pages narrows the text sent to the classifier. The whole pack is
	// stamped either way.
	Pages      string `json:"pages,omitempty"`
	OutputPath string `json:"output_path,omitempty"`
}

// StampTagsRequest stamps caller-provided tags without consulting the oracle
type StampTagsRequest struct {
	Path       string            `json:"path"`
	Tags       map[string]string `json:"tags"`
	OutputPath string            `json:"output_path,omitempty"`
}

// Response Types

// CropResult reports a written cropped document
type CropResult struct {
	OutputPath    string `json:"output_path"`
	PagesRetained int    `json:"pages_retained"`
	TotalPages    int    `json:"total_pages"`
	// Pages is the retained selection in compact 1-based form, e.g. "1-3,5"
	Pages string `json:"pages"`
}

// TextResult is the text layer sent to the oracle plus the keyword scan
type TextResult struct {
	Path         string `json:"path"`
	Text         string `json:"text"`
	PagesRead    int    `json:"pages_read"`
	TotalPages   int    `json:"total_pages"`
	KeywordPages []int  `json:"keyword_pages"`
	// KeywordMatches counts keyword hits per keyword over the pages read
	KeywordMatches map[string]int `json:"keyword_matches,omitempty"`
}

// BriefResult carries the oracle's briefing
type BriefResult struct {
	Path         string `json:"path"`
	Summary      string `json:"summary"`
	PagesRead    int    `json:"pages_read"`
	TotalPages   int    `json:"total_pages"`
	KeywordPages []int  `json:"keyword_pages"`
	Truncated    bool   `json:"truncated"`
}

// StampResult reports a written annotated document
type StampResult struct {
	OutputPath string            `json:"output_path"`
	Stamped    int               `json:"stamped"`
	Total      int               `json:"total"`
	Unmatched  []string          `json:"unmatched,omitempty"`
	Placements []stamp.Placement `json:"placements"`
	// MalformedTags lists identifiers whose tag is not "[ TYPE | AGE ]";
	// they are stamped as given
	MalformedTags []string `json:"malformed_tags,omitempty"`
	// BlankTags lists identifiers whose tag was empty; they are not stamped
	BlankTags       []string          `json:"blank_tags,omitempty"`
	UnreadablePages []int             `json:"unreadable_pages,omitempty"`
	Tags            map[string]string `json:"tags"`
	TotalPages      int               `json:"total_pages"`
}

// ServerInfoResult represents server information and usage guidance
type ServerInfoResult struct {
	ServerName        string     `json:"server_name"`
	Version           string     `json:"version"`
	DefaultDirectory  string     `json:"default_directory"`
	MaxFileSize       int64      `json:"max_file_size"`
	TextPageLimit     int        `json:"text_page_limit"`
	Oracle            string     `json:"oracle"`
	StampLayout       StampInfo  `json:"stamp_layout"`
	AvailableTools    []ToolInfo `json:"available_tools"`
	DirectoryContents []FileInfo `json:"directory_contents"`
	UsageGuidance     string     `json:"usage_guidance"`
}

// StampInfo is the stamp layout as reported to clients
type StampInfo struct {
	HeaderMargin float64 `json:"header_margin"`
	RightInset   float64 `json:"right_inset"`
	BaselineLift float64 `json:"baseline_lift"`
	FontName     string  `json:"font_name"`
	FontSize     int     `json:"font_size"`
}

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}

package intelligence

import (
	"time"

	"github.com/a3tai/mcp-notam-briefing/internal/notam"
)

// NoticeKind is the NOTAM message type from the header line
type NoticeKind string

const (
	NoticeKindNew     NoticeKind = "NOTAMN"
	NoticeKindReplace NoticeKind = "NOTAMR"
	NoticeKindCancel  NoticeKind = "NOTAMC"
	NoticeKindUnknown NoticeKind = ""
)

// Notice is one NOTAM cut out of a briefing's text layer
type Notice struct {
	ID   string     `json:"id"`
	Kind NoticeKind `json:"kind,omitempty"`
	// QCode is the five letter subject/condition code from item Q, if present
	QCode string `json:"q_code,omitempty"`
	// Start is the item B validity start, zero when missing or unparseable
	Start time.Time `json:"start,omitempty"`
	Body  string    `json:"body"`
	// Page is the 1-based page the header was found on, 0 when unknown
	Page int `json:"page,omitempty"`
}

// HasStart reports whether the notice carries a usable item B
func (n Notice) HasStart() bool {
	return !n.Start.IsZero()
}

// NoticeClassification is the outcome of classifying one notice
type NoticeClassification struct {
	ID         string                 `json:"id"`
	Category   notam.Category         `json:"category"`
	Age        string                 `json:"age"`
	Tag        string                 `json:"tag"`
	Confidence float64                `json:"confidence"`
	Reasons    []ClassificationReason `json:"reasons,omitempty"`
}

// ClassificationReason explains why a particular category was chosen
type ClassificationReason struct {
	Rule       string  `json:"rule"`     // Name of the rule that triggered
	Category   string  `json:"category"` // Type of evidence (keyword, pattern, qcode)
	Evidence   string  `json:"evidence"`
	Confidence float64 `json:"confidence"`
	Weight     float64 `json:"weight"`
}

// ClassificationRule defines a rule for notice classification
type ClassificationRule struct {
	Name     string         `json:"name"`
	Category notam.Category `json:"category"`

	Keywords        []string `json:"keywords,omitempty"`
	KeywordPatterns []string `json:"keyword_patterns,omitempty"` // regex patterns
	// QCodePrefixes match the subject letters of item Q, e.g. "QMR"
	QCodePrefixes []string `json:"q_code_prefixes,omitempty"`

	Weight        float64 `json:"weight"`         // Importance weight (0.0 to 1.0)
	MinConfidence float64 `json:"min_confidence"` // Minimum confidence to trigger

	Description string `json:"description"`
	Priority    int    `json:"priority"`
	Enabled     bool   `json:"enabled"`
}

// ClassificationRuleSet represents a collection of classification rules
type ClassificationRuleSet struct {
	Version     string               `json:"version"`
	Rules       []ClassificationRule `json:"rules"`
	Description string               `json:"description,omitempty"`
}

// ClassificationConfig provides configuration for the rule classifier
type ClassificationConfig struct {
	// MinConfidenceThreshold is the score a category needs to beat IRR
	MinConfidenceThreshold float64 `json:"min_confidence_threshold"`
	KeywordCaseSensitive   bool    `json:"keyword_case_sensitive"`

	EnableCustomRules bool   `json:"enable_custom_rules"`
	CustomRulesPath   string `json:"custom_rules_path,omitempty"`

	// AgePad is the character used to left-pad ages shorter than 3 digits
	AgePad rune `json:"age_pad"`
}

// DefaultClassificationConfig returns a default classification configuration
func DefaultClassificationConfig() ClassificationConfig {
	return ClassificationConfig{
		MinConfidenceThreshold: 0.2,
		KeywordCaseSensitive:   false,
		EnableCustomRules:      false,
		AgePad:                 notam.PadZero,
	}
}

// Package oracle is the boundary to the language model. The pipelines only
// see two function types, Classifier and Summarizer, so the hosted model,
// the offline rule classifier and test stubs are interchangeable.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/a3tai/mcp-notam-briefing/internal/notam"
	pdferrors "github.com/a3tai/mcp-notam-briefing/internal/pdf/errors"
)

// Classifier maps the text of a briefing to a tag for every notice it finds
type Classifier func(ctx context.Context, text string) (notam.TagMap, error)

// Summarizer turns the text of a briefing into a pilot briefing
type Summarizer func(ctx context.Context, text string) (string, error)

// OracleResponseError reports a reply that is not a flat JSON object of
// string values
type OracleResponseError struct {
	Raw string
	Err error
}

// Error implements the error interface
func (e *OracleResponseError) Error() string {
	return fmt.Sprintf("oracle returned an unusable tag map: %v", e.Err)
}

// Unwrap returns the underlying decode error
func (e *OracleResponseError) Unwrap() error {
	return e.Err
}

// ErrorKind implements pdferrors.Kinded
func (e *OracleResponseError) ErrorKind() pdferrors.ErrorKind {
	return pdferrors.KindOracleResponse
}

// UnavailableError reports that the oracle could not be reached or refused
// the request
type UnavailableError struct {
	Status int
	Err    error
}

// Error implements the error interface
func (e *UnavailableError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("oracle unavailable (HTTP %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("oracle unavailable: %v", e.Err)
}

// Unwrap returns the underlying transport error
func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// ErrorKind implements pdferrors.Kinded
func (e *UnavailableError) ErrorKind() pdferrors.ErrorKind {
	return pdferrors.KindOracleUnavailable
}

// ParseTagMap decodes an oracle reply into a tag map. The reply must be a
// JSON object whose values are all strings; a surrounding markdown code
// fence or stray prose around the object is tolerated. Keys and values are
// trimmed. Tag shape is not checked here.
func ParseTagMap(raw string) (notam.TagMap, error) {
	body := extractObject(stripFence(raw))
	if body == "" {
		return nil, &OracleResponseError{Raw: raw, Err: fmt.Errorf("no JSON object in reply")}
	}

	var decoded map[string]string
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return nil, &OracleResponseError{Raw: raw, Err: err}
	}
	if decoded == nil {
		return nil, &OracleResponseError{Raw: raw, Err: fmt.Errorf("reply is null")}
	}

	tags := make(notam.TagMap, len(decoded))
	for id, tag := range decoded {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		tags[id] = strings.TrimSpace(tag)
	}
	return tags, nil
}

// stripFence removes a ```json ... ``` wrapper
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractObject returns the outermost {...} span of s
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

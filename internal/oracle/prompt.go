package oracle

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/a3tai/mcp-notam-briefing/internal/notam"
)

// MaxPromptText is the most document text sent to the model in one prompt
const MaxPromptText = 20000

// Truncate cuts text to at most limit bytes without splitting a rune. The
// second result reports whether anything was cut.
func Truncate(text string, limit int) (string, bool) {
	if len(text) <= limit {
		return text, false
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut], true
}

// BuildClassificationPrompt asks the model for a JSON object mapping every
// notice identifier to its "[ TYPE | AGE ]" tag. today anchors the age
// computation.
func BuildClassificationPrompt(text string, today time.Time) string {
	body, truncated := Truncate(text, MaxPromptText)

	var b strings.Builder
	b.WriteString("TASK: You are an aviation dispatcher preparing an Electronic Flight Bag.\n")
	b.WriteString("Classify every NOTAM in the text below.\n\n")

	b.WriteString("CATEGORIES:\n")
	for _, c := range notam.Categories() {
		fmt.Fprintf(&b, "- %s: %s\n", c, c.Description())
	}

	b.WriteString("\nAGE: whole days between the notice's item B) start (YYMMDDhhmm, UTC) and ")
	fmt.Fprintf(&b, "%s. Write it as exactly 3 digits, left-padded with zeros, capped at %d. ", today.UTC().Format("2006-01-02"), notam.MaxAge)
	fmt.Fprintf(&b, "Use %q when the start is missing.\n\n", notam.UnknownAge)

	b.WriteString("OUTPUT: a single JSON object and nothing else. Keys are the notice identifiers exactly as printed ")
	b.WriteString("(for example 1A293/26). Values have the form ")
	b.WriteString(notam.FormatTag(notam.CategoryRunway, "012"))
	b.WriteString(".\n\nINPUT TEXT:\n")
	b.WriteString(body)
	if truncated {
		b.WriteString("\n(truncated for token limits)")
	}
	b.WriteString("\n")
	return b.String()
}

// BuildBriefingPrompt asks the model for a dense operational summary
func BuildBriefingPrompt(text string) string {
	body, truncated := Truncate(text, MaxPromptText)

	var b strings.Builder
	b.WriteString("TASK: You are an aviation data analyst. Process this text.\n\n")
	b.WriteString("GOAL: Remove administrative fluff and highlight operational risks.\n\n")
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. FILTER: Ignore standard disclaimers, copyrights and blank filler.\n")
	b.WriteString("2. EXTRACT: Keep dates, coordinates, altitudes and specific warnings.\n")
	b.WriteString("3. FORMAT: Output a clean, high-density bulleted list.\n")
	b.WriteString("4. HIGHLIGHT: Put words like PROHIBITED, DANGER or CLOSED in **BOLD CAPS**.\n\n")
	b.WriteString("INPUT TEXT:\n")
	b.WriteString(body)
	if truncated {
		b.WriteString("\n(truncated for token limits)")
	}
	b.WriteString("\n")
	return b.String()
}

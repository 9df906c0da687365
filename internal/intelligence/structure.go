package intelligence

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/a3tai/mcp-notam-briefing/internal/notam"
)

var (
	pageMarkerPattern = regexp.MustCompile(`^--- PAGE (\d+) ---$`)
	kindPattern       = regexp.MustCompile(`\bNOTAM[NRC]\b`)
	qCodePattern      = regexp.MustCompile(`Q\)\s*[A-Z]{4}/(Q[A-Z]{2,4})\b`)
	startPattern      = regexp.MustCompile(`\bB\)\s*(\d{10})\b`)
)

// itemBLayout is the YYMMDDhhmm form of NOTAM item B, always UTC
const itemBLayout = "0601021504"

// SplitNotices cuts a briefing's text layer into notices. A notice starts
// on a line whose first token is a notice identifier and runs until the
// next such line. "--- PAGE n ---" markers, as produced by the text reader,
// set the page number of the notices that follow.
//
// A header repeated later in the text (a notice continued across pages)
// extends the first notice rather than starting a new one.
func SplitNotices(text string) []Notice {
	var notices []*Notice
	byID := make(map[string]*Notice)
	var current *Notice
	page := 0

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if m := pageMarkerPattern.FindStringSubmatch(trimmed); m != nil {
			page, _ = strconv.Atoi(m[1])
			continue
		}

		if id := headerID(trimmed); id != "" {
			if existing, ok := byID[id]; ok {
				current = existing
			} else {
				current = &Notice{ID: id, Page: page}
				byID[id] = current
				notices = append(notices, current)
			}
		}

		if current == nil {
			continue
		}
		if current.Body != "" {
			current.Body += "\n"
		}
		current.Body += trimmed
	}

	out := make([]Notice, len(notices))
	for i, n := range notices {
		n.Kind = noticeKind(n.Body)
		n.QCode = qCode(n.Body)
		n.Start = itemB(n.Body)
		out[i] = *n
	}
	return out
}

// headerID returns the identifier that opens line, or "" when the line does
// not start with one
func headerID(line string) string {
	locs := notam.IDLocations(line)
	if len(locs) == 0 || locs[0][0] != 0 {
		return ""
	}
	return line[locs[0][0]:locs[0][1]]
}

func noticeKind(body string) NoticeKind {
	first, _, _ := strings.Cut(body, "\n")
	switch kindPattern.FindString(first) {
	case "NOTAMN":
		return NoticeKindNew
	case "NOTAMR":
		return NoticeKindReplace
	case "NOTAMC":
		return NoticeKindCancel
	default:
		return NoticeKindUnknown
	}
}

func qCode(body string) string {
	m := qCodePattern.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return m[1]
}

func itemB(body string) time.Time {
	m := startPattern.FindStringSubmatch(body)
	if m == nil {
		return time.Time{}
	}
	t, err := time.ParseInLocation(itemBLayout, m[1], time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// AgeDays returns the whole days elapsed between start and now, never
// negative
func AgeDays(start, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	return int(now.Sub(start).Hours() / 24)
}

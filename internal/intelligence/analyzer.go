package intelligence

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultKeywords are the operational terms that make a page worth reading
func DefaultKeywords() []string {
	return []string{
		"CLOSED", "CLSD", "PROHIBITED", "DANGER", "RESTRICTED",
		"U/S", "UNSERVICEABLE", "NOT AVBL", "OBST", "WIP",
	}
}

// KeywordScan summarizes which pages mention operational keywords
type KeywordScan struct {
	PagesScanned int `json:"pages_scanned"`
	// RelevantPages holds 1-based page numbers in ascending order
	RelevantPages []int          `json:"relevant_pages"`
	Matches       map[string]int `json:"matches"`
}

// RelevantCount returns the number of pages with at least one keyword
func (k KeywordScan) RelevantCount() int {
	return len(k.RelevantPages)
}

// KeywordScanner counts keyword hits per page, case-insensitively and on
// word boundaries
type KeywordScanner struct {
	keywords []string
	pattern  *regexp.Regexp
}

// NewKeywordScanner builds a scanner for keywords, or DefaultKeywords when
// none are given
func NewKeywordScanner(keywords ...string) *KeywordScanner {
	if len(keywords) == 0 {
		keywords = DefaultKeywords()
	}

	// longest first so "NOT AVBL" wins over any shorter overlapping term
	sorted := append([]string(nil), keywords...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	quoted := make([]string, len(sorted))
	for i, kw := range sorted {
		quoted[i] = regexp.QuoteMeta(strings.ToUpper(kw))
	}
	pattern := regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)

	return &KeywordScanner{keywords: keywords, pattern: pattern}
}

// Keywords returns the scanner's keywords
func (s *KeywordScanner) Keywords() []string {
	return append([]string(nil), s.keywords...)
}

// Scan inspects pages, given in page order
func (s *KeywordScanner) Scan(pages []string) KeywordScan {
	scan := KeywordScan{
		PagesScanned:  len(pages),
		RelevantPages: []int{},
		Matches:       make(map[string]int),
	}

	for i, text := range pages {
		hits := s.pattern.FindAllString(text, -1)
		if len(hits) == 0 {
			continue
		}
		scan.RelevantPages = append(scan.RelevantPages, i+1)
		for _, h := range hits {
			scan.Matches[strings.ToUpper(h)]++
		}
	}
	return scan
}

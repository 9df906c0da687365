// Package pagerange parses user page-keep expressions such as "1, 3-5, 10"
// into a sorted set of page indices.
package pagerange

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	pdferrors "github.com/a3tai/mcp-notam-briefing/internal/pdf/errors"
)

// FormatError reports a token that is neither an integer nor an a-b range
type FormatError struct {
	Token string
	Input string
	Err   error
}

// Error implements the error interface
func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid page range token %q in %q: use a format like \"1-5, 8\"", e.Token, e.Input)
}

// Unwrap returns the underlying strconv error, if any
func (e *FormatError) Unwrap() error {
	return e.Err
}

// ErrorKind implements pdferrors.Kinded
func (e *FormatError) ErrorKind() pdferrors.ErrorKind {
	return pdferrors.KindFormat
}

// EmptySelectionError reports that no page survived bounds filtering
type EmptySelectionError struct {
	Input      string
	TotalPages int
}

// Error implements the error interface
func (e *EmptySelectionError) Error() string {
	return fmt.Sprintf("no valid pages selected by %q (document has %d pages)", e.Input, e.TotalPages)
}

// ErrorKind implements pdferrors.Kinded
func (e *EmptySelectionError) ErrorKind() pdferrors.ErrorKind {
	return pdferrors.KindEmptySelection
}

// Parse turns expr into the ascending, de-duplicated 0-based indices of the
// pages to keep in a document of total pages.
//
// Page numbers outside 1..total are dropped silently; a token that does not
// parse fails the whole expression. A reversed range such as "5-2"
// contributes nothing.
func Parse(expr string, total int) ([]int, error) {
	compact := stripSpace(expr)

	selected := make(map[int]struct{})
	for _, token := range strings.Split(compact, ",") {
		start, end, err := parseToken(token)
		if err != nil {
			return nil, &FormatError{Token: token, Input: expr, Err: err}
		}

		// Iteration is clamped to the document so "1-1000000" stays cheap;
		// anything outside would be filtered below anyway.
		lo, hi := max(start, 1), min(end, total)
		for n := lo; n <= hi; n++ {
			selected[n-1] = struct{}{}
		}
	}

	indices := make([]int, 0, len(selected))
	for idx := range selected {
		if idx >= 0 && idx < total {
			indices = append(indices, idx)
		}
	}
	sort.Ints(indices)

	if len(indices) == 0 {
		return nil, &EmptySelectionError{Input: expr, TotalPages: total}
	}
	return indices, nil
}

// All returns the expression selecting every page of a document
func All(total int) string {
	return fmt.Sprintf("1-%d", total)
}

// PageNumbers renders 0-based indices as 1-based page number strings, the
// form pdfcpu expects for its selectedPages arguments
func PageNumbers(indices []int) []string {
	pages := make([]string, len(indices))
	for i, idx := range indices {
		pages[i] = strconv.Itoa(idx + 1)
	}
	return pages
}

// Compact renders sorted 0-based indices back into a 1-based expression,
// collapsing consecutive pages: [0 1 2 4] -> "1-3,5"
func Compact(indices []int) string {
	var parts []string
	for i := 0; i < len(indices); {
		j := i
		for j+1 < len(indices) && indices[j+1] == indices[j]+1 {
			j++
		}
		if i == j {
			parts = append(parts, strconv.Itoa(indices[i]+1))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", indices[i]+1, indices[j]+1))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}

func parseToken(token string) (int, int, error) {
	if !strings.Contains(token, "-") {
		n, err := strconv.Atoi(token)
		if err != nil {
			return 0, 0, err
		}
		return n, n, nil
	}

	bounds := strings.Split(token, "-")
	if len(bounds) != 2 {
		return 0, 0, fmt.Errorf("range must have exactly two bounds")
	}
	start, err := strconv.Atoi(bounds[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := strconv.Atoi(bounds[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

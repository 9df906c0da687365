// Package textsearch locates strings on PDF pages. Glyphs reported by
// ledongthuc/pdf are grouped into baseline rows and searched row by row;
// every coordinate it returns uses a top-left origin with y growing
// downward.
package textsearch

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// baselineTolerance is how far apart (in points) two glyph baselines may be
// and still belong to the same row
const baselineTolerance = 1.0

// gapFactor decides when the horizontal gap between two glyphs, relative to
// the font size, is rendered as a space in the row text
const gapFactor = 0.3

// Size is a page size in points
type Size struct {
	Width  float64
	Height float64
}

// Glyph is one positioned piece of text in PDF user space (origin
// bottom-left, Y is the baseline)
type Glyph struct {
	X    float64
	Y    float64
	W    float64
	Size float64
	S    string
}

// Occurrence is one rendered match of a search string. X0/X1 are the left
// and right edges, Y0 the approximate top and Y1 the baseline.
type Occurrence struct {
	Page int     `json:"page"`
	Text string  `json:"text"`
	X0   float64 `json:"x0"`
	Y0   float64 `json:"y0"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
}

// Line is a row of glyphs sharing a baseline
type Line struct {
	// Baseline in top-left coordinates
	Baseline float64
	Text     string

	glyphs []Glyph
	owner  []int // glyph index for every byte of Text, -1 for inserted spaces
}

// PageText is the searchable text of one page
type PageText struct {
	Index      int
	Width      float64
	Height     float64
	Lines      []*Line
	Unreadable bool
}

// NewPageText groups glyphs into rows ordered top to bottom, each row
// ordered left to right
func NewPageText(index int, size Size, glyphs []Glyph) *PageText {
	pt := &PageText{Index: index, Width: size.Width, Height: size.Height}

	type row struct {
		y      float64
		glyphs []Glyph
	}
	var rows []*row

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		var target *row
		for _, r := range rows {
			if abs(r.y-g.Y) <= baselineTolerance {
				target = r
				break
			}
		}
		if target == nil {
			target = &row{y: g.Y}
			rows = append(rows, target)
		}
		target.glyphs = append(target.glyphs, g)
	}

	// PDF y grows upward, so the top row has the largest baseline
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	for _, r := range rows {
		sort.SliceStable(r.glyphs, func(i, j int) bool { return r.glyphs[i].X < r.glyphs[j].X })
		pt.Lines = append(pt.Lines, newLine(size.Height-r.y, r.glyphs))
	}
	return pt
}

func newLine(baseline float64, glyphs []Glyph) *Line {
	var b strings.Builder
	var owner []int

	for i, g := range glyphs {
		if i > 0 {
			prev := glyphs[i-1]
			gap := g.X - (prev.X + prev.W)
			if gap > gapFactor*max(g.Size, prev.Size) && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(g.S, " ") {
				b.WriteByte(' ')
				owner = append(owner, -1)
			}
		}
		b.WriteString(g.S)
		for range len(g.S) {
			owner = append(owner, i)
		}
	}

	return &Line{Baseline: baseline, Text: b.String(), glyphs: glyphs, owner: owner}
}

// Find returns every non-overlapping occurrence of needle on the page in
// reading order: rows top to bottom, then left to right within a row
func (p *PageText) Find(needle string) []Occurrence {
	if needle == "" {
		return nil
	}

	var out []Occurrence
	for _, line := range p.Lines {
		from := 0
		for {
			i := strings.Index(line.Text[from:], needle)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(needle)
			if occ, ok := line.occurrence(start, end); ok {
				occ.Page = p.Index
				occ.Text = needle
				out = append(out, occ)
			}
			from = end
		}
	}
	return out
}

func (l *Line) occurrence(start, end int) (Occurrence, bool) {
	first, last := -1, -1
	for i := start; i < end; i++ {
		if l.owner[i] < 0 {
			continue
		}
		if first < 0 {
			first = l.owner[i]
		}
		last = l.owner[i]
	}
	if first < 0 {
		return Occurrence{}, false
	}

	size := 0.0
	for i := first; i <= last; i++ {
		size = max(size, l.glyphs[i].Size)
	}

	g0, g1 := l.glyphs[first], l.glyphs[last]
	return Occurrence{
		X0: g0.X,
		X1: g1.X + g1.W,
		Y0: l.Baseline - size,
		Y1: l.Baseline,
	}, true
}

// PlainText returns the page's rows joined by newlines
func (p *PageText) PlainText() string {
	lines := make([]string, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = l.Text
	}
	return strings.Join(lines, "\n")
}

// Load reads every page of data. sizes holds the page geometry in document
// order; pages whose content stream cannot be interpreted come back empty
// and marked Unreadable.
func Load(data []byte, sizes []Size) ([]*PageText, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for text search: %w", err)
	}

	n := r.NumPage()
	if n != len(sizes) {
		return nil, fmt.Errorf("page count mismatch: text layer has %d pages, geometry has %d", n, len(sizes))
	}

	pages := make([]*PageText, n)
	for i := 0; i < n; i++ {
		glyphs, err := pageGlyphs(r.Page(i + 1))
		if err != nil {
			pages[i] = &PageText{Index: i, Width: sizes[i].Width, Height: sizes[i].Height, Unreadable: true}
			continue
		}
		pages[i] = NewPageText(i, sizes[i], glyphs)
	}
	return pages, nil
}

func pageGlyphs(page pdf.Page) (glyphs []Glyph, err error) {
	defer func() {
		// ledongthuc/pdf panics on malformed content streams
		if r := recover(); r != nil {
			glyphs = nil
			err = fmt.Errorf("cannot interpret page content: %v", r)
		}
	}()

	if page.V.IsNull() {
		return nil, nil
	}

	content := page.Content()
	glyphs = make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, Glyph{X: t.X, Y: t.Y, W: t.W, Size: t.FontSize, S: t.S})
	}
	return glyphs, nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

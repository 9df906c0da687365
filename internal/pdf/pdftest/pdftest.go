// Package pdftest builds small, valid PDF documents in memory for tests.
// Text is drawn with the standard Helvetica font at exact positions so the
// text locator and the stamper can be exercised without fixture files.
package pdftest

import (
	"fmt"
	"strings"
)

// Letter page size in points
const (
	LetterWidth  = 612.0
	LetterHeight = 792.0
)

// glyphWidth is the advance of every glyph in the generated font, in
// thousandths of the font size
const glyphWidth = 556

// Text is one run of text; X and Y are the baseline origin in PDF user
// space (origin bottom-left)
type Text struct {
	X    float64
	Y    float64
	Size float64
	S    string
}

// Page is one page of a generated document
type Page struct {
	Width  float64
	Height float64
	Texts  []Text
}

// NewPage returns a letter-sized page with the given text runs
func NewPage(texts ...Text) Page {
	return Page{Width: LetterWidth, Height: LetterHeight, Texts: texts}
}

// At places s with a 10pt font at (x, y) in top-left coordinates, the same
// orientation the locator reports occurrences in
func At(x, yFromTop float64, s string) Text {
	return Text{X: x, Y: LetterHeight - yFromTop, Size: 10, S: s}
}

// GlyphAdvance returns the advance of one glyph at the given font size
func GlyphAdvance(size float64) float64 {
	return glyphWidth * size / 1000
}

// Build renders pages into a complete PDF file with a correct xref table
func Build(pages ...Page) []byte {
	var b strings.Builder
	offsets := []int{}

	obj := func(body string) {
		offsets = append(offsets, b.Len())
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	b.WriteString("%PDF-1.4\n")

	// 1: catalog, 2: page tree, 3: font, then page/content pairs
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<<\n/Type /Catalog\n/Pages 2 0 R\n>>")
	obj(fmt.Sprintf("<<\n/Type /Pages\n/Kids [%s]\n/Count %d\n>>", strings.Join(kids, " "), len(pages)))
	obj(fontDict())

	for i, p := range pages {
		content := contentStream(p.Texts)
		obj(fmt.Sprintf("<<\n/Type /Page\n/Parent 2 0 R\n/MediaBox [0 0 %s %s]\n/Contents %d 0 R\n"+
			"/Resources <<\n/Font <<\n/F1 3 0 R\n>>\n>>\n>>",
			num(p.Width), num(p.Height), 5+2*i))
		obj(fmt.Sprintf("<<\n/Length %d\n>>\nstream\n%sendstream", len(content), content))
	}

	xrefStart := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<<\n/Size %d\n/Root 1 0 R\n>>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xrefStart)

	return []byte(b.String())
}

// SimplePages builds n letter pages, each carrying the line "Page <n> Text"
func SimplePages(n int) []byte {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = NewPage(At(72, 72, fmt.Sprintf("Page %d Text", i+1)))
	}
	return Build(pages...)
}

func fontDict() string {
	widths := make([]string, 126-32+1)
	for i := range widths {
		widths[i] = fmt.Sprint(glyphWidth)
	}
	return "<<\n/Type /Font\n/Subtype /Type1\n/BaseFont /Helvetica\n/Encoding /WinAnsiEncoding\n" +
		"/FirstChar 32\n/LastChar 126\n/Widths [" + strings.Join(widths, " ") + "]\n>>"
}

func contentStream(texts []Text) string {
	var b strings.Builder
	for _, t := range texts {
		size := t.Size
		if size == 0 {
			size = 10
		}
		fmt.Fprintf(&b, "BT\n/F1 %s Tf\n%s %s Td\n(%s) Tj\nET\n", num(size), num(t.X), num(t.Y), escape(t.S))
	}
	return b.String()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

func num(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}

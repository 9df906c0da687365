package pdf

import (
	"bytes"
	"io"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/mcp-notam-briefing/internal/pdf/errors"
	"github.com/a3tai/mcp-notam-briefing/internal/pdf/pdftest"
	"github.com/a3tai/mcp-notam-briefing/internal/pdf/textsearch"
)

// widthTaggedPDF builds n pages whose widths encode their page number, so
// page order survives cropping in a checkable way
func widthTaggedPDF(n int) []byte {
	pages := make([]pdftest.Page, n)
	for i := range pages {
		pages[i] = pdftest.Page{
			Width:  500 + float64(i+1),
			Height: pdftest.LetterHeight,
			Texts:  []pdftest.Text{pdftest.At(36, 100, "ORIGINAL PAGE")},
		}
	}
	return pdftest.Build(pages...)
}

func TestCrop_KeepsSelectedPagesInOrder(t *testing.T) {
	doc, err := LoadDocument("briefing.pdf", widthTaggedPDF(10))
	require.NoError(t, err)

	cropped, err := doc.Crop([]int{0, 2, 3, 4, 9})
	require.NoError(t, err)

	assert.Equal(t, "Clean_briefing.pdf", cropped.Name())
	require.Equal(t, 5, cropped.PageCount())
	widths := []float64{501, 503, 504, 505, 510}
	for i, w := range widths {
		p, err := cropped.Page(i)
		require.NoError(t, err)
		assert.InDelta(t, w, p.Width, 0.01, "page %d", i)
	}

	// the source is untouched
	assert.Equal(t, 10, doc.PageCount())
}

func TestCrop_PreservesText(t *testing.T) {
	data := pdftest.Build(
		pdftest.NewPage(pdftest.At(36, 100, "A0001/26 NOTAMN")),
		pdftest.NewPage(pdftest.At(36, 100, "COVER SHEET")),
		pdftest.NewPage(pdftest.At(36, 100, "B0002/26 NOTAMN")),
	)
	doc, err := LoadDocument("pack.pdf", data)
	require.NoError(t, err)

	cropped, err := doc.Crop([]int{0, 2})
	require.NoError(t, err)

	sizes := make([]textsearch.Size, cropped.PageCount())
	for i, p := range cropped.Pages() {
		sizes[i] = textsearch.Size{Width: p.Width, Height: p.Height}
	}
	pages, err := textsearch.Load(cropped.Bytes(), sizes)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Contains(t, pages[0].PlainText(), "A0001/26")
	assert.Contains(t, pages[1].PlainText(), "B0002/26")
}

// pageContents returns the decoded content stream of every page
func pageContents(t *testing.T, data []byte) [][]byte {
	t.Helper()

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), newPDFCPUConfig())
	require.NoError(t, err)

	out := make([][]byte, ctx.PageCount)
	for i := range out {
		r, err := pdfcpu.ExtractPageContent(ctx, i+1)
		require.NoError(t, err)
		require.NotNil(t, r, "page %d has no content", i+1)
		out[i], err = io.ReadAll(r)
		require.NoError(t, err)
	}
	return out
}

func TestCrop_TwiceYieldsSamePageContent(t *testing.T) {
	data := pdftest.Build(
		pdftest.NewPage(pdftest.At(36, 100, "A0001/26 NOTAMN")),
		pdftest.NewPage(pdftest.At(36, 100, "COVER SHEET")),
		pdftest.NewPage(pdftest.At(36, 100, "B0002/26 NOTAMN"), pdftest.At(36, 112, "E) TWY A CLSD")),
		pdftest.NewPage(pdftest.At(36, 100, "C0003/26 NOTAMN")),
	)
	doc, err := LoadDocument("pack.pdf", data)
	require.NoError(t, err)

	first, err := doc.Crop([]int{0, 2, 3})
	require.NoError(t, err)
	second, err := doc.Crop([]int{0, 2, 3})
	require.NoError(t, err)

	firstPages := pageContents(t, first.Bytes())
	secondPages := pageContents(t, second.Bytes())
	require.Len(t, firstPages, 3)
	assert.NotEmpty(t, firstPages[0])
	assert.Equal(t, firstPages, secondPages)
	assert.Equal(t, first.Pages(), second.Pages())

	// and each kept page carries its source page's content
	source := pageContents(t, data)
	assert.Equal(t, source[0], firstPages[0])
	assert.Equal(t, source[2], firstPages[1])
	assert.Equal(t, source[3], firstPages[2])
}

func TestCrop_InvalidSelection(t *testing.T) {
	doc, err := LoadDocument("pack.pdf", pdftest.SimplePages(3))
	require.NoError(t, err)

	_, err = doc.Crop(nil)
	assert.True(t, pdferrors.IsKind(err, pdferrors.KindEmptySelection))

	_, err = doc.Crop([]int{0, 3})
	assert.True(t, pdferrors.IsKind(err, pdferrors.KindEmptySelection))
}

func TestCropRange(t *testing.T) {
	doc, err := LoadDocument("pack.pdf", pdftest.SimplePages(10))
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantPages []int
		wantKind  pdferrors.ErrorKind
	}{
		{name: "mixed", expr: "1, 3-5, 10", wantPages: []int{0, 2, 3, 4, 9}},
		{name: "empty keeps all", expr: "  ", wantPages: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{name: "clamped", expr: "8-15", wantPages: []int{7, 8, 9}},
		{name: "malformed", expr: "1,a", wantKind: pdferrors.KindFormat},
		{name: "out of bounds", expr: "11-20", wantKind: pdferrors.KindEmptySelection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cropped, indices, err := doc.CropRange(tt.expr)
			if tt.wantKind != pdferrors.KindUnknown {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, pdferrors.KindOf(err))
				assert.Nil(t, cropped)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPages, indices)
			assert.Equal(t, len(tt.wantPages), cropped.PageCount())
		})
	}
}

package pdf

import (
	"bytes"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	pdferrors "github.com/a3tai/mcp-notam-briefing/internal/pdf/errors"
	"github.com/a3tai/mcp-notam-briefing/internal/pdf/pagerange"
)

// CleanPrefix is prepended to the file name of a cropped document
const CleanPrefix = "Clean_"

// Crop returns a new document holding only the pages at the given sorted,
// 0-based indices, in ascending order. The receiver is left untouched.
func (d *Document) Crop(indices []int) (*Document, error) {
	if len(indices) == 0 {
		return nil, &pagerange.EmptySelectionError{TotalPages: d.PageCount()}
	}
	for _, idx := range indices {
		if idx < 0 || idx >= d.PageCount() {
			return nil, pdferrors.New(pdferrors.KindEmptySelection, "page index out of range").
				WithInput(pagerange.Compact(indices)).WithFile(d.name)
		}
	}

	var buf bytes.Buffer
	if err := api.Trim(d.reader(), &buf, pagerange.PageNumbers(indices), newPDFCPUConfig()); err != nil {
		return nil, pdferrors.Wrap(pdferrors.KindWrite, err, "cannot assemble cropped document").WithFile(d.name)
	}

	out, err := LoadDocument(CleanPrefix+d.name, buf.Bytes())
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CropRange parses expr against the document and crops to the selection.
// An empty expression keeps every page.
func (d *Document) CropRange(expr string) (*Document, []int, error) {
	if strings.TrimSpace(expr) == "" {
		expr = pagerange.All(d.PageCount())
	}

	indices, err := pagerange.Parse(expr, d.PageCount())
	if err != nil {
		return nil, nil, err
	}

	out, err := d.Crop(indices)
	if err != nil {
		return nil, nil, err
	}
	return out, indices, nil
}

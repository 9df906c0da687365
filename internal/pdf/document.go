package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	pdferrors "github.com/a3tai/mcp-notam-briefing/internal/pdf/errors"
)

// PageGeometry is the size of one page in PDF points
type PageGeometry struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Document is a loaded PDF owned by a single pipeline invocation. The page
// count never changes after loading; the stamper replaces the content bytes
// in place once stamping has succeeded.
type Document struct {
	name  string
	data  []byte
	pages []PageGeometry
}

// newPDFCPUConfig returns the configuration every pdfcpu call in this
// package runs with
func newPDFCPUConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// LoadDocument parses data as a PDF. name is used for diagnostics and for
// deriving output file names.
func LoadDocument(name string, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, pdferrors.New(pdferrors.KindDocumentLoad, "document is empty").WithFile(name)
	}

	dims, err := api.PageDims(bytes.NewReader(data), newPDFCPUConfig())
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.KindDocumentLoad, err, "cannot parse PDF").WithFile(name)
	}
	if len(dims) == 0 {
		return nil, pdferrors.New(pdferrors.KindDocumentLoad, "document has no pages").WithFile(name)
	}

	pages := make([]PageGeometry, len(dims))
	for i, d := range dims {
		pages[i] = PageGeometry{Width: d.Width, Height: d.Height}
	}

	owned := make([]byte, len(data))
	copy(owned, data)

	return &Document{name: name, data: owned, pages: pages}, nil
}

// LoadDocumentFile reads and parses the PDF at path, refusing files larger
// than maxFileSize
func LoadDocumentFile(path string, maxFileSize int64) (*Document, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, pdferrors.New(pdferrors.KindDocumentLoad, "file does not exist").WithFile(path)
	}
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.KindDocumentLoad, err, "cannot access file").WithFile(path)
	}
	if info.IsDir() {
		return nil, pdferrors.New(pdferrors.KindDocumentLoad, "path is a directory, not a file").WithFile(path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return nil, pdferrors.New(pdferrors.KindDocumentLoad, "file is not a PDF").WithFile(path)
	}
	if info.Size() > maxFileSize {
		return nil, pdferrors.New(pdferrors.KindDocumentLoad,
			fmt.Sprintf("file too large: %d bytes (max: %d bytes)", info.Size(), maxFileSize)).WithFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.KindDocumentLoad, err, "cannot read file").WithFile(path)
	}
	return LoadDocument(filepath.Base(path), data)
}

// Name returns the document's display name
func (d *Document) Name() string {
	return d.name
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return len(d.pages)
}

// Page returns the geometry of the page at the 0-based index
func (d *Document) Page(index int) (PageGeometry, error) {
	if index < 0 || index >= len(d.pages) {
		return PageGeometry{}, fmt.Errorf("invalid page index %d (document has %d pages)", index, len(d.pages))
	}
	return d.pages[index], nil
}

// Pages returns a copy of every page's geometry
func (d *Document) Pages() []PageGeometry {
	out := make([]PageGeometry, len(d.pages))
	copy(out, d.pages)
	return out
}

// Bytes returns a copy of the current document content
func (d *Document) Bytes() []byte {
	out := make([]byte, len(d.data))
	copy(out, d.data)
	return out
}

// Size returns the content length in bytes
func (d *Document) Size() int {
	return len(d.data)
}

// reader gives pdfcpu a private view of the content; pdfcpu never writes
// through it
func (d *Document) reader() *bytes.Reader {
	return bytes.NewReader(d.data)
}

// replace swaps in new content after a successful in-place mutation
func (d *Document) replace(data []byte) {
	d.data = data
}

// WriteFile writes the current content to path
func (d *Document) WriteFile(path string) error {
	if err := os.WriteFile(path, d.data, 0o644); err != nil {
		return pdferrors.Wrap(pdferrors.KindWrite, err, "cannot write output").WithFile(path)
	}
	return nil
}

package pdf

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	pdferrors "github.com/a3tai/mcp-notam-briefing/internal/pdf/errors"
)

const (
	// DefaultTextPageLimit is how many leading pages are read for the oracle
	DefaultTextPageLimit = 10
	// MinExtractableText is the shortest extraction still treated as a text
	// layer; anything shorter is assumed to be an image scan
	MinExtractableText = 50
)

// ExtractedText is the text layer of a document's pages
type ExtractedText struct {
	// Text holds every non-empty page, each introduced by "--- PAGE n ---"
	Text string
	// Pages holds the raw text of each page read, in page order
	Pages      []string
	PagesRead  int
	TotalPages int
	ImageCount int
}

// Reader extracts the text layer the oracle works from
type Reader struct {
	pageLimit int
	logger    *zap.Logger
}

// NewReader creates a reader for the first pageLimit pages of a document
func NewReader(pageLimit int, logger *zap.Logger) *Reader {
	if pageLimit <= 0 {
		pageLimit = DefaultTextPageLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{pageLimit: pageLimit, logger: logger}
}

// PageLimit returns the number of leading pages read
func (r *Reader) PageLimit() int {
	return r.pageLimit
}

// Read extracts the text of the document's leading pages, up to the page
// limit. A document whose text layer is shorter than MinExtractableText
// fails with KindNoExtractableText.
func (r *Reader) Read(doc *Document) (*ExtractedText, error) {
	return r.read(doc, r.pageLimit)
}

// ReadAll extracts the text of every page, ignoring the page limit.
// Classification uses it so that no notice goes untagged.
func (r *Reader) ReadAll(doc *Document) (*ExtractedText, error) {
	return r.read(doc, doc.PageCount())
}

func (r *Reader) read(doc *Document, pageLimit int) (*ExtractedText, error) {
	pdfReader, err := pdf.NewReader(doc.reader(), int64(doc.Size()))
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.KindDocumentLoad, err, "failed to open PDF").WithFile(doc.Name())
	}

	limit := min(pageLimit, pdfReader.NumPage())
	result := &ExtractedText{
		Pages:      make([]string, 0, limit),
		PagesRead:  limit,
		TotalPages: pdfReader.NumPage(),
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= limit; pageNum++ {
		text, err := pagePlainText(pdfReader.Page(pageNum))
		if err != nil {
			// Continue with other pages even if one fails
			r.logger.Debug("page text unavailable", zap.Int("page", pageNum), zap.Error(err))
		}
		result.Pages = append(result.Pages, text)
		result.ImageCount += countImagesOnPage(pdfReader, pageNum)

		if text == "" {
			continue
		}
		fmt.Fprintf(&builder, "--- PAGE %d ---\n%s\n", pageNum, text)
	}

	result.Text = builder.String()
	if len(result.Text) < MinExtractableText {
		msg := "document has no selectable text, it looks like an image scan"
		if result.ImageCount == 0 {
			msg = "document has no selectable text"
		}
		return nil, pdferrors.New(pdferrors.KindNoExtractableText, msg).WithFile(doc.Name())
	}

	return result, nil
}

func pagePlainText(page pdf.Page) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("cannot interpret page content: %v", rec)
		}
	}()

	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// countImagesOnPage counts image XObjects on a specific page
func countImagesOnPage(pdfReader *pdf.Reader, pageNum int) (count int) {
	defer func() {
		if recover() != nil {
			count = 0
		}
	}()

	page := pdfReader.Page(pageNum)
	if page.V.IsNull() {
		return 0
	}

	resources := page.V.Key("Resources")
	if resources.IsNull() {
		return 0
	}

	xObjects := resources.Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return 0
	}

	for _, key := range xObjects.Keys() {
		subtype := xObjects.Key(key).Key("Subtype")
		if subtype.IsNull() || subtype.Name() != "Image" {
			continue
		}
		count++
	}
	return count
}

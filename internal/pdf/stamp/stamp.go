// Package stamp writes short classification tags next to NOTAM headers.
//
// Stamping runs in two steps. Plan decides, from the page text alone, where
// every tag goes; Apply renders those placements into the PDF with pdfcpu
// text stamps. Plan is pure and deterministic, which keeps the placement
// rules testable without producing documents.
package stamp

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-notam-briefing/internal/notam"
	"github.com/a3tai/mcp-notam-briefing/internal/pdf/textsearch"
)

// Default layout values, in PDF points
const (
	DefaultHeaderMargin = 100.0
	DefaultRightInset   = 130.0
	DefaultBaselineLift = 1.0
	DefaultFontName     = "Helvetica-Bold"
	DefaultFontSize     = 8
	DefaultColor        = "#C00000"
)

// Layout controls which occurrences count as headers and where tags land
type Layout struct {
	// HeaderMargin: only occurrences whose left edge is closer than this
	// to the page's left edge are notice headers. Anything further right is
	// an inline reference in another notice's body.
	HeaderMargin float64
	// RightInset is the distance from the right page edge to the tag's
	// left edge
	RightInset float64
	// BaselineLift raises the tag above the header's baseline
	BaselineLift float64
	FontName     string
	FontSize     int
	Color        string
}

// DefaultLayout returns the layout used for EFB briefing packs
func DefaultLayout() Layout {
	return Layout{
		HeaderMargin: DefaultHeaderMargin,
		RightInset:   DefaultRightInset,
		BaselineLift: DefaultBaselineLift,
		FontName:     DefaultFontName,
		FontSize:     DefaultFontSize,
		Color:        DefaultColor,
	}
}

// Validate checks the layout for values pdfcpu cannot render
func (l Layout) Validate() error {
	if l.HeaderMargin <= 0 {
		return fmt.Errorf("header margin must be positive, got %g", l.HeaderMargin)
	}
	if l.RightInset < 0 {
		return fmt.Errorf("right inset cannot be negative, got %g", l.RightInset)
	}
	if l.FontSize <= 0 {
		return fmt.Errorf("font size must be positive, got %d", l.FontSize)
	}
	if l.FontName == "" {
		return fmt.Errorf("font name cannot be empty")
	}
	return nil
}

// Placement is one tag to be written. X and Y are the tag's left edge and
// baseline in top-left page coordinates.
type Placement struct {
	ID         string                `json:"id"`
	Tag        string                `json:"tag"`
	Page       int                   `json:"page"`
	X          float64               `json:"x"`
	Y          float64               `json:"y"`
	PageHeight float64               `json:"-"`
	Anchor     textsearch.Occurrence `json:"anchor"`
}

// Plan is the outcome of matching a tag map against a document
type Plan struct {
	Placements []Placement `json:"placements"`
	// Unmatched lists identifiers without any header occurrence, sorted
	Unmatched []string `json:"unmatched,omitempty"`
	// Blank lists identifiers whose tag has no printable text, sorted.
	// They are never searched for or stamped.
	Blank []string `json:"blank,omitempty"`
	Total int      `json:"total"`
	// UnreadablePages lists page indices whose text could not be searched
	UnreadablePages []int `json:"unreadable_pages,omitempty"`
}

// Stamped returns how many identifiers received a tag
func (p *Plan) Stamped() int {
	return len(p.Placements)
}

// ByPage groups placements by 0-based page index
func (p *Plan) ByPage() map[int][]Placement {
	out := make(map[int][]Placement)
	for _, pl := range p.Placements {
		out[pl.Page] = append(out[pl.Page], pl)
	}
	return out
}

// stampedSet records identifiers already tagged during one planning run
type stampedSet map[string]struct{}

func (s stampedSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s stampedSet) mark(id string) {
	s[id] = struct{}{}
}

// Stamper places tags according to a Layout
type Stamper struct {
	layout Layout
	logger *zap.Logger
}

// New creates a Stamper. A nil logger disables logging.
func New(layout Layout, logger *zap.Logger) (*Stamper, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stamp layout: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stamper{layout: layout, logger: logger}, nil
}

// Layout returns the stamper's layout
func (s *Stamper) Layout() Layout {
	return s.layout
}

// Plan finds the header occurrence for every identifier in tags.
//
// Pages are scanned in order. An identifier is searched for only while it
// has not been stamped; its first occurrence left of the header margin
// anchors the tag and no later page or occurrence is considered. The
// result does not depend on map iteration order. Identifiers with a blank
// tag are reported in Blank instead.
func (s *Stamper) Plan(pages []*textsearch.PageText, tags notam.TagMap) *Plan {
	all := tags.IDs()
	plan := &Plan{Total: len(all)}
	stamped := make(stampedSet, len(all))

	ids := make([]string, 0, len(all))
	for _, id := range all {
		if stampText(tags[id]) == "" {
			plan.Blank = append(plan.Blank, id)
			continue
		}
		ids = append(ids, id)
	}

	for _, page := range pages {
		if page.Unreadable {
			plan.UnreadablePages = append(plan.UnreadablePages, page.Index)
			continue
		}
		for _, id := range ids {
			if stamped.has(id) {
				continue
			}
			for _, occ := range page.Find(id) {
				if occ.X0 >= s.layout.HeaderMargin {
					continue
				}
				plan.Placements = append(plan.Placements, Placement{
					ID:         id,
					Tag:        tags[id],
					Page:       page.Index,
					X:          page.Width - s.layout.RightInset,
					Y:          occ.Y1 - s.layout.BaselineLift,
					PageHeight: page.Height,
					Anchor:     occ,
				})
				stamped.mark(id)
				break
			}
		}
	}

	for _, id := range ids {
		if !stamped.has(id) {
			plan.Unmatched = append(plan.Unmatched, id)
		}
	}
	return plan
}

// Apply renders the plan's placements into data and returns the new
// document bytes. data itself is never modified.
func (s *Stamper) Apply(data []byte, plan *Plan) ([]byte, error) {
	if len(plan.Placements) == 0 {
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	}

	stamps := make(map[int][]*model.Watermark)
	for _, pl := range plan.Placements {
		text := stampText(pl.Tag)
		if text == "" {
			return nil, fmt.Errorf("empty tag for %s", pl.ID)
		}
		wm, err := api.TextWatermark(text, s.description(pl), true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("failed to build stamp for %s: %w", pl.ID, err)
		}
		stamps[pl.Page+1] = append(stamps[pl.Page+1], wm)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var buf bytes.Buffer
	if err := api.AddWatermarksSliceMap(bytes.NewReader(data), &buf, stamps, conf); err != nil {
		return nil, fmt.Errorf("failed to write stamps: %w", err)
	}
	return buf.Bytes(), nil
}

// Stamp plans and applies tags in one step. sizes holds the page geometry
// of data in document order.
func (s *Stamper) Stamp(data []byte, sizes []textsearch.Size, tags notam.TagMap) ([]byte, *Plan, error) {
	pages, err := textsearch.Load(data, sizes)
	if err != nil {
		return nil, nil, err
	}

	plan := s.Plan(pages, tags)
	for _, pl := range plan.Placements {
		s.logger.Debug("placing stamp",
			zap.String("id", pl.ID),
			zap.String("tag", pl.Tag),
			zap.Int("page", pl.Page+1),
			zap.Float64("x", pl.X),
			zap.Float64("y", pl.Y),
			zap.Float64("anchor_x0", pl.Anchor.X0))
	}
	if len(plan.UnreadablePages) > 0 {
		s.logger.Warn("pages skipped, text could not be read", zap.Ints("pages", plan.UnreadablePages))
	}

	out, err := s.Apply(data, plan)
	if err != nil {
		return nil, nil, err
	}
	return out, plan, nil
}

// description renders a placement as a pdfcpu watermark description.
// pdfcpu anchors at the bottom-left corner, so the top-left y is flipped.
func (s *Stamper) description(pl Placement) string {
	dx := pl.X
	dy := pl.PageHeight - pl.Y
	return fmt.Sprintf("fontname:%s, points:%d, position:bl, offset:%s %s, scalefactor:1 abs, rotation:0, fillcolor:%s",
		s.layout.FontName,
		s.layout.FontSize,
		strconv.FormatFloat(dx, 'f', 2, 64),
		strconv.FormatFloat(dy, 'f', 2, 64),
		s.layout.Color)
}

// stampText keeps oracle-provided tags on a single line
func stampText(tag string) string {
	return strings.Join(strings.Fields(tag), " ")
}

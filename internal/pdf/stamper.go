package pdf

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PlacementKind says what a placement draws.
type PlacementKind string

const (
	PlaceText  PlacementKind = "text"
	PlaceImage PlacementKind = "image"
)

// StampFont is the standard font used for stamped text.
const StampFont = "Helvetica"

// Placement is one item to burn into a page. All coordinates are PDF points
// with the origin at the page's bottom-left.
type Placement struct {
	FieldID string        `json:"fieldId"`
	Page    int           `json:"page"`
	Kind    PlacementKind `json:"kind"`

	// X, Y are the text baseline start, or the lower-left corner of the image.
	X float64 `json:"x"`
	Y float64 `json:"y"`

	Text     string  `json:"text,omitempty"`
	FontSize float64 `json:"fontSize,omitempty"`

	// Width, Height are the drawn image size; ImageScale maps image pixels to points.
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"`
	ImageScale float64 `json:"imageScale,omitempty"`
	Image      []byte  `json:"-"`
	ImageName  string  `json:"imageName,omitempty"`

	// Fallback is drawn instead of the image when it cannot be embedded.
	Fallback *Placement `json:"fallback,omitempty"`
}

// Metadata is written to the document information dictionary. pdfcpu
// stamps its own Producer on every write.
type Metadata struct {
	Title   string
	Creator string
}

// PageSize is the width and height of a page in points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// StampResult is a stamped document plus the fields whose images were
// replaced by their fallback text.
type StampResult struct {
	Data      []byte
	Fallbacks []string
}

// Stamper reads page geometry and writes placements into a document.
type Stamper interface {
	PageSizes(data []byte) ([]PageSize, error)
	Stamp(data []byte, placements []Placement, meta Metadata) (*StampResult, error)
}

// PDFCPUStamper stamps with pdfcpu watermarks placed on top of page content.
type PDFCPUStamper struct {
	conf *model.Configuration
}

// NewPDFCPUStamper returns a stamper using a relaxed pdfcpu configuration.
func NewPDFCPUStamper() *PDFCPUStamper {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFCPUStamper{conf: conf}
}

// PageSizes returns the dimensions of every page, first page first.
func (s *PDFCPUStamper) PageSizes(data []byte) (sizes []PageSize, err error) {
	defer recoverInto(&err, LibraryPDFCPU, "page_dims")

	dims, err := api.PageDims(bytes.NewReader(data), s.conf)
	if err != nil {
		return nil, &Error{Library: LibraryPDFCPU, Op: "page_dims", Err: err}
	}
	if len(dims) == 0 {
		return nil, ErrNoPages
	}

	sizes = make([]PageSize, len(dims))
	for i, d := range dims {
		sizes[i] = PageSize{Width: d.Width, Height: d.Height}
	}
	return sizes, nil
}

// Stamp draws every placement and sets metadata. An image that cannot be
// embedded is replaced by its fallback; any other failure aborts and no
// output is returned.
func (s *PDFCPUStamper) Stamp(data []byte, placements []Placement, meta Metadata) (result *StampResult, err error) {
	defer recoverInto(&err, LibraryPDFCPU, "stamp")

	result = &StampResult{Data: data}

	if len(placements) > 0 {
		stamped, fallbacks, err := s.applyWatermarks(data, placements, false)
		if err != nil && hasImages(placements) {
			// pdfcpu decodes images only while writing; retry with every
			// image swapped for its fallback text.
			stamped, fallbacks, err = s.applyWatermarks(data, placements, true)
		}
		if err != nil {
			return nil, err
		}
		result.Data = stamped
		result.Fallbacks = fallbacks
	}

	props := map[string]string{}
	if meta.Title != "" {
		props["Title"] = meta.Title
	}
	if meta.Creator != "" {
		props["Creator"] = meta.Creator
	}
	if len(props) > 0 {
		var out bytes.Buffer
		if err := api.AddProperties(bytes.NewReader(result.Data), &out, props, s.conf); err != nil {
			return nil, &Error{Library: LibraryPDFCPU, Op: "add_properties", Err: err}
		}
		result.Data = out.Bytes()
	}

	return result, nil
}

func (s *PDFCPUStamper) applyWatermarks(data []byte, placements []Placement, textOnly bool) ([]byte, []string, error) {
	byPage := make(map[int][]*model.Watermark)
	var fallbacks []string

	for _, p := range placements {
		if p.Kind == PlaceImage && (textOnly || !s.imageUsable(p)) {
			if p.Fallback == nil {
				return nil, nil, fmt.Errorf("image for field %s cannot be embedded and has no fallback", p.FieldID)
			}
			fallbacks = append(fallbacks, p.FieldID)
			p = *p.Fallback
		}

		wm, err := s.watermark(p)
		if err != nil {
			return nil, nil, err
		}
		byPage[p.Page] = append(byPage[p.Page], wm)
	}

	var out bytes.Buffer
	if err := api.AddWatermarksSliceMap(bytes.NewReader(data), &out, byPage, s.conf); err != nil {
		return nil, nil, &Error{Library: LibraryPDFCPU, Op: "add_watermarks", Err: err}
	}
	return out.Bytes(), fallbacks, nil
}

func (s *PDFCPUStamper) imageUsable(p Placement) bool {
	if _, err := DecodeImage(p.Image); err != nil {
		return false
	}
	return p.ImageScale > 0 && !math.IsInf(p.ImageScale, 0)
}

func (s *PDFCPUStamper) watermark(p Placement) (*model.Watermark, error) {
	switch p.Kind {
	case PlaceText:
		desc := fmt.Sprintf("fontname:%s, points:%d, position:bl, offset:%s %s, scalefactor:1 abs, rotation:0, fillcolor:#000000, opacity:1",
			StampFont, fontPoints(p.FontSize), num(p.X), num(p.Y))
		wm, err := api.TextWatermark(p.Text, desc, true, false, types.POINTS)
		if err != nil {
			return nil, &Error{Library: LibraryPDFCPU, Op: "text_watermark", Err: err}
		}
		return wm, nil
	case PlaceImage:
		desc := fmt.Sprintf("position:bl, offset:%s %s, scalefactor:%s abs, rotation:0, opacity:1",
			num(p.X), num(p.Y), num(p.ImageScale))
		wm, err := api.ImageWatermarkForReader(bytes.NewReader(p.Image), desc, true, false, types.POINTS)
		if err != nil {
			return nil, &Error{Library: LibraryPDFCPU, Op: "image_watermark", Err: err}
		}
		return wm, nil
	default:
		return nil, fmt.Errorf("unknown placement kind %q", p.Kind)
	}
}

func hasImages(placements []Placement) bool {
	for _, p := range placements {
		if p.Kind == PlaceImage {
			return true
		}
	}
	return false
}

// fontPoints rounds a font size to the whole points pdfcpu accepts.
// fontPoints truncates so the drawn text never exceeds the computed size.
func fontPoints(size float64) int {
	n := int(math.Floor(size + 1e-9))
	if n < 1 {
		return 1
	}
	return n
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// Package pdffake provides in-memory stand-ins for the rendering and
// stamping backends.
package pdffake

import (
	"errors"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdftest"
)

// Rasterizer returns a white page of Width×Height points scaled.
type Rasterizer struct {
	Width, Height float64
	Err           error
}

// RenderPage implements pdf.Rasterizer.
func (r *Rasterizer) RenderPage(_ []byte, page int, scale geometry.Scale) (*image.RGBA, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	if page < 1 {
		return nil, pdf.ErrPageOutOfRange
	}
	w, h := r.Width, r.Height
	if w == 0 {
		w, h = pdftest.LetterWidth, pdftest.LetterHeight
	}
	img := image.NewRGBA(image.Rect(0, 0, int(math.Round(w*float64(scale))), int(math.Round(h*float64(scale)))))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.SetRGBA(0, 0, color.RGBA{A: 0xff})
	return img, nil
}

// Stamper records what it was asked to stamp and returns the input with a
// marker appended.
type Stamper struct {
	Sizes    []pdf.PageSize
	SizesErr error
	StampErr error

	// Block, when set, is waited on inside Stamp.
	Block chan struct{}
	// Entered is closed when Stamp starts.
	Entered chan struct{}

	mu      sync.Mutex
	calls   []Call
	entered sync.Once
}

// Call is one recorded Stamp invocation.
type Call struct {
	Placements []pdf.Placement
	Meta       pdf.Metadata
}

// PageSizes implements pdf.Stamper.
func (s *Stamper) PageSizes([]byte) ([]pdf.PageSize, error) {
	if s.SizesErr != nil {
		return nil, s.SizesErr
	}
	if len(s.Sizes) == 0 {
		return []pdf.PageSize{{Width: pdftest.LetterWidth, Height: pdftest.LetterHeight}}, nil
	}
	return s.Sizes, nil
}

// Stamp implements pdf.Stamper. Image placements whose bytes are not a
// decodable PNG or JPEG are reported as fallbacks, as the real stamper does.
func (s *Stamper) Stamp(data []byte, placements []pdf.Placement, meta pdf.Metadata) (*pdf.StampResult, error) {
	if s.Entered != nil {
		s.entered.Do(func() { close(s.Entered) })
	}
	if s.Block != nil {
		<-s.Block
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Placements: placements, Meta: meta})
	s.mu.Unlock()

	if s.StampErr != nil {
		return nil, s.StampErr
	}

	var fallbacks []string
	for _, p := range placements {
		if p.Kind != pdf.PlaceImage {
			continue
		}
		if _, err := pdf.DecodeImage(p.Image); err != nil {
			if p.Fallback == nil {
				return nil, errors.New("image without fallback")
			}
			fallbacks = append(fallbacks, p.FieldID)
		}
	}

	out := append(append([]byte{}, data...), []byte("\n%stamped\n")...)
	return &pdf.StampResult{Data: out, Fallbacks: fallbacks}, nil
}

// Calls returns the recorded Stamp invocations.
func (s *Stamper) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// FieldReader returns a fixed list of AcroForm fields.
type FieldReader struct {
	Fields []pdf.AcroField
	Err    error
}

// ReadFields implements pdf.FieldReader.
func (f *FieldReader) ReadFields([]byte) ([]pdf.AcroField, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return append([]pdf.AcroField(nil), f.Fields...), nil
}

// Loader returns a pdf.Loader with a real validator and fake backends.
func Loader(r *Rasterizer, s *Stamper) *pdf.Loader {
	return &pdf.Loader{
		Validator:  pdf.NewValidator(0),
		Rasterizer: r,
		Stamper:    s,
		Fields:     &FieldReader{},
	}
}

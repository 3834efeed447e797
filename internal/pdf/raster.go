package pdf

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"

	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
)

// Rasterizer renders one page of a document to an image at a given scale.
// Pages are 1-based.
type Rasterizer interface {
	RenderPage(data []byte, page int, scale geometry.Scale) (*image.RGBA, error)
}

// FitzRasterizer renders pages with MuPDF.
type FitzRasterizer struct{}

// NewFitzRasterizer returns a MuPDF-backed rasterizer.
func NewFitzRasterizer() *FitzRasterizer {
	return &FitzRasterizer{}
}

// RenderPage renders page at scale*72 DPI, so one PDF point maps to scale pixels.
func (FitzRasterizer) RenderPage(data []byte, page int, scale geometry.Scale) (img *image.RGBA, err error) {
	if err := scale.Validate(); err != nil {
		return nil, err
	}

	defer recoverInto(&err, LibraryFitz, "render")

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, &Error{Library: LibraryFitz, Op: "open", Err: err}
	}
	defer doc.Close()

	if page < 1 || page > doc.NumPage() {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, doc.NumPage())
	}

	img, err = doc.ImageDPI(page-1, scale.DPI())
	if err != nil {
		return nil, &Error{Library: LibraryFitz, Op: "render", Err: err}
	}
	return img, nil
}

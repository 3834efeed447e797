package pdf

import (
	"context"
	"fmt"
	"image"

	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
)

// Document is a validated PDF with its first page rendered.
type Document struct {
	Name   string
	Data   []byte
	Info   *Info
	Pages  []PageSize
	Scale  geometry.Scale
	Raster *image.RGBA
}

// PageHeight returns the height in points of a 1-based page.
func (d *Document) PageHeight(page int) (float64, error) {
	if page < 1 || page > len(d.Pages) {
		return 0, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, len(d.Pages))
	}
	return d.Pages[page-1].Height, nil
}

// CanvasSize is the size of the rendered page in pixels.
func (d *Document) CanvasSize() image.Point {
	return d.Raster.Bounds().Size()
}

// Loader runs the validate, measure and render steps shared by both tools.
type Loader struct {
	Validator  *Validator
	Rasterizer Rasterizer
	Stamper    Stamper
	Fields     FieldReader
}

// NewLoader wires the default backends.
func NewLoader(maxFileSize int64) *Loader {
	return &Loader{
		Validator:  NewValidator(maxFileSize),
		Rasterizer: NewFitzRasterizer(),
		Stamper:    NewPDFCPUStamper(),
		Fields:     NewPDFCPUFieldReader(),
	}
}

// Load validates data and renders page 1 at scale. Nothing is kept on failure.
func (l *Loader) Load(ctx context.Context, name string, data []byte, scale geometry.Scale) (*Document, error) {
	if err := scale.Validate(); err != nil {
		return nil, err
	}

	info, err := l.Validator.ValidateBytes(name, data)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pages, err := l.Stamper.PageSizes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read page sizes: %w", err)
	}

	raster, err := l.Rasterizer.RenderPage(data, 1, scale)
	if err != nil {
		return nil, fmt.Errorf("failed to render page 1: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Document{
		Name:   name,
		Data:   data,
		Info:   info,
		Pages:  pages,
		Scale:  scale,
		Raster: raster,
	}, nil
}

// Package geometry holds the two coordinate spaces used by the designer and
// the filler and the single conversion between them.
//
// Canvas space is the rendered page image: pixels, origin top-left, scaled by
// the render scale. PDF space is the page itself: points, origin bottom-left,
// unscaled. Values of one space are never passed where the other is expected;
// ToPDF and ToCanvas are the only crossing points.
package geometry

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// DefaultScale is the render scale used for page rasters unless configured otherwise.
const DefaultScale Scale = 1.5

// PointsPerInch is the PDF user-space unit density.
const PointsPerInch = 72.0

// Scale is the factor between PDF points and canvas pixels.
type Scale float64

// DPI returns the raster resolution that produces this scale.
func (s Scale) DPI() float64 {
	return float64(s) * PointsPerInch
}

// Validate rejects zero, negative and non-finite scales.
func (s Scale) Validate() error {
	f := float64(s)
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return fmt.Errorf("render scale must be a positive finite number, got %v", f)
	}
	return nil
}

// CanvasPoint is a pointer position on the rendered page.
type CanvasPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CanvasRect is an axis-aligned box in canvas space; X,Y is the top-left corner.
type CanvasRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PDFRect is an axis-aligned box in PDF space; X,Y is the bottom-left corner.
type PDFRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether every component is finite and non-negative.
func (r CanvasRect) Valid() bool {
	for _, v := range []float64{r.X, r.Y, r.Width, r.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return true
}

// Below reports whether the rectangle is narrower or shorter than min pixels.
func (r CanvasRect) Below(min float64) bool {
	return r.Width < min || r.Height < min
}

// Right returns the x coordinate of the right edge.
func (r CanvasRect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r CanvasRect) Bottom() float64 { return r.Y + r.Height }

func (r CanvasRect) String() string {
	return fmt.Sprintf("canvas(%.1f,%.1f %.1fx%.1f)", r.X, r.Y, r.Width, r.Height)
}

// Top returns the y coordinate of the top edge.
func (r PDFRect) Top() float64 { return r.Y + r.Height }

func (r PDFRect) String() string {
	return fmt.Sprintf("pdf(%.2f,%.2f %.2fx%.2f)", r.X, r.Y, r.Width, r.Height)
}

// Normalize builds the rectangle spanned by a drag from anchor to current,
// whichever direction the pointer moved.
func Normalize(anchor, current CanvasPoint) CanvasRect {
	box := r2.RectFromPoints(
		r2.Point{X: anchor.X, Y: anchor.Y},
		r2.Point{X: current.X, Y: current.Y},
	)
	return CanvasRect{
		X:      box.X.Lo,
		Y:      box.Y.Lo,
		Width:  box.X.Length(),
		Height: box.Y.Length(),
	}
}

// ToPDF converts a canvas rectangle drawn on a page of pageHeight points
// rendered at scale s. The Y axis flips and the box height is subtracted
// because PDF boxes are anchored at their bottom edge.
func ToPDF(r CanvasRect, pageHeight float64, s Scale) PDFRect {
	f := float64(s)
	return PDFRect{
		X:      r.X / f,
		Y:      pageHeight - (r.Y / f) - (r.Height / f),
		Width:  r.Width / f,
		Height: r.Height / f,
	}
}

// ToCanvas is the inverse of ToPDF.
func ToCanvas(r PDFRect, pageHeight float64, s Scale) CanvasRect {
	f := float64(s)
	return CanvasRect{
		X:      r.X * f,
		Y:      (pageHeight - r.Y - r.Height) * f,
		Width:  r.Width * f,
		Height: r.Height * f,
	}
}

// Package overlay paints field boxes, labels and fill status over a rendered
// page. Every redraw starts from a fresh transparent surface; nothing is
// patched in place.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/a3tai/mcp-pdf-forms/internal/form"
	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
)

const (
	strokeWidth = 2.0
	tagSize     = 9.0
	labelSize   = 11.0
	previewSize = 11.0
	padding     = 4.0
)

var (
	// ValidColor outlines a field that holds a value passing validation.
	ValidColor = color.RGBA{R: 0x22, G: 0xc5, B: 0x5e, A: 0xff}
	// InvalidColor outlines a field with a validation error.
	InvalidColor = color.RGBA{R: 0xdc, G: 0x26, B: 0x26, A: 0xff}
	// GestureColor is used for the in-progress rectangle.
	GestureColor = color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}

	labelColor       = color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}
	placeholderColor = color.RGBA{R: 0x6b, G: 0x72, B: 0x80, A: 0xff}
	valueColor       = color.RGBA{R: 0x11, G: 0x18, B: 0x27, A: 0xff}
)

// FillState carries the filler's values and errors into a redraw. A nil
// FillState paints the designer view.
type FillState struct {
	Data   form.FormData
	Errors map[string]string
}

var (
	monoOnce sync.Once
	monoFont *truetype.Font
	monoErr  error
)

func loadFont() (*truetype.Font, error) {
	monoOnce.Do(func() {
		monoFont, monoErr = truetype.Parse(gomono.TTF)
		if monoErr != nil {
			monoErr = fmt.Errorf("failed to parse font: %w", monoErr)
		}
	})
	return monoFont, monoErr
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Redraw paints fields, then the live gesture rectangle if any, onto a new
// transparent surface of the given size.
func Redraw(size image.Point, fields []form.Field, live *geometry.CanvasRect, state *FillState) (*image.RGBA, error) {
	ttf, err := loadFont()
	if err != nil {
		return nil, err
	}

	surface := image.NewRGBA(image.Rectangle{Max: size})
	dc := gg.NewContextForRGBA(surface)

	tag := face(ttf, tagSize)
	label := face(ttf, labelSize)
	preview := face(ttf, previewSize)

	for _, f := range fields {
		if f.Coordinates == nil {
			continue
		}
		drawField(dc, f, state, tag, label, preview)
	}

	if live != nil {
		drawGesture(dc, *live, label)
	}

	return surface, nil
}

func drawField(dc *gg.Context, f form.Field, state *FillState, tag, label, preview font.Face) {
	r := *f.Coordinates
	kind := f.Kind()
	palette := kind.Colors()

	stroke := palette.Stroke
	text, filled := previewText(f, kind, state)
	if state != nil {
		if _, bad := state.Errors[f.ID]; bad {
			stroke = InvalidColor
		} else if filled {
			stroke = ValidColor
		}
	}

	dc.SetDash()
	dc.SetLineWidth(strokeWidth)
	dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	dc.SetColor(palette.Fill)
	dc.FillPreserve()
	dc.SetColor(stroke)
	dc.Stroke()

	// type tag, top-left inside the box
	dc.SetFontFace(tag)
	tagText := strings.ToUpper(string(f.Type))
	tw, th := dc.MeasureString(tagText)
	dc.SetColor(stroke)
	dc.DrawRectangle(r.X, r.Y, tw+2*padding, th+padding)
	dc.Fill()
	dc.SetColor(color.White)
	dc.DrawStringAnchored(tagText, r.X+padding, r.Y+(th+padding)/2, 0, 0.5)

	dc.SetFontFace(label)
	dc.SetColor(labelColor)
	labelY := r.Y - padding
	if labelY < labelSize {
		labelY = labelSize
	}
	dc.DrawString(f.DisplayName(), r.X, labelY)

	dc.SetFontFace(preview)
	if filled {
		dc.SetColor(valueColor)
	} else {
		dc.SetColor(placeholderColor)
	}
	dc.DrawStringAnchored(fit(dc, text, r.Width-2*padding), r.X+padding, r.Y+r.Height/2, 0, 0.5)

	if f.Required {
		dc.SetFontFace(label)
		dc.SetColor(InvalidColor)
		dc.DrawStringAnchored("*", r.Right()-padding, r.Y+padding, 1, 1)
	}
}

// previewText returns the current value when one is entered, otherwise the
// type's placeholder.
func previewText(f form.Field, kind form.Kind, state *FillState) (string, bool) {
	if state != nil {
		if v, ok := state.Data[f.ID]; ok && !v.Empty() {
			lines := kind.Render(v)
			if len(lines) > 0 {
				return lines[0], true
			}
		}
	}
	return kind.Placeholder(), false
}

func drawGesture(dc *gg.Context, r geometry.CanvasRect, readout font.Face) {
	dc.SetLineWidth(strokeWidth)
	dc.SetDash(6, 4)
	dc.SetColor(GestureColor)
	dc.DrawRectangle(r.X, r.Y, r.Width, r.Height)
	dc.Stroke()
	dc.SetDash()

	dc.SetFontFace(readout)
	dc.DrawStringAnchored(fmt.Sprintf("%.0f×%.0f", r.Width, r.Height), r.Right(), r.Bottom()+padding, 1, 1)
}

// fit truncates s with an ellipsis until it is no wider than width.
func fit(dc *gg.Context, s string, width float64) string {
	if w, _ := dc.MeasureString(s); w <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "…"
		if w, _ := dc.MeasureString(candidate); w <= width {
			return candidate
		}
	}
	return ""
}

// OnPage returns the fields placed on a 1-based page.
func OnPage(fields []form.Field, page int) []form.Field {
	out := make([]form.Field, 0, len(fields))
	for _, f := range fields {
		if f.Page == page {
			out = append(out, f)
		}
	}
	return out
}

// Composite draws overlay on top of base and returns a new image the size of base.
func Composite(base image.Image, overlay image.Image) *image.RGBA {
	bounds := base.Bounds()
	out := image.NewRGBA(image.Rectangle{Max: bounds.Size()})
	draw.Draw(out, out.Bounds(), base, bounds.Min, draw.Src)
	if overlay != nil {
		draw.Draw(out, out.Bounds(), overlay, overlay.Bounds().Min, draw.Over)
	}
	return out
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

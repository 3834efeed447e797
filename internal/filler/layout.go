package filler

import (
	"fmt"
	"strings"

	"github.com/a3tai/mcp-pdf-forms/internal/form"
	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
)

const (
	// MaxFontSize caps stamped text; boxes shorter than twice this use half their height.
	MaxFontSize = 12.0
	// LineSpacing is the baseline distance of multi-line values, in font sizes.
	LineSpacing = 1.2
	textInset   = 2.0
)

// ImageFile is an uploaded raster kept beside FormData, which only holds its name.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// FontSize returns min(MaxFontSize, boxHeight/2).
func FontSize(boxHeight float64) float64 {
	return min(MaxFontSize, boxHeight/2)
}

// Placements lays out every field that has coordinates and a non-empty value.
// Rectangles are converted to PDF space with the height of the field's page
// and the scale the template was drawn at.
func Placements(t *form.Template, data form.FormData, images map[string]ImageFile, pages []pdf.PageSize, scale geometry.Scale) ([]pdf.Placement, error) {
	var out []pdf.Placement

	for _, f := range t.Fields {
		if f.Coordinates == nil {
			continue
		}
		v, ok := data[f.ID]
		if !ok || v.Empty() {
			continue
		}
		if f.Page < 1 || f.Page > len(pages) {
			return nil, fmt.Errorf("%w: field %s is on page %d of %d", pdf.ErrPageOutOfRange, f.ID, f.Page, len(pages))
		}

		box := geometry.ToPDF(*f.Coordinates, pages[f.Page-1].Height, scale)
		kind := f.Kind()

		switch kind.Stamp() {
		case form.StampImage:
			out = append(out, imagePlacement(f, box, v, images))
		case form.StampLines:
			out = append(out, linePlacements(f, box, kind.Render(v))...)
		default:
			out = append(out, textPlacement(f, box, strings.Join(kind.Render(v), " ")))
		}
	}

	return out, nil
}

// textPlacement centres one line of text vertically in box.
func textPlacement(f form.Field, box geometry.PDFRect, text string) pdf.Placement {
	size := FontSize(box.Height)
	return pdf.Placement{
		FieldID:  f.ID,
		Page:     f.Page,
		Kind:     pdf.PlaceText,
		X:        box.X + textInset,
		Y:        box.Y + (box.Height-size)/2,
		Text:     strings.ReplaceAll(text, "\n", " "),
		FontSize: size,
	}
}

// linePlacements puts one baseline per line from the top of box down, and
// drops lines whose baseline would fall below the bottom edge.
func linePlacements(f form.Field, box geometry.PDFRect, lines []string) []pdf.Placement {
	size := FontSize(box.Height)
	var out []pdf.Placement
	for i, line := range lines {
		y := box.Top() - size - float64(i)*size*LineSpacing
		if y < box.Y {
			break
		}
		if line == "" {
			continue
		}
		out = append(out, pdf.Placement{
			FieldID:  f.ID,
			Page:     f.Page,
			Kind:     pdf.PlaceText,
			X:        box.X + textInset,
			Y:        y,
			Text:     line,
			FontSize: size,
		})
	}
	return out
}

// imagePlacement fits the uploaded image inside box, keeping its aspect
// ratio and centring it. An upload not declared as PNG or JPEG, or whose
// bytes are not a readable PNG or JPEG, becomes the "[Image: name]" text;
// so does a missing upload.
func imagePlacement(f form.Field, box geometry.PDFRect, v form.Value, images map[string]ImageFile) pdf.Placement {
	file, ok := images[f.ID]
	name := v.String()
	if ok && file.Name != "" {
		name = file.Name
	}
	fallback := textPlacement(f, box, form.ImagePlaceholder(name))
	if !ok || !pdf.Embeddable(file.ContentType) {
		return fallback
	}

	info, err := pdf.ProbeImage(file.Data)
	if err != nil {
		return fallback
	}

	w, h := float64(info.Width), float64(info.Height)
	scale := min(box.Width/w, box.Height/h)
	drawW, drawH := w*scale, h*scale

	return pdf.Placement{
		FieldID:    f.ID,
		Page:       f.Page,
		Kind:       pdf.PlaceImage,
		X:          box.X + (box.Width-drawW)/2,
		Y:          box.Y + (box.Height-drawH)/2,
		Width:      drawW,
		Height:     drawH,
		ImageScale: scale,
		Image:      file.Data,
		ImageName:  name,
		Fallback:   &fallback,
	}
}

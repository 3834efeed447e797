package filler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/form"
	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdftest"
)

var letter = []pdf.PageSize{{Width: pdftest.LetterWidth, Height: pdftest.LetterHeight}}

func layoutTemplate(fields ...form.Field) *form.Template {
	return &form.Template{Fields: fields}
}

func TestFontSize(t *testing.T) {
	assert.Equal(t, 12.0, FontSize(30))
	assert.Equal(t, 12.0, FontSize(24))
	assert.Equal(t, 5.0, FontSize(10))
}

func TestPlacementsText(t *testing.T) {
	tpl := layoutTemplate(form.Field{ID: "name", Type: form.FieldTypeText, Coordinates: rect(150, 300, 300, 45), Page: 1})

	out, err := Placements(tpl, form.FormData{"name": form.TextValue("Ada\nLovelace")}, nil, letter, 1.5)
	require.NoError(t, err)
	require.Len(t, out, 1)

	// canvas (150,300,300x45) at 1.5 on a 792pt page is (100,562,200x30)
	p := out[0]
	assert.Equal(t, pdf.PlaceText, p.Kind)
	assert.InDelta(t, 102, p.X, 1e-9)
	assert.InDelta(t, 571, p.Y, 1e-9)
	assert.Equal(t, 12.0, p.FontSize)
	assert.Equal(t, "Ada Lovelace", p.Text)
	assert.Equal(t, 1, p.Page)
}

func TestPlacementsSkipEmptyAndDrafts(t *testing.T) {
	tpl := layoutTemplate(
		form.Field{ID: "a", Type: form.FieldTypeText, Coordinates: rect(0, 0, 100, 30), Page: 1},
		form.Field{ID: "b", Type: form.FieldTypeText, Page: 1},
		form.Field{ID: "c", Type: form.FieldTypeCheckbox, Options: []string{"x"}, Coordinates: rect(0, 40, 100, 30), Page: 1},
	)
	data := form.FormData{
		"a": form.TextValue("   "),
		"b": form.TextValue("draft"),
		"c": form.ListValue(),
	}

	out, err := Placements(tpl, data, nil, letter, 1.5)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPlacementsTextareaLines(t *testing.T) {
	tpl := layoutTemplate(form.Field{ID: "notes", Type: form.FieldTypeTextarea, Coordinates: rect(150, 300, 300, 90), Page: 1})

	out, err := Placements(tpl, form.FormData{"notes": form.TextValue("one\ntwo\n\nfour\nfive")}, nil, letter, 1.5)
	require.NoError(t, err)

	// box is (100,532,200x60): baselines 580, 565.6, 551.2, 536.8; the fifth (522.4) is below 532
	require.Len(t, out, 3)
	assert.Equal(t, "one", out[0].Text)
	assert.InDelta(t, 580, out[0].Y, 1e-9)
	assert.Equal(t, "two", out[1].Text)
	assert.InDelta(t, 565.6, out[1].Y, 1e-9)
	assert.Equal(t, "four", out[2].Text)
	assert.InDelta(t, 536.8, out[2].Y, 1e-9)
}

func TestPlacementsCheckboxJoin(t *testing.T) {
	tpl := layoutTemplate(form.Field{ID: "c", Type: form.FieldTypeCheckbox, Options: []string{"a", "b", "c"}, Coordinates: rect(0, 0, 300, 30), Page: 1})

	out, err := Placements(tpl, form.FormData{"c": form.ListValue("c", "a")}, nil, letter, 1.5)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "c, a", out[0].Text)
}

func TestPlacementsImage(t *testing.T) {
	field := form.Field{ID: "photo", Type: form.FieldTypeImage, Coordinates: rect(150, 300, 300, 45), Page: 1}
	tpl := layoutTemplate(field)
	data := form.FormData{"photo": form.TextValue("me.png")}

	t.Run("fit and centre", func(t *testing.T) {
		images := map[string]ImageFile{"photo": {Name: "me.png", ContentType: "image/png", Data: pdftest.PNG(t, 100, 50)}}
		out, err := Placements(tpl, data, images, letter, 1.5)
		require.NoError(t, err)
		require.Len(t, out, 1)

		// 100x50 into 200x30 scales by 0.6 to 60x30
		p := out[0]
		assert.Equal(t, pdf.PlaceImage, p.Kind)
		assert.InDelta(t, 0.6, p.ImageScale, 1e-9)
		assert.InDelta(t, 60, p.Width, 1e-9)
		assert.InDelta(t, 30, p.Height, 1e-9)
		assert.InDelta(t, 170, p.X, 1e-9)
		assert.InDelta(t, 562, p.Y, 1e-9)
		require.NotNil(t, p.Fallback)
		assert.Equal(t, "[Image: me.png]", p.Fallback.Text)
	})

	t.Run("jpeg", func(t *testing.T) {
		images := map[string]ImageFile{"photo": {Name: "me.jpg", ContentType: "image/jpeg", Data: pdftest.JPEG(t, 30, 30)}}
		out, err := Placements(tpl, data, images, letter, 1.5)
		require.NoError(t, err)
		assert.Equal(t, pdf.PlaceImage, out[0].Kind)
	})

	t.Run("unsupported format", func(t *testing.T) {
		images := map[string]ImageFile{"photo": {Name: "me.gif", ContentType: "image/gif", Data: pdftest.GIF()}}
		out, err := Placements(tpl, data, images, letter, 1.5)
		require.NoError(t, err)
		assert.Equal(t, pdf.PlaceText, out[0].Kind)
		assert.Equal(t, "[Image: me.gif]", out[0].Text)
	})

	t.Run("declared type decides", func(t *testing.T) {
		for _, contentType := range []string{"application/octet-stream", "image/gif", ""} {
			images := map[string]ImageFile{"photo": {Name: "sig.bin", ContentType: contentType, Data: pdftest.PNG(t, 4, 4)}}
			out, err := Placements(tpl, data, images, letter, 1.5)
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.Equal(t, pdf.PlaceText, out[0].Kind, contentType)
			assert.Equal(t, "[Image: sig.bin]", out[0].Text, contentType)
		}
	})

	t.Run("declared type with parameters", func(t *testing.T) {
		images := map[string]ImageFile{"photo": {Name: "me.jpg", ContentType: "image/jpeg; q=0.9", Data: pdftest.JPEG(t, 30, 30)}}
		out, err := Placements(tpl, data, images, letter, 1.5)
		require.NoError(t, err)
		assert.Equal(t, pdf.PlaceImage, out[0].Kind)
	})

	t.Run("no upload", func(t *testing.T) {
		out, err := Placements(tpl, data, nil, letter, 1.5)
		require.NoError(t, err)
		assert.Equal(t, "[Image: me.png]", out[0].Text)
	})
}

func TestPlacementsUsePageHeight(t *testing.T) {
	pages := []pdf.PageSize{{Width: 612, Height: 792}, {Width: 842, Height: 595}}
	tpl := layoutTemplate(form.Field{ID: "sig", Type: form.FieldTypeText, Coordinates: rect(0, 0, 150, 30), Page: 2})

	out, err := Placements(tpl, form.FormData{"sig": form.TextValue("x")}, nil, pages, 1.5)
	require.NoError(t, err)
	// top-left box 100x20 on a 595pt page sits at y=575
	assert.InDelta(t, 575+(20-10)/2.0, out[0].Y, 1e-9)
	assert.Equal(t, 2, out[0].Page)

	tpl.Fields[0].Page = 3
	_, err = Placements(tpl, form.FormData{"sig": form.TextValue("x")}, nil, pages, 1.5)
	assert.ErrorIs(t, err, pdf.ErrPageOutOfRange)
}

func TestPlacementsInvertDesignerTransform(t *testing.T) {
	scale := geometry.Scale(2)
	canvas := geometry.CanvasRect{X: 84, Y: 210, Width: 260, Height: 64}
	box := geometry.ToPDF(canvas, 792, scale)

	tpl := layoutTemplate(form.Field{ID: "t", Type: form.FieldTypeText, Coordinates: &canvas, Page: 1})
	out, err := Placements(tpl, form.FormData{"t": form.TextValue("x")}, nil, letter, scale)
	require.NoError(t, err)

	assert.InDelta(t, box.X+2, out[0].X, 1e-9)
	assert.InDelta(t, box.Y+(box.Height-12)/2, out[0].Y, 1e-9)
	assert.Equal(t, canvas, geometry.ToCanvas(box, 792, scale))
}

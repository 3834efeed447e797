package pdf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdftest"
)

func TestFitzRasterizer_RenderPage(t *testing.T) {
	r := NewFitzRasterizer()
	doc := pdftest.Document(t, 2)

	img, err := r.RenderPage(doc, 1, geometry.DefaultScale)
	require.NoError(t, err)
	assert.InDelta(t, pdftest.LetterWidth*1.5, float64(img.Bounds().Dx()), 1)
	assert.InDelta(t, pdftest.LetterHeight*1.5, float64(img.Bounds().Dy()), 1)

	_, err = r.RenderPage(doc, 3, geometry.DefaultScale)
	assert.True(t, errors.Is(err, ErrPageOutOfRange), "got %v", err)

	_, err = r.RenderPage(doc, 1, 0)
	assert.Error(t, err)
}

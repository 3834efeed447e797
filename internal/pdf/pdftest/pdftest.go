// Package pdftest builds small documents and images for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"codeberg.org/go-pdf/fpdf"
)

// Letter page size in points.
const (
	LetterWidth  = 612.0
	LetterHeight = 792.0
)

// Document returns a Letter-size PDF with the given number of pages, each
// carrying a heading so it is not blank.
func Document(t testing.TB, pages int) []byte {
	t.Helper()

	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetFont("Helvetica", "", 14)
	for i := 1; i <= pages; i++ {
		doc.AddPage()
		doc.Text(72, 72, fmt.Sprintf("Application form, page %d", i))
		doc.Rect(72, 120, 300, 24, "D")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		t.Fatalf("failed to build fixture PDF: %v", err)
	}
	return buf.Bytes()
}

func solid(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 0x33, G: 0x66, B: 0x99, A: 0xff})
		}
	}
	return img
}

// PNG returns a w×h solid PNG.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(w, h)); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEG returns a w×h solid JPEG.
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(w, h), nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// GIF returns the bytes of a 1×1 GIF, a format that is never embedded.
func GIF() []byte {
	return []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")
}

// FormDocument returns a two-page Letter PDF with an interactive form:
//
//	page 1: name (required text), agree (checkbox), submit (push button),
//	        address.city (multiline text under a nameless-widget parent)
//	page 2: colour (choice with options), size (radio group S/M)
func FormDocument(t testing.TB) []byte {
	t.Helper()

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R /AcroForm 5 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Annots [6 0 R 7 0 R 8 0 R 13 0 R] >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Annots [9 0 R 11 0 R 12 0 R] >>",
		"<< /Fields [6 0 R 7 0 R 8 0 R 9 0 R 10 0 R 14 0 R] >>",
		"<< /Type /Annot /Subtype /Widget /FT /Tx /T (name) /TU (Full name) /Ff 2 /Rect [72 700 372 724] /P 3 0 R >>",
		"<< /Type /Annot /Subtype /Widget /FT /Btn /T (agree) /Rect [72 650 90 668] /AP << /N << /Yes 15 0 R /Off 15 0 R >> >> /P 3 0 R >>",
		"<< /Type /Annot /Subtype /Widget /FT /Btn /Ff 65536 /T (submit) /Rect [400 50 500 80] /P 3 0 R >>",
		"<< /Type /Annot /Subtype /Widget /FT /Ch /T (colour) /Opt [(Red) [(b) (Blue)]] /Rect [272 620 72 600] /P 4 0 R >>",
		"<< /FT /Btn /Ff 49152 /T (size) /Kids [11 0 R 12 0 R] >>",
		"<< /Type /Annot /Subtype /Widget /Parent 10 0 R /Rect [72 500 90 518] /AP << /N << /S 15 0 R /Off 15 0 R >> >> >>",
		"<< /Type /Annot /Subtype /Widget /Parent 10 0 R /Rect [100 500 118 518] /AP << /N << /M 15 0 R /Off 15 0 R >> >> >>",
		"<< /Type /Annot /Subtype /Widget /FT /Tx /Ff 4096 /T (city) /Parent 14 0 R /Rect [72 400 272 448] /P 3 0 R >>",
		"<< /T (address) /Kids [13 0 R] >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	offsets := make([]int, 0, len(objects)+1)
	for i, obj := range objects {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	offsets = append(offsets, buf.Len())
	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /XObject /Subtype /Form /BBox [0 0 18 18] /Length 0 >>\nstream\n\nendstream\nendobj\n", len(objects)+1)

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

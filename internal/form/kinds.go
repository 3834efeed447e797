package form

import (
	"image/color"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// StampMode says how a field's value is burned into the PDF.
type StampMode int

const (
	// StampText draws one line of text at the vertical middle of the box.
	StampText StampMode = iota
	// StampLines draws one baseline per newline-separated line.
	StampLines
	// StampImage embeds an uploaded raster.
	StampImage
)

// Palette is the stroke/fill pair of a field type on the overlay.
type Palette struct {
	Stroke color.RGBA
	Fill   color.RGBA
}

// Kind is the behaviour set of one field type. Each field type has exactly
// one implementation, so adding a type means implementing every behaviour.
type Kind interface {
	Type() FieldType
	Colors() Palette
	// Placeholder is the preview drawn inside an empty box.
	Placeholder() string
	// Check returns a type error message for a present value, or "".
	Check(v Value) string
	// Render returns the text lines drawn for a value.
	Render(v Value) []string
	Stamp() StampMode
	NeedsOptions() bool
	NeedsColumns() bool
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func rgb(hex uint32) Palette {
	stroke := color.RGBA{R: uint8(hex >> 16), G: uint8(hex >> 8), B: uint8(hex), A: 0xff}
	// 10% fill, premultiplied
	fill := color.RGBA{
		R: uint8(uint32(stroke.R) * 26 / 255),
		G: uint8(uint32(stroke.G) * 26 / 255),
		B: uint8(uint32(stroke.B) * 26 / 255),
		A: 26,
	}
	return Palette{Stroke: stroke, Fill: fill}
}

var kinds = map[FieldType]Kind{
	FieldTypeText:     textKind{},
	FieldTypeNumber:   numberKind{},
	FieldTypeEmail:    emailKind{},
	FieldTypeDate:     dateKind{},
	FieldTypeSelect:   selectKind{},
	FieldTypeCheckbox: checkboxKind{},
	FieldTypeTextarea: textareaKind{},
	FieldTypeImage:    imageKind{},
	FieldTypeList:     listKind{},
}

// KindOf returns the behaviour set for t.
func KindOf(t FieldType) (Kind, bool) {
	k, ok := kinds[t]
	return k, ok
}

func single(v Value) []string {
	return []string{v.String()}
}

type textKind struct{}

func (textKind) Type() FieldType         { return FieldTypeText }
func (textKind) Colors() Palette         { return rgb(0x3b82f6) }
func (textKind) Placeholder() string     { return "Text..." }
func (textKind) Check(Value) string      { return "" }
func (textKind) Render(v Value) []string { return single(v) }
func (textKind) Stamp() StampMode        { return StampText }
func (textKind) NeedsOptions() bool      { return false }
func (textKind) NeedsColumns() bool      { return false }

type numberKind struct{}

func (numberKind) Type() FieldType     { return FieldTypeNumber }
func (numberKind) Colors() Palette     { return rgb(0x10b981) }
func (numberKind) Placeholder() string { return "123" }
func (numberKind) Check(v Value) string {
	s := strings.TrimSpace(v.Text)
	if s == "" {
		return ""
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return "Must be a valid number"
	}
	return ""
}
func (numberKind) Render(v Value) []string { return single(v) }
func (numberKind) Stamp() StampMode        { return StampText }
func (numberKind) NeedsOptions() bool      { return false }
func (numberKind) NeedsColumns() bool      { return false }

type emailKind struct{}

func (emailKind) Type() FieldType     { return FieldTypeEmail }
func (emailKind) Colors() Palette     { return rgb(0x8b5cf6) }
func (emailKind) Placeholder() string { return "user@example.com" }
func (emailKind) Check(v Value) string {
	if v.Text == "" {
		return ""
	}
	if !emailPattern.MatchString(v.Text) {
		return "Invalid email format"
	}
	return ""
}
func (emailKind) Render(v Value) []string { return single(v) }
func (emailKind) Stamp() StampMode        { return StampText }
func (emailKind) NeedsOptions() bool      { return false }
func (emailKind) NeedsColumns() bool      { return false }

type dateKind struct{}

func (dateKind) Type() FieldType         { return FieldTypeDate }
func (dateKind) Colors() Palette         { return rgb(0xf59e0b) }
func (dateKind) Placeholder() string     { return "YYYY-MM-DD" }
func (dateKind) Check(Value) string      { return "" }
func (dateKind) Render(v Value) []string { return single(v) }
func (dateKind) Stamp() StampMode        { return StampText }
func (dateKind) NeedsOptions() bool      { return false }
func (dateKind) NeedsColumns() bool      { return false }

type selectKind struct{}

func (selectKind) Type() FieldType         { return FieldTypeSelect }
func (selectKind) Colors() Palette         { return rgb(0xec4899) }
func (selectKind) Placeholder() string     { return "Select ▼" }
func (selectKind) Check(Value) string      { return "" }
func (selectKind) Render(v Value) []string { return single(v) }
func (selectKind) Stamp() StampMode        { return StampText }
func (selectKind) NeedsOptions() bool      { return true }
func (selectKind) NeedsColumns() bool      { return false }

type checkboxKind struct{}

func (checkboxKind) Type() FieldType     { return FieldTypeCheckbox }
func (checkboxKind) Colors() Palette     { return rgb(0x06b6d4) }
func (checkboxKind) Placeholder() string { return "[ ] Option" }
func (checkboxKind) Check(Value) string  { return "" }
func (checkboxKind) Render(v Value) []string {
	return []string{strings.Join(v.Items(), ", ")}
}
func (checkboxKind) Stamp() StampMode   { return StampText }
func (checkboxKind) NeedsOptions() bool { return true }
func (checkboxKind) NeedsColumns() bool { return false }

type textareaKind struct{}

func (textareaKind) Type() FieldType     { return FieldTypeTextarea }
func (textareaKind) Colors() Palette     { return rgb(0x6366f1) }
func (textareaKind) Placeholder() string { return "Multi-line text..." }
func (textareaKind) Check(Value) string  { return "" }
func (textareaKind) Render(v Value) []string {
	return strings.Split(v.String(), "\n")
}
func (textareaKind) Stamp() StampMode   { return StampLines }
func (textareaKind) NeedsOptions() bool { return false }
func (textareaKind) NeedsColumns() bool { return false }

type imageKind struct{}

func (imageKind) Type() FieldType     { return FieldTypeImage }
func (imageKind) Colors() Palette     { return rgb(0xef4444) }
func (imageKind) Placeholder() string { return "[Image]" }
func (imageKind) Check(Value) string  { return "" }
func (imageKind) Render(v Value) []string {
	return []string{ImagePlaceholder(v.String())}
}
func (imageKind) Stamp() StampMode   { return StampImage }
func (imageKind) NeedsOptions() bool { return false }
func (imageKind) NeedsColumns() bool { return false }

type listKind struct{}

func (listKind) Type() FieldType         { return FieldTypeList }
func (listKind) Colors() Palette         { return rgb(0x14b8a6) }
func (listKind) Placeholder() string     { return "[List]" }
func (listKind) Check(Value) string      { return "" }
func (listKind) Render(v Value) []string { return single(v) }
func (listKind) Stamp() StampMode        { return StampText }
func (listKind) NeedsOptions() bool      { return false }
func (listKind) NeedsColumns() bool      { return true }

// ImagePlaceholder is the text drawn in place of an image that cannot be embedded.
func ImagePlaceholder(filename string) string {
	return "[Image: " + filename + "]"
}

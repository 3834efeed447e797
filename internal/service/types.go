package service

import (
	"github.com/a3tai/mcp-pdf-forms/internal/designer"
	"github.com/a3tai/mcp-pdf-forms/internal/filler"
	"github.com/a3tai/mcp-pdf-forms/internal/form"
	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
	"github.com/a3tai/mcp-pdf-forms/internal/output"
	"github.com/a3tai/mcp-pdf-forms/internal/session"
)

// Pointer actions accepted by DesignerPointer.
const (
	PointerDown = "down"
	PointerMove = "move"
	PointerUp   = "up"
)

// SessionRequest addresses one session.
type SessionRequest struct {
	Session string `json:"session"`
}

// DocumentResult describes a loaded PDF.
type DocumentResult struct {
	Session      string  `json:"session"`
	Document     string  `json:"document"`
	Pages        int     `json:"pages"`
	PageWidth    float64 `json:"page_width"`
	PageHeight   float64 `json:"page_height"`
	CanvasWidth  int     `json:"canvas_width"`
	CanvasHeight int     `json:"canvas_height"`
	Scale        float64 `json:"scale"`
}

// PointerRequest is one pointer event of a drawing gesture, in canvas pixels.
type PointerRequest struct {
	Session string  `json:"session"`
	Action  string  `json:"action"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// PointerResult reports the gesture after a pointer event. Rect is set when
// a finished rectangle was kept; Discarded when it was too small.
type PointerResult struct {
	Armed     bool                 `json:"armed"`
	Live      *geometry.CanvasRect `json:"live,omitempty"`
	Rect      *geometry.CanvasRect `json:"rect,omitempty"`
	Discarded bool                 `json:"discarded,omitempty"`
}

// FieldRequest adds a field. X, Y, Width and Height are given together or
// not at all; without them the last drawn rectangle is used.
type FieldRequest struct {
	Session    string           `json:"session"`
	X          *float64         `json:"x,omitempty"`
	Y          *float64         `json:"y,omitempty"`
	Width      *float64         `json:"width,omitempty"`
	Height     *float64         `json:"height,omitempty"`
	ID         string           `json:"id,omitempty"`
	Label      string           `json:"label,omitempty"`
	Type       form.FieldType   `json:"type,omitempty"`
	Required   *bool            `json:"required,omitempty"`
	Options    []string         `json:"options,omitempty"`
	ListConfig *form.ListConfig `json:"list_config,omitempty"`
	Page       int              `json:"page,omitempty"`
}

// UpdateFieldRequest changes the field ID. Zero values keep the current value.
type UpdateFieldRequest struct {
	Session    string           `json:"session"`
	ID         string           `json:"id"`
	NewID      string           `json:"new_id,omitempty"`
	Label      *string          `json:"label,omitempty"`
	Type       form.FieldType   `json:"type,omitempty"`
	Required   *bool            `json:"required,omitempty"`
	Options    []string         `json:"options,omitempty"`
	ListConfig *form.ListConfig `json:"list_config,omitempty"`
	X          *float64         `json:"x,omitempty"`
	Y          *float64         `json:"y,omitempty"`
	Width      *float64         `json:"width,omitempty"`
	Height     *float64         `json:"height,omitempty"`
	Page       int              `json:"page,omitempty"`
}

// FieldIDRequest addresses one field of a session.
type FieldIDRequest struct {
	Session string `json:"session"`
	ID      string `json:"id"`
}

// FieldResult is the field list after a change.
type FieldResult struct {
	Field   *form.Field  `json:"field,omitempty"`
	Changed bool         `json:"changed"`
	Fields  []form.Field `json:"fields"`
}

// AcroFormResult lists the fields imported from a document's own form.
type AcroFormResult struct {
	designer.AcroImport
	Fields []form.Field `json:"fields"`
}

// SetValueRequest sets a scalar value.
type SetValueRequest struct {
	Session string `json:"session"`
	ID      string `json:"id"`
	Value   string `json:"value"`
}

// SetValuesRequest sets several values at once.
type SetValuesRequest struct {
	Session string        `json:"session"`
	Values  form.FormData `json:"values"`
}

// ToggleOptionRequest checks or unchecks a checkbox option.
type ToggleOptionRequest struct {
	Session string `json:"session"`
	ID      string `json:"id"`
	Option  string `json:"option"`
	Checked bool   `json:"checked"`
}

// ValidationResult is the validation state after a value change.
type ValidationResult struct {
	form.Validation
	Values form.FormData `json:"values"`
}

// ExportResult describes a written template.
type ExportResult struct {
	Object *output.Object `json:"object"`
	Fields int            `json:"fields"`
}

// GenerateResult describes a written filled document.
type GenerateResult = filler.GenerateResult

// DesignerStatus is the designer session state.
type DesignerStatus = designer.Status

// FillerStatus is the filler session state.
type FillerStatus = filler.Status

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// FileInfo is a PDF or template found in the working directory.
type FileInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Size int64  `json:"size"`
}

// ServerInfoResult represents server information and usage guidance
type ServerInfoResult struct {
	ServerName  string           `json:"server_name"`
	Version     string           `json:"version"`
	Directory   string           `json:"directory"`
	Output      string           `json:"output"`
	OutputDir   string           `json:"output_dir,omitempty"`
	Bucket      string           `json:"bucket,omitempty"`
	MaxFileSize int64            `json:"max_file_size"`
	Scale       float64          `json:"scale"`
	MinRect     float64          `json:"min_rect"`
	FieldTypes  []form.FieldType `json:"field_types"`
	Sessions    []session.Info   `json:"sessions"`
	Files       []FileInfo       `json:"files"`
	Tools       []ToolInfo       `json:"tools"`
}

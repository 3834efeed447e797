// Package designer implements the field designer: load a PDF, draw
// rectangles over its first page, describe each one as a typed field and
// export the result as a template document.
package designer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-pdf-forms/internal/form"
	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
	"github.com/a3tai/mcp-pdf-forms/internal/output"
	"github.com/a3tai/mcp-pdf-forms/internal/overlay"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
)

// DefaultMinRect is the smallest width or height, in canvas pixels, a drawn
// rectangle may have before it is discarded.
const DefaultMinRect = 10.0

// Options tunes a designer.
type Options struct {
	Scale   geometry.Scale
	MinRect float64
	Now     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Scale == 0 {
		o.Scale = geometry.DefaultScale
	}
	if o.MinRect == 0 {
		o.MinRect = DefaultMinRect
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Designer holds one designing session. It is not safe for concurrent use;
// callers serialize access.
type Designer struct {
	loader *pdf.Loader
	opts   Options

	doc *pdf.Document

	fields []form.Field
	undo   []action

	armed     bool
	gesture   *gesture
	candidate *geometry.CanvasRect
	draft     *form.Field
}

type gesture struct {
	anchor geometry.CanvasPoint
	live   geometry.CanvasRect
}

// New creates an empty designer.
func New(loader *pdf.Loader, opts Options) *Designer {
	return &Designer{
		loader: loader,
		opts:   opts.withDefaults(),
	}
}

// LoadPDF validates and renders data. On failure the previous document, if
// any, stays loaded. Fields survive a reload so a layout can be moved onto a
// revised document.
func (d *Designer) LoadPDF(ctx context.Context, name string, data []byte) error {
	doc, err := d.loader.Load(ctx, name, data, d.opts.Scale)
	if err != nil {
		zap.S().Warnw("designer pdf rejected", "document", name, "error", err)
		return form.Wrap(form.KindLoad, "load_pdf", err)
	}

	d.doc = doc
	d.armed = false
	d.gesture = nil
	d.candidate = nil
	d.draft = nil

	zap.S().Infow("designer pdf loaded",
		"document", name,
		"pages", len(doc.Pages),
		"page_height", doc.Pages[0].Height,
		"scale", float64(doc.Scale),
	)
	return nil
}

// Document returns the loaded document, or nil.
func (d *Designer) Document() *pdf.Document {
	return d.doc
}

// BeginDrawing arms a single drawing gesture.
func (d *Designer) BeginDrawing() error {
	if d.doc == nil {
		return form.Wrap(form.KindState, "begin_drawing", form.ErrNoPDF)
	}
	d.armed = true
	d.gesture = nil
	return nil
}

// Armed reports whether the next pointer-down starts a gesture.
func (d *Designer) Armed() bool {
	return d.armed
}

func (d *Designer) clamp(p geometry.CanvasPoint) geometry.CanvasPoint {
	size := d.doc.CanvasSize()
	p.X = min(max(p.X, 0), float64(size.X))
	p.Y = min(max(p.Y, 0), float64(size.Y))
	return p
}

// PointerDown anchors the gesture. It is refused unless drawing is armed.
func (d *Designer) PointerDown(p geometry.CanvasPoint) error {
	if !d.armed || d.doc == nil {
		return form.Wrap(form.KindState, "pointer_down", form.ErrDrawingNotArmed)
	}
	p = d.clamp(p)
	d.gesture = &gesture{anchor: p, live: geometry.Normalize(p, p)}
	return nil
}

// PointerMove updates the live rectangle. Without a gesture it does nothing
// and returns nil.
func (d *Designer) PointerMove(p geometry.CanvasPoint) *geometry.CanvasRect {
	if d.gesture == nil {
		return nil
	}
	d.gesture.live = geometry.Normalize(d.gesture.anchor, d.clamp(p))
	live := d.gesture.live
	return &live
}

// PointerUp ends the gesture and disarms drawing. The finished rectangle is
// returned and kept as the editor candidate, unless it is smaller than the
// minimum size, in which case it is dropped and nil is returned.
func (d *Designer) PointerUp(p geometry.CanvasPoint) *geometry.CanvasRect {
	g := d.gesture
	d.gesture = nil
	d.armed = false
	if g == nil {
		return nil
	}

	r := geometry.Normalize(g.anchor, d.clamp(p))
	if r.Below(d.opts.MinRect) {
		zap.S().Debugw("gesture discarded", "rect", r.String(), "min", d.opts.MinRect)
		return nil
	}
	d.candidate = &r
	out := r
	return &out
}

// Live returns the in-progress rectangle, or nil.
func (d *Designer) Live() *geometry.CanvasRect {
	if d.gesture == nil {
		return nil
	}
	live := d.gesture.live
	return &live
}

// Candidate returns the last finished rectangle not yet opened in the editor.
func (d *Designer) Candidate() *geometry.CanvasRect {
	if d.candidate == nil {
		return nil
	}
	c := *d.candidate
	return &c
}

// OpenFieldEditor starts a draft over rect with a generated id and label.
// A nil rect uses the candidate from the last gesture.
func (d *Designer) OpenFieldEditor(rect *geometry.CanvasRect) (form.Field, error) {
	if d.doc == nil {
		return form.Field{}, form.Wrap(form.KindState, "open_field_editor", form.ErrNoPDF)
	}
	if rect == nil {
		rect = d.candidate
	}
	if rect == nil {
		return form.Field{}, form.Wrap(form.KindState, "open_field_editor", fmt.Errorf("no rectangle drawn"))
	}
	if !rect.Valid() || rect.Below(d.opts.MinRect) {
		return form.Field{}, form.Wrap(form.KindValidation, "open_field_editor",
			fmt.Errorf("%w: rectangle %s is invalid or smaller than %.0fpx", form.ErrFieldNotUsable, rect, d.opts.MinRect))
	}

	n := d.nextNumber()
	coords := *rect
	draft := form.Field{
		ID:          fmt.Sprintf("field_%d", n),
		Label:       fmt.Sprintf("Field %d", n),
		Type:        form.FieldTypeText,
		Coordinates: &coords,
		Page:        1,
	}
	d.candidate = nil
	d.draft = &draft
	return draft.Clone(), nil
}

// nextNumber returns the first n from len(fields)+1 whose field_<n> id is free.
func (d *Designer) nextNumber() int {
	n := len(d.fields) + 1
	for d.indexOf(fmt.Sprintf("field_%d", n)) >= 0 {
		n++
	}
	return n
}

// Draft returns the open draft, or nil.
func (d *Designer) Draft() *form.Field {
	if d.draft == nil {
		return nil
	}
	f := d.draft.Clone()
	return &f
}

// ConfirmField appends the edited draft. Coordinates and page left unset
// are taken from the draft.
func (d *Designer) ConfirmField(f form.Field) error {
	if d.draft == nil {
		return form.Wrap(form.KindState, "confirm_field", form.ErrNoDraft)
	}
	f = f.Clone()
	if f.Coordinates == nil {
		c := *d.draft.Coordinates
		f.Coordinates = &c
	}
	if f.Page == 0 {
		f.Page = d.draft.Page
	}
	if err := d.checkField(f, -1); err != nil {
		return form.Wrap(form.KindValidation, "confirm_field", err)
	}

	d.fields = append(d.fields, f)
	d.undo = append(d.undo, action{kind: actionAdd, index: len(d.fields) - 1})
	d.draft = nil

	zap.S().Infow("field added", "field", f.ID, "type", f.Type, "rect", f.Coordinates.String())
	return nil
}

// CancelField discards the open draft and any pending candidate.
func (d *Designer) CancelField() {
	d.draft = nil
	d.candidate = nil
}

// RemoveField deletes the field with id. It reports whether one was removed.
func (d *Designer) RemoveField(id string) bool {
	i := d.indexOf(id)
	if i < 0 {
		return false
	}
	removed := d.fields[i]
	d.fields = append(d.fields[:i:i], d.fields[i+1:]...)
	d.undo = append(d.undo, action{kind: actionRemove, index: i, field: removed})
	return true
}

// UpdateField replaces the field with id. Coordinates left nil keep the
// current box; a new id must stay unique.
func (d *Designer) UpdateField(id string, f form.Field) error {
	i := d.indexOf(id)
	if i < 0 {
		return form.Wrap(form.KindState, "update_field", fmt.Errorf("%w: %s", form.ErrFieldNotFound, id))
	}
	f = f.Clone()
	if f.Coordinates == nil {
		c := *d.fields[i].Coordinates
		f.Coordinates = &c
	}
	if f.Page == 0 {
		f.Page = d.fields[i].Page
	}
	if err := d.checkField(f, i); err != nil {
		return form.Wrap(form.KindValidation, "update_field", err)
	}

	prev := d.fields[i]
	d.fields[i] = f
	d.undo = append(d.undo, action{kind: actionUpdate, index: i, field: prev})
	return nil
}

// checkField rejects unusable fields and ids taken by a field other than skip.
func (d *Designer) checkField(f form.Field, skip int) error {
	if err := d.checkPlacement(f); err != nil {
		return err
	}
	if j := d.indexOf(f.ID); j >= 0 && j != skip {
		return fmt.Errorf("%w: %s", form.ErrDuplicateField, f.ID)
	}
	return nil
}

// checkPlacement rejects unusable fields and pages the document lacks.
func (d *Designer) checkPlacement(f form.Field) error {
	if err := f.Usable(); err != nil {
		return err
	}
	if d.doc != nil && f.Page > len(d.doc.Pages) {
		return fmt.Errorf("%w: %s is on page %d of %d", form.ErrFieldNotUsable, f.ID, f.Page, len(d.doc.Pages))
	}
	return nil
}

func (d *Designer) indexOf(id string) int {
	for i, f := range d.fields {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// Fields returns a copy of the field list.
func (d *Designer) Fields() []form.Field {
	out := make([]form.Field, len(d.fields))
	for i, f := range d.fields {
		out[i] = f.Clone()
	}
	return out
}

// GenerateTemplate builds the template for the current fields.
func (d *Designer) GenerateTemplate() *form.Template {
	name := ""
	if d.doc != nil {
		name = d.doc.Name
	}
	return form.GenerateTemplate(name, d.fields, d.opts.Now())
}

// ExportTemplate writes <base>_fields.json for the loaded document to sink.
func (d *Designer) ExportTemplate(ctx context.Context, sink output.Sink) (*output.Object, error) {
	if d.doc == nil {
		return nil, form.Wrap(form.KindState, "export_template", form.ErrNoPDF)
	}

	data, err := d.GenerateTemplate().Marshal()
	if err != nil {
		return nil, form.Wrap(form.KindExport, "export_template", err)
	}

	obj, err := sink.Put(ctx, form.TemplateFileName(d.doc.Name), output.ContentTypeJSON, bytes.NewReader(data))
	if err != nil {
		return nil, form.Wrap(form.KindExport, "export_template", err)
	}

	zap.S().Infow("template exported", "document", d.doc.Name, "fields", len(d.fields), "location", obj.Location)
	return obj, nil
}

// ImportTemplate replaces the field list with the fields of an existing
// template so it can be edited. The undo history is cleared. Fields without
// coordinates are dropped; any other unusable field rejects the whole
// import and the current fields stay.
func (d *Designer) ImportTemplate(data []byte) error {
	t, err := form.ParseTemplate(data)
	if err != nil {
		return form.Wrap(form.KindLoad, "import_template", err)
	}
	fields := make([]form.Field, 0, len(t.Fields))
	for _, f := range t.Fields {
		if f.Coordinates == nil {
			continue
		}
		if err := d.checkPlacement(f); err != nil {
			return form.Wrap(form.KindValidation, "import_template", err)
		}
		fields = append(fields, f)
	}
	d.fields = fields
	d.undo = nil
	d.draft = nil
	return nil
}

// Redraw paints the overlay for the page 1 fields and the live gesture.
func (d *Designer) Redraw() (*image.RGBA, error) {
	if d.doc == nil {
		return nil, form.Wrap(form.KindState, "redraw", form.ErrNoPDF)
	}
	return overlay.Redraw(d.doc.CanvasSize(), overlay.OnPage(d.fields, 1), d.Live(), nil)
}

// Preview returns the page raster with the overlay on top, PNG encoded.
func (d *Designer) Preview() ([]byte, error) {
	over, err := d.Redraw()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := overlay.EncodePNG(&buf, overlay.Composite(d.doc.Raster, over)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Status summarises the session.
type Status struct {
	Document   string               `json:"document,omitempty"`
	Pages      int                  `json:"pages"`
	PageWidth  float64              `json:"page_width,omitempty"`
	PageHeight float64              `json:"page_height,omitempty"`
	Scale      float64              `json:"scale"`
	Armed      bool                 `json:"armed"`
	Live       *geometry.CanvasRect `json:"live,omitempty"`
	Candidate  *geometry.CanvasRect `json:"candidate,omitempty"`
	Draft      *form.Field          `json:"draft,omitempty"`
	Fields     int                  `json:"fields"`
	CanUndo    bool                 `json:"can_undo"`
}

// Status reports the current session state.
func (d *Designer) Status() Status {
	s := Status{
		Scale:     float64(d.opts.Scale),
		Armed:     d.armed,
		Live:      d.Live(),
		Candidate: d.Candidate(),
		Draft:     d.Draft(),
		Fields:    len(d.fields),
		CanUndo:   len(d.undo) > 0,
	}
	if d.doc != nil {
		s.Document = d.doc.Name
		s.Pages = len(d.doc.Pages)
		s.PageWidth = d.doc.Pages[0].Width
		s.PageHeight = d.doc.Pages[0].Height
	}
	return s
}

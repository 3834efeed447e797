// Package filler implements the form filler: load a template and its PDF,
// collect and validate values, and stamp them into a new document.
package filler

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-pdf-forms/internal/form"
	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
	"github.com/a3tai/mcp-pdf-forms/internal/output"
	"github.com/a3tai/mcp-pdf-forms/internal/overlay"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
)

// DefaultCreator is written to the Creator entry of filled documents.
// Producer is always set by pdfcpu.
const DefaultCreator = "mcp-pdf-forms"

// FilledPrefix is prepended to the source file name of a filled document.
const FilledPrefix = "filled_"

// Options tunes a filler.
type Options struct {
	Scale   geometry.Scale
	Creator string
}

func (o Options) withDefaults() Options {
	if o.Scale == 0 {
		o.Scale = geometry.DefaultScale
	}
	if o.Creator == "" {
		o.Creator = DefaultCreator
	}
	return o
}

// Filler holds one filling session. Methods are safe for concurrent use;
// GenerateFilledPDF runs without holding the lock.
type Filler struct {
	loader *pdf.Loader
	opts   Options

	mu         sync.Mutex
	doc        *pdf.Document
	tpl        *form.Template
	data       form.FormData
	images     map[string]ImageFile
	validation form.Validation
	generating bool
}

// New creates an empty filler.
func New(loader *pdf.Loader, opts Options) *Filler {
	f := &Filler{
		loader: loader,
		opts:   opts.withDefaults(),
	}
	f.resetValues()
	return f
}

func (f *Filler) resetValues() {
	f.data = make(form.FormData)
	f.images = make(map[string]ImageFile)
	f.validation = form.Validate(f.tpl, f.data)
}

// LoadTemplate parses and installs a template. On failure nothing changes.
func (f *Filler) LoadTemplate(data []byte) error {
	t, err := form.ParseTemplate(data)
	if err != nil {
		zap.S().Warnw("template rejected", "error", err)
		return form.Wrap(form.KindLoad, "load_template", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.tpl = t
	f.resetValues()

	zap.S().Infow("template loaded", "document", t.Document.Name, "fields", len(t.Fields))
	return nil
}

// LoadPDF validates and renders the document to fill. On failure nothing changes.
func (f *Filler) LoadPDF(ctx context.Context, name string, data []byte) error {
	doc, err := f.loader.Load(ctx, name, data, f.opts.Scale)
	if err != nil {
		zap.S().Warnw("filler pdf rejected", "document", name, "error", err)
		return form.Wrap(form.KindLoad, "load_pdf", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc = doc
	f.resetValues()

	zap.S().Infow("filler pdf loaded", "document", name, "pages", len(doc.Pages))
	return nil
}

// field looks up id in the loaded template. Callers hold mu.
func (f *Filler) field(op, id string) (form.Field, error) {
	if f.tpl == nil {
		return form.Field{}, form.Wrap(form.KindState, op, form.ErrNotReady)
	}
	fd, ok := f.tpl.Field(id)
	if !ok {
		return form.Field{}, form.Wrap(form.KindValidation, op, fmt.Errorf("%w: %s", form.ErrFieldNotFound, id))
	}
	return fd, nil
}

// SetValue stores a scalar value. Checkbox fields take ToggleOption and
// image fields take SetImage.
func (f *Filler) SetValue(id, value string) (form.Validation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fd, err := f.field("set_value", id)
	if err != nil {
		return f.validation, err
	}
	switch fd.Type {
	case form.FieldTypeCheckbox:
		return f.validation, form.Wrap(form.KindValidation, "set_value",
			fmt.Errorf("%s is a checkbox field, toggle its options instead", id))
	case form.FieldTypeImage:
		return f.validation, form.Wrap(form.KindValidation, "set_value",
			fmt.Errorf("%s is an image field, upload a file instead", id))
	}

	f.data[id] = form.TextValue(value)
	return f.revalidate(), nil
}

// SetValues applies several values at once. Checkbox entries may be a list.
// Nothing is applied if any entry is rejected.
func (f *Filler) SetValues(values form.FormData) (form.Validation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, v := range values {
		fd, err := f.field("set_values", id)
		if err != nil {
			return f.validation, err
		}
		if fd.Type == form.FieldTypeImage {
			return f.validation, form.Wrap(form.KindValidation, "set_values",
				fmt.Errorf("%s is an image field, upload a file instead", id))
		}
		if fd.Type == form.FieldTypeCheckbox {
			for _, item := range v.Items() {
				if !hasOption(fd, item) {
					return f.validation, form.Wrap(form.KindValidation, "set_values",
						fmt.Errorf("%q is not an option of %s", item, id))
				}
			}
		}
	}

	for id, v := range values {
		fd, _ := f.tpl.Field(id)
		if fd.Type == form.FieldTypeCheckbox {
			v = form.ListValue(v.Items()...)
		} else if v.IsList {
			v = form.TextValue(v.String())
		}
		f.data[id] = v
	}
	return f.revalidate(), nil
}

// ToggleOption checks or unchecks one option of a checkbox field.
func (f *Filler) ToggleOption(id, option string, checked bool) (form.Validation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fd, err := f.field("toggle_option", id)
	if err != nil {
		return f.validation, err
	}
	if fd.Type != form.FieldTypeCheckbox {
		return f.validation, form.Wrap(form.KindValidation, "toggle_option",
			fmt.Errorf("%s is a %s field, not a checkbox", id, fd.Type))
	}
	if !hasOption(fd, option) {
		return f.validation, form.Wrap(form.KindValidation, "toggle_option",
			fmt.Errorf("%q is not an option of %s", option, id))
	}

	f.data.Toggle(id, option, checked)
	return f.revalidate(), nil
}

func hasOption(fd form.Field, option string) bool {
	for _, o := range fd.Options {
		if o == option {
			return true
		}
	}
	return false
}

// SetImage attaches an uploaded file to an image field. The form value
// becomes the file name.
func (f *Filler) SetImage(id string, file ImageFile) (form.Validation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fd, err := f.field("set_image", id)
	if err != nil {
		return f.validation, err
	}
	if fd.Type != form.FieldTypeImage {
		return f.validation, form.Wrap(form.KindValidation, "set_image",
			fmt.Errorf("%s is a %s field, not an image", id, fd.Type))
	}
	if file.Name == "" {
		return f.validation, form.Wrap(form.KindValidation, "set_image", fmt.Errorf("image for %s has no file name", id))
	}

	file.Name = filepath.Base(file.Name)
	file.Data = append([]byte(nil), file.Data...)
	f.images[id] = file
	f.data[id] = form.TextValue(file.Name)
	return f.revalidate(), nil
}

// ClearValue removes the value and any image stored for id.
func (f *Filler) ClearValue(id string) (form.Validation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.field("clear_value", id); err != nil {
		return f.validation, err
	}
	delete(f.data, id)
	delete(f.images, id)
	return f.revalidate(), nil
}

func (f *Filler) revalidate() form.Validation {
	f.validation = form.Validate(f.tpl, f.data)
	return f.validation
}

// Validate rechecks every field and returns the result.
func (f *Filler) Validate() form.Validation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.revalidate()
}

// Values returns a copy of the entered values.
func (f *Filler) Values() form.FormData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data.Clone()
}

// Template returns the loaded template, or nil.
func (f *Filler) Template() *form.Template {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tpl
}

// Placements lays out the current values without stamping them.
func (f *Filler) Placements() ([]pdf.Placement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.doc == nil || f.tpl == nil {
		return nil, form.Wrap(form.KindState, "placements", form.ErrNotReady)
	}
	return Placements(f.tpl, f.data, f.images, f.doc.Pages, f.doc.Scale)
}

// GenerateResult describes a written filled document.
type GenerateResult struct {
	Object *output.Object `json:"object"`
	// Fallbacks lists image fields stamped as placeholder text.
	Fallbacks []string `json:"fallbacks,omitempty"`
}

// GenerateFilledPDF stamps the values into a copy of the document and writes
// it to sink as filled_<name>. A second call while one is running fails with
// ErrGenerationInProgress. Nothing is written when stamping fails.
func (f *Filler) GenerateFilledPDF(ctx context.Context, sink output.Sink) (*GenerateResult, error) {
	f.mu.Lock()
	if f.generating {
		f.mu.Unlock()
		return nil, form.Wrap(form.KindState, "generate", form.ErrGenerationInProgress)
	}
	if f.doc == nil || f.tpl == nil {
		f.mu.Unlock()
		return nil, form.Wrap(form.KindState, "generate", form.ErrNotReady)
	}
	v := f.revalidate()
	if !v.Valid {
		f.mu.Unlock()
		id, msg, _ := v.First(f.tpl)
		return nil, form.Wrap(form.KindValidation, "generate", fmt.Errorf("%w: %s: %s", form.ErrFormInvalid, id, msg))
	}

	doc := f.doc
	tpl := f.tpl
	data := f.data.Clone()
	images := make(map[string]ImageFile, len(f.images))
	for id, img := range f.images {
		images[id] = img
	}
	f.generating = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.generating = false
		f.mu.Unlock()
	}()

	placements, err := Placements(tpl, data, images, doc.Pages, doc.Scale)
	if err != nil {
		return nil, form.Wrap(form.KindExport, "generate", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, form.Wrap(form.KindExport, "generate", err)
	}

	meta := pdf.Metadata{
		Title:   "Filled: " + tpl.Document.Name,
		Creator: f.opts.Creator,
	}
	stamped, err := f.loader.Stamper.Stamp(doc.Data, placements, meta)
	if err != nil {
		zap.S().Errorw("stamping failed", "document", doc.Name, "error", err)
		return nil, form.Wrap(form.KindExport, "generate", err)
	}

	name := FilledPrefix + filepath.Base(doc.Name)
	obj, err := sink.Put(ctx, name, output.ContentTypePDF, bytes.NewReader(stamped.Data))
	if err != nil {
		zap.S().Errorw("filled pdf not written", "document", doc.Name, "error", err)
		return nil, form.Wrap(form.KindExport, "generate", err)
	}

	zap.S().Infow("filled pdf written",
		"document", doc.Name,
		"placements", len(placements),
		"fallbacks", stamped.Fallbacks,
		"location", obj.Location,
	)
	return &GenerateResult{Object: obj, Fallbacks: stamped.Fallbacks}, nil
}

// Redraw paints the overlay for the page 1 fields with fill-state colouring.
func (f *Filler) Redraw() (*image.RGBA, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.redraw()
}

func (f *Filler) redraw() (*image.RGBA, error) {
	if f.doc == nil || f.tpl == nil {
		return nil, form.Wrap(form.KindState, "redraw", form.ErrNotReady)
	}
	state := &overlay.FillState{Data: f.data, Errors: f.validation.Errors}
	return overlay.Redraw(f.doc.CanvasSize(), overlay.OnPage(f.tpl.Fields, 1), nil, state)
}

// Preview returns the page raster with the filled overlay on top, PNG encoded.
func (f *Filler) Preview() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	over, err := f.redraw()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := overlay.EncodePNG(&buf, overlay.Composite(f.doc.Raster, over)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Status summarises the session.
type Status struct {
	Document    string            `json:"document,omitempty"`
	Template    string            `json:"template,omitempty"`
	HasPDF      bool              `json:"has_pdf"`
	HasTemplate bool              `json:"has_template"`
	Fields      int               `json:"fields"`
	Valid       bool              `json:"valid"`
	Errors      map[string]string `json:"errors,omitempty"`
	Generating  bool              `json:"generating"`
}

// Status reports the current session state.
func (f *Filler) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := Status{
		HasPDF:      f.doc != nil,
		HasTemplate: f.tpl != nil,
		Valid:       f.validation.Valid,
		Errors:      f.validation.Errors,
		Generating:  f.generating,
	}
	if f.doc != nil {
		s.Document = f.doc.Name
	}
	if f.tpl != nil {
		s.Template = f.tpl.Document.Name
		s.Fields = len(f.tpl.Fields)
	}
	return s
}

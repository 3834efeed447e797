package designer

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-pdf-forms/internal/form"
	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
)

// AcroImport reports what ImportAcroForm did with each AcroForm field.
type AcroImport struct {
	Added   []string          `json:"added"`
	Skipped map[string]string `json:"skipped,omitempty"`
}

// ImportAcroForm appends a field for every interactive form field already in
// the loaded document, so a fillable PDF does not have to be redrawn by hand.
// Push buttons and fields that do not fit on their page are skipped. The
// import is undone as one step.
func (d *Designer) ImportAcroForm() (*AcroImport, error) {
	if d.doc == nil {
		return nil, form.Wrap(form.KindState, "import_acroform", form.ErrNoPDF)
	}
	if d.loader.Fields == nil {
		return nil, form.Wrap(form.KindLoad, "import_acroform", fmt.Errorf("reading form fields is not supported"))
	}

	acro, err := d.loader.Fields.ReadFields(d.doc.Data)
	if err != nil {
		return nil, form.Wrap(form.KindLoad, "import_acroform", err)
	}

	res := &AcroImport{Added: []string{}}
	skip := func(name, reason string) {
		if res.Skipped == nil {
			res.Skipped = make(map[string]string)
		}
		res.Skipped[name] = reason
	}

	start := len(d.fields)
	for _, a := range acro {
		f, ok := fieldFromAcro(a)
		if !ok {
			skip(a.Name, fmt.Sprintf("%s fields are not supported", a.Kind))
			continue
		}
		h, err := d.doc.PageHeight(a.Page)
		if err != nil {
			skip(a.Name, err.Error())
			continue
		}
		rect := geometry.ToCanvas(a.Rect, h, d.opts.Scale)
		f.Coordinates = &rect
		f.ID = d.freeID(f.ID)

		if err := d.checkField(f, -1); err != nil {
			skip(a.Name, err.Error())
			continue
		}
		d.fields = append(d.fields, f)
		res.Added = append(res.Added, f.ID)
	}

	if n := len(d.fields) - start; n > 0 {
		d.undo = append(d.undo, action{kind: actionImport, index: start, count: n})
	}
	zap.S().Infow("acroform imported", "document", d.doc.Name, "added", len(res.Added), "skipped", len(res.Skipped))
	return res, nil
}

// fieldFromAcro maps an AcroForm field onto the closest field type.
func fieldFromAcro(a pdf.AcroField) (form.Field, bool) {
	f := form.Field{
		ID:       fieldID(a.Name),
		Label:    a.Name,
		Required: a.Required,
		Page:     a.Page,
	}
	if a.Tooltip != "" {
		f.Label = a.Tooltip
	}

	switch a.Kind {
	case pdf.AcroText:
		f.Type = form.FieldTypeText
		if a.Multiline {
			f.Type = form.FieldTypeTextarea
		}
	case pdf.AcroCheckbox:
		f.Type = form.FieldTypeCheckbox
		f.Options = a.Options
		if len(f.Options) == 0 {
			f.Options = []string{"Yes"}
		}
	case pdf.AcroRadio, pdf.AcroChoice:
		f.Type = form.FieldTypeSelect
		f.Options = a.Options
		if len(f.Options) == 0 {
			f.Type = form.FieldTypeText
		}
	case pdf.AcroSignature:
		f.Type = form.FieldTypeImage
	default:
		return form.Field{}, false
	}
	f.Options = append([]string(nil), f.Options...)
	return f, true
}

// fieldID turns a qualified AcroForm name like "Applicant.Full Name" into
// "applicant_full_name".
func fieldID(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// freeID returns id, or id_2, id_3... when taken. An empty id gets the next
// generated field_<n>.
func (d *Designer) freeID(id string) string {
	if id == "" {
		return fmt.Sprintf("field_%d", d.nextNumber())
	}
	candidate := id
	for n := 2; d.indexOf(candidate) >= 0; n++ {
		candidate = fmt.Sprintf("%s_%d", id, n)
	}
	return candidate
}

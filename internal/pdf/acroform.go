package pdf

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
)

// AcroKind is the interactive field type of an AcroForm field.
type AcroKind string

const (
	AcroText       AcroKind = "text"
	AcroCheckbox   AcroKind = "checkbox"
	AcroRadio      AcroKind = "radio"
	AcroChoice     AcroKind = "choice"
	AcroSignature  AcroKind = "signature"
	AcroPushButton AcroKind = "button"
)

// Field flag bits, 1-based as numbered in the PDF reference.
const (
	flagRequired   = 1 << 1
	flagMultiline  = 1 << 12
	flagRadio      = 1 << 15
	flagPushButton = 1 << 16
)

// AcroField is one terminal field of a document's interactive form with its
// first widget's box in PDF points.
type AcroField struct {
	Name      string           `json:"name"`
	Tooltip   string           `json:"tooltip,omitempty"`
	Kind      AcroKind         `json:"kind"`
	Options   []string         `json:"options,omitempty"`
	Required  bool             `json:"required,omitempty"`
	Multiline bool             `json:"multiline,omitempty"`
	Page      int              `json:"page"`
	Rect      geometry.PDFRect `json:"rect"`
}

// FieldReader lists the AcroForm fields already present in a document.
type FieldReader interface {
	ReadFields(data []byte) ([]AcroField, error)
}

// PDFCPUFieldReader reads AcroForm dictionaries with pdfcpu.
type PDFCPUFieldReader struct {
	conf *model.Configuration
}

// NewPDFCPUFieldReader uses relaxed validation so slightly broken forms
// still yield their fields.
func NewPDFCPUFieldReader() *PDFCPUFieldReader {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFCPUFieldReader{conf: conf}
}

// ReadFields returns the terminal fields in document order. A document
// without an AcroForm has no fields.
func (r *PDFCPUFieldReader) ReadFields(data []byte) (fields []AcroField, err error) {
	defer recoverInto(&err, LibraryPDFCPU, "read_fields")

	ctx, err := api.ReadContext(bytes.NewReader(data), r.conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}

	root, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	acroObj, found := root.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acroForm, err := ctx.DereferenceDict(acroObj)
	if err != nil || acroForm == nil {
		return nil, nil
	}
	fieldsObj, found := acroForm.Find("Fields")
	if !found {
		return nil, nil
	}
	roots, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to read form fields: %w", err)
	}

	w := &fieldWalker{ctx: ctx, pages: annotationPages(ctx)}
	for _, obj := range roots {
		w.walk(obj, inherited{})
	}
	return w.out, nil
}

// annotationPages maps annotation object numbers to their 1-based page.
func annotationPages(ctx *model.Context) map[int]int {
	pages := make(map[int]int)
	for i := 1; i <= ctx.PageCount; i++ {
		pageDict, _, _, err := ctx.PageDict(i, false)
		if err != nil || pageDict == nil {
			continue
		}
		annotsObj, found := pageDict.Find("Annots")
		if !found {
			continue
		}
		annots, err := ctx.DereferenceArray(annotsObj)
		if err != nil {
			continue
		}
		for _, a := range annots {
			if ref, ok := a.(types.IndirectRef); ok {
				pages[ref.ObjectNumber.Value()] = i
			}
		}
	}
	return pages
}

// inherited carries the attributes a kid takes from its parent field.
type inherited struct {
	name  string
	ft    string
	flags int
	opts  []string
}

type fieldWalker struct {
	ctx   *model.Context
	pages map[int]int
	out   []AcroField
}

func (w *fieldWalker) walk(obj types.Object, parent inherited) {
	dict, err := w.ctx.DereferenceDict(obj)
	if err != nil || dict == nil {
		return
	}

	attrs := parent
	if partial := w.text(dict, "T"); partial != "" {
		if attrs.name != "" {
			attrs.name += "." + partial
		} else {
			attrs.name = partial
		}
	}
	if ft, err := w.ctx.DereferenceName(dict["FT"], model.V10, nil); err == nil && ft != "" {
		attrs.ft = ft.Value()
	}
	if flags, err := w.ctx.DereferenceInteger(dict["Ff"]); err == nil && flags != nil {
		attrs.flags = flags.Value()
	}
	if opts := w.options(dict); len(opts) > 0 {
		attrs.opts = opts
	}

	// Kids that carry their own name are fields; nameless kids are widgets.
	var widgets []types.Object
	if kidsObj, found := dict.Find("Kids"); found {
		if kids, err := w.ctx.DereferenceArray(kidsObj); err == nil {
			for _, kid := range kids {
				kd, err := w.ctx.DereferenceDict(kid)
				if err != nil || kd == nil {
					continue
				}
				if _, named := kd.Find("T"); named {
					w.walk(kid, attrs)
				} else {
					widgets = append(widgets, kid)
				}
			}
			if len(widgets) == 0 {
				return
			}
		}
	}

	field := AcroField{
		Name:      attrs.name,
		Tooltip:   w.text(dict, "TU"),
		Kind:      kindOf(attrs.ft, attrs.flags),
		Options:   attrs.opts,
		Required:  attrs.flags&flagRequired != 0,
		Multiline: attrs.flags&flagMultiline != 0,
		Page:      1,
	}
	if field.Name == "" || field.Kind == "" {
		return
	}

	if len(widgets) == 0 {
		widgets = []types.Object{obj}
	}
	if len(field.Options) == 0 && (field.Kind == AcroCheckbox || field.Kind == AcroRadio) {
		field.Options = w.onStates(widgets)
	}
	widget := widgets[0]
	rect, page, ok := w.widgetBox(widget)
	if !ok {
		return
	}
	field.Rect = rect
	if page > 0 {
		field.Page = page
	}
	w.out = append(w.out, field)
}

func kindOf(ft string, flags int) AcroKind {
	switch ft {
	case "Tx":
		return AcroText
	case "Btn":
		switch {
		case flags&flagPushButton != 0:
			return AcroPushButton
		case flags&flagRadio != 0:
			return AcroRadio
		}
		return AcroCheckbox
	case "Ch":
		return AcroChoice
	case "Sig":
		return AcroSignature
	}
	return ""
}

func (w *fieldWalker) text(dict types.Dict, key string) string {
	obj, found := dict.Find(key)
	if !found {
		return ""
	}
	s, err := w.ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil)
	if err != nil {
		return ""
	}
	return s
}

// options reads Opt entries, preferring the display text of [export, display] pairs.
func (w *fieldWalker) options(dict types.Dict) []string {
	optObj, found := dict.Find("Opt")
	if !found {
		return nil
	}
	arr, err := w.ctx.DereferenceArray(optObj)
	if err != nil {
		return nil
	}
	var opts []string
	for _, o := range arr {
		if s, err := w.ctx.DereferenceStringOrHexLiteral(o, model.V10, nil); err == nil {
			opts = append(opts, s)
			continue
		}
		if pair, err := w.ctx.DereferenceArray(o); err == nil && len(pair) >= 2 {
			if s, err := w.ctx.DereferenceStringOrHexLiteral(pair[1], model.V10, nil); err == nil {
				opts = append(opts, s)
			}
		}
	}
	return opts
}

// onStates lists the appearance states other than Off, which are the export
// values of checkboxes and radio buttons.
func (w *fieldWalker) onStates(widgets []types.Object) []string {
	var states []string
	seen := make(map[string]bool)
	for _, obj := range widgets {
		dict, err := w.ctx.DereferenceDict(obj)
		if err != nil || dict == nil {
			continue
		}
		ap, err := w.ctx.DereferenceDict(dict["AP"])
		if err != nil || ap == nil {
			continue
		}
		normal, err := w.ctx.DereferenceDict(ap["N"])
		if err != nil || normal == nil {
			continue
		}
		keys := make([]string, 0, len(normal))
		for k := range normal {
			if k != "Off" && !seen[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = true
			states = append(states, k)
		}
	}
	return states
}

// widgetBox reads a widget's normalized Rect and the page it sits on, or 0
// when the page cannot be told.
func (w *fieldWalker) widgetBox(obj types.Object) (geometry.PDFRect, int, bool) {
	dict, err := w.ctx.DereferenceDict(obj)
	if err != nil || dict == nil {
		return geometry.PDFRect{}, 0, false
	}
	arr, err := w.ctx.DereferenceArray(dict["Rect"])
	if err != nil || len(arr) != 4 {
		return geometry.PDFRect{}, 0, false
	}
	var c [4]float64
	for i, o := range arr {
		f, err := w.ctx.DereferenceNumber(o)
		if err != nil {
			return geometry.PDFRect{}, 0, false
		}
		c[i] = f
	}
	rect := geometry.PDFRect{
		X:      math.Min(c[0], c[2]),
		Y:      math.Min(c[1], c[3]),
		Width:  math.Abs(c[2] - c[0]),
		Height: math.Abs(c[3] - c[1]),
	}

	page := 0
	if ref, ok := obj.(types.IndirectRef); ok {
		page = w.pages[ref.ObjectNumber.Value()]
	}
	if page == 0 {
		if p, ok := dict["P"].(types.IndirectRef); ok {
			for i := 1; i <= w.ctx.PageCount; i++ {
				if _, pref, _, err := w.ctx.PageDict(i, false); err == nil && pref != nil && pref.ObjectNumber == p.ObjectNumber {
					page = i
					break
				}
			}
		}
	}
	return rect, page, true
}

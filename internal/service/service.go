// Package service exposes the designer and filler sessions as request and
// result operations shared by the MCP and HTTP transports.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-pdf-forms/internal/config"
	"github.com/a3tai/mcp-pdf-forms/internal/descriptions"
	"github.com/a3tai/mcp-pdf-forms/internal/designer"
	"github.com/a3tai/mcp-pdf-forms/internal/filler"
	"github.com/a3tai/mcp-pdf-forms/internal/form"
	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
	"github.com/a3tai/mcp-pdf-forms/internal/output"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
	"github.com/a3tai/mcp-pdf-forms/internal/session"
)

// maxListedFiles caps the working directory listing of ServerInfo.
const maxListedFiles = 50

// Service runs form operations against the session store.
type Service struct {
	config *config.Config
	store  *session.Store
	sink   output.Sink
}

// New creates a service.
func New(cfg *config.Config, store *session.Store, sink output.Sink) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("session store cannot be nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("output sink cannot be nil")
	}
	return &Service{config: cfg, store: store, sink: sink}, nil
}

// NewStore builds the session store described by cfg.
func NewStore(cfg *config.Config, loader *pdf.Loader) *session.Store {
	return session.NewStore(loader, session.Options{
		MaxSessions: cfg.MaxSessions,
		Designer: designer.Options{
			Scale:   geometry.Scale(cfg.Scale),
			MinRect: cfg.MinRect,
		},
		Filler: filler.Options{
			Scale:   geometry.Scale(cfg.Scale),
			Creator: cfg.ServerName,
		},
	})
}

// Store returns the session store.
func (s *Service) Store() *session.Store {
	return s.store
}

// withDesigner runs fn with exclusive access to a designer session.
func (s *Service) withDesigner(id string, fn func(*designer.Designer) error) error {
	sess, err := s.store.Designer(id)
	if err != nil {
		return err
	}
	return sess.Do(fn)
}

// OpenDesigner starts a designer session.
func (s *Service) OpenDesigner() (session.Info, error) {
	return s.store.OpenDesigner()
}

// OpenFiller starts a filler session.
func (s *Service) OpenFiller() (session.Info, error) {
	return s.store.OpenFiller()
}

// CloseSession drops a session of either kind.
func (s *Service) CloseSession(id string) error {
	if !s.store.Close(id) {
		return fmt.Errorf("%w: %q", session.ErrNotFound, id)
	}
	return nil
}

func documentResult(id string, doc *pdf.Document) *DocumentResult {
	size := doc.CanvasSize()
	return &DocumentResult{
		Session:      id,
		Document:     doc.Name,
		Pages:        len(doc.Pages),
		PageWidth:    doc.Pages[0].Width,
		PageHeight:   doc.Pages[0].Height,
		CanvasWidth:  size.X,
		CanvasHeight: size.Y,
		Scale:        float64(doc.Scale),
	}
}

// DesignerLoadPDF loads a PDF into a designer session.
func (s *Service) DesignerLoadPDF(ctx context.Context, id, name string, data []byte) (*DocumentResult, error) {
	var res *DocumentResult
	err := s.withDesigner(id, func(d *designer.Designer) error {
		if err := d.LoadPDF(ctx, name, data); err != nil {
			return err
		}
		res = documentResult(id, d.Document())
		return nil
	})
	return res, err
}

// DesignerBeginDrawing arms one gesture.
func (s *Service) DesignerBeginDrawing(req SessionRequest) (*PointerResult, error) {
	var res *PointerResult
	err := s.withDesigner(req.Session, func(d *designer.Designer) error {
		if err := d.BeginDrawing(); err != nil {
			return err
		}
		res = &PointerResult{Armed: d.Armed()}
		return nil
	})
	return res, err
}

// DesignerPointer feeds one pointer event to the gesture.
func (s *Service) DesignerPointer(req PointerRequest) (*PointerResult, error) {
	p := geometry.CanvasPoint{X: req.X, Y: req.Y}
	var res *PointerResult
	err := s.withDesigner(req.Session, func(d *designer.Designer) error {
		switch req.Action {
		case PointerDown:
			if err := d.PointerDown(p); err != nil {
				return err
			}
			res = &PointerResult{Armed: d.Armed(), Live: d.Live()}
		case PointerMove:
			res = &PointerResult{Armed: d.Armed(), Live: d.PointerMove(p)}
		case PointerUp:
			hadGesture := d.Live() != nil
			rect := d.PointerUp(p)
			res = &PointerResult{Armed: d.Armed(), Rect: rect, Discarded: hadGesture && rect == nil}
		default:
			return form.Wrap(form.KindValidation, "pointer", fmt.Errorf("unknown pointer action %q (want down, move or up)", req.Action))
		}
		return nil
	})
	return res, err
}

func explicitRect(x, y, w, h *float64) (*geometry.CanvasRect, error) {
	if x == nil && y == nil && w == nil && h == nil {
		return nil, nil
	}
	if x == nil || y == nil || w == nil || h == nil {
		return nil, form.Wrap(form.KindValidation, "field", errors.New("x, y, width and height must be given together"))
	}
	return &geometry.CanvasRect{X: *x, Y: *y, Width: *w, Height: *h}, nil
}

// DesignerAddField opens the field editor over the given or last drawn
// rectangle, applies the request and confirms the field. A rejected field
// leaves its draft open so the next call can correct it.
func (s *Service) DesignerAddField(req FieldRequest) (*FieldResult, error) {
	rect, err := explicitRect(req.X, req.Y, req.Width, req.Height)
	if err != nil {
		return nil, err
	}

	var res *FieldResult
	err = s.withDesigner(req.Session, func(d *designer.Designer) error {
		var f form.Field
		if draft := d.Draft(); draft != nil && rect == nil && d.Candidate() == nil {
			f = *draft
		} else {
			opened, err := d.OpenFieldEditor(rect)
			if err != nil {
				return err
			}
			f = opened
		}

		if req.ID != "" {
			f.ID = req.ID
		}
		if req.Label != "" {
			f.Label = req.Label
		}
		if req.Type != "" {
			f.Type = req.Type
		}
		if req.Required != nil {
			f.Required = *req.Required
		}
		if req.Options != nil {
			f.Options = req.Options
		}
		if req.ListConfig != nil {
			f.ListConfig = req.ListConfig
		}
		if req.Page > 0 {
			f.Page = req.Page
		}

		if err := d.ConfirmField(f); err != nil {
			return err
		}
		res = &FieldResult{Field: &f, Changed: true, Fields: d.Fields()}
		return nil
	})
	return res, err
}

// DesignerCancelField discards the draft.
func (s *Service) DesignerCancelField(req SessionRequest) error {
	return s.withDesigner(req.Session, func(d *designer.Designer) error {
		d.CancelField()
		return nil
	})
}

// DesignerUpdateField edits an existing field in place.
func (s *Service) DesignerUpdateField(req UpdateFieldRequest) (*FieldResult, error) {
	rect, err := explicitRect(req.X, req.Y, req.Width, req.Height)
	if err != nil {
		return nil, err
	}

	var res *FieldResult
	err = s.withDesigner(req.Session, func(d *designer.Designer) error {
		var current *form.Field
		for _, f := range d.Fields() {
			if f.ID == req.ID {
				current = &f
				break
			}
		}
		if current == nil {
			return form.Wrap(form.KindState, "update_field", fmt.Errorf("%w: %s", form.ErrFieldNotFound, req.ID))
		}

		f := *current
		if req.NewID != "" {
			f.ID = req.NewID
		}
		if req.Label != nil {
			f.Label = *req.Label
		}
		if req.Type != "" {
			f.Type = req.Type
		}
		if req.Required != nil {
			f.Required = *req.Required
		}
		if req.Options != nil {
			f.Options = req.Options
		}
		if req.ListConfig != nil {
			f.ListConfig = req.ListConfig
		}
		if rect != nil {
			f.Coordinates = rect
		}
		if req.Page > 0 {
			f.Page = req.Page
		}

		if err := d.UpdateField(req.ID, f); err != nil {
			return err
		}
		res = &FieldResult{Field: &f, Changed: true, Fields: d.Fields()}
		return nil
	})
	return res, err
}

// DesignerRemoveField deletes a field; an unknown id changes nothing.
func (s *Service) DesignerRemoveField(req FieldIDRequest) (*FieldResult, error) {
	var res *FieldResult
	err := s.withDesigner(req.Session, func(d *designer.Designer) error {
		removed := d.RemoveField(req.ID)
		res = &FieldResult{Changed: removed, Fields: d.Fields()}
		return nil
	})
	return res, err
}

// DesignerUndo reverts the last field change.
func (s *Service) DesignerUndo(req SessionRequest) (*FieldResult, error) {
	var res *FieldResult
	err := s.withDesigner(req.Session, func(d *designer.Designer) error {
		undone := d.Undo()
		res = &FieldResult{Changed: undone, Fields: d.Fields()}
		return nil
	})
	return res, err
}

// DesignerTemplate builds the template without writing it.
func (s *Service) DesignerTemplate(req SessionRequest) (*form.Template, error) {
	var t *form.Template
	err := s.withDesigner(req.Session, func(d *designer.Designer) error {
		t = d.GenerateTemplate()
		return nil
	})
	return t, err
}

// DesignerExport writes the template to the sink.
func (s *Service) DesignerExport(ctx context.Context, req SessionRequest) (*ExportResult, error) {
	var res *ExportResult
	err := s.withDesigner(req.Session, func(d *designer.Designer) error {
		obj, err := d.ExportTemplate(ctx, s.sink)
		if err != nil {
			return err
		}
		res = &ExportResult{Object: obj, Fields: len(d.Fields())}
		return nil
	})
	return res, err
}

// DesignerImportTemplate replaces the fields with those of a template.
func (s *Service) DesignerImportTemplate(id string, data []byte) (*FieldResult, error) {
	var res *FieldResult
	err := s.withDesigner(id, func(d *designer.Designer) error {
		if err := d.ImportTemplate(data); err != nil {
			return err
		}
		res = &FieldResult{Changed: true, Fields: d.Fields()}
		return nil
	})
	return res, err
}

// DesignerImportAcroForm adds fields for the interactive form already in
// the loaded document.
func (s *Service) DesignerImportAcroForm(req SessionRequest) (*AcroFormResult, error) {
	var res *AcroFormResult
	err := s.withDesigner(req.Session, func(d *designer.Designer) error {
		imported, err := d.ImportAcroForm()
		if err != nil {
			return err
		}
		res = &AcroFormResult{AcroImport: *imported, Fields: d.Fields()}
		return nil
	})
	return res, err
}

// DesignerPreview renders page 1 with the overlay as PNG.
func (s *Service) DesignerPreview(req SessionRequest) ([]byte, error) {
	var png []byte
	err := s.withDesigner(req.Session, func(d *designer.Designer) error {
		var err error
		png, err = d.Preview()
		return err
	})
	return png, err
}

// DesignerStatus reports a designer session.
func (s *Service) DesignerStatus(req SessionRequest) (*DesignerStatus, error) {
	var st DesignerStatus
	err := s.withDesigner(req.Session, func(d *designer.Designer) error {
		st = d.Status()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// FillerLoadTemplate installs a template in a filler session.
func (s *Service) FillerLoadTemplate(id string, data []byte) (*FillerStatus, error) {
	f, err := s.store.Filler(id)
	if err != nil {
		return nil, err
	}
	if err := f.LoadTemplate(data); err != nil {
		return nil, err
	}
	st := f.Status()
	return &st, nil
}

// FillerLoadPDF loads the document to fill.
func (s *Service) FillerLoadPDF(ctx context.Context, id, name string, data []byte) (*FillerStatus, error) {
	f, err := s.store.Filler(id)
	if err != nil {
		return nil, err
	}
	if err := f.LoadPDF(ctx, name, data); err != nil {
		return nil, err
	}
	st := f.Status()
	return &st, nil
}

func validationResult(f *filler.Filler, v form.Validation, err error) (*ValidationResult, error) {
	if err != nil {
		return nil, err
	}
	return &ValidationResult{Validation: v, Values: f.Values()}, nil
}

// FillerSetValue sets a scalar value.
func (s *Service) FillerSetValue(req SetValueRequest) (*ValidationResult, error) {
	f, err := s.store.Filler(req.Session)
	if err != nil {
		return nil, err
	}
	v, err := f.SetValue(req.ID, req.Value)
	return validationResult(f, v, err)
}

// FillerSetValues sets several values at once.
func (s *Service) FillerSetValues(req SetValuesRequest) (*ValidationResult, error) {
	f, err := s.store.Filler(req.Session)
	if err != nil {
		return nil, err
	}
	v, err := f.SetValues(req.Values)
	return validationResult(f, v, err)
}

// FillerToggleOption checks or unchecks a checkbox option.
func (s *Service) FillerToggleOption(req ToggleOptionRequest) (*ValidationResult, error) {
	f, err := s.store.Filler(req.Session)
	if err != nil {
		return nil, err
	}
	v, err := f.ToggleOption(req.ID, req.Option, req.Checked)
	return validationResult(f, v, err)
}

// FillerSetImage attaches an image to an image field.
func (s *Service) FillerSetImage(id, field string, file filler.ImageFile) (*ValidationResult, error) {
	f, err := s.store.Filler(id)
	if err != nil {
		return nil, err
	}
	v, err := f.SetImage(field, file)
	return validationResult(f, v, err)
}

// FillerClearValue removes a value.
func (s *Service) FillerClearValue(req FieldIDRequest) (*ValidationResult, error) {
	f, err := s.store.Filler(req.Session)
	if err != nil {
		return nil, err
	}
	v, err := f.ClearValue(req.ID)
	return validationResult(f, v, err)
}

// FillerValidate checks every field.
func (s *Service) FillerValidate(req SessionRequest) (*ValidationResult, error) {
	f, err := s.store.Filler(req.Session)
	if err != nil {
		return nil, err
	}
	return validationResult(f, f.Validate(), nil)
}

// FillerGenerate stamps and writes the filled document.
func (s *Service) FillerGenerate(ctx context.Context, req SessionRequest) (*GenerateResult, error) {
	f, err := s.store.Filler(req.Session)
	if err != nil {
		return nil, err
	}
	return f.GenerateFilledPDF(ctx, s.sink)
}

// FillerPreview renders page 1 with the entered values as PNG.
func (s *Service) FillerPreview(req SessionRequest) ([]byte, error) {
	f, err := s.store.Filler(req.Session)
	if err != nil {
		return nil, err
	}
	return f.Preview()
}

// FillerStatus reports a filler session.
func (s *Service) FillerStatus(req SessionRequest) (*FillerStatus, error) {
	f, err := s.store.Filler(req.Session)
	if err != nil {
		return nil, err
	}
	st := f.Status()
	return &st, nil
}

// ServerInfo describes the configuration, open sessions and tools.
func (s *Service) ServerInfo() *ServerInfoResult {
	res := &ServerInfoResult{
		ServerName:  s.config.ServerName,
		Version:     s.config.Version,
		Directory:   s.config.Directory,
		Output:      s.config.Output,
		MaxFileSize: s.config.MaxFileSize,
		Scale:       s.config.Scale,
		MinRect:     s.config.MinRect,
		FieldTypes:  form.FieldTypes,
		Sessions:    s.store.List(),
		Files:       listFiles(s.config.Directory),
	}
	if s.config.Output == output.KindLocal {
		res.OutputDir = s.config.OutputDir
	} else {
		res.Bucket = s.config.Bucket
	}
	for _, name := range descriptions.GetAllToolNames() {
		desc := descriptions.GetToolDescription(name)
		if i := strings.Index(desc, "\n"); i >= 0 {
			desc = desc[:i]
		}
		res.Tools = append(res.Tools, ToolInfo{Name: name, Description: desc})
	}
	return res
}

// listFiles returns the PDFs and templates directly inside dir.
func listFiles(dir string) []FileInfo {
	entries, err := os.ReadDir(dir)
	if err != nil {
		zap.S().Debugw("cannot list working directory", "dir", dir, "error", err)
		return nil
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		kind := ""
		lower := strings.ToLower(e.Name())
		switch {
		case strings.HasSuffix(lower, form.TemplateSuffix):
			kind = "template"
		case strings.HasSuffix(lower, ".pdf"):
			kind = "pdf"
		default:
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: e.Name(), Kind: kind, Size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	if len(files) > maxListedFiles {
		files = files[:maxListedFiles]
	}
	return files
}

package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/config"
	"github.com/a3tai/mcp-pdf-forms/internal/filler"
	"github.com/a3tai/mcp-pdf-forms/internal/form"
	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
	"github.com/a3tai/mcp-pdf-forms/internal/output"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdffake"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdftest"
	"github.com/a3tai/mcp-pdf-forms/internal/session"
)

func f64(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }

type fixture struct {
	svc     *Service
	cfg     *config.Config
	stamper *pdffake.Stamper
	fields  *pdffake.FieldReader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Directory = t.TempDir()
	cfg.OutputDir = cfg.Directory

	stamper := &pdffake.Stamper{}
	fields := &pdffake.FieldReader{}
	loader := pdffake.Loader(&pdffake.Rasterizer{}, stamper)
	loader.Fields = fields
	store := NewStore(cfg, loader)
	sink, err := output.NewLocalSink(cfg.OutputDir)
	require.NoError(t, err)

	svc, err := New(cfg, store, sink)
	require.NoError(t, err)
	return &fixture{svc: svc, cfg: cfg, stamper: stamper, fields: fields}
}

func (fx *fixture) openDesigner(t *testing.T) string {
	t.Helper()
	info, err := fx.svc.OpenDesigner()
	require.NoError(t, err)
	_, err = fx.svc.DesignerLoadPDF(context.Background(), info.ID, "contract.pdf", pdftest.Document(t, 1))
	require.NoError(t, err)
	return info.ID
}

func (fx *fixture) drawRect(t *testing.T, id string, x0, y0, x1, y1 float64) *PointerResult {
	t.Helper()
	_, err := fx.svc.DesignerBeginDrawing(SessionRequest{Session: id})
	require.NoError(t, err)
	_, err = fx.svc.DesignerPointer(PointerRequest{Session: id, Action: PointerDown, X: x0, Y: y0})
	require.NoError(t, err)
	_, err = fx.svc.DesignerPointer(PointerRequest{Session: id, Action: PointerMove, X: x1, Y: y1})
	require.NoError(t, err)
	res, err := fx.svc.DesignerPointer(PointerRequest{Session: id, Action: PointerUp, X: x1, Y: y1})
	require.NoError(t, err)
	return res
}

func TestNewRequiresStoreAndSink(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := New(cfg, nil, nil)
	assert.Error(t, err)

	store := NewStore(cfg, pdffake.Loader(&pdffake.Rasterizer{}, &pdffake.Stamper{}))
	_, err = New(cfg, store, nil)
	assert.Error(t, err)
}

func TestDesignerLoadPDFReportsCanvas(t *testing.T) {
	fx := newFixture(t)
	info, err := fx.svc.OpenDesigner()
	require.NoError(t, err)

	res, err := fx.svc.DesignerLoadPDF(context.Background(), info.ID, "contract.pdf", pdftest.Document(t, 2))
	require.NoError(t, err)
	assert.Equal(t, "contract.pdf", res.Document)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 918, res.CanvasWidth)
	assert.Equal(t, 1188, res.CanvasHeight)
	assert.Equal(t, 1.5, res.Scale)
}

func TestDesignerPointerGesture(t *testing.T) {
	fx := newFixture(t)
	id := fx.openDesigner(t)

	_, err := fx.svc.DesignerPointer(PointerRequest{Session: id, Action: PointerDown, X: 1, Y: 1})
	assert.ErrorIs(t, err, form.ErrDrawingNotArmed)

	res := fx.drawRect(t, id, 450, 345, 150, 300)
	require.NotNil(t, res.Rect)
	assert.False(t, res.Armed)
	assert.False(t, res.Discarded)
	assert.Equal(t, 150.0, res.Rect.X)
	assert.Equal(t, 300.0, res.Rect.Y)
	assert.Equal(t, 300.0, res.Rect.Width)
	assert.Equal(t, 45.0, res.Rect.Height)

	res = fx.drawRect(t, id, 10, 10, 15, 40)
	assert.Nil(t, res.Rect)
	assert.True(t, res.Discarded)

	_, err = fx.svc.DesignerPointer(PointerRequest{Session: id, Action: "drag"})
	assert.True(t, form.IsKind(err, form.KindValidation))
}

func TestDesignerAddFieldFromDrawnRect(t *testing.T) {
	fx := newFixture(t)
	id := fx.openDesigner(t)
	fx.drawRect(t, id, 150, 300, 450, 345)

	res, err := fx.svc.DesignerAddField(FieldRequest{Session: id, ID: "name", Label: "Full name", Required: boolPtr(true)})
	require.NoError(t, err)
	require.NotNil(t, res.Field)
	assert.Equal(t, "name", res.Field.ID)
	assert.True(t, res.Field.Required)
	assert.Equal(t, form.FieldTypeText, res.Field.Type)
	assert.Equal(t, 1, res.Field.Page)
	assert.Equal(t, 300.0, res.Field.Coordinates.Width)
	assert.Len(t, res.Fields, 1)
}

func TestDesignerAddFieldDefaults(t *testing.T) {
	fx := newFixture(t)
	id := fx.openDesigner(t)

	res, err := fx.svc.DesignerAddField(FieldRequest{Session: id, X: f64(10), Y: f64(20), Width: f64(100), Height: f64(30)})
	require.NoError(t, err)
	assert.Equal(t, "field_1", res.Field.ID)
	assert.Equal(t, "Field 1", res.Field.Label)
}

func TestDesignerAddFieldNeedsRectangle(t *testing.T) {
	fx := newFixture(t)
	id := fx.openDesigner(t)

	_, err := fx.svc.DesignerAddField(FieldRequest{Session: id, ID: "name"})
	require.Error(t, err)
	assert.True(t, form.IsKind(err, form.KindState))

	_, err = fx.svc.DesignerAddField(FieldRequest{Session: id, X: f64(10), Y: f64(20)})
	require.Error(t, err)
	assert.True(t, form.IsKind(err, form.KindValidation))
}

func TestDesignerAddFieldRejectedKeepsDraft(t *testing.T) {
	fx := newFixture(t)
	id := fx.openDesigner(t)
	fx.drawRect(t, id, 150, 300, 450, 345)

	_, err := fx.svc.DesignerAddField(FieldRequest{Session: id, ID: "color", Type: form.FieldTypeSelect})
	require.Error(t, err)
	assert.ErrorIs(t, err, form.ErrFieldNotUsable)

	st, err := fx.svc.DesignerStatus(SessionRequest{Session: id})
	require.NoError(t, err)
	require.NotNil(t, st.Draft)
	assert.Equal(t, 0, st.Fields)

	res, err := fx.svc.DesignerAddField(FieldRequest{Session: id, ID: "color", Type: form.FieldTypeSelect, Options: []string{"red", "blue"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"red", "blue"}, res.Field.Options)
	assert.Equal(t, 150.0, res.Field.Coordinates.X)

	st, err = fx.svc.DesignerStatus(SessionRequest{Session: id})
	require.NoError(t, err)
	assert.Nil(t, st.Draft)
}

func TestDesignerCancelField(t *testing.T) {
	fx := newFixture(t)
	id := fx.openDesigner(t)
	fx.drawRect(t, id, 150, 300, 450, 345)

	require.NoError(t, fx.svc.DesignerCancelField(SessionRequest{Session: id}))
	_, err := fx.svc.DesignerAddField(FieldRequest{Session: id})
	assert.Error(t, err)
}

func TestDesignerUpdateRemoveUndo(t *testing.T) {
	fx := newFixture(t)
	id := fx.openDesigner(t)
	_, err := fx.svc.DesignerAddField(FieldRequest{Session: id, ID: "name", X: f64(10), Y: f64(20), Width: f64(100), Height: f64(30)})
	require.NoError(t, err)

	label := "Applicant"
	res, err := fx.svc.DesignerUpdateField(UpdateFieldRequest{Session: id, ID: "name", NewID: "applicant", Label: &label, Width: f64(200), X: f64(10), Y: f64(20), Height: f64(30)})
	require.NoError(t, err)
	assert.Equal(t, "applicant", res.Fields[0].ID)
	assert.Equal(t, "Applicant", res.Fields[0].Label)
	assert.Equal(t, 200.0, res.Fields[0].Coordinates.Width)

	_, err = fx.svc.DesignerUpdateField(UpdateFieldRequest{Session: id, ID: "missing"})
	assert.ErrorIs(t, err, form.ErrFieldNotFound)

	res, err = fx.svc.DesignerRemoveField(FieldIDRequest{Session: id, ID: "missing"})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Len(t, res.Fields, 1)

	res, err = fx.svc.DesignerRemoveField(FieldIDRequest{Session: id, ID: "applicant"})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Empty(t, res.Fields)

	res, err = fx.svc.DesignerUndo(SessionRequest{Session: id})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	require.Len(t, res.Fields, 1)
	assert.Equal(t, "applicant", res.Fields[0].ID)

	res, err = fx.svc.DesignerUndo(SessionRequest{Session: id})
	require.NoError(t, err)
	assert.Equal(t, "name", res.Fields[0].ID)
}

func TestDesignToFillRoundTrip(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	id := fx.openDesigner(t)

	fx.drawRect(t, id, 150, 300, 450, 345)
	_, err := fx.svc.DesignerAddField(FieldRequest{Session: id, ID: "name", Label: "Full name", Required: boolPtr(true)})
	require.NoError(t, err)
	_, err = fx.svc.DesignerAddField(FieldRequest{Session: id, ID: "email", Type: form.FieldTypeEmail, X: f64(150), Y: f64(360), Width: f64(300), Height: f64(45)})
	require.NoError(t, err)

	tpl, err := fx.svc.DesignerTemplate(SessionRequest{Session: id})
	require.NoError(t, err)
	assert.Equal(t, "contract.pdf", tpl.Document.Name)
	assert.Len(t, tpl.Fields, 2)

	exp, err := fx.svc.DesignerExport(ctx, SessionRequest{Session: id})
	require.NoError(t, err)
	assert.Equal(t, 2, exp.Fields)
	assert.Equal(t, "contract_fields.json", exp.Object.Name)

	templateData, err := os.ReadFile(filepath.Join(fx.cfg.OutputDir, "contract_fields.json"))
	require.NoError(t, err)

	fill, err := fx.svc.OpenFiller()
	require.NoError(t, err)
	st, err := fx.svc.FillerLoadTemplate(fill.ID, templateData)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Fields)
	_, err = fx.svc.FillerLoadPDF(ctx, fill.ID, "contract.pdf", pdftest.Document(t, 1))
	require.NoError(t, err)

	v, err := fx.svc.FillerValidate(SessionRequest{Session: fill.ID})
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Equal(t, "Full name is required", v.Errors["name"])

	_, err = fx.svc.FillerGenerate(ctx, SessionRequest{Session: fill.ID})
	assert.ErrorIs(t, err, form.ErrFormInvalid)

	v, err = fx.svc.FillerSetValue(SetValueRequest{Session: fill.ID, ID: "email", Value: "nope"})
	require.NoError(t, err)
	assert.Equal(t, "Invalid email format", v.Errors["email"])

	v, err = fx.svc.FillerSetValues(SetValuesRequest{Session: fill.ID, Values: form.FormData{
		"name":  form.TextValue("Ada Lovelace"),
		"email": form.TextValue("ada@example.com"),
	}})
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.Len(t, v.Values, 2)

	gen, err := fx.svc.FillerGenerate(ctx, SessionRequest{Session: fill.ID})
	require.NoError(t, err)
	assert.Equal(t, "filled_contract.pdf", gen.Object.Name)
	assert.FileExists(t, filepath.Join(fx.cfg.OutputDir, "filled_contract.pdf"))
	assert.Len(t, fx.stamper.Calls(), 1)
}

func TestDesignerImportTemplate(t *testing.T) {
	fx := newFixture(t)
	id := fx.openDesigner(t)

	res, err := fx.svc.DesignerImportTemplate(id, []byte(`{"fields":[{"id":"a","label":"A","type":"text","coordinates":{"x":1,"y":2,"width":30,"height":20}}]}`))
	require.NoError(t, err)
	require.Len(t, res.Fields, 1)
	assert.Equal(t, 1, res.Fields[0].Page)

	_, err = fx.svc.DesignerImportTemplate(id, []byte(`[]`))
	assert.ErrorIs(t, err, form.ErrInvalidTemplate)
}

func TestDesignerImportAcroForm(t *testing.T) {
	fx := newFixture(t)
	fx.fields.Fields = []pdf.AcroField{
		{Name: "name", Kind: pdf.AcroText, Required: true, Page: 1, Rect: geometry.PDFRect{X: 72, Y: 700, Width: 300, Height: 24}},
		{Name: "submit", Kind: pdf.AcroPushButton, Page: 1, Rect: geometry.PDFRect{X: 400, Y: 50, Width: 100, Height: 30}},
	}
	id := fx.openDesigner(t)

	res, err := fx.svc.DesignerImportAcroForm(SessionRequest{Session: id})
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, res.Added)
	assert.Contains(t, res.Skipped, "submit")
	require.Len(t, res.Fields, 1)
	assert.True(t, res.Fields[0].Required)

	undo, err := fx.svc.DesignerUndo(SessionRequest{Session: id})
	require.NoError(t, err)
	assert.True(t, undo.Changed)
	assert.Empty(t, undo.Fields)
}

func TestFillerValueOperations(t *testing.T) {
	fx := newFixture(t)
	fill, err := fx.svc.OpenFiller()
	require.NoError(t, err)
	_, err = fx.svc.FillerLoadTemplate(fill.ID, []byte(`{"fields":[
		{"id":"colors","label":"Colours","type":"checkbox","options":["red","blue"],"coordinates":{"x":1,"y":2,"width":30,"height":20}},
		{"id":"photo","label":"Photo","type":"image","coordinates":{"x":1,"y":40,"width":30,"height":20}}
	]}`))
	require.NoError(t, err)

	v, err := fx.svc.FillerToggleOption(ToggleOptionRequest{Session: fill.ID, ID: "colors", Option: "blue", Checked: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"blue"}, v.Values["colors"].List)

	v, err = fx.svc.FillerSetImage(fill.ID, "photo", filler.ImageFile{Name: "me.png", ContentType: "image/png", Data: pdftest.PNG(t, 4, 4)})
	require.NoError(t, err)
	assert.Equal(t, "me.png", v.Values["photo"].Text)

	v, err = fx.svc.FillerClearValue(FieldIDRequest{Session: fill.ID, ID: "photo"})
	require.NoError(t, err)
	assert.NotContains(t, v.Values, "photo")

	_, err = fx.svc.FillerSetValue(SetValueRequest{Session: fill.ID, ID: "colors", Value: "red"})
	assert.Error(t, err)

	_, err = fx.svc.FillerGenerate(context.Background(), SessionRequest{Session: fill.ID})
	assert.ErrorIs(t, err, form.ErrNotReady)
}

func TestSessionKindsAreSeparate(t *testing.T) {
	fx := newFixture(t)
	fill, err := fx.svc.OpenFiller()
	require.NoError(t, err)

	_, err = fx.svc.DesignerStatus(SessionRequest{Session: fill.ID})
	assert.ErrorIs(t, err, session.ErrNotFound)

	require.NoError(t, fx.svc.CloseSession(fill.ID))
	err = fx.svc.CloseSession(fill.ID)
	assert.True(t, errors.Is(err, session.ErrNotFound))

	_, err = fx.svc.FillerStatus(SessionRequest{Session: fill.ID})
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestPreviews(t *testing.T) {
	fx := newFixture(t)
	id := fx.openDesigner(t)

	png, err := fx.svc.DesignerPreview(SessionRequest{Session: id})
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))

	fill, err := fx.svc.OpenFiller()
	require.NoError(t, err)
	_, err = fx.svc.FillerPreview(SessionRequest{Session: fill.ID})
	assert.Error(t, err)
}

func TestServerInfo(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(fx.cfg.Directory, "contract.pdf"), pdftest.Document(t, 1), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(fx.cfg.Directory, "contract_fields.json"), []byte(`{"fields":[]}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(fx.cfg.Directory, "readme.txt"), []byte("hi"), 0o600))
	_, err := fx.svc.OpenDesigner()
	require.NoError(t, err)

	info := fx.svc.ServerInfo()
	assert.Equal(t, "mcp-pdf-forms", info.ServerName)
	assert.Equal(t, fx.cfg.OutputDir, info.OutputDir)
	assert.Len(t, info.Sessions, 1)
	require.Len(t, info.Files, 2)
	assert.Equal(t, FileInfo{Name: "contract.pdf", Kind: "pdf", Size: info.Files[0].Size}, info.Files[0])
	assert.Equal(t, "template", info.Files[1].Kind)
	assert.Len(t, info.FieldTypes, 9)

	names := make([]string, 0, len(info.Tools))
	for _, tool := range info.Tools {
		assert.NotContains(t, tool.Description, "\n")
		names = append(names, tool.Name)
	}
	assert.Contains(t, names, "designer_add_field")
	assert.Contains(t, names, "filler_generate")
}

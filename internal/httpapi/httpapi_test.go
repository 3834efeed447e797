package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/config"
	"github.com/a3tai/mcp-pdf-forms/internal/form"
	"github.com/a3tai/mcp-pdf-forms/internal/output"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdffake"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdftest"
	"github.com/a3tai/mcp-pdf-forms/internal/service"
	"github.com/a3tai/mcp-pdf-forms/internal/session"
)

type client struct {
	t       *testing.T
	handler http.Handler
	cfg     *config.Config
}

func newClient(t *testing.T) *client {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Directory = t.TempDir()
	cfg.OutputDir = cfg.Directory
	cfg.MaxFileSize = 1 << 20

	store := service.NewStore(cfg, pdffake.Loader(&pdffake.Rasterizer{}, &pdffake.Stamper{}))
	sink, err := output.NewLocalSink(cfg.OutputDir)
	require.NoError(t, err)
	svc, err := service.New(cfg, store, sink)
	require.NoError(t, err)
	srv, err := NewServer(cfg, svc)
	require.NoError(t, err)
	return &client{t: t, handler: srv.Handler(), cfg: cfg}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func (c *client) json(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) upload(path, filename string, data []byte) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(FileField, filename)
	require.NoError(c.t, err)
	_, err = part.Write(data)
	require.NoError(c.t, err)
	require.NoError(c.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (c *client) open(kind string) string {
	c.t.Helper()
	rec := c.json(http.MethodPost, "/api/v1/"+kind, nil)
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[session.Info](c.t, rec).ID
}

func TestHealthz(t *testing.T) {
	c := newClient(t)
	rec := c.json(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDesignAndFillOverHTTP(t *testing.T) {
	c := newClient(t)
	doc := pdftest.Document(t, 1)

	id := c.open("designer")
	rec := c.upload("/api/v1/designer/"+id+"/pdf", "contract.pdf", doc)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loaded := decode[service.DocumentResult](t, rec)
	assert.Equal(t, "contract.pdf", loaded.Document)
	assert.Equal(t, 918, loaded.CanvasWidth)

	rec = c.json(http.MethodPost, "/api/v1/designer/"+id+"/drawing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, ev := range []service.PointerRequest{
		{Action: service.PointerDown, X: 150, Y: 300},
		{Action: service.PointerMove, X: 450, Y: 345},
		{Action: service.PointerUp, X: 450, Y: 345},
	} {
		rec = c.json(http.MethodPost, "/api/v1/designer/"+id+"/pointer", ev)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	assert.NotNil(t, decode[service.PointerResult](t, rec).Rect)

	required := true
	rec = c.json(http.MethodPost, "/api/v1/designer/"+id+"/fields", service.FieldRequest{ID: "name", Label: "Full name", Required: &required})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	label := "Applicant"
	rec = c.json(http.MethodPatch, "/api/v1/designer/"+id+"/fields/name", service.UpdateFieldRequest{Label: &label})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Applicant", decode[service.FieldResult](t, rec).Fields[0].Label)

	rec = c.json(http.MethodGet, "/api/v1/designer/"+id+"/template", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	templateData := rec.Body.Bytes()
	tpl, err := form.ParseTemplate(templateData)
	require.NoError(t, err)
	assert.Equal(t, "contract.pdf", tpl.Document.Name)

	rec = c.json(http.MethodPost, "/api/v1/designer/"+id+"/export", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.FileExists(t, filepath.Join(c.cfg.OutputDir, "contract_fields.json"))

	rec = c.json(http.MethodGet, "/api/v1/designer/"+id+"/preview", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	fill := c.open("filler")
	rec = c.upload("/api/v1/filler/"+fill+"/template", "contract_fields.json", templateData)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = c.upload("/api/v1/filler/"+fill+"/pdf", "contract.pdf", doc)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.json(http.MethodGet, "/api/v1/filler/"+fill+"/validation", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[service.ValidationResult](t, rec)
	assert.False(t, v.Valid)
	assert.Equal(t, "Applicant is required", v.Errors["name"])

	rec = c.json(http.MethodPost, "/api/v1/filler/"+fill+"/generate", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"validation"`)

	rec = c.json(http.MethodPut, "/api/v1/filler/"+fill+"/values/name", map[string]string{"value": "Ada Lovelace"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[service.ValidationResult](t, rec).Valid)

	rec = c.json(http.MethodPost, "/api/v1/filler/"+fill+"/generate", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "filled_contract.pdf", decode[service.GenerateResult](t, rec).Object.Name)
}

func TestFillerValuesAndImages(t *testing.T) {
	c := newClient(t)
	fill := c.open("filler")
	rec := c.upload("/api/v1/filler/"+fill+"/template", "t.json", []byte(`{"fields":[
		{"id":"colors","label":"Colours","type":"checkbox","options":["red","blue"],"coordinates":{"x":1,"y":2,"width":30,"height":20}},
		{"id":"photo","label":"Photo","type":"image","coordinates":{"x":1,"y":40,"width":30,"height":20}},
		{"id":"age","label":"Age","type":"number","coordinates":{"x":1,"y":80,"width":30,"height":20}}
	]}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.json(http.MethodPost, "/api/v1/filler/"+fill+"/values/colors/options", service.ToggleOptionRequest{Option: "red", Checked: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"red"}, decode[service.ValidationResult](t, rec).Values["colors"].List)

	rec = c.upload("/api/v1/filler/"+fill+"/images/photo", "me.png", pdftest.PNG(t, 4, 4))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "me.png", decode[service.ValidationResult](t, rec).Values["photo"].Text)

	rec = c.json(http.MethodPatch, "/api/v1/filler/"+fill+"/values", map[string]any{"values": map[string]any{"age": "abc"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Must be a valid number", decode[service.ValidationResult](t, rec).Errors["age"])

	rec = c.json(http.MethodDelete, "/api/v1/filler/"+fill+"/values/age", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[service.ValidationResult](t, rec).Valid)

	rec = c.json(http.MethodPut, "/api/v1/filler/"+fill+"/values/missing", map[string]string{"value": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUploadErrors(t *testing.T) {
	c := newClient(t)
	id := c.open("designer")

	rec := c.json(http.MethodPost, "/api/v1/designer/"+id+"/pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.upload("/api/v1/designer/"+id+"/pdf", "big.pdf", make([]byte, c.cfg.MaxFileSize+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = c.upload("/api/v1/designer/"+id+"/pdf", "notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"load"`)
}

func TestSessionErrors(t *testing.T) {
	c := newClient(t)

	rec := c.json(http.MethodGet, "/api/v1/designer/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	id := c.open("designer")
	rec = c.json(http.MethodGet, "/api/v1/filler/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.json(http.MethodPost, "/api/v1/designer/"+id+"/pointer", service.PointerRequest{Action: service.PointerDown})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.json(http.MethodPost, "/api/v1/designer/"+id+"/pointer", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.json(http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = c.json(http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportAcroForm(t *testing.T) {
	c := newClient(t)
	id := c.open("designer")

	rec := c.json(http.MethodPost, "/api/v1/designer/"+id+"/acroform", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "no PDF loaded yet")

	rec = c.upload("/api/v1/designer/"+id+"/pdf", "contract.pdf", pdftest.Document(t, 1))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.json(http.MethodPost, "/api/v1/designer/"+id+"/acroform", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[service.AcroFormResult](t, rec)
	assert.Empty(t, result.Added)
	assert.Empty(t, result.Fields)
}

func TestServerInfo(t *testing.T) {
	c := newClient(t)
	c.open("filler")

	rec := c.json(http.MethodGet, "/api/v1/info", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[service.ServerInfoResult](t, rec)
	assert.Equal(t, "mcp-pdf-forms", info.ServerName)
	assert.Len(t, info.Sessions, 1)
	assert.NotEmpty(t, info.Tools)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: x", session.ErrNotFound), http.StatusNotFound},
		{session.ErrTooMany, http.StatusTooManyRequests},
		{form.Wrap(form.KindLoad, "load", pdf.ErrTooLarge), http.StatusRequestEntityTooLarge},
		{form.Wrap(form.KindLoad, "load", pdf.ErrNotPDF), http.StatusUnprocessableEntity},
		{form.Wrap(form.KindState, "generate", form.ErrGenerationInProgress), http.StatusConflict},
		{form.Wrap(form.KindExport, "generate", errors.New("disk full")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

package form

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
)

func rect(x, y, w, h float64) *geometry.CanvasRect {
	return &geometry.CanvasRect{X: x, Y: y, Width: w, Height: h}
}

func sampleFields() []Field {
	return []Field{
		{ID: "name", Label: "Full name", Type: FieldTypeText, Required: true, Coordinates: rect(10, 10, 200, 30), Page: 1},
		{ID: "email", Label: "Email", Type: FieldTypeEmail, Coordinates: rect(10, 50, 200, 30), Page: 1},
		{ID: "colors", Label: "Colors", Type: FieldTypeCheckbox, Options: []string{"red", "blue"}, Coordinates: rect(10, 90, 200, 30), Page: 1},
		{
			ID: "items", Label: "Items", Type: FieldTypeList, Coordinates: rect(10, 130, 300, 120), Page: 1,
			ListConfig: &ListConfig{MinItems: 1, MaxItems: 5, Columns: []Column{
				{ID: "desc", Label: "Description", Type: FieldTypeText, Required: true, Width: 200},
				{ID: "qty", Label: "Qty", Type: FieldTypeNumber, Width: 60},
			}},
		},
		{ID: "draft", Label: "Draft", Type: FieldTypeText, Page: 1},
	}
}

func TestGenerateTemplate_SkipsDrafts(t *testing.T) {
	tpl := GenerateTemplate("contract.pdf", sampleFields(), time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	require.Len(t, tpl.Fields, 4)
	assert.NotContains(t, tpl.Schema, "draft")
	assert.Equal(t, "contract.pdf", tpl.Document.Name)
	assert.Equal(t, DefaultVersion, tpl.Document.Version)
}

func TestGenerateTemplate_SchemaConsistency(t *testing.T) {
	tpl := GenerateTemplate("doc.pdf", sampleFields(), time.Now())

	require.Len(t, tpl.Schema, len(tpl.Fields))
	for _, f := range tpl.Fields {
		entry, ok := tpl.Schema[f.ID]
		require.True(t, ok, "schema entry for %s", f.ID)
		assert.Equal(t, f.Type, entry.Type)
		assert.Equal(t, f.Required, entry.Required)
		assert.Equal(t, f.Label, entry.Label)
		assert.Equal(t, f.ListConfig, entry.ListConfig)
	}
}

func TestGenerateTemplate_Idempotent(t *testing.T) {
	fields := sampleFields()

	first, err := GenerateTemplate("doc.pdf", fields, time.Unix(100, 0)).Marshal()
	require.NoError(t, err)
	second, err := GenerateTemplate("doc.pdf", fields, time.Unix(100, 0)).Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))

	// Only the creation timestamp differs between calls at different times.
	a := GenerateTemplate("doc.pdf", fields, time.Unix(100, 0))
	b := GenerateTemplate("doc.pdf", fields, time.Unix(999, 0))
	b.Document.Created = a.Document.Created
	assert.Equal(t, a, b)
}

func TestGenerateTemplate_DoesNotAliasFields(t *testing.T) {
	fields := sampleFields()
	tpl := GenerateTemplate("doc.pdf", fields, time.Now())

	tpl.Fields[0].Coordinates.X = 999
	tpl.Fields[2].Options[0] = "changed"

	assert.Equal(t, 10.0, fields[0].Coordinates.X)
	assert.Equal(t, "red", fields[2].Options[0])
}

func TestTemplateJSONShape(t *testing.T) {
	tpl := GenerateTemplate("doc.pdf", sampleFields()[:4], time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	data, err := tpl.Marshal()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	doc := raw["document"].(map[string]any)
	assert.Equal(t, "2026-05-01T00:00:00Z", doc["created"])

	fields := raw["fields"].([]any)
	items := fields[3].(map[string]any)
	assert.Contains(t, items, "listConfig")
	assert.Contains(t, items, "coordinates")
	assert.NotContains(t, fields[0].(map[string]any), "options")

	schema := raw["schema"].(map[string]any)
	assert.Contains(t, schema["items"].(map[string]any), "listConfig")
}

func TestParseTemplate_RoundTrip(t *testing.T) {
	tpl := GenerateTemplate("doc.pdf", sampleFields(), time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	data, err := tpl.Marshal()
	require.NoError(t, err)

	parsed, err := ParseTemplate(data)
	require.NoError(t, err)
	assert.Equal(t, tpl, parsed)
}

func TestParseTemplate_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"fields": [`},
		{"not an object", `[1, 2, 3]`},
		{"missing fields", `{"document": {"name": "x"}}`},
		{"null fields", `{"fields": null}`},
		{"fields not an array", `{"fields": {"a": 1}}`},
		{"unknown type", `{"fields": [{"id": "a", "type": "signature"}]}`},
		{"missing id", `{"fields": [{"type": "text"}]}`},
		{"negative coordinate", `{"fields": [{"id": "a", "type": "text", "coordinates": {"x": -1, "y": 0, "width": 10, "height": 10}}]}`},
		{"duplicate ids", `{"fields": [{"id": "a", "type": "text"}, {"id": "a", "type": "date"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplate([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTemplate), "got %v", err)
		})
	}
}

func TestParseTemplate_MinimalDocument(t *testing.T) {
	parsed, err := ParseTemplate([]byte(`{"fields": [{"id": "a", "type": "text", "label": "A",
		"coordinates": {"x": 1, "y": 2, "width": 30, "height": 20}}]}`))
	require.NoError(t, err)

	require.Len(t, parsed.Fields, 1)
	assert.Equal(t, 1, parsed.Fields[0].Page)
	assert.Equal(t, SchemaEntry{Type: FieldTypeText, Label: "A"}, parsed.Schema["a"])
}

func TestTemplateFileName(t *testing.T) {
	assert.Equal(t, "invoice_fields.json", TemplateFileName("invoice.pdf"))
	assert.Equal(t, "invoice_fields.json", TemplateFileName("/tmp/forms/invoice.pdf"))
	assert.Equal(t, "archive.v2_fields.json", TemplateFileName("archive.v2.pdf"))
	assert.Equal(t, "document_fields.json", TemplateFileName(""))
}

func TestFieldUsable(t *testing.T) {
	tests := []struct {
		name    string
		field   Field
		wantErr bool
	}{
		{"text ok", Field{ID: "a", Type: FieldTypeText, Coordinates: rect(0, 0, 20, 20), Page: 1}, false},
		{"no coordinates", Field{ID: "a", Type: FieldTypeText, Page: 1}, true},
		{"empty id", Field{Type: FieldTypeText, Coordinates: rect(0, 0, 20, 20), Page: 1}, true},
		{"unknown type", Field{ID: "a", Type: "blob", Coordinates: rect(0, 0, 20, 20), Page: 1}, true},
		{"select without options", Field{ID: "a", Type: FieldTypeSelect, Coordinates: rect(0, 0, 20, 20), Page: 1}, true},
		{"select with options", Field{ID: "a", Type: FieldTypeSelect, Options: []string{"x"}, Coordinates: rect(0, 0, 20, 20), Page: 1}, false},
		{"checkbox without options", Field{ID: "a", Type: FieldTypeCheckbox, Coordinates: rect(0, 0, 20, 20), Page: 1}, true},
		{"list without columns", Field{ID: "a", Type: FieldTypeList, ListConfig: &ListConfig{}, Coordinates: rect(0, 0, 20, 20), Page: 1}, true},
		{
			"list with duplicate columns",
			Field{ID: "a", Type: FieldTypeList, Coordinates: rect(0, 0, 20, 20), Page: 1,
				ListConfig: &ListConfig{Columns: []Column{{ID: "c"}, {ID: "c"}}}},
			true,
		},
		{
			"list ok",
			Field{ID: "a", Type: FieldTypeList, Coordinates: rect(0, 0, 20, 20), Page: 1,
				ListConfig: &ListConfig{MinItems: 1, MaxItems: 3, Columns: []Column{{ID: "c", Type: FieldTypeText}}}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.field.Usable()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrFieldNotUsable)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

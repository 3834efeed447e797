package form

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// DefaultVersion is written to document.version for new templates.
const DefaultVersion = "1.0"

// TemplateSuffix is appended to the PDF base name for exported templates.
const TemplateSuffix = "_fields.json"

// TemplateFileName returns the export name for a template designed over pdfName.
func TemplateFileName(pdfName string) string {
	base := filepath.Base(pdfName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "document"
	}
	return base + TemplateSuffix
}

// SchemaEntryFor derives the schema index entry of a single field.
func SchemaEntryFor(f Field) SchemaEntry {
	return SchemaEntry{
		Type:       f.Type,
		Required:   f.Required,
		Label:      f.Label,
		ListConfig: f.ListConfig.clone(),
	}
}

// BuildSchema derives the schema index from a field list.
func BuildSchema(fields []Field) map[string]SchemaEntry {
	schema := make(map[string]SchemaEntry, len(fields))
	for _, f := range fields {
		schema[f.ID] = SchemaEntryFor(f)
	}
	return schema
}

// GenerateTemplate builds a template from fields without modifying them.
// Drafts (fields without coordinates) are left out.
func GenerateTemplate(name string, fields []Field, created time.Time) *Template {
	kept := make([]Field, 0, len(fields))
	for _, f := range fields {
		if f.Coordinates == nil {
			continue
		}
		kept = append(kept, f.Clone())
	}
	return &Template{
		Document: DocumentInfo{
			Name:    name,
			Version: DefaultVersion,
			Created: created.UTC(),
		},
		Fields: kept,
		Schema: BuildSchema(kept),
	}
}

// Marshal encodes a template as indented JSON.
func (t *Template) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode template: %w", err)
	}
	return data, nil
}

const templateSchema = `{
  "type": "object",
  "required": ["fields"],
  "properties": {
    "document": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "version": {"type": "string"},
        "created": {"type": "string"}
      }
    },
    "fields": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "label": {"type": "string"},
          "type": {"enum": ["text", "number", "email", "date", "select", "checkbox", "textarea", "image", "list"]},
          "required": {"type": "boolean"},
          "options": {"type": "array", "items": {"type": "string"}},
          "page": {"type": "integer", "minimum": 1},
          "coordinates": {
            "type": ["object", "null"],
            "properties": {
              "x": {"type": "number", "minimum": 0},
              "y": {"type": "number", "minimum": 0},
              "width": {"type": "number", "minimum": 0},
              "height": {"type": "number", "minimum": 0}
            }
          },
          "listConfig": {
            "type": "object",
            "properties": {
              "minItems": {"type": "integer", "minimum": 0},
              "maxItems": {"type": "integer", "minimum": 0},
              "columns": {"type": "array"}
            }
          }
        }
      }
    },
    "schema": {"type": "object"}
  }
}`

var (
	resolvedSchemaOnce sync.Once
	resolvedSchema     *jsonschema.Resolved
	resolvedSchemaErr  error
)

func templateValidator() (*jsonschema.Resolved, error) {
	resolvedSchemaOnce.Do(func() {
		var schema jsonschema.Schema
		if err := json.Unmarshal([]byte(templateSchema), &schema); err != nil {
			resolvedSchemaErr = fmt.Errorf("failed to unmarshal template schema: %w", err)
			return
		}
		resolvedSchema, resolvedSchemaErr = schema.Resolve(&jsonschema.ResolveOptions{})
	})
	return resolvedSchema, resolvedSchemaErr
}

// ParseTemplate decodes and checks a template document. Every failure wraps
// ErrInvalidTemplate. The schema index is rebuilt from the field list.
func ParseTemplate(data []byte) (*Template, error) {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if obj, ok := instance.(map[string]any); !ok || obj["fields"] == nil {
		return nil, fmt.Errorf("%w: missing fields array", ErrInvalidTemplate)
	}

	validator, err := templateValidator()
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	seen := make(map[string]bool, len(t.Fields))
	for i := range t.Fields {
		f := &t.Fields[i]
		if seen[f.ID] {
			return nil, fmt.Errorf("%w: %w %q", ErrInvalidTemplate, ErrDuplicateField, f.ID)
		}
		seen[f.ID] = true
		if f.Page == 0 {
			f.Page = 1
		}
	}
	t.Schema = BuildSchema(t.Fields)

	return &t, nil
}

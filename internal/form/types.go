// Package form defines the field model shared by the designer and the filler
// through the template JSON document, plus value validation.
package form

import (
	"fmt"
	"time"

	"github.com/a3tai/mcp-pdf-forms/internal/geometry"
)

// FieldType names one of the supported field kinds.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeNumber   FieldType = "number"
	FieldTypeEmail    FieldType = "email"
	FieldTypeDate     FieldType = "date"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeImage    FieldType = "image"
	FieldTypeList     FieldType = "list"
)

// FieldTypes lists every field type in palette order.
var FieldTypes = []FieldType{
	FieldTypeText,
	FieldTypeNumber,
	FieldTypeEmail,
	FieldTypeDate,
	FieldTypeSelect,
	FieldTypeCheckbox,
	FieldTypeTextarea,
	FieldTypeImage,
	FieldTypeList,
}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	_, ok := KindOf(t)
	return ok
}

// Column is one column of a list field's tabular sub-schema.
type Column struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Width    float64   `json:"width"`
}

// ListConfig bounds the rows of a list field and describes its columns.
type ListConfig struct {
	MinItems int      `json:"minItems"`
	MaxItems int      `json:"maxItems"`
	Columns  []Column `json:"columns"`
}

func (c *ListConfig) clone() *ListConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.Columns = append([]Column(nil), c.Columns...)
	return &out
}

// Field is a named, typed region of a document page.
// A nil Coordinates marks a draft that must not be serialized.
type Field struct {
	ID          string               `json:"id"`
	Label       string               `json:"label"`
	Type        FieldType            `json:"type"`
	Required    bool                 `json:"required"`
	Options     []string             `json:"options,omitempty"`
	ListConfig  *ListConfig          `json:"listConfig,omitempty"`
	Coordinates *geometry.CanvasRect `json:"coordinates"`
	Page        int                  `json:"page"`
}

// Clone returns a deep copy.
func (f Field) Clone() Field {
	out := f
	out.Options = append([]string(nil), f.Options...)
	out.ListConfig = f.ListConfig.clone()
	if f.Coordinates != nil {
		c := *f.Coordinates
		out.Coordinates = &c
	}
	return out
}

// Kind returns the behaviour set of the field's type.
func (f Field) Kind() Kind {
	k, ok := KindOf(f.Type)
	if !ok {
		return textKind{}
	}
	return k
}

// DisplayName is the label, falling back to the id.
func (f Field) DisplayName() string {
	if f.Label != "" {
		return f.Label
	}
	return f.ID
}

// Usable reports why a field cannot take part in a template yet.
func (f Field) Usable() error {
	if f.ID == "" {
		return fmt.Errorf("%w: id is empty", ErrFieldNotUsable)
	}
	k, ok := KindOf(f.Type)
	if !ok {
		return fmt.Errorf("%w: unknown type %q", ErrFieldNotUsable, f.Type)
	}
	if f.Coordinates == nil {
		return fmt.Errorf("%w: %s has no coordinates", ErrFieldNotUsable, f.ID)
	}
	if !f.Coordinates.Valid() {
		return fmt.Errorf("%w: %s has invalid coordinates %s", ErrFieldNotUsable, f.ID, f.Coordinates)
	}
	if f.Page < 1 {
		return fmt.Errorf("%w: %s has page %d", ErrFieldNotUsable, f.ID, f.Page)
	}
	if k.NeedsOptions() && len(f.Options) == 0 {
		return fmt.Errorf("%w: %s field %s needs at least one option", ErrFieldNotUsable, f.Type, f.ID)
	}
	if k.NeedsColumns() {
		if f.ListConfig == nil || len(f.ListConfig.Columns) == 0 {
			return fmt.Errorf("%w: list field %s needs at least one column", ErrFieldNotUsable, f.ID)
		}
		if f.ListConfig.MaxItems > 0 && f.ListConfig.MinItems > f.ListConfig.MaxItems {
			return fmt.Errorf("%w: list field %s has minItems above maxItems", ErrFieldNotUsable, f.ID)
		}
		seen := make(map[string]bool, len(f.ListConfig.Columns))
		for _, c := range f.ListConfig.Columns {
			if c.ID == "" || seen[c.ID] {
				return fmt.Errorf("%w: list field %s has empty or duplicate column id %q", ErrFieldNotUsable, f.ID, c.ID)
			}
			seen[c.ID] = true
		}
	}
	return nil
}

// DocumentInfo describes the document a template was designed for.
type DocumentInfo struct {
	Name    string    `json:"name"`
	Version string    `json:"version"`
	Created time.Time `json:"created"`
}

// SchemaEntry is the denormalized per-field index kept next to the field list.
type SchemaEntry struct {
	Type       FieldType   `json:"type"`
	Required   bool        `json:"required"`
	Label      string      `json:"label"`
	ListConfig *ListConfig `json:"listConfig,omitempty"`
}

// Template is the interchange document between designer and filler.
type Template struct {
	Document DocumentInfo           `json:"document"`
	Fields   []Field                `json:"fields"`
	Schema   map[string]SchemaEntry `json:"schema"`
}

// Field returns the field with the given id.
func (t *Template) Field(id string) (Field, bool) {
	for _, f := range t.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

package form

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Value is an entered field value: a string for most field types, a list of
// strings for checkbox fields.
type Value struct {
	Text   string
	List   []string
	IsList bool
}

// TextValue wraps a scalar value.
func TextValue(s string) Value {
	return Value{Text: s}
}

// ListValue wraps a list value.
func ListValue(items ...string) Value {
	return Value{List: append([]string{}, items...), IsList: true}
}

// Items returns the list entries, or the scalar as a one-element list.
func (v Value) Items() []string {
	if v.IsList {
		return v.List
	}
	if v.Text == "" {
		return nil
	}
	return []string{v.Text}
}

// Empty reports whether a required check fails: an empty list, or a string
// that is empty after trimming.
func (v Value) Empty() bool {
	if v.IsList {
		return len(v.List) == 0
	}
	return strings.TrimSpace(v.Text) == ""
}

func (v Value) String() string {
	if v.IsList {
		return strings.Join(v.List, ", ")
	}
	return v.Text
}

// MarshalJSON writes a string or an array.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsList {
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	}
	return json.Marshal(v.Text)
}

// UnmarshalJSON accepts a string, an array of strings, a number or a boolean.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	switch data[0] {
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("list value must be an array of strings: %w", err)
		}
		*v = ListValue(items...)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextValue(s)
	default:
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		switch raw.(type) {
		case float64, bool:
			*v = TextValue(string(data))
		default:
			return fmt.Errorf("unsupported value %s", string(data))
		}
	}
	return nil
}

// FormData maps field ids to entered values.
type FormData map[string]Value

// Clone returns a deep copy.
func (d FormData) Clone() FormData {
	out := make(FormData, len(d))
	for k, v := range d {
		if v.IsList {
			v.List = append([]string{}, v.List...)
		}
		out[k] = v
	}
	return out
}

// Toggle adds or removes option from the list stored under id, keeping order
// of first insertion and never duplicating an entry.
func (d FormData) Toggle(id, option string, checked bool) {
	current := d[id].Items()
	next := make([]string, 0, len(current)+1)
	found := false
	for _, item := range current {
		if item == option {
			found = true
			if !checked {
				continue
			}
		}
		next = append(next, item)
	}
	if checked && !found {
		next = append(next, option)
	}
	d[id] = ListValue(next...)
}

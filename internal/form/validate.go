package form

import "fmt"

// FieldState is the per-field position in the fill state machine. A filled
// field is checked synchronously, so it is reported as valid or invalid.
type FieldState string

const (
	StateEmpty   FieldState = "empty"
	StateValid   FieldState = "valid"
	StateInvalid FieldState = "invalid"
)

// Validation is the outcome of checking form data against a template.
type Validation struct {
	Errors map[string]string     `json:"errors"`
	States map[string]FieldState `json:"states"`
	Valid  bool                  `json:"valid"`
}

// First returns the first error in template field order, for operators that
// surface one message at a time.
func (v Validation) First(t *Template) (string, string, bool) {
	if t == nil {
		return "", "", false
	}
	for _, f := range t.Fields {
		if msg, ok := v.Errors[f.ID]; ok {
			return f.ID, msg, true
		}
	}
	return "", "", false
}

// Validate checks every field of t against data. It never stops at the first
// failure, so Errors holds a message for every failing field.
func Validate(t *Template, data FormData) Validation {
	result := Validation{
		Errors: make(map[string]string),
		States: make(map[string]FieldState),
		Valid:  true,
	}
	if t == nil {
		return result
	}

	for _, f := range t.Fields {
		v, present := data[f.ID]
		empty := !present || v.Empty()

		if f.Required && empty {
			result.Errors[f.ID] = fmt.Sprintf("%s is required", f.DisplayName())
			result.States[f.ID] = StateInvalid
			result.Valid = false
			continue
		}
		if empty {
			result.States[f.ID] = StateEmpty
			continue
		}
		if msg := f.Kind().Check(v); msg != "" {
			result.Errors[f.ID] = msg
			result.States[f.ID] = StateInvalid
			result.Valid = false
			continue
		}
		result.States[f.ID] = StateValid
	}

	return result
}

package form

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures the way operators see them.
type ErrorKind int

const (
	// KindLoad covers bad PDF files and bad template documents. Prior state is kept.
	KindLoad ErrorKind = iota
	// KindValidation covers missing or malformed field values.
	KindValidation
	// KindExport covers failures that abort a whole export; nothing is written.
	KindExport
	// KindState covers operations invoked in the wrong state.
	KindState
)

func (k ErrorKind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindValidation:
		return "validation"
	case KindExport:
		return "export"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Error is an operation failure tagged with its kind.
type Error struct {
	Kind ErrorKind `json:"kind"`
	Op   string    `json:"operation"`
	Err  error     `json:"error"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error in %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap tags err with kind and op. A nil err stays nil.
func Wrap(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind ErrorKind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

var (
	ErrInvalidTemplate      = errors.New("invalid template")
	ErrFieldNotFound        = errors.New("field not found")
	ErrDuplicateField       = errors.New("duplicate field id")
	ErrFieldNotUsable       = errors.New("field is not usable")
	ErrFormInvalid          = errors.New("form data is not valid")
	ErrNotReady             = errors.New("pdf and template must both be loaded")
	ErrGenerationInProgress = errors.New("filled pdf generation already in progress")
	ErrNoPDF                = errors.New("no pdf loaded")
	ErrDrawingNotArmed      = errors.New("drawing mode is not armed")
	ErrNoDraft              = errors.New("no field draft is open")
)

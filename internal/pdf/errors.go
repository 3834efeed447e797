package pdf

import (
	"errors"
	"fmt"
)

// Library names the backend a PDF operation ran on.
type Library string

const (
	LibraryLedongthuc Library = "ledongthuc"
	LibraryPDFCPU     Library = "pdfcpu"
	LibraryFitz       Library = "fitz"
)

// Error records which backend and operation failed.
type Error struct {
	Library Library `json:"library"`
	Op      string  `json:"operation"`
	Err     error   `json:"error"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("PDF %s library error in %s: %v", e.Library, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrEmptyDocument    = errors.New("document is empty")
	ErrNotPDF           = errors.New("document is not a PDF")
	ErrTooLarge         = errors.New("document too large")
	ErrNoPages          = errors.New("document has no pages")
	ErrPageOutOfRange   = errors.New("page out of range")
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// recoverInto turns a backend panic into an *Error stored in errp.
// Malformed streams make some backends panic rather than return.
func recoverInto(errp *error, lib Library, op string) {
	if r := recover(); r != nil {
		*errp = &Error{Library: lib, Op: op, Err: fmt.Errorf("panic: %v", r)}
	}
}

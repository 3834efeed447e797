package pdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Info summarises a document that passed validation.
type Info struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Pages int    `json:"pages"`
}

// Validator checks uploaded or on-disk documents before they reach a session.
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified size limit.
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// MaxFileSize returns the configured limit in bytes.
func (v *Validator) MaxFileSize() int64 {
	return v.maxFileSize
}

// ValidateBytes checks size and header, then opens the document to count pages.
func (v *Validator) ValidateBytes(name string, data []byte) (info *Info, err error) {
	size := int64(len(data))
	if size == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, name)
	}
	if v.maxFileSize > 0 && size > v.maxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max: %d bytes)", ErrTooLarge, size, v.maxFileSize)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\t\n\r "), []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: %s", ErrNotPDF, name)
	}

	defer recoverInto(&err, LibraryLedongthuc, "open")

	r, err := pdf.NewReader(bytes.NewReader(data), size)
	if err != nil {
		return nil, &Error{Library: LibraryLedongthuc, Op: "open", Err: fmt.Errorf("invalid PDF file: %w", err)}
	}

	pages := r.NumPage()
	if pages < 1 {
		return nil, fmt.Errorf("%w: %s", ErrNoPages, name)
	}

	return &Info{Name: name, Size: size, Pages: pages}, nil
}

// ReadFile loads a document from disk after the cheap file-info checks,
// then validates its content.
func (v *Validator) ReadFile(path string) ([]byte, *Info, error) {
	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("cannot access file: %w", err)
	}
	if err := v.ValidateFileInfo(path, fileInfo); err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	info, err := v.ValidateBytes(filepath.Base(path), data)
	if err != nil {
		return nil, nil, err
	}
	return data, info, nil
}

// ValidateFileInfo performs basic validation on file info without opening the PDF
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", filePath)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("file is empty: %s", filePath)
	}

	if v.maxFileSize > 0 && fileInfo.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize)
	}

	return nil
}

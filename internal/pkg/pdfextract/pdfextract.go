package pdfextract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// File is one uploaded PDF: its display name and raw bytes.
type File struct {
	Name string
	Data []byte
}

// ParseError reports which uploaded buffer failed to parse as a PDF container.
type ParseError struct {
	Index int
	Name  string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse pdf %q (file %d) failed: %v", e.Name, e.Index, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractAll extracts the text of every file and concatenates it in file order,
// then page order. A well-formed PDF with no extractable text contributes an
// empty string. If any buffer fails to parse, the whole call fails with a
// *ParseError naming that buffer; nothing partial is returned.
func ExtractAll(files []File) (string, error) {
	var sb strings.Builder
	for i, f := range files {
		text, err := extractOne(f.Data)
		if err != nil {
			return "", &ParseError{Index: i, Name: f.Name, Err: err}
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

func extractOne(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty file")
	}
	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Package metadata parses the description.txt file that names and categorizes
// a document folder.
//
// The format is two lines of "label: value":
//
//	Name: Quarterly report
//	Category: Finance
//
// Labels are free-form; only the text after the first colon of each line is
// kept, trimmed of surrounding whitespace.
package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docupload/docupload/internal/constants"
)

// Document is the metadata of one document folder.
type Document struct {
	Name     string
	Category string
}

// FormatError reports a malformed description.
type FormatError struct {
	Msg string
}

func (e *FormatError) Error() string {
	return e.Msg
}

// Parse turns description text into a Document.
// Empty values are accepted as-is; lines past the second are ignored.
func Parse(text string) (*Document, error) {
	lines := splitLines(text)

	name, ok := fieldValue(lines, 0)
	if !ok {
		return nil, &FormatError{Msg: "missing or malformed name line"}
	}

	category, ok := fieldValue(lines, 1)
	if !ok {
		return nil, &FormatError{Msg: "missing or malformed category line"}
	}

	return &Document{Name: name, Category: category}, nil
}

// ReadFile reads and parses description.txt inside dir. Read failures are
// returned unwrapped so callers can classify them; parse failures are *FormatError.
func ReadFile(dir string) (*Document, error) {
	data, err := os.ReadFile(filepath.Join(dir, constants.DescriptionFileName))
	if err != nil {
		return nil, err
	}
	doc, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", constants.DescriptionFileName, err)
	}
	return doc, nil
}

// fieldValue returns the trimmed text after the first colon of lines[i].
func fieldValue(lines []string, i int) (string, bool) {
	if i >= len(lines) {
		return "", false
	}
	_, value, found := strings.Cut(lines[i], ":")
	if !found {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// splitLines splits on "\n", drops a trailing "\r" from each line, and does not
// produce a final empty line for text ending in a newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

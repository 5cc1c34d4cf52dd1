// Package extract turns document files into plain text for embedding.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// handler converts raw file bytes of one format into plain text.
type handler func(content []byte) (string, error)

// handlers maps lowercase file extensions (with dot) to format handlers.
// Extensions not listed here are treated as plain text.
var handlers = map[string]handler{
	".pdf":  fromPDF,
	".docx": fromDOCX,
	".odt":  fromDOCX,
	".xlsx": fromExcel,
	".txt":  fromPlain,
	".md":   fromPlain,
	".rst":  fromPlain,
}

// Extractor extracts plain text from document files on disk.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content. The
// format is chosen by extension; unknown extensions are read as plain
// text.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	h, ok := handlers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		h = fromPlain
	}
	return h(content)
}

// Supported reports whether ext (with leading dot, any case) has a
// dedicated format handler.
func Supported(ext string) bool {
	_, ok := handlers[strings.ToLower(ext)]
	return ok
}

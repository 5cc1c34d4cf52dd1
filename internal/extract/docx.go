package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// textNode matches OOXML text runs regardless of run attributes, e.g.
// <w:t xml:space="preserve">text</w:t>.
var textNode = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// fromDOCX extracts text from a .docx (or .odt saved as OOXML) archive
// by pulling every text node out of word/document.xml. Paragraph and
// run structure is flattened; the result is for embedding, not layout.
func fromDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx: not a zip: %w", err)
	}
	var docXML []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open docx part: %w", err)
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read docx part: %w", err)
		}
		break
	}
	if docXML == nil {
		return "", fmt.Errorf("docx: word/document.xml not found")
	}
	matches := textNode.FindAllSubmatch(docXML, -1)
	var b strings.Builder
	for _, m := range matches {
		text := strings.TrimSpace(string(m[1]))
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// Package extract turns uploaded documents into plain text for chunking.
package extract

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/voicerag/internal/domain"
)

// Extractor extracts plain text from document bytes by file extension.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported reports whether ext (with or without the leading dot) can be
// extracted.
func (e *Extractor) Supported(ext string) bool {
	switch normalizeExt(ext) {
	case "pdf", "docx", "xlsx", "txt", "md", "markdown", "csv":
		return true
	}
	return false
}

// Extract returns the text of content. Unknown extensions fail with
// domain.ErrUnsupportedDocumentType.
func (e *Extractor) Extract(content []byte, ext string) (string, error) {
	var (
		text string
		err  error
	)
	switch normalizeExt(ext) {
	case "pdf":
		text, err = extractPDF(content)
	case "docx":
		text, err = extractDOCX(content)
	case "xlsx":
		text, err = extractExcel(content)
	case "txt", "md", "markdown", "csv":
		text = extractPlain(content)
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedDocumentType, ext)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
}

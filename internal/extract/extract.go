// Package extract turns stored document files into plain text for ingestion.
package extract

import (
	"bytes"
	"fmt"
	"mime"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/relaya-ai/relaya/internal/domain"
)

// Extractor reads a document file and returns its text content.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the text content of the file at path. Supported types are
// PDF, plain text, and markdown; anything else fails with UnsupportedType.
func (e *Extractor) Extract(path, declaredMimeType string) (string, error) {
	mediaType := normalizeMimeType(declaredMimeType)

	switch mediaType {
	case "text/plain", "text/markdown":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read document: %w", err)
		}
		return string(data), nil
	case "application/pdf":
		return extractPDF(path)
	default:
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeUnsupportedType,
			fmt.Sprintf("cannot extract text from %q", declaredMimeType), nil)
	}
}

func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	content, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	if _, err := buf.ReadFrom(content); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return buf.String(), nil
}

func normalizeMimeType(declared string) string {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(declared))
	}

	// Common aliases seen from upload clients.
	switch mediaType {
	case "text/x-markdown", "application/markdown":
		return "text/markdown"
	}
	return mediaType
}

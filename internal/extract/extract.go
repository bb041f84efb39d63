// Package extract turns files in supported formats into ingestable
// documents: each extension maps to a parser and the MIME content type
// stored on the resulting document record.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kioku/internal/models"
)

const (
	typeWord   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	typeSheet  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	typeSlides = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

type format struct {
	contentType string
	parse       func([]byte) (string, error)
}

var formats = map[string]format{
	".txt":  {"text/plain", parsePlain},
	".rst":  {"text/plain", parsePlain},
	".md":   {"text/markdown", parsePlain},
	".html": {"text/html", parsePlain},
	".htm":  {"text/html", parsePlain},
	".csv":  {"text/csv", parsePlain},
	".json": {"application/json", parsePlain},
	".pdf":  {"application/pdf", parsePDF},
	".docx": {typeWord, parseWord},
	".odt":  {typeWord, parseWord},
	".rtf":  {typeWord, parseWord},
	".xlsx": {typeSheet, parseWorkbook},
	".ods":  {typeSheet, parseSpreadsheetXML},
	".pptx": {typeSlides, parseSlides},
	".odp":  {typeSlides, parsePresentationXML},
}

// FromFile reads the file at path and builds the ingestion payload: the
// extracted text as content, the format's content type, the base filename
// as title, and the source path in metadata.
func FromFile(path string) (*models.DocumentInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	text, err := Text(raw, ext)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	return &models.DocumentInput{
		Title:       filepath.Base(path),
		Content:     text,
		ContentType: ContentTypeFor(ext),
		Metadata:    models.DocumentMetadata{Source: path},
	}, nil
}

// Text extracts plain text from raw bytes according to the extension's
// format. ext includes the leading dot; extensions without a registered
// format are read as plain text.
func Text(raw []byte, ext string) (string, error) {
	if f, ok := formats[strings.ToLower(ext)]; ok {
		return f.parse(raw)
	}
	return parsePlain(raw)
}

// ContentTypeFor maps an extension to the MIME type stored on document
// records. Unknown extensions map to text/plain, matching the extraction
// fallback.
func ContentTypeFor(ext string) string {
	if f, ok := formats[strings.ToLower(ext)]; ok {
		return f.contentType
	}
	return "text/plain"
}

// parsePlain passes the bytes through, replacing invalid UTF-8 sequences
// with the replacement character.
func parsePlain(raw []byte) (string, error) {
	return strings.ToValidUTF8(string(raw), "�"), nil
}

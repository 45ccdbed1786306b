package domain

import (
	"fmt"
	"strings"
	"time"
)

// DocumentFormat identifies the declared format of an uploaded document.
type DocumentFormat string

const (
	FormatPDF      DocumentFormat = "pdf"
	FormatDOCX     DocumentFormat = "docx"
	FormatTXT      DocumentFormat = "txt"
	FormatHTML     DocumentFormat = "html"
	FormatJSON     DocumentFormat = "json"
	FormatXML      DocumentFormat = "xml"
	FormatMarkdown DocumentFormat = "markdown"
)

// DocumentStatus represents the ingestion status of a document
type DocumentStatus string

const (
	DocumentStatusPending DocumentStatus = "pending"
	DocumentStatusReady   DocumentStatus = "ready"
	DocumentStatusFailed  DocumentStatus = "failed"
)

// Document represents an uploaded document owned by a collection.
// Content is held inline only until ingestion completes; when blob storage is
// configured the raw bytes live under StorageKey instead.
type Document struct {
	ID         string
	Collection string
	Title      string
	Format     DocumentFormat
	Status     DocumentStatus
	ChunkCount int
	Content    []byte
	StorageKey string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewDocument creates a new Document instance
func NewDocument(id, collection, title string, format DocumentFormat, content []byte, createdAt time.Time) *Document {
	return &Document{
		ID:         id,
		Collection: collection,
		Title:      title,
		Format:     format,
		Status:     DocumentStatusPending,
		Content:    content,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

// ParseFormat normalizes a declared format string, accepting common aliases.
func ParseFormat(s string) (DocumentFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return FormatPDF, nil
	case "docx":
		return FormatDOCX, nil
	case "txt", "text", "plain":
		return FormatTXT, nil
	case "html", "htm":
		return FormatHTML, nil
	case "json":
		return FormatJSON, nil
	case "xml":
		return FormatXML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", ErrUnsupportedFormat
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.Collection == "" {
		return fmt.Errorf("document Collection is required")
	}

	if !isValidFormat(d.Format) {
		return ErrUnsupportedFormat
	}

	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	return nil
}

func isValidFormat(f DocumentFormat) bool {
	switch f {
	case FormatPDF, FormatDOCX, FormatTXT, FormatHTML, FormatJSON, FormatXML, FormatMarkdown:
		return true
	}
	return false
}

func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusPending, DocumentStatusReady, DocumentStatusFailed:
		return true
	}
	return false
}

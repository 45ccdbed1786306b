// Package extract converts raw document bytes into plain text based on the
// declared format. Extraction is a pure transform: it never mutates its input
// and has no side effects.
package extract

import (
	"strings"
	"unicode"

	"github.com/archivist-ai/archivist/internal/domain"
)

// Extract converts content bytes into plain text for the declared format.
// Returns domain.ErrUnsupportedFormat for unknown formats and wraps parser
// failures in domain.ErrExtractionFailed.
func Extract(content []byte, format domain.DocumentFormat) (string, error) {
	var text string
	var err error

	switch format {
	case domain.FormatTXT, domain.FormatMarkdown:
		text, err = extractPlain(content)
	case domain.FormatJSON:
		text, err = extractJSON(content)
	case domain.FormatXML:
		text, err = extractXML(content)
	case domain.FormatHTML:
		text, err = extractHTML(content)
	case domain.FormatPDF:
		text, err = extractPDF(content)
	case domain.FormatDOCX:
		text, err = extractDOCX(content)
	default:
		return "", domain.ErrUnsupportedFormat
	}

	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeExtractionFailed, "failed to extract text from document", err)
	}

	return normalize(text), nil
}

func extractPlain(content []byte) (string, error) {
	return decodeText(content), nil
}

// decodeText interprets bytes as UTF-8, replacing invalid sequences so that
// legacy single-byte encodings still yield usable text.
func decodeText(content []byte) string {
	return strings.ToValidUTF8(string(content), "�")
}

// normalize trims each line and collapses runs of blank lines to a single
// paragraph break.
func normalize(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, line := range lines {
		trimmed := strings.TrimRightFunc(line, unicode.IsSpace)
		if strings.TrimSpace(trimmed) == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, trimmed)
		blank = false
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}

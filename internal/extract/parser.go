// Package extract parses contract files into ordered element streams.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/contraudit/contraudit/internal/models"
)

// ErrUnsupportedFormat is returned when no parser exists for a file's extension.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrCorruptFile is returned when a file cannot be decoded as its declared format.
var ErrCorruptFile = errors.New("corrupt file")

// Parser parses a file's bytes into an ordered element stream.
type Parser interface {
	Parse(content []byte) ([]models.Element, error)
}

// ForExtension returns the parser for the given extension (with leading dot).
// Selection is an explicit lookup; unknown extensions are ErrUnsupportedFormat.
func ForExtension(ext string) (Parser, error) {
	switch strings.ToLower(ext) {
	case ".docx":
		return &DocxParser{}, nil
	case ".pdf":
		return &PdfParser{}, nil
	case ".txt", ".md", "":
		return &TextParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

var headingNumbered = regexp.MustCompile(`^\d+\.?\s+[А-ЯA-Z]`)

var headingKeywords = []string{"ГЛАВА", "РАЗДЕЛ", "СТАТЬЯ", "ПУНКТ"}

// looksLikeHeading reports whether a short line reads as a section heading:
// all caps, a numbered section start, or a structural keyword. Used by parsers
// that have no style information (plain text, PDF).
func looksLikeHeading(text string) bool {
	if len([]rune(text)) >= 100 {
		return false
	}
	upper := strings.ToUpper(text)
	if text == upper && strings.IndexFunc(text, isLetter) >= 0 {
		return true
	}
	if headingNumbered.MatchString(text) {
		return true
	}
	for _, kw := range headingKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= 'а' && r <= 'я') || (r >= 'А' && r <= 'Я') || r == 'ё' || r == 'Ё'
}

// elementsFromParagraphs converts paragraph texts into elements, tagging
// heading-looking lines. Blank paragraphs are dropped; Order is contiguous.
func elementsFromParagraphs(paragraphs []string) []models.Element {
	out := make([]models.Element, 0, len(paragraphs))
	for _, para := range paragraphs {
		text := strings.TrimSpace(para)
		if text == "" {
			continue
		}
		kind := models.ElementParagraph
		level := 0
		if looksLikeHeading(text) {
			kind = models.ElementHeading
			level = 1
		}
		out = append(out, models.Element{
			Kind:  kind,
			Text:  text,
			Level: level,
			Order: len(out),
		})
	}
	return out
}

package extract

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/contraudit/contraudit/internal/models"
)

// TextParser parses plain text files into paragraph elements. Files that are
// not valid UTF-8 are decoded as Windows-1251, the common encoding of older
// Russian contract files.
type TextParser struct{}

// Parse splits content into blank-line-separated paragraphs.
func (p *TextParser) Parse(content []byte) ([]models.Element, error) {
	text := string(content)
	if !utf8.Valid(content) {
		decoded, err := charmap.Windows1251.NewDecoder().Bytes(content)
		if err != nil {
			return nil, err
		}
		text = string(decoded)
	}
	return elementsFromParagraphs(splitParagraphs(text)), nil
}

package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/contraudit/contraudit/internal/models"
)

// PdfParser parses PDF files into paragraph elements, one page at a time.
// PDFs carry no style information, so headings are detected heuristically.
type PdfParser struct{}

// Parse extracts elements from PDF bytes.
func (p *PdfParser) Parse(content []byte) ([]models.Element, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: open PDF: %v", ErrCorruptFile, err)
	}
	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 0; i < numPages; i++ {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: extract page %d: %v", ErrCorruptFile, i+1, err)
		}
		buf.WriteString(text)
		if i < numPages-1 {
			buf.WriteByte('\n')
		}
	}
	return elementsFromParagraphs(splitParagraphs(buf.String())), nil
}

// splitParagraphs splits text on blank lines; single newlines within a
// paragraph are collapsed to spaces.
func splitParagraphs(text string) []string {
	blocks := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		lines := strings.Split(b, "\n")
		for i := range lines {
			lines[i] = strings.TrimSpace(lines[i])
		}
		joined := strings.TrimSpace(strings.Join(lines, " "))
		if joined != "" {
			out = append(out, joined)
		}
	}
	return out
}

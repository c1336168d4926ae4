// Package title extracts the contract title from parsed document elements.
// Titles lead the document as a "ДОГОВОР ..." paragraph, sit in a bilingual
// table header (ДОГОВОР / CONTRACT), or fall back to the first line with its
// number and date stripped.
package title

import (
	"regexp"
	"strings"

	"github.com/contraudit/contraudit/internal/models"
)

var (
	spacedContractRe = regexp.MustCompile(`(?i)д\s+о\s+г\s+о\s+в\s+о\s+р`)
	spaceRunRe       = regexp.MustCompile(`\s+`)
	fromDateRe       = regexp.MustCompile(`\s+от\s+\d{2}\.\d{2}\.\d{4}`)
)

// maxScan bounds how deep into the document a title is searched for.
const maxScan = 20

// FromElements extracts the document title, or "" when none is found.
func FromElements(elements []models.Element) string {
	scan := elements
	if len(scan) > maxScan {
		scan = scan[:maxScan]
	}

	// Leading "ДОГОВОР ..." paragraph, possibly with a spaced-out word and
	// a continuation on the next line.
	for i, el := range scan {
		if el.Kind == models.ElementTableRow {
			continue
		}
		text := strings.TrimSpace(el.Text)
		if text == "" {
			continue
		}
		lowered := strings.ToLower(text)
		if !strings.HasPrefix(lowered, "договор") && !strings.HasPrefix(lowered, "д о г о в о р") {
			continue
		}
		title := spacedContractRe.ReplaceAllString(text, "ДОГОВОР")
		title = stripNumber(title)
		if cont := continuation(elements, i); cont != "" {
			title += " " + cont
		}
		return collapse(title)
	}

	// Bilingual table header.
	for _, el := range scan {
		if el.Kind != models.ElementTableRow {
			continue
		}
		if title := fromTableRow(el.Text); title != "" {
			return title
		}
	}

	// First non-empty line, trimmed at the contract number or date.
	for _, el := range scan {
		text := strings.TrimSpace(el.Text)
		if text == "" {
			continue
		}
		if m := fromDateRe.FindStringIndex(strings.ToLower(text)); m != nil {
			text = text[:m[0]]
		}
		return collapse(stripNumber(text))
	}
	return ""
}

// continuation returns the next paragraph when it continues the title rather
// than opening the place-and-date line.
func continuation(elements []models.Element, i int) string {
	for _, el := range elements[i+1:] {
		if el.Kind == models.ElementTableRow {
			return ""
		}
		text := strings.TrimSpace(el.Text)
		if text == "" {
			continue
		}
		lowered := strings.ToLower(text)
		if strings.HasPrefix(lowered, "г.") || strings.HasPrefix(lowered, "от ") || strings.HasPrefix(lowered, "№") {
			return ""
		}
		return text
	}
	return ""
}

// fromTableRow assembles a bilingual title from a table row whose cells hold
// the Russian and English halves.
func fromTableRow(rowText string) string {
	cells := strings.Split(rowText, " | ")
	var russian, english string
	for _, cell := range cells {
		cell = strings.TrimSpace(cell)
		lowered := strings.ToLower(cell)
		if russian == "" && strings.Contains(lowered, "договор") {
			russian = collapse(stripNumber(cell))
		}
		if english == "" && strings.Contains(lowered, "contract") && !strings.Contains(lowered, "договор") {
			english = collapse(stripNumber(cell))
		}
	}
	switch {
	case english != "" && russian != "":
		return english + " " + russian
	case russian != "":
		return russian
	case english != "":
		return english
	}
	return ""
}

// stripNumber cuts the contract number suffix introduced by № or #.
func stripNumber(s string) string {
	if i := strings.IndexRune(s, '№'); i != -1 {
		s = s[:i]
	}
	if i := strings.IndexRune(s, '#'); i != -1 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRunRe.ReplaceAllString(s, " "))
}

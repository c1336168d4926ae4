package chunker

import (
	"regexp"
	"strings"

	"github.com/contraudit/contraudit/internal/models"
)

// Repeated short lines are treated as headers/footers and dropped.
const (
	boilerplateMinCount = 6
	boilerplateMaxLen   = 80
)

var (
	spaceRun = regexp.MustCompile(`[ \t]+`)
	wordChar = regexp.MustCompile(`\w`)
)

// Clean normalizes element whitespace, drops noise artifacts, and filters
// boilerplate lines repeated across the document (page headers and footers).
func Clean(elements []models.Element) []models.Element {
	cleaned := make([]models.Element, 0, len(elements))
	for _, el := range elements {
		text := strings.TrimSpace(spaceRun.ReplaceAllString(el.Text, " "))
		if text == "" {
			continue
		}
		// ultra-short non-heading artifacts (stray punctuation, page marks)
		if el.Kind != models.ElementHeading && len([]rune(text)) <= 2 && !wordChar.MatchString(text) {
			continue
		}
		el.Text = text
		cleaned = append(cleaned, el)
	}

	freq := make(map[string]int)
	for _, el := range cleaned {
		for _, line := range strings.Split(el.Text, "\n") {
			if s := strings.TrimSpace(line); s != "" {
				freq[s]++
			}
		}
	}
	isBoiler := func(line string) bool {
		return freq[line] >= boilerplateMinCount && len(line) <= boilerplateMaxLen
	}

	out := make([]models.Element, 0, len(cleaned))
	for _, el := range cleaned {
		var kept []string
		for _, line := range strings.Split(el.Text, "\n") {
			s := strings.TrimSpace(line)
			if s != "" && !isBoiler(s) {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			continue
		}
		el.Text = strings.Join(kept, "\n")
		el.Order = len(out)
		out = append(out, el)
	}
	return out
}

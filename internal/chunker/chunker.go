// Package chunker splits parsed element streams into heading-scoped, bounded chunks.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/contraudit/contraudit/internal/models"
)

// Chunker splits an ordered element stream into chunks of at most maxTokens
// (approximated by word count), never crossing a heading boundary unless a
// single element exceeds the budget. Output is a pure function of
// (elements, maxTokens, overlap), which makes it safe to reuse cached results
// keyed by document content hash.
type Chunker struct {
	maxTokens int
	overlap   int
}

// New creates a chunker with the given token budget and overlap (in tokens).
func New(maxTokens, overlap int) *Chunker {
	if maxTokens <= 0 {
		maxTokens = 350
	}
	if overlap < 0 || overlap >= maxTokens {
		overlap = 0
	}
	return &Chunker{maxTokens: maxTokens, overlap: overlap}
}

// TokenCount approximates the token length of text by its word count.
func TokenCount(text string) int {
	return len(strings.Fields(text))
}

var sentenceEnd = regexp.MustCompile(`([.!?…])\s+`)

// SplitSentences splits text at sentence boundaries, keeping terminators.
// Text without terminators comes back as a single sentence.
func SplitSentences(text string) []string {
	marked := sentenceEnd.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Chunk splits elements into chunks. A heading starts a new chunk when the
// current chunk already holds a non-heading element; the heading attaches to
// the chunk it opens. Empty or malformed streams yield no chunks, not an error.
func (c *Chunker) Chunk(docID string, elements []models.Element) []*models.Chunk {
	blocks := Clean(elements)
	if len(blocks) == 0 {
		return nil
	}

	var (
		chunks     []*models.Chunk
		lines      []string
		curTokens  int
		nonHeading int
		heading    string // heading context for the chunk being built
		nextHead   string // heading context for the next chunk
	)

	emit := func(text, heading string) {
		chunks = append(chunks, &models.Chunk{
			ID:         fmt.Sprintf("%s_%d", docID, len(chunks)),
			DocumentID: docID,
			Order:      len(chunks),
			Heading:    heading,
			Text:       text,
		})
	}

	flush := func() {
		if len(lines) == 0 {
			return
		}
		emit(strings.Join(lines, "\n"), heading)
		lines = lines[:0]
		curTokens = 0
		nonHeading = 0
		heading = nextHead
	}

	for _, el := range blocks {
		if el.Kind == models.ElementHeading {
			nextHead = el.Text
			if nonHeading >= 1 {
				flush()
			} else {
				heading = el.Text
			}
		}

		tokens := TokenCount(el.Text)

		// A single element over budget is split at sentence boundaries,
		// carrying the overlap tail between sub-chunks.
		if tokens > c.maxTokens {
			flush()
			for _, part := range c.splitOversized(el.Text) {
				emit(part, heading)
			}
			continue
		}

		if curTokens > 0 && curTokens+tokens > c.maxTokens {
			flush()
		}

		lines = append(lines, el.Text)
		curTokens += tokens
		if el.Kind != models.ElementHeading {
			nonHeading++
		}
	}
	flush()
	return chunks
}

// splitOversized splits text into sentence-boundary parts of at most maxTokens,
// prepending the last overlap tokens of the previous part to preserve local
// context for embedding. A single sentence over budget is emitted whole.
func (c *Chunker) splitOversized(text string) []string {
	sentences := SplitSentences(text)
	var (
		parts []string
		cur   []string
		count int
	)
	flushPart := func() {
		if len(cur) == 0 {
			return
		}
		parts = append(parts, strings.Join(cur, " "))
		cur = cur[:0]
		count = 0
	}
	for _, s := range sentences {
		n := TokenCount(s)
		if count > 0 && count+n > c.maxTokens {
			tail := overlapTail(strings.Join(cur, " "), c.overlap)
			flushPart()
			if tail != "" {
				cur = append(cur, tail)
				count = TokenCount(tail)
			}
		}
		cur = append(cur, s)
		count += n
	}
	flushPart()
	return parts
}

// overlapTail returns the last n tokens of text joined by single spaces.
func overlapTail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[len(words)-n:], " ")
}

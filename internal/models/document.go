// Package models defines core data structures for documents, chunks, and classification results.
package models

import "time"

// ElementKind identifies the structural role of a parsed document element.
type ElementKind string

const (
	ElementParagraph ElementKind = "paragraph"
	ElementHeading   ElementKind = "heading"
	ElementTableRow  ElementKind = "table_row"
	ElementTitle     ElementKind = "title"
)

// Element is a parsed unit of a source document, produced by a Parser.
// Elements are immutable once parsed; Order reflects document position.
type Element struct {
	Kind  ElementKind `json:"kind"`
	Text  string      `json:"text"`
	Level int         `json:"level,omitempty"` // heading level 1-6, 0 otherwise
	Order int         `json:"order"`
}

// Chunk is a bounded-size, heading-scoped span of document text.
// Order values are contiguous per document starting at 0.
// Embedding is nil until filled in by the embedding gateway.
type Chunk struct {
	ID         string    `json:"id" db:"chunk_id"`
	DocumentID string    `json:"document_id" db:"doc_id"`
	Order      int       `json:"order" db:"ord"`
	Heading    string    `json:"heading,omitempty" db:"heading"`
	Text       string    `json:"text" db:"text"`
	Embedding  []float32 `json:"-" db:"-"`
}

// DocumentRecord is one ingested document (template or incoming).
// SimilarID and SimilarityScore are set together after classification,
// or not at all. UserChoice records a manual template override.
type DocumentRecord struct {
	ID                string    `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	Title             string    `json:"title,omitempty" db:"title"`
	TitleEmbedding    []float32 `json:"-" db:"-"`
	DocumentEmbedding []float32 `json:"-" db:"-"`
	Chunks            []*Chunk  `json:"chunks,omitempty" db:"-"`
	IsActive          bool      `json:"is_active" db:"is_active"`
	SimilarID         string    `json:"similar_id,omitempty" db:"similar_id"`
	SimilarityScore   float64   `json:"similarity_score,omitempty" db:"similarity_score"`
	UserChoice        string    `json:"user_choice,omitempty" db:"user_choice_doc_id"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// FullText joins chunk texts in document order.
func (d *DocumentRecord) FullText() string {
	if len(d.Chunks) == 0 {
		return ""
	}
	parts := make([]byte, 0, 1024)
	for i, c := range d.Chunks {
		if i > 0 {
			parts = append(parts, '\n')
		}
		parts = append(parts, c.Text...)
	}
	return string(parts)
}

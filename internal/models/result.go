package models

// Verdict classifies how an incoming document relates to the template library.
type Verdict string

const (
	VerdictStandard    Verdict = "STANDARD"
	VerdictNonstandard Verdict = "NONSTANDARD"
	VerdictUnknown     Verdict = "UNKNOWN"
)

// Label returns the Russian status string used in reports.
func (v Verdict) Label() string {
	switch v {
	case VerdictStandard:
		return "СТАНДАРТНЫЙ"
	case VerdictNonstandard:
		return "НЕ СТАНДАРТНЫЙ"
	default:
		return "НЕ МОГУ ОПРЕДЕЛИТЬ"
	}
}

// Candidate is a scored match between an incoming document and one template.
// Transient; produced by the matcher, consumed by the decision step.
type Candidate struct {
	TemplateID    string  `json:"template_id"`
	DocScore      float64 `json:"doc_score"`
	ChunkScore    float64 `json:"chunk_score"`
	CombinedScore float64 `json:"combined_score"`
}

// Decision is the outcome of the classification decision step.
// MatchedTemplateID is empty only for VerdictUnknown; for a NONSTANDARD
// verdict it still names the closest template.
type Decision struct {
	Verdict           Verdict `json:"verdict"`
	MatchedTemplateID string  `json:"matched_template_id,omitempty"`
	Score             float64 `json:"score"`
}

// ChunkScore pairs a chunk with its best template-chunk similarity.
type ChunkScore struct {
	Order   int     `json:"order"`
	Heading string  `json:"heading,omitempty"`
	Score   float64 `json:"score"`
}

// ClassifyResult is the full result of classifying one document.
type ClassifyResult struct {
	DocumentID string        `json:"document_id"`
	Decision   Decision      `json:"decision"`
	Candidates []*Candidate  `json:"candidates,omitempty"`
	Chunks     []*ChunkScore `json:"chunks_with_scores,omitempty"`
}

package models

// Severity grades how serious a policy violation is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityInfo     Severity = "info"
)

// Violation is a single policy rule failure.
type Violation struct {
	RuleKey     string   `json:"rule_key" db:"rule_key"`
	Description string   `json:"description" db:"description"`
	Extracted   string   `json:"extracted_value,omitempty" db:"extracted_value"`
	Expected    string   `json:"expected,omitempty" db:"expected"`
	FoundText   string   `json:"found_text,omitempty" db:"found_text"`
	Severity    Severity `json:"severity" db:"severity"`
}

// AuditStatus is the overall outcome of a standardness audit.
type AuditStatus string

const (
	AuditStandard    AuditStatus = "STANDARD"
	AuditNonstandard AuditStatus = "NONSTANDARD"
	AuditUnknown     AuditStatus = "UNKNOWN"
)

// Label returns the Russian status string used in reports.
func (s AuditStatus) Label() string {
	switch s {
	case AuditStandard:
		return "СТАНДАРТНЫЙ"
	case AuditNonstandard:
		return "НЕ СТАНДАРТНЫЙ"
	default:
		return "НЕ МОГУ ОПРЕДЕЛИТЬ"
	}
}

// AuditResult is the outcome of auditing one document against a policy.
// Status is AuditStandard only when Violations is empty; AuditUnknown means
// the document had too little text to audit, which is never conflated with
// a clean pass.
type AuditResult struct {
	DocumentID string       `json:"document_id,omitempty"`
	Status     AuditStatus  `json:"status"`
	Violations []*Violation `json:"violations"`
}

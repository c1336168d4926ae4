// Package fields extracts audit-relevant contract conditions from chunked
// document text. Extraction is a read-only scan: a condition that is not
// found is reported as absent, never as an error.
package fields

import "time"

// Field keys produced by the extractor.
const (
	KeyContractTerm          = "contract_term"
	KeyPaymentDays           = "payment_days"
	KeyPrepayment            = "prepayment"
	KeyAcceptanceDays        = "acceptance_days"
	KeyPaymentWeekday        = "payment_weekday"
	KeyProtocolDisagreements = "protocol_disagreements"
	KeyCounterpartyForm      = "counterparty_form"
	KeyBaseConditions        = "base_conditions"
	KeySpecification         = "specification"
	KeyFrameworkLimits       = "framework_limits"
)

// Unit qualifies the Number of a Value.
type Unit string

const (
	UnitNone        Unit = ""
	UnitMonths      Unit = "months"
	UnitCalendarDay Unit = "calendar_days"
	UnitWorkingDay  Unit = "working_days"
)

// Value is one extracted condition. Only the fields relevant to the key are
// populated; Present reports whether the condition appears in the text at all.
type Value struct {
	Key     string
	Present bool

	// Number and Unit carry extracted durations: contract term in months,
	// payment and acceptance periods in days.
	Number int
	Unit   Unit

	// Contract term qualifiers.
	Indefinite bool
	EndDate    time.Time

	// Payment qualifiers.
	LawReference bool
	SpelledOut   bool

	// Prepayment qualifier: guarantee conditions mentioned alongside.
	GuaranteeContext bool

	// Weekly payment day qualifier: the clause keeps the one-day-per-week
	// wording.
	Unaltered bool

	// Applies reports that the precondition of a conditional field holds:
	// the document mentions works or services (acceptance period), refers
	// to a specification or annex, or is a framework contract.
	Applies bool

	// Specification qualifier: mandatory elements the annex never mentions.
	Missing []string

	// FoundText is the excerpt the value was extracted from.
	FoundText string
}

// Set is the extraction result for one document.
type Set struct {
	Values map[string]*Value
	// TextLength is the rune length of the full document text.
	TextLength int
}

// Get returns the value for key, or an absent placeholder.
func (s *Set) Get(key string) *Value {
	if v, ok := s.Values[key]; ok {
		return v
	}
	return &Value{Key: key}
}

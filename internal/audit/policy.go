// Package audit checks extracted contract conditions against a declarative
// policy and reports every violated rule.
package audit

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/contraudit/contraudit/internal/fields"
	"github.com/contraudit/contraudit/internal/models"
)

// Check names accepted in a policy file.
const (
	CheckTermLimit     = "term_limit"
	CheckPaymentMin    = "payment_min"
	CheckPrepayment    = "prepayment"
	CheckAcceptanceMin = "acceptance_min"
	CheckWeekdayClause = "weekday_clause"
	CheckAbsent        = "absent"
	// CheckRequired fires when the field's precondition holds but the
	// required wording is missing.
	CheckRequired = "required"
	// CheckRequiredElements fires when too many mandatory elements are
	// missing from a specification or annex.
	CheckRequiredElements = "required_elements"
)

// Rule is one policy condition. Rules are evaluated in declared order and
// every rule is evaluated even after earlier ones fail.
type Rule struct {
	Key      string          `yaml:"key"`
	Check    string          `yaml:"check"`
	Field    string          `yaml:"field"`
	Severity models.Severity `yaml:"severity"`

	// Numeric bounds, meaning depends on Check.
	MaxMonths      int `yaml:"max_months,omitempty"`
	MinDays        int `yaml:"min_days,omitempty"`
	MinWorkingDays int `yaml:"min_working_days,omitempty"`
	// MaxMissing is how many mandatory elements a specification may lack
	// before CheckRequiredElements reports it as incomplete.
	MaxMissing int `yaml:"max_missing,omitempty"`
}

// Policy is an ordered rule set.
type Policy struct {
	Rules []Rule `yaml:"rules"`
}

// LoadPolicy reads a policy from a yaml file and validates it.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate rejects rules with unknown checks or missing keys.
func (p *Policy) Validate() error {
	if len(p.Rules) == 0 {
		return fmt.Errorf("policy has no rules")
	}
	for i, r := range p.Rules {
		if r.Key == "" {
			return fmt.Errorf("rule %d: key is required", i)
		}
		switch r.Check {
		case CheckTermLimit, CheckPaymentMin, CheckPrepayment, CheckAcceptanceMin,
			CheckWeekdayClause, CheckAbsent, CheckRequired, CheckRequiredElements:
		default:
			return fmt.Errorf("rule %q: unknown check %q", r.Key, r.Check)
		}
		if r.Field == "" {
			return fmt.Errorf("rule %q: field is required", r.Key)
		}
		switch r.Severity {
		case models.SeverityCritical, models.SeverityMajor, models.SeverityMinor, models.SeverityInfo:
		default:
			return fmt.Errorf("rule %q: unknown severity %q", r.Key, r.Severity)
		}
	}
	return nil
}

// DefaultPolicy returns the built-in standard-form checklist.
func DefaultPolicy() *Policy {
	return &Policy{Rules: []Rule{
		{
			Key:      "counterparty_form",
			Check:    CheckAbsent,
			Field:    fields.KeyCounterpartyForm,
			Severity: models.SeverityCritical,
		},
		{
			Key:       "contract_term",
			Check:     CheckTermLimit,
			Field:     fields.KeyContractTerm,
			MaxMonths: 36,
			Severity:  models.SeverityMajor,
		},
		{
			Key:            "payment_days",
			Check:          CheckPaymentMin,
			Field:          fields.KeyPaymentDays,
			MinDays:        60,
			MinWorkingDays: 43,
			Severity:       models.SeverityMajor,
		},
		{
			Key:      "prepayment",
			Check:    CheckPrepayment,
			Field:    fields.KeyPrepayment,
			Severity: models.SeverityMajor,
		},
		{
			Key:      "acceptance_days",
			Check:    CheckAcceptanceMin,
			Field:    fields.KeyAcceptanceDays,
			MinDays:  5,
			Severity: models.SeverityMinor,
		},
		{
			Key:      "payment_weekday",
			Check:    CheckWeekdayClause,
			Field:    fields.KeyPaymentWeekday,
			Severity: models.SeverityMinor,
		},
		{
			Key:      "protocol_disagreements",
			Check:    CheckAbsent,
			Field:    fields.KeyProtocolDisagreements,
			Severity: models.SeverityMajor,
		},
		{
			Key:      "base_conditions",
			Check:    CheckAbsent,
			Field:    fields.KeyBaseConditions,
			Severity: models.SeverityMajor,
		},
		{
			Key:        "specification",
			Check:      CheckRequiredElements,
			Field:      fields.KeySpecification,
			MaxMissing: 2,
			Severity:   models.SeverityMinor,
		},
		{
			Key:      "framework_limits",
			Check:    CheckRequired,
			Field:    fields.KeyFrameworkLimits,
			Severity: models.SeverityMajor,
		},
	}}
}

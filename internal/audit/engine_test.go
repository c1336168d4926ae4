package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/contraudit/contraudit/internal/fields"
	"github.com/contraudit/contraudit/internal/models"
)

func cleanSet(t *testing.T) *fields.Set {
	t.Helper()
	return &fields.Set{
		TextLength: 500,
		Values: map[string]*fields.Value{
			fields.KeyContractTerm: {
				Key: fields.KeyContractTerm, Present: true,
				Number: 24, Unit: fields.UnitMonths,
			},
			fields.KeyPaymentDays: {
				Key: fields.KeyPaymentDays, Present: true,
				Number: 60, Unit: fields.UnitCalendarDay,
			},
			fields.KeyPrepayment: {Key: fields.KeyPrepayment},
			fields.KeyAcceptanceDays: {
				Key: fields.KeyAcceptanceDays, Present: true, Applies: true,
				Number: 5, Unit: fields.UnitWorkingDay,
			},
			fields.KeyPaymentWeekday: {
				Key: fields.KeyPaymentWeekday, Present: true, Unaltered: true,
			},
			fields.KeyProtocolDisagreements: {Key: fields.KeyProtocolDisagreements},
			fields.KeyCounterpartyForm:      {Key: fields.KeyCounterpartyForm},
		},
	}
}

func TestAuditStandard(t *testing.T) {
	e := NewEngine(nil)
	result := e.Audit("doc-1", cleanSet(t))
	if result.Status != models.AuditStandard {
		t.Errorf("status = %s, want %s; violations: %v", result.Status, models.AuditStandard, result.Violations)
	}
	if len(result.Violations) != 0 {
		t.Errorf("got %d violations, want 0", len(result.Violations))
	}
}

func TestAuditTooShort(t *testing.T) {
	e := NewEngine(nil)
	set := cleanSet(t)
	set.TextLength = 20
	result := e.Audit("doc-1", set)
	if result.Status != models.AuditUnknown {
		t.Errorf("status = %s, want %s", result.Status, models.AuditUnknown)
	}
	if len(result.Violations) != 0 {
		t.Errorf("too-short document should carry no violations")
	}
}

func TestAuditNoShortCircuit(t *testing.T) {
	e := NewEngine(nil)
	set := cleanSet(t)
	set.Values[fields.KeyContractTerm] = &fields.Value{
		Key: fields.KeyContractTerm, Present: true, Indefinite: true,
	}
	set.Values[fields.KeyPaymentDays] = &fields.Value{
		Key: fields.KeyPaymentDays, Present: true, Number: 30, Unit: fields.UnitCalendarDay,
	}
	set.Values[fields.KeyPrepayment] = &fields.Value{
		Key: fields.KeyPrepayment, Present: true,
	}
	set.Values[fields.KeyProtocolDisagreements] = &fields.Value{
		Key: fields.KeyProtocolDisagreements, Present: true,
	}
	set.Values[fields.KeyCounterpartyForm] = &fields.Value{
		Key: fields.KeyCounterpartyForm, Present: true,
	}

	result := e.Audit("doc-1", set)
	if result.Status != models.AuditNonstandard {
		t.Fatalf("status = %s, want %s", result.Status, models.AuditNonstandard)
	}
	if len(result.Violations) != 5 {
		t.Errorf("got %d violations, want 5: %+v", len(result.Violations), result.Violations)
	}
}

func TestAuditRuleOrder(t *testing.T) {
	e := NewEngine(nil)
	set := cleanSet(t)
	set.Values[fields.KeyCounterpartyForm].Present = true
	set.Values[fields.KeyProtocolDisagreements].Present = true

	result := e.Audit("doc-1", set)
	if len(result.Violations) != 2 {
		t.Fatalf("got %d violations, want 2", len(result.Violations))
	}
	if result.Violations[0].RuleKey != "counterparty_form" {
		t.Errorf("first violation = %s, want counterparty_form (declared order)", result.Violations[0].RuleKey)
	}
	if result.Violations[1].RuleKey != "protocol_disagreements" {
		t.Errorf("second violation = %s, want protocol_disagreements", result.Violations[1].RuleKey)
	}
}

func TestAuditPaymentBelowMinimum(t *testing.T) {
	e := NewEngine(nil)
	set := cleanSet(t)
	set.Values[fields.KeyPaymentDays].Number = 30

	result := e.Audit("doc-1", set)
	if len(result.Violations) != 1 {
		t.Fatalf("got %d violations, want 1", len(result.Violations))
	}
	v := result.Violations[0]
	if v.RuleKey != "payment_days" {
		t.Errorf("rule = %s, want payment_days", v.RuleKey)
	}
	if v.Severity != models.SeverityMajor {
		t.Errorf("severity = %s, want %s (from the rule)", v.Severity, models.SeverityMajor)
	}
	if !strings.Contains(v.Description, "30") {
		t.Errorf("description should name the extracted value: %s", v.Description)
	}
}

func TestAuditPaymentWorkingDayBoundary(t *testing.T) {
	e := NewEngine(nil)
	cases := []struct {
		days     int
		violates bool
	}{
		{42, true},
		{43, false},
		{45, false},
	}
	for _, tc := range cases {
		set := cleanSet(t)
		set.Values[fields.KeyPaymentDays] = &fields.Value{
			Key: fields.KeyPaymentDays, Present: true,
			Number: tc.days, Unit: fields.UnitWorkingDay,
		}
		result := e.Audit("doc-1", set)
		got := len(result.Violations) > 0
		if got != tc.violates {
			t.Errorf("%d working days: violates=%v, want %v", tc.days, got, tc.violates)
		}
	}
}

func TestAuditPaymentLawReferenceExempt(t *testing.T) {
	e := NewEngine(nil)
	set := cleanSet(t)
	set.Values[fields.KeyPaymentDays] = &fields.Value{
		Key: fields.KeyPaymentDays, Present: true,
		Number: 30, Unit: fields.UnitCalendarDay, LawReference: true,
	}
	if result := e.Audit("doc-1", set); len(result.Violations) != 0 {
		t.Errorf("law-mandated term should be exempt, got %+v", result.Violations)
	}
}

func TestAuditTermMonths(t *testing.T) {
	e := NewEngine(nil)
	set := cleanSet(t)
	set.Values[fields.KeyContractTerm] = &fields.Value{
		Key: fields.KeyContractTerm, Present: true,
		Number: 48, Unit: fields.UnitMonths,
	}
	result := e.Audit("doc-1", set)
	if len(result.Violations) != 1 || result.Violations[0].RuleKey != "contract_term" {
		t.Fatalf("got %+v, want one contract_term violation", result.Violations)
	}
}

func TestAuditTermEndDate(t *testing.T) {
	e := NewEngine(nil)
	e.now = func() time.Time { return time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC) }

	set := cleanSet(t)
	set.Values[fields.KeyContractTerm] = &fields.Value{
		Key: fields.KeyContractTerm, Present: true,
		EndDate: time.Date(2030, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
	if result := e.Audit("doc-1", set); len(result.Violations) != 1 {
		t.Errorf("far end date should violate, got %+v", result.Violations)
	}

	set.Values[fields.KeyContractTerm].EndDate = time.Date(2027, time.June, 1, 0, 0, 0, 0, time.UTC)
	if result := e.Audit("doc-1", set); len(result.Violations) != 0 {
		t.Errorf("near end date should pass, got %+v", result.Violations)
	}
}

func TestAuditAcceptanceNotApplicable(t *testing.T) {
	e := NewEngine(nil)
	set := cleanSet(t)
	set.Values[fields.KeyAcceptanceDays] = &fields.Value{
		Key: fields.KeyAcceptanceDays, Applies: false,
	}
	if result := e.Audit("doc-1", set); len(result.Violations) != 0 {
		t.Errorf("acceptance rule should not apply to goods-only contracts, got %+v", result.Violations)
	}
}

func TestAuditWeekdayClauseMissing(t *testing.T) {
	e := NewEngine(nil)
	set := cleanSet(t)
	set.Values[fields.KeyPaymentWeekday] = &fields.Value{Key: fields.KeyPaymentWeekday}
	result := e.Audit("doc-1", set)
	if len(result.Violations) != 1 || result.Violations[0].RuleKey != "payment_weekday" {
		t.Fatalf("got %+v, want one payment_weekday violation", result.Violations)
	}
}

func TestAuditBaseConditionsChanged(t *testing.T) {
	e := NewEngine(nil)
	set := cleanSet(t)
	set.Values[fields.KeyBaseConditions] = &fields.Value{
		Key: fields.KeyBaseConditions, Present: true,
		FoundText: "В отступление от стандартных условий стороны согласовали особый порядок расчетов",
	}
	result := e.Audit("doc-1", set)
	if result.Status != models.AuditNonstandard {
		t.Fatalf("status = %s, want %s", result.Status, models.AuditNonstandard)
	}
	if len(result.Violations) != 1 || result.Violations[0].RuleKey != "base_conditions" {
		t.Fatalf("got %+v, want one base_conditions violation", result.Violations)
	}
	v := result.Violations[0]
	if !strings.Contains(v.Description, "базовых условий") {
		t.Errorf("description = %s, want base conditions wording", v.Description)
	}
	if v.Severity != models.SeverityMajor {
		t.Errorf("severity = %s, want %s", v.Severity, models.SeverityMajor)
	}
	if v.FoundText == "" {
		t.Error("found text should carry the offending clause")
	}
}

func TestAuditSpecificationIncomplete(t *testing.T) {
	e := NewEngine(nil)
	set := cleanSet(t)
	set.Values[fields.KeySpecification] = &fields.Value{
		Key: fields.KeySpecification, Applies: true,
		Missing: []string{"предмет", "цена", "стоимость"},
	}
	result := e.Audit("doc-1", set)
	if len(result.Violations) != 1 || result.Violations[0].RuleKey != "specification" {
		t.Fatalf("got %+v, want one specification violation", result.Violations)
	}
	if !strings.Contains(result.Violations[0].Description, "предмет, цена, стоимость") {
		t.Errorf("description should list the missing elements: %s", result.Violations[0].Description)
	}
}

func TestAuditSpecificationWithinTolerance(t *testing.T) {
	e := NewEngine(nil)
	set := cleanSet(t)
	set.Values[fields.KeySpecification] = &fields.Value{
		Key: fields.KeySpecification, Applies: true,
		Missing: []string{"цена", "стоимость"},
	}
	if result := e.Audit("doc-1", set); len(result.Violations) != 0 {
		t.Errorf("two missing elements are tolerated, got %+v", result.Violations)
	}
}

func TestAuditFrameworkLimitsMissing(t *testing.T) {
	e := NewEngine(nil)
	set := cleanSet(t)
	set.Values[fields.KeyFrameworkLimits] = &fields.Value{
		Key: fields.KeyFrameworkLimits, Applies: true,
	}
	result := e.Audit("doc-1", set)
	if len(result.Violations) != 1 || result.Violations[0].RuleKey != "framework_limits" {
		t.Fatalf("got %+v, want one framework_limits violation", result.Violations)
	}
	if !strings.Contains(result.Violations[0].Description, "рамочном") {
		t.Errorf("description = %s, want framework wording", result.Violations[0].Description)
	}

	set.Values[fields.KeyFrameworkLimits].Present = true
	if result := e.Audit("doc-1", set); len(result.Violations) != 0 {
		t.Errorf("framework contract with limits should pass, got %+v", result.Violations)
	}
}

func TestLoadPolicy(t *testing.T) {
	content := `rules:
  - key: payment_days
    check: payment_min
    field: payment_days
    min_days: 45
    min_working_days: 32
    severity: major
`
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}
	if len(p.Rules) != 1 || p.Rules[0].MinDays != 45 {
		t.Errorf("unexpected policy: %+v", p)
	}

	e := NewEngine(p)
	set := cleanSet(t)
	set.Values[fields.KeyPaymentDays].Number = 50
	if result := e.Audit("doc-1", set); len(result.Violations) != 0 {
		t.Errorf("50 days should pass a 45-day policy, got %+v", result.Violations)
	}
}

func TestPolicyValidateUnknownCheck(t *testing.T) {
	p := &Policy{Rules: []Rule{{Key: "x", Check: "bogus", Field: "x", Severity: models.SeverityMajor}}}
	if err := p.Validate(); err == nil {
		t.Error("unknown check should fail validation")
	}
}

func TestDefaultPolicyValid(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Errorf("default policy invalid: %v", err)
	}
}

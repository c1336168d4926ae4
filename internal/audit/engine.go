package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/contraudit/contraudit/internal/fields"
	"github.com/contraudit/contraudit/internal/models"
)

// minAuditLength is the minimum rune count a document must have to be
// audited. Shorter texts yield AuditUnknown.
const minAuditLength = 50

// Engine evaluates a policy against extracted contract fields.
type Engine struct {
	policy *Policy
	// now is injected for term end-date checks.
	now func() time.Time
}

// NewEngine creates an audit engine for the given policy. A nil policy uses
// the built-in default.
func NewEngine(policy *Policy) *Engine {
	if policy == nil {
		policy = DefaultPolicy()
	}
	return &Engine{policy: policy, now: time.Now}
}

// Audit evaluates every policy rule in declared order. All rules run even
// after earlier failures, so the result lists every violated rule.
func (e *Engine) Audit(docID string, set *fields.Set) *models.AuditResult {
	result := &models.AuditResult{
		DocumentID: docID,
		Violations: make([]*models.Violation, 0),
	}
	if set == nil || set.TextLength < minAuditLength {
		result.Status = models.AuditUnknown
		return result
	}

	for _, rule := range e.policy.Rules {
		if v := e.check(rule, set.Get(rule.Field)); v != nil {
			v.RuleKey = rule.Key
			v.Severity = rule.Severity
			result.Violations = append(result.Violations, v)
		}
	}

	result.Status = models.AuditStandard
	if len(result.Violations) > 0 {
		result.Status = models.AuditNonstandard
	}
	return result
}

func (e *Engine) check(rule Rule, v *fields.Value) *models.Violation {
	switch rule.Check {
	case CheckTermLimit:
		return e.checkTermLimit(rule, v)
	case CheckPaymentMin:
		return e.checkPaymentMin(rule, v)
	case CheckPrepayment:
		return e.checkPrepayment(v)
	case CheckAcceptanceMin:
		return e.checkAcceptanceMin(rule, v)
	case CheckWeekdayClause:
		return e.checkWeekdayClause(v)
	case CheckAbsent:
		return e.checkAbsent(v)
	case CheckRequired:
		return e.checkRequired(v)
	case CheckRequiredElements:
		return e.checkRequiredElements(rule, v)
	}
	return nil
}

func (e *Engine) checkTermLimit(rule Rule, v *fields.Value) *models.Violation {
	expected := fmt.Sprintf("не более %d месяцев", rule.MaxMonths)
	if !v.Present {
		return &models.Violation{
			Description: "Срок действия договора не указан",
			Expected:    expected,
		}
	}
	if v.Indefinite {
		return &models.Violation{
			Description: "Срок действия договора не ограничен (бессрочный или с автоматической пролонгацией)",
			Expected:    expected,
			FoundText:   v.FoundText,
		}
	}
	if v.Unit == fields.UnitMonths && v.Number > 0 {
		if v.Number > rule.MaxMonths {
			return &models.Violation{
				Description: fmt.Sprintf("Срок действия договора превышает %d месяцев (%d мес.)", rule.MaxMonths, v.Number),
				Extracted:   fmt.Sprintf("%d мес.", v.Number),
				Expected:    expected,
				FoundText:   v.FoundText,
			}
		}
		return nil
	}
	if !v.EndDate.IsZero() {
		maxAllowed := e.now().AddDate(0, rule.MaxMonths, 0)
		if v.EndDate.After(maxAllowed) {
			return &models.Violation{
				Description: fmt.Sprintf("Срок действия договора превышает %d месяцев (до %s)", rule.MaxMonths, v.EndDate.Format("02.01.2006")),
				Extracted:   v.EndDate.Format("02.01.2006"),
				Expected:    expected,
				FoundText:   v.FoundText,
			}
		}
		return nil
	}
	return &models.Violation{
		Description: "Срок действия договора не указан явно (нет конкретной конечной даты)",
		Expected:    expected,
		FoundText:   v.FoundText,
	}
}

func (e *Engine) checkPaymentMin(rule Rule, v *fields.Value) *models.Violation {
	expected := fmt.Sprintf("не менее %d календарных дней", rule.MinDays)
	if !v.Present {
		return &models.Violation{
			Description: "Условие о сроке оплаты не найдено",
			Expected:    expected,
		}
	}
	if v.Unit == fields.UnitWorkingDay {
		if v.Number < rule.MinWorkingDays {
			return &models.Violation{
				Description: fmt.Sprintf("Срок оплаты установлен менее %d календарных дней (%d рабочих дн.)", rule.MinDays, v.Number),
				Extracted:   fmt.Sprintf("%d рабочих дн.", v.Number),
				Expected:    expected,
				FoundText:   v.FoundText,
			}
		}
		return nil
	}
	if v.Number < rule.MinDays {
		// A term the law mandates is exempt.
		if v.LawReference {
			return nil
		}
		return &models.Violation{
			Description: fmt.Sprintf("Срок оплаты установлен менее %d календарных дней (%d дн.)", rule.MinDays, v.Number),
			Extracted:   fmt.Sprintf("%d дн.", v.Number),
			Expected:    expected,
			FoundText:   v.FoundText,
		}
	}
	return nil
}

func (e *Engine) checkPrepayment(v *fields.Value) *models.Violation {
	if !v.Present {
		return nil
	}
	if v.GuaranteeContext {
		return &models.Violation{
			Description: "Предоплата требует проверки соблюдения всех условий п.6.6 (банковская гарантия, аккредитация, одобрения и др.)",
			FoundText:   v.FoundText,
		}
	}
	return &models.Violation{
		Description: "Предусмотрена предоплата без соблюдения требований п.6.6 (отсутствуют банковская гарантия, аккредитация, одобрения)",
		FoundText:   v.FoundText,
	}
}

func (e *Engine) checkAcceptanceMin(rule Rule, v *fields.Value) *models.Violation {
	if !v.Applies {
		return nil
	}
	expected := fmt.Sprintf("не менее %d рабочих дней", rule.MinDays)
	if !v.Present {
		return &models.Violation{
			Description: fmt.Sprintf("Срок приемки работ/услуг не указан (требуется не менее %d рабочих дней)", rule.MinDays),
			Expected:    expected,
		}
	}
	if v.Number < rule.MinDays {
		return &models.Violation{
			Description: fmt.Sprintf("Срок приемки результатов работ/услуг менее %d рабочих дней (%d дн.)", rule.MinDays, v.Number),
			Extracted:   fmt.Sprintf("%d дн.", v.Number),
			Expected:    expected,
			FoundText:   v.FoundText,
		}
	}
	return nil
}

func (e *Engine) checkWeekdayClause(v *fields.Value) *models.Violation {
	if !v.Present {
		return &models.Violation{
			Description: "В тексте отсутствует условие об одном платежном дне в неделю",
		}
	}
	if !v.Unaltered {
		return &models.Violation{
			Description: "Условие об одном платежном дне в неделю изменено",
			FoundText:   v.FoundText,
		}
	}
	return nil
}

func (e *Engine) checkAbsent(v *fields.Value) *models.Violation {
	if !v.Present {
		return nil
	}
	desc := "Обнаружено недопустимое условие"
	switch v.Key {
	case fields.KeyProtocolDisagreements:
		desc = "Обнаружено упоминание протокола разногласий (нестандартные изменения условий договора)"
	case fields.KeyCounterpartyForm:
		desc = "Договор составлен по форме контрагента, а не по утвержденной стандартной форме"
	case fields.KeyBaseConditions:
		desc = "Обнаружены недопустимые изменения базовых условий договора"
	}
	return &models.Violation{
		Description: desc,
		FoundText:   v.FoundText,
	}
}

func (e *Engine) checkRequired(v *fields.Value) *models.Violation {
	if !v.Applies || v.Present {
		return nil
	}
	desc := "Обязательное условие отсутствует"
	found := v.FoundText
	if v.Key == fields.KeyFrameworkLimits {
		desc = "В рамочном договоре не указаны лимиты или максимальные объемы"
		found = "Отсутствуют лимиты рамочного договора"
	}
	return &models.Violation{
		Description: desc,
		FoundText:   found,
	}
}

func (e *Engine) checkRequiredElements(rule Rule, v *fields.Value) *models.Violation {
	if !v.Applies || len(v.Missing) <= rule.MaxMissing {
		return nil
	}
	missing := strings.Join(v.Missing, ", ")
	return &models.Violation{
		Description: "В спецификации/приложении отсутствуют обязательные элементы: " + missing,
		Extracted:   missing,
		FoundText:   "Спецификация неполная",
	}
}

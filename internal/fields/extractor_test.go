package fields

import (
	"testing"
	"time"

	"github.com/contraudit/contraudit/internal/models"
)

func chunksOf(texts ...string) []*models.Chunk {
	chunks := make([]*models.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &models.Chunk{Order: i, Text: text}
	}
	return chunks
}

func TestExtractContractTermYears(t *testing.T) {
	set := Extract(chunksOf("Срок действия договора составляет 5 лет с момента подписания."))
	v := set.Get(KeyContractTerm)
	if !v.Present {
		t.Fatal("term not found")
	}
	if v.Number != 60 || v.Unit != UnitMonths {
		t.Errorf("got %d %s, want 60 months", v.Number, v.Unit)
	}
}

func TestExtractContractTermMonths(t *testing.T) {
	set := Extract(chunksOf("Срок действия договора 24 месяца."))
	v := set.Get(KeyContractTerm)
	if v.Number != 24 || v.Unit != UnitMonths {
		t.Errorf("got %d %s, want 24 months", v.Number, v.Unit)
	}
}

func TestExtractContractTermIndefinite(t *testing.T) {
	set := Extract(chunksOf("Срок действия договора с автоматической пролонгацией на каждый следующий год."))
	v := set.Get(KeyContractTerm)
	if !v.Indefinite {
		t.Error("auto-prolongation not detected")
	}
}

func TestExtractContractTermEndDate(t *testing.T) {
	set := Extract(chunksOf("Срок действия договора до 31.12.2028."))
	v := set.Get(KeyContractTerm)
	want := time.Date(2028, time.December, 31, 0, 0, 0, 0, time.UTC)
	if !v.EndDate.Equal(want) {
		t.Errorf("end date = %v, want %v", v.EndDate, want)
	}
}

func TestExtractContractTermEndDateWords(t *testing.T) {
	set := Extract(chunksOf("Договор действует по 15 марта 2027 года, если стороны не договорятся об ином."))
	v := set.Get(KeyContractTerm)
	want := time.Date(2027, time.March, 15, 0, 0, 0, 0, time.UTC)
	if !v.EndDate.Equal(want) {
		t.Errorf("end date = %v, want %v", v.EndDate, want)
	}
}

func TestExtractContractTermAbsent(t *testing.T) {
	set := Extract(chunksOf("Предметом договора является поставка товара."))
	if set.Get(KeyContractTerm).Present {
		t.Error("term reported present in text without a term clause")
	}
}

func TestExtractPaymentDaysCalendar(t *testing.T) {
	set := Extract(chunksOf("Оплата производится в течение 30 календарных дней с даты поставки."))
	v := set.Get(KeyPaymentDays)
	if !v.Present || v.Number != 30 || v.Unit != UnitCalendarDay {
		t.Errorf("got present=%v %d %s, want 30 calendar days", v.Present, v.Number, v.Unit)
	}
	if v.LawReference {
		t.Error("law reference detected where none exists")
	}
}

func TestExtractPaymentDaysWorking(t *testing.T) {
	set := Extract(chunksOf("Оплата в течение 10 рабочих дней."))
	v := set.Get(KeyPaymentDays)
	if v.Number != 10 || v.Unit != UnitWorkingDay {
		t.Errorf("got %d %s, want 10 working days", v.Number, v.Unit)
	}
}

func TestExtractPaymentDaysLawReference(t *testing.T) {
	set := Extract(chunksOf("В соответствии с требованиями Федерального закона оплата производится в течение 30 календарных дней."))
	v := set.Get(KeyPaymentDays)
	if !v.LawReference {
		t.Error("law reference not detected")
	}
}

func TestExtractPaymentDaysSpelledOut(t *testing.T) {
	set := Extract(chunksOf("Оплата производится в течение тридцати дней с момента получения счета."))
	v := set.Get(KeyPaymentDays)
	if !v.Present || !v.SpelledOut {
		t.Fatal("spelled-out payment term not found")
	}
	if v.Number != 30 {
		t.Errorf("got %d days, want 30", v.Number)
	}
}

func TestExtractPaymentDaysSpelledOutCompound(t *testing.T) {
	set := Extract(chunksOf("Оплата в течение сорока пяти дней."))
	if v := set.Get(KeyPaymentDays); v.Number != 45 {
		t.Errorf("got %d days, want 45", v.Number)
	}
}

func TestExtractPrepayment(t *testing.T) {
	set := Extract(chunksOf("Покупатель вносит аванс в размере 50% от стоимости товара."))
	v := set.Get(KeyPrepayment)
	if !v.Present {
		t.Fatal("prepayment not detected")
	}
	if v.GuaranteeContext {
		t.Error("guarantee context detected where none exists")
	}
}

func TestExtractPrepaymentNegated(t *testing.T) {
	set := Extract(chunksOf("Поставка осуществляется без предоплаты."))
	if set.Get(KeyPrepayment).Present {
		t.Error("negated prepayment reported as present")
	}
}

func TestExtractPrepaymentGuaranteeContext(t *testing.T) {
	set := Extract(chunksOf(
		"Предоплата в размере 30% перечисляется после предоставления банковской гарантии.",
	))
	v := set.Get(KeyPrepayment)
	if !v.Present || !v.GuaranteeContext {
		t.Errorf("got present=%v guarantee=%v, want both true", v.Present, v.GuaranteeContext)
	}
}

func TestExtractAcceptanceDays(t *testing.T) {
	set := Extract(chunksOf("Приемка результатов работ осуществляется в течение 3 рабочих дней."))
	v := set.Get(KeyAcceptanceDays)
	if !v.Present || v.Number != 3 {
		t.Errorf("got present=%v %d, want 3 working days", v.Present, v.Number)
	}
	if !v.Applies {
		t.Error("acceptance rule should apply to a works contract")
	}
}

func TestExtractAcceptanceNotApplicable(t *testing.T) {
	set := Extract(chunksOf("Поставка товара производится на склад Покупателя."))
	if set.Get(KeyAcceptanceDays).Applies {
		t.Error("acceptance rule applied to a goods-only contract")
	}
}

func TestExtractPaymentWeekday(t *testing.T) {
	set := Extract(chunksOf("Платежи осуществляются один раз в неделю по четвергам."))
	v := set.Get(KeyPaymentWeekday)
	if !v.Present || !v.Unaltered {
		t.Errorf("got present=%v unaltered=%v, want both true", v.Present, v.Unaltered)
	}
}

func TestExtractPaymentWeekdayAltered(t *testing.T) {
	set := Extract(chunksOf("Платежи осуществляются два раза в неделю."))
	v := set.Get(KeyPaymentWeekday)
	if !v.Present || v.Unaltered {
		t.Errorf("got present=%v unaltered=%v, want present altered clause", v.Present, v.Unaltered)
	}
}

func TestExtractProtocolDisagreements(t *testing.T) {
	set := Extract(chunksOf("Договор подписан с протоколом разногласий от 01.02.2026."))
	if !set.Get(KeyProtocolDisagreements).Present {
		t.Error("protocol of disagreements not detected")
	}
}

func TestExtractCounterpartyForm(t *testing.T) {
	set := Extract(chunksOf("Договор составлен по форме поставщика."))
	if !set.Get(KeyCounterpartyForm).Present {
		t.Error("counterparty form not detected")
	}
}

func TestExtractBaseConditionsChange(t *testing.T) {
	set := Extract(chunksOf("В отступление от стандартных условий стороны согласовали особый порядок расчетов."))
	v := set.Get(KeyBaseConditions)
	if !v.Present {
		t.Fatal("base conditions change not detected")
	}
	if v.FoundText == "" {
		t.Error("found text is empty")
	}
}

func TestExtractBaseConditionsAllowedChange(t *testing.T) {
	set := Extract(chunksOf("Допускается изменение условий в части: срок оплаты может быть продлен."))
	if set.Get(KeyBaseConditions).Present {
		t.Error("permitted deviation reported as a change of base conditions")
	}
}

func TestExtractSpecificationIncomplete(t *testing.T) {
	set := Extract(chunksOf("Спецификация приведена в приложении к договору."))
	v := set.Get(KeySpecification)
	if !v.Applies {
		t.Fatal("specification mention not detected")
	}
	if len(v.Missing) != 4 {
		t.Errorf("missing = %v, want all four mandatory elements", v.Missing)
	}
}

func TestExtractSpecificationComplete(t *testing.T) {
	set := Extract(chunksOf("В приложении указаны предмет поставки, цена и стоимость работ, срок поставки."))
	v := set.Get(KeySpecification)
	if !v.Applies {
		t.Fatal("specification mention not detected")
	}
	if len(v.Missing) != 0 {
		t.Errorf("missing = %v, want none", v.Missing)
	}
}

func TestExtractSpecificationNotApplicable(t *testing.T) {
	set := Extract(chunksOf("Поставщик обязуется поставить товар."))
	if set.Get(KeySpecification).Applies {
		t.Error("specification check applied without a specification mention")
	}
}

func TestExtractFrameworkWithoutLimits(t *testing.T) {
	set := Extract(chunksOf("Настоящий рамочный договор определяет общие условия поставки."))
	v := set.Get(KeyFrameworkLimits)
	if !v.Applies {
		t.Fatal("framework contract not detected")
	}
	if v.Present {
		t.Error("limits reported where the text names none")
	}
}

func TestExtractFrameworkWithLimits(t *testing.T) {
	set := Extract(chunksOf("Рамочный договор. Лимит выборки составляет 10 млн рублей."))
	v := set.Get(KeyFrameworkLimits)
	if !v.Applies || !v.Present {
		t.Errorf("applies=%v present=%v, want both", v.Applies, v.Present)
	}
}

func TestExtractHeadingAffinityFirst(t *testing.T) {
	chunks := []*models.Chunk{
		{Order: 0, Heading: "1. ПРЕДМЕТ ДОГОВОРА", Text: "Поставщик обязуется поставить товар."},
		{Order: 1, Heading: "4. ПОРЯДОК ОПЛАТЫ", Text: "Оплата в течение 60 календарных дней."},
	}
	v := Extract(chunks).Get(KeyPaymentDays)
	if !v.Present || v.Number != 60 {
		t.Errorf("got present=%v %d, want 60 from the payment section", v.Present, v.Number)
	}
}

func TestExtractTextLength(t *testing.T) {
	set := Extract(chunksOf("аб"))
	if set.TextLength != 2 {
		t.Errorf("rune length = %d, want 2", set.TextLength)
	}
}

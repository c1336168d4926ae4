package fields

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/contraudit/contraudit/internal/models"
)

var (
	durationRe     = regexp.MustCompile(`(?:^|[^0-9])(\d{1,2})\s*(год[а-я]*|лет|месяц[а-я]*)`)
	endDateRe      = regexp.MustCompile(`(?:до|по)\s+(\d{1,2})\.(\d{1,2})\.(20\d\d)`)
	endDateWordsRe = regexp.MustCompile(`(?:до|по)\s+(\d{1,2})\s+([а-я]+)\s+(20\d\d)`)
	paymentRe      = regexp.MustCompile(`(?i)(?:течение|срок|в)\s+(\d+)\s+(календарн[а-я]*|рабочих?)\s+дн[а-я]*`)
	acceptanceRe   = regexp.MustCompile(`(?i)(?:прием|акт)[^.\n]*?(\d+)\s*рабочих?\s*дн`)
	anyDigitRe     = regexp.MustCompile(`\d`)
)

var monthNames = map[string]time.Month{
	"января": time.January, "февраля": time.February, "марта": time.March,
	"апреля": time.April, "мая": time.May, "июня": time.June,
	"июля": time.July, "августа": time.August, "сентября": time.September,
	"октября": time.October, "ноября": time.November, "декабря": time.December,
}

// spelledDays maps genitive Russian numerals used in payment clauses to day
// counts. Two-word numerals are listed before their prefixes so the longest
// match wins.
var spelledDays = []struct {
	word string
	days int
}{
	{"сорока пяти", 45},
	{"тридцати пяти", 35},
	{"шестидесяти", 60},
	{"пятидесяти", 50},
	{"сорока", 40},
	{"тридцати", 30},
	{"двадцати", 20},
}

var indefiniteMarkers = []string{"бессроч", "автоматическ", "пролонгац", "полного выполн"}

var counterpartyFormKeywords = []string{
	"по форме контрагента", "форме поставщика", "форме подрядчика",
	"форме исполнителя", "не по форме, утвержденной", "не по форме, утверждённой",
}

var guaranteeKeywords = []string{
	"банковская гарантия", "банковской гарантии", "аккредитация", "одобрен", "полномочи",
}

// changeIndicators flag clauses that deviate from the standard form. A clause
// that only touches one of allowedChanges is a permitted deviation.
var changeIndicators = []string{
	"изменение условий", "дополнительные условия", "особые условия",
	"отличающиеся от стандартных", "в отступление от",
}

var allowedChanges = []string{
	"срок оплат", "срок приемки", "ответственность заказчика", "гарантийн", "гарантий",
}

var specificationMarkers = []string{
	"спецификация", "приложение", "техническое задание", "тз",
}

// specificationElements are the terms a specification or annex must mention.
var specificationElements = []string{"предмет", "цена", "срок", "стоимость"}

var frameworkMarkers = []string{
	"рамочный договор", "генеральное соглашение", "договор на неопределенный объем",
}

type fieldSpec struct {
	key          string
	headingHints []string
	extract      func(text string) *Value
}

var fieldSpecs = []fieldSpec{
	{KeyContractTerm, []string{"срок действия", "срок договора", "действие договора"}, extractContractTerm},
	{KeyPaymentDays, []string{"оплат", "платеж", "расчет", "расчёт"}, extractPaymentDays},
	{KeyPrepayment, []string{"оплат", "платеж", "расчет", "расчёт"}, extractPrepayment},
	{KeyAcceptanceDays, []string{"прием", "приём", "сдача", "акт"}, extractAcceptanceDays},
	{KeyPaymentWeekday, []string{"оплат", "платеж"}, extractPaymentWeekday},
	{KeyProtocolDisagreements, nil, extractProtocolDisagreements},
	{KeyCounterpartyForm, nil, extractCounterpartyForm},
	{KeyBaseConditions, nil, extractBaseConditions},
	{KeySpecification, nil, extractSpecification},
	{KeyFrameworkLimits, nil, extractFrameworkLimits},
}

// Extract scans the document chunks for every known field. For each field the
// chunks whose heading matches one of its hints are scanned first; the full
// text is the fallback. A field not found anywhere comes back with
// Present=false.
func Extract(chunks []*models.Chunk) *Set {
	fullText := joinChunks(chunks)
	set := &Set{
		Values:     make(map[string]*Value, len(fieldSpecs)),
		TextLength: utf8.RuneCountInString(fullText),
	}

	hasWorks := strings.Contains(strings.ToLower(fullText), "услуг") ||
		strings.Contains(strings.ToLower(fullText), "работ")

	for _, fs := range fieldSpecs {
		var v *Value
		if affinity := affinityText(chunks, fs.headingHints); affinity != "" {
			v = fs.extract(affinity)
		}
		if v == nil || !v.Present {
			v = fs.extract(fullText)
		}
		v.Key = fs.key
		if fs.key == KeyAcceptanceDays {
			v.Applies = hasWorks
		}
		set.Values[fs.key] = v
	}
	return set
}

func joinChunks(chunks []*models.Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		parts = append(parts, ch.Text)
	}
	return strings.Join(parts, "\n")
}

func affinityText(chunks []*models.Chunk, hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	var parts []string
	for _, ch := range chunks {
		heading := strings.ToLower(ch.Heading)
		for _, h := range hints {
			if strings.Contains(heading, h) {
				parts = append(parts, ch.Text)
				break
			}
		}
	}
	return strings.Join(parts, "\n")
}

// clauseAfter returns the clause starting at the first occurrence of marker,
// up to the next sentence or line break.
func clauseAfter(text, marker string) string {
	lowered := strings.ToLower(text)
	idx := strings.Index(lowered, marker)
	if idx == -1 {
		return ""
	}
	rest := text[idx:]
	end := len(rest)
	for i := 0; i < len(rest); i++ {
		if rest[i] == '\n' {
			end = i
			break
		}
		// A period between digits is a date separator, not a sentence end.
		if rest[i] == '.' {
			if i > 0 && i+1 < len(rest) && isDigit(rest[i-1]) && isDigit(rest[i+1]) {
				continue
			}
			end = i
			break
		}
	}
	return strings.TrimSpace(rest[:end])
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// sentenceAround returns the sentence or line containing byte offset idx.
func sentenceAround(text string, idx int) string {
	start := 0
	if i := strings.LastIndexAny(text[:idx], ".\n"); i != -1 {
		start = i + 1
	}
	end := len(text)
	if i := strings.IndexAny(text[idx:], ".\n"); i != -1 {
		end = idx + i
	}
	return strings.TrimSpace(text[start:end])
}

func extractContractTerm(text string) *Value {
	clause := clauseAfter(text, "срок действия")
	if clause == "" {
		clause = clauseAfter(text, "договор действует")
	}
	if clause == "" {
		return &Value{}
	}
	v := &Value{Present: true, FoundText: clause}
	lowered := strings.ToLower(clause)

	for _, marker := range indefiniteMarkers {
		if strings.Contains(lowered, marker) {
			v.Indefinite = true
			return v
		}
	}

	if m := durationRe.FindStringSubmatch(lowered); m != nil {
		num, _ := strconv.Atoi(m[1])
		months := num * 12
		if strings.HasPrefix(m[2], "месяц") {
			months = num
		}
		v.Number = months
		v.Unit = UnitMonths
		return v
	}

	if m := endDateRe.FindStringSubmatch(lowered); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 {
			v.EndDate = time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		}
		return v
	}
	if m := endDateWordsRe.FindStringSubmatch(lowered); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if month, ok := monthNames[m[2]]; ok {
			v.EndDate = time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		}
		return v
	}
	return v
}

func extractPaymentDays(text string) *Value {
	if m := paymentRe.FindStringSubmatch(text); m != nil {
		days, _ := strconv.Atoi(m[1])
		v := &Value{
			Present:   true,
			Number:    days,
			Unit:      UnitCalendarDay,
			FoundText: paymentRe.FindString(text),
		}
		if strings.Contains(strings.ToLower(m[2]), "рабоч") {
			v.Unit = UnitWorkingDay
		}
		loc := paymentRe.FindStringIndex(text)
		v.LawReference = hasLawReference(text, loc[0], loc[1])
		return v
	}

	// Spelled-out numerals on payment lines that carry no digits.
	for _, line := range strings.Split(text, "\n") {
		lowered := strings.ToLower(line)
		if !strings.Contains(lowered, "оплат") && !strings.Contains(lowered, "платеж") && !strings.Contains(lowered, "расчет") {
			continue
		}
		if !strings.Contains(lowered, "дней") && !strings.Contains(lowered, "дня") {
			continue
		}
		if anyDigitRe.MatchString(lowered) {
			continue
		}
		for _, sd := range spelledDays {
			if strings.Contains(lowered, sd.word) {
				return &Value{
					Present:    true,
					Number:     sd.days,
					Unit:       UnitCalendarDay,
					SpelledOut: true,
					FoundText:  strings.TrimSpace(line),
				}
			}
		}
	}
	return &Value{}
}

// hasLawReference reports whether the text around [start,end) mentions RF
// legislation, which exempts a shorter payment term.
func hasLawReference(text string, start, end int) bool {
	ctxStart := start - 50
	if ctxStart < 0 {
		ctxStart = 0
	}
	ctxEnd := end + 50
	if ctxEnd > len(text) {
		ctxEnd = len(text)
	}
	context := strings.ToLower(text[ctxStart:ctxEnd])
	return strings.Contains(context, "закона") ||
		strings.Contains(context, " фз") ||
		strings.Contains(context, "федерального закона")
}

func extractPrepayment(text string) *Value {
	lowered := strings.ToLower(text)
	for _, marker := range []string{"предоплат", "аванс"} {
		idx := strings.Index(lowered, marker)
		if idx == -1 {
			continue
		}
		sentence := strings.ToLower(sentenceAround(text, idx))
		// Negated mentions are not a prepayment condition.
		if strings.Contains(sentence, "без предоплат") ||
			strings.Contains(sentence, "без аванс") ||
			strings.Contains(sentence, "не ") {
			continue
		}
		v := &Value{Present: true, FoundText: sentenceAround(text, idx)}
		for _, kw := range guaranteeKeywords {
			if strings.Contains(lowered, kw) {
				v.GuaranteeContext = true
				break
			}
		}
		return v
	}
	return &Value{}
}

func extractAcceptanceDays(text string) *Value {
	if m := acceptanceRe.FindStringSubmatch(text); m != nil {
		days, _ := strconv.Atoi(m[1])
		return &Value{
			Present:   true,
			Number:    days,
			Unit:      UnitWorkingDay,
			FoundText: acceptanceRe.FindString(text),
		}
	}
	return &Value{}
}

func extractPaymentWeekday(text string) *Value {
	for _, line := range strings.Split(text, "\n") {
		lowered := strings.ToLower(line)
		if !strings.Contains(lowered, "платеж") || !strings.Contains(lowered, "недел") {
			continue
		}
		v := &Value{Present: true, FoundText: strings.TrimSpace(line)}
		if strings.Contains(lowered, "1 раз в неделю") ||
			strings.Contains(lowered, "один раз в неделю") ||
			strings.Contains(lowered, "один платежный день") {
			v.Unaltered = true
		}
		return v
	}
	return &Value{}
}

func extractProtocolDisagreements(text string) *Value {
	lowered := strings.ToLower(text)
	idx := strings.Index(lowered, "протокол разноглас")
	if idx == -1 {
		return &Value{}
	}
	return &Value{Present: true, FoundText: sentenceAround(text, idx)}
}

func extractCounterpartyForm(text string) *Value {
	lowered := strings.ToLower(text)
	for _, kw := range counterpartyFormKeywords {
		if idx := strings.Index(lowered, kw); idx != -1 {
			return &Value{Present: true, FoundText: sentenceAround(text, idx)}
		}
	}
	return &Value{}
}

// extractBaseConditions reports the first clause that changes base contract
// conditions without naming a permitted deviation.
func extractBaseConditions(text string) *Value {
	lowered := strings.ToLower(text)
	for _, indicator := range changeIndicators {
		idx := strings.Index(lowered, indicator)
		if idx == -1 {
			continue
		}
		sentence := sentenceAround(text, idx)
		clause := strings.ToLower(sentence)
		allowed := false
		for _, a := range allowedChanges {
			if strings.Contains(clause, a) {
				allowed = true
				break
			}
		}
		if allowed {
			continue
		}
		return &Value{Present: true, FoundText: sentence}
	}
	return &Value{}
}

// extractSpecification applies only when the text refers to a specification
// or annex; Missing lists the mandatory elements the text never mentions.
func extractSpecification(text string) *Value {
	lowered := strings.ToLower(text)
	v := &Value{}
	for _, marker := range specificationMarkers {
		if strings.Contains(lowered, marker) {
			v.Applies = true
			break
		}
	}
	if !v.Applies {
		return v
	}
	for _, el := range specificationElements {
		if !strings.Contains(lowered, el) {
			v.Missing = append(v.Missing, el)
		}
	}
	return v
}

// extractFrameworkLimits applies only to framework contracts; Present reports
// whether the text mentions limits or volumes at all.
func extractFrameworkLimits(text string) *Value {
	lowered := strings.ToLower(text)
	v := &Value{}
	for _, marker := range frameworkMarkers {
		if idx := strings.Index(lowered, marker); idx != -1 {
			v.Applies = true
			v.FoundText = sentenceAround(text, idx)
			break
		}
	}
	if !v.Applies {
		return v
	}
	if strings.Contains(lowered, "лимит") || strings.Contains(lowered, "объем") {
		v.Present = true
	}
	return v
}

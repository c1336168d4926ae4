package matcher

import "github.com/contraudit/contraudit/internal/models"

// Decide turns ranked candidates into a verdict. With no candidates the
// verdict is UNKNOWN. The best candidate at or above threshold yields
// STANDARD; otherwise NONSTANDARD with the closest template still reported.
func Decide(candidates []*models.Candidate, threshold float64) models.Decision {
	if len(candidates) == 0 {
		return models.Decision{Verdict: models.VerdictUnknown}
	}
	best := candidates[0]
	verdict := models.VerdictNonstandard
	if best.CombinedScore >= threshold {
		verdict = models.VerdictStandard
	}
	return models.Decision{
		Verdict:           verdict,
		MatchedTemplateID: best.TemplateID,
		Score:             best.CombinedScore,
	}
}

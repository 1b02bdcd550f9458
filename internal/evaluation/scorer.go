package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/ai"
	"github.com/spigell/rfp-responder/internal/rfp"
)

const (
	stageScore        = "proposal scoring"
	defaultEvaluation = "No evaluation provided"
	notAvailable      = "N/A"
)

var (
	scorePrompt = mustPrompt("score.md")
	scoreConfig = ai.GenerationConfig{Temperature: 0.1, MaxOutputTokens: 2048, JSON: true}

	errMissingScore = errors.New("score is missing")
)

const (
	budgetPriceRules = `- Price at or under budget: 30
- Up to 10% over budget: 20
- 11-20% over budget: 10
- More than 20% over budget: 5
- A lower price always scores at least as high`
	openPriceRules = `- No budget was stated: judge how reasonable the price is for the requested items`
	deadlineRules  = `- Delivered within the required days: 20
- 1-5 days late: 15
- 6-10 days late: 10
- More than 10 days late: 5
- Faster delivery always scores at least as high`
	openDeliveryRules = `- No deadline was stated: faster delivery scores higher`
)

// Scorer rates a proposal against its requirement set.
type Scorer struct {
	caller
}

func NewScorer(generator ai.Generator, log *zap.Logger, maxLogLength int) *Scorer {
	return &Scorer{caller: newCaller(generator, log, maxLogLength)}
}

// Score always returns an assessment in [0, 100]. Generation errors and
// output without a usable score fall back to rfp.FallbackBreakdown.
func (s *Scorer) Score(ctx context.Context, rs rfp.RequirementSet, p rfp.ExtractedProposal, vendorName string) rfp.Assessment {
	log := s.logger.With(zap.String("vendor", vendorName), zap.String("rfp_id", rs.ID))

	prompt, err := buildScorePrompt(rs, p, vendorName)
	if err != nil {
		log.Warn("could not build scoring prompt, using fallback score", zap.Error(err))
		return fallbackAssessment(rs, p, "")
	}

	raw, err := s.generate(ctx, stageScore, prompt, scoreConfig, zap.String("vendor", vendorName))
	if err != nil {
		log.Warn("scoring generation failed, using fallback score", zap.Error(err))
		return fallbackAssessment(rs, p, "")
	}

	assessment, err := parseAssessment(raw)
	if err != nil {
		log.Warn("scoring response unusable, using fallback score", zap.Error(err))
		return fallbackAssessment(rs, p, raw)
	}

	log.Info("scored proposal", zap.Float64("score", assessment.Score))
	return assessment
}

func fallbackAssessment(rs rfp.RequirementSet, p rfp.ExtractedProposal, raw string) rfp.Assessment {
	breakdown := rfp.FallbackBreakdown(rs, p)
	score := rfp.ClampScore(breakdown.Total())
	return rfp.Assessment{
		Score:      score,
		Evaluation: rfp.FallbackEvaluation(p, score),
		Breakdown:  &breakdown,
		Fallback:   true,
		Raw:        raw,
	}
}

func parseAssessment(raw string) (rfp.Assessment, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return rfp.Assessment{}, err
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		return rfp.Assessment{}, errMissingScore
	}

	evaluation := coerceString(data["evaluation"])
	if evaluation == "" {
		evaluation = defaultEvaluation
	}

	return rfp.Assessment{
		Score:      rfp.ClampScore(score),
		Evaluation: evaluation,
		Breakdown:  breakdownFrom(data["breakdown"]),
		Raw:        raw,
	}, nil
}

func breakdownFrom(v any) *rfp.Breakdown {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return &rfp.Breakdown{
		Price:        bounded(m["price"], rfp.MaxPricePoints),
		Delivery:     bounded(m["delivery"], rfp.MaxDeliveryPoints),
		Completeness: bounded(m["completeness"], rfp.MaxCompletenessPoints),
		Terms:        bounded(m["terms"], rfp.MaxTermsPoints),
		Value:        bounded(m["value"], rfp.MaxValuePoints),
	}
}

func bounded(v any, limit float64) float64 {
	f := coerceFloat(v)
	if math.IsNaN(f) {
		return 0
	}
	return math.Min(limit, math.Max(0, f))
}

func buildScorePrompt(rs rfp.RequirementSet, p rfp.ExtractedProposal, vendorName string) (string, error) {
	rfpJSON, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return "", err
	}
	proposalJSON, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", err
	}

	values := map[string]string{
		"RFP_JSON":          string(rfpJSON),
		"PROPOSAL_JSON":     string(proposalJSON),
		"VENDOR_NAME":       vendorName,
		"PRICE_RULES":       openPriceRules,
		"DELIVERY_RULES":    openDeliveryRules,
		"PRICE":             notAvailable,
		"BUDGET":            "no budget specified",
		"DELIVERY":          notAvailable,
		"REQUIRED_DELIVERY": "no delivery timeline specified",
		"WITHIN_BUDGET":     notAvailable,
		"ON_TIME":           notAvailable,
	}

	if p.TotalPrice != nil {
		values["PRICE"] = "$" + formatNumber(*p.TotalPrice)
	}
	if p.DeliveryDays != nil {
		values["DELIVERY"] = strconv.Itoa(*p.DeliveryDays) + " days"
	}

	if rs.Budget != nil && *rs.Budget > 0 {
		values["PRICE_RULES"] = budgetPriceRules
		values["BUDGET"] = "budget $" + formatNumber(*rs.Budget)
		if p.TotalPrice != nil {
			values["WITHIN_BUDGET"] = yesNo(*p.TotalPrice <= *rs.Budget)
		}
	}
	if rs.DeliveryDays != nil && *rs.DeliveryDays > 0 {
		values["DELIVERY_RULES"] = deadlineRules
		values["REQUIRED_DELIVERY"] = "required " + strconv.Itoa(*rs.DeliveryDays) + " days"
		if p.DeliveryDays != nil {
			values["ON_TIME"] = yesNo(*p.DeliveryDays <= *rs.DeliveryDays)
		}
	}

	return render(scorePrompt, values), nil
}

func yesNo(ok bool) string {
	if ok {
		return "YES"
	}
	return "NO (penalty)"
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

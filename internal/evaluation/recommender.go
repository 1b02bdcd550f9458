package evaluation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/ai"
	"github.com/spigell/rfp-responder/internal/rfp"
)

const stageRecommend = "recommendation"

var (
	recommendPrompt = mustPrompt("recommend.md")
	recommendConfig = ai.GenerationConfig{Temperature: 0.5, TopK: 40, TopP: 0.95, MaxOutputTokens: 1536, JSON: true}
)

// Recommender picks one vendor out of several scored proposals.
type Recommender struct {
	caller
}

func NewRecommender(generator ai.Generator, log *zap.Logger, maxLogLength int) *Recommender {
	return &Recommender{caller: newCaller(generator, log, maxLogLength)}
}

type recommendationInput struct {
	VendorID      string                `json:"vendorId"`
	VendorName    string                `json:"vendorName"`
	Score         float64               `json:"aiScore"`
	Evaluation    string                `json:"aiEvaluation"`
	ExtractedData rfp.ExtractedProposal `json:"extractedData"`
}

// Recommend returns nil for fewer than two rows. Otherwise the result always
// names a vendor present in rows: an unusable or out-of-set answer is
// replaced by the highest scored row.
func (r *Recommender) Recommend(ctx context.Context, rs rfp.RequirementSet, rows []rfp.ComparisonRow) *rfp.Recommendation {
	if len(rows) < 2 {
		return nil
	}

	log := r.logger.With(zap.String("rfp_id", rs.ID), zap.Int("proposals", len(rows)))

	prompt, err := buildRecommendPrompt(rs, rows)
	if err != nil {
		log.Warn("could not build recommendation prompt", zap.Error(err))
		return topScored(rows)
	}

	raw, err := r.generate(ctx, stageRecommend, prompt, recommendConfig, zap.String("rfp_id", rs.ID))
	if err != nil {
		log.Warn("recommendation generation failed, recommending top score", zap.Error(err))
		return topScored(rows)
	}

	rec, err := parseRecommendation(raw, rows)
	if err != nil {
		log.Warn("recommendation unusable, recommending top score", zap.Error(err))
		return topScored(rows)
	}

	log.Info("recommended vendor", zap.String("vendor_id", rec.RecommendedVendorID))
	return rec
}

func buildRecommendPrompt(rs rfp.RequirementSet, rows []rfp.ComparisonRow) (string, error) {
	inputs := make([]recommendationInput, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		inputs = append(inputs, recommendationInput{
			VendorID:      row.VendorID,
			VendorName:    row.VendorName,
			Score:         row.Score,
			Evaluation:    row.Evaluation,
			ExtractedData: row.ExtractedData,
		})
		ids = append(ids, row.VendorID)
	}

	rfpJSON, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return "", err
	}
	proposalsJSON, err := json.MarshalIndent(inputs, "", "  ")
	if err != nil {
		return "", err
	}

	return render(recommendPrompt, map[string]string{
		"RFP_JSON":       string(rfpJSON),
		"PROPOSALS_JSON": string(proposalsJSON),
		"VENDOR_IDS":     strings.Join(ids, ", "),
	}), nil
}

func parseRecommendation(raw string, rows []rfp.ComparisonRow) (*rfp.Recommendation, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	id := coerceString(data["recommendedVendorId"])
	known := false
	for _, row := range rows {
		if row.VendorID == id {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("recommended vendor %q is not among the proposals", id)
	}

	rec := &rfp.Recommendation{
		RecommendedVendorID: id,
		Reasoning:           coerceString(data["reasoning"]),
		ComparisonSummary:   coerceString(data["comparisonSummary"]),
	}
	if rec.ComparisonSummary == "" {
		rec.ComparisonSummary = scoreSummary(rows)
	}
	return rec, nil
}

// topScored recommends the first row with the highest score.
func topScored(rows []rfp.ComparisonRow) *rfp.Recommendation {
	best := rows[0]
	for _, row := range rows[1:] {
		if row.Score > best.Score {
			best = row
		}
	}

	return &rfp.Recommendation{
		RecommendedVendorID: best.VendorID,
		Reasoning: fmt.Sprintf("%s has the highest score (%s/100) among %d proposals. Manual review recommended.",
			best.VendorName, formatNumber(best.Score), len(rows)),
		ComparisonSummary: scoreSummary(rows),
	}
}

func scoreSummary(rows []rfp.ComparisonRow) string {
	parts := make([]string, 0, len(rows))
	for _, row := range rows {
		price := notAvailable
		if row.TotalPrice != nil {
			price = "$" + formatNumber(*row.TotalPrice)
		}
		parts = append(parts, fmt.Sprintf("%s scored %s/100 at %s.", row.VendorName, formatNumber(row.Score), price))
	}
	return strings.Join(parts, " ")
}

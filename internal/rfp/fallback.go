package rfp

import (
	"fmt"
	"math"
	"strconv"
)

// Point caps of the scoring criteria. Both scoring paths use them.
const (
	MaxPricePoints        = 30
	MaxDeliveryPoints     = 20
	MaxCompletenessPoints = 20
	MaxTermsPoints        = 15
	MaxValuePoints        = 15
)

// FallbackBreakdown scores a proposal without generation.
// Missing price or delivery information yields the midpoint of the criterion.
func FallbackBreakdown(rs RequirementSet, p ExtractedProposal) Breakdown {
	var b Breakdown

	switch {
	case rs.Budget == nil || *rs.Budget <= 0 || p.TotalPrice == nil:
		b.Price = 15
	default:
		ratio := *p.TotalPrice / *rs.Budget
		switch {
		case ratio <= 1.0:
			b.Price = 30
		case ratio <= 1.1:
			b.Price = 20
		case ratio <= 1.2:
			b.Price = 10
		default:
			b.Price = 5
		}
	}

	switch {
	case rs.DeliveryDays == nil || p.DeliveryDays == nil:
		b.Delivery = 10
	default:
		diff := *p.DeliveryDays - *rs.DeliveryDays
		switch {
		case diff <= 0:
			b.Delivery = 20
		case diff <= 5:
			b.Delivery = 15
		case diff <= 10:
			b.Delivery = 10
		default:
			b.Delivery = 5
		}
	}

	if len(p.Items) > 0 {
		b.Completeness = 20
	} else {
		b.Completeness = 10
	}

	if len(p.PaymentTerms) > 0 {
		b.Terms += 8
	}
	if p.Warranty != nil && *p.Warranty != "" {
		b.Terms += 7
	}

	if len(p.AdditionalServices) > 0 {
		b.Value = 10
	} else {
		b.Value = 5
	}

	return b
}

// FallbackScore is the clamped total of FallbackBreakdown.
func FallbackScore(rs RequirementSet, p ExtractedProposal) float64 {
	return ClampScore(FallbackBreakdown(rs, p).Total())
}

// FallbackEvaluation describes a score that was computed without generation.
func FallbackEvaluation(p ExtractedProposal, score float64) string {
	price := "N/A"
	if p.TotalPrice != nil {
		price = strconv.FormatFloat(*p.TotalPrice, 'f', -1, 64)
	}
	days := "N/A"
	if p.DeliveryDays != nil {
		days = strconv.Itoa(*p.DeliveryDays)
	}
	return fmt.Sprintf("Automated scoring: %s/100. Price: $%s, Delivery: %s days. Manual review recommended.",
		strconv.FormatFloat(score, 'f', -1, 64), price, days)
}

// ClampScore bounds a score to [0, 100]. NaN becomes 0.
func ClampScore(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Min(100, math.Max(0, score))
}

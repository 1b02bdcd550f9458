package procurement

import (
	"context"
	"sort"

	"github.com/spigell/rfp-responder/internal/rfp"
)

// CompareProposals ranks every proposal of the RFP by score. A recommendation
// is requested only when there are at least two proposals.
func (s *Service) CompareProposals(ctx context.Context, rfpID string) (rfp.Comparison, error) {
	r, err := s.store.GetRFP(ctx, rfpID)
	if err != nil {
		return rfp.Comparison{}, err
	}

	proposals, err := s.store.ListProposalsByRFP(ctx, rfpID)
	if err != nil {
		return rfp.Comparison{}, err
	}

	comparison := rfp.Comparison{
		RFPID:     r.ID,
		Title:     r.Title,
		Proposals: make([]rfp.ComparisonRow, 0, len(proposals)),
	}
	for _, p := range proposals {
		comparison.Proposals = append(comparison.Proposals, rfp.ComparisonRow{
			ProposalID:    p.ID,
			VendorID:      p.VendorID,
			VendorName:    p.VendorName,
			VendorEmail:   p.VendorEmail,
			TotalPrice:    p.ExtractedData.TotalPrice,
			Score:         p.Score,
			Evaluation:    p.Evaluation,
			ExtractedData: p.ExtractedData,
			CreatedAt:     p.CreatedAt,
		})
	}

	sort.SliceStable(comparison.Proposals, func(i, j int) bool {
		a, b := comparison.Proposals[i], comparison.Proposals[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	if len(comparison.Proposals) >= 2 && s.recommender != nil {
		comparison.Recommendation = s.recommender.Recommend(ctx, r.Requirements, comparison.Proposals)
	}

	return comparison, nil
}

package procurement

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/logger"
	"github.com/spigell/rfp-responder/internal/rfp"
)

// ProcessProposal extracts, scores and stores a vendor reply, then marks the
// vendor as RESPONDED for the RFP. Each call stores a new proposal.
func (s *Service) ProcessProposal(ctx context.Context, rfpID, vendorEmail, text string) (rfp.Proposal, error) {
	if s.extractor == nil || s.scorer == nil {
		return rfp.Proposal{}, fmt.Errorf("proposal processing: %w", errNotConfigured)
	}
	if strings.TrimSpace(text) == "" {
		return rfp.Proposal{}, rfp.Invalid("proposal text is required")
	}

	r, err := s.store.GetRFP(ctx, rfpID)
	if err != nil {
		return rfp.Proposal{}, err
	}

	v, err := s.store.GetVendorByEmail(ctx, vendorEmail)
	if err != nil {
		return rfp.Proposal{}, err
	}

	return s.processFor(ctx, r, v, text)
}

func (s *Service) processFor(ctx context.Context, r rfp.RFP, v rfp.Vendor, text string) (rfp.Proposal, error) {
	log := s.logger.With(logger.RFPFields(r.ID, v.ID)...)

	extracted, err := s.extractor.Extract(ctx, text, r.Requirements)
	if err != nil {
		return rfp.Proposal{}, err
	}

	assessment := s.scorer.Score(ctx, r.Requirements, extracted, v.Name)

	p := rfp.Proposal{
		RFPID:         r.ID,
		VendorID:      v.ID,
		VendorName:    v.Name,
		VendorEmail:   v.Email,
		RawEmailBody:  text,
		ExtractedData: extracted,
		Score:         rfp.ClampScore(assessment.Score),
		Evaluation:    assessment.Evaluation,
	}
	if err := s.store.CreateProposal(ctx, &p); err != nil {
		return rfp.Proposal{}, err
	}

	if _, err := s.store.AdvanceVendorStatus(ctx, r.ID, v.ID, rfp.StatusResponded); err != nil {
		return rfp.Proposal{}, fmt.Errorf("record response: %w", err)
	}

	log.Info("proposal stored",
		zap.String(logger.FieldProposal, p.ID),
		zap.Float64("score", p.Score),
		zap.Bool("fallback_score", assessment.Fallback),
	)
	return p, nil
}

func (s *Service) GetProposal(ctx context.Context, id string) (rfp.Proposal, error) {
	return s.store.GetProposal(ctx, id)
}

func (s *Service) ListProposalsByRFP(ctx context.Context, rfpID string) ([]rfp.Proposal, error) {
	if _, err := s.store.GetRFP(ctx, rfpID); err != nil {
		return nil, err
	}
	return s.store.ListProposalsByRFP(ctx, rfpID)
}

func (s *Service) ListProposalsByVendor(ctx context.Context, vendorID string) ([]rfp.Proposal, error) {
	if _, err := s.store.GetVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	return s.store.ListProposalsByVendor(ctx, vendorID)
}

func (s *Service) DeleteProposal(ctx context.Context, id string) error {
	return s.store.DeleteProposal(ctx, id)
}

// ProposalStats summarises the scores of an RFP's proposals. The average is
// rounded to two decimals; the top vendor is the first with the highest score.
func (s *Service) ProposalStats(ctx context.Context, rfpID string) (rfp.Stats, error) {
	proposals, err := s.ListProposalsByRFP(ctx, rfpID)
	if err != nil {
		return rfp.Stats{}, err
	}

	stats := rfp.Stats{TotalProposals: len(proposals)}
	if len(proposals) == 0 {
		return stats, nil
	}

	sum := 0.0
	highest, lowest := proposals[0].Score, proposals[0].Score
	top := proposals[0]
	for _, p := range proposals {
		sum += p.Score
		if p.Score > highest {
			highest = p.Score
			top = p
		}
		lowest = math.Min(lowest, p.Score)
	}

	avg := math.Round(sum/float64(len(proposals))*100) / 100
	stats.AverageScore = &avg
	stats.HighestScore = &highest
	stats.LowestScore = &lowest
	stats.TopVendor = &rfp.TopVendor{Name: top.VendorName, Score: top.Score}
	return stats, nil
}

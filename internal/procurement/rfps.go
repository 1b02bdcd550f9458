package procurement

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/logger"
	"github.com/spigell/rfp-responder/internal/rfp"
)

// PreviewRFP structures a request without storing it.
func (s *Service) PreviewRFP(ctx context.Context, prompt string) (rfp.RequirementSet, error) {
	if s.structurer == nil {
		return rfp.RequirementSet{}, fmt.Errorf("rfp structuring: %w", errNotConfigured)
	}
	return s.structurer.Structure(ctx, prompt)
}

// CreateRFP structures a natural language request and stores the result.
func (s *Service) CreateRFP(ctx context.Context, prompt string) (rfp.RFP, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return rfp.RFP{}, rfp.Invalid("natural language prompt is required")
	}

	rs, err := s.PreviewRFP(ctx, prompt)
	if err != nil {
		return rfp.RFP{}, fmt.Errorf("structure rfp: %w", err)
	}

	r := rfp.RFP{
		Title:        rs.Title,
		RawPrompt:    prompt,
		Requirements: rs,
	}
	if err := s.store.CreateRFP(ctx, &r); err != nil {
		return rfp.RFP{}, err
	}

	s.logger.Info("rfp created", append(logger.RFPFields(r.ID, ""), zap.String("title", r.Title))...)
	return r, nil
}

func (s *Service) GetRFP(ctx context.Context, id string) (rfp.RFP, error) {
	return s.store.GetRFP(ctx, id)
}

func (s *Service) ListRFPs(ctx context.Context) ([]rfp.RFP, error) {
	return s.store.ListRFPs(ctx)
}

// GetRFPWithVendors returns the RFP and the dispatch state of every related vendor.
func (s *Service) GetRFPWithVendors(ctx context.Context, id string) (rfp.RFPWithVendors, error) {
	r, err := s.store.GetRFP(ctx, id)
	if err != nil {
		return rfp.RFPWithVendors{}, err
	}

	vendors, err := s.store.RFPVendors(ctx, id)
	if err != nil {
		return rfp.RFPWithVendors{}, err
	}

	return rfp.RFPWithVendors{
		ID:           r.ID,
		Title:        r.Title,
		Requirements: r.Requirements,
		Vendors:      vendors,
	}, nil
}

// DeleteRFP removes the RFP together with its proposals and vendor relations.
func (s *Service) DeleteRFP(ctx context.Context, id string) error {
	if err := s.store.DeleteRFP(ctx, id); err != nil {
		return err
	}
	s.logger.Info("rfp deleted", logger.RFPFields(id, "")...)
	return nil
}

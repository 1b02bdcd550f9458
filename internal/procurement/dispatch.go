package procurement

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/logger"
	"github.com/spigell/rfp-responder/internal/rfp"
)

// SendResult reports a batch dispatch. Failures are listed by vendor name.
type SendResult struct {
	Success       bool     `json:"success"`
	SentCount     int      `json:"sentCount"`
	FailedVendors []string `json:"failedVendors"`
}

// SendRFPToVendors drafts and sends the RFP to each vendor in turn. A failed
// vendor is recorded and the remaining vendors are still attempted.
func (s *Service) SendRFPToVendors(ctx context.Context, rfpID string, vendorIDs []string) (SendResult, error) {
	if s.dispatcher == nil || s.drafter == nil {
		return SendResult{}, fmt.Errorf("email dispatch: %w", errNotConfigured)
	}
	if len(vendorIDs) == 0 {
		return SendResult{}, rfp.Invalid("at least one vendor id is required")
	}

	r, err := s.store.GetRFP(ctx, rfpID)
	if err != nil {
		return SendResult{}, err
	}

	vendors, err := s.vendorsByID(ctx, vendorIDs)
	if err != nil {
		return SendResult{}, err
	}

	result := SendResult{FailedVendors: []string{}}
	for _, v := range vendors {
		log := s.logger.With(logger.RFPFields(r.ID, v.ID)...)

		if err := s.sendOne(ctx, r, v); err != nil {
			log.Warn("rfp dispatch failed", zap.String("vendor", v.Name), zap.Error(err))
			result.FailedVendors = append(result.FailedVendors, v.Name)
			continue
		}

		result.SentCount++
		log.Info("rfp sent", zap.String("vendor", v.Name))
	}

	result.Success = result.SentCount > 0
	return result, nil
}

func (s *Service) sendOne(ctx context.Context, r rfp.RFP, v rfp.Vendor) error {
	email := s.drafter.Draft(ctx, r.Requirements, v.Name)

	if _, err := s.dispatcher.Send(ctx, v.Email, email.Subject, email.Body); err != nil {
		return fmt.Errorf("%w: %v", rfp.ErrDispatch, err)
	}

	if _, err := s.store.AdvanceVendorStatus(ctx, r.ID, v.ID, rfp.StatusSent); err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}
	return nil
}

package procurement

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/logger"
	"github.com/spigell/rfp-responder/internal/rfp"
)

// CreateVendor validates and stores a vendor. The email is normalized and must be unique.
func (s *Service) CreateVendor(ctx context.Context, v rfp.Vendor) (rfp.Vendor, error) {
	v.Name = strings.TrimSpace(v.Name)
	v.Email = rfp.NormalizeEmail(v.Email)
	v.Notes = strings.TrimSpace(v.Notes)

	if v.Name == "" || v.Email == "" {
		return rfp.Vendor{}, rfp.Invalid("name and email are required")
	}
	if err := validateEmail(v.Email); err != nil {
		return rfp.Vendor{}, err
	}

	if err := s.store.CreateVendor(ctx, &v); err != nil {
		return rfp.Vendor{}, err
	}

	s.logger.Info("vendor created", zap.String(logger.FieldVendor, v.ID), zap.String(logger.FieldVendorEmail, v.Email))
	return v, nil
}

func (s *Service) GetVendor(ctx context.Context, id string) (rfp.Vendor, error) {
	return s.store.GetVendor(ctx, id)
}

func (s *Service) ListVendors(ctx context.Context) ([]rfp.Vendor, error) {
	return s.store.ListVendors(ctx)
}

func (s *Service) SearchVendors(ctx context.Context, query string) ([]rfp.Vendor, error) {
	if strings.TrimSpace(query) == "" {
		return nil, rfp.Invalid("search query is required")
	}
	return s.store.SearchVendors(ctx, query)
}

// UpdateVendor applies the set fields of upd. A changed email is re-checked for uniqueness.
func (s *Service) UpdateVendor(ctx context.Context, id string, upd rfp.VendorUpdate) (rfp.Vendor, error) {
	v, err := s.store.GetVendor(ctx, id)
	if err != nil {
		return rfp.Vendor{}, err
	}

	if upd.Name != nil {
		if name := strings.TrimSpace(*upd.Name); name != "" {
			v.Name = name
		}
	}
	if upd.Email != nil {
		email := rfp.NormalizeEmail(*upd.Email)
		if err := validateEmail(email); err != nil {
			return rfp.Vendor{}, err
		}
		v.Email = email
	}
	if upd.Notes != nil {
		v.Notes = strings.TrimSpace(*upd.Notes)
	}

	if err := s.store.UpdateVendor(ctx, v); err != nil {
		return rfp.Vendor{}, err
	}
	return v, nil
}

// DeleteVendor refuses to remove a vendor that still has proposals.
func (s *Service) DeleteVendor(ctx context.Context, id string) error {
	if _, err := s.store.GetVendor(ctx, id); err != nil {
		return err
	}

	n, err := s.store.CountVendorProposals(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return rfp.Invalid("vendor has %d proposal(s) and cannot be deleted", n)
	}

	return s.store.DeleteVendor(ctx, id)
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return rfp.Invalid("invalid email address %q", email)
	}
	return nil
}

func (s *Service) vendorsByID(ctx context.Context, ids []string) ([]rfp.Vendor, error) {
	seen := make(map[string]bool, len(ids))
	vendors := make([]rfp.Vendor, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		v, err := s.store.GetVendor(ctx, id)
		if err != nil {
			s.logger.Warn("skipping vendor", zap.String(logger.FieldVendor, id), zap.Error(err))
			continue
		}
		vendors = append(vendors, v)
	}

	if len(vendors) == 0 {
		return nil, fmt.Errorf("no valid vendors among %d id(s): %w", len(ids), rfp.ErrValidation)
	}
	return vendors, nil
}

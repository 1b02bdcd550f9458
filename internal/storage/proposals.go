package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/rfp"
)

const proposalSelect = `
	SELECT p.id, p.rfp_id, p.vendor_id, v.name, v.email, p.raw_email_body, p.extracted_data, p.ai_score, p.ai_evaluation, p.created_at
	FROM proposals p
	JOIN vendors v ON v.id = p.vendor_id`

// CreateProposal stores p under a new id. Repeated submissions of one vendor
// are kept as separate rows.
func (s *Store) CreateProposal(ctx context.Context, p *rfp.Proposal) error {
	p.ID = s.newID()
	p.CreatedAt = s.now()
	p.Score = rfp.ClampScore(p.Score)

	extracted, err := marshalColumn(p.ExtractedData)
	if err != nil {
		return fmt.Errorf("encode extracted data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO proposals (id, rfp_id, vendor_id, raw_email_body, extracted_data, ai_score, ai_evaluation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.RFPID, p.VendorID, p.RawEmailBody, extracted, p.Score, p.Evaluation, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}

	s.logger.Debug("stored proposal",
		zap.String("proposal_id", p.ID),
		zap.String("rfp_id", p.RFPID),
		zap.String("vendor_id", p.VendorID),
	)
	return nil
}

func (s *Store) GetProposal(ctx context.Context, id string) (rfp.Proposal, error) {
	p, err := scanProposal(s.db.QueryRowContext(ctx, proposalSelect+` WHERE p.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return rfp.Proposal{}, rfp.NotFound("proposal", id)
	}
	return p, err
}

// ListProposalsByRFP returns the RFP's proposals, best score first.
func (s *Store) ListProposalsByRFP(ctx context.Context, rfpID string) ([]rfp.Proposal, error) {
	return s.queryProposals(ctx, proposalSelect+` WHERE p.rfp_id = ? ORDER BY p.ai_score DESC, p.created_at`, rfpID)
}

// ListProposalsByVendor returns the vendor's proposals, newest first.
func (s *Store) ListProposalsByVendor(ctx context.Context, vendorID string) ([]rfp.Proposal, error) {
	return s.queryProposals(ctx, proposalSelect+` WHERE p.vendor_id = ? ORDER BY p.created_at DESC`, vendorID)
}

func (s *Store) DeleteProposal(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM proposals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete proposal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rfp.NotFound("proposal", id)
	}
	return nil
}

func (s *Store) queryProposals(ctx context.Context, query string, args ...any) ([]rfp.Proposal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}
	defer rows.Close()

	result := []rfp.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func scanProposal(row scanner) (rfp.Proposal, error) {
	var (
		p         rfp.Proposal
		extracted string
	)
	if err := row.Scan(&p.ID, &p.RFPID, &p.VendorID, &p.VendorName, &p.VendorEmail, &p.RawEmailBody,
		&extracted, &p.Score, &p.Evaluation, &p.CreatedAt); err != nil {
		return rfp.Proposal{}, err
	}
	if err := json.Unmarshal([]byte(extracted), &p.ExtractedData); err != nil {
		return rfp.Proposal{}, fmt.Errorf("decode extracted data of proposal %s: %w", p.ID, err)
	}
	return p, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spigell/rfp-responder/internal/rfp"
)

const inboundColumns = `id, from_address, subject, raw_body, vendor_id, rfp_id, processed, processing_error, proposal_id, created_at, processed_at`

func (s *Store) CreateInboundEmail(ctx context.Context, e *rfp.InboundEmail) error {
	e.ID = s.newID()
	e.CreatedAt = s.now()
	e.From = rfp.NormalizeEmail(e.From)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inbound_emails (`+inboundColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.From, e.Subject, e.RawBody, nullString(e.VendorID), nullString(e.RFPID), e.Processed,
		nullString(e.ProcessingError), nullString(e.ProposalID), e.CreatedAt, nullTime(e.ProcessedAt))
	if err != nil {
		return fmt.Errorf("insert inbound email: %w", err)
	}
	return nil
}

func (s *Store) GetInboundEmail(ctx context.Context, id string) (rfp.InboundEmail, error) {
	e, err := scanInbound(s.db.QueryRowContext(ctx, `SELECT `+inboundColumns+` FROM inbound_emails WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return rfp.InboundEmail{}, rfp.NotFound("inbound email", id)
	}
	return e, err
}

// UpdateInboundEmail persists the processing outcome of e.
func (s *Store) UpdateInboundEmail(ctx context.Context, e rfp.InboundEmail) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE inbound_emails
		SET vendor_id = ?, rfp_id = ?, processed = ?, processing_error = ?, proposal_id = ?, processed_at = ?
		WHERE id = ?
	`, nullString(e.VendorID), nullString(e.RFPID), e.Processed, nullString(e.ProcessingError),
		nullString(e.ProposalID), nullTime(e.ProcessedAt), e.ID)
	if err != nil {
		return fmt.Errorf("update inbound email: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rfp.NotFound("inbound email", e.ID)
	}
	return nil
}

// ListUnprocessedEmails returns emails that were never processed or failed,
// oldest first. An empty rfpID lists all of them.
func (s *Store) ListUnprocessedEmails(ctx context.Context, rfpID string) ([]rfp.InboundEmail, error) {
	query := `SELECT ` + inboundColumns + ` FROM inbound_emails WHERE (processed = 0 OR processing_error IS NOT NULL)`
	var args []any
	if rfpID != "" {
		query += ` AND rfp_id = ?`
		args = append(args, rfpID)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query inbound emails: %w", err)
	}
	defer rows.Close()

	result := []rfp.InboundEmail{}
	for rows.Next() {
		e, err := scanInbound(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func scanInbound(row scanner) (rfp.InboundEmail, error) {
	var e rfp.InboundEmail
	var vendorID, rfpID, procErr, proposalID sql.NullString
	var processedAt sql.NullTime
	if err := row.Scan(&e.ID, &e.From, &e.Subject, &e.RawBody, &vendorID, &rfpID, &e.Processed,
		&procErr, &proposalID, &e.CreatedAt, &processedAt); err != nil {
		return rfp.InboundEmail{}, err
	}
	e.VendorID = vendorID.String
	e.RFPID = rfpID.String
	e.ProcessingError = procErr.String
	e.ProposalID = proposalID.String
	e.ProcessedAt = timePtr(processedAt)
	return e, nil
}

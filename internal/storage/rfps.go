package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/rfp"
)

const rfpColumns = `id, title, raw_prompt, structured_data, created_at`

// CreateRFP assigns an id and creation time and stores r.
func (s *Store) CreateRFP(ctx context.Context, r *rfp.RFP) error {
	r.ID = s.newID()
	r.CreatedAt = s.now()
	r.Requirements.ID = r.ID
	if strings.TrimSpace(r.Title) == "" {
		r.Title = r.Requirements.Title
	}

	structured, err := marshalColumn(r.Requirements)
	if err != nil {
		return fmt.Errorf("encode requirements: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rfps (id, title, raw_prompt, structured_data, budget, delivery_days, payment_terms, warranty_years, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Title, r.RawPrompt, structured, r.Requirements.Budget, r.Requirements.DeliveryDays,
		nullString(r.Requirements.PaymentTerms), r.Requirements.WarrantyYears, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert rfp: %w", err)
	}

	s.logger.Debug("stored rfp", zap.String("rfp_id", r.ID))
	return nil
}

func (s *Store) GetRFP(ctx context.Context, id string) (rfp.RFP, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+rfpColumns+` FROM rfps WHERE id = ?`, id)
	r, err := scanRFP(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rfp.RFP{}, rfp.NotFound("rfp", id)
	}
	return r, err
}

// ListRFPs returns every RFP, newest first.
func (s *Store) ListRFPs(ctx context.Context) ([]rfp.RFP, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+rfpColumns+` FROM rfps ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query rfps: %w", err)
	}
	defer rows.Close()

	result := []rfp.RFP{}
	for rows.Next() {
		r, err := scanRFP(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// DeleteRFP removes the RFP with its proposals, vendor relations and inbound emails.
func (s *Store) DeleteRFP(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rfps WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rfp: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rfp.NotFound("rfp", id)
	}
	return nil
}

func scanRFP(row scanner) (rfp.RFP, error) {
	var (
		r          rfp.RFP
		structured string
	)
	if err := row.Scan(&r.ID, &r.Title, &r.RawPrompt, &structured, &r.CreatedAt); err != nil {
		return rfp.RFP{}, err
	}
	if err := json.Unmarshal([]byte(structured), &r.Requirements); err != nil {
		return rfp.RFP{}, fmt.Errorf("decode requirements of rfp %s: %w", r.ID, err)
	}
	r.Requirements.ID = r.ID
	return r, nil
}

// RFPVendors lists the vendors related to an RFP with their dispatch state.
func (s *Store) RFPVendors(ctx context.Context, rfpID string) ([]rfp.RFPVendor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.name, v.email, v.notes, v.created_at, rv.status, rv.sent_at
		FROM rfp_vendors rv
		JOIN vendors v ON v.id = rv.vendor_id
		WHERE rv.rfp_id = ?
		ORDER BY v.name
	`, rfpID)
	if err != nil {
		return nil, fmt.Errorf("query rfp vendors: %w", err)
	}
	defer rows.Close()

	result := []rfp.RFPVendor{}
	for rows.Next() {
		var (
			rv     rfp.RFPVendor
			notes  sql.NullString
			sentAt sql.NullTime
		)
		if err := rows.Scan(&rv.ID, &rv.Name, &rv.Email, &notes, &rv.CreatedAt, &rv.Status, &sentAt); err != nil {
			return nil, err
		}
		rv.Notes = notes.String
		rv.SentAt = timePtr(sentAt)
		result = append(result, rv)
	}
	return result, rows.Err()
}

// AdvanceVendorStatus moves the RFP/vendor relation towards next, creating it
// when missing. The status never moves backwards. SENT stamps sent_at.
func (s *Store) AdvanceVendorStatus(ctx context.Context, rfpID, vendorID string, next rfp.VendorStatus) (rfp.VendorStatus, error) {
	if !next.Valid() {
		return "", rfp.Invalid("unknown vendor status %q", next)
	}

	var result rfp.VendorStatus
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.now()

		var current rfp.VendorStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM rfp_vendors WHERE rfp_id = ? AND vendor_id = ?`, rfpID, vendorID).Scan(&current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			var sentAt any
			if next == rfp.StatusSent {
				sentAt = now
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO rfp_vendors (id, rfp_id, vendor_id, status, sent_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, s.newID(), rfpID, vendorID, next, sentAt, now); err != nil {
				return fmt.Errorf("insert rfp vendor: %w", err)
			}
			result = next
			return nil
		case err != nil:
			return fmt.Errorf("read rfp vendor status: %w", err)
		}

		result = current.Advance(next)
		if result == current && next != rfp.StatusSent {
			return nil
		}

		query := `UPDATE rfp_vendors SET status = ?, updated_at = ? WHERE rfp_id = ? AND vendor_id = ?`
		args := []any{result, now, rfpID, vendorID}
		if next == rfp.StatusSent {
			query = `UPDATE rfp_vendors SET status = ?, updated_at = ?, sent_at = ? WHERE rfp_id = ? AND vendor_id = ?`
			args = []any{result, now, now, rfpID, vendorID}
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update rfp vendor status: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return result, nil
}

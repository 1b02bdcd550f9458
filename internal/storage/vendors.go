package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/rfp-responder/internal/rfp"
)

const vendorColumns = `id, name, email, notes, created_at`

// CreateVendor stores v under a new id. A taken email yields rfp.ErrDuplicate.
func (s *Store) CreateVendor(ctx context.Context, v *rfp.Vendor) error {
	v.ID = s.newID()
	v.CreatedAt = s.now()
	v.Email = rfp.NormalizeEmail(v.Email)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vendors (id, name, email, notes, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, v.ID, v.Name, v.Email, nullString(v.Notes), v.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("vendor with email %q: %w", v.Email, rfp.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert vendor: %w", err)
	}
	return nil
}

func (s *Store) GetVendor(ctx context.Context, id string) (rfp.Vendor, error) {
	v, err := scanVendor(s.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return rfp.Vendor{}, rfp.NotFound("vendor", id)
	}
	return v, err
}

// GetVendorByEmail looks a vendor up by its normalized address.
func (s *Store) GetVendorByEmail(ctx context.Context, email string) (rfp.Vendor, error) {
	email = rfp.NormalizeEmail(email)
	v, err := scanVendor(s.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return rfp.Vendor{}, rfp.NotFound("vendor with email", email)
	}
	return v, err
}

func (s *Store) ListVendors(ctx context.Context) ([]rfp.Vendor, error) {
	return s.queryVendors(ctx, `SELECT `+vendorColumns+` FROM vendors ORDER BY name`)
}

// SearchVendors matches query against vendor names and emails, case-insensitively.
func (s *Store) SearchVendors(ctx context.Context, query string) ([]rfp.Vendor, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	return s.queryVendors(ctx, `
		SELECT `+vendorColumns+` FROM vendors
		WHERE lower(name) LIKE ? OR lower(email) LIKE ?
		ORDER BY name
	`, pattern, pattern)
}

// UpdateVendor overwrites name, email and notes of an existing vendor.
func (s *Store) UpdateVendor(ctx context.Context, v rfp.Vendor) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE vendors SET name = ?, email = ?, notes = ? WHERE id = ?
	`, v.Name, rfp.NormalizeEmail(v.Email), nullString(v.Notes), v.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("vendor with email %q: %w", v.Email, rfp.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("update vendor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rfp.NotFound("vendor", v.ID)
	}
	return nil
}

func (s *Store) DeleteVendor(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vendors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete vendor: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rfp.NotFound("vendor", id)
	}
	return nil
}

// CountVendorProposals reports how many proposals reference the vendor.
func (s *Store) CountVendorProposals(ctx context.Context, vendorID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM proposals WHERE vendor_id = ?`, vendorID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count vendor proposals: %w", err)
	}
	return n, nil
}

func (s *Store) queryVendors(ctx context.Context, query string, args ...any) ([]rfp.Vendor, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vendors: %w", err)
	}
	defer rows.Close()

	result := []rfp.Vendor{}
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func scanVendor(row scanner) (rfp.Vendor, error) {
	var (
		v     rfp.Vendor
		notes sql.NullString
	)
	if err := row.Scan(&v.ID, &v.Name, &v.Email, &notes, &v.CreatedAt); err != nil {
		return rfp.Vendor{}, err
	}
	v.Notes = notes.String
	return v, nil
}

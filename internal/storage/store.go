// Package storage persists RFPs, vendors, proposals and inbound emails in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS rfps (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	raw_prompt TEXT NOT NULL,
	structured_data TEXT NOT NULL,
	budget REAL,
	delivery_days INTEGER,
	payment_terms TEXT,
	warranty_years REAL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS vendors (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	notes TEXT,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS rfp_vendors (
	id TEXT PRIMARY KEY,
	rfp_id TEXT NOT NULL,
	vendor_id TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'PENDING',
	sent_at DATETIME,
	updated_at DATETIME NOT NULL,
	UNIQUE (rfp_id, vendor_id),
	FOREIGN KEY (rfp_id) REFERENCES rfps(id) ON DELETE CASCADE,
	FOREIGN KEY (vendor_id) REFERENCES vendors(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_rfp_vendors_rfp_id ON rfp_vendors(rfp_id);

CREATE TABLE IF NOT EXISTS proposals (
	id TEXT PRIMARY KEY,
	rfp_id TEXT NOT NULL,
	vendor_id TEXT NOT NULL,
	raw_email_body TEXT NOT NULL,
	extracted_data TEXT NOT NULL,
	ai_score REAL NOT NULL,
	ai_evaluation TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (rfp_id) REFERENCES rfps(id) ON DELETE CASCADE,
	FOREIGN KEY (vendor_id) REFERENCES vendors(id)
);

CREATE INDEX IF NOT EXISTS idx_proposals_rfp_id ON proposals(rfp_id);
CREATE INDEX IF NOT EXISTS idx_proposals_vendor_id ON proposals(vendor_id);

CREATE TABLE IF NOT EXISTS inbound_emails (
	id TEXT PRIMARY KEY,
	from_address TEXT NOT NULL,
	subject TEXT NOT NULL,
	raw_body TEXT NOT NULL,
	vendor_id TEXT,
	rfp_id TEXT,
	processed INTEGER NOT NULL DEFAULT 0,
	processing_error TEXT,
	proposal_id TEXT,
	created_at DATETIME NOT NULL,
	processed_at DATETIME,
	FOREIGN KEY (vendor_id) REFERENCES vendors(id) ON DELETE SET NULL,
	FOREIGN KEY (rfp_id) REFERENCES rfps(id) ON DELETE CASCADE,
	FOREIGN KEY (proposal_id) REFERENCES proposals(id) ON DELETE SET NULL
);

CREATE INDEX IF NOT EXISTS idx_inbound_emails_rfp_id ON inbound_emails(rfp_id);
`

// Store is a SQLite backed repository.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// Open creates the database file and its directory when missing and applies the schema.
func Open(path string, log *zap.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	log = logger.OrNop(log)
	log.Debug("database ready", zap.String("path", path))

	return &Store{
		db:     db,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return uuid.NewString() },
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

func marshalColumn(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

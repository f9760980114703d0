package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists transaction records in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed transaction store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the transactions table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id                 VARCHAR(64) PRIMARY KEY,
			user_id            VARCHAR(64) NOT NULL,
			amount             NUMERIC(18,2) NOT NULL CHECK (amount > 0),
			currency           VARCHAR(8) NOT NULL DEFAULT 'USD',
			country            VARCHAR(64) NOT NULL DEFAULT 'India',
			merchant_type      VARCHAR(64) NOT NULL DEFAULT '',
			device_risk_score  NUMERIC(4,3) NOT NULL CHECK (device_risk_score >= 0 AND device_risk_score <= 1),
			transaction_type   VARCHAR(16) NOT NULL CHECK (transaction_type IN ('transfer', 'payment', 'withdrawal', 'deposit')),
			description        TEXT,
			recipient_account  VARCHAR(64),
			sender_account     VARCHAR(64),
			risk_score         INTEGER NOT NULL DEFAULT 0,
			risk_level         VARCHAR(16) NOT NULL DEFAULT '',
			occurred_at        TIMESTAMPTZ NOT NULL,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_user_id
			ON transactions (user_id, occurred_at DESC);

		CREATE INDEX IF NOT EXISTS idx_transactions_risk_level
			ON transactions (risk_level, occurred_at DESC);
	`)
	return err
}

func (s *PostgresStore) Create(ctx context.Context, rec *Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, amount, currency, country, merchant_type,
			device_risk_score, transaction_type, description,
			recipient_account, sender_account, risk_score, risk_level,
			occurred_at, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		rec.ID, rec.UserID, rec.Amount, rec.Currency, rec.Country, rec.MerchantType,
		rec.DeviceRiskScore, string(rec.Type), nullable(rec.Description),
		nullable(rec.RecipientAccount), nullable(rec.SenderAccount),
		rec.RiskScore, rec.RiskLevel, rec.Timestamp, rec.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrExists
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, amount, currency, country, merchant_type,
		       device_risk_score, transaction_type, description,
		       recipient_account, sender_account, risk_score, risk_level,
		       occurred_at, created_at
		FROM transactions
		WHERE id = $1
	`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, currency, country, merchant_type,
		       device_risk_score, transaction_type, description,
		       recipient_account, sender_account, risk_score, risk_level,
		       occurred_at, created_at
		FROM transactions
		ORDER BY occurred_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			continue
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var rec Record
	var txType string
	var description, recipient, sender sql.NullString

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Amount, &rec.Currency, &rec.Country, &rec.MerchantType,
		&rec.DeviceRiskScore, &txType, &description,
		&recipient, &sender, &rec.RiskScore, &rec.RiskLevel,
		&rec.Timestamp, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Type = Type(txType)
	rec.Description = description.String
	rec.RecipientAccount = recipient.String
	rec.SenderAccount = sender.String
	return &rec, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

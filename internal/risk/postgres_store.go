package risk

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists risk assessments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the risk_assessments table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS risk_assessments (
			id              VARCHAR(64) PRIMARY KEY,
			transaction_id  VARCHAR(64) NOT NULL,
			risk_score      INTEGER NOT NULL,
			risk_level      VARCHAR(16) NOT NULL,
			factors         TEXT[] NOT NULL DEFAULT '{}',
			recommendations TEXT[] NOT NULL DEFAULT '{}',
			evaluated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_risk_assessments_transaction
			ON risk_assessments (transaction_id, evaluated_at DESC);
	`)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, assessment *Assessment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_assessments (id, transaction_id, risk_score, risk_level, factors, recommendations, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		assessment.ID,
		assessment.TransactionID,
		assessment.Score,
		string(assessment.Level),
		pq.Array(assessment.Factors),
		pq.Array(assessment.Recommendations),
		assessment.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByTransaction(ctx context.Context, txID string, limit int) ([]*Assessment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, risk_score, risk_level, factors, recommendations, evaluated_at
		FROM risk_assessments
		WHERE transaction_id = $1
		ORDER BY evaluated_at DESC
		LIMIT $2
	`, txID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Assessment
	for rows.Next() {
		var a Assessment
		var level string
		var factors, recs pq.StringArray
		if err := rows.Scan(&a.ID, &a.TransactionID, &a.Score, &level, &factors, &recs, &a.EvaluatedAt); err != nil {
			continue
		}
		a.Level = Level(level)
		a.Factors = factors
		a.Recommendations = recs
		result = append(result, &a)
	}
	return result, rows.Err()
}

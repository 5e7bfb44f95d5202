package submission

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresRepository stores confirmations in the submissions table.
type PostgresRepository struct {
	db *sql.DB
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Record(ctx context.Context, c Confirmation) error {
	addons := c.Addons
	if addons == nil {
		addons = []string{}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submissions
			(confirmation_id, session_id, plan_id, billing_period, addons, total, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (confirmation_id) DO NOTHING
	`,
		c.ID,
		c.SessionID,
		c.PlanID,
		c.BillingPeriod,
		pq.Array(addons),
		c.Total,
		c.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("submission: record: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListBySession(ctx context.Context, sessionID string) ([]Confirmation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT confirmation_id, session_id, plan_id, billing_period, addons, total, submitted_at
		FROM submissions
		WHERE session_id = $1
		ORDER BY submitted_at
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("submission: list: %w", err)
	}
	defer rows.Close()

	out := []Confirmation{}
	for rows.Next() {
		var c Confirmation
		if err := rows.Scan(
			&c.ID,
			&c.SessionID,
			&c.PlanID,
			&c.BillingPeriod,
			pq.Array(&c.Addons),
			&c.Total,
			&c.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("submission: scan: %w", err)
		}
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("submission: list: %w", err)
	}
	return out, nil
}

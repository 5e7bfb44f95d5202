package db

import (
	"context"
	"database/sql"
)

const submissionsMigration = `
CREATE TABLE IF NOT EXISTS submissions (
    confirmation_id uuid PRIMARY KEY,
    session_id text NOT NULL,
    plan_id text NOT NULL,
    billing_period text NOT NULL,
    addons text[] NOT NULL DEFAULT '{}',
    total numeric(10,2) NOT NULL,
    submitted_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS submissions_session_id_idx
ON submissions (session_id, submitted_at);
`

func RunSubmissionsMigration(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, submissionsMigration)
	return err
}

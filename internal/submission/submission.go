// Package submission records confirmed wizard submissions.
package submission

import (
	"context"
	"time"
)

// Confirmation is the outcome of a successful submit.
type Confirmation struct {
	ID            string    `json:"confirmation_id"`
	SessionID     string    `json:"session_id"`
	PlanID        string    `json:"plan_id"`
	BillingPeriod string    `json:"billing_period"`
	Addons        []string  `json:"addons"`
	Total         float64   `json:"total"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Repository is the ledger of confirmations. Entries are append-only and
// Record is idempotent per confirmation id.
type Repository interface {
	Record(ctx context.Context, c Confirmation) error
	ListBySession(ctx context.Context, sessionID string) ([]Confirmation, error)
}

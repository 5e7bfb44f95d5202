package wizard

import (
	"context"
	"fmt"

	"github.com/Dantescur/msfback/internal/logger"
	"github.com/Dantescur/msfback/internal/session"
	"github.com/Dantescur/msfback/internal/submission"
)

// Submit validates the accumulated session, prices it and records a new
// confirmation. Every call mints a fresh confirmation id; retries inside
// one call reuse it, so a lost ledger reply cannot record twice.
func (e *Engine) Submit(ctx context.Context, id string) (*submission.Confirmation, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	confirmationID := e.newConfirmationID()
	submittedAt := e.now().UTC()

	return withRetry(ctx, e.retry, "submit", func() (*submission.Confirmation, error) {
		sess, err := e.fetch(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := checkComplete(*sess); err != nil {
			return nil, err
		}

		total, err := e.total(*sess.PlanSelection, sess.Addons)
		if err != nil {
			return nil, err
		}

		c := submission.Confirmation{
			ID:            confirmationID,
			SessionID:     sess.ID,
			PlanID:        sess.PlanSelection.PlanID,
			BillingPeriod: sess.PlanSelection.BillingPeriod,
			Addons:        append([]string{}, sess.Addons...),
			Total:         total,
			SubmittedAt:   submittedAt,
		}

		if err := e.ledger.Record(ctx, c); err != nil {
			return nil, session.WrapError(session.KindStoreUnavailable, "submit: failed to record confirmation", err)
		}

		logger.Info("session submitted", map[string]any{
			"session_id":      sess.ID,
			"confirmation_id": c.ID,
			"total":           c.Total,
		})
		return &c, nil
	})
}

// History lists the confirmations recorded for a session id.
func (e *Engine) History(ctx context.Context, id string) ([]submission.Confirmation, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	return withRetry(ctx, e.retry, "history", func() ([]submission.Confirmation, error) {
		out, err := e.ledger.ListBySession(ctx, id)
		if err != nil {
			return nil, session.WrapError(session.KindStoreUnavailable, "history: failed to list confirmations", err)
		}
		return out, nil
	})
}

// checkComplete collects every reason the session cannot be submitted yet.
func checkComplete(s session.Session) error {
	var reasons []string

	switch {
	case s.PersonalInfo == nil:
		reasons = append(reasons, "personal_info is missing")
	case s.PersonalInfo.Validate() != nil:
		reasons = append(reasons, prefixed("personal_info", s.PersonalInfo.Validate())...)
	}

	switch {
	case s.PlanSelection == nil:
		reasons = append(reasons, "plan_selection is missing")
	case s.PlanSelection.Validate() != nil:
		reasons = append(reasons, prefixed("plan_selection", s.PlanSelection.Validate())...)
	}

	switch {
	case s.Addons == nil:
		reasons = append(reasons, "addons is missing")
	case s.Addons.Validate() != nil:
		reasons = append(reasons, prefixed("addons", s.Addons.Validate())...)
	}

	if s.CurrentStep != session.StepSummary {
		reasons = append(reasons, fmt.Sprintf("current_step is %d, expected %d", s.CurrentStep, session.StepSummary))
	}

	if len(reasons) > 0 {
		return session.NewError(session.KindIncompleteSubmission, "session is not ready for submission", reasons...)
	}
	return nil
}

func prefixed(section string, err error) []string {
	details := session.DetailsOf(err)
	if len(details) == 0 {
		return []string{section + " is invalid"}
	}

	out := make([]string, 0, len(details))
	for _, d := range details {
		out = append(out, section+" is invalid: "+d)
	}
	return out
}

// total is the plan price plus every addon price at the plan's billing
// period, rounded to cents.
func (e *Engine) total(plan session.PlanSelection, addons session.Addons) (float64, error) {
	item, ok := e.catalog.Plan(plan.PlanID)
	if !ok {
		return 0, session.NewError(session.KindInvalidPlanOrAddon, "unknown plan",
			fmt.Sprintf("plan_id %q is not in the catalog", plan.PlanID))
	}

	sum, err := item.Price(plan.BillingPeriod)
	if err != nil {
		return 0, session.WrapError(session.KindValidationFailed, "invalid billing period", err)
	}

	for _, id := range addons {
		addon, ok := e.catalog.Addon(id)
		if !ok {
			return 0, session.NewError(session.KindInvalidPlanOrAddon, "unknown addon",
				fmt.Sprintf("addon %q is not in the catalog", id))
		}
		price, err := addon.Price(plan.BillingPeriod)
		if err != nil {
			return 0, session.WrapError(session.KindValidationFailed, "invalid billing period", err)
		}
		sum += price
	}

	return roundCents(sum), nil
}

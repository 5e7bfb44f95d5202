// Package wizard implements the session update engine: the read, merge,
// validate and write cycle behind every wizard operation.
package wizard

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Dantescur/msfback/internal/catalog"
	"github.com/Dantescur/msfback/internal/logger"
	"github.com/Dantescur/msfback/internal/session"
	"github.com/Dantescur/msfback/internal/submission"
)

// SessionTTL is how long an untouched session survives in the store.
const SessionTTL = 24 * time.Hour

// Partial carries the fields one wizard operation changes. Nil fields
// keep their stored value.
type Partial struct {
	PersonalInfo  *session.PersonalInfo
	PlanSelection *session.PlanSelection
	Addons        *session.Addons
	Step          StepPolicy
}

type Engine struct {
	store   *session.Store
	catalog *catalog.Catalog
	ledger  submission.Repository

	retry             RetryPolicy
	now               func() time.Time
	newID             func() (string, error)
	newConfirmationID func() string
}

type Option func(*Engine)

func WithRetryPolicy(p RetryPolicy) Option {
	return func(e *Engine) { e.retry = p }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() (string, error)) Option {
	return func(e *Engine) { e.newID = newID }
}

func NewEngine(
	store *session.Store,
	cat *catalog.Catalog,
	ledger submission.Repository,
	opts ...Option,
) *Engine {
	e := &Engine{
		store:             store,
		catalog:           cat,
		ledger:            ledger,
		retry:             DefaultRetryPolicy(),
		now:               time.Now,
		newID:             session.GenerateID,
		newConfirmationID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init creates and persists a step-1 session.
func (e *Engine) Init(ctx context.Context) (*session.Session, error) {
	id, err := e.newID()
	if err != nil {
		return nil, session.WrapError(session.KindStoreUnavailable, "init: failed to generate id", err)
	}

	sess := session.New(id, e.now().UTC())

	_, err = withRetry(ctx, e.retry, "init", func() (struct{}, error) {
		return struct{}{}, e.store.Write(ctx, sess, SessionTTL)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("session created", map[string]any{"session_id": id})
	return &sess, nil
}

// Load returns the stored session or a KindNotFound error.
func (e *Engine) Load(ctx context.Context, id string) (*session.Session, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	return withRetry(ctx, e.retry, "load", func() (*session.Session, error) {
		return e.fetch(ctx, id)
	})
}

// ApplyUpdate merges p into the stored session, resolves the step and
// writes the result back. The whole cycle is retried on transient
// store failures.
func (e *Engine) ApplyUpdate(ctx context.Context, id string, p Partial) (*session.Session, error) {
	return e.update(ctx, "apply_update", id, p, nil)
}

// UpdatePersonalInfo validates and normalizes in, then stores it.
func (e *Engine) UpdatePersonalInfo(ctx context.Context, id string, in session.PersonalInfo) (*session.Session, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	info, err := session.NormalizePersonalInfo(in)
	if err != nil {
		return nil, err
	}

	return e.update(ctx, "personal_info", id, Partial{
		PersonalInfo: &info,
		Step:         DeriveFromContent(),
	}, nil)
}

// UpdatePlan checks the plan against the catalog and stores the selection.
func (e *Engine) UpdatePlan(ctx context.Context, id string, in session.PlanSelection) (*session.Session, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	plan := session.PlanSelection{
		PlanID:        strings.TrimSpace(in.PlanID),
		BillingPeriod: strings.TrimSpace(in.BillingPeriod),
	}
	if plan.PlanID != "" {
		if _, ok := e.catalog.Plan(plan.PlanID); !ok {
			return nil, session.NewError(session.KindInvalidPlanOrAddon, "unknown plan",
				fmt.Sprintf("plan_id %q is not in the catalog", plan.PlanID))
		}
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	return e.update(ctx, "plan", id, Partial{
		PlanSelection: &plan,
		Step:          DeriveFromContent(),
	}, nil)
}

// UpdateAddons replaces the addon set. An empty list is a valid choice.
func (e *Engine) UpdateAddons(ctx context.Context, id string, ids []string) (*session.Session, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	addons := session.Addons(ids).Normalize()

	var unknown []string
	for _, a := range addons {
		if _, ok := e.catalog.Addon(a); !ok {
			unknown = append(unknown, fmt.Sprintf("addon %q is not in the catalog", a))
		}
	}
	if len(unknown) > 0 {
		return nil, session.NewError(session.KindInvalidPlanOrAddon, "unknown addon", unknown...)
	}
	if err := addons.Validate(); err != nil {
		return nil, err
	}

	return e.update(ctx, "addons", id, Partial{
		Addons: &addons,
		Step:   DeriveFromContent(),
	}, nil)
}

// Navigate moves the session back to target, or keeps it where it is.
// Forward progress only comes from field updates.
func (e *Engine) Navigate(ctx context.Context, id string, target int) (*session.Session, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	guard := func(current session.Session) error {
		if target > current.CurrentStep {
			return session.NewError(session.KindCannotSkipAhead, "cannot skip ahead",
				fmt.Sprintf("requested step %d is beyond current step %d", target, current.CurrentStep))
		}
		return nil
	}

	return e.update(ctx, "navigate", id, Partial{Step: SetExplicit(target)}, guard)
}

// Delete removes the session. Deleting a missing session succeeds.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}

	_, err := withRetry(ctx, e.retry, "delete", func() (struct{}, error) {
		return struct{}{}, e.store.Remove(ctx, id)
	})
	if err != nil {
		return err
	}

	logger.Info("session deleted", map[string]any{"session_id": id})
	return nil
}

func (e *Engine) update(
	ctx context.Context,
	op string,
	id string,
	p Partial,
	guard func(session.Session) error,
) (*session.Session, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}

	return withRetry(ctx, e.retry, op, func() (*session.Session, error) {
		current, err := e.fetch(ctx, id)
		if err != nil {
			return nil, err
		}

		if guard != nil {
			if err := guard(*current); err != nil {
				return nil, err
			}
		}

		next := merge(*current, p, e.now().UTC())
		next.CurrentStep = p.Step.resolve(next)

		if !session.ValidStep(next.CurrentStep) {
			return nil, session.NewError(session.KindInvalidStepValue, "step out of range",
				fmt.Sprintf("current_step %d is outside [%d,%d]", next.CurrentStep, session.MinStep, session.MaxStep))
		}

		if err := e.store.Write(ctx, next, SessionTTL); err != nil {
			return nil, err
		}

		return &next, nil
	})
}

func (e *Engine) fetch(ctx context.Context, id string) (*session.Session, error) {
	sess, err := e.store.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, session.NewError(session.KindNotFound, "session does not exist")
	}
	return sess, nil
}

// merge overlays p onto current. Both timestamps move to now.
func merge(current session.Session, p Partial, now time.Time) session.Session {
	next := current

	if p.PersonalInfo != nil {
		info := *p.PersonalInfo
		next.PersonalInfo = &info
	}
	if p.PlanSelection != nil {
		plan := *p.PlanSelection
		next.PlanSelection = &plan
	}
	if p.Addons != nil {
		next.Addons = append(session.Addons{}, (*p.Addons)...)
	}

	next.CreatedAt = now
	next.UpdatedAt = now
	return next
}

func checkID(id string) error {
	if !session.ValidID(id) {
		return session.NewError(session.KindValidationFailed, "invalid session id",
			fmt.Sprintf("id must be %d characters of [A-Za-z0-9_-]", session.IDLength))
	}
	return nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

package session

import (
	"slices"
	"strings"
	"time"
)

const (
	StepPersonalInfo = 1
	StepPlan         = 2
	StepAddons       = 3
	StepSummary      = 4

	MinStep = StepPersonalInfo
	MaxStep = StepSummary
)

const (
	PlanArcade   = "arcade"
	PlanAdvanced = "advanced"
	PlanPro      = "pro"

	BillingMonthly = "monthly"
	BillingYearly  = "yearly"

	AddonCustomizableProfile = "customizable_profile"
	AddonLargerStorage       = "larger_storage"
	AddonOnlineServices      = "online_services"
)

// Session is the persisted wizard state. Optional sections are nil until
// the client supplies them.
type Session struct {
	ID            string         `json:"id" validate:"required,sessionid"`
	CurrentStep   int            `json:"current_step" validate:"min=1,max=4"`
	PersonalInfo  *PersonalInfo  `json:"personal_info"`
	PlanSelection *PlanSelection `json:"plan_selection"`
	Addons        Addons         `json:"addons" validate:"omitempty,dive,oneof=customizable_profile larger_storage online_services"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type PersonalInfo struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,phone"`
}

type PlanSelection struct {
	PlanID        string `json:"plan_id" validate:"required,oneof=arcade advanced pro"`
	BillingPeriod string `json:"billing_period" validate:"required,oneof=monthly yearly"`
}

// Addons is a set of addon ids. nil means the section was never supplied;
// an empty, non-nil value means the client chose no addons.
type Addons []string

// Normalize trims, deduplicates and sorts the ids. The result is never nil.
func (a Addons) Normalize() Addons {
	out := make(Addons, 0, len(a))
	for _, id := range a {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// New returns a fresh step-1 session.
func New(id string, now time.Time) Session {
	return Session{
		ID:          id,
		CurrentStep: StepPersonalInfo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// DeriveStep returns the highest step whose prerequisite sections are
// present and currently valid.
func (s Session) DeriveStep() int {
	step := StepPersonalInfo
	if s.PersonalInfo == nil || s.PersonalInfo.Validate() != nil {
		return step
	}
	step = StepPlan

	if s.PlanSelection == nil || s.PlanSelection.Validate() != nil {
		return step
	}
	step = StepAddons

	if s.Addons == nil || s.Addons.Validate() != nil {
		return step
	}
	return StepSummary
}

// ValidStep reports whether step is inside the wizard's range.
func ValidStep(step int) bool {
	return step >= MinStep && step <= MaxStep
}

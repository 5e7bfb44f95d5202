package wizard

import "github.com/Dantescur/msfback/internal/session"

// StepPolicy decides how an update sets current_step: derived from the
// sections that validate, or set to an explicit navigation target.
type StepPolicy struct {
	explicit bool
	target   int
}

// DeriveFromContent recomputes the step from the merged session.
func DeriveFromContent() StepPolicy {
	return StepPolicy{}
}

// SetExplicit uses step as-is, bypassing derivation.
func SetExplicit(step int) StepPolicy {
	return StepPolicy{explicit: true, target: step}
}

func (p StepPolicy) resolve(s session.Session) int {
	if p.explicit {
		return p.target
	}
	return s.DeriveStep()
}

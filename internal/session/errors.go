package session

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tags a failure so callers can branch without matching on messages.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidationFailed
	KindInvalidPlanOrAddon
	KindIncompleteSubmission
	KindStoreUnavailable
	KindPermissionDenied
	KindInvalidStepValue
	KindCannotSkipAhead
)

var kindNames = map[Kind]string{
	KindUnknown:              "unknown",
	KindNotFound:             "not_found",
	KindValidationFailed:     "validation_failed",
	KindInvalidPlanOrAddon:   "invalid_plan_or_addon",
	KindIncompleteSubmission: "incomplete_submission",
	KindStoreUnavailable:     "store_unavailable",
	KindPermissionDenied:     "permission_denied",
	KindInvalidStepValue:     "invalid_step_value",
	KindCannotSkipAhead:      "cannot_skip_ahead",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the typed failure raised by the store adapter and the wizard engine.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString("session: ")
	b.WriteString(e.Message)
	if len(e.Details) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Details, "; "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a typed failure with optional reasons.
func NewError(kind Kind, msg string, details ...string) *Error {
	return &Error{Kind: kind, Message: msg, Details: details}
}

// WrapError builds a typed failure around a lower-level cause.
func WrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// DetailsOf returns the reasons carried by err, if any.
func DetailsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}

var permissionMarkers = []string{
	"noperm",
	"noauth",
	"wrongpass",
	"permission",
	"unauthorized",
	"forbidden",
	"access denied",
}

// classify turns a raw KV failure into StoreUnavailable or, when the
// message points at an access problem, PermissionDenied.
func classify(op string, err error) *Error {
	msg := strings.ToLower(err.Error())
	for _, marker := range permissionMarkers {
		if strings.Contains(msg, marker) {
			return WrapError(KindPermissionDenied, op+": permission denied", err)
		}
	}
	return WrapError(KindStoreUnavailable, op+": store unavailable", err)
}

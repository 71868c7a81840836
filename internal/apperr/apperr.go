// Package apperr defines the error taxonomy surfaced to callers of the spot engine.
// Every error carries a Kind for routing and a stable machine-readable Reason.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindValidation Kind = "validation"
	KindProximity  Kind = "proximity_rejected"
	KindNotFound   Kind = "not_found"
	KindGuard      Kind = "guard_violation"
	KindTransient  Kind = "transient_store"
	KindInternal   Kind = "internal"
)

// Stable reason codes.
const (
	ReasonInvalidCoordinates = "invalid_coordinates"
	ReasonInvalidPagination  = "invalid_pagination"
	ReasonInvalidRadius      = "invalid_radius"
	ReasonInvalidStatus      = "invalid_status"
	ReasonMissingLocation    = "missing_location"
	ReasonInvalidRequest     = "invalid_request"
	ReasonTooFar             = "too_far"
	ReasonSpotNotFound       = "spot_not_found"
	ReasonUserNotFound       = "user_not_found"
	ReasonInsufficientCredit = "insufficient_credits"
	ReasonSpotUnavailable    = "spot_unavailable"
	ReasonInvalidTransition  = "invalid_transition"
	ReasonStoreUnavailable   = "store_unavailable"
	ReasonInternal           = "internal_error"
)

// Error is a classified error with a human message and an optional cause.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports malformed input.
func Validation(reason, message string) error {
	return &Error{Kind: KindValidation, Reason: reason, Message: message}
}

// Proximity reports a submission too far from the submitter.
func Proximity(message string) error {
	return &Error{Kind: KindProximity, Reason: ReasonTooFar, Message: message}
}

// NotFound reports an unknown spot or user.
func NotFound(reason, message string) error {
	return &Error{Kind: KindNotFound, Reason: reason, Message: message}
}

// Guard reports a failed transition precondition.
func Guard(reason, message string) error {
	return &Error{Kind: KindGuard, Reason: reason, Message: message}
}

// Transient wraps a store failure that may succeed on retry.
func Transient(err error) error {
	return &Error{Kind: KindTransient, Reason: ReasonStoreUnavailable, Message: "store temporarily unavailable", Err: err}
}

// Internal wraps an unexpected failure.
func Internal(err error) error {
	return &Error{Kind: KindInternal, Reason: ReasonInternal, Message: "internal error", Err: err}
}

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf returns the reason code of err, or ReasonInternal for unclassified errors.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ReasonInternal
}

// Is reports whether err is classified with the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Package perr implements the typed error taxonomy the planning core
// surfaces to callers (spec.md §7): InvalidAddress, NoFeasibleRoute,
// TwoSegmentUnreachable, DataUnavailable, Cancelled, and DeadlineExceeded.
// Modeled on the teacher's internal/domain/errors.AppError/BaseError split,
// adapted so Cancelled/DeadlineExceeded still satisfy errors.Is against the
// stdlib context sentinels.
package perr

import (
	"context"

	"github.com/pkg/errors"
)

// Code identifies one of the planner's error kinds.
type Code string

const (
	CodeInvalidAddress        Code = "INVALID_ADDRESS"
	CodeNoFeasibleRoute       Code = "NO_FEASIBLE_ROUTE"
	CodeTwoSegmentUnreachable Code = "TWO_SEGMENT_UNREACHABLE"
	CodeDataUnavailable       Code = "DATA_UNAVAILABLE"
	CodeCancelled             Code = "CANCELLED"
	CodeDeadlineExceeded      Code = "DEADLINE_EXCEEDED"
)

// PlannerError is the unified error type every planner-facing operation
// returns for an expected failure mode. I/O and decode failures while
// loading the planning data surface as DataUnavailable, with the
// github.com/pkg/errors-wrapped fault kept as the cause (see Unwrap).
type PlannerError struct {
	code    Code
	message string
	cause   error
}

// New builds a PlannerError with no underlying cause.
func New(code Code, message string) *PlannerError {
	return &PlannerError{code: code, message: message}
}

// Wrap builds a PlannerError annotating an underlying cause.
func Wrap(code Code, message string, cause error) *PlannerError {
	return &PlannerError{code: code, message: message, cause: cause}
}

// Error implements error.
func (e *PlannerError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}

	return e.message
}

// Code returns the error kind.
func (e *PlannerError) Code() Code {
	return e.code
}

// Message returns the user-facing message.
func (e *PlannerError) Message() string {
	return e.message
}

// Unwrap exposes the underlying cause, so errors.Is/errors.As can reach
// through a PlannerError to a wrapped context.Canceled/DeadlineExceeded or
// an infra error.
func (e *PlannerError) Unwrap() error {
	return e.cause
}

// InvalidAddress reports that geocoding failed, the nearest-node snap
// failed, or the endpoints lie in disjoint components under the strict
// disconnected-component policy.
func InvalidAddress(reason string) *PlannerError {
	return New(CodeInvalidAddress, "invalid address: "+reason)
}

// NoFeasibleRoute reports that the search completed with an empty result
// set and no infeasibility report usable by the two-segment planner.
func NoFeasibleRoute() *PlannerError {
	return New(CodeNoFeasibleRoute, "no feasible route preserves the threshold state of charge")
}

// TwoSegmentUnreachable reports that the two-segment planner was invoked but
// one of its two legs yielded no feasible path.
func TwoSegmentUnreachable(leg string) *PlannerError {
	return New(CodeTwoSegmentUnreachable, "two-segment planner found no feasible "+leg+" path")
}

// DataUnavailable reports that the road graph, station index, or
// charging-station catalog failed to load.
func DataUnavailable(cause error) *PlannerError {
	return Wrap(CodeDataUnavailable, "planning data unavailable", cause)
}

// Cancelled wraps context.Canceled so the planner's cancellation signal
// propagates as both a PlannerError and a stdlib-recognizable sentinel.
func Cancelled() *PlannerError {
	return Wrap(CodeCancelled, "planning cancelled", context.Canceled)
}

// DeadlineExceeded wraps context.DeadlineExceeded, same rationale as
// Cancelled.
func DeadlineExceeded() *PlannerError {
	return Wrap(CodeDeadlineExceeded, "planning deadline exceeded", context.DeadlineExceeded)
}

// FromContext inspects ctx.Err() and returns the matching PlannerError, or
// nil if ctx carries no error.
func FromContext(ctx context.Context) *PlannerError {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return Cancelled()
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return DeadlineExceeded()
	default:
		return nil
	}
}

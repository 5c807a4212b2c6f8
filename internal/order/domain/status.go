package domain

import (
	"errors"
	"fmt"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusRejected  OrderStatus = "rejected"
)

var ErrUnknownStatus = errors.New("unknown order status")

// statusRank orders the forward lifecycle. Rejected has no rank; it is a
// terminal branch reachable from any non-terminal state.
var statusRank = map[OrderStatus]int{
	StatusPending:   0,
	StatusConfirmed: 1,
	StatusPreparing: 2,
	StatusReady:     3,
	StatusCompleted: 4,
}

func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusRejected
}

func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// TransitionPlan is the outcome of validating a requested status change.
type TransitionPlan int

const (
	// TransitionNoop: the request is allowed but changes nothing
	// (same state, backward, or from a terminal state).
	TransitionNoop TransitionPlan = iota
	// TransitionApply: the transition is a real forward move (or a
	// rejection) and must be written to the remote store.
	TransitionApply
)

// PlanTransition validates a requested transition against the lifecycle
// table: forward moves along pending -> confirmed -> preparing -> ready ->
// completed are applied (skipping states is allowed), rejected is reachable
// from any non-terminal state, and everything else is a successful no-op.
func PlanTransition(current, next OrderStatus) (TransitionPlan, error) {
	if !current.Valid() {
		return TransitionNoop, fmt.Errorf("%w: %q", ErrUnknownStatus, current)
	}
	if !next.Valid() {
		return TransitionNoop, fmt.Errorf("%w: %q", ErrUnknownStatus, next)
	}
	if current.Terminal() || next == current {
		return TransitionNoop, nil
	}
	if next == StatusRejected {
		return TransitionApply, nil
	}
	if statusRank[next] > statusRank[current] {
		return TransitionApply, nil
	}
	return TransitionNoop, nil
}

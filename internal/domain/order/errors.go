package order

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound     = errors.New("order: not found")
	ErrIllegalTransition = errors.New("order: illegal transition")
	ErrAlreadyInState    = errors.New("order: already in target state")
	ErrReasonRequired    = errors.New("order: reason is required")
	ErrUnknownAction     = errors.New("order: unknown action")
	ErrNoRentals         = errors.New("order: at least one rental is required")
	ErrUserRequired      = errors.New("order: user id is required")
	ErrNotOwner          = errors.New("order: not owned by user")
)

// IllegalTransitionError names both ends of a rejected transition.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("order: illegal transition from %s to %s", e.From, e.To)
}

func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// AlreadyInStateError is returned for duplicate transition requests; no side
// effects are applied when it is returned.
type AlreadyInStateError struct {
	Status Status
}

func (e *AlreadyInStateError) Error() string {
	return fmt.Sprintf("order: already %s", e.Status)
}

func (e *AlreadyInStateError) Is(target error) bool {
	return target == ErrAlreadyInState
}

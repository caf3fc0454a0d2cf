package order

import (
	"strings"
	"time"

	"stagerent/internal/domain/shared/money"
)

// RefundWindow is how long after placement a cancellation is refunded in full.
const RefundWindow = 24 * time.Hour

type Cancellation struct {
	Reason       string
	Actor        string
	RefundAmount money.Money
	RefundRate   int
	// Fee is what the shop keeps.
	Fee         money.Money
	CancelledAt time.Time
}

type TransitionParams struct {
	Reason string
	Actor  string
	Now    time.Time
}

// Transition moves the order to target and returns the hold side effect the
// caller must apply in the same unit of work. A request for the current
// status returns *AlreadyInStateError and leaves the order untouched.
func (o *Order) Transition(target Status, params TransitionParams) (HoldEffect, error) {
	if !target.Valid() {
		return EffectNone, &IllegalTransitionError{From: o.Status, To: target}
	}
	if o.Status == target {
		return EffectNone, &AlreadyInStateError{Status: target}
	}
	if !o.Status.CanTransitionTo(target) {
		return EffectNone, &IllegalTransitionError{From: o.Status, To: target}
	}
	reason := strings.TrimSpace(params.Reason)
	if reasonRequired(target) && reason == "" {
		return EffectNone, ErrReasonRequired
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	from := o.Status
	switch target {
	case StatusCancelled:
		o.Cancellation = o.cancellation(reason, params.Actor, now)
	case StatusRejected:
		o.RejectionReason = reason
	}
	o.Status = target
	o.UpdatedAt = now
	o.History = append(o.History, StatusChange{From: from, To: target, Reason: reason, Actor: params.Actor, At: now})
	o.Record(StatusChanged{
		OrderID: o.ID,
		UserID:  o.UserID,
		From:    from,
		To:      target,
		Reason:  reason,
		Actor:   params.Actor,
		At:      now,
	})
	return EffectOf(target), nil
}

// Apply resolves an admin action into a transition.
func (o *Order) Apply(action Action, params TransitionParams) (HoldEffect, error) {
	target, ok := action.Target()
	if !ok {
		return EffectNone, ErrUnknownAction
	}
	return o.Transition(target, params)
}

// RefundRate is 100 within RefundWindow of placement and 50 afterwards.
func (o *Order) RefundRate(now time.Time) int {
	if now.Sub(o.CreatedAt) <= RefundWindow {
		return 100
	}
	return 50
}

func (o *Order) cancellation(reason, actor string, now time.Time) *Cancellation {
	rate := o.RefundRate(now)
	refund := o.TotalAmount.Percent(rate)
	fee, err := o.TotalAmount.Sub(refund)
	if err != nil {
		fee = money.Zero(o.TotalAmount.Currency)
	}
	return &Cancellation{
		Reason:       reason,
		Actor:        actor,
		RefundAmount: refund,
		RefundRate:   rate,
		Fee:          fee,
		CancelledAt:  now,
	}
}

// UserCancellable reports whether the customer may still cancel on their own.
// Admins can cancel until dispatch.
func UserCancellable(status Status) bool {
	switch status {
	case StatusRequested, StatusHoldPendingPay, StatusConfirmed:
		return true
	}
	return false
}

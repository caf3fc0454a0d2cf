package order

import "sort"

// Action is the name the admin console uses to drive a transition.
type Action string

const (
	ActionHold           Action = "hold"
	ActionApprove        Action = "approve"
	ActionConfirmPayment Action = "confirm_payment"
	ActionPrepare        Action = "prepare"
	ActionDispatch       Action = "dispatch"
	ActionDeliver        Action = "deliver"
	ActionStartUse       Action = "start_use"
	ActionCollect        Action = "collect"
	ActionInspect        Action = "inspect"
	ActionPassInspection Action = "pass_inspection"
	ActionFailInspection Action = "fail_inspection"
	ActionComplete       Action = "complete"
	ActionReject         Action = "reject"
	ActionCancel         Action = "cancel"
	ActionExpire         Action = "expire"
)

var actionTargets = map[Action]Status{
	ActionHold:           StatusHoldPendingPay,
	ActionApprove:        StatusConfirmed,
	ActionConfirmPayment: StatusConfirmed,
	ActionPrepare:        StatusPreparing,
	ActionDispatch:       StatusDispatched,
	ActionDeliver:        StatusDelivered,
	ActionStartUse:       StatusInUse,
	ActionCollect:        StatusReturned,
	ActionInspect:        StatusInspecting,
	ActionPassInspection: StatusInspectionPassed,
	ActionFailInspection: StatusInspectionFailed,
	ActionComplete:       StatusCompleted,
	ActionReject:         StatusRejected,
	ActionCancel:         StatusCancelled,
	ActionExpire:         StatusExpired,
}

func (a Action) Target() (Status, bool) {
	s, ok := actionTargets[a]
	return s, ok
}

// RequiresReason reports whether the action must carry a reason string.
func (a Action) RequiresReason() bool {
	target, ok := a.Target()
	return ok && reasonRequired(target)
}

// AllowedActions lists, sorted by name, the actions legal from status.
func AllowedActions(status Status) []Action {
	if status.Terminal() {
		return nil
	}
	out := make([]Action, 0, 4)
	for action, target := range actionTargets {
		if action == ActionExpire {
			continue
		}
		if status.CanTransitionTo(target) {
			out = append(out, action)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func reasonRequired(target Status) bool {
	return target == StatusCancelled || target == StatusRejected
}

package order

// Status is the fulfilment status of an order. It is the single source of
// truth for which hold side effects have been applied.
type Status string

const (
	StatusRequested        Status = "requested"
	StatusHoldPendingPay   Status = "hold_pendingpay"
	StatusConfirmed        Status = "confirmed"
	StatusPreparing        Status = "preparing"
	StatusDispatched       Status = "dispatched"
	StatusDelivered        Status = "delivered"
	StatusInUse            Status = "in_use"
	StatusReturned         Status = "returned"
	StatusInspecting       Status = "inspecting"
	StatusInspectionPassed Status = "inspection_passed"
	StatusInspectionFailed Status = "inspection_failed"
	StatusCompleted        Status = "completed"
	StatusRejected         Status = "rejected"
	StatusCancelled        Status = "cancelled"
	StatusExpired          Status = "expired"
)

var transitions = map[Status][]Status{
	StatusRequested:        {StatusHoldPendingPay, StatusConfirmed, StatusRejected, StatusCancelled, StatusExpired},
	StatusHoldPendingPay:   {StatusConfirmed, StatusRejected, StatusCancelled, StatusExpired},
	StatusConfirmed:        {StatusPreparing, StatusCancelled},
	StatusPreparing:        {StatusDispatched, StatusCancelled},
	StatusDispatched:       {StatusDelivered, StatusInUse},
	StatusDelivered:        {StatusInUse, StatusReturned},
	StatusInUse:            {StatusReturned},
	StatusReturned:         {StatusInspecting, StatusCompleted},
	StatusInspecting:       {StatusInspectionPassed, StatusInspectionFailed},
	StatusInspectionPassed: {StatusCompleted},
	StatusInspectionFailed: {StatusCompleted},
	StatusCompleted:        {},
	StatusRejected:         {},
	StatusCancelled:        {},
	StatusExpired:          {},
}

// ParseStatus accepts the British and American spelling of cancelled.
func ParseStatus(value string) (Status, bool) {
	if value == "canceled" {
		return StatusCancelled, true
	}
	s := Status(value)
	_, ok := transitions[s]
	return s, ok
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// AwaitingPayment covers statuses that expire once the deposit deadline passes.
func (s Status) AwaitingPayment() bool {
	return s == StatusRequested || s == StatusHoldPendingPay
}

// Statuses lists every known status in lifecycle order.
func Statuses() []Status {
	return []Status{
		StatusRequested, StatusHoldPendingPay, StatusConfirmed, StatusPreparing,
		StatusDispatched, StatusDelivered, StatusInUse, StatusReturned,
		StatusInspecting, StatusInspectionPassed, StatusInspectionFailed,
		StatusCompleted, StatusRejected, StatusCancelled, StatusExpired,
	}
}

// HoldEffect is the registry side effect a transition demands.
type HoldEffect int

const (
	EffectNone HoldEffect = iota
	EffectEnsureHolds
	EffectReleaseHolds
)

func (e HoldEffect) String() string {
	switch e {
	case EffectEnsureHolds:
		return "ensure_holds"
	case EffectReleaseHolds:
		return "release_holds"
	default:
		return "none"
	}
}

// EffectOf returns what entering status means for the order's holds.
// Completed orders keep their holds so history is never double-booked.
func EffectOf(status Status) HoldEffect {
	switch status {
	case StatusHoldPendingPay, StatusConfirmed:
		return EffectEnsureHolds
	case StatusCancelled, StatusRejected, StatusExpired:
		return EffectReleaseHolds
	default:
		return EffectNone
	}
}

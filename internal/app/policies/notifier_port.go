package policies

import "context"

// Notifier delivers a templated message to a user. Delivery channels live
// outside this service.
type Notifier interface {
	Send(ctx context.Context, to string, template string, data any) error
}

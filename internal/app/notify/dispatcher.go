// Package notify fans outbox records out to in-process subscribers. It is the
// delivery path when no broker is configured.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"stagerent/internal/app/outbox"
)

type Subscriber func(ctx context.Context, record outbox.EventRecord) error

type Dispatcher struct {
	mu     sync.RWMutex
	subs   map[string][]Subscriber
	logger *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{subs: make(map[string][]Subscriber), logger: logger}
}

// Subscribe registers fn for events named name.
func (d *Dispatcher) Subscribe(name string, fn Subscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs[name] = append(d.subs[name], fn)
}

// Deliver calls every subscriber for the record's name. A failing subscriber
// does not stop the others; the joined error is returned.
func (d *Dispatcher) Deliver(ctx context.Context, record outbox.EventRecord) error {
	d.mu.RLock()
	subs := append([]Subscriber(nil), d.subs[record.Name]...)
	d.mu.RUnlock()

	var errs []error
	for _, fn := range subs {
		if err := fn(ctx, record); err != nil {
			d.logger.Warn("event subscriber failed", "event", record.Name, "event_id", record.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ outbox.Sink = (*Dispatcher)(nil)

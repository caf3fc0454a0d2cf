package memory

import (
	"context"
	"errors"
	"sync"

	appoutbox "stagerent/internal/app/outbox"
	"stagerent/internal/app/uow"
)

type stagedRecord = appoutbox.EventRecord

// Outbox keeps records staged on their unit until commit, then hands them to
// Sink on Flush. Rolled back units never reach the sink.
type Outbox struct {
	Sink appoutbox.Sink

	mu    sync.Mutex
	ready []appoutbox.EventRecord
	sent  int
}

func NewOutbox(sink appoutbox.Sink) *Outbox {
	return &Outbox{Sink: sink}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok {
			mu.stage(record)
			return nil
		}
	}
	o.enqueue([]appoutbox.EventRecord{record})
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	batch := o.ready
	o.ready = nil
	o.mu.Unlock()

	if o.Sink == nil {
		o.countSent(len(batch))
		return nil
	}
	var errs []error
	for _, rec := range batch {
		if err := o.Sink.Deliver(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	o.countSent(len(batch))
	return errors.Join(errs...)
}

// Pending reports records committed but not yet flushed.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.ready)
}

func (o *Outbox) Sent() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sent
}

func (o *Outbox) enqueue(records []appoutbox.EventRecord) {
	if len(records) == 0 {
		return
	}
	o.mu.Lock()
	o.ready = append(o.ready, records...)
	o.mu.Unlock()
}

func (o *Outbox) countSent(n int) {
	o.mu.Lock()
	o.sent += n
	o.mu.Unlock()
}

var _ appoutbox.Outbox = (*Outbox)(nil)

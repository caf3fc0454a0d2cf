package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appoutbox "stagerent/internal/app/outbox"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Source yields committed records one at a time. *Store implements it.
type Source interface {
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

// Worker relays claimed records to Producer as CloudEvents, or to Sink
// unchanged when no broker is configured.
type Worker struct {
	Store       Source
	Producer    Producer
	Sink        appoutbox.Sink
	Logger      *slog.Logger
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || (w.Producer == nil && w.Sink == nil) {
		return ErrWorkerNotConfigured
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.drain(ctx); err != nil && ctx.Err() == nil {
				w.logger().Error("outbox relay failed", slog.Any("err", err))
			}
		}
	}
}

// drain relays records until none are due.
func (w *Worker) drain(ctx context.Context) error {
	for ctx.Err() == nil {
		relayed, err := w.ProcessOnce(ctx)
		if err != nil || !relayed {
			return err
		}
	}
	return nil
}

// ProcessOnce relays at most one record and reports whether one was found.
func (w *Worker) ProcessOnce(ctx context.Context) (bool, error) {
	doc, err := w.Store.Claim(ctx, w.ID)
	if err != nil || doc == nil {
		return false, err
	}
	if err := w.deliver(ctx, doc); err != nil {
		w.logger().Warn("outbox delivery failed",
			slog.String("event_id", doc.ID),
			slog.String("event", doc.Name),
			slog.Int("attempts", doc.Attempts+1),
			slog.Any("err", err))
		return true, w.Store.MarkFailed(ctx, doc.ID, w.nextRetry(doc.Attempts), err.Error())
	}
	return true, w.Store.MarkSent(ctx, doc.ID)
}

func (w *Worker) deliver(ctx context.Context, doc *EventDocument) error {
	rec := doc.Record()
	if w.Producer == nil {
		return w.Sink.Deliver(ctx, rec)
	}
	payload, headers, err := Encode(rec, w.Source)
	if err != nil {
		return err
	}
	return w.Producer.Publish(ctx, TopicFor(w.TopicPrefix, rec.Name), rec.Aggregate, payload, headers)
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	if attempts < len(w.Backoff) {
		return time.Now().Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return time.Now().Add(w.Backoff[len(w.Backoff)-1])
	}
	return time.Now().Add(5 * time.Second)
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

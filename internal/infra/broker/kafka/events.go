package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	appoutbox "stagerent/internal/app/outbox"
	infraoutbox "stagerent/internal/infra/outbox"
)

// Deduper remembers handled event ids. Seen records id and reports whether
// it was already there.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// EventHandler decodes CloudEvents published by the outbox worker and hands
// each record to Sink once.
type EventHandler struct {
	Sink   appoutbox.Sink
	Inbox  Deduper
	Logger *slog.Logger
}

func (h EventHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	rec, err := infraoutbox.Decode(msg.Value)
	if err != nil {
		// Poison messages are skipped; redelivery would not fix them.
		h.logger().Error("dropping undecodable event",
			slog.String("topic", msg.Topic),
			slog.Int64("offset", msg.Offset),
			slog.Any("err", err))
		return nil
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("inbox: %w", err)
		}
		if seen {
			h.logger().Debug("duplicate event skipped", slog.String("event_id", rec.ID))
			return nil
		}
	}
	if err := h.Sink.Deliver(ctx, rec); err != nil {
		if h.Inbox != nil {
			if ferr := h.Inbox.Forget(ctx, rec.ID); ferr != nil {
				err = errors.Join(err, ferr)
			}
		}
		return err
	}
	return nil
}

func (h EventHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

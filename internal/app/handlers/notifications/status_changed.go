// Package notifications turns order events into customer notifications. It
// runs after commit, either in-process or behind the Kafka consumer.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"stagerent/internal/app/outbox"
	"stagerent/internal/app/policies"
	domainorder "stagerent/internal/domain/order"
)

const (
	StatusChangedEvent = "order.status_changed"
	PlacedEvent        = "order.placed"
)

// Policy maps order events to notifier templates.
type Policy struct {
	Notifier policies.Notifier
	Logger   *slog.Logger
}

type StatusChangedData struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Reason  string `json:"reason,omitempty"`
}

type PlacedData struct {
	OrderID  string `json:"order_id"`
	Rentals  int    `json:"rentals"`
	Total    int64  `json:"total"`
	Currency string `json:"currency"`
}

func (p *Policy) Handle(ctx context.Context, record outbox.EventRecord) error {
	switch record.Name {
	case StatusChangedEvent:
		var ev domainorder.StatusChanged
		if err := json.Unmarshal(record.Payload, &ev); err != nil {
			return fmt.Errorf("notifications: decode %s: %w", record.Name, err)
		}
		if ev.UserID == "" {
			return nil
		}
		return p.send(ctx, ev.UserID, "order."+string(ev.To), StatusChangedData{
			OrderID: string(ev.OrderID),
			From:    string(ev.From),
			To:      string(ev.To),
			Reason:  ev.Reason,
		})
	case PlacedEvent:
		var ev domainorder.Placed
		if err := json.Unmarshal(record.Payload, &ev); err != nil {
			return fmt.Errorf("notifications: decode %s: %w", record.Name, err)
		}
		return p.send(ctx, ev.UserID, "order.placed", PlacedData{
			OrderID:  string(ev.OrderID),
			Rentals:  ev.Rentals,
			Total:    ev.Total.Amount,
			Currency: ev.Total.Currency,
		})
	}
	return nil
}

// Events lists the names Handle reacts to.
func (p *Policy) Events() []string {
	return []string{StatusChangedEvent, PlacedEvent}
}

func (p *Policy) send(ctx context.Context, to, template string, data any) error {
	if p.Notifier == nil {
		return nil
	}
	if err := p.Notifier.Send(ctx, to, template, data); err != nil {
		return err
	}
	if p.Logger != nil {
		p.Logger.Debug("notification sent", "to", to, "template", template)
	}
	return nil
}

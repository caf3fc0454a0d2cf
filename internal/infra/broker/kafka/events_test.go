package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"

	appoutbox "stagerent/internal/app/outbox"
	infraoutbox "stagerent/internal/infra/outbox"
)

type memInbox struct{ ids map[string]bool }

func (m *memInbox) Seen(_ context.Context, id string) (bool, error) {
	if m.ids[id] {
		return true, nil
	}
	m.ids[id] = true
	return false, nil
}

func (m *memInbox) Forget(_ context.Context, id string) error {
	delete(m.ids, id)
	return nil
}

type countingSink struct {
	calls int
	err   error
}

func (s *countingSink) Deliver(context.Context, appoutbox.EventRecord) error {
	s.calls++
	return s.err
}

func envelope(t *testing.T) *sarama.ConsumerMessage {
	t.Helper()
	payload, _, err := infraoutbox.Encode(appoutbox.EventRecord{
		ID: "evt-1", Name: "order.placed", Payload: []byte(`{"OrderID":"o-1"}`),
		OccurredAt: time.Now().UTC(), Aggregate: "o-1",
	}, "")
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: "order.events.v1", Value: payload}
}

func TestEventHandlerDeliversOnce(t *testing.T) {
	sink := &countingSink{}
	h := EventHandler{Sink: sink, Inbox: &memInbox{ids: map[string]bool{}}}
	msg := envelope(t)

	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), msg))
	require.Equal(t, 1, sink.calls)
}

func TestEventHandlerForgetsFailedDelivery(t *testing.T) {
	inbox := &memInbox{ids: map[string]bool{}}
	sink := &countingSink{err: errors.New("smtp down")}
	h := EventHandler{Sink: sink, Inbox: inbox}

	require.Error(t, h.Handle(context.Background(), envelope(t)))
	require.False(t, inbox.ids["evt-1"])

	sink.err = nil
	require.NoError(t, h.Handle(context.Background(), envelope(t)))
	require.Equal(t, 2, sink.calls)
}

func TestEventHandlerSkipsPoisonMessage(t *testing.T) {
	sink := &countingSink{}
	h := EventHandler{Sink: sink}
	require.NoError(t, h.Handle(context.Background(), &sarama.ConsumerMessage{Value: []byte("not json")}))
	require.Zero(t, sink.calls)
}

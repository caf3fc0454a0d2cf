package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "stagerent/internal/app/outbox"
)

type fakeSource struct {
	queue  []*EventDocument
	sent   []string
	failed map[string]string
}

func (f *fakeSource) Claim(context.Context, string) (*EventDocument, error) {
	if len(f.queue) == 0 {
		return nil, nil
	}
	doc := f.queue[0]
	f.queue = f.queue[1:]
	return doc, nil
}

func (f *fakeSource) MarkSent(_ context.Context, id string) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeSource) MarkFailed(_ context.Context, id string, _ time.Time, msg string) error {
	if f.failed == nil {
		f.failed = map[string]string{}
	}
	f.failed[id] = msg
	return nil
}

type published struct {
	topic, key string
	payload    []byte
	headers    map[string]string
}

type fakeProducer struct {
	out []published
	err error
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.out = append(p.out, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func statusChangedDoc() *EventDocument {
	return &EventDocument{
		ID:         "evt-1",
		Name:       "order.status_changed",
		Payload:    []byte(`{"OrderID":"o-1","To":"confirmed"}`),
		OccurredAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		Aggregate:  "o-1",
		Headers:    map[string]string{"traceparent": "00-abc-def-01"},
	}
}

func TestWorkerPublishesCloudEvent(t *testing.T) {
	src := &fakeSource{queue: []*EventDocument{statusChangedDoc()}}
	prod := &fakeProducer{}
	w := &Worker{Store: src, Producer: prod, TopicPrefix: "dev."}

	relayed, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	require.True(t, relayed)
	require.Equal(t, []string{"evt-1"}, src.sent)
	require.Len(t, prod.out, 1)

	msg := prod.out[0]
	assert.Equal(t, "dev.order.events.v1", msg.topic)
	assert.Equal(t, "o-1", msg.key)
	assert.Equal(t, ContentType, msg.headers["content-type"])

	rec, err := Decode(msg.payload)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", rec.ID)
	assert.Equal(t, "order.status_changed", rec.Name)
	assert.Equal(t, "o-1", rec.Aggregate)
	assert.Equal(t, "00-abc-def-01", rec.Headers["traceparent"])
	assert.JSONEq(t, `{"OrderID":"o-1","To":"confirmed"}`, string(rec.Payload))

	var env map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &env))
	assert.Equal(t, "order.status_changed.v1", env["type"])
	assert.Equal(t, DefaultSource, env["source"])
}

func TestWorkerMarksFailedDelivery(t *testing.T) {
	src := &fakeSource{queue: []*EventDocument{statusChangedDoc()}}
	w := &Worker{Store: src, Producer: &fakeProducer{err: errors.New("broker down")}}

	relayed, err := w.ProcessOnce(context.Background())
	require.NoError(t, err)
	require.True(t, relayed)
	require.Empty(t, src.sent)
	require.Equal(t, "broker down", src.failed["evt-1"])
}

type sinkFunc func(context.Context, appoutbox.EventRecord) error

func (f sinkFunc) Deliver(ctx context.Context, rec appoutbox.EventRecord) error { return f(ctx, rec) }

func TestWorkerFallsBackToSink(t *testing.T) {
	src := &fakeSource{queue: []*EventDocument{statusChangedDoc()}}
	var got []appoutbox.EventRecord
	w := &Worker{Store: src, Sink: sinkFunc(func(_ context.Context, rec appoutbox.EventRecord) error {
		got = append(got, rec)
		return nil
	})}

	require.NoError(t, w.drain(context.Background()))
	require.Len(t, got, 1)
	require.Equal(t, "order.status_changed", got[0].Name)
	require.Equal(t, []string{"evt-1"}, src.sent)
}

func TestDecodeRejectsPlainJSON(t *testing.T) {
	_, err := Decode([]byte(`{"hello":"world"}`))
	require.ErrorIs(t, err, ErrNotCloudEvent)
}

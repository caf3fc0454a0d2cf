package outbox

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "stagerent/internal/app/outbox"
)

const (
	ContentType   = "application/cloudevents+json"
	DefaultSource = "app://stagerent"
	typeSuffix    = ".v1"
)

// Envelope is the structured CloudEvents form published to the broker.
type Envelope struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	TraceParent     string          `json:"traceparent,omitempty"`
	Data            json.RawMessage `json:"data"`
}

var ErrNotCloudEvent = errors.New("outbox: payload is not a cloudevent")

// Encode wraps rec in an envelope. The envelope id is the record id so that
// consumers can deduplicate redeliveries.
func Encode(rec appoutbox.EventRecord, source string) ([]byte, map[string]string, error) {
	if !json.Valid(rec.Payload) {
		return nil, nil, errors.New("outbox: record payload is not json")
	}
	if source == "" {
		source = DefaultSource
	}
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	env := Envelope{
		SpecVersion:     "1.0",
		ID:              id,
		Type:            rec.Name + typeSuffix,
		Source:          source,
		Subject:         rec.Aggregate,
		Time:            rec.OccurredAt,
		DataContentType: "application/json",
		TraceParent:     rec.Headers["traceparent"],
		Data:            json.RawMessage(rec.Payload),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{"content-type": ContentType}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// Decode turns a published envelope back into the record it came from.
func Decode(payload []byte) (appoutbox.EventRecord, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return appoutbox.EventRecord{}, err
	}
	if env.SpecVersion == "" || env.Type == "" || env.ID == "" {
		return appoutbox.EventRecord{}, ErrNotCloudEvent
	}
	headers := map[string]string{}
	if env.TraceParent != "" {
		headers["traceparent"] = env.TraceParent
	}
	return appoutbox.EventRecord{
		ID:         env.ID,
		Name:       strings.TrimSuffix(env.Type, typeSuffix),
		Payload:    []byte(env.Data),
		OccurredAt: env.Time,
		Aggregate:  env.Subject,
		Headers:    headers,
	}, nil
}

// TopicFor maps "order.status_changed" to "<prefix>order.events.v1".
func TopicFor(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events.v1"
}

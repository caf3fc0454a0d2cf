// Package notifier holds the delivery side of customer notifications.
// Real channels (mail, SMS) are operated elsewhere; LogNotifier records what
// would be sent.
package notifier

import (
	"context"
	"encoding/json"
	"log/slog"

	"stagerent/internal/app/policies"
	"stagerent/internal/infra/obs"
)

type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to, template string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification",
		slog.String("to", to),
		slog.String("template", template),
		slog.String("data", string(payload)),
		slog.String("request_id", obs.RequestIDFromContext(ctx)))
	return nil
}

var _ policies.Notifier = LogNotifier{}

package monitoring

import (
	"context"

	"github.com/rs/zerolog"
)

// ZerologSink writes events as structured log lines. Log aggregation
// alerting rules key off the event_type and severity fields.
type ZerologSink struct {
	logger zerolog.Logger
}

func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger}
}

func (s *ZerologSink) Emit(_ context.Context, event Event) {
	var logEvent *zerolog.Event
	switch event.Severity {
	case SeverityCritical:
		logEvent = s.logger.Error()
	case SeverityWarning:
		logEvent = s.logger.Warn()
	default:
		logEvent = s.logger.Info()
	}

	logEvent = logEvent.
		Str("event_type", event.Type).
		Str("severity", event.Severity)

	if event.OrderID != "" {
		logEvent = logEvent.Str("order_id", event.OrderID)
	}
	if event.UserID != "" {
		logEvent = logEvent.Str("user_id", event.UserID)
	}
	if len(event.Details) > 0 {
		logEvent = logEvent.Fields(event.Details)
	}

	logEvent.Msg(event.Message)
}

package eventbus

import (
	"context"

	"github.com/bnema/zerowrap"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"

	"github.com/bnema/spaceport/internal/domain"
)

// Journal writes every lifecycle event to the structured log and, when an
// OTel LoggerProvider is registered, exports it as a log record.
type Journal struct {
	log    zerowrap.Logger
	logger otellog.Logger
}

// NewJournal creates a journal bound to the global OTel logger provider.
func NewJournal(log zerowrap.Logger) *Journal {
	return &Journal{
		log:    log,
		logger: global.Logger("spaceport"),
	}
}

// CanHandle accepts every event type.
func (j *Journal) CanHandle(domain.EventType) bool {
	return true
}

// Handle records the event.
func (j *Journal) Handle(ctx context.Context, event domain.Event) error {
	var rec otellog.Record
	rec.SetTimestamp(event.Timestamp)
	rec.SetEventName(string(event.Type))
	rec.SetSeverity(otellog.SeverityInfo)
	rec.AddAttributes(otellog.String("event_id", event.ID))

	entry := j.log.Info()
	switch p := event.Data.(type) {
	case domain.ProcessEventPayload:
		if event.Type == domain.EventProcessExited && p.ExitCode != 0 {
			entry = j.log.Warn()
			rec.SetSeverity(otellog.SeverityWarn)
		}
		entry = entry.
			Str("process", p.Name).
			Int("pid", p.PID).
			Int("exit_code", p.ExitCode).
			Int("restarts", p.Restarts).
			Str("reason", p.Reason)
		rec.AddAttributes(
			otellog.String("process", p.Name),
			otellog.Int("pid", p.PID),
			otellog.Int("exit_code", p.ExitCode),
			otellog.Int("restarts", p.Restarts),
		)
	case domain.StateEventPayload:
		entry = entry.Str("from", string(p.From)).Str("to", string(p.To))
		rec.AddAttributes(otellog.String("from", string(p.From)), otellog.String("to", string(p.To)))
	case domain.PreviewChangedPayload:
		entry = entry.Str("dir", p.Dir).Strs("files", p.Files)
		rec.AddAttributes(otellog.String("dir", p.Dir), otellog.Int("files", len(p.Files)))
	}

	rec.SetBody(otellog.StringValue(string(event.Type)))
	j.logger.Emit(ctx, rec)

	entry.
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "eventbus").
		Str(zerowrap.FieldEvent, string(event.Type)).
		Str("event_id", event.ID).
		Msg("lifecycle event")
	return nil
}

package notify

import (
	"context"

	"github.com/rs/zerolog"

	"club-registration/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier writes notifications to the structured log. It stands in
// until an email provider is wired; the Dispatcher contract is identical.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	compLog := logger.With().Str("component", "LogNotifier").Logger()
	return &LogNotifier{log: &compLog}
}

func (n *LogNotifier) Send(ctx context.Context, msg adapter.Notification) error {
	n.log.Info().
		Str("user_id", msg.UserID).
		Str("email", msg.Email).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("notification")
	return nil
}

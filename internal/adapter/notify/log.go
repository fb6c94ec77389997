package notify

import (
	"context"

	"account-transfer-service/internal/core/domain"

	"github.com/rs/zerolog"
)

// LogNotifier records notifications in the service log. It is the fallback
// when no notification gateway is configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyFundsLow(_ context.Context, address string) error {
	n.emit(domain.NotificationFundsLow, address)
	return nil
}

func (n *LogNotifier) NotifyApproachingPayInLimit(_ context.Context, address string) error {
	n.emit(domain.NotificationApproachingPayInLimit, address)
	return nil
}

func (n *LogNotifier) emit(kind domain.NotificationKind, address string) {
	n.log.Info().
		Str("kind", string(kind)).
		Str("address", address).
		Msg("notification")
}

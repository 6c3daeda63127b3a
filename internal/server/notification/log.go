package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/messagely/messagely/internal/logging"
)

// LogGateway is the development fallback used when no SMS credentials are
// configured. It records that a delivery would have happened without logging
// the message body, which carries the plaintext reset code.
type LogGateway struct {
	logger logging.Logger
}

func NewLogGateway(l logging.Logger) *LogGateway {
	return &LogGateway{logger: l.With("module", "notification")}
}

func (g *LogGateway) Send(ctx context.Context, phoneNumber, text string) (string, error) {
	id := uuid.NewString()
	g.logger.Info(ctx, "sms delivery skipped, no provider configured",
		"to", phoneNumber, "delivery_id", id, "chars", len(text))
	return id, nil
}

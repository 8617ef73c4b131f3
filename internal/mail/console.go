package mail

import (
	"context"

	"github.com/iamOgunyinka/sproot/pkg/observability"
)

// ConsoleMailer logs messages instead of delivering them. Used when no
// SendGrid API key is configured.
type ConsoleMailer struct{}

func NewConsoleMailer() *ConsoleMailer {
	return &ConsoleMailer{}
}

func (m *ConsoleMailer) Send(ctx context.Context, msg Message) error {
	observability.Logger().Info("console mailer: message not delivered",
		"component", "mail",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.TextBody,
	)
	return nil
}

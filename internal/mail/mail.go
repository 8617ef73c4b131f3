// Package mail sends transactional email. Production uses the SendGrid
// transport; development falls back to a console transport that only
// logs the message.
package mail

import "context"

// Message is one outbound transactional email.
type Message struct {
	To       string
	ToName   string
	Subject  string
	TextBody string
}

// Mailer delivers a message. Implementations must treat every delivery
// failure as retryable from the caller's point of view.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

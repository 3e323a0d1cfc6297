package mailer

import "context"

type Message struct {
	To             string
	Subject        string
	HTML           string
	IdempotencyKey string
}

// Sender delivers one outbound email. The production implementation talks to
// the provider's HTTP API; tests substitute a fake.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

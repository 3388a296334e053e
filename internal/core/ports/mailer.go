package ports

import "context"

// Mail is an outbound message handed to the mail collaborator.
type Mail struct {
	To      string
	Subject string
	Body    string
}

// Mailer abstracts outbound mail delivery. Failures are logged, never
// surfaced to the requester (avoids leaking whether an address exists).
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

package notifications

import (
	"context"
	"errors"
)

var ErrNoRecipient = errors.New("notification has no recipient")

// Message is a plain-text email to a single recipient.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier delivers messages to users.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

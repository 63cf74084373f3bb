// Package messaging is the broker transport: at-least-once consumer groups
// over Redis Streams, with bounded redelivery and a dead-letter stream per
// channel.
package messaging

import (
	"context"
	"errors"
)

// Publisher emits one outbound message. Key is the partitioning key of the
// entity the message describes.
type Publisher interface {
	Publish(ctx context.Context, channel, key string, payload any) error
}

// Handler processes one inbound message body. A nil return acknowledges the
// message; an error leaves it pending for redelivery unless it is Permanent.
type Handler func(ctx context.Context, channel string, body []byte) error

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as one that redelivery can never fix. The transport
// dead-letters such messages at once.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, was marked Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// DeadLetterChannel names the stream that parks messages from channel.
func DeadLetterChannel(channel string) string { return channel + ".dlq" }

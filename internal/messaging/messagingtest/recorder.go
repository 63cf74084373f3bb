// Package messagingtest provides an in-memory Publisher for tests.
package messagingtest

import (
	"context"
	"encoding/json"
	"sync"

	"jobmate/profile-service/internal/envelope"
)

// Message is one recorded publish.
type Message struct {
	Channel string
	Key     string
	Payload any
}

// Recorder captures every Publish call. Set Err to make publishes fail, or
// FailOn to fail only on the named channels.
type Recorder struct {
	mu       sync.Mutex
	messages []Message

	Err    error
	FailOn map[string]bool
}

func (r *Recorder) Publish(_ context.Context, channel, key string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil && (len(r.FailOn) == 0 || r.FailOn[channel]) {
		return r.Err
	}
	r.messages = append(r.messages, Message{Channel: channel, Key: key, Payload: payload})
	return nil
}

// Messages returns a copy of everything published so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// On returns the messages published to channel, in order.
func (r *Recorder) On(channel string) []Message {
	var out []Message
	for _, m := range r.Messages() {
		if m.Channel == channel {
			out = append(out, m)
		}
	}
	return out
}

// Reset forgets recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.messages = nil
	r.mu.Unlock()
}

// Decode re-encodes m.Payload as JSON and decodes it into v, so tests
// observe the wire shape.
func Decode(m Message, v any) error {
	b, err := envelope.Encode(m.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

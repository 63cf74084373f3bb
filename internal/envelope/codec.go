package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// DecodeError reports a message that could not be turned into a payload.
type DecodeError struct {
	Channel string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode message on %q: %v", e.Channel, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var (
	errEmptyBody      = errors.New("empty message body")
	errUnknownChannel = errors.New("no event kind bound to channel")
)

// Codec decodes inbound messages using the channel-to-kind table.
type Codec struct {
	kinds map[string]Kind
}

// NewCodec binds a codec to the inbound half of ch.
func NewCodec(ch Channels) *Codec {
	return &Codec{kinds: ch.Inbound()}
}

// Decode returns the kind bound to channel and a pointer to its typed
// payload. Unknown JSON fields are ignored.
func (c *Codec) Decode(channel string, raw []byte) (Kind, any, error) {
	kind, ok := c.kinds[channel]
	if !ok {
		return "", nil, &DecodeError{Channel: channel, Err: errUnknownChannel}
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return kind, nil, &DecodeError{Channel: channel, Err: errEmptyBody}
	}

	var v any
	switch kind {
	case KindAccountCreated:
		v = new(AccountCreated)
	case KindAccountDeleted:
		v = new(AccountDeleted)
	case KindPaymentCompleted:
		v = new(PaymentCompleted)
	case KindSubscriptionCancelled:
		v = new(SubscriptionCancelled)
	case KindSubscriptionNotification:
		v = new(SubscriptionNotification)
	case KindMediaUploadCompleted:
		v = new(MediaUploadCompleted)
	case KindAvatarUploadCompleted:
		v = new(AvatarUploadCompleted)
	case KindPremiumStatusRequest:
		v = new(PremiumStatusRequest)
	case KindCompanyNameRequest:
		v = new(CompanyNameRequest)
	default:
		return kind, nil, &DecodeError{Channel: channel, Err: fmt.Errorf("unhandled kind %s", kind)}
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return kind, nil, &DecodeError{Channel: channel, Err: err}
	}
	return kind, v, nil
}

// Encode serialises an outbound payload. HTML characters are left unescaped
// so echoed tokens keep their bytes.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

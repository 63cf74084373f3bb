package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"jobmate/profile-service/internal/db"
	"jobmate/profile-service/internal/envelope"
)

const (
	fieldKey     = "key"
	fieldPayload = "payload"

	readBlock    = 5 * time.Second
	readCount    = 16
	errorBackoff = 2 * time.Second
	streamMaxLen = 100_000
)

// Options tunes the consumer side of a Broker.
type Options struct {
	Group         string
	Consumer      string
	MaxDeliveries int64
	// MinIdle is how long a delivered message may stay unacknowledged before
	// Reclaim hands it to this consumer again.
	MinIdle time.Duration
	// OnDeadLetter is called after a message is parked on its dead-letter
	// stream.
	OnDeadLetter func(ctx context.Context, channel string)
}

// Broker publishes to and consumes from Redis Streams. The underlying client
// can be swapped at runtime with Rebind when service discovery reports a new
// broker address.
type Broker struct {
	opts Options
	log  *slog.Logger

	mu   sync.RWMutex
	rdb  *redis.Client
	addr string

	handlersMu sync.Mutex
	handlers   map[string]Handler
}

// Dial connects to the broker at addr (a redis:// URL).
func Dial(ctx context.Context, addr string, opts Options, log *slog.Logger) (*Broker, error) {
	rdb, err := db.NewRedisClient(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("messaging.Dial: %w", err)
	}
	return NewBroker(rdb, addr, opts, log), nil
}

// NewBroker wraps an existing client.
func NewBroker(rdb *redis.Client, addr string, opts Options, log *slog.Logger) *Broker {
	if opts.MaxDeliveries <= 0 {
		opts.MaxDeliveries = 5
	}
	if opts.MinIdle <= 0 {
		opts.MinIdle = time.Minute
	}
	return &Broker{
		opts:     opts,
		log:      log,
		rdb:      rdb,
		addr:     addr,
		handlers: make(map[string]Handler),
	}
}

func (b *Broker) client() *redis.Client {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rdb
}

// Addr returns the address the broker is currently bound to.
func (b *Broker) Addr() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.addr
}

// Rebind re-dials when addr differs from the current address. The old client
// is closed once the new one answers.
func (b *Broker) Rebind(ctx context.Context, addr string) error {
	if addr == "" || addr == b.Addr() {
		return nil
	}
	rdb, err := db.NewRedisClient(ctx, addr)
	if err != nil {
		return fmt.Errorf("rebind %s: %w", addr, err)
	}

	b.mu.Lock()
	old := b.rdb
	b.rdb, b.addr = rdb, addr
	b.mu.Unlock()

	b.log.Info("broker rebound", "addr", addr)
	return old.Close()
}

// Close releases the current client.
func (b *Broker) Close() error {
	return b.client().Close()
}

// Publish appends payload, JSON encoded, to the channel's stream.
func (b *Broker) Publish(ctx context.Context, channel, key string, payload any) error {
	body, err := envelope.Encode(payload)
	if err != nil {
		return err
	}
	err = b.client().XAdd(ctx, &redis.XAddArgs{
		Stream: channel,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{fieldKey: key, fieldPayload: body},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", channel, err)
	}
	return nil
}

// ─── Consumer side ───────────────────────────────────────────────────────────

// Consume reads channel through the consumer group until ctx is cancelled.
// It blocks; run one goroutine per channel.
func (b *Broker) Consume(ctx context.Context, channel string, h Handler) error {
	b.handlersMu.Lock()
	b.handlers[channel] = h
	b.handlersMu.Unlock()

	if err := b.ensureGroup(ctx, channel); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		streams, err := b.client().XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    b.opts.Group,
			Consumer: b.opts.Consumer,
			Streams:  []string{channel, ">"},
			Count:    readCount,
			Block:    readBlock,
		}).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			if isNoGroup(err) {
				if gerr := b.ensureGroup(ctx, channel); gerr != nil {
					b.log.Error("recreate consumer group failed", "channel", channel, "err", gerr)
				}
			} else {
				b.log.Warn("xreadgroup failed", "channel", channel, "err", err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(errorBackoff):
			}
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				b.process(ctx, channel, msg, h, 1)
			}
		}
	}
}

// Reclaim re-runs messages that have sat unacknowledged longer than MinIdle
// on every channel with a running consumer. Messages that reached
// MaxDeliveries are dead-lettered instead.
func (b *Broker) Reclaim(ctx context.Context) error {
	b.handlersMu.Lock()
	handlers := make(map[string]Handler, len(b.handlers))
	for ch, h := range b.handlers {
		handlers[ch] = h
	}
	b.handlersMu.Unlock()

	var errs []error
	for channel, h := range handlers {
		if err := b.reclaimChannel(ctx, channel, h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Broker) reclaimChannel(ctx context.Context, channel string, h Handler) error {
	rdb := b.client()
	pending, err := rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: channel,
		Group:  b.opts.Group,
		Idle:   b.opts.MinIdle,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if err != nil {
		return fmt.Errorf("xpending %s: %w", channel, err)
	}

	for _, p := range pending {
		msgs, err := rdb.XClaim(ctx, &redis.XClaimArgs{
			Stream:   channel,
			Group:    b.opts.Group,
			Consumer: b.opts.Consumer,
			MinIdle:  b.opts.MinIdle,
			Messages: []string{p.ID},
		}).Result()
		if err != nil {
			return fmt.Errorf("xclaim %s %s: %w", channel, p.ID, err)
		}
		for _, msg := range msgs {
			if p.RetryCount >= b.opts.MaxDeliveries {
				b.deadLetter(ctx, channel, msg, p.RetryCount, fmt.Errorf("delivery budget of %d exhausted", b.opts.MaxDeliveries))
				continue
			}
			b.process(ctx, channel, msg, h, p.RetryCount+1)
		}
	}
	return nil
}

func (b *Broker) process(ctx context.Context, channel string, msg redis.XMessage, h Handler, delivery int64) {
	body, _ := msg.Values[fieldPayload].(string)

	err := h(ctx, channel, []byte(body))
	switch {
	case err == nil:
		b.ack(ctx, channel, msg.ID)
	case IsPermanent(err):
		b.deadLetter(ctx, channel, msg, delivery, err)
	default:
		// Left pending while later messages proceed; Reclaim redelivers it
		// after MinIdle, so per-key order is not kept across a retry.
		b.log.Warn("message will be redelivered",
			"channel", channel, "id", msg.ID, "delivery", delivery, "err", err)
	}
}

func (b *Broker) deadLetter(ctx context.Context, channel string, msg redis.XMessage, deliveries int64, cause error) {
	dlq := DeadLetterChannel(channel)
	err := b.client().XAdd(ctx, &redis.XAddArgs{
		Stream: dlq,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			fieldKey:     msg.Values[fieldKey],
			fieldPayload: msg.Values[fieldPayload],
			"source_id":  msg.ID,
			"deliveries": deliveries,
			"error":      cause.Error(),
		},
	}).Err()
	if err != nil {
		// Not acknowledged, so the next Reclaim tries again.
		b.log.Error("dead-letter failed", "channel", channel, "id", msg.ID, "err", err)
		return
	}
	b.log.Error("message dead-lettered", "channel", channel, "id", msg.ID, "deliveries", deliveries, "err", cause)
	b.ack(ctx, channel, msg.ID)
	if b.opts.OnDeadLetter != nil {
		b.opts.OnDeadLetter(ctx, channel)
	}
}

func (b *Broker) ack(ctx context.Context, channel, id string) {
	if err := b.client().XAck(ctx, channel, b.opts.Group, id).Err(); err != nil {
		b.log.Warn("xack failed", "channel", channel, "id", id, "err", err)
	}
}

func (b *Broker) ensureGroup(ctx context.Context, channel string) error {
	err := b.client().XGroupCreateMkStream(ctx, channel, b.opts.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s on %s: %w", b.opts.Group, channel, err)
	}
	return nil
}

func isNoGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "NOGROUP")
}

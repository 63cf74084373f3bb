package shard

import (
	"context"
	"log/slog"
	"time"

	"jobmate/profile-service/internal/envelope"
	"jobmate/profile-service/internal/messaging"
	"jobmate/profile-service/internal/model"
)

// Orchestrator emits the audit trail around the write that moves a profile
// to another country. Audit emission is best-effort; the write is owned by
// the caller.
type Orchestrator struct {
	pub     messaging.Publisher
	channel string
	log     *slog.Logger
	now     func() time.Time
}

// NewOrchestrator emits audit events on channel.
func NewOrchestrator(pub messaging.Publisher, channel string, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		pub:     pub,
		channel: channel,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the timestamp source.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Migration is one audited country move. Finish must be called exactly once.
type Migration struct {
	o       *Orchestrator
	audit   envelope.ShardMigration
	started time.Time
}

// Begin emits INITIATED for moving p from prev to next. The caller writes the
// profile, retrying as it needs, and then reports the outcome with Finish.
func (o *Orchestrator) Begin(ctx context.Context, p *model.Profile, prev, next *string) *Migration {
	started := o.now()
	m := &Migration{
		o:       o,
		started: started,
		audit: envelope.ShardMigration{
			EventType:       envelope.ShardMigrationEventType,
			UserID:          p.UserID,
			ProfileID:       p.ID,
			Email:           model.Deref(p.Email),
			CompanyName:     model.Deref(p.CompanyName),
			PreviousCountry: model.Deref(prev),
			NewCountry:      model.Deref(next),
			SourceRegion:    string(RegionFor(prev)),
			TargetRegion:    string(RegionFor(next)),
			Status:          envelope.MigrationInitiated,
			InitiatedAt:     envelope.NewTime(started),
		},
	}
	o.emit(ctx, m.audit)
	return m
}

// Finish emits COMPLETED when err is nil and FAILED otherwise.
func (m *Migration) Finish(ctx context.Context, err error) {
	done := m.o.now()
	m.audit.CompletedAt = envelope.NewTime(done)
	if err != nil {
		m.audit.Status = envelope.MigrationFailed
		m.audit.ErrorMessage = err.Error()
		m.o.emit(ctx, m.audit)
		m.o.log.Warn("shard migration failed",
			"user_id", m.audit.UserID, "from", m.audit.PreviousCountry, "to", m.audit.NewCountry, "err", err)
		return
	}

	m.audit.Status = envelope.MigrationCompleted
	m.audit.DurationMs = done.Sub(m.started).Milliseconds()
	m.o.emit(ctx, m.audit)
	m.o.log.Info("shard migration completed",
		"user_id", m.audit.UserID, "from", m.audit.PreviousCountry, "to", m.audit.NewCountry,
		"duration_ms", m.audit.DurationMs)
}

func (o *Orchestrator) emit(ctx context.Context, evt envelope.ShardMigration) {
	if err := o.pub.Publish(ctx, o.channel, evt.UserID, evt); err != nil {
		o.log.Warn("publish shard migration failed", "status", evt.Status, "user_id", evt.UserID, "err", err)
	}
}

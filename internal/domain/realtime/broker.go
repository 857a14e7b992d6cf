package realtime

import (
	"context"

	"go.uber.org/zap"
)

// Broker moves envelopes from publishers to every hub that may hold the
// recipient's connection.
type Broker interface {
	Publish(ctx context.Context, env Envelope) error
	// Run blocks until ctx is done, feeding remote envelopes to the local hub.
	Run(ctx context.Context) error
}

// MemoryBroker delivers straight to the local hub. Used for single-instance
// deployments and tests.
type MemoryBroker struct {
	hub *Hub
}

func NewMemoryBroker(hub *Hub) *MemoryBroker {
	return &MemoryBroker{hub: hub}
}

func (b *MemoryBroker) Publish(_ context.Context, env Envelope) error {
	b.hub.Deliver(env)
	return nil
}

func (b *MemoryBroker) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Publisher is what domain services use to push events.
type Publisher struct {
	broker Broker
	log    *zap.Logger
}

func NewPublisher(broker Broker, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{broker: broker, log: log}
}

// ToUser pushes ev to every connection userID holds on channel. Push failures
// are logged and swallowed: pushes are invalidation hints, never the source
// of truth.
func (p *Publisher) ToUser(ctx context.Context, channel string, userID int64, ev Event) {
	p.publish(ctx, channel, userID, ev)
}

// ToChannel pushes ev to every subscriber of channel.
func (p *Publisher) ToChannel(ctx context.Context, channel string, ev Event) {
	p.publish(ctx, channel, 0, ev)
}

func (p *Publisher) publish(ctx context.Context, channel string, userID int64, ev Event) {
	env, err := NewEnvelope(channel, userID, ev)
	if err != nil {
		p.log.Error("encode event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	if err := p.broker.Publish(ctx, env); err != nil {
		p.log.Warn("publish event",
			zap.String("type", ev.Type),
			zap.String("channel", channel),
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
}

package chat

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Every event, local or from another instance, takes the same path: publish
// to the broker, fan out from the single subscription. One subscriber per
// process means events for a given room are applied in publish order.
const eventsChannel = "match.events"

type scope string

const (
	scopeRoom scope = "room" // target = conversation id
	scopeUser scope = "user" // target = user id
	scopeAll  scope = "all"  // every connected session
)

type envelope struct {
	Scope  scope `json:"scope"`
	Target int   `json:"target,omitempty"`
	Event  Event `json:"event"`
}

// Broker carries event envelopes between server instances.
type Broker interface {
	Publish(ctx context.Context, env envelope) error
	Subscribe(ctx context.Context) <-chan envelope
}

// RedisBroker is the production broker: one pub/sub channel shared by all
// instances.
type RedisBroker struct {
	cli    *redis.Client
	logger *slog.Logger
}

func NewRedisBroker(cli *redis.Client, logger *slog.Logger) *RedisBroker {
	return &RedisBroker{cli: cli, logger: logger}
}

func (b *RedisBroker) Publish(ctx context.Context, env envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.cli.Publish(ctx, eventsChannel, payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context) <-chan envelope {
	out := make(chan envelope, 64)
	pubsub := b.cli.Subscribe(ctx, eventsChannel)

	go func() {
		defer close(out)
		defer pubsub.Close()
		for msg := range pubsub.Channel() {
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Error("dropping malformed broker event", "error", err)
				continue
			}
			out <- env
		}
	}()
	return out
}

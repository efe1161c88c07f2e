package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/sportsedge/internal/domain"
)

const subscriberBuffer = 128

// SignalBus carries opportunity, trade and scan events over Redis Pub/Sub
// so websocket hubs in other processes see what the scanner finds.
type SignalBus struct {
	rdb *redis.Client
}

// NewSignalBus creates a SignalBus.
func NewSignalBus(c *Client) *SignalBus {
	return &SignalBus{rdb: c.rdb}
}

// Publish sends payload to channel. Having no subscribers is not an error.
func (sb *SignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := sb.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe streams payloads published to channel, which may be a glob
// pattern. The returned channel closes when ctx is done or the
// subscription drops.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	pubsub := sb.subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
	}

	out := make(chan []byte, subscriberBuffer)
	go func() {
		<-ctx.Done()
		_ = pubsub.Close()
	}()
	go func() {
		defer close(out)
		for {
			msg, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				if !errors.Is(err, redis.ErrClosed) && ctx.Err() == nil {
					_ = pubsub.Close()
				}
				return
			}
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (sb *SignalBus) subscribe(ctx context.Context, channel string) *redis.PubSub {
	if hasPattern(channel) {
		return sb.rdb.PSubscribe(ctx, channel)
	}
	return sb.rdb.Subscribe(ctx, channel)
}

// hasPattern reports whether channel needs PSubscribe.
func hasPattern(channel string) bool {
	return strings.ContainsAny(channel, "*?[")
}

var _ domain.SignalBus = (*SignalBus)(nil)

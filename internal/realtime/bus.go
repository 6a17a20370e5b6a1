package realtime

import (
	"context"

	pkgredis "github.com/mediayaseer-arch/questpark-backend/pkg/redis"
)

// RedisBus adapts the shared Redis client to the Bus interface so checkout
// events reach every running instance.
type RedisBus struct {
	client *pkgredis.Client
}

// NewRedisBus wraps a Redis client.
func NewRedisBus(client *pkgredis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Publish(ctx context.Context, channel string, payload any) error {
	return b.client.Publish(ctx, channel, payload)
}

func (b *RedisBus) Listen(ctx context.Context, channel string) (<-chan string, func() error, error) {
	pubsub, err := b.client.Subscribe(ctx, channel)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, pubsub.Close, nil
}

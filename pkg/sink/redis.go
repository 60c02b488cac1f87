package sink

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Goden-Gun/resilience-lib/pkg/notify"
)

// RedisPublisher is the subset of a redis client used by Redis.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Redis publishes each notification as JSON on a pub/sub channel.
type Redis struct {
	client  RedisPublisher
	channel string

	observerMu sync.RWMutex
	observer   PublishObserver
}

func NewRedis(client RedisPublisher, channel string) *Redis {
	if channel == "" {
		channel = "resilience:notifications"
	}
	return &Redis{client: client, channel: channel}
}

func (r *Redis) SetObserver(o PublishObserver) {
	r.observerMu.Lock()
	r.observer = o
	r.observerMu.Unlock()
}

func (r *Redis) Publish(ctx context.Context, e notify.Entry) (err error) {
	start := time.Now()
	defer func() {
		r.observerMu.RLock()
		o := r.observer
		r.observerMu.RUnlock()
		if o != nil {
			o.ObservePublish("redis", time.Since(start), err)
		}
	}()

	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

package realtime

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// SubscribeEvents forwards envelopes published on the redis channel to the
// local hub. A single subscriber goroutine dispatches in arrival order, so
// broadcasts keep their publish order on every instance. It returns when
// ctx is cancelled.
func SubscribeEvents(ctx context.Context, logger *log.Logger, rc *redis.Client, channel string, hub *Hub) {
	for {
		sub := rc.Subscribe(ctx, channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var env envelope
				if err := sonic.Unmarshal([]byte(msg.Payload), &env); err != nil {
					logger.WithError(err).Error("unable to parse event")
					continue
				}
				hub.dispatch(env)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Error("pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}

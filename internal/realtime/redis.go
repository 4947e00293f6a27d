package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const DefaultRedisChannel = "beverage:notifications"

type redisMessage struct {
	Room         string       `json:"room"`
	Notification Notification `json:"notification"`
}

// RedisBroadcaster fans notifications out through a redis channel so every
// instance delivers them to its own hub. Local delivery happens only via the
// subscription, which avoids duplicates on the publishing instance.
type RedisBroadcaster struct {
	rdb     redis.UniversalClient
	channel string
	hub     *Hub
	log     logrus.FieldLogger

	mu     sync.Mutex
	sub    *redis.PubSub
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRedisBroadcaster(rdb redis.UniversalClient, channel string, hub *Hub, log logrus.FieldLogger) *RedisBroadcaster {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisBroadcaster{rdb: rdb, channel: channel, hub: hub, log: log}
}

func (r *RedisBroadcaster) Broadcast(ctx context.Context, room string, n Notification) error {
	b, err := json.Marshal(redisMessage{Room: room, Notification: n})
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, b).Err()
}

// Start subscribes and relays messages into the local hub until Stop.
func (r *RedisBroadcaster) Start(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.sub, r.cancel, r.done = sub, cancel, make(chan struct{})
	done := r.done
	r.mu.Unlock()

	go func() {
		defer close(done)
		ch := sub.Channel()
		for {
			select {
			case <-runCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.relay(runCtx, msg.Payload)
			}
		}
	}()
	r.log.WithField("channel", r.channel).Info("redis notification relay started")
	return nil
}

func (r *RedisBroadcaster) relay(ctx context.Context, payload string) {
	var m redisMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		r.log.WithError(err).Warn("malformed relay message")
		return
	}
	if err := r.hub.Broadcast(ctx, m.Room, m.Notification); err != nil {
		r.log.WithError(err).WithField("room", m.Room).Warn("relay delivery failed")
	}
}

func (r *RedisBroadcaster) Stop() {
	r.mu.Lock()
	sub, cancel, done := r.sub, r.cancel, r.done
	r.sub, r.cancel = nil, nil
	r.mu.Unlock()
	if sub == nil {
		return
	}
	cancel()
	_ = sub.Close()
	<-done
}

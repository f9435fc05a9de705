package relayserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"chatseal/internal/domain"
)

const eventChannelPrefix = "conv:events:"

// RedisNotifier fans messages out over Redis pub/sub so that several relay
// processes can serve the same conversations.
type RedisNotifier struct {
	rdb *redis.Client
	log logrus.FieldLogger
}

// NewRedisNotifier publishes and subscribes through rdb.
func NewRedisNotifier(rdb *redis.Client, log logrus.FieldLogger) *RedisNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisNotifier{rdb: rdb, log: log}
}

func eventChannel(id domain.ConversationID) string {
	return eventChannelPrefix + string(id)
}

// Publish sends msg as JSON on its conversation channel.
func (n *RedisNotifier) Publish(ctx context.Context, msg domain.Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := n.rdb.Publish(ctx, eventChannel(msg.ConversationID), b).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe listens on the channel of id until cancel is called.
func (n *RedisNotifier) Subscribe(
	ctx context.Context,
	id domain.ConversationID,
) (<-chan domain.Message, func(), error) {
	ps := n.rdb.Subscribe(ctx, eventChannel(id))
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan domain.Message, subscriberBuffer)
	done := make(chan struct{})
	go func() {
		defer close(out)
		for m := range ps.Channel() {
			var msg domain.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				n.log.WithError(err).Warn("relay: undecodable redis event")
				continue
			}
			select {
			case out <- msg:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			ps.Close()
		})
	}
	return out, cancel, nil
}

var _ Notifier = (*RedisNotifier)(nil)

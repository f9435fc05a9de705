package relayserver

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"chatseal/internal/domain"
)

// Notifier fans new messages out to event-stream subscribers.
type Notifier interface {
	Publish(ctx context.Context, msg domain.Message) error
	// Subscribe returns a channel of messages posted to id. The cancel func
	// must be called to release the subscription; it closes the channel.
	Subscribe(ctx context.Context, id domain.ConversationID) (<-chan domain.Message, func(), error)
}

const subscriberBuffer = 16

// MemoryNotifier delivers messages within a single relay process.
// Slow subscribers miss messages rather than block publishers.
type MemoryNotifier struct {
	Log logrus.FieldLogger

	mu   sync.Mutex
	subs map[domain.ConversationID]map[chan domain.Message]struct{}
}

// NewMemoryNotifier returns a notifier with no subscribers.
func NewMemoryNotifier(log logrus.FieldLogger) *MemoryNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MemoryNotifier{
		Log:  log,
		subs: make(map[domain.ConversationID]map[chan domain.Message]struct{}),
	}
}

// Publish hands msg to every current subscriber of its conversation.
func (n *MemoryNotifier) Publish(_ context.Context, msg domain.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs[msg.ConversationID] {
		select {
		case ch <- msg:
		default:
			n.Log.WithField("conversation_id", msg.ConversationID).Warn("relay: dropped event for slow subscriber")
		}
	}
	return nil
}

// Subscribe registers a buffered subscriber for id.
func (n *MemoryNotifier) Subscribe(
	_ context.Context,
	id domain.ConversationID,
) (<-chan domain.Message, func(), error) {
	ch := make(chan domain.Message, subscriberBuffer)
	n.mu.Lock()
	if n.subs[id] == nil {
		n.subs[id] = make(map[chan domain.Message]struct{})
	}
	n.subs[id][ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs[id], ch)
			if len(n.subs[id]) == 0 {
				delete(n.subs, id)
			}
			n.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

var _ Notifier = (*MemoryNotifier)(nil)

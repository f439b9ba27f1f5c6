package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/example/refurnish/internal/infrastructure/kafka"
)

// KafkaChannel adapts the notifications topic into the Subscriber
// interface. The platform backend keys every message by the recipient's
// user id; dispatch fans out to local subscriptions only.
type KafkaChannel struct {
	consumer *kafka.Consumer
	logger   *slog.Logger

	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]Handler
}

func NewKafkaChannel(brokers []string, topic, groupID string, logger *slog.Logger) *KafkaChannel {
	return &KafkaChannel{
		consumer: kafka.NewConsumer(brokers, topic, groupID, logger),
		logger:   logger,
		subs:     make(map[string]map[int]Handler),
	}
}

// Run pumps the notifications topic until ctx is cancelled.
func (c *KafkaChannel) Run(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

func (c *KafkaChannel) Close() error {
	return c.consumer.Close()
}

func (c *KafkaChannel) Subscribe(userID string, h Handler) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subs[userID] == nil {
		c.subs[userID] = make(map[int]Handler)
	}
	id := c.nextID
	c.nextID++
	c.subs[userID][id] = h

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs[userID], id)
		if len(c.subs[userID]) == 0 {
			delete(c.subs, userID)
		}
	}, nil
}

func (c *KafkaChannel) handleMessage(_ context.Context, key, value []byte) error {
	var event Event
	if err := json.Unmarshal(value, &event); err != nil {
		c.logger.Error("failed to unmarshal push event", "error", err)
		return err
	}
	if event.UserID == "" {
		event.UserID = string(key)
	}

	switch event.Type {
	case EventProductStatusUpdate, EventProductSoldUpdate:
	default:
		// Unknown event types are skipped, not errors: the topic is shared
		// with newer backend versions.
		c.logger.Debug("skipping unknown push event type", "type", string(event.Type))
		return nil
	}

	c.mu.Lock()
	handlers := make([]Handler, 0, len(c.subs[event.UserID]))
	for _, h := range c.subs[event.UserID] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
	return nil
}

package push

import "sync"

// Bus is an in-memory Subscriber used in tests and single-process
// deployments. Delivery is synchronous in Publish's goroutine.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]Handler // userID -> subscription id -> handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

func (b *Bus) Subscribe(userID string, h Handler) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[userID] == nil {
		b.subs[userID] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[userID][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[userID], id)
		if len(b.subs[userID]) == 0 {
			delete(b.subs, userID)
		}
	}, nil
}

// Publish delivers the event to every active subscription for its user.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs[event.UserID]))
	for _, h := range b.subs[event.UserID] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// SubscriberCount reports active subscriptions for a user.
func (b *Bus) SubscriberCount(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[userID])
}

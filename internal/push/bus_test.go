package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversToSubscribedUserOnly(t *testing.T) {
	bus := NewBus()

	var sellerA, sellerB []Event
	_, err := bus.Subscribe("seller-a", func(e Event) { sellerA = append(sellerA, e) })
	require.NoError(t, err)
	_, err = bus.Subscribe("seller-b", func(e Event) { sellerB = append(sellerB, e) })
	require.NoError(t, err)

	bus.Publish(Event{
		Type:      EventProductStatusUpdate,
		UserID:    "seller-a",
		ProductID: "prod-1",
		Status:    "approved",
		Message:   "Your listing was approved",
	})

	require.Len(t, sellerA, 1)
	assert.Equal(t, "prod-1", sellerA[0].ProductID)
	assert.Empty(t, sellerB)
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()

	var received []Event
	unsubscribe, err := bus.Subscribe("seller-a", func(e Event) { received = append(received, e) })
	require.NoError(t, err)

	bus.Publish(Event{Type: EventProductSoldUpdate, UserID: "seller-a", ProductID: "prod-1"})
	unsubscribe()
	bus.Publish(Event{Type: EventProductSoldUpdate, UserID: "seller-a", ProductID: "prod-2"})

	require.Len(t, received, 1)
	assert.Equal(t, "prod-1", received[0].ProductID)
	assert.Equal(t, 0, bus.SubscriberCount("seller-a"))
}

func TestBus_MultipleSubscriptionsSameUser(t *testing.T) {
	bus := NewBus()

	var first, second int
	_, err := bus.Subscribe("seller-a", func(Event) { first++ })
	require.NoError(t, err)
	stop, err := bus.Subscribe("seller-a", func(Event) { second++ })
	require.NoError(t, err)

	bus.Publish(Event{Type: EventProductSoldUpdate, UserID: "seller-a"})
	stop()
	bus.Publish(Event{Type: EventProductSoldUpdate, UserID: "seller-a"})

	assert.Equal(t, 2, first)
	assert.Equal(t, 1, second)
}

package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEvent(t *testing.T, typ EventType, topic string, payload any) *Event {
	t.Helper()
	ev, err := New(typ, topic, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), payload)
	require.NoError(t, err)
	return ev
}

func TestBusDeliversToTopicSubscribers(t *testing.T) {
	bus := NewBus(4)
	cart42 := bus.Subscribe("42")
	cart7 := bus.Subscribe("7")
	all := bus.Subscribe("")

	bus.Publish(mustEvent(t, EventTypeTimerTick, "42", TimerTickPayload{CartID: "42", Display: "04:59"}))

	select {
	case ev := <-cart42.C:
		assert.Equal(t, EventTypeTimerTick, ev.Type)
	default:
		t.Fatal("expected event on cart 42 subscription")
	}
	select {
	case <-all.C:
	default:
		t.Fatal("expected event on wildcard subscription")
	}
	select {
	case ev := <-cart7.C:
		t.Fatalf("unexpected event on cart 7: %v", ev.Type)
	default:
	}
}

func TestBusSessionWideEventsReachEveryTopic(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe("42")

	bus.Publish(mustEvent(t, EventTypeAuthRequired, "", AuthRequiredPayload{Reason: "unauthorized"}))

	ev := <-sub.C
	assert.Equal(t, EventTypeAuthRequired, ev.Type)
}

func TestBusTypeFilter(t *testing.T) {
	bus := NewBus(4)
	sub := bus.Subscribe("", EventTypeReservationExpired)

	bus.Publish(mustEvent(t, EventTypeTimerTick, "42", TimerTickPayload{}))
	bus.Publish(mustEvent(t, EventTypeReservationExpired, "42", ReservationExpiredPayload{CartID: "42"}))

	ev := <-sub.C
	assert.Equal(t, EventTypeReservationExpired, ev.Type)
	assert.Len(t, sub.C, 0)
}

func TestBusPublishNeverBlocks(t *testing.T) {
	bus := NewBus(1)
	sub := bus.Subscribe("42")

	tick := mustEvent(t, EventTypeTimerTick, "42", TimerTickPayload{})
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(tick)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Len(t, sub.C, 1)
}

func TestSubscriptionClose(t *testing.T) {
	bus := NewBus(2)
	sub := bus.Subscribe("42")
	require.Equal(t, 1, bus.SubscriberCount())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, bus.SubscriberCount())

	_, ok := <-sub.C
	assert.False(t, ok)

	bus.Publish(mustEvent(t, EventTypeTimerTick, "42", TimerTickPayload{}))
}

func TestBusClose(t *testing.T) {
	bus := NewBus(2)
	sub := bus.Subscribe("")
	bus.Close()

	_, ok := <-sub.C
	assert.False(t, ok)

	late := bus.Subscribe("")
	_, ok = <-late.C
	assert.False(t, ok)
	late.Close()
}

func TestParseEventPayload(t *testing.T) {
	deadline := time.Date(2025, 3, 1, 12, 15, 0, 0, time.UTC)
	ev := mustEvent(t, EventTypeReservationExpired, "42", ReservationExpiredPayload{
		CartID:   "42",
		Deadline: deadline,
		Action:   "/events/9/bookings/select-ticket",
	})

	payload, err := ParseEventPayload(ev)
	require.NoError(t, err)
	expired, ok := payload.(ReservationExpiredPayload)
	require.True(t, ok)
	assert.Equal(t, "42", expired.CartID)
	assert.True(t, deadline.Equal(expired.Deadline))

	unknown := &Event{Type: "Other", Data: []byte(`{}`)}
	payload, err = ParseEventPayload(unknown)
	assert.NoError(t, err)
	assert.Nil(t, payload)
}

func TestLifecycle(t *testing.T) {
	assert.True(t, EventTypeReservationExpired.Lifecycle())
	assert.True(t, EventTypeReservationStarted.Lifecycle())
	assert.False(t, EventTypeTimerTick.Lifecycle())
	assert.False(t, EventTypeLeaveRequested.Lifecycle())
}

package eventbus_test

import (
	"testing"
	"time"

	"openflix/internal/eventbus"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(eventbus.Event{Topic: eventbus.TopicHistoryUpdated, UserID: "u1"})

	select {
	case evt := <-ch:
		if evt.Topic != eventbus.TopicHistoryUpdated {
			t.Fatalf("expected topic %q, got %q", eventbus.TopicHistoryUpdated, evt.Topic)
		}
		if evt.UserID != "u1" {
			t.Fatalf("expected user u1, got %q", evt.UserID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	cancel()
	cancel() // second cancel must be a no-op

	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after cancel")
	}

	// publishing after cancel must not panic
	bus.Publish(eventbus.Event{Topic: eventbus.TopicNotification})
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()

	_, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			bus.Publish(eventbus.Event{Topic: eventbus.TopicNotification})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	bus := eventbus.New()
	bus.Close()

	ch, cancel := bus.Subscribe()
	defer cancel()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel from a closed bus")
	}
}

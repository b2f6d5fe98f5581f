package notify

import (
	"context"
	"testing"
	"time"
)

func TestHub_PublishFansOut(t *testing.T) {
	h := NewHub(nil, nil)
	sub := h.Subscribe(TopicResale, 4)

	h.Publish(context.Background(), Event{
		Topic:    TopicResale,
		Kind:     "listing_listed",
		EntityID: 42,
	})

	select {
	case ev := <-sub:
		if ev.Kind != "listing_listed" || ev.EntityID != 42 {
			t.Fatalf("ev=%+v", ev)
		}
		if ev.At.IsZero() {
			t.Fatalf("expected publish timestamp to be set")
		}
	case <-time.After(time.Second):
		t.Fatalf("no event delivered")
	}
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	h := NewHub(nil, nil)
	h.Subscribe(TopicSettlement, 1)

	h.Publish(context.Background(), Event{Topic: TopicSettlement, Kind: "settled", EntityID: 1})
	h.Publish(context.Background(), Event{Topic: TopicSettlement, Kind: "settled", EntityID: 2})

	if h.Dropped() != 1 {
		t.Fatalf("dropped=%d want=1", h.Dropped())
	}
}

func TestHub_TopicIsolation(t *testing.T) {
	h := NewHub(nil, nil)
	sub := h.Subscribe(TopicPrice, 1)

	h.Publish(context.Background(), Event{Topic: TopicResale, Kind: "listing_listed", EntityID: 7})

	select {
	case ev := <-sub:
		t.Fatalf("unexpected event on price topic: %+v", ev)
	default:
	}
}

package events

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"seedpool/internal/models"
)

func TestSubscribeReceivesPublished(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ch, cancel := hub.Subscribe(4)
	defer cancel()

	hub.Publish(models.ProtocolEvent{Type: models.EventDeposit, Actor: "0xalice"})

	select {
	case ev := <-ch:
		if ev.Type != models.EventDeposit || ev.Actor != "0xalice" {
			t.Fatalf("received %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(zap.NewNop())
	_, cancel := hub.Subscribe(1)
	defer cancel()

	hub.Publish(models.ProtocolEvent{Type: models.EventDeposit})
	hub.Publish(models.ProtocolEvent{Type: models.EventWithdraw})

	if hub.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", hub.Dropped())
	}
}

func TestCancelClosesChannel(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ch, cancel := hub.Subscribe(1)
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after cancel")
	}

	// Publishing after cancel must not panic or deliver.
	hub.Publish(models.ProtocolEvent{Type: models.EventHeartbeat})
}

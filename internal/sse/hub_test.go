package sse

import (
	"testing"

	"github.com/google/uuid"

	"github.com/tmratwork/risetwice-backend/internal/logger"
)

func TestHubBroadcastReachesSubscribers(t *testing.T) {
	hub := NewHub(logger.NewNop())

	userID := uuid.New()
	subscribed := hub.NewClient(userID)
	hub.AddChannel(subscribed, userID.String())

	other := hub.NewClient(uuid.New())
	hub.AddChannel(other, "someone-else")

	hub.Broadcast(Message{
		Channel: userID.String(),
		Event:   EventSummaryJobProgress,
		Data:    map[string]any{"progress": 50},
	})

	select {
	case msg := <-subscribed.Outbound:
		if msg.Event != EventSummaryJobProgress {
			t.Fatalf("event = %q", msg.Event)
		}
	default:
		t.Fatalf("subscriber got no message")
	}

	select {
	case msg := <-other.Outbound:
		t.Fatalf("unsubscribed client got %+v", msg)
	default:
	}
}

func TestHubBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(logger.NewNop())

	client := hub.NewClient(uuid.New())
	hub.AddChannel(client, "ch")

	// fill the outbound buffer; the hub must not block
	for i := 0; i < cap(client.Outbound)+5; i++ {
		hub.Broadcast(Message{Channel: "ch", Event: EventSummaryJobProgress})
	}

	if got := len(client.Outbound); got != cap(client.Outbound) {
		t.Fatalf("outbound length = %d, want full buffer %d", got, cap(client.Outbound))
	}
}

func TestHubRemoveClient(t *testing.T) {
	hub := NewHub(logger.NewNop())

	client := hub.NewClient(uuid.New())
	hub.AddChannel(client, "ch")
	hub.RemoveClient(client)

	hub.Broadcast(Message{Channel: "ch", Event: EventSummaryJobCreated})

	select {
	case msg := <-client.Outbound:
		t.Fatalf("removed client got %+v", msg)
	default:
	}
}

func TestHubIgnoresEmptyChannel(t *testing.T) {
	hub := NewHub(logger.NewNop())

	client := hub.NewClient(uuid.New())
	hub.AddChannel(client, "   ")
	if len(client.Channels) != 0 {
		t.Fatalf("blank channel was registered: %v", client.Channels)
	}

	// no subscribers; must not panic
	hub.Broadcast(Message{Channel: "", Event: EventSummaryJobCreated})
}

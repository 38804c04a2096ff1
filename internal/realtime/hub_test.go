package realtime

import (
	"context"
	"testing"

	"github.com/quiltline/patternvault-backend/internal/platform/logger"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return NewHub(log)
}

func TestBroadcastReachesSubscribedClientOnly(t *testing.T) {
	t.Parallel()
	hub := newTestHub(t)

	subscribed := hub.NewClient()
	other := hub.NewClient()
	hub.Subscribe(subscribed, BatchChannel(7))
	hub.Subscribe(other, BatchChannel(8))

	hub.Broadcast(Message{
		Channel: BatchChannel(7),
		Event:   EventBatchProgress,
		Data:    BatchProgress{BatchID: 7, Name: "Fox", Outcome: "uploaded", Processed: 1, Total: 3},
	})

	select {
	case msg := <-subscribed.Outbound:
		if msg.Event != EventBatchProgress {
			t.Fatalf("unexpected event: %q", msg.Event)
		}
	default:
		t.Fatal("subscribed client should have received the message")
	}
	select {
	case msg := <-other.Outbound:
		t.Fatalf("other client should not receive messages, got %+v", msg)
	default:
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	t.Parallel()
	hub := newTestHub(t)

	client := hub.NewClient()
	hub.Subscribe(client, BatchChannel(1))

	msg := Message{Channel: BatchChannel(1), Event: EventBatchProgress}
	for i := 0; i < cap(client.Outbound)+5; i++ {
		hub.Broadcast(msg)
	}
	if len(client.Outbound) != cap(client.Outbound) {
		t.Fatalf("buffer should be full, got %d of %d", len(client.Outbound), cap(client.Outbound))
	}
}

func TestRemoveClientUnsubscribes(t *testing.T) {
	t.Parallel()
	hub := newTestHub(t)

	client := hub.NewClient()
	hub.Subscribe(client, BatchChannel(2))
	hub.RemoveClient(client)

	hub.Broadcast(Message{Channel: BatchChannel(2), Event: EventBatchFinished})
	select {
	case msg := <-client.Outbound:
		t.Fatalf("removed client should not receive messages, got %+v", msg)
	default:
	}
}

func TestNotifierFallsBackToLocalHub(t *testing.T) {
	t.Parallel()
	hub := newTestHub(t)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	notifier := NewNotifier(log, hub, nil)

	client := hub.NewClient()
	hub.Subscribe(client, BatchChannel(5))

	notifier.Notify(context.Background(), EventBatchFinished, BatchProgress{BatchID: 5, Processed: 2, Total: 2})

	select {
	case msg := <-client.Outbound:
		if msg.Channel != BatchChannel(5) || msg.Event != EventBatchFinished {
			t.Fatalf("unexpected message: %+v", msg)
		}
	default:
		t.Fatal("notifier should have broadcast to the local hub")
	}
}

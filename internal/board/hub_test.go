package board

import (
	"encoding/json"
	"testing"
	"time"

	"office-queue/internal/models"
)

func TestHubBroadcastsToRegisteredClients(t *testing.T) {
	hub := NewHub(10)
	client := &Client{ID: "c1", Send: make(chan []byte, 4)}
	hub.Register(client)
	defer hub.Unregister(client)

	call := models.BoardCall{Ticket: 42, Counter: 3, Service: "accounts", At: time.Now()}
	hub.PublishCall(call)

	select {
	case payload := <-client.Send:
		var got models.BoardCall
		if err := json.Unmarshal(payload, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Ticket != 42 || got.Counter != 3 || got.Service != "accounts" {
			t.Fatalf("unexpected call: %+v", got)
		}
	default:
		t.Fatalf("expected a delivered call")
	}
}

func TestHubSkipsSlowClient(t *testing.T) {
	hub := NewHub(10)
	slow := &Client{ID: "slow", Send: make(chan []byte, 1)}
	fast := &Client{ID: "fast", Send: make(chan []byte, 4)}
	hub.Register(slow)
	hub.Register(fast)
	defer hub.Unregister(slow)
	defer hub.Unregister(fast)

	// Two publishes against a one-slot channel must not block.
	hub.PublishCall(models.BoardCall{Ticket: 1, Counter: 1})
	hub.PublishCall(models.BoardCall{Ticket: 2, Counter: 1})

	if len(slow.Send) != 1 {
		t.Fatalf("expected slow client to keep 1 message, got %d", len(slow.Send))
	}
	if len(fast.Send) != 2 {
		t.Fatalf("expected fast client to get 2 messages, got %d", len(fast.Send))
	}
}

func TestHubRecentRingMostRecentFirst(t *testing.T) {
	hub := NewHub(3)
	for i := int64(1); i <= 5; i++ {
		hub.PublishCall(models.BoardCall{Ticket: i, Counter: 1})
	}

	recent := hub.Recent()
	if len(recent) != 3 {
		t.Fatalf("expected ring of 3, got %d", len(recent))
	}
	for i, want := range []int64{5, 4, 3} {
		if recent[i].Ticket != want {
			t.Fatalf("expected ticket %d at position %d, got %d", want, i, recent[i].Ticket)
		}
	}
}

func TestHubRegisterSnapshotSplitsReplayFromLive(t *testing.T) {
	hub := NewHub(10)
	hub.PublishCall(models.BoardCall{Ticket: 1, Counter: 1})

	client := &Client{ID: "c1", Send: make(chan []byte, 4)}
	snapshot := hub.Register(client)
	defer hub.Unregister(client)

	hub.PublishCall(models.BoardCall{Ticket: 2, Counter: 1})

	// Calls before registration appear only in the snapshot; calls after it
	// only on the channel.
	if len(snapshot) != 1 || snapshot[0].Ticket != 1 {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
	if len(client.Send) != 1 {
		t.Fatalf("expected 1 live message, got %d", len(client.Send))
	}
	var live models.BoardCall
	if err := json.Unmarshal(<-client.Send, &live); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if live.Ticket != 2 {
		t.Fatalf("expected live ticket 2, got %d", live.Ticket)
	}
}

func TestHubUnregisterClosesSend(t *testing.T) {
	hub := NewHub(10)
	client := &Client{ID: "c1", Send: make(chan []byte, 4)}
	hub.Register(client)
	hub.Unregister(client)

	if _, open := <-client.Send; open {
		t.Fatalf("expected closed channel after unregister")
	}

	// Double unregister and publish after removal must not panic.
	hub.Unregister(client)
	hub.PublishCall(models.BoardCall{Ticket: 1, Counter: 1})
}

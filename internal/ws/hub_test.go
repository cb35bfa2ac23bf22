package ws

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient() *Client {
	return &Client{send: make(chan []byte, 4)}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c1 := newTestClient()
	c2 := newTestClient()
	hub.register <- c1
	hub.register <- c2

	hub.BroadcastOrder(EventOrderCreated, map[string]interface{}{"id": 1, "table_id": 5})

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			var event Event
			if err := json.Unmarshal(msg, &event); err != nil {
				t.Fatalf("unmarshal event: %v", err)
			}
			if event.Type != EventOrderCreated {
				t.Errorf("type: got %s, want %s", event.Type, EventOrderCreated)
			}
		case <-time.After(time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestHub_UnregisteredClientGetsNothing(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	c := newTestClient()
	hub.register <- c
	hub.unregister <- c

	hub.BroadcastOrder(EventOrderUpdated, map[string]interface{}{"id": 2})

	select {
	case msg, ok := <-c.send:
		if ok {
			t.Fatalf("unexpected message after unregister: %s", msg)
		}
		// Channel closed by the hub, which is the expected outcome.
	case <-time.After(100 * time.Millisecond):
		t.Fatal("send channel was not closed on unregister")
	}
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	slow := &Client{send: make(chan []byte, 1)}
	slow.send <- []byte("backlog") // fill the buffer so the next push fails
	hub.register <- slow

	hub.BroadcastOrder(EventOrderUpdated, map[string]interface{}{"id": 3})

	// Wait for the hub to process the broadcast and evict the client
	// before touching the channel; draining earlier would free the slot
	// and let the push succeed.
	deadline := time.Now().Add(time.Second)
	for {
		hub.mu.RLock()
		_, present := hub.clients[slow]
		hub.mu.RUnlock()
		if !present {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("slow client was not evicted")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if msg := <-slow.send; string(msg) != "backlog" {
		t.Fatalf("buffered message: got %s, want backlog", msg)
	}
	if _, ok := <-slow.send; ok {
		t.Fatal("send channel was not closed on eviction")
	}
}

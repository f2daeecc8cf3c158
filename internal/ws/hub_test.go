package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/salle-pos/api/internal/enum"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, role string) *Client {
	return &Client{
		hub:  hub,
		role: role,
		send: make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, enum.RoleWaiter)
	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if !hub.clients[client] {
		t.Fatal("client not registered")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, enum.RoleCook)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.clients[client] {
		t.Fatal("client still registered after unregister")
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	waiter := mockClient(hub, enum.RoleWaiter)
	cook := mockClient(hub, enum.RoleCook)
	diner := mockClient(hub, enum.RoleDiner)

	hub.register <- waiter
	hub.register <- cook
	hub.register <- diner
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast("order.updated", map[string]string{"status": "READY"})

	clients := []*Client{waiter, cook, diner}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != "order.updated" {
				t.Errorf("client%d: expected type 'order.updated', got '%s'", i+1, received.Type)
			}
			var payload map[string]string
			if err := json.Unmarshal(received.Payload, &payload); err != nil {
				t.Fatalf("client%d: failed to unmarshal payload: %v", i+1, err)
			}
			if payload["status"] != "READY" {
				t.Errorf("client%d: wrong payload: %v", i+1, payload)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestBroadcastAfterUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := mockClient(hub, enum.RoleWaiter)
	client2 := mockClient(hub, enum.RoleWaiter)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client1
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast("order.created", map[string]string{"id": "abc"})

	select {
	case msg, ok := <-client1.send:
		if ok && len(msg) > 0 {
			t.Fatal("unregistered client should not receive message")
		}
		// Channel closed by hub - expected
	case <-time.After(50 * time.Millisecond):
	}

	select {
	case <-client2.send:
		// Expected
	case <-time.After(100 * time.Millisecond):
		t.Fatal("remaining client did not receive message")
	}
}

func TestSlowClientDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Unbuffered send channel fills immediately
	slow := &Client{hub: hub, role: enum.RoleDiner, send: make(chan []byte)}
	hub.register <- slow
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast("order.updated", map[string]string{"id": "1"})
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if hub.clients[slow] {
		t.Fatal("slow client should have been dropped")
	}
}

package board

import (
	"context"
	"testing"
	"time"

	"taxi-fleet/internal/shared/util"
)

func TestHubBroadcastAndShutdown(t *testing.T) {
	hub := NewHub(util.NewLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := &Client{ID: "op-1", Send: make(chan []byte, 1)}
	if !hub.add(client) {
		t.Fatal("register refused while hub is running")
	}

	hub.Broadcast([]byte(`{"routing_key":"order.created"}`))
	select {
	case msg := <-client.Send:
		if len(msg) == 0 {
			t.Fatal("empty broadcast delivered")
		}
	case <-time.After(time.Second):
		t.Fatal("broadcast not delivered")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop on context cancel")
	}

	select {
	case _, ok := <-client.Send:
		if ok {
			t.Fatal("expected send channel closed after shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed after shutdown")
	}

	// pump goroutines must not hang once the hub is gone
	released := make(chan struct{})
	go func() {
		hub.drop(client)
		hub.Broadcast([]byte(`late`))
		if hub.add(&Client{ID: "op-2", Send: make(chan []byte, 1)}) {
			t.Error("register accepted after shutdown")
		}
		close(released)
	}()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("hub calls blocked after shutdown")
	}
}

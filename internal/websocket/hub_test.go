package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/castle/internal/model"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, checklist string) *Client {
	return &Client{
		hub:       hub,
		checklist: checklist,
		send:      make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "")
	c2 := mockClient(hub, "")

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, "")
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestBroadcast(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "")
	c2 := mockClient(hub, "opening")
	hub.Register(c1)
	hub.Register(c2)

	msg := Message{Type: "chore_completed", Checklist: "opening", ChoreID: 42, StaffName: "Nora"}
	if n := hub.Broadcast(msg); n != 2 {
		t.Errorf("queued for %d clients, want 2", n)
	}

	for _, c := range []*Client{c1, c2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "chore_completed" {
				t.Errorf("expected type chore_completed, got %s", got.Type)
			}
			if got.ChoreID != 42 {
				t.Errorf("expected chore_id 42, got %d", got.ChoreID)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	hub.Unregister(c1)
	hub.Unregister(c2)
}

func TestBroadcastChecklistFilter(t *testing.T) {
	hub := NewHub(slog.Default())

	opening := mockClient(hub, "opening")
	closing := mockClient(hub, "closing")
	hub.Register(opening)
	hub.Register(closing)

	if n := hub.Broadcast(Message{Type: "section_completed", Checklist: "closing"}); n != 1 {
		t.Errorf("queued for %d clients, want 1", n)
	}

	select {
	case <-opening.send:
		t.Error("opening client received a closing update")
	default:
	}
	select {
	case <-closing.send:
	default:
		t.Error("closing client missed its update")
	}
}

func TestBroadcastEmptyHub(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	if n := hub.Broadcast(Message{Type: "checklist_reset"}); n != 0 {
		t.Errorf("queued = %d, want 0", n)
	}
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, "")
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Broadcast(Message{Type: "fill", ChoreID: int64(i)})
	}

	// This should drop the message, not panic or block
	if n := hub.Broadcast(Message{Type: "dropped"}); n != 0 {
		t.Errorf("queued = %d, want 0 for full buffer", n)
	}

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestMessageFromIntent(t *testing.T) {
	at := time.Date(2026, 3, 3, 9, 15, 0, 0, time.UTC)
	msg := MessageFromIntent(model.Intent{
		Kind:      model.IntentSectionCompleted,
		StaffName: "Josh",
		Summary:   "Josh completed 3 chores in Bar Setup",
		Timestamp: at,
		Details:   model.IntentDetails{Checklist: "opening", SectionID: 7, Count: 3},
	})
	if msg.Type != "section_completed" {
		t.Errorf("type = %q", msg.Type)
	}
	if msg.Checklist != "opening" || msg.SectionID != 7 {
		t.Errorf("msg = %+v", msg)
	}
	if !msg.At.Equal(at) {
		t.Errorf("at = %v, want %v", msg.At, at)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := mockClient(hub, "")
			hub.Register(c)
			hub.Broadcast(Message{Type: "concurrent"})
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}

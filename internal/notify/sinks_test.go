package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/dukerupert/castle/internal/database"
	"github.com/dukerupert/castle/internal/model"
	"github.com/dukerupert/castle/internal/push"
	"github.com/dukerupert/castle/internal/store"
)

var london = func() *time.Location {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		panic(err)
	}
	return loc
}()

func strp(s string) *string { return &s }

func TestFormatTelegram(t *testing.T) {
	// 08:15 UTC is 09:15 BST.
	at := time.Date(2026, 6, 2, 8, 15, 0, 0, time.UTC)

	tests := []struct {
		name   string
		intent model.Intent
		want   string
	}{
		{
			name: "chore completed",
			intent: model.Intent{
				Kind: model.IntentChoreCompleted, StaffName: "Nora", Timestamp: at,
				Details: model.IntentDetails{Chore: "Fill ice well"},
			},
			want: "Nora marked 'Fill ice well' as done at 09:15",
		},
		{
			name: "checklist submitted",
			intent: model.Intent{
				Kind: model.IntentChecklistSubmitted, StaffName: "Josh", Timestamp: at,
				Details: model.IntentDetails{Checklist: "opening"},
			},
			want: "Josh COMPLETED FULL OPENING at 09:15 ✅",
		},
		{
			name: "uncomplete not announced",
			intent: model.Intent{
				Kind: model.IntentChoreUncompleted, StaffName: "Josh", Timestamp: at,
				Details: model.IntentDetails{Chore: "Fill ice well"},
			},
			want: "",
		},
		{
			name: "escapes html",
			intent: model.Intent{
				Kind: model.IntentChoreCompleted, StaffName: "Pero", Timestamp: at,
				Details: model.IntentDetails{Chore: "Check <b>taps</b> & lines"},
			},
			want: "Pero marked 'Check &lt;b&gt;taps&lt;/b&gt; &amp; lines' as done at 09:15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTelegram(tt.intent, london); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatTelegramSection(t *testing.T) {
	msg := FormatTelegram(model.Intent{
		Kind:      model.IntentSectionCompleted,
		StaffName: "Guy",
		Timestamp: time.Date(2026, 1, 5, 22, 40, 0, 0, time.UTC),
		Details: model.IntentDetails{
			Checklist: "closing",
			Section:   "Bar Closing",
			Count:     3,
			Comments:  []model.ChoreComment{{Chore: "Restock fridges", Comment: "out of tonic"}},
		},
	}, london)

	for _, want := range []string{"Guy completed <b>Bar Closing</b> on CLOSING at 22:40 (3 chores)", "Restock fridges: <i>out of tonic</i>"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) SendMessage(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func TestTelegramSinkSkipsUnannounced(t *testing.T) {
	sender := &fakeSender{}
	sink := NewTelegramSink(sender, london)
	ctx := context.Background()

	sink.Deliver(ctx, model.Intent{Kind: model.IntentChoreUncompleted})
	sink.Deliver(ctx, model.Intent{Kind: model.IntentChecklistSubmitted, StaffName: "Nora", Details: model.IntentDetails{Checklist: "opening"}})

	if len(sender.sent) != 1 {
		t.Errorf("sent = %d, want 1", len(sender.sent))
	}
}

type fakePush struct {
	expired map[string]bool
	fail    map[string]bool

	mu   sync.Mutex
	sent []string
}

func (f *fakePush) Send(_ context.Context, sub *model.PushSubscription, _ push.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expired[sub.Endpoint] {
		return push.ErrExpired
	}
	if f.fail[sub.Endpoint] {
		return errors.New("push service returned 500")
	}
	f.sent = append(f.sent, sub.Endpoint)
	return nil
}

func setupPushSink(t *testing.T, sender *fakePush) (*PushSink, *store.PushStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ps := store.NewPushStore(db)
	ctx := context.Background()
	for _, s := range []struct{ staff, endpoint string }{
		{"Nora", "https://push.example.com/nora"},
		{"Josh", "https://push.example.com/josh"},
		{"Dean", "https://push.example.com/dean"},
	} {
		if _, err := ps.CreateSubscription(ctx, s.staff, s.endpoint, "k", "a", ""); err != nil {
			t.Fatalf("create subscription: %v", err)
		}
	}
	return NewPushSink(sender, ps, discard), ps
}

func TestPushSinkSkipsActor(t *testing.T) {
	sender := &fakePush{}
	sink, _ := setupPushSink(t, sender)

	err := sink.Deliver(context.Background(), model.Intent{
		Kind:      model.IntentChecklistSubmitted,
		StaffName: "Nora",
		Details:   model.IntentDetails{Checklist: "opening"},
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("sent = %v, want 2 devices", sender.sent)
	}
	for _, ep := range sender.sent {
		if strings.HasSuffix(ep, "/nora") {
			t.Error("actor's own device was notified")
		}
	}
}

func TestPushSinkIgnoresToggles(t *testing.T) {
	sender := &fakePush{}
	sink, _ := setupPushSink(t, sender)

	if err := sink.Deliver(context.Background(), model.Intent{Kind: model.IntentChoreCompleted, StaffName: "Nora"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent = %v, want none", sender.sent)
	}
}

func TestPushSinkRemovesExpired(t *testing.T) {
	sender := &fakePush{
		expired: map[string]bool{"https://push.example.com/josh": true},
		fail:    map[string]bool{"https://push.example.com/dean": true},
	}
	sink, ps := setupPushSink(t, sender)
	ctx := context.Background()

	err := sink.Deliver(ctx, model.Intent{
		Kind:      model.IntentSectionCompleted,
		StaffName: "Nora",
		Details:   model.IntentDetails{Checklist: "opening", Comment: strp("done early")},
	})
	if err == nil {
		t.Error("expected error for failed device")
	}

	josh, err := ps.ListByStaff(ctx, "Josh")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(josh) != 0 {
		t.Error("expired subscription should be deleted")
	}
	dean, _ := ps.ListByStaff(ctx, "Dean")
	if len(dean) != 1 {
		t.Error("failing subscription should be kept")
	}
}

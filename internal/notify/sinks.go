package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/castle/internal/model"
	"github.com/dukerupert/castle/internal/push"
	"github.com/dukerupert/castle/internal/store"
	"github.com/dukerupert/castle/internal/websocket"
)

// --- Telegram ---

// MessageSender posts a formatted message to the staff group chat.
type MessageSender interface {
	SendMessage(ctx context.Context, text string) error
}

// TelegramSink posts every transition except an uncomplete to the group chat.
type TelegramSink struct {
	sender MessageSender
	loc    *time.Location
}

func NewTelegramSink(sender MessageSender, loc *time.Location) *TelegramSink {
	return &TelegramSink{sender: sender, loc: loc}
}

func (s *TelegramSink) Name() string { return "telegram" }

func (s *TelegramSink) Deliver(ctx context.Context, intent model.Intent) error {
	text := FormatTelegram(intent, s.loc)
	if text == "" {
		return nil
	}
	return s.sender.SendMessage(ctx, text)
}

// FormatTelegram renders an intent as an HTML chat message. It returns ""
// for kinds that are not announced.
func FormatTelegram(intent model.Intent, loc *time.Location) string {
	at := intent.Timestamp.In(loc).Format("15:04")
	who := html.EscapeString(intent.StaffName)
	d := intent.Details

	var b strings.Builder
	switch intent.Kind {
	case model.IntentChoreCompleted:
		fmt.Fprintf(&b, "%s marked '%s' as done at %s", who, html.EscapeString(d.Chore), at)
		if d.Comment != nil {
			fmt.Fprintf(&b, "\n<i>%s</i>", html.EscapeString(*d.Comment))
		}
	case model.IntentChoreCommented:
		fmt.Fprintf(&b, "%s commented on '%s' at %s", who, html.EscapeString(d.Chore), at)
		if d.Comment != nil {
			fmt.Fprintf(&b, "\n<i>%s</i>", html.EscapeString(*d.Comment))
		}
	case model.IntentSectionCompleted:
		fmt.Fprintf(&b, "%s completed <b>%s</b> on %s at %s (%d %s)",
			who, html.EscapeString(d.Section), html.EscapeString(strings.ToUpper(d.Checklist)), at,
			d.Count, model.Plural(d.Count, "chore", "chores"))
		if d.Comment != nil {
			fmt.Fprintf(&b, "\n<i>%s</i>", html.EscapeString(*d.Comment))
		}
		for _, c := range d.Comments {
			fmt.Fprintf(&b, "\n• %s: <i>%s</i>", html.EscapeString(c.Chore), html.EscapeString(c.Comment))
		}
	case model.IntentChecklistSubmitted:
		fmt.Fprintf(&b, "%s COMPLETED FULL %s at %s ✅", who, html.EscapeString(strings.ToUpper(d.Checklist)), at)
	case model.IntentChecklistReset:
		fmt.Fprintf(&b, "%s checklist was reset by %s at %s", html.EscapeString(strings.ToUpper(d.Checklist)), who, at)
	default:
		return ""
	}
	return b.String()
}

// --- Live updates ---

// HubSink tells connected staff devices to refresh.
type HubSink struct {
	hub *websocket.Hub
}

func NewHubSink(hub *websocket.Hub) *HubSink {
	return &HubSink{hub: hub}
}

func (s *HubSink) Name() string { return "websocket" }

func (s *HubSink) Deliver(_ context.Context, intent model.Intent) error {
	s.hub.Broadcast(websocket.MessageFromIntent(intent))
	return nil
}

// --- Web Push ---

// PushSender delivers one Web Push message.
type PushSender interface {
	Send(ctx context.Context, sub *model.PushSubscription, payload push.Payload) error
}

// PushSink notifies registered devices of section, submission, comment and
// reset events. The acting staff member's own devices are skipped.
type PushSink struct {
	sender PushSender
	subs   *store.PushStore
	logger *slog.Logger
}

func NewPushSink(sender PushSender, subs *store.PushStore, logger *slog.Logger) *PushSink {
	return &PushSink{sender: sender, subs: subs, logger: logger}
}

func (s *PushSink) Name() string { return "webpush" }

func (s *PushSink) Deliver(ctx context.Context, intent model.Intent) error {
	switch intent.Kind {
	case model.IntentSectionCompleted, model.IntentChecklistSubmitted,
		model.IntentChoreCommented, model.IntentChecklistReset:
	default:
		return nil
	}

	subs, err := s.subs.List(ctx)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}

	payload := push.Payload{
		Title: pushTitle(intent.Details.Checklist),
		Body:  intent.Summary,
		URL:   "/checklists/" + intent.Details.Checklist,
		Tag:   string(intent.Kind) + ":" + intent.Details.Checklist,
	}

	var errs []error
	for i := range subs {
		sub := &subs[i]
		if sub.StaffName == intent.StaffName {
			continue
		}
		err := s.sender.Send(ctx, sub, payload)
		if errors.Is(err, push.ErrExpired) {
			s.logger.Info("removing expired push subscription", "subscription_id", sub.ID, "staff", sub.StaffName)
			if err := s.subs.DeleteSubscription(ctx, sub.ID); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("subscription %d: %w", sub.ID, err))
		}
	}
	return errors.Join(errs...)
}

func pushTitle(checklist string) string {
	if checklist == "" {
		return "Castle"
	}
	return strings.ToUpper(checklist[:1]) + checklist[1:] + " checklist"
}

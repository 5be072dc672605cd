package publisher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"community_bot/internal/model"
	"community_bot/internal/settings"
	"community_bot/internal/storage"
)

type mockSender struct {
	mu       sync.Mutex
	payloads []Payload
	reacted  []string

	sendErr   error
	attachErr error
}

func (m *mockSender) SendAnnouncements(_ context.Context, p Payload) (MessageRef, error) {
	if m.sendErr != nil {
		return MessageRef{}, m.sendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, p)
	return MessageRef{ChatID: -100200, MessageID: len(m.payloads)}, nil
}

func (m *mockSender) AttachReaction(_ context.Context, _ MessageRef, emoji string) error {
	if m.attachErr != nil {
		return m.attachErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reacted = append(m.reacted, emoji)
	return nil
}

type mockGreeter struct {
	text string
	err  error
}

func (m *mockGreeter) Greeting(context.Context) (string, error) {
	return m.text, m.err
}

func newTestPublisher(t *testing.T, sender Sender, g Greeter) (*Publisher, storage.Storage, *settings.Service) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	svc := settings.New(store)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, svc, sender, g, "", log), store, svc
}

func seed(t *testing.T, store storage.Storage, anns ...model.Announcement) {
	t.Helper()
	ctx := context.Background()
	for i := range anns {
		if err := store.CreateAnnouncement(ctx, &anns[i]); err != nil {
			t.Fatalf("seed announcement: %v", err)
		}
	}
}

func june(day int) time.Time {
	return time.Date(2025, time.June, day, 10, 0, 0, 0, time.UTC)
}

func TestPublishNothingToPublish(t *testing.T) {
	sender := &mockSender{}
	p, store, _ := newTestPublisher(t, sender, nil)
	seed(t, store, model.Announcement{
		Type: model.TypeInfo, Title: "expired", Description: "d",
		VisibleFrom: "01.05.2025", VisibleTo: "31.05.2025",
		Info: &model.InfoDetails{},
	})

	_, err := p.Publish(context.Background(), june(15))
	if !errors.Is(err, ErrNothingToPublish) {
		t.Fatalf("err = %v, want ErrNothingToPublish", err)
	}
	if len(sender.payloads) != 0 {
		t.Errorf("nothing should have been sent, got %d payloads", len(sender.payloads))
	}
}

func TestPublishSendsCurrentSet(t *testing.T) {
	sender := &mockSender{}
	p, store, svc := newTestPublisher(t, sender, nil)
	ctx := context.Background()

	if err := svc.SetReactionEmoji(ctx, "🔥"); err != nil {
		t.Fatalf("set emoji: %v", err)
	}

	seed(t, store,
		model.Announcement{
			Type: model.TypeEvent, Title: "Game night", Description: "d",
			VisibleFrom: "01.06.2025", VisibleTo: "30.06.2025",
			Event: &model.EventDetails{Datetime: "20.06. // 18:00", Day: "friday"},
		},
		model.Announcement{
			Type: model.TypeInfo, Title: "New rules", Description: "d",
			VisibleFrom: "01.06.2025", VisibleTo: "30.06.2025",
			Info: &model.InfoDetails{},
		},
		model.Announcement{
			Type: model.TypeInfo, Title: "Planned", Description: "d",
			VisibleFrom: "01.07.2025", VisibleTo: "31.07.2025",
			Info: &model.InfoDetails{},
		},
	)

	count, err := p.Publish(ctx, june(15))
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if diff := cmp.Diff(2, count); diff != "" {
		t.Errorf("count mismatch (-want +got):\n%s", diff)
	}

	if len(sender.payloads) != 1 {
		t.Fatalf("want 1 payload, got %d", len(sender.payloads))
	}
	payload := sender.payloads[0]

	// INFO before EVENT, closing card last.
	titles := make([]string, 0, len(payload.Cards))
	for _, c := range payload.Cards {
		titles = append(titles, c.Title)
	}
	if len(titles) != 3 {
		t.Fatalf("want 3 cards, got %v", titles)
	}
	if titles[0] != "New rules" || titles[1] != "Game night" {
		t.Errorf("card order = %v", titles)
	}
	last := payload.Cards[len(payload.Cards)-1]
	if !last.Closing || !strings.Contains(last.Title, "🔥") {
		t.Errorf("closing card = %+v", last)
	}

	// The configured emoji is attached as the tracked reaction.
	if diff := cmp.Diff([]string{"🔥"}, sender.reacted); diff != "" {
		t.Errorf("reaction mismatch (-want +got):\n%s", diff)
	}
}

func TestPublishTwicePostsTwice(t *testing.T) {
	sender := &mockSender{}
	p, store, _ := newTestPublisher(t, sender, nil)
	seed(t, store, model.Announcement{
		Type: model.TypeInfo, Title: "x", Description: "d",
		VisibleFrom: "01.06.2025", VisibleTo: "30.06.2025",
		Info: &model.InfoDetails{},
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := p.Publish(ctx, june(15)); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	if len(sender.payloads) != 2 {
		t.Errorf("want 2 payloads, got %d", len(sender.payloads))
	}
}

func TestPublishHeaderFromGreeter(t *testing.T) {
	tests := []struct {
		name    string
		greeter Greeter
		want    string
	}{
		{"greeter success", &mockGreeter{text: "Hello folks!"}, "Hello folks!\n⇣"},
		{"greeter failure falls back", &mockGreeter{err: fmt.Errorf("quota")}, FallbackHeader},
		{"no greeter falls back", nil, FallbackHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &mockSender{}
			p, store, _ := newTestPublisher(t, sender, tt.greeter)
			seed(t, store, model.Announcement{
				Type: model.TypeInfo, Title: "x", Description: "d",
				VisibleFrom: "01.06.2025", VisibleTo: "30.06.2025",
				Info: &model.InfoDetails{},
			})

			if _, err := p.Publish(context.Background(), june(15)); err != nil {
				t.Fatalf("publish: %v", err)
			}
			if diff := cmp.Diff(tt.want, sender.payloads[0].Header); diff != "" {
				t.Errorf("header mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPublishSendFailure(t *testing.T) {
	sender := &mockSender{sendErr: fmt.Errorf("channel gone")}
	p, store, _ := newTestPublisher(t, sender, nil)
	seed(t, store, model.Announcement{
		Type: model.TypeInfo, Title: "x", Description: "d",
		VisibleFrom: "01.06.2025", VisibleTo: "30.06.2025",
		Info: &model.InfoDetails{},
	})

	if _, err := p.Publish(context.Background(), june(15)); err == nil {
		t.Fatal("expected send error")
	}
}

func TestPublishAttachFailureIsSwallowed(t *testing.T) {
	sender := &mockSender{attachErr: fmt.Errorf("reactions unavailable")}
	p, store, _ := newTestPublisher(t, sender, nil)
	seed(t, store, model.Announcement{
		Type: model.TypeInfo, Title: "x", Description: "d",
		VisibleFrom: "01.06.2025", VisibleTo: "30.06.2025",
		Info: &model.InfoDetails{},
	})

	count, err := p.Publish(context.Background(), june(15))
	if err != nil {
		t.Fatalf("publish should succeed despite attach failure: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestPreview(t *testing.T) {
	p, store, _ := newTestPublisher(t, &mockSender{}, nil)
	seed(t, store,
		model.Announcement{
			Type: model.TypeInfo, Title: "Visible", Description: "d",
			VisibleFrom: "01.06.2025", VisibleTo: "30.06.2025",
			Info: &model.InfoDetails{Link: "https://example.com"},
		},
		model.Announcement{
			Type: model.TypeInfo, Title: "Hidden", Description: "d",
			VisibleFrom: "01.07.2025", VisibleTo: "31.07.2025",
			Info: &model.InfoDetails{},
		},
	)

	text, count, err := p.Preview(context.Background(), june(15))
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
	if !strings.Contains(text, "Visible") || strings.Contains(text, "Hidden") {
		t.Errorf("preview text = %q", text)
	}
}

func TestThumbnailURL(t *testing.T) {
	tests := []struct {
		name  string
		proxy string
		image string
		want  string
	}{
		{"no proxy passes through", "", "https://img.example.com/a.png", "https://img.example.com/a.png"},
		{
			"proxy encodes",
			"https://thumbs.example.com/thumbnail",
			"https://img.example.com/a.png?x=1",
			"https://thumbs.example.com/thumbnail?url=https%3A%2F%2Fimg.example.com%2Fa.png%3Fx%3D1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ThumbnailURL(tt.proxy, tt.image)); diff != "" {
				t.Errorf("ThumbnailURL mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDayIconURL(t *testing.T) {
	if got := DayIconURL(" Friday "); got != "https://cdn3.emoji.gg/emojis/2064_friday.png" {
		t.Errorf("DayIconURL(Friday) = %q", got)
	}
	if got := DayIconURL("someday"); got != "" {
		t.Errorf("DayIconURL(someday) = %q, want empty", got)
	}
}

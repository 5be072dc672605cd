// Package publisher assembles the current announcement set into a payload
// and posts it to the announcement channel.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"community_bot/internal/model"
	"community_bot/internal/schedule"
	"community_bot/internal/settings"
	"community_bot/internal/storage"
)

// ErrNothingToPublish reports that no announcement is current for the target
// date. A normal outcome, not a fault.
var ErrNothingToPublish = errors.New("nothing to publish")

// Card is one rendered announcement in a publish payload.
type Card struct {
	Kind        model.Type
	Title       string
	Description string

	// EVENT only.
	EventDate  string
	DayIconURL string

	// INFO only.
	Link         string
	ThumbnailURL string

	// Closing marks the trailing "please acknowledge" card.
	Closing bool
}

// Payload is the composed message the Sender posts.
type Payload struct {
	Header string
	Cards  []Card
}

// MessageRef identifies a sent payload for reaction tracking.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Sender posts payloads to the announcement channel.
type Sender interface {
	SendAnnouncements(ctx context.Context, p Payload) (MessageRef, error)
	AttachReaction(ctx context.Context, ref MessageRef, emoji string) error
}

// Greeter produces the payload header. Treated as best-effort.
type Greeter interface {
	Greeting(ctx context.Context) (string, error)
}

// Publisher implements the publish pipeline.
type Publisher struct {
	store      storage.Storage
	settings   *settings.Service
	sender     Sender
	greeter    Greeter
	thumbProxy string
	log        *slog.Logger
}

// New creates a Publisher. greeter may be nil, in which case the static
// fallback header is always used.
func New(store storage.Storage, svc *settings.Service, sender Sender, greeter Greeter, thumbProxy string, log *slog.Logger) *Publisher {
	return &Publisher{
		store:      store,
		settings:   svc,
		sender:     sender,
		greeter:    greeter,
		thumbProxy: thumbProxy,
		log:        log,
	}
}

// Publish posts the announcements current at target to the announcement
// channel and returns how many were posted. Calling it twice posts twice;
// deduplication is the caller's concern.
func (p *Publisher) Publish(ctx context.Context, target time.Time) (int, error) {
	cards, err := p.PreviewCards(ctx, target)
	if err != nil {
		return 0, err
	}
	if len(cards) == 0 {
		return 0, ErrNothingToPublish
	}
	count := len(cards)

	emoji, err := p.settings.ReactionEmoji(ctx)
	if err != nil {
		p.log.Warn("read reaction emoji", "error", err)
	}
	cards = append(cards, Card{
		Title:   fmt.Sprintf("If you have read the announcements, don't forget to react %s", emoji),
		Closing: true,
	})

	payload := Payload{Header: p.header(ctx), Cards: cards}

	ref, err := p.sender.SendAnnouncements(ctx, payload)
	if err != nil {
		return 0, fmt.Errorf("send announcements: %w", err)
	}

	// Best effort; a missing reaction does not fail the publish.
	if err := p.sender.AttachReaction(ctx, ref, emoji); err != nil {
		p.log.Warn("attach reaction", "error", err)
	}

	p.log.Info("published announcements", "count", count, "target", target.Format("2006-01-02"))
	return count, nil
}

// PreviewCards renders the publish-mode announcement set for target without
// sending anything. A single storage snapshot backs both the emptiness
// decision and the rendered cards.
func (p *Publisher) PreviewCards(ctx context.Context, target time.Time) ([]Card, error) {
	anns, err := p.store.ListAnnouncements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}

	var cards []Card
	for _, a := range schedule.SortForPublish(anns, target) {
		cards = append(cards, p.BuildCard(a))
	}
	return cards, nil
}

// Preview renders the publish-mode set for target as plain text, for
// reminders and dry runs. The count of included announcements is returned
// alongside.
func (p *Publisher) Preview(ctx context.Context, target time.Time) (string, int, error) {
	cards, err := p.PreviewCards(ctx, target)
	if err != nil {
		return "", 0, err
	}
	return FormatCards(cards), len(cards), nil
}

// BuildCard renders one announcement into a card, resolving the type-specific
// presentation fields.
func (p *Publisher) BuildCard(a model.Announcement) Card {
	c := Card{
		Kind:        a.Type,
		Title:       a.Title,
		Description: a.Description,
	}
	if a.Event != nil {
		c.EventDate = a.Event.Datetime
		c.DayIconURL = DayIconURL(a.Event.Day)
	}
	if a.Info != nil {
		c.Link = a.Info.Link
		if a.Info.Image != "" {
			c.ThumbnailURL = ThumbnailURL(p.thumbProxy, a.Info.Image)
		}
	}
	return c
}

func (p *Publisher) header(ctx context.Context) string {
	if p.greeter != nil {
		text, err := p.greeter.Greeting(ctx)
		if err == nil {
			return text + "\n⇣"
		}
		p.log.Warn("greeting generation failed, using fallback", "error", err)
	}
	return FallbackHeader
}

// FallbackHeader is used when greeting generation fails or is not configured.
const FallbackHeader = "Hey @everyone! 👇\n⇣"

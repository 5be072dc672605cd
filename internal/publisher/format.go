package publisher

import (
	"fmt"
	"net/url"
	"strings"

	"community_bot/internal/model"
)

// dayIcons maps lowercase weekday names to their display icons.
var dayIcons = map[string]string{
	"monday":    "https://cdn3.emoji.gg/emojis/5712_monday.png",
	"tuesday":   "https://cdn3.emoji.gg/emojis/6201_tuesday.png",
	"wednesday": "https://cdn3.emoji.gg/emojis/4270_wednesday.png",
	"thursday":  "https://cdn3.emoji.gg/emojis/6285_thursday.png",
	"friday":    "https://cdn3.emoji.gg/emojis/2064_friday.png",
	"saturday":  "https://cdn3.emoji.gg/emojis/4832_saturday.png",
	"sunday":    "https://cdn3.emoji.gg/emojis/8878_sunday.png",
}

// DayIconURL resolves a weekday name to its icon URL, or "" when the name is
// not recognized.
func DayIconURL(day string) string {
	return dayIcons[strings.ToLower(strings.TrimSpace(day))]
}

// ThumbnailURL routes an image URL through the thumbnail proxy. Without a
// configured proxy the original URL is passed through.
func ThumbnailURL(proxyBase, imageURL string) string {
	if proxyBase == "" {
		return imageURL
	}
	return fmt.Sprintf("%s?url=%s", proxyBase, url.QueryEscape(imageURL))
}

// FormatCard renders a card as a plain-text block.
func FormatCard(c Card) string {
	var b strings.Builder
	if c.Closing {
		b.WriteString(c.Title)
		return b.String()
	}
	if c.Kind == model.TypeEvent && c.EventDate != "" {
		fmt.Fprintf(&b, "📅 %s\n", c.EventDate)
	}
	if c.Link != "" {
		fmt.Fprintf(&b, "🔗 %s\n%s", c.Title, c.Link)
	} else {
		b.WriteString(c.Title)
	}
	if c.Description != "" {
		b.WriteString("\n")
		b.WriteString(c.Description)
	}
	if c.ThumbnailURL != "" {
		b.WriteString("\n")
		b.WriteString(c.ThumbnailURL)
	}
	return b.String()
}

// FormatCards joins rendered cards with blank lines.
func FormatCards(cards []Card) string {
	parts := make([]string, 0, len(cards))
	for _, c := range cards {
		parts = append(parts, FormatCard(c))
	}
	return strings.Join(parts, "\n\n")
}

package bot

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"community_bot/internal/model"
	"community_bot/internal/schedule"
)

// classMarker maps a visibility class to its listing icon.
func classMarker(c schedule.Class) string {
	switch c {
	case schedule.ClassCurrent:
		return "🟩"
	case schedule.ClassPlanned:
		return "🟦"
	default:
		return "⬜"
	}
}

// FormatAnnouncementList renders the listing view: every announcement with
// its status marker, in listing order.
func FormatAnnouncementList(anns []model.Announcement, ref time.Time) string {
	if len(anns) == 0 {
		return "No announcements yet. Use /add_event or /add_info to create one."
	}

	var b strings.Builder
	b.WriteString("Announcements:\n")
	for _, a := range schedule.SortForListing(anns, ref) {
		marker := classMarker(schedule.Classify(a, ref))
		fmt.Fprintf(&b, "\n%s #%d [%s] %s\n", marker, a.ID, a.Type, a.Title)
		if a.IsEvent() && a.Event != nil {
			fmt.Fprintf(&b, "   📅 %s\n", a.Event.Datetime)
		}
		fmt.Fprintf(&b, "   visible %s - %s\n", a.VisibleFrom, a.VisibleTo)
		if desc := shorten(a.Description, 80); desc != "" {
			fmt.Fprintf(&b, "   %s\n", desc)
		}
	}
	return b.String()
}

// FormatAnnouncementDetail renders one announcement with all its fields, for
// edit prompts and previews.
func FormatAnnouncementDetail(a model.Announcement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d [%s] %s\n", a.ID, a.Type, a.Title)
	fmt.Fprintf(&b, "%s\n", a.Description)
	if a.Event != nil {
		fmt.Fprintf(&b, "📅 %s (%s)\n", a.Event.Datetime, a.Event.Day)
	}
	if a.Info != nil {
		if a.Info.Link != "" {
			fmt.Fprintf(&b, "🔗 %s\n", a.Info.Link)
		}
		if a.Info.Image != "" {
			fmt.Fprintf(&b, "🖼 %s\n", a.Info.Image)
		}
	}
	fmt.Fprintf(&b, "visible %s - %s", a.VisibleFrom, a.VisibleTo)
	return b.String()
}

// FormatSettings renders the settings dashboard.
func FormatSettings(cfg model.ScheduleConfig, active bool, emoji string, autoReact, notify []int64) string {
	var b strings.Builder
	b.WriteString("Bot settings:\n")

	state := "off"
	if active {
		state = "on"
	}
	if cfg.Configured() {
		fmt.Fprintf(&b, "publish schedule: %s %s [%s]\n", cfg.Day, cfg.Time, state)
	} else {
		fmt.Fprintf(&b, "publish schedule: not configured [%s]\n", state)
	}
	fmt.Fprintf(&b, "reaction emoji: %s\n", emoji)
	fmt.Fprintf(&b, "auto-react channels: %s\n", formatIDList(autoReact))
	fmt.Fprintf(&b, "notify users: %s", formatIDList(notify))
	return b.String()
}

func formatIDList(ids []int64) string {
	if len(ids) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprint(id))
	}
	return strings.Join(parts, ", ")
}

func shorten(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	// Back up to a rune boundary so multi-byte text is never cut mid-rune.
	for len(cut) > 0 {
		if r, size := utf8.DecodeLastRuneInString(cut); r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

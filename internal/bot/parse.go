package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"community_bot/internal/model"
	"community_bot/internal/schedule"
)

// ParseAnnouncementFields parses pipe-separated announcement fields.
//
// EVENT: title | description | datetime | day [| from - to]
// INFO:  title | description [| link [| image [| from - to]]]
//
// The visible range defaults to the upcoming Friday-Thursday week when
// omitted.
func ParseAnnouncementFields(typ model.Type, args string, now time.Time) (model.Announcement, error) {
	fields := splitFields(args)

	a := model.Announcement{Type: typ}
	switch typ {
	case model.TypeEvent:
		if len(fields) < 4 {
			return a, fmt.Errorf("usage: title | description | datetime | day [| from - to]")
		}
		a.Title, a.Description = fields[0], fields[1]
		a.Event = &model.EventDetails{
			Datetime: fields[2],
			Day:      strings.ToLower(fields[3]),
		}
		if len(fields) >= 5 {
			from, to, err := ParseVisibleRange(fields[4])
			if err != nil {
				return a, err
			}
			a.VisibleFrom, a.VisibleTo = from, to
		}
	case model.TypeInfo:
		if len(fields) < 2 {
			return a, fmt.Errorf("usage: title | description [| link [| image [| from - to]]]")
		}
		a.Title, a.Description = fields[0], fields[1]
		a.Info = &model.InfoDetails{}
		if len(fields) >= 3 {
			a.Info.Link = fields[2]
		}
		if len(fields) >= 4 {
			a.Info.Image = fields[3]
		}
		if len(fields) >= 5 {
			from, to, err := ParseVisibleRange(fields[4])
			if err != nil {
				return a, err
			}
			a.VisibleFrom, a.VisibleTo = from, to
		}
	default:
		return a, fmt.Errorf("unknown announcement type %q", typ)
	}

	if a.Title == "" || a.Description == "" {
		return a, fmt.Errorf("title and description are required")
	}
	if a.VisibleFrom == "" || a.VisibleTo == "" {
		a.VisibleFrom, a.VisibleTo = schedule.DefaultVisibleRange(now)
	}
	return a, nil
}

// ParseVisibleRange parses "from - to" with dates in D.M.YYYY form. Dates
// are stored in the canonical zero-padded form regardless of how they were
// typed.
func ParseVisibleRange(s string) (from, to string, err error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("visible range must be \"from - to\", got %q", s)
	}
	fromDate, ok := schedule.ParseDate(strings.TrimSpace(parts[0]))
	if !ok {
		return "", "", fmt.Errorf("invalid date %q, expected D.M.YYYY", strings.TrimSpace(parts[0]))
	}
	toDate, ok := schedule.ParseDate(strings.TrimSpace(parts[1]))
	if !ok {
		return "", "", fmt.Errorf("invalid date %q, expected D.M.YYYY", strings.TrimSpace(parts[1]))
	}
	return schedule.FormatDate(fromDate), schedule.FormatDate(toDate), nil
}

// ParseEditArgs parses "/edit <id> | fields...". The remaining fields use
// the same layout as the add commands.
func ParseEditArgs(args string) (int64, string, error) {
	parts := strings.SplitN(args, "|", 2)
	id, err := ParseIDArg(parts[0])
	if err != nil {
		return 0, "", err
	}
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return 0, "", fmt.Errorf("usage: /edit <id> | fields")
	}
	return id, strings.TrimSpace(parts[1]), nil
}

// ParseIDArg extracts a numeric announcement ID from a command argument.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("announcement ID is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid announcement ID %q", s)
	}
	return id, nil
}

// ParseGenerateDate parses the optional /generate argument: D.M or D.M.YYYY,
// an incomplete date taking the current year. Empty falls back to the next
// Saturday.
func ParseGenerateDate(args string, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return schedule.DefaultPreviewDate(now), nil
	}
	if t, ok := schedule.ParseDate(s); ok {
		return t, nil
	}
	if t, ok := schedule.ParseDate(fmt.Sprintf("%s.%d", strings.TrimSuffix(s, "."), now.Year())); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected D.M or D.M.YYYY", s)
}

// ParseScheduleArgs parses "/schedule <Day> <HH:MM>".
func ParseScheduleArgs(args string) (model.ScheduleConfig, error) {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return model.ScheduleConfig{}, fmt.Errorf("usage: /schedule <day> <HH:MM>")
	}

	day, ok := schedule.ParseWeekday(canonicalWeekday(parts[0]))
	if !ok {
		return model.ScheduleConfig{}, fmt.Errorf("invalid weekday %q", parts[0])
	}

	if _, err := time.Parse("15:04", parts[1]); err != nil {
		return model.ScheduleConfig{}, fmt.Errorf("invalid time %q, expected HH:MM", parts[1])
	}

	return model.ScheduleConfig{Day: day.String(), Time: parts[1]}, nil
}

// ParseChatIDArg extracts a chat or user ID (possibly negative) from a
// command argument.
func ParseChatIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("ID is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ID %q", s)
	}
	return id, nil
}

// ParseCreateChannelArgs parses "/create_channel <emoji> <name...> [@mentions]".
// Mentions are accepted but not acted on: forum topics carry no per-user
// visibility, so scoping stays with chat membership.
func ParseCreateChannelArgs(args string) (emoji, name string, err error) {
	var words []string
	for _, p := range strings.Fields(args) {
		if strings.HasPrefix(p, "@") {
			continue
		}
		words = append(words, p)
	}
	if len(words) < 2 {
		return "", "", fmt.Errorf("usage: /create_channel <emoji> <name>")
	}
	return words[0], strings.Join(words[1:], "-"), nil
}

// ParseArchiveArgs parses "/archive <label> [reason...]".
func ParseArchiveArgs(args string) (label, reason string, err error) {
	parts := strings.Fields(args)
	if len(parts) < 1 {
		return "", "", fmt.Errorf("usage: /archive <label> [reason]")
	}
	return parts[0], strings.Join(parts[1:], " "), nil
}

func splitFields(args string) []string {
	raw := strings.Split(args, "|")
	fields := make([]string, 0, len(raw))
	for _, f := range raw {
		fields = append(fields, strings.TrimSpace(f))
	}
	return fields
}

func canonicalWeekday(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

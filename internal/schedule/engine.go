// Package schedule implements the visibility and ordering rules for
// announcements: window classification against a reference date and the
// two sort modes (listing and publish).
package schedule

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"community_bot/internal/model"
)

// DateLayout parses "DD.MM.YYYY" window bounds. Single-digit day and month
// are accepted as well.
const DateLayout = "2.1.2006"

const eventDateLayout = "2.1."

// Event dates carry no year; anchoring them all to one fixed year keeps
// December/January events comparable across the year boundary.
const anchorYear = 2000

// maxDate sorts unparseable event dates last.
var maxDate = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Class is the visibility classification of an announcement.
type Class int

// Classification outcomes.
const (
	ClassCurrent Class = iota
	ClassPlanned
	ClassExpired
)

func (c Class) String() string {
	switch c {
	case ClassCurrent:
		return "current"
	case ClassPlanned:
		return "planned"
	default:
		return "expired"
	}
}

// ParseDate parses a "DD.MM.YYYY" window bound. The second return value is
// false for anything unparseable; no input makes this fail loudly.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseEventDate extracts the leading "DD.MM." segment before the "//"
// separator and parses day and month only, with the year forced to a fixed
// anchor.
func ParseEventDate(s string) (time.Time, bool) {
	part := strings.TrimSpace(strings.SplitN(s, "//", 2)[0])
	t, err := time.Parse(eventDateLayout, part)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(anchorYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

// Classify reports whether a is current, planned, or expired at ref.
// The reference is truncated to its calendar date, so the window is
// inclusive on both ends. Unparseable bounds classify as expired.
func Classify(a model.Announcement, ref time.Time) Class {
	from, okFrom := ParseDate(a.VisibleFrom)
	to, okTo := ParseDate(a.VisibleTo)
	if !okFrom || !okTo {
		return ClassExpired
	}
	day := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case !day.Before(from) && !day.After(to):
		return ClassCurrent
	case day.Before(from):
		return ClassPlanned
	default:
		return ClassExpired
	}
}

// SortForListing orders announcements for display: current entries first,
// then everything else; INFO before EVENT within a group; then the
// type-dependent date key and finally creation time.
func SortForListing(anns []model.Announcement, ref time.Time) []model.Announcement {
	out := slices.Clone(anns)
	slices.SortStableFunc(out, func(x, y model.Announcement) int {
		if c := cmp.Compare(listRank(Classify(x, ref)), listRank(Classify(y, ref))); c != 0 {
			return c
		}
		return compareWithinGroup(x, y)
	})
	return out
}

// SortForPublish filters to announcements current at target and orders them
// for posting: every INFO before every EVENT, then the date key and creation
// time. Planned and expired entries are dropped, not grouped.
func SortForPublish(anns []model.Announcement, target time.Time) []model.Announcement {
	var out []model.Announcement
	for _, a := range anns {
		if Classify(a, target) == ClassCurrent {
			out = append(out, a)
		}
	}
	slices.SortStableFunc(out, compareWithinGroup)
	return out
}

func listRank(c Class) int {
	if c == ClassCurrent {
		return 0
	}
	return 1
}

func typeRank(a model.Announcement) int {
	if a.Type == model.TypeInfo {
		return 0
	}
	return 1
}

func compareWithinGroup(x, y model.Announcement) int {
	if c := cmp.Compare(typeRank(x), typeRank(y)); c != 0 {
		return c
	}
	kx, ky := dateKey(x), dateKey(y)
	if !kx.Equal(ky) {
		if kx.Before(ky) {
			return -1
		}
		return 1
	}
	return x.CreatedAt.Compare(y.CreatedAt)
}

// dateKey is the tertiary sort key: the visibility start for INFO and the
// anchored event date for EVENT. Unparseable INFO starts sort first,
// unparseable event dates last.
func dateKey(a model.Announcement) time.Time {
	if a.IsEvent() {
		var raw string
		if a.Event != nil {
			raw = a.Event.Datetime
		}
		t, ok := ParseEventDate(raw)
		if !ok {
			return maxDate
		}
		return t
	}
	t, ok := ParseDate(a.VisibleFrom)
	if !ok {
		return time.Time{}
	}
	return t
}

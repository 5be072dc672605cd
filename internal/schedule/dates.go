package schedule

import "time"

// NextWeekdayAt returns the next occurrence of day at the given wall-clock
// time, counting today if that moment is still ahead.
func NextWeekdayAt(now time.Time, day time.Weekday, hour, minute int) time.Time {
	offset := (int(day) - int(now.Weekday()) + 7) % 7
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()).
		AddDate(0, 0, offset)
	if t.Before(now) {
		t = t.AddDate(0, 0, 7)
	}
	return t
}

// DefaultPreviewDate is the date the generate command falls back to when no
// date is given: the next Saturday at 10:00.
func DefaultPreviewDate(now time.Time) time.Time {
	return NextWeekdayAt(now, time.Saturday, 10, 0)
}

// DefaultVisibleRange suggests a visibility window for a new announcement:
// the upcoming Friday through the Thursday after it.
func DefaultVisibleRange(now time.Time) (from, to string) {
	offset := (int(time.Friday) - int(now.Weekday()) + 7) % 7
	friday := now.AddDate(0, 0, offset)
	thursday := friday.AddDate(0, 0, 6)
	return FormatDate(friday), FormatDate(thursday)
}

// FormatDate renders a date in the zero-padded "DD.MM.YYYY" form
// announcements store. The expiry sweep relies on the fixed positions.
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// ParseWeekday resolves an English weekday name as stored in the publish
// schedule.
func ParseWeekday(name string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if d.String() == name {
			return d, true
		}
	}
	return 0, false
}

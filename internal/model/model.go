// Package model defines the domain types used across the application.
package model

import "time"

// Type discriminates the two announcement variants.
type Type string

// Supported announcement types.
const (
	TypeEvent Type = "event"
	TypeInfo  Type = "info"
)

// EventDetails holds the fields only EVENT announcements carry.
type EventDetails struct {
	// Datetime is the free-text event date, "DD.MM. // HH:MM".
	Datetime string
	// Day is a lowercase weekday name used to resolve a display icon.
	Day string
}

// InfoDetails holds the fields only INFO announcements carry.
type InfoDetails struct {
	Link  string
	Image string
}

// Announcement is a persisted content item with a visibility window.
// Exactly one of Event and Info is non-nil, matching Type.
type Announcement struct {
	ID          int64
	Type        Type
	Title       string
	Description string

	// VisibleFrom and VisibleTo are "DD.MM.YYYY" strings defining the
	// inclusive display window. Malformed values are tolerated and treated
	// as never visible.
	VisibleFrom string
	VisibleTo   string

	Event *EventDetails
	Info  *InfoDetails

	// CreatedAt is set once at insertion and used only as a sort tie-breaker.
	CreatedAt time.Time
}

// IsEvent reports whether the announcement is the EVENT variant.
func (a *Announcement) IsEvent() bool {
	return a.Type == TypeEvent
}

// ScheduleConfig is the singleton weekly auto-publish setting.
type ScheduleConfig struct {
	Day  string `json:"day"`
	Time string `json:"time"`
}

// Unset is the sentinel for a schedule day or time that was never configured.
const Unset = "unset"

// Configured reports whether both day and time have been set.
func (c ScheduleConfig) Configured() bool {
	return c.Day != Unset && c.Day != "" && c.Time != Unset && c.Time != ""
}

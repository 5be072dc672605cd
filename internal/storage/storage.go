// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"encoding/json"
	"time"

	"community_bot/internal/model"
)

// Storage is the interface for all persistence operations.
type Storage interface {
	CreateAnnouncement(ctx context.Context, a *model.Announcement) error
	GetAnnouncement(ctx context.Context, id int64) (*model.Announcement, error)
	ListAnnouncements(ctx context.Context) ([]model.Announcement, error)
	UpdateAnnouncement(ctx context.Context, a *model.Announcement) error
	DeleteAnnouncement(ctx context.Context, id int64) error

	// DeleteExpired removes announcements whose visible_to date is strictly
	// before today. Rows with an unparseable visible_to are left alone.
	DeleteExpired(ctx context.Context, today time.Time) (int64, error)

	GetSetting(ctx context.Context, key string) (json.RawMessage, bool, error)
	SetSetting(ctx context.Context, key string, value json.RawMessage) error

	Close() error
}

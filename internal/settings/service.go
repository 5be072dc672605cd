// Package settings provides typed access to the persisted bot settings.
// All reads resolve the stored value with a typed default and all writes go
// through the store and an in-memory cache under one lock, so there is a
// single authoritative source for every setting.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"community_bot/internal/model"
	"community_bot/internal/storage"
)

// Setting keys.
const (
	keySchedule       = "publish_schedule"
	keyScheduleActive = "schedule_active"
	keyReactionEmoji  = "reaction_emoji"
	keyAutoReact      = "auto_react_channels"
	keyAdminNotify    = "admin_notify_users"
)

// DefaultReactionEmoji is used until an emoji is configured.
const DefaultReactionEmoji = "✅"

// Service is the authoritative accessor for bot settings.
type Service struct {
	store storage.Storage

	mu    sync.Mutex
	cache map[string]json.RawMessage
}

// New creates a settings Service on top of the given store.
func New(store storage.Storage) *Service {
	return &Service{
		store: store,
		cache: make(map[string]json.RawMessage),
	}
}

// PublishSchedule returns the configured weekly publish day and time.
func (s *Service) PublishSchedule(ctx context.Context) (model.ScheduleConfig, error) {
	cfg := model.ScheduleConfig{Day: model.Unset, Time: model.Unset}
	err := s.get(ctx, keySchedule, &cfg)
	return cfg, err
}

// SetPublishSchedule stores the weekly publish day and time.
func (s *Service) SetPublishSchedule(ctx context.Context, cfg model.ScheduleConfig) error {
	return s.set(ctx, keySchedule, cfg)
}

// ScheduleActive reports whether auto-publishing is enabled.
func (s *Service) ScheduleActive(ctx context.Context) (bool, error) {
	var active bool
	err := s.get(ctx, keyScheduleActive, &active)
	return active, err
}

// SetScheduleActive enables or disables auto-publishing.
func (s *Service) SetScheduleActive(ctx context.Context, active bool) error {
	return s.set(ctx, keyScheduleActive, active)
}

// ReactionEmoji returns the tracked acknowledgement emoji.
func (s *Service) ReactionEmoji(ctx context.Context) (string, error) {
	emoji := DefaultReactionEmoji
	err := s.get(ctx, keyReactionEmoji, &emoji)
	return emoji, err
}

// SetReactionEmoji stores the tracked acknowledgement emoji.
func (s *Service) SetReactionEmoji(ctx context.Context, emoji string) error {
	return s.set(ctx, keyReactionEmoji, emoji)
}

// AutoReactChannels returns the channels where the bot reacts to every message.
func (s *Service) AutoReactChannels(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.get(ctx, keyAutoReact, &ids)
	return ids, err
}

// AddAutoReactChannel adds a channel to the auto-react set.
func (s *Service) AddAutoReactChannel(ctx context.Context, id int64) error {
	return s.addToList(ctx, keyAutoReact, id)
}

// RemoveAutoReactChannel removes a channel from the auto-react set.
func (s *Service) RemoveAutoReactChannel(ctx context.Context, id int64) error {
	return s.removeFromList(ctx, keyAutoReact, id)
}

// AdminNotifyUsers returns the users who receive reminders and error notices.
func (s *Service) AdminNotifyUsers(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.get(ctx, keyAdminNotify, &ids)
	return ids, err
}

// AddAdminNotifyUser adds a user to the notification list.
func (s *Service) AddAdminNotifyUser(ctx context.Context, id int64) error {
	return s.addToList(ctx, keyAdminNotify, id)
}

// RemoveAdminNotifyUser removes a user from the notification list.
func (s *Service) RemoveAdminNotifyUser(ctx context.Context, id int64) error {
	return s.removeFromList(ctx, keyAdminNotify, id)
}

// get resolves key into dst, leaving dst untouched (the typed default) when
// the key has never been set.
func (s *Service) get(ctx context.Context, key string, dst any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, key, dst)
}

func (s *Service) getLocked(ctx context.Context, key string, dst any) error {
	raw, ok := s.cache[key]
	if !ok {
		var err error
		raw, ok, err = s.store.GetSetting(ctx, key)
		if err != nil {
			return fmt.Errorf("read setting %q: %w", key, err)
		}
		if !ok {
			return nil
		}
		s.cache[key] = raw
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode setting %q: %w", key, err)
	}
	return nil
}

// set persists value and updates the cache atomically.
func (s *Service) set(ctx context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(ctx, key, value)
}

func (s *Service) setLocked(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %q: %w", key, err)
	}
	if err := s.store.SetSetting(ctx, key, raw); err != nil {
		return err
	}
	s.cache[key] = raw
	return nil
}

func (s *Service) addToList(ctx context.Context, key string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	if err := s.getLocked(ctx, key, &ids); err != nil {
		return err
	}
	if slices.Contains(ids, id) {
		return nil
	}
	return s.setLocked(ctx, key, append(ids, id))
}

func (s *Service) removeFromList(ctx context.Context, key string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	if err := s.getLocked(ctx, key, &ids); err != nil {
		return err
	}
	next := slices.DeleteFunc(ids, func(v int64) bool { return v == id })
	return s.setLocked(ctx, key, next)
}

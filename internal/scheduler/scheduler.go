// Package scheduler runs the periodic background checks: the nightly expiry
// sweep, the weekly auto-publish, and the day-before reminder.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"community_bot/internal/publisher"
	"community_bot/internal/settings"
	"community_bot/internal/storage"
)

// Publisher is the slice of the publish pipeline the scheduler drives.
type Publisher interface {
	Publish(ctx context.Context, target time.Time) (int, error)
	Preview(ctx context.Context, target time.Time) (string, int, error)
}

// Notifier delivers direct messages to the configured admin users.
type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, text string) error
}

// Scheduler periodically evaluates the time-based triggers.
type Scheduler struct {
	store    storage.Storage
	settings *settings.Service
	pub      Publisher
	notifier Notifier
	log      *slog.Logger

	tick time.Duration
	now  func() time.Time
	wg   sync.WaitGroup

	// Guards keyed by day or minute so a trigger fires at most once even
	// though the loop ticks more often than its resolution.
	lastSweepDay       string
	lastPublishMinute  string
	lastReminderMinute string
}

const (
	sweepHour      = 1
	reminderTime   = "20:00"
	minuteLayout   = "2006-01-02 15:04"
	sweepDayLayout = "2006-01-02"
)

// New creates a Scheduler checking every minute.
func New(store storage.Storage, svc *settings.Service, pub Publisher, notifier Notifier, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		settings: svc,
		pub:      pub,
		notifier: notifier,
		log:      log,
		tick:     1 * time.Minute,
		now:      time.Now,
	}
}

// SetTickInterval overrides the default 1-minute check interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// SetNowFunc overrides the clock (useful for testing).
func (s *Scheduler) SetNowFunc(now func() time.Time) {
	s.now = now
}

// Run starts the scheduler loop, blocking until ctx is cancelled. In-flight
// actions are waited for before it returns.
func (s *Scheduler) Run(ctx context.Context) {
	defer s.wg.Wait()

	s.checkAll(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAll(ctx)
		}
	}
}

func (s *Scheduler) checkAll(ctx context.Context) {
	now := s.now()
	s.checkExpirySweep(ctx, now)
	s.checkAutoPublish(ctx, now)
	s.checkReminder(ctx, now)
}

// dispatch runs a triggered action in the background so a slow send cannot
// delay the next tick. The caller sets its guard before dispatching, so the
// trigger evaluation itself stays single-goroutine.
func (s *Scheduler) dispatch(f func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		f()
	}()
}

// checkExpirySweep drops announcements past their visibility window once a
// day, in the configured sweep hour.
func (s *Scheduler) checkExpirySweep(ctx context.Context, now time.Time) {
	if now.Hour() != sweepHour {
		return
	}
	day := now.Format(sweepDayLayout)
	if day == s.lastSweepDay {
		return
	}
	s.lastSweepDay = day

	s.dispatch(func() {
		n, err := s.store.DeleteExpired(ctx, now)
		if err != nil {
			s.log.Error("expiry sweep", "error", err)
			return
		}
		if n > 0 {
			s.log.Info("expiry sweep removed announcements", "count", n)
		}
	})
}

// checkAutoPublish runs the publish pipeline when the configured weekly slot
// comes around and auto-publishing is active.
func (s *Scheduler) checkAutoPublish(ctx context.Context, now time.Time) {
	cfg, active, ok := s.scheduleSlot(ctx)
	if !ok || !active {
		return
	}
	if now.Weekday().String() != cfg.Day || now.Format("15:04") != cfg.Time {
		return
	}
	minute := now.Format(minuteLayout)
	if minute == s.lastPublishMinute {
		return
	}
	s.lastPublishMinute = minute

	s.dispatch(func() {
		count, err := s.pub.Publish(ctx, now)
		switch {
		case errors.Is(err, publisher.ErrNothingToPublish):
			s.log.Info("scheduled publish skipped, nothing current")
		case err != nil:
			s.log.Error("scheduled publish", "error", err)
			s.notifyAdmins(ctx, fmt.Sprintf("Scheduled publish failed: %v", err))
		default:
			s.log.Info("scheduled publish done", "count", count)
		}
	})
}

// checkReminder sends the configured admins a preview of tomorrow's
// announcement set the evening before the publish day.
func (s *Scheduler) checkReminder(ctx context.Context, now time.Time) {
	cfg, active, ok := s.scheduleSlot(ctx)
	if !ok || !active {
		return
	}
	tomorrow := now.AddDate(0, 0, 1)
	if tomorrow.Weekday().String() != cfg.Day || now.Format("15:04") != reminderTime {
		return
	}
	minute := now.Format(minuteLayout)
	if minute == s.lastReminderMinute {
		return
	}
	s.lastReminderMinute = minute

	s.dispatch(func() {
		text, count, err := s.pub.Preview(ctx, tomorrow)
		if err != nil {
			s.log.Error("reminder preview", "error", err)
			return
		}
		if count == 0 {
			s.log.Info("reminder skipped, nothing scheduled for tomorrow")
			return
		}

		msg := fmt.Sprintf("Announcements go out tomorrow (%d queued):\n\n%s", count, text)
		s.notifyAdmins(ctx, msg)
	})
}

// scheduleSlot reads the publish schedule settings. ok is false when the
// settings cannot be read or the schedule was never configured.
func (s *Scheduler) scheduleSlot(ctx context.Context) (cfg struct{ Day, Time string }, active, ok bool) {
	sc, err := s.settings.PublishSchedule(ctx)
	if err != nil {
		s.log.Error("read publish schedule", "error", err)
		return cfg, false, false
	}
	if !sc.Configured() {
		return cfg, false, false
	}
	act, err := s.settings.ScheduleActive(ctx)
	if err != nil {
		s.log.Error("read schedule active", "error", err)
		return cfg, false, false
	}
	cfg.Day, cfg.Time = sc.Day, sc.Time
	return cfg, act, true
}

func (s *Scheduler) notifyAdmins(ctx context.Context, text string) {
	users, err := s.settings.AdminNotifyUsers(ctx)
	if err != nil {
		s.log.Error("read notify users", "error", err)
		return
	}
	for _, id := range users {
		if err := s.notifier.NotifyUser(ctx, id, text); err != nil {
			s.log.Warn("notify user", "user", id, "error", err)
		}
	}
}

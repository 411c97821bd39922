package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hydrateMeAPI/internal/alarm"
	"hydrateMeAPI/internal/persistence"
	"hydrateMeAPI/internal/types/preference"
	"hydrateMeAPI/internal/types/reminder"
)

// ErrCannotSchedule is returned when alarm installation is attempted without
// the scheduling permission. Callers are expected to check CanScheduleAlarms
// on the app state first; hitting this error is a caller bug, not a
// retryable condition.
var ErrCannotSchedule = errors.New("cannot schedule reminders without permission")

// ReminderScheduler converts a reminder window into installed repeating
// alarms. It keeps no alarm registry of its own: the trigger set is
// recomputed from the reminder whenever alarms need to be found again, so
// programming and cancellation are idempotent.
type ReminderScheduler struct {
	alarms alarm.Scheduler
	prefs  persistence.PreferenceStore
	loc    *time.Location
	now    func() time.Time
}

func NewReminderScheduler(alarms alarm.Scheduler, prefs persistence.PreferenceStore, loc *time.Location) *ReminderScheduler {
	return &ReminderScheduler{
		alarms: alarms,
		prefs:  prefs,
		loc:    loc,
		now:    time.Now,
	}
}

// TriggerTimes is the pure core of the scheduler: every interval starting at
// start, inclusive of start, while the time stays <= end. A time landing
// exactly on end is included; the first time past end stops the sequence, so
// an interval that does not divide the window evenly just leaves a shorter
// final gap.
func TriggerTimes(r reminder.Reminder) []reminder.TimeOfDay {
	start := time.Duration(r.Start.Minutes()) * time.Minute
	end := time.Duration(r.End.Minutes()) * time.Minute

	var times []reminder.TimeOfDay
	for t := start; t <= end; t += r.Interval {
		times = append(times, reminder.TimeOfDayFromMinutes(int(t/time.Minute)))
	}
	return times
}

// SetAlarm programs the reminder: it first cancels whatever the persisted
// reminder had installed, then installs one repeating alarm per trigger time.
// A trigger time already past for today lands on tomorrow; every alarm then
// repeats daily.
func (s *ReminderScheduler) SetAlarm(ctx context.Context, r reminder.Reminder) error {
	if err := s.Clear(ctx); err != nil {
		return err
	}
	if !s.alarms.CanSchedule() {
		return ErrCannotSchedule
	}

	now := s.now().In(s.loc)
	nowTime := reminder.TimeOfDay{Hour: now.Hour(), Minute: now.Minute()}

	for _, t := range TriggerTimes(r) {
		first := t.On(now, s.loc)
		if t.Minutes() <= nowTime.Minutes() {
			first = t.On(now.AddDate(0, 0, 1), s.loc)
		}
		if err := s.alarms.InstallRepeating(t, first, 24*time.Hour); err != nil {
			return fmt.Errorf("failed to install alarm at %s: %w", t, err)
		}
	}
	return nil
}

// Clear cancels the alarms of the persisted reminder by regenerating its
// trigger set. With no persisted reminder there is nothing installed, so it
// is always safe to call redundantly.
func (s *ReminderScheduler) Clear(ctx context.Context) error {
	serialized, ok, err := s.prefs.Get(ctx, preference.KeyReminder)
	if err != nil {
		return fmt.Errorf("failed to read persisted reminder: %w", err)
	}
	if !ok {
		return nil
	}

	persisted, err := reminder.Decode(serialized)
	if err != nil || persisted == nil {
		return err
	}
	for _, t := range TriggerTimes(*persisted) {
		s.alarms.Cancel(t)
	}
	return nil
}

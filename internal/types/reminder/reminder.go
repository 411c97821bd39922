package reminder

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is a clock time with no date attached. Reminder triggers are
// times-of-day; the scheduler maps them onto concrete dates.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func TimeOfDayFromMinutes(minutes int) TimeOfDay {
	return TimeOfDay{Hour: minutes / 60, Minute: minutes % 60}
}

func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.Minutes() < other.Minutes()
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// On places the time-of-day on the given date in the given location.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour, t.Minute, 0, 0, loc)
}

// Reminder is a daily window plus an interval. A nil *Reminder means
// reminders are disabled.
type Reminder struct {
	Start    TimeOfDay     `json:"start"`
	End      TimeOfDay     `json:"end"`
	Interval time.Duration `json:"interval"`
}

// Validate rejects malformed reminders at the boundary where they are
// constructed or edited. The scheduler assumes a valid reminder.
func (r Reminder) Validate() error {
	if !r.Start.Before(r.End) {
		return fmt.Errorf("reminder start %s must be before end %s", r.Start, r.End)
	}
	if r.Interval < time.Minute {
		return fmt.Errorf("reminder interval %s must be at least one minute", r.Interval)
	}
	return nil
}

// Encode serializes the reminder for the preference store.
func (r Reminder) Encode() (string, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode reminder: %w", err)
	}
	return string(raw), nil
}

func Decode(serialized string) (*Reminder, error) {
	if serialized == "" {
		return nil, nil
	}
	var r Reminder
	if err := json.Unmarshal([]byte(serialized), &r); err != nil {
		return nil, fmt.Errorf("failed to decode reminder: %w", err)
	}
	return &r, nil
}

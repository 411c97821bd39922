package hydration

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Milliliters is the internal unit for all hydration math. Values are never
// negative; display conversion happens at the edge based on the user's unit
// preference.
type Milliliters int

const (
	Zero             Milliliters = 0
	DailyGoalDefault Milliliters = 2000
)

// Percent is todayTotal / dailyGoal. It is deliberately unclamped above 1.0 so
// the caller can tell how far past the goal the user went.
type Percent float64

func (p Percent) GoalReached() bool {
	return p >= 1.0
}

func (p Percent) Format() string {
	return fmt.Sprintf("%d%%", int(p*100))
}

// Progress guards against a zero goal before dividing. A goal of zero falls
// back to the default so Percent never turns into NaN or Inf.
func Progress(todayTotal, dailyGoal Milliliters) Percent {
	if dailyGoal <= 0 {
		dailyGoal = DailyGoalDefault
	}
	return Percent(float64(todayTotal) / float64(dailyGoal))
}

// Event is one logged intake. Immutable once created.
type Event struct {
	Amount   Milliliters `json:"amount" db:"amount"`
	LoggedAt time.Time   `json:"logged_at" db:"logged_at"`
}

// Day is the durable record of all hydration events for one calendar date.
// Goal is a snapshot of the daily goal at last write, not a live reference, so
// historical days keep the goal that was active when they were recorded.
type Day struct {
	ID     string      `json:"id" db:"id"`
	Date   Date        `json:"date" db:"date"`
	Events []Event     `json:"events" db:"events"`
	Goal   Milliliters `json:"goal" db:"goal"`
}

func NewDay(date Date, goal Milliliters) Day {
	return Day{
		ID:   uuid.New().String(),
		Date: date,
		Goal: goal,
	}
}

// Total sums the day's events.
func (d Day) Total() Milliliters {
	var total Milliliters
	for _, e := range d.Events {
		total += e.Amount
	}
	return total
}

// Append returns a copy of the day with one more event and the goal snapshot
// refreshed to the given value.
func (d Day) Append(amount Milliliters, loggedAt time.Time, goal Milliliters) Day {
	events := make([]Event, 0, len(d.Events)+1)
	events = append(events, d.Events...)
	events = append(events, Event{Amount: amount, LoggedAt: loggedAt})
	d.Events = events
	d.Goal = goal
	return d
}

// RemoveLast returns a copy of the day without its most recent event. Removing
// the only event leaves an empty-event day with id, date and goal preserved.
func (d Day) RemoveLast() Day {
	if len(d.Events) == 0 {
		return d
	}
	d.Events = d.Events[:len(d.Events)-1]
	return d
}

// Reset clears all events, keeping id, date and goal.
func (d Day) Reset() Day {
	d.Events = nil
	return d
}

// Date is a calendar date without a time component.
type Date struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// EpochDays is the number of whole days since 1970-01-01, used as the range
// key for day queries.
func (d Date) EpochDays() int {
	return int(d.Time(time.UTC).Unix() / 86400)
}

func DateFromEpochDays(days int) Date {
	return DateOf(time.Unix(int64(days)*86400, 0).UTC())
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

func (d Date) AddMonths(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, n, 0))
}

// MonthStart is the first day of the date's month.
func (d Date) MonthStart() Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

// WeekStart is the Monday of the ISO week containing the date.
func (d Date) WeekStart() Date {
	weekday := int(d.Time(time.UTC).Weekday()) // Sunday = 0
	daysToMonday := (weekday + 6) % 7          // ISO: Monday = 0
	return d.AddDays(-daysToMonday)
}

// DaysInMonth for the date's month, leap years included.
func (d Date) DaysInMonth() int {
	first := d.MonthStart().Time(time.UTC)
	return first.AddDate(0, 1, -1).Day()
}

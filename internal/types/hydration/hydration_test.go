package hydration

import (
	"testing"
	"time"
)

func TestProgress(t *testing.T) {
	day := NewDay(Date{Year: 2026, Month: 3, Day: 10}, 2000)
	day = day.Append(500, time.Now(), 2000)
	day = day.Append(300, time.Now(), 2000)

	if got := Progress(day.Total(), day.Goal); got != 0.40 {
		t.Errorf("Expected progress 0.40, got %v", got)
	}

	day = day.Append(1300, time.Now(), 2000)
	got := Progress(day.Total(), day.Goal)
	if got != 1.05 {
		t.Errorf("Expected progress 1.05, got %v", got)
	}
	if !got.GoalReached() {
		t.Error("Expected goal reached at 1.05")
	}
	if got.Format() != "105%" {
		t.Errorf("Expected '105%%', got %q", got.Format())
	}
}

func TestProgressZeroGoalFallsBack(t *testing.T) {
	if got := Progress(1000, 0); got != 0.50 {
		t.Errorf("Expected fallback to default goal, got %v", got)
	}
}

func TestDayRemoveLast(t *testing.T) {
	day := NewDay(Date{Year: 2026, Month: 3, Day: 10}, 2000)
	day = day.Append(250, time.Now(), 2000)
	day = day.Append(500, time.Now(), 2000)

	day = day.RemoveLast()
	if day.Total() != 250 {
		t.Errorf("Expected total 250 after removal, got %d", day.Total())
	}

	day = day.RemoveLast()
	if day.Total() != 0 {
		t.Errorf("Expected empty day, got total %d", day.Total())
	}
	if day.ID == "" || day.Goal != 2000 {
		t.Error("Removing the last event must keep id and goal")
	}

	// Removing from an empty day is a no-op.
	day = day.RemoveLast()
	if len(day.Events) != 0 {
		t.Errorf("Expected no events, got %d", len(day.Events))
	}
}

func TestDayReset(t *testing.T) {
	day := NewDay(Date{Year: 2026, Month: 3, Day: 10}, 1800)
	day = day.Append(300, time.Now(), 1800)
	day = day.Reset()

	if day.Total() != 0 {
		t.Errorf("Expected total 0 after reset, got %d", day.Total())
	}
	if day.Goal != 1800 {
		t.Errorf("Reset must keep the goal snapshot, got %d", day.Goal)
	}
}

func TestDateWeekStart(t *testing.T) {
	// 2026-03-11 is a Wednesday; its ISO week starts on Monday the 9th.
	wednesday := Date{Year: 2026, Month: 3, Day: 11}
	if got := wednesday.WeekStart(); got != (Date{Year: 2026, Month: 3, Day: 9}) {
		t.Errorf("Expected Monday 2026-03-09, got %s", got)
	}

	// A Monday is its own week start.
	monday := Date{Year: 2026, Month: 3, Day: 9}
	if got := monday.WeekStart(); got != monday {
		t.Errorf("Expected %s, got %s", monday, got)
	}

	// Sunday belongs to the week that started six days earlier.
	sunday := Date{Year: 2026, Month: 3, Day: 15}
	if got := sunday.WeekStart(); got != monday {
		t.Errorf("Expected %s, got %s", monday, got)
	}
}

func TestDateEpochDaysRoundTrip(t *testing.T) {
	date := Date{Year: 2026, Month: 8, Day: 31}
	if got := DateFromEpochDays(date.EpochDays()); got != date {
		t.Errorf("Expected %s, got %s", date, got)
	}

	if got := date.AddDays(1).EpochDays() - date.EpochDays(); got != 1 {
		t.Errorf("Expected consecutive epoch days, diff %d", got)
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		date Date
		want int
	}{
		{Date{Year: 2026, Month: 2, Day: 14}, 28},
		{Date{Year: 2028, Month: 2, Day: 1}, 29},
		{Date{Year: 2026, Month: 4, Day: 30}, 30},
		{Date{Year: 2026, Month: 12, Day: 25}, 31},
	}
	for _, c := range cases {
		if got := c.date.DaysInMonth(); got != c.want {
			t.Errorf("%s: expected %d days, got %d", c.date, c.want, got)
		}
	}
}

func TestDateAddMonths(t *testing.T) {
	jan := Date{Year: 2026, Month: 1, Day: 1}
	if got := jan.AddMonths(11); got != (Date{Year: 2026, Month: 12, Day: 1}) {
		t.Errorf("Expected 2026-12-01, got %s", got)
	}
}

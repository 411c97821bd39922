package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hydrateMeAPI/internal/persistence"
	"hydrateMeAPI/internal/types/chart"
	"hydrateMeAPI/internal/types/hydration"
	"hydrateMeAPI/internal/types/preference"
	"hydrateMeAPI/internal/types/reminder"
)

// recordingNotifier captures notification calls for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	shown     int
	cancelled int
	lastTotal hydration.Milliliters
}

func (n *recordingNotifier) ShowReminder(total hydration.Milliliters, progress hydration.Percent, quickAdd []preference.Cup, unit preference.LiquidUnit) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown++
	n.lastTotal = total
}

func (n *recordingNotifier) CancelReminder() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled++
}

func (n *recordingNotifier) Clear() {}

func (n *recordingNotifier) shownCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.shown
}

func (n *recordingNotifier) cancelledCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.cancelled
}

func (n *recordingNotifier) lastShownTotal() hydration.Milliliters {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastTotal
}

type storeFixture struct {
	store    *AppStore
	days     *persistence.MemoryDayStore
	prefs    *persistence.MemoryPreferenceStore
	alarms   *fakeAlarms
	notifier *recordingNotifier
	now      time.Time
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()

	f := &storeFixture{
		days:     persistence.NewMemoryDayStore(),
		prefs:    persistence.NewMemoryPreferenceStore(),
		alarms:   newFakeAlarms(),
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}

	scheduler := NewReminderScheduler(f.alarms, f.prefs, time.UTC)
	scheduler.now = func() time.Time { return f.now }

	store, err := NewAppStore(context.Background(), AppStoreConfig{
		Days:       f.days,
		Prefs:      f.prefs,
		Scheduler:  scheduler,
		Aggregator: NewAggregationService(f.days),
		Notifier:   f.notifier,
		Alarms:     f.alarms,
		Location:   time.UTC,
		Now:        func() time.Time { return f.now },
	})
	if err != nil {
		t.Fatalf("Failed to build store: %v", err)
	}
	f.store = store
	store.Start()
	t.Cleanup(store.Stop)
	return f
}

// waitFor polls the store until the predicate holds or the deadline passes.
func waitFor(t *testing.T, store *AppStore, desc string, pred func(AppState) bool) AppState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state := store.State()
		if pred(state) {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s; state %+v", desc, store.State())
	return AppState{}
}

func TestInitialStateDefaults(t *testing.T) {
	f := newStoreFixture(t)

	state := f.store.State()
	if state.DailyGoal != hydration.DailyGoalDefault {
		t.Errorf("Expected default goal, got %d", state.DailyGoal)
	}
	if state.Theme != preference.ThemeSystem {
		t.Errorf("Expected system theme, got %s", state.Theme)
	}
	if state.LiquidUnit != preference.UnitMilliliters {
		t.Errorf("Expected milliliters, got %s", state.LiquidUnit)
	}
	if state.TodayHydration != 0 {
		t.Errorf("Expected empty day, got %d", state.TodayHydration)
	}
	if !state.CanScheduleAlarms {
		t.Error("Expected scheduling permission by default")
	}
}

func TestAddAndRemoveHydration(t *testing.T) {
	f := newStoreFixture(t)

	f.store.Dispatch(AddHydration{Value: 500})
	f.store.Dispatch(AddHydration{Value: 300})
	waitFor(t, f.store, "total 800", func(s AppState) bool { return s.TodayHydration == 800 })

	// The intake persisted under today's date.
	day, err := f.days.Day(context.Background(), hydration.DateOf(f.now))
	if err != nil {
		t.Fatalf("Expected today's record, got %v", err)
	}
	if day.Total() != 800 || len(day.Events) != 2 {
		t.Errorf("Expected persisted total 800 in 2 events, got %d in %d", day.Total(), len(day.Events))
	}

	f.store.Dispatch(RemoveHydration{})
	waitFor(t, f.store, "total 500", func(s AppState) bool { return s.TodayHydration == 500 })

	if f.notifier.cancelledCount() == 0 {
		t.Error("Expected logging intake to cancel a pending reminder")
	}
}

func TestAddHydrationRejectsNonPositive(t *testing.T) {
	f := newStoreFixture(t)

	f.store.Dispatch(AddHydration{Value: 0})
	f.store.Dispatch(AddHydration{Value: -100})
	f.store.Dispatch(AddHydration{Value: 200})
	waitFor(t, f.store, "total 200", func(s AppState) bool { return s.TodayHydration == 200 })

	day, _ := f.days.Day(context.Background(), hydration.DateOf(f.now))
	if len(day.Events) != 1 {
		t.Errorf("Expected a single persisted event, got %d", len(day.Events))
	}
}

func TestSetDailyGoalRewritesTodaySnapshot(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	f.store.Dispatch(AddHydration{Value: 400})
	waitFor(t, f.store, "total 400", func(s AppState) bool { return s.TodayHydration == 400 })

	f.store.Dispatch(SetDailyGoal{Value: 2500})
	waitFor(t, f.store, "goal 2500", func(s AppState) bool { return s.DailyGoal == 2500 })

	day, err := f.days.Day(ctx, hydration.DateOf(f.now))
	if err != nil {
		t.Fatalf("Expected today's record, got %v", err)
	}
	if day.Goal != 2500 {
		t.Errorf("Expected today's goal snapshot rewritten to 2500, got %d", day.Goal)
	}

	if value, ok, _ := f.prefs.Get(ctx, preference.KeyDailyGoal); !ok || value != "2500" {
		t.Errorf("Expected persisted goal '2500', got %q ok=%v", value, ok)
	}
}

func TestRemoveHydrationRestoresStoredGoal(t *testing.T) {
	f := newStoreFixture(t)

	f.store.Dispatch(AddHydration{Value: 400})
	f.store.Dispatch(SetDailyGoal{Value: 3000})
	waitFor(t, f.store, "goal 3000", func(s AppState) bool { return s.DailyGoal == 3000 })

	// Removal folds the day's stored goal snapshot back into the state.
	f.store.Dispatch(RemoveHydration{})
	state := waitFor(t, f.store, "total 0", func(s AppState) bool { return s.TodayHydration == 0 })
	if state.DailyGoal != 3000 {
		t.Errorf("Expected goal 3000 from the day snapshot, got %d", state.DailyGoal)
	}
}

func TestSetReminderProgramsAndPersists(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	r := &reminder.Reminder{
		Start:    reminder.TimeOfDay{Hour: 8},
		End:      reminder.TimeOfDay{Hour: 22},
		Interval: 90 * time.Minute,
	}
	f.store.Dispatch(SetReminder{Value: r})
	waitFor(t, f.store, "reminder set", func(s AppState) bool { return s.Reminder != nil })

	if f.alarms.count() != 10 {
		t.Errorf("Expected 10 installed alarms, got %d", f.alarms.count())
	}
	if _, ok, _ := f.prefs.Get(ctx, preference.KeyReminder); !ok {
		t.Error("Expected reminder persisted")
	}

	f.store.Dispatch(SetReminder{Value: nil})
	waitFor(t, f.store, "reminder cleared", func(s AppState) bool { return s.Reminder == nil })

	if f.alarms.count() != 0 {
		t.Errorf("Expected all alarms cancelled, got %d", f.alarms.count())
	}
	if _, ok, _ := f.prefs.Get(ctx, preference.KeyReminder); ok {
		t.Error("Expected reminder preference deleted")
	}
}

func TestSetReminderWithoutPermissionDoesNotPersist(t *testing.T) {
	f := newStoreFixture(t)
	f.alarms.setCanSchedule(false)

	r := &reminder.Reminder{
		Start:    reminder.TimeOfDay{Hour: 8},
		End:      reminder.TimeOfDay{Hour: 22},
		Interval: time.Hour,
	}
	f.store.Dispatch(SetReminder{Value: r})

	// Dispatch a follow-up action and wait for it, so the reminder action has
	// definitely been processed before asserting.
	f.store.Dispatch(SetStepCount{Value: 1})
	waitFor(t, f.store, "steps applied", func(s AppState) bool { return s.StepsRecord == 1 })

	if _, ok, _ := f.prefs.Get(context.Background(), preference.KeyReminder); ok {
		t.Error("Expected no persisted reminder when programming fails")
	}
	if f.alarms.count() != 0 {
		t.Errorf("Expected no installed alarms, got %d", f.alarms.count())
	}
}

func TestShowReminderNotificationGating(t *testing.T) {
	f := newStoreFixture(t)

	f.store.Dispatch(AddHydration{Value: 500})
	waitFor(t, f.store, "total 500", func(s AppState) bool { return s.TodayHydration == 500 })

	// Cool day, sedentary: a non-forced reminder stays silent.
	f.store.Dispatch(SetTemperature{Value: 15.0})
	f.store.Dispatch(SetStepCount{Value: 100})
	f.store.Dispatch(ShowReminderNotification{})
	f.store.Dispatch(SetStepCount{Value: 101})
	waitFor(t, f.store, "steps 101", func(s AppState) bool { return s.StepsRecord == 101 })
	if f.notifier.shownCount() != 0 {
		t.Fatalf("Expected no notification, got %d", f.notifier.shownCount())
	}

	// Forced always fires.
	f.store.Dispatch(ShowReminderNotification{Forced: true})
	f.store.Dispatch(SetStepCount{Value: 102})
	waitFor(t, f.store, "steps 102", func(s AppState) bool { return s.StepsRecord == 102 })
	if f.notifier.shownCount() != 1 {
		t.Fatalf("Expected forced notification, got %d", f.notifier.shownCount())
	}
	if got := f.notifier.lastShownTotal(); got != 500 {
		t.Errorf("Expected notification total 500, got %d", got)
	}

	// Warm weather unlocks unforced reminders.
	f.store.Dispatch(SetTemperature{Value: 25.0})
	f.store.Dispatch(ShowReminderNotification{})
	f.store.Dispatch(SetStepCount{Value: 103})
	waitFor(t, f.store, "steps 103", func(s AppState) bool { return s.StepsRecord == 103 })
	if f.notifier.shownCount() != 2 {
		t.Errorf("Expected warm-weather notification, got %d", f.notifier.shownCount())
	}

	// So does an active day, independent of temperature.
	f.store.Dispatch(SetTemperature{Value: 10.0})
	f.store.Dispatch(SetStepCount{Value: 5000})
	f.store.Dispatch(ShowReminderNotification{})
	f.store.Dispatch(SetHeight{Value: "180"})
	waitFor(t, f.store, "height set", func(s AppState) bool { return s.Height == "180" })
	if f.notifier.shownCount() != 3 {
		t.Errorf("Expected step-count notification, got %d", f.notifier.shownCount())
	}
}

func TestResetToday(t *testing.T) {
	f := newStoreFixture(t)

	f.store.Dispatch(AddHydration{Value: 600})
	waitFor(t, f.store, "total 600", func(s AppState) bool { return s.TodayHydration == 600 })

	f.store.Dispatch(ResetToday{})
	waitFor(t, f.store, "total 0", func(s AppState) bool { return s.TodayHydration == 0 })

	day, err := f.days.Day(context.Background(), hydration.DateOf(f.now))
	if err != nil {
		t.Fatalf("Expected today's record to survive the reset, got %v", err)
	}
	if len(day.Events) != 0 {
		t.Errorf("Expected no events after reset, got %d", len(day.Events))
	}
}

func TestDeleteAllResetsEverything(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	f.store.Dispatch(AddHydration{Value: 500})
	f.store.Dispatch(SetDailyGoal{Value: 3000})
	f.store.Dispatch(SetTheme{Value: preference.ThemeDark})
	waitFor(t, f.store, "theme dark", func(s AppState) bool { return s.Theme == preference.ThemeDark })

	f.store.Dispatch(DeleteAll{})
	state := waitFor(t, f.store, "defaults restored", func(s AppState) bool {
		return s.DailyGoal == hydration.DailyGoalDefault && s.Theme == preference.ThemeSystem
	})
	if state.TodayHydration != 0 {
		t.Errorf("Expected hydration wiped, got %d", state.TodayHydration)
	}

	if _, err := f.days.Day(ctx, hydration.DateOf(f.now)); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("Expected day history cleared, got %v", err)
	}
	if _, ok, _ := f.prefs.Get(ctx, preference.KeyDailyGoal); ok {
		t.Error("Expected preferences cleared")
	}
}

func TestSubscribeStreamsDistinctStates(t *testing.T) {
	f := newStoreFixture(t)

	states, cancel := f.store.Subscribe()
	defer cancel()

	// The subscription primes with the current state.
	select {
	case first := <-states:
		if first.TodayHydration != 0 {
			t.Errorf("Expected primed empty state, got total %d", first.TodayHydration)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for primed state")
	}

	f.store.Dispatch(AddHydration{Value: 250})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case state := <-states:
			if state.TodayHydration == 250 {
				return
			}
		case <-deadline:
			t.Fatal("Timed out waiting for updated snapshot")
		}
	}
}

func TestLoadChartData(t *testing.T) {
	f := newStoreFixture(t)

	f.store.Dispatch(AddHydration{Value: 400})
	f.store.Dispatch(LoadChartData{Range: chart.RangeWeekly})
	state := waitFor(t, f.store, "chart loaded", func(s AppState) bool { return len(s.ChartData) == 7 })

	var sum hydration.Milliliters
	for _, b := range state.ChartData {
		sum += b.Total
	}
	if sum != 400 {
		t.Errorf("Expected weekly chart to sum 400, got %d", sum)
	}
}

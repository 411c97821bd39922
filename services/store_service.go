package services

import (
	"context"
	"errors"
	"log"
	"reflect"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"hydrateMeAPI/internal/alarm"
	"hydrateMeAPI/internal/persistence"
	"hydrateMeAPI/internal/types/chart"
	"hydrateMeAPI/internal/types/hydration"
	"hydrateMeAPI/internal/types/preference"
	"hydrateMeAPI/internal/types/reminder"
)

var storeActionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "store_actions_total",
		Help: "Total number of actions processed by the app store",
	},
	[]string{"action"},
)

// InitStoreMetrics registers the store metrics. Call this from main.go
func InitStoreMetrics() {
	prometheus.MustRegister(storeActionsTotal)
}

// Notifier is the notification port: how reminder notifications reach the
// user. The store composes the content; delivery lives behind this interface.
type Notifier interface {
	ShowReminder(todayTotal hydration.Milliliters, progress hydration.Percent, quickAdd []preference.Cup, unit preference.LiquidUnit)
	CancelReminder()
	Clear()
}

// AppState is the single snapshot every presentation surface consumes. It is
// a pure projection: each field derives from persisted state plus "now", and
// holds no authority beyond caching the last computation.
type AppState struct {
	DailyGoal         hydration.Milliliters `json:"daily_goal"`
	TodayHydration    hydration.Milliliters `json:"today_hydration"`
	Reminder          *reminder.Reminder    `json:"reminder,omitempty"`
	Theme             preference.Theme      `json:"theme"`
	CanScheduleAlarms bool                  `json:"can_schedule_alarms"`
	DefaultCups       []preference.Cup      `json:"default_cups"`
	SelectedCups      []preference.Cup      `json:"selected_cups"`
	AppInForeground   bool                  `json:"app_in_foreground"`
	LiquidUnit        preference.LiquidUnit `json:"liquid_unit"`
	Temperature       *float64              `json:"temperature,omitempty"`
	Height            string                `json:"height,omitempty"`
	Weight            string                `json:"weight,omitempty"`
	StepsRecord       int                   `json:"steps_record"`
	ChartRange        chart.RangeType       `json:"chart_range,omitempty"`
	ChartData         chart.Series          `json:"chart_data,omitempty"`
}

// HydrationProgress is today's total against the goal, unclamped above 1.0.
func (s AppState) HydrationProgress() hydration.Percent {
	return hydration.Progress(s.TodayHydration, s.DailyGoal)
}

func (s AppState) DailyGoalReached() bool {
	return s.HydrationProgress().GoalReached()
}

// AllCups is the sorted distinct union of default and selected cups.
func (s AppState) AllCups() []preference.Cup {
	return preference.MergeCups(s.DefaultCups, s.SelectedCups)
}

// Action is the closed command vocabulary of the store. Every mutation path
// goes through one of these variants; the reducer switches over them at a
// single site.
type Action interface {
	isAction()
	name() string
}

type SetDailyGoal struct{ Value hydration.Milliliters }
type AddHydration struct{ Value hydration.Milliliters }
type RemoveHydration struct{}
type SetReminder struct{ Value *reminder.Reminder }
type RestartReminder struct{}
type ShowReminderNotification struct{ Forced bool }
type SetTheme struct{ Value preference.Theme }
type SetSelectedCups struct{ Value []preference.Cup }
type SetLiquidUnit struct{ Value preference.LiquidUnit }
type SetAppInForeground struct{ Value bool }
type SetTemperature struct{ Value float64 }
type SetStepCount struct{ Value int }
type SetHeight struct{ Value string }
type SetWeight struct{ Value string }
type DeleteAll struct{}
type ResetToday struct{}
type LoadChartData struct{ Range chart.RangeType }

func (SetDailyGoal) isAction()             {}
func (AddHydration) isAction()             {}
func (RemoveHydration) isAction()          {}
func (SetReminder) isAction()              {}
func (RestartReminder) isAction()          {}
func (ShowReminderNotification) isAction() {}
func (SetTheme) isAction()                 {}
func (SetSelectedCups) isAction()          {}
func (SetLiquidUnit) isAction()            {}
func (SetAppInForeground) isAction()       {}
func (SetTemperature) isAction()           {}
func (SetStepCount) isAction()             {}
func (SetHeight) isAction()                {}
func (SetWeight) isAction()                {}
func (DeleteAll) isAction()                {}
func (ResetToday) isAction()               {}
func (LoadChartData) isAction()            {}

func (SetDailyGoal) name() string             { return "set_daily_goal" }
func (AddHydration) name() string             { return "add_hydration" }
func (RemoveHydration) name() string          { return "remove_hydration" }
func (SetReminder) name() string              { return "set_reminder" }
func (RestartReminder) name() string          { return "restart_reminder" }
func (ShowReminderNotification) name() string { return "show_reminder_notification" }
func (SetTheme) name() string                 { return "set_theme" }
func (SetSelectedCups) name() string          { return "set_selected_cups" }
func (SetLiquidUnit) name() string            { return "set_liquid_unit" }
func (SetAppInForeground) name() string       { return "set_app_in_foreground" }
func (SetTemperature) name() string           { return "set_temperature" }
func (SetStepCount) name() string             { return "set_step_count" }
func (SetHeight) name() string                { return "set_height" }
func (SetWeight) name() string                { return "set_weight" }
func (DeleteAll) name() string                { return "delete_all" }
func (ResetToday) name() string               { return "reset_today" }
func (LoadChartData) name() string            { return "load_chart_data" }

// AppStore reduces actions into the single application state. One goroutine
// owns the state: actions and externally-driven preference updates are
// serialized through its mailbox in arrival order, so per-day
// read-modify-write never races and readers always see a fully-applied
// snapshot.
type AppStore struct {
	days       persistence.DayStore
	prefs      persistence.PreferenceStore
	scheduler  *ReminderScheduler
	aggregator *AggregationService
	notifier   Notifier
	alarms     alarm.Scheduler
	rollover   <-chan hydration.Date
	loc        *time.Location
	now        func() time.Time

	mu    sync.RWMutex
	state AppState

	actions chan Action
	stop    chan struct{}
	done    chan struct{}

	subMu  sync.Mutex
	subs   map[int]chan AppState
	nextID int

	// rebindable day watch, touched only by the run loop
	dayCh     <-chan *hydration.Day
	dayCancel func()
}

// AppStoreConfig carries the store's collaborators. Everything is injected;
// there is no package-level singleton.
type AppStoreConfig struct {
	Days       persistence.DayStore
	Prefs      persistence.PreferenceStore
	Scheduler  *ReminderScheduler
	Aggregator *AggregationService
	Notifier   Notifier
	Alarms     alarm.Scheduler
	Rollover   <-chan hydration.Date
	Location   *time.Location
	Now        func() time.Time
}

// NewAppStore loads the initial snapshot from the persistence ports. This is
// the only point where the store blocks on I/O; after construction every read
// is served from the in-memory snapshot.
func NewAppStore(ctx context.Context, cfg AppStoreConfig) (*AppStore, error) {
	s := &AppStore{
		days:       cfg.Days,
		prefs:      cfg.Prefs,
		scheduler:  cfg.Scheduler,
		aggregator: cfg.Aggregator,
		notifier:   cfg.Notifier,
		alarms:     cfg.Alarms,
		rollover:   cfg.Rollover,
		loc:        cfg.Location,
		now:        cfg.Now,
		actions:    make(chan Action, 1024),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		subs:       make(map[int]chan AppState),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}

	initial, err := s.loadInitialState(ctx)
	if err != nil {
		return nil, err
	}
	s.state = initial
	return s, nil
}

func (s *AppStore) loadInitialState(ctx context.Context) (AppState, error) {
	state := AppState{
		DailyGoal:       hydration.DailyGoalDefault,
		Theme:           preference.ThemeSystem,
		LiquidUnit:      preference.UnitMilliliters,
		AppInForeground: true,
	}

	if raw, ok, err := s.prefs.Get(ctx, preference.KeyDailyGoal); err != nil {
		return state, err
	} else if ok {
		state.DailyGoal = decodeGoal(raw)
	}

	if raw, ok, err := s.prefs.Get(ctx, preference.KeyLiquidUnit); err != nil {
		return state, err
	} else if ok {
		state.LiquidUnit = preference.LiquidUnitOf(raw)
	}
	state.DefaultCups = preference.DefaultCups(state.LiquidUnit)

	if raw, ok, err := s.prefs.Get(ctx, preference.KeySelectedCups); err != nil {
		return state, err
	} else if ok {
		state.SelectedCups = decodeCups(raw)
	}
	if len(state.SelectedCups) == 0 {
		state.SelectedCups = preference.DefaultSelectedCups(state.LiquidUnit)
	}

	if raw, ok, err := s.prefs.Get(ctx, preference.KeyReminder); err != nil {
		return state, err
	} else if ok {
		r, err := reminder.Decode(raw)
		if err != nil {
			log.Printf("Ignoring malformed persisted reminder: %v", err)
		} else {
			state.Reminder = r
		}
	}

	if raw, ok, err := s.prefs.Get(ctx, preference.KeyTheme); err != nil {
		return state, err
	} else if ok {
		state.Theme = preference.ThemeOf(raw)
	}

	if raw, _, err := s.prefs.Get(ctx, preference.KeyHeight); err != nil {
		return state, err
	} else {
		state.Height = raw
	}
	if raw, _, err := s.prefs.Get(ctx, preference.KeyWeight); err != nil {
		return state, err
	} else {
		state.Weight = raw
	}

	day, err := s.days.Day(ctx, s.today())
	if err == nil {
		state.TodayHydration = day.Total()
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return state, err
	}

	state.CanScheduleAlarms = s.alarms.CanSchedule()
	return state, nil
}

// Start spawns the single writer goroutine and subscribes to the live
// persistence and permission streams.
func (s *AppStore) Start() {
	goalCh, goalCancel := s.prefs.Watch(preference.KeyDailyGoal)
	reminderCh, reminderCancel := s.prefs.Watch(preference.KeyReminder)
	themeCh, themeCancel := s.prefs.Watch(preference.KeyTheme)
	unitCh, unitCancel := s.prefs.Watch(preference.KeyLiquidUnit)
	cupsCh, cupsCancel := s.prefs.Watch(preference.KeySelectedCups)
	heightCh, heightCancel := s.prefs.Watch(preference.KeyHeight)
	weightCh, weightCancel := s.prefs.Watch(preference.KeyWeight)
	permCh, permCancel := s.alarms.WatchCanSchedule()
	s.dayCh, s.dayCancel = s.days.WatchDay(s.today())

	go func() {
		defer close(s.done)
		defer func() {
			goalCancel()
			reminderCancel()
			themeCancel()
			unitCancel()
			cupsCancel()
			heightCancel()
			weightCancel()
			permCancel()
			if s.dayCancel != nil {
				s.dayCancel()
			}
		}()

		for {
			select {
			case action := <-s.actions:
				storeActionsTotal.WithLabelValues(action.name()).Inc()
				s.reduce(action)
			case raw := <-goalCh:
				s.update(func(st AppState) AppState {
					st.DailyGoal = decodeGoal(raw)
					return st
				})
			case raw := <-reminderCh:
				r, err := reminder.Decode(raw)
				if err != nil {
					log.Printf("Ignoring malformed reminder update: %v", err)
					continue
				}
				s.update(func(st AppState) AppState {
					st.Reminder = r
					return st
				})
			case raw := <-themeCh:
				s.update(func(st AppState) AppState {
					st.Theme = preference.ThemeOf(raw)
					return st
				})
			case raw := <-unitCh:
				s.update(func(st AppState) AppState {
					st.LiquidUnit = preference.LiquidUnitOf(raw)
					st.DefaultCups = preference.DefaultCups(st.LiquidUnit)
					if len(st.SelectedCups) == 0 {
						st.SelectedCups = preference.DefaultSelectedCups(st.LiquidUnit)
					}
					return st
				})
			case raw := <-cupsCh:
				s.update(func(st AppState) AppState {
					st.SelectedCups = decodeCups(raw)
					if len(st.SelectedCups) == 0 {
						st.SelectedCups = preference.DefaultSelectedCups(st.LiquidUnit)
					}
					return st
				})
			case raw := <-heightCh:
				s.update(func(st AppState) AppState {
					st.Height = raw
					return st
				})
			case raw := <-weightCh:
				s.update(func(st AppState) AppState {
					st.Weight = raw
					return st
				})
			case allowed := <-permCh:
				s.update(func(st AppState) AppState {
					st.CanScheduleAlarms = allowed
					return st
				})
			case day := <-s.dayCh:
				s.update(func(st AppState) AppState {
					if day == nil {
						st.TodayHydration = hydration.Zero
					} else {
						st.TodayHydration = day.Total()
					}
					return st
				})
			case date := <-s.rollover:
				s.rebindDayWatch(date)
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop shuts the writer goroutine down. Actions still queued in the mailbox
// are dropped; an action being applied always runs to completion first.
func (s *AppStore) Stop() {
	close(s.stop)
	<-s.done
	log.Println("App store stopped")
}

// Dispatch enqueues an action and returns immediately. Actions are processed
// strictly in arrival order by the single writer.
func (s *AppStore) Dispatch(action Action) {
	select {
	case s.actions <- action:
	case <-s.stop:
	}
}

// State returns the latest fully-applied snapshot, never blocking on I/O.
func (s *AppStore) State() AppState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe returns an ordered stream of snapshots starting with the current
// one. Consecutive equal states are not re-delivered. A slow subscriber loses
// oldest snapshots, never ordering.
func (s *AppStore) Subscribe() (<-chan AppState, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextID++
	id := s.nextID
	ch := make(chan AppState, 16)
	ch <- s.State()
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// update applies a pure merge, replaces the snapshot atomically, and
// publishes to subscribers only when the state actually changed.
func (s *AppStore) update(merge func(AppState) AppState) {
	s.mu.Lock()
	old := s.state
	next := merge(old)
	changed := !reflect.DeepEqual(old, next)
	if changed {
		s.state = next
	}
	s.mu.Unlock()

	if !changed {
		return
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- next:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- next
		}
	}
}

func (s *AppStore) today() hydration.Date {
	return hydration.DateOf(s.now().In(s.loc))
}

func (s *AppStore) rebindDayWatch(date hydration.Date) {
	if s.dayCancel != nil {
		s.dayCancel()
	}
	s.dayCh, s.dayCancel = s.days.WatchDay(date)
}

// reduce is the single site where every action variant is handled.
// Persistence writes are best-effort: a failed write is logged and the
// already-applied optimistic state stands.
func (s *AppStore) reduce(action Action) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch a := action.(type) {
	case SetDailyGoal:
		s.reduceSetDailyGoal(ctx, a.Value)
	case AddHydration:
		s.reduceAddHydration(ctx, a.Value)
	case RemoveHydration:
		s.reduceRemoveHydration(ctx)
	case SetReminder:
		s.reduceSetReminder(ctx, a.Value)
	case RestartReminder:
		s.reduceRestartReminder(ctx)
	case ShowReminderNotification:
		s.reduceShowReminderNotification(ctx, a.Forced)
	case SetTheme:
		s.setPreference(ctx, preference.KeyTheme, string(a.Value))
		s.update(func(st AppState) AppState {
			st.Theme = a.Value
			return st
		})
	case SetSelectedCups:
		cups := append([]preference.Cup{}, a.Value...)
		preference.SortCups(cups)
		s.setPreference(ctx, preference.KeySelectedCups, encodeCups(cups))
		s.update(func(st AppState) AppState {
			if len(cups) == 0 {
				st.SelectedCups = preference.DefaultSelectedCups(st.LiquidUnit)
			} else {
				st.SelectedCups = cups
			}
			return st
		})
	case SetLiquidUnit:
		s.setPreference(ctx, preference.KeyLiquidUnit, string(a.Value))
		s.update(func(st AppState) AppState {
			st.LiquidUnit = a.Value
			st.DefaultCups = preference.DefaultCups(a.Value)
			return st
		})
	case SetAppInForeground:
		s.update(func(st AppState) AppState {
			st.AppInForeground = a.Value
			return st
		})
	case SetTemperature:
		value := a.Value
		s.update(func(st AppState) AppState {
			st.Temperature = &value
			return st
		})
	case SetStepCount:
		s.update(func(st AppState) AppState {
			st.StepsRecord = a.Value
			return st
		})
	case SetHeight:
		s.setPreference(ctx, preference.KeyHeight, a.Value)
		s.update(func(st AppState) AppState {
			st.Height = a.Value
			return st
		})
	case SetWeight:
		s.setPreference(ctx, preference.KeyWeight, a.Value)
		s.update(func(st AppState) AppState {
			st.Weight = a.Value
			return st
		})
	case DeleteAll:
		s.reduceDeleteAll(ctx)
	case ResetToday:
		s.reduceResetToday(ctx)
	case LoadChartData:
		s.reduceLoadChartData(ctx, a.Range)
	default:
		log.Printf("Unhandled action %T", action)
	}
}

func (s *AppStore) reduceSetDailyGoal(ctx context.Context, goal hydration.Milliliters) {
	if goal <= 0 {
		log.Printf("Rejecting non-positive daily goal %d", goal)
		return
	}

	s.setPreference(ctx, preference.KeyDailyGoal, encodeGoal(goal))
	s.update(func(st AppState) AppState {
		st.DailyGoal = goal
		return st
	})

	// Today's stored record snapshots the goal active at last write.
	day, err := s.days.Day(ctx, s.today())
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			log.Printf("Failed to read today for goal snapshot: %v", err)
		}
		return
	}
	day.Goal = goal
	if err := s.days.SetDay(ctx, day); err != nil {
		log.Printf("Failed to update today's goal snapshot: %v", err)
	}
}

func (s *AppStore) reduceAddHydration(ctx context.Context, amount hydration.Milliliters) {
	if amount <= 0 {
		log.Printf("Rejecting non-positive hydration amount %d", amount)
		return
	}

	// Logging intake answers the reminder, so take the notification down.
	s.notifier.CancelReminder()

	today := s.today()
	goal := s.State().DailyGoal

	day, err := s.days.Day(ctx, today)
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			log.Printf("Failed to read today's record: %v", err)
			return
		}
		day = hydration.NewDay(today, goal)
	}
	day = day.Append(amount, s.now(), goal)

	s.update(func(st AppState) AppState {
		st.TodayHydration = day.Total()
		return st
	})

	if err := s.days.SetDay(ctx, day); err != nil {
		log.Printf("Failed to persist hydration event: %v", err)
	}
}

func (s *AppStore) reduceRemoveHydration(ctx context.Context) {
	day, err := s.days.Day(ctx, s.today())
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			log.Printf("Failed to read today's record: %v", err)
		}
		return
	}

	day = day.RemoveLast()
	s.update(func(st AppState) AppState {
		st.TodayHydration = day.Total()
		st.DailyGoal = day.Goal
		return st
	})

	if err := s.days.SetDay(ctx, day); err != nil {
		log.Printf("Failed to persist hydration removal: %v", err)
	}
}

func (s *AppStore) reduceSetReminder(ctx context.Context, r *reminder.Reminder) {
	if r != nil {
		if err := r.Validate(); err != nil {
			log.Printf("Rejecting invalid reminder: %v", err)
			return
		}
		if err := s.scheduler.SetAlarm(ctx, *r); err != nil {
			log.Printf("Failed to program reminder: %v", err)
			return
		}
		encoded, err := r.Encode()
		if err != nil {
			log.Printf("Failed to encode reminder: %v", err)
			return
		}
		s.setPreference(ctx, preference.KeyReminder, encoded)
	} else {
		if err := s.scheduler.Clear(ctx); err != nil {
			log.Printf("Failed to clear reminder alarms: %v", err)
		}
		if err := s.prefs.Delete(ctx, preference.KeyReminder); err != nil {
			log.Printf("Failed to delete reminder preference: %v", err)
		}
	}

	s.update(func(st AppState) AppState {
		st.Reminder = r
		return st
	})
}

func (s *AppStore) reduceRestartReminder(ctx context.Context) {
	raw, ok, err := s.prefs.Get(ctx, preference.KeyReminder)
	if err != nil || !ok {
		if err != nil {
			log.Printf("Failed to read persisted reminder: %v", err)
		}
		return
	}
	r, err := reminder.Decode(raw)
	if err != nil || r == nil {
		return
	}
	if err := s.scheduler.SetAlarm(ctx, *r); err != nil {
		log.Printf("Failed to restart reminder: %v", err)
	}
}

func (s *AppStore) reduceShowReminderNotification(ctx context.Context, forced bool) {
	state := s.State()

	// Unforced reminders only fire when extra intake actually matters: warm
	// weather or an active day.
	warm := state.Temperature != nil && *state.Temperature > 20.0
	active := state.StepsRecord >= 2000
	if !forced && !warm && !active {
		return
	}

	total := hydration.Zero
	if day, err := s.days.Day(ctx, s.today()); err == nil {
		total = day.Total()
	} else if !errors.Is(err, persistence.ErrNotFound) {
		log.Printf("Failed to read today for reminder: %v", err)
	}

	cups := state.SelectedCups
	if len(cups) == 0 {
		cups = preference.DefaultSelectedCups(state.LiquidUnit)
	}

	s.notifier.ShowReminder(total, hydration.Progress(total, state.DailyGoal), cups, state.LiquidUnit)
}

func (s *AppStore) reduceDeleteAll(ctx context.Context) {
	if err := s.scheduler.Clear(ctx); err != nil {
		log.Printf("Failed to clear reminder alarms: %v", err)
	}
	if err := s.prefs.Clear(ctx); err != nil {
		log.Printf("Failed to clear preferences: %v", err)
	}
	if err := s.days.Clear(ctx); err != nil {
		log.Printf("Failed to clear hydration history: %v", err)
	}
	s.notifier.Clear()

	s.update(func(st AppState) AppState {
		unit := preference.UnitMilliliters
		return AppState{
			DailyGoal:         hydration.DailyGoalDefault,
			Theme:             preference.ThemeSystem,
			LiquidUnit:        unit,
			DefaultCups:       preference.DefaultCups(unit),
			SelectedCups:      preference.DefaultSelectedCups(unit),
			AppInForeground:   st.AppInForeground,
			CanScheduleAlarms: st.CanScheduleAlarms,
		}
	})
}

func (s *AppStore) reduceResetToday(ctx context.Context) {
	day, err := s.days.Day(ctx, s.today())
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			log.Printf("Failed to read today's record: %v", err)
		}
		return
	}

	day = day.Reset()
	s.update(func(st AppState) AppState {
		st.TodayHydration = hydration.Zero
		return st
	})

	if err := s.days.SetDay(ctx, day); err != nil {
		log.Printf("Failed to persist today reset: %v", err)
	}
}

func (s *AppStore) reduceLoadChartData(ctx context.Context, rangeType chart.RangeType) {
	series, err := s.aggregator.LoadSeries(ctx, rangeType, s.today())
	if err != nil {
		log.Printf("Failed to load chart data: %v", err)
		return
	}
	s.update(func(st AppState) AppState {
		st.ChartRange = rangeType
		st.ChartData = series
		return st
	})
}

func (s *AppStore) setPreference(ctx context.Context, key, value string) {
	if err := s.prefs.Set(ctx, key, value); err != nil {
		log.Printf("Failed to persist preference %s: %v", key, err)
	}
}

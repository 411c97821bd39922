package alarm

import (
	"log"
	"sync"
	"time"

	"hydrateMeAPI/internal/types/reminder"
)

// Scheduler is the external alarm primitive: fire a callback at instant T,
// repeating every P. Installed alarms are keyed by their time-of-day so a
// caller that can recompute the times can cancel without a persisted
// registry.
type Scheduler interface {
	// CanSchedule reports whether installing alarms is currently permitted.
	CanSchedule() bool
	// WatchCanSchedule streams the permission flag, current value first.
	WatchCanSchedule() (<-chan bool, func())
	// InstallRepeating installs (or replaces) the alarm keyed by the
	// time-of-day, first firing at first and then every period.
	InstallRepeating(at reminder.TimeOfDay, first time.Time, period time.Duration) error
	// Cancel removes the alarm keyed by the time-of-day, if installed.
	Cancel(at reminder.TimeOfDay)
}

// ClockScheduler runs alarms on in-process timers. Fire is invoked from the
// alarm's own goroutine; the callback is expected to hand off to the store's
// dispatch queue rather than do work inline.
type ClockScheduler struct {
	mu        sync.Mutex
	fire      func(at reminder.TimeOfDay)
	installed map[int]chan struct{}

	permMu   sync.Mutex
	canSched bool
	watchers map[int]chan bool
	nextID   int
}

func NewClockScheduler(fire func(at reminder.TimeOfDay)) *ClockScheduler {
	return &ClockScheduler{
		fire:      fire,
		installed: make(map[int]chan struct{}),
		canSched:  true,
		watchers:  make(map[int]chan bool),
	}
}

func (s *ClockScheduler) CanSchedule() bool {
	s.permMu.Lock()
	defer s.permMu.Unlock()
	return s.canSched
}

// SetCanSchedule flips the permission flag and notifies watchers. The process
// has no OS permission prompt of its own; this mirrors whatever the platform
// reports.
func (s *ClockScheduler) SetCanSchedule(allowed bool) {
	s.permMu.Lock()
	defer s.permMu.Unlock()
	if s.canSched == allowed {
		return
	}
	s.canSched = allowed
	for _, ch := range s.watchers {
		select {
		case ch <- allowed:
		default:
		}
	}
}

func (s *ClockScheduler) WatchCanSchedule() (<-chan bool, func()) {
	s.permMu.Lock()
	defer s.permMu.Unlock()

	s.nextID++
	id := s.nextID
	ch := make(chan bool, 4)
	ch <- s.canSched
	s.watchers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.permMu.Lock()
			defer s.permMu.Unlock()
			delete(s.watchers, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *ClockScheduler) InstallRepeating(at reminder.TimeOfDay, first time.Time, period time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Replace semantics: a second install for the same time-of-day stops the
	// previous alarm goroutine first.
	if stop, ok := s.installed[at.Minutes()]; ok {
		close(stop)
	}

	stop := make(chan struct{})
	s.installed[at.Minutes()] = stop

	go s.run(at, first, period, stop)
	return nil
}

func (s *ClockScheduler) run(at reminder.TimeOfDay, first time.Time, period time.Duration, stop chan struct{}) {
	next := first
	for {
		wait := time.Until(next)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			s.fire(at)
			next = next.Add(period)
		case <-stop:
			timer.Stop()
			return
		}
	}
}

func (s *ClockScheduler) Cancel(at reminder.TimeOfDay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stop, ok := s.installed[at.Minutes()]; ok {
		close(stop)
		delete(s.installed, at.Minutes())
	}
}

// InstalledCount is used by monitoring to gauge the live alarm set.
func (s *ClockScheduler) InstalledCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.installed)
}

// Stop cancels every installed alarm.
func (s *ClockScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, stop := range s.installed {
		close(stop)
		delete(s.installed, key)
	}
	log.Println("Alarm scheduler stopped")
}

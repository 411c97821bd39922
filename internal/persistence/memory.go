package persistence

import (
	"context"
	"sync"

	"hydrateMeAPI/internal/types/hydration"
)

// MemoryDayStore is the in-process implementation of DayStore, used by tests
// and local development. Same contract as the postgres store, keyed by epoch
// day.
type MemoryDayStore struct {
	mu   sync.Mutex
	days map[int]hydration.Day
	hub  *hub[*hydration.Day]
}

func NewMemoryDayStore() *MemoryDayStore {
	return &MemoryDayStore{
		days: make(map[int]hydration.Day),
		hub:  newHub[*hydration.Day](),
	}
}

func (s *MemoryDayStore) Day(ctx context.Context, date hydration.Date) (hydration.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day, ok := s.days[date.EpochDays()]
	if !ok {
		return hydration.Day{}, ErrNotFound
	}
	return day, nil
}

func (s *MemoryDayStore) WatchDay(date hydration.Date) (<-chan *hydration.Day, func()) {
	s.mu.Lock()
	var current *hydration.Day
	if day, ok := s.days[date.EpochDays()]; ok {
		current = &day
	}
	s.mu.Unlock()
	return s.hub.subscribe(date.String(), current)
}

func (s *MemoryDayStore) SetDay(ctx context.Context, day hydration.Day) error {
	s.mu.Lock()
	s.days[day.Date.EpochDays()] = day
	s.mu.Unlock()

	stored := day
	s.hub.publish(day.Date.String(), &stored)
	return nil
}

func (s *MemoryDayStore) GetRange(ctx context.Context, startEpochDay, endEpochDay, limit int) ([]hydration.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var days []hydration.Day
	for epochDay := startEpochDay; epochDay <= endEpochDay; epochDay++ {
		if day, ok := s.days[epochDay]; ok {
			days = append(days, day)
			if len(days) == limit {
				break
			}
		}
	}
	return days, nil
}

func (s *MemoryDayStore) Delete(ctx context.Context, date hydration.Date) error {
	s.mu.Lock()
	delete(s.days, date.EpochDays())
	s.mu.Unlock()

	s.hub.publish(date.String(), nil)
	return nil
}

func (s *MemoryDayStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.days = make(map[int]hydration.Day)
	s.mu.Unlock()

	for _, topic := range s.hub.topics() {
		s.hub.publish(topic, nil)
	}
	return nil
}

// MemoryPreferenceStore is the in-process implementation of PreferenceStore.
type MemoryPreferenceStore struct {
	mu     sync.Mutex
	values map[string]string
	hub    *hub[string]
}

func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{
		values: make(map[string]string),
		hub:    newHub[string](),
	}
}

func (s *MemoryPreferenceStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *MemoryPreferenceStore) Watch(key string) (<-chan string, func()) {
	s.mu.Lock()
	current := s.values[key]
	s.mu.Unlock()
	return s.hub.subscribe(key, current)
}

func (s *MemoryPreferenceStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()

	s.hub.publish(key, value)
	return nil
}

func (s *MemoryPreferenceStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()

	s.hub.publish(key, "")
	return nil
}

func (s *MemoryPreferenceStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.values = make(map[string]string)
	s.mu.Unlock()

	for _, topic := range s.hub.topics() {
		s.hub.publish(topic, "")
	}
	return nil
}

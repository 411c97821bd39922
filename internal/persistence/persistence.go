package persistence

import (
	"context"
	"errors"

	"hydrateMeAPI/internal/types/hydration"
)

// ErrNotFound is returned by point reads when no record exists for the key.
var ErrNotFound = errors.New("record not found")

// DayStore owns the durable per-date hydration records. Writes go through
// full-record upserts; there is no partial-field update, callers do
// read-modify-write and must serialize per-date mutations themselves.
type DayStore interface {
	// Day returns the record for the date, or ErrNotFound.
	Day(ctx context.Context, date hydration.Date) (hydration.Day, error)
	// WatchDay streams the record for the date, current value first (nil when
	// absent), then on every change until cancel is called.
	WatchDay(date hydration.Date) (<-chan *hydration.Day, func())
	// SetDay upserts the full record keyed by its date.
	SetDay(ctx context.Context, day hydration.Day) error
	// GetRange returns records with startEpochDay <= epochDay <= endEpochDay,
	// ordered by date ascending, at most limit rows. Callers must treat a
	// full page as possibly incomplete.
	GetRange(ctx context.Context, startEpochDay, endEpochDay, limit int) ([]hydration.Day, error)
	// Delete removes the record for one date. Missing records are not an error.
	Delete(ctx context.Context, date hydration.Date) error
	// Clear removes every record.
	Clear(ctx context.Context) error
}

// PreferenceStore owns one record per named setting.
type PreferenceStore interface {
	// Get returns the value and whether it is set.
	Get(ctx context.Context, key string) (string, bool, error)
	// Watch streams the value for the key, current value first (empty string
	// when unset), then on every change until cancel is called.
	Watch(key string) (<-chan string, func())
	Set(ctx context.Context, key, value string) error
	// Delete unsets one key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// Clear unsets every key.
	Clear(ctx context.Context) error
}

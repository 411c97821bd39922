package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hydrateMeAPI/internal/types/hydration"
)

// EnsureSchema creates the hydration tables if they are missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	schema := `
	CREATE TABLE IF NOT EXISTS hydration_day (
		id UUID PRIMARY KEY,
		epoch_day INTEGER UNIQUE NOT NULL,
		goal_milliliters INTEGER NOT NULL,
		events JSONB NOT NULL DEFAULT '[]'
	);
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// PostgresDayStore keeps one row per calendar date, events as a jsonb array in
// insertion order. Watch fanout is in-process: this service is the only
// writer, so every change passes through SetDay/Delete/Clear.
type PostgresDayStore struct {
	db  *pgxpool.Pool
	hub *hub[*hydration.Day]
}

func NewPostgresDayStore(db *pgxpool.Pool) *PostgresDayStore {
	return &PostgresDayStore{db: db, hub: newHub[*hydration.Day]()}
}

func (s *PostgresDayStore) Day(ctx context.Context, date hydration.Date) (hydration.Day, error) {
	query := `
	SELECT id, epoch_day, goal_milliliters, events
	FROM hydration_day
	WHERE epoch_day = $1
	`

	return s.scanDay(s.db.QueryRow(ctx, query, date.EpochDays()))
}

func (s *PostgresDayStore) scanDay(row pgx.Row) (hydration.Day, error) {
	var day hydration.Day
	var epochDay int
	var goal int
	var rawEvents []byte

	err := row.Scan(&day.ID, &epochDay, &goal, &rawEvents)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return hydration.Day{}, ErrNotFound
		}
		return hydration.Day{}, fmt.Errorf("failed to get day: %w", err)
	}

	day.Date = hydration.DateFromEpochDays(epochDay)
	day.Goal = hydration.Milliliters(goal)
	if err := json.Unmarshal(rawEvents, &day.Events); err != nil {
		return hydration.Day{}, fmt.Errorf("failed to decode events: %w", err)
	}
	return day, nil
}

func (s *PostgresDayStore) WatchDay(date hydration.Date) (<-chan *hydration.Day, func()) {
	var current *hydration.Day
	day, err := s.Day(context.Background(), date)
	if err == nil {
		current = &day
	} else if !errors.Is(err, ErrNotFound) {
		log.Printf("WatchDay: failed to load current day %s: %v", date, err)
	}
	return s.hub.subscribe(date.String(), current)
}

func (s *PostgresDayStore) SetDay(ctx context.Context, day hydration.Day) error {
	rawEvents, err := json.Marshal(day.Events)
	if err != nil {
		return fmt.Errorf("failed to encode events: %w", err)
	}
	if day.Events == nil {
		rawEvents = []byte("[]")
	}

	query := `
	INSERT INTO hydration_day (id, epoch_day, goal_milliliters, events)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (epoch_day)
	DO UPDATE SET
		goal_milliliters = $3,
		events = $4
	`

	_, err = s.db.Exec(ctx, query, day.ID, day.Date.EpochDays(), int(day.Goal), rawEvents)
	if err != nil {
		return fmt.Errorf("failed to upsert day: %w", err)
	}

	stored := day
	s.hub.publish(day.Date.String(), &stored)
	return nil
}

func (s *PostgresDayStore) GetRange(ctx context.Context, startEpochDay, endEpochDay, limit int) ([]hydration.Day, error) {
	query := `
	SELECT id, epoch_day, goal_milliliters, events
	FROM hydration_day
	WHERE epoch_day >= $1 AND epoch_day <= $2
	ORDER BY epoch_day
	LIMIT $3
	`

	rows, err := s.db.Query(ctx, query, startEpochDay, endEpochDay, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch day range: %w", err)
	}
	defer rows.Close()

	var days []hydration.Day
	for rows.Next() {
		day, err := s.scanDay(rows)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating day rows: %w", err)
	}

	return days, nil
}

func (s *PostgresDayStore) Delete(ctx context.Context, date hydration.Date) error {
	query := `DELETE FROM hydration_day WHERE epoch_day = $1`

	_, err := s.db.Exec(ctx, query, date.EpochDays())
	if err != nil {
		return fmt.Errorf("failed to delete day: %w", err)
	}

	s.hub.publish(date.String(), nil)
	return nil
}

func (s *PostgresDayStore) Clear(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM hydration_day`)
	if err != nil {
		return fmt.Errorf("failed to clear days: %w", err)
	}

	for _, topic := range s.hub.topics() {
		s.hub.publish(topic, nil)
	}
	return nil
}

// PostgresPreferenceStore keeps one row per named setting.
type PostgresPreferenceStore struct {
	db  *pgxpool.Pool
	hub *hub[string]
}

func NewPostgresPreferenceStore(db *pgxpool.Pool) *PostgresPreferenceStore {
	return &PostgresPreferenceStore{db: db, hub: newHub[string]()}
}

func (s *PostgresPreferenceStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(ctx, `SELECT value FROM preferences WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresPreferenceStore) Watch(key string) (<-chan string, func()) {
	current, _, err := s.Get(context.Background(), key)
	if err != nil {
		log.Printf("Watch: failed to load current preference %s: %v", key, err)
	}
	return s.hub.subscribe(key, current)
}

func (s *PostgresPreferenceStore) Set(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO preferences (key, value)
	VALUES ($1, $2)
	ON CONFLICT (key)
	DO UPDATE SET value = $2
	`

	_, err := s.db.Exec(ctx, query, key, value)
	if err != nil {
		return fmt.Errorf("failed to set preference %s: %w", key, err)
	}

	s.hub.publish(key, value)
	return nil
}

func (s *PostgresPreferenceStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM preferences WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}

	s.hub.publish(key, "")
	return nil
}

func (s *PostgresPreferenceStore) Clear(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DELETE FROM preferences`)
	if err != nil {
		return fmt.Errorf("failed to clear preferences: %w", err)
	}

	for _, topic := range s.hub.topics() {
		s.hub.publish(topic, "")
	}
	return nil
}

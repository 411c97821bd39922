package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hydrateMeAPI/internal/alarm"
	"hydrateMeAPI/internal/persistence"
	"hydrateMeAPI/internal/types/hydration"
	"hydrateMeAPI/internal/types/reminder"
	"hydrateMeAPI/services"
)

func newTestStore(t *testing.T) (*services.AppStore, *services.AggregationService) {
	t.Helper()

	days := persistence.NewMemoryDayStore()
	prefs := persistence.NewMemoryPreferenceStore()
	alarms := alarm.NewClockScheduler(func(reminder.TimeOfDay) {})
	t.Cleanup(alarms.Stop)

	aggregation := services.NewAggregationService(days)
	store, err := services.NewAppStore(context.Background(), services.AppStoreConfig{
		Days:       days,
		Prefs:      prefs,
		Scheduler:  services.NewReminderScheduler(alarms, prefs, time.UTC),
		Aggregator: aggregation,
		Notifier:   services.NoopNotifier{},
		Alarms:     alarms,
		Location:   time.UTC,
	})
	if err != nil {
		t.Fatalf("Failed to build store: %v", err)
	}
	store.Start()
	t.Cleanup(store.Stop)
	return store, aggregation
}

func waitForState(t *testing.T, store *services.AppStore, desc string, pred func(services.AppState) bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if pred(store.State()) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", desc)
}

func TestAddHydrationEndpoint(t *testing.T) {
	store, _ := newTestStore(t)
	handler := NewHydrationHandler(store)

	req := httptest.NewRequest("POST", "/api/v1/hydration", strings.NewReader(`{"milliliters": 250}`))
	rr := httptest.NewRecorder()
	handler.AddHydration(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", rr.Code, rr.Body.String())
	}
	waitForState(t, store, "total 250", func(s services.AppState) bool { return s.TodayHydration == 250 })
}

func TestAddHydrationRejectsBadInput(t *testing.T) {
	store, _ := newTestStore(t)
	handler := NewHydrationHandler(store)

	cases := []string{
		`{"milliliters": 0}`,
		`{"milliliters": -50}`,
		`not json`,
	}
	for _, body := range cases {
		req := httptest.NewRequest("POST", "/api/v1/hydration", strings.NewReader(body))
		rr := httptest.NewRecorder()
		handler.AddHydration(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("Body %q: expected 400, got %d", body, rr.Code)
		}
	}
}

func TestSetReminderEndpointValidation(t *testing.T) {
	store, _ := newTestStore(t)
	handler := NewReminderHandler(store)

	// Inverted window never reaches the store.
	req := httptest.NewRequest("PUT", "/api/v1/reminder",
		strings.NewReader(`{"start": "22:00", "end": "08:00", "interval_minutes": 90}`))
	rr := httptest.NewRecorder()
	handler.SetReminder(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for inverted window, got %d", rr.Code)
	}

	req = httptest.NewRequest("PUT", "/api/v1/reminder",
		strings.NewReader(`{"start": "25:99", "end": "08:00", "interval_minutes": 90}`))
	rr = httptest.NewRecorder()
	handler.SetReminder(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for out-of-range time, got %d", rr.Code)
	}

	req = httptest.NewRequest("PUT", "/api/v1/reminder",
		strings.NewReader(`{"start": "08:00", "end": "22:00", "interval_minutes": 90}`))
	rr = httptest.NewRecorder()
	handler.SetReminder(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("Expected 202 for valid reminder, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Triggers []reminder.TimeOfDay `json:"triggers"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Triggers) != 10 {
		t.Errorf("Expected 10 trigger times, got %d", len(resp.Triggers))
	}

	waitForState(t, store, "reminder set", func(s services.AppState) bool { return s.Reminder != nil })
}

func TestGetStateEndpoint(t *testing.T) {
	store, _ := newTestStore(t)
	handler := NewStateHandler(store, nil, time.UTC)

	req := httptest.NewRequest("GET", "/api/v1/state", nil)
	rr := httptest.NewRecorder()
	handler.GetState(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["daily_goal"] != float64(2000) {
		t.Errorf("Expected default goal 2000, got %v", resp["daily_goal"])
	}
	if _, ok := resp["hydration_progress"]; !ok {
		t.Error("Expected hydration_progress in the response")
	}

	// all_cups is the sorted distinct union of defaults and selection; with
	// the default selection it collapses to the six default sizes.
	cups, ok := resp["all_cups"].([]interface{})
	if !ok {
		t.Fatal("Expected all_cups in the response")
	}
	if len(cups) != 6 {
		t.Errorf("Expected 6 merged cups, got %d", len(cups))
	}
}

func TestGetChartEndpoint(t *testing.T) {
	store, aggregation := newTestStore(t)
	handler := NewStateHandler(store, aggregation, time.UTC)

	req := httptest.NewRequest("GET", "/api/v1/chart?range=weekly", nil)
	rr := httptest.NewRecorder()
	handler.GetChart(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Range  string            `json:"range"`
		Series []json.RawMessage `json:"series"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Range != "weekly" || len(resp.Series) != 7 {
		t.Errorf("Expected 7 weekly buckets, got range=%s len=%d", resp.Range, len(resp.Series))
	}

	req = httptest.NewRequest("GET", "/api/v1/chart?range=hourly", nil)
	rr = httptest.NewRecorder()
	handler.GetChart(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown range, got %d", rr.Code)
	}
}

func TestGetChartDefaultsToHandlerLocation(t *testing.T) {
	store, aggregation := newTestStore(t)

	// A zone far ahead of UTC: its "today" regularly differs from the
	// server's, so the default window must come from the handler's location.
	east := time.FixedZone("east", 14*3600)
	handler := NewStateHandler(store, aggregation, east)

	req := httptest.NewRequest("GET", "/api/v1/chart?range=weekly", nil)
	rr := httptest.NewRecorder()
	handler.GetChart(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Series []struct {
			Date hydration.Date `json:"date"`
		} `json:"series"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Series) != 7 {
		t.Fatalf("Expected 7 buckets, got %d", len(resp.Series))
	}

	want := hydration.DateOf(time.Now().In(east)).WeekStart()
	if resp.Series[0].Date != want {
		t.Errorf("Expected week start %s in the handler's zone, got %s", want, resp.Series[0].Date)
	}
}

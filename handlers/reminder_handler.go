package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"hydrateMeAPI/internal/types/reminder"
	"hydrateMeAPI/services"
)

// ReminderHandler edits the reminder schedule. Malformed reminders are
// rejected here, before anything reaches the scheduler.
type ReminderHandler struct {
	store *services.AppStore
}

func NewReminderHandler(store *services.AppStore) *ReminderHandler {
	return &ReminderHandler{
		store: store,
	}
}

type setReminderRequest struct {
	Start           string `json:"start"`
	End             string `json:"end"`
	IntervalMinutes int    `json:"interval_minutes"`
}

func parseTimeOfDay(raw string) (reminder.TimeOfDay, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(raw, "%d:%d", &hour, &minute); err != nil {
		return reminder.TimeOfDay{}, fmt.Errorf("failed to parse time of day %q: %w", raw, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return reminder.TimeOfDay{}, fmt.Errorf("time of day %q out of range", raw)
	}
	return reminder.TimeOfDay{Hour: hour, Minute: minute}, nil
}

func (h *ReminderHandler) SetReminder(w http.ResponseWriter, r *http.Request) {
	var req setReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	start, err := parseTimeOfDay(req.Start)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid start time, expected HH:MM")
		return
	}
	end, err := parseTimeOfDay(req.End)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid end time, expected HH:MM")
		return
	}

	rem := reminder.Reminder{
		Start:    start,
		End:      end,
		Interval: time.Duration(req.IntervalMinutes) * time.Minute,
	}
	if err := rem.Validate(); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.store.Dispatch(services.SetReminder{Value: &rem})
	respondWithJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":   "queued",
		"triggers": services.TriggerTimes(rem),
	})
}

func (h *ReminderHandler) DisableReminder(w http.ResponseWriter, r *http.Request) {
	h.store.Dispatch(services.SetReminder{Value: nil})
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *ReminderHandler) RestartReminder(w http.ResponseWriter, r *http.Request) {
	h.store.Dispatch(services.RestartReminder{})
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

type showReminderRequest struct {
	Forced bool `json:"forced"`
}

func (h *ReminderHandler) ShowReminder(w http.ResponseWriter, r *http.Request) {
	var req showReminderRequest
	if r.Body != nil {
		// An empty body means a non-forced reminder.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	h.store.Dispatch(services.ShowReminderNotification{Forced: req.Forced})
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

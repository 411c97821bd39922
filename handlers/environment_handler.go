package handlers

import (
	"encoding/json"
	"net/http"

	"hydrateMeAPI/services"
)

// EnvironmentHandler ingests the signals that gate non-forced reminders:
// ambient temperature, step counts, and whether a client is foregrounded.
type EnvironmentHandler struct {
	store *services.AppStore
}

func NewEnvironmentHandler(store *services.AppStore) *EnvironmentHandler {
	return &EnvironmentHandler{
		store: store,
	}
}

type temperatureRequest struct {
	Celsius float64 `json:"celsius"`
}

func (h *EnvironmentHandler) SetTemperature(w http.ResponseWriter, r *http.Request) {
	var req temperatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.store.Dispatch(services.SetTemperature{Value: req.Celsius})
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

type stepCountRequest struct {
	Steps int `json:"steps"`
}

func (h *EnvironmentHandler) SetStepCount(w http.ResponseWriter, r *http.Request) {
	var req stepCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Steps < 0 {
		respondWithError(w, http.StatusBadRequest, "steps must not be negative")
		return
	}

	h.store.Dispatch(services.SetStepCount{Value: req.Steps})
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

type foregroundRequest struct {
	Foreground bool `json:"foreground"`
}

func (h *EnvironmentHandler) SetForeground(w http.ResponseWriter, r *http.Request) {
	var req foregroundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.store.Dispatch(services.SetAppInForeground{Value: req.Foreground})
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"hydrateMeAPI/internal/types/hydration"
	"hydrateMeAPI/internal/types/preference"
	"hydrateMeAPI/services"
)

// HydrationHandler translates the HTTP surface into store actions. Every
// mutation goes through Dispatch; handlers never touch persistence directly.
type HydrationHandler struct {
	store *services.AppStore
}

func NewHydrationHandler(store *services.AppStore) *HydrationHandler {
	return &HydrationHandler{
		store: store,
	}
}

type addHydrationRequest struct {
	Milliliters int `json:"milliliters"`
}

func (h *HydrationHandler) AddHydration(w http.ResponseWriter, r *http.Request) {
	var req addHydrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Milliliters <= 0 {
		respondWithError(w, http.StatusBadRequest, "milliliters must be positive")
		return
	}

	h.store.Dispatch(services.AddHydration{Value: hydration.Milliliters(req.Milliliters)})
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *HydrationHandler) RemoveHydration(w http.ResponseWriter, r *http.Request) {
	h.store.Dispatch(services.RemoveHydration{})
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

type setGoalRequest struct {
	Milliliters int `json:"milliliters"`
}

func (h *HydrationHandler) SetDailyGoal(w http.ResponseWriter, r *http.Request) {
	var req setGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Milliliters <= 0 {
		respondWithError(w, http.StatusBadRequest, "daily goal must be positive")
		return
	}

	h.store.Dispatch(services.SetDailyGoal{Value: hydration.Milliliters(req.Milliliters)})
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

type setThemeRequest struct {
	Theme string `json:"theme"`
}

func (h *HydrationHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req setThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.store.Dispatch(services.SetTheme{Value: preference.ThemeOf(req.Theme)})
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

type setUnitRequest struct {
	Unit string `json:"unit"`
}

func (h *HydrationHandler) SetLiquidUnit(w http.ResponseWriter, r *http.Request) {
	var req setUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.store.Dispatch(services.SetLiquidUnit{Value: preference.LiquidUnitOf(req.Unit)})
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

type setCupsRequest struct {
	Milliliters []int `json:"milliliters"`
}

func (h *HydrationHandler) SetSelectedCups(w http.ResponseWriter, r *http.Request) {
	var req setCupsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	cups := make([]preference.Cup, 0, len(req.Milliliters))
	for _, ml := range req.Milliliters {
		if ml <= 0 {
			respondWithError(w, http.StatusBadRequest, "cup sizes must be positive")
			return
		}
		cups = append(cups, preference.Cup{Milliliters: hydration.Milliliters(ml)})
	}

	h.store.Dispatch(services.SetSelectedCups{Value: cups})
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

type updateProfileRequest struct {
	Height string `json:"height"`
	Weight string `json:"weight"`
}

func (h *HydrationHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Height != "" {
		h.store.Dispatch(services.SetHeight{Value: req.Height})
	}
	if req.Weight != "" {
		h.store.Dispatch(services.SetWeight{Value: req.Weight})
	}
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *HydrationHandler) ResetToday(w http.ResponseWriter, r *http.Request) {
	h.store.Dispatch(services.ResetToday{})
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *HydrationHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	h.store.Dispatch(services.DeleteAll{})
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

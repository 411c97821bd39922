package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"hydrateMeAPI/internal/types/chart"
	"hydrateMeAPI/internal/types/hydration"
	"hydrateMeAPI/internal/types/preference"
	"hydrateMeAPI/services"
)

// StateHandler exposes read access to the store: point-in-time snapshots, a
// streaming feed of snapshots, and chart series built from history.
type StateHandler struct {
	store       *services.AppStore
	aggregation *services.AggregationService
	loc         *time.Location
}

// NewStateHandler takes the same location the store computes "today" in, so
// the default chart window agrees with the store's day near midnight.
func NewStateHandler(store *services.AppStore, aggregation *services.AggregationService, loc *time.Location) *StateHandler {
	if loc == nil {
		loc = time.Local
	}
	return &StateHandler{
		store:       store,
		aggregation: aggregation,
		loc:         loc,
	}
}

type stateResponse struct {
	services.AppState
	HydrationProgress hydration.Percent `json:"hydration_progress"`
	DailyGoalReached  bool              `json:"daily_goal_reached"`
	AllCups           []preference.Cup  `json:"all_cups"`
}

func newStateResponse(state services.AppState) stateResponse {
	return stateResponse{
		AppState:          state,
		HydrationProgress: state.HydrationProgress(),
		DailyGoalReached:  state.DailyGoalReached(),
		AllCups:           state.AllCups(),
	}
}

func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, newStateResponse(h.store.State()))
}

// StreamState pushes every distinct state snapshot to the client as
// server-sent events. The first event is the current state.
func (h *StateHandler) StreamState(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	states, cancel := h.store.Subscribe()
	defer cancel()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case state, open := <-states:
			if !open {
				return
			}
			payload, err := json.Marshal(newStateResponse(state))
			if err != nil {
				log.Printf("Failed to encode state event: %v", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (h *StateHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rangeType, ok := chart.RangeTypeOf(r.URL.Query().Get("range"))
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid range, expected weekly, monthly or yearly")
		return
	}

	referenceDate := hydration.DateOf(time.Now().In(h.loc))
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
		referenceDate = hydration.DateOf(parsed)
	}

	series, err := h.aggregation.LoadSeries(ctx, rangeType, referenceDate)
	if err != nil {
		log.Printf("Error loading chart series: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load chart data")
		return
	}

	h.store.Dispatch(services.LoadChartData{Range: rangeType})
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"range":  rangeType,
		"series": series,
	})
}

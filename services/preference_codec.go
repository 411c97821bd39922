package services

import (
	"encoding/json"
	"log"
	"strconv"

	"hydrateMeAPI/internal/types/hydration"
	"hydrateMeAPI/internal/types/preference"
)

// Preference values travel as strings through the preference store; these
// helpers are the only place the encodings live.

func encodeGoal(goal hydration.Milliliters) string {
	return strconv.Itoa(int(goal))
}

// decodeGoal falls back to the default goal for missing, malformed or
// non-positive values so Percent math never divides by zero.
func decodeGoal(raw string) hydration.Milliliters {
	if raw == "" {
		return hydration.DailyGoalDefault
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		log.Printf("Ignoring invalid persisted goal %q", raw)
		return hydration.DailyGoalDefault
	}
	return hydration.Milliliters(value)
}

func encodeCups(cups []preference.Cup) string {
	raw, err := json.Marshal(cups)
	if err != nil {
		log.Printf("Failed to encode cups: %v", err)
		return "[]"
	}
	return string(raw)
}

func decodeCups(raw string) []preference.Cup {
	if raw == "" {
		return nil
	}
	var cups []preference.Cup
	if err := json.Unmarshal([]byte(raw), &cups); err != nil {
		log.Printf("Ignoring malformed persisted cups %q: %v", raw, err)
		return nil
	}
	preference.SortCups(cups)
	return cups
}

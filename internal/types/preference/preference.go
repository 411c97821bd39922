package preference

import (
	"sort"

	"hydrateMeAPI/internal/types/hydration"
)

// Preference keys as persisted in the preferences table. One record per named
// setting.
const (
	KeyDailyGoal    = "dailyTargetMilliliters"
	KeyReminder     = "reminder"
	KeyTheme        = "theme"
	KeySelectedCups = "selectedCups"
	KeyLiquidUnit   = "liquidUnit"
	KeyHeight       = "height"
	KeyWeight       = "weight"
)

type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeDark   Theme = "dark"
	ThemeLight  Theme = "light"
)

// ThemeOf falls back to the system theme for unknown or missing values.
func ThemeOf(serialized string) Theme {
	switch Theme(serialized) {
	case ThemeDark, ThemeLight, ThemeSystem:
		return Theme(serialized)
	default:
		return ThemeSystem
	}
}

type LiquidUnit string

const (
	UnitMilliliters LiquidUnit = "ml"
	UnitOunces      LiquidUnit = "oz"
)

func LiquidUnitOf(serialized string) LiquidUnit {
	switch LiquidUnit(serialized) {
	case UnitMilliliters, UnitOunces:
		return LiquidUnit(serialized)
	default:
		return UnitMilliliters
	}
}

// Cup is a quick-add amount the user can log with a single tap.
type Cup struct {
	Milliliters hydration.Milliliters `json:"milliliters"`
}

// DefaultCups lists every built-in cup size for the given unit.
func DefaultCups(unit LiquidUnit) []Cup {
	if unit == UnitOunces {
		// Round ounce equivalents so the displayed values stay clean.
		return []Cup{{30}, {59}, {118}, {237}, {355}, {473}}
	}
	return []Cup{{100}, {150}, {200}, {250}, {300}, {500}}
}

// DefaultSelectedCups is the starter selection shown before the user picks
// their own.
func DefaultSelectedCups(unit LiquidUnit) []Cup {
	if unit == UnitOunces {
		return []Cup{{237}, {355}, {473}}
	}
	return []Cup{{200}, {300}, {500}}
}

// SortCups orders cups by volume ascending, in place.
func SortCups(cups []Cup) {
	sort.Slice(cups, func(i, j int) bool {
		return cups[i].Milliliters < cups[j].Milliliters
	})
}

// MergeCups is the sorted distinct union of defaults and selection.
func MergeCups(defaults, selected []Cup) []Cup {
	seen := make(map[hydration.Milliliters]bool)
	var merged []Cup
	for _, c := range append(append([]Cup{}, defaults...), selected...) {
		if seen[c.Milliliters] {
			continue
		}
		seen[c.Milliliters] = true
		merged = append(merged, c)
	}
	SortCups(merged)
	return merged
}

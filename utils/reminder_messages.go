package utils

import "hydrateMeAPI/internal/types/hydration"

// ReminderMessage picks the notification copy for the user's running total.
func ReminderMessage(todayTotal hydration.Milliliters) string {
	switch {
	case todayTotal < 200:
		return "Time to Hydrate! Take a Sip of Water and Stay Refreshed."
	case todayTotal < 300:
		return "Stay Hydrated! Your Body Needs Water. Take a Break and Drink Up!"
	case todayTotal < 400:
		return "Hydration Alert! Grab a Glass of Water and Rehydrate."
	case todayTotal < 500:
		return "Don't Forget to Drink Water! Your Body Thanks You."
	case todayTotal < 600:
		return "Quench Your Thirst! It's Hydration O'Clock."
	case todayTotal < 700:
		return "Stay Healthy and Hydrated! Time for a Water Break."
	case todayTotal < 800:
		return "Water Time! Hydrate Yourself for Optimal Wellness."
	case todayTotal < 900:
		return "Hydration Check: Have You Had Your Glass of Water Yet?"
	case todayTotal < 1000:
		return "A Little H2O Never Hurt! Stay Hydrated for a Productive Day."
	case todayTotal < 1100:
		return "Refill Your Cup! Hydration Is the Key to Feeling Great."
	case todayTotal < 1200:
		return "Stay Hydrated! Another Glass of Water Brings You Closer to Wellness."
	case todayTotal < 1300:
		return "Hydration Alert! Keep Sipping Water for a Healthy You."
	case todayTotal < 1400:
		return "Don't Forget to Stay Hydrated! Your Body Loves Water."
	case todayTotal < 1500:
		return "Quench Your Thirst! It's Time for More Hydration."
	case todayTotal < 1600:
		return "Stay Healthy and Hydrated! Keep Up the Water Intake."
	case todayTotal < 1700:
		return "Water Time! Hydrate to Energize Your Body."
	case todayTotal < 1800:
		return "Hydration Check: Keep the Water Coming for a Productive Day."
	case todayTotal < 1900:
		return "Stay Hydrated! Your Body Will Thank You."
	case todayTotal < 2000:
		return "A Little H2O Never Hurt! Keep Hydrating for Optimal Wellness."
	default:
		return "Keep Hydrating! Your Body Will Thank You."
	}
}

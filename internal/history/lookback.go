package history

import "time"

// LookbackFor returns how much history to read for a forecast horizon.
// Longer horizons need a longer window to fit a stable trend.
func LookbackFor(horizonMinutes int) time.Duration {
	switch {
	case horizonMinutes <= 15:
		return time.Hour
	case horizonMinutes <= 60:
		return 3 * time.Hour
	default:
		return 6 * time.Hour
	}
}

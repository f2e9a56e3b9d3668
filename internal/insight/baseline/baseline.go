// Package baseline computes the reference level a current reading is
// compared against.
package baseline

import "github.com/HerbHall/airwatch/pkg/models"

// MinHistory is the smallest window that yields a baseline: one prior
// reading plus the current one.
const MinHistory = 2

// Mean returns the per-sensor arithmetic mean over every reading in history
// except the last, which is the current reading. Absent values are skipped.
// A sensor that was never present has no entry. It returns nil when history
// has fewer than MinHistory readings.
func Mean(history []models.Reading) models.Values {
	if len(history) < MinHistory {
		return nil
	}

	prior := history[:len(history)-1]
	sums := make(map[models.SensorKey]float64, len(models.SensorKeys))
	counts := make(map[models.SensorKey]int, len(models.SensorKeys))
	for _, r := range prior {
		for _, key := range models.SensorKeys {
			v, ok := r.Values.Get(key)
			if !ok {
				continue
			}
			sums[key] += v
			counts[key]++
		}
	}

	out := make(models.Values, len(counts))
	for key, n := range counts {
		out[key] = sums[key] / float64(n)
	}
	return out
}

package alert

import (
	"time"

	"github.com/HerbHall/airwatch/internal/insight/trend"
)

// AlertEvent is the payload of alert.dispatched and alert.failed events.
type AlertEvent struct {
	AttemptID      string         `json:"attempt_id"`
	At             time.Time      `json:"ts"`
	Recipient      string         `json:"recipient"`
	Sensors        []string       `json:"sensors"`
	Subject        string         `json:"subject"`
	Trend          *trend.Summary `json:"trend,omitempty"`
	HorizonMinutes int            `json:"horizon_minutes"`
	Error          string         `json:"error,omitempty"`
}

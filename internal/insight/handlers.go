package insight

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// Handler serves the forecast endpoint.
type Handler struct {
	svc *Service
}

// NewHandler creates a forecast Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the forecast routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/aqi/forecast", h.handleForecast)
}

// handleForecast returns an AQI projection.
//
//	@Summary		AQI forecast
//	@Description	Fits a least-squares line through recent AQI readings and projects it forward. Without horizon_minutes the saved forecast duration is used, capped at the configured maximum (default 1440). Insufficient history is reported with ok=false and reason not_enough_history.
//	@Tags			forecast
//	@Produce		json
//	@Param			horizon_minutes	query		int	false	"Minutes to project ahead (1 to the configured maximum, default 1440)"
//	@Success		200				{object}	map[string]any
//	@Failure		400				{object}	map[string]any
//	@Router			/aqi/forecast [get]
func (h *Handler) handleForecast(w http.ResponseWriter, r *http.Request) {
	var res Result
	if raw := r.URL.Query().Get("horizon_minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "horizon_minutes must be a positive integer")
			return
		}
		if limit := h.svc.MaxHorizonMinutes(); n > limit {
			writeError(w, http.StatusBadRequest, "horizon_minutes must not exceed "+strconv.Itoa(limit))
			return
		}
		res = h.svc.ForecastFor(r.Context(), n)
	} else {
		res = h.svc.Forecast(r.Context())
	}
	writeJSON(w, http.StatusOK, res)
}

// -- helpers --

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://airwatch.dev/problems/" + http.StatusText(status),
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}

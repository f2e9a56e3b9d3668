package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/mail"
	"strconv"
	"strings"

	"github.com/HerbHall/airwatch/pkg/models"
	"go.uber.org/zap"
)

// Repository is the subset of Store the handler needs.
type Repository interface {
	Save(ctx context.Context, s *models.UserSettings) (*models.UserSettings, error)
	Latest(ctx context.Context) (*models.UserSettings, error)
}

// SettingsView is the wire form of one settings row.
// @Description Saved user preferences.
type SettingsView struct {
	Email            *string `json:"email" example:"me@example.com"`
	Notifications    bool    `json:"notifications" example:"true"`
	ForecastDuration *int    `json:"forecast_duration" example:"30"`
	RefreshRate      *int    `json:"refresh_rate" example:"10"`
	SavedAtUnix      *int64  `json:"ts" example:"1767225600"`
}

// SettingsResponse wraps the latest settings.
// @Description Latest saved settings, or defaults when nothing was saved.
type SettingsResponse struct {
	OK       bool         `json:"ok"`
	Settings SettingsView `json:"settings"`
}

// SaveRequest is the body accepted by the save endpoint. Numeric fields may
// be numbers, numeric strings, empty strings or null; empty means unset.
// @Description User preferences to append.
type SaveRequest struct {
	Email            *string     `json:"email" example:"me@example.com"`
	Notifications    bool        `json:"notifications" example:"true"`
	ForecastDuration optionalInt `json:"forecast_duration" swaggertype:"integer" example:"30"`
	RefreshRate      optionalInt `json:"refresh_rate" swaggertype:"integer" example:"10"`
}

// SettingsProblemDetail is an RFC 7807 error body for settings endpoints.
// @Description RFC 7807 Problem Details error response.
type SettingsProblemDetail struct {
	Type   string `json:"type" example:"https://airwatch.dev/problems/settings-error"`
	Title  string `json:"title" example:"Bad Request"`
	Status int    `json:"status" example:"400"`
	Detail string `json:"detail" example:"forecast_duration must be an integer"`
}

// Handler serves the settings endpoints.
type Handler struct {
	repo   Repository
	logger *zap.Logger
}

// NewHandler creates a settings Handler.
func NewHandler(repo Repository, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

// RegisterRoutes registers the settings routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/settings/latest", h.handleLatest)
	mux.HandleFunc("POST /api/v1/settings", h.handleSave)
	mux.HandleFunc("POST /api/v1/settings/save", h.handleSave)
}

// handleLatest returns the newest settings row.
//
//	@Summary		Get latest settings
//	@Description	Returns the most recently saved settings. When nothing has been saved the defaults are returned.
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsResponse
//	@Failure		500	{object}	SettingsProblemDetail
//	@Router			/settings/latest [get]
func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	s, err := h.repo.Latest(r.Context())
	if err != nil {
		h.logger.Error("failed to read latest settings", zap.Error(err))
		writeSettingsError(w, http.StatusInternalServerError, "failed to read settings")
		return
	}
	writeJSON(w, http.StatusOK, SettingsResponse{OK: true, Settings: viewOf(s)})
}

// handleSave appends a new settings row.
//
//	@Summary		Save settings
//	@Description	Appends a settings row; the newest row becomes the current configuration.
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			request	body		SaveRequest	true	"Preferences"
//	@Success		200		{object}	SettingsResponse
//	@Failure		400		{object}	SettingsProblemDetail
//	@Failure		500		{object}	SettingsProblemDetail
//	@Router			/settings [post]
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSettingsError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	in := &models.UserSettings{
		NotificationsEnabled:   req.Notifications,
		ForecastHorizonMinutes: req.ForecastDuration.Value,
		RefreshRateSeconds:     req.RefreshRate.Value,
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				writeSettingsError(w, http.StatusBadRequest, "invalid email address")
				return
			}
			in.Email = &email
		}
	}

	saved, err := h.repo.Save(r.Context(), in)
	if err != nil {
		h.logger.Error("failed to save settings", zap.Error(err))
		writeSettingsError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	h.logger.Info("settings saved",
		zap.Int64("id", saved.ID),
		zap.Bool("notifications", saved.NotificationsEnabled),
		zap.Int("horizon_minutes", HorizonAndCooldownMinutes(saved, DefaultCooldownMinutes)),
	)
	writeJSON(w, http.StatusOK, SettingsResponse{OK: true, Settings: viewOf(saved)})
}

func viewOf(s *models.UserSettings) SettingsView {
	if s == nil {
		return SettingsView{}
	}
	v := SettingsView{
		Email:            s.Email,
		Notifications:    s.NotificationsEnabled,
		ForecastDuration: s.ForecastHorizonMinutes,
		RefreshRate:      s.RefreshRateSeconds,
	}
	if !s.SavedAt.IsZero() {
		ts := s.SavedAt.Unix()
		v.SavedAtUnix = &ts
	}
	return v
}

// optionalInt decodes a number, a numeric string, "" or null. Values that
// are not finite or do not fit in an int32 are rejected.
type optionalInt struct {
	Value *int
}

func (o *optionalInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			o.Value = nil
			return nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return fmt.Errorf("out of range: %s", data)
	}
	i := int(f)
	o.Value = &i
	return nil
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeSettingsError writes an RFC 7807 problem response.
func writeSettingsError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SettingsProblemDetail{
		Type:   "https://airwatch.dev/problems/settings-error",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}

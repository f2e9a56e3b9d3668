package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/HerbHall/airwatch/internal/alert"
	"github.com/HerbHall/airwatch/internal/aqi"
	"github.com/HerbHall/airwatch/internal/history"
	"github.com/HerbHall/airwatch/pkg/models"
	"go.uber.org/zap"
)

// Reader is the read side of the history store used by the handler.
type Reader interface {
	Latest(ctx context.Context) (*models.Metrics, error)
	Range(ctx context.Context, start, end time.Time) ([]models.Metrics, error)
	All(ctx context.Context) ([]models.Metrics, error)
}

// DashboardView is the compact reading shown on the dashboard.
// @Description Latest derived reading.
type DashboardView struct {
	AQI         float64  `json:"aqi" example:"42"`
	Flame       float64  `json:"flame" example:"0"`
	Humidity    *float64 `json:"humidity" example:"45"`
	PM10        *float64 `json:"pm10" example:"9.6"`
	PM25        *float64 `json:"pm25" example:"8"`
	Smoke       float64  `json:"smoke" example:"0"`
	Temperature *float64 `json:"temperature" example:"21.5"`
	Toxic       float64  `json:"toxic" example:"0"`
	VOC         float64  `json:"voc" example:"12"`
	Status      string   `json:"status" example:"Good"`
	TS          int64    `json:"ts" example:"1767225600"`
}

// IngestRequest is one raw sensor sample. ts is unix seconds; omitted means now.
// @Description Raw sensor sample.
type IngestRequest struct {
	TS                *int64   `json:"ts,omitempty" example:"1767225600"`
	TemperatureC      *float64 `json:"temperature_c" example:"21.5"`
	HumidityPercent   *float64 `json:"humidity_percent" example:"45"`
	ConcentrationUgM3 *float64 `json:"concentration_ug_m3" example:"16"`
	MQ2Voltage        *float64 `json:"mq2_voltage" example:"0.2"`
	MQ135Voltage      *float64 `json:"mq135_voltage" example:"0.4"`
}

// IngestResponse is the result of one ingested sample.
// @Description Derived reading and the alert decision it produced.
type IngestResponse struct {
	OK      bool          `json:"ok"`
	Reading DashboardView `json:"reading"`
	Alert   alert.Outcome `json:"alert"`
}

// HistoryQuery selects an inclusive range of unix seconds.
// @Description History range query.
type HistoryQuery struct {
	Start *int64 `json:"start" example:"1767222000"`
	End   *int64 `json:"end" example:"1767225600"`
}

// HistoryRow is one stored reading in column form.
type HistoryRow struct {
	TS              int64    `json:"ts"`
	TemperatureC    *float64 `json:"temperature_c"`
	HumidityPercent *float64 `json:"humidity_percent"`
	PM25            *float64 `json:"pm2_5_ug_m3"`
	PM25Raw         *float64 `json:"pm2_5_ug_m3_raw"`
	PM10            *float64 `json:"pm10_ug_m3"`
	ToxicIndex      float64  `json:"toxic_index"`
	FlammableIndex  float64  `json:"flammable_index"`
	SmokeIndex      float64  `json:"smoke_index"`
	VOCIndex        float64  `json:"voc_index"`
	PM25AQI         float64  `json:"pm25_aqi"`
	PM10AQI         float64  `json:"pm10_aqi"`
	AQI             float64  `json:"aqi"`
	Status          string   `json:"status"`
}

// HistoryResponse wraps a range query result.
// @Description Stored readings in the requested range, oldest first.
type HistoryResponse struct {
	OK   bool `json:"ok"`
	Data struct {
		DashboardReadings []HistoryRow `json:"dashboard_readings"`
	} `json:"data"`
}

// Handler serves the ingest, dashboard and history endpoints.
type Handler struct {
	pipeline *Pipeline
	reader   Reader
	logger   *zap.Logger
}

// NewHandler creates a monitor Handler.
func NewHandler(pipeline *Pipeline, reader Reader, logger *zap.Logger) *Handler {
	return &Handler{pipeline: pipeline, reader: reader, logger: logger}
}

// RegisterRoutes registers the monitor routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/readings", h.handleIngest)
	mux.HandleFunc("GET /api/v1/dashboard", h.handleDashboard)
	mux.HandleFunc("POST /api/v1/history/query", h.handleHistoryQuery)
	mux.HandleFunc("GET /api/v1/history/download", h.handleHistoryDownload)
}

// handleIngest accepts one raw sample.
//
//	@Summary		Ingest a reading
//	@Description	Computes AQI and gas indices from a raw sample, stores it and runs one alert evaluation.
//	@Tags			readings
//	@Accept			json
//	@Produce		json
//	@Param			request	body		IngestRequest	true	"Raw sample"
//	@Success		200		{object}	IngestResponse
//	@Failure		400		{object}	map[string]any
//	@Failure		500		{object}	map[string]any
//	@Router			/readings [post]
func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	raw := aqi.RawSample{
		TemperatureC:      req.TemperatureC,
		HumidityPercent:   req.HumidityPercent,
		ConcentrationUgM3: req.ConcentrationUgM3,
		MQ2Voltage:        req.MQ2Voltage,
		MQ135Voltage:      req.MQ135Voltage,
	}
	if req.TS != nil {
		raw.Timestamp = time.Unix(*req.TS, 0).UTC()
	}

	res, err := h.pipeline.Ingest(r.Context(), raw)
	if err != nil {
		h.logger.Error("ingest failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store reading")
		return
	}
	writeJSON(w, http.StatusOK, IngestResponse{OK: true, Reading: dashboardView(&res.Metrics), Alert: res.Alert})
}

// handleDashboard returns the latest stored reading.
//
//	@Summary		Latest reading
//	@Description	Returns the most recently stored derived reading.
//	@Tags			readings
//	@Produce		json
//	@Success		200	{object}	DashboardView
//	@Failure		404	{object}	map[string]any
//	@Failure		500	{object}	map[string]any
//	@Router			/dashboard [get]
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	m, err := h.reader.Latest(r.Context())
	if err != nil {
		h.logger.Error("failed to read latest reading", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read latest reading")
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "no readings recorded yet")
		return
	}
	writeJSON(w, http.StatusOK, dashboardView(m))
}

// handleHistoryQuery returns readings in a time range.
//
//	@Summary		Query history
//	@Description	Returns stored readings with start <= ts <= end, oldest first.
//	@Tags			history
//	@Accept			json
//	@Produce		json
//	@Param			request	body		HistoryQuery	true	"Range in unix seconds"
//	@Success		200		{object}	HistoryResponse
//	@Failure		400		{object}	map[string]any
//	@Failure		500		{object}	map[string]any
//	@Router			/history/query [post]
func (h *Handler) handleHistoryQuery(w http.ResponseWriter, r *http.Request) {
	var q HistoryQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if q.Start == nil || q.End == nil {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return
	}
	if *q.End < *q.Start {
		writeError(w, http.StatusBadRequest, "end must not be before start")
		return
	}

	rows, err := h.reader.Range(r.Context(), time.Unix(*q.Start, 0), time.Unix(*q.End, 0))
	if err != nil {
		h.logger.Error("history query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query history")
		return
	}

	var resp HistoryResponse
	resp.OK = true
	resp.Data.DashboardReadings = make([]HistoryRow, 0, len(rows))
	for i := range rows {
		resp.Data.DashboardReadings = append(resp.Data.DashboardReadings, historyRow(&rows[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHistoryDownload streams the full history as a file.
//
//	@Summary		Download history
//	@Description	Exports every stored reading as an attachment.
//	@Tags			history
//	@Produce		text/csv
//	@Param			fmt	query		string	false	"Export format"	default(csv)
//	@Success		200	{file}		file
//	@Failure		400	{object}	map[string]any
//	@Failure		500	{object}	map[string]any
//	@Router			/history/download [get]
func (h *Handler) handleHistoryDownload(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("fmt"))
	if format == "" {
		format = history.FormatCSV
	}
	if format != history.FormatCSV {
		writeError(w, http.StatusBadRequest, "unsupported format: "+format)
		return
	}

	rows, err := h.reader.All(r.Context())
	if err != nil {
		h.logger.Error("history export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+history.ExportFilename(format))
	w.WriteHeader(http.StatusOK)
	if err := history.Export(w, format, rows); err != nil {
		h.logger.Warn("history export interrupted", zap.Error(err))
	}
}

func dashboardView(m *models.Metrics) DashboardView {
	return DashboardView{
		AQI:         m.AQI,
		Flame:       m.FlammableIndex,
		Humidity:    m.HumidityPercent,
		PM10:        m.PM10,
		PM25:        m.PM25,
		Smoke:       m.SmokeIndex,
		Temperature: m.TemperatureC,
		Toxic:       m.ToxicIndex,
		VOC:         m.VOCIndex,
		Status:      string(m.Status),
		TS:          m.Timestamp.Unix(),
	}
}

func historyRow(m *models.Metrics) HistoryRow {
	return HistoryRow{
		TS:              m.Timestamp.Unix(),
		TemperatureC:    m.TemperatureC,
		HumidityPercent: m.HumidityPercent,
		PM25:            m.PM25,
		PM25Raw:         m.PM25Raw,
		PM10:            m.PM10,
		ToxicIndex:      m.ToxicIndex,
		FlammableIndex:  m.FlammableIndex,
		SmokeIndex:      m.SmokeIndex,
		VOCIndex:        m.VOCIndex,
		PM25AQI:         m.PM25AQI,
		PM10AQI:         m.PM10AQI,
		AQI:             m.AQI,
		Status:          string(m.Status),
	}
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

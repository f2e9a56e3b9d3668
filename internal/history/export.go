package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/HerbHall/airwatch/pkg/models"
)

// FormatCSV is the only export format served.
const FormatCSV = "csv"

// ErrUnsupportedFormat is returned by Export for anything but FormatCSV.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ExportHeader is the CSV header row, in column order.
var ExportHeader = []string{
	"ts", "temperature_c", "humidity_percent", "pm2_5_ug_m3", "pm2_5_ug_m3_raw",
	"pm10_ug_m3", "toxic_index", "flammable_index", "smoke_index", "voc_index",
	"pm25_aqi", "pm10_aqi", "aqi", "status",
}

// ExportFilename returns the attachment name for format.
func ExportFilename(format string) string {
	return "dashboard_history." + format
}

// Export writes readings to w in format. Absent values are empty cells.
func Export(w io.Writer, format string, readings []models.Metrics) error {
	if format != FormatCSV {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range readings {
		m := &readings[i]
		record := []string{
			strconv.FormatInt(m.Timestamp.Unix(), 10),
			formatPtr(m.TemperatureC),
			formatPtr(m.HumidityPercent),
			formatPtr(m.PM25),
			formatPtr(m.PM25Raw),
			formatPtr(m.PM10),
			formatFloat(m.ToxicIndex),
			formatFloat(m.FlammableIndex),
			formatFloat(m.SmokeIndex),
			formatFloat(m.VOCIndex),
			formatFloat(m.PM25AQI),
			formatFloat(m.PM10AQI),
			formatFloat(m.AQI),
			string(m.Status),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

package alert

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/HerbHall/airwatch/internal/insight/trend"
	"github.com/HerbHall/airwatch/pkg/models"
)

// Message is a composed alert with plain text and HTML bodies.
type Message struct {
	Subject string
	Plain   string
	HTML    string
}

var sensorLabels = map[models.SensorKey]string{
	models.SensorAQI:       "Air Quality Index",
	models.SensorPM25:      "PM2.5 (fine particulate matter)",
	models.SensorPM10:      "PM10 (coarse particulate matter)",
	models.SensorTemp:      "Temperature",
	models.SensorHumidity:  "Humidity",
	models.SensorToxic:     "Toxic gas index",
	models.SensorFlammable: "Flammable gas index",
	models.SensorSmoke:     "Smoke index",
	models.SensorVOC:       "VOC index",
}

var sensorTips = map[models.SensorKey]string{
	models.SensorAQI: "Keep windows closed if outdoor air is polluted and consider using an air purifier " +
		"to improve indoor air quality.",
	models.SensorPM25: "Fine particles can reach deep into the lungs. Limit vigorous activity, " +
		"especially for children, the elderly, and those with respiratory conditions.",
	models.SensorPM10: "Coarse particles often come from dust and debris. Consider reducing dust sources " +
		"and using filtration if possible.",
	models.SensorTemp: "If the temperature is uncomfortable, consider adjusting ventilation or cooling " +
		"to keep the space within a safe range.",
	models.SensorHumidity: "Very high humidity can promote mold growth. Very low humidity can irritate " +
		"eyes and airways. Aim for about 40 to 60 percent.",
	models.SensorToxic: "Elevated toxic gas readings can indicate harmful substances in the air. " +
		"Increase ventilation, identify potential sources, and leave the area if you feel unwell.",
	models.SensorFlammable: "High flammable gas readings can indicate a fire hazard. Check for gas leaks, " +
		"avoid open flames, and follow your local safety procedures.",
	models.SensorSmoke: "Smoke can signal fire or combustion. Check your surroundings and follow your " +
		"fire safety plan if needed.",
	models.SensorVOC: "High VOC levels often come from cleaning products, paints, or solvents. " +
		"Increase ventilation and reduce use of strong chemicals where possible.",
}

const (
	subjectUpdate   = "Air quality update from your monitor"
	subjectAQIOnly  = "Alert: AQI has spiked on your air quality monitor"
	subjectAQIAndUp = "Alert: AQI and other sensors have spiked on your monitor"
	subjectSensors  = "Alert: One or more sensors have spiked on your monitor"
)

// Label returns the display name for key.
func Label(key models.SensorKey) string {
	if l, ok := sensorLabels[key]; ok {
		return l
	}
	return string(key)
}

type spikeLine struct {
	Label string
	Value string
}

type htmlData struct {
	Lines []spikeLine
	Trend string
	Tips  []string
}

var htmlTemplate = template.Must(template.New("alert").Parse(`<html><body>
<p>Hello,</p>
<p>Your air quality monitor has detected a spike in the following sensors:</p>
<ul>
{{- range .Lines}}
<li><strong>{{.Label}}</strong>: {{.Value}} (spike detected)</li>
{{- end}}
</ul>
{{- if .Trend}}
<p>{{.Trend}}</p>
{{- end}}
{{- if .Tips}}
<p>Suggested actions:</p>
<ul>
{{- range .Tips}}
<li>{{.}}</li>
{{- end}}
</ul>
{{- end}}
<p>This message was generated automatically by your monitoring system.</p>
<p>If you receive alerts frequently, consider adjusting your notification settings or inspecting your environment.</p>
<p>Stay safe,</p>
</body></html>`))

// Compose builds the alert for spikes. values holds the current readings;
// summary may be nil when no trend could be computed. minutes is the
// horizon quoted in the trend sentence.
func Compose(spikes models.SpikeSet, values models.Values, summary *trend.Summary, minutes int) Message {
	if spikes.Empty() {
		return Message{
			Subject: subjectUpdate,
			Plain: "Your air quality monitor did not detect any clear spikes but requested " +
				"an update email. No action is required right now.",
		}
	}

	msg := Message{Subject: subjectFor(spikes)}

	lines := make([]spikeLine, 0, len(spikes))
	for _, key := range spikes {
		lines = append(lines, spikeLine{Label: Label(key), Value: formatValue(values, key)})
	}
	trendText := trendSentence(summary, minutes)
	tips := safetyTips(spikes)

	var b strings.Builder
	b.WriteString("Hello,\n\n")
	b.WriteString("Your air quality monitor has detected a spike in the following sensors:\n\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "- %s: %s (spike detected)\n", l.Label, l.Value)
	}
	b.WriteString("\n")
	if trendText != "" {
		b.WriteString(trendText + "\n\n")
	}
	if len(tips) > 0 {
		b.WriteString("Suggested actions:\n")
		for _, tip := range tips {
			b.WriteString("- " + tip + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("This message was generated automatically by your monitoring system.\n")
	b.WriteString("If you continue to receive alerts frequently, consider adjusting your\n")
	b.WriteString("notification settings or inspecting your environment for issues.\n\n")
	b.WriteString("Stay safe,")
	msg.Plain = b.String()

	var h bytes.Buffer
	if err := htmlTemplate.Execute(&h, htmlData{Lines: lines, Trend: trendText, Tips: tips}); err == nil {
		msg.HTML = h.String()
	}
	return msg
}

func subjectFor(spikes models.SpikeSet) string {
	switch {
	case spikes.Has(models.SensorAQI) && len(spikes) == 1:
		return subjectAQIOnly
	case spikes.Has(models.SensorAQI):
		return subjectAQIAndUp
	default:
		return subjectSensors
	}
}

func formatValue(values models.Values, key models.SensorKey) string {
	v, ok := values.Get(key)
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

func trendSentence(s *trend.Summary, minutes int) string {
	if s == nil {
		return ""
	}
	parts := make([]string, 0, 3)
	switch s.Direction() {
	case trend.Rising:
		parts = append(parts, "The Air Quality Index appears to be trending upward.")
	case trend.Falling:
		parts = append(parts, "The Air Quality Index appears to be trending downward.")
	default:
		parts = append(parts, "The Air Quality Index is relatively stable at the moment.")
	}
	parts = append(parts, fmt.Sprintf("Current AQI is approximately %.0f.", s.CurrentAQI))
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("It may peak around %.0f in the next %d minutes.", s.PredictedPeak, minutes))
	} else {
		parts = append(parts, fmt.Sprintf("It may peak around %.0f.", s.PredictedPeak))
	}
	return strings.Join(parts, " ")
}

func safetyTips(spikes models.SpikeSet) []string {
	var tips []string
	seen := make(map[string]bool, len(spikes))
	for _, key := range spikes {
		tip, ok := sensorTips[key]
		if !ok || seen[tip] {
			continue
		}
		seen[tip] = true
		tips = append(tips, tip)
	}
	return tips
}

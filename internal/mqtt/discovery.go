package mqtt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/HerbHall/airwatch/pkg/models"
)

// nonAlphanumeric matches any character that is not alphanumeric or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// DiscoveryConfig holds a single HA MQTT discovery payload.
type DiscoveryConfig struct {
	Topic   string // Full MQTT topic (homeassistant/...)
	Payload []byte // JSON-encoded config (empty = remove)
	Retain  bool   // Discovery configs should always be retained
}

// HADevice is the "device" block in HA discovery payloads.
type HADevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Model        string   `json:"model,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// SensorConfig is the HA discovery payload for sensor.
type SensorConfig struct {
	Name              string   `json:"name"`
	ObjectID          string   `json:"object_id"`
	UniqueID          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	ValueTemplate     string   `json:"value_template,omitempty"`
	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	DeviceClass       string   `json:"device_class,omitempty"`
	StateClass        string   `json:"state_class,omitempty"`
	Icon              string   `json:"icon,omitempty"`
	Device            HADevice `json:"device"`
}

// sensorEntity describes how one sensor key is exposed to Home Assistant.
// Field is the JSON name of the value in the published reading.
type sensorEntity struct {
	Field       string
	Name        string
	Unit        string
	DeviceClass string
}

var sensorEntities = map[models.SensorKey]sensorEntity{
	models.SensorAQI:       {Field: "aqi", Name: "Air Quality Index", DeviceClass: "aqi"},
	models.SensorPM25:      {Field: "pm2_5_ug_m3", Name: "PM2.5", Unit: "µg/m³", DeviceClass: "pm25"},
	models.SensorPM10:      {Field: "pm10_ug_m3", Name: "PM10", Unit: "µg/m³", DeviceClass: "pm10"},
	models.SensorTemp:      {Field: "temperature_c", Name: "Temperature", Unit: "°C", DeviceClass: "temperature"},
	models.SensorHumidity:  {Field: "humidity_percent", Name: "Humidity", Unit: "%", DeviceClass: "humidity"},
	models.SensorToxic:     {Field: "toxic_index", Name: "Toxic Gas Index"},
	models.SensorFlammable: {Field: "flammable_index", Name: "Flammable Gas Index"},
	models.SensorSmoke:     {Field: "smoke_index", Name: "Smoke Index"},
	models.SensorVOC:       {Field: "voc_index", Name: "VOC Index"},
}

// SafeObjectID sanitizes a string for use as an HA object_id.
// Replaces any non-alphanumeric character (except underscore) with underscore,
// lowercases, and trims leading/trailing underscores.
func SafeObjectID(s string) string {
	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "unknown"
	}
	return s
}

// buildHADevice creates the HA device block for the monitor identified by clientID.
func buildHADevice(clientID string) HADevice {
	return HADevice{
		Identifiers:  []string{SafeObjectID(clientID)},
		Name:         "AirWatch " + clientID,
		Model:        "Indoor air quality monitor",
		Manufacturer: "AirWatch",
	}
}

// BuildSensorDiscoveryConfigs creates HA discovery config payloads for every
// sensor key plus a "last alert" sensor. Sensor entities read their state
// from the reading topic through a value template.
func BuildSensorDiscoveryConfigs(clientID, topicPrefix, haPrefix string) []DiscoveryConfig {
	safeID := SafeObjectID(clientID)
	device := buildHADevice(clientID)

	configs := make([]DiscoveryConfig, 0, len(models.SensorKeys)+1)
	for _, key := range models.SensorKeys {
		entity := sensorEntities[key]
		objectID := safeID + "_" + string(key)
		cfg := SensorConfig{
			Name:              entity.Name,
			ObjectID:          objectID,
			UniqueID:          objectID,
			StateTopic:        topicPrefix + "/reading",
			ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", entity.Field),
			UnitOfMeasurement: entity.Unit,
			DeviceClass:       entity.DeviceClass,
			StateClass:        "measurement",
			Icon:              SensorIcon(key),
			Device:            device,
		}
		payload, err := json.Marshal(cfg)
		if err != nil {
			continue
		}
		configs = append(configs, DiscoveryConfig{
			Topic:   fmt.Sprintf("%s/sensor/%s/%s/config", haPrefix, safeID, key),
			Payload: payload,
			Retain:  true,
		})
	}

	alertCfg := SensorConfig{
		Name:          "Last Alert",
		ObjectID:      safeID + "_last_alert",
		UniqueID:      safeID + "_last_alert",
		StateTopic:    topicPrefix + "/alert/sent",
		ValueTemplate: "{{ value_json.subject }}",
		Icon:          "mdi:email-alert",
		Device:        device,
	}
	if payload, err := json.Marshal(alertCfg); err == nil {
		configs = append(configs, DiscoveryConfig{
			Topic:   fmt.Sprintf("%s/sensor/%s/last_alert/config", haPrefix, safeID),
			Payload: payload,
			Retain:  true,
		})
	}
	return configs
}

// BuildSensorRemovalConfigs returns discovery configs with empty payloads to
// remove the monitor's entities from HA.
func BuildSensorRemovalConfigs(clientID, haPrefix string) []DiscoveryConfig {
	safeID := SafeObjectID(clientID)
	configs := make([]DiscoveryConfig, 0, len(models.SensorKeys)+1)
	for _, key := range models.SensorKeys {
		configs = append(configs, DiscoveryConfig{
			Topic:  fmt.Sprintf("%s/sensor/%s/%s/config", haPrefix, safeID, key),
			Retain: true,
		})
	}
	return append(configs, DiscoveryConfig{
		Topic:  fmt.Sprintf("%s/sensor/%s/last_alert/config", haPrefix, safeID),
		Retain: true,
	})
}

// SensorIcon maps a sensor key to a Material Design Icon string for use in
// Home Assistant.
func SensorIcon(key models.SensorKey) string {
	switch key {
	case models.SensorAQI:
		return "mdi:air-filter"
	case models.SensorPM25, models.SensorPM10:
		return "mdi:blur"
	case models.SensorTemp:
		return "mdi:thermometer"
	case models.SensorHumidity:
		return "mdi:water-percent"
	case models.SensorToxic:
		return "mdi:biohazard"
	case models.SensorFlammable:
		return "mdi:fire"
	case models.SensorSmoke:
		return "mdi:smoke"
	case models.SensorVOC:
		return "mdi:chemical-weapon"
	}
	return "mdi:gauge"
}

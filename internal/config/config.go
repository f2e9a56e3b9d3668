// Package config wraps Viper for section decoding and builds the zap logger.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ViperConfig wraps a Viper instance and decodes named sections onto
// default-populated structs.
type ViperConfig struct {
	v *viper.Viper
}

// New creates a Config backed by the given Viper instance.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

// Decode unmarshals the section at key onto target. Fields missing from the
// section keep the values already in target, so callers pass a struct
// filled by the section's DefaultConfig. The section is read through
// AllSettings so environment overrides of nested keys apply.
func (c *ViperConfig) Decode(key string, target any) error {
	sub := viper.New()
	if err := sub.MergeConfigMap(sectionOf(c.v.AllSettings(), key)); err != nil {
		return fmt.Errorf("decode %s config: %w", key, err)
	}
	if err := sub.Unmarshal(target); err != nil {
		return fmt.Errorf("decode %s config: %w", key, err)
	}
	return nil
}

// sectionOf walks a dotted key through nested settings maps.
func sectionOf(settings map[string]any, key string) map[string]any {
	cur := settings
	for _, part := range strings.Split(strings.ToLower(key), ".") {
		next, ok := cur[part].(map[string]any)
		if !ok {
			return map[string]any{}
		}
		cur = next
	}
	return cur
}

func (c *ViperConfig) GetString(key string) string {
	return c.v.GetString(key)
}

func (c *ViperConfig) GetBool(key string) bool {
	return c.v.GetBool(key)
}

func (c *ViperConfig) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}

// Viper returns the underlying Viper instance for direct access
// (e.g., by the logger factory).
func (c *ViperConfig) Viper() *viper.Viper {
	return c.v
}

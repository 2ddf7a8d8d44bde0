package gateway

import (
	"time"

	"github.com/kaliguru/kaliguru/pkg/plugin"
)

// Config holds the gateway tuning knobs. Every value has a viper
// default; the table and reserve are deliberately configuration rather
// than constants because they encode one hosting platform's timeout.
type Config struct {
	BaseURL         string
	Model           string
	APIKey          string // system-wide default, overridable per call
	Ceiling         time.Duration
	Reserve         time.Duration
	MaxWait         time.Duration
	SafetyThreshold time.Duration
	BackoffTable    []time.Duration
	MaxAttempts     int
	RelayBuffer     int
}

// LoadConfig reads the gateway section of the application config.
func LoadConfig(cfg plugin.Config) Config {
	return Config{
		BaseURL:         cfg.GetString("base_url"),
		Model:           cfg.GetString("model"),
		APIKey:          cfg.GetString("api_key"),
		Ceiling:         cfg.GetDuration("ceiling"),
		Reserve:         cfg.GetDuration("reserve"),
		MaxWait:         cfg.GetDuration("max_wait"),
		SafetyThreshold: cfg.GetDuration("safety_threshold"),
		BackoffTable:    durationSlice(cfg.Get("backoff_table")),
		MaxAttempts:     cfg.GetInt("max_attempts"),
		RelayBuffer:     cfg.GetInt("relay_buffer"),
	}
}

// Policy returns the backoff policy derived from this config.
func (c Config) Policy() BackoffPolicy {
	return BackoffPolicy{
		Table:   c.BackoffTable,
		Reserve: c.Reserve,
		HardCap: c.MaxWait,
	}
}

// durationSlice converts a raw config value into durations, tolerating
// both []string and []any shapes viper produces.
func durationSlice(raw any) []time.Duration {
	var items []string
	switch v := raw.(type) {
	case []string:
		items = v
	case []any:
		for _, e := range v {
			if s, ok := e.(string); ok {
				items = append(items, s)
			}
		}
	}

	out := make([]time.Duration, 0, len(items))
	for _, s := range items {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			out = append(out, d)
		}
	}
	return out
}

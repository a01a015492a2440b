// internal/config/constants.go
package config

import "time"

// Defaults applied when a guild or channel has no stored configuration.
const (
	DefaultThreshold      = 10 // messages per minute
	DefaultUpdateInterval = 30 // seconds
)

// Background task cadence and retention.
const (
	SlowmodeCheckInterval = 60 * time.Second
	HourlyTaskInterval    = time.Hour

	ActivityRetentionHours = 24
	AnalyticsRetentionDays = 30

	// EffectivenessSampleDelay is how long after a slowmode increase the
	// post-change message rate is measured.
	EffectivenessSampleDelay = 10 * time.Minute

	// MaxConcurrentGuilds bounds parallel guild batches so the Discord API
	// rate limits are respected.
	MaxConcurrentGuilds = 4
)

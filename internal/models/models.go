// internal/models/models.go
package models

import "time"

// GuildConfig stores per-guild slowmode settings. A row is created with
// defaults on first read.
type GuildConfig struct {
	GuildID          string `gorm:"primaryKey"`
	IsEnabled        bool   `gorm:"not null;default:true"`
	DefaultThreshold int    `gorm:"not null;default:10"`
	UpdateInterval   int    `gorm:"not null;default:30"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (GuildConfig) TableName() string {
	return "guild_config"
}

// ChannelConfig stores per-channel settings. Threshold is nil when the
// channel falls back to the guild default.
type ChannelConfig struct {
	ChannelID string `gorm:"primaryKey"`
	GuildID   string `gorm:"not null;index"`
	IsEnabled bool   `gorm:"not null;default:true"`
	Threshold *int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ChannelConfig) TableName() string {
	return "channel_config"
}

// MessageActivity is a one-second message counter bucket. Counts accumulate
// via merge-on-conflict, so MessageCount is at least 1 whenever a row exists.
type MessageActivity struct {
	ID           uint   `gorm:"primaryKey"`
	ChannelID    string `gorm:"not null;uniqueIndex:idx_message_activity_bucket"`
	Timestamp    int64  `gorm:"not null;uniqueIndex:idx_message_activity_bucket"`
	MessageCount int    `gorm:"not null;default:1"`
}

func (MessageActivity) TableName() string {
	return "message_activity"
}

// ChannelPattern is the learned activity baseline for a (channel, weekday,
// hour) key, updated in place by the hourly pattern job.
type ChannelPattern struct {
	ID                uint    `gorm:"primaryKey"`
	ChannelID         string  `gorm:"not null;uniqueIndex:idx_channel_pattern_key"`
	DayOfWeek         int     `gorm:"not null;uniqueIndex:idx_channel_pattern_key"`
	Hour              int     `gorm:"not null;uniqueIndex:idx_channel_pattern_key"`
	AvgMessageRate    float64 `gorm:"not null;default:0"`
	StddevMessageRate float64 `gorm:"not null;default:0"`
	SampleCount       int     `gorm:"not null;default:0"`
	LastUpdated       int64   `gorm:"not null;default:0"`
}

func (ChannelPattern) TableName() string {
	return "channel_patterns"
}

// SlowmodeChange is an append-only audit record written whenever the engine's
// output differs from the currently applied value.
type SlowmodeChange struct {
	ID          uint   `gorm:"primaryKey"`
	ChannelID   string `gorm:"not null;index"`
	OldValue    int    `gorm:"not null"`
	NewValue    int    `gorm:"not null"`
	Reason      string `gorm:"type:text"`
	MessageRate float64
	Confidence  float64
	Timestamp   int64 `gorm:"not null"`
}

func (SlowmodeChange) TableName() string {
	return "slowmode_changes"
}

// SlowmodeEffectiveness records whether a past intervention actually reduced
// traffic. Append-only; consumed as a 30-day trailing average per channel.
type SlowmodeEffectiveness struct {
	ID                uint   `gorm:"primaryKey"`
	ChannelID         string `gorm:"not null;index"`
	AppliedAt         int64  `gorm:"not null"`
	SlowmodeValue     int    `gorm:"not null"`
	MessageRateBefore float64
	MessageRateAfter  float64
	DurationSeconds   int
	WasEffective      bool `gorm:"not null;default:false"`
}

func (SlowmodeEffectiveness) TableName() string {
	return "slowmode_effectiveness"
}

// ChannelAnalytics is the hourly rollup backing the stats views.
type ChannelAnalytics struct {
	ID            uint   `gorm:"primaryKey"`
	ChannelID     string `gorm:"not null;uniqueIndex:idx_channel_analytics_hour"`
	HourTimestamp int64  `gorm:"not null;uniqueIndex:idx_channel_analytics_hour"`
	TotalMessages int    `gorm:"not null;default:0"`
	UniqueUsers   int    `gorm:"not null;default:0"`
	AvgSlowmode   float64
	MaxSlowmode   int
}

func (ChannelAnalytics) TableName() string {
	return "channel_analytics"
}

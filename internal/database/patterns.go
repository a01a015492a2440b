// internal/database/patterns.go
package database

import (
	"errors"
	"time"

	"discord-slowmode-bot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// minPatternSamples is the number of observations a pattern needs before it
// counts as a historical baseline.
const minPatternSamples = 10

// ExpectedActivity returns the learned baseline rate (messages/minute) for a
// channel at the given weekday and hour, or nil when no baseline exists or the
// pattern has too few samples.
func (db *DB) ExpectedActivity(channelID string, dayOfWeek, hour int) (*float64, error) {
	pattern, err := db.GetChannelPattern(channelID, dayOfWeek, hour)
	if err != nil {
		return nil, err
	}
	if pattern == nil || pattern.SampleCount < minPatternSamples {
		return nil, nil
	}

	rate := pattern.AvgMessageRate
	return &rate, nil
}

// GetChannelPattern returns the raw pattern row for a (channel, weekday, hour)
// key, or nil when none exists. Unlike ExpectedActivity this applies no
// minimum-sample gate; the hourly learner needs young rows too.
func (db *DB) GetChannelPattern(channelID string, dayOfWeek, hour int) (*models.ChannelPattern, error) {
	var pattern models.ChannelPattern
	err := db.First(&pattern,
		"channel_id = ? AND day_of_week = ? AND hour = ?",
		channelID, dayOfWeek, hour,
	).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pattern, nil
}

// UpsertChannelPattern writes the updated statistics for a pattern key.
func (db *DB) UpsertChannelPattern(channelID string, dayOfWeek, hour int, avgRate, stddevRate float64, sampleCount int) error {
	pattern := models.ChannelPattern{
		ChannelID:         channelID,
		DayOfWeek:         dayOfWeek,
		Hour:              hour,
		AvgMessageRate:    avgRate,
		StddevMessageRate: stddevRate,
		SampleCount:       sampleCount,
		LastUpdated:       time.Now().Unix(),
	}

	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "channel_id"}, {Name: "day_of_week"}, {Name: "hour"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"avg_message_rate", "stddev_message_rate", "sample_count", "last_updated",
		}),
	}).Create(&pattern).Error
}

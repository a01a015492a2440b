// internal/database/activity.go
package database

import (
	"time"

	"discord-slowmode-bot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordMessage increments the activity bucket for a channel at the given
// unix second. Concurrent writers to the same bucket merge, never overwrite.
func (db *DB) RecordMessage(channelID string, timestamp int64) error {
	bucket := models.MessageActivity{
		ChannelID:    channelID,
		Timestamp:    timestamp,
		MessageCount: 1,
	}

	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "channel_id"}, {Name: "timestamp"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"message_count": gorm.Expr("message_count + 1"),
		}),
	}).Create(&bucket).Error
}

// MessageRate returns the message rate in messages per minute over the last
// windowSeconds. Returns 0 when no data exists.
func (db *DB) MessageRate(channelID string, windowSeconds int) (float64, error) {
	cutoff := time.Now().Unix() - int64(windowSeconds)

	var total int64
	err := db.Model(&models.MessageActivity{}).
		Where("channel_id = ? AND timestamp >= ?", channelID, cutoff).
		Select("COALESCE(SUM(message_count), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}

	return float64(total) / float64(windowSeconds) * 60, nil
}

// ActiveChannels returns the channel ids with at least one bucket in the
// half-open interval [start, end).
func (db *DB) ActiveChannels(start, end int64) ([]string, error) {
	var channelIDs []string
	err := db.Model(&models.MessageActivity{}).
		Where("timestamp >= ? AND timestamp < ?", start, end).
		Distinct().
		Pluck("channel_id", &channelIDs).Error
	return channelIDs, err
}

// MessageCount sums a channel's buckets over the half-open interval
// [start, end).
func (db *DB) MessageCount(channelID string, start, end int64) (int, error) {
	var total int64
	err := db.Model(&models.MessageActivity{}).
		Where("channel_id = ? AND timestamp >= ? AND timestamp < ?", channelID, start, end).
		Select("COALESCE(SUM(message_count), 0)").
		Scan(&total).Error
	return int(total), err
}

// CleanupActivity removes buckets older than the given number of hours.
func (db *DB) CleanupActivity(hours int) error {
	cutoff := time.Now().Unix() - int64(hours)*3600

	return db.Where("timestamp < ?", cutoff).
		Delete(&models.MessageActivity{}).Error
}

// internal/database/effectiveness.go
package database

import (
	"time"

	"discord-slowmode-bot/internal/models"

	"gorm.io/gorm/clause"
)

// effectivenessWindowDays is the trailing window over which intervention
// outcomes are averaged.
const effectivenessWindowDays = 30

// RecordEffectiveness appends an intervention outcome. The intervention
// counts as effective when the post-change rate dropped below 80% of the
// pre-change rate.
func (db *DB) RecordEffectiveness(channelID string, slowmodeValue int, rateBefore, rateAfter float64, durationSeconds int) error {
	wasEffective := rateBefore > 0 && rateAfter < rateBefore*0.8

	record := models.SlowmodeEffectiveness{
		ChannelID:         channelID,
		AppliedAt:         time.Now().Unix(),
		SlowmodeValue:     slowmodeValue,
		MessageRateBefore: rateBefore,
		MessageRateAfter:  rateAfter,
		DurationSeconds:   durationSeconds,
		WasEffective:      wasEffective,
	}

	return db.Create(&record).Error
}

// EffectivenessScore returns the fraction of interventions in the trailing
// 30 days that were effective, or 0.0 when none exist.
func (db *DB) EffectivenessScore(channelID string) (float64, error) {
	cutoff := time.Now().Unix() - int64(effectivenessWindowDays)*86400

	var score float64
	err := db.Model(&models.SlowmodeEffectiveness{}).
		Where("channel_id = ? AND applied_at >= ?", channelID, cutoff).
		Select("COALESCE(AVG(CASE WHEN was_effective THEN 1.0 ELSE 0.0 END), 0)").
		Scan(&score).Error
	return score, err
}

// RecordSlowmodeChange appends an audit row for an applied change.
func (db *DB) RecordSlowmodeChange(channelID string, oldValue, newValue int, reason string, messageRate, confidence float64) error {
	change := models.SlowmodeChange{
		ChannelID:   channelID,
		OldValue:    oldValue,
		NewValue:    newValue,
		Reason:      reason,
		MessageRate: messageRate,
		Confidence:  confidence,
		Timestamp:   time.Now().Unix(),
	}

	return db.Create(&change).Error
}

// AggregateHourlyAnalytics rolls a channel's buckets for the hour starting at
// hourStart into the analytics table. No-op when the channel was idle.
func (db *DB) AggregateHourlyAnalytics(channelID string, hourStart, hourEnd int64) error {
	total, err := db.MessageCount(channelID, hourStart, hourEnd)
	if err != nil {
		return err
	}
	if total == 0 {
		return nil
	}

	row := models.ChannelAnalytics{
		ChannelID:     channelID,
		HourTimestamp: hourStart,
		TotalMessages: total,
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}, {Name: "hour_timestamp"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_messages"}),
	}).Create(&row).Error
}

// ChannelAnalytics returns the hourly rollups for a channel over the last
// hoursBack hours, newest first.
func (db *DB) ChannelAnalytics(channelID string, hoursBack int) ([]models.ChannelAnalytics, error) {
	cutoff := time.Now().Unix() - int64(hoursBack)*3600

	var rows []models.ChannelAnalytics
	err := db.Where("channel_id = ? AND hour_timestamp >= ?", channelID, cutoff).
		Order("hour_timestamp DESC").
		Find(&rows).Error
	return rows, err
}

// CleanupAnalytics removes analytics rollups and effectiveness records older
// than the given number of days.
func (db *DB) CleanupAnalytics(days int) error {
	cutoff := time.Now().Unix() - int64(days)*86400

	if err := db.Where("hour_timestamp < ?", cutoff).
		Delete(&models.ChannelAnalytics{}).Error; err != nil {
		return err
	}
	return db.Where("applied_at < ?", cutoff).
		Delete(&models.SlowmodeEffectiveness{}).Error
}

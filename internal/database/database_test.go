// internal/database/database_test.go
package database

import (
	"testing"
	"time"

	"discord-slowmode-bot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	db, err := New(gormDB)
	require.NoError(t, err)
	return db
}

func TestRecordMessageMergesBuckets(t *testing.T) {
	db := newTestDB(t)
	ts := time.Now().Unix()

	require.NoError(t, db.RecordMessage("chan1", ts))
	require.NoError(t, db.RecordMessage("chan1", ts))
	require.NoError(t, db.RecordMessage("chan1", ts))

	var bucket models.MessageActivity
	require.NoError(t, db.First(&bucket, "channel_id = ? AND timestamp = ?", "chan1", ts).Error)
	assert.Equal(t, 3, bucket.MessageCount)

	var count int64
	require.NoError(t, db.Model(&models.MessageActivity{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMessageRate(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().Unix()

	// Five messages inside the window, one outside.
	for i := int64(0); i < 5; i++ {
		require.NoError(t, db.RecordMessage("chan1", now-10-i))
	}
	require.NoError(t, db.RecordMessage("chan1", now-120))

	rate, err := db.MessageRate("chan1", 60)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, rate, 1e-9)

	// No data yields 0, not an error.
	rate, err = db.MessageRate("empty", 60)
	require.NoError(t, err)
	assert.Zero(t, rate)
}

func TestCleanupActivity(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().Unix()

	require.NoError(t, db.RecordMessage("chan1", now-25*3600))
	require.NoError(t, db.RecordMessage("chan1", now-10))

	require.NoError(t, db.CleanupActivity(24))

	var buckets []models.MessageActivity
	require.NoError(t, db.Find(&buckets).Error)
	require.Len(t, buckets, 1)
	assert.Equal(t, now-10, buckets[0].Timestamp)
}

func TestActiveChannelsHalfOpenInterval(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.RecordMessage("chan1", 1000))
	require.NoError(t, db.RecordMessage("chan2", 1500))
	require.NoError(t, db.RecordMessage("chan3", 2000)) // at end, excluded
	require.NoError(t, db.RecordMessage("chan4", 900))  // before start, excluded

	channels, err := db.ActiveChannels(1000, 2000)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"chan1", "chan2"}, channels)
}

func TestMessageCount(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.RecordMessage("chan1", 1000))
	require.NoError(t, db.RecordMessage("chan1", 1000))
	require.NoError(t, db.RecordMessage("chan1", 1500))
	require.NoError(t, db.RecordMessage("chan1", 2000))

	count, err := db.MessageCount("chan1", 1000, 2000)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestGetGuildConfigCreatesDefaults(t *testing.T) {
	db := newTestDB(t)

	cfg, err := db.GetGuildConfig("guild1")
	require.NoError(t, err)
	assert.True(t, cfg.IsEnabled)
	assert.Equal(t, 10, cfg.DefaultThreshold)
	assert.Equal(t, 30, cfg.UpdateInterval)

	// The row is persisted; a second read returns the same values.
	var count int64
	require.NoError(t, db.Model(&models.GuildConfig{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	again, err := db.GetGuildConfig("guild1")
	require.NoError(t, err)
	assert.Equal(t, cfg.DefaultThreshold, again.DefaultThreshold)
}

func TestGetChannelConfigCreatesDefaults(t *testing.T) {
	db := newTestDB(t)

	cfg, err := db.GetChannelConfig("chan1", "guild1")
	require.NoError(t, err)
	assert.True(t, cfg.IsEnabled)
	assert.Nil(t, cfg.Threshold)
	assert.Equal(t, "guild1", cfg.GuildID)

	var count int64
	require.NoError(t, db.Model(&models.ChannelConfig{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	again, err := db.GetChannelConfig("chan1", "guild1")
	require.NoError(t, err)
	assert.True(t, again.IsEnabled)
	assert.Nil(t, again.Threshold)
}

func TestSetChannelThreshold(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetChannelConfig("chan1", "guild1")
	require.NoError(t, err)

	threshold := 25
	require.NoError(t, db.SetChannelThreshold("chan1", &threshold))

	cfg, err := db.GetChannelConfig("chan1", "guild1")
	require.NoError(t, err)
	require.NotNil(t, cfg.Threshold)
	assert.Equal(t, 25, *cfg.Threshold)

	// nil resets to the guild default.
	require.NoError(t, db.SetChannelThreshold("chan1", nil))
	cfg, err = db.GetChannelConfig("chan1", "guild1")
	require.NoError(t, err)
	assert.Nil(t, cfg.Threshold)
}

func TestEnabledChannels(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetChannelConfig("chan1", "guild1")
	require.NoError(t, err)
	_, err = db.GetChannelConfig("chan2", "guild1")
	require.NoError(t, err)
	_, err = db.GetChannelConfig("chan3", "guild2")
	require.NoError(t, err)

	require.NoError(t, db.SetChannelEnabled("chan2", false))

	channels, err := db.EnabledChannels("guild1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"chan1"}, channels)
}

func TestEffectivenessScoreNoRecords(t *testing.T) {
	db := newTestDB(t)

	score, err := db.EffectivenessScore("chan1")
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestRecordEffectiveness(t *testing.T) {
	db := newTestDB(t)

	// Rate dropped below 80% of the pre-change value: effective.
	require.NoError(t, db.RecordEffectiveness("chan1", 10, 30, 20, 600))
	// Rate barely moved: not effective.
	require.NoError(t, db.RecordEffectiveness("chan1", 10, 30, 28, 600))

	score, err := db.EffectivenessScore("chan1")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, score, 1e-9)
}

func TestRecordEffectivenessZeroRateBefore(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.RecordEffectiveness("chan1", 10, 0, 0, 600))

	var record models.SlowmodeEffectiveness
	require.NoError(t, db.First(&record).Error)
	assert.False(t, record.WasEffective)
}

func TestEffectivenessScoreWindow(t *testing.T) {
	db := newTestDB(t)

	// An old effective record outside the 30-day window is ignored.
	old := models.SlowmodeEffectiveness{
		ChannelID:         "chan1",
		AppliedAt:         time.Now().Unix() - 31*86400,
		SlowmodeValue:     10,
		MessageRateBefore: 30,
		MessageRateAfter:  10,
		WasEffective:      true,
	}
	require.NoError(t, db.Create(&old).Error)

	score, err := db.EffectivenessScore("chan1")
	require.NoError(t, err)
	assert.Zero(t, score)
}

func TestExpectedActivityMinSamples(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.UpsertChannelPattern("chan1", 0, 12, 5.5, 1.2, 9))

	rate, err := db.ExpectedActivity("chan1", 0, 12)
	require.NoError(t, err)
	assert.Nil(t, rate, "patterns below the minimum sample count are not a baseline")

	require.NoError(t, db.UpsertChannelPattern("chan1", 0, 12, 5.5, 1.2, 10))

	rate, err = db.ExpectedActivity("chan1", 0, 12)
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.InDelta(t, 5.5, *rate, 1e-9)
}

func TestUpsertChannelPatternUpdatesInPlace(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.UpsertChannelPattern("chan1", 3, 18, 2.0, 0.0, 1))
	require.NoError(t, db.UpsertChannelPattern("chan1", 3, 18, 3.0, 1.0, 2))

	var count int64
	require.NoError(t, db.Model(&models.ChannelPattern{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	pattern, err := db.GetChannelPattern("chan1", 3, 18)
	require.NoError(t, err)
	require.NotNil(t, pattern)
	assert.InDelta(t, 3.0, pattern.AvgMessageRate, 1e-9)
	assert.Equal(t, 2, pattern.SampleCount)
}

func TestGetChannelPatternAbsent(t *testing.T) {
	db := newTestDB(t)

	pattern, err := db.GetChannelPattern("chan1", 0, 0)
	require.NoError(t, err)
	assert.Nil(t, pattern)
}

func TestRecordSlowmodeChange(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.RecordSlowmodeChange("chan1", 0, 15, "Current Rate: 30.0 msg/min (Threshold: 10)", 30.0, 0.7))

	var change models.SlowmodeChange
	require.NoError(t, db.First(&change).Error)
	assert.Equal(t, 0, change.OldValue)
	assert.Equal(t, 15, change.NewValue)
	assert.InDelta(t, 0.7, change.Confidence, 1e-9)
	assert.NotZero(t, change.Timestamp)
}

func TestAggregateHourlyAnalytics(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.RecordMessage("chan1", 7200))
	require.NoError(t, db.RecordMessage("chan1", 7200))
	require.NoError(t, db.RecordMessage("chan1", 9000))

	require.NoError(t, db.AggregateHourlyAnalytics("chan1", 7200, 10800))

	rows := []models.ChannelAnalytics{}
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].TotalMessages)
	assert.Equal(t, int64(7200), rows[0].HourTimestamp)

	// Re-running the rollup updates the same row.
	require.NoError(t, db.RecordMessage("chan1", 9001))
	require.NoError(t, db.AggregateHourlyAnalytics("chan1", 7200, 10800))

	rows = nil
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 4, rows[0].TotalMessages)
}

func TestAggregateHourlyAnalyticsIdleChannel(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.AggregateHourlyAnalytics("chan1", 0, 3600))

	var count int64
	require.NoError(t, db.Model(&models.ChannelAnalytics{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCleanupAnalytics(t *testing.T) {
	db := newTestDB(t)
	now := time.Now().Unix()

	require.NoError(t, db.Create(&models.ChannelAnalytics{
		ChannelID: "chan1", HourTimestamp: now - 31*86400, TotalMessages: 5,
	}).Error)
	require.NoError(t, db.Create(&models.ChannelAnalytics{
		ChannelID: "chan1", HourTimestamp: now - 3600, TotalMessages: 7,
	}).Error)
	require.NoError(t, db.Create(&models.SlowmodeEffectiveness{
		ChannelID: "chan1", AppliedAt: now - 31*86400, SlowmodeValue: 10,
	}).Error)

	require.NoError(t, db.CleanupAnalytics(30))

	var analyticsCount, effectivenessCount int64
	require.NoError(t, db.Model(&models.ChannelAnalytics{}).Count(&analyticsCount).Error)
	require.NoError(t, db.Model(&models.SlowmodeEffectiveness{}).Count(&effectivenessCount).Error)
	assert.Equal(t, int64(1), analyticsCount)
	assert.Zero(t, effectivenessCount)
}

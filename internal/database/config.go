// internal/database/config.go
package database

import (
	"errors"

	"discord-slowmode-bot/internal/config"
	"discord-slowmode-bot/internal/models"

	"gorm.io/gorm"
)

// GetGuildConfig returns the configuration for a guild, creating and
// persisting a default row if none exists.
func (db *DB) GetGuildConfig(guildID string) (*models.GuildConfig, error) {
	var cfg models.GuildConfig
	err := db.First(&cfg, "guild_id = ?", guildID).Error
	if err == nil {
		return &cfg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cfg = models.GuildConfig{
		GuildID:          guildID,
		IsEnabled:        true,
		DefaultThreshold: config.DefaultThreshold,
		UpdateInterval:   config.DefaultUpdateInterval,
	}
	if err := db.Create(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetChannelConfig returns the configuration for a channel, creating and
// persisting a default row if none exists.
func (db *DB) GetChannelConfig(channelID, guildID string) (*models.ChannelConfig, error) {
	var cfg models.ChannelConfig
	err := db.First(&cfg, "channel_id = ?", channelID).Error
	if err == nil {
		return &cfg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cfg = models.ChannelConfig{
		ChannelID: channelID,
		GuildID:   guildID,
		IsEnabled: true,
		Threshold: nil,
	}
	if err := db.Create(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EnabledChannels returns all channel ids in a guild with slowmode enabled.
func (db *DB) EnabledChannels(guildID string) ([]string, error) {
	var channelIDs []string
	err := db.Model(&models.ChannelConfig{}).
		Where("guild_id = ? AND is_enabled = ?", guildID, true).
		Pluck("channel_id", &channelIDs).Error
	return channelIDs, err
}

// SetGuildEnabled toggles slowmode for an entire guild.
func (db *DB) SetGuildEnabled(guildID string, enabled bool) error {
	return db.Model(&models.GuildConfig{}).
		Where("guild_id = ?", guildID).
		Update("is_enabled", enabled).Error
}

// SetGuildThreshold sets the guild-wide default threshold (messages/minute).
func (db *DB) SetGuildThreshold(guildID string, threshold int) error {
	return db.Model(&models.GuildConfig{}).
		Where("guild_id = ?", guildID).
		Update("default_threshold", threshold).Error
}

// SetGuildInterval sets the slowmode update interval in seconds.
func (db *DB) SetGuildInterval(guildID string, seconds int) error {
	return db.Model(&models.GuildConfig{}).
		Where("guild_id = ?", guildID).
		Update("update_interval", seconds).Error
}

// SetChannelEnabled toggles slowmode for a single channel.
func (db *DB) SetChannelEnabled(channelID string, enabled bool) error {
	return db.Model(&models.ChannelConfig{}).
		Where("channel_id = ?", channelID).
		Update("is_enabled", enabled).Error
}

// SetChannelThreshold sets a channel-specific threshold override. A nil
// threshold resets the channel to the guild default.
func (db *DB) SetChannelThreshold(channelID string, threshold *int) error {
	return db.Model(&models.ChannelConfig{}).
		Where("channel_id = ?", channelID).
		Update("threshold", threshold).Error
}

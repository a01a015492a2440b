// internal/database/db.go
package database

import (
	"fmt"

	"discord-slowmode-bot/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type DB struct {
	*gorm.DB
}

// NewDB connects to Postgres and runs migrations.
func NewDB(host, user, password, dbname string, port int) (*DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		host, user, password, dbname, port)

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return New(gormDB)
}

// New wraps an existing gorm connection and runs migrations. Used directly by
// tests with an in-memory database.
func New(gormDB *gorm.DB) (*DB, error) {
	if err := gormDB.AutoMigrate(
		&models.GuildConfig{},
		&models.ChannelConfig{},
		&models.MessageActivity{},
		&models.ChannelPattern{},
		&models.SlowmodeChange{},
		&models.SlowmodeEffectiveness{},
		&models.ChannelAnalytics{},
	); err != nil {
		return nil, err
	}

	return &DB{gormDB}, nil
}

// database/db.go - Database Connection (PostgreSQL)
package database

import (
	"fmt"
	"time"

	"decantry/config"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// GormConfig is shared by the server and the tests so both translate driver errors the same way.
func GormConfig(logLevel logger.LogLevel) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// InitDB opens the PostgreSQL connection and runs migrations.
func InitDB(cfg config.DatabaseConfig, production bool) (*gorm.DB, error) {
	level := logger.Info
	if production {
		level = logger.Warn
	}

	conn, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(level))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("✅ PostgreSQL database connected successfully")

	if err := RunMigrations(conn); err != nil {
		return nil, err
	}

	db = conn
	return db, nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	if db == nil {
		log.Fatal("Database not initialized. Call InitDB() first.")
	}
	return db
}

// CloseDB closes the database connection
func CloseDB() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Info("Database connection closed")
	return nil
}

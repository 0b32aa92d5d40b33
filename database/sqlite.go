// database/sqlite.go - Local SQLite store for tooling and tests
package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQLite opens (or creates) a SQLite database at path and migrates it. ":memory:" gives a
// private in-memory store.
func OpenSQLite(path string) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(path), GormConfig(logger.Silent))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)

	if err := RunMigrations(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

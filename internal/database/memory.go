package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// OpenMemory opens a private in-memory SQLite database with every
// persistent model migrated. Used by tests and dry runs.
func OpenMemory() (*gorm.DB, error) {
	db, err := Open(sqlite.Open("file::memory:?_foreign_keys=on"))
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// each connection would otherwise get its own empty database
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(PersistentModels()...); err != nil {
		return nil, fmt.Errorf("migrate in-memory database: %w", err)
	}
	return db, nil
}

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// DriverCGO uses mattn/go-sqlite3 and needs cgo.
	DriverCGO = "sqlite3"
	// DriverPure uses the pure Go sqlite port, for CGO_ENABLED=0 builds.
	DriverPure = "sqlite"
)

func Open(driver, dbPath string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	var raw *sql.DB

	switch driver {
	case "", DriverCGO:
		var err error
		raw, err = sql.Open(DriverCGO, dbPath)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", dbPath, err)
		}
		dialector = &sqlite.Dialector{DriverName: DriverCGO, Conn: raw}
	case DriverPure:
		dialector = sqlite.Open(dbPath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		if raw != nil {
			_ = raw.Close()
		}
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	pool, err := db.DB()
	if err != nil {
		if raw != nil {
			_ = raw.Close()
		}
		return nil, err
	}
	// sqlite: one writer, and pragmas below are per connection
	pool.SetMaxOpenConns(1)
	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return nil, err
	}
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		_ = pool.Close()
		return nil, err
	}
	// journal_mode is not supported for in-memory databases
	_ = db.Exec("PRAGMA journal_mode = WAL").Error

	return db, nil
}

func Close(db *gorm.DB) error {
	pool, err := db.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// IsUniqueViolation reports whether err comes from a unique index. The pure
// Go driver's errors are translated by gorm; the cgo driver's are matched by
// message.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

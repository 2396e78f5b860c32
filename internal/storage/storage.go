// Package storage persists execution records with gorm.
//
// One table holds every execution. Its name is configurable, so every query
// goes through Store.table instead of relying on the model's TableName.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/LaravelPlus/commander/internal/logging"
	"github.com/LaravelPlus/commander/pkg/types"
)

// DefaultTable is the execution table used when none is configured.
const DefaultTable = "command_executions"

// Store provides access to execution records.
type Store struct {
	db        *gorm.DB
	tableName string
}

// Open connects to the configured database and migrates the execution table.
func Open(cfg types.DatabaseConfig, table string) (*Store, error) {
	dialector, err := dialect(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logging.NewGormLogger(time.Duration(cfg.SlowThreshold) * time.Millisecond),
	})
	if err != nil {
		return nil, &types.PersistenceError{Op: "open database", Err: err}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, &types.PersistenceError{Op: "open database", Err: err}
	}
	if cfg.Driver == "sqlite" {
		// Writers serialize on one connection; busy_timeout covers other processes.
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		}
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return New(db, table)
}

// New wraps an existing connection and migrates the execution table.
func New(db *gorm.DB, table string) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	s := &Store{db: db, tableName: table}
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func dialect(cfg types.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			return nil, fmt.Errorf("sqlite: dsn is required")
		}
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("sqlite: %w", err)
			}
			if !strings.Contains(dsn, "?") {
				dsn += "?_busy_timeout=5000&_journal_mode=WAL"
			}
		}
		return sqlite.Open(dsn), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Migrate creates or updates the execution table and its indexes.
func (s *Store) Migrate() error {
	if err := s.db.Table(s.tableName).AutoMigrate(&Execution{}); err != nil {
		return &types.PersistenceError{Op: "migrate " + s.tableName, Err: err}
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return &types.PersistenceError{Op: "ping", Err: err}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return &types.PersistenceError{Op: "ping", Err: err}
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Table returns the execution table name.
func (s *Store) Table() string {
	return s.tableName
}

func (s *Store) table(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.tableName)
}

func (s *Store) driver() string {
	return s.db.Dialector.Name()
}

// wrap converts a gorm error into a PersistenceError.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var perr *types.PersistenceError
	if errors.As(err, &perr) {
		return err
	}
	return &types.PersistenceError{Op: op, Err: err}
}

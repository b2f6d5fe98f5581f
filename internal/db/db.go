// Package db owns the Postgres connection for the desk.
package db

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"graindesk/internal/config"
)

// DB bundles the gorm handle with the raw pool it rides on.
type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

// Open connects and applies the pool limits from config. The gorm logger is
// silenced; query visibility comes from the application's own logging.
func Open(cfg config.DBConfig) (*DB, error) {
	gdb, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pool, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return &DB{Gorm: gdb, SQL: pool}, nil
}

func (d *DB) Close() error {
	if d == nil || d.SQL == nil {
		return nil
	}
	return d.SQL.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	if d == nil || d.SQL == nil {
		return nil
	}
	return d.SQL.PingContext(ctx)
}

// SetTimezone pins the session timezone so timestamptz round-trips match the
// desk's reporting day.
func (d *DB) SetTimezone(tz string) error {
	if tz == "" {
		return nil
	}
	_, err := d.SQL.Exec(fmt.Sprintf("SET TIME ZONE '%s'", tz))
	return err
}

package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

func OpenSQLite(path string, maxOpen, maxIdle int, maxLifetime time.Duration) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	return open("sqlite", dsn, maxOpen, maxIdle, maxLifetime)
}

// Open connects to the client store. driver is one of sqlite, mysql, pgx;
// for sqlite target is a file path, otherwise a driver DSN.
func Open(driver, target string, maxOpen, maxIdle int, maxLifetime time.Duration) (*sql.DB, error) {
	switch driver {
	case "sqlite":
		return OpenSQLite(target, maxOpen, maxIdle, maxLifetime)
	case "mysql", "pgx":
		return open(driver, target, maxOpen, maxIdle, maxLifetime)
	default:
		return nil, fmt.Errorf("unsupported client store driver %q", driver)
	}
}

func open(driver, dsn string, maxOpen, maxIdle int, maxLifetime time.Duration) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

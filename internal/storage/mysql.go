package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"

	"testmgr/internal/config"
)

// MySQLStore keeps the state in a key/value table of a MySQL database.
type MySQLStore struct {
	db    *sql.DB
	table string
}

// NewMySQLStore connects to the server, creates the database and the table if they don't exist
// and returns a store on top of them.
func NewMySQLStore(ctx context.Context, cfg config.MySQLConfig) (*MySQLStore, error) {
	if !isValidName(cfg.Database) {
		return nil, fmt.Errorf("invalid database name: %s", cfg.Database)
	}
	if err := ensureDatabase(ctx, cfg); err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", DSN(cfg, cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s, err := NewMySQLStoreFromDB(ctx, db, cfg.Table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewMySQLStoreFromDB uses an open database, creating table if it doesn't exist.
func NewMySQLStoreFromDB(ctx context.Context, db *sql.DB, table string) (*MySQLStore, error) {
	if table == "" {
		table = config.DefaultMySQLTable
	}
	if !isValidName(table) {
		return nil, fmt.Errorf("invalid table name: %s", table)
	}
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` (k VARCHAR(191) NOT NULL PRIMARY KEY, v MEDIUMTEXT NOT NULL, updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP)", table)
	if _, err := db.ExecContext(ctx, query); err != nil {
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return &MySQLStore{db: db, table: table}, nil
}

// DSN formats the connection string for cfg. An empty database connects to the server only.
func DSN(cfg config.MySQLConfig, database string) string {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	c.DBName = database
	c.Timeout = 5 * time.Second
	return c.FormatDSN()
}

// ensureDatabase checks if the database exists and creates it if it doesn't
func ensureDatabase(ctx context.Context, cfg config.MySQLConfig) error {
	// Connect to MySQL server (without specifying database)
	db, err := sql.Open("mysql", DSN(cfg, ""))
	if err != nil {
		return fmt.Errorf("failed to connect to database server: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database server: %w", err)
	}

	var exists bool
	query := "SELECT EXISTS(SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.SCHEMATA WHERE SCHEMA_NAME = ?)"
	if err := db.QueryRowContext(ctx, query, cfg.Database).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check database %s: %w", cfg.Database, err)
	}
	if exists {
		return nil
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.Database)); err != nil {
		return fmt.Errorf("failed to create database %s: %w", cfg.Database, err)
	}
	return nil
}

// isValidName validates a database or table name before it is spliced into a statement.
func isValidName(name string) bool {
	if len(name) == 0 || len(name) > 64 {
		return false
	}
	for _, r := range name {
		if !(r == '_' || r == '$' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			return false
		}
	}
	return true
}

// Get implements Store.
func (s *MySQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT v FROM `%s` WHERE k = ?", s.table), key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("mysql get %s: %w", key, err)
	}
	return v, true, nil
}

// Set implements Store.
func (s *MySQLStore) Set(ctx context.Context, key, value string) error {
	query := fmt.Sprintf("INSERT INTO `%s` (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)", s.table)
	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("mysql set %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *MySQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM `%s` WHERE k = ?", s.table), key); err != nil {
		return fmt.Errorf("mysql delete %s: %w", key, err)
	}
	return nil
}

// Close implements Store.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"marketsim-server/internal/shared/config"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
)

// DB is a connection pool that remembers which SQL dialect it speaks.
type DB struct {
	*sql.DB
	Driver string
}

type Tx struct {
	*sql.Tx
}

type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (db *DB) BeginTxContext(ctx context.Context) (*Tx, error) {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx}, nil
}

// Placeholder returns the n-th (1-based) bind parameter for the connection's dialect.
func (db *DB) Placeholder(n int) string {
	if db.Driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Connect opens the Postgres database described by the global configuration.
func Connect() (*DB, error) {
	cfg := config.GlobalConfig
	logger := slog.With("component", "database", "operation", "connect")

	logger.Info("Connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"user", cfg.Database.User,
		"database", cfg.Database.Name,
		"sslmode", cfg.Database.SSLMode,
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	sqlDB, err := sql.Open(DriverPostgres, cfg.ConnectionString())
	if err != nil {
		logger.Error("Failed to open database connection",
			"error", err, "host", cfg.Database.Host, "database", cfg.Database.Name)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	logger.Debug("Testing database connection with ping")
	if err := sqlDB.Ping(); err != nil {
		logger.Error("Failed to ping database",
			"error", err, "host", cfg.Database.Host, "database", cfg.Database.Name)
		if closeErr := sqlDB.Close(); closeErr != nil {
			logger.Error("Failed to close database after ping failure", "close_error", closeErr, "ping_error", err)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established successfully",
		"host", cfg.Database.Host, "database", cfg.Database.Name)

	return &DB{DB: sqlDB, Driver: DriverPostgres}, nil
}

// OpenSQLite opens (creating if needed) a single-writer SQLite database. path may be ":memory:".
func OpenSQLite(path string) (*DB, error) {
	logger := slog.With("component", "database", "operation", "open_sqlite", "path", path)

	if path == "" {
		return nil, fmt.Errorf("empty sqlite path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
	}

	sqlDB, err := sql.Open(DriverSQLite, path)
	if err != nil {
		logger.Error("Failed to open sqlite database", "error", err)
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// One connection: an in-memory database lives and dies with its connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			_ = sqlDB.Close()
			logger.Error("Failed to apply pragma", "pragma", p, "error", err)
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	logger.Info("SQLite database opened")
	return &DB{DB: sqlDB, Driver: DriverSQLite}, nil
}

// OpenMySQL opens the MySQL database at dsn. Migrations hold several statements,
// so multi-statement execution is always enabled.
func OpenMySQL(dsn string) (*DB, error) {
	cfg := config.GlobalConfig
	logger := slog.With("component", "database", "operation", "open_mysql")

	mysqlCfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		logger.Error("Failed to parse MySQL DSN", "error", err)
		return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
	}
	mysqlCfg.MultiStatements = true
	mysqlCfg.ParseTime = true

	logger.Info("Connecting to database", "addr", mysqlCfg.Addr, "database", mysqlCfg.DBName)

	sqlDB, err := sql.Open(DriverMySQL, mysqlCfg.FormatDSN())
	if err != nil {
		logger.Error("Failed to open database connection", "error", err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err, "addr", mysqlCfg.Addr)
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established successfully", "addr", mysqlCfg.Addr)
	return &DB{DB: sqlDB, Driver: DriverMySQL}, nil
}

package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const pingTimeout = 5 * time.Second

// PoolConfig bounds the connection pool behind the snapshot and markup stores.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// LogQueries enables GORM's statement logger.
	LogQueries bool
}

// DefaultPoolConfig returns the pool used when no overrides are set.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute}
}

// PoolConfigFromEnv reads POSTGRES_MAX_OPEN_CONNS, POSTGRES_MAX_IDLE_CONNS,
// POSTGRES_CONN_MAX_LIFETIME and POSTGRES_LOG_QUERIES on top of the defaults.
func PoolConfigFromEnv() (PoolConfig, error) {
	cfg := DefaultPoolConfig()
	var err error
	if cfg.MaxOpenConns, err = envInt("POSTGRES_MAX_OPEN_CONNS", cfg.MaxOpenConns); err != nil {
		return PoolConfig{}, err
	}
	if cfg.MaxIdleConns, err = envInt("POSTGRES_MAX_IDLE_CONNS", cfg.MaxIdleConns); err != nil {
		return PoolConfig{}, err
	}
	if raw := strings.TrimSpace(os.Getenv("POSTGRES_CONN_MAX_LIFETIME")); raw != "" {
		lifetime, parseErr := time.ParseDuration(raw)
		if parseErr != nil || lifetime <= 0 {
			return PoolConfig{}, fmt.Errorf("POSTGRES_CONN_MAX_LIFETIME must be a positive duration, got %q", raw)
		}
		cfg.ConnMaxLifetime = lifetime
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("POSTGRES_LOG_QUERIES"))) {
	case "1", "true", "yes", "on":
		cfg.LogQueries = true
	}
	if cfg.MaxIdleConns > cfg.MaxOpenConns {
		cfg.MaxIdleConns = cfg.MaxOpenConns
	}
	return cfg, nil
}

// Connect opens a PostgreSQL connection via GORM, applies the pool limits and verifies connectivity.
func Connect(ctx context.Context, dsn string, pool PoolConfig) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	logLevel := gormlogger.Silent
	if pool.LogQueries {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(logLevel)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Closer returns a cleanup function that closes the pool behind db.
func Closer(db *gorm.DB, logger *slog.Logger) func() {
	return func() {
		if db == nil {
			return
		}
		sqlDB, err := db.DB()
		if err != nil {
			return
		}
		if err := sqlDB.Close(); err != nil && logger != nil {
			logger.Warn("failed to close postgres pool", slog.String("error", err.Error()))
		}
	}
}

// ConnectFromEnv dials PostgreSQL using POSTGRES_DSN and the pool settings from the environment.
func ConnectFromEnv(ctx context.Context, logger *slog.Logger) (*gorm.DB, func(), error) {
	dsn := strings.TrimSpace(os.Getenv("POSTGRES_DSN"))
	if dsn == "" {
		return nil, func() {}, fmt.Errorf("POSTGRES_DSN not set")
	}
	pool, err := PoolConfigFromEnv()
	if err != nil {
		return nil, func() {}, err
	}
	db, err := Connect(ctx, dsn, pool)
	if err != nil {
		return nil, func() {}, fmt.Errorf("connect to postgres: %w", err)
	}
	if logger != nil {
		logger.Info("postgres connection established", slog.Int("max_open_conns", pool.MaxOpenConns))
	}
	return db, Closer(db, logger), nil
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is a global variable to hold the database connection pool.
var DB *pgxpool.Pool

// Connect sets up the database connection pool and checks it with a ping.
func Connect(ctx context.Context, databaseURL string) error {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse database config: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}

	DB = pool
	log.Println("✅ [DB] Successfully connected to the database")
	return nil
}

// GetDB returns the shared pool, nil before Connect.
func GetDB() *pgxpool.Pool {
	return DB
}

// Close closes the database connection pool.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
		log.Println("[DB] Database connection pool closed")
	}
}

// Ping checks the pool is reachable.
func Ping(ctx context.Context) error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	return DB.Ping(ctx)
}

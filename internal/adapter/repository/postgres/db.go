// Package postgres implements the location and share repositories on
// PostgreSQL through database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/location-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/location-service/internal/location/domain"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

func NewPostgresConnection(cfg *config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", strings.TrimSpace(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns / 2)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func remote(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrRemote, op, err)
}

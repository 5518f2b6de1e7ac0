// Package sqldb implements repository.Store on sqlx. The same
// implementation serves two drivers: postgres for the server deployment
// and sqlite for local use and tests, with queries written against `?`
// bindvars and rebound per driver.
package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/rxforecaster/backend-go/internal/config"
)

type DB struct {
	*sqlx.DB
	driver string
	sem    *semaphore.Weighted
}

// Open connects to the configured backend and applies the pool settings.
// Supported drivers are "postgres" and "sqlite3".
func Open(cfg config.DatabaseConfig) (*DB, error) {
	var dsn string
	switch cfg.Driver {
	case "postgres":
		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
	case "sqlite3":
		dsn = cfg.Path
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlx.Connect(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite3" {
		// sqlite serializes writers internally; a wider pool only
		// produces SQLITE_BUSY errors.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	return &DB{
		DB:     db,
		driver: cfg.Driver,
		sem:    semaphore.NewWeighted(10),
	}, nil
}

// WithTx executes fn within a transaction, bounded by the connection
// semaphore.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Package database opens Postgres connections for the pgvector store. Passwords come from
// a PasswordSource so short-lived cloud access tokens can be fetched per connection.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// Settings describes a Postgres connection.
type Settings struct {
	URL          string
	Username     string
	MaxOpenConns int
	MaxIdleConns int
}

// OpenPostgres opens a pooled *sql.DB over the pgx driver. When passwords is non-nil it is
// asked for a password before every new physical connection.
func OpenPostgres(ctx context.Context, cfg Settings, passwords PasswordSource) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, errors.New("database url is required")
	}
	cc, err := pgx.ParseConfig(normalizeURL(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.Username != "" {
		cc.User = cfg.Username
	}

	var opts []stdlib.OptionOpenDB
	if passwords != nil {
		opts = append(opts, stdlib.OptionBeforeConnect(func(ctx context.Context, c *pgx.ConnConfig) error {
			pw, err := passwords.Password(ctx)
			if err != nil {
				return fmt.Errorf("database password: %w", err)
			}
			c.Password = pw
			return nil
		}))
	}
	db := stdlib.OpenDB(*cc, opts...)

	maxOpen, maxIdle := cfg.MaxOpenConns, cfg.MaxIdleConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	if maxIdle <= 0 {
		maxIdle = 10
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	slog.Info("postgres connected", "host", cc.Host, "database", cc.Database, "user", cc.User)
	return db, nil
}

// normalizeURL accepts JDBC-style URLs (jdbc:postgresql://host/db) as well as plain
// postgres:// ones.
func normalizeURL(u string) string {
	u = strings.TrimSpace(u)
	u = strings.TrimPrefix(u, "jdbc:")
	if strings.HasPrefix(u, "postgresql://") {
		return "postgres://" + strings.TrimPrefix(u, "postgresql://")
	}
	return u
}

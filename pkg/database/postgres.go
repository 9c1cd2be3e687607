package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/noah-isme/parts-inventory-api/pkg/config"
)

const (
	applicationName = "parts-inventory-api"
	pingTimeout     = 5 * time.Second
)

// NewPostgres opens the ledger database and verifies it is reachable.
func NewPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dataSourceName(cfg))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(durationOr(cfg.ConnMaxLifetime, time.Hour))
	db.SetConnMaxIdleTime(durationOr(cfg.ConnMaxIdleTime, 30*time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return db, nil
}

// dataSourceName builds a lib/pq keyword DSN. Values are quoted so passwords may
// contain spaces or quotes.
func dataSourceName(cfg config.DatabaseConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s application_name=%s",
		quoteDSNValue(cfg.Host),
		cfg.Port,
		quoteDSNValue(cfg.User),
		quoteDSNValue(cfg.Password),
		quoteDSNValue(cfg.Name),
		sslMode,
		applicationName,
	)
}

func quoteDSNValue(v string) string {
	escaped := make([]rune, 0, len(v)+2)
	escaped = append(escaped, '\'')
	for _, r := range v {
		if r == '\'' || r == '\\' {
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, r)
	}
	return string(append(escaped, '\''))
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

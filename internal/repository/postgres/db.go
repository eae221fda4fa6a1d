package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres

	"github.com/xela07ax/devpulse/internal/infra"
)

// Open открывает пул соединений. Само соединение проверяется позже через Ping.
func Open(cfg infra.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
		db.SetMaxIdleConns(int(cfg.MaxConns))
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS metric_points (
	series TEXT NOT NULL,
	period TEXT NOT NULL,
	value  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (series, period)
);
CREATE TABLE IF NOT EXISTS teams (
	id            INTEGER PRIMARY KEY,
	name          TEXT NOT NULL,
	lead          TEXT NOT NULL DEFAULT '',
	member_count  INTEGER NOT NULL DEFAULT 0,
	efficiency    DOUBLE PRECISION NOT NULL DEFAULT 0,
	velocity      DOUBLE PRECISION NOT NULL DEFAULT 0,
	satisfaction  DOUBLE PRECISION NOT NULL DEFAULT 0,
	quality_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	trend         TEXT NOT NULL DEFAULT 'flat',
	trend_value   DOUBLE PRECISION NOT NULL DEFAULT 0,
	skills        JSONB NOT NULL DEFAULT '[]',
	metrics       JSONB NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS projects (
	id          INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT '',
	progress    DOUBLE PRECISION NOT NULL DEFAULT 0,
	start_date  TEXT NOT NULL DEFAULT '',
	end_date    TEXT NOT NULL DEFAULT '',
	teams       JSONB NOT NULL DEFAULT '[]',
	lead        TEXT NOT NULL DEFAULT '',
	members     INTEGER NOT NULL DEFAULT 0,
	health      TEXT NOT NULL DEFAULT '',
	risk        TEXT NOT NULL DEFAULT '',
	priority    TEXT NOT NULL DEFAULT '',
	metrics     JSONB NOT NULL DEFAULT '{}',
	trends      JSONB NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS members (
	id           INTEGER PRIMARY KEY,
	name         TEXT NOT NULL,
	team         TEXT NOT NULL,
	role         TEXT NOT NULL DEFAULT '',
	skills       JSONB NOT NULL DEFAULT '[]',
	efficiency   DOUBLE PRECISION NOT NULL DEFAULT 0,
	contribution DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS activities (
	id          BIGINT PRIMARY KEY,
	type        TEXT NOT NULL,
	project     TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL,
	actor       TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL,
	status      TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS integration_audit (
	id          UUID PRIMARY KEY,
	trace_id    TEXT NOT NULL,
	upstream    TEXT NOT NULL,
	operation   TEXT NOT NULL,
	target      TEXT NOT NULL,
	status      TEXT NOT NULL,
	duration_ms BIGINT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	timestamp   TIMESTAMPTZ NOT NULL
);`

// Migrate создаёт таблицы, если их ещё нет. Данные сервис сам не пишет,
// кроме журнала интеграций.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

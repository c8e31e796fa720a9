package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool подключается к Postgres по dsn и проверяет соединение.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 4
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// schema — таблицы журнала. Создаются при первом подключении.
const schema = `
CREATE TABLE IF NOT EXISTS sweep_runs (
	id          uuid PRIMARY KEY,
	root        text        NOT NULL DEFAULT '',
	started_at  timestamptz NOT NULL,
	finished_at timestamptz,
	error       text
);

CREATE TABLE IF NOT EXISTS sweep_events (
	id         uuid PRIMARY KEY,
	run_id     uuid        NOT NULL REFERENCES sweep_runs (id) ON DELETE CASCADE,
	type       text        NOT NULL,
	project    text        NOT NULL DEFAULT '',
	step_id    integer,
	weight     double precision,
	pid        integer,
	message    text,
	created_at timestamptz NOT NULL
);

CREATE INDEX IF NOT EXISTS sweep_events_run_idx ON sweep_events (run_id, created_at);
`

// Migrate создаёт таблицы журнала, если их нет.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db dsn: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

var migrations = []string{
	`create table if not exists users (
		id uuid primary key default gen_random_uuid(),
		email text not null unique,
		created_at timestamptz not null default now()
	)`,
	`create table if not exists user_credentials (
		user_id uuid primary key references users(id) on delete cascade,
		password_hash text not null
	)`,
	`create table if not exists positions (
		id uuid primary key default gen_random_uuid(),
		user_id uuid not null references users(id) on delete cascade,
		coin text not null,
		side text not null,
		status text not null,
		entries jsonb not null default '[]',
		closes jsonb not null default '[]',
		stop_loss_price numeric,
		take_profit_price numeric,
		comment text not null default '',
		source text not null default 'manual',
		exchange text,
		exchange_position_id text,
		exchange_product_type text,
		last_synced_at timestamptz,
		created_at timestamptz not null default now(),
		updated_at timestamptz not null default now()
	)`,
	`create unique index if not exists positions_exchange_key
		on positions (user_id, exchange, exchange_position_id)
		where exchange_position_id is not null`,
	`create index if not exists positions_user_status
		on positions (user_id, status)`,
}

// Migrate applies the idempotent schema DDL.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

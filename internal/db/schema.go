package db

import (
	"context"
	"fmt"
)

// SQL schemas for the gateway's tables. The unique (unit_id, time) primary
// key on status is what makes insert idempotent under broker redelivery.

const (
	clustersTableSQL = `
		CREATE TABLE IF NOT EXISTS clusters (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			account_id BIGINT,
			created TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	unitsTableSQL = `
		CREATE TABLE IF NOT EXISTS units (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT NOT NULL UNIQUE,
			latitude DOUBLE PRECISION NOT NULL DEFAULT 0,
			longitude DOUBLE PRECISION NOT NULL DEFAULT 0,
			cluster_id BIGINT REFERENCES clusters(id),
			hour_on INT NOT NULL DEFAULT 18,
			minute_on INT NOT NULL DEFAULT 0,
			hour_off INT NOT NULL DEFAULT 6,
			minute_off INT NOT NULL DEFAULT 0,
			toggle BOOLEAN NOT NULL DEFAULT false,
			created TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	statusTableSQL = `
		CREATE TABLE IF NOT EXISTS status (
			unit_id BIGINT NOT NULL REFERENCES units(id),
			time TIMESTAMPTZ NOT NULL,
			power DOUBLE PRECISION,
			current DOUBLE PRECISION,
			voltage DOUBLE PRECISION,
			toggle BOOLEAN,
			power_factor DOUBLE PRECISION,
			frequency DOUBLE PRECISION,
			total_energy DOUBLE PRECISION,
			PRIMARY KEY (unit_id, time)
		)`

	tasksTableSQL = `
		CREATE TABLE IF NOT EXISTS tasks (
			id BIGSERIAL PRIMARY KEY,
			time TIMESTAMPTZ NOT NULL DEFAULT now(),
			device_id BIGINT NOT NULL REFERENCES units(id),
			type TEXT NOT NULL,
			assignee_id BIGINT,
			status TEXT NOT NULL DEFAULT 'PENDING'
		)`
)

// EnsureSchema creates the gateway tables when they do not exist yet.
func (d *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{clustersTableSQL, unitsTableSQL, statusTableSQL, tasksTableSQL} {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

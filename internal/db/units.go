package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"unit-gateway/internal/models"
)

// ErrUnitNotFound is returned when no unit matches the given address or id.
// Unregistered devices are expected transiently, so callers treat this as a
// skip, not a failure.
var ErrUnitNotFound = errors.New("unit not found")

// UnitStore reads and mutates Unit records.
type UnitStore struct {
	db *DB
}

func NewUnitStore(db *DB) *UnitStore {
	return &UnitStore{db: db}
}

const unitColumns = `id, name, address, latitude, longitude, cluster_id,
       hour_on, minute_on, hour_off, minute_off, toggle, created, updated`

func scanUnit(row pgx.Row) (*models.Unit, error) {
	var u models.Unit
	err := row.Scan(
		&u.ID, &u.Name, &u.Address, &u.Latitude, &u.Longitude, &u.ClusterID,
		&u.Schedule.HourOn, &u.Schedule.MinuteOn, &u.Schedule.HourOff,
		&u.Schedule.MinuteOff, &u.Toggle, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnitNotFound
		}
		return nil, fmt.Errorf("failed to scan unit: %w", err)
	}
	return &u, nil
}

// FindByAddress resolves a hardware address to its Unit.
func (s *UnitStore) FindByAddress(ctx context.Context, address string) (*models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE address = $1`
	return scanUnit(s.db.Pool.QueryRow(ctx, query, address))
}

// FindByID looks up a Unit by its internal id.
func (s *UnitStore) FindByID(ctx context.Context, id int64) (*models.Unit, error) {
	query := `SELECT ` + unitColumns + ` FROM units WHERE id = $1`
	return scanUnit(s.db.Pool.QueryRow(ctx, query, id))
}

// UpdateSchedule overwrites a unit's stored power schedule.
func (s *UnitStore) UpdateSchedule(ctx context.Context, id int64, sched models.Schedule) error {
	query := `
        UPDATE units
        SET hour_on = $1, minute_on = $2, hour_off = $3, minute_off = $4, updated = now()
        WHERE id = $5`
	result, err := s.db.Pool.Exec(ctx, query,
		sched.HourOn, sched.MinuteOn, sched.HourOff, sched.MinuteOff, id)
	if err != nil {
		return fmt.Errorf("failed to update schedule for unit %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrUnitNotFound
	}
	return nil
}

// UpdateToggle records the commanded power state of a unit.
func (s *UnitStore) UpdateToggle(ctx context.Context, id int64, on bool) error {
	query := `UPDATE units SET toggle = $1, updated = now() WHERE id = $2`
	result, err := s.db.Pool.Exec(ctx, query, on, id)
	if err != nil {
		return fmt.Errorf("failed to update toggle for unit %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrUnitNotFound
	}
	return nil
}

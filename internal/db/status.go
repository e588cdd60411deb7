package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"unit-gateway/internal/models"
)

// ErrDuplicateStatus marks an insert that collided with an existing
// (unit_id, time) row. Broker redelivery makes this an expected outcome,
// not a failure.
var ErrDuplicateStatus = errors.New("duplicate status record")

// StatusStore persists telemetry readings.
type StatusStore struct {
	db *DB
}

func NewStatusStore(db *DB) *StatusStore {
	return &StatusStore{db: db}
}

// Exists reports whether a reading for (unitID, t) is already persisted.
func (s *StatusStore) Exists(ctx context.Context, unitID int64, t time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM status WHERE unit_id = $1 AND time = $2)`
	if err := s.db.Pool.QueryRow(ctx, query, unitID, t).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check status existence: %w", err)
	}
	return exists, nil
}

// Insert persists one reading. A primary-key collision is reported as
// ErrDuplicateStatus so the caller can treat redelivery as success.
func (s *StatusStore) Insert(ctx context.Context, rec models.StatusRecord) error {
	query := `
        INSERT INTO status (
            unit_id, time, power, current, voltage, toggle,
            power_factor, frequency, total_energy
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.Pool.Exec(ctx, query,
		rec.UnitID, rec.Time, rec.Power, rec.Current, rec.Voltage, rec.Toggle,
		rec.PowerFactor, rec.Frequency, rec.TotalEnergy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateStatus
		}
		return fmt.Errorf("failed to insert status record: %w", err)
	}
	return nil
}

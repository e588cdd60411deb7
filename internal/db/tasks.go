package db

import (
	"context"
	"errors"
	"fmt"

	"unit-gateway/internal/models"
)

// ErrTaskNotFound is returned when a task id does not exist.
var ErrTaskNotFound = errors.New("task not found")

// TaskStore persists maintenance tasks opened by fault detection.
type TaskStore struct {
	db *DB
}

func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{db: db}
}

// OpenTaskExists reports whether a non-COMPLETED task of the given type is
// already open for the device. This is the open-task suppression check.
func (s *TaskStore) OpenTaskExists(ctx context.Context, deviceID int64, typ models.TaskType) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS(
            SELECT 1 FROM tasks
            WHERE device_id = $1 AND type = $2 AND status != $3
        )`
	err := s.db.Pool.QueryRow(ctx, query, deviceID, typ, models.TaskCompleted).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check open tasks: %w", err)
	}
	return exists, nil
}

// Create opens a new PENDING task for the device.
func (s *TaskStore) Create(ctx context.Context, deviceID int64, typ models.TaskType) error {
	query := `
        INSERT INTO tasks (time, device_id, type, status)
        VALUES (now(), $1, $2, $3)`
	if _, err := s.db.Pool.Exec(ctx, query, deviceID, typ, models.TaskPending); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// UpdateStatus moves a task through the operator workflow.
func (s *TaskStore) UpdateStatus(ctx context.Context, id int64, status models.TaskStatus) error {
	query := `UPDATE tasks SET status = $1 WHERE id = $2`
	result, err := s.db.Pool.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update task %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// List returns tasks newest first.
func (s *TaskStore) List(ctx context.Context, limit, offset int) ([]models.Task, error) {
	query := `
        SELECT id, time, device_id, type, assignee_id, status
        FROM tasks
        ORDER BY time DESC
        LIMIT $1 OFFSET $2`
	rows, err := s.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.Time, &t.DeviceID, &t.Type, &t.AssigneeID, &t.Status); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

package models

import "time"

// TaskType identifies the fault condition a Task was opened for.
type TaskType string

const (
	TaskDisconnection TaskType = "DISCONNECTION"
	TaskPowerOff      TaskType = "POWER_OFF"
)

// TaskStatus is the operator workflow state of a Task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
)

// ValidTaskStatus reports whether s is one of the workflow states.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// Task is a maintenance ticket auto-opened by fault detection. At most one
// non-COMPLETED task of a given type may exist per device.
type Task struct {
	ID         int64      `json:"id"`
	Time       time.Time  `json:"time"`
	DeviceID   int64      `json:"device_id"`
	Type       TaskType   `json:"type"`
	AssigneeID *int64     `json:"assignee_id,omitempty"`
	Status     TaskStatus `json:"status"`
}

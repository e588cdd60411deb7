// Package gateway implements the telemetry ingestion and command dispatch
// core: it consumes resolved device messages from the topic router, persists
// readings idempotently, evaluates fault rules, keeps the last-known-state
// cache fresh, and feeds the realtime fan-out.
package gateway

import (
	"context"
	"time"

	"unit-gateway/internal/logging"
	"unit-gateway/internal/models"
)

// UnitStore is the slice of the relational store the gateway needs for
// units.
type UnitStore interface {
	FindByID(ctx context.Context, id int64) (*models.Unit, error)
	UpdateSchedule(ctx context.Context, id int64, sched models.Schedule) error
}

// StatusStore persists telemetry readings idempotently.
type StatusStore interface {
	Exists(ctx context.Context, unitID int64, t time.Time) (bool, error)
	Insert(ctx context.Context, rec models.StatusRecord) error
}

// TaskStore opens maintenance tasks with open-task suppression.
type TaskStore interface {
	OpenTaskExists(ctx context.Context, deviceID int64, typ models.TaskType) (bool, error)
	Create(ctx context.Context, deviceID int64, typ models.TaskType) error
}

// SnapshotCache is the last-known-state cache with per-key expiry.
type SnapshotCache interface {
	Set(ctx context.Context, unitID int64, snap models.Snapshot) error
}

// FanoutPublisher pushes a serialized snapshot to all live viewers of a
// unit. Implementations must not block the caller.
type FanoutPublisher interface {
	Publish(unitID int64, message []byte)
}

// NotificationBroadcaster raises a system-wide notification.
type NotificationBroadcaster interface {
	Broadcast(n models.Notification)
}

// CommandSender pushes the stored schedule down to a device.
type CommandSender interface {
	Schedule(ctx context.Context, unitID int64, sched models.Schedule) error
}

// Exporter forwards persisted readings to the analytics pipeline.
// Implementations must not block the caller.
type Exporter interface {
	Export(rec models.StatusRecord)
}

// Options tunes the gateway's policies.
type Options struct {
	// PowerLossThresholdW is the reported power below which a commanded-on
	// unit is considered de-energized.
	PowerLossThresholdW float64
	// StoreTimeout bounds each message's store and cache calls. A timeout
	// drops the message; broker redelivery is the recovery mechanism.
	StoreTimeout time.Duration
}

// Service is the message-handling core behind the topic router.
type Service struct {
	units    UnitStore
	statuses StatusStore
	tasks    TaskStore
	cache    SnapshotCache
	hub      FanoutPublisher
	notifier NotificationBroadcaster
	commands CommandSender
	exporter Exporter
	logger   *logging.Logger
	opts     Options
}

func New(
	units UnitStore,
	statuses StatusStore,
	tasks TaskStore,
	cache SnapshotCache,
	hub FanoutPublisher,
	notifier NotificationBroadcaster,
	commands CommandSender,
	logger *logging.Logger,
	opts Options,
) *Service {
	if opts.PowerLossThresholdW == 0 {
		opts.PowerLossThresholdW = 5
	}
	if opts.StoreTimeout == 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	return &Service{
		units:    units,
		statuses: statuses,
		tasks:    tasks,
		cache:    cache,
		hub:      hub,
		notifier: notifier,
		commands: commands,
		logger:   logger,
		opts:     opts,
	}
}

// SetExporter wires the optional analytics export.
func (s *Service) SetExporter(e Exporter) {
	s.exporter = e
}

// openTask creates a task of the given type unless one is already open for
// the device.
func (s *Service) openTask(ctx context.Context, deviceID int64, typ models.TaskType) {
	open, err := s.tasks.OpenTaskExists(ctx, deviceID, typ)
	if err != nil {
		s.logger.Errorf("gateway: open-task check for unit %d failed: %v", deviceID, err)
		return
	}
	if open {
		return
	}
	if err := s.tasks.Create(ctx, deviceID, typ); err != nil {
		s.logger.Errorf("gateway: creating %s task for unit %d failed: %v", typ, deviceID, err)
		return
	}
	s.logger.Infof("gateway: opened %s task for unit %d", typ, deviceID)
}

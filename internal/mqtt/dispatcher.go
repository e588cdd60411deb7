package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"unit-gateway/internal/db"
	"unit-gateway/internal/logging"
	"unit-gateway/internal/models"
)

// CommandKind is the closed set of outbound device commands.
type CommandKind string

const (
	CommandToggle   CommandKind = "TOGGLE"
	CommandSchedule CommandKind = "SCHEDULE"
	CommandAuto     CommandKind = "AUTO"
)

// envelope is the wire form of a device command.
type envelope struct {
	Command CommandKind `json:"command"`
	Payload interface{} `json:"payload"`
}

// Publisher is the transport's publish side.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// AddressResolver maps unit ids back to hardware addresses.
type AddressResolver interface {
	FindByID(ctx context.Context, id int64) (*models.Unit, error)
}

// Dispatcher builds and publishes device commands. Publishing is
// fire-and-forget: no delivery acknowledgement is awaited and an unknown
// unit is a logged no-op, never an error that aborts message processing.
type Dispatcher struct {
	units     AddressResolver
	publisher Publisher
	logger    *logging.Logger
}

func NewDispatcher(units AddressResolver, publisher Publisher, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{units: units, publisher: publisher, logger: logger}
}

// Command publishes an envelope for kind to unit/<address>/command.
func (d *Dispatcher) Command(ctx context.Context, unitID int64, kind CommandKind, payload interface{}) error {
	unit, err := d.units.FindByID(ctx, unitID)
	if err != nil {
		if errors.Is(err, db.ErrUnitNotFound) {
			d.logger.Warnf("dispatcher: unit %d not found, skipping %s command", unitID, kind)
			return nil
		}
		return fmt.Errorf("failed to resolve unit %d: %w", unitID, err)
	}

	body, err := json.Marshal(envelope{Command: kind, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal %s command: %w", kind, err)
	}

	topic := fmt.Sprintf("unit/%s/command", unit.Address)
	if err := d.publisher.Publish(topic, body); err != nil {
		return fmt.Errorf("failed to publish %s command to %s: %w", kind, topic, err)
	}
	d.logger.Infof("dispatcher: published %s command to %s", kind, topic)
	return nil
}

// Toggle commands the unit on or off.
func (d *Dispatcher) Toggle(ctx context.Context, unitID int64, on bool) error {
	payload := "off"
	if on {
		payload = "on"
	}
	return d.Command(ctx, unitID, CommandToggle, payload)
}

// Schedule pushes the stored on/off schedule down to the unit.
func (d *Dispatcher) Schedule(ctx context.Context, unitID int64, sched models.Schedule) error {
	return d.Command(ctx, unitID, CommandSchedule, sched.Payload())
}

// Auto returns the unit to schedule-driven operation.
func (d *Dispatcher) Auto(ctx context.Context, unitID int64) error {
	return d.Command(ctx, unitID, CommandAuto, nil)
}

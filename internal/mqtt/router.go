package mqtt

import (
	"context"
	"errors"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"unit-gateway/internal/db"
	"unit-gateway/internal/logging"
	"unit-gateway/internal/models"
)

// MessageKind is the closed set of inbound device message kinds.
type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindStatus
	KindAlive
)

// parseTopic splits a topic of the form unit/<address>/<kind> into its
// hardware address and message kind. ok is false for anything else.
func parseTopic(topic string) (address string, kind MessageKind, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "unit" || parts[1] == "" {
		return "", KindUnknown, false
	}
	switch parts[2] {
	case "status":
		return parts[1], KindStatus, true
	case "alive":
		return parts[1], KindAlive, true
	}
	return parts[1], KindUnknown, false
}

// UnitResolver maps hardware addresses to registered units.
type UnitResolver interface {
	FindByAddress(ctx context.Context, address string) (*models.Unit, error)
}

// Handler receives resolved device messages.
type Handler interface {
	HandleStatus(ctx context.Context, unitID int64, payload []byte)
	HandleAlive(ctx context.Context, unitID int64, payload []byte)
}

// Router parses inbound topics, resolves the hardware address to a unit id,
// and dispatches the raw payload to the matching handler. Every failure
// mode drops the message and logs; nothing propagates to the transport
// callback, so the ingestion loop always survives.
type Router struct {
	units   UnitResolver
	handler Handler
	logger  *logging.Logger
}

func NewRouter(units UnitResolver, handler Handler, logger *logging.Logger) *Router {
	return &Router{units: units, handler: handler, logger: logger}
}

// Handle is the paho message callback.
func (r *Router) Handle(_ mqtt.Client, msg mqtt.Message) {
	r.Route(context.Background(), msg.Topic(), msg.Payload())
}

// Route processes one inbound message.
func (r *Router) Route(ctx context.Context, topic string, payload []byte) {
	address, kind, ok := parseTopic(topic)
	if !ok {
		r.logger.Warnf("router: dropping message on unrecognized topic %q", topic)
		return
	}

	unit, err := r.units.FindByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, db.ErrUnitNotFound) {
			// Unregistered devices show up transiently while being provisioned.
			r.logger.Infof("router: no unit registered for address %s, dropping", address)
		} else {
			r.logger.Errorf("router: unit lookup for address %s failed: %v", address, err)
		}
		return
	}

	switch kind {
	case KindStatus:
		r.handler.HandleStatus(ctx, unit.ID, payload)
	case KindAlive:
		r.handler.HandleAlive(ctx, unit.ID, payload)
	}
}

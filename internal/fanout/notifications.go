package fanout

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"unit-gateway/internal/logging"
	"unit-gateway/internal/models"
)

// Escalator forwards a notification to an external channel. Registered for
// CRITICAL notifications only.
type Escalator interface {
	Escalate(ctx context.Context, n models.Notification) error
}

// Registry is the system-wide notification channel. Connections are
// permission-gated by the caller before Connect; the registry itself only
// tracks live connections and the retained backlog.
type Registry struct {
	mu            sync.Mutex
	connections   map[Conn]bool
	notifications []models.Notification

	queue     chan models.Notification
	escalator Escalator
	logger    *logging.Logger
}

func NewRegistry(queueSize int, logger *logging.Logger) *Registry {
	return &Registry{
		connections: make(map[Conn]bool),
		queue:       make(chan models.Notification, queueSize),
		logger:      logger,
	}
}

// SetEscalator wires an external channel for CRITICAL notifications.
func (r *Registry) SetEscalator(e Escalator) {
	r.escalator = e
}

// Connect pushes the retained backlog, then registers the viewer. The push
// happens before registration because the delivery worker owns all writes
// to registered connections; writing here after registering would race it.
func (r *Registry) Connect(conn Conn) {
	r.mu.Lock()
	backlog := make([]models.Notification, len(r.notifications))
	copy(backlog, r.notifications)
	r.mu.Unlock()

	if len(backlog) > 0 {
		data, _ := json.Marshal(backlog)
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			r.logger.Warnf("notifications: backlog push failed, dropping connection: %v", err)
			return
		}
	}

	r.mu.Lock()
	r.connections[conn] = true
	r.mu.Unlock()
}

// Disconnect removes a viewer.
func (r *Registry) Disconnect(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.connections, conn)
}

// Broadcast retains the notification and enqueues it for delivery. Called
// from the ingestion path, so it never blocks: a full queue drops the push
// with a warning while the retained list still records it.
func (r *Registry) Broadcast(n models.Notification) {
	r.mu.Lock()
	r.notifications = append(r.notifications, n)
	r.mu.Unlock()

	select {
	case r.queue <- n:
	default:
		r.logger.Warnf("notifications: queue full, dropping push for %s", n.ID)
	}
}

// Run drains the delivery queue until ctx is cancelled.
func (r *Registry) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.logger.Infof("notifications: worker stopped")
			return
		case n := <-r.queue:
			r.deliver(ctx, n)
		}
	}
}

func (r *Registry) deliver(ctx context.Context, n models.Notification) {
	data, _ := json.Marshal([]models.Notification{n})

	r.mu.Lock()
	for conn := range r.connections {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			r.logger.Warnf("notifications: write failed, dropping connection: %v", err)
			delete(r.connections, conn)
			_ = conn.Close()
		}
	}
	r.mu.Unlock()

	if n.Type == models.NotifyCritical && r.escalator != nil {
		if err := r.escalator.Escalate(ctx, n); err != nil {
			r.logger.Errorf("notifications: escalation for %s failed: %v", n.ID, err)
		}
	}
}

// Retained returns a copy of the retained notification list.
func (r *Registry) Retained() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}

// Clear drops the retained backlog.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = nil
}

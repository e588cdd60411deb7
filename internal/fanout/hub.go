package fanout

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"unit-gateway/internal/logging"
	"unit-gateway/internal/models"
)

// Conn is the write side of a viewer connection. *websocket.Conn satisfies
// it; tests substitute fakes.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// SnapshotSource reads the last known state for a unit. A (nil, nil) return
// means no entry.
type SnapshotSource interface {
	Get(ctx context.Context, unitID int64) ([]byte, error)
}

type delivery struct {
	unitID  int64
	message []byte
}

// Hub is the per-unit viewer registry. Subscribe/Unsubscribe run on API
// goroutines while Publish runs on the ingestion path, so the map is
// mutex-guarded. Publishes go through a bounded queue drained by Run so a
// slow viewer can never stall telemetry ingestion.
type Hub struct {
	mu      sync.Mutex
	viewers map[int64]map[Conn]bool

	queue     chan delivery
	snapshots SnapshotSource
	logger    *logging.Logger
}

func NewHub(snapshots SnapshotSource, queueSize int, logger *logging.Logger) *Hub {
	return &Hub{
		viewers:   make(map[int64]map[Conn]bool),
		queue:     make(chan delivery, queueSize),
		snapshots: snapshots,
		logger:    logger,
	}
}

// Subscribe pushes the unit's current snapshot, or a synthetic offline one
// when nothing is cached, then registers the connection under the unit id.
// The push happens before registration: once a connection is in the viewer
// map, Run owns all writes to it, so writing here after registering would
// race the worker on the same connection.
func (h *Hub) Subscribe(ctx context.Context, conn Conn, unitID int64) {
	data, err := h.snapshots.Get(ctx, unitID)
	if err != nil {
		h.logger.Errorf("hub: snapshot read for unit %d failed: %v", unitID, err)
		data = nil
	}
	if data == nil {
		data, _ = json.Marshal(models.OfflineSnapshot(time.Now()))
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Warnf("hub: initial push to viewer of unit %d failed: %v", unitID, err)
		return
	}

	h.mu.Lock()
	if _, ok := h.viewers[unitID]; !ok {
		h.viewers[unitID] = make(map[Conn]bool)
	}
	h.viewers[unitID][conn] = true
	total := len(h.viewers[unitID])
	h.mu.Unlock()
	h.logger.Infof("hub: viewer subscribed to unit %d (total: %d)", unitID, total)
}

// Unsubscribe removes a connection, pruning the unit entry when it empties.
func (h *Hub) Unsubscribe(conn Conn, unitID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.viewers[unitID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.viewers, unitID)
		}
	}
}

// Publish enqueues a message for all viewers of the unit. It never blocks;
// when the queue is full the message is dropped with a warning, since the
// next reading supersedes it anyway.
func (h *Hub) Publish(unitID int64, message []byte) {
	select {
	case h.queue <- delivery{unitID: unitID, message: message}:
	default:
		h.logger.Warnf("hub: fan-out queue full, dropping update for unit %d", unitID)
	}
}

// Run drains the delivery queue until ctx is cancelled. It owns all viewer
// writes after the initial subscribe push.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Infof("hub: fan-out worker stopped")
			return
		case d := <-h.queue:
			h.deliver(d.unitID, d.message)
		}
	}
}

// deliver writes to every viewer of the unit. A failed write removes only
// that connection; the rest still receive the message.
func (h *Hub) deliver(unitID int64, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.viewers[unitID]
	if !ok {
		return
	}
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.logger.Warnf("hub: write to viewer of unit %d failed, dropping connection: %v", unitID, err)
			delete(conns, conn)
			_ = conn.Close()
		}
	}
	if len(conns) == 0 {
		delete(h.viewers, unitID)
	}
}

// ViewerCount reports the live connections for a unit.
func (h *Hub) ViewerCount(unitID int64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers[unitID])
}

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"unit-gateway/internal/models"
)

// parseAlive interprets the heartbeat payload. Devices send "1"/"0";
// "online"/"offline" are accepted as well.
func parseAlive(payload []byte) (online bool, ok bool) {
	switch strings.TrimSpace(string(payload)) {
	case "1", "online":
		return true, true
	case "0", "offline":
		return false, true
	}
	return false, false
}

// HandleAlive processes a connectivity heartbeat. Going offline marks the
// cache immediately, opens a disconnection task and raises a critical
// notification; coming back online pushes the stored schedule down so the
// device resynchronizes against the system of record.
func (s *Service) HandleAlive(ctx context.Context, unitID int64, payload []byte) {
	online, ok := parseAlive(payload)
	if !ok {
		s.logger.Warnf("gateway: malformed alive payload %q from unit %d", payload, unitID)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	unit, err := s.units.FindByID(ctx, unitID)
	if err != nil {
		s.logger.Errorf("gateway: unit %d lookup failed: %v", unitID, err)
		return
	}

	if online {
		s.notifier.Broadcast(models.NewNotification(models.NotifyInfo,
			fmt.Sprintf("Unit %s (id %d) is back online", unit.Name, unit.ID)))

		// The device may have run autonomously while disconnected; the
		// stored schedule is authoritative and is pushed down, not pulled.
		if err := s.commands.Schedule(ctx, unitID, unit.Schedule); err != nil {
			// Not retried here; the next reconnect retries.
			s.logger.Errorf("gateway: schedule resync for unit %d failed: %v", unitID, err)
		}
		return
	}

	s.openTask(ctx, unitID, models.TaskDisconnection)
	s.notifier.Broadcast(models.NewNotification(models.NotifyCritical,
		fmt.Sprintf("Unit %s (id %d) lost connection", unit.Name, unit.ID)))

	// Same rule as the telemetry path: viewers only ever see state that
	// made it into the cache, so a failed cache write aborts the fan-out.
	snap := models.OfflineSnapshot(time.Now())
	if err := s.cache.Set(ctx, unitID, snap); err != nil {
		s.logger.Errorf("gateway: cache write for unit %d failed: %v", unitID, err)
		return
	}
	if data, err := json.Marshal(snap); err == nil {
		s.hub.Publish(unitID, data)
	}
}

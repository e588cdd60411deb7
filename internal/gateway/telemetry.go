package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"unit-gateway/internal/db"
	"unit-gateway/internal/models"
)

// statusPayload is the inbound telemetry wire format. Pointer fields let a
// missing key be told apart from a zero value; the schedule fields are
// optional.
type statusPayload struct {
	Time        *int64   `json:"time"`
	Power       *float64 `json:"power"`
	Current     *float64 `json:"current"`
	Voltage     *float64 `json:"voltage"`
	Toggle      *bool    `json:"toggle"`
	PowerFactor *float64 `json:"power_factor"`
	Frequency   *float64 `json:"frequency"`
	TotalEnergy *float64 `json:"total_energy"`

	HourOn    *int `json:"hour_on"`
	MinuteOn  *int `json:"minute_on"`
	HourOff   *int `json:"hour_off"`
	MinuteOff *int `json:"minute_off"`
}

func (p *statusPayload) complete() bool {
	return p.Time != nil && p.Power != nil && p.Current != nil &&
		p.Voltage != nil && p.Toggle != nil && p.PowerFactor != nil &&
		p.Frequency != nil && p.TotalEnergy != nil
}

func (p *statusPayload) schedule() (models.Schedule, bool) {
	if p.HourOn == nil || p.MinuteOn == nil || p.HourOff == nil || p.MinuteOff == nil {
		return models.Schedule{}, false
	}
	return models.Schedule{
		HourOn:    *p.HourOn,
		MinuteOn:  *p.MinuteOn,
		HourOff:   *p.HourOff,
		MinuteOff: *p.MinuteOff,
	}, true
}

// HandleStatus processes one telemetry reading. Side effects are ordered:
// persistence, then fault detection, then cache and fan-out, so a crash
// mid-message leaves the store consistent and the cache merely stale until
// the next reading.
func (s *Service) HandleStatus(ctx context.Context, unitID int64, payload []byte) {
	var p statusPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.logger.Warnf("gateway: malformed status payload from unit %d: %v", unitID, err)
		return
	}
	if !p.complete() {
		s.logger.Warnf("gateway: status payload from unit %d is missing required fields", unitID)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.StoreTimeout)
	defer cancel()

	rec := models.StatusRecord{
		UnitID:      unitID,
		Time:        time.Unix(*p.Time, 0).UTC(),
		Power:       *p.Power,
		Current:     *p.Current,
		Voltage:     *p.Voltage,
		Toggle:      *p.Toggle,
		PowerFactor: *p.PowerFactor,
		Frequency:   *p.Frequency,
		TotalEnergy: *p.TotalEnergy,
	}

	// Broker redelivery of the same (unit, timestamp) is a harmless
	// duplicate: no side effects at all for the second delivery.
	exists, err := s.statuses.Exists(ctx, unitID, rec.Time)
	if err != nil {
		s.logger.Errorf("gateway: dedup check for unit %d failed: %v", unitID, err)
		return
	}
	if exists {
		s.logger.Debugf("gateway: duplicate reading (unit %d, %d), ignoring", unitID, *p.Time)
		return
	}

	if err := s.statuses.Insert(ctx, rec); err != nil {
		if errors.Is(err, db.ErrDuplicateStatus) {
			// Lost the race against a concurrent redelivery; same as the
			// dedup hit above.
			s.logger.Debugf("gateway: duplicate insert (unit %d, %d), ignoring", unitID, *p.Time)
			return
		}
		s.logger.Errorf("gateway: persisting reading for unit %d failed: %v", unitID, err)
		return
	}

	// Fault rule: the unit believes it should be powered but the load
	// reads de-energized.
	if rec.Toggle && rec.Power < s.opts.PowerLossThresholdW {
		s.openTask(ctx, unitID, models.TaskPowerOff)
	}

	// A schedule edited at the device (physical control) propagates back
	// to the system of record.
	if reported, ok := p.schedule(); ok {
		s.reconcileSchedule(ctx, unitID, reported)
	}

	snap := models.SnapshotFromRecord(rec)
	if err := s.cache.Set(ctx, unitID, snap); err != nil {
		s.logger.Errorf("gateway: cache write for unit %d failed: %v", unitID, err)
		return
	}

	if data, err := json.Marshal(snap); err == nil {
		s.hub.Publish(unitID, data)
	}
	if s.exporter != nil {
		s.exporter.Export(rec)
	}
}

func (s *Service) reconcileSchedule(ctx context.Context, unitID int64, reported models.Schedule) {
	unit, err := s.units.FindByID(ctx, unitID)
	if err != nil {
		s.logger.Errorf("gateway: unit %d lookup for schedule reconciliation failed: %v", unitID, err)
		return
	}
	if unit.Schedule.Equal(reported) {
		return
	}
	if err := s.units.UpdateSchedule(ctx, unitID, reported); err != nil {
		s.logger.Errorf("gateway: schedule update for unit %d failed: %v", unitID, err)
		return
	}
	s.logger.Infof("gateway: unit %d reported a changed schedule, store updated", unitID)
}

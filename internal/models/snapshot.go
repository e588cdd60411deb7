package models

import "time"

// Snapshot is the last known state of a unit: its latest telemetry plus a
// connectivity flag. It is what the cache stores and what viewers receive.
type Snapshot struct {
	Time        int64   `json:"time"`
	Alive       bool    `json:"alive"`
	Power       float64 `json:"power"`
	Current     float64 `json:"current"`
	Voltage     float64 `json:"voltage"`
	Toggle      bool    `json:"toggle"`
	PowerFactor float64 `json:"power_factor"`
	Frequency   float64 `json:"frequency"`
	TotalEnergy float64 `json:"total_energy"`
}

// OfflineSnapshot is the synthetic state pushed when nothing is known about
// a unit: not an error, just "unknown/offline" as of now.
func OfflineSnapshot(now time.Time) Snapshot {
	return Snapshot{Time: now.Unix(), Alive: false}
}

// SnapshotFromRecord builds an online snapshot out of a persisted reading.
func SnapshotFromRecord(rec StatusRecord) Snapshot {
	return Snapshot{
		Time:        rec.Time.Unix(),
		Alive:       true,
		Power:       rec.Power,
		Current:     rec.Current,
		Voltage:     rec.Voltage,
		Toggle:      rec.Toggle,
		PowerFactor: rec.PowerFactor,
		Frequency:   rec.Frequency,
		TotalEnergy: rec.TotalEnergy,
	}
}

package models

import "time"

// StatusRecord is one telemetry reading from a unit. The timestamp is
// supplied by the device, so (UnitID, Time) is the record identity and
// duplicates under broker redelivery must collapse to one row.
type StatusRecord struct {
	UnitID      int64     `json:"unit_id"`
	Time        time.Time `json:"time"`
	Power       float64   `json:"power"`
	Current     float64   `json:"current"`
	Voltage     float64   `json:"voltage"`
	Toggle      bool      `json:"toggle"`
	PowerFactor float64   `json:"power_factor"`
	Frequency   float64   `json:"frequency"`
	TotalEnergy float64   `json:"total_energy"`
}

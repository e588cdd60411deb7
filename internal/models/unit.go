package models

import (
	"fmt"
	"time"
)

// Cluster groups Units under a managing account.
type Cluster struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	AccountID int64     `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Schedule is a unit's daily power-on/power-off time.
type Schedule struct {
	HourOn    int `json:"hour_on"`
	MinuteOn  int `json:"minute_on"`
	HourOff   int `json:"hour_off"`
	MinuteOff int `json:"minute_off"`
}

// Equal reports whether two schedules carry the same on/off times.
func (s Schedule) Equal(other Schedule) bool {
	return s == other
}

// SchedulePayload renders the schedule as the command payload the device
// expects: two-digit zero-padded hour/minute strings.
type SchedulePayload struct {
	HourOn    string `json:"hour_on"`
	MinuteOn  string `json:"minute_on"`
	HourOff   string `json:"hour_off"`
	MinuteOff string `json:"minute_off"`
}

// Payload converts the stored schedule into its wire form.
func (s Schedule) Payload() SchedulePayload {
	return SchedulePayload{
		HourOn:    fmt.Sprintf("%02d", s.HourOn),
		MinuteOn:  fmt.Sprintf("%02d", s.MinuteOn),
		HourOff:   fmt.Sprintf("%02d", s.HourOff),
		MinuteOff: fmt.Sprintf("%02d", s.MinuteOff),
	}
}

// Unit is a managed remote power-control device, identified by its
// hardware address on the broker.
type Unit struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	ClusterID *int64    `json:"cluster_id,omitempty"`
	Schedule  Schedule  `json:"schedule"`
	Toggle    bool      `json:"toggle"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"unit-gateway/internal/db"
	"unit-gateway/internal/logging"
	"unit-gateway/internal/models"
)

type fakePublisher struct {
	topics   []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeIDResolver struct {
	units map[int64]*models.Unit
}

func (f *fakeIDResolver) FindByID(_ context.Context, id int64) (*models.Unit, error) {
	u, ok := f.units[id]
	if !ok {
		return nil, db.ErrUnitNotFound
	}
	return u, nil
}

func newTestDispatcher() (*Dispatcher, *fakePublisher) {
	pub := &fakePublisher{}
	resolver := &fakeIDResolver{units: map[int64]*models.Unit{
		7: {ID: 7, Address: "AA:BB"},
	}}
	return NewDispatcher(resolver, pub, logging.Discard()), pub
}

func TestToggleCommand(t *testing.T) {
	d, pub := newTestDispatcher()

	if err := d.Toggle(context.Background(), 7, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub.topics[0] != "unit/AA:BB/command" {
		t.Fatalf("unexpected topic: %s", pub.topics[0])
	}

	var env struct {
		Command string `json:"command"`
		Payload string `json:"payload"`
	}
	if err := json.Unmarshal(pub.payloads[0], &env); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if env.Command != "TOGGLE" || env.Payload != "on" {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	if err := d.Toggle(context.Background(), 7, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := json.Unmarshal(pub.payloads[1], &env); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if env.Payload != "off" {
		t.Fatalf("unexpected payload: %s", env.Payload)
	}
}

func TestScheduleCommandZeroPads(t *testing.T) {
	d, pub := newTestDispatcher()

	sched := models.Schedule{HourOn: 7, MinuteOn: 5, HourOff: 18, MinuteOff: 30}
	if err := d.Schedule(context.Background(), 7, sched); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var env struct {
		Command string                 `json:"command"`
		Payload models.SchedulePayload `json:"payload"`
	}
	if err := json.Unmarshal(pub.payloads[0], &env); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if env.Command != "SCHEDULE" {
		t.Fatalf("unexpected command: %s", env.Command)
	}
	want := models.SchedulePayload{HourOn: "07", MinuteOn: "05", HourOff: "18", MinuteOff: "30"}
	if env.Payload != want {
		t.Fatalf("schedule payload = %+v, want %+v", env.Payload, want)
	}
}

func TestAutoCommand(t *testing.T) {
	d, pub := newTestDispatcher()

	if err := d.Auto(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var env struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(pub.payloads[0], &env); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if env.Command != "AUTO" {
		t.Fatalf("unexpected command: %s", env.Command)
	}
}

func TestCommandUnknownUnitIsNoOp(t *testing.T) {
	d, pub := newTestDispatcher()

	if err := d.Toggle(context.Background(), 99, true); err != nil {
		t.Fatalf("unknown unit must not error, got %v", err)
	}
	if len(pub.topics) != 0 {
		t.Fatalf("unknown unit still published: %v", pub.topics)
	}
}

func TestCommandPublishFailurePropagates(t *testing.T) {
	d, pub := newTestDispatcher()
	pub.err = errors.New("broker unavailable")

	if err := d.Toggle(context.Background(), 7, true); err == nil {
		t.Fatalf("expected publish failure to surface")
	}
}

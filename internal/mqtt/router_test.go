package mqtt

import (
	"context"
	"testing"

	"unit-gateway/internal/db"
	"unit-gateway/internal/logging"
	"unit-gateway/internal/models"
)

func TestParseTopic(t *testing.T) {
	cases := []struct {
		topic   string
		address string
		kind    MessageKind
		ok      bool
	}{
		{"unit/AA:BB/status", "AA:BB", KindStatus, true},
		{"unit/AA:BB/alive", "AA:BB", KindAlive, true},
		{"unit/abc123/status", "abc123", KindStatus, true},
		{"unit/AA:BB/command", "", KindUnknown, false},
		{"unit/AA:BB", "", KindUnknown, false},
		{"unit//status", "", KindUnknown, false},
		{"sensor/AA:BB/status", "", KindUnknown, false},
		{"unit/AA:BB/status/extra", "", KindUnknown, false},
		{"", "", KindUnknown, false},
	}
	for _, tc := range cases {
		address, kind, ok := parseTopic(tc.topic)
		if ok != tc.ok {
			t.Fatalf("parseTopic(%q) ok = %v, want %v", tc.topic, ok, tc.ok)
		}
		if !ok {
			continue
		}
		if address != tc.address || kind != tc.kind {
			t.Fatalf("parseTopic(%q) = (%q, %v), want (%q, %v)",
				tc.topic, address, kind, tc.address, tc.kind)
		}
	}
}

type fakeResolver struct {
	units map[string]*models.Unit
	err   error
}

func (f *fakeResolver) FindByAddress(_ context.Context, address string) (*models.Unit, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.units[address]
	if !ok {
		return nil, db.ErrUnitNotFound
	}
	return u, nil
}

type recordingHandler struct {
	statusCalls []int64
	aliveCalls  []int64
	payloads    [][]byte
}

func (h *recordingHandler) HandleStatus(_ context.Context, unitID int64, payload []byte) {
	h.statusCalls = append(h.statusCalls, unitID)
	h.payloads = append(h.payloads, payload)
}

func (h *recordingHandler) HandleAlive(_ context.Context, unitID int64, payload []byte) {
	h.aliveCalls = append(h.aliveCalls, unitID)
	h.payloads = append(h.payloads, payload)
}

func TestRouteDispatchesByKind(t *testing.T) {
	resolver := &fakeResolver{units: map[string]*models.Unit{
		"AA:BB": {ID: 7, Address: "AA:BB"},
	}}
	handler := &recordingHandler{}
	router := NewRouter(resolver, handler, logging.Discard())

	router.Route(context.Background(), "unit/AA:BB/status", []byte(`{"power":1}`))
	router.Route(context.Background(), "unit/AA:BB/alive", []byte("1"))

	if len(handler.statusCalls) != 1 || handler.statusCalls[0] != 7 {
		t.Fatalf("status not routed: %v", handler.statusCalls)
	}
	if len(handler.aliveCalls) != 1 || handler.aliveCalls[0] != 7 {
		t.Fatalf("alive not routed: %v", handler.aliveCalls)
	}
	if string(handler.payloads[0]) != `{"power":1}` {
		t.Fatalf("payload altered in routing: %s", handler.payloads[0])
	}
}

func TestRouteDropsUnknownAddress(t *testing.T) {
	resolver := &fakeResolver{units: map[string]*models.Unit{}}
	handler := &recordingHandler{}
	router := NewRouter(resolver, handler, logging.Discard())

	router.Route(context.Background(), "unit/CC:DD/status", []byte(`{}`))

	if len(handler.statusCalls) != 0 {
		t.Fatalf("unregistered address was dispatched")
	}
}

func TestRouteDropsBadTopic(t *testing.T) {
	resolver := &fakeResolver{units: map[string]*models.Unit{
		"AA:BB": {ID: 7, Address: "AA:BB"},
	}}
	handler := &recordingHandler{}
	router := NewRouter(resolver, handler, logging.Discard())

	router.Route(context.Background(), "unit/AA:BB/firmware", []byte(`{}`))
	router.Route(context.Background(), "garbage", []byte(`{}`))

	if len(handler.statusCalls) != 0 || len(handler.aliveCalls) != 0 {
		t.Fatalf("bad topic was dispatched")
	}
}

func TestRouteSurvivesLookupError(t *testing.T) {
	resolver := &fakeResolver{err: context.DeadlineExceeded}
	handler := &recordingHandler{}
	router := NewRouter(resolver, handler, logging.Discard())

	// Must not panic, must not dispatch.
	router.Route(context.Background(), "unit/AA:BB/status", []byte(`{}`))
	if len(handler.statusCalls) != 0 {
		t.Fatalf("lookup failure was dispatched")
	}
}

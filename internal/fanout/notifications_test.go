package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"unit-gateway/internal/logging"
	"unit-gateway/internal/models"
)

func TestConnectPushesBacklog(t *testing.T) {
	reg := NewRegistry(8, logging.Discard())
	reg.Broadcast(models.NewNotification(models.NotifyCritical, "unit 7 lost connection"))
	reg.Broadcast(models.NewNotification(models.NotifyInfo, "unit 7 back online"))

	conn := &fakeConn{}
	reg.Connect(conn)

	if conn.count() != 1 {
		t.Fatalf("expected one backlog push, got %d", conn.count())
	}
	var backlog []models.Notification
	if err := json.Unmarshal(conn.last(), &backlog); err != nil {
		t.Fatalf("backlog is not a notification list: %v", err)
	}
	if len(backlog) != 2 {
		t.Fatalf("expected 2 retained notifications, got %d", len(backlog))
	}
	if backlog[0].Message != "unit 7 lost connection" || backlog[0].Type != models.NotifyCritical {
		t.Fatalf("unexpected backlog head: %+v", backlog[0])
	}
}

func TestConnectWithEmptyBacklogPushesNothing(t *testing.T) {
	reg := NewRegistry(8, logging.Discard())
	conn := &fakeConn{}
	reg.Connect(conn)
	if conn.count() != 0 {
		t.Fatalf("empty backlog should not be pushed, got %d messages", conn.count())
	}
}

func TestConnectFailedBacklogPushLeavesViewerUnregistered(t *testing.T) {
	reg := NewRegistry(8, logging.Discard())
	reg.Broadcast(models.NewNotification(models.NotifyInfo, "retained"))

	conn := &fakeConn{writeErr: errors.New("write: broken pipe")}
	reg.Connect(conn)

	reg.mu.Lock()
	_, registered := reg.connections[conn]
	reg.mu.Unlock()
	if registered {
		t.Fatalf("dead connection was registered")
	}
}

func TestConnectBacklogPushDoesNotRaceWorker(t *testing.T) {
	reg := NewRegistry(8, logging.Discard())
	reg.Broadcast(models.NewNotification(models.NotifyInfo, "retained"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reg.Run(ctx)

	conn := newGateConn()
	done := make(chan struct{})
	go func() {
		reg.Connect(conn)
		close(done)
	}()

	// The backlog push is in flight; the worker must not be able to write
	// this connection yet.
	<-conn.entered
	reg.Broadcast(models.NewNotification(models.NotifyCritical, "unit down"))
	time.Sleep(50 * time.Millisecond)
	close(conn.release)
	<-done

	// Once connected, notifications flow through the worker as usual.
	reg.Broadcast(models.NewNotification(models.NotifyInfo, "after connect"))
	deadline := time.Now().Add(2 * time.Second)
	for conn.writeCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("notification not delivered after connect completed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if conn.sawOverlap() {
		t.Fatalf("overlapping WriteMessage calls on one connection")
	}
}

func TestDeliverReachesAllConnections(t *testing.T) {
	reg := NewRegistry(8, logging.Discard())
	a := &fakeConn{}
	b := &fakeConn{}
	reg.Connect(a)
	reg.Connect(b)

	n := models.NewNotification(models.NotifyWarning, "voltage sag on cluster 3")
	reg.deliver(context.Background(), n)

	for _, conn := range []*fakeConn{a, b} {
		if conn.count() != 1 {
			t.Fatalf("connection missed the notification")
		}
		var got []models.Notification
		if err := json.Unmarshal(conn.last(), &got); err != nil || len(got) != 1 {
			t.Fatalf("unexpected delivery: %s", conn.last())
		}
		if got[0].Message != n.Message {
			t.Fatalf("unexpected notification: %+v", got[0])
		}
	}
}

type fakeEscalator struct {
	escalated []models.Notification
}

func (f *fakeEscalator) Escalate(_ context.Context, n models.Notification) error {
	f.escalated = append(f.escalated, n)
	return nil
}

func TestCriticalNotificationsEscalate(t *testing.T) {
	reg := NewRegistry(8, logging.Discard())
	esc := &fakeEscalator{}
	reg.SetEscalator(esc)

	reg.deliver(context.Background(), models.NewNotification(models.NotifyInfo, "routine"))
	if len(esc.escalated) != 0 {
		t.Fatalf("non-critical notification escalated")
	}

	reg.deliver(context.Background(), models.NewNotification(models.NotifyCritical, "unit down"))
	if len(esc.escalated) != 1 || esc.escalated[0].Message != "unit down" {
		t.Fatalf("critical notification not escalated: %v", esc.escalated)
	}
}

func TestBroadcastRetainsEvenWhenQueueFull(t *testing.T) {
	reg := NewRegistry(1, logging.Discard())
	for i := 0; i < 5; i++ {
		reg.Broadcast(models.NewNotification(models.NotifyInfo, "n"))
	}
	if got := len(reg.Retained()); got != 5 {
		t.Fatalf("retained list lost entries: %d", got)
	}
}

func TestDisconnectRemovesConnection(t *testing.T) {
	reg := NewRegistry(8, logging.Discard())
	conn := &fakeConn{}
	reg.Connect(conn)
	reg.Disconnect(conn)

	reg.deliver(context.Background(), models.NewNotification(models.NotifyInfo, "after"))
	if conn.count() != 0 {
		t.Fatalf("disconnected viewer still received a notification")
	}
}

package link

import (
	"testing"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/skylink-gs/corelink/internal/config"
	"github.com/skylink-gs/corelink/internal/transport"
)

// fakeNode is the gomavlib node double used to drive a Link without any
// real hardware or socket.
type fakeNode struct {
	events chan gomavlib.Event
	sent   chan message.Message
	closed bool
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		events: make(chan gomavlib.Event, 64),
		sent:   make(chan message.Message, 64),
	}
}

func (f *fakeNode) Events() chan gomavlib.Event { return f.events }

func (f *fakeNode) WriteMessageAll(m message.Message) error {
	select {
	case f.sent <- m:
	default:
	}
	return nil
}

func (f *fakeNode) Close() {
	f.closed = true
	close(f.events)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Timeouts.DiscoveryWindowSeconds = 1
	cfg.Timeouts.ReservationWaitSeconds = 1
	return cfg
}

func TestOpenFailsWithoutAnyHeartbeat(t *testing.T) {
	fn := newFakeNode()
	adapter := transport.NewWithNode(fn, nil)

	_, err := openWithAdapter(adapter, testConfig(), nil, nil)
	if err == nil {
		t.Fatal("expected discovery to fail with no heartbeats")
	}
}

func TestOpenReportsDiscoveryProgress(t *testing.T) {
	fn := newFakeNode()
	adapter := transport.NewWithNode(fn, nil)

	var updates int
	_, err := openWithAdapter(adapter, testConfig(), nil, func(u DiscoveryUpdate) {
		updates++
	})
	if err == nil {
		t.Fatal("expected discovery to fail with no heartbeats")
	}
	if updates == 0 {
		t.Error("expected at least one progress callback during the discovery window")
	}
}

func TestOperationsFailBeforeRunning(t *testing.T) {
	l := &Link{state: StateDiscovering}
	if _, err := l.ListVehicles(); err != ErrLinkNotReady {
		t.Errorf("err = %v, want ErrLinkNotReady", err)
	}
	if _, err := l.ArmVehicle(1, false); err != ErrLinkNotReady {
		t.Errorf("err = %v, want ErrLinkNotReady", err)
	}
	if _, err := l.DisarmVehicle(1, false); err != ErrLinkNotReady {
		t.Errorf("err = %v, want ErrLinkNotReady", err)
	}
	if _, err := l.CopterTakeoff(1, 10); err != ErrLinkNotReady {
		t.Errorf("err = %v, want ErrLinkNotReady", err)
	}
	if _, err := l.AddPassiveListener("HEARTBEAT", func(*transport.Frame) {}); err != ErrLinkNotReady {
		t.Errorf("err = %v, want ErrLinkNotReady", err)
	}
}

func TestStateStringCoversEveryState(t *testing.T) {
	cases := map[State]string{
		StateOpening:     "opening",
		StateDiscovering: "discovering",
		StateRunning:     "running",
		StateClosing:     "closing",
		StateClosed:      "closed",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestFailedOpenClosesTransport(t *testing.T) {
	fn := newFakeNode()
	adapter := transport.NewWithNode(fn, nil)

	_, err := openWithAdapter(adapter, testConfig(), nil, nil)
	if err == nil {
		t.Fatal("expected discovery to fail with no heartbeats")
	}
	if !fn.closed {
		t.Error("expected the underlying transport to be closed after a failed open")
	}
}

// Package transport wraps gomavlib's node into the thin adapter the frame
// router and command executors depend on (component C2): open/close, a
// blocking receive, a single serialized send path, and serial port
// enumeration.
package transport

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// ErrClosed is returned by RecvBlocking once the adapter has been closed.
var ErrClosed = errors.New("transport: adapter closed")

// Frame is a codec-agnostic view of one inbound MAVLink message, the shape
// the frame router and reservation registry operate on.
type Frame struct {
	SystemID    uint8
	ComponentID uint8
	TypeName    string
	Message     message.Message
}

// Node is the subset of *gomavlib.Node the adapter depends on, so tests can
// inject a fake node instead of opening a real transport.
type Node interface {
	Events() chan gomavlib.Event
	WriteMessageAll(m message.Message) error
	Close()
}

// Config describes how to open the shared transport.
type Config struct {
	// URL is either a serial device path (e.g. "/dev/ttyUSB0") or a network
	// endpoint of the form "udp:host:port".
	URL string
	// Baud is used only for serial URLs.
	Baud int
}

// Adapter is the transport adapter (C2). All sends -- heartbeat, TIMESYNC
// auto-reply, COMMAND_LONG -- funnel through Send, which serializes on
// sendMu so the underlying node is never written to concurrently.
type Adapter struct {
	node   Node
	log    *logrus.Entry
	sendMu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

// Open creates the shared MAVLink connection with source system id 255 and
// component id MAV_COMP_ID_MISSIONPLANNER, matching the ground-station
// identity the original radio link used.
func Open(cfg Config, log *logrus.Entry) (*Adapter, error) {
	endpoint, err := parseEndpoint(cfg)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}

	n, err := gomavlib.NewNode(gomavlib.NodeConf{
		Endpoints:   []gomavlib.EndpointConf{endpoint},
		Dialect:     common.Dialect,
		OutVersion:  gomavlib.V2,
		OutSystemID: 255,
		OutComponentID: uint8(common.MAV_COMP_ID_MISSIONPLANNER),
	})
	if err != nil {
		return nil, fmt.Errorf("transport: open failed: %w", err)
	}

	return NewWithNode(n, log), nil
}

// NewWithNode builds an Adapter directly from a Node implementation,
// bypassing Open's URL parsing and gomavlib.NewNode call. It exists so
// callers (principally tests) can drive the adapter against a fake
// transport instead of a real serial port or UDP socket.
func NewWithNode(n Node, log *logrus.Entry) *Adapter {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Adapter{node: n, log: log, closed: make(chan struct{})}
}

func parseEndpoint(cfg Config) (gomavlib.EndpointConf, error) {
	if strings.HasPrefix(cfg.URL, "udp:") {
		addr := strings.TrimPrefix(cfg.URL, "udp:")
		if addr == "" {
			return nil, errors.New("empty udp address")
		}
		return gomavlib.EndpointUDPClient{Address: addr}, nil
	}
	if cfg.Baud <= 0 {
		return nil, fmt.Errorf("serial endpoint %q requires a positive baud rate", cfg.URL)
	}
	return gomavlib.EndpointSerial{Device: cfg.URL, Baud: cfg.Baud}, nil
}

// RecvBlocking waits for the next frame, or returns ErrClosed once Close has
// been called. A nil, nil result signals a non-frame event (channel
// open/close, parse error) that the caller should treat as "try again".
func (a *Adapter) RecvBlocking() (*Frame, error) {
	select {
	case <-a.closed:
		return nil, ErrClosed
	case evt, ok := <-a.node.Events():
		if !ok {
			return nil, ErrClosed
		}
		switch e := evt.(type) {
		case *gomavlib.EventFrame:
			return &Frame{
				SystemID:    e.SystemID(),
				ComponentID: e.ComponentID(),
				TypeName:    typeName(e.Message()),
				Message:     e.Message(),
			}, nil
		case *gomavlib.EventParseError:
			a.log.WithError(e.Error).Debug("transport: frame parse error")
			return nil, nil
		default:
			return nil, nil
		}
	}
}

// ErrTimeout is returned by RecvTimeout when no event arrives in time.
var ErrTimeout = errors.New("transport: recv timeout")

// RecvTimeout behaves like RecvBlocking but gives up after d, returning
// ErrTimeout. It is used by the discovery phase's inner polling loop so
// progress callbacks can fire on a steady cadence.
func (a *Adapter) RecvTimeout(d time.Duration) (*Frame, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-a.closed:
		return nil, ErrClosed
	case <-timer.C:
		return nil, ErrTimeout
	case evt, ok := <-a.node.Events():
		if !ok {
			return nil, ErrClosed
		}
		switch e := evt.(type) {
		case *gomavlib.EventFrame:
			return &Frame{
				SystemID:    e.SystemID(),
				ComponentID: e.ComponentID(),
				TypeName:    typeName(e.Message()),
				Message:     e.Message(),
			}, nil
		case *gomavlib.EventParseError:
			a.log.WithError(e.Error).Debug("transport: frame parse error")
			return nil, nil
		default:
			return nil, nil
		}
	}
}

// Send serializes msg onto the single codec send path.
func (a *Adapter) Send(msg message.Message) error {
	a.sendMu.Lock()
	defer a.sendMu.Unlock()
	return a.node.WriteMessageAll(msg)
}

// Close idempotently shuts the adapter down.
func (a *Adapter) Close() {
	a.closeOnce.Do(func() {
		close(a.closed)
		a.node.Close()
	})
}

// typeName derives a clean MAVLink type name (e.g. "HEARTBEAT") from a
// decoded message value.
func typeName(msg message.Message) string {
	full := fmt.Sprintf("%T", msg)
	full = strings.TrimPrefix(full, "*common.Message")
	full = strings.TrimPrefix(full, "common.Message")
	full = strings.TrimPrefix(full, "Message")
	return strings.ToUpper(snakeCase(full))
}

// snakeCase converts a Go exported identifier such as "VfrHud" into
// "VFR_HUD"-shaped text before upper-casing; gomavlib's generated message
// type names are themselves PascalCase renderings of the MAVLink XML names,
// so this reverses that rendering well enough for dispatch purposes.
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ListSerialPorts enumerates every serial port the operating system
// reports, the in-process equivalent of the original get_com_ports lookup.
// Ports are not filtered by whether a flight controller is attached.
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("transport: list serial ports: %w", err)
	}
	return ports, nil
}

// ParseBaud is a small helper for config layers that accept baud as a
// string (e.g. from an environment variable).
func ParseBaud(s string) (int, error) {
	return strconv.Atoi(s)
}

// Package link ties together the vehicle cache, transport adapter, frame
// router, reservation registry, and command executors into the single
// object external callers talk to: the radio link multiplexer itself.
package link

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/skylink-gs/corelink/internal/commands"
	"github.com/skylink-gs/corelink/internal/config"
	"github.com/skylink-gs/corelink/internal/metrics"
	"github.com/skylink-gs/corelink/internal/reservation"
	"github.com/skylink-gs/corelink/internal/router"
	"github.com/skylink-gs/corelink/internal/transport"
	"github.com/skylink-gs/corelink/internal/vehicle"
)

// State is the link's top-level lifecycle state.
type State int

const (
	StateOpening State = iota
	StateDiscovering
	StateRunning
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateDiscovering:
		return "discovering"
	case StateRunning:
		return "running"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrLinkNotReady is returned by every operation attempted outside the
// Running state.
var ErrLinkNotReady = fmt.Errorf("link not ready")

// DiscoveryUpdate is re-exported from router so callers never need to
// import it directly.
type DiscoveryUpdate = router.DiscoveryUpdate

// ListenerFunc is re-exported from router.
type ListenerFunc = router.ListenerFunc

// Result and FanOutResult are re-exported from commands.
type Result = commands.Result
type FanOutResult = commands.FanOutResult

// VehicleSummary is a read-only view of a vehicle record handed to callers
// outside the core.
type VehicleSummary struct {
	SystemID    uint8
	ComponentID uint8
	Class       string
	Armed       bool
	FlightMode  string
	GroundSpeed float64
	Altitude    float64
	BattVolts   float64
	BattCurr    float64
}

// Link is the radio link multiplexer: the single object owning the shared
// MAVLink transport and every component built on top of it.
type Link struct {
	log *logrus.Entry

	adapter      *transport.Adapter
	vehicles     *vehicle.Registry
	reservations *reservation.Registry
	router       *router.Router
	executor     *commands.Executor
	metrics      *metrics.Metrics

	mu    sync.RWMutex
	state State
}

// Open opens the shared transport, runs the bounded discovery window, and
// -- on success -- starts the steady-state workers, returning a Link in the
// Running state. onDiscoveryUpdate may be nil.
func Open(cfg *config.Config, log *logrus.Entry, onDiscoveryUpdate func(DiscoveryUpdate)) (*Link, error) {
	adapter, err := transport.Open(transport.Config{URL: cfg.Transport.URL, Baud: cfg.Transport.Baud}, log)
	if err != nil {
		return nil, fmt.Errorf("link: open failure: %w", err)
	}
	return openWithAdapter(adapter, cfg, log, onDiscoveryUpdate)
}

// openWithAdapter runs discovery and starts the workers over an
// already-open adapter, letting tests drive a Link against a fake
// transport instead of a real one.
func openWithAdapter(adapter *transport.Adapter, cfg *config.Config, log *logrus.Entry, onDiscoveryUpdate func(DiscoveryUpdate)) (*Link, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	l := &Link{log: log, state: StateOpening, adapter: adapter}

	l.vehicles = vehicle.NewRegistry()
	l.reservations = reservation.NewRegistry()
	l.metrics = metrics.New()
	l.router = router.New(l.adapter, l.vehicles, l.reservations, l.metrics, log)

	l.setState(StateDiscovering)
	discoveryWindow := time.Duration(cfg.Timeouts.DiscoveryWindowSeconds) * time.Second
	if err := l.router.Discover(discoveryWindow, onDiscoveryUpdate); err != nil {
		l.setState(StateClosed)
		l.adapter.Close()
		return nil, fmt.Errorf("link: discovery failed: %w", err)
	}

	controllerID := uuid.NewString()
	reservationTimeout := time.Duration(cfg.Timeouts.ReservationWaitSeconds) * time.Second
	l.executor = commands.New(l.vehicles, l.reservations, l.adapter, l.metrics, log, controllerID, reservationTimeout)

	l.router.Start()
	l.setState(StateRunning)
	return l, nil
}

// Close stops every worker and closes the transport. It is safe to call
// more than once.
func (l *Link) Close() {
	l.mu.Lock()
	if l.state == StateClosing || l.state == StateClosed {
		l.mu.Unlock()
		return
	}
	l.state = StateClosing
	l.mu.Unlock()

	l.router.Stop()
	l.adapter.Close()

	l.setState(StateClosed)
}

func (l *Link) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// State returns the link's current lifecycle state.
func (l *Link) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *Link) requireRunning() error {
	if l.State() != StateRunning {
		return ErrLinkNotReady
	}
	return nil
}

// ListVehicles returns every known vehicle, most-recently-discovered last.
func (l *Link) ListVehicles() ([]VehicleSummary, error) {
	if err := l.requireRunning(); err != nil {
		return nil, err
	}
	records := l.vehicles.List()
	out := make([]VehicleSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, VehicleSummary{
			SystemID:    rec.SystemID,
			ComponentID: rec.ComponentID,
			Class:       string(rec.Class),
			Armed:       rec.Armed,
			FlightMode:  rec.FlightModeMap[rec.FlightMode],
			GroundSpeed: rec.GroundSpeed,
			Altitude:    rec.Altitude,
			BattVolts:   rec.BattVolts,
			BattCurr:    rec.BattCurr,
		})
	}
	return out, nil
}

// AddPassiveListener registers cb for typeName.
func (l *Link) AddPassiveListener(typeName string, cb ListenerFunc) (bool, error) {
	if err := l.requireRunning(); err != nil {
		return false, err
	}
	return l.router.AddPassiveListener(typeName, cb), nil
}

// RemovePassiveListener removes a previously registered listener.
func (l *Link) RemovePassiveListener(typeName string) (bool, error) {
	if err := l.requireRunning(); err != nil {
		return false, err
	}
	return l.router.RemovePassiveListener(typeName), nil
}

// ArmVehicle arms sys.
func (l *Link) ArmVehicle(sys uint8, force bool) (Result, error) {
	if err := l.requireRunning(); err != nil {
		return Result{}, err
	}
	return l.executor.ArmVehicle(sys, force), nil
}

// DisarmVehicle disarms sys.
func (l *Link) DisarmVehicle(sys uint8, force bool) (Result, error) {
	if err := l.requireRunning(); err != nil {
		return Result{}, err
	}
	return l.executor.DisarmVehicle(sys, force), nil
}

// SetFlightMode sets sys's flight mode from a raw custom-mode integer.
func (l *Link) SetFlightMode(sys uint8, modeInt int) (Result, error) {
	if err := l.requireRunning(); err != nil {
		return Result{}, err
	}
	return l.executor.SetFlightMode(sys, modeInt), nil
}

// CopterTakeoff commands sys (which must be a copter) to take off to
// altitude meters.
func (l *Link) CopterTakeoff(sys uint8, altitude float64) (Result, error) {
	if err := l.requireRunning(); err != nil {
		return Result{}, err
	}
	return l.executor.CopterTakeoff(sys, altitude), nil
}

// ArmAll arms every known vehicle.
func (l *Link) ArmAll(force bool) (FanOutResult, error) {
	if err := l.requireRunning(); err != nil {
		return FanOutResult{}, err
	}
	return l.executor.ArmAll(force), nil
}

// DisarmAll disarms every known vehicle.
func (l *Link) DisarmAll(force bool) (FanOutResult, error) {
	if err := l.requireRunning(); err != nil {
		return FanOutResult{}, err
	}
	return l.executor.DisarmAll(force), nil
}

// SetFlightModeAll sets modeName on every vehicle whose class recognizes
// it.
func (l *Link) SetFlightModeAll(modeName string) (FanOutResult, error) {
	if err := l.requireRunning(); err != nil {
		return FanOutResult{}, err
	}
	return l.executor.SetFlightModeAll(modeName), nil
}

// ListSerialPorts enumerates candidate serial devices, independent of any
// open link.
func ListSerialPorts() ([]string, error) {
	return transport.ListSerialPorts()
}

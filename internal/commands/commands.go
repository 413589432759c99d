// Package commands implements the command executors (C5): stateless
// orchestrations that reserve COMMAND_ACK, send a COMMAND_LONG, wait for
// the matching acknowledgement, and optionally poll the vehicle cache for
// the derived post-condition.
package commands

import (
	"fmt"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/sirupsen/logrus"

	"github.com/skylink-gs/corelink/internal/metrics"
	"github.com/skylink-gs/corelink/internal/reservation"
	"github.com/skylink-gs/corelink/internal/transport"
	"github.com/skylink-gs/corelink/internal/vehicle"
)

const (
	// forceMagic is the MAVLink "force" magic number for arm/disarm, used
	// to bypass the autopilot's arming checks.
	forceMagic = 21196

	postConditionPoll = 50 * time.Millisecond
)

// Result is the outcome of a single-vehicle command.
type Result struct {
	Success bool
	Message string
	Data    any
}

// FanOutResult is the outcome of a command applied to every known vehicle.
type FanOutResult struct {
	Results     map[uint8]Result
	FailedCount int
}

// Executor bundles the collaborators every command needs: the registry to
// look up and poll vehicles, the reservation/wait registry to correlate
// COMMAND_ACK, the transport adapter to send, and the single controller id
// this link reuses for every call.
type Executor struct {
	vehicles     *vehicle.Registry
	reservations *reservation.Registry
	adapter      *transport.Adapter
	metrics      *metrics.Metrics
	log          *logrus.Entry

	controllerID  string
	defaultTimeout time.Duration
}

// New builds an Executor. controllerID is the link's single reused
// controller id (see the design notes on why one id is intentional).
func New(vehicles *vehicle.Registry, reservations *reservation.Registry, adapter *transport.Adapter, m *metrics.Metrics, log *logrus.Entry, controllerID string, timeout time.Duration) *Executor {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Executor{
		vehicles:       vehicles,
		reservations:   reservations,
		adapter:        adapter,
		metrics:        m,
		log:            log,
		controllerID:   controllerID,
		defaultTimeout: timeout,
	}
}

// withReservation runs body under an exclusive COMMAND_ACK reservation,
// always releasing it before returning, matching every executor's
// reserve -> send -> wait -> release template.
func (e *Executor) withReservation(label string, body func() Result) Result {
	if !e.reservations.Reserve("COMMAND_ACK", e.controllerID) {
		e.recordOutcome("busy")
		return Result{Success: false, Message: "could not reserve COMMAND_ACK"}
	}
	defer e.reservations.Release("COMMAND_ACK", e.controllerID)
	e.recordOutcome("granted")

	result := body()
	e.recordCommand(label, result.Success)
	return result
}

func (e *Executor) recordOutcome(outcome string) {
	if e.metrics == nil {
		return
	}
	e.metrics.Reservations.WithLabelValues(outcome).Inc()
}

func (e *Executor) recordCommand(command string, success bool) {
	if e.metrics == nil {
		return
	}
	e.metrics.CommandResults.WithLabelValues(command, boolLabel(success)).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// sendCommandAndWait emits a COMMAND_LONG and waits for its COMMAND_ACK,
// returning the ack frame (if ACCEPTED) and a Result describing the
// non-accepted outcome otherwise.
func (e *Executor) sendCommandAndWait(sys uint8, cmd common.MAV_CMD, p1, p2, p3, p4, p5, p6, p7 float32) (*common.MessageCommandAck, Result) {
	err := e.adapter.Send(&common.MessageCommandLong{
		TargetSystem:    sys,
		TargetComponent: 1,
		Command:         cmd,
		Param1:          p1,
		Param2:          p2,
		Param3:          p3,
		Param4:          p4,
		Param5:          p5,
		Param6:          p6,
		Param7:          p7,
	})
	if err != nil {
		e.log.WithError(err).WithField("system_id", sys).Warn("commands: failed to send COMMAND_LONG")
		return nil, Result{Success: false, Message: fmt.Sprintf("serial exception: %v", err)}
	}

	frame, ok := e.reservations.Wait("COMMAND_ACK", e.controllerID, e.defaultTimeout, func(f *transport.Frame) bool {
		ack, ok := f.Message.(*common.MessageCommandAck)
		return ok && f.SystemID == sys && ack.Command == cmd
	})
	if !ok {
		return nil, Result{Success: false, Message: "command not accepted"}
	}

	ack := frame.Message.(*common.MessageCommandAck)
	if ack.Result != common.MAV_RESULT_ACCEPTED {
		return nil, Result{Success: false, Message: "command not accepted"}
	}
	return ack, Result{Success: true}
}

func (e *Executor) lookupVehicle(sys uint8) (vehicle.Snapshot, Result, bool) {
	rec, ok := e.vehicles.Get(sys)
	if !ok {
		return vehicle.Snapshot{}, Result{Success: false, Message: "vehicle not found"}, false
	}
	return rec, Result{}, true
}

func (e *Executor) pollUntil(sys uint8, condition func(vehicle.Snapshot) bool) bool {
	deadline := time.Now().Add(e.defaultTimeout)
	for time.Now().Before(deadline) {
		rec, ok := e.vehicles.Get(sys)
		if ok && condition(rec) {
			return true
		}
		time.Sleep(postConditionPoll)
	}
	return false
}

// ArmVehicle arms sys, optionally bypassing pre-arm checks when force is
// set, and waits for the armed flag to flip.
func (e *Executor) ArmVehicle(sys uint8, force bool) Result {
	return e.withReservation("arm", func() Result {
		if _, res, ok := e.lookupVehicle(sys); !ok {
			return res
		}

		p2 := float32(0)
		if force {
			p2 = forceMagic
		}
		_, res := e.sendCommandAndWait(sys, common.MAV_CMD_COMPONENT_ARM_DISARM, 1, p2, 0, 0, 0, 0, 0)
		if !res.Success {
			return Result{Success: false, Message: "Could not arm, " + res.Message}
		}

		if !e.pollUntil(sys, func(s vehicle.Snapshot) bool { return s.Armed }) {
			return Result{Success: false, Message: "Could not arm, command not accepted"}
		}
		return Result{Success: true, Message: "Armed successfully"}
	})
}

// DisarmVehicle disarms sys and waits for the armed flag to clear.
func (e *Executor) DisarmVehicle(sys uint8, force bool) Result {
	return e.withReservation("disarm", func() Result {
		if _, res, ok := e.lookupVehicle(sys); !ok {
			return res
		}

		p2 := float32(0)
		if force {
			p2 = forceMagic
		}
		_, res := e.sendCommandAndWait(sys, common.MAV_CMD_COMPONENT_ARM_DISARM, 0, p2, 0, 0, 0, 0, 0)
		if !res.Success {
			return Result{Success: false, Message: "Could not disarm, " + res.Message}
		}

		if !e.pollUntil(sys, func(s vehicle.Snapshot) bool { return !s.Armed }) {
			return Result{Success: false, Message: "Could not disarm, command not accepted"}
		}
		return Result{Success: true, Message: "Disarmed successfully"}
	})
}

// SetFlightMode issues DO_SET_MODE with the raw custom-mode integer. No
// post-condition is polled; the next HEARTBEAT will confirm the change.
func (e *Executor) SetFlightMode(sys uint8, modeInt int) Result {
	return e.withReservation("set_flight_mode", func() Result {
		if _, res, ok := e.lookupVehicle(sys); !ok {
			return res
		}

		_, res := e.sendCommandAndWait(sys, common.MAV_CMD_DO_SET_MODE, 1, float32(modeInt), 0, 0, 0, 0, 0)
		if !res.Success {
			return Result{Success: false, Message: "Could not set flight mode, " + res.Message}
		}
		return Result{Success: true, Message: "Flight mode set successfully"}
	})
}

// CopterTakeoff rejects non-copters, switches to GUIDED, and commands a
// takeoff to altitude.
func (e *Executor) CopterTakeoff(sys uint8, altitude float64) Result {
	return e.withReservation("takeoff", func() Result {
		rec, res, ok := e.lookupVehicle(sys)
		if !ok {
			return res
		}
		if rec.Class != vehicle.ClassCopter {
			return Result{Success: false, Message: "Vehicle is not a copter"}
		}

		_, res = e.sendCommandAndWait(sys, common.MAV_CMD_DO_SET_MODE, 1, float32(copterGuidedMode), 0, 0, 0, 0, 0)
		if !res.Success {
			return Result{Success: false, Message: "Could not set GUIDED mode, " + res.Message}
		}

		_, res = e.sendCommandAndWait(sys, common.MAV_CMD_NAV_TAKEOFF, 0, 0, 0, 0, 0, 0, float32(altitude))
		if !res.Success {
			return Result{Success: false, Message: "Could not take off, " + res.Message}
		}
		return Result{Success: true, Message: "Takeoff command accepted"}
	})
}

// copterGuidedMode is ArduCopter's GUIDED custom_mode number (see
// internal/vehicle/flightmode.go).
const copterGuidedMode = 4

// ArmAll arms every known vehicle in first-seen order. Fan-out executors
// are sequential, not concurrent: every call needs the same COMMAND_ACK
// reservation.
func (e *Executor) ArmAll(force bool) FanOutResult {
	return e.fanOut(func(sys uint8) Result { return e.ArmVehicle(sys, force) })
}

// DisarmAll disarms every known vehicle in first-seen order.
func (e *Executor) DisarmAll(force bool) FanOutResult {
	return e.fanOut(func(sys uint8) Result { return e.DisarmVehicle(sys, force) })
}

// SetFlightModeAll resolves modeName through each vehicle's own
// flight-mode map and applies it; a vehicle whose map has no such mode
// counts as a failure without aborting the sweep.
func (e *Executor) SetFlightModeAll(modeName string) FanOutResult {
	return e.fanOut(func(sys uint8) Result {
		rec, ok := e.vehicles.Get(sys)
		if !ok {
			return Result{Success: false, Message: "vehicle not found"}
		}
		modeInt, ok := reverseLookup(rec.FlightModeMap, modeName)
		if !ok {
			return Result{Success: false, Message: fmt.Sprintf("unknown flight mode %q for this vehicle class", modeName)}
		}
		return e.SetFlightMode(sys, modeInt)
	})
}

func reverseLookup(modes map[int]string, name string) (int, bool) {
	for k, v := range modes {
		if v == name {
			return k, true
		}
	}
	return 0, false
}

func (e *Executor) fanOut(call func(sys uint8) Result) FanOutResult {
	out := FanOutResult{Results: make(map[uint8]Result)}
	for _, sys := range e.vehicles.OrderedSystemIDs() {
		res := call(sys)
		out.Results[sys] = res
		if !res.Success {
			out.FailedCount++
		}
	}
	return out
}

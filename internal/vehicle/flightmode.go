package vehicle

// MAV_TYPE values relevant to classification, mirrored from the common
// dialect so this package stays codec-agnostic (the registry takes a plain
// int, not a gomavlib type).
const (
	mavTypeFixedWing       = 1
	mavTypeQuadrotor       = 2
	mavTypeCoaxial         = 3
	mavTypeHelicopter      = 4
	mavTypeAntennaTracker  = 5
	mavTypeGroundRover     = 10
	mavTypeSurfaceBoat     = 11
	mavTypeSubmarine       = 12
	mavTypeHexarotor       = 13
	mavTypeOctorotor       = 14
	mavTypeTricopter       = 15
	mavTypeVtolTiltrotor   = 21
	mavTypeDodecarotor     = 29
	mavTypeDecarotor       = 35
)

// ClassFromMavType implements the fixed MAV_TYPE -> vehicle class mapping.
// Anything not named below is ClassUnknown.
func ClassFromMavType(mavType int) Class {
	switch mavType {
	case mavTypeHelicopter, mavTypeTricopter, mavTypeQuadrotor, mavTypeHexarotor,
		mavTypeOctorotor, mavTypeDecarotor, mavTypeDodecarotor, mavTypeCoaxial:
		return ClassCopter
	case mavTypeFixedWing, mavTypeVtolTiltrotor:
		return ClassPlane
	case mavTypeGroundRover:
		return ClassRover
	case mavTypeSurfaceBoat:
		return ClassBoat
	case mavTypeAntennaTracker:
		return ClassTracker
	case mavTypeSubmarine:
		return ClassSub
	default:
		return ClassUnknown
	}
}

// ArduCopter custom_mode values.
// https://ardupilot.org/copter/docs/flight-modes.html
const (
	copterStabilize  = 0
	copterAcro       = 1
	copterAltHold    = 2
	copterAuto       = 3
	copterGuided     = 4
	copterLoiter     = 5
	copterRTL        = 6
	copterCircle     = 7
	copterLand       = 9
	copterDrift      = 11
	copterSport      = 13
	copterFlip       = 14
	copterAutoTune   = 15
	copterPosHold    = 16
	copterBrake      = 17
	copterThrow      = 18
	copterAvoidADSB  = 19
	copterGuidedNoGPS = 20
	copterSmartRTL   = 21
	copterFlowHold   = 22
	copterFollow     = 23
	copterZigZag     = 24
	copterSystemID   = 25
	copterAutoRotate = 26
	copterTurtle     = 27
)

var copterModes = map[int]string{
	copterStabilize:   "STABILIZE",
	copterAcro:        "ACRO",
	copterAltHold:     "ALT_HOLD",
	copterAuto:        "AUTO",
	copterGuided:      "GUIDED",
	copterLoiter:      "LOITER",
	copterRTL:         "RTL",
	copterCircle:      "CIRCLE",
	copterLand:        "LAND",
	copterDrift:       "DRIFT",
	copterSport:       "SPORT",
	copterFlip:        "FLIP",
	copterAutoTune:    "AUTOTUNE",
	copterPosHold:     "POSHOLD",
	copterBrake:       "BRAKE",
	copterThrow:       "THROW",
	copterAvoidADSB:   "AVOID_ADSB",
	copterGuidedNoGPS: "GUIDED_NOGPS",
	copterSmartRTL:    "SMART_RTL",
	copterFlowHold:    "FLOWHOLD",
	copterFollow:      "FOLLOW",
	copterZigZag:      "ZIGZAG",
	copterSystemID:    "SYSTEMID",
	copterAutoRotate:  "AUTOROTATE",
	copterTurtle:      "TURTLE",
}

// ArduPlane custom_mode values.
const (
	planeManual       = 0
	planeCircle       = 1
	planeStabilize    = 2
	planeTraining     = 3
	planeAcro         = 4
	planeFlyByWireA   = 5
	planeFlyByWireB   = 6
	planeCruise       = 7
	planeAutoTune     = 8
	planeAuto         = 10
	planeRTL          = 11
	planeLoiter       = 12
	planeTakeoff      = 13
	planeAvoidADSB    = 14
	planeGuided       = 15
	planeInitializing = 16
	planeQStabilize   = 17
	planeQHover       = 18
	planeQLoiter      = 19
	planeQLand        = 20
	planeQRTL         = 21
	planeQAutoTune    = 22
	planeQAcro        = 23
	planeThermal      = 24
)

var planeModes = map[int]string{
	planeManual:       "MANUAL",
	planeCircle:       "CIRCLE",
	planeStabilize:    "STABILIZE",
	planeTraining:     "TRAINING",
	planeAcro:         "ACRO",
	planeFlyByWireA:   "FBWA",
	planeFlyByWireB:   "FBWB",
	planeCruise:       "CRUISE",
	planeAutoTune:     "AUTOTUNE",
	planeAuto:         "AUTO",
	planeRTL:          "RTL",
	planeLoiter:       "LOITER",
	planeTakeoff:      "TAKEOFF",
	planeAvoidADSB:    "AVOID_ADSB",
	planeGuided:       "GUIDED",
	planeInitializing: "INITIALISING",
	planeQStabilize:   "QSTABILIZE",
	planeQHover:       "QHOVER",
	planeQLoiter:      "QLOITER",
	planeQLand:        "QLAND",
	planeQRTL:         "QRTL",
	planeQAutoTune:    "QAUTOTUNE",
	planeQAcro:        "QACRO",
	planeThermal:      "THERMAL",
}

// ArduRover custom_mode values, also used for ClassBoat (boats run ArduRover
// firmware with the same mode numbering).
const (
	roverManual      = 0
	roverAcro        = 1
	roverSteering    = 3
	roverHold        = 4
	roverLoiter      = 5
	roverFollow      = 6
	roverSimple      = 7
	roverAuto        = 10
	roverRTL         = 11
	roverSmartRTL    = 12
	roverGuided      = 15
	roverInitializing = 16
)

var roverModes = map[int]string{
	roverManual:       "MANUAL",
	roverAcro:         "ACRO",
	roverSteering:     "STEERING",
	roverHold:         "HOLD",
	roverLoiter:       "LOITER",
	roverFollow:       "FOLLOW",
	roverSimple:       "SIMPLE",
	roverAuto:         "AUTO",
	roverRTL:          "RTL",
	roverSmartRTL:     "SMART_RTL",
	roverGuided:       "GUIDED",
	roverInitializing: "INITIALISING",
}

// ArduPilot Tracker custom_mode values.
const (
	trackerManual = 0
	trackerStop   = 1
	trackerScan   = 2
	trackerServo  = 4
	trackerAuto   = 10
	trackerInitializing = 16
)

var trackerModes = map[int]string{
	trackerManual:       "MANUAL",
	trackerStop:         "STOP",
	trackerScan:         "SCAN",
	trackerServo:        "SERVO_TEST",
	trackerAuto:         "AUTO",
	trackerInitializing: "INITIALISING",
}

// ArduSub custom_mode values.
const (
	subStabilize = 0
	subAcro      = 1
	subAltHold   = 2
	subAuto      = 3
	subGuided    = 4
	subCircle    = 7
	subSurface   = 8
	subPoshold   = 16
	subManual    = 19
)

var subModes = map[int]string{
	subStabilize: "STABILIZE",
	subAcro:      "ACRO",
	subAltHold:   "ALT_HOLD",
	subAuto:      "AUTO",
	subGuided:    "GUIDED",
	subCircle:    "CIRCLE",
	subSurface:   "SURFACE",
	subPoshold:   "POSHOLD",
	subManual:    "MANUAL",
}

// ModeMapFor returns the fixed custom_mode -> name table for a vehicle
// class, used to populate Record.FlightModeMap at creation time.
func ModeMapFor(class Class) map[int]string {
	switch class {
	case ClassCopter:
		return copterModes
	case ClassPlane:
		return planeModes
	case ClassRover, ClassBoat:
		return roverModes
	case ClassTracker:
		return trackerModes
	case ClassSub:
		return subModes
	default:
		return map[int]string{}
	}
}

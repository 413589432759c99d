package vehicle

import "testing"

func TestClassFromMavType(t *testing.T) {
	cases := map[int]Class{
		2:  ClassCopter,
		15: ClassCopter,
		1:  ClassPlane,
		10: ClassRover,
		11: ClassBoat,
		5:  ClassTracker,
		12: ClassSub,
		6:  ClassUnknown, // GCS
	}
	for mavType, want := range cases {
		if got := ClassFromMavType(mavType); got != want {
			t.Errorf("ClassFromMavType(%d) = %s, want %s", mavType, got, want)
		}
	}
}

func TestUpsertOnHeartbeatCreatesRecord(t *testing.T) {
	r := NewRegistry()

	created := r.UpsertOnHeartbeat(HeartbeatFields{
		SystemID: 1, ComponentID: 1, MavType: 2, Armed: false, CustomMode: 0,
	})
	if !created {
		t.Fatal("expected first heartbeat to create a record")
	}
	if !r.Contains(1) {
		t.Fatal("expected registry to contain system id 1")
	}
	rec, ok := r.Get(1)
	if !ok {
		t.Fatal("expected Get to find system id 1")
	}
	if rec.Class != ClassCopter {
		t.Errorf("Class = %s, want copter", rec.Class)
	}
	if len(rec.FlightModeMap) == 0 {
		t.Error("expected a non-empty flight mode map for a copter")
	}
}

func TestUpsertOnHeartbeatIgnoresUnknownClass(t *testing.T) {
	r := NewRegistry()
	created := r.UpsertOnHeartbeat(HeartbeatFields{SystemID: 1, ComponentID: 1, MavType: 6})
	if created {
		t.Fatal("expected GCS heartbeat (unknown class) to be ignored")
	}
	if r.Contains(1) {
		t.Fatal("registry should not contain a record for an unknown class")
	}
}

func TestUpsertOnHeartbeatIgnoresNonAutopilotComponent(t *testing.T) {
	r := NewRegistry()
	created := r.UpsertOnHeartbeat(HeartbeatFields{SystemID: 1, ComponentID: 190, MavType: 2})
	if created {
		t.Fatal("expected non-autopilot component heartbeat to be ignored")
	}
}

func TestUpsertOnHeartbeatUpdatesExisting(t *testing.T) {
	r := NewRegistry()
	r.UpsertOnHeartbeat(HeartbeatFields{SystemID: 1, ComponentID: 1, MavType: 2, Armed: false, CustomMode: 0})

	created := r.UpsertOnHeartbeat(HeartbeatFields{SystemID: 1, ComponentID: 1, MavType: 2, Armed: true, CustomMode: 4})
	if created {
		t.Fatal("second heartbeat for a known system id should update, not create")
	}

	rec, _ := r.Get(1)
	if !rec.Armed || rec.FlightMode != 4 {
		t.Errorf("expected updated armed/flight_mode, got %+v", rec)
	}
}

func TestApplyVfrHudIgnoresStrangers(t *testing.T) {
	r := NewRegistry()
	r.ApplyVfrHud(9, 3.0, 10.0) // no panic, no-op
	if r.Contains(9) {
		t.Fatal("ApplyVfrHud must not create a record")
	}
}

func TestApplySysStatusConvertsUnits(t *testing.T) {
	r := NewRegistry()
	r.UpsertOnHeartbeat(HeartbeatFields{SystemID: 1, ComponentID: 1, MavType: 2})
	r.ApplySysStatus(1, 12600, 550)

	rec, _ := r.Get(1)
	if rec.BattVolts != 12.6 {
		t.Errorf("BattVolts = %v, want 12.6", rec.BattVolts)
	}
	if rec.BattCurr != 5.5 {
		t.Errorf("BattCurr = %v, want 5.5", rec.BattCurr)
	}
}

func TestOrderedSystemIDsPreservesFirstSeenOrder(t *testing.T) {
	r := NewRegistry()
	r.UpsertOnHeartbeat(HeartbeatFields{SystemID: 3, ComponentID: 1, MavType: 2})
	r.UpsertOnHeartbeat(HeartbeatFields{SystemID: 1, ComponentID: 1, MavType: 2})
	r.UpsertOnHeartbeat(HeartbeatFields{SystemID: 2, ComponentID: 1, MavType: 2})

	ids := r.OrderedSystemIDs()
	want := []uint8{3, 1, 2}
	if len(ids) != len(want) {
		t.Fatalf("len = %d, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %d, want %d", i, ids[i], want[i])
		}
	}
}

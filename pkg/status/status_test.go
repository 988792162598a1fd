package status

import (
	"errors"
	"testing"
)

var errBoom = errors.New("boom")

func TestUpdateExhaustsRetriesThenCompletes(t *testing.T) {
	st := New(3)
	if got := st.ShouldRun(); !boolsEqual(got, []bool{true, true, true}) {
		t.Fatalf("fresh status should run everything, got %v", got)
	}

	for i := 0; i < 3; i++ {
		st.Update([]error{errBoom, nil, nil})
		if got := st.ShouldRun(); !boolsEqual(got, []bool{true, false, false}) {
			t.Fatalf("after %d failures should_run = %v", i+1, got)
		}
		if st.Completed() {
			t.Fatalf("completed too early after %d failures", i+1)
		}
	}

	st.Update([]error{errBoom, nil, nil})
	if got := st.ShouldRun(); !boolsEqual(got, []bool{false, false, false}) {
		t.Fatalf("expected nothing left to run, got %v", got)
	}
	if !st.Completed() {
		t.Fatal("expected completed flag after retries exhausted")
	}
	if got := st.Slots(); !slotsEqual(got, []uint32{4, 7, 7}) {
		t.Fatalf("unexpected slots: %v", got)
	}
}

func TestRawRoundTrip(t *testing.T) {
	raws := []uint32{
		0,
		0b111_100_011,
		0b101_110_000, // patterns 5 and 6 are never written but must decode
		CompletedFlag | 0b100_100_100,
		^uint32(0),
	}
	for _, raw := range raws {
		if got := FromRaw(3, raw).Raw(); got != raw {
			t.Fatalf("raw round-trip mismatch: got %#x want %#x", got, raw)
		}
	}
}

func TestSlotsRoundTrip(t *testing.T) {
	testcases := [][]uint32{
		{0, 0, 1},
		{1, 2, 3},
		{3, 1, 2},
		{3, 0, 7},
	}
	for _, tc := range testcases {
		if got := FromSlots(tc).Slots(); !slotsEqual(got, tc) {
			t.Fatalf("slots round-trip mismatch: got %v want %v", got, tc)
		}
	}
}

func TestFromSlotsMasksHighBits(t *testing.T) {
	st := FromSlots([]uint32{9, 8, 15})
	if got := st.Slots(); !slotsEqual(got, []uint32{1, 0, 7}) {
		t.Fatalf("expected values masked to 3 bits, got %v", got)
	}
	if st.Completed() {
		t.Fatal("masked slots 1 and 0 are pending, flag must be clear")
	}
}

func TestFromSlotsRecomputesCompleted(t *testing.T) {
	cases := []struct {
		slots     []uint32
		completed bool
	}{
		{[]uint32{3, 0, 7}, false},
		{[]uint32{4, 7, 7}, true},
		{[]uint32{4, 7, 5}, true}, // 5 and 6 count as terminal
		{[]uint32{0, 0, 0}, false},
	}
	for _, tc := range cases {
		if got := FromSlots(tc.slots).Completed(); got != tc.completed {
			t.Fatalf("FromSlots(%v).Completed() = %v, want %v", tc.slots, got, tc.completed)
		}
	}
}

func TestUpdateAfterFromSlots(t *testing.T) {
	testcases := []struct {
		before, after []uint32
		completed     bool
	}{
		{[]uint32{0, 0, 1}, []uint32{1, 7, 7}, false},
		{[]uint32{3, 4, 3}, []uint32{4, 4, 7}, true},
		{[]uint32{3, 1, 7}, []uint32{4, 7, 7}, true},
	}
	for _, tc := range testcases {
		st := FromSlots(tc.before)
		st.Update([]error{errBoom, nil, nil})
		if got := st.Slots(); !slotsEqual(got, tc.after) {
			t.Fatalf("update from %v: got %v want %v", tc.before, got, tc.after)
		}
		if st.Completed() != tc.completed {
			t.Fatalf("update from %v: completed = %v, want %v", tc.before, st.Completed(), tc.completed)
		}
	}
}

func TestFailureCountNeverPassesCeiling(t *testing.T) {
	st := New(1)
	for i := 0; i < 10; i++ {
		st.Update([]error{errBoom})
	}
	if got := st.Slots()[0]; got != RetryCeiling {
		t.Fatalf("slot value %d, want pinned at %d", got, RetryCeiling)
	}
}

func TestSuccessIsAbsorbing(t *testing.T) {
	st := New(1)
	st.Update([]error{nil})
	if got := st.Slots()[0]; got != Succeeded {
		t.Fatalf("slot value %d after success, want %d", got, Succeeded)
	}
	st.Update([]error{errBoom})
	st.Update([]error{nil})
	if got := st.Slots()[0]; got != Succeeded {
		t.Fatalf("terminal slot mutated to %d", got)
	}
}

func TestCompletedFlagSticks(t *testing.T) {
	st := FromSlots([]uint32{4, 7})
	if !st.Completed() {
		t.Fatal("expected completed on construction")
	}
	st.Update([]error{errBoom, errBoom})
	if !st.Completed() {
		t.Fatal("completed flag must survive further updates")
	}
	if got := st.Slots(); !slotsEqual(got, []uint32{4, 7}) {
		t.Fatalf("terminal slots mutated: %v", got)
	}
}

func TestShouldRunMatchesSlotValues(t *testing.T) {
	// Includes the structurally representable but unreachable patterns 5, 6.
	st := FromRaw(8, 0b111_110_101_100_011_010_001_000)
	want := []bool{true, true, true, true, false, false, false, false}
	if got := st.ShouldRun(); !boolsEqual(got, want) {
		t.Fatalf("should_run = %v, want %v", got, want)
	}
}

func TestUpdateLengthMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on result length mismatch")
		}
	}()
	st := New(3)
	st.Update([]error{nil, nil})
}

func TestSlotCountOutOfRangePanics(t *testing.T) {
	for _, n := range []int{0, -1, MaxSlots + 1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic for slot count %d", n)
				}
			}()
			New(n)
		}()
	}
}

func TestKindConstructors(t *testing.T) {
	if got := NewVideoStatus(0).SlotCount(); got != VideoSlots {
		t.Fatalf("video status slot count %d, want %d", got, VideoSlots)
	}
	if got := NewPageStatus(0).SlotCount(); got != PageSlots {
		t.Fatalf("page status slot count %d, want %d", got, PageSlots)
	}
}

func boolsEqual(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func slotsEqual(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

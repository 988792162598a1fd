// Package status packs the retry state of a fixed number of independent
// sync subtasks into a single uint32 so it can live in one database column.
//
// Each slot occupies 3 bits, counting from the low end of the word. A slot
// starts at 0 and is incremented once per failed attempt, up to RetryCeiling
// (4), after which the subtask is abandoned. A successful attempt sets the
// slot straight to Succeeded (7). Either way the slot is terminal once it
// reaches RetryCeiling or above. When every slot is terminal the top bit of
// the word is set, marking the whole item as done.
package status

import "fmt"

const (
	// RetryCeiling is the failure count at which a slot stops retrying.
	RetryCeiling uint32 = 0b100
	// Succeeded marks a slot whose subtask finished ok.
	Succeeded uint32 = 0b111
	// CompletedFlag is the top bit of the raw word, set once every slot is
	// terminal. Exported so stores can select pending rows on the raw
	// column without decoding it.
	CompletedFlag uint32 = 1 << 31

	// MaxSlots is bounded by the 31 bits below the completed flag.
	MaxSlots = 10

	slotBits        = 3
	slotMask uint32 = 0b111
)

// Status is the packed retry state of n subtasks. It is a plain value:
// copy it freely, persist Raw, and rebuild with FromRaw. Build values
// through New, FromRaw or FromSlots; the zero Status has no slots.
type Status struct {
	n    int
	bits uint32
}

// New returns a Status with every slot at zero failed attempts.
// n must be in [1, MaxSlots].
func New(n int) Status {
	checkSlotCount(n)
	return Status{n: n}
}

// FromRaw wraps a previously persisted raw word verbatim. No validation is
// performed: slot patterns 5 and 6 are never produced by Update but decode
// fine, counting as terminal since they are at or above RetryCeiling.
func FromRaw(n int, raw uint32) Status {
	checkSlotCount(n)
	return Status{n: n, bits: raw}
}

// FromSlots packs explicit slot values. Each value is silently masked to its
// low 3 bits; the completed flag is recomputed from the resulting slots and
// never taken from the caller.
func FromSlots(slots []uint32) Status {
	s := New(len(slots))
	for i, v := range slots {
		s.setSlot(i, v)
	}
	if s.allTerminal() {
		s.bits |= CompletedFlag
	}
	return s
}

// SlotCount returns the number of slots this value was built with.
func (s Status) SlotCount() int { return s.n }

// Raw returns the underlying word unchanged.
func (s Status) Raw() uint32 { return s.bits }

// Completed reports the aggregate flag. The flag is derived state: it is
// recomputed by Update and FromSlots, not on every read.
func (s Status) Completed() bool { return s.bits&CompletedFlag != 0 }

// Slots extracts every slot value in index order.
func (s Status) Slots() []uint32 {
	out := make([]uint32, s.n)
	for i := range out {
		out[i] = s.slot(i)
	}
	return out
}

// ShouldRun reports, per slot, whether the subtask still warrants an
// attempt, i.e. its failure count is below RetryCeiling.
func (s Status) ShouldRun() []bool {
	out := make([]bool, s.n)
	for i := range out {
		out[i] = s.slot(i) < RetryCeiling
	}
	return out
}

// Update folds one attempt outcome per slot into the status. results must
// hold exactly one entry per slot, nil meaning the subtask succeeded;
// a length mismatch is a caller bug and panics rather than corrupting
// unrelated slots. Terminal slots are frozen whatever their new result says.
// After all slots are folded the completed flag is set if nothing is left
// to run; Update never clears the flag.
func (s *Status) Update(results []error) {
	if len(results) != s.n {
		panic(fmt.Sprintf("status: %d results for %d slots", len(results), s.n))
	}
	for i, err := range results {
		if s.slot(i) >= RetryCeiling {
			continue
		}
		if err == nil {
			s.setSlot(i, Succeeded)
		} else {
			s.bits += 1 << (slotBits * uint(i))
		}
	}
	if s.allTerminal() {
		s.bits |= CompletedFlag
	}
}

func (s Status) slot(i int) uint32 {
	return (s.bits >> (slotBits * uint(i))) & slotMask
}

func (s *Status) setSlot(i int, v uint32) {
	shift := slotBits * uint(i)
	s.bits = (s.bits &^ (slotMask << shift)) | ((v & slotMask) << shift)
}

func (s Status) allTerminal() bool {
	for i := 0; i < s.n; i++ {
		if s.slot(i) < RetryCeiling {
			return false
		}
	}
	return true
}

func checkSlotCount(n int) {
	if n < 1 || n > MaxSlots {
		panic(fmt.Sprintf("status: slot count %d out of range [1,%d]", n, MaxSlots))
	}
}

// Slot counts of the two tracked item kinds. Slot order is fixed; the
// encoding itself does not care what each index means.
const (
	// VideoSlots: cover, info, uploader avatar, uploader info, page list.
	VideoSlots = 5
	// PageSlots: cover, content, info, comments, subtitles.
	PageSlots = 5
)

// NewVideoStatus decodes a persisted item-level status word.
func NewVideoStatus(raw uint32) Status { return FromRaw(VideoSlots, raw) }

// NewPageStatus decodes a persisted page-level status word.
func NewPageStatus(raw uint32) Status { return FromRaw(PageSlots, raw) }

// cmd/statusctl decodes and packs the raw status words stored in the
// item_status table, for inspecting rows without decoding bits by hand.
//
// Usage:
//   ./statusctl -raw 2147483647 -n 5
//   ./statusctl -slots 3,0,7
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tendant/simple-mediasync/pkg/status"
)

func main() {
	raw := flag.Uint64("raw", 0, "Raw status word to decode")
	slots := flag.String("slots", "", "Comma-separated slot values to pack (overrides -raw)")
	n := flag.Int("n", status.VideoSlots, "Slot count used when decoding -raw")

	flag.Parse()

	st, err := buildStatus(*raw, *slots, *n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	fmt.Print(render(st))
}

func buildStatus(raw uint64, slots string, n int) (status.Status, error) {
	if slots != "" {
		values, err := parseSlots(slots)
		if err != nil {
			return status.Status{}, err
		}
		return status.FromSlots(values), nil
	}
	if raw > uint64(^uint32(0)) {
		return status.Status{}, fmt.Errorf("raw value %d does not fit in 32 bits", raw)
	}
	if n < 1 || n > status.MaxSlots {
		return status.Status{}, fmt.Errorf("slot count %d out of range [1,%d]", n, status.MaxSlots)
	}
	return status.FromRaw(n, uint32(raw)), nil
}

func parseSlots(arg string) ([]uint32, error) {
	fields := strings.Split(arg, ",")
	if len(fields) > status.MaxSlots {
		return nil, fmt.Errorf("at most %d slots, got %d", status.MaxSlots, len(fields))
	}
	values := make([]uint32, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseUint(strings.TrimSpace(field), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid slot value %q: %w", field, err)
		}
		values[i] = uint32(v)
	}
	return values, nil
}

func render(st status.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "raw:       %d (0x%08x)\n", st.Raw(), st.Raw())
	fmt.Fprintf(&b, "completed: %v\n", st.Completed())
	fmt.Fprintf(&b, "%-5s %-6s %-16s %s\n", "slot", "value", "state", "should_run")
	shouldRun := st.ShouldRun()
	for i, v := range st.Slots() {
		fmt.Fprintf(&b, "%-5d %-6d %-16s %v\n", i, v, slotState(v), shouldRun[i])
	}
	return b.String()
}

func slotState(v uint32) string {
	switch {
	case v == status.Succeeded:
		return "succeeded"
	case v >= status.RetryCeiling:
		return "exhausted"
	case v == 0:
		return "not attempted"
	default:
		return fmt.Sprintf("%d failed", v)
	}
}

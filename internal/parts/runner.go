package parts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-mediasync/pkg/status"
)

// Runner executes the pending slots of one item. It owns no state beyond
// the fixed part set; per-item state lives entirely in the packed status.
type Runner struct {
	parts  []Part
	logger *slog.Logger
}

func NewRunner(parts []Part, logger *slog.Logger) *Runner {
	return &Runner{parts: parts, logger: logger}
}

// PartNames returns the part names in packed slot order.
func (r *Runner) PartNames() []string {
	names := make([]string, len(r.parts))
	for i, p := range r.parts {
		names[i] = p.Name
	}
	return names
}

// Run executes, in slot order, every part st.ShouldRun marks pending and
// returns one result per slot for status.Update. Entries for slots that did
// not run are left nil; Update freezes terminal slots, so the filler value
// never reaches them. The part set and the status must agree on the slot
// count; a mismatch is a wiring bug and panics.
func (r *Runner) Run(ctx context.Context, item Item, st status.Status) []error {
	if len(r.parts) != st.SlotCount() {
		panic(fmt.Sprintf("parts: %d parts wired for %d slots", len(r.parts), st.SlotCount()))
	}

	should := st.ShouldRun()
	results := make([]error, len(r.parts))
	for i, p := range r.parts {
		if !should[i] {
			continue
		}
		if err := ctx.Err(); err != nil {
			results[i] = err
			continue
		}
		err := p.Run(ctx, item)
		results[i] = err
		if err != nil {
			r.logger.Warn("part attempt failed", "item_id", item.ID, "part", p.Name, "err", err)
		} else {
			r.logger.Info("part finished", "item_id", item.ID, "part", p.Name)
		}
	}
	return results
}

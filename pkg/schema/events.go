// pkg/schema/events.go
package schema

// ItemKind selects which packed slot layout an item uses.
type ItemKind string

const (
	KindVideo ItemKind = "video"
	KindPage  ItemKind = "page"
)

type FailureType string

const (
	FailureTypeRetryable  FailureType = "retryable"
	FailureTypePermanent  FailureType = "permanent"
	FailureTypeValidation FailureType = "validation"
)

// SyncRequested asks a worker to attempt every pending part of one item.
// Parts maps the well-known part names of the item's kind to source URLs.
type SyncRequested struct {
	ItemID     string            `json:"item_id"`
	Kind       ItemKind          `json:"kind"`
	Parts      map[string]string `json:"parts,omitempty"`
	HappenedAt int64             `json:"happened_at"`
}

// PartResult reports one slot after a sync pass.
type PartResult struct {
	Name        string      `json:"name"`
	Slot        int         `json:"slot"`
	Value       uint32      `json:"value"`
	Ran         bool        `json:"ran"`
	Succeeded   bool        `json:"succeeded"`
	Error       string      `json:"error,omitempty"`
	FailureType FailureType `json:"failure_type,omitempty"`
}

// SyncDone is published after every sync pass, completed or not. The raw
// status words are included so consumers can persist or diff them without
// re-deriving part state.
type SyncDone struct {
	ItemID           string       `json:"item_id"`
	Kind             ItemKind     `json:"kind"`
	StatusBefore     uint32       `json:"status_before"`
	StatusAfter      uint32       `json:"status_after"`
	Completed        bool         `json:"completed"`
	Parts            []PartResult `json:"parts,omitempty"`
	ProcessingTimeMs int64        `json:"processing_time_ms"`
	Error            string       `json:"error,omitempty"`
	FailureType      FailureType  `json:"failure_type,omitempty"`
	HappenedAt       int64        `json:"happened_at"`
}

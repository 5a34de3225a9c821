package realtime

import (
	"cmp"
	"slices"

	"github.com/comalice/xchart/internal/primitives"
)

// EventWithMeta adds sequencing metadata for deterministic ordering.
type EventWithMeta struct {
	Event       primitives.Event
	SequenceNum uint64
	Priority    int
}

// sortEvents orders events by priority (higher first), then by sequence number.
func sortEvents(events []EventWithMeta) {
	slices.SortStableFunc(events, func(a, b EventWithMeta) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.SequenceNum, b.SequenceNum)
	})
}

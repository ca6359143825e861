// Package restore holds the narrow interfaces through which the catalog
// core consumes its external collaborators: timeline history, recovery
// target satisfiability and WAL-range validation. The heavy lifting
// (history-file parsing, WAL segment reads) lives outside this module.
package restore

import (
	"context"

	"github.com/kebairia/pgverify/internal/catalog"
)

// Segment is one entry of a timeline history: a timeline and the position
// where it was switched away from. A zero SwitchLSN means unbounded (the
// current, still-open timeline).
type Segment struct {
	TLI       uint32
	SwitchLSN catalog.LSN
}

// TimelineHistory provides the archive's view of timelines.
type TimelineHistory interface {
	// Read returns the history segments for the target timeline, oldest
	// first, always ending with the target itself.
	Read(targetTLI uint32) ([]Segment, error)
	// Newest reports the highest timeline present in the archive,
	// or 1 when the archive carries no history files.
	Newest() (uint32, error)
}

// TargetChecker decides whether a backup can participate in a restore
// bounded by a timeline history and a recovery target.
type TargetChecker interface {
	SatisfiesTimeline(b *catalog.Backup, segments []Segment) bool
	SatisfiesTarget(b *catalog.Backup, rt *RecoveryTarget) bool
}

// WALValidator checks that the archived WAL range needed to roll a chain
// forward to the target actually exists and is readable.
type WALValidator interface {
	ValidateRange(
		ctx context.Context,
		b *catalog.Backup,
		archivePath string,
		from catalog.LSN,
		rt *RecoveryTarget,
		targetTLI uint32,
	) error
}

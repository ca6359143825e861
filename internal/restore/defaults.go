package restore

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/kebairia/pgverify/internal/catalog"
	"github.com/kebairia/pgverify/internal/logger"
)

// ArchiveTimelines derives timeline facts from the WAL archive directory by
// looking at which NNNNNNNN.history files exist. It deliberately does not
// parse their content; full history parsing is the archive layer's job.
type ArchiveTimelines struct {
	Dir string
}

var _ TimelineHistory = (*ArchiveTimelines)(nil)

// Read returns a single-segment history for the target timeline. Without
// parsed switch points the target timeline itself is the only information
// available, left unbounded.
func (a *ArchiveTimelines) Read(targetTLI uint32) ([]Segment, error) {
	return []Segment{{TLI: targetTLI}}, nil
}

// Newest scans the archive for history files and returns the highest
// timeline they name. An unreadable or empty archive means timeline 1.
func (a *ArchiveTimelines) Newest() (uint32, error) {
	entries, err := os.ReadDir(a.Dir)
	if err != nil {
		return 1, nil
	}

	newest := uint32(1)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".history") {
			continue
		}
		tli, err := strconv.ParseUint(strings.TrimSuffix(name, ".history"), 16, 32)
		if err != nil {
			continue
		}
		if uint32(tli) > newest {
			newest = uint32(tli)
		}
	}
	return newest, nil
}

// StandardChecker implements the default satisfiability rules: a backup
// belongs to a timeline named in the history, and it reaches the recovery
// target when its recovered position does not overshoot it.
type StandardChecker struct{}

var _ TargetChecker = StandardChecker{}

func (StandardChecker) SatisfiesTimeline(b *catalog.Backup, segments []Segment) bool {
	for _, seg := range segments {
		if seg.TLI != b.TLI {
			continue
		}
		// a backup taken before the switch point is usable; an
		// unbounded segment accepts everything on its timeline
		if seg.SwitchLSN == 0 || b.StopLSN <= seg.SwitchLSN {
			return true
		}
	}
	return false
}

func (StandardChecker) SatisfiesTarget(b *catalog.Backup, rt *RecoveryTarget) bool {
	if rt == nil {
		return true
	}
	if rt.HasXID {
		return b.RecoveryXID <= rt.XID
	}
	if rt.HasTime {
		return !b.RecoveryTime.After(rt.Time)
	}
	return true
}

// LoggedWALValidator stands in for the archive-side WAL validator: it
// records the delegated range and reports success. Deployments wire the
// real archive validator instead.
type LoggedWALValidator struct {
	Log logger.Logger
}

var _ WALValidator = (*LoggedWALValidator)(nil)

func (v *LoggedWALValidator) ValidateRange(
	ctx context.Context,
	b *catalog.Backup,
	archivePath string,
	from catalog.LSN,
	rt *RecoveryTarget,
	targetTLI uint32,
) error {
	v.Log.Info("delegating WAL range validation",
		"backup", catalog.EncodeID(b.ID()),
		"archive", archivePath,
		"from_lsn", from.String(),
		"timeline", targetTLI,
	)
	return ctx.Err()
}

package validate

import (
	"context"
	"errors"
	"fmt"

	"github.com/kebairia/pgverify/internal/catalog"
	"github.com/kebairia/pgverify/internal/logger"
	"github.com/kebairia/pgverify/internal/restore"
)

var (
	// ErrNoFullBackup means chain resolution found no usable base.
	ErrNoFullBackup = errors.New("no full backup found")
	// ErrBackupUnusable means an explicitly requested backup has a status
	// that disqualifies it; no fallback search is attempted.
	ErrBackupUnusable = errors.New("requested backup is not usable")
)

// ChainRequest describes one restore/validate resolution.
type ChainRequest struct {
	// BackupID restricts the search to this backup or earlier; zero means
	// "latest".
	BackupID int64
	// TargetTLI pins the timeline; zero lets the resolver pick.
	TargetTLI uint32
	Target    *restore.RecoveryTarget
	// CleanupStale runs the RUNNING/DELETING -> ERROR demotion pass. Only
	// set it when this process newly acquired the catalog lock.
	CleanupStale bool
}

// Chain is a resolved restore set: the base full backup followed by the
// incrementals needed to reach the target, oldest first.
type Chain struct {
	Backups []*catalog.Backup
	// Anchor is the chain member closest to the target; its start LSN
	// anchors the subsequent WAL-range validation.
	Anchor    *catalog.Backup
	TargetTLI uint32
}

// Resolver picks restore chains out of the catalog.
type Resolver struct {
	Store     catalog.Store
	Timelines restore.TimelineHistory
	Checker   restore.TargetChecker
	Log       logger.Logger
}

// Resolve walks the catalog newest-first for a base full backup satisfying
// the request, then accumulates the incrementals between the base and the
// target.
func (r *Resolver) Resolve(ctx context.Context, req ChainRequest) (*Chain, error) {
	backups, err := r.Store.List(0)
	if err != nil {
		return nil, err
	}

	if req.CleanupStale {
		if err := r.cleanupStale(backups); err != nil {
			return nil, err
		}
	}

	targetTLI, err := r.pickTimeline(req, backups)
	if err != nil {
		return nil, err
	}
	segments, err := r.Timelines.Read(targetTLI)
	if err != nil {
		return nil, fmt.Errorf("read timeline history %d: %w", targetTLI, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, baseIndex, err := r.findBase(backups, segments, req)
	if err != nil {
		return nil, err
	}

	chain := &Chain{
		Backups:   []*catalog.Backup{base},
		Anchor:    base,
		TargetTLI: targetTLI,
	}

	// walk forward in time from the base, collecting incrementals on the
	// same timeline until the next full backup or the requested ID
	r.Log.Debug("searching differential backups", "base", catalog.EncodeID(base.ID()))
	for i := baseIndex - 1; i >= 0; i-- {
		b := backups[i]

		// incomplete or different-timeline backups break nothing, they
		// are simply not part of this chain
		if (b.Status != catalog.StatusOK && b.Status != catalog.StatusCorrupt) ||
			b.TLI != base.TLI {
			continue
		}
		if b.Mode == catalog.ModeFull {
			break
		}
		if req.BackupID != 0 && b.ID() > req.BackupID {
			break
		}
		if b.Mode != catalog.ModeDiffPage && b.Mode != catalog.ModeDiffPtrack {
			continue
		}
		if !r.Checker.SatisfiesTimeline(b, segments) ||
			!r.Checker.SatisfiesTarget(b, req.Target) {
			continue
		}

		chain.Backups = append(chain.Backups, b)
		chain.Anchor = b
	}

	return chain, nil
}

// cleanupStale demotes backups a crashed or abandoned process left in
// RUNNING or DELETING. The pass walks oldest-first.
func (r *Resolver) cleanupStale(backups []*catalog.Backup) error {
	for i := len(backups) - 1; i >= 0; i-- {
		b := backups[i]
		if b.Status != catalog.StatusRunning && b.Status != catalog.StatusDeleting {
			continue
		}

		next, err := catalog.Transition(b.Status, catalog.EventDemote)
		if err != nil {
			return err
		}
		r.Log.Warn("demoting interrupted backup",
			"backup", catalog.EncodeID(b.ID()),
			"from", b.Status.String(),
			"to", next.String(),
		)
		b.Status = next
		if err := r.Store.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// pickTimeline resolves the target timeline: the caller's pin wins,
// otherwise the newest archived timeline, falling back to the timeline of
// the latest usable full backup.
func (r *Resolver) pickTimeline(req ChainRequest, backups []*catalog.Backup) (uint32, error) {
	if req.TargetTLI != 0 {
		return req.TargetTLI, nil
	}

	newest, err := r.Timelines.Newest()
	if err != nil {
		return 0, fmt.Errorf("determine newest timeline: %w", err)
	}
	if newest != 1 {
		return newest, nil
	}
	if full := r.fullBackupTimeline(backups, req.Target); full != 0 {
		return full, nil
	}
	return newest, nil
}

// fullBackupTimeline returns the timeline of the most recent completed full
// backup satisfying the recovery target, or zero when none exists.
func (r *Resolver) fullBackupTimeline(backups []*catalog.Backup, rt *restore.RecoveryTarget) uint32 {
	for _, b := range backups {
		if b.Mode == catalog.ModeFull && b.Status == catalog.StatusOK &&
			r.Checker.SatisfiesTarget(b, rt) {
			return b.TLI
		}
	}
	return 0
}

func (r *Resolver) findBase(
	backups []*catalog.Backup,
	segments []restore.Segment,
	req ChainRequest,
) (*catalog.Backup, int, error) {
	r.Log.Debug("searching recent full backup")

	idFound := false
	for i, b := range backups {
		// a requested ID restricts the search to that backup or earlier
		if req.BackupID != 0 && b.ID() > req.BackupID {
			continue
		}

		if req.BackupID == b.ID() {
			if b.Status == catalog.StatusOK || b.Status == catalog.StatusCorrupt {
				idFound = true
			} else {
				return nil, 0, fmt.Errorf("%w: backup %s is %s",
					ErrBackupUnusable, catalog.EncodeID(req.BackupID), b.Status)
			}
		}

		if b.Mode != catalog.ModeFull ||
			(b.Status != catalog.StatusOK && b.Status != catalog.StatusCorrupt) {
			continue
		}

		if r.Checker.SatisfiesTimeline(b, segments) &&
			r.Checker.SatisfiesTarget(b, req.Target) &&
			(idFound || req.BackupID == 0) {
			return b, i, nil
		}
		idFound = false
	}

	return nil, 0, fmt.Errorf("%w: cannot validate", ErrNoFullBackup)
}

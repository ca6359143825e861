package operations

import (
	"context"
	"errors"
	"fmt"

	"github.com/kebairia/pgverify/internal/catalog"
	"github.com/kebairia/pgverify/internal/restore"
	"github.com/kebairia/pgverify/internal/validate"
)

// ValidateRequest carries the CLI arguments of one validate run.
type ValidateRequest struct {
	// BackupID is the base-36 ID, "latest", or empty.
	BackupID string
	// TargetTime and TargetXID bound the recovery target; empty means
	// unconstrained.
	TargetTime string
	TargetXID  string
	Inclusive  bool
	// TargetTLI pins the timeline; zero lets the resolver choose.
	TargetTLI uint32
	SizeOnly  bool
	// Workers overrides the configured pool size when nonzero.
	Workers int
}

// Validate resolves the restore chain for the request and verifies every
// member, base first, then delegates WAL-range validation for the anchor.
func (m *Manager) Validate(ctx context.Context, req ValidateRequest) (*validate.Chain, error) {
	backupID, err := catalog.ParseIDOrLatest(req.BackupID)
	if err != nil {
		return nil, err
	}
	rt, err := restore.ParseRecoveryTarget(req.TargetTime, req.TargetXID, req.Inclusive)
	if err != nil {
		return nil, err
	}

	// lock contention is a normal branch: another process owns the
	// catalog, so we proceed read-mostly and skip stale-state cleanup
	lock, err := catalog.AcquireLock(m.cfg.Catalog.Path)
	owned := err == nil
	if err != nil && !errors.Is(err, catalog.ErrLocked) {
		return nil, err
	}
	if !owned {
		m.log.Info("catalog is locked by another process; skipping cleanup")
	}
	defer lock.Release()

	chain, err := m.resolver().Resolve(ctx, validate.ChainRequest{
		BackupID:     backupID,
		TargetTLI:    req.TargetTLI,
		Target:       rt,
		CleanupStale: owned,
	})
	if err != nil {
		return nil, err
	}

	engine := m.engine()
	opts := validate.Options{
		Workers:  m.cfg.Verify.Workers,
		SizeOnly: req.SizeOnly || m.cfg.Verify.SizeOnly,
	}
	if req.Workers > 0 {
		opts.Workers = req.Workers
	}

	for _, b := range chain.Backups {
		if _, err := engine.Verify(ctx, b, opts); err != nil {
			return nil, err
		}
	}

	if err := m.wal.ValidateRange(ctx, chain.Anchor, m.cfg.Archive.Path,
		chain.Anchor.StartLSN, rt, chain.TargetTLI); err != nil {
		return nil, fmt.Errorf("WAL range validation: %w", err)
	}

	return chain, nil
}

// ValidateAll sweeps the whole catalog oldest-first: interrupted backups
// are demoted to ERROR (when we own the lock) and every completed backup
// is verified by checksum.
func (m *Manager) ValidateAll(ctx context.Context) error {
	lock, err := catalog.AcquireLock(m.cfg.Catalog.Path)
	owned := err == nil
	if err != nil && !errors.Is(err, catalog.ErrLocked) {
		return err
	}
	if !owned {
		m.log.Info("catalog is locked by another process; skipping cleanup")
	}
	defer lock.Release()

	backups, err := m.store.List(0)
	if err != nil {
		return err
	}

	engine := m.engine()
	opts := validate.Options{Workers: m.cfg.Verify.Workers}

	// ascending order: the store lists newest-first
	for i := len(backups) - 1; i >= 0; i-- {
		b := backups[i]

		if owned && (b.Status == catalog.StatusRunning || b.Status == catalog.StatusDeleting) {
			next, err := catalog.Transition(b.Status, catalog.EventDemote)
			if err != nil {
				return err
			}
			m.log.Warn("demoting interrupted backup",
				"backup", catalog.EncodeID(b.ID()),
				"from", b.Status.String(),
			)
			b.Status = next
			if err := m.store.Write(b); err != nil {
				return err
			}
		}

		// only completed backups are eligible for a first validation
		if b.Status != catalog.StatusDone {
			continue
		}
		if _, err := engine.Verify(ctx, b, opts); err != nil {
			return err
		}
	}

	return nil
}

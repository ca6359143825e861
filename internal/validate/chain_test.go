package validate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kebairia/pgverify/internal/catalog"
	"github.com/kebairia/pgverify/internal/logger"
	"github.com/kebairia/pgverify/internal/restore"
)

// stubTimelines serves a fixed newest timeline and unbounded single-segment
// histories, standing in for the archive collaborator.
type stubTimelines struct {
	newest uint32
}

func (s stubTimelines) Read(targetTLI uint32) ([]restore.Segment, error) {
	return []restore.Segment{{TLI: targetTLI}}, nil
}

func (s stubTimelines) Newest() (uint32, error) {
	return s.newest, nil
}

func chainBackup(id int64, mode catalog.Mode, status catalog.Status, tli uint32) *catalog.Backup {
	b := catalog.NewBackup()
	b.Mode = mode
	b.Status = status
	b.TLI = tli
	b.StartTime = time.Unix(id, 0)
	return b
}

func newResolver(t *testing.T, backups ...*catalog.Backup) (*Resolver, *catalog.MemStore) {
	t.Helper()
	store := catalog.NewMemStore(t.TempDir())
	for _, b := range backups {
		if err := store.Write(b); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}
	return &Resolver{
		Store:     store,
		Timelines: stubTimelines{newest: 1},
		Checker:   restore.StandardChecker{},
		Log:       logger.Nop(),
	}, store
}

func chainIDs(c *Chain) []int64 {
	ids := make([]int64, len(c.Backups))
	for i, b := range c.Backups {
		ids[i] = b.ID()
	}
	return ids
}

func TestResolve_FullPlusIncrementals(t *testing.T) {
	resolver, _ := newResolver(t,
		chainBackup(100, catalog.ModeFull, catalog.StatusOK, 1),
		chainBackup(200, catalog.ModeDiffPage, catalog.StatusOK, 1),
		chainBackup(300, catalog.ModeDiffPage, catalog.StatusOK, 1),
	)

	chain, err := resolver.Resolve(context.Background(), ChainRequest{
		BackupID:  300,
		TargetTLI: 1,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	ids := chainIDs(chain)
	want := []int64{100, 200, 300}
	if len(ids) != len(want) {
		t.Fatalf("chain = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("chain = %v, want %v", ids, want)
		}
	}
	if chain.Backups[0].ID() != 100 {
		t.Fatalf("base = %d, want 100", chain.Backups[0].ID())
	}
	if chain.Anchor.ID() != 300 {
		t.Fatalf("anchor = %d, want 300", chain.Anchor.ID())
	}
}

func TestResolve_LatestPicksMostRecentFull(t *testing.T) {
	resolver, _ := newResolver(t,
		chainBackup(100, catalog.ModeFull, catalog.StatusOK, 1),
		chainBackup(200, catalog.ModeFull, catalog.StatusOK, 1),
		chainBackup(300, catalog.ModeDiffPage, catalog.StatusOK, 1),
	)

	chain, err := resolver.Resolve(context.Background(), ChainRequest{TargetTLI: 1})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	// newest-first scan: the most recent eligible full backup wins
	if chain.Backups[0].ID() != 200 {
		t.Fatalf("base = %d, want 200", chain.Backups[0].ID())
	}
	ids := chainIDs(chain)
	if len(ids) != 2 || ids[1] != 300 {
		t.Fatalf("chain = %v, want [200 300]", ids)
	}
}

func TestResolve_RequestedBackupUnusable(t *testing.T) {
	resolver, _ := newResolver(t,
		chainBackup(100, catalog.ModeFull, catalog.StatusOK, 1),
		chainBackup(200, catalog.ModeDiffPage, catalog.StatusError, 1),
	)

	_, err := resolver.Resolve(context.Background(), ChainRequest{
		BackupID:  200,
		TargetTLI: 1,
	})
	if !errors.Is(err, ErrBackupUnusable) {
		t.Fatalf("want ErrBackupUnusable, got %v", err)
	}
}

func TestResolve_NoFullBackup(t *testing.T) {
	resolver, _ := newResolver(t,
		chainBackup(100, catalog.ModeDiffPage, catalog.StatusOK, 1),
		chainBackup(200, catalog.ModeFull, catalog.StatusError, 1),
	)

	_, err := resolver.Resolve(context.Background(), ChainRequest{TargetTLI: 1})
	if !errors.Is(err, ErrNoFullBackup) {
		t.Fatalf("want ErrNoFullBackup, got %v", err)
	}
}

func TestResolve_SkipsOtherTimelines(t *testing.T) {
	resolver, _ := newResolver(t,
		chainBackup(100, catalog.ModeFull, catalog.StatusOK, 1),
		chainBackup(200, catalog.ModeFull, catalog.StatusOK, 2),
		chainBackup(300, catalog.ModeDiffPage, catalog.StatusOK, 2),
		chainBackup(400, catalog.ModeDiffPage, catalog.StatusOK, 1),
	)

	chain, err := resolver.Resolve(context.Background(), ChainRequest{TargetTLI: 1})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	ids := chainIDs(chain)
	if len(ids) != 2 || ids[0] != 100 || ids[1] != 400 {
		t.Fatalf("chain = %v, want [100 400]", ids)
	}
}

func TestResolve_IncrementalWalkStopsAtNextFull(t *testing.T) {
	resolver, _ := newResolver(t,
		chainBackup(100, catalog.ModeFull, catalog.StatusOK, 1),
		chainBackup(200, catalog.ModeDiffPage, catalog.StatusOK, 1),
		chainBackup(300, catalog.ModeFull, catalog.StatusOK, 1),
		chainBackup(400, catalog.ModeDiffPage, catalog.StatusOK, 1),
	)

	chain, err := resolver.Resolve(context.Background(), ChainRequest{
		BackupID:  200,
		TargetTLI: 1,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	ids := chainIDs(chain)
	if len(ids) != 2 || ids[0] != 100 || ids[1] != 200 {
		t.Fatalf("chain = %v, want [100 200]", ids)
	}
}

func TestResolve_CleanupDemotesStaleBackups(t *testing.T) {
	resolver, store := newResolver(t,
		chainBackup(100, catalog.ModeFull, catalog.StatusOK, 1),
		chainBackup(200, catalog.ModeDiffPage, catalog.StatusRunning, 1),
		chainBackup(300, catalog.ModeFull, catalog.StatusDeleting, 1),
	)

	_, err := resolver.Resolve(context.Background(), ChainRequest{
		TargetTLI:    1,
		CleanupStale: true,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	for _, id := range []int64{200, 300} {
		b, err := store.Read(id)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if b.Status != catalog.StatusError {
			t.Fatalf("backup %d status = %s, want ERROR", id, b.Status)
		}
	}
}

func TestResolve_NoCleanupWhenLockContended(t *testing.T) {
	resolver, store := newResolver(t,
		chainBackup(100, catalog.ModeFull, catalog.StatusOK, 1),
		chainBackup(200, catalog.ModeDiffPage, catalog.StatusRunning, 1),
	)

	if _, err := resolver.Resolve(context.Background(), ChainRequest{TargetTLI: 1}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	b, err := store.Read(200)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if b.Status != catalog.StatusRunning {
		t.Fatalf("backup 200 status = %s, want RUNNING untouched", b.Status)
	}
}

func TestResolve_TimelineFallbackToFullBackup(t *testing.T) {
	resolver, _ := newResolver(t,
		chainBackup(100, catalog.ModeFull, catalog.StatusOK, 3),
	)

	// archive knows only timeline 1, so the latest usable full backup's
	// timeline decides
	chain, err := resolver.Resolve(context.Background(), ChainRequest{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if chain.TargetTLI != 3 {
		t.Fatalf("TargetTLI = %d, want 3", chain.TargetTLI)
	}
}

func TestResolve_NewestArchiveTimelineWins(t *testing.T) {
	store := catalog.NewMemStore(t.TempDir())
	if err := store.Write(chainBackup(100, catalog.ModeFull, catalog.StatusOK, 5)); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	resolver := &Resolver{
		Store:     store,
		Timelines: stubTimelines{newest: 5},
		Checker:   restore.StandardChecker{},
		Log:       logger.Nop(),
	}

	chain, err := resolver.Resolve(context.Background(), ChainRequest{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if chain.TargetTLI != 5 {
		t.Fatalf("TargetTLI = %d, want 5", chain.TargetTLI)
	}
}

package validate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/kebairia/pgverify/internal/catalog"
	"github.com/kebairia/pgverify/internal/logger"
	"github.com/kebairia/pgverify/internal/manifest"
)

// ErrInterrupted means cancellation was observed mid-validation; the run
// aborts without writing a verdict.
var ErrInterrupted = errors.New("interrupted during validate")

// Options tunes one validation run.
type Options struct {
	// Workers is the pool size; clamped to [1, number of files].
	Workers int
	// SizeOnly skips checksum computation. A size-only pass can downgrade
	// a backup to CORRUPT but never clears an existing CORRUPT verdict.
	SizeOnly bool
}

// Engine verifies one backup's files against its manifest and writes the
// verdict back to the catalog.
type Engine struct {
	Store catalog.Store
	Log   logger.Logger
}

// Verify checks every manifest entry of b and persists the resulting
// status: CORRUPT on any finding, otherwise OK. It returns true when the
// backup was found corrupted.
func (e *Engine) Verify(ctx context.Context, b *catalog.Backup, opts Options) (bool, error) {
	id := catalog.EncodeID(b.ID())
	if !b.Mode.IsData() {
		return false, fmt.Errorf("backup %s has no database files to validate", id)
	}

	method := "CRC"
	if opts.SizeOnly {
		method = "SIZE"
	}
	e.Log.Info("validating backup files", "backup", id, "method", method)

	dir := catalog.BackupDir(e.Store.Root(), b.ID())
	dataDir := filepath.Join(dir, catalog.DataDir)
	entries, err := manifest.Load(filepath.Join(dir, catalog.FileList))
	if err != nil {
		return false, err
	}

	corrupted, err := e.verifyFiles(ctx, dataDir, entries, opts)
	if err != nil {
		return false, err
	}

	event := catalog.EventVerdictOK
	if corrupted {
		event = catalog.EventVerdictCorrupt
	} else if opts.SizeOnly && b.Status == catalog.StatusCorrupt {
		// clearing CORRUPT demands proof from a full size+checksum pass
		e.Log.Warn("size-only pass found no damage but cannot clear CORRUPT",
			"backup", id)
		event = catalog.EventVerdictCorrupt
	}

	next, err := catalog.Transition(b.Status, event)
	if err != nil {
		return corrupted, fmt.Errorf("backup %s: %w", id, err)
	}
	if next != b.Status {
		e.Log.Debug("updating backup status",
			"backup", id, "from", b.Status.String(), "to", next.String())
	}
	b.Status = next
	if err := e.Store.Write(b); err != nil {
		return corrupted, err
	}

	if corrupted {
		e.Log.Warn("backup is corrupted", "backup", id)
	} else {
		e.Log.Info("backup is valid", "backup", id)
	}
	return corrupted, nil
}

// verifyFiles fans the manifest out across the worker pool. Workers claim
// entries through a shared atomic cursor so each file is validated exactly
// once regardless of pool size.
func (e *Engine) verifyFiles(
	ctx context.Context,
	dataDir string,
	entries []manifest.Entry,
	opts Options,
) (bool, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(entries) {
		workers = len(entries)
	}
	if len(entries) == 0 {
		return false, nil
	}

	var (
		cursor    atomic.Int64
		corrupted atomic.Bool
		total     = len(entries)
	)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for {
				i := int(cursor.Inc()) - 1
				if i >= total {
					return nil
				}

				select {
				case <-ctx.Done():
					return fmt.Errorf("%w: %v", ErrInterrupted, context.Cause(ctx))
				default:
				}

				done, err := e.verifyOne(dataDir, &entries[i], i, total, opts.SizeOnly, &corrupted)
				if err != nil {
					return err
				}
				if done {
					// a finding ends this worker's contribution
					return nil
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		return false, err
	}
	return corrupted.Load(), nil
}

// verifyOne validates a single manifest entry. It returns done=true when
// the worker should stop scanning (a corruption finding was recorded).
func (e *Engine) verifyOne(
	dataDir string,
	entry *manifest.Entry,
	index, total int,
	sizeOnly bool,
	corrupted *atomic.Bool,
) (bool, error) {
	// incremental backups skip unchanged files; nothing on disk to check
	if entry.Size == manifest.SizeUnchanged || !entry.IsRegular() {
		return false, nil
	}

	e.Log.Debug("validating file",
		"progress", fmt.Sprintf("%d/%d", index+1, total),
		"path", entry.Path,
	)

	path := filepath.Join(dataDir, entry.Path)
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			e.Log.Warn("backup file vanished", "path", entry.Path)
			corrupted.Store(true)
			return true, nil
		}
		return false, fmt.Errorf("stat backup file %q: %w", entry.Path, err)
	}

	if st.Size() != entry.Size {
		e.Log.Warn("backup file size mismatch",
			"path", entry.Path,
			"expected", entry.Size,
			"actual", st.Size(),
		)
		corrupted.Store(true)
		return true, nil
	}

	if !sizeOnly {
		crc, err := manifest.FileCRC(path, entry.Compressed)
		if err != nil {
			return false, err
		}
		if crc != entry.CRC {
			e.Log.Warn("backup file checksum mismatch",
				"path", entry.Path,
				"expected", fmt.Sprintf("%08x", entry.CRC),
				"actual", fmt.Sprintf("%08x", crc),
			)
			corrupted.Store(true)
			return true, nil
		}
	}

	return false, nil
}

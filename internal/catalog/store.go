package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kebairia/pgverify/internal/logger"
)

// Catalog layout under the root directory.
const (
	BackupsDir = "backups"
	RecordFile = "backup.ini"
	DataDir    = "database"
	FileList   = "database.list"
)

// ErrCatalogUnavailable indicates the backups root itself cannot be read.
// Unlike a single corrupt record this aborts the whole operation.
var ErrCatalogUnavailable = errors.New("backup catalog unavailable")

// Store is the persistence boundary of the catalog. The filesystem
// implementation is the real one; MemStore backs tests.
type Store interface {
	// Read returns the record for id, or nil if no record file exists.
	Read(id int64) (*Backup, error)
	// Write persists the record into the backup's own directory.
	Write(b *Backup) error
	// List enumerates all parseable records sorted by start time
	// descending. A nonzero filterID keeps only the matching record.
	List(filterID int64) ([]*Backup, error)
	// Root is the catalog root directory (data files live below it).
	Root() string
}

// BackupDir returns the directory of one backup under the catalog root.
func BackupDir(root string, id int64) string {
	return filepath.Join(root, BackupsDir, EncodeID(id))
}

// fsStore is the on-disk catalog: one directory per backup holding a
// record file, a data subdirectory and a file manifest.
type fsStore struct {
	root string
	log  logger.Logger
}

// NewStore opens the catalog rooted at root.
func NewStore(root string, log logger.Logger) Store {
	return &fsStore{root: root, log: log}
}

func (s *fsStore) Root() string {
	return s.root
}

func (s *fsStore) Read(id int64) (*Backup, error) {
	return s.readRecord(filepath.Join(BackupDir(s.root, id), RecordFile))
}

func (s *fsStore) readRecord(path string) (*Backup, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open record %q: %w", path, err)
	}
	defer f.Close()

	b, err := UnmarshalBackup(f)
	if err != nil {
		return nil, fmt.Errorf("record %q: %w", path, err)
	}
	return b, nil
}

// Write serializes the record and renames it into place so a concurrent
// reader never observes a half-written file.
func (s *fsStore) Write(b *Backup) error {
	dir := BackupDir(s.root, b.ID())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create backup directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, RecordFile+".*")
	if err != nil {
		return fmt.Errorf("create record temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b.Marshal()); err != nil {
		tmp.Close()
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close record temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, RecordFile)); err != nil {
		return fmt.Errorf("rename record into place: %w", err)
	}
	return nil
}

func (s *fsStore) List(filterID int64) ([]*Backup, error) {
	backupsPath := filepath.Join(s.root, BackupsDir)
	entries, err := os.ReadDir(backupsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	var backups []*Backup
	for _, entry := range entries {
		// skip non-directories and hidden entries
		if !entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}

		path := filepath.Join(backupsPath, entry.Name(), RecordFile)
		b, err := s.readRecord(path)
		if err != nil {
			// one corrupted backup must not sink the whole listing
			if errors.Is(err, ErrCorruptRecord) {
				s.log.Warn("skipping corrupted backup record",
					"directory", entry.Name(),
					"error", err.Error(),
				)
				continue
			}
			return nil, err
		}
		if b == nil {
			continue
		}
		if filterID != 0 && b.ID() != filterID {
			continue
		}
		backups = append(backups, b)
	}

	sortByIDDesc(backups)
	return backups, nil
}

// CreateBackupDir makes the directory skeleton for a new backup: the backup
// directory itself plus the data subdirectory.
func CreateBackupDir(root string, b *Backup) error {
	dataPath := filepath.Join(BackupDir(root, b.ID()), DataDir)
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return fmt.Errorf("create backup directory %q: %w", dataPath, err)
	}
	return nil
}

// LastUsableBackup returns the most recent OK backup on the given timeline
// that carries database files, i.e. one usable as an incremental base.
// The list must be sorted descending, as List returns it.
func LastUsableBackup(backups []*Backup, tli uint32) *Backup {
	for _, b := range backups {
		if b.Status == StatusOK && b.TLI == tli && b.Mode.IsData() {
			return b
		}
	}
	return nil
}

func sortByIDDesc(backups []*Backup) {
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].ID() > backups[j].ID()
	})
}

// MemStore is an in-memory Store for tests. The zero value is not usable;
// call NewMemStore.
type MemStore struct {
	mu      sync.Mutex
	root    string
	records map[int64]*Backup
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory catalog. root is only reported
// through Root(); point it at a temp dir when the validation engine needs
// real data files.
func NewMemStore(root string) *MemStore {
	return &MemStore{root: root, records: make(map[int64]*Backup)}
}

func (s *MemStore) Root() string {
	return s.root
}

func (s *MemStore) Read(id int64) (*Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

func (s *MemStore) Write(b *Backup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *b
	s.records[b.ID()] = &copied
	return nil
}

func (s *MemStore) List(filterID int64) ([]*Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var backups []*Backup
	for id, b := range s.records {
		if filterID != 0 && id != filterID {
			continue
		}
		copied := *b
		backups = append(backups, &copied)
	}
	sortByIDDesc(backups)
	return backups, nil
}

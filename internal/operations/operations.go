package operations

import (
	"github.com/kebairia/pgverify/internal/catalog"
	"github.com/kebairia/pgverify/internal/config"
	"github.com/kebairia/pgverify/internal/logger"
	"github.com/kebairia/pgverify/internal/restore"
	"github.com/kebairia/pgverify/internal/validate"
)

// Manager wires the catalog store, the resolver, the validation engine and
// the external collaborators together for one process.
type Manager struct {
	cfg       config.Config
	log       logger.Logger
	store     catalog.Store
	timelines restore.TimelineHistory
	checker   restore.TargetChecker
	wal       restore.WALValidator
}

// NewManager loads the YAML config at configPath and assembles the default
// collaborators around it.
func NewManager(configPath string) (*Manager, error) {
	var cfg config.Config
	if err := cfg.Load(configPath); err != nil {
		return nil, err
	}
	return NewManagerWithConfig(cfg), nil
}

// NewManagerWithConfig assembles a Manager around an already-built config.
func NewManagerWithConfig(cfg config.Config) *Manager {
	log := logger.Global()
	return &Manager{
		cfg:       cfg,
		log:       log,
		store:     catalog.NewStore(cfg.Catalog.Path, log),
		timelines: &restore.ArchiveTimelines{Dir: cfg.Archive.Path},
		checker:   restore.StandardChecker{},
		wal:       &restore.LoggedWALValidator{Log: log},
	}
}

// Store exposes the catalog store, mainly for the listing commands.
func (m *Manager) Store() catalog.Store {
	return m.store
}

func (m *Manager) resolver() *validate.Resolver {
	return &validate.Resolver{
		Store:     m.store,
		Timelines: m.timelines,
		Checker:   m.checker,
		Log:       m.log,
	}
}

func (m *Manager) engine() *validate.Engine {
	return &validate.Engine{
		Store: m.store,
		Log:   m.log,
	}
}

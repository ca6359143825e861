package operations

import (
	"fmt"

	"github.com/kebairia/pgverify/internal/catalog"
)

// List returns the catalog's records newest-first, optionally filtered down
// to one ID given in base-36 form.
func (m *Manager) List(filter string) ([]*catalog.Backup, error) {
	filterID, err := catalog.ParseIDOrLatest(filter)
	if err != nil {
		return nil, err
	}
	return m.store.List(filterID)
}

// Show fetches one record by its base-36 ID.
func (m *Manager) Show(id string) (*catalog.Backup, error) {
	backupID, err := catalog.DecodeID(id)
	if err != nil {
		return nil, err
	}
	b, err := m.store.Read(backupID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("backup %s not found", id)
	}
	return b, nil
}

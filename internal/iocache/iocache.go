// Package iocache persists the commit journal and merge-info snapshots.
package iocache

import (
	"sync"

	"github.com/huangsam/svncoord/internal/contract"
)

// JournalStoreManager holds the journal store used by the commands.
type JournalStoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	journal      contract.JournalStore
}

var _ contract.StoreManager = &JournalStoreManager{} // Compile-time check

// GetJournalStore returns the journal store, or nil when none was initialized.
func (mgr *JournalStoreManager) GetJournalStore() contract.JournalStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.journal
}

package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/PuneWines/Document-manager/config"
	"github.com/PuneWines/Document-manager/model"
)

// ShareStore is an in-memory record of share actions backing the shared
// documents view. It is intentionally ephemeral; the sheet backend stays
// the only durable store.
type ShareStore struct {
	shares    map[string]*model.ShareRecord
	mu        sync.RWMutex
	maxShares int // Maximum share records to keep, 0 = unlimited
}

var (
	globalStore *ShareStore
	storeOnce   sync.Once
)

// InitShareStore initializes the global share store with configuration
func InitShareStore(cfg *config.StoreConfig) {
	storeOnce.Do(func() {
		maxShares := cfg.MaxShares
		if maxShares < 0 {
			maxShares = 0
		}
		globalStore = &ShareStore{
			shares:    make(map[string]*model.ShareRecord),
			maxShares: maxShares,
		}
		slog.Info("share store initialized", "max_shares", maxShares)
	})
}

// GetShareStore returns the global share store
func GetShareStore() *ShareStore {
	if globalStore == nil {
		// Fallback initialization with default settings
		globalStore = &ShareStore{
			shares:    make(map[string]*model.ShareRecord),
			maxShares: 200,
		}
	}
	return globalStore
}

func (s *ShareStore) Save(record *model.ShareRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	s.shares[record.ID] = record

	// Cleanup if exceeds max
	s.cleanupIfNeeded()
}

func (s *ShareStore) Get(id string) *model.ShareRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shares[id]
}

// List returns all share records, newest first.
func (s *ShareStore) List() []*model.ShareRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.ShareRecord, 0, len(s.shares))
	for _, r := range s.shares {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// ListByUser returns the share records created by one user, newest first.
func (s *ShareStore) ListByUser(username string) []*model.ShareRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.ShareRecord
	for _, r := range s.shares {
		if r.SharedBy == username {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *ShareStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.shares, id)
}

// cleanupIfNeeded removes oldest share records if store exceeds maxShares
// Must be called with lock held
func (s *ShareStore) cleanupIfNeeded() {
	if s.maxShares <= 0 {
		return // Unlimited
	}

	if len(s.shares) <= s.maxShares {
		return
	}

	shares := make([]*model.ShareRecord, 0, len(s.shares))
	for _, r := range s.shares {
		shares = append(shares, r)
	}
	sort.Slice(shares, func(i, j int) bool {
		return shares[i].CreatedAt.Before(shares[j].CreatedAt)
	})

	removeCount := len(shares) - s.maxShares
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old share record",
			"share_id", shares[i].ID,
			"created_at", shares[i].CreatedAt,
		)
		delete(s.shares, shares[i].ID)
	}
}

// Count returns the number of share records in the store
func (s *ShareStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shares)
}

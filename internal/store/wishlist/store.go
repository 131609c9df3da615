package wishlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pricewatch/pricewatch/internal/domain"
	"github.com/pricewatch/pricewatch/internal/logger"
)

// Store is the single source of truth for every user's tracked items.
// It keeps the full state in memory and mirrors it to one JSON document
// after every mutation. The in-memory state stays authoritative for the
// life of the process even if a disk write fails.
type Store struct {
	mu        sync.RWMutex
	path      string
	logger    logger.Logger
	wishlists map[string]*domain.UserWishlist // userID -> wishlist
	now       func() time.Time
}

// NewStore creates a store backed by the JSON document at path.
// Call Initialize before use.
func NewStore(path string, log logger.Logger) *Store {
	return &Store{
		path:      path,
		logger:    log,
		wishlists: make(map[string]*domain.UserWishlist),
		now:       time.Now,
	}
}

// Initialize hydrates the in-memory map from the backing document.
// A missing, empty, or unparseable file leaves the map empty and never
// prevents the process from starting; the failure is only logged.
func (s *Store) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no wishlist file yet, starting empty",
				logger.String("path", s.path))
		} else {
			s.logger.Warn("failed to read wishlist file, starting empty",
				logger.String("path", s.path),
				logger.Error(err))
		}
		return
	}

	if len(data) == 0 {
		s.logger.Info("wishlist file is empty, starting empty",
			logger.String("path", s.path))
		return
	}

	loaded := make(map[string]*domain.UserWishlist)
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn("failed to parse wishlist file, starting empty",
			logger.String("path", s.path),
			logger.Error(err))
		return
	}

	s.wishlists = loaded

	users, items := s.countsLocked()
	s.logger.Info("wishlists loaded",
		logger.String("path", s.path),
		logger.Int("users", users),
		logger.Int("items", items))
}

// Add appends item to the user's wishlist, creating the wishlist if
// absent, then persists. No uniqueness check is made on the item ID;
// callers own ID assignment.
func (s *Store) Add(userID string, item *domain.TrackedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wishlists[userID]
	if !ok {
		w = &domain.UserWishlist{UserID: userID}
		s.wishlists[userID] = w
	}
	// Keep a private copy so later mutations of the caller's item (or
	// of the stored one through UpdatePrice) cannot race each other.
	w.Items = append(w.Items, item.Clone())

	s.persistLocked()
}

// Get returns deep copies of the user's tracked items in insertion
// order, or an empty slice when the user has no wishlist yet. The
// copies are the caller's own; live store state never leaves the lock.
func (s *Store) Get(userID string) []*domain.TrackedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wishlists[userID]
	if !ok {
		return []*domain.TrackedItem{}
	}
	items := make([]*domain.TrackedItem, len(w.Items))
	for i, item := range w.Items {
		items[i] = item.Clone()
	}
	return items
}

// UpdatePrice records a new observed price for the item whose product ID
// matches, applying the history cap, and persists. An unknown user or
// product is a silent no-op.
func (s *Store) UpdatePrice(userID, productID string, newPrice int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wishlists[userID]
	if !ok {
		return
	}
	item, ok := w.FindByProductID(productID)
	if !ok {
		return
	}

	item.RecordPrice(newPrice, s.now())
	s.persistLocked()
}

// UpdatePriceIfChanged records the price only when it differs from the
// item's current price, and reports whether it did. The comparison and
// the write happen under one lock acquisition, so a concurrent update
// cannot slip between them. Unknown users or products report false.
func (s *Store) UpdatePriceIfChanged(userID, productID string, newPrice int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wishlists[userID]
	if !ok {
		return false
	}
	item, ok := w.FindByProductID(productID)
	if !ok {
		return false
	}
	if item.Product.CurrentPrice == newPrice {
		return false
	}

	item.RecordPrice(newPrice, s.now())
	s.persistLocked()
	return true
}

// Remove deletes the item with the given item ID from the user's
// wishlist and reports whether anything was removed. The remaining
// items keep their order. Persists only when a removal occurred.
func (s *Store) Remove(userID, itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wishlists[userID]
	if !ok {
		return false
	}

	kept := w.Items[:0]
	removed := false
	for _, item := range w.Items {
		if item.ID == itemID {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	if !removed {
		return false
	}
	w.Items = kept

	s.persistLocked()
	return true
}

// GetAll returns a deep-copy snapshot of the full user -> wishlist
// mapping, safe to read while the store keeps mutating.
func (s *Store) GetAll() map[string]*domain.UserWishlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]*domain.UserWishlist, len(s.wishlists))
	for userID, w := range s.wishlists {
		snapshot[userID] = w.Clone()
	}
	return snapshot
}

// Counts returns the number of users and tracked items currently held.
func (s *Store) Counts() (users, items int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countsLocked()
}

func (s *Store) countsLocked() (users, items int) {
	for _, w := range s.wishlists {
		users++
		items += len(w.Items)
	}
	return users, items
}

// persistLocked serializes the full map and rewrites the backing
// document via a temp file + rename so the document on disk is always a
// complete snapshot, never a torn write. Write failures are logged and
// swallowed; memory stays authoritative.
func (s *Store) persistLocked() {
	data, err := json.MarshalIndent(s.wishlists, "", "  ")
	if err != nil {
		s.logger.Error("failed to serialize wishlists",
			logger.Error(err))
		return
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		s.logger.Error("failed to persist wishlists",
			logger.String("path", s.path),
			logger.Error(err))
	}
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace wishlist file: %w", err)
	}
	return nil
}

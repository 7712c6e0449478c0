package store

import (
	"errors"
	"sync"

	"gorm.io/gorm"
)

var (
	ErrContactNotFound  = errors.New("contact not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrSequenceNotFound = errors.New("sequence not found")
)

// Store wraps all gorm access for the gateway. Counter and sequence-position
// updates go through a per-contact mutex so concurrent sends to the same
// contact cannot lose updates.
type Store struct {
	db    *gorm.DB
	locks sync.Map // wa_id -> *sync.Mutex
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for composition-root wiring.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) lockContact(waID string) func() {
	v, _ := s.locks.LoadOrStore(waID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

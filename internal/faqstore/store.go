// Package faqstore owns the FAQ collection and its on-disk representation.
//
// Every mutating operation runs a full Load → mutate → Persist cycle while
// holding the store's write lock, so concurrent mutations cannot lose
// updates or compute an id from a stale maximum. Reads share a read lock
// and, because Persist replaces the file atomically, always see either the
// pre- or the post-state of a mutation.
package faqstore

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/starford/faqs/internal/apperr"
	"github.com/starford/faqs/internal/checksum"
	"github.com/starford/faqs/internal/models"
	"github.com/starford/faqs/internal/storage"
)

// DefaultFile is the backing file name used when none is configured.
const DefaultFile = "faqs.json"

// Store is the record store for a single backing file.
type Store struct {
	mu   sync.RWMutex
	fs   storage.Provider
	name string

	// sum is the checksum of the contents last read or written by this store.
	sum atomic.Value
}

// New creates a store persisting to name (relative to the provider root).
func New(fs storage.Provider, name string) *Store {
	if name == "" {
		name = DefaultFile
	}
	s := &Store{fs: fs, name: name}
	s.sum.Store("")
	return s
}

// Name returns the backing file name relative to the provider root.
func (s *Store) Name() string {
	return s.name
}

// Checksum returns the digest of the contents this store last observed.
// An empty string means nothing has been read or written yet.
func (s *Store) Checksum() string {
	return s.sum.Load().(string)
}

// Load reads the full collection. A missing or empty backing file is an
// empty collection; unparsable contents wrap apperr.ErrCorruptStorage.
func (s *Store) Load() (Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked()
}

// List returns every record in insertion order. It never returns nil on success.
func (s *Store) List() ([]models.Faq, error) {
	c, err := s.Load()
	if err != nil {
		return nil, err
	}
	return []models.Faq(c), nil
}

// GetByID returns the record with id or apperr.ErrNotFound.
func (s *Store) GetByID(id int) (models.Faq, error) {
	c, err := s.Load()
	if err != nil {
		return models.Faq{}, err
	}
	i := c.Index(id)
	if i < 0 {
		return models.Faq{}, fmt.Errorf("faq %d: %w", id, apperr.ErrNotFound)
	}
	return c[i], nil
}

// Insert validates d, assigns the next id, appends the record and persists
// the collection. A non-zero d.ID that is already taken fails with
// apperr.ErrIDConflict, as does a collection whose highest id is math.MaxInt.
func (s *Store) Insert(d Draft) (models.Faq, error) {
	if err := d.Validate(); err != nil {
		return models.Faq{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.loadLocked()
	if err != nil {
		return models.Faq{}, err
	}
	if d.ID != 0 && c.Contains(d.ID) {
		return models.Faq{}, fmt.Errorf("faq %d: %w", d.ID, apperr.ErrIDConflict)
	}

	id, err := c.NextID()
	if err != nil {
		return models.Faq{}, err
	}

	faq := models.Faq{
		ID:       id,
		Question: d.Question,
		Answer:   d.Answer,
		Tags:     append([]string(nil), d.Tags...),
	}
	if err := s.persistLocked(append(c, faq)); err != nil {
		return models.Faq{}, err
	}
	return faq, nil
}

// DeleteByID removes the record with id and persists the collection. An
// unknown id returns apperr.ErrNotFound without touching the backing file.
func (s *Store) DeleteByID(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.loadLocked()
	if err != nil {
		return err
	}
	i := c.Index(id)
	if i < 0 {
		return fmt.Errorf("faq %d: %w", id, apperr.ErrNotFound)
	}
	return s.persistLocked(c.Without(i))
}

// Persist replaces the backing file with c. The collection must satisfy the
// id invariants.
func (s *Store) Persist(c Collection) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("faqstore: persist: %w: %v", apperr.ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(c)
}

// Snapshot returns the canonical serialized collection together with its
// checksum, taken under the read lock. Corrupt contents are refused.
func (s *Store) Snapshot() ([]byte, string, error) {
	c, err := s.Load()
	if err != nil {
		return nil, "", err
	}
	data, err := encode(c)
	if err != nil {
		return nil, "", fmt.Errorf("faqstore: encode: %w", err)
	}
	return data, checksum.Sum(data), nil
}

func (s *Store) loadLocked() (Collection, error) {
	data, err := s.fs.Read(s.name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Collection{}, nil
		}
		return nil, fmt.Errorf("faqstore: load: %w", err)
	}
	s.sum.Store(checksum.Sum(data))
	c, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("faqstore: load %s: %w", s.name, err)
	}
	return c, nil
}

func (s *Store) persistLocked(c Collection) error {
	data, err := encode(c)
	if err != nil {
		return fmt.Errorf("faqstore: encode: %w", err)
	}
	// Publish the new digest before the rename so a watcher never mistakes
	// this write for an external edit.
	prev := s.sum.Swap(checksum.Sum(data))
	if err := s.fs.Write(s.name, data); err != nil {
		s.sum.Store(prev)
		return fmt.Errorf("faqstore: persist: %w", err)
	}
	return nil
}

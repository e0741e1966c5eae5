package faqstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/starford/faqs/internal/apperr"
	"github.com/starford/faqs/internal/models"
)

// Collection is the ordered set of records persisted as one JSON array.
type Collection []models.Faq

// MaxID returns the largest id in the collection, or 0 when it is empty.
func (c Collection) MaxID() int {
	highest := 0
	for _, f := range c {
		if f.ID > highest {
			highest = f.ID
		}
	}
	return highest
}

// ErrIDSpaceExhausted is returned by NextID when the highest stored id is
// already math.MaxInt. It wraps apperr.ErrIDConflict.
var ErrIDSpaceExhausted = fmt.Errorf("faqstore: id space exhausted: %w", apperr.ErrIDConflict)

// NextID is 1 for an empty collection, else max(ids)+1. It is derived from
// the data alone so hand edits of the backing file cannot desync it.
func (c Collection) NextID() (int, error) {
	highest := c.MaxID()
	if highest == math.MaxInt {
		return 0, ErrIDSpaceExhausted
	}
	return highest + 1, nil
}

// Index returns the position of the record with id, or -1.
func (c Collection) Index(id int) int {
	for i, f := range c {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether a record with id is present.
func (c Collection) Contains(id int) bool {
	return c.Index(id) >= 0
}

// Without returns a copy of c with the record at position i removed.
func (c Collection) Without(i int) Collection {
	out := make(Collection, 0, len(c)-1)
	out = append(out, c[:i]...)
	return append(out, c[i+1:]...)
}

// Validate checks the at-rest invariants: positive, pairwise-distinct ids.
func (c Collection) Validate() error {
	seen := make(map[int]struct{}, len(c))
	for i, f := range c {
		if f.ID <= 0 {
			return fmt.Errorf("record %d: id %d is not positive", i, f.ID)
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("record %d: duplicate id %d", i, f.ID)
		}
		seen[f.ID] = struct{}{}
	}
	return nil
}

// decode parses the backing file contents. Empty input is an empty
// collection; anything else that is not a valid collection wraps
// apperr.ErrCorruptStorage.
func decode(data []byte) (Collection, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Collection{}, nil
	}
	var c Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrCorruptStorage, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrCorruptStorage, err)
	}
	if c == nil {
		c = Collection{}
	}
	return c, nil
}

func encode(c Collection) ([]byte, error) {
	if c == nil {
		c = Collection{}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

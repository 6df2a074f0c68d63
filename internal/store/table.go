package store

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when no record carries the requested id
var ErrNotFound = errors.New("not found")

// Record is implemented by every value kept in a Table
type Record[T any] interface {
	GetID() int64
	WithID(id int64) T
	Clone() T
}

// Table is an ordered, mutex-guarded record set. Records are copied on the
// way in and on the way out, so callers never hold a reference to table state.
type Table[T Record[T]] struct {
	mu      sync.RWMutex
	name    string
	records []T
	// highest id ever held, so ids of deleted records are never handed out again
	highWater int64
}

// NewTable creates a table seeded with copies of seed
func NewTable[T Record[T]](name string, seed []T) *Table[T] {
	t := &Table[T]{name: name, records: make([]T, 0, len(seed))}
	for _, r := range seed {
		t.records = append(t.records, r.Clone())
	}
	t.highWater = t.maxID()
	return t
}

// Name returns the table name used in error messages
func (t *Table[T]) Name() string {
	return t.name
}

// Len returns the number of records
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// All returns copies of every record in insertion order
func (t *Table[T]) All() []T {
	return t.Filter(func(T) bool { return true })
}

// Filter returns copies of the records matching match, in insertion order
func (t *Table[T]) Filter(match func(T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]T, 0)
	for _, r := range t.records {
		if match(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Get returns a copy of the record with the given id
func (t *Table[T]) Get(id int64) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := t.indexOf(id)
	if idx < 0 {
		var zero T
		return zero, t.notFound(id)
	}
	return t.records[idx].Clone(), nil
}

// Insert appends rec under the next id, one above the highest id the table
// has ever held, so deleted ids are not reused. guard, when
// set, sees the current records under the write lock and may veto the insert.
// Guards must not retain the slice they are given.
func (t *Table[T]) Insert(rec T, guard func(existing []T) error) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if guard != nil {
		if err := guard(t.records); err != nil {
			var zero T
			return zero, err
		}
	}

	t.highWater = t.nextID()
	rec = rec.Clone().WithID(t.highWater)
	t.records = append(t.records, rec)
	return rec.Clone(), nil
}

// Update replaces the record with the given id by apply(copy). The id is
// pinned to its original value whatever apply returns.
func (t *Table[T]) Update(id int64, apply func(current T, existing []T) (T, error)) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	idx := t.indexOf(id)
	if idx < 0 {
		return zero, t.notFound(id)
	}

	next, err := apply(t.records[idx].Clone(), t.records)
	if err != nil {
		return zero, err
	}

	next = next.Clone().WithID(id)
	t.records[idx] = next
	return next.Clone(), nil
}

// Delete removes the record with the given id and returns it. guard may veto
// the removal.
func (t *Table[T]) Delete(id int64, guard func(target T, existing []T) error) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	idx := t.indexOf(id)
	if idx < 0 {
		return zero, t.notFound(id)
	}

	target := t.records[idx]
	if guard != nil {
		if err := guard(target, t.records); err != nil {
			return zero, err
		}
	}

	t.records = append(t.records[:idx], t.records[idx+1:]...)
	return target.Clone(), nil
}

func (t *Table[T]) indexOf(id int64) int {
	for i, r := range t.records {
		if r.GetID() == id {
			return i
		}
	}
	return -1
}

func (t *Table[T]) maxID() int64 {
	var max int64
	for _, r := range t.records {
		if r.GetID() > max {
			max = r.GetID()
		}
	}
	return max
}

func (t *Table[T]) nextID() int64 {
	max := t.maxID()
	if t.highWater > max {
		max = t.highWater
	}
	return max + 1
}

func (t *Table[T]) notFound(id int64) error {
	return fmt.Errorf("%s with ID %d %w", t.name, id, ErrNotFound)
}

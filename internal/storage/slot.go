// Package storage provides durable key-value slots. A slot holds one opaque
// value under a fixed key; the cart keeps its serialised item list in one.
package storage

import (
	"context"
	"sync"
)

// Slot is a single durable value
type Slot interface {
	// Read returns the stored value. ok is false when nothing has been written.
	Read(ctx context.Context) (value []byte, ok bool, err error)
	// Write replaces the stored value
	Write(ctx context.Context, value []byte) error
}

// MemorySlot keeps the value in process memory
type MemorySlot struct {
	mu    sync.RWMutex
	value []byte
	set   bool
}

// NewMemorySlot creates an empty in-memory slot
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

// Read returns a copy of the stored value
func (m *MemorySlot) Read(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.set {
		return nil, false, nil
	}
	return append([]byte(nil), m.value...), true, nil
}

// Write stores a copy of value
func (m *MemorySlot) Write(ctx context.Context, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.value = append([]byte(nil), value...)
	m.set = true
	return nil
}

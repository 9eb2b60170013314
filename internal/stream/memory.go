// SPDX-License-Identifier: MIT
package stream

import (
	"encoding/binary"
	"fmt"
	"sync"
)

// Memory is a growable in-memory store. Appends may run concurrently with
// open streams; a stream that reaches the current end reports a short count
// and picks up newly appended items on its next read. Once the producer
// calls Fail, streams that reach the end report an ErrIOFailure instead.
type Memory[T any] struct {
	mu    sync.RWMutex
	items []T
	err   error
}

// NewMemory creates an empty store with the given initial capacity.
func NewMemory[T any](capacity int) *Memory[T] {
	return &Memory[T]{items: make([]T, 0, capacity)}
}

// FromSlice creates a store that adopts items without copying.
func FromSlice[T any](items []T) *Memory[T] {
	return &Memory[T]{items: items}
}

// Append adds items to the end of the store.
func (m *Memory[T]) Append(items ...T) {
	m.mu.Lock()
	m.items = append(m.items, items...)
	m.mu.Unlock()
}

// Fail marks the store as never growing past its current size because the
// producer hit err. The first failure is kept.
func (m *Memory[T]) Fail(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	if m.err == nil {
		m.err = ioFailure(err)
	}
	m.mu.Unlock()
}

// Err returns the failure recorded by Fail, wrapped as ErrIOFailure.
func (m *Memory[T]) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// Size returns the number of items currently stored.
func (m *Memory[T]) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Read opens a stream at index. sizeHint is ignored; memory streams never
// allocate.
func (m *Memory[T]) Read(index, sizeHint int) (Stream[T], error) {
	if err := checkIndex(index, m.Size()); err != nil {
		return nil, err
	}
	return &memoryStream[T]{m: m, pos: index}, nil
}

type memoryStream[T any] struct {
	m   *Memory[T]
	pos int
}

func (s *memoryStream[T]) Read() (T, bool, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	if s.pos >= len(s.m.items) {
		var zero T
		return zero, false, s.m.err
	}
	v := s.m.items[s.pos]
	s.pos++
	return v, true, nil
}

func (s *memoryStream[T]) ReadBatch(dst []T) (int, error) {
	s.m.mu.RLock()
	n := 0
	if s.pos < len(s.m.items) {
		n = copy(dst, s.m.items[s.pos:])
	}
	var err error
	if n < len(dst) {
		err = s.m.err
	}
	s.m.mu.RUnlock()
	s.pos += n
	return n, err
}

// ReadRaw encodes items directly from the backing slice.
func (s *memoryStream[T]) ReadRaw(dst []byte) (int, error) {
	var zero T
	size := binary.Size(zero)
	if size <= 0 {
		return 0, fmt.Errorf("stream: %T has no fixed encoded size", zero)
	}

	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	count := min(len(dst)/size, max(len(s.m.items)-s.pos, 0))
	if count == 0 {
		if len(dst) >= size {
			return 0, s.m.err
		}
		return 0, nil
	}
	n, err := binary.Encode(dst, binary.LittleEndian, s.m.items[s.pos:s.pos+count])
	if err != nil {
		return 0, fmt.Errorf("stream: encode raw items: %w", err)
	}
	s.pos += count
	return n, nil
}

// SPDX-License-Identifier: MIT
/*
Package stream provides uniform lazy, random-access reads over sample
stores: memory, files, decoder output and projections of other stores.

A Data is an indexable store whose current size may grow. Reading it at an
index yields a Stream, a sequential cursor that is not safe for concurrent
use; every reader opens its own. A batched read that returns fewer items than
requested signals exhaustion, which is transient for stores that are still
being filled (decoders) and permanent otherwise.
*/
package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is returned when a read starts outside the populated range.
	ErrOutOfRange = errors.New("stream: index out of populated range")

	// ErrIOFailure marks failures of the backing store. Use errors.Is to
	// classify errors coming out of Read and ReadBatch.
	ErrIOFailure = errors.New("stream: i/o failure")
)

// Stream is a sequential cursor over items of type T.
type Stream[T any] interface {
	// Read returns the next item. ok is false once the stream is exhausted;
	// err is non-nil only for backing-store failures.
	Read() (item T, ok bool, err error)

	// ReadBatch copies up to len(dst) items into dst and returns the count.
	// A short count signals exhaustion. Callers wanting the "size, offset"
	// form pass dst[offset:offset+size].
	ReadBatch(dst []T) (int, error)
}

// Data is a random-access store of items of type T.
type Data[T any] interface {
	// Size returns the number of items currently populated.
	Size() int

	// Read opens a stream positioned at index. The stream may yield more
	// than sizeHint items; the hint only bounds allocation planning.
	Read(index, sizeHint int) (Stream[T], error)
}

// Number is the set of fixed-size value types that support raw byte copies.
type Number interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// RawReader is implemented by streams that can encode their items straight
// from backing memory.
type RawReader interface {
	ReadRaw(dst []byte) (int, error)
}

// rawScratchItems bounds the scratch buffer used by ReadRaw's fallback path.
const rawScratchItems = 4096

// ReadRaw copies whole items from s into dst as little-endian bytes and
// returns the number of bytes written. Streams implementing RawReader are
// encoded directly; others are buffered through scratch memory.
func ReadRaw[T Number](s Stream[T], dst []byte) (int, error) {
	if rr, ok := s.(RawReader); ok {
		return rr.ReadRaw(dst)
	}

	var zero T
	size := binary.Size(zero)
	items := len(dst) / size
	if items == 0 {
		return 0, nil
	}
	scratch := make([]T, min(items, rawScratchItems))

	written := 0
	for items > 0 {
		want := min(items, len(scratch))
		n, err := s.ReadBatch(scratch[:want])
		if n > 0 {
			m, encErr := binary.Encode(dst[written:], binary.LittleEndian, scratch[:n])
			written += m
			if encErr != nil {
				return written, fmt.Errorf("stream: encode raw items: %w", encErr)
			}
			items -= n
		}
		if err != nil {
			return written, err
		}
		if n < want {
			break
		}
	}
	return written, nil
}

// Collect reads every currently populated item of d.
func Collect[T any](d Data[T]) ([]T, error) {
	size := d.Size()
	s, err := d.Read(0, size)
	if err != nil {
		return nil, err
	}
	out := make([]T, size)
	n, err := s.ReadBatch(out)
	return out[:n], err
}

// ioFailure wraps err as an ErrIOFailure.
func ioFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrIOFailure, err)
}

func checkIndex(index, size int) error {
	if index < 0 || index > size {
		return fmt.Errorf("%w: index %d, size %d", ErrOutOfRange, index, size)
	}
	return nil
}

// cursor buffers a Stream so compound adapters can pull single items
// cheaply. A failure is sticky once the buffered items are drained.
type cursor[T any] struct {
	src  Stream[T]
	buf  []T
	i, n int
	err  error
}

func newCursor[T any](src Stream[T], sizeHint int) *cursor[T] {
	return &cursor[T]{src: src, buf: make([]T, min(max(sizeHint, 16), 4096))}
}

// ready reports whether an item is buffered, refilling from the source when
// the buffer is drained. It does not consume.
func (c *cursor[T]) ready() (bool, error) {
	if c.i < c.n {
		return true, nil
	}
	if c.err != nil {
		return false, c.err
	}
	n, err := c.src.ReadBatch(c.buf)
	c.i, c.n, c.err = 0, n, err
	return n > 0, err
}

func (c *cursor[T]) next() (T, bool, error) {
	if ok, err := c.ready(); !ok {
		var zero T
		return zero, false, err
	}
	v := c.buf[c.i]
	c.i++
	return v, true, nil
}

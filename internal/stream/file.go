// SPDX-License-Identifier: MIT
package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// File is a read-only store of little-endian fixed-size values backed by an
// io.ReaderAt, typically a headerless PCM file.
type File[T Number] struct {
	r      io.ReaderAt
	closer io.Closer
	size   int
	elem   int
}

// maxFileChunk caps the bytes fetched per ReadAt call.
const maxFileChunk = 1 << 16

// NewFile wraps r, whose readable length is byteLen bytes. Trailing bytes
// that do not form a whole item are ignored.
func NewFile[T Number](r io.ReaderAt, byteLen int64) *File[T] {
	var zero T
	elem := binary.Size(zero)
	return &File[T]{r: r, size: int(byteLen / int64(elem)), elem: elem}
}

// OpenFile opens the file at path as a store of T.
func OpenFile[T Number](path string) (*File[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioFailure(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ioFailure(err)
	}
	store := NewFile[T](f, info.Size())
	store.closer = f
	return store, nil
}

// Size returns the number of whole items in the file.
func (f *File[T]) Size() int {
	return f.size
}

// Read opens a stream at index. The scratch buffer is sized from sizeHint.
func (f *File[T]) Read(index, sizeHint int) (Stream[T], error) {
	if err := checkIndex(index, f.size); err != nil {
		return nil, err
	}
	chunk := min(max(sizeHint, 1)*f.elem, maxFileChunk)
	chunk = max(chunk/f.elem, 1) * f.elem
	return &fileStream[T]{f: f, pos: index, scratch: make([]byte, chunk)}, nil
}

// Close releases the underlying file when the store was opened by OpenFile.
func (f *File[T]) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}

type fileStream[T Number] struct {
	f       *File[T]
	pos     int
	scratch []byte
}

func (s *fileStream[T]) Read() (T, bool, error) {
	var one [1]T
	n, err := s.ReadBatch(one[:])
	return one[0], n == 1, err
}

func (s *fileStream[T]) ReadBatch(dst []T) (int, error) {
	elem := s.f.elem
	want := min(len(dst), s.f.size-s.pos)
	done := 0
	for done < want {
		count := min(want-done, len(s.scratch)/elem)
		buf := s.scratch[:count*elem]
		n, err := s.f.r.ReadAt(buf, int64(s.pos)*int64(elem))
		whole := n / elem
		if whole > 0 {
			if _, decErr := binary.Decode(buf[:whole*elem], binary.LittleEndian, dst[done:done+whole]); decErr != nil {
				return done, fmt.Errorf("stream: decode file items: %w", decErr)
			}
			done += whole
			s.pos += whole
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// The file shrank underneath us; report exhaustion.
				return done, nil
			}
			return done, ioFailure(err)
		}
		if whole < count {
			return done, nil
		}
	}
	return done, nil
}

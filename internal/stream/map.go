// SPDX-License-Identifier: MIT
package stream

// Map returns a lazy projection of d through fn. Nothing is read until a
// stream of the result is consumed.
func Map[T, U any](d Data[T], fn func(T) U) Data[U] {
	return &mapped[T, U]{src: d, fn: fn}
}

type mapped[T, U any] struct {
	src Data[T]
	fn  func(T) U
}

func (m *mapped[T, U]) Size() int {
	return m.src.Size()
}

func (m *mapped[T, U]) Read(index, sizeHint int) (Stream[U], error) {
	s, err := m.src.Read(index, sizeHint)
	if err != nil {
		return nil, err
	}
	return &mappedStream[T, U]{src: s, fn: m.fn}, nil
}

type mappedStream[T, U any] struct {
	src     Stream[T]
	fn      func(T) U
	scratch []T
}

func (s *mappedStream[T, U]) Read() (U, bool, error) {
	v, ok, err := s.src.Read()
	if !ok {
		var zero U
		return zero, false, err
	}
	return s.fn(v), true, err
}

func (s *mappedStream[T, U]) ReadBatch(dst []U) (int, error) {
	if cap(s.scratch) < len(dst) {
		s.scratch = make([]T, len(dst))
	}
	buf := s.scratch[:len(dst)]
	n, err := s.src.ReadBatch(buf)
	for i, v := range buf[:n] {
		dst[i] = s.fn(v)
	}
	return n, err
}

// MapFrames groups d into consecutive frames of c items and projects each
// frame through fn, for example mixing interleaved stereo down to mono. The
// slice passed to fn is reused between calls.
func MapFrames[T, U any](d Data[T], c int, fn func(frame []T) U) Data[U] {
	if c <= 0 {
		panic("stream: frame size must be positive")
	}
	return &framed[T, U]{src: d, c: c, fn: fn}
}

type framed[T, U any] struct {
	src Data[T]
	c   int
	fn  func([]T) U
}

func (f *framed[T, U]) Size() int {
	return f.src.Size() / f.c
}

func (f *framed[T, U]) Read(index, sizeHint int) (Stream[U], error) {
	if err := checkIndex(index, f.Size()); err != nil {
		return nil, err
	}
	s, err := f.src.Read(index*f.c, sizeHint*f.c)
	if err != nil {
		return nil, err
	}
	return &framedStream[T, U]{
		cur:   newCursor(s, sizeHint*f.c),
		fn:    f.fn,
		frame: make([]T, f.c),
	}, nil
}

type framedStream[T, U any] struct {
	cur   *cursor[T]
	fn    func([]T) U
	frame []T
	fill  int // items of the current frame already read
}

func (s *framedStream[T, U]) Read() (U, bool, error) {
	for s.fill < len(s.frame) {
		v, ok, err := s.cur.next()
		if !ok {
			var zero U
			return zero, false, err
		}
		s.frame[s.fill] = v
		s.fill++
	}
	s.fill = 0
	return s.fn(s.frame), true, nil
}

func (s *framedStream[T, U]) ReadBatch(dst []U) (int, error) {
	for i := range dst {
		v, ok, err := s.Read()
		if !ok {
			return i, err
		}
		dst[i] = v
	}
	return len(dst), nil
}

// SPDX-License-Identifier: MIT
package stream

import "fmt"

// Split de-interleaves d into c stores, one per position in each c-item
// compound (for stereo, c = 2 yields left and right). Splitting the result
// of Combine returns the original parts rather than new wrappers.
func Split[T any](d Data[T], c int) []Data[T] {
	if c <= 0 {
		panic(fmt.Sprintf("stream: split into %d parts", c))
	}
	if cd, ok := d.(*combined[T]); ok && len(cd.parts) == c {
		parts := make([]Data[T], c)
		copy(parts, cd.parts)
		return parts
	}

	parts := make([]Data[T], c)
	for i := range parts {
		parts[i] = &channel[T]{parent: d, c: c, index: i}
	}
	return parts
}

// Combine interleaves parts into one store of len(parts)-item compounds.
// Combining the complete, ordered result of Split returns the original
// store.
func Combine[T any](parts []Data[T]) Data[T] {
	if len(parts) == 0 {
		panic("stream: combine of zero parts")
	}
	if parent, ok := splitParent(parts); ok {
		return parent
	}
	owned := make([]Data[T], len(parts))
	copy(owned, parts)
	return &combined[T]{parts: owned}
}

// splitParent reports whether parts is exactly the ordered output of one
// Split call.
func splitParent[T any](parts []Data[T]) (Data[T], bool) {
	first, ok := parts[0].(*channel[T])
	if !ok || first.c != len(parts) {
		return nil, false
	}
	for i, p := range parts {
		ch, ok := p.(*channel[T])
		if !ok || ch.parent != first.parent || ch.c != first.c || ch.index != i {
			return nil, false
		}
	}
	return first.parent, true
}

// channel is one de-interleaved position of a parent store.
type channel[T any] struct {
	parent Data[T]
	c      int
	index  int
}

func (ch *channel[T]) Size() int {
	return ch.parent.Size() / ch.c
}

func (ch *channel[T]) Read(index, sizeHint int) (Stream[T], error) {
	if err := checkIndex(index, ch.Size()); err != nil {
		return nil, err
	}
	s, err := ch.parent.Read(index*ch.c, sizeHint*ch.c)
	if err != nil {
		return nil, err
	}
	return &channelStream[T]{cur: newCursor(s, sizeHint*ch.c), c: ch.c, index: ch.index}, nil
}

type channelStream[T any] struct {
	cur   *cursor[T]
	c     int
	index int
	phase int // compound position of the next parent item
}

func (s *channelStream[T]) Read() (T, bool, error) {
	for s.phase != s.index {
		if _, ok, err := s.cur.next(); !ok {
			var zero T
			return zero, false, err
		}
		s.phase = (s.phase + 1) % s.c
	}
	v, ok, err := s.cur.next()
	if !ok {
		return v, false, err
	}
	s.phase = (s.phase + 1) % s.c
	return v, true, nil
}

func (s *channelStream[T]) ReadBatch(dst []T) (int, error) {
	for i := range dst {
		v, ok, err := s.Read()
		if !ok {
			return i, err
		}
		dst[i] = v
	}
	return len(dst), nil
}

// combined interleaves several stores item by item.
type combined[T any] struct {
	parts []Data[T]
}

func (cd *combined[T]) Size() int {
	size := cd.parts[0].Size()
	for _, p := range cd.parts[1:] {
		size = min(size, p.Size())
	}
	return size * len(cd.parts)
}

func (cd *combined[T]) Read(index, sizeHint int) (Stream[T], error) {
	if err := checkIndex(index, cd.Size()); err != nil {
		return nil, err
	}
	c := len(cd.parts)
	frame, offset := index/c, index%c
	perPart := sizeHint/c + 1

	cursors := make([]*cursor[T], c)
	for i, p := range cd.parts {
		start := frame
		if i < offset {
			// Items before the offset belong to the skipped partial frame.
			start++
		}
		s, err := p.Read(start, perPart)
		if err != nil {
			return nil, err
		}
		cursors[i] = newCursor(s, perPart)
	}
	return &combinedStream[T]{parts: cursors, next: offset}, nil
}

type combinedStream[T any] struct {
	parts []*cursor[T]
	next  int
	// whole is set once every part still owed to the current compound has
	// an item buffered, so a compound is emitted completely or not at all.
	whole bool
}

func (s *combinedStream[T]) Read() (T, bool, error) {
	if !s.whole {
		for _, p := range s.parts[s.next:] {
			if ok, err := p.ready(); !ok {
				var zero T
				return zero, false, err
			}
		}
		s.whole = true
	}
	v, ok, err := s.parts[s.next].next()
	if !ok {
		return v, false, err
	}
	s.next = (s.next + 1) % len(s.parts)
	if s.next == 0 {
		s.whole = false
	}
	return v, true, nil
}

func (s *combinedStream[T]) ReadBatch(dst []T) (int, error) {
	for i := range dst {
		v, ok, err := s.Read()
		if !ok {
			return i, err
		}
		dst[i] = v
	}
	return len(dst), nil
}

// SPDX-License-Identifier: MIT
package stream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func sequence(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func TestMemoryReadBatch(t *testing.T) {
	m := FromSlice(sequence(10))

	s, err := m.Read(3, 4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	// The hint does not cap the stream.
	buf := make([]float64, 20)
	n, err := s.ReadBatch(buf)
	if err != nil {
		t.Fatalf("ReadBatch: %v", err)
	}
	if n != 7 {
		t.Fatalf("ReadBatch count = %d, want 7", n)
	}
	if !slices.Equal(buf[:n], sequence(10)[3:]) {
		t.Errorf("ReadBatch items = %v", buf[:n])
	}

	if _, ok, err := s.Read(); ok || err != nil {
		t.Errorf("Read after end = (ok=%v, err=%v), want exhausted", ok, err)
	}
}

func TestMemoryGrowthResumesStream(t *testing.T) {
	m := NewMemory[int16](4)
	m.Append(1, 2)

	s, err := m.Read(0, 8)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	buf := make([]int16, 4)
	if n, _ := s.ReadBatch(buf); n != 2 {
		t.Fatalf("first batch = %d, want 2 (transient exhaustion)", n)
	}

	m.Append(3, 4, 5)
	n, _ := s.ReadBatch(buf)
	if n != 3 || !slices.Equal(buf[:n], []int16{3, 4, 5}) {
		t.Errorf("second batch = %v, want [3 4 5]", buf[:n])
	}
}

func TestReadOutOfRange(t *testing.T) {
	m := FromSlice(sequence(5))

	tests := []struct {
		index   int
		wantErr bool
	}{
		{-1, true},
		{0, false},
		{5, false}, // End of data yields an exhausted stream.
		{6, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.index), func(t *testing.T) {
			_, err := m.Read(tt.index, 1)
			if tt.wantErr != (err != nil) {
				t.Fatalf("Read(%d) err = %v, wantErr %v", tt.index, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrOutOfRange) {
				t.Errorf("Read(%d) err = %v, want ErrOutOfRange", tt.index, err)
			}
		})
	}
}

func TestFileStore(t *testing.T) {
	want := []float32{0.5, -0.25, 1, 3.75, -8, 16}
	var raw bytes.Buffer
	if err := binary.Write(&raw, binary.LittleEndian, want); err != nil {
		t.Fatal(err)
	}
	raw.WriteByte(0xff) // Trailing partial item is ignored.

	path := filepath.Join(t.TempDir(), "samples.f32")
	if err := os.WriteFile(path, raw.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := OpenFile[float32](path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	if f.Size() != len(want) {
		t.Fatalf("Size = %d, want %d", f.Size(), len(want))
	}

	// A hint of 1 forces one item per ReadAt call.
	s, err := f.Read(2, 1)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got := make([]float32, 10)
	n, err := s.ReadBatch(got)
	if err != nil {
		t.Fatalf("ReadBatch: %v", err)
	}
	if !slices.Equal(got[:n], want[2:]) {
		t.Errorf("ReadBatch = %v, want %v", got[:n], want[2:])
	}
}

type failingReaderAt struct{}

func (failingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestFileStoreIOFailure(t *testing.T) {
	f := NewFile[int32](failingReaderAt{}, 64)
	s, err := f.Read(0, 16)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	_, err = s.ReadBatch(make([]int32, 4))
	if !errors.Is(err, ErrIOFailure) {
		t.Errorf("ReadBatch err = %v, want ErrIOFailure", err)
	}

	_, ok, err := s.Read()
	if ok || !errors.Is(err, ErrIOFailure) {
		t.Errorf("Read = (ok=%v, err=%v), want ErrIOFailure", ok, err)
	}
}

func TestMapIsLazy(t *testing.T) {
	calls := 0
	m := Map(Data[int16](FromSlice([]int16{1, -2, 3})), func(v int16) float64 {
		calls++
		return float64(v) / 2
	})

	if m.Size() != 3 {
		t.Fatalf("Size = %d, want 3", m.Size())
	}
	if calls != 0 {
		t.Fatalf("projection ran %d times before any read", calls)
	}

	got, err := Collect(m)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []float64{0.5, -1, 1.5}) {
		t.Errorf("Collect = %v", got)
	}
}

func TestMapFramesMixdown(t *testing.T) {
	stereo := FromSlice([]float64{1, 3, 2, 4, -1, 1, 7})
	mono := MapFrames(Data[float64](stereo), 2, func(f []float64) float64 {
		return (f[0] + f[1]) / 2
	})

	if mono.Size() != 3 {
		t.Fatalf("Size = %d, want 3", mono.Size())
	}
	got, err := Collect(mono)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got, []float64{2, 3, 0}) {
		t.Errorf("mixdown = %v, want [2 3 0]", got)
	}
}

func TestSplitCombineIdentity(t *testing.T) {
	for _, c := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprintf("C=%d", c), func(t *testing.T) {
			original := Data[float64](FromSlice(sequence(c * 7)))

			parts := Split(original, c)
			if got := Combine(parts); got != original {
				t.Errorf("Combine(Split(d)) returned a new wrapper")
			}

			mono := make([]Data[float64], c)
			for i := range mono {
				mono[i] = FromSlice(sequence(4))
			}
			again := Split(Combine(mono), c)
			for i := range mono {
				if again[i] != mono[i] {
					t.Errorf("Split(Combine(p))[%d] is not the original part", i)
				}
			}
		})
	}
}

func TestSplitValues(t *testing.T) {
	interleaved := Data[float64](FromSlice([]float64{0, 10, 1, 11, 2, 12, 3, 13}))
	parts := Split(interleaved, 2)

	left, err := Collect(parts[0])
	if err != nil {
		t.Fatal(err)
	}
	right, err := Collect(parts[1])
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(left, []float64{0, 1, 2, 3}) {
		t.Errorf("left = %v", left)
	}
	if !slices.Equal(right, []float64{10, 11, 12, 13}) {
		t.Errorf("right = %v", right)
	}

	s, err := parts[1].Read(2, 1)
	if err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.Read()
	if !ok || err != nil || v != 12 {
		t.Errorf("right[2] = (%v, %v, %v), want 12", v, ok, err)
	}
}

func TestCombineValues(t *testing.T) {
	a := Data[int32](FromSlice([]int32{1, 2, 3}))
	b := Data[int32](FromSlice([]int32{10, 20, 30, 40}))
	joined := Combine([]Data[int32]{a, b})

	if joined.Size() != 6 {
		t.Fatalf("Size = %d, want 6 (shortest part wins)", joined.Size())
	}

	s, err := joined.Read(3, 8)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]int32, 8)
	n, err := s.ReadBatch(got)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(got[:n], []int32{20, 3, 30}) {
		t.Errorf("ReadBatch from 3 = %v, want [20 3 30]", got[:n])
	}
}

func TestCombineStopsAtShortestPart(t *testing.T) {
	tests := []struct {
		name  string
		index int
		want  []int32
	}{
		{"from start", 0, []int32{1, 10, 2, 20}},
		{"mid compound", 1, []int32{10, 2, 20}},
		{"at end", 4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			long := NewMemory[int32](3)
			long.Append(1, 2, 3)
			short := NewMemory[int32](3)
			short.Append(10, 20)
			joined := Combine([]Data[int32]{long, short})
			if joined.Size() != 4 {
				t.Fatalf("Size = %d, want 4", joined.Size())
			}

			s, err := joined.Read(tt.index, 8)
			if err != nil {
				t.Fatal(err)
			}
			got := make([]int32, 8)
			n, err := s.ReadBatch(got)
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(got[:n], tt.want) {
				t.Errorf("ReadBatch = %v, want %v", got[:n], tt.want)
			}

			// The held-back item follows once its compound is complete.
			short.Append(30)
			n, _ = s.ReadBatch(got)
			if !slices.Equal(got[:n], []int32{3, 30}) {
				t.Errorf("after growth = %v, want [3 30]", got[:n])
			}
		})
	}
}

func TestMemoryFailure(t *testing.T) {
	decodeErr := errors.New("unexpected EOF")
	m := NewMemory[float64](8)
	m.Append(1, 2, 3)

	s, err := m.Read(1, 8)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]float64, 8)
	if n, err := s.ReadBatch(buf); n != 2 || err != nil {
		t.Fatalf("before Fail = (%d, %v), want (2, nil)", n, err)
	}

	m.Fail(decodeErr)
	m.Fail(errors.New("later"))
	if !errors.Is(m.Err(), ErrIOFailure) || !errors.Is(m.Err(), decodeErr) {
		t.Errorf("Err = %v, want the first failure as ErrIOFailure", m.Err())
	}

	if _, ok, err := s.Read(); ok || !errors.Is(err, ErrIOFailure) {
		t.Errorf("Read at end = (ok=%v, err=%v), want ErrIOFailure", ok, err)
	}

	// Items stored before the failure stay readable; the error comes with
	// the short count.
	s, err = m.Read(0, 8)
	if err != nil {
		t.Fatal(err)
	}
	n, err := s.ReadBatch(buf)
	if n != 3 || !errors.Is(err, ErrIOFailure) {
		t.Errorf("ReadBatch = (%d, %v), want (3, ErrIOFailure)", n, err)
	}
	s, _ = m.Read(0, 2)
	if n, err := s.ReadBatch(buf[:2]); n != 2 || err != nil {
		t.Errorf("full batch inside range = (%d, %v), want (2, nil)", n, err)
	}

	// Projections surface the failure too.
	s, err = Split[float64](m, 1)[0].Read(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	if n, err := s.ReadBatch(buf[:4]); n != 3 || !errors.Is(err, ErrIOFailure) {
		t.Errorf("split ReadBatch = (%d, %v), want (3, ErrIOFailure)", n, err)
	}
}

func TestReadRaw(t *testing.T) {
	values := []float32{1.5, -2, 3.25, 0}
	var want bytes.Buffer
	if err := binary.Write(&want, binary.LittleEndian, values); err != nil {
		t.Fatal(err)
	}

	t.Run("direct", func(t *testing.T) {
		s, err := FromSlice(values).Read(0, 4)
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := s.(RawReader); !ok {
			t.Fatal("memory stream should offer the direct raw path")
		}
		dst := make([]byte, 64)
		n, err := ReadRaw(s, dst)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(dst[:n], want.Bytes()) {
			t.Errorf("ReadRaw = %x, want %x", dst[:n], want.Bytes())
		}
	})

	t.Run("scratch", func(t *testing.T) {
		projected := Map(Data[float32](FromSlice(values)), func(v float32) float32 { return v })
		s, err := projected.Read(0, 4)
		if err != nil {
			t.Fatal(err)
		}
		// Room for three items plus a partial fourth.
		dst := make([]byte, 14)
		n, err := ReadRaw(s, dst)
		if err != nil {
			t.Fatal(err)
		}
		if n != 12 || !bytes.Equal(dst[:n], want.Bytes()[:12]) {
			t.Errorf("ReadRaw = %x (n=%d), want %x", dst[:n], n, want.Bytes()[:12])
		}
	})
}

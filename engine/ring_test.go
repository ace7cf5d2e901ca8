package engine

import "testing"

func TestRingBufferReadMostRecent(t *testing.T) {
	r := NewRingBuffer(8)
	r.Write([]float32{1, 2, 3, 4, 5})

	dst := make([]float32, 3)
	r.ReadMostRecent(dst)
	want := []float32{3, 4, 5}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestRingBufferWrap(t *testing.T) {
	r := NewRingBuffer(4)
	r.Write([]float32{1, 2, 3})
	r.Write([]float32{4, 5, 6})

	dst := make([]float32, 4)
	r.ReadMostRecent(dst)
	want := []float32{3, 4, 5, 6}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestRingBufferOversizedWriteKeepsTail(t *testing.T) {
	r := NewRingBuffer(4)
	r.Write([]float32{1, 2, 3, 4, 5, 6, 7})

	dst := make([]float32, 4)
	r.ReadMostRecent(dst)
	want := []float32{4, 5, 6, 7}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestRingBufferReadFromPast(t *testing.T) {
	r := NewRingBuffer(16)
	r.Write([]float32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})

	// A window of 3 ending 5 samples ago: samples 5, 6, 7.
	dst := make([]float32, 3)
	r.ReadFromPast(dst, 5)
	want := []float32{5, 6, 7}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestRingBufferReadBeyondHistoryZeroFills(t *testing.T) {
	r := NewRingBuffer(16)
	r.Write([]float32{7, 8, 9})

	dst := make([]float32, 5)
	r.ReadMostRecent(dst)
	want := []float32{0, 0, 7, 8, 9}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestRingBufferAvailable(t *testing.T) {
	r := NewRingBuffer(8)
	if got := r.Available(); got != 0 {
		t.Fatalf("Available = %d, want 0", got)
	}
	r.Write([]float32{1, 2, 3})
	if got := r.Available(); got != 3 {
		t.Fatalf("Available = %d, want 3", got)
	}
	r.Write(make([]float32, 20))
	if got := r.Available(); got != 8 {
		t.Fatalf("Available = %d, want 8 after overflow", got)
	}
}

func TestRingBufferWriteSample(t *testing.T) {
	r := NewRingBuffer(4)
	for i := 0; i < 6; i++ {
		r.WriteSample(float32(i))
	}
	dst := make([]float32, 4)
	r.ReadMostRecent(dst)
	want := []float32{2, 3, 4, 5}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
	if got := r.TotalWritten(); got != 6 {
		t.Fatalf("TotalWritten = %d, want 6", got)
	}
}

func TestRingBufferClear(t *testing.T) {
	r := NewRingBuffer(4)
	r.Write([]float32{1, 2, 3, 4})
	r.Clear()
	if got := r.Available(); got != 0 {
		t.Fatalf("Available after Clear = %d, want 0", got)
	}
}

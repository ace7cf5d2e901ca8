package engine

// RingBuffer is a fixed-capacity circular buffer of mono float32
// samples. It continuously overwrites the oldest data, so the most
// recent Capacity() samples are always readable.
type RingBuffer struct {
	buf          []float32
	writePos     int64
	totalWritten int64
}

// NewRingBuffer creates a ring buffer holding capacity samples.
func NewRingBuffer(capacity int64) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{buf: make([]float32, capacity)}
}

// Write appends samples, overwriting the oldest data on wrap.
func (r *RingBuffer) Write(data []float32) {
	n := int64(len(data))
	if n == 0 {
		return
	}
	cap := int64(len(r.buf))

	if n >= cap {
		// Writing more than the buffer holds: keep only the tail.
		copy(r.buf, data[n-cap:])
		r.writePos = 0
	} else {
		spaceToEnd := cap - r.writePos
		if n <= spaceToEnd {
			copy(r.buf[r.writePos:], data)
		} else {
			copy(r.buf[r.writePos:], data[:spaceToEnd])
			copy(r.buf, data[spaceToEnd:])
		}
		r.writePos = (r.writePos + n) % cap
	}
	r.totalWritten += n
}

// WriteSample appends a single sample.
func (r *RingBuffer) WriteSample(s float32) {
	r.buf[r.writePos] = s
	r.writePos = (r.writePos + 1) % int64(len(r.buf))
	r.totalWritten++
}

// ReadMostRecent fills dst with the len(dst) most recently written
// samples. Anything beyond what is available is zero-filled.
func (r *RingBuffer) ReadMostRecent(dst []float32) {
	r.ReadFromPast(dst, int64(len(dst)))
}

// ReadFromPast fills dst with samples starting samplesAgo samples
// before the write head. samplesAgo == len(dst) reads the most recent
// window; larger values read further into the past. Requests beyond
// the available history are zero-filled at the front.
func (r *RingBuffer) ReadFromPast(dst []float32, samplesAgo int64) {
	n := int64(len(dst))
	if n == 0 {
		return
	}
	cap := int64(len(r.buf))
	avail := r.Available()

	if samplesAgo > avail {
		samplesAgo = avail
	}
	if n > samplesAgo {
		zero := n - samplesAgo
		for i := int64(0); i < zero; i++ {
			dst[i] = 0
		}
		dst = dst[zero:]
		n = samplesAgo
	}
	if n == 0 {
		return
	}

	readStart := (r.writePos - samplesAgo + cap*2) % cap
	spaceToEnd := cap - readStart
	if n <= spaceToEnd {
		copy(dst, r.buf[readStart:readStart+n])
	} else {
		copy(dst, r.buf[readStart:])
		copy(dst[spaceToEnd:], r.buf[:n-spaceToEnd])
	}
}

// TotalWritten returns the total samples written since creation/clear.
func (r *RingBuffer) TotalWritten() int64 { return r.totalWritten }

// Capacity returns the buffer capacity in samples.
func (r *RingBuffer) Capacity() int64 { return int64(len(r.buf)) }

// Available returns how many valid samples can be read back.
func (r *RingBuffer) Available() int64 {
	if r.totalWritten < int64(len(r.buf)) {
		return r.totalWritten
	}
	return int64(len(r.buf))
}

// Clear zeroes the buffer and resets the write position.
func (r *RingBuffer) Clear() {
	for i := range r.buf {
		r.buf[i] = 0
	}
	r.writePos = 0
	r.totalWritten = 0
}

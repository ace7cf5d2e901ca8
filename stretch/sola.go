// Package stretch implements a pitch-preserving time stretcher using
// synchronized overlap-add (SOLA): output is assembled from short
// input grains whose join points are picked by a cross-correlation
// search, so consecutive grains line up in phase instead of producing
// the robotic warble of naive overlap-add.
package stretch

// Grain geometry at 48kHz: ~5ms grains with a quarter-grain overlap.
// The sizes scale with sample rate so the grain duration stays
// constant.
const (
	baseFrameSize   = 256
	baseSearchRange = 64
	baseSampleRate  = 48000
)

// Sola stretches audio by the ratio implied by each Process call:
// len(input)/len(output) raw samples consumed per output sample. It
// carries an overlap tail between calls so grain joins are seamless
// across block boundaries. Not safe for concurrent use.
type Sola struct {
	frameSize   int
	searchRange int

	scratch []float32 // one grain, reused every frame
	tail    []float32 // carried overlap from the previous grain
	tailLen int
	primed  bool
}

// New creates a stretcher with default grain geometry. Call Configure
// before the first Process.
func New() *Sola {
	s := &Sola{}
	s.Configure(baseSampleRate)
	return s
}

// Configure sets the grain sizes for the given sample rate and resets
// all carried state.
func (s *Sola) Configure(sampleRate float64) {
	scale := sampleRate / baseSampleRate
	if scale <= 0 {
		scale = 1
	}
	s.frameSize = int(baseFrameSize * scale)
	if s.frameSize < 32 {
		s.frameSize = 32
	}
	s.searchRange = int(baseSearchRange * scale)

	s.scratch = make([]float32, s.frameSize)
	s.tail = make([]float32, s.frameSize)
	s.Reset()
}

// Reset discards carried state, for use after a position jump.
func (s *Sola) Reset() {
	s.primed = false
	s.tailLen = 0
	for i := range s.tail {
		s.tail[i] = 0
	}
}

// Process fills output from input. The stretch ratio is implicit:
// len(input) raw samples become len(output) stretched samples. Both
// slices must be non-empty; input shorter than a grain degrades to
// smaller grains rather than failing.
func (s *Sola) Process(input, output []float32) {
	if len(input) == 0 || len(output) == 0 {
		return
	}

	// Degenerate short input: grain geometry shrinks to fit.
	frame := s.frameSize
	if frame > len(input) {
		frame = len(input)
	}
	overlap := frame / 4
	hop := frame - overlap
	ratio := float64(len(input)) / float64(len(output))

	outPos := 0
	for outPos < len(output) {
		nominal := int(float64(outPos) * ratio)
		start := s.bestStart(input, nominal, frame, overlap)

		grain := s.scratch[:frame]
		copy(grain, input[start:start+frame])

		// Linear crossfade against the carried tail. Linear keeps
		// coherent signals at unity gain through the join.
		fadeLen := overlap
		if fadeLen > s.tailLen {
			fadeLen = s.tailLen
		}
		if s.primed {
			for i := 0; i < fadeLen; i++ {
				t := float32(i+1) / float32(fadeLen+1)
				grain[i] = s.tail[i]*(1-t) + grain[i]*t
			}
		}

		n := copy(output[outPos:], grain[:hop])
		outPos += n

		s.tailLen = copy(s.tail, grain[hop:])
		s.primed = true
	}
}

// bestStart searches around the nominal grain position for the start
// whose first overlap samples best correlate with the carried tail.
func (s *Sola) bestStart(input []float32, nominal, frame, overlap int) int {
	maxStart := len(input) - frame
	clamp := func(v int) int {
		if v < 0 {
			return 0
		}
		if v > maxStart {
			return maxStart
		}
		return v
	}

	nominal = clamp(nominal)
	if !s.primed || overlap == 0 || s.tailLen == 0 {
		return nominal
	}

	lo := clamp(nominal - s.searchRange)
	hi := clamp(nominal + s.searchRange)

	cmpLen := overlap
	if cmpLen > s.tailLen {
		cmpLen = s.tailLen
	}

	best := nominal
	bestScore := corr(s.tail[:cmpLen], input[nominal:nominal+cmpLen])
	for start := lo; start <= hi; start++ {
		if start == nominal {
			continue
		}
		if score := corr(s.tail[:cmpLen], input[start:start+cmpLen]); score > bestScore {
			bestScore = score
			best = start
		}
	}
	return best
}

// corr is an unnormalized cross-correlation. Comparing candidates at
// equal length makes normalization unnecessary.
func corr(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

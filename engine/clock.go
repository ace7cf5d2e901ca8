package engine

import "math"

// Quantize selects the boundary an operation snaps to.
// The integer values are part of the OSC protocol, don't reorder.
type Quantize int

const (
	QuantizeFree Quantize = 0 // execute immediately
	QuantizeBeat Quantize = 1 // snap to next beat boundary
	QuantizeBar  Quantize = 2 // snap to next bar boundary
)

func (q Quantize) String() string {
	switch q {
	case QuantizeFree:
		return "free"
	case QuantizeBeat:
		return "beat"
	case QuantizeBar:
		return "bar"
	}
	return "unknown"
}

// ClockPosition is a point on the clock's musical timeline.
type ClockPosition struct {
	TotalSamples int64
	Bar          int     // 0-indexed
	Beat         int     // 0-indexed within the bar
	BeatFraction float64 // [0, 1)
}

// Clock tracks bar/beat position sample by sample. It is advanced only
// from the audio thread; beat and bar callbacks fire synchronously
// during Advance at the exact boundary sample.
type Clock struct {
	bpm         float64
	beatsPerBar int
	sampleRate  float64
	running     bool

	samplesPerBeat float64

	totalSamples int64
	bar          int
	beat         int
	sampleInBeat float64

	onBeat func(ClockPosition)
	onBar  func(ClockPosition)
}

// NewClock creates a clock at the given tempo and time signature.
func NewClock(bpm float64, beatsPerBar int, sampleRate float64) *Clock {
	c := &Clock{
		bpm:         clampFloat(bpm, 1, 999),
		beatsPerBar: clampInt(beatsPerBar, 1, 16),
		sampleRate:  sampleRate,
		running:     true,
	}
	c.recalculate()
	return c
}

func (c *Clock) recalculate() {
	c.samplesPerBeat = (60.0 / c.bpm) * c.sampleRate
}

// Advance moves the clock forward by n samples, firing beat/bar
// callbacks on every boundary crossed.
func (c *Clock) Advance(n int) {
	if !c.running || n <= 0 {
		return
	}
	for i := 0; i < n; i++ {
		c.totalSamples++
		c.sampleInBeat++
		if c.sampleInBeat >= c.samplesPerBeat {
			c.sampleInBeat -= c.samplesPerBeat
			c.beat++
			if c.beat >= c.beatsPerBar {
				c.beat = 0
				c.bar++
			}
			pos := c.Position()
			if c.onBeat != nil {
				c.onBeat(pos)
			}
			if c.beat == 0 && c.onBar != nil {
				c.onBar(pos)
			}
		}
	}
}

// Reset rewinds the clock to bar 0, beat 0.
func (c *Clock) Reset() {
	c.totalSamples = 0
	c.bar = 0
	c.beat = 0
	c.sampleInBeat = 0
}

// Position returns the current timeline position.
func (c *Clock) Position() ClockPosition {
	return ClockPosition{
		TotalSamples: c.totalSamples,
		Bar:          c.bar,
		Beat:         c.beat,
		BeatFraction: c.sampleInBeat / c.samplesPerBeat,
	}
}

// SamplesUntilBoundary returns the exact sample count to the next
// boundary of the given kind, strictly after the current sample.
// Free returns 0.
func (c *Clock) SamplesUntilBoundary(q Quantize) int64 {
	switch q {
	case QuantizeBeat:
		return int64(math.Ceil(c.samplesPerBeat - c.sampleInBeat))
	case QuantizeBar:
		remaining := c.samplesPerBeat - c.sampleInBeat
		remaining += float64(c.beatsPerBar-1-c.beat) * c.samplesPerBeat
		return int64(math.Ceil(remaining))
	}
	return 0
}

// SamplesPerBeat returns the beat length in samples at the current tempo.
func (c *Clock) SamplesPerBeat() float64 { return c.samplesPerBeat }

// SamplesPerBar returns the bar length in samples at the current tempo.
func (c *Clock) SamplesPerBar() float64 {
	return c.samplesPerBeat * float64(c.beatsPerBar)
}

// SetBPM changes the tempo, clamped to [1, 999]. The fractional
// position within the current beat is preserved so playback phase is
// continuous across the change.
func (c *Clock) SetBPM(bpm float64) {
	fraction := 0.0
	if c.samplesPerBeat > 0 {
		fraction = c.sampleInBeat / c.samplesPerBeat
	}
	c.bpm = clampFloat(bpm, 1, 999)
	c.recalculate()
	c.sampleInBeat = fraction * c.samplesPerBeat
}

// SetBeatsPerBar changes the time signature, clamped to [1, 16].
func (c *Clock) SetBeatsPerBar(beats int) {
	c.beatsPerBar = clampInt(beats, 1, 16)
	if c.beat >= c.beatsPerBar {
		c.beat = c.beat % c.beatsPerBar
	}
}

// SetSampleRate changes the sample rate, preserving phase the same way
// SetBPM does.
func (c *Clock) SetSampleRate(rate float64) {
	fraction := 0.0
	if c.samplesPerBeat > 0 {
		fraction = c.sampleInBeat / c.samplesPerBeat
	}
	c.sampleRate = rate
	c.recalculate()
	c.sampleInBeat = fraction * c.samplesPerBeat
}

func (c *Clock) BPM() float64      { return c.bpm }
func (c *Clock) BeatsPerBar() int  { return c.beatsPerBar }
func (c *Clock) SampleRate() float64 { return c.sampleRate }

func (c *Clock) IsRunning() bool      { return c.running }
func (c *Clock) SetRunning(run bool)  { c.running = run }

// OnBeat registers the beat-boundary callback. The engine wires this
// once at construction; it is never re-registered afterwards.
func (c *Clock) OnBeat(cb func(ClockPosition)) { c.onBeat = cb }

// OnBar registers the bar-boundary callback.
func (c *Clock) OnBar(cb func(ClockPosition)) { c.onBar = cb }

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

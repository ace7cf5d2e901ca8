package engine

import (
	"math"
	"sync/atomic"
)

// Click durations: ~30ms with a fast exponential decay.
const (
	clickDuration = 0.03
	clickDecayTau = 0.006
)

// Click synthesizes the metronome's short decaying-sine click.
// Downbeats get a higher pitch and a little more gain. Trigger and
// NextSample run on the audio thread; enable and volume may be set
// from the control thread.
type Click struct {
	sampleRate float64

	enabled atomic.Bool
	volume  atomicFloat32

	active      bool
	phase       float64
	freq        float64
	clickGain   float32
	sampleIndex int
}

// NewClick creates a click generator for the given sample rate.
func NewClick(sampleRate float64) *Click {
	c := &Click{sampleRate: sampleRate}
	c.enabled.Store(true)
	c.volume.Store(0.5)
	return c
}

// Trigger starts a click at the next sample; no-op while disabled.
func (c *Click) Trigger(downbeat bool) {
	if !c.enabled.Load() {
		return
	}
	c.phase = 0
	c.sampleIndex = 0
	c.active = true
	if downbeat {
		c.freq = 1000.0
		c.clickGain = 1.0
	} else {
		c.freq = 800.0
		c.clickGain = 0.75
	}
}

// NextSample returns the next click sample, 0 when inactive.
func (c *Click) NextSample() float32 {
	if !c.active {
		return 0
	}

	t := float64(c.sampleIndex) / c.sampleRate
	if t >= clickDuration {
		c.active = false
		return 0
	}

	envelope := float32(math.Exp(-t / clickDecayTau))
	sample := float32(math.Sin(c.phase)) * envelope
	c.phase += 2 * math.Pi * c.freq / c.sampleRate
	c.sampleIndex++

	return sample * c.volume.Load() * c.clickGain
}

// SetEnabled turns the click on or off.
func (c *Click) SetEnabled(on bool) { c.enabled.Store(on) }

// IsEnabled reports whether the click is audible.
func (c *Click) IsEnabled() bool { return c.enabled.Load() }

// SetVolume sets the click level [0, 1].
func (c *Click) SetVolume(v float32) { c.volume.Store(v) }

// Volume returns the click level.
func (c *Click) Volume() float32 { return c.volume.Load() }

// atomicFloat32 is a float32 published through atomic bit operations,
// used for the handful of scalars set by the control thread and read
// per-sample on the audio thread.
type atomicFloat32 struct {
	bits atomic.Uint32
}

func (a *atomicFloat32) Store(v float32) { a.bits.Store(math.Float32bits(v)) }
func (a *atomicFloat32) Load() float32   { return math.Float32frombits(a.bits.Load()) }

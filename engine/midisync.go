package engine

import "sync/atomic"

// MIDI system realtime status bytes.
const (
	MidiClockTick byte = 0xF8
	MidiStart     byte = 0xFA
	MidiContinue  byte = 0xFB
	MidiStop      byte = 0xFC
)

// MidiPPQN is the MIDI clock resolution in pulses per quarter note.
const MidiPPQN = 24

// MidiSync generates a 24 PPQN MIDI clock in step with the engine
// clock. Raw status bytes go out through a send callback so the core
// stays independent of any MIDI framework. Advance and SetEnabled run
// on the audio thread; the enabled flag is atomic so the control
// thread can read it.
type MidiSync struct {
	bpm        float64
	sampleRate float64

	samplesPerTick float64
	sampleInTick   float64
	enabled        atomic.Bool

	send func(byte)
}

// NewMidiSync creates a tick generator at the given tempo.
func NewMidiSync(bpm, sampleRate float64) *MidiSync {
	m := &MidiSync{bpm: bpm, sampleRate: sampleRate}
	m.recalculate()
	return m
}

func (m *MidiSync) recalculate() {
	samplesPerBeat := (60.0 / m.bpm) * m.sampleRate
	m.samplesPerTick = samplesPerBeat / MidiPPQN
}

// Advance moves the generator forward, emitting clock ticks as tick
// boundaries are crossed.
func (m *MidiSync) Advance(n int) {
	if !m.enabled.Load() || n <= 0 {
		return
	}
	for i := 0; i < n; i++ {
		m.sampleInTick++
		if m.sampleInTick >= m.samplesPerTick {
			m.sampleInTick -= m.samplesPerTick
			m.sendByte(MidiClockTick)
		}
	}
}

// SetBPM changes the tick rate, preserving the fractional tick phase.
func (m *MidiSync) SetBPM(bpm float64) {
	fraction := 0.0
	if m.samplesPerTick > 0 {
		fraction = m.sampleInTick / m.samplesPerTick
	}
	m.bpm = clampFloat(bpm, 1, 999)
	m.recalculate()
	m.sampleInTick = fraction * m.samplesPerTick
}

// SetSampleRate changes the sample rate, preserving tick phase.
func (m *MidiSync) SetSampleRate(rate float64) {
	fraction := 0.0
	if m.samplesPerTick > 0 {
		fraction = m.sampleInTick / m.samplesPerTick
	}
	m.sampleRate = rate
	m.recalculate()
	m.sampleInTick = fraction * m.samplesPerTick
}

// SetEnabled starts or stops sync output, sending the MIDI Start or
// Stop byte on the transition.
func (m *MidiSync) SetEnabled(on bool) {
	if !m.enabled.CompareAndSwap(!on, on) {
		return
	}
	if on {
		m.sampleInTick = 0
		m.sendByte(MidiStart)
	} else {
		m.sendByte(MidiStop)
	}
}

// IsEnabled reports whether sync output is active.
func (m *MidiSync) IsEnabled() bool { return m.enabled.Load() }

// SetSendFunc wires the raw-byte sink (a MIDI output device).
func (m *MidiSync) SetSendFunc(send func(byte)) { m.send = send }

// HasOutput reports whether a send sink is wired.
func (m *MidiSync) HasOutput() bool { return m.send != nil }

func (m *MidiSync) sendByte(b byte) {
	if m.send != nil {
		m.send(b)
	}
}

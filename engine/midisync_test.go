package engine

import "testing"

func TestMidiSyncTicksPerBeat(t *testing.T) {
	m := NewMidiSync(120, 48000)

	var sent []byte
	m.SetSendFunc(func(b byte) { sent = append(sent, b) })
	m.SetEnabled(true)

	if len(sent) != 1 || sent[0] != MidiStart {
		t.Fatalf("sent = %v, want [Start]", sent)
	}
	sent = nil

	// One beat at 120 bpm, 48kHz is 24000 samples: exactly 24 ticks.
	m.Advance(24000)

	ticks := 0
	for _, b := range sent {
		if b == MidiClockTick {
			ticks++
		}
	}
	if ticks != MidiPPQN {
		t.Fatalf("ticks = %d, want %d", ticks, MidiPPQN)
	}
}

func TestMidiSyncStopByteOnDisable(t *testing.T) {
	m := NewMidiSync(120, 48000)

	var sent []byte
	m.SetSendFunc(func(b byte) { sent = append(sent, b) })
	m.SetEnabled(true)
	m.SetEnabled(false)

	if len(sent) != 2 || sent[1] != MidiStop {
		t.Fatalf("sent = %v, want Start then Stop", sent)
	}

	// Re-disabling is a no-op.
	m.SetEnabled(false)
	if len(sent) != 2 {
		t.Fatalf("sent %d bytes, duplicate disable should send nothing", len(sent))
	}
}

func TestMidiSyncSilentWhileDisabled(t *testing.T) {
	m := NewMidiSync(120, 48000)
	var sent []byte
	m.SetSendFunc(func(b byte) { sent = append(sent, b) })

	m.Advance(100000)
	if len(sent) != 0 {
		t.Fatalf("sent %d bytes while disabled, want 0", len(sent))
	}
}

func TestMidiSyncSetBPMPreservesTickPhase(t *testing.T) {
	m := NewMidiSync(120, 48000)
	m.SetSendFunc(func(byte) {})
	m.SetEnabled(true)

	// samplesPerTick at 120 bpm is 1000; advance halfway into a tick.
	m.Advance(500)
	m.SetBPM(60)

	// At 60 bpm samplesPerTick is 2000; half a tick remains.
	var ticks int
	m.SetSendFunc(func(b byte) {
		if b == MidiClockTick {
			ticks++
		}
	})
	m.Advance(999)
	if ticks != 0 {
		t.Fatalf("tick fired %d samples early", 1000-999)
	}
	m.Advance(1)
	if ticks != 1 {
		t.Fatal("tick did not fire at the preserved phase boundary")
	}
}

func TestMidiSyncNoOutputWired(t *testing.T) {
	m := NewMidiSync(120, 48000)
	if m.HasOutput() {
		t.Fatal("HasOutput = true with no send func")
	}
	// Must not panic without a sink.
	m.SetEnabled(true)
	m.Advance(5000)
}

package engine

// ClockSnapshot is the clock state captured for display.
type ClockSnapshot struct {
	TotalSamples int64
	Bar          int
	Beat         int
	BeatFraction float64
	BPM          float64
	BeatsPerBar  int
}

// LoopSnapshot is one loop's state captured for display.
type LoopSnapshot struct {
	State         LoopState
	LengthBars    float64
	LengthSamples int64
	Layers        int
	ActiveLayers  int
	Speed         float64
	Reversed      bool
	PlayPosition  int64
	TimeStretch   bool
}

// PendingOpSnapshot describes one scheduled-but-not-yet-due operation.
type PendingOpSnapshot struct {
	LoopIndex     int
	Quantize      Quantize
	ExecuteSample int64
	Description   string
}

// ChannelSnapshot is one input channel's display state.
type ChannelSnapshot struct {
	Peak float32
	Live bool
}

// DisplaySnapshot is the engine state published once per processed
// block for the control thread. Readers get a complete, consistent
// snapshot and must treat it as read-only; hold it briefly (the buffer
// is recycled after a few publishes).
type DisplaySnapshot struct {
	Clock    ClockSnapshot
	Loops    []LoopSnapshot
	Pending  []PendingOpSnapshot
	Channels []ChannelSnapshot

	Recording     bool
	RecordingLoop int
}

// snapshotRing: the audio thread cycles through a few pre-allocated
// snapshots and publishes each by an atomic pointer store, so the
// publish side never blocks and a reader is never handed a buffer that
// is being rewritten moments later.
const snapshotRingSize = 4

func newDisplaySnapshot(numLoops, numChannels int) *DisplaySnapshot {
	return &DisplaySnapshot{
		Loops:    make([]LoopSnapshot, numLoops),
		Pending:  make([]PendingOpSnapshot, 0, numLoops*8),
		Channels: make([]ChannelSnapshot, numChannels),
	}
}

// publishSnapshot fills the next ring entry from live engine state and
// swaps it in. Audio thread only. The pending descriptions are static
// strings, so this path does not allocate.
func (e *Engine) publishSnapshot() {
	s := e.snapshotRing[e.snapshotNext]
	e.snapshotNext = (e.snapshotNext + 1) % snapshotRingSize

	pos := e.clock.Position()
	s.Clock = ClockSnapshot{
		TotalSamples: pos.TotalSamples,
		Bar:          pos.Bar,
		Beat:         pos.Beat,
		BeatFraction: pos.BeatFraction,
		BPM:          e.clock.BPM(),
		BeatsPerBar:  e.clock.BeatsPerBar(),
	}

	s.Pending = s.Pending[:0]
	for i, lp := range e.loops {
		s.Loops[i] = LoopSnapshot{
			State:         lp.State(),
			LengthBars:    lp.LengthBars(),
			LengthSamples: lp.LengthSamples(),
			Layers:        lp.LayerCount(),
			ActiveLayers:  lp.ActiveLayerCount(),
			Speed:         lp.Speed(),
			Reversed:      lp.IsReversed(),
			TimeStretch:   lp.IsTimeStretchActive(),
		}
		if lp.LengthSamples() > 0 {
			s.Loops[i].PlayPosition = lp.PlayPosition()
		}
		appendPending(&s.Pending, i, &lp.pending)
	}

	for ch := range e.channels {
		s.Channels[ch] = ChannelSnapshot{
			Peak: e.channels[ch].PeakLevel(),
			Live: e.channels[ch].IsLive(e.liveThreshold.Load()),
		}
	}

	s.Recording = e.activeRec != nil
	s.RecordingLoop = -1
	if e.activeRec != nil {
		s.RecordingLoop = e.activeRec.loopIndex
	}

	e.snapshot.Store(s)
}

func appendPending(dst *[]PendingOpSnapshot, loopIdx int, p *PendingState) {
	add := func(exec int64, q Quantize, desc string) {
		*dst = append(*dst, PendingOpSnapshot{
			LoopIndex:     loopIdx,
			Quantize:      q,
			ExecuteSample: exec,
			Description:   desc,
		})
	}
	if p.clear.set {
		add(p.clear.executeSample, p.clear.quantize, "clear")
	}
	if p.capture.set {
		add(p.capture.executeSample, p.capture.quantize, "capture")
	}
	if p.record.set {
		if p.recordStart {
			add(p.record.executeSample, p.record.quantize, "record")
		} else {
			add(p.record.executeSample, p.record.quantize, "stop record")
		}
	}
	if p.mute.set {
		switch p.muteOp {
		case muteSet:
			add(p.mute.executeSample, p.mute.quantize, "mute")
		case muteClear:
			add(p.mute.executeSample, p.mute.quantize, "unmute")
		default:
			add(p.mute.executeSample, p.mute.quantize, "toggle mute")
		}
	}
	if p.overdub.set {
		if p.overdubStart {
			add(p.overdub.executeSample, p.overdub.quantize, "overdub start")
		} else {
			add(p.overdub.executeSample, p.overdub.quantize, "overdub stop")
		}
	}
	if p.reverse.set {
		add(p.reverse.executeSample, p.reverse.quantize, "reverse")
	}
	if p.speed.set {
		add(p.speed.executeSample, p.speed.quantize, "speed")
	}
	if p.undo.set {
		if p.undo.redo {
			add(p.undo.executeSample, p.undo.quantize, "redo")
		} else {
			add(p.undo.executeSample, p.undo.quantize, "undo")
		}
	}
}

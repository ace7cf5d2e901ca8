// Package engine is the real-time core of the looper: the musical
// clock, the loops, the live-input trackers and the lock-free command
// path between the control thread and the audio thread.
//
// Everything under ProcessBlock runs on the audio thread and must not
// block. Control-thread code talks to the engine exclusively through
// the Schedule* methods and reads state back from the published
// display snapshot and a few atomic scalars.
package engine

import (
	"fmt"
	"math"
	"sync/atomic"
)

const commandQueueCapacity = 256

// Options configures a new Engine.
type Options struct {
	MaxLoops        int
	MaxLookbackBars int
	SampleRate      float64
	MinBPM          float64 // slowest expected tempo, sizes the ring buffers
	InputChannels   int
	LiveThreshold   float32 // 0 disables live detection
	LiveWindowMs    int

	// NewStretcher supplies the pitch-preserving stretch algorithm.
	// Nil disables tempo-following stretch.
	NewStretcher func() Stretcher
}

// Callbacks is the engine's fixed event sink, supplied once at
// construction and never re-registered. OnMessage and OnStateChanged
// may fire from the audio thread and must not block.
type Callbacks struct {
	OnStateChanged func()
	OnMessage      func(string)
	OnBeat         func(ClockPosition)
	OnBar          func(ClockPosition)
	OnBPMChanged   func(float64)
}

// activeRecording accumulates live input between a resolved record
// start and stop. At most one exists system-wide.
type activeRecording struct {
	loopIndex   int
	buf         []float32
	startSample int64
}

// Engine owns the clock, the loops, the input channels and the command
// queue, and orchestrates them once per hardware buffer.
type Engine struct {
	clock    *Clock
	click    *Click
	midiSync *MidiSync

	channels []*InputChannel
	// Per channel: clock sample when the live threshold was last
	// exceeded. Updated once per block; lets capture decide channel
	// inclusion in O(1) instead of rescanning captured audio.
	lastBreach []int64

	loops     []*Loop
	activeRec *activeRecording

	sampleRate      float64
	maxLookbackBars int

	callbacks Callbacks
	commands  *SpscQueue[EngineCommand]

	// Cross-thread scalars.
	defaultQuantize  atomic.Int32
	lookbackBars     atomic.Int32
	crossfade        atomic.Int32
	latencyComp      atomic.Int64
	inputMonitoring  atomic.Bool
	liveThreshold    atomicFloat32
	liveMask         atomic.Uint64
	recording        atomic.Bool
	recordingLoopIdx atomic.Int32

	snapshotRing [snapshotRingSize]*DisplaySnapshot
	snapshotNext int
	snapshot     atomic.Pointer[DisplaySnapshot]
}

// New creates an engine. The ring buffers are sized to hold
// MaxLookbackBars at MinBPM so the longest allowed capture is always
// available.
func New(opts Options, cb Callbacks) *Engine {
	if opts.MaxLoops <= 0 {
		opts.MaxLoops = 8
	}
	if opts.MaxLookbackBars <= 0 {
		opts.MaxLookbackBars = 8
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 44100
	}
	if opts.MinBPM <= 0 {
		opts.MinBPM = 60
	}
	if opts.InputChannels <= 0 {
		opts.InputChannels = 1
	}
	if opts.LiveWindowMs <= 0 {
		opts.LiveWindowMs = 500
	}

	e := &Engine{
		clock:           NewClock(120, 4, opts.SampleRate),
		click:           NewClick(opts.SampleRate),
		midiSync:        NewMidiSync(120, opts.SampleRate),
		sampleRate:      opts.SampleRate,
		maxLookbackBars: opts.MaxLookbackBars,
		callbacks:       cb,
		commands:        NewSpscQueue[EngineCommand](commandQueueCapacity),
	}
	e.defaultQuantize.Store(int32(QuantizeBar))
	e.lookbackBars.Store(1)
	e.crossfade.Store(256)
	e.liveThreshold.Store(opts.LiveThreshold)
	e.recordingLoopIdx.Store(-1)

	ringCapacity := int64(math.Ceil(
		float64(opts.MaxLookbackBars) * 4 * (60.0 / opts.MinBPM) * opts.SampleRate))
	windowSamples := int(opts.SampleRate * float64(opts.LiveWindowMs) / 1000.0)

	e.channels = make([]*InputChannel, opts.InputChannels)
	e.lastBreach = make([]int64, opts.InputChannels)
	for i := range e.channels {
		e.channels[i] = NewInputChannel(ringCapacity, windowSamples)
		e.lastBreach[i] = math.MinInt64
	}

	e.loops = make([]*Loop, opts.MaxLoops)
	for i := range e.loops {
		e.loops[i] = newLoop(i, opts.SampleRate, 256, opts.NewStretcher)
	}

	for i := range e.snapshotRing {
		e.snapshotRing[i] = newDisplaySnapshot(opts.MaxLoops, opts.InputChannels)
	}
	e.snapshot.Store(e.snapshotRing[snapshotRingSize-1])

	// Event sink wiring happens exactly once, here.
	e.clock.OnBeat(func(pos ClockPosition) {
		e.click.Trigger(pos.Beat == 0)
		if e.callbacks.OnBeat != nil {
			e.callbacks.OnBeat(pos)
		}
	})
	e.clock.OnBar(func(pos ClockPosition) {
		if e.callbacks.OnBar != nil {
			e.callbacks.OnBar(pos)
		}
	})

	return e
}

// ProcessBlock processes one hardware buffer: n samples of each input
// channel in, n mono samples out. Called from the audio callback;
// must meet its deadline, never blocks.
func (e *Engine) ProcessBlock(inputs [][]float32, output []float32, n int) {
	e.drainCommands()

	threshold := e.liveThreshold.Load()

	for i := 0; i < n; i++ {
		// Feed the per-channel rings and build the live mono mix.
		var liveMix float32
		for ch := range e.channels {
			var sample float32
			if ch < len(inputs) && inputs[ch] != nil && i < len(inputs[ch]) {
				sample = inputs[ch][i]
			}
			e.channels[ch].WriteSample(sample)
			if e.channels[ch].IsLive(threshold) {
				liveMix += sample
			}
		}

		if e.activeRec != nil {
			e.activeRec.buf = append(e.activeRec.buf, liveMix)
		}

		currentSample := e.clock.Position().TotalSamples
		for _, lp := range e.loops {
			if lp.HasPendingOps() {
				e.flushDueOps(lp, currentSample)
			}
		}

		var out float32
		for _, lp := range e.loops {
			if !lp.IsEmpty() {
				out += lp.ProcessSample()
				if lp.IsRecording() {
					lp.RecordSample(liveMix)
				}
			}
		}

		out += e.click.NextSample()

		if e.inputMonitoring.Load() {
			out += liveMix
		}

		if output != nil && i < len(output) {
			output[i] = out
		}

		e.clock.Advance(1)
		e.midiSync.Advance(1)
	}

	// Live channel bitmask and threshold breach timestamps, once per
	// block.
	currentSample := e.clock.Position().TotalSamples
	var mask uint64
	for ch := range e.channels {
		if ch >= 64 {
			break
		}
		if e.channels[ch].IsLive(threshold) {
			mask |= uint64(1) << ch
			e.lastBreach[ch] = currentSample
		}
	}
	e.liveMask.Store(mask)

	e.publishSnapshot()
}

// flushDueOps executes every pending operation on lp whose execute
// sample has arrived. A due clear wins outright and cancels all other
// slots.
func (e *Engine) flushDueOps(lp *Loop, currentSample int64) {
	ps := lp.Pending()

	if ps.clear.set && ps.clear.executeSample <= currentSample {
		lp.Clear()
		e.messagef("Loop %d cleared", lp.ID())
		ps.clearAll()
		e.stateChanged()
		return
	}

	if ps.capture.set && ps.capture.executeSample <= currentSample {
		cap := ps.capture
		ps.capture = pendingCapture{}
		e.fulfillCapture(lp, cap)
	}

	if ps.record.set && ps.record.executeSample <= currentSample {
		start := ps.recordStart
		ps.record = pendingTimedOp{}
		if start {
			e.fulfillRecord(lp)
		} else {
			e.fulfillStopRecord(lp)
		}
	}

	if ps.mute.set && ps.mute.executeSample <= currentSample {
		op := ps.muteOp
		ps.mute = pendingTimedOp{}
		switch op {
		case muteSet:
			lp.Mute()
			e.messagef("Loop %d muted", lp.ID())
		case muteClear:
			lp.Play()
			e.messagef("Loop %d unmuted", lp.ID())
		case muteToggle:
			lp.ToggleMute()
			if lp.IsMuted() {
				e.messagef("Loop %d muted", lp.ID())
			} else {
				e.messagef("Loop %d unmuted", lp.ID())
			}
		}
		e.stateChanged()
	}

	if ps.overdub.set && ps.overdub.executeSample <= currentSample {
		start := ps.overdubStart
		ps.overdub = pendingTimedOp{}
		if start {
			lp.StartOverdub()
			e.messagef("Loop %d overdub started", lp.ID())
		} else {
			lp.StopOverdub()
			e.messagef("Loop %d overdub stopped", lp.ID())
		}
		e.stateChanged()
	}

	if ps.reverse.set && ps.reverse.executeSample <= currentSample {
		ps.reverse = pendingTimedOp{}
		lp.ToggleReverse()
		if lp.IsReversed() {
			e.messagef("Loop %d reversed", lp.ID())
		} else {
			e.messagef("Loop %d forward", lp.ID())
		}
		e.stateChanged()
	}

	if ps.speed.set && ps.speed.executeSample <= currentSample {
		speed := ps.speed.speed
		ps.speed = pendingSpeed{}
		lp.SetSpeed(speed)
		e.messagef("Loop %d speed: %.2fx", lp.ID(), speed)
		e.stateChanged()
	}

	if ps.undo.set && ps.undo.executeSample <= currentSample {
		u := ps.undo
		ps.undo = pendingUndo{}
		for i := 0; i < u.count; i++ {
			if u.redo {
				lp.RedoLayer()
			} else {
				lp.UndoLayer()
			}
		}
		verb := "undone"
		if u.redo {
			verb = "redone"
		}
		e.messagef("Loop %d %d layer(s) %s", lp.ID(), u.count, verb)
		e.stateChanged()
	}
}

// fulfillCapture mixes lookback audio from the live channels into lp.
// A channel contributes only if its last threshold breach falls inside
// the capture window; the read window is shifted further into the past
// by the latency compensation so captured content lines up with the
// clock's timeline.
func (e *Engine) fulfillCapture(lp *Loop, cap pendingCapture) {
	lookback := cap.lookbackSamples
	if lookback <= 0 {
		lookback = int64(math.Round(
			float64(e.lookbackBars.Load()) * e.clock.SamplesPerBar()))
	}

	// Clamp to the minimum available across all input channels.
	for _, ch := range e.channels {
		if avail := ch.Ring().Available(); avail < lookback {
			lookback = avail
		}
	}
	if lookback <= 0 {
		e.messagef("No audio to capture")
		return
	}

	threshold := e.liveThreshold.Load()
	samplesAgo := lookback + e.latencyComp.Load()
	captureStart := e.clock.Position().TotalSamples - samplesAgo

	audio := make([]float32, lookback)
	chAudio := make([]float32, lookback)
	liveCount := 0
	for chIdx, ch := range e.channels {
		hadActivity := threshold <= 0 || e.lastBreach[chIdx] >= captureStart
		if !hadActivity {
			continue
		}
		ch.Ring().ReadFromPast(chAudio, samplesAgo)
		for j := range audio {
			audio[j] += chAudio[j]
		}
		liveCount++
	}

	if liveCount == 0 {
		e.messagef("No live input channels to capture")
		return
	}

	lp.LoadFromCapture(audio)
	lp.SetCrossfadeSamples(int(e.crossfade.Load()))

	bars := float64(lookback) / e.clock.SamplesPerBar()
	lp.SetLengthBars(bars)

	// Stamp the tempo for time stretching.
	lp.SetRecordedBPM(e.clock.BPM())
	lp.SetCurrentBPM(e.clock.BPM())

	e.messagef("Loop %d captured (%d bars, %d ch)",
		lp.ID(), int(math.Round(bars)), liveCount)
	e.stateChanged()
}

// fulfillRecord starts a classic recording into lp, refusing when one
// is already running elsewhere.
func (e *Engine) fulfillRecord(lp *Loop) {
	if e.activeRec != nil {
		e.messagef("Already recording on Loop %d", e.activeRec.loopIndex)
		return
	}

	lp.Clear()

	e.activeRec = &activeRecording{
		loopIndex:   lp.ID(),
		startSample: e.clock.Position().TotalSamples,
	}
	e.recording.Store(true)
	e.recordingLoopIdx.Store(int32(lp.ID()))

	e.messagef("Loop %d recording...", lp.ID())
	e.stateChanged()
}

// fulfillStopRecord ends the active recording and loads it into lp.
// The first latency-compensation samples are trimmed: they were still
// in the hardware pipeline when recording began.
func (e *Engine) fulfillStopRecord(lp *Loop) {
	if e.activeRec == nil {
		e.messagef("No active recording")
		return
	}

	idx := e.activeRec.loopIndex
	if lp.ID() != idx {
		e.messagef("Stop ignored: recording is on Loop %d", idx)
		return
	}

	buf := e.activeRec.buf
	if comp := e.latencyComp.Load(); comp > 0 && int64(len(buf)) > comp {
		buf = buf[comp:]
	}

	if len(buf) == 0 {
		e.messagef("No audio recorded")
		e.activeRec = nil
		e.recording.Store(false)
		e.recordingLoopIdx.Store(-1)
		return
	}

	lp.LoadFromCapture(buf)
	lp.SetCrossfadeSamples(int(e.crossfade.Load()))

	bars := float64(lp.LengthSamples()) / e.clock.SamplesPerBar()
	lp.SetLengthBars(bars)

	lp.SetRecordedBPM(e.clock.BPM())
	lp.SetCurrentBPM(e.clock.BPM())

	e.activeRec = nil
	e.recording.Store(false)
	e.recordingLoopIdx.Store(-1)

	e.messagef("Loop %d recorded (%.1f bars)", idx, bars)
	e.stateChanged()
}

func (e *Engine) computeExecuteSample(q Quantize) int64 {
	if q == QuantizeFree {
		return e.clock.Position().TotalSamples
	}
	return e.clock.Position().TotalSamples + e.clock.SamplesUntilBoundary(q)
}

// drainCommands empties the SPSC queue into per-loop pending state.
// Audio thread only; runs once at the start of each block.
func (e *Engine) drainCommands() {
	for {
		cmd, ok := e.commands.Pop()
		if !ok {
			return
		}
		switch cmd.cmd {
		case cmdScheduleOp:
			lp := e.loopAt(cmd.loop)
			if lp == nil {
				break
			}
			ps := lp.Pending()
			exec := e.computeExecuteSample(cmd.quantize)

			switch cmd.op {
			case OpMute:
				ps.mute = pendingTimedOp{true, exec, cmd.quantize}
				ps.muteOp = muteSet
			case OpUnmute:
				ps.mute = pendingTimedOp{true, exec, cmd.quantize}
				ps.muteOp = muteClear
			case OpToggleMute:
				ps.mute = pendingTimedOp{true, exec, cmd.quantize}
				ps.muteOp = muteToggle
			case OpReverse:
				ps.reverse = pendingTimedOp{true, exec, cmd.quantize}
			case OpStartOverdub:
				ps.overdub = pendingTimedOp{true, exec, cmd.quantize}
				ps.overdubStart = true
			case OpStopOverdub:
				ps.overdub = pendingTimedOp{true, exec, cmd.quantize}
				ps.overdubStart = false
			case OpUndoLayer:
				if ps.undo.set && !ps.undo.redo {
					ps.undo.count++
				} else {
					ps.undo = pendingUndo{true, exec, cmd.quantize, 1, false}
				}
			case OpRedoLayer:
				if ps.undo.set && ps.undo.redo {
					ps.undo.count++
				} else {
					ps.undo = pendingUndo{true, exec, cmd.quantize, 1, true}
				}
			case OpClearLoop:
				ps.clear = pendingTimedOp{true, exec, cmd.quantize}
			}

		case cmdCaptureLoop:
			lp := e.loopAt(cmd.loop)
			if lp == nil {
				break
			}
			lp.Pending().capture = pendingCapture{
				set:           true,
				executeSample: e.computeExecuteSample(cmd.quantize),
				quantize:      cmd.quantize,
				lookbackSamples: int64(math.Round(
					float64(cmd.lookbackBars) * e.clock.SamplesPerBar())),
			}

		case cmdRecord:
			lp := e.loopAt(cmd.loop)
			if lp == nil {
				break
			}
			ps := lp.Pending()
			ps.record = pendingTimedOp{true, e.computeExecuteSample(cmd.quantize), cmd.quantize}
			ps.recordStart = true

		case cmdStopRecord:
			lp := e.loopAt(cmd.loop)
			if lp == nil {
				break
			}
			ps := lp.Pending()
			ps.record = pendingTimedOp{true, e.computeExecuteSample(cmd.quantize), cmd.quantize}
			ps.recordStart = false

		case cmdSetSpeed:
			lp := e.loopAt(cmd.loop)
			if lp == nil {
				break
			}
			lp.Pending().speed = pendingSpeed{
				set:           true,
				executeSample: e.computeExecuteSample(cmd.quantize),
				quantize:      cmd.quantize,
				speed:         cmd.value,
			}

		case cmdSetBPM:
			e.clock.SetBPM(cmd.value)
			e.midiSync.SetBPM(cmd.value)
			if e.callbacks.OnBPMChanged != nil {
				e.callbacks.OnBPMChanged(e.clock.BPM())
			}
			// Propagate to loops so time stretch follows the new tempo.
			newBPM := e.clock.BPM()
			for _, lp := range e.loops {
				if !lp.IsEmpty() {
					lp.SetCurrentBPM(newBPM)
				}
			}

		case cmdSetMidiSync:
			e.midiSync.SetEnabled(cmd.value > 0)

		case cmdCancelPending:
			if lp := e.loopAt(cmd.loop); lp != nil {
				lp.ClearPendingOps()
				break
			}
			for _, lp := range e.loops {
				lp.ClearPendingOps()
			}
		}
	}
}

func (e *Engine) loopAt(idx int) *Loop {
	if idx < 0 || idx >= len(e.loops) {
		return nil
	}
	return e.loops[idx]
}

// ScheduleOp queues a generic loop operation for the next boundary of
// q. Control thread only.
func (e *Engine) ScheduleOp(op OpType, loopIndex int, q Quantize) {
	ok := e.commands.Push(EngineCommand{
		cmd:      cmdScheduleOp,
		op:       op,
		loop:     loopIndex,
		quantize: q,
	})
	if !ok {
		e.messagef("%s dropped: command queue full", op)
		return
	}

	msg := op.String()
	if q != QuantizeFree {
		msg += pendingSuffix(q)
	}
	e.messagef("%s", msg)
}

// ScheduleCapture queues a lookback capture. A negative loopIndex
// targets the next empty slot, resolved here at schedule time.
// lookbackBarsOverride <= 0 uses the configured lookback.
func (e *Engine) ScheduleCapture(loopIndex int, q Quantize, lookbackBarsOverride float64) {
	target := loopIndex
	if target < 0 {
		target = e.NextEmptySlot()
	}
	bars := int(e.lookbackBars.Load())
	if lookbackBarsOverride > 0 {
		bars = int(math.Round(lookbackBarsOverride))
	}

	ok := e.commands.Push(EngineCommand{
		cmd:          cmdCaptureLoop,
		loop:         target,
		quantize:     q,
		lookbackBars: bars,
	})
	if !ok {
		e.messagef("Capture dropped: command queue full")
		return
	}

	msg := fmt.Sprintf("Capture %d bar(s) -> Loop %d", bars, target)
	if q != QuantizeFree {
		msg += pendingSuffix(q)
	}
	e.messagef("%s", msg)
}

// ScheduleRecord queues a classic record start. A negative loopIndex
// targets the next empty slot, resolved at schedule time.
func (e *Engine) ScheduleRecord(loopIndex int, q Quantize) {
	target := loopIndex
	if target < 0 {
		target = e.NextEmptySlot()
	}

	ok := e.commands.Push(EngineCommand{cmd: cmdRecord, loop: target, quantize: q})
	if !ok {
		e.messagef("Record dropped: command queue full")
		return
	}

	msg := fmt.Sprintf("Record -> Loop %d", target)
	if q != QuantizeFree {
		msg += pendingSuffix(q)
	}
	e.messagef("%s", msg)
}

// ScheduleStopRecord queues a classic record stop.
func (e *Engine) ScheduleStopRecord(loopIndex int, q Quantize) {
	ok := e.commands.Push(EngineCommand{cmd: cmdStopRecord, loop: loopIndex, quantize: q})
	if !ok {
		e.messagef("Stop record dropped: command queue full")
		return
	}

	msg := "Stop Record"
	if q != QuantizeFree {
		msg += pendingSuffix(q)
	}
	e.messagef("%s", msg)
}

// ScheduleSetSpeed queues a playback speed change.
func (e *Engine) ScheduleSetSpeed(loopIndex int, speed float64, q Quantize) {
	ok := e.commands.Push(EngineCommand{
		cmd:      cmdSetSpeed,
		loop:     loopIndex,
		quantize: q,
		value:    speed,
	})
	if !ok {
		e.messagef("Set speed dropped: command queue full")
	}
}

// ScheduleSetBPM queues a tempo change, applied on the audio thread at
// the start of the next block.
func (e *Engine) ScheduleSetBPM(bpm float64) {
	if !e.commands.Push(EngineCommand{cmd: cmdSetBPM, value: bpm}) {
		e.messagef("Set BPM dropped: command queue full")
	}
}

// ExecuteNow runs an operation without quantization.
func (e *Engine) ExecuteNow(op OpType, loopIndex int) {
	if op == OpCaptureLoop {
		e.ScheduleCapture(loopIndex, QuantizeFree, 0)
		return
	}
	e.ScheduleOp(op, loopIndex, QuantizeFree)
}

// ScheduleMidiSync queues enabling or disabling MIDI clock output; the
// Start/Stop byte goes out from the audio thread so it lands in step
// with the ticks.
func (e *Engine) ScheduleMidiSync(on bool) {
	value := 0.0
	if on {
		value = 1
	}
	if !e.commands.Push(EngineCommand{cmd: cmdSetMidiSync, value: value}) {
		e.messagef("MIDI sync dropped: command queue full")
	}
}

// CancelPending cancels every queued-but-not-yet-due operation on all
// loops.
func (e *Engine) CancelPending() {
	if !e.commands.Push(EngineCommand{cmd: cmdCancelPending, loop: -1}) {
		e.messagef("Cancel dropped: command queue full")
		return
	}
	e.messagef("All pending ops cancelled")
}

// CancelPendingLoop cancels pending operations for one loop.
func (e *Engine) CancelPendingLoop(loopIndex int) {
	if loopIndex < 0 || loopIndex >= len(e.loops) {
		return
	}
	if !e.commands.Push(EngineCommand{cmd: cmdCancelPending, loop: loopIndex}) {
		e.messagef("Cancel dropped: command queue full")
	}
}

func pendingSuffix(q Quantize) string {
	if q == QuantizeBeat {
		return " (pending: next beat)"
	}
	return " (pending: next bar)"
}

func (e *Engine) messagef(format string, args ...any) {
	if e.callbacks.OnMessage != nil {
		e.callbacks.OnMessage(fmt.Sprintf(format, args...))
	}
}

func (e *Engine) stateChanged() {
	if e.callbacks.OnStateChanged != nil {
		e.callbacks.OnStateChanged()
	}
}

// Snapshot returns the most recently published display snapshot.
// Safe from any goroutine; treat as read-only.
func (e *Engine) Snapshot() *DisplaySnapshot { return e.snapshot.Load() }

// Clock exposes the engine clock. Mutate only before audio starts or
// from the audio thread.
func (e *Engine) Clock() *Clock { return e.clock }

// MidiSync exposes the MIDI clock generator.
func (e *Engine) MidiSync() *MidiSync { return e.midiSync }

// Click exposes the metronome click.
func (e *Engine) Click() *Click { return e.click }

// Loop returns loop idx, or nil when out of range.
func (e *Engine) Loop(idx int) *Loop { return e.loopAt(idx) }

// MaxLoops returns the fixed loop count.
func (e *Engine) MaxLoops() int { return len(e.loops) }

// NumInputChannels returns the input channel count.
func (e *Engine) NumInputChannels() int { return len(e.channels) }

// InputChannel returns channel idx, or nil when out of range.
func (e *Engine) InputChannel(idx int) *InputChannel {
	if idx < 0 || idx >= len(e.channels) {
		return nil
	}
	return e.channels[idx]
}

// ActiveLoopCount counts the non-empty loops.
func (e *Engine) ActiveLoopCount() int {
	count := 0
	for _, lp := range e.loops {
		if !lp.IsEmpty() {
			count++
		}
	}
	return count
}

// NextEmptySlot returns the first empty loop's index, -1 when all are
// in use. Resolution happens on the calling (control) thread; two
// rapid schedules can race to the same slot, see DESIGN.md.
func (e *Engine) NextEmptySlot() int {
	for i, lp := range e.loops {
		if lp.IsEmpty() {
			return i
		}
	}
	return -1
}

// IsRecording reports whether a classic recording is active.
func (e *Engine) IsRecording() bool { return e.recording.Load() }

// RecordingLoop returns the loop being recorded into, -1 when idle.
func (e *Engine) RecordingLoop() int { return int(e.recordingLoopIdx.Load()) }

// LiveChannelMask returns a bitmask of currently-live input channels.
func (e *Engine) LiveChannelMask() uint64 { return e.liveMask.Load() }

// DefaultQuantize is the boundary used when the caller does not pick
// one.
func (e *Engine) DefaultQuantize() Quantize { return Quantize(e.defaultQuantize.Load()) }

// SetDefaultQuantize sets the default boundary.
func (e *Engine) SetDefaultQuantize(q Quantize) { e.defaultQuantize.Store(int32(q)) }

// LookbackBars returns the configured capture lookback.
func (e *Engine) LookbackBars() int { return int(e.lookbackBars.Load()) }

// SetLookbackBars sets the capture lookback, clamped to
// [1, MaxLookbackBars]. Returns the value actually set.
func (e *Engine) SetLookbackBars(bars int) int {
	v := clampInt(bars, 1, e.maxLookbackBars)
	e.lookbackBars.Store(int32(v))
	return v
}

// MaxLookbackBars returns the ring-buffer sizing limit.
func (e *Engine) MaxLookbackBars() int { return e.maxLookbackBars }

// CrossfadeSamples returns the loop-boundary crossfade length.
func (e *Engine) CrossfadeSamples() int { return int(e.crossfade.Load()) }

// SetCrossfadeSamples sets the crossfade applied to newly loaded
// loops.
func (e *Engine) SetCrossfadeSamples(n int) { e.crossfade.Store(int32(n)) }

// SampleRate returns the engine sample rate.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// LatencyCompensation returns the round-trip compensation in samples.
func (e *Engine) LatencyCompensation() int64 { return e.latencyComp.Load() }

// SetLatencyCompensation sets the round-trip (output + input) latency
// in samples; capture and record shift their windows by this amount.
func (e *Engine) SetLatencyCompensation(samples int64) {
	if samples < 0 {
		samples = 0
	}
	e.latencyComp.Store(samples)
}

// InputMonitoring reports whether live input passes through to the
// output.
func (e *Engine) InputMonitoring() bool { return e.inputMonitoring.Load() }

// SetInputMonitoring toggles input pass-through.
func (e *Engine) SetInputMonitoring(on bool) { e.inputMonitoring.Store(on) }

// LiveThreshold returns the activity detection threshold.
func (e *Engine) LiveThreshold() float32 { return e.liveThreshold.Load() }

// SetLiveThreshold sets the activity detection threshold; <= 0
// disables detection.
func (e *Engine) SetLiveThreshold(t float32) { e.liveThreshold.Store(t) }

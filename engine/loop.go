package engine

import "math"

// LoopState is a loop's playback/record state. The integer values are
// part of the OSC protocol, don't reorder.
type LoopState int

const (
	LoopEmpty     LoopState = 0
	LoopPlaying   LoopState = 1
	LoopMuted     LoopState = 2
	LoopRecording LoopState = 3
)

func (s LoopState) String() string {
	switch s {
	case LoopEmpty:
		return "empty"
	case LoopPlaying:
		return "playing"
	case LoopMuted:
		return "muted"
	case LoopRecording:
		return "recording"
	}
	return "unknown"
}

// LoopLayer is one overdub pass. Layers are never removed by undo,
// only deactivated.
type LoopLayer struct {
	Samples []float32
	Gain    float32
	Active  bool
}

type muteKind int

const (
	muteSet muteKind = iota
	muteClear
	muteToggle
)

// pendingTimedOp is one scheduled operation waiting for its boundary.
type pendingTimedOp struct {
	set           bool
	executeSample int64
	quantize      Quantize
}

type pendingUndo struct {
	set           bool
	executeSample int64
	quantize      Quantize
	count         int
	redo          bool
}

type pendingSpeed struct {
	set           bool
	executeSample int64
	quantize      Quantize
	speed         float64
}

type pendingCapture struct {
	set             bool
	executeSample   int64
	quantize        Quantize
	lookbackSamples int64
}

// PendingState holds a loop's scheduled operations, one independent
// slot per kind. Within a slot the last schedule wins, except undo/redo
// which accumulate a count while the direction matches.
type PendingState struct {
	mute    pendingTimedOp
	overdub pendingTimedOp
	reverse pendingTimedOp
	clear   pendingTimedOp
	record  pendingTimedOp
	undo    pendingUndo
	speed   pendingSpeed
	capture pendingCapture

	muteOp       muteKind
	overdubStart bool
	recordStart  bool
}

func (p *PendingState) hasAny() bool {
	return p.mute.set || p.overdub.set || p.reverse.set || p.clear.set ||
		p.record.set || p.undo.set || p.speed.set || p.capture.set
}

func (p *PendingState) clearAll() {
	*p = PendingState{}
}

// Stretch buffering constants. The block size is how many stretched
// samples are produced per Stretcher call; the input work buffer must
// hold a full block at the maximum 4x tempo ratio.
const (
	stretchBlockSize = 512
	maxStretchInput  = 4 * stretchBlockSize
	stretchBufCap    = 8 * stretchBlockSize
)

// Loop is a multi-layer audio loop. The length is fixed by the first
// captured layer; overdubs are padded or truncated to match. All
// mutation happens on the audio thread.
type Loop struct {
	id     int
	layers []LoopLayer
	state  LoopState

	length  int64
	playPos int64

	reversed bool
	speed    float64
	fracPos  float64

	crossfade  int
	lengthBars float64
	sampleRate float64

	recordedBPM float64
	currentBPM  float64

	pending PendingState

	// Tempo-following stretch state. All buffers are allocated once in
	// LoadFromCapture so playback never allocates.
	newStretcher  func() Stretcher
	stretcher     Stretcher
	stretchBuf    []float32
	stretchIn     []float32
	stretchOut    []float32
	stretchRead   int
	stretchAvail  int
	stretchRawPos int64
}

func newLoop(id int, sampleRate float64, crossfade int, newStretcher func() Stretcher) *Loop {
	return &Loop{
		id:           id,
		speed:        1.0,
		crossfade:    crossfade,
		sampleRate:   sampleRate,
		newStretcher: newStretcher,
	}
}

// LoadFromCapture resets the loop and installs audio as the base
// layer. This is the only way a loop leaves the Empty state.
func (l *Loop) LoadFromCapture(audio []float32) {
	l.Clear()
	l.length = int64(len(audio))
	l.layers = append(l.layers, LoopLayer{Samples: audio, Gain: 1, Active: true})
	l.state = LoopPlaying
	l.playPos = 0
	l.fracPos = 0

	if l.newStretcher != nil {
		l.stretcher = l.newStretcher()
		l.stretcher.Configure(l.sampleRate)
	}
	l.stretchBuf = make([]float32, stretchBufCap)
	l.stretchIn = make([]float32, maxStretchInput)
	l.stretchOut = make([]float32, stretchBlockSize)
	l.stretchRead = 0
	l.stretchAvail = 0
	l.stretchRawPos = 0
}

// AddLayer appends an overdub layer, padded or truncated to the loop
// length.
func (l *Loop) AddLayer(audio []float32) {
	if l.length == 0 {
		return
	}
	if int64(len(audio)) > l.length {
		audio = audio[:l.length]
	} else if int64(len(audio)) < l.length {
		padded := make([]float32, l.length)
		copy(padded, audio)
		audio = padded
	}
	l.layers = append(l.layers, LoopLayer{Samples: audio, Gain: 1, Active: true})
}

// UndoLayer deactivates the most recent active layer, never the base.
func (l *Loop) UndoLayer() {
	for i := len(l.layers) - 1; i > 0; i-- {
		if l.layers[i].Active {
			l.layers[i].Active = false
			return
		}
	}
}

// RedoLayer reactivates the earliest inactive layer, preserving the
// recording order rather than acting as a free-form stack.
func (l *Loop) RedoLayer() {
	for i := 1; i < len(l.layers); i++ {
		if !l.layers[i].Active {
			l.layers[i].Active = true
			return
		}
	}
}

func (l *Loop) mixedSample(pos int64) float32 {
	if pos < 0 || pos >= l.length {
		return 0
	}
	var mix float32
	for i := range l.layers {
		if l.layers[i].Active {
			mix += l.layers[i].Samples[pos] * l.layers[i].Gain
		}
	}
	return mix
}

// crossfadeGain ramps in over the first crossfade samples and out over
// the last, avoiding clicks at the wrap point. Disabled when the loop
// is too short to hold both ramps.
func (l *Loop) crossfadeGain(pos int64) float32 {
	cf := int64(l.crossfade)
	if cf <= 0 || l.length <= cf*2 {
		return 1
	}
	if pos < cf {
		return float32(pos) / float32(cf)
	}
	if distFromEnd := l.length - 1 - pos; distFromEnd < cf {
		return float32(distFromEnd) / float32(cf)
	}
	return 1
}

// ProcessSample returns the next output sample and advances playback.
// Returns 0 when empty or muted.
func (l *Loop) ProcessSample() float32 {
	if l.state == LoopEmpty || l.state == LoopMuted {
		return 0
	}
	if l.IsTimeStretchActive() {
		return l.processStretchedSample()
	}
	return l.processDirectSample()
}

func (l *Loop) processDirectSample() float32 {
	readPos := l.playPos
	if l.reversed {
		readPos = l.length - 1 - l.playPos
	}

	sample := l.mixedSample(readPos) * l.crossfadeGain(readPos)

	l.fracPos += l.speed
	advance := int64(l.fracPos)
	l.fracPos -= float64(advance)
	l.playPos = (l.playPos + advance) % l.length

	return sample
}

func (l *Loop) processStretchedSample() float32 {
	// At 4x speed up to 4 samples are consumed per call; keep at least
	// ceil(speed)+1 buffered.
	needed := int(math.Ceil(l.speed)) + 1
	for l.stretchAvail < needed {
		l.fillStretchBuffer()
	}

	sample := l.stretchBuf[l.stretchRead]

	// The manual speed control drains the stretched stream, so tempo
	// following and the speed multiplier stay independent.
	l.fracPos += l.speed
	advance := int(l.fracPos)
	l.fracPos -= float64(advance)

	l.stretchRead = (l.stretchRead + advance) % stretchBufCap
	l.stretchAvail -= advance

	// Track the raw position for display.
	l.playPos = l.stretchRawPos % l.length

	return sample
}

func (l *Loop) fillStretchBuffer() {
	if l.stretcher == nil || l.recordedBPM <= 0 || l.currentBPM <= 0 {
		return
	}

	// Ratio > 1 means the current tempo is faster: more raw input per
	// stretched output sample.
	ratio := clampFloat(l.currentBPM/l.recordedBPM, 0.25, 4.0)
	inputNeeded := int(math.Ceil(stretchBlockSize * ratio))
	inputNeeded = clampInt(inputNeeded, 1, maxStretchInput)

	for i := 0; i < inputNeeded; i++ {
		rawMod := l.stretchRawPos % l.length
		pos := rawMod
		if l.reversed {
			pos = l.length - 1 - rawMod
		}
		l.stretchIn[i] = l.mixedSample(pos) * l.crossfadeGain(pos)
		l.stretchRawPos = (l.stretchRawPos + 1) % l.length
	}

	l.stretcher.Process(l.stretchIn[:inputNeeded], l.stretchOut)

	for i := 0; i < stretchBlockSize; i++ {
		writeIdx := (l.stretchRead + l.stretchAvail + i) % stretchBufCap
		l.stretchBuf[writeIdx] = l.stretchOut[i]
	}
	l.stretchAvail += stretchBlockSize
}

// RecordSample mixes input into the current overdub layer at the
// position being played. Under active time stretch the write lands at
// the stretcher's raw consumption position so the overdub stays
// aligned with the underlying loop content.
func (l *Loop) RecordSample(input float32) {
	if l.state != LoopRecording || len(l.layers) == 0 {
		return
	}
	layer := &l.layers[len(l.layers)-1]

	var pos int64
	if l.IsTimeStretchActive() {
		rawMod := l.stretchRawPos % l.length
		pos = rawMod
		if l.reversed {
			pos = l.length - 1 - rawMod
		}
	} else {
		pos = l.playPos
		if l.reversed {
			pos = l.length - 1 - l.playPos
		}
	}
	if pos >= 0 && pos < l.length {
		layer.Samples[pos] += input
	}
}

// Play unmutes the loop (no-op when empty).
func (l *Loop) Play() {
	if l.state != LoopEmpty {
		l.state = LoopPlaying
	}
}

// Mute silences the loop without losing position (no-op when empty).
func (l *Loop) Mute() {
	if l.state != LoopEmpty {
		l.state = LoopMuted
	}
}

// ToggleMute flips between Playing and Muted.
func (l *Loop) ToggleMute() {
	switch l.state {
	case LoopPlaying:
		l.state = LoopMuted
	case LoopMuted:
		l.state = LoopPlaying
	}
}

// StartOverdub appends an empty layer and begins recording into it.
func (l *Loop) StartOverdub() {
	if l.state == LoopEmpty || l.length == 0 {
		return
	}
	l.layers = append(l.layers, LoopLayer{
		Samples: make([]float32, l.length),
		Gain:    1,
		Active:  true,
	})
	l.state = LoopRecording
}

// StopOverdub returns to playback, keeping the recorded layer.
func (l *Loop) StopOverdub() {
	if l.state == LoopRecording {
		l.state = LoopPlaying
	}
}

// ToggleReverse flips the playback direction.
func (l *Loop) ToggleReverse() {
	l.reversed = !l.reversed
}

// SetSpeed sets the playback speed multiplier, clamped to [0.25, 4].
// No interpolation is performed; aliasing at extreme speeds is a known
// limitation.
func (l *Loop) SetSpeed(speed float64) {
	l.speed = clampFloat(speed, 0.25, 4.0)
}

// SetCurrentBPM updates the tempo the loop should follow. Crossing the
// stretch activation boundary in either direction resets the
// stretch-local position tracking and the stretcher state.
func (l *Loop) SetCurrentBPM(bpm float64) {
	wasActive := l.IsTimeStretchActive()
	l.currentBPM = bpm
	nowActive := l.IsTimeStretchActive()

	if !wasActive && nowActive {
		l.stretchRawPos = l.playPos
		l.stretchRead = 0
		l.stretchAvail = 0
		l.fracPos = 0
		if l.stretcher != nil {
			l.stretcher.Reset()
		}
	} else if wasActive && !nowActive {
		l.playPos = l.stretchRawPos % l.length
		l.fracPos = 0
	}
}

// SetRecordedBPM stamps the tempo the loop content was recorded at.
func (l *Loop) SetRecordedBPM(bpm float64) { l.recordedBPM = bpm }

// IsTimeStretchActive reports whether tempo-following stretch is in
// effect: a stretcher is installed, both tempos are known and they are
// more than 0.5 bpm apart.
func (l *Loop) IsTimeStretchActive() bool {
	return l.stretcher != nil && !l.IsEmpty() &&
		l.recordedBPM > 0 && l.currentBPM > 0 &&
		math.Abs(l.currentBPM-l.recordedBPM) > 0.5
}

// Clear resets the loop to Empty and releases all layers and stretch
// resources.
func (l *Loop) Clear() {
	l.layers = nil
	l.state = LoopEmpty
	l.length = 0
	l.playPos = 0
	l.fracPos = 0
	l.reversed = false
	l.speed = 1.0
	l.lengthBars = 0

	l.stretcher = nil
	l.stretchBuf = nil
	l.stretchIn = nil
	l.stretchOut = nil
	l.stretchRead = 0
	l.stretchAvail = 0
	l.stretchRawPos = 0
	l.recordedBPM = 0
}

// PlayPosition returns the raw loop position for display.
func (l *Loop) PlayPosition() int64 {
	if l.IsTimeStretchActive() {
		return l.stretchRawPos % l.length
	}
	return l.playPos
}

// SetPlayPosition jumps playback to pos modulo the loop length.
func (l *Loop) SetPlayPosition(pos int64) {
	if l.length <= 0 {
		return
	}
	l.playPos = pos % l.length
	l.stretchRawPos = l.playPos
	l.fracPos = 0
}

func (l *Loop) State() LoopState  { return l.state }
func (l *Loop) IsEmpty() bool     { return l.state == LoopEmpty }
func (l *Loop) IsPlaying() bool   { return l.state == LoopPlaying }
func (l *Loop) IsMuted() bool     { return l.state == LoopMuted }
func (l *Loop) IsRecording() bool { return l.state == LoopRecording }

func (l *Loop) LengthSamples() int64 { return l.length }
func (l *Loop) IsReversed() bool     { return l.reversed }
func (l *Loop) Speed() float64       { return l.speed }
func (l *Loop) LayerCount() int      { return len(l.layers) }
func (l *Loop) ID() int              { return l.id }

// ActiveLayerCount returns how many layers currently contribute to the
// mix.
func (l *Loop) ActiveLayerCount() int {
	count := 0
	for i := range l.layers {
		if l.layers[i].Active {
			count++
		}
	}
	return count
}

// LengthBars is the loop length in bars, set at capture time.
func (l *Loop) LengthBars() float64        { return l.lengthBars }
func (l *Loop) SetLengthBars(bars float64) { l.lengthBars = bars }

func (l *Loop) CrossfadeSamples() int     { return l.crossfade }
func (l *Loop) SetCrossfadeSamples(n int) { l.crossfade = n }

// Pending exposes the loop's scheduled-operation slots.
func (l *Loop) Pending() *PendingState { return &l.pending }

// HasPendingOps reports whether any slot holds a scheduled operation.
func (l *Loop) HasPendingOps() bool { return l.pending.hasAny() }

// ClearPendingOps cancels everything scheduled on this loop.
func (l *Loop) ClearPendingOps() { l.pending.clearAll() }

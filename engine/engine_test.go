package engine

import (
	"strings"
	"testing"
)

func newTestEngine(opts Options) (*Engine, *[]string) {
	msgs := &[]string{}
	if opts.MaxLoops == 0 {
		opts.MaxLoops = 4
	}
	if opts.MaxLookbackBars == 0 {
		opts.MaxLookbackBars = 2
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = 48000
	}
	if opts.MinBPM == 0 {
		opts.MinBPM = 60
	}
	if opts.InputChannels == 0 {
		opts.InputChannels = 1
	}
	e := New(opts, Callbacks{
		OnMessage: func(m string) { *msgs = append(*msgs, m) },
	})
	e.Click().SetEnabled(false)
	return e, msgs
}

// feed runs whole blocks of a constant input value through the engine.
func feed(e *Engine, value float32, blocks, blockSize int) []float32 {
	in := make([]float32, blockSize)
	for i := range in {
		in[i] = value
	}
	out := make([]float32, blockSize)
	for b := 0; b < blocks; b++ {
		e.ProcessBlock([][]float32{in}, out, blockSize)
	}
	return out
}

// feedRamp runs blocks whose samples count upward from start, so every
// input sample carries its own global index. Returns the next index.
func feedRamp(e *Engine, start, blocks, blockSize int) int {
	in := make([]float32, blockSize)
	out := make([]float32, blockSize)
	for b := 0; b < blocks; b++ {
		for i := range in {
			in[i] = float32(start)
			start++
		}
		e.ProcessBlock([][]float32{in}, out, blockSize)
	}
	return start
}

func containsMessage(msgs []string, substr string) bool {
	for _, m := range msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestEngineCaptureQuantizedToBar(t *testing.T) {
	e, msgs := newTestEngine(Options{})

	// 96100 samples of signal: past the first bar boundary at 96000.
	feed(e, 0.5, 961, 100)

	e.ScheduleCapture(0, QuantizeBar, 1)

	// The capture lands exactly on the next bar boundary, sample 192000.
	feed(e, 0.5, 959, 100)
	if got := e.Loop(0).LengthSamples(); got != 0 {
		t.Fatalf("loop filled %d samples before the bar boundary", got)
	}

	feed(e, 0.5, 1, 100)

	lp := e.Loop(0)
	if lp.LengthSamples() != 96000 {
		t.Fatalf("loop length = %d, want 96000 (one bar)", lp.LengthSamples())
	}
	if lp.State() != LoopPlaying {
		t.Fatalf("state = %v, want playing", lp.State())
	}
	if got := lp.LengthBars(); got < 0.99 || got > 1.01 {
		t.Fatalf("LengthBars = %v, want ~1", got)
	}
	if got := lp.mixedSample(100); got != 0.5 {
		t.Fatalf("captured sample = %v, want 0.5", got)
	}
	if !containsMessage(*msgs, "captured") {
		t.Fatalf("no capture message in %v", *msgs)
	}
}

func TestEngineCaptureTargetsNextEmptySlot(t *testing.T) {
	e, msgs := newTestEngine(Options{})

	feed(e, 0.5, 10, 256)
	e.ScheduleCapture(-1, QuantizeFree, 1)
	feed(e, 0.5, 1, 256)

	if e.Loop(0).IsEmpty() {
		t.Fatal("capture with negative index did not fill slot 0")
	}
	if !containsMessage(*msgs, "Loop 0") {
		t.Fatalf("no slot announcement in %v", *msgs)
	}

	// Slot 0 taken: the next anonymous capture goes to slot 1.
	if got := e.NextEmptySlot(); got != 1 {
		t.Fatalf("NextEmptySlot = %d, want 1", got)
	}
}

func TestEngineRecordThenStopSetsExactLength(t *testing.T) {
	e, _ := newTestEngine(Options{})

	e.ScheduleRecord(0, QuantizeFree)
	feed(e, 0.25, 1, 256) // recording starts at the first sample
	if !e.IsRecording() {
		t.Fatal("IsRecording = false after record block")
	}
	if got := e.RecordingLoop(); got != 0 {
		t.Fatalf("RecordingLoop = %d, want 0", got)
	}

	feed(e, 0.25, 1, 256)

	e.ScheduleStopRecord(0, QuantizeFree)
	feed(e, 0.25, 1, 256) // stop lands at the first sample of this block

	if e.IsRecording() {
		t.Fatal("IsRecording = true after stop")
	}
	lp := e.Loop(0)
	// Samples accumulate from the one after record start through the
	// one before stop: 255 + 256 + 1.
	if got := lp.LengthSamples(); got != 512 {
		t.Fatalf("loop length = %d, want 512", got)
	}
	if lp.State() != LoopPlaying {
		t.Fatalf("state = %v, want playing", lp.State())
	}
}

func TestEngineRecordTrimsLatencyCompensation(t *testing.T) {
	e, _ := newTestEngine(Options{})
	e.SetLatencyCompensation(100)

	e.ScheduleRecord(0, QuantizeFree)
	feed(e, 0.25, 2, 256)
	e.ScheduleStopRecord(0, QuantizeFree)
	feed(e, 0.25, 1, 256)

	if got := e.Loop(0).LengthSamples(); got != 412 {
		t.Fatalf("loop length = %d, want 512 - 100 latency = 412", got)
	}
}

func TestEngineCaptureShiftsWindowByLatencyCompensation(t *testing.T) {
	e, _ := newTestEngine(Options{})
	e.SetLatencyCompensation(100)

	// A bar is 96000 samples at 120bpm. Feed 96480 samples of ramp so
	// the one-bar lookback is fully backed by history, then capture.
	// The capture executes at the first sample of the next block, with
	// ramp value 96480 already written (96481 samples of history).
	next := feedRamp(e, 0, 201, 480)
	e.ScheduleCapture(0, QuantizeFree, 1)
	feedRamp(e, next, 1, 480)

	lp := e.Loop(0)
	if lp.LengthSamples() != 96000 {
		t.Fatalf("loop length = %d, want 96000", lp.LengthSamples())
	}

	// The read window ends 100 samples in the past: [381, 96381), so
	// the newest 100 input samples are excluded.
	if got := lp.mixedSample(0); got != 381 {
		t.Fatalf("first captured sample = %v, want input index 381", got)
	}
	last := lp.mixedSample(lp.LengthSamples() - 1)
	if last != 96380 {
		t.Fatalf("last captured sample = %v, want input index 96380", last)
	}
}

func TestEngineSecondRecordRefusedWhileActive(t *testing.T) {
	e, msgs := newTestEngine(Options{})

	e.ScheduleRecord(0, QuantizeFree)
	feed(e, 0.25, 1, 256)
	e.ScheduleRecord(1, QuantizeFree)
	feed(e, 0.25, 1, 256)

	if !containsMessage(*msgs, "Already recording") {
		t.Fatalf("no refusal message in %v", *msgs)
	}
	if got := e.RecordingLoop(); got != 0 {
		t.Fatalf("RecordingLoop = %d, want original 0", got)
	}
}

func TestEngineCommandQueueFullDropsWithMessage(t *testing.T) {
	e, msgs := newTestEngine(Options{})

	// Never process a block, so nothing drains.
	for i := 0; i < commandQueueCapacity; i++ {
		e.ScheduleSetBPM(120)
	}
	before := len(*msgs)
	e.ScheduleSetBPM(120)

	if len(*msgs) != before+1 {
		t.Fatalf("got %d new messages, want 1 drop notice", len(*msgs)-before)
	}
	if !strings.Contains((*msgs)[len(*msgs)-1], "queue full") {
		t.Fatalf("drop message = %q, want queue full notice", (*msgs)[len(*msgs)-1])
	}
}

func TestEngineClearCancelsAllPendingOps(t *testing.T) {
	e, _ := newTestEngine(Options{})
	e.Loop(0).LoadFromCapture(make([]float32, 1000))

	e.ScheduleOp(OpMute, 0, QuantizeBar)
	e.ScheduleOp(OpClearLoop, 0, QuantizeFree)
	feed(e, 0, 1, 256)

	lp := e.Loop(0)
	if !lp.IsEmpty() {
		t.Fatalf("state = %v, want empty after clear", lp.State())
	}
	if lp.HasPendingOps() {
		t.Fatal("pending ops survived a clear")
	}
}

func TestEngineUndoRedoCountsAccumulate(t *testing.T) {
	e, _ := newTestEngine(Options{})
	lp := e.Loop(0)
	lp.LoadFromCapture(make([]float32, 1000))
	lp.AddLayer(make([]float32, 1000))
	lp.AddLayer(make([]float32, 1000))

	e.ScheduleOp(OpUndoLayer, 0, QuantizeFree)
	e.ScheduleOp(OpUndoLayer, 0, QuantizeFree)
	feed(e, 0, 1, 256)

	if got := lp.ActiveLayerCount(); got != 1 {
		t.Fatalf("active layers = %d, want 1 after double undo", got)
	}

	e.ScheduleOp(OpRedoLayer, 0, QuantizeFree)
	feed(e, 0, 1, 256)

	if got := lp.ActiveLayerCount(); got != 2 {
		t.Fatalf("active layers = %d, want 2 after redo", got)
	}
}

func TestEngineToggleMuteWaitsForBarBoundary(t *testing.T) {
	e, _ := newTestEngine(Options{})

	feed(e, 0, 1, 100)
	e.Loop(0).LoadFromCapture(make([]float32, 1000))
	e.ScheduleOp(OpToggleMute, 0, QuantizeBar)

	// Up to the boundary sample, still playing.
	feed(e, 0, 959, 100)
	if e.Loop(0).State() != LoopPlaying {
		t.Fatalf("state = %v before bar boundary, want playing", e.Loop(0).State())
	}

	feed(e, 0, 1, 100)
	if e.Loop(0).State() != LoopMuted {
		t.Fatalf("state = %v after bar boundary, want muted", e.Loop(0).State())
	}
}

func TestEngineCancelPendingDropsScheduledOps(t *testing.T) {
	e, _ := newTestEngine(Options{})
	e.Loop(0).LoadFromCapture(make([]float32, 1000))

	e.ScheduleOp(OpMute, 0, QuantizeBar)
	e.CancelPending()
	feed(e, 0, 960, 100) // well past the bar boundary

	if e.Loop(0).State() != LoopPlaying {
		t.Fatalf("state = %v, want still playing after cancel", e.Loop(0).State())
	}
}

func TestEngineSetBPMReachesClockAndCallback(t *testing.T) {
	var gotBPM float64
	msgs := &[]string{}
	e := New(Options{SampleRate: 48000}, Callbacks{
		OnMessage:    func(m string) { *msgs = append(*msgs, m) },
		OnBPMChanged: func(bpm float64) { gotBPM = bpm },
	})
	e.Click().SetEnabled(false)

	e.ScheduleSetBPM(140)
	feed(e, 0, 1, 256)

	if e.Clock().BPM() != 140 {
		t.Fatalf("clock BPM = %v, want 140", e.Clock().BPM())
	}
	if gotBPM != 140 {
		t.Fatalf("OnBPMChanged got %v, want 140", gotBPM)
	}
}

func TestEngineSnapshotReflectsState(t *testing.T) {
	e, _ := newTestEngine(Options{})
	e.Loop(1).LoadFromCapture(make([]float32, 1000))
	e.ScheduleOp(OpMute, 1, QuantizeBar)
	feed(e, 0, 1, 256)

	s := e.Snapshot()
	if s == nil {
		t.Fatal("Snapshot = nil after processing")
	}
	if s.Clock.TotalSamples != 256 {
		t.Fatalf("snapshot TotalSamples = %d, want 256", s.Clock.TotalSamples)
	}
	if len(s.Loops) != 4 {
		t.Fatalf("snapshot has %d loops, want 4", len(s.Loops))
	}
	if s.Loops[1].State != LoopPlaying {
		t.Fatalf("loop 1 snapshot state = %v, want playing", s.Loops[1].State)
	}
	if s.RecordingLoop != -1 {
		t.Fatalf("RecordingLoop = %d, want -1", s.RecordingLoop)
	}

	found := false
	for _, p := range s.Pending {
		if p.LoopIndex == 1 && p.Description == "mute" {
			found = true
			if p.Quantize != QuantizeBar {
				t.Fatalf("pending quantize = %v, want bar", p.Quantize)
			}
		}
	}
	if !found {
		t.Fatalf("pending mute not in snapshot: %+v", s.Pending)
	}
}

func TestEngineInputMonitoringPassesLiveMix(t *testing.T) {
	e, _ := newTestEngine(Options{})

	out := feed(e, 0.5, 1, 256)
	if out[0] != 0 {
		t.Fatalf("output = %v with monitoring off, want 0", out[0])
	}

	e.SetInputMonitoring(true)
	out = feed(e, 0.5, 1, 256)
	if out[0] != 0.5 {
		t.Fatalf("output = %v with monitoring on, want 0.5", out[0])
	}
}

func TestEngineQuietChannelsExcludedFromCapture(t *testing.T) {
	e, msgs := newTestEngine(Options{LiveThreshold: 0.5})

	feed(e, 0.1, 10, 256) // below threshold
	e.ScheduleCapture(0, QuantizeFree, 1)
	feed(e, 0.1, 1, 256)

	if !e.Loop(0).IsEmpty() {
		t.Fatal("capture succeeded with no live channels")
	}
	if !containsMessage(*msgs, "No live input") {
		t.Fatalf("no exclusion message in %v", *msgs)
	}
}

func TestEngineLoudChannelCapturedAndMasked(t *testing.T) {
	e, _ := newTestEngine(Options{LiveThreshold: 0.5})

	feed(e, 0.8, 10, 256)
	if got := e.LiveChannelMask(); got != 1 {
		t.Fatalf("LiveChannelMask = %b, want 1", got)
	}

	e.ScheduleCapture(0, QuantizeFree, 1)
	feed(e, 0.8, 1, 256)

	if e.Loop(0).IsEmpty() {
		t.Fatal("capture failed despite live channel")
	}
}

func TestEngineLookbackBarsClamped(t *testing.T) {
	e, _ := newTestEngine(Options{MaxLookbackBars: 4})

	if got := e.SetLookbackBars(100); got != 4 {
		t.Fatalf("SetLookbackBars(100) = %d, want clamp to 4", got)
	}
	if got := e.SetLookbackBars(0); got != 1 {
		t.Fatalf("SetLookbackBars(0) = %d, want clamp to 1", got)
	}
}

func TestEngineCaptureClampedToAvailableHistory(t *testing.T) {
	e, _ := newTestEngine(Options{})

	// Only 2560 samples of history, far less than one bar.
	feed(e, 0.5, 10, 256)
	e.ScheduleCapture(0, QuantizeFree, 1)
	feed(e, 0.5, 1, 256)

	lp := e.Loop(0)
	if lp.IsEmpty() {
		t.Fatal("capture failed with short history")
	}
	if got := lp.LengthSamples(); got > 2816 {
		t.Fatalf("loop length = %d, want clamp to available history", got)
	}
}

func TestEngineExecuteNowSkipsQuantization(t *testing.T) {
	e, _ := newTestEngine(Options{})
	e.Loop(0).LoadFromCapture(make([]float32, 1000))

	feed(e, 0.5, 4, 256)

	// Far from any bar boundary: both ops still land on the next block.
	e.ExecuteNow(OpClearLoop, 0)
	e.ExecuteNow(OpCaptureLoop, 1)
	feed(e, 0.5, 1, 256)

	if !e.Loop(0).IsEmpty() {
		t.Fatal("immediate clear did not empty the loop")
	}
	if e.Loop(1).IsEmpty() {
		t.Fatal("immediate capture did not fill the loop")
	}
}

func TestEngineCancelPendingLoopOnlyClearsTarget(t *testing.T) {
	e, _ := newTestEngine(Options{})
	e.Loop(0).LoadFromCapture(make([]float32, 1000))
	e.Loop(1).LoadFromCapture(make([]float32, 1000))

	e.ScheduleOp(OpMute, 0, QuantizeBar)
	e.ScheduleOp(OpMute, 1, QuantizeBar)
	feed(e, 0, 1, 256)
	if !e.Loop(0).HasPendingOps() || !e.Loop(1).HasPendingOps() {
		t.Fatal("mutes not pending on both loops")
	}

	e.CancelPendingLoop(0)
	feed(e, 0, 1, 256)

	if e.Loop(0).HasPendingOps() {
		t.Fatal("loop 0 still has pending ops after per-loop cancel")
	}
	if !e.Loop(1).HasPendingOps() {
		t.Fatal("per-loop cancel cleared loop 1 as well")
	}
}

func TestEngineScheduleMidiSyncAppliesOnAudioThread(t *testing.T) {
	e, _ := newTestEngine(Options{})

	var sent []byte
	e.MidiSync().SetSendFunc(func(b byte) { sent = append(sent, b) })

	e.ScheduleMidiSync(true)
	if e.MidiSync().IsEnabled() {
		t.Fatal("sync enabled before a block was processed")
	}
	if len(sent) != 0 {
		t.Fatalf("bytes sent before a block was processed: %v", sent)
	}

	feed(e, 0, 1, 256)

	if !e.MidiSync().IsEnabled() {
		t.Fatal("sync not enabled after processing")
	}
	if len(sent) == 0 || sent[0] != MidiStart {
		t.Fatalf("sent = %v, want leading MIDI Start byte", sent)
	}
}

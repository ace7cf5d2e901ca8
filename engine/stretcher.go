package engine

// Stretcher is a pitch-preserving time-stretch algorithm. The engine
// only schedules calls; the concrete implementation is injected so the
// core carries no dependency on any particular DSP library.
//
// Process consumes len(input) raw samples and produces len(output)
// stretched samples; the length ratio is the stretch ratio, pitch is
// held constant. Reset must be called whenever the input stream is
// discontinuous (stretch activation/deactivation, position jumps).
type Stretcher interface {
	Configure(sampleRate float64)
	Process(input, output []float32)
	Reset()
}

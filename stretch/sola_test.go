package stretch

import (
	"math"
	"testing"

	"github.com/scottyeager/retrospect/engine"
)

var _ engine.Stretcher = (*Sola)(nil)

func TestSolaPreservesConstantLevel(t *testing.T) {
	s := New()

	input := make([]float32, 640) // 1.25x ratio against a 512 output
	for i := range input {
		input[i] = 0.7
	}
	output := make([]float32, 512)

	s.Process(input, output)
	for i, v := range output {
		if math.Abs(float64(v)-0.7) > 1e-5 {
			t.Fatalf("output[%d] = %v, want 0.7", i, v)
		}
	}

	// Second call crosses the carried-tail path.
	s.Process(input, output)
	for i, v := range output {
		if math.Abs(float64(v)-0.7) > 1e-5 {
			t.Fatalf("second call output[%d] = %v, want 0.7", i, v)
		}
	}
}

func TestSolaPreservesSineLevel(t *testing.T) {
	s := New()

	const freq = 440.0
	input := make([]float32, 1024)
	for i := range input {
		input[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / 48000))
	}
	output := make([]float32, 512) // 2x speed-up

	s.Process(input, output)

	rms := func(x []float32) float64 {
		var sum float64
		for _, v := range x {
			sum += float64(v) * float64(v)
		}
		return math.Sqrt(sum / float64(len(x)))
	}

	in, out := rms(input), rms(output)
	if out < in*0.7 || out > in*1.3 {
		t.Fatalf("output rms = %v, want within 30%% of input rms %v", out, in)
	}
}

func TestSolaHandlesShortInput(t *testing.T) {
	s := New()

	input := make([]float32, 64) // shorter than a grain
	for i := range input {
		input[i] = 0.5
	}
	output := make([]float32, 256)

	s.Process(input, output) // must not panic or read out of range
	for i, v := range output {
		if math.Abs(float64(v)-0.5) > 1e-5 {
			t.Fatalf("output[%d] = %v, want 0.5", i, v)
		}
	}
}

func TestSolaEmptyInputIsNoOp(t *testing.T) {
	s := New()
	output := []float32{1, 2, 3}
	s.Process(nil, output)
	if output[0] != 1 {
		t.Fatal("Process with empty input touched the output")
	}
}

func TestSolaResetClearsCarriedTail(t *testing.T) {
	s := New()

	input := make([]float32, 512)
	for i := range input {
		input[i] = 0.9
	}
	output := make([]float32, 512)
	s.Process(input, output)

	s.Reset()

	// After a reset a silent block stays silent; a stale tail would
	// bleed the previous 0.9 level into the join.
	for i := range input {
		input[i] = 0
	}
	s.Process(input, output)
	for i, v := range output {
		if v != 0 {
			t.Fatalf("output[%d] = %v after reset, want 0", i, v)
		}
	}
}

func TestSolaConfigureScalesGrainWithRate(t *testing.T) {
	s := New()
	s.Configure(96000)
	if s.frameSize != 2*baseFrameSize {
		t.Fatalf("frameSize at 96kHz = %d, want %d", s.frameSize, 2*baseFrameSize)
	}
}

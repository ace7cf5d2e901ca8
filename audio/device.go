// Package audio owns the portaudio duplex stream. The stream callback
// is the audio thread: it hands each hardware buffer straight to the
// engine and does nothing else.
package audio

import (
	"fmt"

	pa "github.com/gordonklaus/portaudio"

	"github.com/scottyeager/retrospect/engine"
)

// Options selects the stream geometry. Zero values pick device
// defaults.
type Options struct {
	SampleRate    float64
	InputChannels int
	BufferFrames  int
}

// Device is a running duplex audio stream feeding the engine.
type Device struct {
	stream *pa.Stream
	eng    *engine.Engine

	inputName  string
	outputName string
	sampleRate float64
	inChannels int

	latencySamples int64
}

// Start initializes portaudio and opens a low-latency duplex stream on
// the default devices. The engine must already be constructed for the
// stream's channel count and sample rate; use Probe first to learn
// them.
func Start(eng *engine.Engine, opts Options) (*Device, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	inDev, err := pa.DefaultInputDevice()
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("no default input device: %w", err)
	}
	outDev, err := pa.DefaultOutputDevice()
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("no default output device: %w", err)
	}

	inCh := opts.InputChannels
	if inCh <= 0 || inCh > inDev.MaxInputChannels {
		inCh = inDev.MaxInputChannels
	}
	if inCh < 1 {
		inCh = 1
	}
	rate := opts.SampleRate
	if rate <= 0 {
		rate = outDev.DefaultSampleRate
	}
	frames := opts.BufferFrames
	if frames <= 0 {
		frames = 256
	}

	d := &Device{
		eng:        eng,
		inputName:  inDev.Name,
		outputName: outDev.Name,
		sampleRate: rate,
		inChannels: inCh,
	}

	params := pa.LowLatencyParameters(inDev, outDev)
	params.Input.Channels = inCh
	params.Output.Channels = 1
	if outDev.MaxOutputChannels >= 2 {
		params.Output.Channels = 2
	}
	params.SampleRate = rate
	params.FramesPerBuffer = frames

	stream, err := pa.OpenStream(params, d.callback)
	if err != nil {
		pa.Terminate()
		return nil, fmt.Errorf("open duplex stream: %w", err)
	}
	d.stream = stream

	info := stream.Info()
	d.sampleRate = info.SampleRate
	latency := info.InputLatency + info.OutputLatency
	d.latencySamples = int64(latency.Seconds() * info.SampleRate)

	if err := stream.Start(); err != nil {
		stream.Close()
		pa.Terminate()
		return nil, fmt.Errorf("start stream: %w", err)
	}

	return d, nil
}

// callback runs on the audio thread once per hardware buffer. The
// engine writes mono; it is copied to every output channel.
func (d *Device) callback(in, out [][]float32) {
	if len(out) == 0 {
		return
	}
	mono := out[0]
	d.eng.ProcessBlock(in, mono, len(mono))
	for ch := 1; ch < len(out); ch++ {
		copy(out[ch], mono)
	}
}

// Probe reports the default devices' channel count and sample rate
// without opening a stream, so the engine can be sized before Start.
func Probe() (inputChannels int, sampleRate float64, err error) {
	if err := pa.Initialize(); err != nil {
		return 0, 0, fmt.Errorf("portaudio init: %w", err)
	}
	defer pa.Terminate()

	inDev, err := pa.DefaultInputDevice()
	if err != nil {
		return 0, 0, fmt.Errorf("no default input device: %w", err)
	}
	outDev, err := pa.DefaultOutputDevice()
	if err != nil {
		return 0, 0, fmt.Errorf("no default output device: %w", err)
	}
	return inDev.MaxInputChannels, outDev.DefaultSampleRate, nil
}

// InputName returns the input device name.
func (d *Device) InputName() string { return d.inputName }

// OutputName returns the output device name.
func (d *Device) OutputName() string { return d.outputName }

// SampleRate returns the actual stream sample rate.
func (d *Device) SampleRate() float64 { return d.sampleRate }

// InputChannels returns the opened input channel count.
func (d *Device) InputChannels() int { return d.inChannels }

// LatencySamples returns the stream's round-trip latency in samples,
// for the engine's capture compensation.
func (d *Device) LatencySamples() int64 { return d.latencySamples }

// Close stops the stream and shuts portaudio down.
func (d *Device) Close() error {
	var first error
	if d.stream != nil {
		if err := d.stream.Stop(); err != nil && first == nil {
			first = err
		}
		if err := d.stream.Close(); err != nil && first == nil {
			first = err
		}
		d.stream = nil
	}
	if err := pa.Terminate(); err != nil && first == nil {
		first = err
	}
	return first
}

package engine

// peakBlockSize is the granularity of the activity detector. Each
// completed block stores one peak value; the window maximum is
// recomputed per block, not per sample.
const peakBlockSize = 64

// InputChannel is one live input: a lookback ring buffer plus a
// windowed peak-based activity detector.
type InputChannel struct {
	ring *RingBuffer

	blockPeaks       []float32
	blockWritePos    int
	currentBlockPeak float32
	sampleInBlock    int
	cachedPeak       float32
}

// NewInputChannel creates a channel with a ring buffer of ringCapacity
// samples and an activity window of windowSamples samples.
func NewInputChannel(ringCapacity int64, windowSamples int) *InputChannel {
	blocks := windowSamples / peakBlockSize
	if blocks < 1 {
		blocks = 1
	}
	return &InputChannel{
		ring:       NewRingBuffer(ringCapacity),
		blockPeaks: make([]float32, blocks),
	}
}

// WriteSample stores a sample in the ring buffer and feeds the peak
// tracker.
func (c *InputChannel) WriteSample(sample float32) {
	c.ring.WriteSample(sample)

	abs := sample
	if abs < 0 {
		abs = -abs
	}
	if abs > c.currentBlockPeak {
		c.currentBlockPeak = abs
	}

	c.sampleInBlock++
	if c.sampleInBlock >= peakBlockSize {
		c.blockPeaks[c.blockWritePos] = c.currentBlockPeak
		c.blockWritePos = (c.blockWritePos + 1) % len(c.blockPeaks)

		// O(blocks), runs once per completed block.
		var peak float32
		for _, p := range c.blockPeaks {
			if p > peak {
				peak = p
			}
		}
		c.cachedPeak = peak

		c.currentBlockPeak = 0
		c.sampleInBlock = 0
	}
}

// PeakLevel returns the peak absolute sample value over the activity
// window, including the current partial block.
func (c *InputChannel) PeakLevel() float32 {
	if c.currentBlockPeak > c.cachedPeak {
		return c.currentBlockPeak
	}
	return c.cachedPeak
}

// IsLive reports whether the channel peak exceeds the threshold.
// A threshold <= 0 disables detection and every channel passes.
func (c *InputChannel) IsLive(threshold float32) bool {
	if threshold <= 0 {
		return true
	}
	return c.PeakLevel() > threshold
}

// Ring exposes the channel's lookback buffer for capture.
func (c *InputChannel) Ring() *RingBuffer { return c.ring }

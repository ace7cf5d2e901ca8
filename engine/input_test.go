package engine

import "testing"

func TestInputChannelPeakTracksLoudSamples(t *testing.T) {
	c := NewInputChannel(1024, 256)

	for i := 0; i < 100; i++ {
		c.WriteSample(0.01)
	}
	c.WriteSample(-0.8)

	if got := c.PeakLevel(); got != 0.8 {
		t.Fatalf("PeakLevel = %v, want 0.8", got)
	}
	if !c.IsLive(0.5) {
		t.Fatal("IsLive(0.5) = false after 0.8 peak")
	}
}

func TestInputChannelPeakDecaysAfterWindow(t *testing.T) {
	c := NewInputChannel(65536, 256) // 4 blocks of 64

	c.WriteSample(0.9)
	// Fill enough quiet blocks to push the loud block out of the window.
	for i := 0; i < 256+peakBlockSize; i++ {
		c.WriteSample(0.01)
	}

	if got := c.PeakLevel(); got > 0.1 {
		t.Fatalf("PeakLevel = %v, want quiet after window elapsed", got)
	}
	if c.IsLive(0.5) {
		t.Fatal("IsLive(0.5) = true after signal went quiet")
	}
}

func TestInputChannelZeroThresholdIsAlwaysLive(t *testing.T) {
	c := NewInputChannel(1024, 256)
	if !c.IsLive(0) {
		t.Fatal("IsLive(0) = false, threshold 0 disables detection")
	}
}

func TestInputChannelRingReceivesSamples(t *testing.T) {
	c := NewInputChannel(64, 256)
	for i := 0; i < 10; i++ {
		c.WriteSample(float32(i))
	}
	dst := make([]float32, 3)
	c.Ring().ReadMostRecent(dst)
	want := []float32{7, 8, 9}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

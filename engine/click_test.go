package engine

import "testing"

func TestClickProducesSoundThenDecays(t *testing.T) {
	c := NewClick(48000)
	c.Trigger(true)

	var peak float32
	for i := 0; i < 48000; i++ {
		s := c.NextSample()
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		t.Fatal("click produced silence")
	}

	// Well past the click duration the generator is quiet again.
	if got := c.NextSample(); got != 0 {
		t.Fatalf("sample after decay = %v, want 0", got)
	}
}

func TestClickDisabledIgnoresTrigger(t *testing.T) {
	c := NewClick(48000)
	c.SetEnabled(false)
	c.Trigger(true)
	if got := c.NextSample(); got != 0 {
		t.Fatalf("disabled click sample = %v, want 0", got)
	}
}

func TestClickVolumeScalesOutput(t *testing.T) {
	c := NewClick(48000)
	c.SetVolume(0)
	c.Trigger(false)
	for i := 0; i < 100; i++ {
		if got := c.NextSample(); got != 0 {
			t.Fatalf("zero-volume sample = %v, want 0", got)
		}
	}
}

func TestClickDownbeatIsLouder(t *testing.T) {
	sum := func(downbeat bool) float64 {
		c := NewClick(48000)
		c.Trigger(downbeat)
		var total float64
		for i := 0; i < 2000; i++ {
			s := float64(c.NextSample())
			total += s * s
		}
		return total
	}

	if down, up := sum(true), sum(false); down <= up {
		t.Fatalf("downbeat energy %v <= beat energy %v", down, up)
	}
}

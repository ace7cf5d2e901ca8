package theme

import (
	"os"
	"path/filepath"
	"testing"
)

const samplePalette = `GIMP Palette
Name: Ocean
Columns: 4
# comment line
  0   0   0	black
128  64  32	rust
255 255 255	white
`

func TestLoadGPLParsesColorsAndName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ocean.gpl")
	if err := os.WriteFile(path, []byte(samplePalette), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadGPL(path)
	if err != nil {
		t.Fatalf("LoadGPL: %v", err)
	}
	if p.Name != "Ocean" {
		t.Fatalf("Name = %q, want Ocean", p.Name)
	}
	if len(p.Colors) != 3 {
		t.Fatalf("len(Colors) = %d, want 3", len(p.Colors))
	}
	if p.Colors[1] != (RGB{128, 64, 32}) {
		t.Fatalf("Colors[1] = %v, want {128 64 32}", p.Colors[1])
	}
}

func TestLoadGPLRejectsEmptyPalette(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.gpl")
	if err := os.WriteFile(path, []byte("GIMP Palette\nName: Nothing\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGPL(path); err == nil {
		t.Fatal("LoadGPL accepted a palette with no colors")
	}
}

func TestLoadGPLMissingFile(t *testing.T) {
	if _, err := LoadGPL(filepath.Join(t.TempDir(), "nope.gpl")); err == nil {
		t.Fatal("LoadGPL succeeded on a missing file")
	}
}

func TestLookupInterpolatesBetweenStops(t *testing.T) {
	p := &Palette{Colors: []RGB{{0, 0, 0}, {100, 200, 50}}}

	if got := p.Lookup(0); got != (RGB{0, 0, 0}) {
		t.Fatalf("Lookup(0) = %v, want first color", got)
	}
	if got := p.Lookup(1); got != (RGB{100, 200, 50}) {
		t.Fatalf("Lookup(1) = %v, want last color", got)
	}
	if got := p.Lookup(0.5); got != (RGB{50, 100, 25}) {
		t.Fatalf("Lookup(0.5) = %v, want midpoint {50 100 25}", got)
	}
	if got := p.Lookup(-3); got != (RGB{0, 0, 0}) {
		t.Fatalf("Lookup(-3) = %v, want clamp to first color", got)
	}
}

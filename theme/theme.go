package theme

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette *Palette
	Symbols Symbols
}

type Symbols struct {
	LoopEmpty     rune // · no content
	LoopPlaying   rune // ▶ playing
	LoopMuted     rune // ■ muted
	LoopRecording rune // ● recording
	LoopReversed  rune // ◀ playing reversed

	BeatTick     rune // · beat position marker
	BeatCurrent  rune // ● current beat
	BeatDownbeat rune // ◆ current beat, downbeat

	MeterFull  rune // █ level meter segment
	MeterEmpty rune // ░ unlit meter segment
	PendingOp  rune // ◌ operation waiting for its boundary
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			LoopEmpty:     '·',
			LoopPlaying:   '▶',
			LoopMuted:     '■',
			LoopRecording: '●',
			LoopReversed:  '◀',

			BeatTick:     '·',
			BeatCurrent:  '●',
			BeatDownbeat: '◆',

			MeterFull:  '█',
			MeterEmpty: '░',
			PendingOp:  '◌',
		},
	}
}

// Color roles mapped to palette positions (0-1).
const (
	RoleBG        = 0.0
	RoleSurface   = 0.1
	RoleMuted     = 0.25
	RoleFG        = 0.45
	RoleAccent    = 0.55
	RolePlaying   = 0.5
	RoleSuccess   = 0.6
	RoleWarning   = 0.75
	RoleRecording = 0.9
)

func (t *Theme) BG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleBG))
}

func (t *Theme) FG() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleFG))
}

func (t *Theme) Accent() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleAccent))
}

func (t *Theme) Muted() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleMuted))
}

func (t *Theme) Playing() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RolePlaying))
}

func (t *Theme) Recording() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleRecording))
}

func (t *Theme) Warning() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleWarning))
}

func (t *Theme) Success() lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(RoleSuccess))
}

// Color returns a lipgloss color for any normalized value 0-1, used
// for level meters.
func (t *Theme) Color(norm float64) lipgloss.Color {
	return rgbToLipgloss(t.Palette.Lookup(norm))
}

func rgbToLipgloss(c RGB) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}

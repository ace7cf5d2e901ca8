// Package tui is the bubbletea terminal interface: a clock header,
// the loop grid, input meters and a message log, refreshed from the
// engine's display snapshot at ~30fps.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/scottyeager/retrospect/engine"
	"github.com/scottyeager/retrospect/theme"
)

const (
	defaultRefresh  = 33 * time.Millisecond
	messageLogLines = 5
)

type Model struct {
	Engine *engine.Engine
	Theme  *theme.Theme

	refresh  time.Duration
	msgCh    <-chan string
	selected int
	messages []string
	quitting bool
}

type tickMsg time.Time

type engineMsg string

func NewModel(eng *engine.Engine, th *theme.Theme, msgCh <-chan string) Model {
	return Model{
		Engine:  eng,
		Theme:   th,
		refresh: defaultRefresh,
		msgCh:   msgCh,
	}
}

// SetRefresh overrides the snapshot poll interval.
func (m *Model) SetRefresh(d time.Duration) {
	if d > 0 {
		m.refresh = d
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// ListenForMessages forwards engine messages into the bubbletea loop.
func ListenForMessages(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		return engineMsg(<-ch)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), ListenForMessages(m.msgCh))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, m.tick()

	case engineMsg:
		m.messages = append(m.messages, string(msg))
		if len(m.messages) > messageLogLines {
			m.messages = m.messages[len(m.messages)-messageLogLines:]
		}
		return m, ListenForMessages(m.msgCh)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.Engine
	q := e.DefaultQuantize()

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "1", "2", "3", "4", "5", "6", "7", "8":
		idx := int(msg.String()[0] - '1')
		if idx < e.MaxLoops() {
			m.selected = idx
		}

	case "tab":
		m.selected = (m.selected + 1) % e.MaxLoops()

	case "c":
		e.ScheduleCapture(m.selected, q, 0)

	case "C":
		e.ScheduleCapture(-1, q, 0) // next empty slot

	case "r":
		if e.IsRecording() {
			e.ScheduleStopRecord(e.RecordingLoop(), q)
		} else {
			e.ScheduleRecord(m.selected, q)
		}

	case "m":
		e.ScheduleOp(engine.OpToggleMute, m.selected, q)

	case "o":
		if snap := e.Snapshot(); snap != nil && m.selected < len(snap.Loops) &&
			snap.Loops[m.selected].State == engine.LoopRecording {
			e.ScheduleOp(engine.OpStopOverdub, m.selected, q)
		} else {
			e.ScheduleOp(engine.OpStartOverdub, m.selected, q)
		}

	case "v":
		e.ScheduleOp(engine.OpReverse, m.selected, q)

	case "u":
		e.ScheduleOp(engine.OpUndoLayer, m.selected, q)

	case "U":
		e.ScheduleOp(engine.OpRedoLayer, m.selected, q)

	case "x":
		e.ExecuteNow(engine.OpClearLoop, m.selected)

	case "<":
		e.ScheduleSetSpeed(m.selected, m.loopSpeed()/2, q)

	case ">":
		e.ScheduleSetSpeed(m.selected, m.loopSpeed()*2, q)

	case "+", "=":
		e.ScheduleSetBPM(e.Clock().BPM() + 5)

	case "-", "_":
		e.ScheduleSetBPM(e.Clock().BPM() - 5)

	case "z":
		e.SetDefaultQuantize((q + 1) % 3)

	case "b":
		next := e.LookbackBars() + 1
		if next > e.MaxLookbackBars() {
			next = 1
		}
		e.SetLookbackBars(next)

	case "k":
		e.Click().SetEnabled(!e.Click().IsEnabled())

	case "n":
		e.SetInputMonitoring(!e.InputMonitoring())

	case "s":
		e.ScheduleMidiSync(!e.MidiSync().IsEnabled())

	case "esc":
		e.CancelPending()
	}

	return m, nil
}

func (m Model) loopSpeed() float64 {
	if snap := m.Engine.Snapshot(); snap != nil && m.selected < len(snap.Loops) {
		if s := snap.Loops[m.selected].Speed; s > 0 {
			return s
		}
	}
	return 1
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	snap := m.Engine.Snapshot()
	if snap == nil {
		return "starting audio..."
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	recStyle := lipgloss.NewStyle().Foreground(m.Theme.Recording())

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(m.headerLine(snap)))
	out.WriteString("\n")
	out.WriteString(dimStyle.Render(m.beatLine(snap)))
	out.WriteString("\n\n")

	for i := range snap.Loops {
		out.WriteString(m.loopLine(snap, i))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	out.WriteString(m.meterLine(snap))
	out.WriteString("\n")

	if len(snap.Pending) > 0 {
		out.WriteString(dimStyle.Render(m.pendingLine(snap)))
		out.WriteString("\n")
	}

	if len(m.messages) > 0 {
		out.WriteString("\n")
		for _, msg := range m.messages {
			out.WriteString(dimStyle.Render("  " + msg))
			out.WriteString("\n")
		}
	}

	if snap.Recording {
		out.WriteString(recStyle.Render(fmt.Sprintf("\n  REC -> loop %d", snap.RecordingLoop+1)))
		out.WriteString("\n")
	}

	out.WriteString("\n")
	out.WriteString(dimStyle.Render("  1-8:loop c:capture r:record m:mute o:overdub v:reverse u/U:undo/redo x:clear\n" +
		"  </>:speed +/-:bpm z:quantize b:lookback k:click n:monitor s:sync esc:cancel q:quit"))

	return out.String()
}

func (m Model) headerLine(snap *engine.DisplaySnapshot) string {
	e := m.Engine
	flags := ""
	if e.Click().IsEnabled() {
		flags += " click"
	}
	if e.MidiSync().IsEnabled() {
		flags += " sync"
	}
	if e.InputMonitoring() {
		flags += " mon"
	}
	return fmt.Sprintf("  retrospect  %5.1fbpm  %d/%d  bar %d  q:%s  lookback:%d%s",
		snap.Clock.BPM, snap.Clock.Beat+1, snap.Clock.BeatsPerBar,
		snap.Clock.Bar+1, e.DefaultQuantize(), e.LookbackBars(), flags)
}

func (m Model) beatLine(snap *engine.DisplaySnapshot) string {
	var b strings.Builder
	b.WriteString("  ")
	for beat := 0; beat < snap.Clock.BeatsPerBar; beat++ {
		switch {
		case beat == snap.Clock.Beat && beat == 0:
			b.WriteRune(m.Theme.Symbols.BeatDownbeat)
		case beat == snap.Clock.Beat:
			b.WriteRune(m.Theme.Symbols.BeatCurrent)
		default:
			b.WriteRune(m.Theme.Symbols.BeatTick)
		}
		b.WriteString(" ")
	}
	return b.String()
}

func (m Model) loopLine(snap *engine.DisplaySnapshot, i int) string {
	lp := snap.Loops[i]
	sym := m.Theme.Symbols
	style := lipgloss.NewStyle().Foreground(m.Theme.Muted())

	var state rune
	switch lp.State {
	case engine.LoopPlaying:
		state = sym.LoopPlaying
		if lp.Reversed {
			state = sym.LoopReversed
		}
		style = style.Foreground(m.Theme.Playing())
	case engine.LoopMuted:
		state = sym.LoopMuted
		style = style.Foreground(m.Theme.Warning())
	case engine.LoopRecording:
		state = sym.LoopRecording
		style = style.Foreground(m.Theme.Recording())
	default:
		state = sym.LoopEmpty
	}

	cursor := " "
	if i == m.selected {
		cursor = ">"
	}

	detail := ""
	if lp.State != engine.LoopEmpty {
		detail = fmt.Sprintf("  %4.1f bars  %d/%d layers  %.2fx",
			lp.LengthBars, lp.ActiveLayers, lp.Layers, lp.Speed)
		if lp.TimeStretch {
			detail += "  stretch"
		}
		if lp.LengthSamples > 0 {
			pct := float64(lp.PlayPosition) / float64(lp.LengthSamples)
			detail += fmt.Sprintf("  %3.0f%%", pct*100)
		}
	}

	pending := " "
	for _, p := range snap.Pending {
		if p.LoopIndex == i {
			pending = string(sym.PendingOp)
			break
		}
	}

	return style.Render(fmt.Sprintf("  %s %d %c %s%s", cursor, i+1, state, pending, detail))
}

func (m Model) meterLine(snap *engine.DisplaySnapshot) string {
	var b strings.Builder
	b.WriteString("  in: ")
	for ch, c := range snap.Channels {
		if ch > 0 {
			b.WriteString("  ")
		}
		b.WriteString(m.renderMeter(c))
	}
	return b.String()
}

func (m Model) renderMeter(c engine.ChannelSnapshot) string {
	const width = 8
	level := int(c.Peak * width)
	if level > width {
		level = width
	}

	var b strings.Builder
	for i := 0; i < width; i++ {
		sym := m.Theme.Symbols.MeterEmpty
		if i < level {
			sym = m.Theme.Symbols.MeterFull
		}
		norm := float64(i) / float64(width-1)
		b.WriteString(lipgloss.NewStyle().
			Foreground(m.Theme.Color(0.4 + norm*0.5)).
			Render(string(sym)))
	}
	if c.Live {
		b.WriteString(lipgloss.NewStyle().Foreground(m.Theme.Success()).Render(" *"))
	}
	return b.String()
}

func (m Model) pendingLine(snap *engine.DisplaySnapshot) string {
	parts := make([]string, 0, len(snap.Pending))
	for _, p := range snap.Pending {
		parts = append(parts, fmt.Sprintf("loop %d %s@%s", p.LoopIndex+1, p.Description, p.Quantize))
	}
	return "  pending: " + strings.Join(parts, ", ")
}

package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/scottyeager/retrospect/audio"
	"github.com/scottyeager/retrospect/config"
	"github.com/scottyeager/retrospect/debug"
	"github.com/scottyeager/retrospect/engine"
	"github.com/scottyeager/retrospect/midi"
	"github.com/scottyeager/retrospect/osc"
	"github.com/scottyeager/retrospect/stretch"
	"github.com/scottyeager/retrospect/theme"
	"github.com/scottyeager/retrospect/tui"
)

func main() {
	var (
		headless  = flag.Bool("headless", false, "run without the TUI (control via OSC)")
		listMidi  = flag.Bool("list-midi", false, "list MIDI output ports and exit")
		midiOut   = flag.String("midi-out", "", "MIDI output port for clock sync (substring match)")
		oscPort   = flag.Int("osc-port", 0, "OSC server port (overrides config)")
		monitor   = flag.Bool("monitor", false, "enable input monitoring")
		bpm       = flag.Float64("bpm", 0, "starting tempo (overrides config)")
		debugFlag = flag.Bool("debug", false, "write a debug log to ~/.config/retrospect/debug.log")
	)
	flag.Parse()

	if *listMidi {
		names := midi.ListOutputs()
		if len(names) == 0 {
			fmt.Println("no MIDI output ports")
		}
		for i, name := range names {
			fmt.Printf("  %d: %s\n", i, name)
		}
		midi.CloseDriver()
		return
	}

	if *debugFlag {
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	cfg.Validate()

	if *bpm > 0 {
		cfg.Engine.BPM = *bpm
	}
	if *oscPort > 0 {
		cfg.Osc.Port = *oscPort
	}
	if *monitor {
		cfg.Audio.InputMonitoring = true
	}

	if err := run(cfg, *headless, *midiOut); err != nil {
		fmt.Fprintf(os.Stderr, "retrospect: %v\n", err)
		os.Exit(1)
	}

	// Write the config back so a first run leaves a template to edit.
	if err := cfg.Save(); err != nil {
		debug.Log(debug.CatTui, "save config: %v", err)
	}
}

func run(cfg *config.Config, headless bool, midiOut string) error {
	inCh, rate, err := audio.Probe()
	if err != nil {
		return err
	}
	if cfg.Engine.InputChannels > 0 && cfg.Engine.InputChannels < inCh {
		inCh = cfg.Engine.InputChannels
	}
	debug.Log(debug.CatAudio, "probed %d input channels at %.0f Hz", inCh, rate)

	// Engine messages cross from the audio thread; the channel send
	// must never block there.
	msgCh := make(chan string, 64)
	onMessage := func(m string) {
		select {
		case msgCh <- m:
		default:
		}
	}

	eng := engine.New(engine.Options{
		MaxLoops:        cfg.Engine.MaxLoops,
		MaxLookbackBars: cfg.Engine.MaxLookbackBars,
		SampleRate:      rate,
		MinBPM:          cfg.Engine.MinBPM,
		InputChannels:   inCh,
		LiveThreshold:   cfg.Engine.LiveThreshold,
		LiveWindowMs:    cfg.Engine.LiveWindowMs,
		NewStretcher:    func() engine.Stretcher { return stretch.New() },
	}, engine.Callbacks{
		OnMessage: onMessage,
	})

	eng.Clock().SetBPM(cfg.Engine.BPM)
	eng.Clock().SetBeatsPerBar(cfg.Engine.BeatsPerBar)
	eng.SetDefaultQuantize(engine.Quantize(cfg.Engine.Quantize))
	eng.SetLookbackBars(cfg.Engine.LookbackBars)
	eng.SetCrossfadeSamples(int(cfg.Engine.CrossfadeMs * rate / 1000))
	eng.SetInputMonitoring(cfg.Audio.InputMonitoring)
	eng.Click().SetEnabled(cfg.Click.Enabled)
	eng.Click().SetVolume(cfg.Click.Volume)
	eng.MidiSync().SetBPM(cfg.Engine.BPM)

	// MIDI clock out, optional.
	port := midiOut
	if port == "" {
		port = cfg.Midi.OutputPort
	}
	var midiOutput *midi.Output
	if port != "" || cfg.Midi.AutoConnect {
		midiOutput, err = midi.OpenOutput(port)
		if err != nil {
			debug.Log(debug.CatMidi, "no clock output: %v", err)
		} else {
			debug.Log(debug.CatMidi, "clock output: %s", midiOutput.Name())
			eng.MidiSync().SetSendFunc(func(b byte) {
				midiOutput.SendRealtime(b)
			})
			if cfg.Midi.SyncEnabled {
				eng.MidiSync().SetEnabled(true)
			}
		}
	}
	defer func() {
		if midiOutput != nil {
			midiOutput.Close()
		}
		midi.CloseDriver()
	}()

	dev, err := audio.Start(eng, audio.Options{
		SampleRate:    rate,
		InputChannels: inCh,
	})
	if err != nil {
		return err
	}
	defer dev.Close()

	latency := dev.LatencySamples() +
		int64(cfg.Audio.ExtraLatencyMs*dev.SampleRate()/1000)
	eng.SetLatencyCompensation(latency)
	debug.Log(debug.CatAudio, "stream %s -> %s, latency compensation %d samples",
		dev.InputName(), dev.OutputName(), latency)

	var oscServer *osc.Server
	if cfg.Osc.Enabled {
		oscServer = osc.NewServer(eng, cfg.Osc.Port)
		go func() {
			if err := oscServer.ListenAndServe(); err != nil {
				debug.Log(debug.CatOsc, "server stopped: %v", err)
			}
		}()
		defer oscServer.Close()
	}

	if headless {
		return runHeadless(msgCh)
	}

	pal := theme.Default()
	if cfg.Tui.Palette != "" {
		loaded, err := theme.LoadGPL(cfg.Tui.Palette)
		if err != nil {
			debug.Log(debug.CatTui, "palette %s: %v, using built-in", cfg.Tui.Palette, err)
		} else {
			pal = loaded
		}
	}
	th := theme.New(pal)
	model := tui.NewModel(eng, th, msgCh)
	model.SetRefresh(time.Duration(cfg.Tui.RefreshMs) * time.Millisecond)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// runHeadless prints engine messages until interrupted.
func runHeadless(msgCh <-chan string) error {
	fmt.Println("retrospect running headless, ctrl+c to quit")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case m := <-msgCh:
			fmt.Println(m)
		case <-sig:
			fmt.Println("shutting down")
			return nil
		}
	}
}

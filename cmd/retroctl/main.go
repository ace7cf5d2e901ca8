// retroctl sends one control command to a running retrospect instance
// over OSC.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/scottyeager/retrospect/osc"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: retroctl [-host HOST] [-port PORT] COMMAND [ARGS]

commands:
  capture [LOOP] [BARS]     capture lookback audio (-1 = next empty slot)
  record [LOOP]             start recording
  stoprec [LOOP]            stop recording
  mute LOOP                 mute a loop
  unmute LOOP               unmute a loop
  toggle LOOP               toggle mute
  overdub LOOP on|off       start/stop overdub
  reverse LOOP              toggle reverse
  undo LOOP                 undo a layer
  redo LOOP                 redo a layer
  speed LOOP FACTOR         set playback speed
  clear LOOP                clear a loop
  bpm VALUE                 set tempo
  click on|off              metronome click
  sync on|off               MIDI clock sync
  monitor on|off            input monitoring
  quantize free|beat|bar    default quantization
  lookback BARS             capture lookback length
  cancel [LOOP]             cancel pending operations`)
	os.Exit(2)
}

func main() {
	host := flag.String("host", "127.0.0.1", "server host")
	port := flag.Int("port", 9000, "server OSC port")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	client := osc.NewControlClient(*host, *port)
	if err := dispatch(client, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "retroctl: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(client *osc.Client, cmd string, args []string) error {
	switch cmd {
	case "capture":
		loop := intOr(args, 0, -1)
		if len(args) > 1 {
			return client.Send("/loop/capture", loop, -1, floatOr(args, 1, 0))
		}
		return client.Send("/loop/capture", loop)
	case "record":
		return client.Send("/loop/record", intOr(args, 0, -1))
	case "stoprec":
		return client.Send("/loop/stoprec", intOr(args, 0, 0))
	case "mute":
		return client.Send("/loop/mute", needLoop(args))
	case "unmute":
		return client.Send("/loop/unmute", needLoop(args))
	case "toggle":
		return client.Send("/loop/toggle", needLoop(args))
	case "overdub":
		if len(args) < 2 {
			usage()
		}
		return client.Send("/loop/overdub", needLoop(args), onOff(args[1]))
	case "reverse":
		return client.Send("/loop/reverse", needLoop(args))
	case "undo":
		return client.Send("/loop/undo", needLoop(args))
	case "redo":
		return client.Send("/loop/redo", needLoop(args))
	case "speed":
		if len(args) < 2 {
			usage()
		}
		return client.Send("/loop/speed", needLoop(args), floatOr(args, 1, 1))
	case "clear":
		return client.Send("/loop/clear", needLoop(args))
	case "bpm":
		if len(args) < 1 {
			usage()
		}
		return client.Send("/bpm", floatOr(args, 0, 120))
	case "click":
		return client.Send("/click", onOffArg(args))
	case "sync":
		return client.Send("/midisync", onOffArg(args))
	case "monitor":
		return client.Send("/monitor", onOffArg(args))
	case "quantize":
		if len(args) < 1 {
			usage()
		}
		return client.Send("/quantize", quantizeMode(args[0]))
	case "lookback":
		if len(args) < 1 {
			usage()
		}
		return client.Send("/lookback", intOr(args, 0, 1))
	case "cancel":
		if len(args) > 0 {
			return client.Send("/cancel", intOr(args, 0, 0))
		}
		return client.Send("/cancel")
	}
	usage()
	return nil
}

func needLoop(args []string) int {
	if len(args) < 1 {
		usage()
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		usage()
	}
	return n
}

func intOr(args []string, idx, fallback int) int {
	if idx >= len(args) {
		return fallback
	}
	n, err := strconv.Atoi(args[idx])
	if err != nil {
		return fallback
	}
	return n
}

func floatOr(args []string, idx int, fallback float64) float64 {
	if idx >= len(args) {
		return fallback
	}
	f, err := strconv.ParseFloat(args[idx], 64)
	if err != nil {
		return fallback
	}
	return f
}

func onOff(s string) int {
	if s == "on" || s == "1" || s == "true" {
		return 1
	}
	return 0
}

func onOffArg(args []string) int {
	if len(args) < 1 {
		usage()
	}
	return onOff(args[0])
}

func quantizeMode(s string) int {
	switch s {
	case "free":
		return 0
	case "beat":
		return 1
	case "bar":
		return 2
	}
	usage()
	return 2
}

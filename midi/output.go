// Package midi connects the engine's clock sync to real MIDI output
// ports. Port discovery and raw realtime bytes go through gomidi with
// the rtmidi driver.
package midi

import (
	"fmt"
	"strings"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // register MIDI driver
)

// Output is an open MIDI output port used for clock sync.
type Output struct {
	mu   sync.Mutex
	port drivers.Out
	send func(gomidi.Message) error
}

// ListOutputs returns the names of all available MIDI output ports.
func ListOutputs() []string {
	ports := gomidi.GetOutPorts()
	names := make([]string, len(ports))
	for i, p := range ports {
		names[i] = p.String()
	}
	return names
}

// OpenOutput opens the first output port whose name contains the
// given substring, case-insensitive. An empty name opens the first
// available port.
func OpenOutput(name string) (*Output, error) {
	ports := gomidi.GetOutPorts()
	if len(ports) == 0 {
		return nil, fmt.Errorf("no MIDI output ports available")
	}

	var port drivers.Out
	if name == "" {
		port = ports[0]
	} else {
		want := strings.ToLower(name)
		for i := range ports {
			if strings.Contains(strings.ToLower(ports[i].String()), want) {
				port = ports[i]
				break
			}
		}
	}
	if port == nil {
		return nil, fmt.Errorf("no MIDI output matching %q", name)
	}

	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("open MIDI output %q: %w", port.String(), err)
	}

	return &Output{port: port, send: send}, nil
}

// Name returns the port name.
func (o *Output) Name() string {
	if o.port == nil {
		return ""
	}
	return o.port.String()
}

// SendRealtime sends a single system realtime byte (clock tick,
// start, stop). Safe for concurrent use.
func (o *Output) SendRealtime(b byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.send == nil {
		return fmt.Errorf("MIDI output closed")
	}
	return o.send(gomidi.Message([]byte{b}))
}

// Close releases the port. Further sends fail.
func (o *Output) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.send = nil
	o.port = nil
}

// CloseDriver shuts the MIDI driver down on exit.
func CloseDriver() {
	gomidi.CloseDriver()
}

// Package osc exposes the looper over UDP OSC: a server mapping
// addresses onto engine schedule calls, and periodic state push to
// subscribed clients.
//
// Address space (loop indices are 0-based, -1 means next empty slot):
//
//	/loop/capture   i:loop [i:quantize] [f:bars]
//	/loop/record    i:loop [i:quantize]
//	/loop/stoprec   i:loop [i:quantize]
//	/loop/mute      i:loop [i:quantize]
//	/loop/unmute    i:loop [i:quantize]
//	/loop/toggle    i:loop [i:quantize]
//	/loop/overdub   i:loop i:on(0|1) [i:quantize]
//	/loop/reverse   i:loop [i:quantize]
//	/loop/undo      i:loop [i:quantize]
//	/loop/redo      i:loop [i:quantize]
//	/loop/speed     i:loop f:speed [i:quantize]
//	/loop/clear     i:loop [i:quantize]
//	/bpm            f:bpm
//	/click          i:on(0|1)
//	/midisync       i:on(0|1)
//	/quantize       i:mode(0|1|2)
//	/lookback       i:bars
//	/monitor        i:on(0|1)
//	/cancel         [i:loop]
//	/subscribe      s:host i:port
//	/unsubscribe    s:host i:port
//
// Quantize values are the engine's wire encoding: 0 free, 1 beat,
// 2 bar. Omitted quantize uses the engine default.
package osc

import (
	"fmt"
	"sync"
	"time"

	goosc "github.com/hypebeast/go-osc/osc"

	"github.com/scottyeager/retrospect/debug"
	"github.com/scottyeager/retrospect/engine"
)

// Server is a running OSC control server.
type Server struct {
	eng        *engine.Engine
	server     *goosc.Server
	dispatcher *goosc.StandardDispatcher

	mu          sync.Mutex
	subscribers map[string]*goosc.Client

	pushInterval time.Duration
	done         chan struct{}
	closeOnce    sync.Once
}

// NewServer creates a server listening on the given UDP port.
func NewServer(eng *engine.Engine, port int) *Server {
	s := &Server{
		eng:          eng,
		subscribers:  make(map[string]*goosc.Client),
		pushInterval: 33 * time.Millisecond,
		done:         make(chan struct{}),
	}

	d := goosc.NewStandardDispatcher()
	s.register(d)
	s.dispatcher = d

	s.server = &goosc.Server{
		Addr:       fmt.Sprintf(":%d", port),
		Dispatcher: d,
	}
	return s
}

// ListenAndServe blocks serving OSC packets, pushing state to
// subscribers in the background. It returns when the listener fails
// or Close is called.
func (s *Server) ListenAndServe() error {
	go s.pushLoop()
	err := s.server.ListenAndServe()
	select {
	case <-s.done:
		return nil // closed deliberately
	default:
	}
	return err
}

// Close stops the push loop and the UDP listener.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.server.CloseConnection()
	})
}

func (s *Server) register(d *goosc.StandardDispatcher) {
	handle := func(addr string, fn func(*goosc.Message)) {
		d.AddMsgHandler(addr, func(msg *goosc.Message) {
			debug.Log(debug.CatOsc, "recv %s %v", msg.Address, msg.Arguments)
			fn(msg)
		})
	}

	handle("/loop/capture", func(m *goosc.Message) {
		bars := floatArg(m, 2, 0)
		s.eng.ScheduleCapture(intArg(m, 0, -1), s.quantizeArg(m, 1), bars)
	})
	handle("/loop/record", func(m *goosc.Message) {
		s.eng.ScheduleRecord(intArg(m, 0, -1), s.quantizeArg(m, 1))
	})
	handle("/loop/stoprec", func(m *goosc.Message) {
		s.eng.ScheduleStopRecord(intArg(m, 0, 0), s.quantizeArg(m, 1))
	})
	handle("/loop/mute", func(m *goosc.Message) {
		s.eng.ScheduleOp(engine.OpMute, intArg(m, 0, 0), s.quantizeArg(m, 1))
	})
	handle("/loop/unmute", func(m *goosc.Message) {
		s.eng.ScheduleOp(engine.OpUnmute, intArg(m, 0, 0), s.quantizeArg(m, 1))
	})
	handle("/loop/toggle", func(m *goosc.Message) {
		s.eng.ScheduleOp(engine.OpToggleMute, intArg(m, 0, 0), s.quantizeArg(m, 1))
	})
	handle("/loop/overdub", func(m *goosc.Message) {
		op := engine.OpStopOverdub
		if intArg(m, 1, 1) != 0 {
			op = engine.OpStartOverdub
		}
		s.eng.ScheduleOp(op, intArg(m, 0, 0), s.quantizeArg(m, 2))
	})
	handle("/loop/reverse", func(m *goosc.Message) {
		s.eng.ScheduleOp(engine.OpReverse, intArg(m, 0, 0), s.quantizeArg(m, 1))
	})
	handle("/loop/undo", func(m *goosc.Message) {
		s.eng.ScheduleOp(engine.OpUndoLayer, intArg(m, 0, 0), s.quantizeArg(m, 1))
	})
	handle("/loop/redo", func(m *goosc.Message) {
		s.eng.ScheduleOp(engine.OpRedoLayer, intArg(m, 0, 0), s.quantizeArg(m, 1))
	})
	handle("/loop/speed", func(m *goosc.Message) {
		s.eng.ScheduleSetSpeed(intArg(m, 0, 0), floatArg(m, 1, 1), s.quantizeArg(m, 2))
	})
	handle("/loop/clear", func(m *goosc.Message) {
		s.eng.ScheduleOp(engine.OpClearLoop, intArg(m, 0, 0), s.quantizeArg(m, 1))
	})

	handle("/bpm", func(m *goosc.Message) {
		s.eng.ScheduleSetBPM(floatArg(m, 0, 120))
	})
	handle("/click", func(m *goosc.Message) {
		s.eng.Click().SetEnabled(intArg(m, 0, 1) != 0)
	})
	handle("/midisync", func(m *goosc.Message) {
		s.eng.ScheduleMidiSync(intArg(m, 0, 1) != 0)
	})
	handle("/quantize", func(m *goosc.Message) {
		q := intArg(m, 0, 2)
		if q >= 0 && q <= 2 {
			s.eng.SetDefaultQuantize(engine.Quantize(q))
		}
	})
	handle("/lookback", func(m *goosc.Message) {
		s.eng.SetLookbackBars(intArg(m, 0, 1))
	})
	handle("/monitor", func(m *goosc.Message) {
		s.eng.SetInputMonitoring(intArg(m, 0, 1) != 0)
	})
	handle("/cancel", func(m *goosc.Message) {
		if len(m.Arguments) > 0 {
			s.eng.CancelPendingLoop(intArg(m, 0, 0))
			return
		}
		s.eng.CancelPending()
	})

	handle("/subscribe", func(m *goosc.Message) {
		host := stringArg(m, 0, "")
		port := intArg(m, 1, 0)
		if host == "" || port <= 0 {
			return
		}
		key := fmt.Sprintf("%s:%d", host, port)
		s.mu.Lock()
		s.subscribers[key] = goosc.NewClient(host, port)
		s.mu.Unlock()
		debug.Log(debug.CatOsc, "subscribed %s", key)
	})
	handle("/unsubscribe", func(m *goosc.Message) {
		key := fmt.Sprintf("%s:%d", stringArg(m, 0, ""), intArg(m, 1, 0))
		s.mu.Lock()
		delete(s.subscribers, key)
		s.mu.Unlock()
	})
}

// pushLoop sends engine state to every subscriber at the display
// refresh rate.
func (s *Server) pushLoop() {
	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.pushState()
		}
	}
}

func (s *Server) pushState() {
	type sub struct {
		key    string
		client *goosc.Client
	}
	s.mu.Lock()
	clients := make([]sub, 0, len(s.subscribers))
	for key, c := range s.subscribers {
		clients = append(clients, sub{key, c})
	}
	s.mu.Unlock()

	if len(clients) == 0 {
		return
	}

	snap := s.eng.Snapshot()
	if snap == nil {
		return
	}

	clock := goosc.NewMessage("/state/clock")
	clock.Append(int32(snap.Clock.Bar))
	clock.Append(int32(snap.Clock.Beat))
	clock.Append(float32(snap.Clock.BPM))

	msgs := []*goosc.Message{clock}
	for i, lp := range snap.Loops {
		m := goosc.NewMessage("/state/loop")
		m.Append(int32(i))
		m.Append(int32(lp.State))
		m.Append(float32(lp.LengthBars))
		m.Append(float32(lp.Speed))
		m.Append(boolInt(lp.Reversed))
		m.Append(boolInt(lp.TimeStretch))
		msgs = append(msgs, m)
	}

	for _, c := range clients {
		for _, m := range msgs {
			if err := c.client.Send(m); err != nil {
				debug.Log(debug.CatOsc, "push to %s failed: %v", c.key, err)
			}
		}
	}
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func (s *Server) quantizeArg(m *goosc.Message, idx int) engine.Quantize {
	if idx >= len(m.Arguments) {
		return s.eng.DefaultQuantize()
	}
	q := intArg(m, idx, int(s.eng.DefaultQuantize()))
	if q < 0 || q > 2 {
		return s.eng.DefaultQuantize()
	}
	return engine.Quantize(q)
}

func intArg(m *goosc.Message, idx, fallback int) int {
	if idx >= len(m.Arguments) {
		return fallback
	}
	switch v := m.Arguments[idx].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float32:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func floatArg(m *goosc.Message, idx int, fallback float64) float64 {
	if idx >= len(m.Arguments) {
		return fallback
	}
	switch v := m.Arguments[idx].(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	}
	return fallback
}

func stringArg(m *goosc.Message, idx int, fallback string) string {
	if idx >= len(m.Arguments) {
		return fallback
	}
	if v, ok := m.Arguments[idx].(string); ok {
		return v
	}
	return fallback
}

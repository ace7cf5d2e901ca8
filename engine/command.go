package engine

// OpType identifies a quantizable loop operation.
type OpType int

const (
	OpCaptureLoop OpType = iota // capture from the ring buffer and start playing
	OpRecord                    // start classic recording (sets loop length)
	OpStopRecord                // stop classic recording and start playback
	OpMute
	OpUnmute
	OpToggleMute
	OpReverse
	OpStartOverdub
	OpStopOverdub
	OpUndoLayer
	OpRedoLayer
	OpSetSpeed
	OpClearLoop
)

func (t OpType) String() string {
	switch t {
	case OpCaptureLoop:
		return "Capture Loop"
	case OpRecord:
		return "Record"
	case OpStopRecord:
		return "Stop Record"
	case OpMute:
		return "Mute"
	case OpUnmute:
		return "Unmute"
	case OpToggleMute:
		return "Toggle Mute"
	case OpReverse:
		return "Reverse"
	case OpStartOverdub:
		return "Start Overdub"
	case OpStopOverdub:
		return "Stop Overdub"
	case OpUndoLayer:
		return "Undo Layer"
	case OpRedoLayer:
		return "Redo Layer"
	case OpSetSpeed:
		return "Set Speed"
	case OpClearLoop:
		return "Clear"
	}
	return "Unknown"
}

type commandType int

const (
	cmdScheduleOp commandType = iota
	cmdCaptureLoop
	cmdRecord
	cmdStopRecord
	cmdSetSpeed
	cmdSetBPM
	cmdSetMidiSync
	cmdCancelPending
)

// EngineCommand travels from the control thread to the audio thread
// through the SPSC queue. It is a plain value; pushing one never
// allocates.
type EngineCommand struct {
	cmd          commandType
	op           OpType
	loop         int
	quantize     Quantize
	value        float64
	lookbackBars int
}

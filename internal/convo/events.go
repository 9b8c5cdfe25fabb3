package convo

// State names one position of the turn-taking machine.
type State string

const (
	StateIdle            State = "idle"
	StateArming          State = "arming"
	StateListeningActive State = "listening_active"
	StateDispatching     State = "dispatching"
	StateSpeaking        State = "speaking"
	StateFaulted         State = "faulted"
)

type eventKind int

const (
	evStart eventKind = iota
	evStop
	evTranscript
	evCaptureStarted
	evCaptureEnded
	evCaptureError
	evPlaybackDone
	evPlaybackError
	evDispatchDone
	evDispatchFailed
	evRetry
)

// event is the only unit the controller loop consumes. gen stamps
// playback and dispatch completions so results of a cancelled
// operation are recognized as stale and dropped.
type event struct {
	kind   eventKind
	text   string
	code   string
	detail string
	reason string
	gen    uint64
	err    error
}

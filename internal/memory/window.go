package memory

// Window is the bounded in-process conversation memory: it retains the most
// recent 2*depth turns (depth exchange pairs), evicting oldest first. A depth
// of zero means no history is ever retained or sent to the model; that is a
// configuration point, not an error.
type Window struct {
	depth int
	turns []TurnRecord
}

func NewWindow(depth int) *Window {
	if depth < 0 {
		depth = 0
	}
	return &Window{depth: depth}
}

// Depth returns the configured exchange-pair depth.
func (w *Window) Depth() int { return w.depth }

// Cap returns the maximum number of turns retained.
func (w *Window) Cap() int { return 2 * w.depth }

// Append adds a turn, evicting the oldest entries beyond the bound.
func (w *Window) Append(turn TurnRecord) {
	if w.depth == 0 {
		return
	}
	w.turns = append(w.turns, turn)
	if overflow := len(w.turns) - w.Cap(); overflow > 0 {
		w.turns = append(w.turns[:0], w.turns[overflow:]...)
	}
}

// Recent returns the retained turns in chronological order. The returned
// slice is a copy; callers may hold it across later appends.
func (w *Window) Recent() []TurnRecord {
	if len(w.turns) == 0 {
		return nil
	}
	out := make([]TurnRecord, len(w.turns))
	copy(out, w.turns)
	return out
}

// Replace rebuilds the window from a chronological slice, applying the bound.
func (w *Window) Replace(turns []TurnRecord) {
	w.turns = w.turns[:0]
	for _, t := range turns {
		w.Append(t)
	}
}

func (w *Window) Reset() {
	w.turns = w.turns[:0]
}

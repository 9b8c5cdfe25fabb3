// Package convo implements the turn-taking controller: the state
// machine that owns mutually exclusive access to speech capture and
// playback, gates entry into conversation mode behind an activation
// phrase, and survives recognizer and synthesizer faults by
// restarting safely.
package convo

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lmendes/voxgate/internal/brain"
	"github.com/lmendes/voxgate/internal/memory"
	"github.com/lmendes/voxgate/internal/observability"
	"github.com/lmendes/voxgate/internal/reliability"
)

const (
	defaultRetryBase = 500 * time.Millisecond
	defaultRetryCap  = 8 * time.Second
	defaultRetryMax  = 5

	saveTimeout  = 5 * time.Second
	fetchTimeout = 5 * time.Second
)

// Options configures one Controller. Capture, Speaker and Responder
// are required; everything else has a usable default.
type Options struct {
	SessionID        string
	ActivationPhrase string
	StopPhrase       string
	ActivationAck    string
	MemoryDepth      int

	Capture   Capture
	Speaker   Speaker
	Responder Responder
	Store     memory.Store
	Notifier  Notifier
	Metrics   *observability.Metrics

	RetryBase time.Duration
	RetryCap  time.Duration
	RetryMax  int
}

// Controller runs the turn-taking machine for one session. A single
// goroutine consumes the event channel and is the only mutator of
// state and armed; adapters feed events in through the Handle
// methods, and playback and dispatch run in tagged goroutines whose
// completions re-enter the loop as events.
type Controller struct {
	opts   Options
	window *memory.Window

	events chan event
	done   chan struct{}
	runCtx context.Context

	// Loop-owned. Never touched outside handle().
	state          State
	armed          bool
	fatalHold      bool
	captureActive  bool
	startPending   bool
	retryAttempts  int
	retryTimer     *time.Timer
	speakGen       uint64
	dispatchGen    uint64
	speakCancel    context.CancelFunc
	dispatchCancel context.CancelFunc
	dispatchStart  time.Time

	mu        sync.Mutex
	snapState State
	snapArmed bool
}

func NewController(opts Options) *Controller {
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = defaultRetryBase
	}
	if opts.RetryCap <= 0 {
		opts.RetryCap = defaultRetryCap
	}
	if opts.RetryMax <= 0 {
		opts.RetryMax = defaultRetryMax
	}
	return &Controller{
		opts:      opts,
		window:    memory.NewWindow(opts.MemoryDepth),
		events:    make(chan event, 128),
		done:      make(chan struct{}),
		state:     StateIdle,
		snapState: StateIdle,
	}
}

// Run consumes events until ctx is cancelled. It must be called
// exactly once.
func (c *Controller) Run(ctx context.Context) {
	c.runCtx = ctx
	c.rebuildWindow(ctx)

	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			c.teardown()
			return
		case ev := <-c.events:
			c.handle(ev)
		}
	}
}

// Start requests the Idle to Arming transition.
func (c *Controller) Start() { c.submit(event{kind: evStart}) }

// Stop drops the session back to Idle and disarms it, cancelling any
// in-flight dispatch or playback.
func (c *Controller) Stop(reason string) { c.submit(event{kind: evStop, reason: reason}) }

// HandleTranscript feeds one finalized transcript into the machine.
func (c *Controller) HandleTranscript(text string) {
	c.submit(event{kind: evTranscript, text: text})
}

// HandleCaptureStarted acknowledges that capture is live.
func (c *Controller) HandleCaptureStarted() { c.submit(event{kind: evCaptureStarted}) }

// HandleCaptureEnded reports that capture stopped on its own, for
// example on a platform silence timeout.
func (c *Controller) HandleCaptureEnded() { c.submit(event{kind: evCaptureEnded}) }

// HandleCaptureError reports a capture fault by platform error code.
func (c *Controller) HandleCaptureError(code, detail string) {
	c.submit(event{kind: evCaptureError, code: code, detail: detail})
}

// Snapshot returns the current state and armed flag.
func (c *Controller) Snapshot() (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapState, c.snapArmed
}

func (c *Controller) submit(ev event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func (c *Controller) handle(ev event) {
	switch ev.kind {
	case evStart:
		c.onStart()
	case evStop:
		c.stopAll(ev.reason)
	case evTranscript:
		c.onTranscript(ev.text)
	case evCaptureStarted:
		c.startPending = false
		c.captureActive = true
		c.retryAttempts = 0
	case evCaptureEnded:
		c.onCaptureEnded()
	case evCaptureError:
		c.onCaptureError(ev.code, ev.detail)
	case evPlaybackDone:
		c.onPlaybackFinished(ev.gen, "")
	case evPlaybackError:
		c.onPlaybackFinished(ev.gen, ev.detail)
	case evDispatchDone:
		c.onDispatchDone(ev.gen, ev.text)
	case evDispatchFailed:
		c.onDispatchFailed(ev.gen, ev.err)
	case evRetry:
		c.onRetryTimer()
	}
}

func (c *Controller) onStart() {
	if c.fatalHold {
		c.opts.Notifier.SystemEvent("configuration_required", "session held: configuration error")
		return
	}
	switch c.state {
	case StateIdle:
		c.setState(StateArming)
		c.requestCapture()
	case StateFaulted:
		c.retryAttempts = 0
		c.resumeListening()
	}
}

func (c *Controller) onTranscript(raw string) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return
	}

	if ContainsStopPhrase(text, c.opts.StopPhrase) {
		c.stopAll("stop phrase")
		return
	}

	switch c.state {
	case StateArming:
		if EvaluateActivation(text, c.opts.ActivationPhrase, c.armed) == DecisionArm {
			c.armed = true
			c.syncSnapshot()
			c.opts.Notifier.SystemEvent("armed", "activation phrase recognized")
			c.beginSpeaking(c.opts.ActivationAck)
		}
	case StateListeningActive:
		// An activation phrase heard while armed changes nothing for
		// arming and is still dispatched as content.
		c.beginDispatch(text)
	}
}

func (c *Controller) beginDispatch(text string) {
	c.stopCapture()
	c.setState(StateDispatching)
	c.dispatchStart = time.Now()

	history := c.window.Recent()
	userTurn := memory.TurnRecord{
		ID:        uuid.NewString(),
		SessionID: c.opts.SessionID,
		Role:      memory.RoleUser,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}
	c.window.Append(userTurn)
	c.saveTurnBestEffort(userTurn)

	c.dispatchGen++
	gen := c.dispatchGen
	ctx, cancel := context.WithCancel(c.runCtx)
	c.dispatchCancel = cancel

	limit := c.window.Cap()
	go func() {
		defer cancel()
		if c.opts.Store != nil && limit > 0 {
			if stored, err := c.opts.Store.RecentTurns(ctx, c.opts.SessionID, limit); err == nil {
				history = excludeTurn(stored, userTurn.ID)
			}
		}
		reply, err := c.opts.Responder.GenerateReply(ctx, history, text)
		if err != nil {
			c.submit(event{kind: evDispatchFailed, gen: gen, err: err})
			return
		}
		c.submit(event{kind: evDispatchDone, gen: gen, text: reply})
	}()
}

func (c *Controller) onDispatchDone(gen uint64, reply string) {
	if gen != c.dispatchGen || c.state != StateDispatching {
		return
	}
	c.dispatchCancel = nil
	if c.opts.Metrics != nil {
		c.opts.Metrics.ObserveDispatchLatency(time.Since(c.dispatchStart))
	}

	assistantTurn := memory.TurnRecord{
		ID:        uuid.NewString(),
		SessionID: c.opts.SessionID,
		Role:      memory.RoleAssistant,
		Content:   reply,
		CreatedAt: time.Now().UTC(),
	}
	c.window.Append(assistantTurn)
	c.saveTurnBestEffort(assistantTurn)

	c.opts.Notifier.AssistantText(reply)
	c.beginSpeaking(reply)
}

func (c *Controller) onDispatchFailed(gen uint64, err error) {
	if gen != c.dispatchGen || c.state != StateDispatching {
		return
	}
	c.dispatchCancel = nil

	if errors.Is(err, brain.ErrNoCredential) {
		c.fatalHold = true
		c.countProviderError("brain", "configuration_error")
		c.opts.Notifier.ErrorEvent("configuration_error", "brain", false, err.Error())
		c.setState(StateFaulted)
		return
	}

	detail := err.Error()
	retryable := false
	if me, ok := brain.AsModelError(err); ok {
		detail = me.Message
		retryable = reliability.IsRetryableHTTPStatus(me.Status)
	}
	log.Printf("convo: dispatch failed for session %s: %v", c.opts.SessionID, err)
	c.countProviderError("brain", "model_error")
	c.opts.Notifier.ErrorEvent("model_error", "brain", retryable, detail)

	// The failed attempt records no assistant turn and is not
	// re-dispatched; the user decides whether to repeat themselves.
	c.setState(StateListeningActive)
	c.requestCapture()
}

func (c *Controller) beginSpeaking(text string) {
	c.stopCapture()
	c.setState(StateSpeaking)

	c.speakGen++
	gen := c.speakGen
	ctx, cancel := context.WithCancel(c.runCtx)
	c.speakCancel = cancel

	go func() {
		defer cancel()
		err := c.opts.Speaker.Speak(ctx, text)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.submit(event{kind: evPlaybackError, gen: gen, detail: err.Error()})
			return
		}
		c.submit(event{kind: evPlaybackDone, gen: gen})
	}()
}

func (c *Controller) onPlaybackFinished(gen uint64, errDetail string) {
	if gen != c.speakGen || c.state != StateSpeaking {
		return
	}
	c.speakCancel = nil

	if errDetail != "" {
		// A synthesis failure counts as a completed playback so the
		// conversation does not stall.
		log.Printf("convo: playback failed for session %s: %s", c.opts.SessionID, errDetail)
		c.countProviderError("speech", "synthesis_error")
		c.opts.Notifier.SystemEvent("synthesis_error", errDetail)
	}

	c.resumeListening()
}

func (c *Controller) onCaptureEnded() {
	c.captureActive = false
	c.startPending = false
	if c.state != StateArming && c.state != StateListeningActive {
		return
	}
	if c.opts.Metrics != nil {
		c.opts.Metrics.CaptureRestarts.Inc()
	}
	c.requestCapture()
}

func (c *Controller) onCaptureError(code, detail string) {
	c.startPending = false
	c.captureActive = false

	switch reliability.ClassifyCaptureFault(code) {
	case reliability.CaptureFaultPermission:
		c.countProviderError("capture", "permission_denied")
		c.opts.Notifier.ErrorEvent("permission_denied", "capture", false,
			"microphone access refused; listening resumes on the next explicit start")
		c.setState(StateFaulted)
	case reliability.CaptureFaultUnavailable:
		c.fatalHold = true
		c.countProviderError("capture", "capability_unavailable")
		c.opts.Notifier.ErrorEvent("capability_unavailable", "capture", false, detail)
		c.setState(StateFaulted)
	default:
		if c.state != StateArming && c.state != StateListeningActive && c.state != StateFaulted {
			// Capture is meant to be off while dispatching or
			// speaking; the resume path restarts it.
			return
		}
		c.scheduleCaptureRetry(code, detail)
	}
}

func (c *Controller) scheduleCaptureRetry(code, detail string) {
	c.retryAttempts++
	if c.retryAttempts > c.opts.RetryMax {
		c.countProviderError("capture", "retries_exhausted")
		c.opts.Notifier.ErrorEvent("recognition_error", "capture", false,
			"capture restart retries exhausted: "+code)
		c.setState(StateFaulted)
		return
	}

	delay := reliability.ExponentialBackoff(c.retryAttempts, c.opts.RetryBase, c.opts.RetryCap)
	log.Printf("convo: capture fault %q for session %s, retry %d/%d in %s",
		code, c.opts.SessionID, c.retryAttempts, c.opts.RetryMax, delay)
	c.opts.Notifier.SystemEvent("capture_retry", code)
	c.setState(StateFaulted)

	if c.retryTimer != nil {
		c.retryTimer.Stop()
	}
	c.retryTimer = time.AfterFunc(delay, func() {
		c.submit(event{kind: evRetry})
	})
}

func (c *Controller) onRetryTimer() {
	if c.fatalHold || c.state != StateFaulted {
		return
	}
	c.resumeListening()
}

func (c *Controller) resumeListening() {
	if c.armed {
		c.setState(StateListeningActive)
	} else {
		c.setState(StateArming)
	}
	c.requestCapture()
}

// requestCapture starts capture unless it is already live, a start is
// already pending, or the machine is in a state where the microphone
// must stay closed. The pending guard is the restart debounce.
func (c *Controller) requestCapture() {
	if c.captureActive || c.startPending || c.fatalHold {
		return
	}
	if c.state == StateSpeaking || c.state == StateDispatching || c.state == StateIdle {
		return
	}
	c.startPending = true
	if err := c.opts.Capture.Start(c.runCtx); err != nil {
		c.startPending = false
		c.onCaptureError("start-failed", err.Error())
	}
}

func (c *Controller) stopCapture() {
	c.opts.Capture.Stop()
	c.captureActive = false
	c.startPending = false
}

func (c *Controller) stopAll(reason string) {
	// Bump generations first so late completions of the cancelled
	// operations are dropped as stale.
	c.speakGen++
	c.dispatchGen++
	if c.speakCancel != nil {
		c.speakCancel()
		c.speakCancel = nil
	}
	if c.dispatchCancel != nil {
		c.dispatchCancel()
		c.dispatchCancel = nil
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}

	c.stopCapture()
	c.retryAttempts = 0
	c.armed = false
	c.setState(StateIdle)
	c.opts.Notifier.SystemEvent("stopped", reason)
}

func (c *Controller) teardown() {
	if c.speakCancel != nil {
		c.speakCancel()
		c.speakCancel = nil
	}
	if c.dispatchCancel != nil {
		c.dispatchCancel()
		c.dispatchCancel = nil
	}
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.opts.Capture.Stop()
}

func (c *Controller) setState(next State) {
	prev := c.state
	c.state = next
	if c.opts.Metrics != nil && prev != next {
		c.opts.Metrics.StateTransitions.WithLabelValues(string(prev), string(next)).Inc()
	}
	c.syncSnapshot()
	c.opts.Notifier.StateChanged(next, c.armed)
}

func (c *Controller) syncSnapshot() {
	c.mu.Lock()
	c.snapState = c.state
	c.snapArmed = c.armed
	c.mu.Unlock()
}

func (c *Controller) saveTurnBestEffort(turn memory.TurnRecord) {
	if c.opts.Store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := c.opts.Store.SaveTurn(ctx, turn); err != nil {
			log.Printf("convo: save turn failed for session %s: %v", c.opts.SessionID, err)
		}
	}()
}

func (c *Controller) rebuildWindow(ctx context.Context) {
	if c.opts.Store == nil || c.window.Cap() == 0 {
		return
	}
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	stored, err := c.opts.Store.RecentTurns(fetchCtx, c.opts.SessionID, c.window.Cap())
	if err != nil {
		log.Printf("convo: rebuild window failed for session %s: %v", c.opts.SessionID, err)
		return
	}
	c.window.Replace(stored)
}

func (c *Controller) countProviderError(provider, code string) {
	if c.opts.Metrics != nil {
		c.opts.Metrics.ProviderErrors.WithLabelValues(provider, code).Inc()
	}
}

func excludeTurn(turns []memory.TurnRecord, id string) []memory.TurnRecord {
	out := turns[:0]
	for _, t := range turns {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

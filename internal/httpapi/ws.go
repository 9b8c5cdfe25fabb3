package httpapi

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lmendes/voxgate/internal/convo"
	"github.com/lmendes/voxgate/internal/protocol"
	"github.com/lmendes/voxgate/internal/session"
	"github.com/lmendes/voxgate/internal/speech"
)

const (
	wsReadLimit     = 2 << 20
	wsReadDeadline  = 120 * time.Second
	wsWriteDeadline = 10 * time.Second
)

// handleSessionWS bridges one capture/playback client to a controller.
// The websocket is the session's speech capability: transcripts and
// lifecycle events flow up, capture and speak commands flow down.
func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	if sess.Status != session.StatusActive {
		respondError(w, http.StatusConflict, "session_ended", "session is no longer active")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ws_connected").Inc()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 256)

	var synth speech.Synthesizer
	if s.synth != nil && sess.Voice.SpeechBackend != "local" {
		synth = s.synth
	}
	speaker := &wsSpeaker{
		sessionID: sessionID,
		voiceID:   sess.Voice.VoiceID,
		synth:     synth,
		outbound:  outbound,
		acks:      make(chan error, 1),
	}

	ctl := convo.NewController(convo.Options{
		SessionID:        sessionID,
		ActivationPhrase: sess.Voice.ActivationPhrase,
		StopPhrase:       sess.Voice.StopPhrase,
		ActivationAck:    sess.Voice.ActivationAck,
		MemoryDepth:      sess.Voice.MemoryDepth,
		Capture:          &wsCapture{sessionID: sessionID, outbound: outbound},
		Speaker:          speaker,
		Responder:        s.responders(sess.Voice.SystemPrompt, sess.Voice.PersonaPrompt),
		Store:            s.store,
		Notifier: &wsNotifier{
			sessionID: sessionID,
			outbound:  outbound,
			sessions:  s.sessions,
		},
		Metrics:   s.metrics,
		RetryBase: s.cfg.FaultRetryBase,
		RetryCap:  s.cfg.FaultRetryCap,
		RetryMax:  s.cfg.FaultRetryMax,
	})

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		ctl.Run(ctx)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
				if t, ok := messageTypeOf(msg); ok {
					s.metrics.WSMessages.WithLabelValues("outbound", string(t)).Inc()
				}
			}
		}
	}()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = s.sessions.Touch(sessionID)

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			sendOrDrop(outbound, protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Source:    "gateway",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}
		if t, ok := messageTypeOf(parsed); ok {
			s.metrics.WSMessages.WithLabelValues("inbound", string(t)).Inc()
		}
		s.routeClientMessage(ctl, speaker, parsed)
	}

	cancel()
	<-runDone
	<-writerDone
	_ = s.sessions.SetTurnState(sessionID, string(convo.StateIdle), false)
	s.metrics.SessionEvents.WithLabelValues("ws_disconnected").Inc()
}

func (s *Server) routeClientMessage(ctl *convo.Controller, speaker *wsSpeaker, msg any) {
	switch m := msg.(type) {
	case protocol.ClientTranscript:
		ctl.HandleTranscript(m.Text)
	case protocol.CaptureStarted:
		ctl.HandleCaptureStarted()
	case protocol.CaptureEnded:
		ctl.HandleCaptureEnded()
	case protocol.CaptureError:
		ctl.HandleCaptureError(m.Code, m.Detail)
	case protocol.PlaybackEnded:
		speaker.ack(nil)
	case protocol.PlaybackError:
		speaker.ack(errors.New(m.Detail))
	case protocol.ClientControl:
		switch m.Action {
		case "start":
			ctl.Start()
		case "stop":
			ctl.Stop("user request")
		}
	}
}

// wsCapture turns controller capture commands into websocket messages.
// The client treats a capture_start while already capturing as a no-op
// success, which gives the controller its debounced restart semantics.
type wsCapture struct {
	sessionID string
	outbound  chan<- any
}

func (c *wsCapture) Start(ctx context.Context) error {
	msg := protocol.CaptureStart{Type: protocol.TypeCaptureStart, SessionID: c.sessionID}
	select {
	case c.outbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *wsCapture) Stop() {
	sendOrDrop(c.outbound, protocol.CaptureStop{Type: protocol.TypeCaptureStop, SessionID: c.sessionID})
}

// wsSpeaker renders one utterance through the client. With a server
// synthesizer it ships audio bytes; otherwise it asks the client to use
// its platform voice. Speak blocks until the client acks playback,
// which is what upholds the capture/playback mutual exclusion across
// the wire.
type wsSpeaker struct {
	sessionID string
	voiceID   string
	synth     speech.Synthesizer
	outbound  chan<- any
	acks      chan error
}

func (s *wsSpeaker) Speak(ctx context.Context, text string) error {
	// Drop any stale ack from a previously cancelled playback.
	select {
	case <-s.acks:
	default:
	}

	var msg any
	if s.synth != nil {
		audio, err := s.synth.Synthesize(ctx, text)
		if err != nil {
			return err
		}
		msg = protocol.SpeakAudio{
			Type:        protocol.TypeSpeakAudio,
			SessionID:   s.sessionID,
			AudioBase64: base64.StdEncoding.EncodeToString(audio.Data),
			Format:      audio.Format,
		}
	} else {
		msg = protocol.SpeakText{
			Type:      protocol.TypeSpeakText,
			SessionID: s.sessionID,
			Text:      text,
			Voice:     s.voiceID,
		}
	}

	select {
	case s.outbound <- msg:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-s.acks:
		return err
	case <-ctx.Done():
		sendOrDrop(s.outbound, protocol.SystemEvent{
			Type:      protocol.TypeSystemEvent,
			SessionID: s.sessionID,
			Code:      "playback_cancel",
		})
		return ctx.Err()
	}
}

func (s *wsSpeaker) ack(err error) {
	select {
	case s.acks <- err:
	default:
	}
}

// wsNotifier forwards controller notifications to the client and
// mirrors state into the session registry.
type wsNotifier struct {
	sessionID string
	outbound  chan<- any
	sessions  *session.Manager
}

func (n *wsNotifier) StateChanged(state convo.State, armed bool) {
	_ = n.sessions.SetTurnState(n.sessionID, string(state), armed)
	sendOrDrop(n.outbound, protocol.StateChanged{
		Type:      protocol.TypeStateChanged,
		SessionID: n.sessionID,
		State:     string(state),
		Armed:     armed,
	})
}

func (n *wsNotifier) AssistantText(text string) {
	sendOrDrop(n.outbound, protocol.AssistantText{
		Type:      protocol.TypeAssistantText,
		SessionID: n.sessionID,
		Text:      text,
	})
}

func (n *wsNotifier) SystemEvent(code, detail string) {
	sendOrDrop(n.outbound, protocol.SystemEvent{
		Type:      protocol.TypeSystemEvent,
		SessionID: n.sessionID,
		Code:      code,
		Detail:    detail,
	})
}

func (n *wsNotifier) ErrorEvent(code, source string, retryable bool, detail string) {
	sendOrDrop(n.outbound, protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		SessionID: n.sessionID,
		Code:      code,
		Source:    source,
		Retryable: retryable,
		Detail:    detail,
	})
}

// sendOrDrop keeps websocket writes single-threaded and never blocks
// the controller loop; messages are dropped when the outbound queue is
// saturated.
func sendOrDrop(outbound chan<- any, msg any) {
	select {
	case outbound <- msg:
	default:
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientTranscript:
		return m.Type, true
	case protocol.CaptureStarted:
		return m.Type, true
	case protocol.CaptureEnded:
		return m.Type, true
	case protocol.CaptureError:
		return m.Type, true
	case protocol.PlaybackEnded:
		return m.Type, true
	case protocol.PlaybackError:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.CaptureStart:
		return m.Type, true
	case protocol.CaptureStop:
		return m.Type, true
	case protocol.SpeakText:
		return m.Type, true
	case protocol.SpeakAudio:
		return m.Type, true
	case protocol.StateChanged:
		return m.Type, true
	case protocol.AssistantText:
		return m.Type, true
	case protocol.SystemEvent:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}

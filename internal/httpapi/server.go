package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/lmendes/voxgate/internal/config"
	"github.com/lmendes/voxgate/internal/convo"
	"github.com/lmendes/voxgate/internal/memory"
	"github.com/lmendes/voxgate/internal/observability"
	"github.com/lmendes/voxgate/internal/session"
	"github.com/lmendes/voxgate/internal/speech"
)

// ResponderFactory builds the reply generator for one session, bound
// to that session's prompts.
type ResponderFactory func(systemPrompt, personaPrompt string) convo.Responder

type Server struct {
	cfg        config.Config
	sessions   *session.Manager
	responders ResponderFactory
	synth      speech.Synthesizer
	store      memory.Store
	metrics    *observability.Metrics
	upgrader   websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Manager, responders ResponderFactory, synth speech.Synthesizer, store memory.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:        cfg,
		sessions:   sessions,
		responders: responders,
		synth:      synth,
		store:      store,
		metrics:    metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browsers may drive a mic session when
				// the gateway is exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/assist/session", s.handleCreateSession)
	r.Get("/v1/assist/session/{id}", s.handleGetSession)
	r.Post("/v1/assist/session/{id}/end", s.handleEndSession)
	r.Get("/v1/assist/session/ws", s.handleSessionWS)
	r.Get("/v1/assist/stats", s.handleStats)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"speech_backend": s.speechBackendName(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"active_sessions": s.sessions.ActiveCount(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.metrics.StatsSnapshot())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req session.CreateRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = "anonymous"
	}

	voice := session.VoiceConfig{
		ActivationPhrase: s.cfg.ActivationPhrase,
		StopPhrase:       s.cfg.StopPhrase,
		ActivationAck:    s.cfg.ActivationAck,
		MemoryDepth:      s.cfg.MemoryDepth,
		SystemPrompt:     s.cfg.SystemPrompt,
		PersonaPrompt:    s.cfg.PersonaPrompt,
		ModelID:          s.cfg.ChatModel,
		SpeechBackend:    s.cfg.SpeechBackend,
		VoiceID:          s.cfg.TTSVoice,
	}
	if p := strings.TrimSpace(req.ActivationPhrase); p != "" {
		voice.ActivationPhrase = p
	}
	if p := strings.TrimSpace(req.StopPhrase); p != "" {
		voice.StopPhrase = p
	}
	if req.MemoryDepth != nil && *req.MemoryDepth >= 0 {
		voice.MemoryDepth = *req.MemoryDepth
	}
	if p := strings.TrimSpace(req.PersonaPrompt); p != "" {
		voice.PersonaPrompt = p
	}
	if p := strings.TrimSpace(req.VoiceID); p != "" {
		voice.VoiceID = p
	}

	sess := s.sessions.Create(req.UserID, voice)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("created").Inc()

	respondJSON(w, http.StatusCreated, session.CreateResponse{
		SessionID:       sess.ID,
		UserID:          sess.UserID,
		Status:          sess.Status,
		Voice:           sess.Voice,
		StartedAt:       sess.StartedAt,
		LastActivityAt:  sess.LastActivityAt,
		InactivityTTLMS: s.cfg.SessionInactivityTimeout.Milliseconds(),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	sess, err := s.sessions.End(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	s.metrics.SessionEvents.WithLabelValues("ended").Inc()
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) speechBackendName() string {
	if s.synth == nil {
		return "client"
	}
	return s.synth.Name()
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

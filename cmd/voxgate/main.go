package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lmendes/voxgate/internal/brain"
	"github.com/lmendes/voxgate/internal/config"
	"github.com/lmendes/voxgate/internal/convo"
	"github.com/lmendes/voxgate/internal/httpapi"
	"github.com/lmendes/voxgate/internal/memory"
	"github.com/lmendes/voxgate/internal/observability"
	"github.com/lmendes/voxgate/internal/relay"
	"github.com/lmendes/voxgate/internal/session"
	"github.com/lmendes/voxgate/internal/speech"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Printf("loaded environment from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := memory.NewStore(ctx, cfg.DatabaseURL, cfg.RedisURL)
	if err != nil {
		log.Fatalf("transcript store init failed: %v", err)
	}
	defer store.Close()

	// When a relay is configured, every outbound vendor call tunnels
	// through it; the brain and speech clients stay unaware.
	var transport http.RoundTripper
	if cfg.RelayURL != "" {
		transport = relay.NewTransport(cfg.RelayURL, cfg.ChatTimeout)
		log.Printf("routing vendor calls through relay at %s", cfg.RelayURL)
	}

	chatClient := brain.NewClient(brain.ClientOptions{
		BaseURL:     cfg.ChatBaseURL,
		APIKey:      cfg.ChatAPIKey,
		Model:       cfg.ChatModel,
		Temperature: cfg.ChatTemperature,
		MaxTokens:   cfg.ChatMaxTokens,
		Timeout:     cfg.ChatTimeout,
		Transport:   transport,
	})
	responders := func(systemPrompt, personaPrompt string) convo.Responder {
		return brain.NewOrchestrator(chatClient, systemPrompt, personaPrompt)
	}

	synth, err := speech.NewSynthesizer(speech.FactoryOptions{
		Backend: cfg.SpeechBackend,
		Remote: speech.RemoteOptions{
			BaseURL:   cfg.TTSBaseURL,
			APIKey:    cfg.TTSAPIKey,
			Model:     cfg.TTSModel,
			Voice:     cfg.TTSVoice,
			Timeout:   cfg.ChatTimeout,
			Transport: transport,
		},
		LocalCommand: cfg.LocalSynthCmd,
		LocalArgs:    splitArgs(cfg.LocalSynthArgs),
	})
	if err != nil {
		log.Fatalf("speech backend init failed: %v", err)
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	api := httpapi.New(cfg, sessions, responders, synth, store, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 5*time.Second)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

func splitArgs(raw string) []string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

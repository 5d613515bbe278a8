package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/catalog"
	"inferd/internal/config"
	"inferd/internal/credstore"
	"inferd/internal/gemini"
	"inferd/internal/httpapi"
	"inferd/internal/ollama"
	"inferd/internal/orchestrator"
	"inferd/internal/session"
)

func main() {
	// Flags with environment variable defaults
	defaultAddr := ":8090"
	if v := os.Getenv("INFERD_ADDR"); v != "" {
		defaultAddr = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :8090")
	configPath := flag.String("config", os.Getenv("INFERD_CONFIG"), "Optional config file (.yaml/.json/.toml)")
	ollamaURL := flag.String("ollama-url", os.Getenv("INFERD_OLLAMA_URL"), "Local inference daemon base URL")
	ollamaBinary := flag.String("ollama-binary", os.Getenv("INFERD_OLLAMA_BINARY"), "Bundled daemon binary, tried before PATH")
	catalogPath := flag.String("catalog", os.Getenv("INFERD_CATALOG"), "Model catalog override file")
	credentialPath := flag.String("credential-path", os.Getenv("INFERD_CREDENTIAL_PATH"), "Cloud credential file location")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "inferd").Logger()
	httpapi.SetLogger(logger)

	var cfg config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("load config")
		}
	}
	// Flags and env take precedence over the file.
	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	if explicit["addr"] || cfg.Addr == "" {
		cfg.Addr = *addr
	}
	if *ollamaURL != "" {
		cfg.OllamaURL = *ollamaURL
	}
	if *ollamaBinary != "" {
		cfg.OllamaBinary = *ollamaBinary
	}
	if *catalogPath != "" {
		cfg.CatalogPath = *catalogPath
	}
	if *credentialPath != "" {
		cfg.CredentialPath = *credentialPath
	}

	models, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("load catalog")
	}

	local := ollama.New(ollama.Config{
		BaseURL:      cfg.OllamaURL,
		BinaryPath:   cfg.OllamaBinary,
		ProbeTimeout: time.Duration(cfg.ProbeTimeoutMS) * time.Millisecond,
		SettleDelay:  time.Duration(cfg.SettleDelayMS) * time.Millisecond,
	})
	cloud := gemini.New(gemini.Config{})
	creds := credstore.New(cfg.CredentialPath)

	// Base context canceled on shutdown so background work stops with us.
	baseCtx, stopBase := context.WithCancel(context.Background())
	defer stopBase()
	httpapi.SetBaseContext(baseCtx)

	orch := orchestrator.New(local, cloud, creds, orchestrator.Config{
		Catalog:      models,
		PollInterval: time.Duration(cfg.PollIntervalSec) * time.Second,
		Events:       logPublisher{logger},
		BaseContext:  baseCtx,
	})
	orch.Initialize(baseCtx)
	go orch.RunPoller(baseCtx)

	chatLog := session.NewLog()
	threads := session.NewThreadStore()
	governor := session.NewGovernor(chatLog, threads, session.GovernorConfig{
		Ceiling:       cfg.SessionCeiling,
		Keep:          cfg.SessionKeep,
		SweepInterval: time.Duration(cfg.SweepIntervalSec) * time.Second,
		OnCleanup: func(trimmed, swept int) {
			logger.Info().Int("trimmed", trimmed).Int("swept", swept).Msg("session cleanup")
		},
	})
	go governor.Run(baseCtx)

	if cfg.MaxBodyBytes > 0 {
		httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	}
	if cfg.CORSEnabled {
		httpapi.SetCORSOptions(true, cfg.CORSOrigins,
			[]string{"GET", "POST", "OPTIONS"},
			[]string{"Accept", "Content-Type", "X-Log-Level"})
	}

	mux := httpapi.NewMux(httpapi.Deps{
		Orch:     orch,
		Log:      chatLog,
		Threads:  threads,
		Governor: governor,
	})
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("state", string(orch.Snapshot().State)).Msg("inferd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	stopBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}

// logPublisher forwards orchestrator events to the structured log.
type logPublisher struct {
	log zerolog.Logger
}

func (p logPublisher) Publish(e orchestrator.Event) {
	ev := p.log.Info().Str("event", e.Name)
	if e.ModelID != "" {
		ev = ev.Str("model", e.ModelID)
	}
	for k, v := range e.Fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg("backend event")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"personakit/coordinator"
	"personakit/core"
	"personakit/factories"
	"personakit/history"
	"personakit/persona"
	"personakit/transports/httpapi"
	wstransport "personakit/transports/websocket"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	var (
		addr         string
		settingsPath string
		personaPath  string
		devLog       bool
	)
	pflag.StringVar(&addr, "addr", "", "listen address (overrides settings.json)")
	pflag.StringVar(&settingsPath, "settings", "", "path to settings.json")
	pflag.StringVar(&personaPath, "persona", "", "path to the persona data file (overrides settings.json)")
	pflag.BoolVar(&devLog, "dev-log", false, "pretty console logging instead of JSON")
	pflag.Parse()

	if !devLog {
		core.SetLogger(*core.NewZerologLogger(os.Stdout))
	}
	logger := core.GetLogger()

	if err := godotenv.Load(".env"); err != nil {
		logger.With(map[string]any{"error": err}).Warn("No .env file found or failed to load")
	}

	settings := loadSettings(settingsPath, logger)
	if addr != "" {
		settings.Server.Addr = addr
	}
	if personaPath != "" {
		settings.PersonaPath = personaPath
	}

	settings.InjectAPIKeys(factories.APIKeys{
		Gemini:     getEnv("GEMINI_API_KEY", ""),
		ElevenLabs: getEnv("ELEVEN_LABS_API_KEY", ""),
		AssemblyAI: getEnv("ASSEMBLY_AI_API_KEY", ""),
	})
	settings.InjectOutboundProxy()

	profile, err := persona.Load(settings.PersonaPath)
	if err != nil {
		logger.With(map[string]any{"path": settings.PersonaPath, "error": err}).Warn("failed to load persona data, using fallback profile")
		profile = persona.Fallback()
	}
	logger.With(map[string]any{"persona": profile.Name}).Info("persona loaded")

	llmService, err := factories.BuildLLMService(settings.LLM, logger)
	if err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to build LLM service")
	}

	sttService := factories.BuildSTTService(settings.STT, logger)
	if sttService == nil {
		logger.Warn("speech-to-text not configured, voice input disabled")
	}

	orchestrator, err := factories.BuildOrchestrator(settings.TTS, logger)
	if err != nil {
		logger.With(map[string]any{"error": err}).Fatal("failed to build synthesis orchestrator")
	}
	if !orchestrator.HasProviders() {
		logger.Warn("no synthesis provider configured, replies will be text-only")
	}

	sessions := history.NewStore(settings.HistoryCap)
	coord := coordinator.New(settings.Coordinator, profile, llmService, sttService, orchestrator, logger)

	mux := http.NewServeMux()
	httpapi.NewServer(coord, sessions, logger).Register(mux)
	mux.Handle("GET /ws", wstransport.NewHandler(coord, sessions, logger))

	server := &http.Server{
		Addr:    settings.Server.Addr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.With(map[string]any{"addr": settings.Server.Addr}).Info("starting assistant server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.With(map[string]any{"error": err}).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.With(map[string]any{"error": err}).Error("graceful shutdown failed")
	}
}

// loadSettings loads SettingsConfig from the given file, the
// SETTINGS_PATH env var, or defaults.
func loadSettings(path string, logger *core.Logger) factories.SettingsConfig {
	if path == "" {
		path = getEnv("SETTINGS_PATH", "./settings.json")
	}
	settings, err := factories.SettingsConfigFromFile(path)
	if err != nil {
		logger.With(map[string]any{"path": path, "error": err}).Warn("failed to load settings, using defaults")
		return factories.DefaultSettingsConfig()
	}
	logger.With(map[string]any{"path": path}).Info("loaded settings")
	return settings
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

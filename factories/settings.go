package factories

import (
	"encoding/json"
	"fmt"
	"os"

	"personakit/coordinator"
	assemblyaistt "personakit/services/assemblyai/stt"
	elevenlabstts "personakit/services/elevenlabs/tts"
	geminillm "personakit/services/gemini/llm"
	streamelementstts "personakit/services/streamelements/tts"
)

// ServerConfig configures the inbound HTTP surface.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// APIKeys carries provider credentials, kept out of settings.json so
// the file can be committed; keys come from the environment.
type APIKeys struct {
	Gemini     string
	ElevenLabs string
	AssemblyAI string
}

// SettingsConfig is the top-level config loaded from settings.json.
type SettingsConfig struct {
	Server      ServerConfig       `json:"server"`
	PersonaPath string             `json:"persona_path"`
	HistoryCap  int                `json:"history_cap"`
	Coordinator coordinator.Config `json:"coordinator"`
	// OutboundProxy, when set, routes every provider call through the
	// SOCKS5 proxy at this address.
	OutboundProxy string `json:"outbound_proxy,omitempty"`

	LLM LLMFactoryConfig `json:"llm"`
	STT STTFactoryConfig `json:"stt"`
	TTS TTSFactoryConfig `json:"tts"`
}

// DefaultSettingsConfig returns a SettingsConfig pre-filled with
// provider defaults matching the hosted deployment: Gemini for
// generation, AssemblyAI for transcription, StreamElements primary /
// ElevenLabs secondary for synthesis.
func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Server:      ServerConfig{Addr: ":5000"},
		PersonaPath: "./resume_data.json",
		HistoryCap:  20,
		Coordinator: coordinator.DefaultConfig(),
		LLM:         LLMFactoryConfig{GeminiConfig: &geminillm.Config{}},
		STT:         STTFactoryConfig{AssemblyAIConfig: &assemblyaistt.Config{}},
		TTS: TTSFactoryConfig{
			Primary:   &TTSProviderConfig{StreamElementsConfig: &streamelementstts.Config{}},
			Secondary: &TTSProviderConfig{ElevenLabsConfig: &elevenlabstts.Config{}},
		},
	}
}

// SettingsConfigFromJSON parses a JSON blob into a SettingsConfig,
// filling defaults for absent sections.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	cfg := DefaultSettingsConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return SettingsConfig{}, fmt.Errorf("settings: %w", err)
	}
	return cfg, nil
}

// SettingsConfigFromFile reads and parses a SettingsConfig from a JSON file.
func SettingsConfigFromFile(path string) (SettingsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettingsConfig(), fmt.Errorf("settings: read %q: %w", path, err)
	}
	return SettingsConfigFromJSON(data)
}

// InjectAPIKeys copies environment credentials into the matching
// provider configs. A missing ElevenLabs key removes the secondary
// synthesis tier; a missing AssemblyAI key disables voice input. Both
// are downgrades, not errors.
func (c *SettingsConfig) InjectAPIKeys(keys APIKeys) {
	if c.LLM.GeminiConfig != nil && c.LLM.GeminiConfig.APIKey == "" {
		c.LLM.GeminiConfig.APIKey = keys.Gemini
	}

	if c.STT.AssemblyAIConfig != nil {
		if c.STT.AssemblyAIConfig.APIKey == "" {
			c.STT.AssemblyAIConfig.APIKey = keys.AssemblyAI
		}
		if c.STT.AssemblyAIConfig.APIKey == "" {
			c.STT.AssemblyAIConfig = nil
		}
	}

	for _, tier := range []*TTSProviderConfig{c.Primary(), c.Secondary()} {
		if tier == nil || tier.ElevenLabsConfig == nil {
			continue
		}
		if tier.ElevenLabsConfig.APIKey == "" {
			tier.ElevenLabsConfig.APIKey = keys.ElevenLabs
		}
	}
	if sec := c.Secondary(); sec != nil && sec.ElevenLabsConfig != nil && sec.ElevenLabsConfig.APIKey == "" {
		c.TTS.Secondary = nil
	}
}

// InjectOutboundProxy pushes the global SOCKS proxy address into every
// provider config that does not set its own.
func (c *SettingsConfig) InjectOutboundProxy() {
	if c.OutboundProxy == "" {
		return
	}
	if c.LLM.GeminiConfig != nil && c.LLM.GeminiConfig.ProxyAddr == "" {
		c.LLM.GeminiConfig.ProxyAddr = c.OutboundProxy
	}
	if c.STT.AssemblyAIConfig != nil && c.STT.AssemblyAIConfig.ProxyAddr == "" {
		c.STT.AssemblyAIConfig.ProxyAddr = c.OutboundProxy
	}
	for _, tier := range []*TTSProviderConfig{c.Primary(), c.Secondary()} {
		if tier == nil {
			continue
		}
		if tier.StreamElementsConfig != nil && tier.StreamElementsConfig.ProxyAddr == "" {
			tier.StreamElementsConfig.ProxyAddr = c.OutboundProxy
		}
		if tier.ElevenLabsConfig != nil && tier.ElevenLabsConfig.ProxyAddr == "" {
			tier.ElevenLabsConfig.ProxyAddr = c.OutboundProxy
		}
	}
}

// Primary returns the primary synthesis tier config, if any.
func (c *SettingsConfig) Primary() *TTSProviderConfig {
	return c.TTS.Primary
}

// Secondary returns the secondary synthesis tier config, if any.
func (c *SettingsConfig) Secondary() *TTSProviderConfig {
	return c.TTS.Secondary
}

package factories

import (
	"personakit/core"
	assemblyaistt "personakit/services/assemblyai/stt"
)

// STTFactoryConfig holds provider-specific configs for STT service
// construction. Leaving every provider config nil disables voice input
// entirely rather than failing: transcription is an optional capability.
type STTFactoryConfig struct {
	AssemblyAIConfig *assemblyaistt.Config `json:"assemblyai,omitempty"`
}

// BuildSTTService constructs an STT service from the given factory
// config, or nil when none is configured.
func BuildSTTService(config STTFactoryConfig, logger *core.Logger) core.STTService {
	if config.AssemblyAIConfig != nil {
		return assemblyaistt.NewAssemblyAISTTService(*config.AssemblyAIConfig, logger)
	}
	return nil
}

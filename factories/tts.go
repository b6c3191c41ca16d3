package factories

import (
	"errors"

	"personakit/core"
	elevenlabstts "personakit/services/elevenlabs/tts"
	streamelementstts "personakit/services/streamelements/tts"
	"personakit/synthesis"
)

// TTSProviderConfig selects one synthesis provider. Set exactly one
// field; the rest should be left nil.
type TTSProviderConfig struct {
	StreamElementsConfig *streamelementstts.Config `json:"streamelements,omitempty"`
	ElevenLabsConfig     *elevenlabstts.Config     `json:"elevenlabs,omitempty"`
}

// TTSFactoryConfig configures the two-tier synthesis fallback. Primary
// is tried first; Secondary, when set, is attempted only after a
// primary failure. Leaving Secondary nil disables fallback without
// error.
type TTSFactoryConfig struct {
	Primary   *TTSProviderConfig `json:"primary,omitempty"`
	Secondary *TTSProviderConfig `json:"secondary,omitempty"`
}

// BuildSynthesizer constructs one synthesizer from a provider config.
func BuildSynthesizer(config TTSProviderConfig, logger *core.Logger) (core.Synthesizer, error) {
	if config.StreamElementsConfig != nil {
		return streamelementstts.NewStreamElementsTTS(*config.StreamElementsConfig, logger), nil
	}
	if config.ElevenLabsConfig != nil {
		return elevenlabstts.NewElevenLabsTTS(*config.ElevenLabsConfig, logger), nil
	}
	return nil, errors.New("TTSProviderConfig: no provider config specified")
}

// BuildOrchestrator constructs the synthesis orchestrator. Either tier
// may be absent; with no providers at all the orchestrator fails every
// call with zero attempts rather than erroring at startup.
func BuildOrchestrator(config TTSFactoryConfig, logger *core.Logger) (*synthesis.Orchestrator, error) {
	var primary, secondary core.Synthesizer
	var err error

	if config.Primary != nil {
		primary, err = BuildSynthesizer(*config.Primary, logger)
		if err != nil {
			return nil, err
		}
	}
	if config.Secondary != nil {
		secondary, err = BuildSynthesizer(*config.Secondary, logger)
		if err != nil {
			return nil, err
		}
	}

	return synthesis.NewOrchestrator(primary, secondary, logger), nil
}

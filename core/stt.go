package core

import "context"

// STTService transcribes recorded audio into text. A failed
// transcription surfaces immediately to the caller so the user can
// re-record; there is no retry.
type STTService interface {
	// Transcribe validates the payload (non-empty, within the provider's
	// size limit, recognized container) and submits it to the remote
	// transcription service. mimeType describes the submitted audio,
	// e.g. "audio/wav" or "audio/webm".
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, *ProviderError)
}

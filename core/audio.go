package core

// AudioPayload carries playable audio returned by a synthesis provider
// or recorded audio submitted for transcription.
type AudioPayload struct {
	Data     []byte // Raw encoded audio bytes.
	MIMEType string // e.g. "audio/mpeg", "audio/wav".
	Provider string // Name of the provider that produced the audio, if any.
}

// Empty reports whether the payload carries no audio bytes. An empty
// body from a synthesis provider counts as a failed attempt.
func (p *AudioPayload) Empty() bool {
	return len(p.Data) == 0
}

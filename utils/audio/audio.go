package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"

	"github.com/go-audio/wav"
	"github.com/zaf/g711"
)

// MIME types recognized by DetectMIMEType.
const (
	MIMEWAV  = "audio/wav"
	MIMEMP3  = "audio/mpeg"
	MIMEOgg  = "audio/ogg"
	MIMEWebM = "audio/webm"
	MIMEULaw = "audio/basic" // raw G.711 µ-law, 8 kHz mono
)

// DetectMIMEType sniffs the container format from the payload's magic
// bytes. Returns "" when the format is not recognized; raw µ-law has no
// magic and must be declared by the caller.
func DetectMIMEType(data []byte) string {
	if len(data) < 4 {
		return ""
	}
	switch {
	case len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return MIMEWAV
	case bytes.HasPrefix(data, []byte("OggS")):
		return MIMEOgg
	case bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return MIMEWebM
	case bytes.HasPrefix(data, []byte("ID3")), data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return MIMEMP3
	}
	return ""
}

// ValidateWAV parses the RIFF/WAVE header and reports the clip duration.
// Returns an error for anything go-audio cannot decode.
func ValidateWAV(data []byte) (time.Duration, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return 0, errors.New("invalid wav file")
	}
	dur, err := dec.Duration()
	if err != nil {
		return 0, err
	}
	return dur, nil
}

// ULawToPCM converts an 8-bit µ-law byte to 16-bit PCM using the
// ITU-T G.711 standard.
func ULawToPCM(u byte) int16 {
	return g711.DecodeUlawFrame(u)
}

// ULawBytesToPCM converts µ-law bytes to 16-bit little-endian PCM bytes.
func ULawBytesToPCM(uBytes []byte) []byte {
	return g711.DecodeUlaw(uBytes)
}

// PCMBytesToULaw converts 16-bit PCM bytes to µ-law.
func PCMBytesToULaw(pcm []byte) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, errors.New("PCM data must have even length (16-bit samples)")
	}
	return g711.EncodeUlaw(pcm), nil
}

// ULawToWAV decodes raw G.711 µ-law audio (8 kHz mono, the telephony
// default) into a playable 16-bit PCM WAV file.
func ULawToWAV(uBytes []byte) ([]byte, error) {
	if len(uBytes) == 0 {
		return nil, errors.New("µ-law data is empty")
	}
	return PCMBytesToWavBytes(g711.DecodeUlaw(uBytes), 1, 8000)
}

// PCMBytesToWavBytes wraps raw 16-bit little-endian PCM in a WAV container.
func PCMBytesToWavBytes(pcm []byte, numChannels, sampleRate int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, errors.New("PCM data is empty")
	}
	if numChannels <= 0 || numChannels > 2 {
		return nil, errors.New("only mono (1) or stereo (2) channels supported")
	}
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	if len(pcm)%(2*numChannels) != 0 {
		return nil, errors.New("PCM data length doesn't match channel count")
	}

	const (
		bitsPerSample  = 16
		audioFormatPCM = 1
		subchunk1Size  = 16
	)

	blockAlign := numChannels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign
	dataSize := len(pcm)
	fileSize := 36 + dataSize // 36 = WAV header size

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))

	// RIFF header
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(fileSize))
	buf.WriteString("WAVE")

	// fmt sub-chunk
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(subchunk1Size))
	binary.Write(buf, binary.LittleEndian, uint16(audioFormatPCM))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	// data sub-chunk
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(pcm)

	return buf.Bytes(), nil
}

// GetPCMDurationSeconds returns the duration of raw 16-bit PCM audio.
func GetPCMDurationSeconds(pcm []byte, numChannels, sampleRate int) (float64, error) {
	if len(pcm) == 0 {
		return 0, errors.New("PCM data is empty")
	}
	if len(pcm)%2 != 0 {
		return 0, errors.New("PCM data must have even length (16-bit samples)")
	}
	if numChannels <= 0 || len(pcm)%(2*numChannels) != 0 {
		return 0, errors.New("PCM data length doesn't match channel count")
	}
	if sampleRate <= 0 {
		return 0, errors.New("invalid sample rate")
	}
	frameCount := len(pcm) / 2 / numChannels
	return float64(frameCount) / float64(sampleRate), nil
}

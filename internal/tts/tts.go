package tts

import (
	"context"
	"errors"
	"fmt"

	"aus-news/config"
)

// ErrSynthesisFailed indicates the provider could not produce audio for the
// text. The item survives without narration; the batch continues.
var ErrSynthesisFailed = errors.New("speech synthesis failed")

// Service converts text into audio in one fixed format per deployment (MP3).
type Service interface {
	// SynthesizeSpeech converts text to audio bytes.
	SynthesizeSpeech(ctx context.Context, text string) ([]byte, error)

	// Provider returns the TTS provider name.
	Provider() string
}

// ContentType is the media type every provider emits.
const ContentType = "audio/mpeg"

// Factory selects a TTS service from configuration.
func Factory(cfg *config.OpenAIConfig) (Service, error) {
	switch cfg.TTSProvider {
	case "openai", "":
		return NewOpenAITTS(cfg), nil
	case "edge":
		return NewEdgeTTS("audio-24khz-48kbitrate-mono-mp3"), nil
	default:
		return nil, fmt.Errorf("unknown tts provider %q", cfg.TTSProvider)
	}
}

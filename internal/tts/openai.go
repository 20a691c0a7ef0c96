package tts

import (
	"context"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"aus-news/config"
)

// OpenAITTS synthesizes speech through the OpenAI audio API.
type OpenAITTS struct {
	client *openai.Client
	model  string
	voice  string
}

// NewOpenAITTS creates the OpenAI speech service.
func NewOpenAITTS(cfg *config.OpenAIConfig) *OpenAITTS {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAITTS{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.TTSModel,
		voice:  cfg.TTSVoice,
	}
}

// SynthesizeSpeech converts text to MP3 audio bytes.
func (o *OpenAITTS) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.model),
		Input:          text,
		Voice:          openai.SpeechVoice(o.voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrSynthesisFailed, err)
	}
	return audio, nil
}

// Provider returns the TTS provider name.
func (o *OpenAITTS) Provider() string {
	return "openai"
}

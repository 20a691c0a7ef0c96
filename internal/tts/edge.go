package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// edgeVoice is the narration voice for the Edge provider.
const edgeVoice = "en-AU-NatashaNeural"

// EdgeTTS synthesizes speech through the Microsoft Edge read-aloud service.
// It is the no-API-key fallback provider.
type EdgeTTS struct {
	outputFormat string
}

// NewEdgeTTS creates an Edge TTS service emitting the given output format.
func NewEdgeTTS(outputFormat string) *EdgeTTS {
	return &EdgeTTS{outputFormat: outputFormat}
}

// SynthesizeSpeech converts text to audio bytes.
func (e *EdgeTTS) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	baseURL := "https://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"

	ssml := fmt.Sprintf(`
<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="en-AU">
	<voice name="%s">
		<prosody rate="0%%" pitch="0%%">%s</prosody>
	</voice>
</speak>`, edgeVoice, escapeXML(text))

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL, strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", e.outputFormat)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/93.0.4577.63 Safari/537.36 Edg/93.0.961.47")
	req.Header.Set("Origin", "https://speech.platform.bing.com")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSynthesisFailed, resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrSynthesisFailed, err)
	}
	return audio, nil
}

// Provider returns the TTS provider name.
func (e *EdgeTTS) Provider() string {
	return "edge"
}

func escapeXML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	text = strings.ReplaceAll(text, "\"", "&quot;")
	text = strings.ReplaceAll(text, "'", "&apos;")
	return text
}

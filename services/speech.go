package services

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	openai "github.com/sashabaranov/go-openai"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

const transcriptionPrompt = "A person talking about their family and memories."

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Synthesizer turns reply text into an audio file saved as name and returns
// the file's public URL.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, name string) (string, error)
}

type whisperTranscriber struct {
	client *openai.Client
	model  string
}

// NewWhisperTranscriber uses a Whisper model served by Groq.
func NewWhisperTranscriber(apiKey, model string) (Transcriber, error) {
	if apiKey == "" {
		return nil, goerr.New("groq api key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = GroqBaseURL
	return &whisperTranscriber{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (w *whisperTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", goerr.Wrap(ErrTranscription, "audio is empty")
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:       w.model,
		FilePath:    "utterance." + audioExtension(mimeType),
		Reader:      bytes.NewReader(audio),
		Prompt:      transcriptionPrompt,
		Temperature: 0,
		Language:    "en",
		Format:      openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", goerr.Wrap(kindError(ErrTranscription, err), "whisper request failed",
			goerr.V("mime_type", mimeType))
	}
	return strings.TrimSpace(resp.Text), nil
}

// audioExtension maps a recorder MIME type such as "audio/webm;codecs=opus"
// to the extension the transcription API uses to detect the format.
func audioExtension(mimeType string) string {
	media, _, _ := strings.Cut(mimeType, ";")
	_, sub, ok := strings.Cut(strings.TrimSpace(media), "/")
	if !ok || sub == "" {
		return "webm"
	}
	switch sub {
	case "mpeg":
		return "mp3"
	case "x-wav", "wave":
		return "wav"
	case "mp4", "x-m4a":
		return "m4a"
	default:
		return sub
	}
}

type openAISynthesizer struct {
	client  *openai.Client
	model   openai.SpeechModel
	voice   openai.SpeechVoice
	uploads *Uploads
}

func NewOpenAISynthesizer(apiKey, model, voice string, uploads *Uploads) (Synthesizer, error) {
	if apiKey == "" {
		return nil, goerr.New("openai api key is required")
	}
	return &openAISynthesizer{
		client:  openai.NewClient(apiKey),
		model:   openai.SpeechModel(model),
		voice:   openai.SpeechVoice(voice),
		uploads: uploads,
	}, nil
}

func (s *openAISynthesizer) Synthesize(ctx context.Context, text, name string) (string, error) {
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatWav,
	})
	if err != nil {
		return "", goerr.Wrap(kindError(ErrSynthesis, err), "speech request failed")
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return "", goerr.Wrap(kindError(ErrSynthesis, err), "failed to read synthesized audio")
	}
	if err := s.uploads.Write(name, audio); err != nil {
		return "", kindError(ErrSynthesis, err)
	}
	return s.uploads.URL(name), nil
}

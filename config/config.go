package config

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Config holds every setting the server and the backfill command need.
type Config struct {
	// HTTP
	Port string

	// Chroma
	ChromaURL  string
	Collection string

	// Files
	UploadsDir string

	// Gemini
	GeminiAPIKey   string
	ChatModel      string
	EmbeddingModel string

	// Speech
	GroqAPIKey         string
	TranscriptionModel string
	OpenAIAPIKey       string
	SpeechModel        string
	SpeechVoice        string

	// Pipeline
	Timeout        time.Duration
	HistoryLimit   int64
	RetrievalLimit int64

	LogLevel string
}

// Flags binds every setting to a flag with an environment variable source.
func Flags(cfg *Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "port",
			Usage:       "HTTP listen port",
			Value:       "8080",
			Sources:     cli.EnvVars("MEMENTO_PORT", "PORT"),
			Destination: &cfg.Port,
		},
		&cli.StringFlag{
			Name:        "chroma-url",
			Usage:       "Base URL of the Chroma server",
			Value:       "http://localhost:8001",
			Sources:     cli.EnvVars("CHROMA_URL"),
			Destination: &cfg.ChromaURL,
		},
		&cli.StringFlag{
			Name:        "collection",
			Usage:       "Chroma collection holding memories",
			Value:       "vectordb",
			Sources:     cli.EnvVars("MEMENTO_COLLECTION"),
			Destination: &cfg.Collection,
		},
		&cli.StringFlag{
			Name:        "uploads-dir",
			Usage:       "Directory for uploaded photos and synthesized audio",
			Value:       "uploaded_files",
			Sources:     cli.EnvVars("MEMENTO_UPLOADS_DIR"),
			Destination: &cfg.UploadsDir,
		},
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.GeminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "chat-model",
			Usage:       "Gemini model used for conversation and captioning",
			Value:       "gemini-1.5-flash",
			Sources:     cli.EnvVars("MEMENTO_CHAT_MODEL"),
			Destination: &cfg.ChatModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Gemini embedding model",
			Value:       "text-embedding-004",
			Sources:     cli.EnvVars("MEMENTO_EMBEDDING_MODEL"),
			Destination: &cfg.EmbeddingModel,
		},
		&cli.StringFlag{
			Name:        "groq-api-key",
			Usage:       "Groq API key used for speech-to-text",
			Sources:     cli.EnvVars("GROQ_API_KEY"),
			Destination: &cfg.GroqAPIKey,
		},
		&cli.StringFlag{
			Name:        "transcription-model",
			Usage:       "Whisper model served by Groq",
			Value:       "whisper-large-v3-turbo",
			Sources:     cli.EnvVars("MEMENTO_TRANSCRIPTION_MODEL"),
			Destination: &cfg.TranscriptionModel,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key used for text-to-speech",
			Sources:     cli.EnvVars("OPENAI_API_KEY"),
			Destination: &cfg.OpenAIAPIKey,
		},
		&cli.StringFlag{
			Name:        "speech-model",
			Usage:       "Text-to-speech model",
			Value:       "tts-1",
			Sources:     cli.EnvVars("MEMENTO_SPEECH_MODEL"),
			Destination: &cfg.SpeechModel,
		},
		&cli.StringFlag{
			Name:        "speech-voice",
			Usage:       "Text-to-speech voice",
			Value:       "alloy",
			Sources:     cli.EnvVars("MEMENTO_SPEECH_VOICE"),
			Destination: &cfg.SpeechVoice,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "Timeout applied to every external call",
			Value:       30 * time.Second,
			Sources:     cli.EnvVars("MEMENTO_TIMEOUT"),
			Destination: &cfg.Timeout,
		},
		&cli.IntFlag{
			Name:        "history-limit",
			Usage:       "Number of conversation turns replayed to the model",
			Value:       20,
			Sources:     cli.EnvVars("MEMENTO_HISTORY_LIMIT"),
			Destination: &cfg.HistoryLimit,
		},
		&cli.IntFlag{
			Name:        "retrieval-limit",
			Usage:       "Number of memories retrieved per utterance",
			Value:       10,
			Sources:     cli.EnvVars("MEMENTO_RETRIEVAL_LIMIT"),
			Destination: &cfg.RetrievalLimit,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("MEMENTO_LOG_LEVEL"),
			Destination: &cfg.LogLevel,
		},
	}
}

// Validate fails on settings the server cannot start without.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"GEMINI_API_KEY", c.GeminiAPIKey},
		{"GROQ_API_KEY", c.GroqAPIKey},
		{"OPENAI_API_KEY", c.OpenAIAPIKey},
		{"CHROMA_URL", c.ChromaURL},
		{"MEMENTO_COLLECTION", c.Collection},
		{"MEMENTO_UPLOADS_DIR", c.UploadsDir},
	}
	for _, r := range required {
		if r.value == "" {
			return goerr.New("required setting is missing: "+r.name, goerr.V("name", r.name))
		}
	}
	return c.validateLimits()
}

// ValidateBackfill checks the subset of settings the backfill command uses.
func (c *Config) ValidateBackfill() error {
	required := []struct {
		name  string
		value string
	}{
		{"GEMINI_API_KEY", c.GeminiAPIKey},
		{"CHROMA_URL", c.ChromaURL},
		{"MEMENTO_COLLECTION", c.Collection},
		{"MEMENTO_UPLOADS_DIR", c.UploadsDir},
	}
	for _, r := range required {
		if r.value == "" {
			return goerr.New("required setting is missing: "+r.name, goerr.V("name", r.name))
		}
	}
	return c.validateLimits()
}

func (c *Config) validateLimits() error {
	if c.Timeout <= 0 {
		return goerr.New("timeout must be positive", goerr.V("timeout", c.Timeout))
	}
	if c.HistoryLimit < 1 {
		return goerr.New("history limit must be at least 1", goerr.V("history_limit", c.HistoryLimit))
	}
	if c.RetrievalLimit < 1 || c.RetrievalLimit > 100 {
		return goerr.New("retrieval limit must be 1-100", goerr.V("retrieval_limit", c.RetrievalLimit))
	}
	return nil
}

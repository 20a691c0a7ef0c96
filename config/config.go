package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: no .env file loaded: %v", err)
	}
}

// Config is the application configuration.
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	OpenAI   OpenAIConfig
	MinIO    MinIOConfig
	GDELT    GDELTConfig
	Reddit   RedditConfig
	Pipeline PipelineConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string
	Env  string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string
}

// OpenAIConfig holds settings for chat completions and speech synthesis.
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	TTSProvider string
	TTSModel    string
	TTSVoice    string
	MaxTokens   int
}

// MinIOConfig holds object store settings.
type MinIOConfig struct {
	Endpoint        string
	BucketName      string
	AccessKeyID     string
	SecretAccessKey string
}

// GDELTConfig holds wire-article source settings.
type GDELTConfig struct {
	SourceCountry string
	DomainSuffix  string
	WindowHours   int
	MaxRecords    int
}

// RedditConfig holds discussion source settings.
type RedditConfig struct {
	Subreddits      []string
	UserAgent       string
	ListingLimit    int
	MinCommentScore int
	MaxItems        int
}

// PipelineConfig bounds the refresh run and its external calls.
type PipelineConfig struct {
	CallTimeout   time.Duration
	RunBudget     time.Duration
	MaxItems      int
	ResolveExpiry time.Duration
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvOrDefault("APP_PORT", "3001"),
			Env:  getEnvOrDefault("APP_ENV", "production"),
		},
		Log: LogConfig{
			Level: getEnvOrDefault("LOG_LEVEL", "info"),
		},
		OpenAI: OpenAIConfig{
			BaseURL:     getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      getEnvOrDefault("OPENAI_API_KEY", ""),
			Model:       getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			TTSProvider: getEnvOrDefault("TTS_PROVIDER", "openai"),
			TTSModel:    getEnvOrDefault("OPENAI_TTS_MODEL", "tts-1"),
			TTSVoice:    getEnvOrDefault("OPENAI_TTS_VOICE", "alloy"),
			MaxTokens:   getEnvIntOrDefault("OPENAI_MAX_TOKENS", 500),
		},
		MinIO: MinIOConfig{
			Endpoint:        getEnvOrDefault("MINIO_ENDPOINT", "http://localhost:9000"),
			BucketName:      getEnvOrDefault("MINIO_BUCKET_NAME", "aus-news"),
			AccessKeyID:     getEnvOrDefault("MINIO_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnvOrDefault("MINIO_SECRET_KEY", "minioadmin"),
		},
		GDELT: GDELTConfig{
			// AS is Australia in GDELT's FIPS codes, not AU (Austria).
			SourceCountry: getEnvOrDefault("GDELT_SOURCE_COUNTRY", "AS"),
			DomainSuffix:  getEnvOrDefault("GDELT_DOMAIN_SUFFIX", ".au"),
			WindowHours:   getEnvIntOrDefault("GDELT_WINDOW_HOURS", 10),
			MaxRecords:    getEnvIntOrDefault("GDELT_MAX_RECORDS", 20),
		},
		Reddit: RedditConfig{
			Subreddits:      getEnvListOrDefault("REDDIT_SUBREDDITS", []string{"australia", "AustralianPolitics", "sydney", "melbourne"}),
			UserAgent:       getEnvOrDefault("REDDIT_USER_AGENT", "aus-news/1.0"),
			ListingLimit:    getEnvIntOrDefault("REDDIT_LISTING_LIMIT", 10),
			MinCommentScore: getEnvIntOrDefault("REDDIT_MIN_COMMENT_SCORE", 2),
			MaxItems:        getEnvIntOrDefault("REDDIT_MAX_ITEMS", 15),
		},
		Pipeline: PipelineConfig{
			CallTimeout:   getEnvDurationOrDefault("PIPELINE_CALL_TIMEOUT", 60*time.Second),
			RunBudget:     getEnvDurationOrDefault("PIPELINE_RUN_BUDGET", 30*time.Minute),
			MaxItems:      getEnvIntOrDefault("PIPELINE_MAX_ITEMS", 20),
			ResolveExpiry: getEnvDurationOrDefault("AUDIO_RESOLVE_EXPIRY", 15*time.Minute),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

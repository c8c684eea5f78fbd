// Package config maps the process's flat environment variables onto the
// Config structs each pkg/* component already defines. It follows the
// teacher's cmd/agent/main.go convention (godotenv.Load, then plain
// os.Getenv with a fallback default per variable) rather than a struct-tag
// based env library — nothing in the retrieval pack reaches for one.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/meetscribe/meetscribe/pkg/apikeys"
	"github.com/meetscribe/meetscribe/pkg/dispatcher"
	"github.com/meetscribe/meetscribe/pkg/insight"
	"github.com/meetscribe/meetscribe/pkg/qa"
	"github.com/meetscribe/meetscribe/pkg/segmenter"
	"github.com/meetscribe/meetscribe/pkg/session"
	"github.com/meetscribe/meetscribe/pkg/stt"
)

// Config is the fully-resolved process configuration: one sub-config per
// component, plus the handful of top-level knobs (ports, keys, provider
// selection) that have no other home.
type Config struct {
	HTTPAddr string
	WSAddr   string

	STTVariant stt.Variant
	LLMVendor  string

	APIKeys      apikeys.Keys
	APIKeysPath  string
	GroqKey      string
	AnthropicKey string

	Segmenter  segmenter.Config
	Dispatcher dispatcher.Config
	Insight    insight.Config
	QA         qa.Config
	Session    session.Config
}

// Load reads a .env file (if present — its absence is not an error, mirroring
// the teacher's godotenv.Load handling) and then resolves every field from
// the environment, falling back to each component's own DefaultConfig for
// anything not overridden.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		// No .env file is the common case outside local development; the
		// teacher logs this at Println level and continues rather than
		// failing startup.
	}

	cfg := Config{
		HTTPAddr:     getenv("MEETSCRIBE_HTTP_ADDR", ":8080"),
		WSAddr:       getenv("MEETSCRIBE_WS_ADDR", ":8081"),
		STTVariant:   stt.Variant(getenv("STT_PROVIDER", string(stt.VariantWhisper))),
		LLMVendor:    getenv("LLM_PROVIDER", "groq"),
		APIKeysPath:  getenv("MEETSCRIBE_APIKEYS_PATH", ".env"),
		GroqKey:      os.Getenv("GROQ_API_KEY"),
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		APIKeys: apikeys.Keys{
			OpenAIKey: os.Getenv("OPENAI_API_KEY"),
			GeminiKey: os.Getenv("GOOGLE_API_KEY"),
		},
	}

	cfg.Segmenter = segmenter.DefaultConfig()
	cfg.Segmenter.SampleRate = getenvInt("MEETSCRIBE_SAMPLE_RATE", cfg.Segmenter.SampleRate)
	cfg.Segmenter.MinBatchDuration = getenvDuration("MEETSCRIBE_MIN_BATCH_DURATION", cfg.Segmenter.MinBatchDuration)
	cfg.Segmenter.MaxBatchDuration = getenvDuration("MEETSCRIBE_MAX_BATCH_DURATION", cfg.Segmenter.MaxBatchDuration)
	cfg.Segmenter.SilenceThresholdMS = getenvInt("MEETSCRIBE_SILENCE_THRESHOLD_MS", cfg.Segmenter.SilenceThresholdMS)
	cfg.Segmenter.EnergyThreshold = getenvFloat("MEETSCRIBE_ENERGY_THRESHOLD", cfg.Segmenter.EnergyThreshold)
	cfg.Segmenter.OverlapDuration = getenvDuration("MEETSCRIBE_OVERLAP_DURATION", cfg.Segmenter.OverlapDuration)

	cfg.Dispatcher = dispatcher.DefaultConfig()
	cfg.Dispatcher.RequestTimeout = getenvDuration("MEETSCRIBE_API_TIMEOUT", cfg.Dispatcher.RequestTimeout)
	cfg.Dispatcher.MaxRetries = getenvInt("MEETSCRIBE_MAX_RETRIES", cfg.Dispatcher.MaxRetries)

	cfg.Insight = insight.DefaultConfig()
	cfg.Insight.Interval = getenvDuration("MEETSCRIBE_INSIGHT_INTERVAL", cfg.Insight.Interval)

	cfg.QA = qa.DefaultConfig()

	cfg.Session = session.DefaultConfig()
	cfg.Session.MaxSessions = getenvInt("MEETSCRIBE_MAX_SESSIONS", cfg.Session.MaxSessions)
	cfg.Session.SessionTimeout = getenvDuration("MEETSCRIBE_SESSION_TIMEOUT", cfg.Session.SessionTimeout)
	cfg.Session.QuestionUpdateInterval = getenvDuration("MEETSCRIBE_QUESTION_INTERVAL", cfg.Session.QuestionUpdateInterval)

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

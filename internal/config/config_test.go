package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaultsWhenUnset(t *testing.T) {
	for _, k := range []string{
		"MEETSCRIBE_HTTP_ADDR", "STT_PROVIDER", "LLM_PROVIDER",
		"MEETSCRIBE_MAX_SESSIONS", "MEETSCRIBE_SESSION_TIMEOUT",
	} {
		os.Unsetenv(k)
	}

	cfg := Load()
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected default HTTP addr, got %q", cfg.HTTPAddr)
	}
	if cfg.LLMVendor != "groq" {
		t.Errorf("expected default llm vendor groq, got %q", cfg.LLMVendor)
	}
	if cfg.Session.SessionTimeout != time.Hour {
		t.Errorf("expected default session timeout of 1h, got %v", cfg.Session.SessionTimeout)
	}
}

func TestLoadHonorsOverrides(t *testing.T) {
	os.Setenv("MEETSCRIBE_MAX_SESSIONS", "7")
	os.Setenv("MEETSCRIBE_SESSION_TIMEOUT", "90m")
	os.Setenv("STT_PROVIDER", "gemini-audio")
	defer func() {
		os.Unsetenv("MEETSCRIBE_MAX_SESSIONS")
		os.Unsetenv("MEETSCRIBE_SESSION_TIMEOUT")
		os.Unsetenv("STT_PROVIDER")
	}()

	cfg := Load()
	if cfg.Session.MaxSessions != 7 {
		t.Errorf("expected MaxSessions=7, got %d", cfg.Session.MaxSessions)
	}
	if cfg.Session.SessionTimeout != 90*time.Minute {
		t.Errorf("expected SessionTimeout=90m, got %v", cfg.Session.SessionTimeout)
	}
	if string(cfg.STTVariant) != "gemini-audio" {
		t.Errorf("expected STTVariant=gemini-audio, got %q", cfg.STTVariant)
	}
}

func TestLoadIgnoresMalformedNumericOverride(t *testing.T) {
	os.Setenv("MEETSCRIBE_MAX_SESSIONS", "not-a-number")
	defer os.Unsetenv("MEETSCRIBE_MAX_SESSIONS")

	cfg := Load()
	if cfg.Session.MaxSessions <= 0 {
		t.Errorf("expected fallback to the default MaxSessions, got %d", cfg.Session.MaxSessions)
	}
}

// Package apikeys implements the persisted API-key store (§6.5): a `.env`
// file carrying OPENAI_API_KEY / GOOGLE_API_KEY lines, with comments and
// unrelated lines preserved across edits. Grounded on
// original_source/api_key_manager.py's APIKeyManager, adapted from its
// os.environ-mirroring behaviour to an explicit in-memory cache guarded by
// a mutex, loaded at startup with github.com/joho/godotenv the way the
// teacher's cmd/agent/main.go loads its own .env file.
package apikeys

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

const (
	openAIKeyName = "OPENAI_API_KEY"
	geminiKeyName = "GOOGLE_API_KEY"
)

var (
	openAIKeyPattern = regexp.MustCompile(`^sk-(?:proj-)?[a-zA-Z0-9]{32,}$`)
	geminiKeyPattern = regexp.MustCompile(`^AIza[a-zA-Z0-9_-]{35}$`)
)

// ValidationError reports a malformed key, mirroring the original's
// APIKeyValidationError.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

// Mask renders a key for display: full keys are never echoed back to a
// client (§6.4 get_api_keys returns masked keys). Short keys show only the
// first and last character; longer keys show the first 4 and last 5.
func Mask(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 2:
		return key
	case len(key) <= 10:
		return fmt.Sprintf("%c...%c", key[0], key[len(key)-1])
	default:
		return key[:4] + "..." + key[len(key)-5:]
	}
}

func validateOpenAI(key string) error {
	if key != "" && !openAIKeyPattern.MatchString(key) {
		return &ValidationError{Field: "openai_key", Message: "invalid OpenAI API key format"}
	}
	return nil
}

func validateGemini(key string) error {
	if key != "" && !geminiKeyPattern.MatchString(key) {
		return &ValidationError{Field: "gemini_key", Message: "invalid Gemini API key format"}
	}
	return nil
}

// Store manages the OpenAI/Gemini API keys backed by a `.env` file.
// Operations are serialised; reads always reflect the last successful
// write.
type Store struct {
	mu     sync.Mutex
	path   string
	openAI string
	gemini string
}

// Open loads keys from the given `.env` file path, creating it if absent.
// It does not touch process environment variables beyond the initial load.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte("# API Keys\n"), 0o600); err != nil {
			return nil, fmt.Errorf("apikeys: create env file: %w", err)
		}
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("apikeys: read env file: %w", err)
	}
	return &Store{path: path, openAI: values[openAIKeyName], gemini: values[geminiKeyName]}, nil
}

// Keys is the unmasked or masked key pair, per caller's choice.
type Keys struct {
	OpenAIKey string
	GeminiKey string
}

// Get returns the current keys, masked for display when masked is true
// (the shape §6.4's get_api_keys response requires).
func (s *Store) Get(masked bool) Keys {
	s.mu.Lock()
	defer s.mu.Unlock()
	if masked {
		return Keys{OpenAIKey: Mask(s.openAI), GeminiKey: Mask(s.gemini)}
	}
	return Keys{OpenAIKey: s.openAI, GeminiKey: s.gemini}
}

// Set validates and persists both keys, replacing the matching line in the
// `.env` file if present, appending it otherwise, and preserving every
// other line (including comments) untouched. An empty key clears that
// entry rather than rejecting it.
func (s *Store) Set(openAIKey, geminiKey string) error {
	if err := validateOpenAI(openAIKey); err != nil {
		return err
	}
	if err := validateGemini(geminiKey); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.updateLineLocked(openAIKeyName, openAIKey); err != nil {
		return err
	}
	if err := s.updateLineLocked(geminiKeyName, geminiKey); err != nil {
		return err
	}
	s.openAI = openAIKey
	s.gemini = geminiKey
	return nil
}

// updateLineLocked rewrites s.path, replacing the first "KEY=..." line for
// name if present, appending "KEY=value" otherwise. All other lines
// (comments, blank lines, unrelated keys) pass through unchanged. Caller
// must hold s.mu.
func (s *Store) updateLineLocked(name, value string) error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("apikeys: read env file: %w", err)
	}

	lines := strings.Split(string(raw), "\n")
	prefix := name + "="
	replaced := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), prefix) {
			lines[i] = prefix + value
			replaced = true
			break
		}
	}
	if !replaced {
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines[len(lines)-1] = prefix + value
			lines = append(lines, "")
		} else {
			lines = append(lines, prefix+value)
		}
	}

	return os.WriteFile(s.path, []byte(strings.Join(lines, "\n")), 0o600)
}

package apikeys

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMask(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"ab", "ab"},
		{"abcdefgh", "a...h"},
		{"sk-abcdefghijklmnopqrstuvwxyz0123456789", "sk-a...56789"},
	}
	for _, c := range cases {
		if got := Mask(c.in); got != c.want {
			t.Errorf("Mask(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestOpenCreatesFileIfMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected env file to be created: %v", err)
	}
	keys := store.Get(false)
	if keys.OpenAIKey != "" || keys.GeminiKey != "" {
		t.Errorf("expected empty keys on fresh file, got %+v", keys)
	}
}

func TestSetReplacesExistingLinePreservingComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	initial := "# leading comment\nOPENAI_API_KEY=old-value\n# trailing comment\n"
	if err := os.WriteFile(path, []byte(initial), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	store, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	validOpenAI := "sk-" + strings.Repeat("a", 32)
	validGemini := "AIza" + strings.Repeat("b", 35)
	if err := store.Set(validOpenAI, validGemini); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	content := string(raw)
	if !strings.Contains(content, "# leading comment") || !strings.Contains(content, "# trailing comment") {
		t.Errorf("expected comments preserved, got %q", content)
	}
	if !strings.Contains(content, "OPENAI_API_KEY="+validOpenAI) {
		t.Errorf("expected replaced openai key line, got %q", content)
	}
	if !strings.Contains(content, "GOOGLE_API_KEY="+validGemini) {
		t.Errorf("expected appended gemini key line, got %q", content)
	}

	masked := store.Get(true)
	if masked.OpenAIKey == validOpenAI || masked.OpenAIKey == "" {
		t.Errorf("expected masked key, got %q", masked.OpenAIKey)
	}
}

func TestSetRejectsInvalidKeyFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Set("not-a-valid-key", ""); err == nil {
		t.Fatal("expected validation error for malformed openai key")
	}
}

func TestSetAllowsClearingAKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	validOpenAI := "sk-" + strings.Repeat("a", 32)
	if err := store.Set(validOpenAI, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Set("", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	keys := store.Get(false)
	if keys.OpenAIKey != "" {
		t.Errorf("expected cleared openai key, got %q", keys.OpenAIKey)
	}
}

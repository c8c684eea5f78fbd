package insight

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubProvider struct {
	name      string
	generateF func(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	return s.generateF(ctx, prompt, temperature, maxTokens)
}

type stubSource struct {
	kb, transcript, intent string
}

func (s stubSource) KnowledgeBaseContent() string { return s.kb }
func (s stubSource) TranscriptText() string       { return s.transcript }
func (s stubSource) Intent() string               { return s.intent }

func TestKindForTickAlternates(t *testing.T) {
	interval := 2 * time.Minute
	base := time.Unix(0, 0)

	if got := KindForTick(base, interval); got != KindSummary {
		t.Errorf("expected summary at tick 0, got %v", got)
	}
	if got := KindForTick(base.Add(interval), interval); got != KindThemes {
		t.Errorf("expected themes at tick 1, got %v", got)
	}
	if got := KindForTick(base.Add(2*interval), interval); got != KindSummary {
		t.Errorf("expected summary at tick 2, got %v", got)
	}
}

func TestBuildPromptOmitsEmptySections(t *testing.T) {
	got := BuildPrompt("", "", "task", "transcript text")
	if contains(got, "Reference knowledge base") || contains(got, "Session intent") {
		t.Errorf("expected empty sections omitted, got %q", got)
	}

	got = BuildPrompt("kb content", "focus on budget", "task", "transcript text")
	if !contains(got, "kb content") || !contains(got, "focus on budget") {
		t.Errorf("expected kb and intent present, got %q", got)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}

func TestGeneratorTickEmitsInsight(t *testing.T) {
	provider := &stubProvider{name: "stub", generateF: func(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
		return "  a tidy summary  ", nil
	}}
	source := stubSource{transcript: "hello world"}
	gen := NewGenerator(Config{Interval: time.Minute, Temperature: 0.3, MaxTokens: 100}, provider, source, nil)

	gen.tick(context.Background(), time.Unix(0, 0))

	select {
	case got := <-gen.Out:
		if got.Content != "a tidy summary" {
			t.Errorf("expected trimmed content, got %q", got.Content)
		}
		if got.Kind != KindSummary {
			t.Errorf("expected summary kind, got %v", got.Kind)
		}
	default:
		t.Fatal("expected an insight on Out")
	}
}

func TestGeneratorTickSkipsOnError(t *testing.T) {
	provider := &stubProvider{name: "stub", generateF: func(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
		return "", errors.New("llm down")
	}}
	gen := NewGenerator(DefaultConfig(), provider, stubSource{}, nil)

	gen.tick(context.Background(), time.Unix(0, 0))

	select {
	case got := <-gen.Out:
		t.Fatalf("expected no insight on LLM error, got %+v", got)
	default:
	}
}

func TestSuggestedQuestionsParsesAndPads(t *testing.T) {
	provider := &stubProvider{name: "stub", generateF: func(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
		return "1. What is the deadline?\n- Who owns this?\nnot a question\n", nil
	}}

	got := SuggestedQuestions(context.Background(), provider, DefaultConfig(), "", "", "transcript")
	if len(got) != 4 {
		t.Fatalf("expected exactly 4 questions, got %d: %v", len(got), got)
	}
	if got[0] != "What is the deadline?" || got[1] != "Who owns this?" {
		t.Errorf("unexpected parsed questions: %v", got)
	}
}

func TestSuggestedQuestionsReturnsDefaultsOnError(t *testing.T) {
	provider := &stubProvider{name: "stub", generateF: func(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
		return "", errors.New("down")
	}}

	got := SuggestedQuestions(context.Background(), provider, DefaultConfig(), "", "", "transcript")
	if len(got) != 4 {
		t.Fatalf("expected 4 default questions, got %d", len(got))
	}
	if got[0] != defaultQuestions[0] {
		t.Errorf("expected default questions, got %v", got)
	}
}

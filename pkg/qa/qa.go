// Package qa implements the interactive Q&A handler (C7): answering a
// client's question against the live transcript and knowledge base, and
// generating suggested-question sets shared with C6's periodic capability
// (§4.7). Per-client history is a bounded, oldest-pruned slice, the same
// shape as the teacher's ConversationSession message history
// (pkg/orchestrator/types.go) generalized from a turn-by-turn voice
// conversation to a cap on Q&A pairs.
package qa

import (
	"context"
	"sync"

	"github.com/meetscribe/meetscribe/pkg/insight"
	"github.com/meetscribe/meetscribe/pkg/llm"
)

// Message is one turn in a client's Q&A history.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Source supplies the transcript/knowledge-base/intent snapshots the prompt
// assembly step needs, the same collaborator C6 reads from.
type Source interface {
	KnowledgeBaseContent() string
	TranscriptText() string
	Intent() string
}

// Config controls history length and the LLM call.
type Config struct {
	MaxConversationLength int
	Temperature           float64
	MaxTokens             int
}

func DefaultConfig() Config {
	return Config{
		MaxConversationLength: 20,
		Temperature:           0.4,
		MaxTokens:             512,
	}
}

// Handler answers questions for one client and keeps that client's bounded
// chat history (§4.7 Per-client Q&A state). Intent is not owned here; it is
// shared process-wide and read from Source.
type Handler struct {
	cfg      Config
	provider llm.Provider
	source   Source

	mu      sync.Mutex
	history []Message
}

func NewHandler(cfg Config, provider llm.Provider, source Source) *Handler {
	return &Handler{cfg: cfg, provider: provider, source: source}
}

// History returns a copy of the current chat history.
func (h *Handler) History() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.history))
	copy(out, h.history)
	return out
}

// Answer implements §4.7's Answer operation: append the question, build the
// same prompt-assembly rules as C6 with the question as the task, call the
// LLM, append the response, and prune. On an LLM error it returns the error
// to the caller for surfacing as a typed error to the client (§4.7 Failure)
// without mutating history beyond the appended question.
func (h *Handler) Answer(ctx context.Context, question string) (string, error) {
	h.mu.Lock()
	h.history = append(h.history, Message{Role: "user", Content: question})
	h.pruneLocked()
	h.mu.Unlock()

	task := "Answer the following question using only the information in the transcript and knowledge base below.\nQuestion: " + question
	prompt := insight.BuildPrompt(h.source.KnowledgeBaseContent(), h.source.Intent(), task, h.source.TranscriptText())

	text, err := h.provider.Generate(ctx, prompt, h.cfg.Temperature, h.cfg.MaxTokens)
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	h.history = append(h.history, Message{Role: "assistant", Content: text})
	h.pruneLocked()
	h.mu.Unlock()

	return text, nil
}

// SuggestedQuestions delegates to the shared capability C6 and C7 both use
// (§4.6 Responsibility); failures degrade to the default four-question set
// rather than propagating (§4.7 Failure).
func (h *Handler) SuggestedQuestions(ctx context.Context) []string {
	insightCfg := insight.Config{Temperature: h.cfg.Temperature, MaxTokens: h.cfg.MaxTokens}
	return insight.SuggestedQuestions(ctx, h.provider, insightCfg, h.source.KnowledgeBaseContent(), h.source.Intent(), h.source.TranscriptText())
}

// pruneLocked drops the oldest entries once history exceeds
// MaxConversationLength. Caller must hold h.mu.
func (h *Handler) pruneLocked() {
	max := h.cfg.MaxConversationLength
	if max <= 0 {
		return
	}
	if over := len(h.history) - max; over > 0 {
		h.history = h.history[over:]
	}
}

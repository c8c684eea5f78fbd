// Package llm implements the insight generator and Q&A handler's shared LLM
// adapter abstraction (§6.3). It is adapted from the teacher's
// pkg/providers/llm package: the same four vendor request shapes
// (Anthropic/OpenAI/Google/Groq), but collapsed from a multi-message
// Complete(ctx, []Message) call to a single-prompt Generate call, since C6
// and C7 assemble one concatenated prompt rather than a running chat
// history.
package llm

import "context"

// Provider is the tagged-variant LLM client abstraction used by both the
// periodic insight generator (C6) and the interactive Q&A handler (C7).
type Provider interface {
	// Generate submits prompt as a single user turn and returns the model's
	// response text. temperature and maxTokens are best-effort; an adapter
	// for a vendor that has no equivalent knob ignores the argument rather
	// than failing.
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
	Name() string
}

// Package insight implements the periodic insight/question generator (C6)
// and the shared prompt-assembly + suggested-questions capability C7 reuses
// on its own cadence (§4.6). The ticker-driven generate-skip-on-error shape
// is grounded on the teacher's ManagedStream turn loop, generalized from a
// per-utterance LLM call to a fixed-interval one; the alternating-kind and
// suggested-question parsing rules are grounded on original_source/live_qa.py.
package insight

import (
	"context"
	"strings"
	"time"

	"github.com/meetscribe/meetscribe/pkg/llm"
)

// Kind names the two insight kinds §4.6 Alternation cycles between.
type Kind string

const (
	KindSummary Kind = "summary"
	KindThemes  Kind = "themes"
)

// KindForTick implements §4.6's alternation rule: kind index =
// floor(now_seconds / interval) mod 2.
func KindForTick(now time.Time, interval time.Duration) Kind {
	if interval <= 0 {
		return KindSummary
	}
	idx := int64(now.Unix()) / int64(interval.Seconds())
	if idx%2 == 0 {
		return KindSummary
	}
	return KindThemes
}

func taskInstruction(kind Kind) string {
	switch kind {
	case KindThemes:
		return "Identify the key themes and decisions discussed so far. Respond with a short, structured list."
	default:
		return "Summarize the conversation so far in a few concise sentences."
	}
}

// BuildPrompt composes `[kb?] + [intent?] + task-instruction + full-transcript`
// per §4.6 step 4, omitting the knowledge-base section when kbContent is
// empty and the intent section when intent is empty.
func BuildPrompt(kbContent, intent, task, transcript string) string {
	var b strings.Builder
	if kbContent != "" {
		b.WriteString("Reference knowledge base:\n")
		b.WriteString(kbContent)
		b.WriteString("\n\n")
	}
	if intent != "" {
		b.WriteString("Session intent: ")
		b.WriteString(intent)
		b.WriteString("\n\n")
	}
	b.WriteString(task)
	b.WriteString("\n\nTranscript:\n")
	b.WriteString(transcript)
	return b.String()
}

// Insight is the result of one generation tick.
type Insight struct {
	Kind      Kind
	Content   string
	CreatedAt time.Time
}

// Config controls the LLM call and cadence.
type Config struct {
	Interval    time.Duration
	Temperature float64
	MaxTokens   int
}

func DefaultConfig() Config {
	return Config{
		Interval:    2 * time.Minute,
		Temperature: 0.4,
		MaxTokens:   512,
	}
}

// Source supplies the inputs the prompt assembly step needs. The insight
// generator does not own the knowledge base, transcript store, or intent
// state; it only reads snapshots of them each tick.
type Source interface {
	KnowledgeBaseContent() string
	TranscriptText() string
	Intent() string
}

// Logger mirrors the teacher's orchestrator.Logger.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

type noOpLogger struct{}

func (noOpLogger) Debug(string, ...interface{}) {}
func (noOpLogger) Info(string, ...interface{})  {}
func (noOpLogger) Warn(string, ...interface{})  {}
func (noOpLogger) Error(string, ...interface{}) {}

// Generator runs the periodic insight tick described in §4.6.
type Generator struct {
	cfg      Config
	provider llm.Provider
	source   Source
	logger   Logger

	// Out receives one Insight per successful tick.
	Out chan Insight
}

func NewGenerator(cfg Config, provider llm.Provider, source Source, logger Logger) *Generator {
	if logger == nil {
		logger = noOpLogger{}
	}
	return &Generator{cfg: cfg, provider: provider, source: source, logger: logger, Out: make(chan Insight, 8)}
}

// Run blocks, ticking at cfg.Interval until ctx is done. Each tick that
// fails to call the LLM is logged and skipped, never retried (§4.6 Failure).
func (g *Generator) Run(ctx context.Context) {
	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			g.tick(ctx, now)
		}
	}
}

func (g *Generator) tick(ctx context.Context, now time.Time) {
	kind := KindForTick(now, g.cfg.Interval)
	prompt := BuildPrompt(g.source.KnowledgeBaseContent(), g.source.Intent(), taskInstruction(kind), g.source.TranscriptText())

	text, err := g.provider.Generate(ctx, prompt, g.cfg.Temperature, g.cfg.MaxTokens)
	if err != nil {
		g.logger.Error("insight tick failed, skipping", "kind", kind, "error", err)
		return
	}

	select {
	case g.Out <- Insight{Kind: kind, Content: strings.TrimSpace(text), CreatedAt: now}:
	default:
		g.logger.Warn("insight output queue full, dropping insight", "kind", kind)
	}
}

// defaultQuestions is the §4.7 Suggested-question operation fallback set.
var defaultQuestions = [4]string{
	"What are the key technical details mentioned?",
	"What are the next steps or action items?",
	"Who is responsible for each task?",
	"What timeline was discussed?",
}

// SuggestedQuestions calls the LLM for clarifying questions and parses the
// response per §4.7: line-by-line, strip common list markers, keep lines
// containing "?", pad with defaults if fewer than four, truncate to four.
// On an LLM error it returns the default four-question set rather than
// propagating the error (§4.7 Failure).
func SuggestedQuestions(ctx context.Context, provider llm.Provider, cfg Config, kbContent, intent, transcript string) []string {
	task := "Suggest four clarifying questions a participant might ask about this conversation. Reply with one question per line."
	prompt := BuildPrompt(kbContent, intent, task, transcript)

	text, err := provider.Generate(ctx, prompt, cfg.Temperature, cfg.MaxTokens)
	if err != nil {
		return defaultQuestionsSlice()
	}
	return parseQuestions(text)
}

func parseQuestions(text string) []string {
	var questions []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = stripListMarker(line)
		if strings.Contains(line, "?") {
			questions = append(questions, line)
		}
	}
	for i := 0; len(questions) < 4; i++ {
		questions = append(questions, defaultQuestions[i%len(defaultQuestions)])
	}
	return questions[:4]
}

func stripListMarker(line string) string {
	for _, marker := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimPrefix(line, marker))
		}
	}
	// Numbered markers: "1.", "2)", etc.
	for i, r := range line {
		if r >= '0' && r <= '9' {
			continue
		}
		if i > 0 && (r == '.' || r == ')') {
			return strings.TrimSpace(line[i+1:])
		}
		break
	}
	return line
}

func defaultQuestionsSlice() []string {
	return []string{defaultQuestions[0], defaultQuestions[1], defaultQuestions[2], defaultQuestions[3]}
}

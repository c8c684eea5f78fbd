// Command meetscribe wires the live meeting transcript & insight pipeline:
// microphone capture (C1) through the VAD segmenter (C2), transcription
// dispatcher (C3), context store (C4) and knowledge base (C5), the periodic
// insight generator (C6), the Q&A handler (C7), and the WebSocket session
// hub (C8). It follows the teacher's cmd/agent/main.go shape — godotenv,
// flat env-var provider selection, a malgo capture device, signal-driven
// shutdown — rebuilt around a many-listener broadcast pipeline instead of a
// single duplex voice call.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meetscribe/meetscribe/internal/config"
	"github.com/meetscribe/meetscribe/pkg/apikeys"
	"github.com/meetscribe/meetscribe/pkg/dispatcher"
	"github.com/meetscribe/meetscribe/pkg/knowledgebase"
	"github.com/meetscribe/meetscribe/pkg/llm"
	"github.com/meetscribe/meetscribe/pkg/segmenter"
	"github.com/meetscribe/meetscribe/pkg/session"
	"github.com/meetscribe/meetscribe/pkg/stt"
	"github.com/meetscribe/meetscribe/pkg/transcript"
)

func main() {
	cfg := config.Load()
	logger := stdLogger{}

	sttAttempts := buildSTTAttempts(cfg.STTVariant, stt.Keys{OpenAI: cfg.APIKeys.OpenAIKey, Gemini: cfg.APIKeys.GeminiKey})
	if len(sttAttempts) == 0 {
		log.Fatal("meetscribe: no transcription provider configured (set OPENAI_API_KEY or GOOGLE_API_KEY)")
	}

	llmProvider := buildLLMProvider(cfg.LLMVendor, cfg)
	if llmProvider == nil {
		log.Fatalf("meetscribe: no API key configured for LLM_PROVIDER=%s", cfg.LLMVendor)
	}

	seg := segmenter.New(cfg.Segmenter)
	disp := dispatcher.New(cfg.Dispatcher, sttAttempts, logger)
	store := transcript.New()
	kb := knowledgebase.New()

	apiKeysStore, err := apikeys.Open(cfg.APIKeysPath)
	if err != nil {
		log.Fatalf("meetscribe: opening api key store: %v", err)
	}

	hub := session.New(cfg.Session, kb, store, seg, llmProvider, apiKeysStore, cfg.QA, cfg.Insight, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Batch queue (C2→C3): bounded, drop oldest with a warning (§5 Queues
	// and backpressure), sized to the spec's "max size ≈ 100".
	batches := make(chan *segmenter.Batch, 100)

	source := newMicSource(cfg.Segmenter.SampleRate, 1, 200)

	done := make(chan struct{})
	go runIngestion(ctx, source, seg, batches, logger, done)

	go func() {
		if err := disp.SubmitAll(ctx, batches, 4); err != nil {
			logger.Warn("dispatcher stopped", "error", err)
		}
	}()

	go hub.ConsumeSegments(ctx, disp.Out)
	go hub.RunBackgroundTasks(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
	go func() {
		logger.Info("meetscribe listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("meetscribe: http server: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("meetscribe: shutting down...")

	// §5 Cancellation and timeouts: stop accepting new connections, cancel
	// per-session tasks, force-flush C2, drain C3 with a grace period,
	// close sessions with a normal-close code.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)

	cancel()
	<-done

	time.Sleep(500 * time.Millisecond) // grace period for in-flight C3 requests
	hub.Shutdown()
}

// runIngestion pulls frames from source, feeds them to the segmenter, and
// forwards completed batches to the dispatcher's input queue until ctx is
// cancelled, at which point it force-flushes any pending partial batch
// before releasing the capture device.
func runIngestion(ctx context.Context, source *micSource, seg *segmenter.Segmenter, batches chan<- *segmenter.Batch, logger interface {
	Warn(string, ...interface{})
}, done chan<- struct{}) {
	defer close(done)

	if err := source.Start(); err != nil {
		log.Fatalf("meetscribe: starting capture device: %v", err)
	}
	defer source.Stop()

	for {
		select {
		case <-ctx.Done():
			if final := seg.ForceFlush(); final != nil {
				enqueueBatch(batches, final, logger)
			}
			return
		default:
		}

		frame, ok, err := source.NextFrame()
		if err != nil {
			logger.Warn("capture read failed", "error", err)
			continue
		}
		if !ok {
			continue
		}
		if batch := seg.Write(frame); batch != nil {
			enqueueBatch(batches, batch, logger)
		}
	}
}

func enqueueBatch(batches chan<- *segmenter.Batch, batch *segmenter.Batch, logger interface {
	Warn(string, ...interface{})
}) {
	select {
	case batches <- batch:
	default:
		select {
		case <-batches:
			logger.Warn("batch queue full, dropping oldest batch")
		default:
		}
		select {
		case batches <- batch:
		default:
		}
	}
}

// buildSTTAttempts orders the configured transcription variants into the
// §4.2 fallback chain: the preferred variant first, then every other
// variant whose required key is present.
func buildSTTAttempts(primary stt.Variant, keys stt.Keys) []stt.Provider {
	order := []stt.Variant{primary, stt.VariantWhisper, stt.VariantGPT4oTranscribe, stt.VariantGPT4oMiniTranscribe, stt.VariantGeminiAudio}

	seen := make(map[stt.Variant]bool)
	var attempts []stt.Provider
	for _, v := range order {
		if seen[v] {
			continue
		}
		seen[v] = true
		if p := stt.New(v, keys); p != nil {
			attempts = append(attempts, p)
		}
	}
	return attempts
}

// buildLLMProvider selects the shared LLMProvider used by C6 and C7,
// mirroring the teacher's LLM-selection switch in cmd/agent/main.go.
func buildLLMProvider(vendor string, cfg config.Config) llm.Provider {
	switch vendor {
	case "openai":
		if cfg.APIKeys.OpenAIKey == "" {
			return nil
		}
		return llm.NewOpenAILLM(cfg.APIKeys.OpenAIKey, "gpt-4o")
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil
		}
		return llm.NewAnthropicLLM(cfg.AnthropicKey, "claude-3-5-sonnet-20241022")
	case "google":
		if cfg.APIKeys.GeminiKey == "" {
			return nil
		}
		return llm.NewGoogleLLM(cfg.APIKeys.GeminiKey, "gemini-1.5-flash")
	case "groq":
		fallthrough
	default:
		if cfg.GroqKey == "" {
			return nil
		}
		return llm.NewGroqLLM(cfg.GroqKey, "llama-3.3-70b-versatile")
	}
}

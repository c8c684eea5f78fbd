// Package dispatcher implements the transcription dispatcher (C3): it turns
// segmenter batches into transcript segments by trying an ordered list of
// providers with retry and fallback, then redelivers results downstream in
// strict batch-sequence order even when the provider calls themselves ran
// concurrently. The retry/fallback shape is grounded on the teacher's
// ManagedStream provider-call handling; the concurrent-dispatch-with-
// reorder-buffer shape uses golang.org/x/sync/errgroup the way
// MrWong99-glyphoxa's orchestrator fans out concurrent work.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meetscribe/meetscribe/pkg/audio"
	"github.com/meetscribe/meetscribe/pkg/segmenter"
	"github.com/meetscribe/meetscribe/pkg/stt"
)

// Segment is a transcript segment produced from one batch (§3 Data Model).
type Segment struct {
	Text          string
	Segments      []stt.Segment
	Language      string
	BatchSequence int
	Timestamp     time.Time
}

// Config controls retry/backoff and request timeout behaviour.
type Config struct {
	RequestTimeout time.Duration
	BaseDelay      time.Duration
	MaxRetries     int
	DenoiseWindow  int
}

func DefaultConfig() Config {
	return Config{
		RequestTimeout: 30 * time.Second,
		BaseDelay:      500 * time.Millisecond,
		MaxRetries:     3,
		DenoiseWindow:  3,
	}
}

// ModelStats are the per-model counters required by §4.2's State paragraph.
type ModelStats struct {
	TotalRequests      int
	SuccessfulRequests int
	FailedRequests     int
	AudioDuration      time.Duration
	ProcessingTime     time.Duration
}

// Logger mirrors the teacher's orchestrator.Logger so dispatcher failures
// surface through the same structured-logging path as the rest of the
// pipeline.
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

// Dispatcher converts batches into transcript segments using an ordered
// attempt list [primary] + fallbacks, and redelivers them to Out in strict
// batch-sequence order.
type Dispatcher struct {
	cfg      Config
	attempts []stt.Provider
	logger   Logger

	mu    sync.Mutex
	stats map[string]*ModelStats

	// Out receives transcript segments in strict batch-sequence order.
	Out chan Segment

	reorderMu  sync.Mutex
	pending    map[int]Segment
	nextWanted int
}

// New builds a dispatcher. attempts is the ordered attempt list
// ([primary_model] + fallback_models, §4.2 step 3); providers are tried in
// the order given for every batch.
func New(cfg Config, attempts []stt.Provider, logger Logger) *Dispatcher {
	if logger == nil {
		logger = noOpLogger{}
	}
	stats := make(map[string]*ModelStats, len(attempts))
	for _, p := range attempts {
		stats[p.Name()] = &ModelStats{}
	}
	return &Dispatcher{
		cfg:        cfg,
		attempts:   attempts,
		logger:     logger,
		stats:      stats,
		Out:        make(chan Segment, 64),
		pending:    make(map[int]Segment),
		nextWanted: 0,
	}
}

// Stats returns a snapshot of per-model counters (§4.2 State).
func (d *Dispatcher) Stats() map[string]ModelStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]ModelStats, len(d.stats))
	for name, s := range d.stats {
		out[name] = *s
	}
	return out
}

// Submit processes one batch concurrently with any other in-flight Submit
// calls (the implementation is free to issue provider requests
// concurrently, §4.2 Ordering) but only releases results to Out once every
// lower-sequence batch has already been released, preserving strict
// batch-sequence delivery order downstream.
func (d *Dispatcher) Submit(ctx context.Context, batch *segmenter.Batch) {
	seg, ok := d.transcribe(ctx, batch)
	if !ok {
		d.release(batch.Sequence, nil)
		return
	}
	d.release(batch.Sequence, &seg)
}

// SubmitAll drains a batch channel with a bounded pool of concurrent
// in-flight transcriptions using errgroup, still delivering to Out in
// strict sequence order via the internal reorder buffer.
func (d *Dispatcher) SubmitAll(ctx context.Context, batches <-chan *segmenter.Batch, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for batch := range batches {
		b := batch
		g.Go(func() error {
			d.Submit(gctx, b)
			return nil
		})
	}
	return g.Wait()
}

// release buffers out-of-order completions and flushes every
// consecutively-ready sequence number starting at nextWanted, so downstream
// always observes strictly increasing batch_sequence values (§4.2 Ordering,
// Testable property in §8 S3-adjacent sequence invariants). A nil segment
// (dropped batch, §4.2 step 5) still advances nextWanted without emitting.
func (d *Dispatcher) release(sequence int, seg *Segment) {
	d.reorderMu.Lock()
	defer d.reorderMu.Unlock()

	if seg != nil {
		d.pending[sequence] = *seg
	} else {
		d.pending[sequence] = Segment{BatchSequence: -1}
	}

	for {
		s, ok := d.pending[d.nextWanted]
		if !ok {
			break
		}
		delete(d.pending, d.nextWanted)
		d.nextWanted++
		if s.BatchSequence != -1 {
			d.Out <- s
		}
	}
}

func (d *Dispatcher) transcribe(ctx context.Context, batch *segmenter.Batch) (Segment, bool) {
	samples := audio.Normalize(batch.Samples)
	samples = audio.Denoise(samples, d.cfg.DenoiseWindow)
	wavBytes := audio.EncodeWAV(samples, batch.SampleRate)

	for _, provider := range d.attempts {
		result, ok := d.tryProvider(ctx, provider, wavBytes, batch)
		if ok {
			segs := result.Segments
			if len(segs) == 0 {
				segs = []stt.Segment{{Text: result.Text, Start: 0, End: batch.Duration}}
			}
			lang := result.Language
			if lang == "" {
				lang = "unknown"
			}
			return Segment{
				Text:          trimText(result.Text),
				Segments:      segs,
				Language:      lang,
				BatchSequence: batch.Sequence,
				Timestamp:     batch.StartTime,
			}, true
		}
	}

	d.logger.Warn("all providers exhausted, dropping batch", "sequence", batch.Sequence)
	return Segment{}, false
}

// tryProvider retries one provider with exponential backoff up to
// MaxRetries, then reports failure so the caller can fall through to the
// next model (§4.2 step 4).
func (d *Dispatcher) tryProvider(ctx context.Context, provider stt.Provider, wavBytes []byte, batch *segmenter.Batch) (stt.Result, bool) {
	name := provider.Name()
	var lastErr error

	for attempt := 1; attempt <= d.cfg.MaxRetries; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, d.cfg.RequestTimeout)
		started := time.Now()
		result, err := provider.Transcribe(reqCtx, wavBytes, "")
		elapsed := time.Since(started)
		cancel()

		d.recordAttempt(name, batch.Duration, elapsed, err == nil)

		if err == nil {
			return result, true
		}
		lastErr = err
		d.logger.Warn("transcription attempt failed", "provider", name, "attempt", attempt, "error", err)

		if attempt == d.cfg.MaxRetries {
			break
		}
		delay := d.cfg.BaseDelay * time.Duration(1<<uint(attempt-1))
		select {
		case <-ctx.Done():
			return stt.Result{}, false
		case <-time.After(delay):
		}
	}

	if lastErr != nil {
		d.logger.Warn("provider exhausted retries, falling through", "provider", name, "error", lastErr)
	}
	return stt.Result{}, false
}

func (d *Dispatcher) recordAttempt(provider string, audioDuration, processing time.Duration, success bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.stats[provider]
	if !ok {
		s = &ModelStats{}
		d.stats[provider] = s
	}
	s.TotalRequests++
	s.ProcessingTime += processing
	if success {
		s.SuccessfulRequests++
		s.AudioDuration += audioDuration
	} else {
		s.FailedRequests++
	}
}

func trimText(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

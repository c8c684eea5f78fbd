package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meetscribe/meetscribe/pkg/segmenter"
	"github.com/meetscribe/meetscribe/pkg/stt"
)

// mockProvider mirrors the teacher's MockSTTProvider: a struct literal with
// a function field the test wires per-case.
type mockProvider struct {
	name        string
	transcribeF func(ctx context.Context, wavBytes []byte, language string) (stt.Result, error)
}

func (m *mockProvider) Name() string { return m.name }
func (m *mockProvider) Transcribe(ctx context.Context, wavBytes []byte, language string) (stt.Result, error) {
	return m.transcribeF(ctx, wavBytes, language)
}

func testBatch(seq int, duration time.Duration) *segmenter.Batch {
	return &segmenter.Batch{
		Samples:    make([]int16, 16000*4),
		StartTime:  time.Now(),
		Duration:   duration,
		Sequence:   seq,
		SampleRate: 16000,
	}
}

func fastConfig() Config {
	return Config{
		RequestTimeout: time.Second,
		BaseDelay:      time.Millisecond,
		MaxRetries:     3,
		DenoiseWindow:  3,
	}
}

// S3 — provider fallback: primary fails once then succeeds; one fallback
// configured but unused. Expect one segment attributed to the primary,
// total_requests=2/successful=1 on primary, 0 on fallback.
func TestProviderRetryThenSuccess(t *testing.T) {
	calls := 0
	primary := &mockProvider{
		name: "primary",
		transcribeF: func(ctx context.Context, wavBytes []byte, language string) (stt.Result, error) {
			calls++
			if calls == 1 {
				return stt.Result{}, errors.New("transient network error")
			}
			return stt.Result{Text: "  hello there  ", Language: "en"}, nil
		},
	}
	fallback := &mockProvider{
		name: "fallback",
		transcribeF: func(ctx context.Context, wavBytes []byte, language string) (stt.Result, error) {
			t.Fatal("fallback should not be called")
			return stt.Result{}, nil
		},
	}

	d := New(fastConfig(), []stt.Provider{primary, fallback}, nil)
	batch := testBatch(0, 4*time.Second)

	d.Submit(context.Background(), batch)

	select {
	case seg := <-d.Out:
		if seg.Text != "hello there" {
			t.Errorf("expected trimmed text, got %q", seg.Text)
		}
		if seg.BatchSequence != 0 {
			t.Errorf("expected batch_sequence 0, got %d", seg.BatchSequence)
		}
	default:
		t.Fatal("expected a segment on Out")
	}

	stats := d.Stats()
	if stats["primary"].TotalRequests != 2 || stats["primary"].SuccessfulRequests != 1 {
		t.Errorf("unexpected primary stats: %+v", stats["primary"])
	}
	if stats["fallback"].TotalRequests != 0 {
		t.Errorf("expected fallback untouched, got %+v", stats["fallback"])
	}
}

func TestProviderFallsThroughOnExhaustion(t *testing.T) {
	primary := &mockProvider{
		name: "primary",
		transcribeF: func(ctx context.Context, wavBytes []byte, language string) (stt.Result, error) {
			return stt.Result{}, errors.New("always fails")
		},
	}
	fallback := &mockProvider{
		name: "fallback",
		transcribeF: func(ctx context.Context, wavBytes []byte, language string) (stt.Result, error) {
			return stt.Result{Text: "from fallback"}, nil
		},
	}

	d := New(fastConfig(), []stt.Provider{primary, fallback}, nil)
	d.Submit(context.Background(), testBatch(0, 4*time.Second))

	select {
	case seg := <-d.Out:
		if seg.Text != "from fallback" {
			t.Errorf("expected fallback text, got %q", seg.Text)
		}
	default:
		t.Fatal("expected a segment on Out")
	}

	stats := d.Stats()
	if stats["primary"].FailedRequests != fastConfig().MaxRetries {
		t.Errorf("expected primary to exhaust retries, got %+v", stats["primary"])
	}
}

func TestAllProvidersFailDropsBatch(t *testing.T) {
	fail := func(ctx context.Context, wavBytes []byte, language string) (stt.Result, error) {
		return stt.Result{}, errors.New("down")
	}
	d := New(fastConfig(), []stt.Provider{
		&mockProvider{name: "a", transcribeF: fail},
		&mockProvider{name: "b", transcribeF: fail},
	}, nil)

	d.Submit(context.Background(), testBatch(0, 4*time.Second))

	select {
	case seg := <-d.Out:
		t.Fatalf("expected no segment for a fully-failed batch, got %+v", seg)
	default:
	}
}

// Out must deliver in strict batch-sequence order even when later batches
// finish their provider calls before earlier ones (§4.2 Ordering).
func TestReorderBufferDeliversInSequence(t *testing.T) {
	slow := &mockProvider{
		name: "slow",
		transcribeF: func(ctx context.Context, wavBytes []byte, language string) (stt.Result, error) {
			time.Sleep(30 * time.Millisecond)
			return stt.Result{Text: "slow"}, nil
		},
	}
	d := New(fastConfig(), []stt.Provider{slow}, nil)

	batches := make(chan *segmenter.Batch, 5)
	for i := 0; i < 5; i++ {
		batches <- testBatch(i, 4*time.Second)
	}
	close(batches)

	done := make(chan error, 1)
	go func() { done <- d.SubmitAll(context.Background(), batches, 4) }()

	var got []int
	for i := 0; i < 5; i++ {
		seg := <-d.Out
		got = append(got, seg.BatchSequence)
	}
	if err := <-done; err != nil {
		t.Fatalf("SubmitAll returned error: %v", err)
	}

	for i, seq := range got {
		if seq != i {
			t.Fatalf("expected strictly increasing sequence, got %v", got)
		}
	}
}

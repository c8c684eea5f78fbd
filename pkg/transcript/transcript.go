// Package transcript implements the context store (C4): an append-only,
// ordered log of transcript segments that readers (the insight generator and
// Q&A handler) can snapshot concurrently with the dispatcher's appends. The
// mutex-guarded-slice-plus-snapshot shape is grounded on the teacher's
// ConversationSession (pkg/orchestrator/types.go), generalized from a
// bounded message history to an unbounded, never-pruned transcript.
package transcript

import (
	"strings"
	"sync"
	"time"

	"github.com/meetscribe/meetscribe/pkg/dispatcher"
)

// Stats mirrors §4.3's required statistics surface.
type Stats struct {
	SegmentCount           int
	TotalDuration          time.Duration
	AverageSegmentDuration time.Duration
	TotalWordCount         int
}

// Store is the append-only context store. Segments are never removed or
// mutated once appended (§4.3 Invariant).
type Store struct {
	mu       sync.RWMutex
	segments []dispatcher.Segment
}

func New() *Store {
	return &Store{}
}

// Append adds a segment to the end of the transcript. Segments must be
// appended in batch-sequence order; the dispatcher's reorder buffer already
// guarantees this upstream.
func (s *Store) Append(seg dispatcher.Segment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.segments = append(s.segments, seg)
}

// Snapshot returns an ordered, read-only copy of the transcript as it stood
// at the moment of the call. Because it is taken under the store's RWMutex,
// concurrent readers never observe a torn or partially-appended segment.
func (s *Store) Snapshot() []dispatcher.Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dispatcher.Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Stats computes the running statistics required by §4.3.
func (s *Store) Stats() Stats {
	segs := s.Snapshot()
	stats := Stats{SegmentCount: len(segs)}
	for _, seg := range segs {
		stats.TotalDuration += segmentDuration(seg)
		stats.TotalWordCount += len(strings.Fields(seg.Text))
	}
	if stats.SegmentCount > 0 {
		stats.AverageSegmentDuration = stats.TotalDuration / time.Duration(stats.SegmentCount)
	}
	return stats
}

// FullText joins the transcript into a single block of text in segment
// order, the form the insight generator and Q&A handler embed in their
// prompts (§4.6/§4.7).
func (s *Store) FullText() string {
	segs := s.Snapshot()
	parts := make([]string, 0, len(segs))
	for _, seg := range segs {
		if seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, " ")
}

func segmentDuration(seg dispatcher.Segment) time.Duration {
	var total time.Duration
	for _, sub := range seg.Segments {
		if sub.End > total {
			total = sub.End
		}
	}
	return total
}

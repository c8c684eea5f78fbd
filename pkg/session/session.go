package session

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/meetscribe/meetscribe/pkg/apikeys"
	"github.com/meetscribe/meetscribe/pkg/dispatcher"
	"github.com/meetscribe/meetscribe/pkg/insight"
	"github.com/meetscribe/meetscribe/pkg/knowledgebase"
	"github.com/meetscribe/meetscribe/pkg/qa"
	"github.com/meetscribe/meetscribe/pkg/segmenter"
	"github.com/meetscribe/meetscribe/pkg/transcript"
)

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

// Config controls capacity, timeouts and background-tick cadence (§4.5).
type Config struct {
	MaxSessions            int
	SessionTimeout         time.Duration
	QuestionUpdateInterval time.Duration
	InsightInterval        time.Duration
	OutboundQueueSize      int
	LLMRequestTimeout      time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxSessions:            50,
		SessionTimeout:         time.Hour,
		QuestionUpdateInterval: 15 * time.Second,
		InsightInterval:        60 * time.Second,
		OutboundQueueSize:      64,
		LLMRequestTimeout:      20 * time.Second,
	}
}

// llmProvider is the minimal surface session needs from pkg/llm.Provider;
// declared locally to avoid importing pkg/llm just for the type name.
type llmProvider interface {
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
	Name() string
}

// Hub owns the active session set and the process-wide state (§9 "Global
// mutable state"): recording_enabled, intent, and the knowledge base,
// modeled as explicit fields threaded to the components that need them
// rather than package-level singletons.
type Hub struct {
	cfg    Config
	logger Logger

	kb         *knowledgebase.KnowledgeBase
	store      *transcript.Store
	seg        *segmenter.Segmenter
	provider   llmProvider
	apiKeys    *apikeys.Store
	qaCfg      qa.Config
	insightCfg insight.Config

	mu       sync.RWMutex
	sessions map[string]*Session

	intentMu sync.RWMutex
	intent   string

	recording atomic.Bool
}

// New builds a Hub wired to the shared pipeline components. apiKeysStore
// may be nil when key persistence is not configured; get_api_keys/
// set_api_keys then respond with an error rather than panicking.
func New(cfg Config, kb *knowledgebase.KnowledgeBase, store *transcript.Store, seg *segmenter.Segmenter, provider llmProvider, apiKeysStore *apikeys.Store, qaCfg qa.Config, insightCfg insight.Config, logger Logger) *Hub {
	if logger == nil {
		logger = noOpLogger{}
	}
	return &Hub{
		cfg:        cfg,
		logger:     logger,
		kb:         kb,
		store:      store,
		seg:        seg,
		provider:   provider,
		apiKeys:    apiKeysStore,
		qaCfg:      qaCfg,
		insightCfg: insightCfg,
		sessions:   make(map[string]*Session),
	}
}

// KnowledgeBaseContent, TranscriptText and Intent make *Hub satisfy both
// insight.Source and qa.Source, so the periodic generator and every
// per-session Q&A handler read the same live state (§9 "Shared LLM client
// across components" generalized to shared context sources).
func (h *Hub) KnowledgeBaseContent() string { return h.kb.Content() }
func (h *Hub) TranscriptText() string       { return h.store.FullText() }
func (h *Hub) Intent() string {
	h.intentMu.RLock()
	defer h.intentMu.RUnlock()
	return h.intent
}

// SetIntent updates the process-wide session intent (§4.5).
func (h *Hub) SetIntent(intent string) {
	h.intentMu.Lock()
	defer h.intentMu.Unlock()
	h.intent = intent
}

// RecordingEnabled reports the process-wide recording flag.
func (h *Hub) RecordingEnabled() bool { return h.recording.Load() }

// SetRecordingEnabled toggles the flag and the segmenter's input gate in
// lockstep, so frames arriving while disabled are discarded at C2's input
// (§4.5 Recording control).
func (h *Hub) SetRecordingEnabled(enabled bool) {
	h.recording.Store(enabled)
	if h.seg != nil {
		h.seg.SetEnabled(enabled)
	}
}

// Session is one live WebSocket client (§4.5): a unique id, a bounded
// outbound queue, and its own Q&A history.
type Session struct {
	ID        string
	CreatedAt time.Time

	hub       *Hub
	conn      *websocket.Conn
	qaHandler *qa.Handler

	send      chan Outbound
	done      chan struct{}
	closeOnce sync.Once
}

// enqueue delivers msg to the session's outbound queue. A full queue means
// the client is too slow to keep up; per §7's overflow policy for
// per-session send queues, the session itself is dropped rather than the
// message.
func (s *Session) enqueue(msg Outbound) {
	select {
	case s.send <- msg:
	default:
		s.hub.logger.Warn("session send queue full, dropping session", "session_id", s.ID)
		s.triggerClose()
	}
}

func (s *Session) triggerClose() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close(websocket.StatusPolicyViolation, "send queue overflow")
	})
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.send:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := wsjson.Write(ctx, s.conn, msg)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// HandleWS upgrades the request to a WebSocket, registers a session (§4.5
// On connect: allocate session, enforce max_sessions, send welcome + KB
// content), then blocks serving that session's inbound messages until
// disconnect or I/O error.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}

	sess := h.register(conn)
	defer h.unregister(sess)

	go sess.writeLoop()

	sess.enqueue(newOutbound("status", "", map[string]string{
		"message":    "connected",
		"session_id": sess.ID,
	}))
	sess.enqueue(newOutbound("kb_content", "", map[string]string{"content": h.kb.Content()}))

	h.readLoop(r.Context(), sess)
}

func (h *Hub) register(conn *websocket.Conn) *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		hub:       h,
		conn:      conn,
		send:      make(chan Outbound, h.cfg.OutboundQueueSize),
		done:      make(chan struct{}),
	}
	sess.qaHandler = qa.NewHandler(h.qaCfg, h.provider, h)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cfg.MaxSessions > 0 && len(h.sessions) >= h.cfg.MaxSessions {
		if oldestID := h.oldestSessionLocked(); oldestID != "" {
			h.closeSessionLocked(oldestID, "evicted: session capacity reached")
		}
	}
	h.sessions[sess.ID] = sess
	return sess
}

func (h *Hub) unregister(sess *Session) {
	sess.triggerClose()
	h.mu.Lock()
	delete(h.sessions, sess.ID)
	h.mu.Unlock()
}

// oldestSessionLocked returns the id of the longest-connected session.
// Caller must hold h.mu.
func (h *Hub) oldestSessionLocked() string {
	var oldestID string
	var oldestAt time.Time
	for id, s := range h.sessions {
		if oldestID == "" || s.CreatedAt.Before(oldestAt) {
			oldestID = id
			oldestAt = s.CreatedAt
		}
	}
	return oldestID
}

// closeSessionLocked tears down a session without removing it from the map
// itself when the caller will do so (used internally by SweepExpired and
// capacity eviction). Caller must hold h.mu.
func (h *Hub) closeSessionLocked(id, reason string) {
	sess, ok := h.sessions[id]
	if !ok {
		return
	}
	delete(h.sessions, id)
	sess.closeOnce.Do(func() {
		close(sess.done)
		sess.conn.Close(websocket.StatusNormalClosure, reason)
	})
}

// Shutdown closes every connected session with a normal-close status,
// draining the session set (§5 Cancellation and timeouts: "close sessions
// with a normal-close code" on server shutdown).
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.sessions {
		h.closeSessionLocked(id, "server shutting down")
	}
}

// SweepExpired evicts sessions whose CreatedAt is older than
// cfg.SessionTimeout (§4.5 Periodic sweep).
func (h *Hub) SweepExpired() {
	cutoff := time.Now().Add(-h.cfg.SessionTimeout)

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.sessions {
		if s.CreatedAt.Before(cutoff) {
			h.closeSessionLocked(id, "session timed out")
		}
	}
}

// Broadcast enqueues msg to every currently-connected session. A session
// whose queue overflows is dropped without affecting the others (§4.5
// Broadcast).
func (h *Hub) Broadcast(msg Outbound) {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.enqueue(msg)
	}
}

// ConsumeSegments drains the dispatcher's in-order segment stream, appends
// each to the context store, and broadcasts it to every session — the
// single glue point connecting C3's output to C4 and C8's broadcast path
// (§4.2 Public contract).
func (h *Hub) ConsumeSegments(ctx context.Context, segments <-chan dispatcher.Segment) {
	for {
		select {
		case <-ctx.Done():
			return
		case seg, ok := <-segments:
			if !ok {
				return
			}
			h.store.Append(seg)
			h.Broadcast(newOutbound("transcript", "", map[string]interface{}{
				"text":           seg.Text,
				"language":       seg.Language,
				"batch_sequence": seg.BatchSequence,
			}))
		}
	}
}

// RunBackgroundTasks starts the session-expiry sweep, suggested-question
// generator, and insight generator ticks (§4.5 Background tasks owned by
// C8), returning once ctx is cancelled.
func (h *Hub) RunBackgroundTasks(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.runSweepLoop(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.runSuggestedQuestionsLoop(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.runInsightLoop(ctx)
	}()

	wg.Wait()
}

func (h *Hub) runSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.SweepExpired()
		}
	}
}

func (h *Hub) runSuggestedQuestionsLoop(ctx context.Context) {
	interval := h.cfg.QuestionUpdateInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reqCtx, cancel := context.WithTimeout(ctx, h.cfg.LLMRequestTimeout)
			questions := insight.SuggestedQuestions(reqCtx, h.provider, h.insightCfg, h.KnowledgeBaseContent(), h.Intent(), h.TranscriptText())
			cancel()
			h.Broadcast(newOutbound("suggested_questions", "", map[string]interface{}{"questions": questions}))
		}
	}
}

func (h *Hub) runInsightLoop(ctx context.Context) {
	generator := insight.NewGenerator(h.insightCfg, h.provider, h, h.logger)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ins, ok := <-generator.Out:
				if !ok {
					return
				}
				h.Broadcast(newOutbound("insight", "", map[string]interface{}{
					"kind":    ins.Kind,
					"content": ins.Content,
				}))
			}
		}
	}()
	generator.Run(ctx)
}

// readLoop handles one session's inbound messages until it disconnects or
// errors out (§4.5 On disconnect or I/O error).
func (h *Hub) readLoop(ctx context.Context, sess *Session) {
	for {
		_, data, err := sess.conn.Read(ctx)
		if err != nil {
			return
		}
		h.handleMessage(ctx, sess, data)
	}
}

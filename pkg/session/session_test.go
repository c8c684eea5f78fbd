package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/meetscribe/meetscribe/pkg/insight"
	"github.com/meetscribe/meetscribe/pkg/knowledgebase"
	"github.com/meetscribe/meetscribe/pkg/qa"
	"github.com/meetscribe/meetscribe/pkg/transcript"
)

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }
func (stubProvider) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	return "stub answer", nil
}

func testHub(t *testing.T, cfg Config) (*Hub, *httptest.Server) {
	t.Helper()
	kb := knowledgebase.New()
	store := transcript.New()
	hub := New(cfg, kb, store, nil, stubProvider{}, nil, qa.DefaultConfig(), insight.DefaultConfig(), nil)

	server := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(server.Close)
	return hub, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.Dial(context.Background(), wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func readUntilType(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string) Outbound {
	t.Helper()
	for i := 0; i < 10; i++ {
		var out Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read: %v", err)
		}
		if out.Type == msgType {
			return out
		}
	}
	t.Fatalf("did not observe a %q message within 10 reads", msgType)
	return Outbound{}
}

func TestConnectSendsWelcomeAndKBContent(t *testing.T) {
	cfg := DefaultConfig()
	_, server := testHub(t, cfg)
	conn := dial(t, server)
	ctx := context.Background()

	status := readUntilType(t, ctx, conn, "status")
	if status.Type != "status" {
		t.Errorf("expected a status message, got %+v", status)
	}
	readUntilType(t, ctx, conn, "kb_content")
}

func TestStatusRequestReturnsRecordingDisabledByDefault(t *testing.T) {
	cfg := DefaultConfig()
	_, server := testHub(t, cfg)
	conn := dial(t, server)
	ctx := context.Background()

	readUntilType(t, ctx, conn, "status")
	readUntilType(t, ctx, conn, "kb_content")

	if err := wsjson.Write(ctx, conn, map[string]interface{}{
		"type":       "status_request",
		"request_id": "req-1",
		"content":    "recording_status",
	}); err != nil {
		t.Fatalf("write: %v", err)
	}

	resp := readUntilType(t, ctx, conn, "recording_status")
	if resp.RequestID != "req-1" {
		t.Errorf("expected echoed request_id, got %q", resp.RequestID)
	}
	content, ok := resp.Content.(map[string]interface{})
	if !ok || content["recording"] != false {
		t.Errorf("expected recording=false, got %+v", resp.Content)
	}
}

func TestUnknownMessageTypeReturnsErrorButKeepsConnectionOpen(t *testing.T) {
	cfg := DefaultConfig()
	_, server := testHub(t, cfg)
	conn := dial(t, server)
	ctx := context.Background()

	readUntilType(t, ctx, conn, "status")
	readUntilType(t, ctx, conn, "kb_content")

	if err := wsjson.Write(ctx, conn, map[string]interface{}{"type": "not_a_real_type", "request_id": "req-2"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	errMsg := readUntilType(t, ctx, conn, "error")
	if errMsg.RequestID != "req-2" {
		t.Errorf("expected echoed request_id on error, got %q", errMsg.RequestID)
	}

	// connection must still be usable afterwards.
	if err := wsjson.Write(ctx, conn, map[string]interface{}{
		"type":       "status_request",
		"request_id": "req-3",
		"content":    "recording_status",
	}); err != nil {
		t.Fatalf("expected connection to remain open, write failed: %v", err)
	}
	readUntilType(t, ctx, conn, "recording_status")
}

func TestRecordingControlBroadcasts(t *testing.T) {
	cfg := DefaultConfig()
	hub, server := testHub(t, cfg)
	conn := dial(t, server)
	ctx := context.Background()

	readUntilType(t, ctx, conn, "status")
	readUntilType(t, ctx, conn, "kb_content")

	if err := wsjson.Write(ctx, conn, map[string]interface{}{
		"type":       "recording_control",
		"request_id": "req-4",
		"content":    map[string]string{"action": "start"},
	}); err != nil {
		t.Fatalf("write: %v", err)
	}

	readUntilType(t, ctx, conn, "status")
	readUntilType(t, ctx, conn, "recording_status")

	if !hub.RecordingEnabled() {
		t.Error("expected recording to be enabled after start")
	}
}

func TestKBRecordLifecycle(t *testing.T) {
	cfg := DefaultConfig()
	_, server := testHub(t, cfg)
	conn := dial(t, server)
	ctx := context.Background()

	readUntilType(t, ctx, conn, "status")
	readUntilType(t, ctx, conn, "kb_content")

	if err := wsjson.Write(ctx, conn, map[string]interface{}{
		"type":       "create_kb_record",
		"request_id": "req-5",
		"content":    "# My Title\nbody text",
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	created := readUntilType(t, ctx, conn, "kb_record_created")
	content, ok := created.Content.(map[string]interface{})
	if !ok || content["title"] != "My Title" {
		t.Fatalf("unexpected create response: %+v", created)
	}
	docID, _ := content["doc_id"].(string)
	if docID == "" {
		t.Fatal("expected a doc_id in the create response")
	}

	if err := wsjson.Write(ctx, conn, map[string]interface{}{
		"type":       "get_kb_record",
		"request_id": "req-6",
		"doc_id":     docID,
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	got := readUntilType(t, ctx, conn, "kb_record_content")
	gotContent, _ := got.Content.(map[string]interface{})
	if gotContent["title"] != "My Title" {
		t.Errorf("unexpected get response: %+v", got)
	}
}

func TestMaxSessionsEvictsOldest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSessions = 1
	hub, server := testHub(t, cfg)

	first := dial(t, server)
	ctx := context.Background()
	readUntilType(t, ctx, first, "status")
	readUntilType(t, ctx, first, "kb_content")

	second := dial(t, server)
	readUntilType(t, ctx, second, "status")
	readUntilType(t, ctx, second, "kb_content")

	// give the hub a moment to process the eviction before asserting.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		n := len(hub.sessions)
		hub.mu.RUnlock()
		if n == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, _, err := first.Read(ctx); err == nil {
		t.Error("expected the oldest session's connection to be closed on eviction")
	}
}

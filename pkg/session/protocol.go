// Package session implements the session & fan-out server (C8): WebSocket
// session lifecycle, the §6.4 message protocol, process-wide
// recording/intent state, and the background ticks that drive C6/C7
// broadcasts. The per-session bounded-queue, drop-on-overflow,
// mutex-guarded-state, graceful-cancel shape is grounded on the teacher's
// ManagedStream (pkg/orchestrator/managed_stream.go); the WebSocket
// transport itself reuses github.com/coder/websocket, repurposed here as a
// server rather than the client role it plays dialing Lokutor for TTS.
package session

import (
	"encoding/json"
	"time"
)

// Inbound is one §6.4 inbound message. Content is kept raw because its
// shape depends on Type: a plain string for question/intent/update_kb, an
// object with an action field for recording_control, or a fixed string for
// status_request.
type Inbound struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	DocID     string          `json:"doc_id,omitempty"`
	OpenAIKey string          `json:"openai_key,omitempty"`
	GeminiKey string          `json:"gemini_key,omitempty"`
}

// Outbound is one §6.4 outbound message.
type Outbound struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Content   interface{} `json:"content,omitempty"`
}

func newOutbound(msgType string, requestID string, content interface{}) Outbound {
	return Outbound{Type: msgType, RequestID: requestID, Timestamp: time.Now(), Content: content}
}

func errorMessage(requestID, description string) Outbound {
	return newOutbound("error", requestID, map[string]string{"description": description})
}

// contentString unmarshals Content as a bare JSON string, the shape used by
// question/intent/update_kb/create_kb_record/status_request/update_kb_record.
func (in Inbound) contentString() (string, bool) {
	if len(in.Content) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(in.Content, &s); err != nil {
		return "", false
	}
	return s, true
}

// recordingAction unmarshals Content as {"action": "start"|"stop"}.
func (in Inbound) recordingAction() (string, bool) {
	var payload struct {
		Action string `json:"action"`
	}
	if len(in.Content) == 0 {
		return "", false
	}
	if err := json.Unmarshal(in.Content, &payload); err != nil {
		return "", false
	}
	return payload.Action, payload.Action != ""
}

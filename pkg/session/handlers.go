package session

import (
	"context"
	"encoding/json"
)

// handleMessage dispatches one decoded inbound frame per §6.4's protocol
// table. Unknown types, malformed JSON, and missing required fields all
// produce a typed `error` response while leaving the connection open (§6.4
// Protocol invariants) rather than terminating the session.
func (h *Hub) handleMessage(ctx context.Context, sess *Session, data []byte) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		sess.enqueue(errorMessage("", "malformed JSON: "+err.Error()))
		return
	}

	switch in.Type {
	case "question":
		h.handleQuestion(ctx, sess, in)
	case "intent":
		h.handleIntent(sess, in)
	case "recording_control":
		h.handleRecordingControl(sess, in)
	case "status_request":
		h.handleStatusRequest(sess, in)
	case "update_kb":
		h.handleUpdateKB(sess, in)
	case "list_kb_records":
		sess.enqueue(newOutbound("kb_records_list", in.RequestID, h.kb.List()))
	case "create_kb_record":
		h.handleCreateKBRecord(sess, in)
	case "update_kb_record":
		h.handleUpdateKBRecord(sess, in)
	case "delete_kb_record":
		h.handleDeleteKBRecord(sess, in)
	case "get_kb_record":
		h.handleGetKBRecord(sess, in)
	case "get_api_keys":
		h.handleGetAPIKeys(sess, in)
	case "set_api_keys":
		h.handleSetAPIKeys(sess, in)
	default:
		sess.enqueue(errorMessage(in.RequestID, "unknown message type: "+in.Type))
	}
}

func (h *Hub) handleQuestion(ctx context.Context, sess *Session, in Inbound) {
	content, ok := in.contentString()
	if !ok || content == "" {
		sess.enqueue(errorMessage(in.RequestID, "question requires non-empty content"))
		return
	}

	go func() {
		reqCtx, cancel := context.WithTimeout(ctx, h.cfg.LLMRequestTimeout)
		defer cancel()
		answer, err := sess.qaHandler.Answer(reqCtx, content)
		if err != nil {
			sess.enqueue(errorMessage(in.RequestID, "failed to answer question: "+err.Error()))
			return
		}
		sess.enqueue(newOutbound("answer", in.RequestID, map[string]string{"content": answer}))
	}()
}

func (h *Hub) handleIntent(sess *Session, in Inbound) {
	content, ok := in.contentString()
	if !ok {
		sess.enqueue(errorMessage(in.RequestID, "intent requires content"))
		return
	}
	h.SetIntent(content)
	sess.enqueue(newOutbound("status", in.RequestID, map[string]string{"message": "intent updated"}))
}

func (h *Hub) handleRecordingControl(sess *Session, in Inbound) {
	action, ok := in.recordingAction()
	if !ok || (action != "start" && action != "stop") {
		sess.enqueue(errorMessage(in.RequestID, "recording_control requires content.action of start or stop"))
		return
	}
	enabled := action == "start"
	h.SetRecordingEnabled(enabled)
	sess.enqueue(newOutbound("status", in.RequestID, map[string]string{"message": "recording " + action}))
	h.Broadcast(newOutbound("recording_status", "", map[string]interface{}{"recording": enabled}))
}

func (h *Hub) handleStatusRequest(sess *Session, in Inbound) {
	content, _ := in.contentString()
	if content != "recording_status" {
		sess.enqueue(errorMessage(in.RequestID, "unknown status_request content"))
		return
	}
	sess.enqueue(newOutbound("recording_status", in.RequestID, map[string]interface{}{"recording": h.RecordingEnabled()}))
}

func (h *Hub) handleUpdateKB(sess *Session, in Inbound) {
	content, ok := in.contentString()
	if !ok {
		sess.enqueue(errorMessage(in.RequestID, "update_kb requires content"))
		return
	}
	h.kb.Clear()
	h.kb.Add(content)
	sess.enqueue(newOutbound("kb_updated", in.RequestID, map[string]string{"content": h.kb.Content()}))
}

func (h *Hub) handleCreateKBRecord(sess *Session, in Inbound) {
	content, ok := in.contentString()
	if !ok {
		sess.enqueue(errorMessage(in.RequestID, "create_kb_record requires content"))
		return
	}
	id := h.kb.Add(content)
	doc, _ := h.kb.Get(id)
	sess.enqueue(newOutbound("kb_record_created", in.RequestID, map[string]string{"doc_id": id, "title": doc.Title()}))
}

func (h *Hub) handleUpdateKBRecord(sess *Session, in Inbound) {
	content, ok := in.contentString()
	if !ok || in.DocID == "" {
		sess.enqueue(errorMessage(in.RequestID, "update_kb_record requires doc_id and content"))
		return
	}
	success := h.kb.Update(in.DocID, content)
	sess.enqueue(newOutbound("kb_record_updated", in.RequestID, map[string]interface{}{"success": success}))
}

func (h *Hub) handleDeleteKBRecord(sess *Session, in Inbound) {
	if in.DocID == "" {
		sess.enqueue(errorMessage(in.RequestID, "delete_kb_record requires doc_id"))
		return
	}
	success := h.kb.Remove(in.DocID)
	sess.enqueue(newOutbound("kb_record_deleted", in.RequestID, map[string]interface{}{"success": success}))
}

func (h *Hub) handleGetKBRecord(sess *Session, in Inbound) {
	if in.DocID == "" {
		sess.enqueue(errorMessage(in.RequestID, "get_kb_record requires doc_id"))
		return
	}
	doc, ok := h.kb.Get(in.DocID)
	if !ok {
		sess.enqueue(errorMessage(in.RequestID, "no such document"))
		return
	}
	sess.enqueue(newOutbound("kb_record_content", in.RequestID, map[string]string{"content": doc.Content, "title": doc.Title()}))
}

func (h *Hub) handleGetAPIKeys(sess *Session, in Inbound) {
	if h.apiKeys == nil {
		sess.enqueue(errorMessage(in.RequestID, ErrAPIKeysNotConfigured.Error()))
		return
	}
	keys := h.apiKeys.Get(true)
	sess.enqueue(newOutbound("api_keys", in.RequestID, map[string]string{
		"openai_key": keys.OpenAIKey,
		"gemini_key": keys.GeminiKey,
	}))
}

func (h *Hub) handleSetAPIKeys(sess *Session, in Inbound) {
	if h.apiKeys == nil {
		sess.enqueue(errorMessage(in.RequestID, ErrAPIKeysNotConfigured.Error()))
		return
	}
	if err := h.apiKeys.Set(in.OpenAIKey, in.GeminiKey); err != nil {
		sess.enqueue(newOutbound("api_keys_updated", in.RequestID, map[string]interface{}{"success": false, "error": err.Error()}))
		return
	}
	sess.enqueue(newOutbound("api_keys_updated", in.RequestID, map[string]interface{}{"success": true}))
}

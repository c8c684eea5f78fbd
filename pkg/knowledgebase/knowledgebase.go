// Package knowledgebase implements the knowledge base (C5): a mutable,
// server-keyed collection of user documents consulted by the insight
// generator and Q&A handler for grounding context. Grounded on
// original_source/knowledge_base.py's KnowledgeBase/KnowledgeDocument, with
// server-generated ids supplied by github.com/google/uuid in place of the
// original's uuid4() call and operations serialised with a mutex the way
// the teacher guards ConversationSession state.
package knowledgebase

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	untitledDocument = "Untitled Document"
	titleTruncateLen = 50
)

// Document is one knowledge-base entry.
type Document struct {
	ID        string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Title extracts a display title per §4.4's Title extraction rule: first
// "# Header" line, else first "## Header" line, else the first non-empty
// line (truncated to 50 chars with an ellipsis), else "Untitled Document".
func (d Document) Title() string {
	for _, line := range strings.Split(d.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		if after, ok := stripPrefix(trimmed, "# "); ok && after != "" {
			return after
		}
	}
	for _, line := range strings.Split(d.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		if after, ok := stripPrefix(trimmed, "## "); ok && after != "" {
			return after
		}
	}
	for _, line := range strings.Split(d.Content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if len(trimmed) > titleTruncateLen {
			return trimmed[:titleTruncateLen] + "..."
		}
		return trimmed
	}
	return untitledDocument
}

func stripPrefix(line, prefix string) (string, bool) {
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
}

// Summary is the listing shape returned by List (§4.4 list()).
type Summary struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	CharCount int
}

// Stats is the knowledge base's statistics surface.
type Stats struct {
	TotalDocuments  int
	TotalCharacters int
}

// KnowledgeBase holds the full document set. All operations serialise
// against each other (§4.4 Concurrency).
type KnowledgeBase struct {
	mu   sync.Mutex
	docs map[string]*Document
}

func New() *KnowledgeBase {
	return &KnowledgeBase{docs: make(map[string]*Document)}
}

// Add creates a new document and returns its server-generated id.
func (kb *KnowledgeBase) Add(content string) string {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	now := time.Now()
	id := uuid.NewString()
	kb.docs[id] = &Document{ID: id, Content: content, CreatedAt: now, UpdatedAt: now}
	return id
}

// Update overwrites a document's content. Returns false if id is missing.
func (kb *KnowledgeBase) Update(id, content string) bool {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	doc, ok := kb.docs[id]
	if !ok {
		return false
	}
	doc.Content = content
	doc.UpdatedAt = time.Now()
	return true
}

// Remove deletes a document. Returns false if id is missing.
func (kb *KnowledgeBase) Remove(id string) bool {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if _, ok := kb.docs[id]; !ok {
		return false
	}
	delete(kb.docs, id)
	return true
}

// Get returns a document's content and whether it exists.
func (kb *KnowledgeBase) Get(id string) (Document, bool) {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	doc, ok := kb.docs[id]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// List returns document summaries ordered by creation time ascending.
func (kb *KnowledgeBase) List() []Summary {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	docs := kb.orderedLocked()
	out := make([]Summary, 0, len(docs))
	for _, doc := range docs {
		out = append(out, Summary{
			ID:        doc.ID,
			Title:     doc.Title(),
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
			CharCount: len(doc.Content),
		})
	}
	return out
}

// Content concatenates every document in creation order, separated by
// "\n\n---\n\n". Returns the empty string when the knowledge base is empty.
func (kb *KnowledgeBase) Content() string {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	docs := kb.orderedLocked()
	if len(docs) == 0 {
		return ""
	}
	parts := make([]string, len(docs))
	for i, doc := range docs {
		parts[i] = doc.Content
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// Clear removes every document.
func (kb *KnowledgeBase) Clear() {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.docs = make(map[string]*Document)
}

// Stats returns the knowledge base's statistics.
func (kb *KnowledgeBase) Stats() Stats {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	stats := Stats{TotalDocuments: len(kb.docs)}
	for _, doc := range kb.docs {
		stats.TotalCharacters += len(doc.Content)
	}
	return stats
}

// orderedLocked returns documents sorted by creation time ascending. Caller
// must hold kb.mu.
func (kb *KnowledgeBase) orderedLocked() []*Document {
	out := make([]*Document, 0, len(kb.docs))
	for _, doc := range kb.docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

package knowledgebase

import "testing"

func TestAddUpdateRemove(t *testing.T) {
	kb := New()
	id := kb.Add("first document")

	if doc, ok := kb.Get(id); !ok || doc.Content != "first document" {
		t.Fatalf("expected to find added document, got %+v ok=%v", doc, ok)
	}

	if !kb.Update(id, "updated content") {
		t.Fatal("expected update to succeed for an existing id")
	}
	doc, _ := kb.Get(id)
	if doc.Content != "updated content" {
		t.Errorf("expected updated content, got %q", doc.Content)
	}
	if !doc.UpdatedAt.After(doc.CreatedAt) && doc.UpdatedAt != doc.CreatedAt {
		t.Errorf("expected updated_at >= created_at")
	}

	if kb.Update("missing-id", "x") {
		t.Error("expected update of a missing id to return false")
	}

	if !kb.Remove(id) {
		t.Error("expected remove to succeed for an existing id")
	}
	if kb.Remove(id) {
		t.Error("expected remove of an already-removed id to return false")
	}
}

func TestListOrderedByCreation(t *testing.T) {
	kb := New()
	first := kb.Add("# Alpha\nbody text")
	second := kb.Add("## Beta\nmore text")

	list := kb.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(list))
	}
	if list[0].ID != first || list[1].ID != second {
		t.Fatalf("expected creation order, got %+v", list)
	}
	if list[0].Title != "Alpha" {
		t.Errorf("expected H1 title 'Alpha', got %q", list[0].Title)
	}
	if list[1].Title != "Beta" {
		t.Errorf("expected H2 title 'Beta', got %q", list[1].Title)
	}
}

func TestTitleExtractionFallbacks(t *testing.T) {
	cases := []struct {
		content string
		want    string
	}{
		{"# Heading One\nbody", "Heading One"},
		{"intro line\n## Heading Two\nbody", "Heading Two"},
		{"just a plain first line\nsecond line", "just a plain first line"},
		{"", untitledDocument},
		{"   \n   ", untitledDocument},
	}
	for _, c := range cases {
		doc := Document{Content: c.content}
		if got := doc.Title(); got != c.want {
			t.Errorf("Title(%q) = %q, want %q", c.content, got, c.want)
		}
	}
}

func TestTitleTruncatesLongFirstLine(t *testing.T) {
	long := "this first line goes on for rather a lot more than fifty characters total"
	doc := Document{Content: long}
	got := doc.Title()
	if got != long[:50]+"..." {
		t.Errorf("expected truncated title with ellipsis, got %q", got)
	}
}

func TestContentJoinsWithSeparator(t *testing.T) {
	kb := New()
	if got := kb.Content(); got != "" {
		t.Errorf("expected empty content for empty kb, got %q", got)
	}

	kb.Add("doc one")
	kb.Add("doc two")
	want := "doc one\n\n---\n\ndoc two"
	if got := kb.Content(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestClearRemovesAllDocuments(t *testing.T) {
	kb := New()
	kb.Add("a")
	kb.Add("b")
	kb.Clear()

	if len(kb.List()) != 0 {
		t.Error("expected no documents after Clear")
	}
	if stats := kb.Stats(); stats.TotalDocuments != 0 || stats.TotalCharacters != 0 {
		t.Errorf("expected zeroed stats after Clear, got %+v", stats)
	}
}

func TestStats(t *testing.T) {
	kb := New()
	kb.Add("12345")
	kb.Add("123")

	stats := kb.Stats()
	if stats.TotalDocuments != 2 {
		t.Errorf("expected 2 documents, got %d", stats.TotalDocuments)
	}
	if stats.TotalCharacters != 8 {
		t.Errorf("expected 8 characters, got %d", stats.TotalCharacters)
	}
}

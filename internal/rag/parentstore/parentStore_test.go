package parentstore

import (
	"strings"
	"testing"

	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
)

func testConfig() SplitConfig {
	return SplitConfig{
		ParentSize:    1500,
		ParentOverlap: 100,
		ChildSize:     200,
		ChildOverlap:  20,
	}
}

func testDoc() commonModels.Document {
	return commonModels.Document{
		Id:          "doc-1",
		Name:        "q3_audit.pdf",
		Category:    commonModels.CategoryAudit,
		AccessGroup: "APAC",
		ContentType: commonModels.PDF,
	}
}

func TestIngest_ChildrenAreSubstringsOfParents(t *testing.T) {
	s := New(testConfig())
	sections := []commonModels.Section{
		{Text: strings.Repeat("The control operated effectively during the period. ", 70), Page: 1},
	}

	children, parents := s.Ingest(testDoc(), sections)

	if len(parents) == 0 || len(children) == 0 {
		t.Fatalf("Expected parents and children, got %d / %d", len(parents), len(children))
	}

	byId := make(map[string]commonModels.Chunk, len(parents))
	for _, p := range parents {
		byId[p.Id] = p
	}

	for _, c := range children {
		if c.Meta.ParentId == "" {
			t.Fatalf("Child %s has no parent id", c.Id)
		}
		parent, ok := byId[c.Meta.ParentId]
		if !ok {
			t.Fatalf("Child %s references unknown parent %s", c.Id, c.Meta.ParentId)
		}
		if !strings.Contains(parent.Text, c.Text) {
			t.Errorf("Child text is not a substring of its parent")
		}
		if c.Meta.AccessGroup != "APAC" || c.Meta.Category != commonModels.CategoryAudit {
			t.Errorf("Child metadata not inherited from document: %+v", c.Meta)
		}
	}
}

func TestResolveParents_DedupesAndKeepsOrder(t *testing.T) {
	s := New(testConfig())
	sections := []commonModels.Section{
		{Text: strings.Repeat("Finding one applies to the APAC region. ", 120), Page: 1},
	}
	children, parents := s.Ingest(testDoc(), sections)
	if len(parents) < 2 || len(children) < 3 {
		t.Fatalf("Test setup needs multiple parents and children, got %d / %d", len(parents), len(children))
	}

	// two children of the same parent plus one of another: expect 2 parents,
	// first-occurrence order
	var sameParent []commonModels.Chunk
	for _, c := range children {
		if c.Meta.ParentId == children[0].Meta.ParentId {
			sameParent = append(sameParent, c)
			if len(sameParent) == 2 {
				break
			}
		}
	}
	var other commonModels.Chunk
	for _, c := range children {
		if c.Meta.ParentId != children[0].Meta.ParentId {
			other = c
			break
		}
	}

	resolved := s.ResolveParents(append(sameParent, other))
	if len(resolved) != 2 {
		t.Fatalf("Expected 2 de-duplicated parents, got %d", len(resolved))
	}
	if resolved[0].Id != children[0].Meta.ParentId {
		t.Error("First resolved parent should match the first child's parent")
	}
}

func TestResolveParents_MissingParentIsDropped(t *testing.T) {
	s := New(testConfig())

	orphan := commonModels.Chunk{
		Id:   "child-x",
		Text: "text",
		Meta: commonModels.ChunkMeta{ParentId: "gone"},
	}
	noParent := commonModels.Chunk{Id: "child-y", Text: "text"}

	if got := s.ResolveParents([]commonModels.Chunk{orphan, noParent}); len(got) != 0 {
		t.Errorf("Expected no parents for orphan children, got %d", len(got))
	}
}

func TestRemoveDocument(t *testing.T) {
	s := New(testConfig())
	children, _ := s.Ingest(testDoc(), []commonModels.Section{
		{Text: strings.Repeat("Policy requires annual review. ", 100), Page: 1},
	})
	if s.Count() == 0 {
		t.Fatal("Expected parents after ingest")
	}

	s.RemoveDocument("doc-1")

	if s.Count() != 0 {
		t.Errorf("Expected empty store after removal, got %d parents", s.Count())
	}
	if got := s.ResolveParents(children); len(got) != 0 {
		t.Errorf("Stale children should resolve to nothing, got %d", len(got))
	}
}

func TestIngest_ReplacesPreviousVersion(t *testing.T) {
	s := New(testConfig())
	old, _ := s.Ingest(testDoc(), []commonModels.Section{
		{Text: strings.Repeat("Old content. ", 200), Page: 1},
	})
	_, newParents := s.Ingest(testDoc(), []commonModels.Section{
		{Text: strings.Repeat("New content. ", 200), Page: 1},
	})

	if s.Count() != len(newParents) {
		t.Errorf("Expected only new parents after re-ingest, count %d want %d", s.Count(), len(newParents))
	}
	if got := s.ResolveParents(old); len(got) != 0 {
		t.Errorf("Old children should not resolve after re-ingest, got %d", len(got))
	}
}

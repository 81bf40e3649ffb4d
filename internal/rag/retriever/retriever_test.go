package retriever

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/rag/rerank"
	"github.com/akolanti/AuditRAG/internal/rag/retrypolicy"
	"github.com/akolanti/AuditRAG/internal/rag/vectorDB"
	"github.com/akolanti/AuditRAG/internal/security"
)

// --- Mocks ---

type mockIndex struct {
	searchFunc func(ctx context.Context, vector []float32, k int, groups security.GroupSet) ([]vectorDB.Hit, error)
	searches   int
}

func (m *mockIndex) Upsert(ctx context.Context, chunks []commonModels.Chunk, vectors [][]float32) error {
	return nil
}
func (m *mockIndex) DeleteByDocument(ctx context.Context, documentId string) error { return nil }
func (m *mockIndex) Search(ctx context.Context, vector []float32, k int, groups security.GroupSet) ([]vectorDB.Hit, error) {
	m.searches++
	return m.searchFunc(ctx, vector, k, groups)
}

type mockEmbedder struct{}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}
func (m *mockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	return make([][]float32, len(chunks)), nil
}

type mockLLM struct {
	generateFunc func(system, prompt string) (string, error)
}

func (m *mockLLM) Generate(ctx context.Context, system, prompt string) (string, error) {
	return m.generateFunc(system, prompt)
}
func (m *mockLLM) GenerateStream(ctx context.Context, system, prompt string) (<-chan string, error) {
	return nil, errors.New("not implemented")
}
func (m *mockLLM) ModelName() string { return "mock-llm" }

type mockReranker struct {
	rerankFunc func(query string, candidates []rerank.Candidate, topN int) ([]rerank.Result, error)
}

func (m *mockReranker) Rerank(ctx context.Context, query string, candidates []rerank.Candidate, topN int) ([]rerank.Result, error) {
	return m.rerankFunc(query, candidates, topN)
}
func (m *mockReranker) ModelName() string { return "mock-rerank" }

type mockResolver struct {
	resolveFunc func(children []commonModels.Chunk) []commonModels.Chunk
}

func (m *mockResolver) ResolveParents(children []commonModels.Chunk) []commonModels.Chunk {
	return m.resolveFunc(children)
}

// --- Helpers ---

func hit(id, group string, score float32) vectorDB.Hit {
	return vectorDB.Hit{
		Chunk: commonModels.Chunk{
			Id:   id,
			Text: "content of " + id,
			Meta: commonModels.ChunkMeta{AccessGroup: group},
		},
		Score: score,
	}
}

func fastRetry() retrypolicy.Policy {
	return retrypolicy.New(2, time.Millisecond, time.Millisecond)
}

// --- Tests ---

func TestRetrieve_DirectSearch(t *testing.T) {
	index := &mockIndex{
		searchFunc: func(ctx context.Context, v []float32, k int, g security.GroupSet) ([]vectorDB.Hit, error) {
			return []vectorDB.Hit{hit("c1", "APAC", 0.9), hit("c2", "APAC", 0.8)}, nil
		},
	}
	r := New(index, &mockEmbedder{}, nil, nil, nil, fastRetry())

	result := r.Retrieve(context.Background(), "question", Options{
		TopK:   5,
		Groups: security.GroupSet{"APAC"},
	})

	if len(result.Hits) != 2 {
		t.Fatalf("Expected 2 hits, got %d", len(result.Hits))
	}
	if len(result.Context) != 2 || result.Context[0].Id != "c1" {
		t.Errorf("Context should fall back to children without parent expansion: %v", result.Context)
	}
}

func TestRetrieve_EmptyResultIsNotAnError(t *testing.T) {
	index := &mockIndex{
		searchFunc: func(ctx context.Context, v []float32, k int, g security.GroupSet) ([]vectorDB.Hit, error) {
			return nil, nil
		},
	}
	r := New(index, &mockEmbedder{}, nil, nil, nil, fastRetry())

	result := r.Retrieve(context.Background(), "question", Options{Groups: security.GroupSet{"APAC"}})

	if len(result.Hits) != 0 || len(result.Context) != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
	if index.searches != 1 {
		t.Errorf("Zero hits is a real answer, expected no retries, got %d searches", index.searches)
	}
}

func TestRetrieve_RerankerFailureKeepsOrder(t *testing.T) {
	index := &mockIndex{
		searchFunc: func(ctx context.Context, v []float32, k int, g security.GroupSet) ([]vectorDB.Hit, error) {
			return []vectorDB.Hit{hit("c1", "APAC", 0.9), hit("c2", "APAC", 0.8), hit("c3", "APAC", 0.7)}, nil
		},
	}
	reranker := &mockReranker{
		rerankFunc: func(q string, c []rerank.Candidate, n int) ([]rerank.Result, error) {
			return nil, errors.New("rerank api down")
		},
	}
	r := New(index, &mockEmbedder{}, nil, reranker, nil, fastRetry())

	result := r.Retrieve(context.Background(), "question", Options{
		UseReranking: true,
		TopK:         5,
		RerankTopN:   2,
		Groups:       security.GroupSet{"APAC"},
	})

	if len(result.Hits) != 2 {
		t.Fatalf("Fallback must truncate to topN, got %d hits", len(result.Hits))
	}
	if result.Hits[0].Chunk.Id != "c1" || result.Hits[1].Chunk.Id != "c2" {
		t.Errorf("Fallback must keep the pre-rank order: %v", result.Hits)
	}
}

func TestRetrieve_NilRerankerTreatedAsFallback(t *testing.T) {
	index := &mockIndex{
		searchFunc: func(ctx context.Context, v []float32, k int, g security.GroupSet) ([]vectorDB.Hit, error) {
			return []vectorDB.Hit{hit("c1", "APAC", 0.9), hit("c2", "APAC", 0.8), hit("c3", "APAC", 0.7)}, nil
		},
	}
	r := New(index, &mockEmbedder{}, nil, nil, nil, fastRetry())

	result := r.Retrieve(context.Background(), "question", Options{
		UseReranking: true,
		RerankTopN:   2,
		Groups:       security.GroupSet{"APAC"},
	})

	if len(result.Hits) != 2 || result.Hits[0].Chunk.Id != "c1" {
		t.Errorf("Nil reranker should behave like a failing one: %v", result.Hits)
	}
}

func TestRetrieve_RerankerReorders(t *testing.T) {
	index := &mockIndex{
		searchFunc: func(ctx context.Context, v []float32, k int, g security.GroupSet) ([]vectorDB.Hit, error) {
			return []vectorDB.Hit{hit("c1", "APAC", 0.9), hit("c2", "APAC", 0.8), hit("c3", "APAC", 0.7)}, nil
		},
	}
	reranker := &mockReranker{
		rerankFunc: func(q string, c []rerank.Candidate, n int) ([]rerank.Result, error) {
			return []rerank.Result{
				{Index: 2, Score: 0.99},
				{Index: 0, Score: 0.42},
			}, nil
		},
	}
	r := New(index, &mockEmbedder{}, nil, reranker, nil, fastRetry())

	result := r.Retrieve(context.Background(), "question", Options{
		UseReranking: true,
		RerankTopN:   5,
		Groups:       security.GroupSet{"APAC"},
	})

	if len(result.Hits) != 2 {
		t.Fatalf("Expected 2 reranked hits, got %d", len(result.Hits))
	}
	if result.Hits[0].Chunk.Id != "c3" || result.Hits[1].Chunk.Id != "c1" {
		t.Errorf("Expected rerank order c3, c1, got %v", result.Hits)
	}
	if result.Hits[0].Score != 0.99 {
		t.Errorf("Reranked hit should carry the cross-encoder score, got %f", result.Hits[0].Score)
	}
}

func TestRetrieve_ExpansionFailureFallsBackToDirect(t *testing.T) {
	index := &mockIndex{
		searchFunc: func(ctx context.Context, v []float32, k int, g security.GroupSet) ([]vectorDB.Hit, error) {
			return []vectorDB.Hit{hit("c1", "APAC", 0.9)}, nil
		},
	}
	llm := &mockLLM{
		generateFunc: func(system, prompt string) (string, error) {
			return "", errors.New("llm down")
		},
	}
	r := New(index, &mockEmbedder{}, llm, nil, nil, fastRetry())

	result := r.Retrieve(context.Background(), "question", Options{
		UseQueryExpansion: true,
		Groups:            security.GroupSet{"APAC"},
	})

	if len(result.Hits) != 1 || result.Hits[0].Chunk.Id != "c1" {
		t.Errorf("Expected direct search fallback result, got %v", result.Hits)
	}
}

func TestRetrieve_MultiQueryUnionDedupes(t *testing.T) {
	index := &mockIndex{
		searchFunc: func(ctx context.Context, v []float32, k int, g security.GroupSet) ([]vectorDB.Hit, error) {
			return []vectorDB.Hit{hit("c1", "APAC", 0.9), hit("c2", "APAC", 0.8)}, nil
		},
	}
	llm := &mockLLM{
		generateFunc: func(system, prompt string) (string, error) {
			return "variant one\nvariant two", nil
		},
	}
	r := New(index, &mockEmbedder{}, llm, nil, nil, fastRetry())

	result := r.Retrieve(context.Background(), "question", Options{
		UseQueryExpansion: true,
		Groups:            security.GroupSet{"APAC"},
	})

	// original + 2 variants searched, same hits each time, union keeps 2
	if index.searches != 3 {
		t.Errorf("Expected 3 searches (original + 2 variants), got %d", index.searches)
	}
	if len(result.Hits) != 2 {
		t.Errorf("Expected de-duplicated union of 2 hits, got %d", len(result.Hits))
	}
}

func TestRetrieve_ParentExpansionFiltersGroups(t *testing.T) {
	index := &mockIndex{
		searchFunc: func(ctx context.Context, v []float32, k int, g security.GroupSet) ([]vectorDB.Hit, error) {
			return []vectorDB.Hit{hit("c1", "APAC", 0.9)}, nil
		},
	}
	resolver := &mockResolver{
		resolveFunc: func(children []commonModels.Chunk) []commonModels.Chunk {
			return []commonModels.Chunk{
				{Id: "p1", Text: "allowed parent", Meta: commonModels.ChunkMeta{AccessGroup: "APAC"}},
				{Id: "p2", Text: "hidden parent", Meta: commonModels.ChunkMeta{AccessGroup: "EMEA"}},
			}
		},
	}
	r := New(index, &mockEmbedder{}, nil, nil, resolver, fastRetry())

	result := r.Retrieve(context.Background(), "question", Options{
		UseParentExpansion: true,
		Groups:             security.GroupSet{"APAC"},
	})

	if len(result.Context) != 1 || result.Context[0].Id != "p1" {
		t.Errorf("Access filter must re-apply to parents, got %v", result.Context)
	}
}

func TestRetrieve_AllParentsFilteredKeepsChildren(t *testing.T) {
	index := &mockIndex{
		searchFunc: func(ctx context.Context, v []float32, k int, g security.GroupSet) ([]vectorDB.Hit, error) {
			return []vectorDB.Hit{hit("c1", "APAC", 0.9)}, nil
		},
	}
	resolver := &mockResolver{
		resolveFunc: func(children []commonModels.Chunk) []commonModels.Chunk {
			return []commonModels.Chunk{
				{Id: "p1", Meta: commonModels.ChunkMeta{AccessGroup: "EMEA"}},
			}
		},
	}
	r := New(index, &mockEmbedder{}, nil, nil, resolver, fastRetry())

	result := r.Retrieve(context.Background(), "question", Options{
		UseParentExpansion: true,
		Groups:             security.GroupSet{"APAC"},
	})

	if len(result.Context) != 1 || result.Context[0].Id != "c1" {
		t.Errorf("Children beat an empty context when every parent is filtered: %v", result.Context)
	}
}

func TestCleanVariantLine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"- variant text", "variant text"},
		{"* variant text", "variant text"},
		{"1. variant text", "variant text"},
		{"12) variant text", "variant text"},
		{"  plain text  ", "plain text"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := cleanVariantLine(tt.in); got != tt.want {
			t.Errorf("cleanVariantLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

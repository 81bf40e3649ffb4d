package rag_test

import (
	"context"
	"strings"

	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/rag/vectorDB"
	"github.com/akolanti/AuditRAG/internal/security"
)

type MockIndex struct {
	OnSearch func(ctx context.Context, vector []float32, k int, groups security.GroupSet) ([]vectorDB.Hit, error)
	OnUpsert func(ctx context.Context, chunks []commonModels.Chunk, vectors [][]float32) error
}

func (m *MockIndex) Search(ctx context.Context, vector []float32, k int, groups security.GroupSet) ([]vectorDB.Hit, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, vector, k, groups)
	}
	return nil, nil
}

func (m *MockIndex) Upsert(ctx context.Context, chunks []commonModels.Chunk, vectors [][]float32) error {
	if m.OnUpsert != nil {
		return m.OnUpsert(ctx, chunks, vectors)
	}
	return nil
}

func (m *MockIndex) DeleteByDocument(ctx context.Context, documentId string) error {
	return nil
}

// MockProvider hands the same index to every collection, which is enough for
// service-level tests.
type MockProvider struct {
	Index *MockIndex
}

func (m *MockProvider) Collection(ctx context.Context, name string) (vectorDB.Index, error) {
	return m.Index, nil
}

type MockEmbedder struct {
	OnGetEmbedding func(ctx context.Context, query string) ([]float32, error)
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return []float32{0.1}, nil
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	return make([][]float32, len(chunks)), nil
}

type MockLLM struct {
	OnGenerate func(ctx context.Context, system, prompt string) (string, error)
}

func (m *MockLLM) Generate(ctx context.Context, system, prompt string) (string, error) {
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, system, prompt)
	}
	// query expansion asks for rephrasings; everything else is generation
	if strings.Contains(system, "rewrite search queries") {
		return "alternative phrasing", nil
	}
	return "final answer", nil
}

func (m *MockLLM) GenerateStream(ctx context.Context, system, prompt string) (<-chan string, error) {
	out := make(chan string, 2)
	out <- "final "
	out <- "answer"
	close(out)
	return out, nil
}

func (m *MockLLM) ModelName() string { return "mock-llm" }

package multiindex

import (
	"context"
	"fmt"
	"sort"

	"github.com/akolanti/AuditRAG/internal/rag/embedding"
	"github.com/akolanti/AuditRAG/internal/rag/llm"
	"github.com/akolanti/AuditRAG/internal/rag/rerank"
	"github.com/akolanti/AuditRAG/internal/rag/retriever"
	"github.com/akolanti/AuditRAG/internal/rag/retrypolicy"
	"github.com/akolanti/AuditRAG/internal/rag/vectorDB"
	"github.com/akolanti/AuditRAG/internal/security"

	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
)

// fanoutIndex presents every category index as one searchable index. The
// standard query engine retrieves over it so that a plain question sees the
// whole accessible corpus regardless of category boundaries.
type fanoutIndex struct {
	engine *Engine
}

func (f *fanoutIndex) Search(ctx context.Context, vector []float32, k int, groups security.GroupSet) ([]vectorDB.Hit, error) {
	f.engine.mu.RLock()
	indexes := make([]vectorDB.Index, 0, len(f.engine.indexes))
	for _, ci := range f.engine.indexes {
		if ci.state == stateReady {
			indexes = append(indexes, ci.index)
		}
	}
	f.engine.mu.RUnlock()

	var merged []vectorDB.Hit
	for _, index := range indexes {
		hits, err := index.Search(ctx, vector, k, groups)
		if err != nil {
			return nil, err
		}
		merged = append(merged, hits...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > k && k > 0 {
		merged = merged[:k]
	}
	return merged, nil
}

// Upsert is deliberately unsupported: writes go through AddDocuments, which
// knows the target category.
func (f *fanoutIndex) Upsert(ctx context.Context, chunks []commonModels.Chunk, vectors [][]float32) error {
	return fmt.Errorf("fan-out index is read-only, use AddDocuments")
}

func (f *fanoutIndex) DeleteByDocument(ctx context.Context, documentId string) error {
	return f.engine.RemoveDocument(ctx, documentId)
}

// StandardRetriever builds the full retrieval pipeline over the fan-out view
// of all category indexes.
func (e *Engine) StandardRetriever(embedder embedding.Embedder, llmProvider llm.Provider, reranker rerank.Reranker, parents retriever.ParentResolver, retry retrypolicy.Policy) *retriever.Retriever {
	return retriever.New(&fanoutIndex{engine: e}, embedder, llmProvider, reranker, parents, retry)
}

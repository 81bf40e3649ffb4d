package vectorDB

import (
	"context"

	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/security"
)

type Hit struct {
	Chunk commonModels.Chunk
	Score float32
}

// Index is one vector collection of child chunks. The permitted-group set is
// part of the search call so the access filter runs inside the similarity
// query, not as a post-hoc truncation of an unfiltered top-k.
type Index interface {
	Upsert(ctx context.Context, chunks []commonModels.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int, groups security.GroupSet) ([]Hit, error)
	DeleteByDocument(ctx context.Context, documentId string) error
}

// Provider hands out one Index per named collection (one per document
// category for the router).
type Provider interface {
	Collection(ctx context.Context, name string) (Index, error)
}

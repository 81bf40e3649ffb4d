package rerank

import "context"

type Candidate struct {
	Id   string
	Text string
}

// Result points back into the candidate slice it was scored from.
type Result struct {
	Index int
	Score float32
}

// Reranker re-scores candidates against the query with a cross-encoder.
// It may be entirely absent (unconfigured); callers treat a nil Reranker
// exactly like a failing one and fall back to the pre-rank order.
type Reranker interface {
	//Rerank returns at most topN results sorted by score descending.
	Rerank(ctx context.Context, query string, candidates []Candidate, topN int) ([]Result, error)
	ModelName() string
}

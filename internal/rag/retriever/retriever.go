package retriever

import (
	"context"
	"sort"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/metrics"
	"github.com/akolanti/AuditRAG/internal/rag/embedding"
	"github.com/akolanti/AuditRAG/internal/rag/llm"
	"github.com/akolanti/AuditRAG/internal/rag/rerank"
	"github.com/akolanti/AuditRAG/internal/rag/retrypolicy"
	"github.com/akolanti/AuditRAG/internal/rag/vectorDB"
	"github.com/akolanti/AuditRAG/internal/security"
	"github.com/akolanti/AuditRAG/pkg/logger_i"
)

// Options selects which pipeline stages run for one retrieval. The permitted
// set rides along because every stage operates inside the access-filtered
// candidate universe.
type Options struct {
	UseQueryExpansion  bool
	UseReranking       bool
	UseParentExpansion bool
	TopK               int
	RerankTopN         int
	Groups             security.GroupSet
}

// Result carries both granularities: Context is what goes to the LLM
// (parents after expansion), Hits keeps the child-level ranking for
// citations and scores.
type Result struct {
	Context []commonModels.Chunk
	Hits    []vectorDB.Hit
}

// ParentResolver is the slice of the parent store the retriever needs.
type ParentResolver interface {
	ResolveParents(children []commonModels.Chunk) []commonModels.Chunk
}

type Retriever struct {
	index    vectorDB.Index
	embedder embedding.Embedder
	llm      llm.Provider
	reranker rerank.Reranker //nil means unconfigured, handled like a failure
	parents  ParentResolver
	retry    retrypolicy.Policy
	logger   *logger_i.Logger
}

func New(index vectorDB.Index, embedder embedding.Embedder, llmProvider llm.Provider, reranker rerank.Reranker, parents ParentResolver, retry retrypolicy.Policy) *Retriever {
	return &Retriever{
		index:    index,
		embedder: embedder,
		llm:      llmProvider,
		reranker: reranker,
		parents:  parents,
		retry:    retry,
		logger:   logger_i.NewLogger("Retriever"),
	}
}

// Retrieve runs expansion -> filtered search -> rerank -> parent expansion.
// It never returns an error: retrieval failure degrades to an empty result
// and the generation step deals with having no context.
func (r *Retriever) Retrieve(ctx context.Context, question string, opts Options) Result {
	log := r.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	if opts.TopK <= 0 {
		opts.TopK = config.RetrievalTopK
	}
	if opts.RerankTopN <= 0 {
		opts.RerankTopN = config.RerankTopN
	}

	hits := r.gatherCandidates(ctx, question, opts)
	if len(hits) == 0 {
		log.Warn("Retrieval produced no candidates", "question", question)
		return Result{}
	}
	log.Debug("Retrieved candidates", "count", len(hits))

	hits = r.rerankStage(ctx, question, hits, opts)

	result := Result{Hits: hits}
	children := chunksOf(hits)

	if opts.UseParentExpansion && r.parents != nil {
		parents := r.parents.ResolveParents(children)
		parents = security.FilterChunks(parents, security.BuildPredicate(opts.Groups))
		if len(parents) > 0 {
			log.Debug("Expanded to parent chunks", "parents", len(parents), "children", len(children))
			result.Context = parents
		}
	}
	if len(result.Context) == 0 {
		//store inconsistency or expansion disabled: the unexpanded
		//candidates beat an empty context
		result.Context = children
	}
	return result
}

func (r *Retriever) rerankStage(ctx context.Context, question string, hits []vectorDB.Hit, opts Options) []vectorDB.Hit {
	if !opts.UseReranking {
		return hits
	}
	log := r.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	if r.reranker == nil {
		log.Debug("No re-ranker configured, keeping retrieval order")
		return truncateHits(hits, opts.RerankTopN)
	}

	candidates := make([]rerank.Candidate, len(hits))
	for i, h := range hits {
		candidates[i] = rerank.Candidate{Id: h.Chunk.Id, Text: h.Chunk.Text}
	}

	results, err := r.reranker.Rerank(ctx, question, candidates, opts.RerankTopN)
	if err != nil || len(results) == 0 {
		//re-ranking must never zero out recall or abort the request
		log.Warn("Re-ranking failed, using original order", "error", err)
		metrics.IncrementRerankFallback()
		return truncateHits(hits, opts.RerankTopN)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	reranked := make([]vectorDB.Hit, 0, len(results))
	for _, res := range results {
		if res.Index < 0 || res.Index >= len(hits) {
			continue
		}
		reranked = append(reranked, vectorDB.Hit{Chunk: hits[res.Index].Chunk, Score: res.Score})
	}
	if len(reranked) == 0 {
		return truncateHits(hits, opts.RerankTopN)
	}
	return truncateHits(reranked, opts.RerankTopN)
}

func truncateHits(hits []vectorDB.Hit, n int) []vectorDB.Hit {
	if n > 0 && len(hits) > n {
		return hits[:n]
	}
	return hits
}

func chunksOf(hits []vectorDB.Hit) []commonModels.Chunk {
	chunks := make([]commonModels.Chunk, len(hits))
	for i, h := range hits {
		chunks[i] = h.Chunk
	}
	return chunks
}

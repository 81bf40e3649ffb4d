// Package multiindex maintains one vector index per document category and
// the two query engines derived from them: a router that picks a single
// category per question, and a sub-question engine that decomposes a question
// across categories and synthesizes the sub-answers.
package multiindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/rag/embedding"
	"github.com/akolanti/AuditRAG/internal/rag/llm"
	"github.com/akolanti/AuditRAG/internal/rag/rerank"
	"github.com/akolanti/AuditRAG/internal/rag/retriever"
	"github.com/akolanti/AuditRAG/internal/rag/retrypolicy"
	"github.com/akolanti/AuditRAG/internal/rag/vectorDB"
	"github.com/akolanti/AuditRAG/pkg/logger_i"
)

// SentinelAnswer is returned by both derived engines until at least two
// categories hold documents. Routing needs a real choice among alternatives.
const SentinelAnswer = "No documents indexed yet."

type categoryState string

const (
	stateEmpty categoryState = "EMPTY"
	stateReady categoryState = "READY"
)

type categoryIndex struct {
	index     vectorDB.Index
	retriever *retriever.Retriever
	state     categoryState
}

type Engine struct {
	mu       sync.RWMutex
	indexes  map[commonModels.Category]*categoryIndex
	derived  *derivedEngines
	selector Selector
	llm      llm.Provider
	logger   *logger_i.Logger
}

// derivedEngines is the router/sub-question snapshot. It is rebuilt wholesale
// after every document addition and swapped in under the engine lock, so a
// reader always sees one consistent ready-set.
type derivedEngines struct {
	ready []CategoryInfo
}

func CollectionFor(c commonModels.Category) string {
	switch c {
	case commonModels.CategoryPolicy:
		return config.PolicyCollection
	case commonModels.CategoryFinancial:
		return config.FinancialCollection
	default:
		return config.AuditCollection
	}
}

// NewEngine creates (or attaches to) one collection per category and wires a
// retriever over each.
func NewEngine(ctx context.Context, provider vectorDB.Provider, embedder embedding.Embedder, llmProvider llm.Provider, reranker rerank.Reranker, parents retriever.ParentResolver, retry retrypolicy.Policy, selector Selector) (*Engine, error) {
	e := &Engine{
		indexes:  make(map[commonModels.Category]*categoryIndex),
		derived:  &derivedEngines{},
		selector: selector,
		llm:      llmProvider,
		logger:   logger_i.NewLogger("MultiIndexEngine"),
	}
	for _, cat := range commonModels.Categories() {
		index, err := provider.Collection(ctx, CollectionFor(cat))
		if err != nil {
			return nil, fmt.Errorf("collection for category %s: %w", cat, err)
		}
		e.indexes[cat] = &categoryIndex{
			index:     index,
			retriever: retriever.New(index, embedder, llmProvider, reranker, parents, retry),
			state:     stateEmpty,
		}
	}
	return e, nil
}

// AddDocuments upserts pre-embedded chunks into the category's index. An
// unknown category is a caller error and is rejected synchronously, before
// anything touches the index.
func (e *Engine) AddDocuments(ctx context.Context, category commonModels.Category, chunks []commonModels.Chunk, vectors [][]float32) error {
	if !commonModels.IsValidCategory(category) {
		return fmt.Errorf("unknown category %q", category)
	}

	e.mu.Lock()
	target := e.indexes[category]
	e.mu.Unlock()

	if err := target.index.Upsert(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("upsert into %s index: %w", category, err)
	}

	e.mu.Lock()
	target.state = stateReady
	e.derived = e.rebuildDerivedLocked()
	readyCount := len(e.derived.ready)
	e.mu.Unlock()

	e.logger.Info("Category index updated", "category", category, "chunks", len(chunks), "readyCategories", readyCount)
	return nil
}

// RemoveDocument deletes the document's points from every category index.
// The document lives in exactly one of them, but the delete is a filtered
// no-op elsewhere and this way the caller does not need to know which.
func (e *Engine) RemoveDocument(ctx context.Context, documentId string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for cat, ci := range e.indexes {
		if err := ci.index.DeleteByDocument(ctx, documentId); err != nil {
			return fmt.Errorf("delete document from %s index: %w", cat, err)
		}
	}
	return nil
}

func (e *Engine) rebuildDerivedLocked() *derivedEngines {
	d := &derivedEngines{}
	for _, cat := range commonModels.Categories() {
		if e.indexes[cat].state == stateReady {
			d.ready = append(d.ready, CategoryInfo{Category: cat, Description: describeCategory(cat)})
		}
	}
	return d
}

func (e *Engine) snapshot() *derivedEngines {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.derived
}

// ReadyCount reports how many category indexes hold documents.
func (e *Engine) ReadyCount() int {
	return len(e.snapshot().ready)
}

// RouterResult is one routed retrieval. When Sentinel is set the engines were
// not usable and Category/Retrieval are zero.
type RouterResult struct {
	Category  commonModels.Category
	Retrieval retriever.Result
	Sentinel  bool
}

// RouterQuery picks one category for the question and retrieves from it.
func (e *Engine) RouterQuery(ctx context.Context, question string, opts retriever.Options) RouterResult {
	log := e.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	derived := e.snapshot()
	if len(derived.ready) < 2 {
		log.Info("Router queried before enough indexes are ready", "readyCategories", len(derived.ready))
		return RouterResult{Sentinel: true}
	}

	category := e.selectCategory(ctx, question, derived.ready)
	log.Debug("Routed question", "category", category)

	e.mu.RLock()
	r := e.indexes[category].retriever
	e.mu.RUnlock()

	return RouterResult{
		Category:  category,
		Retrieval: r.Retrieve(ctx, question, opts),
	}
}

func (e *Engine) selectCategory(ctx context.Context, question string, candidates []CategoryInfo) commonModels.Category {
	category, err := e.selector.Select(ctx, question, candidates)
	if err == nil {
		return category
	}
	//an undecidable route still has to land somewhere
	e.logger.Warn("Selector could not decide, using first ready category", "error", err)
	return candidates[0].Category
}

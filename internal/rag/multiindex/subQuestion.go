package multiindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/rag/retriever"
)

const decomposeSystemPrompt = "You decompose questions across document collections. Respond with a JSON array only, no prose and no code fences."

const subAnswerSystemPrompt = "You answer one focused question strictly from the provided context. If the context does not contain the answer, say so briefly."

type subQuestion struct {
	Category commonModels.Category `json:"category"`
	Question string                `json:"question"`
}

// SubQuestionResult is the sub-question engine's synthesized output. Unlike
// the router it generates its own answer, because synthesis across
// sub-answers is part of the engine itself.
type SubQuestionResult struct {
	Answer    string
	Sources   []commonModels.SourceRef
	Sentinel  bool
	SubCount  int
	Delegated bool //decomposition failed and the router handled it instead
}

// SubQuestionQuery decomposes the question, answers each sub-question from
// its category index, and synthesizes one final answer. If decomposition
// produces nothing usable the router engine takes over.
func (e *Engine) SubQuestionQuery(ctx context.Context, question string, opts retriever.Options) (SubQuestionResult, error) {
	log := e.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	derived := e.snapshot()
	if len(derived.ready) < 2 {
		log.Info("Sub-question engine queried before enough indexes are ready", "readyCategories", len(derived.ready))
		return SubQuestionResult{Sentinel: true}, nil
	}

	subs, err := e.decompose(ctx, question, derived.ready)
	if err != nil || len(subs) == 0 {
		log.Warn("Decomposition failed, delegating to router", "error", err)
		routed := e.RouterQuery(ctx, question, opts)
		if routed.Sentinel {
			return SubQuestionResult{Sentinel: true}, nil
		}
		answer, genErr := e.generateFromContext(ctx, question, routed.Retrieval.Context)
		if genErr != nil {
			return SubQuestionResult{}, genErr
		}
		return SubQuestionResult{
			Answer:    answer,
			Sources:   sourcesOf(routed.Retrieval),
			Delegated: true,
		}, nil
	}

	var parts []string
	var sources []commonModels.SourceRef
	for _, sub := range subs {
		e.mu.RLock()
		r := e.indexes[sub.Category].retriever
		e.mu.RUnlock()

		result := r.Retrieve(ctx, sub.Question, opts)
		answer, genErr := e.generateFromContext(ctx, sub.Question, result.Context)
		if genErr != nil {
			log.Warn("Sub-answer generation failed", "category", sub.Category, "error", genErr)
			continue
		}
		parts = append(parts, fmt.Sprintf("Sub-question (%s): %s\nSub-answer: %s", sub.Category, sub.Question, answer))
		sources = append(sources, sourcesOf(result)...)
	}
	if len(parts) == 0 {
		return SubQuestionResult{}, fmt.Errorf("all sub-questions failed")
	}

	final, err := e.synthesize(ctx, question, parts)
	if err != nil {
		return SubQuestionResult{}, err
	}
	return SubQuestionResult{Answer: final, Sources: sources, SubCount: len(subs)}, nil
}

func (e *Engine) decompose(ctx context.Context, question string, candidates []CategoryInfo) ([]subQuestion, error) {
	if e.llm == nil {
		return nil, fmt.Errorf("no llm provider configured for decomposition")
	}

	var b strings.Builder
	b.WriteString("Collections:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %s: %s\n", c.Category, c.Description)
	}
	fmt.Fprintf(&b,
		"\nBreak the question below into at most one sub-question per relevant collection. Skip collections that are irrelevant.\nReturn a JSON array of objects with keys \"category\" and \"question\".\n\nQuestion: %s",
		question,
	)

	raw, err := e.llm.Generate(ctx, decomposeSystemPrompt, b.String())
	if err != nil {
		return nil, fmt.Errorf("decomposition call: %w", err)
	}

	var parsed []subQuestion
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("decomposition output not valid JSON: %w", err)
	}

	ready := make(map[commonModels.Category]bool, len(candidates))
	for _, c := range candidates {
		ready[c.Category] = true
	}
	var subs []subQuestion
	for _, s := range parsed {
		if s.Question == "" || !ready[s.Category] {
			continue
		}
		subs = append(subs, s)
	}
	return subs, nil
}

func (e *Engine) generateFromContext(ctx context.Context, question string, contextChunks []commonModels.Chunk) (string, error) {
	var b strings.Builder
	if len(contextChunks) == 0 {
		b.WriteString("Context: none available.\n")
	} else {
		b.WriteString("Context:\n")
		for _, c := range contextChunks {
			fmt.Fprintf(&b, "[%s]\n%s\n\n", c.Meta.DocName, c.Text)
		}
	}
	fmt.Fprintf(&b, "Question: %s", question)

	answer, err := e.llm.Generate(ctx, subAnswerSystemPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("sub-answer generation: %w", err)
	}
	return answer, nil
}

func (e *Engine) synthesize(ctx context.Context, question string, parts []string) (string, error) {
	prompt := fmt.Sprintf(
		"Original question: %s\n\n%s\n\nCombine the sub-answers above into one coherent answer to the original question.",
		question, strings.Join(parts, "\n\n"),
	)
	answer, err := e.llm.Generate(ctx, config.SystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("answer synthesis: %w", err)
	}
	return answer, nil
}

func sourcesOf(r retriever.Result) []commonModels.SourceRef {
	refs := make([]commonModels.SourceRef, 0, len(r.Hits))
	for _, h := range r.Hits {
		refs = append(refs, commonModels.ToSourceRef(h.Chunk, h.Score))
	}
	return refs
}

// stripCodeFence unwraps ```json ... ``` blocks that models emit despite the
// instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/rag/vectorDB"
)

const expansionSystemPrompt = "You rewrite search queries. Respond with exactly the requested rephrasings, one per line, without numbering or commentary."

// searchStrategy is one way of turning a question into candidates. Strategies
// are tried in order and each gets the full retry budget before the next one
// is attempted.
type searchStrategy struct {
	name string
	run  func(ctx context.Context) ([]vectorDB.Hit, error)
}

func (r *Retriever) gatherCandidates(ctx context.Context, question string, opts Options) []vectorDB.Hit {
	log := r.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	var strategies []searchStrategy
	if opts.UseQueryExpansion && r.llm != nil {
		strategies = append(strategies, searchStrategy{
			name: "multi_query_search",
			run: func(ctx context.Context) ([]vectorDB.Hit, error) {
				return r.multiQuerySearch(ctx, question, opts)
			},
		})
	}
	strategies = append(strategies, searchStrategy{
		name: "direct_search",
		run: func(ctx context.Context) ([]vectorDB.Hit, error) {
			return r.directSearch(ctx, question, opts)
		},
	})

	for _, strategy := range strategies {
		var hits []vectorDB.Hit
		err := r.retry.Do(ctx, strategy.name, func() error {
			found, err := strategy.run(ctx)
			if err != nil {
				return err
			}
			hits = found
			return nil
		})
		if err == nil {
			//a successful search with zero hits is a real answer, not
			//a reason to try the next strategy
			return hits
		}
		log.Warn("Search strategy exhausted retries", "strategy", strategy.name, "error", err)
	}
	return nil
}

// directSearch embeds the question as-is and runs one filtered search.
func (r *Retriever) directSearch(ctx context.Context, question string, opts Options) ([]vectorDB.Hit, error) {
	vector, err := r.embedder.GetEmbedding(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	return r.index.Search(ctx, vector, opts.TopK, opts.Groups)
}

// multiQuerySearch asks the LLM for paraphrases, searches each variant plus
// the original, and unions the hits keeping the first occurrence of every
// chunk id.
func (r *Retriever) multiQuerySearch(ctx context.Context, question string, opts Options) ([]vectorDB.Hit, error) {
	variants, err := r.expandQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	queries := append([]string{question}, variants...)
	seen := make(map[string]bool)
	var union []vectorDB.Hit
	for _, q := range queries {
		hits, err := r.directSearch(ctx, q, opts)
		if err != nil {
			return nil, fmt.Errorf("search for variant %q: %w", q, err)
		}
		for _, h := range hits {
			if seen[h.Chunk.Id] {
				continue
			}
			seen[h.Chunk.Id] = true
			union = append(union, h)
		}
	}
	return union, nil
}

func (r *Retriever) expandQuery(ctx context.Context, question string) ([]string, error) {
	prompt := fmt.Sprintf(
		"Generate %d alternative phrasings of the following question about audit and compliance documents. Keep the meaning identical.\n\nQuestion: %s",
		config.QueryExpansionCount, question,
	)
	raw, err := r.llm.Generate(ctx, expansionSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("query expansion: %w", err)
	}

	var variants []string
	for _, line := range strings.Split(raw, "\n") {
		line = cleanVariantLine(line)
		if line == "" || strings.EqualFold(line, question) {
			continue
		}
		variants = append(variants, line)
		if len(variants) == config.QueryExpansionCount {
			break
		}
	}
	return variants, nil
}

// cleanVariantLine strips the list decorations models add despite being told
// not to, e.g. "1. ", "- ", "* ".
func cleanVariantLine(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "-*")
	line = strings.TrimSpace(line)
	for i, ch := range line {
		if ch >= '0' && ch <= '9' {
			continue
		}
		if ch == '.' || ch == ')' {
			line = strings.TrimSpace(line[i+1:])
		}
		break
	}
	return line
}

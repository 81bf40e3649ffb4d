package multiindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/rag/llm"
)

// CategoryInfo is what a Selector gets to decide with: the category name and
// its natural-language description.
type CategoryInfo struct {
	Category    commonModels.Category
	Description string
}

// Selector picks exactly one category index for a question. Implementations
// return an error when they cannot decide; the engine then falls back to the
// first ready category.
type Selector interface {
	Select(ctx context.Context, question string, candidates []CategoryInfo) (commonModels.Category, error)
}

var categoryDescriptions = map[commonModels.Category]string{
	commonModels.CategoryAudit:     "Audit reports: findings, observations, control testing results, remediation status and internal audit conclusions.",
	commonModels.CategoryPolicy:    "Policies and procedures: compliance requirements, governance standards, codes of conduct and regulatory guidance.",
	commonModels.CategoryFinancial: "Financial data: statements, budgets, expenditure breakdowns, spreadsheets and quantitative reporting.",
}

func describeCategory(c commonModels.Category) string {
	if d, ok := categoryDescriptions[c]; ok {
		return d
	}
	return string(c) + " documents"
}

const selectorSystemPrompt = "You route questions to document collections. Respond with exactly one collection name from the list, nothing else."

type llmSelector struct {
	llm llm.Provider
}

func NewLLMSelector(provider llm.Provider) Selector {
	return &llmSelector{llm: provider}
}

func (s *llmSelector) Select(ctx context.Context, question string, candidates []CategoryInfo) (commonModels.Category, error) {
	if s.llm == nil {
		return "", fmt.Errorf("no llm provider configured for routing")
	}

	var b strings.Builder
	b.WriteString("Collections:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %s: %s\n", c.Category, c.Description)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n\nWhich single collection should answer this question?", question)

	raw, err := s.llm.Generate(ctx, selectorSystemPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("routing decision: %w", err)
	}

	answer := strings.ToLower(strings.TrimSpace(raw))
	for _, c := range candidates {
		if strings.Contains(answer, strings.ToLower(string(c.Category))) {
			return c.Category, nil
		}
	}
	return "", fmt.Errorf("routing decision %q matched no candidate", raw)
}

// keywordSelector is the rule-based stand-in. It scores each candidate by
// how many of its trigger words appear in the question.
type keywordSelector struct {
	triggers map[commonModels.Category][]string
}

func NewKeywordSelector() Selector {
	return &keywordSelector{
		triggers: map[commonModels.Category][]string{
			commonModels.CategoryAudit:     {"audit", "finding", "observation", "control", "remediation", "testing"},
			commonModels.CategoryPolicy:    {"policy", "policies", "procedure", "compliance", "regulation", "standard", "governance"},
			commonModels.CategoryFinancial: {"financial", "budget", "expenditure", "cost", "revenue", "spend", "statement"},
		},
	}
}

func (s *keywordSelector) Select(ctx context.Context, question string, candidates []CategoryInfo) (commonModels.Category, error) {
	lowered := strings.ToLower(question)

	best := commonModels.Category("")
	bestScore := 0
	for _, c := range candidates {
		score := 0
		for _, word := range s.triggers[c.Category] {
			if strings.Contains(lowered, word) {
				score++
			}
		}
		if score > bestScore {
			best = c.Category
			bestScore = score
		}
	}
	if bestScore == 0 {
		return "", fmt.Errorf("no trigger words matched")
	}
	return best, nil
}

package security

import (
	"sort"

	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
)

// AllGroupsSentinel grants access to every chunk regardless of its access group.
// It is only meaningful on a permitted set - chunks are tagged with literal
// group names and matched by equality.
const AllGroupsSentinel = "ALL"

// DefaultAccessGroup tags uploads that name no group. Every role's permitted
// set includes it, so untagged documents stay visible to everyone.
const DefaultAccessGroup = "GLOBAL_AUDIT"

// GroupSet is the permitted access-group set resolved once per request.
type GroupSet []string

func (g GroupSet) Contains(group string) bool {
	for _, v := range g {
		if v == group {
			return true
		}
	}
	return false
}

func (g GroupSet) AllowsEverything() bool {
	return g.Contains(AllGroupsSentinel)
}

// Sorted returns a stable copy, used for cache-key derivation.
func (g GroupSet) Sorted() []string {
	out := make([]string, len(g))
	copy(out, g)
	sort.Strings(out)
	return out
}

type Predicate func(meta commonModels.ChunkMeta) bool

// BuildPredicate maps a permitted set to a chunk-metadata predicate.
// The same set is also translated to a native filter at the vector index
// boundary - filtering only after a fixed-k search would silently shrink k.
func BuildPredicate(groups GroupSet) Predicate {
	if groups.AllowsEverything() {
		return func(commonModels.ChunkMeta) bool { return true }
	}
	allowed := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		allowed[g] = struct{}{}
	}
	return func(meta commonModels.ChunkMeta) bool {
		_, ok := allowed[meta.AccessGroup]
		return ok
	}
}

// FilterChunks keeps only the chunks the predicate accepts, preserving order.
func FilterChunks(chunks []commonModels.Chunk, pred Predicate) []commonModels.Chunk {
	out := make([]commonModels.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if pred(c.Meta) {
			out = append(out, c)
		}
	}
	return out
}

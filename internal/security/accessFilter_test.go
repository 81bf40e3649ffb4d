package security

import (
	"testing"

	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
)

func chunkWithGroup(id, group string) commonModels.Chunk {
	return commonModels.Chunk{
		Id:   id,
		Meta: commonModels.ChunkMeta{AccessGroup: group},
	}
}

func TestBuildPredicate(t *testing.T) {
	tests := []struct {
		name    string
		groups  GroupSet
		group   string
		allowed bool
	}{
		{"Admin_Sees_Everything", GroupSet{AllGroupsSentinel}, "APAC", true},
		{"Admin_Sees_Untagged", GroupSet{AllGroupsSentinel}, "", true},
		{"Matching_Group", GroupSet{"APAC", AllGroupsSentinel}, "APAC", true},
		{"Non_Matching_Group", GroupSet{"APAC"}, "EMEA", false},
		{"Empty_Set_Denies", GroupSet{}, "APAC", false},
		{"Public_Chunk_Needs_Sentinel", GroupSet{"APAC", AllGroupsSentinel}, AllGroupsSentinel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := BuildPredicate(tt.groups)
			got := pred(commonModels.ChunkMeta{AccessGroup: tt.group})
			if got != tt.allowed {
				t.Errorf("predicate(%q) with %v = %v, want %v", tt.group, tt.groups, got, tt.allowed)
			}
		})
	}
}

func TestFilterChunks_OrderAndIdempotence(t *testing.T) {
	chunks := []commonModels.Chunk{
		chunkWithGroup("c1", "APAC"),
		chunkWithGroup("c2", "EMEA"),
		chunkWithGroup("c3", "APAC"),
		chunkWithGroup("c4", "ALL"),
	}
	pred := BuildPredicate(GroupSet{"APAC", AllGroupsSentinel})

	filtered := FilterChunks(chunks, pred)
	if len(filtered) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(filtered))
	}
	if filtered[0].Id != "c1" || filtered[1].Id != "c3" || filtered[2].Id != "c4" {
		t.Errorf("Filter changed relative order: %v", filtered)
	}

	again := FilterChunks(filtered, pred)
	if len(again) != len(filtered) {
		t.Errorf("Filtering twice changed the result: %d vs %d", len(again), len(filtered))
	}
}

func TestGroupSet_Sorted(t *testing.T) {
	g := GroupSet{"EMEA", "ALL", "APAC"}
	sorted := g.Sorted()

	if sorted[0] != "ALL" || sorted[1] != "APAC" || sorted[2] != "EMEA" {
		t.Errorf("Sorted() = %v, want alphabetical", sorted)
	}
	// original untouched
	if g[0] != "EMEA" {
		t.Error("Sorted() mutated the receiver")
	}
}

package splitter

import (
	"strings"
	"testing"
)

func TestSplit_ChunkSizeRespected(t *testing.T) {
	text := strings.Repeat("word ", 500) // 2500 chars
	chunks := Split(text, 300, 30)

	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 300 {
			t.Errorf("Chunk %d exceeds size limit: %d chars", i, len(c))
		}
		if !strings.Contains(text, c) {
			t.Errorf("Chunk %d is not a substring of the input", i)
		}
	}
}

func TestSplit_HardCutOverlap(t *testing.T) {
	// no separators at all, forces the character cut of last resort
	text := strings.Repeat("a", 3200)
	chunks := Split(text, 1500, 100)

	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks from 3200 chars at size 1500 overlap 100, got %d", len(chunks))
	}
	tail := chunks[0][len(chunks[0])-100:]
	if !strings.HasPrefix(chunks[1], tail) {
		t.Error("Second chunk does not start with the overlap tail of the first")
	}
	if !strings.HasSuffix(text, chunks[len(chunks)-1]) {
		t.Error("Last chunk does not reach the end of the input")
	}
}

func TestSplit_PartsNearChunkSize(t *testing.T) {
	// sentences of 190 chars at size 200 overlap 20: the overlap tail plus the
	// next sentence would be 210, so the overlap must be dropped, never the limit
	text := strings.Repeat(strings.Repeat("x", 188)+". ", 5)
	chunks := Split(text, 200, 20)

	if len(chunks) < 5 {
		t.Fatalf("Expected at least 5 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 200 {
			t.Errorf("Chunk %d has length %d > 200", i, len(c))
		}
		if !strings.Contains(text, c) {
			t.Errorf("Chunk %d is not a substring of the input", i)
		}
	}
	if !strings.HasPrefix(text, chunks[0]) {
		t.Error("First chunk does not start at the beginning of the input")
	}
	if !strings.HasSuffix(text, chunks[len(chunks)-1]) {
		t.Error("Last chunk does not reach the end of the input")
	}
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	para := strings.Repeat("x", 80)
	text := para + "\n\n" + para + "\n\n" + para
	chunks := Split(text, 100, 10)

	if len(chunks) < 3 {
		t.Fatalf("Expected at least 3 chunks, got %d", len(chunks))
	}
	// each paragraph fits in a chunk, so no chunk should straddle two full paragraphs
	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("Chunk %d exceeds size limit: %d", i, len(c))
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox. ", 100)
	first := Split(text, 120, 20)
	second := Split(text, 120, 20)

	if len(first) != len(second) {
		t.Fatalf("Chunk count differs between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Chunk %d differs between runs", i)
		}
	}
}

func TestSplit_EdgeCases(t *testing.T) {
	if got := Split("", 100, 10); got != nil {
		t.Errorf("Empty input should yield nil, got %v", got)
	}
	if got := Split("short", 100, 10); len(got) != 1 || got[0] != "short" {
		t.Errorf("Input smaller than chunk size should yield itself, got %v", got)
	}
	if got := Split("text", 0, 0); got != nil {
		t.Errorf("Zero chunk size should yield nil, got %v", got)
	}
	// overlap >= chunkSize must not loop forever
	chunks := Split(strings.Repeat("b", 500), 100, 150)
	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("Chunk %d exceeds size limit with clamped overlap", i)
		}
	}
}

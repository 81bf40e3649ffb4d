package splitter

import "strings"

// Separators ordered from "best" to "worst" for semantic meaning. The empty
// string is the hard character cut of last resort.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

type span struct {
	start int
	end   int
}

// Split cuts text into ordered chunks of at most chunkSize characters,
// preferring the highest-priority separator that produces small-enough spans
// and recursing into lower-priority separators for oversized parts. The last
// overlap characters of each chunk are duplicated at the start of the next.
//
// Every chunk is a plain substring of the input - offsets, never rebuilt
// strings - so children cut from a parent are guaranteed substrings of it.
func Split(text string, chunkSize int, overlap int) []string {
	if chunkSize <= 0 || len(text) == 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}

	spans := splitSpan(text, span{0, len(text)}, chunkSize, overlap, separators)
	chunks := make([]string, 0, len(spans))
	for _, s := range spans {
		chunks = append(chunks, text[s.start:s.end])
	}
	return chunks
}

func splitSpan(text string, sp span, chunkSize, overlap int, seps []string) []span {
	if sp.end-sp.start <= chunkSize {
		if sp.end > sp.start {
			return []span{sp}
		}
		return nil
	}

	sep := seps[0]
	rest := seps[1:]
	if sep == "" {
		return hardCut(sp, chunkSize, overlap)
	}
	if !strings.Contains(text[sp.start:sp.end], sep) {
		return splitSpan(text, sp, chunkSize, overlap, rest)
	}

	parts := cutAt(text, sp, sep)

	var out []span
	curStart := sp.start
	curEnd := sp.start
	emittedEnd := sp.start

	for _, p := range parts {
		if p.end-p.start > chunkSize {
			// part is too big even on its own, recurse with the next separator
			if curEnd > curStart && curEnd > emittedEnd {
				out = append(out, span{curStart, curEnd})
			}
			sub := splitSpan(text, p, chunkSize, overlap, rest)
			out = append(out, sub...)
			emittedEnd = p.end
			curStart = clampStart(p.end-overlap, p.start)
			curEnd = p.end
			continue
		}

		if p.end-curStart > chunkSize {
			if curEnd > curStart && curEnd > emittedEnd {
				out = append(out, span{curStart, curEnd})
				emittedEnd = curEnd
			}
			curStart = clampStart(curEnd-overlap, curStart)
			if p.end-curStart > chunkSize {
				// a full overlap would push the next window over chunkSize,
				// so the overlap is sacrificed and the window starts at the part
				curStart = p.start
			}
		}
		curEnd = p.end
	}

	if curEnd > curStart && curEnd > emittedEnd {
		out = append(out, span{curStart, curEnd})
	}
	return out
}

// cutAt splits the span at every separator occurrence. Each part keeps its
// trailing separator so the parts exactly tile the original span.
func cutAt(text string, sp span, sep string) []span {
	var parts []span
	s := sp.start
	for s < sp.end {
		idx := strings.Index(text[s:sp.end], sep)
		if idx < 0 {
			parts = append(parts, span{s, sp.end})
			break
		}
		e := s + idx + len(sep)
		parts = append(parts, span{s, e})
		s = e
	}
	return parts
}

func hardCut(sp span, chunkSize, overlap int) []span {
	step := chunkSize - overlap
	var out []span
	for s := sp.start; ; s += step {
		e := s + chunkSize
		if e >= sp.end {
			out = append(out, span{s, sp.end})
			return out
		}
		out = append(out, span{s, e})
	}
}

func clampStart(start, min int) int {
	if start < min {
		return min
	}
	return start
}

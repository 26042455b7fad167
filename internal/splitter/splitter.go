// Package splitter cuts long extracted text into overlapping, bounded chunks
// for embedding and retrieval. Split points prefer natural boundaries
// (paragraph break, then line break, then sentence end, then space) searched
// within a tolerance window before the size limit, falling back to a hard cut.
package splitter

import "errors"

// ErrBadChunkConfig is returned before any embedding cost is incurred when the
// size/overlap pair is unusable.
var ErrBadChunkConfig = errors.New("chunk overlap must be non-negative and smaller than chunk size")

// Chunk is a literal substring of the source text. Start is the rune offset of
// the chunk inside the source, so callers can verify coverage and overlap.
type Chunk struct {
	Text  string
	Start int
}

// End returns the rune offset one past the last rune of the chunk.
func (c Chunk) End() int { return c.Start + len([]rune(c.Text)) }

// boundary classes, highest priority first; each entry must end the leading
// chunk, so sentence separators include the trailing space.
var boundaryClasses = [][][]rune{
	{[]rune("\n\n")},
	{[]rune("\n")},
	{[]rune(". "), []rune("! "), []rune("? ")},
	{[]rune(" ")},
}

// Split produces chunks of at most size runes with at most overlap shared
// runes between consecutive chunks. The chunks cover the input exactly: the
// first starts at 0, the last ends at the end of the input, and each chunk
// starts no later than the previous one ends. An empty input yields no chunks.
func Split(text string, size, overlap int) ([]Chunk, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrBadChunkConfig
	}
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil, nil
	}
	if n <= size {
		return []Chunk{{Text: text, Start: 0}}, nil
	}

	// The boundary search window: how far back from the size limit a split
	// point may move. Reusing the overlap keeps the two knobs proportional.
	window := overlap
	if window < 1 {
		window = size / 10
	}
	if window < 1 {
		window = 1
	}

	var chunks []Chunk
	start := 0
	for {
		if start+size >= n {
			chunks = append(chunks, Chunk{Text: string(runes[start:n]), Start: start})
			break
		}
		end := cutPoint(runes, start, start+size, window)
		chunks = append(chunks, Chunk{Text: string(runes[start:end]), Start: start})

		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = alignStart(runes, next, end)
	}
	return chunks, nil
}

// cutPoint picks the end of the chunk beginning at start: the rightmost
// boundary of the best available class within (limit-window, limit], or the
// hard limit when no boundary exists there.
func cutPoint(runes []rune, start, limit, window int) int {
	lo := limit - window
	if lo <= start {
		lo = start + 1
	}
	for _, class := range boundaryClasses {
		best := -1
		for _, sep := range class {
			if b := lastBoundary(runes, lo, limit, sep); b > best {
				best = b
			}
		}
		if best >= 0 {
			return best
		}
	}
	return limit
}

// lastBoundary returns the largest b in [lo, limit] such that sep ends exactly
// at b, keeping the separator with the leading chunk; -1 if none.
func lastBoundary(runes []rune, lo, limit int, sep []rune) int {
	for b := limit; b >= lo; b-- {
		s := b - len(sep)
		if s < 0 {
			continue
		}
		match := true
		for i := range sep {
			if runes[s+i] != sep[i] {
				match = false
				break
			}
		}
		if match {
			return b
		}
	}
	return -1
}

// alignStart moves the start of the overlap region forward to the first word
// boundary inside it, so the next chunk does not begin mid-word. Never moves
// past end, so the actual overlap only shrinks.
func alignStart(runes []rune, next, end int) int {
	for p := next; p < end; p++ {
		if isSpace(runes[p-1]) && !isSpace(runes[p]) {
			return p
		}
	}
	return next
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

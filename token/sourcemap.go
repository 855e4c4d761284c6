package token

import "sort"

// SourceMap is an ordered sequence of line-start byte offsets for a source
// buffer. It converts byte offsets to 1-based line/column pairs in O(log n).
type SourceMap struct {
	lineStarts []int
	size       int
}

// NewSourceMap indexes the line starts of text in a single pass. A "\r\n"
// sequence counts as one line terminator; positions always refer to the raw
// buffer so spans stay exact.
func NewSourceMap(text string) *SourceMap {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &SourceMap{lineStarts: starts, size: len(text)}
}

// LineCount returns the number of lines in the source.
func (m *SourceMap) LineCount() int {
	return len(m.lineStarts)
}

// PositionFor converts a byte offset into a Position. Offsets past the end of
// the buffer clamp to the final position.
func (m *SourceMap) PositionFor(offset int) Position {
	if offset > m.size {
		offset = m.size
	}
	if offset < 0 {
		offset = 0
	}
	line := sort.Search(len(m.lineStarts), func(i int) bool {
		return m.lineStarts[i] > offset
	})
	// line is now 1-based: lineStarts[line-1] <= offset < lineStarts[line]
	return Position{
		Offset: offset,
		Line:   line,
		Column: offset - m.lineStarts[line-1] + 1,
	}
}

// LineStart returns the byte offset at which the given 1-based line begins,
// or -1 when the line does not exist.
func (m *SourceMap) LineStart(line int) int {
	if line < 1 || line > len(m.lineStarts) {
		return -1
	}
	return m.lineStarts[line-1]
}

// LineText extracts the text of the given 1-based line from src, without the
// trailing line terminator.
func (m *SourceMap) LineText(src string, line int) string {
	start := m.LineStart(line)
	if start < 0 {
		return ""
	}
	end := len(src)
	if line < len(m.lineStarts) {
		end = m.lineStarts[line] - 1
	}
	if end > 0 && end <= len(src) && end > start && src[end-1] == '\r' {
		end--
	}
	if end < start {
		end = start
	}
	return src[start:end]
}

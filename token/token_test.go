package token

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestSourceMapPositions(t *testing.T) {
	src := "abc\ndef\r\nghi"
	m := NewSourceMap(src)

	tests := []struct {
		name   string
		offset int
		line   int
		column int
	}{
		{name: "start", offset: 0, line: 1, column: 1},
		{name: "mid first line", offset: 2, line: 1, column: 3},
		{name: "start of second line", offset: 4, line: 2, column: 1},
		{name: "after crlf", offset: 9, line: 3, column: 1},
		{name: "past end clamps", offset: 99, line: 3, column: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := m.PositionFor(tt.offset)
			assert.Equal(t, tt.line, pos.Line)
			assert.Equal(t, tt.column, pos.Column)
		})
	}
}

func TestSourceMapLineText(t *testing.T) {
	src := "first\nsecond\r\nthird"
	m := NewSourceMap(src)

	assert.Equal(t, "first", m.LineText(src, 1))
	assert.Equal(t, "second", m.LineText(src, 2))
	assert.Equal(t, "third", m.LineText(src, 3))
	assert.Equal(t, "", m.LineText(src, 9))
}

func TestStreamSignificantView(t *testing.T) {
	tokens := []Token{
		{Type: KEYWORD, Value: "DEF"},
		{Type: COMMENT, Value: "# note"},
		{Type: NEWLINE},
		{Type: NEWLINE},
		{Type: NEWLINE},
		{Type: KEYWORD, Value: "DEF_END"},
		{Type: EOF},
	}
	s := NewStream(tokens)

	// Comments are dropped and newline runs collapse to one terminator.
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, "DEF", s.Advance().Value)
	assert.Equal(t, NEWLINE, s.Advance().Type)
	assert.Equal(t, "DEF_END", s.Advance().Value)
	assert.Equal(t, EOF, s.Current().Type)
	// The raw view keeps everything.
	assert.Equal(t, 7, len(s.Raw()))
}

func TestStreamCheckpointRestore(t *testing.T) {
	tokens := []Token{
		{Type: IDENT, Value: "a"},
		{Type: IDENT, Value: "b"},
		{Type: IDENT, Value: "c"},
		{Type: EOF},
	}
	s := NewStream(tokens)
	s.Advance()

	cp := s.Checkpoint()
	assert.Equal(t, "b", s.Current().Value)
	s.Advance()
	s.Advance()
	assert.Equal(t, EOF, s.Current().Type)

	s.Restore(cp)
	assert.Equal(t, "b", s.Current().Value)
	assert.Equal(t, "c", s.Peek(1).Value)
}

func TestStreamPeekPastEnd(t *testing.T) {
	s := NewStream([]Token{{Type: IDENT, Value: "only"}, {Type: EOF}})
	assert.Equal(t, EOF, s.Peek(5).Type)
	assert.False(t, s.AtEOF())
	s.Advance()
	assert.True(t, s.AtEOF())
}

func TestIsReservedKeyword(t *testing.T) {
	assert.True(t, IsReservedKeyword("DEF"))
	assert.True(t, IsReservedKeyword("none_satisfy"))
	assert.True(t, IsReservedKeyword("module_version"))
	assert.False(t, IsReservedKeyword("def"))
	assert.False(t, IsReservedKeyword("string"))
	assert.False(t, IsReservedKeyword("my_variable"))
}

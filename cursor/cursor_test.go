package cursor_test

import (
	"testing"

	"github.com/nahharris/vaca/cursor"
	"github.com/stretchr/testify/require"
)

func TestBumpTracksLineAndColumn(t *testing.T) {
	c := cursor.New("ab\ncd")
	for range 2 {
		c.Bump()
	}
	require.Equal(t, cursor.Position{Line: 1, Column: 3, Offset: 2}, c.Pos())

	c.Bump() // consumes '\n'
	require.Equal(t, cursor.Position{Line: 2, Column: 1, Offset: 3}, c.Pos())
}

func TestSkipWSAndComments(t *testing.T) {
	c := cursor.New("  ,, ; a comment\n  x")
	c.SkipWSAndComments()
	b, ok := c.Peek()
	require.True(t, ok)
	require.Equal(t, byte('x'), b)
}

func TestTakeWhile(t *testing.T) {
	c := cursor.New("abc123 rest")
	start := c.Index()
	tok := c.TakeWhile(start, func(b byte) bool {
		return b != ' '
	})
	require.Equal(t, "abc123", tok)
}

func TestIsEOF(t *testing.T) {
	c := cursor.New("")
	require.True(t, c.IsEOF())
	_, ok := c.Peek()
	require.False(t, ok)
}

// Package cursor implements a byte-oriented scanning cursor over UTF-8
// source text, tracking line/column position as it advances.
//
// It is used by the reader package as the single scanning primitive; it has
// no knowledge of the language grammar.
package cursor

// Position is a 1-based line/column location plus the 0-based byte offset
// it corresponds to.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Cursor scans a string one byte at a time, tracking line and column.
//
// Indexing is by byte offset, not rune, matching the reader's spans (which
// are also byte offsets). Multi-byte UTF-8 sequences are passed through
// untouched; only '\n' affects line/column bookkeeping.
type Cursor struct {
	input []byte
	index int
	line  int
	col   int
}

// New creates a cursor positioned at the start of input.
func New(input string) *Cursor {
	return &Cursor{input: []byte(input), index: 0, line: 1, col: 1}
}

// Index returns the current byte offset.
func (c *Cursor) Index() int { return c.index }

// Pos returns the current position.
func (c *Cursor) Pos() Position {
	return Position{Line: c.line, Column: c.col, Offset: c.index}
}

// IsEOF reports whether the cursor has consumed all input.
func (c *Cursor) IsEOF() bool { return c.index >= len(c.input) }

// Peek returns the current byte without advancing, or (0, false) at EOF.
func (c *Cursor) Peek() (byte, bool) {
	if c.IsEOF() {
		return 0, false
	}
	return c.input[c.index], true
}

// PeekAt returns the byte offset bytes ahead of the cursor, or (0, false)
// if that position is out of range.
func (c *Cursor) PeekAt(offset int) (byte, bool) {
	i := c.index + offset
	if i < 0 || i >= len(c.input) {
		return 0, false
	}
	return c.input[i], true
}

// PeekNext returns the byte immediately after the current one.
func (c *Cursor) PeekNext() (byte, bool) { return c.PeekAt(1) }

// Bump consumes and returns the current byte, advancing line/column.
func (c *Cursor) Bump() (byte, bool) {
	b, ok := c.Peek()
	if !ok {
		return 0, false
	}
	c.index++
	if b == '\n' {
		c.line++
		c.col = 1
	} else {
		c.col++
	}
	return b, true
}

// Slice returns the substring of the original input between two byte
// offsets.
func (c *Cursor) Slice(start, end int) string {
	return string(c.input[start:end])
}

// TakeWhile consumes bytes starting at start while predicate holds, and
// returns the consumed slice.
func (c *Cursor) TakeWhile(start int, predicate func(byte) bool) string {
	for {
		b, ok := c.Peek()
		if !ok || !predicate(b) {
			break
		}
		c.Bump()
	}
	return c.Slice(start, c.index)
}

// SkipWS consumes EDN whitespace: space, tab, CR, LF, and comma.
func (c *Cursor) SkipWS() {
	for {
		b, ok := c.Peek()
		if !ok {
			return
		}
		switch b {
		case ' ', '\t', '\r', '\n', ',':
			c.Bump()
		default:
			return
		}
	}
}

// SkipWSAndComments consumes whitespace and ';'-led line comments,
// repeating until neither applies.
func (c *Cursor) SkipWSAndComments() {
	for {
		c.SkipWS()
		if b, ok := c.Peek(); ok && b == ';' {
			for {
				b, ok := c.Bump()
				if !ok || b == '\n' {
					break
				}
			}
			continue
		}
		return
	}
}

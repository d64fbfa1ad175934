// Package reader implements the strict, single-pass EDN-like reader
// described in spec §4.1: source text in, a sequence of annotated syntax
// nodes with byte spans out.
package reader

import (
	"golang.org/x/text/unicode/norm"

	"github.com/nahharris/vaca/cursor"
)

// Parse reads every top-level form in input and returns them in source
// order, or the first structured Error encountered.
//
// input is normalized to Unicode NFC before scanning, so that
// backtick-quoted symbols and string content compare equal regardless of
// the normalization form the source file was saved in.
func Parse(input string) ([]Node, error) {
	return (&reader{c: cursor.New(norm.NFC.String(input))}).parseAll()
}

type reader struct {
	c *cursor.Cursor
}

func (r *reader) errHere(kind ErrorKind) *Error {
	pos := r.c.Pos()
	return &Error{Kind: kind, Span: Span{Start: pos.Offset, End: pos.Offset}, Line: pos.Line, Column: pos.Column}
}

func (r *reader) errSpan(kind ErrorKind, span Span) *Error {
	pos := r.c.Pos()
	return &Error{Kind: kind, Span: span, Line: pos.Line, Column: pos.Column}
}

func (r *reader) spanFrom(start int) Span {
	return Span{Start: start, End: r.c.Index()}
}

func (r *reader) parseAll() ([]Node, error) {
	var nodes []Node
	for {
		r.c.SkipWSAndComments()
		if r.c.IsEOF() {
			break
		}
		node, err := r.parseForm()
		if err != nil {
			return nil, err
		}
		if node != nil {
			nodes = append(nodes, *node)
		}
	}
	return nodes, nil
}

func (r *reader) parseForm() (*Node, error) {
	r.c.SkipWSAndComments()
	return r.parseFormNoSkip()
}

// parseFormNoSkip parses a single form without first skipping leading
// separators. Used for the annotation half of `#<form> <form>`, where the
// annotation must begin immediately after '#'.
func (r *reader) parseFormNoSkip() (*Node, error) {
	b, ok := r.c.Peek()
	if !ok {
		return nil, r.errHere(UnexpectedEOF)
	}

	switch b {
	case '(':
		n, err := r.parseList()
		return &n, err
	case '[':
		n, err := r.parseVector()
		return &n, err
	case '{':
		n, err := r.parseMap()
		return &n, err
	case '%':
		if next, ok := r.c.PeekNext(); ok && next == '{' {
			n, err := r.parseSet()
			return &n, err
		}
		n, err := r.parseToken()
		return &n, err
	case '"':
		n, err := r.parseString()
		return &n, err
	case ':':
		n, err := r.parseKeywordNode()
		return &n, err
	case '\\':
		n, err := r.parseChar()
		return &n, err
	case '#':
		return r.parseDispatch()
	default:
		n, err := r.parseToken()
		return &n, err
	}
}

func (r *reader) parseList() (Node, error) {
	start := r.c.Index()
	r.c.Bump()

	var items []Node
	for {
		r.c.SkipWSAndComments()
		b, ok := r.c.Peek()
		switch {
		case ok && b == ')':
			r.c.Bump()
			return Node{Span: r.spanFrom(start), Kind: ListKind{Items: items}}, nil
		case !ok:
			return Node{}, r.errSpan(UnterminatedCollection, Span{start, r.c.Index()}).withExpected(")")
		default:
			n, err := r.parseFormNoSkip()
			if err != nil {
				return Node{}, err
			}
			if n != nil {
				items = append(items, *n)
			}
		}
	}
}

func (r *reader) parseVector() (Node, error) {
	start := r.c.Index()
	r.c.Bump()

	var items []Node
	for {
		r.c.SkipWSAndComments()
		b, ok := r.c.Peek()
		switch {
		case ok && b == ']':
			r.c.Bump()
			return Node{Span: r.spanFrom(start), Kind: VectorKind{Items: items}}, nil
		case !ok:
			return Node{}, r.errSpan(UnterminatedCollection, Span{start, r.c.Index()}).withExpected("]")
		default:
			n, err := r.parseFormNoSkip()
			if err != nil {
				return Node{}, err
			}
			if n != nil {
				items = append(items, *n)
			}
		}
	}
}

func (r *reader) parseMap() (Node, error) {
	start := r.c.Index()
	r.c.Bump()

	var items []Node
	for {
		r.c.SkipWSAndComments()
		b, ok := r.c.Peek()
		switch {
		case ok && b == '}':
			r.c.Bump()
			if len(items)%2 != 0 {
				lastStart := r.c.Index()
				if len(items) > 0 {
					lastStart = items[len(items)-1].Span.Start
				}
				return Node{}, r.errSpan(MapOddNumberOfForms, Span{lastStart, r.c.Index()})
			}
			entries := make([]MapEntry, 0, len(items)/2)
			for i := 0; i+1 < len(items); i += 2 {
				entries = append(entries, MapEntry{Key: items[i], Value: items[i+1]})
			}
			return Node{Span: r.spanFrom(start), Kind: MapKind{Entries: entries}}, nil
		case !ok:
			return Node{}, r.errSpan(UnterminatedCollection, Span{start, r.c.Index()}).withExpected("}")
		default:
			n, err := r.parseFormNoSkip()
			if err != nil {
				return Node{}, err
			}
			if n != nil {
				items = append(items, *n)
			}
		}
	}
}

func (r *reader) parseSet() (Node, error) {
	start := r.c.Index()
	r.c.Bump() // '%'
	if err := r.expect('{'); err != nil {
		return Node{}, err
	}

	var items []Node
	for {
		r.c.SkipWSAndComments()
		b, ok := r.c.Peek()
		switch {
		case ok && b == '}':
			r.c.Bump()
			return Node{Span: r.spanFrom(start), Kind: SetKind{Items: items}}, nil
		case !ok:
			return Node{}, r.errSpan(UnterminatedCollection, Span{start, r.c.Index()}).withExpected("}")
		default:
			n, err := r.parseFormNoSkip()
			if err != nil {
				return Node{}, err
			}
			if n != nil {
				items = append(items, *n)
			}
		}
	}
}

func (r *reader) expect(expected byte) error {
	b, ok := r.c.Bump()
	if !ok {
		return r.errHere(UnexpectedEOF)
	}
	if b != expected {
		return r.errHere(UnexpectedChar).withFound(b).withExpected("delimiter")
	}
	return nil
}

// parseDispatch handles the byte immediately following '#':
//   - '#' (i.e. "##"): reader discard, returns (nil, nil)
//   - '_': reserved, error
//   - anything else non-whitespace: annotation form
func (r *reader) parseDispatch() (*Node, error) {
	start := r.c.Index()
	r.c.Bump() // '#'

	b, ok := r.c.Peek()
	if !ok {
		return nil, r.errHere(InvalidDispatch)
	}

	switch {
	case b == '#':
		r.c.Bump()
		r.c.SkipWSAndComments()
		if _, err := r.parseFormNoSkip(); err != nil {
			return nil, err
		}
		return nil, nil
	case b == '_':
		return nil, r.errHere(InvalidDispatch)
	case isWS(b) || b == ';':
		return nil, r.errHere(InvalidDispatch)
	default:
		annotation, err := r.parseFormNoSkip()
		if err != nil {
			return nil, err
		}
		if annotation == nil {
			return nil, r.errHere(UnexpectedEOF)
		}
		r.c.SkipWSAndComments()
		if r.c.IsEOF() {
			return nil, r.errHere(UnexpectedEOF)
		}
		form, err := r.parseFormNoSkip()
		if err != nil {
			return nil, err
		}
		if form == nil {
			return nil, r.errHere(UnexpectedEOF)
		}
		form.Span = r.spanFrom(start)

		if form.Annotation == nil {
			form.Annotation = annotation
		} else {
			prev := *form.Annotation
			combined := Node{
				Span: Span{Start: annotation.Span.Start, End: prev.Span.End},
				Kind: ListKind{Items: []Node{*annotation, prev}},
			}
			form.Annotation = &combined
		}
		return form, nil
	}
}

func isWS(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', ',':
		return true
	}
	return false
}

func (r *reader) parseString() (Node, error) {
	start := r.c.Index()
	r.c.Bump() // opening '"'
	contentStart := r.c.Index()

	hasEscape := false
	for {
		b, ok := r.c.Peek()
		if !ok {
			return Node{}, r.errSpan(UnterminatedString, Span{start, r.c.Index()})
		}
		switch b {
		case '"':
			goto closed
		case '\\':
			hasEscape = true
			r.c.Bump()
			if _, ok := r.c.Bump(); !ok {
				return Node{}, r.errHere(UnterminatedString)
			}
		default:
			r.c.Bump()
		}
	}
closed:
	b, ok := r.c.Peek()
	if !ok || b != '"' {
		return Node{}, r.errSpan(UnterminatedString, Span{start, r.c.Index()})
	}
	contentEnd := r.c.Index()
	r.c.Bump() // closing '"'

	raw := r.c.Slice(contentStart, contentEnd)
	if !hasEscape {
		return Node{Span: r.spanFrom(start), Kind: StringKind{Value: raw, Escaped: false}}, nil
	}
	decoded, errKind := unescapeString(raw)
	if errKind != nil {
		return Node{}, r.errSpan(*errKind, Span{contentStart, contentEnd})
	}
	return Node{Span: r.spanFrom(start), Kind: StringKind{Value: decoded, Escaped: true}}, nil
}

func (r *reader) parseChar() (Node, error) {
	start := r.c.Index()
	r.c.Bump() // '\\'

	tokenStart := r.c.Index()
	token := r.c.TakeWhile(tokenStart, func(b byte) bool { return !isDelimOrWS(b) })
	if token == "" {
		return Node{}, r.errSpan(InvalidCharacterLiteral, Span{start, r.c.Index()})
	}

	var value rune
	switch {
	case token == "newline":
		value = '\n'
	case token == "return":
		value = '\r'
	case token == "space":
		value = ' '
	case token == "tab":
		value = '\t'
	case len(token) == 5 && token[0] == 'u':
		code, ok := parseHex4(token[1:])
		if !ok {
			return Node{}, r.errSpan(InvalidUnicodeEscape, Span{tokenStart, r.c.Index()})
		}
		value = rune(code)
	default:
		runes := []rune(token)
		if len(runes) != 1 {
			return Node{}, r.errSpan(InvalidCharacterLiteral, Span{tokenStart, r.c.Index()})
		}
		value = runes[0]
	}

	return Node{Span: r.spanFrom(start), Kind: CharKind(value)}, nil
}

func (r *reader) takeSymbolishToken(start int) (string, error) {
	inBackticks := false
	for {
		b, ok := r.c.Peek()
		if !ok {
			break
		}
		if !inBackticks && isDelimOrWS(b) {
			break
		}
		if b == '`' {
			inBackticks = !inBackticks
		}
		r.c.Bump()
	}
	if inBackticks {
		return "", r.errSpan(UnterminatedSymbol, Span{start, r.c.Index()})
	}
	return r.c.Slice(start, r.c.Index()), nil
}

func (r *reader) parseKeywordNode() (Node, error) {
	start := r.c.Index()
	tokenStart := start
	token, err := r.takeSymbolishToken(tokenStart)
	if err != nil {
		return Node{}, err
	}

	kw, errKind := parseKeywordToken(token)
	if errKind != nil {
		return Node{}, r.errSpan(*errKind, Span{tokenStart, r.c.Index()})
	}
	return Node{Span: r.spanFrom(start), Kind: kw}, nil
}

func (r *reader) parseToken() (Node, error) {
	start := r.c.Index()
	tokenStart := start
	token, err := r.takeSymbolishToken(tokenStart)
	if err != nil {
		return Node{}, err
	}
	span := r.spanFrom(start)

	switch token {
	case "nil":
		return Node{Span: span, Kind: NilKind{}}, nil
	case "true":
		return Node{Span: span, Kind: BoolKind(true)}, nil
	case "false":
		return Node{Span: span, Kind: BoolKind(false)}, nil
	}

	if len(token) > 0 && token[len(token)-1] == ':' {
		base := token[:len(token)-1]
		analysis, errKind := analyzeSymbolToken(base)
		if errKind != nil {
			return Node{}, r.errSpan(*errKind, Span{tokenStart, r.c.Index()})
		}
		isKeyword := analysis.namespace == "" || analysis.hasBacktickedComponent
		if isKeyword {
			return Node{Span: span, Kind: KeywordKind{Raw: token, Namespace: analysis.namespace, Name: analysis.name}}, nil
		}
	}

	if num, ok := parseNumber(token); ok {
		return Node{Span: span, Kind: num}, nil
	}

	sym, errKind := parseSymbol(token)
	if errKind != nil {
		return Node{}, r.errSpan(*errKind, Span{tokenStart, r.c.Index()})
	}
	return Node{Span: span, Kind: sym}, nil
}

func isDelimOrWS(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', ',', '(', ')', '[', ']', '{', '}', '"', ';':
		return true
	}
	return false
}

func parseHex4(s string) (int, bool) {
	if len(s) != 4 {
		return 0, false
	}
	val := 0
	for i := range 4 {
		c := s[i]
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c >= 'a' && c <= 'f':
			d = int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int(c-'A') + 10
		default:
			return 0, false
		}
		val = val*16 + d
	}
	return val, true
}

func (e *Error) withFound(b byte) *Error {
	e.Found = b
	return e
}

func (e *Error) withExpected(s string) *Error {
	e.Expected = s
	return e
}

package reader

// Span is an inclusive-start, exclusive-end pair of byte offsets into the
// input buffer as scanned, which is the NFC-normalized form of the text
// given to Parse.
type Span struct {
	Start int
	End   int
}

// Node is an immutable syntax tree node produced by the reader. Every node
// carries the span of source text it was read from and, optionally, a
// secondary node attached via the '#' dispatch annotation mechanism.
type Node struct {
	Span       Span
	Kind       Kind
	Annotation *Node
}

// Kind is the sealed sum of syntactic node kinds. Concrete kinds are
// NilKind, BoolKind, CharKind, StringKind, SymbolKind, KeywordKind,
// NumberKind, ListKind, VectorKind, MapKind and SetKind.
type Kind interface {
	kindTag()
}

type NilKind struct{}

func (NilKind) kindTag() {}

type BoolKind bool

func (BoolKind) kindTag() {}

type CharKind rune

func (CharKind) kindTag() {}

// StringKind holds decoded string content. When Escaped is false the
// content is the input text between the quotes, copied verbatim; when true
// the content was unescaped into a freshly allocated buffer.
type StringKind struct {
	Value   string
	Escaped bool
}

func (StringKind) kindTag() {}

// SymbolKind is a symbol, optionally namespaced. Namespace is "" when the
// symbol has no namespace component (the sole exception being the literal
// symbol "/", which always has an empty namespace).
type SymbolKind struct {
	Raw       string
	Namespace string
	Name      string
}

func (SymbolKind) kindTag() {}

// KeywordKind has the identical shape of SymbolKind; keywords and symbols
// are never equal to each other regardless of shared namespace/name.
type KeywordKind struct {
	Raw       string
	Namespace string
	Name      string
}

func (KeywordKind) kindTag() {}

type NumberSuffix int

const (
	SuffixNone NumberSuffix = iota
	SuffixBigInt
	SuffixBigDecimal
)

// NumberKind preserves the verbatim lexeme alongside its classification, so
// callers that need arbitrary precision or faithful re-emission never lose
// information the reader itself doesn't interpret beyond int/float.
type NumberKind struct {
	Lexeme  string
	IsFloat bool
	Suffix  NumberSuffix
}

func (NumberKind) kindTag() {}

type ListKind struct{ Items []Node }

func (ListKind) kindTag() {}

type VectorKind struct{ Items []Node }

func (VectorKind) kindTag() {}

type MapEntry struct {
	Key   Node
	Value Node
}

type MapKind struct{ Entries []MapEntry }

func (MapKind) kindTag() {}

type SetKind struct{ Items []Node }

func (SetKind) kindTag() {}

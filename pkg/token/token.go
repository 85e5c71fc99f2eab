package token

import "fmt"

type Type int

const (
	EOF Type = iota
	Whitespace
	Comment
	Illegal
	Ident
	Number
	True
	False
	Let
	While
	Func
	Namespace
	Int8
	Int16
	Int32
	Int64
	Bool
	Void
	LParen
	RParen
	LBrace
	RBrace
	Colon
	Comma
	Semi
	Dot
	Arrow
	Eq
	EqEq
	Plus
	Minus
	Star
	Slash
	Rem
	Or
	And
	Not
)

var KeywordMap = map[string]Type{
	"let":       Let,
	"while":     While,
	"func":      Func,
	"namespace": Namespace,
	"true":      True,
	"false":     False,
	"int8":      Int8,
	"int16":     Int16,
	"int32":     Int32,
	"int64":     Int64,
	"bool":      Bool,
	"void":      Void,
}

// Reverse mapping from Type to the keyword string
var TypeStrings = make(map[Type]string)

var punctStrings = map[Type]string{
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}",
	Colon: ":", Comma: ",", Semi: ";", Dot: ".", Arrow: "->",
	Eq: "=", EqEq: "==", Plus: "+", Minus: "-", Star: "*", Slash: "/", Rem: "%",
	Or: "|", And: "&", Not: "!",
}

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for typ, str := range punctStrings {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	switch t {
	case EOF:
		return "end of input"
	case Whitespace:
		return "whitespace"
	case Comment:
		return "comment"
	case Illegal:
		return "illegal character"
	case Ident:
		return "identifier"
	case Number:
		return "integer literal"
	}
	if s, ok := TypeStrings[t]; ok {
		return "'" + s + "'"
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsTrivia reports whether tokens of this type are hung on their neighbours
// instead of reaching the grammar.
func (t Type) IsTrivia() bool { return t == Whitespace || t == Comment }

// IsPrimitiveType reports whether t names one of the built-in value types.
func (t Type) IsPrimitiveType() bool {
	switch t {
	case Int8, Int16, Int32, Int64, Bool:
		return true
	}
	return false
}

// Pos is a 1-based line and column.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Column) }

// Before reports whether p precedes q.
func (p Pos) Before(q Pos) bool {
	return p.Line < q.Line || (p.Line == q.Line && p.Column < q.Column)
}

// Span covers [Start, End). End is the position just past the last character.
type Span struct {
	Start Pos
	End   Pos
}

func (s Span) String() string { return s.Start.String() + "-" + s.End.String() }

// IsZero reports whether s was never set.
func (s Span) IsZero() bool { return s == Span{} }

// Union returns the smallest span covering both s and o.
func (s Span) Union(o Span) Span {
	if s.IsZero() {
		return o
	}
	if o.IsZero() {
		return s
	}
	out := s
	if o.Start.Before(out.Start) {
		out.Start = o.Start
	}
	if out.End.Before(o.End) {
		out.End = o.End
	}
	return out
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Span      Span
	Leading   []Token
	Trailing  []Token
}

// Len is the width of the token's own text in runes.
func (t Token) Len() int { return len([]rune(t.Value)) }

// FullSpan is the token's span widened to cover attached trivia.
func (t Token) FullSpan() Span {
	span := t.Span
	if len(t.Leading) > 0 {
		span = span.Union(t.Leading[0].Span)
	}
	if n := len(t.Trailing); n > 0 {
		span = span.Union(t.Trailing[n-1].Span)
	}
	return span
}

// Synthetic reports whether the token has no source text (inserted by the parser).
func (t Token) Synthetic() bool { return t.Value == "" && t.Type != EOF }

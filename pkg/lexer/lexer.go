package lexer

import (
	"unicode"

	"github.com/xplshn/nsc/pkg/diag"
	"github.com/xplshn/nsc/pkg/token"
)

// Lexer scans source text into tokens. Whitespace and line comments are
// returned as tokens of their own so the parser can hang them as trivia.
type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
}

func NewLexer(source []rune, fileIndex int) *Lexer {
	return &Lexer{source: source, fileIndex: fileIndex, line: 1, column: 1}
}

// Tokenize scans the whole input. The result always ends with an EOF token.
func Tokenize(source []rune, fileIndex int) ([]token.Token, error) {
	l := NewLexer(source, fileIndex)
	var toks []token.Token
	for {
		tok := l.Next()
		if tok.Type == token.Illegal {
			return nil, diag.Syntax(tok.Span, "unexpected character '%s'", tok.Value)
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) Next() token.Token {
	startPos, start := l.pos, l.here()

	if l.isAtEnd() {
		return l.makeToken(token.EOF, startPos, start)
	}

	ch := l.peek()
	switch {
	case isSpace(ch):
		for isSpace(l.peek()) {
			l.advance()
		}
		return l.makeToken(token.Whitespace, startPos, start)
	case ch == '/' && l.peekNext() == '/':
		for !l.isAtEnd() && l.peek() != '\n' {
			l.advance()
		}
		return l.makeToken(token.Comment, startPos, start)
	case unicode.IsLetter(ch) || ch == '_':
		return l.identifierOrKeyword(startPos, start)
	case unicode.IsDigit(ch):
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
		return l.makeToken(token.Number, startPos, start)
	}

	l.advance()
	switch ch {
	case '(':
		return l.makeToken(token.LParen, startPos, start)
	case ')':
		return l.makeToken(token.RParen, startPos, start)
	case '{':
		return l.makeToken(token.LBrace, startPos, start)
	case '}':
		return l.makeToken(token.RBrace, startPos, start)
	case ':':
		return l.makeToken(token.Colon, startPos, start)
	case ',':
		return l.makeToken(token.Comma, startPos, start)
	case ';':
		return l.makeToken(token.Semi, startPos, start)
	case '.':
		return l.makeToken(token.Dot, startPos, start)
	case '+':
		return l.makeToken(token.Plus, startPos, start)
	case '*':
		return l.makeToken(token.Star, startPos, start)
	case '/':
		return l.makeToken(token.Slash, startPos, start)
	case '%':
		return l.makeToken(token.Rem, startPos, start)
	case '|':
		return l.makeToken(token.Or, startPos, start)
	case '&':
		return l.makeToken(token.And, startPos, start)
	case '!':
		return l.makeToken(token.Not, startPos, start)
	case '-':
		return l.matchThen('>', token.Arrow, token.Minus, startPos, start)
	case '=':
		return l.matchThen('=', token.EqEq, token.Eq, startPos, start)
	}
	return l.makeToken(token.Illegal, startPos, start)
}

func isSpace(ch rune) bool { return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' }

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) here() token.Pos { return token.Pos{Line: l.line, Column: l.column} }

func (l *Lexer) makeToken(tokType token.Type, startPos int, start token.Pos) token.Token {
	return token.Token{
		Type:      tokType,
		Value:     string(l.source[startPos:l.pos]),
		FileIndex: l.fileIndex,
		Span:      token.Span{Start: start, End: l.here()},
	}
}

func (l *Lexer) matchThen(expected rune, thenType, elseType token.Type, startPos int, start token.Pos) token.Token {
	if l.match(expected) {
		return l.makeToken(thenType, startPos, start)
	}
	return l.makeToken(elseType, startPos, start)
}

func (l *Lexer) identifierOrKeyword(startPos int, start token.Pos) token.Token {
	for unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}
	tok := l.makeToken(token.Ident, startPos, start)
	if kw, ok := token.KeywordMap[tok.Value]; ok {
		tok.Type = kw
	}
	return tok
}

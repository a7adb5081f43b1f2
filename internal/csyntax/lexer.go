package csyntax

import (
	"strings"
)

// multi-byte punctuators, longest first
var puncts = []string{
	"<<=", "??=",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "++", "--", "->", "+=", "-=",
	"*=", "/=", "%=", "&=", "|=", "^=", "??", "::", "<<",
}

const singlePuncts = "{}()[]<>;,.:=+-*/%&|^!~?"

type lexer struct {
	cur    Cursor
	tokens []Token
	// lineStart: only whitespace seen since the last newline
	lineStart bool
}

// Tokenize splits C# source into tokens, comments and preprocessor lines
// included. The last token is always EOF.
func Tokenize(src string) ([]Token, error) {
	lx := &lexer{cur: newCursor(src), lineStart: true}
	for {
		lx.skipSpace()
		if lx.cur.EOF() {
			lx.tokens = append(lx.tokens, Token{Kind: EOF, Line: lx.cur.Line, Col: lx.cur.Col, EndLine: lx.cur.Line})
			return lx.tokens, nil
		}
		if err := lx.next(); err != nil {
			return lx.tokens, err
		}
	}
}

func (lx *lexer) skipSpace() {
	for !lx.cur.EOF() {
		switch lx.cur.Peek() {
		case '\n':
			lx.lineStart = true
			lx.cur.Bump()
		case ' ', '\t', '\r', '\f', '\v':
			lx.cur.Bump()
		default:
			return
		}
	}
}

func (lx *lexer) emit(kind Kind, m Mark) {
	lx.tokens = append(lx.tokens, Token{
		Kind:    kind,
		Text:    lx.cur.TextFrom(m),
		Line:    m.Line,
		Col:     m.Col,
		EndLine: lx.cur.Line,
	})
	lx.lineStart = false
}

func (lx *lexer) fail(m Mark, msg string) *SyntaxError {
	return &SyntaxError{Line: m.Line, Col: m.Col, Msg: msg}
}

func (lx *lexer) next() error {
	m := lx.cur.Mark()
	ch := lx.cur.Peek()
	b0, b1, ok := lx.cur.Peek2()

	switch {
	case ch == '#' && lx.lineStart:
		for !lx.cur.EOF() && lx.cur.Peek() != '\n' {
			lx.cur.Bump()
		}
		// trailing \r belongs to the line break
		tok := strings.TrimRight(lx.cur.TextFrom(m), "\r")
		lx.tokens = append(lx.tokens, Token{Kind: Directive, Text: tok, Line: m.Line, Col: m.Col, EndLine: m.Line})
		return nil

	case ok && b0 == '/' && b1 == '/':
		for !lx.cur.EOF() && lx.cur.Peek() != '\n' {
			lx.cur.Bump()
		}
		lx.tokens = append(lx.tokens, Token{Kind: Comment, Text: strings.TrimRight(lx.cur.TextFrom(m), "\r"), Line: m.Line, Col: m.Col, EndLine: m.Line})
		return nil

	case ok && b0 == '/' && b1 == '*':
		lx.cur.Bump()
		lx.cur.Bump()
		for {
			if lx.cur.EOF() {
				return lx.fail(m, "unterminated block comment")
			}
			if c0, c1, ok := lx.cur.Peek2(); ok && c0 == '*' && c1 == '/' {
				lx.cur.Bump()
				lx.cur.Bump()
				break
			}
			lx.cur.Bump()
		}
		lx.emit(Comment, m)
		return nil

	case ok && b0 == '@' && b1 == '"':
		lx.cur.Bump()
		return lx.verbatimString(m)

	case ok && b0 == '@' && isIdentStart(b1):
		lx.cur.Bump()
		lx.scanIdent()
		lx.emit(Ident, m)
		return nil

	case ok && b0 == '$' && b1 == '"':
		lx.cur.Bump()
		return lx.quoted(m, '"', String)

	case isIdentStart(ch):
		lx.scanIdent()
		text := lx.cur.TextFrom(m)
		if IsKeyword(text) {
			lx.emit(Keyword, m)
		} else {
			lx.emit(Ident, m)
		}
		return nil

	case isDigit(ch) || (ch == '.' && ok && isDigit(b1)):
		lx.scanNumber()
		lx.emit(Number, m)
		return nil

	case ch == '"':
		return lx.quoted(m, '"', String)

	case ch == '\'':
		return lx.quoted(m, '\'', Char)
	}

	rest := lx.cur.src[lx.cur.Off:]
	for _, p := range puncts {
		if strings.HasPrefix(rest, p) {
			for range len(p) {
				lx.cur.Bump()
			}
			lx.emit(Punct, m)
			return nil
		}
	}
	if strings.IndexByte(singlePuncts, ch) >= 0 {
		lx.cur.Bump()
		lx.emit(Punct, m)
		return nil
	}
	return lx.fail(m, "unexpected character "+strings.TrimSpace(string(rune(ch))))
}

func (lx *lexer) quoted(m Mark, quote byte, kind Kind) error {
	lx.cur.Bump() // opening quote
	for {
		if lx.cur.EOF() || lx.cur.Peek() == '\n' {
			return lx.fail(m, "unterminated literal")
		}
		b := lx.cur.Bump()
		if b == '\\' {
			if lx.cur.EOF() {
				return lx.fail(m, "unterminated literal")
			}
			lx.cur.Bump()
			continue
		}
		if b == quote {
			break
		}
	}
	lx.emit(kind, m)
	return nil
}

func (lx *lexer) verbatimString(m Mark) error {
	lx.cur.Bump() // opening quote
	for {
		if lx.cur.EOF() {
			return lx.fail(m, "unterminated verbatim string")
		}
		if lx.cur.Bump() == '"' {
			if !lx.cur.Eat('"') {
				break
			}
		}
	}
	lx.emit(String, m)
	return nil
}

func (lx *lexer) scanIdent() {
	for !lx.cur.EOF() && isIdentContinue(lx.cur.Peek()) {
		lx.cur.Bump()
	}
}

func (lx *lexer) scanNumber() {
	if b0, b1, ok := lx.cur.Peek2(); ok && b0 == '0' && (b1 == 'x' || b1 == 'X' || b1 == 'b' || b1 == 'B') {
		lx.cur.Bump()
		lx.cur.Bump()
		for !lx.cur.EOF() && (isHex(lx.cur.Peek()) || lx.cur.Peek() == '_') {
			lx.cur.Bump()
		}
		lx.scanSuffix()
		return
	}
	for !lx.cur.EOF() {
		ch := lx.cur.Peek()
		switch {
		case isDigit(ch) || ch == '_':
			lx.cur.Bump()
		case ch == '.':
			if _, b1, ok := lx.cur.Peek2(); !ok || !isDigit(b1) {
				lx.scanSuffix()
				return
			}
			lx.cur.Bump()
		case ch == 'e' || ch == 'E':
			lx.cur.Bump()
			if c := lx.cur.Peek(); c == '+' || c == '-' {
				lx.cur.Bump()
			}
		default:
			lx.scanSuffix()
			return
		}
	}
}

func (lx *lexer) scanSuffix() {
	for !lx.cur.EOF() && strings.IndexByte("uUlLfFdDmM", lx.cur.Peek()) >= 0 {
		lx.cur.Bump()
	}
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}

func isIdentContinue(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isHex(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

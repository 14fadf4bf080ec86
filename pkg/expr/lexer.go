package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

// Lexer tokenizes a path expression.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize scans the entire input and returns all tokens.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return l.tokens, nil
}

// next returns the next token from the input.
func (l *Lexer) next() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}, nil
	}

	ch := l.input[l.pos]

	// String literals
	if ch == '"' || ch == '\'' {
		return l.readString(ch)
	}

	// Number literals; a leading dot counts when a digit follows (.5)
	if isDigit(ch) || (ch == '.' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1])) {
		return l.readNumber()
	}

	if strings.HasPrefix(l.input[l.pos:], "?.") {
		l.pos += 2
		return Token{Type: TokenOptional, Value: "?.", Pos: l.pos - 2}, nil
	}

	// Single-character punctuation
	var tt TokenType
	switch ch {
	case '.':
		tt = TokenDot
	case ',':
		tt = TokenComma
	case ':':
		tt = TokenColon
	case '-':
		tt = TokenMinus
	case '(':
		tt = TokenLParen
	case ')':
		tt = TokenRParen
	case '[':
		tt = TokenLBracket
	case ']':
		tt = TokenRBracket
	case '{':
		tt = TokenLBrace
	case '}':
		tt = TokenRBrace
	default:
		if isIdentStart(ch) {
			return l.readIdentifier(), nil
		}
		return Token{}, fmt.Errorf("unexpected character %q at position %d", string(ch), l.pos)
	}
	l.pos++
	return Token{Type: tt, Value: string(ch), Pos: l.pos - 1}, nil
}

// readString reads a quoted string literal.
func (l *Lexer) readString(quote byte) (Token, error) {
	start := l.pos
	l.pos++ // skip opening quote

	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.pos++
			escaped := l.input[l.pos]
			switch escaped {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'u':
				r, err := l.readUnicodeEscape()
				if err != nil {
					return Token{}, err
				}
				sb.WriteRune(r)
				continue
			case '\\', '"', '\'', '/':
				sb.WriteByte(escaped)
			default:
				sb.WriteByte('\\')
				sb.WriteByte(escaped)
			}
			l.pos++
			continue
		}
		if ch == quote {
			l.pos++ // skip closing quote
			return Token{
				Type:   TokenString,
				Value:  l.input[start:l.pos],
				StrVal: sb.String(),
				Pos:    start,
			}, nil
		}
		sb.WriteByte(ch)
		l.pos++
	}

	return Token{}, fmt.Errorf("unterminated string starting at position %d", start)
}

// readUnicodeEscape reads the XXXX of a \uXXXX escape, with l.pos on the
// 'u', and joins a following low surrogate escape into one rune.
func (l *Lexer) readUnicodeEscape() (rune, error) {
	r, err := l.hex4(l.pos + 1)
	if err != nil {
		return 0, err
	}
	l.pos += 5
	if utf16.IsSurrogate(r) && strings.HasPrefix(l.input[l.pos:], "\\u") {
		if lo, err := l.hex4(l.pos + 2); err == nil {
			if joined := utf16.DecodeRune(r, lo); joined != unicode.ReplacementChar {
				l.pos += 6
				return joined, nil
			}
		}
	}
	if utf16.IsSurrogate(r) {
		return unicode.ReplacementChar, nil
	}
	return r, nil
}

func (l *Lexer) hex4(at int) (rune, error) {
	if at+4 > len(l.input) {
		return 0, fmt.Errorf("truncated \\u escape at position %d", at-2)
	}
	n, err := strconv.ParseUint(l.input[at:at+4], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid \\u escape at position %d", at-2)
	}
	return rune(n), nil
}

// readNumber reads the raw text of a numeric literal. Validation is left to
// the numeric literal parser, so the scan is permissive: digits, letters,
// separators, a fraction point followed by a digit, and an exponent sign.
func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	decimal := !(len(l.input) > l.pos+1 && l.input[l.pos] == '0' && strings.ContainsRune("xXoObB", rune(l.input[l.pos+1])))

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case isIdentPart(ch):
			l.pos++
			if decimal && (ch == 'e' || ch == 'E') && l.pos < len(l.input) && (l.input[l.pos] == '+' || l.input[l.pos] == '-') {
				l.pos++
			}
		case ch == '.' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1]):
			l.pos++
		default:
			return Token{Type: TokenNumber, Value: l.input[start:l.pos], Pos: start}, nil
		}
	}
	return Token{Type: TokenNumber, Value: l.input[start:l.pos], Pos: start}, nil
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier() Token {
	start := l.pos
	for l.pos < len(l.input) && isIdentPart(l.input[l.pos]) {
		l.pos++
	}

	word := l.input[start:l.pos]
	switch word {
	case "true":
		return Token{Type: TokenTrue, Value: word, Pos: start}
	case "false":
		return Token{Type: TokenFalse, Value: word, Pos: start}
	case "null":
		return Token{Type: TokenNull, Value: word, Pos: start}
	case "undefined":
		return Token{Type: TokenUndefined, Value: word, Pos: start}
	default:
		return Token{Type: TokenIdent, Value: word, Pos: start}
	}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '$'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

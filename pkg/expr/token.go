// Package expr parses optional-chain path expressions such as
//
//	root?.students?.[0]?.name
//	Math.max?.(1, 2n, "3")
//
// into chains. "?." marks an optional step: it short-circuits when the
// current value is null or undefined. A step written without "?" is strict
// and fails instead. Index keys and call arguments are literals: numbers
// (with the numeric literal grammar, so 2n is a big integer), strings,
// true, false, null, undefined, and list or map literals.
package expr

// TokenType represents the type of a lexical token.
type TokenType int

const (
	// Literals
	TokenNumber    TokenType = iota // numeric literal
	TokenString                     // string literal
	TokenTrue                       // true
	TokenFalse                      // false
	TokenNull                       // null
	TokenUndefined                  // undefined

	// Identifiers and punctuation
	TokenIdent    // identifier (property name)
	TokenDot      // .
	TokenOptional // ?.
	TokenComma    // ,
	TokenColon    // :
	TokenMinus    // -

	// Brackets
	TokenLParen   // (
	TokenRParen   // )
	TokenLBracket // [
	TokenRBracket // ]
	TokenLBrace   // {
	TokenRBrace   // }

	// Special
	TokenEOF // end of expression
)

// Token represents a single lexical token.
type Token struct {
	Type   TokenType
	Value  string // raw source text
	StrVal string // parsed string (for TokenString, with escapes resolved)
	Pos    int    // position in source
}

// String returns a debug-friendly representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenNumber:
		return "NUMBER"
	case TokenString:
		return "STRING"
	case TokenTrue:
		return "TRUE"
	case TokenFalse:
		return "FALSE"
	case TokenNull:
		return "NULL"
	case TokenUndefined:
		return "UNDEFINED"
	case TokenIdent:
		return "IDENT"
	case TokenDot:
		return "DOT"
	case TokenOptional:
		return "OPTIONAL"
	case TokenComma:
		return "COMMA"
	case TokenColon:
		return "COLON"
	case TokenMinus:
		return "MINUS"
	case TokenLParen:
		return "LPAREN"
	case TokenRParen:
		return "RPAREN"
	case TokenLBracket:
		return "LBRACKET"
	case TokenRBracket:
		return "RBRACKET"
	case TokenLBrace:
		return "LBRACE"
	case TokenRBrace:
		return "RBRACE"
	case TokenEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

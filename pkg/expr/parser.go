package expr

import (
	"fmt"

	"github.com/lemonberrylabs/numchain/pkg/chain"
	"github.com/lemonberrylabs/numchain/pkg/host"
	"github.com/lemonberrylabs/numchain/pkg/numeric"
)

// MaxPathLength is the maximum allowed length for a single path expression.
const MaxPathLength = 4096

// Parser is a recursive descent parser for path expressions.
type Parser struct {
	tokens []Token
	pos    int
}

// ParsePath parses a complete path expression. A leading "root" names the
// root value; a leading bare name is shorthand for root?.name.
func ParsePath(input string) (*Path, error) {
	if len(input) > MaxPathLength {
		return nil, fmt.Errorf("path exceeds maximum length of %d characters", MaxPathLength)
	}

	lexer := NewLexer(input)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return nil, fmt.Errorf("lexer error: %w", err)
	}

	p := &Parser{tokens: tokens}
	path := &Path{Source: input}

	if tok := p.current(); tok.Type == TokenIdent {
		p.advance()
		if tok.Value != "root" {
			path.Segments = append(path.Segments, Segment{Kind: chain.StepProperty, Property: tok.Value, Pos: tok.Pos})
		}
	}

	for p.current().Type != TokenEOF {
		seg, err := p.parseSegment()
		if err != nil {
			return nil, err
		}
		path.Segments = append(path.Segments, seg)
	}
	return path, nil
}

// current returns the current token.
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

// advance consumes the current token and returns it.
func (p *Parser) advance() Token {
	tok := p.current()
	p.pos++
	return tok
}

// expect consumes a token of the expected type or returns an error.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.current()
	if tok.Type != tt {
		return tok, fmt.Errorf("expected %s, got %s at position %d", tt, tok.Type, tok.Pos)
	}
	p.advance()
	return tok, nil
}

// parseSegment parses one access:
//
//	?.name  ?.[key]  ?.(args)   optional
//	.name   [key]    (args)     strict
func (p *Parser) parseSegment() (Segment, error) {
	tok := p.current()
	seg := Segment{Strict: true, Pos: tok.Pos}

	switch tok.Type {
	case TokenOptional:
		p.advance()
		seg.Strict = false
		if p.current().Type == TokenIdent {
			seg.Kind = chain.StepProperty
			seg.Property = p.advance().Value
			return seg, nil
		}
		if t := p.current().Type; t != TokenLBracket && t != TokenLParen {
			return Segment{}, fmt.Errorf("expected name, '[' or '(' after '?.' at position %d", p.current().Pos)
		}
		return p.parseBracketed(seg)
	case TokenDot:
		p.advance()
		name, err := p.expect(TokenIdent)
		if err != nil {
			return Segment{}, fmt.Errorf("expected property name after '.': %w", err)
		}
		seg.Kind = chain.StepProperty
		seg.Property = name.Value
		return seg, nil
	case TokenLBracket, TokenLParen:
		return p.parseBracketed(seg)
	default:
		return Segment{}, fmt.Errorf("unexpected token %s (%q) at position %d", tok.Type, tok.Value, tok.Pos)
	}
}

// parseBracketed parses an index key or an argument list.
func (p *Parser) parseBracketed(seg Segment) (Segment, error) {
	if p.current().Type == TokenLParen {
		args, err := p.parseArgList()
		if err != nil {
			return Segment{}, err
		}
		seg.Kind = chain.StepCall
		seg.Args = args
		return seg, nil
	}

	p.advance() // consume [
	key, err := p.parseLiteral()
	if err != nil {
		return Segment{}, err
	}
	if _, err := p.expect(TokenRBracket); err != nil {
		return Segment{}, fmt.Errorf("expected ']': %w", err)
	}
	seg.Kind = chain.StepIndex
	seg.Key = key
	return seg, nil
}

// parseLiteral parses a literal value.
func (p *Parser) parseLiteral() (host.Value, error) {
	tok := p.current()

	switch tok.Type {
	case TokenNumber:
		p.advance()
		v, err := numeric.ParseLiteral(tok.Value)
		if err != nil {
			return host.Undefined, fmt.Errorf("invalid number %q at position %d: %w", tok.Value, tok.Pos, err)
		}
		return host.NewNumber(v), nil
	case TokenMinus:
		p.advance()
		operand, err := p.parseLiteral()
		if err != nil {
			return host.Undefined, err
		}
		if operand.Type() != host.TypeNumber {
			return host.Undefined, fmt.Errorf("'-' must precede a number at position %d", tok.Pos)
		}
		return host.NewNumber(numeric.Neg(operand.AsNumber())), nil
	case TokenString:
		p.advance()
		return host.NewString(tok.StrVal), nil
	case TokenTrue:
		p.advance()
		return host.NewBool(true), nil
	case TokenFalse:
		p.advance()
		return host.NewBool(false), nil
	case TokenNull:
		p.advance()
		return host.Null, nil
	case TokenUndefined:
		p.advance()
		return host.Undefined, nil
	case TokenIdent:
		switch tok.Value {
		case "NaN":
			p.advance()
			return host.NewNumber(numeric.NaN), nil
		case "Infinity":
			p.advance()
			return host.NewNumber(numeric.Infinity), nil
		}
		return host.Undefined, fmt.Errorf("unexpected name %q at position %d (quote string keys)", tok.Value, tok.Pos)
	case TokenLBracket:
		return p.parseListLiteral()
	case TokenLBrace:
		return p.parseMapLiteral()
	default:
		return host.Undefined, fmt.Errorf("unexpected token %s (%q) at position %d", tok.Type, tok.Value, tok.Pos)
	}
}

// parseListLiteral parses [lit, lit, ...].
func (p *Parser) parseListLiteral() (host.Value, error) {
	p.advance() // consume [

	var elements []host.Value
	for p.current().Type != TokenRBracket {
		if len(elements) > 0 {
			if _, err := p.expect(TokenComma); err != nil {
				return host.Undefined, fmt.Errorf("expected ',' in list: %w", err)
			}
		}
		elem, err := p.parseLiteral()
		if err != nil {
			return host.Undefined, err
		}
		elements = append(elements, elem)
	}
	p.advance() // consume ]

	return host.NewList(elements), nil
}

// parseMapLiteral parses { key: lit, "key": lit, ... }.
func (p *Parser) parseMapLiteral() (host.Value, error) {
	p.advance() // consume {

	m := host.NewOrderedMap()
	for n := 0; p.current().Type != TokenRBrace; n++ {
		if n > 0 {
			if _, err := p.expect(TokenComma); err != nil {
				return host.Undefined, fmt.Errorf("expected ',' in map literal: %w", err)
			}
		}
		tok := p.advance()
		var key string
		switch tok.Type {
		case TokenIdent:
			key = tok.Value
		case TokenString:
			key = tok.StrVal
		default:
			return host.Undefined, fmt.Errorf("expected map key, got %s at position %d", tok.Type, tok.Pos)
		}
		if _, err := p.expect(TokenColon); err != nil {
			return host.Undefined, fmt.Errorf("expected ':' in map literal: %w", err)
		}
		value, err := p.parseLiteral()
		if err != nil {
			return host.Undefined, err
		}
		m.Set(key, value)
	}
	p.advance() // consume }

	return host.NewMap(m), nil
}

// parseArgList parses (lit, lit, ...).
func (p *Parser) parseArgList() ([]host.Value, error) {
	if _, err := p.expect(TokenLParen); err != nil {
		return nil, fmt.Errorf("expected '(': %w", err)
	}

	var args []host.Value
	for p.current().Type != TokenRParen {
		if len(args) > 0 {
			if _, err := p.expect(TokenComma); err != nil {
				return nil, fmt.Errorf("expected ',' in arguments: %w", err)
			}
		}
		if p.current().Type == TokenEOF {
			return nil, fmt.Errorf("expected ')', got EOF at position %d", p.current().Pos)
		}
		arg, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	p.advance() // consume )

	return args, nil
}

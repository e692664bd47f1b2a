package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Grammar:
//
//	or         := and ("||" and)*
//	and        := term ("&&" term)*
//	term       := "(" or ")" | comparison
//	comparison := ident "." ident OP literal
//	literal    := string | number | true | false
type node interface {
	eval(Context) bool
}

type orNode struct{ left, right node }

func (n orNode) eval(c Context) bool { return n.left.eval(c) || n.right.eval(c) }

type andNode struct{ left, right node }

func (n andNode) eval(c Context) bool { return n.left.eval(c) && n.right.eval(c) }

type cmpNode struct {
	namespace string
	field     string
	op        operator
	literal   any
}

func (n cmpNode) eval(c Context) bool {
	value, ok := c.lookup(n.namespace, n.field)
	if !ok {
		return false
	}
	return compare(n.op, value, n.literal)
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokDot
	tokOp
	tokAnd
	tokOr
	tokLParen
	tokRParen
	tokString
	tokNumber
	tokBool
	tokEOF
)

type token struct {
	kind tokenKind
	text string
}

func parse(input string) (node, error) {
	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected trailing input %q", p.peek().text)
	}
	return n, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	if p.pos >= len(p.tokens) {
		return token{kind: tokEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (node, error) {
	if p.peek().kind == tokLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, errors.New("missing closing parenthesis")
		}
		return inner, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	namespace := p.next()
	if namespace.kind != tokIdent {
		return nil, fmt.Errorf("expected namespace, got %q", namespace.text)
	}
	if p.next().kind != tokDot {
		return nil, errors.New("expected '.' after namespace")
	}
	field := p.next()
	if field.kind != tokIdent {
		return nil, fmt.Errorf("expected field name, got %q", field.text)
	}
	opTok := p.next()
	if opTok.kind != tokOp {
		return nil, fmt.Errorf("expected operator, got %q", opTok.text)
	}
	op, ok := parseOperator(opTok.text)
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", opTok.text)
	}

	lit := p.next()
	var value any
	switch lit.kind {
	case tokString:
		value = lit.text
	case tokNumber:
		f, err := strconv.ParseFloat(lit.text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number literal %q", lit.text)
		}
		value = f
	case tokBool:
		value = lit.text == "true"
	default:
		return nil, fmt.Errorf("expected literal, got %q", lit.text)
	}

	return cmpNode{
		namespace: namespace.text,
		field:     field.text,
		op:        op,
		literal:   value,
	}, nil
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		ch := input[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n':
			i++
		case ch == '.':
			tokens = append(tokens, token{kind: tokDot, text: "."})
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")"})
			i++
		case ch == '&':
			if !strings.HasPrefix(input[i:], "&&") {
				return nil, errors.New("single '&' is not an operator")
			}
			tokens = append(tokens, token{kind: tokAnd, text: "&&"})
			i += 2
		case ch == '|':
			if !strings.HasPrefix(input[i:], "||") {
				return nil, errors.New("single '|' is not an operator")
			}
			tokens = append(tokens, token{kind: tokOr, text: "||"})
			i += 2
		case ch == '=' || ch == '!' || ch == '<' || ch == '>':
			op := string(ch)
			if i+1 < len(input) && input[i+1] == '=' {
				op += "="
				i++
			}
			i++
			tokens = append(tokens, token{kind: tokOp, text: op})
		case ch == '"' || ch == '\'':
			text, length, err := scanString(input[i:])
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, text: text})
			i += length
		case ch == '-' || unicode.IsDigit(rune(ch)):
			start := i
			i++
			for i < len(input) && (unicode.IsDigit(rune(input[i])) || input[i] == '.') {
				i++
			}
			tokens = append(tokens, token{kind: tokNumber, text: input[start:i]})
		case unicode.IsLetter(rune(ch)) || ch == '_':
			start := i
			for i < len(input) && (unicode.IsLetter(rune(input[i])) || unicode.IsDigit(rune(input[i])) || input[i] == '_') {
				i++
			}
			word := input[start:i]
			switch word {
			case "true", "false":
				tokens = append(tokens, token{kind: tokBool, text: word})
			default:
				tokens = append(tokens, token{kind: tokIdent, text: word})
			}
		default:
			return nil, fmt.Errorf("unexpected character %q", ch)
		}
	}
	tokens = append(tokens, token{kind: tokEOF})
	return tokens, nil
}

// scanString reads a quoted string starting at input[0] and returns the
// unquoted text and the number of input bytes consumed.
func scanString(input string) (string, int, error) {
	quote := input[0]
	var b strings.Builder
	i := 1
	for i < len(input) {
		ch := input[i]
		if ch == '\\' && i+1 < len(input) {
			b.WriteByte(input[i+1])
			i += 2
			continue
		}
		if ch == quote {
			return b.String(), i + 1, nil
		}
		b.WriteByte(ch)
		i++
	}
	return "", 0, errors.New("unterminated string literal")
}

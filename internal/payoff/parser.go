package payoff

import (
	"fmt"
	"strconv"
)

// Parse tokenizes and parses payoff expression text into an AST. It performs
// no evaluation and has no side effects. Unknown identifiers, unknown
// functions, wrong argument counts, and malformed syntax all fail with a
// *ParseError carrying the offending position.
//
// Precedence, low to high: comparison, additive, multiplicative, unary
// minus, primary.
func Parse(text string) (Node, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	node, err := p.comparison()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &ParseError{Pos: tok.pos, Msg: "unexpected token " + strconv.Quote(tok.text)}
	}
	return node, nil
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) next() token {
	tok := p.toks[p.i]
	if tok.kind != tokEOF {
		p.i++
	}
	return tok
}

var comparisonOps = map[tokenKind]BinaryOp{
	tokEq: OpEq,
	tokNe: OpNe,
	tokLt: OpLt,
	tokLe: OpLe,
	tokGt: OpGt,
	tokGe: OpGe,
}

func (p *parser) comparison() (Node, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := comparisonOps[p.peek().kind]
		if !ok {
			return left, nil
		}
		p.next()
		right, err := p.additive()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, X: left, Y: right}
	}
}

func (p *parser) additive() (Node, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op BinaryOp
		switch p.peek().kind {
		case tokPlus:
			op = OpAdd
		case tokMinus:
			op = OpSub
		default:
			return left, nil
		}
		p.next()
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, X: left, Y: right}
	}
}

func (p *parser) multiplicative() (Node, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		var op BinaryOp
		switch p.peek().kind {
		case tokStar:
			op = OpMul
		case tokSlash:
			op = OpDiv
		default:
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, X: left, Y: right}
	}
}

func (p *parser) unary() (Node, error) {
	if p.peek().kind == tokMinus {
		p.next()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{X: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return &Number{Value: tok.val}, nil

	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.call(tok)
		}
		if tok.text != VarPrice && tok.text != VarPath {
			return nil, &ParseError{Pos: tok.pos, Msg: "unknown identifier " + strconv.Quote(tok.text)}
		}
		return &Variable{Name: tok.text}, nil

	case tokLParen:
		node, err := p.comparison()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &ParseError{Pos: closing.pos, Msg: "expected closing parenthesis"}
		}
		return node, nil

	case tokEOF:
		return nil, &ParseError{Pos: tok.pos, Msg: "unexpected end of expression"}

	default:
		return nil, &ParseError{Pos: tok.pos, Msg: "unexpected token " + strconv.Quote(tok.text)}
	}
}

// call parses the argument list of name(...). The opening paren has been
// peeked but not consumed.
func (p *parser) call(name token) (Node, error) {
	spec, ok := functions[name.text]
	if !ok {
		return nil, &ParseError{Pos: name.pos, Msg: "unknown function " + strconv.Quote(name.text)}
	}

	p.next() // consume "("

	var args []Node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.comparison()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if closing := p.next(); closing.kind != tokRParen {
		return nil, &ParseError{Pos: closing.pos, Msg: "expected closing parenthesis in call to " + name.text}
	}

	if len(args) < spec.minArgs {
		return nil, &ParseError{
			Pos: name.pos,
			Msg: fmt.Sprintf("%s expects at least %d argument(s), got %d", name.text, spec.minArgs, len(args)),
		}
	}
	if !spec.variadic && len(args) != spec.minArgs {
		return nil, &ParseError{
			Pos: name.pos,
			Msg: fmt.Sprintf("%s expects exactly %d argument(s), got %d", name.text, spec.minArgs, len(args)),
		}
	}

	return &Call{Func: name.text, Args: args}, nil
}

package parser

import (
	"math/big"

	"railway/pkg/ast"
	"railway/pkg/lexer"
	"railway/pkg/operators"
	"railway/pkg/railerr"
	"railway/pkg/value"
)

// parseExpression implements spec §4.4's precedence-climbing procedure:
// parse one unary-prefixed operand, then repeatedly fold in
// (binop, operand) pairs, always building a left-associative tree among
// operators of equal precedence and only descending into a right-growing
// subtree when the next operator binds tighter than the one already
// consumed.
func (p *parser) parseExpression() (ast.Expression, error) {
	return p.parseBinary(6) // one past the loosest precedence level (5)
}

// parseBinary parses operands combined by operators whose precedence is
// <= maxPrec, climbing to tighter precedence via recursive calls with a
// smaller ceiling — the standard precedence-climbing formulation of the
// fold-left procedure spec §4.4 describes.
func (p *parser) parseBinary(maxPrec int) (ast.Expression, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, prec := p.peekBinaryOp()
		if op == "" || prec > maxPrec {
			return lhs, nil
		}
		p.advance()
		rhs, err := p.parseBinary(prec - 1)
		if err != nil {
			return nil, err
		}
		lhs = ast.BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
	}
}

func (p *parser) peekBinaryOp() (string, int) {
	t := p.peek()
	if t.Kind != lexer.Punct {
		return "", 0
	}
	if operators.IsBinaryOp(t.Text) {
		return t.Text, operators.Precedence(t.Text)
	}
	return "", 0
}

func (p *parser) parseUnary() (ast.Expression, error) {
	t := p.peek()
	if t.Kind == lexer.Punct && (t.Text == "-" || t.Text == "!") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.UnaryExpr{Op: t.Text, Operand: operand}, nil
	}
	return p.parseOperand()
}

func (p *parser) parseOperand() (ast.Expression, error) {
	t := p.peek()
	switch {
	case t.Kind == lexer.Punct && t.Text == "(":
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return inner, nil
	case t.Kind == lexer.Punct && t.Text == "[":
		return p.parseArrayExpr()
	case t.Kind == lexer.Number:
		p.advance()
		return ast.NumberLiteral{Val: parseRational(t.Text)}, nil
	case t.Kind == lexer.Identifier && t.Text == "tensor":
		return p.parseTensor()
	case t.Kind == lexer.Identifier && t.Text == "TID":
		p.advance()
		return ast.ThreadID{}, nil
	case t.Kind == lexer.Identifier && t.Text == "#TID":
		p.advance()
		return ast.NumThreads{}, nil
	case t.Kind == lexer.Identifier && len(t.Text) > 1 && t.Text[0] == '#':
		p.advance()
		name := t.Text[1:]
		mono := isMono(name)
		return ast.Length{Lookup: ast.Lookup{Name: name, Mono: mono}}, nil
	case t.Kind == lexer.Identifier:
		lk, err := p.parseLookup()
		if err != nil {
			return nil, err
		}
		return lk, nil
	default:
		return nil, railerr.ParsingError("line %d: unexpected token %q in expression", t.Line, t.Text)
	}
}

// parseLookup reads name[idx1][idx2]... (spec §4.1/§4.3).
func (p *parser) parseLookup() (ast.Lookup, error) {
	t := p.peek()
	if t.Kind != lexer.Identifier {
		return ast.Lookup{}, railerr.ParsingError("line %d: expected identifier, found %q", t.Line, t.Text)
	}
	p.advance()
	lk := ast.Lookup{Name: t.Text, Mono: isMono(t.Text)}
	for p.peek().Kind == lexer.Punct && p.peek().Text == "[" {
		p.advance()
		idx, err := p.parseExpression()
		if err != nil {
			return ast.Lookup{}, err
		}
		lk.Index = append(lk.Index, idx)
		if err := p.expectPunct("]"); err != nil {
			return ast.Lookup{}, err
		}
	}
	return lk, nil
}

// parseParenExpression reads `( expr )`, used by if/loop condition slots.
func (p *parser) parseParenExpression() (ast.Expression, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return e, nil
}

// parseArrayExpr reads either a literal [e1, e2, ...] or a range
// [start to stop] / [start to stop by step].
func (p *parser) parseArrayExpr() (ast.Expression, error) {
	if err := p.expectPunct("["); err != nil {
		return nil, err
	}
	if p.peek().Kind == lexer.Punct && p.peek().Text == "]" {
		p.advance()
		return ast.ArrayLiteral{}, nil
	}
	first, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.isKeyword("to") {
		p.advance()
		stop, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		var step ast.Expression = ast.NumberLiteral{Val: value.NewRationalInt(1)}
		if p.isKeyword("by") {
			p.advance()
			step, err = p.parseExpression()
			if err != nil {
				return nil, err
			}
		}
		if err := p.expectPunct("]"); err != nil {
			return nil, err
		}
		return ast.ArrayRange{Start: first, Stop: stop, Step: step}, nil
	}
	items := []ast.Expression{first}
	for p.peek().Kind == lexer.Punct && p.peek().Text == "," {
		p.advance()
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	return ast.ArrayLiteral{Items: items}, nil
}

// parseTensor reads `tensor(dims, fill)` (spec §4.3's array-tensor form).
func (p *parser) parseTensor() (ast.Expression, error) {
	p.advance() // tensor
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	dims, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(","); err != nil {
		return nil, err
	}
	fill, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return ast.ArrayTensor{Dims: dims, Fill: fill}, nil
}

// parseRational turns a lexer Number token (\d+(/\d+)?) into a Rational.
func parseRational(text string) value.Rational {
	for i, c := range text {
		if c == '/' {
			num, den := text[:i], text[i+1:]
			r := new(big.Rat)
			r.SetFrac(mustInt(num), mustInt(den))
			return value.Rational{Rat: r}
		}
	}
	return value.Rational{Rat: new(big.Rat).SetInt(mustInt(text))}
}

func mustInt(s string) *big.Int {
	n := new(big.Int)
	n.SetString(s, 10)
	return n
}

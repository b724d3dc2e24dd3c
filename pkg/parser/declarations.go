package parser

import (
	"railway/pkg/ast"
	"railway/pkg/lexer"
	"railway/pkg/railerr"
)

// parseFunction reads `func name (borrowed) (stolen) NEWLINE stmts
// (return|undoreturn) (out) NEWLINE`, matching spec §4.4's description of
// the top-level function grammar.
func (p *parser) parseFunction() (*ast.Function, error) {
	if err := p.expectKeyword("func"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	borrowed, err := p.parseNameList()
	if err != nil {
		return nil, err
	}
	in, err := p.parseNameList()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != lexer.Newline {
		return nil, railerr.ParsingError("line %d: expected newline after function header", p.peek().Line)
	}
	p.skipNewlines()

	body, err := p.parseBlock("return", "undoreturn")
	if err != nil {
		return nil, err
	}

	undoreturn := p.isKeyword("undoreturn")
	if undoreturn {
		p.advance()
	} else if err := p.expectKeyword("return"); err != nil {
		return nil, err
	}
	out, err := p.parseNameList()
	if err != nil {
		return nil, err
	}
	return &ast.Function{
		Name:       name,
		Undoreturn: undoreturn,
		Borrowed:   borrowed,
		In:         in,
		Body:       body,
		Out:        out,
	}, nil
}

// parseNameList reads a parenthesised, comma-separated (possibly empty)
// identifier list: ( ) or ( a, b, c ).
func (p *parser) parseNameList() ([]string, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var names []string
	for {
		if p.peek().Kind == lexer.Punct && p.peek().Text == ")" {
			p.advance()
			return names, nil
		}
		n, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		names = append(names, n)
		if p.peek().Kind == lexer.Punct && p.peek().Text == "," {
			p.advance()
			continue
		}
		return names, p.expectPunct(")")
	}
}

// Package parser builds pkg/ast trees from a pkg/lexer token stream,
// enforcing the syntactic reversibility rules spec.md §4.4 requires of any
// conforming parser (self-modification rejection, matched if/loop/try/
// mutex brackets). Grounded in structure on the teacher's pkg/parser
// split across several per-concern files, though every production here is
// Railway's, not Able's.
package parser

import (
	"railway/pkg/ast"
	"railway/pkg/lexer"
	"railway/pkg/railerr"
)

// Parser walks a flat token slice with a single lookahead cursor; Railway
// has no nested lexical scoping to track during parsing, so unlike a
// typical recursive-descent parser for a block language it needs no
// symbol table, only the self-modification check's free-standing token
// scan (selfmod.go).
type parser struct {
	toks []lexer.Token
	pos  int
}

// Parse tokenises nothing itself; call lexer.Lex first and hand Parse its
// result. Returns the function table plus top-level (global) statements.
func Parse(toks []lexer.Token) (*ast.Module, error) {
	p := &parser{toks: toks}
	return p.parseModule()
}

func (p *parser) peek() lexer.Token  { return p.toks[p.pos] }
func (p *parser) at(i int) lexer.Token {
	if p.pos+i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+i]
}

func (p *parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if t.Kind != lexer.EOF {
		p.pos++
	}
	return t
}

func (p *parser) skipNewlines() {
	for p.peek().Kind == lexer.Newline {
		p.advance()
	}
}

// isKeyword reports whether the current token is the identifier-shaped
// keyword kw (Railway keywords lex as ordinary identifiers; there is no
// separate keyword token category).
func (p *parser) isKeyword(kw string) bool {
	t := p.peek()
	return t.Kind == lexer.Identifier && t.Text == kw
}

func (p *parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return railerr.ParsingError("line %d: expected %q, found %q", p.peek().Line, kw, p.peek().Text)
	}
	p.advance()
	return nil
}

func (p *parser) expectPunct(s string) error {
	t := p.peek()
	if t.Kind != lexer.Punct || t.Text != s {
		return railerr.ParsingError("line %d: expected %q, found %q", t.Line, s, t.Text)
	}
	p.advance()
	return nil
}

func (p *parser) expectIdent() (string, error) {
	t := p.peek()
	if t.Kind != lexer.Identifier {
		return "", railerr.ParsingError("line %d: expected identifier, found %q", t.Line, t.Text)
	}
	p.advance()
	return t.Text, nil
}

func (p *parser) parseModule() (*ast.Module, error) {
	mod := &ast.Module{Functions: make(map[string]*ast.Function)}
	p.skipNewlines()
	for p.peek().Kind != lexer.EOF {
		switch {
		case p.isKeyword("func"):
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			if _, dup := mod.Functions[fn.Name]; dup {
				return nil, railerr.ParsingError("line %d: function %q already defined", p.peek().Line, fn.Name)
			}
			mod.Functions[fn.Name] = fn
		case p.isKeyword("global"):
			stmt, err := p.parseGlobalDecl()
			if err != nil {
				return nil, err
			}
			mod.Globals = append(mod.Globals, stmt)
		case p.isKeyword("include"):
			// include stubs are parsed and discarded (spec §1: "not exercised").
			p.advance()
			for p.peek().Kind != lexer.Newline && p.peek().Kind != lexer.EOF {
				p.advance()
			}
		default:
			return nil, railerr.ParsingError("line %d: expected function, global or include declaration, found %q", p.peek().Line, p.peek().Text)
		}
		p.skipNewlines()
	}
	if _, ok := mod.Functions["main"]; !ok {
		return nil, railerr.ParsingError("no main function defined")
	}
	return mod, nil
}

// parseGlobalDecl handles `global name = expr`, a module-level binding
// installed into the global table before main runs.
func (p *parser) parseGlobalDecl() (ast.Statement, error) {
	if err := p.expectKeyword("global"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("="); err != nil {
		return nil, err
	}
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.LetStmt{Name: name, Mono: isMono(name), Value: val}, nil
}

func isMono(name string) bool {
	return len(name) > 0 && name[0] == '.'
}

package parser

import (
	"railway/pkg/ast"
	"railway/pkg/lexer"
	"railway/pkg/operators"
	"railway/pkg/railerr"
)

// parseBlock reads statements until the next non-blank line starts with
// one of the stop keywords (the caller consumes that keyword itself), or
// EOF.
func (p *parser) parseBlock(stop ...string) ([]ast.Statement, error) {
	var stmts []ast.Statement
	for {
		p.skipNewlines()
		if p.peek().Kind == lexer.EOF {
			return stmts, nil
		}
		for _, kw := range stop {
			if p.isKeyword(kw) {
				return stmts, nil
			}
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if err := p.endOfStatement(); err != nil {
			return nil, err
		}
	}
}

func (p *parser) endOfStatement() error {
	t := p.peek()
	if t.Kind != lexer.Newline && t.Kind != lexer.EOF {
		return railerr.ParsingError("line %d: expected end of line, found %q", t.Line, t.Text)
	}
	return nil
}

func (p *parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.isKeyword("let"):
		return p.parseLet(false)
	case p.isKeyword("unlet"):
		return p.parseLet(true)
	case p.isKeyword("swap"):
		return p.parseSwap()
	case p.isKeyword("push"):
		return p.parsePushPop(true)
	case p.isKeyword("pop"):
		return p.parsePushPop(false)
	case p.isKeyword("promote"):
		return p.parsePromote()
	case p.isKeyword("if"):
		return p.parseIf()
	case p.isKeyword("loop"):
		return p.parseLoop()
	case p.isKeyword("for"):
		return p.parseForLoop()
	case p.isKeyword("do"):
		return p.parseDoYieldUndo()
	case p.isKeyword("try"):
		return p.parseTryCatch()
	case p.isKeyword("catch"):
		return p.parseCatch()
	case p.isKeyword("call"):
		return p.parseCall(false)
	case p.isKeyword("uncall"):
		return p.parseCall(true)
	case p.isKeyword("print"):
		return p.parsePrint()
	case p.isKeyword("barrier"):
		return p.parseBarrier()
	case p.isKeyword("mutex"):
		return p.parseMutex()
	default:
		return p.parseModificationOrLookupStatement()
	}
}

// ---------------------------- let / unlet ----------------------------

func (p *parser) parseLet(unlet bool) (ast.Statement, error) {
	p.advance() // let|unlet
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
	if unlet {
		return ast.UnletStmt{Name: name, Mono: isMono(name), Value: val}, nil
	}
	return ast.LetStmt{Name: name, Mono: isMono(name), Value: val}, nil
}

// ---------------------------- swap ----------------------------

func (p *parser) parseSwap() (ast.Statement, error) {
	p.advance() // swap
	left, err := p.parseLookup()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(","); err != nil {
		return nil, err
	}
	right, err := p.parseLookup()
	if err != nil {
		return nil, err
	}
	return ast.Swap{Left: left, Right: right}, nil
}

// ---------------------------- push / pop ----------------------------

// parsePushPop reads `push src => dst` or `pop dst => src`: push names the
// scalar being moved first and the array second, pop names the array first
// and the scalar that receives its tail element second (spec §4.6: push
// moves a cell into an array, pop moves the array's tail element back out).
func (p *parser) parsePushPop(push bool) (ast.Statement, error) {
	p.advance() // push|pop
	first, err := p.parseLookup()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("=>"); err != nil {
		return nil, err
	}
	second, err := p.parseLookup()
	if err != nil {
		return nil, err
	}
	if push {
		return ast.Push{Src: first, Dst: second}, nil
	}
	return ast.Pop{Src: second, Dst: first}, nil
}

// ---------------------------- promote ----------------------------

func (p *parser) parsePromote() (ast.Statement, error) {
	p.advance() // promote
	mono, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("=>"); err != nil {
		return nil, err
	}
	plain, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if !isMono(mono) {
		return nil, railerr.ParsingError("line %d: promote's source %q must be mono", p.peek().Line, mono)
	}
	if mono[1:] != plain {
		return nil, railerr.ParsingError("line %d: promote target %q must match source name", p.peek().Line, plain)
	}
	return ast.Promote{Mono: mono, Name: plain}, nil
}

// ---------------------------- if ----------------------------

func (p *parser) parseIf() (ast.Statement, error) {
	p.advance() // if
	entry, err := p.parseParenExpression()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	then, err := p.parseBlock("else", "fi")
	if err != nil {
		return nil, err
	}
	var els []ast.Statement
	if p.isKeyword("else") {
		p.advance()
		p.skipNewlines()
		els, err = p.parseBlock("fi")
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectKeyword("fi"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	exitSame := p.peek().Kind == lexer.Punct && p.peek().Text == ")"
	var exit ast.Expression
	if !exitSame {
		exit, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return ast.If{Entry: entry, Then: then, Else: els, Exit: exit, ExitSame: exitSame}, nil
}

// ---------------------------- loop ----------------------------

func (p *parser) parseLoop() (ast.Statement, error) {
	p.advance() // loop
	entry, err := p.parseParenExpression()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	body, err := p.parseBlock("pool")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("pool"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var exit ast.Expression
	if p.peek().Kind == lexer.Punct && p.peek().Text == ")" {
		if !entry.HasMono() {
			return nil, railerr.ParsingError("line %d: loop's exit condition is required unless the entry condition is mono", p.peek().Line)
		}
		exit = entry
	} else {
		exit, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return ast.Loop{Entry: entry, Body: body, Exit: exit}, nil
}

// ---------------------------- for ----------------------------

func (p *parser) parseForLoop() (ast.Statement, error) {
	p.advance() // for
	varName, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	iterable, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	body, err := p.parseBlock("rof")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("rof"); err != nil {
		return nil, err
	}
	return ast.ForLoop{Var: varName, Iterable: iterable, Body: body}, nil
}

// ---------------------------- do / yield / undo ----------------------------

// parseDoYieldUndo reads `do <block> [yield <block>] undo` (spec §4.6),
// grounded on original_source/parsing.py's two `do` productions: `do :
// DO NEWLINE statements YIELD NEWLINE statements UNDO` and the shorter
// `do : DO NEWLINE statements UNDO` with no yield clause at all.
func (p *parser) parseDoYieldUndo() (ast.Statement, error) {
	p.advance() // do
	p.skipNewlines()
	doBlock, err := p.parseBlock("yield", "undo")
	if err != nil {
		return nil, err
	}
	var yieldBlock []ast.Statement
	if p.isKeyword("yield") {
		p.advance()
		p.skipNewlines()
		yieldBlock, err = p.parseBlock("undo")
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectKeyword("undo"); err != nil {
		return nil, err
	}
	return ast.DoYieldUndo{Do: doBlock, Yield: yieldBlock}, nil
}

// ---------------------------- try / catch / yrt ----------------------------

func (p *parser) parseTryCatch() (ast.Statement, error) {
	p.advance() // try
	varName, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	source, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if source.HasMono() {
		return nil, railerr.ParsingError("try's candidate source carries mono information; catch-driven backtracking cannot re-derive which candidate to skip")
	}
	p.skipNewlines()
	body, err := p.parseBlock("yrt")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("yrt"); err != nil {
		return nil, err
	}
	return ast.TryCatch{Var: varName, Source: source, Body: body}, nil
}

func (p *parser) parseCatch() (ast.Statement, error) {
	p.advance() // catch
	cond, err := p.parseParenExpression()
	if err != nil {
		return nil, err
	}
	return ast.Catch{Cond: cond}, nil
}

// ---------------------------- call / uncall ----------------------------

// parseCall reads `call name (stolen) @(borrowed) => (out)`, optionally
// prefixed with a thread count in brackets for a parallel invocation:
// `call[n] name (stolen) @(borrowed) => (out)` (spec §4.8).
func (p *parser) parseCall(uncall bool) (ast.Statement, error) {
	p.advance() // call|uncall
	var numThreads ast.Expression
	if p.peek().Kind == lexer.Punct && p.peek().Text == "[" {
		p.advance()
		n, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct("]"); err != nil {
			return nil, err
		}
		numThreads = n
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	in, err := p.parseNameList()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("@"); err != nil {
		return nil, err
	}
	borrowed, err := p.parseNameList()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("=>"); err != nil {
		return nil, err
	}
	out, err := p.parseNameList()
	if err != nil {
		return nil, err
	}
	return ast.CallStmt{FuncName: name, Uncall: uncall, Borrowed: borrowed, In: in, Out: out, NumThreads: numThreads}, nil
}

// ---------------------------- print ----------------------------

func (p *parser) parsePrint() (ast.Statement, error) {
	p.advance() // print
	v, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.Print{Value: v}, nil
}

// ---------------------------- barrier / mutex ----------------------------

func (p *parser) parseBarrier() (ast.Statement, error) {
	p.advance() // barrier
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	return ast.Barrier{Name: name}, nil
}

func (p *parser) parseMutex() (ast.Statement, error) {
	p.advance() // mutex
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	body, err := p.parseBlock("xetum")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("xetum"); err != nil {
		return nil, err
	}
	return ast.Mutex{Name: name, Body: body}, nil
}

// ---------------------------- modification ----------------------------

var modOps = []string{"+=", "-=", "*=", "/=", "**=", "%=", "^=", "&=", "|="}

// parseModificationOrLookupStatement reads `lookup op= expr` and applies
// the self-modification check (spec §4.4, P4): the LHS name must not
// appear anywhere in the RHS token sequence.
func (p *parser) parseModificationOrLookupStatement() (ast.Statement, error) {
	target, err := p.parseLookup()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	op := ""
	for _, m := range modOps {
		if t.Kind == lexer.Punct && t.Text == m {
			op = m
			break
		}
	}
	if op == "" {
		return nil, railerr.ParsingError("line %d: expected a modification operator, found %q", t.Line, t.Text)
	}
	if operators.IsMonoOnly(operators.ModOp(op)) && !target.Mono {
		return nil, railerr.ParsingError("line %d: %q is a mono-only operator and cannot target non-mono %q", t.Line, op, target.Name)
	}
	p.advance()
	rhsStart := p.pos
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := checkSelfModification(target.Name, p.toks[rhsStart:p.pos]); err != nil {
		return nil, err
	}
	return ast.Modification{Target: target, Op: op, Value: val}, nil
}

package parser

import (
	"testing"

	"railway/pkg/ast"
	"railway/pkg/lexer"
)

func parseSrc(t *testing.T, src string) *ast.Module {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	mod, err := Parse(toks)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return mod
}

func parseSrcErr(t *testing.T, src string) error {
	t.Helper()
	toks, err := lexer.Lex(src)
	if err != nil {
		return err
	}
	_, err = Parse(toks)
	return err
}

func TestParseMinimalModule(t *testing.T) {
	mod := parseSrc(t, "func main ()()\nprint 1\nreturn ()\n")
	fn, ok := mod.Functions["main"]
	if !ok {
		t.Fatal("expected a main function")
	}
	if len(fn.Body) != 1 {
		t.Fatalf("expected one statement in main's body, got %d", len(fn.Body))
	}
	if _, ok := fn.Body[0].(ast.Print); !ok {
		t.Errorf("expected a Print statement, got %T", fn.Body[0])
	}
}

func TestParseMissingMainFails(t *testing.T) {
	if err := parseSrcErr(t, "func f ()()\nreturn ()\n"); err == nil {
		t.Error("expected an error for a module with no main function")
	}
}

func TestParseDuplicateFunctionFails(t *testing.T) {
	src := "func main ()()\nreturn ()\nfunc main ()()\nreturn ()\n"
	if err := parseSrcErr(t, src); err == nil {
		t.Error("expected an error redefining a function name")
	}
}

func TestParseGlobalDecl(t *testing.T) {
	mod := parseSrc(t, "global x = 5\nfunc main ()()\nreturn ()\n")
	if len(mod.Globals) != 1 {
		t.Fatalf("expected one global statement, got %d", len(mod.Globals))
	}
	let, ok := mod.Globals[0].(ast.LetStmt)
	if !ok || let.Name != "x" {
		t.Errorf("expected global let of x, got %#v", mod.Globals[0])
	}
}

func TestParseFunctionWithUndoreturn(t *testing.T) {
	mod := parseSrc(t, "func f (a)(b)\nlet c = a + b\nundoreturn (c)\nfunc main ()()\nreturn ()\n")
	fn := mod.Functions["f"]
	if !fn.Undoreturn {
		t.Error("expected Undoreturn to be true")
	}
	if len(fn.Borrowed) != 1 || fn.Borrowed[0] != "a" {
		t.Errorf("borrowed = %v", fn.Borrowed)
	}
	if len(fn.In) != 1 || fn.In[0] != "b" {
		t.Errorf("in = %v", fn.In)
	}
	if len(fn.Out) != 1 || fn.Out[0] != "c" {
		t.Errorf("out = %v", fn.Out)
	}
}

func TestParseModification(t *testing.T) {
	mod := parseSrc(t, "func main ()()\nlet x = 1\nx += 2\nreturn (x)\n")
	mstmt, ok := mod.Functions["main"].Body[1].(ast.Modification)
	if !ok {
		t.Fatalf("expected a Modification, got %T", mod.Functions["main"].Body[1])
	}
	if mstmt.Target.Name != "x" || mstmt.Op != "+=" {
		t.Errorf("got target=%q op=%q", mstmt.Target.Name, mstmt.Op)
	}
}

func TestParseSelfModificationRejected(t *testing.T) {
	err := parseSrcErr(t, "func main ()()\nlet x = 1\nx += x\nreturn (x)\n")
	if err == nil {
		t.Error("expected a self-modification error for x += x")
	}
}

func TestParseMonoOnlyOperatorOnNonMonoTargetRejected(t *testing.T) {
	for _, op := range []string{"**=", "%=", "^=", "&=", "|="} {
		err := parseSrcErr(t, "func main ()()\nlet x = 1\nx "+op+" 2\nreturn (x)\n")
		if err == nil {
			t.Errorf("expected a parse error for mono-only operator %q on non-mono target x", op)
		}
	}
}

func TestParseMonoOnlyOperatorOnMonoTargetAccepted(t *testing.T) {
	mod := parseSrc(t, "func main ()()\nlet .x = 1\n.x %= 2\nunlet .x = 1\nreturn ()\n")
	mstmt, ok := mod.Functions["main"].Body[1].(ast.Modification)
	if !ok || mstmt.Op != "%=" {
		t.Fatalf("expected a %%= Modification on .x, got %#v", mod.Functions["main"].Body[1])
	}
}

func TestParseSwap(t *testing.T) {
	mod := parseSrc(t, "func main ()()\nlet a = 1\nlet b = 2\nswap a, b\nreturn (a, b)\n")
	sw, ok := mod.Functions["main"].Body[2].(ast.Swap)
	if !ok {
		t.Fatalf("expected a Swap, got %T", mod.Functions["main"].Body[2])
	}
	if sw.Left.Name != "a" || sw.Right.Name != "b" {
		t.Errorf("got left=%q right=%q", sw.Left.Name, sw.Right.Name)
	}
}

func TestParsePushPop(t *testing.T) {
	mod := parseSrc(t, "func main ()()\nlet a = 1\nlet arr = []\npush a => arr\npop arr => x\nreturn (arr, x)\n")
	push, ok := mod.Functions["main"].Body[2].(ast.Push)
	if !ok || push.Src.Name != "a" || push.Dst.Name != "arr" {
		t.Fatalf("expected Push{a,arr}, got %#v", mod.Functions["main"].Body[2])
	}
	pop, ok := mod.Functions["main"].Body[3].(ast.Pop)
	if !ok || pop.Src.Name != "x" || pop.Dst.Name != "arr" {
		t.Fatalf("expected Pop{x,arr}, got %#v", mod.Functions["main"].Body[3])
	}
}

func TestParsePromote(t *testing.T) {
	mod := parseSrc(t, "func main ()()\nlet .x = 1\npromote .x => x\nreturn ()\n")
	pr, ok := mod.Functions["main"].Body[1].(ast.Promote)
	if !ok || pr.Name != "x" || pr.Mono != ".x" {
		t.Fatalf("expected Promote{Mono: .x, Name: x}, got %#v", mod.Functions["main"].Body[1])
	}
}

func TestParsePromoteMismatchedNameFails(t *testing.T) {
	err := parseSrcErr(t, "func main ()()\nlet .x = 1\npromote .x => y\nreturn ()\n")
	if err == nil {
		t.Error("expected an error when promote's target name doesn't match its mono source")
	}
}

func TestParseIfWithExplicitExit(t *testing.T) {
	src := "func main ()()\nlet x = 1\nif (x = 1)\nlet y = 2\nelse\nlet y = 3\nfi (y = 2)\nreturn ()\n"
	mod := parseSrc(t, src)
	ifs, ok := mod.Functions["main"].Body[1].(ast.If)
	if !ok {
		t.Fatalf("expected an If, got %T", mod.Functions["main"].Body[1])
	}
	if ifs.ExitSame {
		t.Error("expected ExitSame to be false when an explicit exit condition is given")
	}
	if len(ifs.Then) != 1 || len(ifs.Else) != 1 {
		t.Errorf("then/else lengths = %d/%d", len(ifs.Then), len(ifs.Else))
	}
}

func TestParseIfWithBareFi(t *testing.T) {
	src := "func main ()()\nlet x = 1\nif (x = 1)\nlet y = 2\nfi ()\nreturn ()\n"
	mod := parseSrc(t, src)
	ifs := mod.Functions["main"].Body[1].(ast.If)
	if !ifs.ExitSame {
		t.Error("expected ExitSame to be true for a bare fi()")
	}
}

func TestParseLoopRequiresExitUnlessEntryMono(t *testing.T) {
	src := "func main ()()\nlet x = 1\nloop (x = 1)\nx += 1\npool ()\nreturn ()\n"
	if err := parseSrcErr(t, src); err == nil {
		t.Error("expected an error: loop with a non-mono entry needs an explicit exit condition")
	}
}

func TestParseLoopWithExplicitExit(t *testing.T) {
	src := "func main ()()\nlet x = 1\nloop (x = 1)\nx += 1\npool (x = 5)\nreturn ()\n"
	mod := parseSrc(t, src)
	lp, ok := mod.Functions["main"].Body[1].(ast.Loop)
	if !ok {
		t.Fatalf("expected a Loop, got %T", mod.Functions["main"].Body[1])
	}
	if lp.Exit == nil {
		t.Error("expected a non-nil exit condition")
	}
}

func TestParseForLoop(t *testing.T) {
	src := "func main ()()\nlet arr = [1, 2, 3]\nfor i in arr\nprint i\nrof\nreturn ()\n"
	mod := parseSrc(t, src)
	fl, ok := mod.Functions["main"].Body[1].(ast.ForLoop)
	if !ok || fl.Var != "i" {
		t.Fatalf("expected ForLoop{Var: i}, got %#v", mod.Functions["main"].Body[1])
	}
}

func TestParseDoYieldUndo(t *testing.T) {
	src := "func main ()()\ndo\nlet x = 1\nyield\nprint x\nundo\nreturn ()\n"
	mod := parseSrc(t, src)
	do, ok := mod.Functions["main"].Body[0].(ast.DoYieldUndo)
	if !ok {
		t.Fatalf("expected a DoYieldUndo, got %T", mod.Functions["main"].Body[0])
	}
	if len(do.Do) != 1 {
		t.Errorf("expected one statement in the do block, got %d", len(do.Do))
	}
	if len(do.Yield) != 1 {
		t.Errorf("expected one statement in the yield block, got %d", len(do.Yield))
	}
}

func TestParseDoUndoWithNoYield(t *testing.T) {
	src := "func main ()()\ndo\nlet x = 1\nunlet x = 1\nundo\nreturn ()\n"
	mod := parseSrc(t, src)
	do, ok := mod.Functions["main"].Body[0].(ast.DoYieldUndo)
	if !ok {
		t.Fatalf("expected a DoYieldUndo, got %T", mod.Functions["main"].Body[0])
	}
	if len(do.Do) != 2 {
		t.Errorf("expected two statements in the do block, got %d", len(do.Do))
	}
	if do.Yield != nil {
		t.Errorf("expected a nil yield block for the no-yield do form, got %#v", do.Yield)
	}
}

func TestParseSwapWithIndexedOperands(t *testing.T) {
	src := "func main ()()\nlet a = [1, 2]\nlet b = [3, 4]\nlet i = 0\nlet j = 1\nswap a[i], b[j]\nreturn (a, b)\n"
	mod := parseSrc(t, src)
	sw, ok := mod.Functions["main"].Body[4].(ast.Swap)
	if !ok {
		t.Fatalf("expected a Swap, got %T", mod.Functions["main"].Body[4])
	}
	if len(sw.Left.Index) != 1 || len(sw.Right.Index) != 1 {
		t.Errorf("expected both swap operands to carry one index each, got left=%d right=%d", len(sw.Left.Index), len(sw.Right.Index))
	}
}

func TestParseTryCatch(t *testing.T) {
	src := "func main ()()\ntry v in [1, 2, 3]\ncatch (v = 2)\nyrt\nreturn ()\n"
	mod := parseSrc(t, src)
	tc, ok := mod.Functions["main"].Body[0].(ast.TryCatch)
	if !ok || tc.Var != "v" {
		t.Fatalf("expected TryCatch{Var: v}, got %#v", mod.Functions["main"].Body[0])
	}
}

func TestParseTryCatchRejectsMonoSource(t *testing.T) {
	src := "func main ()()\nlet .arr = [1, 2, 3]\ntry v in .arr\ncatch (v = 2)\nyrt\nunlet .arr = [1, 2, 3]\nreturn ()\n"
	if err := parseSrcErr(t, src); err == nil {
		t.Error("expected a parse error: try's candidate source cannot carry mono information")
	}
}

func TestParseCallAndUncall(t *testing.T) {
	src := "func f (a)(b)\nreturn (b)\nfunc main ()()\nlet a = 1\nlet b = 2\ncall f (b) @(a) => (c)\nuncall f (c) @(a) => (b)\nreturn ()\n"
	mod := parseSrc(t, src)
	call, ok := mod.Functions["main"].Body[2].(ast.CallStmt)
	if !ok || call.Uncall || call.FuncName != "f" {
		t.Fatalf("expected a forward CallStmt{f}, got %#v", mod.Functions["main"].Body[2])
	}
	if len(call.Borrowed) != 1 || call.Borrowed[0] != "a" {
		t.Errorf("borrowed = %v", call.Borrowed)
	}
	if len(call.In) != 1 || call.In[0] != "b" {
		t.Errorf("in = %v", call.In)
	}
	uncall, ok := mod.Functions["main"].Body[3].(ast.CallStmt)
	if !ok || !uncall.Uncall {
		t.Fatalf("expected an UncallStmt, got %#v", mod.Functions["main"].Body[3])
	}
}

func TestParseParallelCallThreadCount(t *testing.T) {
	src := "func f (a)(b)\nreturn (b)\nfunc main ()()\nlet a = 1\nlet b = [1, 2]\ncall[2] f (b) @(a) => (c)\nreturn ()\n"
	mod := parseSrc(t, src)
	call := mod.Functions["main"].Body[2].(ast.CallStmt)
	if call.NumThreads == nil {
		t.Fatal("expected a non-nil NumThreads expression")
	}
	lit, ok := call.NumThreads.(ast.NumberLiteral)
	if !ok || lit.Val.String() != "2" {
		t.Errorf("expected NumThreads literal 2, got %#v", call.NumThreads)
	}
}

func TestParseBarrierAndMutex(t *testing.T) {
	src := "func main ()()\nbarrier sync\nmutex lock\nlet x = 1\nxetum\nreturn ()\n"
	mod := parseSrc(t, src)
	if _, ok := mod.Functions["main"].Body[0].(ast.Barrier); !ok {
		t.Fatalf("expected a Barrier, got %T", mod.Functions["main"].Body[0])
	}
	mx, ok := mod.Functions["main"].Body[1].(ast.Mutex)
	if !ok || mx.Name != "lock" {
		t.Fatalf("expected Mutex{lock}, got %#v", mod.Functions["main"].Body[1])
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	mod := parseSrc(t, "func main ()()\nlet x = 2 + 3 * 4\nreturn (x)\n")
	let := mod.Functions["main"].Body[0].(ast.LetStmt)
	bin, ok := let.Value.(ast.BinaryExpr)
	if !ok || bin.Op != "+" {
		t.Fatalf("expected top-level + , got %#v", let.Value)
	}
	rhs, ok := bin.RHS.(ast.BinaryExpr)
	if !ok || rhs.Op != "*" {
		t.Fatalf("expected * nested under +, got %#v", bin.RHS)
	}
}

func TestParseArrayRangeWithStep(t *testing.T) {
	mod := parseSrc(t, "func main ()()\nlet x = [1 to 10 by 2]\nreturn (x)\n")
	let := mod.Functions["main"].Body[0].(ast.LetStmt)
	rng, ok := let.Value.(ast.ArrayRange)
	if !ok {
		t.Fatalf("expected an ArrayRange, got %#v", let.Value)
	}
	step, ok := rng.Step.(ast.NumberLiteral)
	if !ok || step.Val.String() != "2" {
		t.Errorf("expected step 2, got %#v", rng.Step)
	}
}

func TestParseRationalLiteral(t *testing.T) {
	mod := parseSrc(t, "func main ()()\nlet x = 3/5\nreturn (x)\n")
	let := mod.Functions["main"].Body[0].(ast.LetStmt)
	lit := let.Value.(ast.NumberLiteral)
	if lit.Val.String() != "3/5" {
		t.Errorf("got %q, want %q", lit.Val.String(), "3/5")
	}
}

func TestParseLengthExpression(t *testing.T) {
	mod := parseSrc(t, "func main ()()\nlet arr = [1, 2]\nlet n = #arr\nreturn (n)\n")
	let := mod.Functions["main"].Body[1].(ast.LetStmt)
	ln, ok := let.Value.(ast.Length)
	if !ok || ln.Lookup.Name != "arr" {
		t.Fatalf("expected Length{arr}, got %#v", let.Value)
	}
}

func TestParseTensorExpression(t *testing.T) {
	mod := parseSrc(t, "func main ()()\nlet t = tensor([2, 2], 0)\nreturn (t)\n")
	let := mod.Functions["main"].Body[0].(ast.LetStmt)
	if _, ok := let.Value.(ast.ArrayTensor); !ok {
		t.Fatalf("expected an ArrayTensor, got %#v", let.Value)
	}
}

func TestParseMonoIdentifier(t *testing.T) {
	mod := parseSrc(t, "func main ()()\nlet .x = 1\nreturn ()\n")
	let := mod.Functions["main"].Body[0].(ast.LetStmt)
	if !let.Mono {
		t.Error("expected .x to be parsed as mono")
	}
}

// Package interpreter implements Railway's execution engine (spec §4.6):
// a single recursive AST walker driven by a boolean `backwards` flag,
// rather than separate forward/backward code paths, so that running a
// program backwards is provably the inverse of running it forwards.
// Grounded in dispatch style on the teacher's pkg/interpreter/
// interpreter.go (a type-switch per AST variant) and in concurrency style
// on its executor.go (context.Context plus sync for lane cancellation).
package interpreter

import (
	"context"
	"fmt"
	"io"

	"railway/pkg/ast"
	"railway/pkg/config"
	"railway/pkg/railerr"
	"railway/pkg/runtime"
	"railway/pkg/value"
)

// Interpreter owns one Module's function table and the program's single
// output sink; it is safe to reuse across Run calls against the same
// module but not shared across concurrently-running programs.
type Interpreter struct {
	Module  *ast.Module
	Globals *runtime.Globals
	Out     io.Writer
	Config  *config.Config
}

// New returns an Interpreter ready to run mod, writing print output to out,
// using cfg's run options (or config.Default() if cfg is nil).
func New(mod *ast.Module, out io.Writer, cfg *config.Config) *Interpreter {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Interpreter{Module: mod, Globals: runtime.NewGlobals(), Out: out, Config: cfg}
}

// ctx carries everything a statement or expression handler needs beyond
// the AST node itself: which scope it runs in, which direction, and
// (inside a parallel call) which lane. Threading this explicitly, rather
// than stashing direction on the Scope, keeps Scope a pure name table.
type ctx struct {
	scope     *runtime.Scope
	backwards bool
	lane      *lane // nil outside a parallel call
	cancel    context.Context
}

func (c ctx) stack() []string { return c.scope.Stack() }

// Run executes the module's top-level statements to populate Globals,
// then calls `main` with no arguments (spec §6's entry point rule). When
// Config.VerifyRoundtrip is set, it immediately uncalls main and checks
// every global landed back where the forward run found it (invariant P1).
func (in *Interpreter) Run() error {
	root := runtime.NewScope("<module>", in.Globals, nil)
	rootCtx := ctx{scope: root, backwards: false, cancel: context.Background()}
	if err := in.execStatements(rootCtx, in.Module.Globals); err != nil {
		return err
	}
	// `global` declarations populate the process-wide table once, before
	// main ever runs (spec §3); they execute against root's locals like
	// any other let, then move into Globals here rather than staying
	// bound in a scope no one else can see.
	for _, name := range root.SnapshotNames() {
		if err := root.PromoteToGlobal(name, name); err != nil {
			return err
		}
	}
	var before map[string]value.Value
	if in.Config.VerifyRoundtrip {
		before = in.Globals.Snapshot()
	}
	if _, err := in.callFunction("main", nil, nil, false, root, context.Background()); err != nil {
		return err
	}
	if !in.Config.VerifyRoundtrip {
		return nil
	}
	if _, err := in.callFunction("main", nil, nil, true, root, context.Background()); err != nil {
		return railerr.InformationLeakError(root.Stack(), "round-trip verification: uncall of main failed: %v", err)
	}
	after := in.Globals.Snapshot()
	for name, want := range before {
		got, ok := after[name]
		if !ok || !value.StructuralEqual(want, got) {
			return railerr.InformationLeakError(root.Stack(), "round-trip verification: global %q did not return to its pre-run value", name)
		}
	}
	return nil
}

// execStatements runs stmts in program order (or reverse, when
// backwards), skipping mono statements entirely when backwards (spec
// §4.6's traversal rule).
//
// When running forwards and a Catch statement fires somewhere within
// stmts (however deeply nested in If/Loop/etc. bodies), the nested call
// that produced the signal has already reversed its own partial work;
// this level reverses whatever of its own siblings ran before the
// signalling statement and re-raises the same signal, so that by the
// time it reaches the enclosing TryCatch every effect along the way has
// been undone.
func (in *Interpreter) execStatements(c ctx, stmts []ast.Statement) error {
	if c.cancel != nil {
		select {
		case <-c.cancel.Done():
			return nil
		default:
		}
	}
	n := len(stmts)
	for i := 0; i < n; i++ {
		idx := i
		if c.backwards {
			idx = n - 1 - i
		}
		st := stmts[idx]
		if c.backwards && st.IsMono() {
			continue
		}
		err := in.execStatement(c, st)
		if err == nil {
			continue
		}
		if isCatchSignal(err) && !c.backwards {
			if uerr := in.unwindExecuted(c, stmts, idx); uerr != nil {
				return uerr
			}
		}
		return err
	}
	return nil
}

// unwindExecuted reverses the forward-run statements preceding index
// stop (exclusive) in stmts. Mono statements are left alone: they have
// no backward effect by construction, so undoing them is not possible
// and not attempted.
func (in *Interpreter) unwindExecuted(c ctx, stmts []ast.Statement, stop int) error {
	rc := c
	rc.backwards = true
	for j := stop - 1; j >= 0; j-- {
		st := stmts[j]
		if st.IsMono() {
			continue
		}
		if err := in.execStatement(rc, st); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interpreter) execStatement(c ctx, st ast.Statement) error {
	switch s := st.(type) {
	case ast.Modification:
		return in.execModification(c, s)
	case ast.LetStmt:
		return in.execLet(c, s, false)
	case ast.UnletStmt:
		return in.execLet(c, ast.LetStmt{Name: s.Name, Mono: s.Mono, Value: s.Value}, true)
	case ast.Swap:
		return in.execSwap(c, s)
	case ast.Push:
		return in.execPush(c, s)
	case ast.Pop:
		return in.execPop(c, s)
	case ast.Promote:
		return in.execPromote(c, s)
	case ast.If:
		return in.execIf(c, s)
	case ast.Loop:
		return in.execLoop(c, s)
	case ast.ForLoop:
		return in.execForLoop(c, s)
	case ast.DoYieldUndo:
		return in.execDoYieldUndo(c, s)
	case ast.TryCatch:
		return in.execTryCatch(c, s)
	case ast.Catch:
		return in.execCatch(c, s)
	case ast.CallStmt:
		return in.execCall(c, s)
	case ast.Print:
		return in.execPrint(c, s)
	case ast.Barrier:
		return in.execBarrier(c, s)
	case ast.Mutex:
		return in.execMutex(c, s)
	default:
		return railerr.ParsingError("interpreter: unhandled statement %T", st)
	}
}

// ---------------------------- modification ----------------------------

func (in *Interpreter) execModification(c ctx, s ast.Modification) error {
	rhs, err := in.evalExpr(c, s.Value)
	if err != nil {
		return err
	}
	cell, err := c.scope.Resolve(s.Target.Name)
	if err != nil {
		return err
	}
	indices, err := in.evalIndices(c, s.Target.Index)
	if err != nil {
		return err
	}
	cur, err := cell.Get(indices, c.stack())
	if err != nil {
		return err
	}
	op := parseModOp(s.Op)
	if c.backwards {
		inv, ok := invModOp(op)
		if !ok {
			return railerr.ModificationError("modification operator %q has no inverse", s.Op)
		}
		op = inv
	}
	result, err := applyModOp(op, cur, rhs, c.stack())
	if err != nil {
		return err
	}
	return cell.Set(indices, result, c.stack())
}

// ---------------------------- let / unlet ----------------------------

// execLet implements spec §4.6's assignment rule; unlet is assignment
// with forward/backward swapped, so the caller passes unlet=true rather
// than there being a distinct handler.
func (in *Interpreter) execLet(c ctx, s ast.LetStmt, unlet bool) error {
	forward := c.backwards == unlet // XOR: doing the "create" half of the pair
	val, err := in.evalExpr(c, s.Value)
	if err != nil {
		return err
	}
	if forward {
		return c.scope.Bind(s.Name, value.NewCell(value.Clone(val), s.Mono))
	}
	cell, err := c.scope.Unbind(s.Name)
	if err != nil {
		return err
	}
	if !value.StructuralEqual(cell.Val, val) {
		return railerr.UnletError(c.stack(), "unlet value for %q does not match its current binding", s.Name)
	}
	return nil
}

// ---------------------------- swap ----------------------------

// execSwap exchanges the values at two lookups, honoring any index chains
// the way original_source's Swap node does (parsing.py's swap production,
// AST.py's Swap): each side is resolved to a cell and an index chain, and
// the values living at those index chains are exchanged, not the cells'
// entire contents. Swapping two indices of the same array (e.g. `swap
// a[i], a[j]`) reads both values before writing either back, so it works
// correctly even when the two index chains land on the same cell.
func (in *Interpreter) execSwap(c ctx, s ast.Swap) error {
	left, err := c.scope.Resolve(s.Left.Name)
	if err != nil {
		return err
	}
	right, err := c.scope.Resolve(s.Right.Name)
	if err != nil {
		return err
	}
	leftIdx, err := in.evalIndices(c, s.Left.Index)
	if err != nil {
		return err
	}
	rightIdx, err := in.evalIndices(c, s.Right.Index)
	if err != nil {
		return err
	}
	leftVal, err := left.Get(leftIdx, c.stack())
	if err != nil {
		return err
	}
	rightVal, err := right.Get(rightIdx, c.stack())
	if err != nil {
		return err
	}
	if err := left.Set(leftIdx, rightVal, c.stack()); err != nil {
		return err
	}
	return right.Set(rightIdx, leftVal, c.stack())
}

// ---------------------------- push / pop ----------------------------

func (in *Interpreter) execPush(c ctx, s ast.Push) error {
	if c.backwards {
		return in.popEval(c, s.Src, s.Dst)
	}
	return in.pushEval(c, s.Src, s.Dst)
}

func (in *Interpreter) execPop(c ctx, s ast.Pop) error {
	if c.backwards {
		return in.pushEval(c, s.Src, s.Dst)
	}
	return in.popEval(c, s.Src, s.Dst)
}

func (in *Interpreter) pushEval(c ctx, src, dst ast.Lookup) error {
	srcCell, err := c.scope.Unbind(src.Name)
	if err != nil {
		return err
	}
	dstCell, err := c.scope.Resolve(dst.Name)
	if err != nil {
		return err
	}
	arr, ok := dstCell.Val.(*value.Array)
	if !ok {
		return railerr.MemAccessError(c.stack(), "push target %q is not an array", dst.Name)
	}
	arr.Elements = append(arr.Elements, srcCell.Val)
	return nil
}

func (in *Interpreter) popEval(c ctx, src, dst ast.Lookup) error {
	dstCell, err := c.scope.Resolve(dst.Name)
	if err != nil {
		return err
	}
	arr, ok := dstCell.Val.(*value.Array)
	if !ok {
		return railerr.MemAccessError(c.stack(), "pop target %q is not an array", dst.Name)
	}
	if len(arr.Elements) == 0 {
		return railerr.MemAccessError(c.stack(), "pop from empty array %q", dst.Name)
	}
	last := arr.Elements[len(arr.Elements)-1]
	arr.Elements = arr.Elements[:len(arr.Elements)-1]
	return c.scope.Bind(src.Name, value.NewCell(last, src.Mono))
}

// ---------------------------- promote ----------------------------

func (in *Interpreter) execPromote(c ctx, s ast.Promote) error {
	if c.backwards {
		_, err := c.scope.Unbind(s.Name)
		return err
	}
	cell, err := c.scope.Unbind(s.Mono)
	if err != nil {
		return err
	}
	cell.Mono = false
	return c.scope.Bind(s.Name, cell)
}

// ---------------------------- print ----------------------------

func (in *Interpreter) execPrint(c ctx, s ast.Print) error {
	if c.backwards {
		return nil
	}
	v, err := in.evalExpr(c, s.Value)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(in.Out, value.Stringify(v))
	return err
}

// ---------------------------- indices ----------------------------

func (in *Interpreter) evalIndices(c ctx, exprs []ast.Expression) ([]int, error) {
	indices := make([]int, len(exprs))
	for i, e := range exprs {
		v, err := in.evalExpr(c, e)
		if err != nil {
			return nil, err
		}
		r, ok := v.(value.Rational)
		if !ok || !r.Rat.IsInt() {
			return nil, railerr.MemAccessError(c.stack(), "index expression did not evaluate to an integer")
		}
		indices[i] = int(r.Rat.Num().Int64())
	}
	return indices, nil
}

package interpreter

import (
	"railway/pkg/ast"
	"railway/pkg/railerr"
	"railway/pkg/runtime"
	"railway/pkg/value"
)

// ---------------------------- if ----------------------------

func (in *Interpreter) execIf(c ctx, s ast.If) error {
	exit := s.Exit
	if s.ExitSame {
		exit = s.Entry
	}
	pickExpr, checkExpr := s.Entry, exit
	if c.backwards {
		pickExpr, checkExpr = exit, s.Entry
	}
	pv, err := in.evalExpr(c, pickExpr)
	if err != nil {
		return err
	}
	took := value.Truthy(pv)
	branch := s.Else
	if took {
		branch = s.Then
	}
	if err := in.execStatements(c, branch); err != nil {
		return err
	}
	if s.IsMono() {
		return nil
	}
	cv, err := in.evalExpr(c, checkExpr)
	if err != nil {
		return err
	}
	if value.Truthy(cv) != took {
		return railerr.IfAssertError(c.stack(), "if's entry/exit conditions disagree on which branch ran")
	}
	return nil
}

// ---------------------------- loop ----------------------------

// execLoop loops while cond holds, asserting after every iteration (and
// once before the first) that assertion disagrees with it exactly the way
// a well-formed loop must: false on entry, true after each iteration that
// runs. The exit/pool condition never decides when to stop — it is a pure
// sanity check, grounded on original_source/interpreting.py's Loop.eval,
// which drives iteration entirely off the forward condition in both
// directions and uses the other condition only to assert. A mono loop
// skips the assertion in both directions, since its pool condition is not
// independently re-derivable (spec §4.6, §9).
func (in *Interpreter) execLoop(c ctx, s ast.Loop) error {
	cond, assertion := s.Entry, s.Exit
	if c.backwards {
		cond, assertion = s.Exit, s.Entry
	}
	if !s.IsMono() {
		av, err := in.evalExpr(c, assertion)
		if err != nil {
			return err
		}
		if value.Truthy(av) {
			return railerr.LoopAssertError(c.stack(), "loop's reverse condition is true before the loop starts")
		}
	}
	for {
		cv, err := in.evalExpr(c, cond)
		if err != nil {
			return err
		}
		if !value.Truthy(cv) {
			return nil
		}
		if err := in.execStatements(c, s.Body); err != nil {
			return err
		}
		if !s.IsMono() {
			av, err := in.evalExpr(c, assertion)
			if err != nil {
				return err
			}
			if !value.Truthy(av) {
				return railerr.LoopAssertError(c.stack(), "forward loop condition holds when reverse condition does not")
			}
		}
	}
}

// ---------------------------- for ----------------------------

func (in *Interpreter) execForLoop(c ctx, s ast.ForLoop) error {
	v, err := in.evalExpr(c, s.Iterable)
	if err != nil {
		return err
	}
	arr, ok := v.(*value.Array)
	if !ok {
		return railerr.MemAccessError(c.stack(), "for's iterable did not evaluate to an array")
	}
	n := len(arr.Elements)
	for i := 0; i < n; i++ {
		idx := i
		if c.backwards {
			idx = n - 1 - i
		}
		elem := value.Clone(arr.Elements[idx])
		if err := c.scope.Bind(s.Var, value.NewCell(elem, false)); err != nil {
			return err
		}
		if err := in.execStatements(c, s.Body); err != nil {
			// the body's own partial effects are already unwound by
			// execStatements; this iteration's loop-variable binding is
			// ours to clean up before the signal propagates further.
			c.scope.Unbind(s.Var)
			return err
		}
		if _, err := c.scope.Unbind(s.Var); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------- do / yield / undo ----------------------------

// execDoYieldUndo always runs Do forwards, then runs backwards — this
// holds regardless of the enclosing direction, which is exactly what
// makes the construct self-inverse (spec §4.6). Yield, when present,
// runs once in between in the enclosing direction (forwards if the
// construct itself is running forwards, backwards if c.backwards),
// grounded on original_source/interpreting.py's DoUndo.eval: do_lines
// always run with backwards=False, yield_lines run with whatever
// direction was passed in, then do_lines run again with backwards=True.
func (in *Interpreter) execDoYieldUndo(c ctx, s ast.DoYieldUndo) error {
	forwardCtx := c
	forwardCtx.backwards = false
	if err := in.execStatements(forwardCtx, s.Do); err != nil {
		return err
	}
	if err := in.execStatements(c, s.Yield); err != nil {
		return err
	}
	backwardCtx := c
	backwardCtx.backwards = true
	return in.execStatements(backwardCtx, s.Do)
}

// ---------------------------- try / catch ----------------------------

// catchSignal unwinds a TryCatch body when a Catch statement's condition
// is truthy, however deeply it is nested inside the body's control
// structures; it is not a real error, only a control-flow signal,
// mirroring the teacher's break/continue/return Go-error signals.
type catchSignal struct{}

func (*catchSignal) Error() string { return "catch signal (not a real error)" }

func isCatchSignal(err error) bool {
	_, ok := err.(*catchSignal)
	return ok
}

// execCatch is inert when running backwards: unwinding never needs to
// re-trigger an unwind. Forwards, a truthy condition raises the signal
// that execStatements propagates up to the enclosing TryCatch.
func (in *Interpreter) execCatch(c ctx, s ast.Catch) error {
	if c.backwards {
		return nil
	}
	v, err := in.evalExpr(c, s.Cond)
	if err != nil {
		return err
	}
	if value.Truthy(v) {
		return &catchSignal{}
	}
	return nil
}

func (in *Interpreter) execTryCatch(c ctx, s ast.TryCatch) error {
	if c.backwards {
		return in.tryCatchBackward(c, s)
	}
	v, err := in.evalExpr(c, s.Source)
	if err != nil {
		return err
	}
	arr, ok := v.(*value.Array)
	if !ok {
		return railerr.MemAccessError(c.stack(), "try's candidate source did not evaluate to an array")
	}
	for _, candidate := range arr.Elements {
		cell := value.NewCell(value.Clone(candidate), false)
		if err := c.scope.Bind(s.Var, cell); err != nil {
			return err
		}
		// execStatements has already fully reversed the body's partial
		// effects by the time a catch signal reaches us.
		err := in.execStatements(c, s.Body)
		if err == nil {
			return nil // pass: iterator variable stays bound
		}
		if !isCatchSignal(err) {
			return err
		}
		if _, err := c.scope.Unbind(s.Var); err != nil {
			return err
		}
	}
	return railerr.ExhaustedTryError(c.stack(), "try exhausted its candidates in %q without a pass", s.Var)
}

// tryCatchBackward runs the body backwards once against the currently
// bound iterator value, then verifies that value is genuinely the one
// that clears the body — not merely a member of the candidate array — by
// replaying the body forward in an isolated scratch scope (spec §4.6's
// invertibility defence check).
func (in *Interpreter) tryCatchBackward(c ctx, s ast.TryCatch) error {
	cell, err := c.scope.Resolve(s.Var)
	if err != nil {
		return err
	}
	bound := value.Clone(cell.Val)
	if err := in.execStatements(reverseOf(c), s.Body); err != nil {
		return err
	}
	v, err := in.evalExpr(c, s.Source)
	if err != nil {
		return err
	}
	arr, ok := v.(*value.Array)
	if !ok {
		return railerr.MemAccessError(c.stack(), "try's candidate source did not evaluate to an array")
	}
	found := false
	for _, candidate := range arr.Elements {
		if value.StructuralEqual(candidate, bound) {
			found = true
			break
		}
	}
	if !found {
		return railerr.ExhaustedTryError(c.stack(), "try's recorded pass value for %q is not among its candidates", s.Var)
	}
	if err := in.verifyTryPasses(c, s, bound); err != nil {
		return err
	}
	_, err = c.scope.Unbind(s.Var)
	return err
}

// verifyTryPasses replays Body forward, with Var bound to bound, against a
// scratch scope seeded from a deep copy of every other name currently
// visible in c.scope — so the replay cannot mutate real state — and
// reports a failure if a Catch statement fires, meaning bound is not
// actually the element that would have passed the body forward.
func (in *Interpreter) verifyTryPasses(c ctx, s ast.TryCatch, bound value.Value) error {
	scratch := runtime.NewScope(c.scope.Name+" (try replay)", in.Globals, nil)
	for _, name := range c.scope.SnapshotNames() {
		if name == s.Var {
			continue
		}
		cell, err := c.scope.Resolve(name)
		if err != nil {
			return err
		}
		if err := scratch.Bind(name, value.NewCell(value.Clone(cell.Val), cell.Mono)); err != nil {
			return err
		}
	}
	if err := scratch.Bind(s.Var, value.NewCell(value.Clone(bound), false)); err != nil {
		return err
	}
	replayCtx := ctx{scope: scratch, backwards: false, lane: c.lane, cancel: c.cancel}
	err := in.execStatements(replayCtx, s.Body)
	if err == nil {
		return nil
	}
	if isCatchSignal(err) {
		return railerr.ExhaustedTryError(c.stack(), "try's recorded pass value for %q does not actually pass the body when replayed forward", s.Var)
	}
	return err
}

func reverseOf(c ctx) ctx {
	c2 := c
	c2.backwards = !c.backwards
	return c2
}

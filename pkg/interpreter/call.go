// Call/uncall execution (spec §4.7): the hardest per-statement design in
// the engine. A forward call moves stolen arguments into a fresh callee
// scope, runs the body, and moves the declared outputs back; a backward
// call reconstructs that exactly by running the same machinery with the
// input/output roles swapped. undoreturn functions additionally run
// their own body forwards then backwards within a single forward call,
// so their stolen inputs are never actually consumed by the caller.
package interpreter

import (
	"context"

	"railway/pkg/ast"
	"railway/pkg/railerr"
	"railway/pkg/runtime"
	"railway/pkg/value"
)

func (in *Interpreter) execCall(c ctx, s ast.CallStmt) error {
	fn, ok := in.Module.Functions[s.FuncName]
	if !ok {
		return railerr.ExistsError(c.stack(), "undefined function %q", s.FuncName)
	}
	if s.NumThreads != nil {
		return in.execParallelCall(c, s, fn)
	}
	effectiveBackwards := c.backwards != s.Uncall
	if fn.Undoreturn {
		if !effectiveBackwards {
			return in.invokeUndoreturnForward(c, fn, s.Borrowed, s.In, s.Out)
		}
		return in.invokeUndoreturnBackward(c, s.Out)
	}
	return in.invokePlain(c, fn, s.Borrowed, s.In, s.Out, effectiveBackwards)
}

// callFunction is used only for the top-level `call main`, which has no
// borrowed/stolen/returned arguments at all.
func (in *Interpreter) callFunction(name string, _, _ []string, backwards bool, caller *runtime.Scope, cancel context.Context) ([]*value.Cell, error) {
	fn, ok := in.Module.Functions[name]
	if !ok {
		return nil, railerr.ExistsError(caller.Stack(), "undefined function %q", name)
	}
	c := ctx{scope: caller, backwards: backwards, cancel: cancel}
	if fn.Undoreturn {
		return nil, in.invokeUndoreturnForward(c, fn, nil, nil, nil)
	}
	return nil, in.invokePlain(c, fn, nil, nil, nil, backwards)
}

// invokePlain implements an ordinary return function's call (backwards
// false) and its exact reconstruction as an uncall (backwards true),
// spec §4.7's "forward call" and "backward execution of a plain call".
func (in *Interpreter) invokePlain(c ctx, fn *ast.Function, callerBorrowed, callerIn, callerOut []string, backwards bool) error {
	startParams, endParams := fn.In, fn.Out
	startCaller, endCaller := callerIn, callerOut
	if backwards {
		startParams, endParams = fn.Out, fn.In
		startCaller, endCaller = callerOut, callerIn
	}
	if err := checkArity(c.stack(), fn.Name, len(fn.Borrowed), len(callerBorrowed)); err != nil {
		return err
	}
	if err := checkArity(c.stack(), fn.Name, len(startParams), len(startCaller)); err != nil {
		return err
	}

	callee := runtime.NewScope(fn.Name, in.Globals, c.scope)
	if err := bindShared(c.scope, callee, fn.Borrowed, callerBorrowed); err != nil {
		return err
	}
	if err := moveIn(c.scope, callee, startParams, startCaller); err != nil {
		return err
	}

	bodyCtx := ctx{scope: callee, backwards: backwards, lane: c.lane, cancel: c.cancel}
	if err := in.execStatements(bodyCtx, fn.Body); err != nil {
		return err
	}
	if err := leakCheck(callee, fn.Borrowed, endParams, c.stack()); err != nil {
		return err
	}
	return moveOut(callee, c.scope, endParams, endCaller)
}

// invokeUndoreturnForward runs fn's body forwards, snapshots its
// declared outputs as owned copies, then runs the body backwards so the
// function's stolen inputs are restored rather than consumed — the
// caller ends the call owning both its original inputs and the new
// output copies (spec §4.7).
func (in *Interpreter) invokeUndoreturnForward(c ctx, fn *ast.Function, callerBorrowed, callerIn, callerOut []string) error {
	if err := checkArity(c.stack(), fn.Name, len(fn.Borrowed), len(callerBorrowed)); err != nil {
		return err
	}
	if err := checkArity(c.stack(), fn.Name, len(fn.In), len(callerIn)); err != nil {
		return err
	}
	if err := checkArity(c.stack(), fn.Name, len(fn.Out), len(callerOut)); err != nil {
		return err
	}

	callee := runtime.NewScope(fn.Name, in.Globals, c.scope)
	if err := bindShared(c.scope, callee, fn.Borrowed, callerBorrowed); err != nil {
		return err
	}
	if err := moveIn(c.scope, callee, fn.In, callerIn); err != nil {
		return err
	}

	fwd := ctx{scope: callee, backwards: false, lane: c.lane, cancel: c.cancel}
	if err := in.execStatements(fwd, fn.Body); err != nil {
		return err
	}
	if err := leakCheck(callee, fn.Borrowed, fn.Out, c.stack()); err != nil {
		return err
	}

	outCopies := make([]*value.Cell, len(fn.Out))
	for i, name := range fn.Out {
		cell, err := callee.Resolve(name)
		if err != nil {
			return err
		}
		outCopies[i] = cell.Copy()
	}

	bwd := ctx{scope: callee, backwards: true, lane: c.lane, cancel: c.cancel}
	if err := in.execStatements(bwd, fn.Body); err != nil {
		return err
	}
	if err := leakCheck(callee, fn.Borrowed, fn.In, c.stack()); err != nil {
		return err
	}
	if err := moveOut(callee, c.scope, fn.In, callerIn); err != nil {
		return err
	}
	for i, name := range callerOut {
		if err := c.scope.Bind(name, outCopies[i]); err != nil {
			return err
		}
	}
	return nil
}

// invokeUndoreturnBackward is an uncall of an undoreturn function: since
// the forward call never consumed the caller's inputs, reversing it is
// exactly destroying the output copies it handed back (spec §4.7).
func (in *Interpreter) invokeUndoreturnBackward(c ctx, callerOut []string) error {
	for _, name := range callerOut {
		if _, err := c.scope.Unbind(name); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------- shared helpers ----------------------------

func checkArity(stack []string, fnName string, want, got int) error {
	if want != got {
		return railerr.CallError(stack, "call to %q passed %d argument(s) where %d were expected", fnName, got, want)
	}
	return nil
}

// bindShared binds each borrowed parameter to the caller's existing
// cell, unmoved: the callee may read and (if the caller permits mutation
// through it) write the same storage the caller sees.
func bindShared(caller, callee *runtime.Scope, paramNames, callerNames []string) error {
	for i, pn := range paramNames {
		cell, err := caller.Resolve(callerNames[i])
		if err != nil {
			return err
		}
		if err := callee.Bind(pn, cell); err != nil {
			return err
		}
	}
	return nil
}

// moveIn transfers ownership of each named cell from caller to callee.
func moveIn(caller, callee *runtime.Scope, paramNames, callerNames []string) error {
	for i, pn := range paramNames {
		cell, err := caller.Unbind(callerNames[i])
		if err != nil {
			return err
		}
		if err := callee.Bind(pn, cell); err != nil {
			return err
		}
	}
	return nil
}

// moveOut is moveIn with the scopes swapped: it transfers ownership of
// the callee's declared parameters back to the caller.
func moveOut(callee, caller *runtime.Scope, paramNames, callerNames []string) error {
	for i, pn := range paramNames {
		cell, err := callee.Unbind(pn)
		if err != nil {
			return err
		}
		if err := caller.Bind(callerNames[i], cell); err != nil {
			return err
		}
	}
	return nil
}

// leakCheck implements spec §4.7 step 4 / P3: every binding remaining in
// scope after a call's body has run must be a borrowed or a returned
// name, or the call leaked information.
func leakCheck(scope *runtime.Scope, borrowed, returned []string, stack []string) error {
	allowed := make(map[string]bool, len(borrowed)+len(returned))
	for _, n := range borrowed {
		allowed[n] = true
	}
	for _, n := range returned {
		allowed[n] = true
	}
	for _, n := range scope.SnapshotNames() {
		if !allowed[n] {
			return railerr.InformationLeakError(stack, "function %q leaked binding %q on return", scope.Name, n)
		}
	}
	return nil
}

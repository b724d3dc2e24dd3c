// Parallel call, barrier and mutex (spec §4.8). Lanes are real goroutines,
// following the teacher's executor.go pattern of context.Context for
// cancellation plus sync primitives for coordination, rather than a
// hand-rolled scheduler.
package interpreter

import (
	"context"
	"sync"

	"railway/pkg/ast"
	"railway/pkg/railerr"
	"railway/pkg/runtime"
	"railway/pkg/value"
)

// lane identifies one goroutine spawned by a parallel call: its thread
// ID, the lane count, and the shared barrier/mutex registry for that
// call's duration.
type lane struct {
	tid int
	n   int
	pc  *parallelCtx
}

// parallelCtx holds the named barriers and mutexes visible to every lane
// of one parallel call. Names are created lazily on first reference so
// lanes need not pre-register them.
type parallelCtx struct {
	mu       sync.Mutex
	barriers map[string]*barrierState
	mutexes  map[string]*mutexState
}

func newParallelCtx() *parallelCtx {
	return &parallelCtx{barriers: make(map[string]*barrierState), mutexes: make(map[string]*mutexState)}
}

func (pc *parallelCtx) barrier(name string) *barrierState {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	b, ok := pc.barriers[name]
	if !ok {
		b = &barrierState{}
		b.cond = sync.NewCond(&b.mu)
		pc.barriers[name] = b
	}
	return b
}

func (pc *parallelCtx) mutex(name string) *mutexState {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	m, ok := pc.mutexes[name]
	if !ok {
		m = &mutexState{}
		m.cond = sync.NewCond(&m.mu)
		pc.mutexes[name] = m
	}
	return m
}

// barrierState is a cyclic barrier: every lane in the parallel context
// must call wait before any of them is released, and it may be reused
// (e.g. by a loop inside the lane body) since the arrival count resets and
// the generation counter advances after each full rendezvous.
type barrierState struct {
	mu    sync.Mutex
	cond  *sync.Cond
	count int
	gen   int
}

func (b *barrierState) wait(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	gen := b.gen
	b.count++
	if b.count == n {
		b.count = 0
		b.gen++
		b.cond.Broadcast()
		return
	}
	for b.gen == gen {
		b.cond.Wait()
	}
}

// mutexState enforces spec §4.8's directional critical section: the
// first lane to enter after the mutex is unlatched fixes the direction
// (ascending TID for forward, descending for backward) for the whole
// batch; a lane entering against that direction poisons the mutex for
// every lane still waiting on it.
type mutexState struct {
	mu       sync.Mutex
	cond     *sync.Cond
	hasLatch bool
	backward bool
	next     int
	passed   int
	errored  bool
}

func (m *mutexState) enter(tid int, backwards bool, n int, stack []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasLatch {
		m.hasLatch = true
		m.backward = backwards
		m.next = 0
		m.passed = 0
	} else if m.backward != backwards {
		m.errored = true
		m.cond.Broadcast()
		return railerr.MutexDirectionError(stack, "mutex entered from conflicting directions")
	}
	for {
		if m.errored {
			return railerr.MutexDirectionError(stack, "mutex entered from conflicting directions")
		}
		expected := m.next
		if m.backward {
			expected = n - 1 - m.next
		}
		if tid == expected {
			return nil
		}
		m.cond.Wait()
	}
}

func (m *mutexState) exit(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.passed++
	if m.passed >= n {
		m.hasLatch = false
		m.next = 0
		m.passed = 0
	}
	m.cond.Broadcast()
}

func (in *Interpreter) execBarrier(c ctx, s ast.Barrier) error {
	if c.lane == nil {
		return railerr.MemAccessError(c.stack(), "barrier %q used outside a parallel call", s.Name)
	}
	c.lane.pc.barrier(s.Name).wait(c.lane.n)
	return nil
}

func (in *Interpreter) execMutex(c ctx, s ast.Mutex) error {
	if c.lane == nil {
		// A sequential context has exactly one lane; the directional
		// ordering guarantee is vacuous, so the mutex is just its body.
		return in.execStatements(c, s.Body)
	}
	m := c.lane.pc.mutex(s.Name)
	if err := m.enter(c.lane.tid, c.backwards, c.lane.n, c.stack()); err != nil {
		return err
	}
	err := in.execStatements(c, s.Body)
	m.exit(c.lane.n)
	return err
}

// execParallelCall implements spec §4.8: spawn NumThreads lanes, each a
// fresh callee scope sharing borrowed cells and owning one of N equal
// contiguous slices of every stolen-argument array; each returned array is
// rebuilt for the caller by concatenating the lanes' results in TID order,
// which is exactly the inverse of the slicing.
func (in *Interpreter) execParallelCall(c ctx, s ast.CallStmt, fn *ast.Function) error {
	if fn.Undoreturn {
		return railerr.ModificationError("parallel call of undoreturn function %q is not supported", fn.Name)
	}
	nv, err := in.evalExpr(c, s.NumThreads)
	if err != nil {
		return err
	}
	nr, ok := nv.(value.Rational)
	if !ok || !nr.Rat.IsInt() {
		return railerr.MemAccessError(c.stack(), "parallel call thread count must be an integer")
	}
	n := int(nr.Rat.Num().Int64())
	if n <= 0 {
		return railerr.MemAccessError(c.stack(), "parallel call thread count must be positive")
	}

	effectiveBackwards := c.backwards != s.Uncall
	startParams, endParams := fn.In, fn.Out
	startCaller, endCaller := s.In, s.Out
	if effectiveBackwards {
		startParams, endParams = fn.Out, fn.In
		startCaller, endCaller = s.Out, s.In
	}
	if err := checkArity(c.stack(), fn.Name, len(fn.Borrowed), len(s.Borrowed)); err != nil {
		return err
	}
	if err := checkArity(c.stack(), fn.Name, len(startParams), len(startCaller)); err != nil {
		return err
	}
	if err := checkArity(c.stack(), fn.Name, len(endParams), len(endCaller)); err != nil {
		return err
	}

	laneSlices := make([][]*value.Cell, n)
	for j := range laneSlices {
		laneSlices[j] = make([]*value.Cell, len(startCaller))
	}
	for argIdx, callerName := range startCaller {
		cell, err := c.scope.Unbind(callerName)
		if err != nil {
			return err
		}
		arr, ok := cell.Val.(*value.Array)
		if !ok {
			return railerr.MemAccessError(c.stack(), "parallel call argument %q is not an array", callerName)
		}
		if len(arr.Elements) == 0 || len(arr.Elements)%n != 0 {
			return railerr.MemAccessError(c.stack(), "parallel call argument %q's length is not divisible by the lane count", callerName)
		}
		k := len(arr.Elements) / n
		for j := 0; j < n; j++ {
			sub := &value.Array{Elements: append([]value.Value{}, arr.Elements[j*k:(j+1)*k]...)}
			laneSlices[j][argIdx] = value.NewCell(sub, false)
		}
	}

	borrowedCells := make([]*value.Cell, len(s.Borrowed))
	for i, name := range s.Borrowed {
		cell, err := c.scope.Resolve(name)
		if err != nil {
			return err
		}
		borrowedCells[i] = cell
	}

	pc := newParallelCtx()
	laneCancelCtx, cancel := context.WithCancel(background(c.cancel))
	defer cancel()

	var wg sync.WaitGroup
	errs := make([]error, n)
	endCells := make([][]*value.Cell, n)
	for j := 0; j < n; j++ {
		wg.Add(1)
		go func(j int) {
			defer wg.Done()
			callee := runtime.NewScope(fn.Name, in.Globals, c.scope)
			for i, pn := range fn.Borrowed {
				if err := callee.Bind(pn, borrowedCells[i]); err != nil {
					errs[j] = err
					cancel()
					return
				}
			}
			for i, pn := range startParams {
				if err := callee.Bind(pn, laneSlices[j][i]); err != nil {
					errs[j] = err
					cancel()
					return
				}
			}
			laneCtx := ctx{
				scope:     callee,
				backwards: effectiveBackwards,
				lane:      &lane{tid: j, n: n, pc: pc},
				cancel:    laneCancelCtx,
			}
			if err := in.execStatements(laneCtx, fn.Body); err != nil {
				errs[j] = err
				cancel()
				return
			}
			if err := leakCheck(callee, fn.Borrowed, endParams, c.stack()); err != nil {
				errs[j] = err
				cancel()
				return
			}
			ends := make([]*value.Cell, len(endParams))
			for i, pn := range endParams {
				cell, err := callee.Unbind(pn)
				if err != nil {
					errs[j] = err
					cancel()
					return
				}
				ends[i] = cell
			}
			endCells[j] = ends
		}(j)
	}
	wg.Wait()

	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	for outIdx, callerName := range endCaller {
		var elems []value.Value
		for j := 0; j < n; j++ {
			part, ok := endCells[j][outIdx].Val.(*value.Array)
			if !ok {
				return railerr.MemAccessError(c.stack(), "parallel call result %q is not an array in lane %d", callerName, j)
			}
			elems = append(elems, part.Elements...)
		}
		if err := c.scope.Bind(callerName, value.NewCell(&value.Array{Elements: elems}, false)); err != nil {
			return err
		}
	}
	return nil
}

func background(c context.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	return c
}

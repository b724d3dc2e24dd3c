// Package runtime implements Railway's Scope: a flat mapping from name to
// variable cell (spec §4.5), grounded on the teacher's
// pkg/runtime/environment.go but deliberately non-hierarchical — Railway
// has exactly two lookup tiers (the current function's locals, and one
// shared global table), never nested block scopes.
package runtime

import (
	"sort"

	"railway/pkg/railerr"
	"railway/pkg/value"
)

// Globals is the single shared global table, populated once when a
// Module's top-level statements run.
type Globals struct {
	cells map[string]*value.Cell
}

func NewGlobals() *Globals {
	return &Globals{cells: make(map[string]*value.Cell)}
}

func (g *Globals) bind(name string, c *value.Cell) {
	g.cells[name] = c
}

func (g *Globals) lookup(name string) (*value.Cell, bool) {
	c, ok := g.cells[name]
	return c, ok
}

// Snapshot returns a deep copy of every global's current value, used by
// the interpreter's round-trip verification to compare pre- and post-run
// state without aliasing the live cells.
func (g *Globals) Snapshot() map[string]value.Value {
	out := make(map[string]value.Value, len(g.cells))
	for name, c := range g.cells {
		out[name] = value.Clone(c.Val)
	}
	return out
}

// Scope is one function activation's local name table (spec §4.5). Name is
// the enclosing function's name, used to build the diagnostic call stack
// original_source/interpreting.py attaches to every RailwayException.
type Scope struct {
	Name    string
	locals  map[string]*value.Cell
	globals *Globals
	caller  *Scope // enclosing call, for the diagnostic stack only
}

// NewScope creates an activation record for a call to fn, chained to
// caller purely for Stack() reporting — name resolution never walks it.
func NewScope(fn string, globals *Globals, caller *Scope) *Scope {
	return &Scope{Name: fn, locals: make(map[string]*value.Cell), globals: globals, caller: caller}
}

// Stack renders the enclosing-scope chain, innermost first, for error
// messages (mirrors RailwayException.__init__'s walk over scope.parent).
func (s *Scope) Stack() []string {
	var out []string
	for cur := s; cur != nil; cur = cur.caller {
		out = append(out, cur.Name)
	}
	return out
}

// Bind introduces name, failing with exists-error if already bound
// locally (spec §4.5: "no shadowing inside a scope").
func (s *Scope) Bind(name string, c *value.Cell) error {
	if _, ok := s.locals[name]; ok {
		return railerr.ExistsError(s.Stack(), "variable %q already bound in this scope", name)
	}
	s.locals[name] = c
	return nil
}

// Resolve looks up name locally, then in the global table, raising
// exists-error if neither holds it (spec §4.5's resolve operation).
func (s *Scope) Resolve(name string) (*value.Cell, error) {
	if c, ok := s.locals[name]; ok {
		return c, nil
	}
	if c, ok := s.globals.lookup(name); ok {
		return c, nil
	}
	return nil, railerr.ExistsError(s.Stack(), "undefined variable %q", name)
}

// Unbind removes a local binding, failing if name is not locally bound.
func (s *Scope) Unbind(name string) (*value.Cell, error) {
	c, ok := s.locals[name]
	if !ok {
		return nil, railerr.ExistsError(s.Stack(), "cannot unbind undefined variable %q", name)
	}
	delete(s.locals, name)
	return c, nil
}

// SnapshotNames returns the sorted set of currently-locally-bound names,
// used by the leak check on function return (spec §4.5, §4.7 step 4).
func (s *Scope) SnapshotNames() []string {
	names := make([]string, 0, len(s.locals))
	for n := range s.locals {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PromoteToGlobal moves a local binding into the shared global table under
// globalName, used once at start of day to populate Globals from the
// top-level `global` declarations (spec §3). Distinct from the `promote`
// statement, which rebinds within a single local scope (see execPromote).
func (s *Scope) PromoteToGlobal(localName, globalName string) error {
	c, err := s.Unbind(localName)
	if err != nil {
		return err
	}
	s.globals.bind(globalName, c)
	return nil
}

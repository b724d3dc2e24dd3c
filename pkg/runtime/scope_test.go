package runtime

import (
	"testing"

	"railway/pkg/value"
)

func TestBindAndResolve(t *testing.T) {
	g := NewGlobals()
	s := NewScope("f", g, nil)
	c := value.NewCell(value.NewRationalInt(1), false)
	if err := s.Bind("x", c); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	got, err := s.Resolve("x")
	if err != nil || got != c {
		t.Fatalf("Resolve(x) = %v, %v", got, err)
	}
}

func TestBindDuplicateFails(t *testing.T) {
	g := NewGlobals()
	s := NewScope("f", g, nil)
	c := value.NewCell(value.NewRationalInt(1), false)
	if err := s.Bind("x", c); err != nil {
		t.Fatalf("first Bind: %v", err)
	}
	if err := s.Bind("x", c); err == nil {
		t.Error("expected an error re-binding an already-bound name")
	}
}

func TestResolveUndefinedFails(t *testing.T) {
	g := NewGlobals()
	s := NewScope("f", g, nil)
	if _, err := s.Resolve("nope"); err == nil {
		t.Error("expected an error resolving an undefined name")
	}
}

func TestResolveFallsThroughToGlobals(t *testing.T) {
	g := NewGlobals()
	root := NewScope("<module>", g, nil)
	c := value.NewCell(value.NewRationalInt(42), false)
	if err := root.Bind("g", c); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := root.PromoteToGlobal("g", "g"); err != nil {
		t.Fatalf("PromoteToGlobal: %v", err)
	}
	callee := NewScope("main", g, root)
	got, err := callee.Resolve("g")
	if err != nil || got != c {
		t.Fatalf("Resolve(g) from callee = %v, %v", got, err)
	}
}

func TestResolveDoesNotWalkCallerLocals(t *testing.T) {
	g := NewGlobals()
	root := NewScope("<module>", g, nil)
	if err := root.Bind("x", value.NewCell(value.NewRationalInt(1), false)); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	callee := NewScope("main", g, root)
	if _, err := callee.Resolve("x"); err == nil {
		t.Error("a callee scope must not see caller locals that were never promoted to globals")
	}
}

func TestUnbindRemovesBinding(t *testing.T) {
	g := NewGlobals()
	s := NewScope("f", g, nil)
	c := value.NewCell(value.NewRationalInt(1), false)
	if err := s.Bind("x", c); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	got, err := s.Unbind("x")
	if err != nil || got != c {
		t.Fatalf("Unbind(x) = %v, %v", got, err)
	}
	if _, err := s.Resolve("x"); err == nil {
		t.Error("x should no longer resolve after Unbind")
	}
}

func TestUnbindUndefinedFails(t *testing.T) {
	g := NewGlobals()
	s := NewScope("f", g, nil)
	if _, err := s.Unbind("nope"); err == nil {
		t.Error("expected an error unbinding an undefined name")
	}
}

func TestPromoteToGlobalMovesLocalIntoGlobals(t *testing.T) {
	g := NewGlobals()
	s := NewScope("<module>", g, nil)
	if err := s.Bind("x", value.NewCell(value.NewRationalInt(1), false)); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := s.PromoteToGlobal("x", "x"); err != nil {
		t.Fatalf("PromoteToGlobal: %v", err)
	}
	if _, ok := g.lookup("x"); !ok {
		t.Fatal("x should be in globals after promote")
	}
	if _, err := s.Resolve("x"); err != nil {
		t.Fatalf("x should still resolve via the global fallthrough: %v", err)
	}
}

func TestSnapshotNamesSorted(t *testing.T) {
	g := NewGlobals()
	s := NewScope("f", g, nil)
	for _, n := range []string{"z", "a", "m"} {
		if err := s.Bind(n, value.NewCell(value.NewRationalInt(0), false)); err != nil {
			t.Fatalf("Bind(%s): %v", n, err)
		}
	}
	got := s.SnapshotNames()
	want := []string{"a", "m", "z"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SnapshotNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStackWalksCallerChain(t *testing.T) {
	g := NewGlobals()
	root := NewScope("<module>", g, nil)
	callee := NewScope("main", g, root)
	stack := callee.Stack()
	want := []string{"main", "<module>"}
	if len(stack) != len(want) {
		t.Fatalf("got %v, want %v", stack, want)
	}
	for i := range want {
		if stack[i] != want[i] {
			t.Errorf("Stack()[%d] = %q, want %q", i, stack[i], want[i])
		}
	}
}

func TestGlobalsSnapshotIsDeepCopy(t *testing.T) {
	g := NewGlobals()
	arr := &value.Array{Elements: []value.Value{value.NewRationalInt(1)}}
	g.bind("a", value.NewCell(arr, false))
	snap := g.Snapshot()
	arr.Elements[0] = value.NewRationalInt(99)
	got := snap["a"].(*value.Array)
	if value.StructuralEqual(got.Elements[0], value.NewRationalInt(99)) {
		t.Error("Snapshot aliased the live global's array instead of deep-copying it")
	}
}

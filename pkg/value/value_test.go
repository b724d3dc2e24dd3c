package value

import (
	"math/big"
	"testing"
)

func rat(n, d int64) Rational {
	return Rational{Rat: big.NewRat(n, d)}
}

func TestRationalString(t *testing.T) {
	cases := []struct {
		r    Rational
		want string
	}{
		{rat(3, 1), "3"},
		{rat(2, 5), "2/5"},
		{rat(-4, 2), "-2"},
	}
	for _, c := range cases {
		if got := c.r.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	if Truthy(rat(0, 1)) {
		t.Error("0 should not be truthy")
	}
	if !Truthy(rat(1, 2)) {
		t.Error("1/2 should be truthy")
	}
	if Truthy(&Array{}) {
		t.Error("empty array should not be truthy")
	}
	if !Truthy(&Array{Elements: []Value{rat(0, 1)}}) {
		t.Error("non-empty array should be truthy regardless of contents")
	}
}

func TestCloneIsDeep(t *testing.T) {
	inner := &Array{Elements: []Value{rat(1, 1)}}
	outer := &Array{Elements: []Value{inner}}
	cloned := Clone(outer).(*Array)
	clonedInner := cloned.Elements[0].(*Array)
	clonedInner.Elements[0] = rat(99, 1)
	if StructuralEqual(inner.Elements[0], rat(99, 1)) {
		t.Error("mutating a clone's nested array mutated the original")
	}
}

func TestStructuralEqual(t *testing.T) {
	a := &Array{Elements: []Value{rat(1, 2), rat(3, 1)}}
	b := &Array{Elements: []Value{rat(1, 2), rat(3, 1)}}
	c := &Array{Elements: []Value{rat(1, 2)}}
	if !StructuralEqual(a, b) {
		t.Error("structurally identical arrays should be equal")
	}
	if StructuralEqual(a, c) {
		t.Error("arrays of different length should not be equal")
	}
	if StructuralEqual(rat(1, 1), a) {
		t.Error("a rational and an array should never be equal")
	}
}

func TestCellGetSetScalar(t *testing.T) {
	c := NewCell(rat(5, 1), false)
	v, err := c.Get(nil, nil)
	if err != nil || !StructuralEqual(v, rat(5, 1)) {
		t.Fatalf("Get(nil) = %v, %v", v, err)
	}
	if err := c.Set(nil, rat(7, 1), nil); err != nil {
		t.Fatalf("Set(nil) error: %v", err)
	}
	if !StructuralEqual(c.Val, rat(7, 1)) {
		t.Errorf("Val after Set = %v", c.Val)
	}
}

func TestCellGetSetArrayIndex(t *testing.T) {
	c := NewCell(&Array{Elements: []Value{rat(1, 1), rat(2, 1)}}, false)
	v, err := c.Get([]int{1}, nil)
	if err != nil || !StructuralEqual(v, rat(2, 1)) {
		t.Fatalf("Get([1]) = %v, %v", v, err)
	}
	if err := c.Set([]int{1}, rat(9, 1), nil); err != nil {
		t.Fatalf("Set([1]) error: %v", err)
	}
	v, _ = c.Get([]int{1}, nil)
	if !StructuralEqual(v, rat(9, 1)) {
		t.Errorf("after Set, Get([1]) = %v", v)
	}
}

func TestCellGetOutOfBounds(t *testing.T) {
	c := NewCell(&Array{Elements: []Value{rat(1, 1)}}, false)
	if _, err := c.Get([]int{5}, nil); err == nil {
		t.Error("expected an error indexing out of bounds")
	}
}

func TestCellCopyIsIndependent(t *testing.T) {
	c := NewCell(&Array{Elements: []Value{rat(1, 1)}}, false)
	dup := c.Copy()
	dup.Val.(*Array).Elements[0] = rat(42, 1)
	v, _ := c.Get([]int{0}, nil)
	if StructuralEqual(v, rat(42, 1)) {
		t.Error("Copy() aliased the original array")
	}
}

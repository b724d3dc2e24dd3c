// Package value implements Railway's value model: arbitrary-precision
// rationals and heterogeneous arrays, the only two runtime types (spec §3),
// plus the variable cell that owns one of them.
package value

import (
	"fmt"
	"math/big"
	"strings"
)

// Value is either a Rational or an *Array.
type Value interface {
	Kind() string
	clone() Value
}

// Rational is an exact p/q value backed by math/big's reduced-fraction type.
type Rational struct {
	Rat *big.Rat
}

func (Rational) Kind() string { return "rational" }

func (r Rational) clone() Value {
	return Rational{Rat: new(big.Rat).Set(r.Rat)}
}

// NewRationalInt builds a Rational from a plain integer.
func NewRationalInt(n int64) Rational {
	return Rational{Rat: big.NewRat(n, 1)}
}

// Truthy implements spec §3: "nonzero rational OR non-empty array".
func (r Rational) Truthy() bool {
	return r.Rat.Sign() != 0
}

// String renders p/q, or p when q=1 (spec §6 output format).
func (r Rational) String() string {
	if r.Rat.IsInt() {
		return r.Rat.Num().String()
	}
	return r.Rat.RatString()
}

// Equal is structural equality between two rationals.
func (r Rational) Equal(o Rational) bool {
	return r.Rat.Cmp(o.Rat) == 0
}

// Array is a growable-at-the-tail, order-sensitive, heterogeneous sequence.
type Array struct {
	Elements []Value
}

func (*Array) Kind() string { return "array" }

func (a *Array) clone() Value {
	out := &Array{Elements: make([]Value, len(a.Elements))}
	for i, e := range a.Elements {
		out.Elements[i] = e.clone()
	}
	return out
}

// Clone performs a deep copy, used anywhere ownership must not alias (let,
// for-loop and try candidate snapshots, tensor fill).
func Clone(v Value) Value {
	if v == nil {
		return nil
	}
	return v.clone()
}

// Truthy implements spec §3 for arrays: non-empty.
func (a *Array) Truthy() bool {
	return len(a.Elements) > 0
}

func (a *Array) String() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = Stringify(e)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Truthy is the spec §3 truthiness rule dispatcher.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case Rational:
		return t.Truthy()
	case *Array:
		return t.Truthy()
	default:
		panic(fmt.Sprintf("value: unknown kind %T", v))
	}
}

// Stringify renders a value per spec §6: rationals as p/q (or p), arrays in
// bracketed comma form.
func Stringify(v Value) string {
	switch t := v.(type) {
	case Rational:
		return t.String()
	case *Array:
		return t.String()
	default:
		panic(fmt.Sprintf("value: unknown kind %T", v))
	}
}

// StructuralEqual implements spec §3 equality: structural, same-kind only.
func StructuralEqual(a, b Value) bool {
	switch av := a.(type) {
	case Rational:
		bv, ok := b.(Rational)
		return ok && av.Equal(bv)
	case *Array:
		bv, ok := b.(*Array)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !StructuralEqual(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

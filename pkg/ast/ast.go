// Package ast defines Railway's tagged-variant node set (spec §4.3):
// expressions and statements, each carrying enough information (including a
// per-node mono-taint bit) to be replayed by the execution engine in either
// time direction.
package ast

import "railway/pkg/value"

// Expression is any node that evaluates to a value.Value.
type Expression interface {
	HasMono() bool
}

// Statement is any node the execution engine can run forwards or backwards.
type Statement interface {
	IsMono() bool
}

// ---------------------------- Expressions ----------------------------

// NumberLiteral is a rational literal, e.g. 3 or 2/5 (spec §4.4 regex).
type NumberLiteral struct {
	Val value.Rational
}

func (NumberLiteral) HasMono() bool { return false }

// Lookup names a variable plus zero or more index expressions, e.g. a,
// a[1], a[i][j]. Mono is true iff Name begins with '.'.
type Lookup struct {
	Name  string
	Index []Expression
	Mono  bool
}

func (l Lookup) HasMono() bool {
	if l.Mono {
		return true
	}
	for _, idx := range l.Index {
		if idx.HasMono() {
			return true
		}
	}
	return false
}

// Length is the #name expression, yielding an array variable's length.
type Length struct {
	Lookup Lookup
}

func (n Length) HasMono() bool { return n.Lookup.HasMono() }

// BinaryExpr is a binary operator application, built by the parser per the
// left-associative precedence-climbing procedure in spec §4.4.
type BinaryExpr struct {
	Op  string
	LHS Expression
	RHS Expression
}

func (b BinaryExpr) HasMono() bool { return b.LHS.HasMono() || b.RHS.HasMono() }

// UnaryExpr is a leading-unary-operator application ('-' or '!').
type UnaryExpr struct {
	Op      string
	Operand Expression
}

func (u UnaryExpr) HasMono() bool { return u.Operand.HasMono() }

// ArrayLiteral is [e1, e2, ...].
type ArrayLiteral struct {
	Items []Expression
}

func (a ArrayLiteral) HasMono() bool {
	for _, it := range a.Items {
		if it.HasMono() {
			return true
		}
	}
	return false
}

// ArrayRange is [start to stop by step] (step defaults to 1 when omitted).
type ArrayRange struct {
	Start, Stop, Step Expression
}

func (r ArrayRange) HasMono() bool {
	return r.Start.HasMono() || r.Stop.HasMono() || r.Step.HasMono()
}

// ArrayTensor is tensor(dims, fill): a (possibly multi-dimensional) array
// of the given dimensions filled with (copies of) fill.
type ArrayTensor struct {
	Dims Expression
	Fill Expression
}

func (t ArrayTensor) HasMono() bool { return t.Dims.HasMono() || t.Fill.HasMono() }

// ThreadID is the TID pseudo-identifier (spec §6, resolved per SPEC_FULL §5).
type ThreadID struct{}

func (ThreadID) HasMono() bool { return false }

// NumThreads is the #TID pseudo-identifier.
type NumThreads struct{}

func (NumThreads) HasMono() bool { return false }

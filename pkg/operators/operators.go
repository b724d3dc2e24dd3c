// Package operators implements Railway's binary and unary operator tables
// (spec §4.2) as pure functions over rationals, plus the modification-op
// inverse mapping the execution engine consults when running backwards.
// Grounded directly on original_source/interpreting.py's binops/uniops/
// modops/inv_modops dictionaries.
package operators

import (
	"math/big"

	"railway/pkg/railerr"
	"railway/pkg/value"
)

// Precedence returns the binding strength of a binary operator (1 tightest),
// per spec §4.2, or 0 if op is not a known binary operator.
func Precedence(op string) int {
	switch op {
	case "**":
		return 1
	case "*", "/", "//", "%":
		return 2
	case "+", "-":
		return 3
	case "<", "<=", ">", ">=", "=", "!=":
		return 4
	case "^", "|", "&":
		return 5
	default:
		return 0
	}
}

// IsBinaryOp reports whether op is a recognised binary operator token.
func IsBinaryOp(op string) bool { return Precedence(op) != 0 }

// Binary evaluates a binary operator. The boolean operators (^ | &) coerce
// either operand to its truthiness first, per spec §4.1 and the reference
// binops' `bool(a) ^ bool(b)`, so arrays are accepted there; every other
// operator rejects arrays outright ("comparisons between a rational and an
// array are an error", generalised to arithmetic and ordering too).
func Binary(op string, lhs, rhs value.Value, stack []string) (value.Value, error) {
	switch op {
	case "^", "|", "&":
		return boolOp(op, value.Truthy(lhs), value.Truthy(rhs)), nil
	}
	l, ok := lhs.(value.Rational)
	if !ok {
		return nil, railerr.MemAccessError(stack, "binary operator %q does not accept arrays", op)
	}
	r, ok := rhs.(value.Rational)
	if !ok {
		return nil, railerr.MemAccessError(stack, "binary operator %q does not accept arrays", op)
	}
	switch op {
	case "<", "<=", ">", ">=", "=", "!=":
		return compareOp(op, l, r), nil
	default:
		return arithOp(op, l, r, stack)
	}
}

func boolOp(op string, a, b bool) value.Value {
	var res bool
	switch op {
	case "^":
		res = a != b
	case "|":
		res = a || b
	case "&":
		res = a && b
	}
	return boolRational(res)
}

func compareOp(op string, l, r value.Rational) value.Value {
	cmp := l.Rat.Cmp(r.Rat)
	var res bool
	switch op {
	case "<":
		res = cmp < 0
	case "<=":
		res = cmp <= 0
	case ">":
		res = cmp > 0
	case ">=":
		res = cmp >= 0
	case "=":
		res = cmp == 0
	case "!=":
		res = cmp != 0
	}
	return boolRational(res)
}

func arithOp(op string, l, r value.Rational, stack []string) (value.Value, error) {
	switch op {
	case "+":
		return value.Rational{Rat: new(big.Rat).Add(l.Rat, r.Rat)}, nil
	case "-":
		return value.Rational{Rat: new(big.Rat).Sub(l.Rat, r.Rat)}, nil
	case "*":
		return value.Rational{Rat: new(big.Rat).Mul(l.Rat, r.Rat)}, nil
	case "/":
		if r.Rat.Sign() == 0 {
			return nil, railerr.DivisionByZeroError(stack, "division by zero")
		}
		return value.Rational{Rat: new(big.Rat).Quo(l.Rat, r.Rat)}, nil
	case "//":
		if r.Rat.Sign() == 0 {
			return nil, railerr.DivisionByZeroError(stack, "division by zero")
		}
		return value.Rational{Rat: floorDiv(l.Rat, r.Rat)}, nil
	case "%":
		if r.Rat.Sign() == 0 {
			return nil, railerr.DivisionByZeroError(stack, "division by zero")
		}
		return value.Rational{Rat: mod(l.Rat, r.Rat)}, nil
	case "**":
		return power(l, r, stack)
	default:
		return nil, railerr.ParsingError("unknown binary operator %q", op)
	}
}

func floorDiv(a, b *big.Rat) *big.Rat {
	q := new(big.Rat).Quo(a, b)
	num, den := q.Num(), q.Denom()
	z := new(big.Int)
	z.Div(num, den)
	return new(big.Rat).SetInt(z)
}

func mod(a, b *big.Rat) *big.Rat {
	fd := floorDiv(a, b)
	return new(big.Rat).Sub(a, new(big.Rat).Mul(fd, b))
}

func power(base, exp value.Rational, stack []string) (value.Value, error) {
	if !exp.Rat.IsInt() {
		return nil, railerr.MemAccessError(stack, "exponent must be an integer")
	}
	e := exp.Rat.Num()
	neg := e.Sign() < 0
	n := new(big.Int).Abs(e)
	result := big.NewRat(1, 1)
	b := new(big.Rat).Set(base.Rat)
	for i := new(big.Int); i.Cmp(n) < 0; i.Add(i, big.NewInt(1)) {
		result.Mul(result, b)
	}
	if neg {
		if result.Sign() == 0 {
			return nil, railerr.DivisionByZeroError(stack, "division by zero")
		}
		result = new(big.Rat).Inv(result)
	}
	return value.Rational{Rat: result}, nil
}

// Unary evaluates a unary operator over a rational.
func Unary(op string, operand value.Value, stack []string) (value.Value, error) {
	r, ok := operand.(value.Rational)
	if !ok {
		return nil, railerr.MemAccessError(stack, "unary operator %q does not accept arrays", op)
	}
	switch op {
	case "-":
		return value.Rational{Rat: new(big.Rat).Neg(r.Rat)}, nil
	case "!":
		return boolRational(!r.Truthy()), nil
	default:
		return nil, railerr.ParsingError("unknown unary operator %q", op)
	}
}

func boolRational(b bool) value.Rational {
	if b {
		return value.NewRationalInt(1)
	}
	return value.NewRationalInt(0)
}

// ModOp is a modification operator usable as a statement (spec §4.2).
type ModOp string

const (
	ModAdd ModOp = "+="
	ModSub ModOp = "-="
	ModMul ModOp = "*="
	ModDiv ModOp = "/="
	ModPow ModOp = "**="
	ModMod ModOp = "%="
	ModXor ModOp = "^="
	ModAnd ModOp = "&="
	ModOr  ModOp = "|="
)

// mono-only modification operators, listed in spec §4.2 as usable "for mono
// targets also".
var monoOnly = map[ModOp]bool{ModPow: true, ModMod: true, ModXor: true, ModAnd: true, ModOr: true}

// IsMonoOnly reports whether op may only target a mono variable.
func IsMonoOnly(op ModOp) bool { return monoOnly[op] }

// inverse maps a forward modification operator to the operator applied when
// running backwards (spec §4.2 table). Most mono-only ops (**=, %=, &=, |=)
// never run backwards by construction (mono statements are skipped when
// backwards) and so have no entry here; ^= is self-inverse and listed
// anyway, matching the spec's table even though it too is unreachable
// backward in practice.
var inverse = map[ModOp]ModOp{
	ModAdd: ModSub,
	ModSub: ModAdd,
	ModMul: ModDiv,
	ModDiv: ModMul,
	ModXor: ModXor,
}

// Inverse returns the inverse operator for a modification op, or ok=false
// if op has no inverse (mono-only ops, which are never reversed).
func Inverse(op ModOp) (ModOp, bool) {
	inv, ok := inverse[op]
	return inv, ok
}

// underlying binary operator applied by a modification op, used for both
// forward and (via Inverse) backward application.
var modBinary = map[ModOp]string{
	ModAdd: "+",
	ModSub: "-",
	ModMul: "*",
	ModDiv: "/",
	ModPow: "**",
	ModMod: "%",
	ModXor: "^",
	ModAnd: "&",
	ModOr:  "|",
}

// Apply evaluates `current op= rhs`, special-casing *= and /= by zero per
// spec §4.1 (zero-multiplication-error / division-by-zero-error).
func Apply(op ModOp, current, rhs value.Value, stack []string) (value.Value, error) {
	bin, ok := modBinary[op]
	if !ok {
		return nil, railerr.ParsingError("unknown modification operator %q", op)
	}
	if op == ModMul {
		r, ok := rhs.(value.Rational)
		if ok && r.Rat.Sign() == 0 {
			return nil, railerr.ZeroMultiplicationError(stack, "multiplying by 0 would be irreversible")
		}
	}
	return Binary(bin, current, rhs, stack)
}

package interpreter

import (
	"math/big"

	"railway/pkg/ast"
	"railway/pkg/operators"
	"railway/pkg/railerr"
	"railway/pkg/value"
)

// evalExpr evaluates an expression node. Expression evaluation is pure
// and direction-independent; only statements branch on `backwards`.
func (in *Interpreter) evalExpr(c ctx, e ast.Expression) (value.Value, error) {
	switch expr := e.(type) {
	case ast.NumberLiteral:
		return expr.Val, nil
	case ast.Lookup:
		return in.evalLookup(c, expr)
	case ast.Length:
		return in.evalLength(c, expr)
	case ast.BinaryExpr:
		lhs, err := in.evalExpr(c, expr.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := in.evalExpr(c, expr.RHS)
		if err != nil {
			return nil, err
		}
		return operators.Binary(expr.Op, lhs, rhs, c.stack())
	case ast.UnaryExpr:
		operand, err := in.evalExpr(c, expr.Operand)
		if err != nil {
			return nil, err
		}
		return operators.Unary(expr.Op, operand, c.stack())
	case ast.ArrayLiteral:
		return in.evalArrayLiteral(c, expr)
	case ast.ArrayRange:
		return in.evalArrayRange(c, expr)
	case ast.ArrayTensor:
		return in.evalArrayTensor(c, expr)
	case ast.ThreadID:
		if c.lane == nil {
			return value.NewRationalInt(0), nil
		}
		return value.NewRationalInt(int64(c.lane.tid)), nil
	case ast.NumThreads:
		if c.lane == nil {
			return value.NewRationalInt(1), nil
		}
		return value.NewRationalInt(int64(c.lane.n)), nil
	default:
		return nil, railerr.ParsingError("interpreter: unhandled expression %T", e)
	}
}

func (in *Interpreter) evalLookup(c ctx, lk ast.Lookup) (value.Value, error) {
	cell, err := c.scope.Resolve(lk.Name)
	if err != nil {
		return nil, err
	}
	indices, err := in.evalIndices(c, lk.Index)
	if err != nil {
		return nil, err
	}
	return cell.Get(indices, c.stack())
}

func (in *Interpreter) evalLength(c ctx, l ast.Length) (value.Value, error) {
	v, err := in.evalLookup(c, l.Lookup)
	if err != nil {
		return nil, err
	}
	arr, ok := v.(*value.Array)
	if !ok {
		return nil, railerr.MemAccessError(c.stack(), "# applied to a non-array value")
	}
	return value.NewRationalInt(int64(len(arr.Elements))), nil
}

func (in *Interpreter) evalArrayLiteral(c ctx, a ast.ArrayLiteral) (value.Value, error) {
	out := &value.Array{Elements: make([]value.Value, len(a.Items))}
	for i, item := range a.Items {
		v, err := in.evalExpr(c, item)
		if err != nil {
			return nil, err
		}
		out.Elements[i] = v
	}
	return out, nil
}

// evalArrayRange materialises [start to stop by step] eagerly. Laziness
// is a performance concern and speed is explicitly out of scope.
func (in *Interpreter) evalArrayRange(c ctx, r ast.ArrayRange) (value.Value, error) {
	start, err := in.evalExpr(c, r.Start)
	if err != nil {
		return nil, err
	}
	stop, err := in.evalExpr(c, r.Stop)
	if err != nil {
		return nil, err
	}
	step, err := in.evalExpr(c, r.Step)
	if err != nil {
		return nil, err
	}
	sr, ok1 := start.(value.Rational)
	er, ok2 := stop.(value.Rational)
	pr, ok3 := step.(value.Rational)
	if !ok1 || !ok2 || !ok3 {
		return nil, railerr.MemAccessError(c.stack(), "range bounds must be rationals")
	}
	if pr.Rat.Sign() == 0 {
		return nil, railerr.DivisionByZeroError(c.stack(), "range step must not be zero")
	}
	var elems []value.Value
	cur := new(big.Rat).Set(sr.Rat)
	ascending := pr.Rat.Sign() > 0
	for {
		if ascending && cur.Cmp(er.Rat) >= 0 {
			break
		}
		if !ascending && cur.Cmp(er.Rat) <= 0 {
			break
		}
		elems = append(elems, value.Rational{Rat: new(big.Rat).Set(cur)})
		cur = new(big.Rat).Add(cur, pr.Rat)
	}
	return &value.Array{Elements: elems}, nil
}

// evalArrayTensor builds Dims-shaped nested arrays filled with (deep
// copies of) Fill, per spec §3's "array of arrays" tensor form.
func (in *Interpreter) evalArrayTensor(c ctx, t ast.ArrayTensor) (value.Value, error) {
	dimsVal, err := in.evalExpr(c, t.Dims)
	if err != nil {
		return nil, err
	}
	dimsArr, ok := dimsVal.(*value.Array)
	if !ok {
		return nil, railerr.MemAccessError(c.stack(), "tensor dimensions must be given as an array")
	}
	dims := make([]int, len(dimsArr.Elements))
	for i, d := range dimsArr.Elements {
		r, ok := d.(value.Rational)
		if !ok || !r.Rat.IsInt() {
			return nil, railerr.MemAccessError(c.stack(), "tensor dimension must be an integer")
		}
		dims[i] = int(r.Rat.Num().Int64())
	}
	if len(dims) > in.Config.TensorFillDepth {
		return nil, railerr.MemAccessError(c.stack(), "tensor dimension count %d exceeds the configured fill depth limit %d", len(dims), in.Config.TensorFillDepth)
	}
	fill, err := in.evalExpr(c, t.Fill)
	if err != nil {
		return nil, err
	}
	return buildTensor(dims, fill), nil
}

func buildTensor(dims []int, fill value.Value) value.Value {
	if len(dims) == 0 {
		return value.Clone(fill)
	}
	elems := make([]value.Value, dims[0])
	for i := range elems {
		elems[i] = buildTensor(dims[1:], fill)
	}
	return &value.Array{Elements: elems}
}

package interpreter

import (
	"railway/pkg/operators"
	"railway/pkg/value"
)

func parseModOp(s string) operators.ModOp { return operators.ModOp(s) }

func invModOp(op operators.ModOp) (operators.ModOp, bool) { return operators.Inverse(op) }

func applyModOp(op operators.ModOp, cur, rhs value.Value, stack []string) (value.Value, error) {
	return operators.Apply(op, cur, rhs, stack)
}

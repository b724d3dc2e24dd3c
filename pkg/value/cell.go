package value

import (
	"railway/pkg/railerr"
)

// Cell is the unit of ownership transfer (spec §3): an indirection layer
// that owns exactly one Value and supports indexed get/set with bounds
// checking. A scalar variable's cell holds a Rational and is read or
// written only with an empty index chain (indexing it is a mem-access
// error); an array variable's cell holds an *Array.
type Cell struct {
	Val  Value
	Mono bool
}

// NewCell wraps v in a freshly owned cell.
func NewCell(v Value, mono bool) *Cell {
	return &Cell{Val: v, Mono: mono}
}

// Get resolves a chain of indices against the cell's value, matching
// original_source/interpreting.py's Lookup.eval: zero indices returns the
// scalar (or the whole array, uncopied — callers that need ownership
// isolation must Clone explicitly), one or more indices walk into nested
// arrays.
func (c *Cell) Get(indices []int, stack []string) (Value, error) {
	return index(c.Val, indices, stack)
}

func index(v Value, indices []int, stack []string) (Value, error) {
	cur := v
	for _, i := range indices {
		arr, ok := cur.(*Array)
		if !ok {
			return nil, railerr.MemAccessError(stack, "indexing into a number during lookup")
		}
		if i < 0 || i >= len(arr.Elements) {
			return nil, railerr.MemAccessError(stack, "index %d out of bounds for array of length %d", i, len(arr.Elements))
		}
		cur = arr.Elements[i]
	}
	return cur, nil
}

// Set writes v at the end of an index chain, mutating the cell's owned
// array in place (or replacing the scalar value when indices is empty).
func (c *Cell) Set(indices []int, v Value, stack []string) error {
	if len(indices) == 0 {
		c.Val = v
		return nil
	}
	arr, ok := c.Val.(*Array)
	if !ok {
		return railerr.MemAccessError(stack, "indexing into a number during assignment")
	}
	for _, i := range indices[:len(indices)-1] {
		if i < 0 || i >= len(arr.Elements) {
			return railerr.MemAccessError(stack, "index %d out of bounds for array of length %d", i, len(arr.Elements))
		}
		next, ok := arr.Elements[i].(*Array)
		if !ok {
			return railerr.MemAccessError(stack, "indexing into a number during assignment")
		}
		arr = next
	}
	last := indices[len(indices)-1]
	if last < 0 || last >= len(arr.Elements) {
		return railerr.MemAccessError(stack, "index %d out of bounds for array of length %d", last, len(arr.Elements))
	}
	if _, wasArray := arr.Elements[last].(*Array); wasArray {
		if _, isArray := v.(*Array); !isArray {
			return railerr.MemAccessError(stack, "trying to modify an array element with a number")
		}
	}
	arr.Elements[last] = v
	return nil
}

// Copy performs a deep copy of the owned value, used by undoreturn calls to
// hand the caller owned copies of the returned cells.
func (c *Cell) Copy() *Cell {
	return &Cell{Val: Clone(c.Val), Mono: c.Mono}
}

// IsArray reports whether the cell currently owns an array value.
func (c *Cell) IsArray() bool {
	_, ok := c.Val.(*Array)
	return ok
}

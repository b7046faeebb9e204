package sheet

import (
	"fmt"
	"strconv"
	"strings"
)

// CellFunc maps one cell value to another.
type CellFunc func(string) (string, error)

// Transform reads the table at path and applies fn to every cell of column.
// The file itself is left untouched; callers Write the result if they want it kept.
func Transform(path, column string, fn CellFunc, opts ReadOptions) (*Table, error) {
	t, err := Read(path, opts)
	if err != nil {
		return nil, err
	}
	if err := t.Apply(column, fn); err != nil {
		return nil, err
	}
	return t, nil
}

// Apply replaces every cell of column with fn(cell), stopping at the first error.
func (t *Table) Apply(column string, fn CellFunc) error {
	idx, err := t.ColumnIndex(column)
	if err != nil {
		return err
	}
	for i, row := range t.Rows {
		v, err := fn(row[idx])
		if err != nil {
			return fmt.Errorf("row %d, column %q: %w", i, column, err)
		}
		row[idx] = v
	}
	return nil
}

// Operations accepted by Operation.
const (
	OpMultiply = "multiply"
	OpAdd      = "add"
	OpSubtract = "subtract"
	OpDivide   = "divide"
	OpUpper    = "upper"
	OpLower    = "lower"
	OpTrim     = "trim"
)

// NumericTransform returns a CellFunc applying an arithmetic op with operand.
// Empty cells stay empty; results are formatted with the fewest digits that
// round-trip, so "2" times 2 is "4" rather than "4.000000".
func NumericTransform(op string, operand float64) (CellFunc, error) {
	var apply func(float64) float64
	switch op {
	case OpMultiply:
		apply = func(v float64) float64 { return v * operand }
	case OpAdd:
		apply = func(v float64) float64 { return v + operand }
	case OpSubtract:
		apply = func(v float64) float64 { return v - operand }
	case OpDivide:
		if operand == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		apply = func(v float64) float64 { return v / operand }
	default:
		return nil, fmt.Errorf("unknown numeric operation %q", op)
	}

	return func(s string) (string, error) {
		s = strings.TrimSpace(s)
		if s == "" {
			return "", nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", fmt.Errorf("not a number: %q", s)
		}
		return strconv.FormatFloat(apply(v), 'f', -1, 64), nil
	}, nil
}

// Operation returns the CellFunc for any supported op name. Text ops ignore
// operand.
func Operation(op string, operand float64) (CellFunc, error) {
	switch op {
	case OpUpper:
		return func(s string) (string, error) { return strings.ToUpper(s), nil }, nil
	case OpLower:
		return func(s string) (string, error) { return strings.ToLower(s), nil }, nil
	case OpTrim:
		return func(s string) (string, error) { return strings.TrimSpace(s), nil }, nil
	}
	return NumericTransform(op, operand)
}

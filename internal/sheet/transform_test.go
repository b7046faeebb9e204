package sheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericTransform(t *testing.T) {
	tests := []struct {
		op      string
		operand float64
		in      string
		want    string
	}{
		{OpMultiply, 2, "21", "42"},
		{OpMultiply, 2, "1.25", "2.5"},
		{OpAdd, 0.5, " 1 ", "1.5"},
		{OpSubtract, 10, "3", "-7"},
		{OpDivide, 4, "1", "0.25"},
		{OpMultiply, 3, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.op+"_"+tt.in, func(t *testing.T) {
			fn, err := NumericTransform(tt.op, tt.operand)
			require.NoError(t, err)
			got, err := fn(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumericTransform_Errors(t *testing.T) {
	_, err := NumericTransform("modulo", 2)
	assert.Error(t, err)

	_, err = NumericTransform(OpDivide, 0)
	assert.Error(t, err)

	fn, err := NumericTransform(OpMultiply, 2)
	require.NoError(t, err)
	_, err = fn("abc")
	assert.Error(t, err)
}

func TestOperation_Text(t *testing.T) {
	for op, want := range map[string]string{OpUpper: " AB ", OpLower: " ab ", OpTrim: "aB"} {
		fn, err := Operation(op, 0)
		require.NoError(t, err)
		got, err := fn(" aB ")
		require.NoError(t, err)
		assert.Equal(t, want, got, op)
	}
}

func TestTransform(t *testing.T) {
	path := writeGBK(t, "wave.csv", "时间,电压\nt0,1\nt1,2.5\n")

	fn, err := NumericTransform(OpMultiply, 2)
	require.NoError(t, err)

	tbl, err := Transform(path, "电压", fn, ReadOptions{})
	require.NoError(t, err)

	col, err := tbl.Column("电压")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "5"}, col)

	// the source file is unchanged
	orig, err := Read(path, ReadOptions{})
	require.NoError(t, err)
	col, _ = orig.Column("电压")
	assert.Equal(t, []string{"1", "2.5"}, col)
}

func TestTransform_MissingColumn(t *testing.T) {
	path := writeGBK(t, "wave.csv", "a,b\n1,2\n")
	fn, _ := Operation(OpUpper, 0)

	_, err := Transform(path, "c", fn, ReadOptions{})
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestApply_ReportsRow(t *testing.T) {
	tbl := &Table{Columns: []string{"v"}, Rows: [][]string{{"1"}, {"x"}}}
	fn, _ := NumericTransform(OpAdd, 1)

	err := tbl.Apply("v", fn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
	assert.Equal(t, "2", tbl.Rows[0][0])
}

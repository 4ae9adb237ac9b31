package table_test

import (
	"testing"

	"github.com/TFMV/spender/errs"
	"github.com/TFMV/spender/table"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRawTable builds a utf8 table; "<null>" cells become nulls.
func newRawTable(t *testing.T, mem memory.Allocator, header []string, rows [][]string) *table.Table {
	t.Helper()
	builder := array.NewRecordBuilder(mem, table.RawSchema(header))
	defer builder.Release()
	for _, row := range rows {
		require.Len(t, row, len(header))
		for j, cell := range row {
			b := builder.Field(j).(*array.StringBuilder)
			if cell == "<null>" {
				b.AppendNull()
			} else {
				b.Append(cell)
			}
		}
	}
	return table.New(mem, builder.NewRecord())
}

func TestTableColumnAccess(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tbl := newRawTable(t, mem, []string{"a", "b"}, [][]string{
		{"1.5", "x"},
		{"<null>", "y"},
		{" 3 ", "<null>"},
	})
	defer tbl.Release()

	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, []string{"a", "b"}, tbl.ColumnNames())
	assert.True(t, tbl.Has("a"))
	assert.False(t, tbl.Has("c"))

	floats, missing, err := tbl.Floats("a")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 0, 3}, floats)
	assert.Equal(t, []uint32{1}, missing.ToArray())

	strs, missing, err := tbl.Strings("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", ""}, strs)
	assert.Equal(t, []uint32{2}, missing.ToArray())

	err = tbl.Require("clean", "a", "c")
	assert.ErrorIs(t, err, errs.ErrSchema)
}

func TestTableFloatsRejectsGarbage(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tbl := newRawTable(t, mem, []string{"n"}, [][]string{{"12"}, {"twelve"}})
	defer tbl.Release()

	_, _, err := tbl.Floats("n")
	assert.ErrorIs(t, err, errs.ErrSchema)

	_, err = table.ParseNumber("inf")
	assert.Error(t, err)
}

func TestTableEditsAreCopyOnWrite(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tbl := newRawTable(t, mem, []string{"id", "v", "w"}, [][]string{
		{"1", "10", "a"},
		{"2", "20", "b"},
	})
	defer tbl.Release()

	working := tbl.Clone()
	defer working.Release()

	ints := table.NewInt64Column(mem, []int64{10, 20})
	defer ints.Release()
	require.NoError(t, tbl.Replace("v", ints))
	require.NoError(t, tbl.Drop("id"))

	score := table.NewFloat64Column(mem, []float64{0, 100})
	defer score.Release()
	require.NoError(t, tbl.Append("score", score))
	assert.Error(t, tbl.Append("score", score))

	assert.Equal(t, []string{"v", "w", "score"}, tbl.ColumnNames())
	v, err := tbl.Column("v")
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20}, v.(*array.Int64).Int64Values())

	// The clone still sees the original raw columns.
	assert.Equal(t, []string{"id", "v", "w"}, working.ColumnNames())
	_, ok := mustColumn(t, working, "v").(*array.String)
	assert.True(t, ok)
}

func TestTableReplaceLengthMismatch(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tbl := newRawTable(t, mem, []string{"v"}, [][]string{{"1"}, {"2"}})
	defer tbl.Release()

	short := table.NewFloat64Column(mem, []float64{1})
	defer short.Release()
	assert.Error(t, tbl.Replace("v", short))
	assert.ErrorIs(t, tbl.Drop("missing"), errs.ErrSchema)
}

func TestNewStringColumn(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	arr := table.NewStringColumn(mem, []string{"a", "", "c"}, nil)
	defer arr.Release()
	assert.Equal(t, 0, arr.NullN())
	assert.Equal(t, "c", arr.(*array.String).Value(2))
}

func mustColumn(t *testing.T, tbl *table.Table, name string) interface{} {
	t.Helper()
	col, err := tbl.Column(name)
	require.NoError(t, err)
	return col
}

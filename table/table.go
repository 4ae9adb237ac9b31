// Package table implements an in-memory record table over a single Apache
// Arrow record: ordered rows, named columns, and copy-on-write column edits.
package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/TFMV/spender/errs"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Table holds one Arrow record. Edits never mutate the record in place:
// Replace, Drop and Append build a new record that shares the untouched
// column buffers, so a Clone stays valid after its source is edited.
type Table struct {
	mem memory.Allocator
	rec arrow.Record
}

// New wraps rec, taking over the caller's reference.
func New(mem memory.Allocator, rec arrow.Record) *Table {
	if mem == nil {
		mem = Pool
	}
	return &Table{mem: mem, rec: rec}
}

// Allocator returns the allocator new columns should be built with.
func (t *Table) Allocator() memory.Allocator { return t.mem }

// Record returns the underlying record. It is valid until the next edit.
func (t *Table) Record() arrow.Record { return t.rec }

// Schema returns the table schema.
func (t *Table) Schema() *arrow.Schema { return t.rec.Schema() }

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return int(t.rec.NumRows()) }

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	fields := t.rec.Schema().Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Has reports whether the table has a column called name.
func (t *Table) Has(name string) bool {
	return len(t.rec.Schema().FieldIndices(name)) > 0
}

// Require fails with a SchemaError naming the first absent column.
func (t *Table) Require(op string, names ...string) error {
	for _, name := range names {
		if !t.Has(name) {
			return errs.Schema(op, name, errors.New("required column is absent"))
		}
	}
	return nil
}

func (t *Table) index(name string) (int, error) {
	idx := t.rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return -1, errs.Schema("lookup", name, errors.New("column not found"))
	}
	return idx[0], nil
}

// Column returns the named column.
func (t *Table) Column(name string) (arrow.Array, error) {
	i, err := t.index(name)
	if err != nil {
		return nil, err
	}
	return t.rec.Column(i), nil
}

// Strings returns the values of a utf8 column along with the positions of
// missing cells. Missing positions hold "".
func (t *Table) Strings(name string) ([]string, *roaring.Bitmap, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, nil, err
	}
	arr, ok := col.(*array.String)
	if !ok {
		return nil, nil, errs.Schema("read", name, fmt.Errorf("unexpected column type: %s", col.DataType()))
	}
	values := make([]string, arr.Len())
	missing := roaring.New()
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			missing.Add(uint32(i))
			continue
		}
		values[i] = arr.Value(i)
	}
	return values, missing, nil
}

// Floats returns the named column as float64 values along with the
// positions of missing cells, which hold 0. Text columns are parsed; any
// cell that is not a finite number is a SchemaError.
func (t *Table) Floats(name string) ([]float64, *roaring.Bitmap, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, nil, err
	}
	values := make([]float64, col.Len())
	missing := roaring.New()
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			missing.Add(uint32(i))
			continue
		}
		switch arr := col.(type) {
		case *array.Float64:
			values[i] = arr.Value(i)
		case *array.Int64:
			values[i] = float64(arr.Value(i))
		case *array.String:
			v, err := ParseNumber(arr.Value(i))
			if err != nil {
				return nil, nil, errs.Schema("parse", name, fmt.Errorf("row %d: %w", i, err))
			}
			values[i] = v
		default:
			return nil, nil, errs.Schema("read", name, fmt.Errorf("unexpected column type: %s", col.DataType()))
		}
	}
	return values, missing, nil
}

// ParseNumber parses a cell as a finite float64, ignoring surrounding
// whitespace.
func ParseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}

// Replace swaps the named column for arr, keeping its position. The column
// takes arr's type. The caller keeps its own reference to arr.
func (t *Table) Replace(name string, arr arrow.Array) error {
	i, err := t.index(name)
	if err != nil {
		return err
	}
	if arr.Len() != t.NumRows() {
		return fmt.Errorf("replace %q: column has %d rows, table has %d", name, arr.Len(), t.NumRows())
	}
	fields := append([]arrow.Field(nil), t.rec.Schema().Fields()...)
	fields[i] = arrow.Field{Name: name, Type: arr.DataType(), Nullable: true}
	cols := append([]arrow.Array(nil), t.rec.Columns()...)
	cols[i] = arr
	t.swap(fields, cols)
	return nil
}

// Drop removes the named column.
func (t *Table) Drop(name string) error {
	i, err := t.index(name)
	if err != nil {
		return err
	}
	fields := t.rec.Schema().Fields()
	cols := t.rec.Columns()
	nf := make([]arrow.Field, 0, len(fields)-1)
	nf = append(append(nf, fields[:i]...), fields[i+1:]...)
	nc := make([]arrow.Array, 0, len(cols)-1)
	nc = append(append(nc, cols[:i]...), cols[i+1:]...)
	t.swap(nf, nc)
	return nil
}

// Append adds arr as the last column. The caller keeps its own reference
// to arr.
func (t *Table) Append(name string, arr arrow.Array) error {
	if t.Has(name) {
		return fmt.Errorf("append %q: column already exists", name)
	}
	if arr.Len() != t.NumRows() {
		return fmt.Errorf("append %q: column has %d rows, table has %d", name, arr.Len(), t.NumRows())
	}
	fields := append(append([]arrow.Field(nil), t.rec.Schema().Fields()...),
		arrow.Field{Name: name, Type: arr.DataType(), Nullable: true})
	cols := append(append([]arrow.Array(nil), t.rec.Columns()...), arr)
	t.swap(fields, cols)
	return nil
}

func (t *Table) swap(fields []arrow.Field, cols []arrow.Array) {
	rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, t.rec.NumRows())
	t.rec.Release()
	t.rec = rec
}

// Clone returns a working copy sharing the column buffers.
func (t *Table) Clone() *Table {
	t.rec.Retain()
	return &Table{mem: t.mem, rec: t.rec}
}

// Release drops the table's reference to its record.
func (t *Table) Release() {
	if t.rec != nil {
		t.rec.Release()
		t.rec = nil
	}
}

// NewInt64Column builds a non-null int64 array from values.
func NewInt64Column(mem memory.Allocator, values []int64) arrow.Array {
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues(values, nil)
	return b.NewArray()
}

// NewFloat64Column builds a non-null float64 array from values.
func NewFloat64Column(mem memory.Allocator, values []float64) arrow.Array {
	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.AppendValues(values, nil)
	return b.NewArray()
}

// NewStringColumn builds a utf8 array from values, with null cells at the
// positions set in missing (which may be nil).
func NewStringColumn(mem memory.Allocator, values []string, missing *roaring.Bitmap) arrow.Array {
	b := array.NewStringBuilder(mem)
	defer b.Release()
	for i, v := range values {
		if missing != nil && missing.Contains(uint32(i)) {
			b.AppendNull()
			continue
		}
		b.Append(v)
	}
	return b.NewArray()
}

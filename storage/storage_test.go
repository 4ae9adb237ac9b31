package storage_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/TFMV/spender/errs"
	"github.com/TFMV/spender/storage"
	"github.com/TFMV/spender/table"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "Customer ID,Item Purchased,Frequency of Purchases,Review Rating\n" +
	"1,Shoes,Weekly,3.1\n" +
	"2,Hat, ,\n" +
	"3,\"Coat, wool\",NaN,4.0\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	path := writeFile(t, t.TempDir(), "Project1.csv", sample)
	tbl, err := storage.Load(path, storage.WithAllocator(mem))
	require.NoError(t, err)
	defer tbl.Release()

	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, []string{"Customer ID", "Item Purchased", "Frequency of Purchases", "Review Rating"}, tbl.ColumnNames())

	items, missing, err := tbl.Strings("Item Purchased")
	require.NoError(t, err)
	assert.Equal(t, []string{"Shoes", "Hat", "Coat, wool"}, items)
	assert.True(t, missing.IsEmpty())

	freq, missing, err := tbl.Strings("Frequency of Purchases")
	require.NoError(t, err)
	assert.Equal(t, " ", freq[1], "a single space is a value, not a missing cell")
	assert.Equal(t, []uint32{2}, missing.ToArray())

	_, missing, err = tbl.Strings("Review Rating")
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, missing.ToArray())
}

func TestDecodeStripsBOM(t *testing.T) {
	tbl, err := storage.Decode(append([]byte{0xEF, 0xBB, 0xBF}, "a,b\n1,2\n"...))
	require.NoError(t, err)
	defer tbl.Release()
	assert.Equal(t, []string{"a", "b"}, tbl.ColumnNames())
}

func TestDecodeHeaderOnly(t *testing.T) {
	tbl, err := storage.Decode([]byte("a,b\n"))
	require.NoError(t, err)
	defer tbl.Release()
	assert.Equal(t, 0, tbl.NumRows())
}

func TestDecodeCustomNullTokens(t *testing.T) {
	tbl, err := storage.Decode([]byte("a\n-\nNA\n"), storage.WithNullTokens("-"))
	require.NoError(t, err)
	defer tbl.Release()

	values, missing, err := tbl.Strings("a")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0}, missing.ToArray())
	assert.Equal(t, "NA", values[1])
}

func TestDecodeSemicolon(t *testing.T) {
	tbl, err := storage.Decode([]byte("a;b\n1;2\n"), storage.WithComma(';'))
	require.NoError(t, err)
	defer tbl.Release()
	assert.Equal(t, []string{"a", "b"}, tbl.ColumnNames())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := storage.Load(filepath.Join(dir, "absent.csv"))
	assert.ErrorIs(t, err, errs.ErrIO)

	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"ragged rows", "a,b\n1,2\n3\n"},
		{"duplicate header", "a,a\n1,2\n"},
		{"unterminated quote", "a,b\n\"1,2\n"},
		{"invalid utf8", "a,b\n\xff,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
			defer mem.AssertSize(t, 0)

			path := writeFile(t, dir, "bad.csv", tt.content)
			_, err := storage.Load(path, storage.WithAllocator(mem))
			assert.ErrorIs(t, err, errs.ErrFormat)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	tbl, err := storage.Decode([]byte("name,rating\nShoes,\nHat,x\n"), storage.WithAllocator(mem))
	require.NoError(t, err)
	defer tbl.Release()

	amounts := table.NewInt64Column(mem, []int64{40, 7})
	defer amounts.Release()
	require.NoError(t, tbl.Append("amount", amounts))
	scores := table.NewFloat64Column(mem, []float64{100, 12.5})
	defer scores.Release()
	require.NoError(t, tbl.Append(table.SpenderScore, scores))

	dir := t.TempDir()
	out := filepath.Join(dir, "cleaned_data.csv")
	require.NoError(t, storage.Save(tbl, out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "name,rating,amount,SpenderScore\nShoes,,40,100\nHat,x,7,12.5\n", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")

	var buf bytes.Buffer
	require.NoError(t, storage.Encode(&buf, tbl))
	assert.Equal(t, string(got), buf.String())
}

func TestSaveFailureLeavesNoOutput(t *testing.T) {
	tbl, err := storage.Decode([]byte("a\n1\n"))
	require.NoError(t, err)
	defer tbl.Release()

	out := filepath.Join(t.TempDir(), "missing-dir", "cleaned_data.csv")
	err = storage.Save(tbl, out)
	assert.ErrorIs(t, err, errs.ErrIO)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	out := writeFile(t, dir, "cleaned_data.csv", "stale\n")

	tbl, err := storage.Decode([]byte("a\n1\n"))
	require.NoError(t, err)
	defer tbl.Release()

	require.NoError(t, storage.Save(tbl, out))
	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n", string(got))
}

func TestLoadedColumnsAreUTF8(t *testing.T) {
	tbl, err := storage.Decode([]byte("n\n1\n"))
	require.NoError(t, err)
	defer tbl.Release()

	col, err := tbl.Column("n")
	require.NoError(t, err)
	_, ok := col.(*array.String)
	assert.True(t, ok)
}

// Package storage reads and writes record tables as flat CSV files.
package storage

import (
	"bytes"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/TFMV/spender/config"
	"github.com/TFMV/spender/errs"
	"github.com/TFMV/spender/table"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type options struct {
	mem   memory.Allocator
	nulls []string
	comma rune
}

// Option configures Load and Decode.
type Option func(*options)

// WithAllocator sets the allocator the loaded columns are built with.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) { o.mem = mem }
}

// WithNullTokens sets the cell texts read as missing values.
func WithNullTokens(tokens ...string) Option {
	return func(o *options) { o.nulls = tokens }
}

// WithComma sets the field delimiter.
func WithComma(c rune) Option {
	return func(o *options) { o.comma = c }
}

func newOptions(opts []Option) options {
	o := options{mem: table.Pool, nulls: config.DefaultNullTokens, comma: ','}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Load reads the CSV file at path into a table of utf8 columns, one per
// header name. Cells matching a null token are null.
func Load(path string, opts ...Option) (*table.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.IO("load", fmt.Errorf("failed to read %q: %w", path, err))
	}
	return Decode(data, opts...)
}

// Decode parses CSV bytes into a table. See Load.
func Decode(data []byte, opts ...Option) (*table.Table, error) {
	o := newOptions(opts)

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, errs.Format("load", errors.New("input is not valid UTF-8"))
	}

	// The Arrow reader needs the schema before the first row, so the header
	// is read once up front to name the utf8 fields.
	header, err := readHeader(data, o.comma)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(
		bytes.NewReader(data),
		table.RawSchema(header),
		csv.WithHeader(true),
		csv.WithComma(o.comma),
		csv.WithNullReader(true, o.nulls...),
		csv.WithChunk(-1),
		csv.WithAllocator(o.mem),
	)
	defer reader.Release()

	if !reader.Next() {
		if err := reader.Err(); err != nil {
			return nil, errs.Format("load", fmt.Errorf("failed to parse table: %w", err))
		}
		return nil, errs.Format("load", errors.New("no records decoded"))
	}
	if err := reader.Err(); err != nil {
		return nil, errs.Format("load", fmt.Errorf("failed to parse table: %w", err))
	}

	rec := reader.Record()
	rec.Retain()
	return table.New(o.mem, rec), nil
}

func readHeader(data []byte, comma rune) ([]string, error) {
	r := stdcsv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errs.Format("load", errors.New("input is empty"))
	}
	if err != nil {
		return nil, errs.Format("load", fmt.Errorf("failed to read header: %w", err))
	}
	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if seen[name] {
			return nil, errs.Format("load", fmt.Errorf("duplicate column %q in header", name))
		}
		seen[name] = true
	}
	return header, nil
}

// Save writes t to path as CSV with a header row. The file is written to a
// temporary sibling and renamed over path only once complete, so path holds
// either its previous content or the full new table.
func Save(t *table.Table, path string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errs.IO("save", fmt.Errorf("failed to create temporary file for %q: %w", path, err))
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Encode(tmp, t); err != nil {
		return errs.IO("save", fmt.Errorf("failed to write %q: %w", tmp.Name(), err))
	}
	if err = tmp.Chmod(0o644); err != nil {
		return errs.IO("save", fmt.Errorf("failed to set permissions on %q: %w", tmp.Name(), err))
	}
	if err = tmp.Sync(); err != nil {
		return errs.IO("save", fmt.Errorf("failed to sync %q: %w", tmp.Name(), err))
	}
	if err = tmp.Close(); err != nil {
		return errs.IO("save", fmt.Errorf("failed to close %q: %w", tmp.Name(), err))
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errs.IO("save", fmt.Errorf("failed to move output into place at %q: %w", path, err))
	}
	return nil
}

// Encode writes t to w as CSV: a header row, then every row in order.
// Nulls are written as empty cells.
func Encode(w io.Writer, t *table.Table) error {
	writer := csv.NewWriter(w, t.Schema(),
		csv.WithHeader(true),
		csv.WithNullWriter(""),
	)
	if err := writer.Write(t.Record()); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush records: %w", err)
	}
	return nil
}

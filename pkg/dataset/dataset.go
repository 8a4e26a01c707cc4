// Package dataset holds the sampled tabular values tracked by the checker and
// their lazily computed per-column statistics.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"math/rand/v2"
	"slices"

	"github.com/spf13/cast"
)

// DefaultSampleSize is the row cap applied to every tracked dataset.
const DefaultSampleSize = 385

var (
	// ErrUnknownColumn is returned when a projection names a column the dataset
	// does not have.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrRaggedColumns is returned when columns differ in length.
	ErrRaggedColumns = errors.New("columns have different lengths")
)

// Column is a named column of cells. Cells that are missing or not numeric are
// stored as NaN.
type Column struct {
	Name   string
	Values []float64
	// Numeric is false when no cell of the source column could be read as a
	// number.
	Numeric bool
}

// Dataset is an immutable table of float64 cells.
type Dataset struct {
	columns []Column
	index   map[string]int
	rows    int
}

// New builds a dataset from columns of equal length. Column slices are copied.
func New(columns ...Column) (*Dataset, error) {
	d := &Dataset{
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := d.index[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		if i == 0 {
			d.rows = len(c.Values)
		} else if len(c.Values) != d.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d: %w", c.Name, len(c.Values), d.rows, ErrRaggedColumns)
		}
		d.columns[i] = Column{Name: c.Name, Values: slices.Clone(c.Values), Numeric: c.Numeric}
		d.index[c.Name] = i
	}
	return d, nil
}

// FromRecords builds a dataset from a header and row-major records of
// arbitrary driver values. Values are converted with ToFloat.
func FromRecords(header []string, records [][]any) (*Dataset, error) {
	columns := make([]Column, len(header))
	for j, name := range header {
		columns[j] = Column{Name: name, Values: make([]float64, len(records))}
	}
	for i, rec := range records {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("record %d has %d fields, want %d", i, len(rec), len(header))
		}
		for j, v := range rec {
			f, ok := ToFloat(v)
			columns[j].Values[i] = f
			if ok {
				columns[j].Numeric = true
			}
		}
	}
	return New(columns...)
}

// ToFloat converts a scalar cell to float64. It reports false, with NaN, for
// nil and for values that do not read as a number.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return math.NaN(), false
	case float64:
		return x, !math.IsNaN(x)
	case []byte:
		v = string(x)
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, true
	case interface{ Float64() float64 }:
		// e.g. duckdb.Decimal
		return x.Float64(), true
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) {
		return math.NaN(), false
	}
	return f, true
}

// NumRows returns the number of rows.
func (d *Dataset) NumRows() int { return d.rows }

// NumColumns returns the number of columns.
func (d *Dataset) NumColumns() int { return len(d.columns) }

// Columns returns the column names in order.
func (d *Dataset) Columns() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column. The returned values must not be modified.
func (d *Dataset) Column(name string) (Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return Column{}, false
	}
	return d.columns[i], true
}

// Project returns a dataset holding only the named columns, in the given
// order.
func (d *Dataset) Project(names []string) (*Dataset, error) {
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		c, ok := d.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownColumn, name)
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Sample returns at most n rows drawn without replacement using a generator
// seeded with seed. Datasets with n rows or fewer are returned unchanged.
// Sampled rows keep their original relative order, so the result only depends
// on the row count, n and seed.
func (d *Dataset) Sample(n int, seed uint64) *Dataset {
	if n < 0 || d.rows <= n {
		return d
	}

	r := rand.New(rand.NewPCG(seed, seed))
	picked := r.Perm(d.rows)[:n]
	slices.Sort(picked)

	out := &Dataset{
		columns: make([]Column, len(d.columns)),
		index:   d.index,
		rows:    n,
	}
	for j, c := range d.columns {
		values := make([]float64, n)
		for i, row := range picked {
			values[i] = c.Values[row]
		}
		out.columns[j] = Column{Name: c.Name, Values: values, Numeric: c.Numeric}
	}
	return out
}

func (d *Dataset) String() string {
	return fmt.Sprintf("<Dataset %d×%d %v>", d.rows, len(d.columns), d.Columns())
}

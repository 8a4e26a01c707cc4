package dataset

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Series is one statistic computed per column.
type Series struct {
	Columns []string
	Values  []float64
}

// At returns the value for the named column.
func (s Series) At(column string) (float64, bool) {
	i := slices.Index(s.Columns, column)
	if i < 0 {
		return 0, false
	}
	return s.Values[i], true
}

// Select narrows the series to columns, in the given order. The result does
// not share memory with s.
func (s Series) Select(columns []string) (Series, error) {
	out := Series{
		Columns: make([]string, 0, len(columns)),
		Values:  make([]float64, 0, len(columns)),
	}
	for _, c := range columns {
		v, ok := s.At(c)
		if !ok {
			return Series{}, fmt.Errorf("%w %q", ErrUnknownColumn, c)
		}
		out.Columns = append(out.Columns, c)
		out.Values = append(out.Values, v)
	}
	return out, nil
}

// Clone returns a deep copy of s.
func (s Series) Clone() Series {
	return Series{Columns: slices.Clone(s.Columns), Values: slices.Clone(s.Values)}
}

// Len returns the number of columns in the series.
func (s Series) Len() int { return len(s.Values) }

func (s Series) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, c := range s.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c)
		b.WriteString(": ")
		b.WriteString(strconv.FormatFloat(s.Values[i], 'g', 6, 64))
	}
	b.WriteByte('}')
	return b.String()
}

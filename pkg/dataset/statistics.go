package dataset

import (
	"maps"
	"math"
	"slices"
	"sort"
)

// Statistic names understood by DefaultStatistics.
const (
	StatMin     = "min"
	StatMax     = "max"
	StatMean    = "mean"
	StatMedian  = "median"
	StatStddev  = "stddev"
	StatL2Norms = "l2_norms"
)

// StatFunc reduces one column to a single value. NaN cells must be skipped.
type StatFunc func(values []float64) float64

// Statistics is an immutable table of supported statistics.
type Statistics struct {
	funcs map[string]StatFunc
}

// StatOption customizes DefaultStatistics.
type StatOption func(map[string]StatFunc)

// WithMeanAsMedian makes "mean" compute the column median, matching the
// Python dslinter plugin.
func WithMeanAsMedian() StatOption {
	return func(m map[string]StatFunc) {
		m[StatMean] = Median
	}
}

// WithStatistic adds or replaces a statistic.
func WithStatistic(name string, fn StatFunc) StatOption {
	return func(m map[string]StatFunc) {
		m[name] = fn
	}
}

// WithoutStatistic removes a statistic.
func WithoutStatistic(name string) StatOption {
	return func(m map[string]StatFunc) {
		delete(m, name)
	}
}

// DefaultStatistics returns the built-in statistic table.
func DefaultStatistics(opts ...StatOption) *Statistics {
	m := map[string]StatFunc{
		StatMin:     Min,
		StatMax:     Max,
		StatMean:    Mean,
		StatMedian:  Median,
		StatStddev:  Stddev,
		StatL2Norms: L2Norm,
	}
	for _, opt := range opts {
		opt(m)
	}
	return &Statistics{funcs: m}
}

// Lookup returns the named statistic.
func (s *Statistics) Lookup(name string) (StatFunc, bool) {
	fn, ok := s.funcs[name]
	return fn, ok
}

// Names returns the supported statistic names, sorted.
func (s *Statistics) Names() []string {
	return slices.Sorted(maps.Keys(s.funcs))
}

func present(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Min returns the smallest non-NaN value, or NaN for an empty column.
func Min(values []float64) float64 {
	vs := present(values)
	if len(vs) == 0 {
		return math.NaN()
	}
	return slices.Min(vs)
}

// Max returns the largest non-NaN value, or NaN for an empty column.
func Max(values []float64) float64 {
	vs := present(values)
	if len(vs) == 0 {
		return math.NaN()
	}
	return slices.Max(vs)
}

// Mean returns the arithmetic mean of the non-NaN values.
func Mean(values []float64) float64 {
	vs := present(values)
	if len(vs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// Median returns the median of the non-NaN values. For an even count it is the
// mean of the two middle values.
func Median(values []float64) float64 {
	vs := present(values)
	n := len(vs)
	if n == 0 {
		return math.NaN()
	}
	sort.Float64s(vs)
	if n%2 == 1 {
		return vs[n/2]
	}
	return (vs[n/2-1] + vs[n/2]) / 2
}

// Stddev returns the sample standard deviation (one delta degree of freedom).
// Fewer than two values give NaN.
func Stddev(values []float64) float64 {
	vs := present(values)
	if len(vs) < 2 {
		return math.NaN()
	}
	mean := Mean(vs)
	var ss float64
	for _, v := range vs {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vs)-1))
}

// L2Norm returns the Euclidean norm of the non-NaN values.
func L2Norm(values []float64) float64 {
	var ss float64
	for _, v := range values {
		if !math.IsNaN(v) {
			ss += v * v
		}
	}
	return math.Sqrt(ss)
}

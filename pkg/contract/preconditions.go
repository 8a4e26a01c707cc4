package contract

import (
	"fmt"
	"maps"
	"slices"

	"github.com/leapstack-labs/dslint/pkg/dataset"
)

// DefaultScaleThreshold is the largest accepted ratio between column L2 norms
// (exclusive).
const DefaultScaleThreshold = 10.0

// Precondition checks one property of a dataset. It must not modify anything
// but the properties cache.
type Precondition func(props *dataset.Properties, params Params) (bool, error)

// Params tune preconditions.
type Params struct {
	ScaleThreshold float64
}

// DefaultParams returns the built-in tuning.
func DefaultParams() Params {
	return Params{ScaleThreshold: DefaultScaleThreshold}
}

// Precondition names.
const (
	ScaleIsEqual = "scale_is_equal"
	RangeIsEqual = "range_is_equal"
)

var library = map[string]Precondition{
	ScaleIsEqual: scaleIsEqual,
	RangeIsEqual: rangeIsEqual,
}

// Lookup returns the named precondition.
func Lookup(name string) (Precondition, bool) {
	p, ok := library[name]
	return p, ok
}

// Names returns the precondition names, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(library))
}

// scaleIsEqual holds when the largest column L2 norm is less than
// ScaleThreshold times the smallest. A zero norm makes the ratio infinite.
func scaleIsEqual(props *dataset.Properties, params Params) (bool, error) {
	norms, err := props.Get(dataset.StatL2Norms)
	if err != nil {
		return false, fmt.Errorf("%s: %w", ScaleIsEqual, err)
	}
	if norms.Len() == 0 {
		return true, nil
	}
	ratio := slices.Max(norms.Values) / slices.Min(norms.Values)
	return ratio < params.ScaleThreshold, nil
}

// rangeIsEqual holds when every column shares the first column's minimum and
// maximum.
func rangeIsEqual(props *dataset.Properties, _ Params) (bool, error) {
	minima, err := props.Get(dataset.StatMin)
	if err != nil {
		return false, fmt.Errorf("%s: %w", RangeIsEqual, err)
	}
	maxima, err := props.Get(dataset.StatMax)
	if err != nil {
		return false, fmt.Errorf("%s: %w", RangeIsEqual, err)
	}
	return allEqual(minima.Values) && allEqual(maxima.Values), nil
}

func allEqual(vs []float64) bool {
	for _, v := range vs[min(1, len(vs)):] {
		if v != vs[0] {
			return false
		}
	}
	return true
}

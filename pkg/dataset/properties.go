package dataset

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnknownStatistic is returned when a statistic is requested that the
	// statistic table does not support. It indicates a broken rule definition.
	ErrUnknownStatistic = errors.New("unsupported statistic")

	// ErrAlreadyNamed is returned when a properties object is named twice.
	ErrAlreadyNamed = errors.New("properties already named")
)

// Properties is the lazily populated statistic cache of one dataset.
// It is not safe for concurrent use; each analysis unit owns its own.
type Properties struct {
	data  *Dataset
	stats *Statistics
	name  string

	cache map[string]Series
	order []string
}

// NewProperties returns an empty cache over d.
func NewProperties(d *Dataset, stats *Statistics) *Properties {
	if stats == nil {
		stats = DefaultStatistics()
	}
	return &Properties{
		data:  d,
		stats: stats,
		cache: make(map[string]Series),
	}
}

// Dataset returns the dataset the statistics are computed over.
func (p *Properties) Dataset() *Dataset { return p.data }

// Name returns the binding name, or "" if unnamed.
func (p *Properties) Name() string { return p.name }

// SetName names the properties. A second call fails with ErrAlreadyNamed.
func (p *Properties) SetName(name string) error {
	if p.name != "" {
		return fmt.Errorf("%w: %q cannot be renamed to %q", ErrAlreadyNamed, p.name, name)
	}
	p.name = name
	return nil
}

// Get returns the named statistic, computing and caching it on first use.
// The returned series must not be modified.
func (p *Properties) Get(stat string) (Series, error) {
	if s, ok := p.cache[stat]; ok {
		return s, nil
	}
	fn, ok := p.stats.Lookup(stat)
	if !ok {
		return Series{}, fmt.Errorf("%w %q (supported: %s)", ErrUnknownStatistic, stat, strings.Join(p.stats.Names(), ", "))
	}

	s := Series{
		Columns: p.data.Columns(),
		Values:  make([]float64, p.data.NumColumns()),
	}
	for i, c := range p.data.columns {
		s.Values[i] = fn(c.Values)
	}
	p.store(stat, s)
	return s, nil
}

// Computed reports whether stat is cached.
func (p *Properties) Computed(stat string) bool {
	_, ok := p.cache[stat]
	return ok
}

// ComputedNames lists cached statistics in the order they were added.
func (p *Properties) ComputedNames() []string {
	return slices.Clone(p.order)
}

// InheritFrom copies every statistic already computed on other, narrowed to
// columns. Statistics other has not computed are not forced.
func (p *Properties) InheritFrom(columns []string, other *Properties) error {
	for _, stat := range other.order {
		s, err := other.cache[stat].Select(columns)
		if err != nil {
			return fmt.Errorf("inherit %s from %s: %w", stat, other.label(), err)
		}
		p.store(stat, s)
	}
	return nil
}

func (p *Properties) store(stat string, s Series) {
	if _, ok := p.cache[stat]; !ok {
		p.order = append(p.order, stat)
	}
	p.cache[stat] = s
}

func (p *Properties) label() string {
	if p.name == "" {
		return "<unnamed>"
	}
	return p.name
}

func (p *Properties) String() string {
	return fmt.Sprintf("<DatasetProperties.%s: [%s]>", p.label(), strings.Join(p.order, ", "))
}

package dataset

import (
	"math/rand/v2"
	"slices"
)

// Reservoir keeps a uniform sample of at most n records from a stream of
// unknown length, so a source larger than memory can be read in one pass.
// Kept records retain their stream order.
type Reservoir struct {
	n    int
	seen int
	rng  *rand.Rand
	kept []reservoirRow
}

type reservoirRow struct {
	pos    int
	record []any
}

// NewReservoir returns a reservoir of n records. A non-positive n keeps every
// record.
func NewReservoir(n int, seed uint64) *Reservoir {
	return &Reservoir{n: n, rng: rand.New(rand.NewPCG(seed, seed))}
}

// Add offers the next record of the stream. The reservoir takes ownership of
// record.
func (r *Reservoir) Add(record []any) {
	pos := r.seen
	r.seen++
	if r.n <= 0 || len(r.kept) < r.n {
		r.kept = append(r.kept, reservoirRow{pos: pos, record: record})
		return
	}
	if j := r.rng.IntN(r.seen); j < r.n {
		r.kept[j] = reservoirRow{pos: pos, record: record}
	}
}

// Seen returns the number of records offered so far.
func (r *Reservoir) Seen() int { return r.seen }

// Records returns the kept records in stream order.
func (r *Reservoir) Records() [][]any {
	kept := slices.Clone(r.kept)
	slices.SortFunc(kept, func(a, b reservoirRow) int { return a.pos - b.pos })
	out := make([][]any, len(kept))
	for i, row := range kept {
		out[i] = row.record
	}
	return out
}

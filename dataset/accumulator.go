// dataset/accumulator.go
package dataset

import (
	"sort"

	"github.com/cruscotto/pipeline/models"
)

// Dataset start boundaries. Rows dated before the boundary are dropped
// at canonicalization: the project starts in 2017, and the landings chart
// format simply did not exist before September 2019.
const (
	StartBoundaryDefault  = "2017-01-01"
	StartBoundaryLandings = "2019-09-01"
)

// Accumulator collects the per-document record batches for one logical
// dataset and produces its canonical form. Reference dates are ISO
// strings, so chronological order is plain string order throughout.
type Accumulator[T models.Record] struct {
	Name       string
	StartsFrom string

	records []T
}

func NewAccumulator[T models.Record](name, startsFrom string) *Accumulator[T] {
	return &Accumulator[T]{Name: name, StartsFrom: startsFrom}
}

// Add appends a batch to the working set.
func (a *Accumulator[T]) Add(records []T) {
	a.records = append(a.records, records...)
}

// Len returns the size of the working set before canonicalization.
func (a *Accumulator[T]) Len() int { return len(a.records) }

// Canonical returns the date-sorted working set with rows before the
// dataset's start boundary removed. The sort is stable so rows sharing a
// reference date keep their extraction order.
func (a *Accumulator[T]) Canonical() []T {
	return SortAndFilter(a.records, a.StartsFrom)
}

// SortAndFilter sorts records chronologically and drops any row dated
// before startsFrom (or carrying an empty reference date).
func SortAndFilter[T models.Record](records []T, startsFrom string) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if r.RefDate() >= startsFrom {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RefDate() < out[j].RefDate()
	})
	return out
}

// MergeByDate merges a new batch into an existing canonical dataset with
// date-level supersede semantics: every existing row whose reference
// date appears anywhere in the batch is removed before the batch is
// appended, across all categories. This is not a row-by-row upsert.
//
// This means a batch that covers a date but is missing some of its
// categories silently drops those categories from the canonical set.
// Callers must therefore always submit complete per-date batches, i.e.
// the full output of reprocessing a document, never a slice of it.
func MergeByDate[T models.Record](existing, batch []T) []T {
	if len(batch) == 0 {
		return existing
	}

	touched := make(map[string]bool, len(batch))
	for _, r := range batch {
		touched[r.RefDate()] = true
	}

	merged := make([]T, 0, len(existing)+len(batch))
	for _, r := range existing {
		if !touched[r.RefDate()] {
			merged = append(merged, r)
		}
	}
	return append(merged, batch...)
}

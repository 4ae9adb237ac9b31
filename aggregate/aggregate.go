// Package aggregate computes column aggregations over index groups and
// float columns: group-wise means, first-wins modes and min-max scaling.
package aggregate

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/TFMV/spender/index"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GroupMeans computes, for every key of groups, the mean of values over the
// group's rows that are not set in missing. Keys whose rows are all missing
// have no entry in the result.
func GroupMeans(groups index.Index, values []float64, missing *roaring.Bitmap) map[interface{}]float64 {
	result := make(map[interface{}]float64)
	for _, key := range groups.Keys() {
		rows := groups.Rows(key)
		if rows == nil {
			continue
		}
		present := rows.Clone()
		if missing != nil {
			present.AndNot(missing)
		}
		if present.IsEmpty() {
			continue
		}
		xs := make([]float64, 0, present.GetCardinality())
		it := present.Iterator()
		for it.HasNext() {
			xs = append(xs, values[it.Next()])
		}
		result[key] = stat.Mean(xs, nil)
	}
	return result
}

// Mode returns the most frequent key of idx and its row count. When several
// keys tie, the one whose first row comes earliest wins. ok is false for an
// empty index.
func Mode(idx index.Index) (value interface{}, count uint64, ok bool) {
	var first uint32
	for _, key := range idx.Keys() {
		rows := idx.Rows(key)
		if rows == nil || rows.IsEmpty() {
			continue
		}
		n, lowest := rows.GetCardinality(), rows.Minimum()
		if !ok || n > count || (n == count && lowest < first) {
			value, count, first, ok = key, n, lowest, true
		}
	}
	return value, count, ok
}

// MinMax returns the smallest and largest of values. Both are 0 for an
// empty slice.
func MinMax(values []float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return floats.Min(values), floats.Max(values)
}

// Normalize rescales values to [0, 1] with (x - min) / (max - min). When
// every value is equal the range is degenerate and every result is 0.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	lo, hi := MinMax(values)
	span := hi - lo
	if span == 0 {
		return out
	}
	for i, x := range values {
		out[i] = (x - lo) / span
	}
	return out
}

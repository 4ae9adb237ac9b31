package cleaner

import (
	"errors"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring"
	"github.com/TFMV/spender/aggregate"
	"github.com/TFMV/spender/errs"
	"github.com/TFMV/spender/index"
	"github.com/TFMV/spender/table"
)

// normalizeFrequency maps each category through codes; missing and unmapped
// categories become 0. It returns the rows that fell through to 0.
func normalizeFrequency(t *table.Table, codes map[string]int64) (*roaring.Bitmap, error) {
	values, missing, err := t.Strings(table.Frequency)
	if err != nil {
		return nil, err
	}

	defaulted := roaring.New()
	counts := make([]int64, len(values))
	for i, v := range values {
		code, ok := codes[v]
		if !ok || missing.Contains(uint32(i)) {
			defaulted.Add(uint32(i))
			continue
		}
		counts[i] = code
	}

	arr := table.NewInt64Column(t.Allocator(), counts)
	defer arr.Release()
	return defaulted, t.Replace(table.Frequency, arr)
}

// imputeRating fills missing ratings with the column mode. Ties go to the
// value seen first in row order.
func imputeRating(t *table.Table, im *index.IndexManager) (float64, *roaring.Bitmap, error) {
	values, missing, err := t.Floats(table.ReviewRating)
	if err != nil {
		return 0, nil, err
	}

	var mode float64
	if !missing.IsEmpty() {
		keys := make([]interface{}, len(values))
		for i, v := range values {
			keys[i] = v
		}
		idx, err := im.Build(table.ReviewRating, index.RoaringBitmap, keys, missing)
		if err != nil {
			return 0, nil, err
		}
		value, _, ok := aggregate.Mode(idx)
		if !ok {
			return 0, nil, errs.DataQuality("impute", table.ReviewRating,
				errors.New("mode is undefined: column has no values"))
		}
		mode = value.(float64)

		it := missing.Iterator()
		for it.HasNext() {
			values[it.Next()] = mode
		}
	}

	arr := table.NewFloat64Column(t.Allocator(), values)
	defer arr.Release()
	return mode, missing, t.Replace(table.ReviewRating, arr)
}

// imputePreviousPurchases fills missing counts with 0.
func imputePreviousPurchases(t *table.Table) (*roaring.Bitmap, error) {
	values, missing, err := t.Floats(table.PreviousPurchases)
	if err != nil {
		return nil, err
	}
	// Floats already leaves 0 in missing cells.
	arr := table.NewFloat64Column(t.Allocator(), values)
	defer arr.Release()
	return missing, t.Replace(table.PreviousPurchases, arr)
}

// imputePurchaseAmount fills missing amounts with the mean amount of rows
// buying the same item, then truncates every amount toward zero.
func imputePurchaseAmount(t *table.Table, im *index.IndexManager) (map[string]float64, *roaring.Bitmap, error) {
	amounts, missing, err := t.Floats(table.PurchaseAmount)
	if err != nil {
		return nil, nil, err
	}
	items, itemMissing, err := t.Strings(table.ItemPurchased)
	if err != nil {
		return nil, nil, err
	}

	keys := make([]interface{}, len(items))
	for i, item := range items {
		keys[i] = item
	}
	groups, err := im.Build(table.ItemPurchased, index.HashIndex, keys, itemMissing)
	if err != nil {
		return nil, nil, err
	}
	means := aggregate.GroupMeans(groups, amounts, missing)

	it := missing.Iterator()
	for it.HasNext() {
		row := it.Next()
		if itemMissing.Contains(row) {
			return nil, nil, errs.DataQuality("impute", table.PurchaseAmount,
				fmt.Errorf("row %d: no %s to group by", row, table.ItemPurchased))
		}
		mean, ok := means[items[row]]
		if !ok {
			return nil, nil, errs.DataQuality("impute", table.PurchaseAmount,
				fmt.Errorf("row %d: item %q has no purchase amounts to average", row, items[row]))
		}
		amounts[row] = mean
	}

	truncated := make([]int64, len(amounts))
	for i, v := range amounts {
		if math.Abs(v) >= math.MaxInt64 {
			return nil, nil, errs.Schema("truncate", table.PurchaseAmount,
				fmt.Errorf("row %d: %v does not fit an integer", i, v))
		}
		truncated[i] = int64(v)
	}

	arr := table.NewInt64Column(t.Allocator(), truncated)
	defer arr.Release()

	byItem := make(map[string]float64, len(means))
	for k, v := range means {
		byItem[k.(string)] = v
	}
	return byItem, missing, t.Replace(table.PurchaseAmount, arr)
}

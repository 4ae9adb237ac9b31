// Package scorer derives the SpenderScore column from a cleaned purchase table.
package scorer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/TFMV/spender/aggregate"
	"github.com/TFMV/spender/config"
	"github.com/TFMV/spender/errs"
	"github.com/TFMV/spender/table"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/compute/exec"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"go.uber.org/zap"
)

// Scratch column names. They only exist on the scorer's working copy.
const (
	NormalizedPurchaseAmount    = "Normalized_Purchase_Amount"
	SubscriptionStatusNum       = "Subscription_Status_Num"
	NormalizedFrequency         = "Normalized_Frequency"
	NormalizedPreviousPurchases = "Normalized_Previous_Purchases"
	SpendingScore               = "Spending_Score"
)

// Subscribed is the subscription status that sets the flag, compared
// case-insensitively.
const Subscribed = "subscribed"

// RequiredColumns are the columns the score reads.
var RequiredColumns = []string{
	table.PurchaseAmount,
	table.Frequency,
	table.PreviousPurchases,
	table.SubscriptionStatus,
}

var arithmetic = compute.ArithmeticOptions{NoCheckOverflow: true}

// Scorer computes the weighted spender score.
type Scorer struct {
	weights config.Weights
	logger  *zap.Logger
}

// NewScorer creates a new Scorer.
func NewScorer(weights config.Weights, logger *zap.Logger) (*Scorer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &Scorer{weights: weights, logger: logger}, nil
}

// Score appends SpenderScore to t, one value in [0, 100] per row. The
// intermediate columns are built on a working copy and never reach t.
func (s *Scorer) Score(ctx context.Context, t *table.Table) error {
	if err := t.Require("score", RequiredColumns...); err != nil {
		return err
	}

	work := t.Clone()
	defer work.Release()

	for _, step := range []struct {
		source, target string
	}{
		{table.PurchaseAmount, NormalizedPurchaseAmount},
		{table.Frequency, NormalizedFrequency},
		{table.PreviousPurchases, NormalizedPreviousPurchases},
	} {
		if err := appendNormalized(work, step.source, step.target); err != nil {
			return err
		}
	}

	subscribed, err := appendSubscriptionFlag(work)
	if err != nil {
		return err
	}

	raw, err := s.weightedSum(ctx, work)
	if err != nil {
		return fmt.Errorf("failed to compute %s: %w", SpendingScore, err)
	}
	defer raw.Release()
	if err := work.Append(SpendingScore, raw); err != nil {
		return err
	}

	values := raw.(*array.Float64).Float64Values()
	lo, hi := aggregate.MinMax(values)
	final := aggregate.Normalize(values)
	for i := range final {
		final[i] *= 100
	}

	col := table.NewFloat64Column(t.Allocator(), final)
	defer col.Release()
	if err := t.Append(table.SpenderScore, col); err != nil {
		return fmt.Errorf("failed to append %s: %w", table.SpenderScore, err)
	}

	s.logger.Info("Scored table",
		zap.Int("rows", t.NumRows()),
		zap.Int("subscribed", subscribed),
		zap.Float64("raw_min", lo),
		zap.Float64("raw_max", hi),
	)
	return nil
}

func appendNormalized(work *table.Table, source, target string) error {
	values, missing, err := work.Floats(source)
	if err != nil {
		return err
	}
	if !missing.IsEmpty() {
		return errs.Schema("score", source, fmt.Errorf("%d missing values", missing.GetCardinality()))
	}
	col := table.NewFloat64Column(work.Allocator(), aggregate.Normalize(values))
	defer col.Release()
	return work.Append(target, col)
}

func appendSubscriptionFlag(work *table.Table) (int, error) {
	values, missing, err := work.Strings(table.SubscriptionStatus)
	if err != nil {
		return 0, err
	}
	flags := make([]int64, len(values))
	count := 0
	for i, v := range values {
		if missing.Contains(uint32(i)) {
			continue
		}
		if strings.ToLower(v) == Subscribed {
			flags[i] = 1
			count++
		}
	}
	col := table.NewInt64Column(work.Allocator(), flags)
	defer col.Release()
	return count, work.Append(SubscriptionStatusNum, col)
}

// weightedSum evaluates
//
//	wp*Normalized_Purchase_Amount + wf*Normalized_Frequency +
//	ws*Subscription_Status_Num + wpp*Normalized_Previous_Purchases
//
// left to right with compute kernels.
func (s *Scorer) weightedSum(ctx context.Context, work *table.Table) (arrow.Array, error) {
	ctx = exec.WithAllocator(ctx, work.Allocator())

	terms := []struct {
		column string
		weight float64
	}{
		{NormalizedPurchaseAmount, s.weights.PurchaseAmount},
		{NormalizedFrequency, s.weights.Frequency},
		{SubscriptionStatusNum, s.weights.Subscription},
		{NormalizedPreviousPurchases, s.weights.PreviousPurchases},
	}

	var acc compute.Datum
	for _, term := range terms {
		col, err := work.Column(term.column)
		if err != nil {
			releaseDatum(acc)
			return nil, err
		}
		prod, err := weighted(ctx, col, term.weight)
		if err != nil {
			releaseDatum(acc)
			return nil, fmt.Errorf("failed to weight %s: %w", term.column, err)
		}
		if acc == nil {
			acc = prod
			continue
		}
		sum, err := compute.Add(ctx, arithmetic, acc, prod)
		acc.Release()
		prod.Release()
		if err != nil {
			return nil, fmt.Errorf("failed to add %s: %w", term.column, err)
		}
		acc = sum
	}
	defer acc.Release()

	arr, ok := acc.(*compute.ArrayDatum)
	if !ok {
		return nil, fmt.Errorf("unexpected datum kind %s", acc.Kind())
	}
	return arr.MakeArray(), nil
}

func weighted(ctx context.Context, col arrow.Array, weight float64) (compute.Datum, error) {
	if col.DataType().ID() != arrow.FLOAT64 {
		cast, err := compute.CastToType(ctx, col, arrow.PrimitiveTypes.Float64)
		if err != nil {
			return nil, err
		}
		defer cast.Release()
		col = cast
	}
	w := compute.NewDatum(scalar.NewFloat64Scalar(weight))
	defer w.Release()
	c := compute.NewDatum(col)
	defer c.Release()
	return compute.Multiply(ctx, arithmetic, w, c)
}

func releaseDatum(d compute.Datum) {
	if d != nil {
		d.Release()
	}
}

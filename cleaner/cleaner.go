// Package cleaner applies the column imputation and normalisation rules that
// turn a raw purchase table into a cleaned one.
package cleaner

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/TFMV/spender/config"
	"github.com/TFMV/spender/index"
	"github.com/TFMV/spender/table"
	"go.uber.org/zap"
)

// RequiredColumns are the columns the cleaning rules read or drop.
var RequiredColumns = []string{
	table.CustomerID,
	table.ItemPurchased,
	table.PurchaseAmount,
	table.Frequency,
	table.ReviewRating,
	table.PreviousPurchases,
}

// Report records which rows each rule changed.
type Report struct {
	Rows int

	// FrequencyDefaulted holds rows whose category was missing or unmapped
	// and resolved to 0.
	FrequencyDefaulted *roaring.Bitmap

	RatingImputed *roaring.Bitmap
	RatingMode    float64

	PreviousPurchasesImputed *roaring.Bitmap

	AmountImputed *roaring.Bitmap
	// GroupMeans holds the mean purchase amount per item, over the rows
	// that had one.
	GroupMeans map[string]float64
}

// Imputed returns the number of changed cells per column.
func (r *Report) Imputed() map[string]uint64 {
	return map[string]uint64{
		table.Frequency:         r.FrequencyDefaulted.GetCardinality(),
		table.ReviewRating:      r.RatingImputed.GetCardinality(),
		table.PreviousPurchases: r.PreviousPurchasesImputed.GetCardinality(),
		table.PurchaseAmount:    r.AmountImputed.GetCardinality(),
	}
}

// DataCleaner runs the cleaning rules.
type DataCleaner struct {
	cfg     config.Config
	logger  *zap.Logger
	indexes *index.IndexManager
}

// NewDataCleaner creates a new DataCleaner.
func NewDataCleaner(cfg config.Config, logger *zap.Logger) (*DataCleaner, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.FrequencyCodes == nil {
		return nil, errors.New("frequency codes cannot be nil")
	}
	return &DataCleaner{
		cfg:    cfg,
		logger: logger,
		indexes: index.NewIndexManager(index.IndexSettings{
			HashIndexSize: 64,
		}),
	}, nil
}

// Clean edits t in place so that Frequency of Purchases holds per-year
// counts, Review Rating, Previous Purchases and Purchase Amount (USD) have
// no missing cells, Purchase Amount (USD) is integral, and Customer ID is
// gone. On error t is left partially cleaned and should be discarded.
func (c *DataCleaner) Clean(t *table.Table) (*Report, error) {
	if err := t.Require("clean", RequiredColumns...); err != nil {
		return nil, err
	}

	report := &Report{Rows: t.NumRows()}
	var err error

	if report.FrequencyDefaulted, err = normalizeFrequency(t, c.cfg.FrequencyCodes); err != nil {
		return nil, fmt.Errorf("failed to normalize frequency: %w", err)
	}
	if report.RatingMode, report.RatingImputed, err = imputeRating(t, c.indexes); err != nil {
		return nil, fmt.Errorf("failed to impute review rating: %w", err)
	}
	if report.PreviousPurchasesImputed, err = imputePreviousPurchases(t); err != nil {
		return nil, fmt.Errorf("failed to impute previous purchases: %w", err)
	}
	if report.GroupMeans, report.AmountImputed, err = imputePurchaseAmount(t, c.indexes); err != nil {
		return nil, fmt.Errorf("failed to impute purchase amount: %w", err)
	}
	if err := t.Drop(table.CustomerID); err != nil {
		return nil, fmt.Errorf("failed to drop %q: %w", table.CustomerID, err)
	}

	c.logger.Info("Cleaned table",
		zap.Int("rows", report.Rows),
		zap.Uint64("frequency_defaulted", report.FrequencyDefaulted.GetCardinality()),
		zap.Uint64("rating_imputed", report.RatingImputed.GetCardinality()),
		zap.Float64("rating_mode", report.RatingMode),
		zap.Uint64("previous_purchases_imputed", report.PreviousPurchasesImputed.GetCardinality()),
		zap.Uint64("amount_imputed", report.AmountImputed.GetCardinality()),
		zap.Int("item_groups", len(report.GroupMeans)),
	)
	return report, nil
}

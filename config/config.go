// Package config holds the settings of a spender run.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

const (
	// DefaultInputPath is the fixed relative path of the raw dataset.
	DefaultInputPath = "Project1.csv"
	// DefaultOutputPath is the fixed relative path of the cleaned dataset.
	DefaultOutputPath = "cleaned_data.csv"
)

// DefaultNullTokens is the set of cell texts read as missing. It mirrors the
// NA markers recognised by common dataframe CSV readers. A single space is
// deliberately absent: it is a frequency category of its own.
var DefaultNullTokens = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

// Weights are the coefficients of the spender score's weighted sum.
// They total 110, not 100; the final rescale makes the total irrelevant
// to the score's range.
type Weights struct {
	PurchaseAmount    float64
	Frequency         float64
	Subscription      float64
	PreviousPurchases float64
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{
		PurchaseAmount:    40,
		Frequency:         25,
		Subscription:      15,
		PreviousPurchases: 30,
	}
}

// Sum returns the total of all four weights.
func (w Weights) Sum() float64 {
	return w.PurchaseAmount + w.Frequency + w.Subscription + w.PreviousPurchases
}

// DefaultFrequencyCodes maps purchase-frequency categories to purchases per
// year. Lookups are exact and case-sensitive.
func DefaultFrequencyCodes() map[string]int64 {
	return map[string]int64{
		"Weekly":      52,
		"Fortnightly": 26,
		"Monthly":     13,
		"Annually":    1,
		"Yearly":      1,
		" ":           0,
	}
}

// Config represents the run configuration.
type Config struct {
	InputPath  string
	OutputPath string

	// NullTokens are cell texts treated as missing values.
	NullTokens []string
	// FrequencyCodes maps Frequency of Purchases categories to counts per
	// year; anything else resolves to 0.
	FrequencyCodes map[string]int64
	Weights        Weights
}

// Default returns the configuration of the production run.
func Default() Config {
	tokens := make([]string, len(DefaultNullTokens))
	copy(tokens, DefaultNullTokens)
	return Config{
		InputPath:      DefaultInputPath,
		OutputPath:     DefaultOutputPath,
		NullTokens:     tokens,
		FrequencyCodes: DefaultFrequencyCodes(),
		Weights:        DefaultWeights(),
	}
}

// Validate ensures the configuration can drive a run.
func (c Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("input path is required")
	}
	if c.OutputPath == "" {
		return errors.New("output path is required")
	}
	if filepath.Clean(c.InputPath) == filepath.Clean(c.OutputPath) {
		return fmt.Errorf("output path %q must differ from input path", c.OutputPath)
	}
	for category, code := range c.FrequencyCodes {
		if code < 0 {
			return fmt.Errorf("frequency code for %q cannot be negative", category)
		}
	}
	w := c.Weights
	for name, v := range map[string]float64{
		"purchase amount":    w.PurchaseAmount,
		"frequency":          w.Frequency,
		"subscription":       w.Subscription,
		"previous purchases": w.PreviousPurchases,
	} {
		if v < 0 {
			return fmt.Errorf("%s weight cannot be negative", name)
		}
	}
	if w.Sum() == 0 {
		return errors.New("at least one score weight must be positive")
	}
	return nil
}

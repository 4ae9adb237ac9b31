// Package pipeline runs the load, clean, score and save stages over one
// purchase file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TFMV/spender/cleaner"
	"github.com/TFMV/spender/config"
	"github.com/TFMV/spender/scorer"
	"github.com/TFMV/spender/storage"
	"github.com/TFMV/spender/table"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage names, used as the stage metric label.
const (
	StageLoad  = "load"
	StageClean = "clean"
	StageScore = "score"
	StageSave  = "save"
)

// Summary describes a completed run.
type Summary struct {
	RunID    string
	Rows     int
	Columns  []string
	Report   *cleaner.Report
	Duration time.Duration
}

// Pipeline wires the stages for one configuration.
type Pipeline struct {
	cfg     config.Config
	logger  *zap.Logger
	cleaner *cleaner.DataCleaner
	scorer  *scorer.Scorer
	opts    []storage.Option
}

// New creates a Pipeline. opts are passed to the loader after the
// configured null tokens.
func New(cfg config.Config, logger *zap.Logger, opts ...storage.Option) (*Pipeline, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	c, err := cleaner.NewDataCleaner(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create cleaner: %w", err)
	}
	s, err := scorer.NewScorer(cfg.Weights, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scorer: %w", err)
	}
	return &Pipeline{
		cfg:     cfg,
		logger:  logger,
		cleaner: c,
		scorer:  s,
		opts:    append([]storage.Option{storage.WithNullTokens(cfg.NullTokens...)}, opts...),
	}, nil
}

// Run executes the stages in order. The output file is only written when
// every earlier stage succeeded, and ctx is checked before each stage.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	sum := &Summary{RunID: uuid.New().String()}
	logger := p.logger.With(zap.String("run_id", sum.RunID))
	logger.Info("Starting run",
		zap.String("input", p.cfg.InputPath),
		zap.String("output", p.cfg.OutputPath))

	var t *table.Table
	err := p.stage(ctx, logger, StageLoad, func() error {
		var err error
		t, err = storage.Load(p.cfg.InputPath, p.opts...)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer t.Release()

	err = p.stage(ctx, logger, StageClean, func() error {
		var err error
		sum.Report, err = p.cleaner.Clean(t)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := p.stage(ctx, logger, StageScore, func() error {
		return p.scorer.Score(ctx, t)
	}); err != nil {
		return nil, err
	}

	if err := p.stage(ctx, logger, StageSave, func() error {
		return storage.Save(t, p.cfg.OutputPath)
	}); err != nil {
		return nil, err
	}

	sum.Rows = t.NumRows()
	sum.Columns = t.ColumnNames()
	sum.Duration = time.Since(start)

	rowsProcessed.Add(float64(sum.Rows))
	for column, n := range sum.Report.Imputed() {
		cellsImputed.WithLabelValues(column).Add(float64(n))
	}

	logger.Info("Run complete",
		zap.Int("rows", sum.Rows),
		zap.Strings("columns", sum.Columns),
		zap.Duration("duration", sum.Duration))
	return sum, nil
}

func (p *Pipeline) stage(ctx context.Context, logger *zap.Logger, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled before %s: %w", name, err)
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	stageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		logger.Error("Stage failed", zap.String("stage", name), zap.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.Debug("Stage finished", zap.String("stage", name), zap.Duration("elapsed", elapsed))
	return nil
}

// Run validates cfg and runs a Pipeline built from it once.
func Run(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Summary, error) {
	p, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx)
}

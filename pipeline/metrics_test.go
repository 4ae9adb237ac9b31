package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/TFMV/spender/config"
	"github.com/TFMV/spender/table"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunRecordsMetrics(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.InputPath = filepath.Join(dir, "in.csv")
	cfg.OutputPath = filepath.Join(dir, "out.csv")
	input := "Customer ID,Item Purchased,Purchase Amount (USD),Frequency of Purchases,Review Rating,Previous Purchases,Subscription Status\n" +
		"1,Shoes,40,Weekly,4,,Yes\n" +
		"2,Shoes,,Daily,,3,No\n"
	require.NoError(t, os.WriteFile(cfg.InputPath, []byte(input), 0o644))

	rows := testutil.ToFloat64(rowsProcessed)
	amounts := testutil.ToFloat64(cellsImputed.WithLabelValues(table.PurchaseAmount))
	frequencies := testutil.ToFloat64(cellsImputed.WithLabelValues(table.Frequency))
	previous := testutil.ToFloat64(cellsImputed.WithLabelValues(table.PreviousPurchases))

	_, err := Run(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, rows+2, testutil.ToFloat64(rowsProcessed))
	assert.Equal(t, amounts+1, testutil.ToFloat64(cellsImputed.WithLabelValues(table.PurchaseAmount)))
	assert.Equal(t, frequencies+1, testutil.ToFloat64(cellsImputed.WithLabelValues(table.Frequency)))
	assert.Equal(t, previous+1, testutil.ToFloat64(cellsImputed.WithLabelValues(table.PreviousPurchases)))

	assert.Equal(t, 4, testutil.CollectAndCount(stageDuration))
}

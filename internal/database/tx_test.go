package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-visitors/internal/database"
	"ms-visitors/internal/database/dbtest"
	"ms-visitors/internal/models"
)

func insertPrice(ctx context.Context, t *testing.T, runner *database.TxRunner, vt models.VisitorType) error {
	t.Helper()
	price := &models.TicketPrice{Type: vt, Price: decimal.NewFromInt(3), LastUpdated: time.Now().UTC(), UpdatedBy: "test"}
	_, err := database.Conn(ctx, runner.DB).NewInsert().Model(price).Exec(ctx)
	return err
}

func countPrices(t *testing.T, runner *database.TxRunner) int {
	n, err := runner.DB.NewSelect().Model((*models.TicketPrice)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestRunInTx_CommitsOnSuccess(t *testing.T) {
	runner := &database.TxRunner{DB: dbtest.New(t)}

	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		return insertPrice(ctx, t, runner, models.VisitorAdult)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countPrices(t, runner))
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	runner := &database.TxRunner{DB: dbtest.New(t)}
	boom := errors.New("boom")

	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, insertPrice(ctx, t, runner, models.VisitorAdult))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countPrices(t, runner))
}

func TestRunInTx_NestedCallsJoinOuter(t *testing.T) {
	runner := &database.TxRunner{DB: dbtest.New(t)}
	boom := errors.New("boom")

	err := runner.RunInTx(context.Background(), func(ctx context.Context) error {
		require.NoError(t, runner.RunInTx(ctx, func(ctx context.Context) error {
			return insertPrice(ctx, t, runner, models.VisitorChild)
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countPrices(t, runner))
}

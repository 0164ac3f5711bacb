package migrations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-visitors/internal/auth"
	"ms-visitors/internal/config"
	"ms-visitors/internal/database/dbtest"
	"ms-visitors/internal/database/migrations"
	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
)

func TestSeed_IsIdempotent(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	cfg := config.SeedConfig{AdminUsername: "admin", AdminEmail: "admin@zoo.local", AdminPassword: "changeme"}

	require.NoError(t, migrations.Seed(ctx, db, cfg, 4, logger.NewNop()))
	require.NoError(t, migrations.Seed(ctx, db, cfg, 4, logger.NewNop()))

	var prices []models.TicketPrice
	require.NoError(t, db.NewSelect().Model(&prices).Order("type ASC").Scan(ctx))
	require.Len(t, prices, 4)
	for _, p := range prices {
		assert.True(t, migrations.DefaultPrices[p.Type].Equal(p.Price), p.Type)
	}

	var users []models.User
	require.NoError(t, db.NewSelect().Model(&users).Scan(ctx))
	require.Len(t, users, 1)
	assert.Equal(t, models.RoleAdmin, users[0].Role)
	assert.True(t, users[0].IsActive)
	assert.True(t, auth.CheckPassword(users[0].PasswordHash, "changeme"))
}

func TestSeed_KeepsEditedPrices(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()

	require.NoError(t, migrations.Seed(ctx, db, config.SeedConfig{}, 4, logger.NewNop()))
	_, err := db.NewUpdate().Model((*models.TicketPrice)(nil)).Set("price = ?", 12).Where("type = ?", models.VisitorAdult).Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, migrations.Seed(ctx, db, config.SeedConfig{}, 4, logger.NewNop()))

	var adult models.TicketPrice
	require.NoError(t, db.NewSelect().Model(&adult).Where("type = ?", models.VisitorAdult).Scan(ctx))
	assert.Equal(t, "12.00", adult.Price.StringFixed(2))

	n, err := db.NewSelect().Model((*models.User)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

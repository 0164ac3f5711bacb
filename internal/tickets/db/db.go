package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"ms-visitors/internal/apperr"
	"ms-visitors/internal/database"
	"ms-visitors/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) GetPrice(ctx context.Context, t models.VisitorType) (*models.TicketPrice, error) {
	var price models.TicketPrice
	err := database.Conn(ctx, d.Bun).NewSelect().
		Model(&price).
		Where("type = ?", t).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrTicketTypeNotFound
	}
	if err != nil {
		return nil, apperr.Storage("select ticket price", err)
	}
	return &price, nil
}

func (d *DB) ListPrices(ctx context.Context) ([]models.TicketPrice, error) {
	prices := make([]models.TicketPrice, 0, len(models.VisitorTypes))
	err := database.Conn(ctx, d.Bun).NewSelect().
		Model(&prices).
		Order("type ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.Storage("list ticket prices", err)
	}
	return prices, nil
}

// UpdatePrice overwrites the price of an existing row. Rows are never
// created here.
func (d *DB) UpdatePrice(ctx context.Context, t models.VisitorType, price decimal.Decimal, updatedBy string, at time.Time) (*models.TicketPrice, error) {
	res, err := database.Conn(ctx, d.Bun).NewUpdate().
		Model((*models.TicketPrice)(nil)).
		Set("price = ?", price).
		Set("last_updated = ?", at).
		Set("updated_by = ?", updatedBy).
		Where("type = ?", t).
		Exec(ctx)
	if err != nil {
		return nil, apperr.Storage("update ticket price", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, apperr.ErrTicketTypeNotFound
	}
	return d.GetPrice(ctx, t)
}

package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"ms-visitors/internal/apperr"
	"ms-visitors/internal/database"
	"ms-visitors/internal/models"
)

// DB runs the grouped visitor queries.
type DB struct {
	bun *bun.DB
}

func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

func (db *DB) conn(ctx context.Context) bun.IDB {
	return database.Conn(ctx, db.bun)
}

// inPeriod restricts q to visit dates inside p, bounds included.
func inPeriod(q *bun.SelectQuery, p models.Period) *bun.SelectQuery {
	return q.Where("visit_date >= ?", p.Start.UTC()).Where("visit_date <= ?", p.End.UTC())
}

// AggregateByType counts visitors and sums charged prices per type.
func (db *DB) AggregateByType(ctx context.Context, p models.Period) ([]models.TypeStats, error) {
	var rows []models.TypeStats
	q := db.conn(ctx).NewSelect().
		TableExpr("visitors").
		ColumnExpr("type").
		ColumnExpr("COUNT(*) AS total_visitors").
		ColumnExpr("COALESCE(SUM(ticket_price), 0) AS total_revenue")
	err := inPeriod(q, p).
		GroupExpr("type").
		OrderExpr("type ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, apperr.Storage("aggregate visitors by type", err)
	}
	return rows, nil
}

// SalesByType is the ticket sales breakdown. Nil bounds are open.
func (db *DB) SalesByType(ctx context.Context, from, to *time.Time) ([]models.TicketSalesStats, error) {
	rows := []models.TicketSalesStats{}
	q := db.conn(ctx).NewSelect().
		TableExpr("visitors").
		ColumnExpr("type").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("COALESCE(SUM(ticket_price), 0) AS total_revenue")
	if from != nil {
		q = q.Where("visit_date >= ?", from.UTC())
	}
	if to != nil {
		q = q.Where("visit_date <= ?", to.UTC())
	}
	if err := q.GroupExpr("type").OrderExpr("type ASC").Scan(ctx, &rows); err != nil {
		return nil, apperr.Storage("ticket sales by type", err)
	}
	return rows, nil
}

type totalsRow struct {
	Count   int64           `bun:"count"`
	Revenue decimal.Decimal `bun:"revenue"`
}

// Totals returns the visitor count and revenue inside p.
func (db *DB) Totals(ctx context.Context, p models.Period) (int64, decimal.Decimal, error) {
	var row totalsRow
	q := db.conn(ctx).NewSelect().
		TableExpr("visitors").
		ColumnExpr("COUNT(*) AS count").
		ColumnExpr("COALESCE(SUM(ticket_price), 0) AS revenue")
	if err := inPeriod(q, p).Scan(ctx, &row); err != nil {
		return 0, decimal.Zero, apperr.Storage("visitor totals", err)
	}
	return row.Count, row.Revenue, nil
}

// RecentVisitors returns the latest visits, newest visit date first.
func (db *DB) RecentVisitors(ctx context.Context, limit int) ([]models.Visitor, error) {
	visitors := []models.Visitor{}
	err := db.conn(ctx).NewSelect().
		Model(&visitors).
		Order("visit_date DESC", "created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, apperr.Storage("recent visitors", err)
	}
	return visitors, nil
}

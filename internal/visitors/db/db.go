package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/uptrace/bun"

	"ms-visitors/internal/apperr"
	"ms-visitors/internal/database"
	"ms-visitors/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) conn(ctx context.Context) bun.IDB {
	return database.Conn(ctx, d.Bun)
}

func (d *DB) CreateVisitor(ctx context.Context, v *models.Visitor) error {
	if _, err := d.conn(ctx).NewInsert().Model(v).Exec(ctx); err != nil {
		return apperr.Storage("insert visitor", err)
	}
	return nil
}

func (d *DB) GetVisitorByID(ctx context.Context, id string) (*models.Visitor, error) {
	var v models.Visitor
	err := d.conn(ctx).NewSelect().
		Model(&v).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrVisitorNotFound
	}
	if err != nil {
		return nil, apperr.Storage("select visitor", err)
	}
	return &v, nil
}

// UpdateVisitor writes every mutable column. Identity and creation columns
// are left alone.
func (d *DB) UpdateVisitor(ctx context.Context, v *models.Visitor) error {
	res, err := d.conn(ctx).NewUpdate().
		Model(v).
		Column("full_name", "type", "nationality", "visit_date", "arrival_time",
			"phone", "email", "comments", "group_size", "ticket_price", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return apperr.Storage("update visitor", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrVisitorNotFound
	}
	return nil
}

func (d *DB) DeleteVisitor(ctx context.Context, id string) error {
	res, err := d.conn(ctx).NewDelete().
		Model((*models.Visitor)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return apperr.Storage("delete visitor", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrVisitorNotFound
	}
	return nil
}

func applyFilter(q *bun.SelectQuery, f models.VisitorFilter) *bun.SelectQuery {
	if f.Search != "" {
		pattern := "%" + strings.ToLower(f.Search) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(full_name) LIKE ?", pattern).
				WhereOr("LOWER(phone) LIKE ?", pattern).
				WhereOr("LOWER(email) LIKE ?", pattern)
		})
	}
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.FromDate != nil {
		q = q.Where("visit_date >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("visit_date <= ?", f.ToDate.UTC())
	}
	return q
}

// ListVisitors returns one page, newest visit date first, and the number of
// matching rows.
func (d *DB) ListVisitors(ctx context.Context, f models.VisitorFilter) ([]models.Visitor, int, error) {
	total, err := applyFilter(d.conn(ctx).NewSelect().Model((*models.Visitor)(nil)), f).Count(ctx)
	if err != nil {
		return nil, 0, apperr.Storage("count visitors", err)
	}

	visitors := []models.Visitor{}
	err = applyFilter(d.conn(ctx).NewSelect().Model(&visitors), f).
		Order("visit_date DESC", "created_at DESC").
		Limit(f.Limit).
		Offset((f.Page - 1) * f.Limit).
		Scan(ctx)
	if err != nil {
		return nil, 0, apperr.Storage("list visitors", err)
	}
	return visitors, total, nil
}

// VisitorsInPeriod returns every visitor of p ordered by visit date.
func (d *DB) VisitorsInPeriod(ctx context.Context, p models.Period) ([]models.Visitor, error) {
	visitors := []models.Visitor{}
	err := d.conn(ctx).NewSelect().
		Model(&visitors).
		Where("visit_date >= ?", p.Start.UTC()).
		Where("visit_date <= ?", p.End.UTC()).
		Order("visit_date ASC", "created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, apperr.Storage("visitors in period", err)
	}
	return visitors, nil
}

package db

import (
	"context"
	"database/sql"
	"errors"

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

func (d *DB) getBy(ctx context.Context, column, value string) (*models.User, error) {
	var u models.User
	err := d.conn(ctx).NewSelect().
		Model(&u).
		Where("? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrUserNotFound
	}
	if err != nil {
		return nil, apperr.Storage("select user", err)
	}
	return &u, nil
}

func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return d.getBy(ctx, "id", id)
}

func (d *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return d.getBy(ctx, "username", username)
}

// UsernameOrEmailTaken reports whether another user already holds either
// value.
func (d *DB) UsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error) {
	exists, err := d.conn(ctx).NewSelect().
		Model((*models.User)(nil)).
		Where("username = ?", username).
		WhereOr("email = ?", email).
		Exists(ctx)
	if err != nil {
		return false, apperr.Storage("check user", err)
	}
	return exists, nil
}

// EmailTaken reports whether a user other than exceptID holds email.
func (d *DB) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	exists, err := d.conn(ctx).NewSelect().
		Model((*models.User)(nil)).
		Where("email = ?", email).
		Where("id <> ?", exceptID).
		Exists(ctx)
	if err != nil {
		return false, apperr.Storage("check email", err)
	}
	return exists, nil
}

func (d *DB) CreateUser(ctx context.Context, u *models.User) error {
	if _, err := d.conn(ctx).NewInsert().Model(u).Exec(ctx); err != nil {
		return apperr.Storage("insert user", err)
	}
	return nil
}

func (d *DB) UpdateUser(ctx context.Context, u *models.User) error {
	res, err := d.conn(ctx).NewUpdate().
		Model(u).
		Column("email", "password_hash", "role", "is_active", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return apperr.Storage("update user", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrUserNotFound
	}
	return nil
}

func (d *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := d.conn(ctx).NewSelect().Model(&users).Order("username ASC").Scan(ctx); err != nil {
		return nil, apperr.Storage("list users", err)
	}
	return users, nil
}

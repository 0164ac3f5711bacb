package migrations

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"ms-visitors/internal/auth"
	"ms-visitors/internal/config"
	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
	"ms-visitors/internal/utils"
)

// DefaultPrices is the price table installed on first start.
var DefaultPrices = map[models.VisitorType]decimal.Decimal{
	models.VisitorAdult:   decimal.NewFromInt(10),
	models.VisitorChild:   decimal.NewFromInt(5),
	models.VisitorStudent: decimal.NewFromInt(7),
	models.VisitorGroup:   decimal.NewFromInt(8),
}

const seedActor = "system"

// Seed installs missing default prices and the bootstrap admin. Existing rows
// are never touched.
func Seed(ctx context.Context, db *bun.DB, cfg config.SeedConfig, bcryptCost int, log *logger.Logger) error {
	now := time.Now().UTC().Truncate(time.Second)

	for _, vt := range models.VisitorTypes {
		exists, err := db.NewSelect().Model((*models.TicketPrice)(nil)).Where("type = ?", vt).Exists(ctx)
		if err != nil {
			return fmt.Errorf("check price %s: %w", vt, err)
		}
		if exists {
			continue
		}
		price := &models.TicketPrice{Type: vt, Price: DefaultPrices[vt], LastUpdated: now, UpdatedBy: seedActor}
		if _, err := db.NewInsert().Model(price).Exec(ctx); err != nil {
			return fmt.Errorf("seed price %s: %w", vt, err)
		}
		log.LogDatabase("SEED", "ticket_prices", fmt.Sprintf("%s = %s", vt, price.Price.StringFixed(2)))
	}

	if cfg.AdminPassword == "" {
		log.Warn("SEED", "SEED_ADMIN_PASSWORD not set, skipping admin user")
		return nil
	}

	exists, err := db.NewSelect().Model((*models.User)(nil)).Where("username = ?", cfg.AdminUsername).Exists(ctx)
	if err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword, bcryptCost)
	if err != nil {
		return err
	}
	admin := &models.User{
		ID:           utils.NewID(),
		Username:     cfg.AdminUsername,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := db.NewInsert().Model(admin).Exec(ctx); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	log.LogDatabase("SEED", "users", fmt.Sprintf("admin user %q created", admin.Username))
	return nil
}

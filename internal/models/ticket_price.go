package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// TicketPrice is the current unit price for one visitor type. There is
// exactly one row per type.
type TicketPrice struct {
	bun.BaseModel `bun:"table:ticket_prices"`

	Type        VisitorType     `bun:"type,pk" json:"type"`
	Price       decimal.Decimal `bun:"price,type:numeric(12,2),notnull" json:"price"`
	LastUpdated time.Time       `bun:"last_updated,notnull" json:"last_updated"`
	UpdatedBy   string          `bun:"updated_by,notnull" json:"updated_by"`
}

// TicketSalesStats is the per-type sales summary of the ticket stats endpoint.
type TicketSalesStats struct {
	Type         VisitorType     `bun:"type" json:"type"`
	Count        int64           `bun:"count" json:"count"`
	TotalRevenue decimal.Decimal `bun:"total_revenue" json:"total_revenue"`
}

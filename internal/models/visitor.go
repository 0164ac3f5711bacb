package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// VisitorType is the pricing tier of a visitor record.
type VisitorType string

const (
	VisitorAdult   VisitorType = "adult"
	VisitorChild   VisitorType = "child"
	VisitorStudent VisitorType = "student"
	VisitorGroup   VisitorType = "group"
)

// VisitorTypes lists every valid visitor type.
var VisitorTypes = []VisitorType{VisitorAdult, VisitorChild, VisitorStudent, VisitorGroup}

func (t VisitorType) Valid() bool {
	for _, vt := range VisitorTypes {
		if t == vt {
			return true
		}
	}
	return false
}

// Visitor is a single admission record.
type Visitor struct {
	bun.BaseModel `bun:"table:visitors"`

	ID          string          `bun:"id,pk" json:"id"`
	FullName    string          `bun:"full_name,notnull" json:"full_name"`
	Type        VisitorType     `bun:"type,notnull" json:"type"`
	Nationality string          `bun:"nationality,notnull" json:"nationality"`
	VisitDate   time.Time       `bun:"visit_date,notnull" json:"visit_date"`
	ArrivalTime string          `bun:"arrival_time,notnull" json:"arrival_time"`
	Phone       string          `bun:"phone" json:"phone,omitempty"`
	Email       string          `bun:"email" json:"email,omitempty"`
	Comments    string          `bun:"comments" json:"comments,omitempty"`
	GroupSize   int             `bun:"group_size" json:"group_size,omitempty"`
	TicketPrice decimal.Decimal `bun:"ticket_price,type:numeric(12,2),notnull" json:"ticket_price"`
	CreatedBy   string          `bun:"created_by,notnull" json:"created_by"`
	CreatedAt   time.Time       `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt   time.Time       `bun:"updated_at,notnull" json:"updated_at"`
}

// VisitorInput carries the client-supplied fields of a new visitor. The
// ticket price, arrival time and creator are never taken from the client.
type VisitorInput struct {
	FullName    string      `json:"full_name" validate:"required"`
	Type        VisitorType `json:"type" validate:"required,oneof=adult child student group"`
	Nationality string      `json:"nationality" validate:"required"`
	VisitDate   *time.Time  `json:"visit_date"`
	Phone       string      `json:"phone"`
	Email       string      `json:"email" validate:"omitempty,email"`
	Comments    string      `json:"comments"`
	GroupSize   int         `json:"group_size" validate:"min=0"`
}

// VisitorPatch is the whitelist of updatable visitor fields. Nil fields are
// left untouched.
type VisitorPatch struct {
	FullName    *string      `json:"full_name" validate:"omitempty,min=1"`
	Type        *VisitorType `json:"type" validate:"omitempty,oneof=adult child student group"`
	Nationality *string      `json:"nationality" validate:"omitempty,min=1"`
	VisitDate   *time.Time   `json:"visit_date"`
	ArrivalTime *string      `json:"arrival_time" validate:"omitempty,min=1"`
	Phone       *string      `json:"phone"`
	Email       *string      `json:"email" validate:"omitempty,email"`
	Comments    *string      `json:"comments"`
	GroupSize   *int         `json:"group_size" validate:"omitempty,min=0"`
}

// VisitorFilter selects a page of visitors.
type VisitorFilter struct {
	Search   string
	Type     VisitorType
	FromDate *time.Time
	ToDate   *time.Time
	Page     int
	Limit    int
}

// VisitorPage is one page of a visitor listing.
type VisitorPage struct {
	Docs        []Visitor `json:"docs"`
	TotalDocs   int       `json:"total_docs"`
	Limit       int       `json:"limit"`
	Page        int       `json:"page"`
	TotalPages  int       `json:"total_pages"`
	HasPrevPage bool      `json:"has_prev_page"`
	HasNextPage bool      `json:"has_next_page"`
}

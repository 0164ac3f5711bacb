package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReportType string

const (
	ReportDaily   ReportType = "daily"
	ReportWeekly  ReportType = "weekly"
	ReportMonthly ReportType = "monthly"
	ReportYearly  ReportType = "yearly"
	ReportCustom  ReportType = "custom"
)

// Period is an inclusive time window.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window, bounds included.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// TypeStats is one aggregation row of a report.
type TypeStats struct {
	Type          VisitorType     `bun:"type" json:"type"`
	TotalVisitors int64           `bun:"total_visitors" json:"total_visitors"`
	TotalRevenue  decimal.Decimal `bun:"total_revenue" json:"total_revenue"`
	Percentage    decimal.Decimal `bun:"-" json:"percentage"`
}

// Report is an assembled, unpersisted report document.
type Report struct {
	ID            string          `json:"id"`
	Type          ReportType      `json:"type"`
	Title         string          `json:"title"`
	Period        Period          `json:"period"`
	Stats         []TypeStats     `json:"stats"`
	TotalVisitors int64           `json:"total_visitors"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	Visitors      []Visitor       `json:"visitors"`
	GeneratedAt   time.Time       `json:"generated_at"`
	GeneratedBy   string          `json:"generated_by"`
}

// GenerateReportRequest is the body of a report generation call. The dates
// are only read for custom reports and accept YYYY-MM-DD or RFC 3339.
type GenerateReportRequest struct {
	ReportType ReportType `json:"report_type" validate:"required"`
	StartDate  string     `json:"start_date"`
	EndDate    string     `json:"end_date"`
	Email      string     `json:"email" validate:"omitempty,email"`
}

// ExportReportRequest carries a previously generated report back for
// rendering.
type ExportReportRequest struct {
	ReportData *Report `json:"report_data"`
}

// DashboardStats summarises today's and this month's activity.
type DashboardStats struct {
	TodayVisitors  int64           `json:"today_visitors"`
	TodayRevenue   decimal.Decimal `json:"today_revenue"`
	MonthVisitors  int64           `json:"month_visitors"`
	RecentVisitors []Visitor       `json:"recent_visitors"`
}

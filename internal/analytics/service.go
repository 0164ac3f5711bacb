package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
	"ms-visitors/internal/utils"
)

const recentVisitorsLimit = 5

type Store interface {
	AggregateByType(ctx context.Context, p models.Period) ([]models.TypeStats, error)
	SalesByType(ctx context.Context, from, to *time.Time) ([]models.TicketSalesStats, error)
	Totals(ctx context.Context, p models.Period) (int64, decimal.Decimal, error)
	RecentVisitors(ctx context.Context, limit int) ([]models.Visitor, error)
}

// Service is the aggregation engine behind reports, ticket stats and the
// dashboard.
type Service struct {
	DB       Store
	Logger   *logger.Logger
	Location *time.Location
}

func NewService(db Store, log *logger.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{DB: db, Logger: log, Location: loc}
}

// Aggregate groups the visitors of p by type. An empty period yields an
// empty slice.
func (s *Service) Aggregate(ctx context.Context, p models.Period) ([]models.TypeStats, error) {
	rows, err := s.DB.AggregateByType(ctx, p)
	if err != nil {
		s.Logger.Error("ANALYTICS", fmt.Sprintf("Aggregation failed: %v", err))
		return nil, err
	}
	return ComputeShares(rows), nil
}

// ComputeShares fills each row's percentage of the total visitor count,
// rounded to two places. Every share is zero when the total is zero.
func ComputeShares(rows []models.TypeStats) []models.TypeStats {
	var total int64
	for _, r := range rows {
		total += r.TotalVisitors
	}
	out := make([]models.TypeStats, len(rows))
	for i, r := range rows {
		r.Percentage = decimal.Zero
		if total > 0 {
			r.Percentage = decimal.NewFromInt(r.TotalVisitors * 100).DivRound(decimal.NewFromInt(total), 2)
		}
		out[i] = r
	}
	return out
}

// Totals sums counts and revenue across rows.
func Totals(rows []models.TypeStats) (int64, decimal.Decimal) {
	var count int64
	revenue := decimal.Zero
	for _, r := range rows {
		count += r.TotalVisitors
		revenue = revenue.Add(r.TotalRevenue)
	}
	return count, revenue
}

func (s *Service) TicketStats(ctx context.Context, from, to *time.Time) ([]models.TicketSalesStats, error) {
	rows, err := s.DB.SalesByType(ctx, from, to)
	if err != nil {
		s.Logger.Error("ANALYTICS", fmt.Sprintf("Ticket stats failed: %v", err))
		return nil, err
	}
	return rows, nil
}

// Dashboard reports today's and this month's activity as seen from now.
func (s *Service) Dashboard(ctx context.Context, now time.Time) (*models.DashboardStats, error) {
	local := now.In(s.Location)
	today := models.Period{Start: utils.StartOfDay(local), End: utils.EndOfDay(local)}
	month := models.Period{Start: utils.StartOfMonth(local), End: utils.EndOfMonth(local)}

	todayCount, todayRevenue, err := s.DB.Totals(ctx, today)
	if err != nil {
		s.Logger.Error("ANALYTICS", fmt.Sprintf("Dashboard totals failed: %v", err))
		return nil, err
	}
	monthCount, _, err := s.DB.Totals(ctx, month)
	if err != nil {
		s.Logger.Error("ANALYTICS", fmt.Sprintf("Dashboard totals failed: %v", err))
		return nil, err
	}
	recent, err := s.DB.RecentVisitors(ctx, recentVisitorsLimit)
	if err != nil {
		s.Logger.Error("ANALYTICS", fmt.Sprintf("Dashboard recent visitors failed: %v", err))
		return nil, err
	}

	return &models.DashboardStats{
		TodayVisitors:  todayCount,
		TodayRevenue:   todayRevenue,
		MonthVisitors:  monthCount,
		RecentVisitors: recent,
	}, nil
}

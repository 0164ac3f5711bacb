package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ms-visitors/internal/analytics"
	"ms-visitors/internal/apperr"
	"ms-visitors/internal/kafka"
	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
	"ms-visitors/internal/utils"
)

const mailBody = "Please find attached the requested report."

type StatsAggregator interface {
	Aggregate(ctx context.Context, p models.Period) ([]models.TypeStats, error)
}

type VisitorLister interface {
	VisitorsInPeriod(ctx context.Context, p models.Period) ([]models.Visitor, error)
}

type DocumentRenderer interface {
	Render(r *models.Report) ([]byte, error)
}

type Service struct {
	Ranges   Resolver
	Stats    StatsAggregator
	Visitors VisitorLister
	Renderer DocumentRenderer
	Mailer   Mailer
	Cache    Cache
	Events   kafka.EventPublisher
	Logger   *logger.Logger
	Brand    string
	Now      func() time.Time
}

func NewService(ranges Resolver, stats StatsAggregator, visitors VisitorLister, renderer DocumentRenderer,
	mailer Mailer, cache Cache, events kafka.EventPublisher, log *logger.Logger, brand string) *Service {
	return &Service{
		Ranges:   ranges,
		Stats:    stats,
		Visitors: visitors,
		Renderer: renderer,
		Mailer:   mailer,
		Cache:    cache,
		Events:   events,
		Logger:   log,
		Brand:    brand,
		Now:      time.Now,
	}
}

// GenerateResult is the outcome of Generate. SentTo is set when the report
// was emailed.
type GenerateResult struct {
	Report *models.Report
	SentTo string
}

// Generate resolves the period of req, aggregates it and assembles the
// report. With an email address the rendered PDF is mailed as well, and a
// failed delivery fails the whole call.
func (s *Service) Generate(ctx context.Context, actor models.Identity, req models.GenerateReportRequest) (*GenerateResult, error) {
	if err := utils.Validate(req); err != nil {
		return nil, err
	}

	now := s.Now()
	period, err := s.Ranges.ResolveRange(req.ReportType, req.StartDate, req.EndDate, now)
	if err != nil {
		return nil, err
	}

	stats, err := s.Stats.Aggregate(ctx, period)
	if err != nil {
		return nil, err
	}
	visitors, err := s.Visitors.VisitorsInPeriod(ctx, period)
	if err != nil {
		s.Logger.Error("REPORT", fmt.Sprintf("Failed to list visitors for report: %v", err))
		return nil, err
	}

	report := BuildReport(req.ReportType, period, stats, visitors, actor.Username, s.Ranges.WeekStart, now.In(s.Ranges.Location))
	s.Logger.LogReport("GENERATE", report.ID, fmt.Sprintf("%s: %d visitors, %s revenue",
		report.Title, report.TotalVisitors, report.TotalRevenue.StringFixed(2)))

	result := &GenerateResult{Report: report}
	if req.Email != "" {
		if err := s.send(ctx, report, req.Email, now); err != nil {
			return nil, err
		}
		result.SentTo = req.Email
	}

	if err := s.Cache.Put(ctx, report); err != nil {
		s.Logger.Warn("REPORT", fmt.Sprintf("Failed to cache report %s: %v", report.ID, err))
	}
	s.publish(ctx, actor, report, result.SentTo)
	return result, nil
}

func (s *Service) send(ctx context.Context, report *models.Report, to string, now time.Time) error {
	doc, err := s.Renderer.Render(report)
	if err != nil {
		s.Logger.Error("REPORT", fmt.Sprintf("Failed to render report %s: %v", report.ID, err))
		return err
	}

	mail := Mail{
		To:         to,
		Subject:    fmt.Sprintf("%s - %s", s.Brand, report.Title),
		Body:       mailBody,
		Attachment: doc,
		Filename:   s.Filename(now),
	}
	if err := s.Mailer.Send(ctx, mail); err != nil {
		s.Logger.Error("REPORT", fmt.Sprintf("Failed to email report %s to %s: %v", report.ID, to, err))
		if errors.Is(err, apperr.ErrDelivery) {
			return err
		}
		return fmt.Errorf("%w: %v", apperr.ErrReportDelivery, err)
	}
	s.Logger.LogReport("EMAIL", report.ID, "sent to "+to)
	return nil
}

// Export renders a previously assembled report. The store is not read.
func (s *Service) Export(report *models.Report) ([]byte, string, error) {
	if report == nil {
		return nil, "", apperr.Validation("report_data is required")
	}
	if report.TotalVisitors == 0 && len(report.Stats) > 0 {
		report.TotalVisitors, report.TotalRevenue = analytics.Totals(report.Stats)
	}

	doc, err := s.Renderer.Render(report)
	if err != nil {
		s.Logger.Error("REPORT", fmt.Sprintf("Failed to render report %s: %v", report.ID, err))
		return nil, "", err
	}
	return doc, s.Filename(s.Now()), nil
}

// ExportByID renders a cached report.
func (s *Service) ExportByID(ctx context.Context, id string) ([]byte, string, error) {
	report, err := s.Cache.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return s.Export(report)
}

// Filename returns <brand>_YYYYMMDD_HHMMSS.pdf for at.
func (s *Service) Filename(at time.Time) string {
	brand := strings.Join(strings.Fields(s.Brand), "_")
	return fmt.Sprintf("%s_%s.pdf", brand, at.In(s.Ranges.Location).Format("20060102_150405"))
}

type reportGenerated struct {
	ReportID      string            `json:"report_id"`
	Type          models.ReportType `json:"type"`
	Title         string            `json:"title"`
	Period        models.Period     `json:"period"`
	TotalVisitors int64             `json:"total_visitors"`
	TotalRevenue  decimal.Decimal   `json:"total_revenue"`
	SentTo        string            `json:"sent_to,omitempty"`
}

func (s *Service) publish(ctx context.Context, actor models.Identity, r *models.Report, sentTo string) {
	evt := models.DomainEvent{
		ID:         utils.NewID(),
		Name:       models.EventReportGenerated,
		EntityID:   r.ID,
		Actor:      actor.Username,
		OccurredAt: r.GeneratedAt.UTC().Truncate(time.Second),
		Payload: reportGenerated{
			ReportID:      r.ID,
			Type:          r.Type,
			Title:         r.Title,
			Period:        r.Period,
			TotalVisitors: r.TotalVisitors,
			TotalRevenue:  r.TotalRevenue,
			SentTo:        sentTo,
		},
	}
	if err := s.Events.PublishEvent(ctx, evt); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish %s for %s: %v", evt.Name, r.ID, err))
	}
}

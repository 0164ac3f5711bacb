// Package reports turns a report type into a period, aggregates the visitors
// of that period and delivers the result as a PDF download or email.
package reports

import (
	"fmt"
	"time"

	"ms-visitors/internal/apperr"
	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
	"ms-visitors/internal/utils"
)

// Resolver maps report types to inclusive periods in Location.
type Resolver struct {
	WeekStart time.Weekday
	Location  *time.Location
	Logger    *logger.Logger
}

func NewResolver(weekStart time.Weekday, loc *time.Location, log *logger.Logger) Resolver {
	if loc == nil {
		loc = time.Local
	}
	return Resolver{WeekStart: weekStart, Location: loc, Logger: log}
}

// ResolveRange returns the period of rt around now. Custom reports take
// start and end as given; a bare end date covers its whole day. An inverted
// custom range is kept and simply matches no visitors.
func (r Resolver) ResolveRange(rt models.ReportType, start, end string, now time.Time) (models.Period, error) {
	now = now.In(r.Location)

	switch rt {
	case models.ReportDaily:
		return models.Period{Start: utils.StartOfDay(now), End: utils.EndOfDay(now)}, nil
	case models.ReportWeekly:
		first := utils.StartOfDay(now).AddDate(0, 0, -r.daysIntoWeek(now))
		return models.Period{Start: first, End: utils.EndOfDay(first.AddDate(0, 0, 6))}, nil
	case models.ReportMonthly:
		return models.Period{Start: utils.StartOfMonth(now), End: utils.EndOfMonth(now)}, nil
	case models.ReportYearly:
		first := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, r.Location)
		return models.Period{Start: first, End: first.AddDate(1, 0, 0).Add(-time.Nanosecond)}, nil
	case models.ReportCustom:
		return r.customRange(start, end)
	}
	return models.Period{}, apperr.ErrInvalidReportType
}

func (r Resolver) customRange(start, end string) (models.Period, error) {
	if start == "" || end == "" {
		return models.Period{}, apperr.ErrMissingCustomRange
	}
	from, err := utils.ParseDate(start, r.Location)
	if err != nil {
		return models.Period{}, err
	}
	to, err := utils.ParseDate(end, r.Location)
	if err != nil {
		return models.Period{}, err
	}
	if utils.IsDateOnly(end) {
		to = utils.EndOfDay(to)
	}
	if from.After(to) {
		r.Logger.Warn("REPORT", fmt.Sprintf("Custom range is inverted (%s > %s), it matches no visitors",
			from.Format(time.RFC3339), to.Format(time.RFC3339)))
	}
	return models.Period{Start: from, End: to}, nil
}

func (r Resolver) daysIntoWeek(t time.Time) int {
	return (int(t.Weekday()) - int(r.WeekStart) + 7) % 7
}

// WeekNumber numbers the week starting at weekStart. Monday weeks use ISO
// 8601 numbering. Sunday weeks count the week holding 1 January as week 1.
func WeekNumber(weekStart time.Time, startDay time.Weekday) int {
	if startDay == time.Monday {
		_, week := weekStart.ISOWeek()
		return week
	}
	last := weekStart.AddDate(0, 0, 6)
	return (last.YearDay() + 6) / 7
}

// Title names a report after its type and period.
func Title(rt models.ReportType, p models.Period, startDay time.Weekday) string {
	switch rt {
	case models.ReportDaily:
		return "Daily Report - " + p.Start.Format("02/01/2006")
	case models.ReportWeekly:
		return fmt.Sprintf("Weekly Report - Week %d (%s - %s)",
			WeekNumber(p.Start, startDay), p.Start.Format("02/01"), p.End.Format("02/01/2006"))
	case models.ReportMonthly:
		return "Monthly Report - " + p.Start.Format("January 2006")
	case models.ReportYearly:
		return "Yearly Report - " + p.Start.Format("2006")
	default:
		return fmt.Sprintf("Custom Report (%s - %s)", p.Start.Format("02/01/2006"), p.End.Format("02/01/2006"))
	}
}

package reports

import (
	"sort"
	"time"

	"ms-visitors/internal/analytics"
	"ms-visitors/internal/models"
	"ms-visitors/internal/utils"
)

// BuildReport bundles the aggregation rows and the visitors of a period into
// a report document. Visitors are listed by visit date ascending.
func BuildReport(rt models.ReportType, p models.Period, stats []models.TypeStats, visitors []models.Visitor,
	generatedBy string, startDay time.Weekday, at time.Time) *models.Report {

	listed := make([]models.Visitor, len(visitors))
	copy(listed, visitors)
	sort.SliceStable(listed, func(i, j int) bool {
		return listed[i].VisitDate.Before(listed[j].VisitDate)
	})
	if stats == nil {
		stats = []models.TypeStats{}
	}

	total, revenue := analytics.Totals(stats)
	return &models.Report{
		ID:            utils.NewReportID(at),
		Type:          rt,
		Title:         Title(rt, p, startDay),
		Period:        p,
		Stats:         stats,
		TotalVisitors: total,
		TotalRevenue:  revenue,
		Visitors:      listed,
		GeneratedAt:   at,
		GeneratedBy:   generatedBy,
	}
}

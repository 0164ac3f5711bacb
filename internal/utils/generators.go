package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewID returns a random UUID string used as a primary key.
func NewID() string {
	return uuid.NewString()
}

// NewReportID prefixes a UUID with the generation date so cached reports sort
// by day.
func NewReportID(now time.Time) string {
	return fmt.Sprintf("rpt_%s_%s", now.Format("20060102"), uuid.NewString()[:8])
}

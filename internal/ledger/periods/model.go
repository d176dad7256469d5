package periods

import (
	"time"

	"github.com/google/uuid"
)

// PeriodStatus enumerates valid period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

// FiscalYear groups a tenant's sequential periods.
type FiscalYear struct {
	ID        int64
	TenantID  uuid.UUID
	Label     string
	StartDate time.Time
	EndDate   time.Time
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Period represents a fiscal period window. Periods within a year are
// contiguous and non-overlapping.
type Period struct {
	ID           int64
	TenantID     uuid.UUID
	FiscalYearID int64
	Number       int
	StartDate    time.Time
	EndDate      time.Time
	Status       PeriodStatus
	ClosedAt     *time.Time
	ClosedBy     *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Covers reports whether the date falls inside the period window.
func (p Period) Covers(date time.Time) bool {
	d := date.Truncate(24 * time.Hour)
	return !d.Before(p.StartDate) && !d.After(p.EndDate)
}

// Window is a generated period date range.
type Window struct {
	Number    int
	StartDate time.Time
	EndDate   time.Time
}

// MonthlyWindows produces contiguous, non-overlapping monthly windows
// starting at start. Each window ends the day before the next begins.
func MonthlyWindows(start time.Time, months int) []Window {
	windows := make([]Window, 0, months)
	cursor := start
	for number := 1; number <= months; number++ {
		windows = append(windows, Window{
			Number:    number,
			StartDate: cursor,
			EndDate:   cursor.AddDate(0, 1, -1),
		})
		cursor = cursor.AddDate(0, 1, 0)
	}
	return windows
}

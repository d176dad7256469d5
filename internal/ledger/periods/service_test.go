package periods

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
	_ "github.com/meridian-erp/meridian-erp/testing"
)

type mockRepository struct {
	nextYearID   int64
	nextPeriodID int64
	years        map[int64]FiscalYear
	periods      map[int64]Period
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		nextYearID:   1,
		nextPeriodID: 1,
		years:        make(map[int64]FiscalYear),
		periods:      make(map[int64]Period),
	}
}

func (m *mockRepository) CreateYearWithPeriods(ctx context.Context, in CreateYearInput) (FiscalYear, []Period, error) {
	year := FiscalYear{
		ID:        m.nextYearID,
		TenantID:  in.TenantID,
		Label:     in.Label,
		StartDate: in.StartDate,
		EndDate:   in.StartDate.AddDate(0, in.Months, -1),
		IsActive:  true,
	}
	m.nextYearID++
	m.years[year.ID] = year

	generated := make([]Period, 0, in.Months)
	for _, window := range MonthlyWindows(in.StartDate, in.Months) {
		period := Period{
			ID:           m.nextPeriodID,
			TenantID:     in.TenantID,
			FiscalYearID: year.ID,
			Number:       window.Number,
			StartDate:    window.StartDate,
			EndDate:      window.EndDate,
			Status:       PeriodStatusOpen,
		}
		m.nextPeriodID++
		m.periods[period.ID] = period
		generated = append(generated, period)
	}
	return year, generated, nil
}

func (m *mockRepository) YearRangeConflict(ctx context.Context, tenant uuid.UUID, start, end time.Time) (bool, error) {
	for _, year := range m.years {
		if year.TenantID != tenant {
			continue
		}
		if !start.After(year.EndDate) && !end.Before(year.StartDate) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) FindByDate(ctx context.Context, tenant uuid.UUID, date time.Time) (Period, error) {
	for _, period := range m.periods {
		if period.TenantID == tenant && period.Covers(date) {
			return period, nil
		}
	}
	return Period{}, shared.ErrNoPeriodDefined
}

func (m *mockRepository) Transition(ctx context.Context, tenant uuid.UUID, id int64, target PeriodStatus, actor int64, at time.Time) (Period, error) {
	period, ok := m.periods[id]
	if !ok || period.TenantID != tenant {
		return Period{}, shared.ErrNoPeriodDefined
	}
	switch target {
	case PeriodStatusClosed:
		if period.Status == PeriodStatusClosed {
			return Period{}, shared.ErrAlreadyClosed
		}
		period.Status = PeriodStatusClosed
		closedAt := at
		period.ClosedAt = &closedAt
		period.ClosedBy = &actor
	case PeriodStatusOpen:
		if period.Status == PeriodStatusOpen {
			return Period{}, shared.ErrNotClosed
		}
		period.Status = PeriodStatusOpen
		period.ClosedAt = nil
		period.ClosedBy = nil
	}
	m.periods[id] = period
	return period, nil
}

func (m *mockRepository) ListByYear(ctx context.Context, tenant uuid.UUID, yearID int64) ([]Period, error) {
	var out []Period
	for id := int64(1); id < m.nextPeriodID; id++ {
		if period, ok := m.periods[id]; ok && period.TenantID == tenant && period.FiscalYearID == yearID {
			out = append(out, period)
		}
	}
	return out, nil
}

func (m *mockRepository) ListYears(ctx context.Context, tenant uuid.UUID) ([]FiscalYear, error) {
	var out []FiscalYear
	for id := int64(1); id < m.nextYearID; id++ {
		if year, ok := m.years[id]; ok && year.TenantID == tenant {
			out = append(out, year)
		}
	}
	return out, nil
}

var tenant = uuid.MustParse("7f6f5ad7-4c69-4e8e-8a8c-1be1d2f9c002")

func yearInput() CreateYearInput {
	return CreateYearInput{
		TenantID:  tenant,
		Label:     "FY2025",
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Months:    12,
		ActorID:   1,
	}
}

func TestCreateYearGeneratesMonthlyPeriods(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	year, generated, err := svc.CreateYear(context.Background(), yearInput())
	require.NoError(t, err)
	assert.Equal(t, "FY2025", year.Label)
	require.Len(t, generated, 12)
	assert.Equal(t, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), year.EndDate)

	for i, period := range generated {
		assert.Equal(t, i+1, period.Number)
		assert.Equal(t, PeriodStatusOpen, period.Status)
		if i > 0 {
			prev := generated[i-1]
			assert.Equal(t, prev.EndDate.AddDate(0, 0, 1), period.StartDate,
				"period %d must start the day after period %d ends", period.Number, prev.Number)
		}
	}
}

func TestCreateYearRejectsOverlap(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	_, _, err := svc.CreateYear(context.Background(), yearInput())
	require.NoError(t, err)

	overlapping := yearInput()
	overlapping.Label = "FY2025b"
	overlapping.StartDate = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	_, _, err = svc.CreateYear(context.Background(), overlapping)
	require.ErrorIs(t, err, shared.ErrPeriodOverlap)
}

func TestCreateYearValidation(t *testing.T) {
	svc := NewService(newMockRepository(), nil, nil)

	in := yearInput()
	in.TenantID = uuid.Nil
	_, _, err := svc.CreateYear(context.Background(), in)
	require.ErrorIs(t, err, internalshared.ErrTenantRequired)

	in = yearInput()
	in.Months = 0
	_, _, err = svc.CreateYear(context.Background(), in)
	require.Error(t, err)

	in = yearInput()
	in.Months = 24
	_, _, err = svc.CreateYear(context.Background(), in)
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	_, generated, err := svc.CreateYear(context.Background(), yearInput())
	require.NoError(t, err)

	period, err := svc.Resolve(context.Background(), tenant, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, period.Number)
	assert.Equal(t, generated[2].ID, period.ID)

	_, err = svc.Resolve(context.Background(), tenant, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, shared.ErrNoPeriodDefined)
}

func TestCloseAndReopen(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	closedAt := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return closedAt })

	_, generated, err := svc.CreateYear(context.Background(), yearInput())
	require.NoError(t, err)
	target := generated[0]

	closed, err := svc.Close(context.Background(), tenant, target.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, closedAt, *closed.ClosedAt)
	require.NotNil(t, closed.ClosedBy)
	assert.Equal(t, int64(5), *closed.ClosedBy)

	_, err = svc.Close(context.Background(), tenant, target.ID, 5)
	require.ErrorIs(t, err, shared.ErrAlreadyClosed)

	reopened, err := svc.Reopen(context.Background(), tenant, target.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusOpen, reopened.Status)
	assert.Nil(t, reopened.ClosedAt)

	_, err = svc.Reopen(context.Background(), tenant, target.ID, 5)
	require.ErrorIs(t, err, shared.ErrNotClosed)
}

type denyAll struct{}

func (denyAll) Allow(context.Context, uuid.UUID, int64, internalshared.Capability) error {
	return internalshared.ErrForbidden
}

func TestCloseRequiresCapability(t *testing.T) {
	repo := newMockRepository()
	open := NewService(repo, nil, nil)
	_, generated, err := open.CreateYear(context.Background(), yearInput())
	require.NoError(t, err)

	guarded := NewService(repo, denyAll{}, nil)
	_, err = guarded.Close(context.Background(), tenant, generated[0].ID, 1)
	require.ErrorIs(t, err, internalshared.ErrForbidden)
}

func TestMonthlyWindows(t *testing.T) {
	windows := MonthlyWindows(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 12)
	require.Len(t, windows, 12)
	for i, window := range windows {
		if window.StartDate.After(window.EndDate) {
			t.Fatalf("window %d starts after it ends", i+1)
		}
		if i > 0 {
			gap := windows[i-1].EndDate.AddDate(0, 0, 1)
			if !gap.Equal(window.StartDate) {
				t.Fatalf("window %d not contiguous with window %d", i+1, i)
			}
		}
	}
	february := windows[1]
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), february.EndDate)
}

func TestMonthlyWindowsMidMonthStart(t *testing.T) {
	windows := MonthlyWindows(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), 3)
	assert.Equal(t, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC), windows[0].EndDate)
	assert.Equal(t, time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC), windows[1].StartDate)
}

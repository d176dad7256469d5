package budgets

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
	_ "github.com/meridian-erp/meridian-erp/testing"
)

type mockRepository struct {
	nextID int64
	lines  map[string]BudgetLine
}

func newMockRepository() *mockRepository {
	return &mockRepository{nextID: 1, lines: make(map[string]BudgetLine)}
}

func key(tenant uuid.UUID, periodID, accountID int64) string {
	return fmt.Sprintf("%s:%d:%d", tenant, periodID, accountID)
}

func (m *mockRepository) Upsert(ctx context.Context, line BudgetLine) (BudgetLine, error) {
	k := key(line.TenantID, line.PeriodID, line.AccountID)
	if existing, ok := m.lines[k]; ok {
		existing.Amount = line.Amount
		existing.Notes = line.Notes
		m.lines[k] = existing
		return existing, nil
	}
	line.ID = m.nextID
	m.nextID++
	m.lines[k] = line
	return line, nil
}

func (m *mockRepository) ListForPeriod(ctx context.Context, tenant uuid.UUID, periodID int64) ([]BudgetLine, error) {
	var out []BudgetLine
	for _, line := range m.lines {
		if line.TenantID == tenant && line.PeriodID == periodID {
			out = append(out, line)
		}
	}
	return out, nil
}

func (m *mockRepository) Delete(ctx context.Context, tenant uuid.UUID, periodID, accountID int64) error {
	delete(m.lines, key(tenant, periodID, accountID))
	return nil
}

var tenant = uuid.MustParse("3f3d8a04-2f14-41f7-a2cf-6f9a7b2cd003")

func validInput() UpsertInput {
	return UpsertInput{
		TenantID:  tenant,
		PeriodID:  4,
		AccountID: 5000,
		Amount:    decimal.NewFromInt(2500),
		Notes:     "Q2 rent",
		ActorID:   1,
	}
}

func TestSetBudgetLine(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	line, err := svc.Set(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, int64(1), line.ID)
	assert.True(t, line.Amount.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, "Q2 rent", line.Notes)
}

func TestSetReplacesExistingLine(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	first, err := svc.Set(context.Background(), validInput())
	require.NoError(t, err)

	updated := validInput()
	updated.Amount = decimal.NewFromInt(3000)
	second, err := svc.Set(context.Background(), updated)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "upsert keeps the row identity")
	assert.True(t, second.Amount.Equal(decimal.NewFromInt(3000)))

	lines, err := svc.ListForPeriod(context.Background(), tenant, 4)
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestSetAllowsNegativeBudget(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	in := validInput()
	in.Amount = decimal.NewFromInt(-500)
	line, err := svc.Set(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, line.Amount.IsNegative())
}

func TestSetValidation(t *testing.T) {
	svc := NewService(newMockRepository(), nil, nil)

	in := validInput()
	in.TenantID = uuid.Nil
	_, err := svc.Set(context.Background(), in)
	require.ErrorIs(t, err, internalshared.ErrTenantRequired)

	in = validInput()
	in.PeriodID = 0
	_, err = svc.Set(context.Background(), in)
	require.Error(t, err)

	in = validInput()
	in.AccountID = 0
	_, err = svc.Set(context.Background(), in)
	require.Error(t, err)
}

func TestRemove(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	_, err := svc.Set(context.Background(), validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), tenant, 4, 5000, 1))
	lines, err := svc.ListForPeriod(context.Background(), tenant, 4)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

type denyAll struct{}

func (denyAll) Allow(context.Context, uuid.UUID, int64, internalshared.Capability) error {
	return internalshared.ErrForbidden
}

func TestSetRequiresCapability(t *testing.T) {
	svc := NewService(newMockRepository(), denyAll{}, nil)
	_, err := svc.Set(context.Background(), validInput())
	require.ErrorIs(t, err, internalshared.ErrForbidden)
}

func TestRemoveRequiresCapability(t *testing.T) {
	svc := NewService(newMockRepository(), denyAll{}, nil)
	err := svc.Remove(context.Background(), tenant, 4, 5000, 1)
	require.ErrorIs(t, err, internalshared.ErrForbidden)
}

package accounts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	internalshared "github.com/meridian-erp/meridian-erp/internal/shared"
	_ "github.com/meridian-erp/meridian-erp/testing"
)

type mockRepository struct {
	nextID   int64
	accounts map[int64]Account
	byCode   map[string]int64
	inUse    map[int64]bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		nextID:   1,
		accounts: make(map[int64]Account),
		byCode:   make(map[string]int64),
		inUse:    make(map[int64]bool),
	}
}

func (m *mockRepository) Insert(ctx context.Context, in CreateInput, normal NormalBalance) (Account, error) {
	if _, exists := m.byCode[in.Code]; exists {
		return Account{}, shared.ErrDuplicateCode
	}
	account := Account{
		ID:            m.nextID,
		TenantID:      in.TenantID,
		Code:          in.Code,
		Name:          in.Name,
		Type:          in.Type,
		NormalBalance: normal,
		ParentID:      in.ParentID,
		IsActive:      true,
		IsSystem:      in.IsSystem,
	}
	m.nextID++
	m.accounts[account.ID] = account
	m.byCode[account.Code] = account.ID
	return account, nil
}

func (m *mockRepository) Get(ctx context.Context, tenant uuid.UUID, id int64) (Account, error) {
	account, ok := m.accounts[id]
	if !ok || account.TenantID != tenant {
		return Account{}, shared.ErrAccountNotFound
	}
	return account, nil
}

func (m *mockRepository) List(ctx context.Context, tenant uuid.UUID) ([]Account, error) {
	var out []Account
	for id := int64(1); id < m.nextID; id++ {
		if account, ok := m.accounts[id]; ok && account.TenantID == tenant {
			out = append(out, account)
		}
	}
	return out, nil
}

func (m *mockRepository) ParentChain(ctx context.Context, tenant uuid.UUID, id int64) ([]int64, error) {
	var chain []int64
	seen := make(map[int64]bool)
	for cursor := &id; cursor != nil; {
		current := *cursor
		chain = append(chain, current)
		if seen[current] {
			break
		}
		seen[current] = true
		account, ok := m.accounts[current]
		if !ok {
			break
		}
		cursor = account.ParentID
	}
	return chain, nil
}

func (m *mockRepository) HasPostingsInOpenPeriods(ctx context.Context, tenant uuid.UUID, id int64) (bool, error) {
	return m.inUse[id], nil
}

func (m *mockRepository) SetActive(ctx context.Context, tenant uuid.UUID, id int64, active bool) error {
	account, ok := m.accounts[id]
	if !ok {
		return shared.ErrAccountNotFound
	}
	account.IsActive = active
	m.accounts[id] = account
	return nil
}

var tenant = uuid.MustParse("59b2c6f1-8f3a-4f0e-9a6d-2f22e3b1c001")

func validInput() CreateInput {
	return CreateInput{
		TenantID: tenant,
		Code:     "1000",
		Name:     "Cash",
		Type:     AccountTypeAsset,
		ActorID:  1,
	}
}

func TestCreateAccount(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, Policy{})

	account, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "1000", account.Code)
	assert.Equal(t, NormalBalanceDebit, account.NormalBalance, "asset defaults to debit-normal")
	assert.True(t, account.IsActive)
}

func TestCreateDefaultsNormalBalanceByType(t *testing.T) {
	cases := []struct {
		accountType AccountType
		want        NormalBalance
	}{
		{AccountTypeAsset, NormalBalanceDebit},
		{AccountTypeExpense, NormalBalanceDebit},
		{AccountTypeLiability, NormalBalanceCredit},
		{AccountTypeEquity, NormalBalanceCredit},
		{AccountTypeRevenue, NormalBalanceCredit},
	}
	for _, tc := range cases {
		repo := newMockRepository()
		svc := NewService(repo, nil, nil, Policy{})
		in := validInput()
		in.Type = tc.accountType
		account, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, account.NormalBalance, "type %s", tc.accountType)
	}
}

func TestCreateKeepsExplicitNormalBalance(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, Policy{})

	in := validInput()
	in.Code = "1900"
	in.Name = "Accumulated Depreciation"
	in.NormalBalance = NormalBalanceCredit
	account, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, NormalBalanceCredit, account.NormalBalance, "contra asset keeps its declared side")
}

func TestCreateValidation(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, Policy{})

	in := validInput()
	in.TenantID = uuid.Nil
	_, err := svc.Create(context.Background(), in)
	require.ErrorIs(t, err, internalshared.ErrTenantRequired)

	in = validInput()
	in.Code = "  "
	_, err = svc.Create(context.Background(), in)
	require.Error(t, err)

	in = validInput()
	in.Type = "GOODWILL"
	_, err = svc.Create(context.Background(), in)
	require.Error(t, err)
}

func TestCreateDuplicateCode(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, Policy{})

	_, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), validInput())
	require.ErrorIs(t, err, shared.ErrDuplicateCode)
}

func TestCreateWithParent(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, Policy{})

	parent, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	child := validInput()
	child.Code = "1010"
	child.Name = "Petty Cash"
	child.ParentID = &parent.ID
	account, err := svc.Create(context.Background(), child)
	require.NoError(t, err)
	require.NotNil(t, account.ParentID)
	assert.Equal(t, parent.ID, *account.ParentID)
}

func TestCreateRejectsUnknownParent(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, Policy{})

	in := validInput()
	missing := int64(99)
	in.ParentID = &missing
	_, err := svc.Create(context.Background(), in)
	require.ErrorIs(t, err, shared.ErrInvalidParent)
}

func TestCreateRejectsCyclicParentChain(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, Policy{})

	a, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	second := validInput()
	second.Code = "1010"
	second.ParentID = &a.ID
	b, err := svc.Create(context.Background(), second)
	require.NoError(t, err)

	// Corrupt the ancestry so a's parent points back at b.
	corrupted := repo.accounts[a.ID]
	corrupted.ParentID = &b.ID
	repo.accounts[a.ID] = corrupted

	third := validInput()
	third.Code = "1020"
	third.ParentID = &b.ID
	_, err = svc.Create(context.Background(), third)
	require.ErrorIs(t, err, shared.ErrInvalidParent)
}

func TestDeactivate(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, Policy{})

	account, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), tenant, account.ID, 1))
	got, err := svc.Get(context.Background(), tenant, account.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.False(t, got.AcceptsPostings())
}

func TestDeactivateProtectsSystemAccounts(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, Policy{})

	in := validInput()
	in.IsSystem = true
	account, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	err = svc.Deactivate(context.Background(), tenant, account.ID, 1)
	require.ErrorIs(t, err, shared.ErrSystemAccountProtected)
}

func TestDeactivateBlockedByOpenPeriodActivity(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, Policy{})

	account, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	repo.inUse[account.ID] = true

	err = svc.Deactivate(context.Background(), tenant, account.ID, 1)
	require.ErrorIs(t, err, shared.ErrAccountInUse)
}

func TestDeactivateWithHistoryPolicy(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, Policy{AllowDeactivateWithHistory: true})

	account, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	repo.inUse[account.ID] = true

	require.NoError(t, svc.Deactivate(context.Background(), tenant, account.ID, 1))
}

func TestReactivate(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, Policy{})

	account, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(context.Background(), tenant, account.ID, 1))
	require.NoError(t, svc.Reactivate(context.Background(), tenant, account.ID, 1))

	got, err := svc.Get(context.Background(), tenant, account.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

type denyAll struct{}

func (denyAll) Allow(context.Context, uuid.UUID, int64, internalshared.Capability) error {
	return internalshared.ErrForbidden
}

func TestCreateRequiresCapability(t *testing.T) {
	svc := NewService(newMockRepository(), denyAll{}, nil, Policy{})
	_, err := svc.Create(context.Background(), validInput())
	require.ErrorIs(t, err, internalshared.ErrForbidden)
}

func TestTree(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil, Policy{})

	root, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	child := validInput()
	child.Code = "1010"
	child.ParentID = &root.ID
	leaf, err := svc.Create(context.Background(), child)
	require.NoError(t, err)

	children, roots, err := svc.Tree(context.Background(), tenant)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, root.ID, roots[0].ID)
	require.Len(t, children[root.ID], 1)
	assert.Equal(t, leaf.ID, children[root.ID][0].ID)
}

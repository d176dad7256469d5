package postingrules

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger/journals"
	"github.com/meridian-erp/meridian-erp/internal/ledger/shared"
	_ "github.com/meridian-erp/meridian-erp/testing"
)

type mapResolver map[string]int64

func (m mapResolver) Resolve(ctx context.Context, tenant uuid.UUID, docType, key string) (int64, error) {
	if id, ok := m[docType+":"+key]; ok {
		return id, nil
	}
	return 0, shared.ErrMappingNotFound
}

func fullResolver() mapResolver {
	r := mapResolver{}
	set := func(docType, key string, account int64) { r[docType+":"+key] = account }
	set(DocTypeInvoice, KeyAccountsReceivable, 1200)
	set(DocTypeInvoice, KeyRevenue, 4000)
	set(DocTypeInvoice, KeyTaxPayable, 2100)
	set(DocTypeBill, KeyExpense, 5000)
	set(DocTypeBill, KeyTaxReceivable, 1300)
	set(DocTypeBill, KeyAccountsPayable, 2000)
	set(DocTypeExpense, KeyExpense, 5100)
	set(DocTypeExpense, KeyCash, 1000)
	set(DocTypePayrollRun, KeyPayrollExpense, 5200)
	set(DocTypePayrollRun, KeyWagesPayable, 2200)
	set(DocTypePayrollRun, KeyTaxWithheld, 2300)
	set(DocTypeAssetDisposal, KeyFixedAssets, 1500)
	set(DocTypeAssetDisposal, KeyAccumDepreciation, 1510)
	set(DocTypeAssetDisposal, KeyCash, 1000)
	set(DocTypeAssetDisposal, KeyDisposalGain, 4900)
	set(DocTypeAssetDisposal, KeyDisposalLoss, 5900)
	return r
}

func amount(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func lineTotals(lines []journals.LineInput) (debit, credit decimal.Decimal) {
	for _, line := range lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

func requireBalanced(t *testing.T, lines []journals.LineInput) {
	t.Helper()
	debit, credit := lineTotals(lines)
	require.True(t, debit.Equal(credit), "debits %s != credits %s", debit, credit)
}

func findLine(t *testing.T, lines []journals.LineInput, account int64) journals.LineInput {
	t.Helper()
	for _, line := range lines {
		if line.AccountID == account {
			return line
		}
	}
	t.Fatalf("no line for account %d", account)
	return journals.LineInput{}
}

func build(t *testing.T, docType string, doc any) []journals.LineInput {
	t.Helper()
	lines, err := NewRegistry().Build(context.Background(), fullResolver(), uuid.New(), docType, doc)
	require.NoError(t, err)
	requireBalanced(t, lines)
	return lines
}

func TestInvoiceRule(t *testing.T) {
	lines := build(t, DocTypeInvoice, Invoice{ID: uuid.New(), Subtotal: amount("1000"), Tax: amount("110")})
	require.Len(t, lines, 3)
	assert.True(t, findLine(t, lines, 1200).Debit.Equal(amount("1110")), "receivable carries the gross")
	assert.True(t, findLine(t, lines, 4000).Credit.Equal(amount("1000")))
	assert.True(t, findLine(t, lines, 2100).Credit.Equal(amount("110")))
}

func TestInvoiceRuleWithoutTax(t *testing.T) {
	lines := build(t, DocTypeInvoice, Invoice{ID: uuid.New(), Subtotal: amount("500")})
	require.Len(t, lines, 2, "zero tax must not produce a tax line")
}

func TestBillRule(t *testing.T) {
	lines := build(t, DocTypeBill, Bill{ID: uuid.New(), Subtotal: amount("800"), Tax: amount("88")})
	require.Len(t, lines, 3)
	assert.True(t, findLine(t, lines, 5000).Debit.Equal(amount("800")))
	assert.True(t, findLine(t, lines, 1300).Debit.Equal(amount("88")))
	assert.True(t, findLine(t, lines, 2000).Credit.Equal(amount("888")), "payable carries the gross")
}

func TestBillRuleWithoutTax(t *testing.T) {
	lines := build(t, DocTypeBill, Bill{ID: uuid.New(), Subtotal: amount("800")})
	require.Len(t, lines, 2)
}

func TestExpenseRule(t *testing.T) {
	lines := build(t, DocTypeExpense, Expense{ID: uuid.New(), Amount: amount("42.50")})
	require.Len(t, lines, 2)
	assert.True(t, findLine(t, lines, 5100).Debit.Equal(amount("42.50")))
	assert.True(t, findLine(t, lines, 1000).Credit.Equal(amount("42.50")))
}

func TestPayrollRule(t *testing.T) {
	lines := build(t, DocTypePayrollRun, PayrollRun{ID: uuid.New(), Gross: amount("10000"), Withholding: amount("2500")})
	require.Len(t, lines, 3)
	assert.True(t, findLine(t, lines, 5200).Debit.Equal(amount("10000")))
	assert.True(t, findLine(t, lines, 2300).Credit.Equal(amount("2500")))
	assert.True(t, findLine(t, lines, 2200).Credit.Equal(amount("7500")), "wages payable carries the net")
}

func TestPayrollRuleWithoutWithholding(t *testing.T) {
	lines := build(t, DocTypePayrollRun, PayrollRun{ID: uuid.New(), Gross: amount("3000")})
	require.Len(t, lines, 2)
	assert.True(t, findLine(t, lines, 2200).Credit.Equal(amount("3000")))
}

func TestDisposalRuleGain(t *testing.T) {
	lines := build(t, DocTypeAssetDisposal, AssetDisposal{
		ID:              uuid.New(),
		Cost:            amount("10000"),
		AccumulatedDepr: amount("8000"),
		Proceeds:        amount("3000"),
	})
	require.Len(t, lines, 4)
	assert.True(t, findLine(t, lines, 1000).Debit.Equal(amount("3000")))
	assert.True(t, findLine(t, lines, 1510).Debit.Equal(amount("8000")))
	assert.True(t, findLine(t, lines, 1500).Credit.Equal(amount("10000")))
	assert.True(t, findLine(t, lines, 4900).Credit.Equal(amount("1000")), "gain balances the entry")
}

func TestDisposalRuleLoss(t *testing.T) {
	lines := build(t, DocTypeAssetDisposal, AssetDisposal{
		ID:              uuid.New(),
		Cost:            amount("10000"),
		AccumulatedDepr: amount("6000"),
		Proceeds:        amount("1000"),
	})
	require.Len(t, lines, 4)
	assert.True(t, findLine(t, lines, 5900).Debit.Equal(amount("3000")), "loss balances the entry")
}

func TestDisposalRuleScrappedAsset(t *testing.T) {
	// Fully depreciated, no proceeds: accumulated depreciation absorbs the cost.
	lines := build(t, DocTypeAssetDisposal, AssetDisposal{
		ID:              uuid.New(),
		Cost:            amount("5000"),
		AccumulatedDepr: amount("5000"),
	})
	require.Len(t, lines, 2)
}

func TestBuildUnknownDocType(t *testing.T) {
	_, err := NewRegistry().Build(context.Background(), fullResolver(), uuid.New(), "WIDGET", struct{}{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "WIDGET")
}

func TestBuildWrongPayloadType(t *testing.T) {
	_, err := NewRegistry().Build(context.Background(), fullResolver(), uuid.New(), DocTypeInvoice, Bill{})
	require.Error(t, err)
}

func TestBuildMissingMapping(t *testing.T) {
	resolver := mapResolver{}
	_, err := NewRegistry().Build(context.Background(), resolver, uuid.New(), DocTypeExpense, Expense{Amount: amount("10")})
	require.ErrorIs(t, err, shared.ErrMappingNotFound)
}

func TestRegistryDocTypes(t *testing.T) {
	types := NewRegistry().DocTypes()
	require.Equal(t, []string{DocTypeAssetDisposal, DocTypeBill, DocTypeExpense, DocTypeInvoice, DocTypePayrollRun}, types)
}

func TestRegisterReplacesBuilder(t *testing.T) {
	registry := NewRegistry()
	registry.Register(stubBuilder{docType: DocTypeExpense})
	lines, err := registry.Build(context.Background(), fullResolver(), uuid.New(), DocTypeExpense, nil)
	require.NoError(t, err)
	require.Empty(t, lines)
}

type stubBuilder struct{ docType string }

func (b stubBuilder) DocType() string { return b.docType }

func (stubBuilder) BuildLines(ctx context.Context, resolver MappingResolver, tenant uuid.UUID, doc any) ([]journals.LineInput, error) {
	return nil, nil
}

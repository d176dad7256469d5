package postingrules

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger/journals"
)

// Builder maps one document type's fields to a balanced line set. Builders
// are pure apart from mapping resolution; the posting engine only validates
// and commits what they produce.
type Builder interface {
	DocType() string
	BuildLines(ctx context.Context, resolver MappingResolver, tenant uuid.UUID, doc any) ([]journals.LineInput, error)
}

// Registry holds the pluggable document-type strategies. New document types
// register a builder without touching the posting engine.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry preloaded with the built-in builders.
func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]Builder)}
	r.Register(invoiceBuilder{})
	r.Register(billBuilder{})
	r.Register(expenseBuilder{})
	r.Register(payrollBuilder{})
	r.Register(disposalBuilder{})
	return r
}

// Register installs a builder, replacing any previous one for the type.
func (r *Registry) Register(b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[b.DocType()] = b
}

// DocTypes lists registered document types.
func (r *Registry) DocTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.builders))
	for t := range r.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Build produces the line set for a document.
func (r *Registry) Build(ctx context.Context, resolver MappingResolver, tenant uuid.UUID, docType string, doc any) ([]journals.LineInput, error) {
	r.mu.RLock()
	builder, ok := r.builders[docType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("ledger: no posting rule registered for %q", docType)
	}
	return builder.BuildLines(ctx, resolver, tenant, doc)
}

func debitLine(account int64, amount decimal.Decimal) journals.LineInput {
	return journals.LineInput{AccountID: account, Debit: amount}
}

func creditLine(account int64, amount decimal.Decimal) journals.LineInput {
	return journals.LineInput{AccountID: account, Credit: amount}
}

type invoiceBuilder struct{}

func (invoiceBuilder) DocType() string { return DocTypeInvoice }

// BuildLines debits accounts receivable for the gross and credits revenue and
// tax payable.
func (invoiceBuilder) BuildLines(ctx context.Context, resolver MappingResolver, tenant uuid.UUID, doc any) ([]journals.LineInput, error) {
	invoice, ok := doc.(Invoice)
	if !ok {
		return nil, fmt.Errorf("ledger: invoice rule got %T", doc)
	}
	ar, err := resolver.Resolve(ctx, tenant, DocTypeInvoice, KeyAccountsReceivable)
	if err != nil {
		return nil, err
	}
	revenue, err := resolver.Resolve(ctx, tenant, DocTypeInvoice, KeyRevenue)
	if err != nil {
		return nil, err
	}
	lines := []journals.LineInput{
		debitLine(ar, invoice.Subtotal.Add(invoice.Tax)),
		creditLine(revenue, invoice.Subtotal),
	}
	if invoice.Tax.IsPositive() {
		taxPayable, err := resolver.Resolve(ctx, tenant, DocTypeInvoice, KeyTaxPayable)
		if err != nil {
			return nil, err
		}
		lines = append(lines, creditLine(taxPayable, invoice.Tax))
	}
	return lines, nil
}

type billBuilder struct{}

func (billBuilder) DocType() string { return DocTypeBill }

// BuildLines debits expense and recoverable tax, crediting accounts payable
// for the gross.
func (billBuilder) BuildLines(ctx context.Context, resolver MappingResolver, tenant uuid.UUID, doc any) ([]journals.LineInput, error) {
	bill, ok := doc.(Bill)
	if !ok {
		return nil, fmt.Errorf("ledger: bill rule got %T", doc)
	}
	expense, err := resolver.Resolve(ctx, tenant, DocTypeBill, KeyExpense)
	if err != nil {
		return nil, err
	}
	ap, err := resolver.Resolve(ctx, tenant, DocTypeBill, KeyAccountsPayable)
	if err != nil {
		return nil, err
	}
	lines := []journals.LineInput{debitLine(expense, bill.Subtotal)}
	if bill.Tax.IsPositive() {
		taxReceivable, err := resolver.Resolve(ctx, tenant, DocTypeBill, KeyTaxReceivable)
		if err != nil {
			return nil, err
		}
		lines = append(lines, debitLine(taxReceivable, bill.Tax))
	}
	lines = append(lines, creditLine(ap, bill.Subtotal.Add(bill.Tax)))
	return lines, nil
}

type expenseBuilder struct{}

func (expenseBuilder) DocType() string { return DocTypeExpense }

func (expenseBuilder) BuildLines(ctx context.Context, resolver MappingResolver, tenant uuid.UUID, doc any) ([]journals.LineInput, error) {
	expense, ok := doc.(Expense)
	if !ok {
		return nil, fmt.Errorf("ledger: expense rule got %T", doc)
	}
	expenseAcct, err := resolver.Resolve(ctx, tenant, DocTypeExpense, KeyExpense)
	if err != nil {
		return nil, err
	}
	cash, err := resolver.Resolve(ctx, tenant, DocTypeExpense, KeyCash)
	if err != nil {
		return nil, err
	}
	return []journals.LineInput{
		debitLine(expenseAcct, expense.Amount),
		creditLine(cash, expense.Amount),
	}, nil
}

type payrollBuilder struct{}

func (payrollBuilder) DocType() string { return DocTypePayrollRun }

// BuildLines expenses the gross, splitting the credit between withheld tax
// and net wages payable.
func (payrollBuilder) BuildLines(ctx context.Context, resolver MappingResolver, tenant uuid.UUID, doc any) ([]journals.LineInput, error) {
	run, ok := doc.(PayrollRun)
	if !ok {
		return nil, fmt.Errorf("ledger: payroll rule got %T", doc)
	}
	payrollExpense, err := resolver.Resolve(ctx, tenant, DocTypePayrollRun, KeyPayrollExpense)
	if err != nil {
		return nil, err
	}
	wagesPayable, err := resolver.Resolve(ctx, tenant, DocTypePayrollRun, KeyWagesPayable)
	if err != nil {
		return nil, err
	}
	lines := []journals.LineInput{debitLine(payrollExpense, run.Gross)}
	if run.Withholding.IsPositive() {
		taxWithheld, err := resolver.Resolve(ctx, tenant, DocTypePayrollRun, KeyTaxWithheld)
		if err != nil {
			return nil, err
		}
		lines = append(lines, creditLine(taxWithheld, run.Withholding))
	}
	lines = append(lines, creditLine(wagesPayable, run.Gross.Sub(run.Withholding)))
	return lines, nil
}

type disposalBuilder struct{}

func (disposalBuilder) DocType() string { return DocTypeAssetDisposal }

// BuildLines removes the asset at cost and its accumulated depreciation,
// books the proceeds, and balances the difference as a gain or loss.
func (disposalBuilder) BuildLines(ctx context.Context, resolver MappingResolver, tenant uuid.UUID, doc any) ([]journals.LineInput, error) {
	disposal, ok := doc.(AssetDisposal)
	if !ok {
		return nil, fmt.Errorf("ledger: disposal rule got %T", doc)
	}
	assets, err := resolver.Resolve(ctx, tenant, DocTypeAssetDisposal, KeyFixedAssets)
	if err != nil {
		return nil, err
	}
	accumDepr, err := resolver.Resolve(ctx, tenant, DocTypeAssetDisposal, KeyAccumDepreciation)
	if err != nil {
		return nil, err
	}
	var lines []journals.LineInput
	if disposal.Proceeds.IsPositive() {
		cash, err := resolver.Resolve(ctx, tenant, DocTypeAssetDisposal, KeyCash)
		if err != nil {
			return nil, err
		}
		lines = append(lines, debitLine(cash, disposal.Proceeds))
	}
	if disposal.AccumulatedDepr.IsPositive() {
		lines = append(lines, debitLine(accumDepr, disposal.AccumulatedDepr))
	}
	lines = append(lines, creditLine(assets, disposal.Cost))

	// Gain when proceeds plus recovered depreciation exceed cost.
	result := disposal.Proceeds.Add(disposal.AccumulatedDepr).Sub(disposal.Cost)
	switch {
	case result.IsPositive():
		gain, err := resolver.Resolve(ctx, tenant, DocTypeAssetDisposal, KeyDisposalGain)
		if err != nil {
			return nil, err
		}
		lines = append(lines, creditLine(gain, result))
	case result.IsNegative():
		loss, err := resolver.Resolve(ctx, tenant, DocTypeAssetDisposal, KeyDisposalLoss)
		if err != nil {
			return nil, err
		}
		lines = append(lines, debitLine(loss, result.Neg()))
	}
	return lines, nil
}

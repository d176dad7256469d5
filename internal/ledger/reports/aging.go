package reports

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aging bucket labels, ordered youngest to oldest.
const (
	BucketCurrent = "CURRENT"
	Bucket1To30   = "1_30"
	Bucket31To60  = "31_60"
	Bucket61To90  = "61_90"
	BucketOver90  = "OVER_90"
)

// OpenDocument is a posted, unreversed invoice or bill awaiting settlement.
// A document with no recorded due date ages from its entry date.
type OpenDocument struct {
	EntryID    int64
	Number     string
	SourceID   uuid.UUID
	SourceType string
	EntryDate  time.Time
	DueDate    *time.Time
	Amount     decimal.Decimal
}

// AgingRow is one open document placed in its bucket.
type AgingRow struct {
	EntryID  int64           `json:"entry_id"`
	Number   string          `json:"number"`
	SourceID uuid.UUID       `json:"source_id"`
	DueDate  time.Time       `json:"due_date"`
	DaysPast int             `json:"days_past"`
	Bucket   string          `json:"bucket"`
	Amount   decimal.Decimal `json:"amount"`
}

// AgingTotals sums amounts per bucket.
type AgingTotals struct {
	Current decimal.Decimal `json:"current"`
	Days1   decimal.Decimal `json:"days_1_30"`
	Days31  decimal.Decimal `json:"days_31_60"`
	Days61  decimal.Decimal `json:"days_61_90"`
	Over90  decimal.Decimal `json:"over_90"`
	Total   decimal.Decimal `json:"total"`
}

// AgingReport buckets open documents by days past due at the as-of date.
type AgingReport struct {
	AsOf   time.Time   `json:"as_of"`
	Rows   []AgingRow  `json:"rows"`
	Totals AgingTotals `json:"totals"`
}

// BuildAging places each open document in its bucket.
func BuildAging(asOf time.Time, docs []OpenDocument) AgingReport {
	report := AgingReport{
		AsOf: asOf,
		Rows: make([]AgingRow, 0, len(docs)),
		Totals: AgingTotals{
			Current: decimal.Zero, Days1: decimal.Zero, Days31: decimal.Zero,
			Days61: decimal.Zero, Over90: decimal.Zero, Total: decimal.Zero,
		},
	}
	for _, doc := range docs {
		due := doc.EntryDate
		if doc.DueDate != nil {
			due = *doc.DueDate
		}
		daysPast := int(asOf.Sub(due).Hours() / 24)
		row := AgingRow{
			EntryID:  doc.EntryID,
			Number:   doc.Number,
			SourceID: doc.SourceID,
			DueDate:  due,
			DaysPast: daysPast,
			Amount:   doc.Amount,
		}
		switch {
		case daysPast <= 0:
			row.Bucket = BucketCurrent
			report.Totals.Current = report.Totals.Current.Add(doc.Amount)
		case daysPast <= 30:
			row.Bucket = Bucket1To30
			report.Totals.Days1 = report.Totals.Days1.Add(doc.Amount)
		case daysPast <= 60:
			row.Bucket = Bucket31To60
			report.Totals.Days31 = report.Totals.Days31.Add(doc.Amount)
		case daysPast <= 90:
			row.Bucket = Bucket61To90
			report.Totals.Days61 = report.Totals.Days61.Add(doc.Amount)
		default:
			row.Bucket = BucketOver90
			report.Totals.Over90 = report.Totals.Over90.Add(doc.Amount)
		}
		report.Totals.Total = report.Totals.Total.Add(doc.Amount)
		report.Rows = append(report.Rows, row)
	}
	sort.Slice(report.Rows, func(i, j int) bool {
		if report.Rows[i].DueDate.Equal(report.Rows[j].DueDate) {
			return report.Rows[i].EntryID < report.Rows[j].EntryID
		}
		return report.Rows[i].DueDate.Before(report.Rows[j].DueDate)
	})
	return report
}

package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ObligationLedger pairs an obligation with its full transaction list, the
// unit the aggregation folds over.
type ObligationLedger struct {
	Obligation   Obligation
	Transactions []Transaction
}

// AccountSummary is the per-account aggregate shown on dashboards.
type AccountSummary struct {
	ObligationCount  int
	ActiveCount      int
	TotalPrincipal   decimal.Decimal
	TotalPaid        decimal.Decimal
	TotalOutstanding decimal.Decimal
	LastPaymentDate  *time.Time
	PaymentCount     int
	AveragePayment   decimal.Decimal
}

// SummarizeAccount folds an account's obligations into totals as of a
// reference date. Outstanding is balance plus accrued interest, summed over
// all obligations. Payment statistics cover payment and principal rows only.
//
// Deterministic for fixed input; an account with zero obligations yields an
// all-zero summary. When several payments share the max date the date itself
// is the result, so ordering ties need no tie-break.
func SummarizeAccount(ledgers []ObligationLedger, asOf time.Time) AccountSummary {
	s := AccountSummary{
		TotalPrincipal:   decimal.Zero,
		TotalPaid:        decimal.Zero,
		TotalOutstanding: decimal.Zero,
		AveragePayment:   decimal.Zero,
	}

	for _, l := range ledgers {
		s.ObligationCount++
		if l.Obligation.Active {
			s.ActiveCount++
		}
		s.TotalPrincipal = s.TotalPrincipal.Add(l.Obligation.Principal)

		reduced := Reduce(l.Obligation, l.Transactions)
		s.TotalPaid = s.TotalPaid.Add(reduced.TotalPaid)
		s.TotalOutstanding = s.TotalOutstanding.Add(Outstanding(l.Obligation, l.Transactions, asOf))

		for _, t := range l.Transactions {
			if t.Kind != TxPayment && t.Kind != TxPrincipal {
				continue
			}
			s.PaymentCount++
			if s.LastPaymentDate == nil || t.Date.After(*s.LastPaymentDate) {
				d := t.Date
				s.LastPaymentDate = &d
			}
		}
	}

	if s.PaymentCount > 0 {
		s.AveragePayment = RoundMoney(s.TotalPaid.Div(decimal.NewFromInt(int64(s.PaymentCount))))
	}
	return s
}

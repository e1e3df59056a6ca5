package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceSummary is the result of reducing an obligation's transaction list.
type BalanceSummary struct {
	TotalPaid         decimal.Decimal
	TotalInterestPaid decimal.Decimal
	TotalRefund       decimal.Decimal
	Balance           decimal.Decimal
}

// Reduce folds an obligation's full transaction list into paid totals and the
// outstanding principal balance:
//
//	balance = principal - sum(payment, principal) + sum(refund)
//
// Interest rows track interest received and never touch the principal
// balance. Mixed rows are accepted on write but unclassified, so they enter
// none of the sums. An empty list yields balance == principal. Pure function:
// no error cases, no side effects.
func Reduce(o Obligation, txs []Transaction) BalanceSummary {
	s := BalanceSummary{
		TotalPaid:         decimal.Zero,
		TotalInterestPaid: decimal.Zero,
		TotalRefund:       decimal.Zero,
	}
	for _, t := range txs {
		switch t.Kind {
		case TxPayment, TxPrincipal:
			s.TotalPaid = s.TotalPaid.Add(t.Amount)
		case TxInterest:
			s.TotalInterestPaid = s.TotalInterestPaid.Add(t.Amount)
		case TxRefund:
			s.TotalRefund = s.TotalRefund.Add(t.Amount)
		}
	}
	s.Balance = o.Principal.Sub(s.TotalPaid).Add(s.TotalRefund)
	return s
}

// Outstanding returns the amount owed on an obligation as of a date: the
// reduced principal balance plus interest accrued on it. Derived on every
// read, never stored.
func Outstanding(o Obligation, txs []Transaction, asOf time.Time) decimal.Decimal {
	balance := Reduce(o, txs).Balance
	interest := AccrueInterest(balance, o.Rate, o.Method, o.OriginDate, asOf)
	return balance.Add(interest)
}

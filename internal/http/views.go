package http

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"khata/internal/core"
	"khata/internal/services"
)

// API views. Dates render as YYYY-MM-DD strings; amounts as decimal strings.

type accountView struct {
	ID      uuid.UUID `json:"id"`
	Kind    string    `json:"kind"`
	Name    string    `json:"name"`
	Phone   string    `json:"phone,omitempty"`
	Address string    `json:"address,omitempty"`
}

func newAccountView(a core.Account) accountView {
	return accountView{
		ID:      a.ID,
		Kind:    string(a.Kind),
		Name:    a.Name,
		Phone:   a.Phone,
		Address: a.Address,
	}
}

type obligationView struct {
	ID         uuid.UUID       `json:"id"`
	AccountID  uuid.UUID       `json:"account_id"`
	Kind       string          `json:"kind"`
	Principal  decimal.Decimal `json:"principal"`
	OriginDate string          `json:"origin_date"`
	DueDate    string          `json:"due_date,omitempty"`
	Rate       decimal.Decimal `json:"rate"`
	Method     string          `json:"method"`
	Active     bool            `json:"active"`
	Note       string          `json:"note,omitempty"`
}

func newObligationView(o core.Obligation) obligationView {
	v := obligationView{
		ID:         o.ID,
		AccountID:  o.AccountID,
		Kind:       string(o.Kind),
		Principal:  o.Principal,
		OriginDate: o.OriginDate.Format(dateLayout),
		Rate:       o.Rate,
		Method:     string(o.Method),
		Active:     o.Active,
		Note:       o.Note,
	}
	if o.DueDate != nil {
		v.DueDate = o.DueDate.Format(dateLayout)
	}
	return v
}

type transactionView struct {
	ID           uuid.UUID       `json:"id"`
	ObligationID uuid.UUID       `json:"obligation_id"`
	Amount       decimal.Decimal `json:"amount"`
	Date         string          `json:"date"`
	Kind         string          `json:"kind"`
	Note         string          `json:"note,omitempty"`
}

func newTransactionView(t core.Transaction) transactionView {
	return transactionView{
		ID:           t.ID,
		ObligationID: t.ObligationID,
		Amount:       t.Amount,
		Date:         t.Date.Format(dateLayout),
		Kind:         string(t.Kind),
		Note:         t.Note,
	}
}

func newTransactionViews(txs []core.Transaction) []transactionView {
	views := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		views = append(views, newTransactionView(t))
	}
	return views
}

type statementView struct {
	Obligation        obligationView    `json:"obligation"`
	Transactions      []transactionView `json:"transactions"`
	TotalPaid         decimal.Decimal   `json:"total_paid"`
	TotalInterestPaid decimal.Decimal   `json:"total_interest_paid"`
	TotalRefund       decimal.Decimal   `json:"total_refund"`
	Balance           decimal.Decimal   `json:"balance"`
	AccruedInterest   decimal.Decimal   `json:"accrued_interest"`
	Outstanding       decimal.Decimal   `json:"outstanding"`
	AsOf              string            `json:"as_of"`
}

func newStatementView(st services.Statement) statementView {
	return statementView{
		Obligation:        newObligationView(st.Obligation),
		Transactions:      newTransactionViews(st.Transactions),
		TotalPaid:         st.Summary.TotalPaid,
		TotalInterestPaid: st.Summary.TotalInterestPaid,
		TotalRefund:       st.Summary.TotalRefund,
		Balance:           st.Summary.Balance,
		AccruedInterest:   st.AccruedInterest,
		Outstanding:       st.Outstanding,
		AsOf:              st.AsOf.Format(dateLayout),
	}
}

type accountSummaryView struct {
	AccountID        uuid.UUID       `json:"account_id"`
	AsOf             string          `json:"as_of"`
	ObligationCount  int             `json:"obligation_count"`
	ActiveCount      int             `json:"active_count"`
	TotalPrincipal   decimal.Decimal `json:"total_principal"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	LastPaymentDate  string          `json:"last_payment_date,omitempty"`
	PaymentCount     int             `json:"payment_count"`
	AveragePayment   decimal.Decimal `json:"average_payment"`
}

func newAccountSummaryView(accountID uuid.UUID, asOf time.Time, s core.AccountSummary) accountSummaryView {
	v := accountSummaryView{
		AccountID:        accountID,
		AsOf:             asOf.Format(dateLayout),
		ObligationCount:  s.ObligationCount,
		ActiveCount:      s.ActiveCount,
		TotalPrincipal:   s.TotalPrincipal,
		TotalPaid:        s.TotalPaid,
		TotalOutstanding: s.TotalOutstanding,
		PaymentCount:     s.PaymentCount,
		AveragePayment:   s.AveragePayment,
	}
	if s.LastPaymentDate != nil {
		v.LastPaymentDate = s.LastPaymentDate.Format(dateLayout)
	}
	return v
}

type chequeView struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	ObligationID *uuid.UUID      `json:"obligation_id,omitempty"`
	Number       string          `json:"number"`
	Bank         string          `json:"bank,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	IssueDate    string          `json:"issue_date"`
	DueDate      string          `json:"due_date"`
	Status       string          `json:"status"`
}

func newChequeView(c core.Cheque) chequeView {
	return chequeView{
		ID:           c.ID,
		AccountID:    c.AccountID,
		ObligationID: c.ObligationID,
		Number:       c.Number,
		Bank:         c.Bank,
		Amount:       c.Amount,
		IssueDate:    c.IssueDate.Format(dateLayout),
		DueDate:      c.DueDate.Format(dateLayout),
		Status:       string(c.Status),
	}
}

type expenseView struct {
	ID          uuid.UUID       `json:"id"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category,omitempty"`
}

func newExpenseView(e core.Expense) expenseView {
	return expenseView{
		ID:          e.ID,
		Date:        e.Date.Format(dateLayout),
		Description: e.Description,
		Amount:      e.Amount,
		Category:    e.Category,
	}
}

type categoryAmountView struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type expenseOverviewView struct {
	Year       int                  `json:"year"`
	Month      int                  `json:"month"`
	Total      decimal.Decimal      `json:"total"`
	ByCategory []categoryAmountView `json:"by_category"`
}

func newExpenseOverviewView(o core.ExpenseOverview) expenseOverviewView {
	v := expenseOverviewView{
		Year:       o.Year,
		Month:      o.Month,
		Total:      o.Total,
		ByCategory: make([]categoryAmountView, 0, len(o.ByCategory)),
	}
	for _, c := range o.ByCategory {
		v.ByCategory = append(v.ByCategory, categoryAmountView{Name: c.Name, Amount: c.Amount})
	}
	return v
}

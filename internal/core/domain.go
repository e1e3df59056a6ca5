package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AccountCustomer AccountKind = "customer"
	AccountMahajan  AccountKind = "mahajan"
)

const (
	ObligationBill ObligationKind = "bill"
	ObligationLoan ObligationKind = "loan"
	ObligationSale ObligationKind = "sale"
)

const (
	TxPayment   TransactionKind = "payment"
	TxPrincipal TransactionKind = "principal"
	TxInterest  TransactionKind = "interest"
	TxRefund    TransactionKind = "refund"
	TxMixed     TransactionKind = "mixed"
)

const (
	ChequePending ChequeStatus = "pending"
	ChequeDue     ChequeStatus = "due"
	ChequeCleared ChequeStatus = "cleared"
	ChequeBounced ChequeStatus = "bounced"
)

type (
	AccountKind     string
	ObligationKind  string
	TransactionKind string
	ChequeStatus    string

	// Account is a customer or mahajan (trade creditor) that owns obligations.
	Account struct {
		ID      uuid.UUID
		Kind    AccountKind
		Name    string
		Phone   string
		Address string
	}

	// Obligation is a bill, loan, or sale owed by/to an account. Immutable
	// once created except for due-date correction and the active flag.
	Obligation struct {
		ID         uuid.UUID
		AccountID  uuid.UUID
		Kind       ObligationKind
		Principal  decimal.Decimal
		OriginDate time.Time
		DueDate    *time.Time
		Rate       decimal.Decimal // percent, zero means no interest
		Method     InterestMethod
		Active     bool
		Note       string
	}

	// Transaction is an append-only row against an obligation. Corrections
	// are compensating rows (refund), never edits.
	Transaction struct {
		ID           uuid.UUID
		ObligationID uuid.UUID
		Amount       decimal.Decimal
		Date         time.Time
		Kind         TransactionKind
		Note         string
	}

	Cheque struct {
		ID           uuid.UUID
		AccountID    uuid.UUID
		ObligationID *uuid.UUID
		Number       string
		Bank         string
		Amount       decimal.Decimal
		IssueDate    time.Time
		DueDate      time.Time
		Status       ChequeStatus
	}

	Expense struct {
		ID          uuid.UUID
		Date        time.Time
		Description string
		Amount      decimal.Decimal
		Category    string
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEmptyName         = errors.New("empty name")
	ErrInvalidKind       = errors.New("invalid kind")
	ErrInactive          = errors.New("obligation is not active")
	ErrExceedsBalance    = errors.New("amount exceeds outstanding balance")
	ErrInvalidTransition = errors.New("invalid cheque status transition")
)

func (k AccountKind) Valid() bool {
	return k == AccountCustomer || k == AccountMahajan
}

func (k ObligationKind) Valid() bool {
	return k == ObligationBill || k == ObligationLoan || k == ObligationSale
}

func (k TransactionKind) Valid() bool {
	switch k {
	case TxPayment, TxPrincipal, TxInterest, TxRefund, TxMixed:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if !a.Kind.Valid() {
		return ErrInvalidKind
	}
	if len(strings.TrimSpace(a.Name)) == 0 {
		return ErrEmptyName
	}
	if len(a.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return nil
}

func (o Obligation) Validate() error {
	if !o.Kind.Valid() {
		return ErrInvalidKind
	}
	if o.Principal.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if o.OriginDate.IsZero() {
		return ErrInvalidDate
	}
	if o.DueDate != nil && o.DueDate.Before(o.OriginDate) {
		return errors.New("due date before origin date")
	}
	if o.Rate.IsNegative() {
		return errors.New("negative interest rate")
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(t.Note) > 500 {
		return errors.New("note too long (max 500 characters)")
	}
	return nil
}

func (c Cheque) Validate() error {
	if len(strings.TrimSpace(c.Number)) == 0 {
		return errors.New("empty cheque number")
	}
	if c.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if c.IssueDate.IsZero() || c.DueDate.IsZero() {
		return ErrInvalidDate
	}
	if c.DueDate.Before(c.IssueDate) {
		return errors.New("due date before issue date")
	}
	return nil
}

// CanTransition reports whether a cheque may move from its current status to
// the target. Cleared and bounced are terminal except for the
// cleared -> bounced compensation path.
func (c Cheque) CanTransition(to ChequeStatus) bool {
	switch c.Status {
	case ChequePending:
		return to == ChequeDue || to == ChequeCleared || to == ChequeBounced
	case ChequeDue:
		return to == ChequeCleared || to == ChequeBounced
	case ChequeCleared:
		return to == ChequeBounced
	}
	return false
}

func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return errors.New("empty description")
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if e.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"khata/internal/amqp"
	"khata/internal/cache"
	"khata/internal/core"
	"khata/internal/storage"
)

// EventPublisher is the slice of the AMQP client the ledger needs. A nil
// publisher disables events without changing any write path.
type EventPublisher interface {
	PublishTransactionRecorded(ctx context.Context, msg amqp.TransactionRecordedMessage) error
	PublishChequeEvent(ctx context.Context, msgType string, msg amqp.ChequeEventMessage) error
	Close() error
}

// LedgerService orchestrates ledger operations across storage, the summary
// cache and AMQP. All writes invalidate the affected account's cached
// summaries before returning.
type LedgerService struct {
	repo      storage.Repository
	events    EventPublisher
	summaries *cache.LRUCache[core.AccountSummary]
	now       func() time.Time
}

func NewLedgerService(repo storage.Repository, events EventPublisher, summaries *cache.LRUCache[core.AccountSummary]) *LedgerService {
	return &LedgerService{
		repo:      repo,
		events:    events,
		summaries: summaries,
		now:       time.Now,
	}
}

// Statement is one obligation's full view: the transaction history and the
// derived balances as of a given date.
type Statement struct {
	Obligation      core.Obligation
	Transactions    []core.Transaction
	Summary         core.BalanceSummary
	AccruedInterest decimal.Decimal
	Outstanding     decimal.Decimal
	AsOf            time.Time
}

func (s *LedgerService) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if err := s.repo.CreateAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

func (s *LedgerService) GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *LedgerService) ListAccounts(ctx context.Context, kind core.AccountKind) ([]core.Account, error) {
	return s.repo.ListAccounts(ctx, kind)
}

func (s *LedgerService) CreateObligation(ctx context.Context, o core.Obligation) (core.Obligation, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if err := o.Validate(); err != nil {
		return core.Obligation{}, err
	}
	if _, err := s.repo.GetAccount(ctx, o.AccountID); err != nil {
		return core.Obligation{}, fmt.Errorf("account %s: %w", o.AccountID, err)
	}
	if err := s.repo.CreateObligation(ctx, o); err != nil {
		return core.Obligation{}, fmt.Errorf("create obligation: %w", err)
	}
	s.invalidateAccount(ctx, o.AccountID)
	return o, nil
}

func (s *LedgerService) GetObligation(ctx context.Context, id uuid.UUID) (core.Obligation, error) {
	return s.repo.GetObligation(ctx, id)
}

// UpdateObligationTerms changes the due date and active flag. Principal,
// rate, method and origin date are immutable once the obligation exists.
func (s *LedgerService) UpdateObligationTerms(ctx context.Context, id uuid.UUID, dueDate *time.Time, active bool) (core.Obligation, error) {
	o, err := s.repo.GetObligation(ctx, id)
	if err != nil {
		return core.Obligation{}, err
	}
	if dueDate != nil && dueDate.Before(o.OriginDate) {
		return core.Obligation{}, fmt.Errorf("due date before origin date: %w", core.ErrInvalidDate)
	}
	if err := s.repo.UpdateObligationTerms(ctx, id, dueDate, active); err != nil {
		return core.Obligation{}, fmt.Errorf("update obligation terms: %w", err)
	}
	s.invalidateAccount(ctx, o.AccountID)
	o.DueDate = dueDate
	o.Active = active
	return o, nil
}

// RecordTransaction appends a row to an obligation's ledger. Payments and
// principal repayments are rejected when they exceed the outstanding amount
// as of the transaction date, so an obligation can never be overpaid into a
// negative balance by mistake.
func (s *LedgerService) RecordTransaction(ctx context.Context, obligationID uuid.UUID, amount decimal.Decimal, date time.Time, kind core.TransactionKind, note string) (core.Transaction, error) {
	o, err := s.repo.GetObligation(ctx, obligationID)
	if err != nil {
		return core.Transaction{}, err
	}
	if !o.Active {
		return core.Transaction{}, core.ErrInactive
	}

	t := core.Transaction{
		ID:           uuid.New(),
		ObligationID: obligationID,
		Amount:       amount,
		Date:         date,
		Kind:         kind,
		Note:         note,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if kind == core.TxPayment || kind == core.TxPrincipal {
		txs, err := s.repo.ListTransactions(ctx, obligationID)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("list transactions: %w", err)
		}
		outstanding := core.Outstanding(o, txs, date)
		if amount.GreaterThan(outstanding) {
			return core.Transaction{}, fmt.Errorf("amount %s exceeds outstanding %s: %w",
				amount, outstanding, core.ErrExceedsBalance)
		}
	}

	if err := s.repo.AppendTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}
	s.invalidateAccount(ctx, o.AccountID)
	s.publishTransactionRecorded(ctx, t, o.AccountID)
	return t, nil
}

// ObligationStatement returns the obligation's transaction history and its
// derived balances, with interest accrued up to asOf.
func (s *LedgerService) ObligationStatement(ctx context.Context, id uuid.UUID, asOf time.Time) (Statement, error) {
	o, err := s.repo.GetObligation(ctx, id)
	if err != nil {
		return Statement{}, err
	}
	txs, err := s.repo.ListTransactions(ctx, id)
	if err != nil {
		return Statement{}, fmt.Errorf("list transactions: %w", err)
	}

	summary := core.Reduce(o, txs)
	accrued := core.AccrueInterest(summary.Balance, o.Rate, o.Method, o.OriginDate, asOf)
	return Statement{
		Obligation:      o,
		Transactions:    txs,
		Summary:         summary,
		AccruedInterest: accrued,
		Outstanding:     core.RoundMoney(summary.Balance.Add(accrued)),
		AsOf:            asOf,
	}, nil
}

// AccountLedgers loads every obligation of an account together with its
// transaction history.
func (s *LedgerService) AccountLedgers(ctx context.Context, accountID uuid.UUID) ([]core.ObligationLedger, error) {
	if _, err := s.repo.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	obligations, err := s.repo.ListObligationsByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}

	ledgers := make([]core.ObligationLedger, 0, len(obligations))
	for _, o := range obligations {
		txs, err := s.repo.ListTransactions(ctx, o.ID)
		if err != nil {
			return nil, fmt.Errorf("list transactions for %s: %w", o.ID, err)
		}
		ledgers = append(ledgers, core.ObligationLedger{Obligation: o, Transactions: txs})
	}
	return ledgers, nil
}

// AccountSummary aggregates an account's obligations as of a date. Results
// are cached per account and day; every write to the account deletes its
// cached entries.
func (s *LedgerService) AccountSummary(ctx context.Context, accountID uuid.UUID, asOf time.Time) (core.AccountSummary, error) {
	key := summaryKey(accountID, asOf)
	if s.summaries != nil {
		if summary, ok := s.summaries.Get(key); ok {
			return summary, nil
		}
	}

	ledgers, err := s.AccountLedgers(ctx, accountID)
	if err != nil {
		return core.AccountSummary{}, err
	}
	summary := core.SummarizeAccount(ledgers, asOf)
	if s.summaries != nil {
		s.summaries.Set(key, summary)
	}
	return summary, nil
}

func (s *LedgerService) CreateCheque(ctx context.Context, c core.Cheque) (core.Cheque, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = core.ChequePending
	}
	if err := c.Validate(); err != nil {
		return core.Cheque{}, err
	}
	if _, err := s.repo.GetAccount(ctx, c.AccountID); err != nil {
		return core.Cheque{}, fmt.Errorf("account %s: %w", c.AccountID, err)
	}
	if c.ObligationID != nil {
		if _, err := s.repo.GetObligation(ctx, *c.ObligationID); err != nil {
			return core.Cheque{}, fmt.Errorf("obligation %s: %w", c.ObligationID, err)
		}
	}
	if err := s.repo.CreateCheque(ctx, c); err != nil {
		return core.Cheque{}, fmt.Errorf("create cheque: %w", err)
	}
	return c, nil
}

func (s *LedgerService) GetCheque(ctx context.Context, id uuid.UUID) (core.Cheque, error) {
	return s.repo.GetCheque(ctx, id)
}

func (s *LedgerService) ListCheques(ctx context.Context, status core.ChequeStatus) ([]core.Cheque, error) {
	return s.repo.ListChequesByStatus(ctx, status)
}

// MarkChequeDue moves a pending cheque to due. The cheque worker calls this
// once a cheque's due date arrives.
func (s *LedgerService) MarkChequeDue(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.GetCheque(ctx, id)
	if err != nil {
		return err
	}
	if !c.CanTransition(core.ChequeDue) {
		return fmt.Errorf("cheque %s is %s: %w", id, c.Status, core.ErrInvalidTransition)
	}
	if err := s.repo.UpdateChequeStatus(ctx, id, c.Status, core.ChequeDue); err != nil {
		return fmt.Errorf("mark cheque due: %w", err)
	}
	s.publishChequeEvent(ctx, amqp.TypeChequeDue, c)
	return nil
}

// ClearCheque marks a cheque cleared. When the cheque is tied to an
// obligation, the payment transaction is recorded in the same database
// transaction as the status change.
func (s *LedgerService) ClearCheque(ctx context.Context, id uuid.UUID, date time.Time) (core.Cheque, error) {
	c, err := s.repo.GetCheque(ctx, id)
	if err != nil {
		return core.Cheque{}, err
	}
	if !c.CanTransition(core.ChequeCleared) {
		return core.Cheque{}, fmt.Errorf("cheque %s is %s: %w", id, c.Status, core.ErrInvalidTransition)
	}

	if c.ObligationID != nil {
		payment := core.Transaction{
			ID:           uuid.New(),
			ObligationID: *c.ObligationID,
			Amount:       c.Amount,
			Date:         date,
			Kind:         core.TxPayment,
			Note:         fmt.Sprintf("cheque %s cleared", c.Number),
		}
		if err := s.repo.UpdateChequeStatusWithTransaction(ctx, id, c.Status, core.ChequeCleared, payment); err != nil {
			return core.Cheque{}, fmt.Errorf("clear cheque: %w", err)
		}
		s.publishTransactionRecorded(ctx, payment, c.AccountID)
	} else {
		if err := s.repo.UpdateChequeStatus(ctx, id, c.Status, core.ChequeCleared); err != nil {
			return core.Cheque{}, fmt.Errorf("clear cheque: %w", err)
		}
	}

	s.invalidateAccount(ctx, c.AccountID)
	s.publishChequeEvent(ctx, amqp.TypeChequeCleared, c)
	c.Status = core.ChequeCleared
	return c, nil
}

// BounceCheque marks a cheque bounced. Bouncing an already cleared cheque
// that paid an obligation records a compensating refund atomically with the
// status change, so the ledger stays append-only.
func (s *LedgerService) BounceCheque(ctx context.Context, id uuid.UUID, date time.Time) (core.Cheque, error) {
	c, err := s.repo.GetCheque(ctx, id)
	if err != nil {
		return core.Cheque{}, err
	}
	if !c.CanTransition(core.ChequeBounced) {
		return core.Cheque{}, fmt.Errorf("cheque %s is %s: %w", id, c.Status, core.ErrInvalidTransition)
	}

	if c.Status == core.ChequeCleared && c.ObligationID != nil {
		refund := core.Transaction{
			ID:           uuid.New(),
			ObligationID: *c.ObligationID,
			Amount:       c.Amount,
			Date:         date,
			Kind:         core.TxRefund,
			Note:         fmt.Sprintf("cheque %s bounced", c.Number),
		}
		if err := s.repo.UpdateChequeStatusWithTransaction(ctx, id, c.Status, core.ChequeBounced, refund); err != nil {
			return core.Cheque{}, fmt.Errorf("bounce cheque: %w", err)
		}
		s.publishTransactionRecorded(ctx, refund, c.AccountID)
	} else {
		if err := s.repo.UpdateChequeStatus(ctx, id, c.Status, core.ChequeBounced); err != nil {
			return core.Cheque{}, fmt.Errorf("bounce cheque: %w", err)
		}
	}

	s.invalidateAccount(ctx, c.AccountID)
	s.publishChequeEvent(ctx, amqp.TypeChequeBounced, c)
	c.Status = core.ChequeBounced
	return c, nil
}

func (s *LedgerService) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.repo.AppendExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("append expense: %w", err)
	}
	return e, nil
}

func (s *LedgerService) ListExpenses(ctx context.Context, year, month int) ([]core.Expense, error) {
	return s.repo.ListExpensesByMonth(ctx, year, month)
}

func (s *LedgerService) ExpenseOverview(ctx context.Context, year, month int) (core.ExpenseOverview, error) {
	return s.repo.ExpenseOverview(ctx, year, month)
}

func summaryKey(accountID uuid.UUID, asOf time.Time) string {
	return accountID.String() + "/summary/" + asOf.Format("2006-01-02")
}

func (s *LedgerService) invalidateAccount(ctx context.Context, accountID uuid.UUID) {
	if s.summaries == nil {
		return
	}
	if n := s.summaries.DeletePrefix(accountID.String() + "/"); n > 0 {
		slog.DebugContext(ctx, "Invalidated cached summaries",
			"account_id", accountID, "entries", n)
	}
}

func (s *LedgerService) publishTransactionRecorded(ctx context.Context, t core.Transaction, accountID uuid.UUID) {
	if s.events == nil {
		return
	}
	msg := amqp.TransactionRecordedMessage{
		TransactionID: t.ID,
		ObligationID:  t.ObligationID,
		AccountID:     accountID,
		Kind:          string(t.Kind),
	}
	if err := s.events.PublishTransactionRecorded(ctx, msg); err != nil {
		// The write already succeeded; losing the event must not fail it.
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"transaction_id", t.ID, "error", err)
	}
}

func (s *LedgerService) publishChequeEvent(ctx context.Context, msgType string, c core.Cheque) {
	if s.events == nil {
		return
	}
	msg := amqp.ChequeEventMessage{
		ChequeID:  c.ID,
		AccountID: c.AccountID,
		DueDate:   c.DueDate,
	}
	if err := s.events.PublishChequeEvent(ctx, msgType, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish cheque event",
			"cheque_id", c.ID, "type", msgType, "error", err)
	}
}

// Close closes storage and the event publisher.
func (s *LedgerService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}

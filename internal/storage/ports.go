package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"khata/internal/core"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Ports for the ledger's persistence layer. The SQLite repository is the
// production implementation; the memory repository backs tests and the
// `memory` data backend.
type (
	AccountStore interface {
		CreateAccount(ctx context.Context, a core.Account) error
		GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error)
		ListAccounts(ctx context.Context, kind core.AccountKind) ([]core.Account, error)
	}

	ObligationStore interface {
		CreateObligation(ctx context.Context, o core.Obligation) error
		GetObligation(ctx context.Context, id uuid.UUID) (core.Obligation, error)
		ListObligationsByAccount(ctx context.Context, accountID uuid.UUID) ([]core.Obligation, error)
		// UpdateObligationTerms changes the only mutable obligation fields:
		// the due date and the active flag.
		UpdateObligationTerms(ctx context.Context, id uuid.UUID, dueDate *time.Time, active bool) error
	}

	TransactionStore interface {
		AppendTransaction(ctx context.Context, t core.Transaction) error
		ListTransactions(ctx context.Context, obligationID uuid.UUID) ([]core.Transaction, error)
	}

	ChequeStore interface {
		CreateCheque(ctx context.Context, c core.Cheque) error
		GetCheque(ctx context.Context, id uuid.UUID) (core.Cheque, error)
		ListChequesByStatus(ctx context.Context, status core.ChequeStatus) ([]core.Cheque, error)
		// UpdateChequeStatus transitions a cheque from one status to another,
		// failing with ErrNotFound when the cheque is no longer in `from`.
		UpdateChequeStatus(ctx context.Context, id uuid.UUID, from, to core.ChequeStatus) error
		// UpdateChequeStatusWithTransaction transitions a cheque and appends
		// the ledger row recording it (payment on clear, compensating refund
		// on bounce-after-clear) in one atomic write.
		UpdateChequeStatusWithTransaction(ctx context.Context, chequeID uuid.UUID, from, to core.ChequeStatus, t core.Transaction) error
	}

	ExpenseStore interface {
		AppendExpense(ctx context.Context, e core.Expense) error
		ListExpensesByMonth(ctx context.Context, year, month int) ([]core.Expense, error)
		ExpenseOverview(ctx context.Context, year, month int) (core.ExpenseOverview, error)
	}

	Repository interface {
		AccountStore
		ObligationStore
		TransactionStore
		ChequeStore
		ExpenseStore
		Close() error
	}
)

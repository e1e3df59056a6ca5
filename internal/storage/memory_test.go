package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"khata/internal/core"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func seedAccount(t *testing.T, repo Repository) core.Account {
	t.Helper()
	a := core.Account{ID: uuid.New(), Kind: core.AccountCustomer, Name: "Ramesh Traders"}
	if err := repo.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

func seedObligation(t *testing.T, repo Repository, accountID uuid.UUID) core.Obligation {
	t.Helper()
	o := core.Obligation{
		ID:         uuid.New(),
		AccountID:  accountID,
		Kind:       core.ObligationLoan,
		Principal:  decimal.NewFromInt(1000),
		OriginDate: day(2024, 1, 1),
		Method:     core.MethodNone,
		Active:     true,
	}
	if err := repo.CreateObligation(context.Background(), o); err != nil {
		t.Fatalf("seed obligation: %v", err)
	}
	return o
}

func TestMemoryRepositoryAccounts(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	a := seedAccount(t, repo)

	got, err := repo.GetAccount(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Name != a.Name || got.Kind != core.AccountCustomer {
		t.Fatalf("got %+v, want %+v", got, a)
	}

	if _, err := repo.GetAccount(ctx, uuid.New()); err != ErrNotFound {
		t.Fatalf("missing account: err = %v, want ErrNotFound", err)
	}

	customers, err := repo.ListAccounts(ctx, core.AccountCustomer)
	if err != nil || len(customers) != 1 {
		t.Fatalf("ListAccounts(customer) = %d accounts, err %v", len(customers), err)
	}
	mahajans, err := repo.ListAccounts(ctx, core.AccountMahajan)
	if err != nil || len(mahajans) != 0 {
		t.Fatalf("ListAccounts(mahajan) = %d accounts, err %v", len(mahajans), err)
	}
}

func TestMemoryRepositoryObligationTerms(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	a := seedAccount(t, repo)
	o := seedObligation(t, repo, a.ID)

	due := day(2024, 6, 1)
	if err := repo.UpdateObligationTerms(ctx, o.ID, &due, false); err != nil {
		t.Fatalf("UpdateObligationTerms: %v", err)
	}

	got, err := repo.GetObligation(ctx, o.ID)
	if err != nil {
		t.Fatalf("GetObligation: %v", err)
	}
	if got.Active {
		t.Fatal("obligation should be inactive")
	}
	if got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Fatalf("DueDate = %v, want %v", got.DueDate, due)
	}
	// The immutable fields are untouched.
	if !got.Principal.Equal(o.Principal) || !got.OriginDate.Equal(o.OriginDate) {
		t.Fatalf("immutable fields changed: %+v", got)
	}

	if err := repo.UpdateObligationTerms(ctx, uuid.New(), nil, true); err != ErrNotFound {
		t.Fatalf("missing obligation: err = %v, want ErrNotFound", err)
	}
}

func TestMemoryRepositoryTransactionsOrderedByDate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	a := seedAccount(t, repo)
	o := seedObligation(t, repo, a.ID)

	later := core.Transaction{ID: uuid.New(), ObligationID: o.ID, Amount: decimal.NewFromInt(50), Date: day(2024, 3, 1), Kind: core.TxPayment}
	earlier := core.Transaction{ID: uuid.New(), ObligationID: o.ID, Amount: decimal.NewFromInt(100), Date: day(2024, 2, 1), Kind: core.TxPayment}

	if err := repo.AppendTransaction(ctx, later); err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}
	if err := repo.AppendTransaction(ctx, earlier); err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}

	txs, err := repo.ListTransactions(ctx, o.ID)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if txs[0].ID != earlier.ID {
		t.Fatal("transactions should be ordered by date")
	}
}

func TestMemoryRepositoryChequeTransitions(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	a := seedAccount(t, repo)
	c := core.Cheque{
		ID:        uuid.New(),
		AccountID: a.ID,
		Number:    "000123",
		Amount:    decimal.NewFromInt(500),
		IssueDate: day(2024, 1, 1),
		DueDate:   day(2024, 2, 1),
		Status:    core.ChequePending,
	}
	if err := repo.CreateCheque(ctx, c); err != nil {
		t.Fatalf("CreateCheque: %v", err)
	}

	if err := repo.UpdateChequeStatus(ctx, c.ID, core.ChequePending, core.ChequeDue); err != nil {
		t.Fatalf("pending -> due: %v", err)
	}

	// Guarded transition: the cheque is no longer pending.
	if err := repo.UpdateChequeStatus(ctx, c.ID, core.ChequePending, core.ChequeCleared); err != ErrNotFound {
		t.Fatalf("stale transition: err = %v, want ErrNotFound", err)
	}

	due, err := repo.ListChequesByStatus(ctx, core.ChequeDue)
	if err != nil || len(due) != 1 {
		t.Fatalf("ListChequesByStatus(due) = %d cheques, err %v", len(due), err)
	}
}

func TestMemoryRepositorySettleChequeIsAtomic(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	a := seedAccount(t, repo)
	o := seedObligation(t, repo, a.ID)
	c := core.Cheque{
		ID:           uuid.New(),
		AccountID:    a.ID,
		ObligationID: &o.ID,
		Number:       "000124",
		Amount:       decimal.NewFromInt(400),
		IssueDate:    day(2024, 1, 1),
		DueDate:      day(2024, 2, 1),
		Status:       core.ChequeDue,
	}
	if err := repo.CreateCheque(ctx, c); err != nil {
		t.Fatalf("CreateCheque: %v", err)
	}

	payment := core.Transaction{
		ID:           uuid.New(),
		ObligationID: o.ID,
		Amount:       c.Amount,
		Date:         day(2024, 2, 1),
		Kind:         core.TxPayment,
	}
	if err := repo.UpdateChequeStatusWithTransaction(ctx, c.ID, core.ChequeDue, core.ChequeCleared, payment); err != nil {
		t.Fatalf("UpdateChequeStatusWithTransaction: %v", err)
	}

	got, _ := repo.GetCheque(ctx, c.ID)
	if got.Status != core.ChequeCleared {
		t.Fatalf("status = %s, want cleared", got.Status)
	}
	txs, _ := repo.ListTransactions(ctx, o.ID)
	if len(txs) != 1 || !txs[0].Amount.Equal(c.Amount) {
		t.Fatalf("expected one payment of %s, got %v", c.Amount, txs)
	}

	// A second settle of the same cheque must fail and append nothing.
	if err := repo.UpdateChequeStatusWithTransaction(ctx, c.ID, core.ChequeDue, core.ChequeCleared, payment); err != ErrNotFound {
		t.Fatalf("double settle: err = %v, want ErrNotFound", err)
	}
	txs, _ = repo.ListTransactions(ctx, o.ID)
	if len(txs) != 1 {
		t.Fatalf("double settle must not append, got %d transactions", len(txs))
	}
}

func TestMemoryRepositoryExpenseOverview(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for _, e := range []core.Expense{
		{ID: uuid.New(), Date: day(2024, 3, 5), Description: "tea", Amount: decimal.NewFromInt(20), Category: "shop"},
		{ID: uuid.New(), Date: day(2024, 3, 9), Description: "transport", Amount: decimal.NewFromInt(150), Category: "travel"},
		{ID: uuid.New(), Date: day(2024, 4, 1), Description: "rent", Amount: decimal.NewFromInt(5000), Category: "shop"},
	} {
		if err := repo.AppendExpense(ctx, e); err != nil {
			t.Fatalf("AppendExpense: %v", err)
		}
	}

	overview, err := repo.ExpenseOverview(ctx, 2024, 3)
	if err != nil {
		t.Fatalf("ExpenseOverview: %v", err)
	}
	if !overview.Total.Equal(decimal.NewFromInt(170)) {
		t.Fatalf("Total = %s, want 170", overview.Total)
	}
	if len(overview.ByCategory) != 2 {
		t.Fatalf("ByCategory = %d entries, want 2", len(overview.ByCategory))
	}
}

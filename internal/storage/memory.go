package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"khata/internal/core"
)

// MemoryRepository is an in-memory Repository used by tests and the
// `memory` data backend. A single mutex guards all maps; the multi-row
// settle path mutates under one critical section, mirroring the SQLite
// implementation's transactional guarantee.
type MemoryRepository struct {
	mu           sync.Mutex
	accounts     map[uuid.UUID]core.Account
	obligations  map[uuid.UUID]core.Obligation
	transactions map[uuid.UUID][]core.Transaction // keyed by obligation ID
	cheques      map[uuid.UUID]core.Cheque
	expenses     []core.Expense
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts:     make(map[uuid.UUID]core.Account),
		obligations:  make(map[uuid.UUID]core.Obligation),
		transactions: make(map[uuid.UUID][]core.Transaction),
		cheques:      make(map[uuid.UUID]core.Cheque),
	}
}

func (r *MemoryRepository) Close() error { return nil }

func (r *MemoryRepository) CreateAccount(_ context.Context, a core.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.ID] = a
	return nil
}

func (r *MemoryRepository) GetAccount(_ context.Context, id uuid.UUID) (core.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return core.Account{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepository) ListAccounts(_ context.Context, kind core.AccountKind) ([]core.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var accounts []core.Account
	for _, a := range r.accounts {
		if kind == "" || a.Kind == kind {
			accounts = append(accounts, a)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

func (r *MemoryRepository) CreateObligation(_ context.Context, o core.Obligation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obligations[o.ID] = o
	return nil
}

func (r *MemoryRepository) GetObligation(_ context.Context, id uuid.UUID) (core.Obligation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.obligations[id]
	if !ok {
		return core.Obligation{}, ErrNotFound
	}
	return o, nil
}

func (r *MemoryRepository) ListObligationsByAccount(_ context.Context, accountID uuid.UUID) ([]core.Obligation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var obligations []core.Obligation
	for _, o := range r.obligations {
		if o.AccountID == accountID {
			obligations = append(obligations, o)
		}
	}
	sort.Slice(obligations, func(i, j int) bool {
		if !obligations[i].OriginDate.Equal(obligations[j].OriginDate) {
			return obligations[i].OriginDate.Before(obligations[j].OriginDate)
		}
		return obligations[i].ID.String() < obligations[j].ID.String()
	})
	return obligations, nil
}

func (r *MemoryRepository) UpdateObligationTerms(_ context.Context, id uuid.UUID, dueDate *time.Time, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.obligations[id]
	if !ok {
		return ErrNotFound
	}
	o.DueDate = dueDate
	o.Active = active
	r.obligations[id] = o
	return nil
}

func (r *MemoryRepository) AppendTransaction(_ context.Context, t core.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions[t.ObligationID] = append(r.transactions[t.ObligationID], t)
	return nil
}

func (r *MemoryRepository) ListTransactions(_ context.Context, obligationID uuid.UUID) ([]core.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	txs := append([]core.Transaction(nil), r.transactions[obligationID]...)
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })
	return txs, nil
}

func (r *MemoryRepository) CreateCheque(_ context.Context, c core.Cheque) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cheques[c.ID] = c
	return nil
}

func (r *MemoryRepository) GetCheque(_ context.Context, id uuid.UUID) (core.Cheque, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cheques[id]
	if !ok {
		return core.Cheque{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepository) ListChequesByStatus(_ context.Context, status core.ChequeStatus) ([]core.Cheque, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var cheques []core.Cheque
	for _, c := range r.cheques {
		if status == "" || c.Status == status {
			cheques = append(cheques, c)
		}
	}
	sort.Slice(cheques, func(i, j int) bool {
		if !cheques[i].DueDate.Equal(cheques[j].DueDate) {
			return cheques[i].DueDate.Before(cheques[j].DueDate)
		}
		return cheques[i].ID.String() < cheques[j].ID.String()
	})
	return cheques, nil
}

func (r *MemoryRepository) UpdateChequeStatus(_ context.Context, id uuid.UUID, from, to core.ChequeStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked(id, from, to)
}

func (r *MemoryRepository) UpdateChequeStatusWithTransaction(_ context.Context, chequeID uuid.UUID, from, to core.ChequeStatus, t core.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.transitionLocked(chequeID, from, to); err != nil {
		return err
	}
	r.transactions[t.ObligationID] = append(r.transactions[t.ObligationID], t)
	return nil
}

func (r *MemoryRepository) transitionLocked(id uuid.UUID, from, to core.ChequeStatus) error {
	c, ok := r.cheques[id]
	if !ok || c.Status != from {
		return ErrNotFound
	}
	c.Status = to
	r.cheques[id] = c
	return nil
}

func (r *MemoryRepository) AppendExpense(_ context.Context, e core.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expenses = append(r.expenses, e)
	return nil
}

func (r *MemoryRepository) ListExpensesByMonth(_ context.Context, year, month int) ([]core.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expenses []core.Expense
	for _, e := range r.expenses {
		if e.Date.Year() == year && int(e.Date.Month()) == month {
			expenses = append(expenses, e)
		}
	}
	sort.SliceStable(expenses, func(i, j int) bool { return expenses[i].Date.Before(expenses[j].Date) })
	return expenses, nil
}

func (r *MemoryRepository) ExpenseOverview(ctx context.Context, year, month int) (core.ExpenseOverview, error) {
	expenses, err := r.ListExpensesByMonth(ctx, year, month)
	if err != nil {
		return core.ExpenseOverview{}, err
	}

	overview := core.ExpenseOverview{Year: year, Month: month, Total: decimal.Zero}
	byCategory := make(map[string]decimal.Decimal)
	var order []string
	for _, e := range expenses {
		overview.Total = overview.Total.Add(e.Amount)
		if _, seen := byCategory[e.Category]; !seen {
			order = append(order, e.Category)
		}
		byCategory[e.Category] = byCategory[e.Category].Add(e.Amount)
	}
	for _, name := range order {
		overview.ByCategory = append(overview.ByCategory, core.CategoryAmount{Name: name, Amount: byCategory[name]})
	}
	return overview, nil
}

var _ Repository = (*MemoryRepository)(nil)

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"khata/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// SQLiteRepository is the production Repository implementation.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- accounts ---

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	const query = `INSERT INTO accounts (id, kind, name, phone, address) VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query, a.ID.String(), string(a.Kind), a.Name, a.Phone, a.Address)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "Account saved",
		"account_id", a.ID,
		"kind", a.Kind,
		"name", a.Name)
	return nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id uuid.UUID) (core.Account, error) {
	const query = `SELECT id, kind, name, phone, address FROM accounts WHERE id = ?`

	var a core.Account
	var rawID, kind string
	err := r.db.QueryRowContext(ctx, query, id.String()).
		Scan(&rawID, &kind, &a.Name, &a.Phone, &a.Address)
	if err == sql.ErrNoRows {
		return core.Account{}, ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}

	a.ID, err = uuid.Parse(rawID)
	if err != nil {
		return core.Account{}, fmt.Errorf("parse account id: %w", err)
	}
	a.Kind = core.AccountKind(kind)
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, kind core.AccountKind) ([]core.Account, error) {
	query := `SELECT id, kind, name, phone, address FROM accounts ORDER BY name`
	args := []any{}
	if kind != "" {
		query = `SELECT id, kind, name, phone, address FROM accounts WHERE kind = ? ORDER BY name`
		args = append(args, string(kind))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		var rawID, k string
		if err := rows.Scan(&rawID, &k, &a.Name, &a.Phone, &a.Address); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if a.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("parse account id: %w", err)
		}
		a.Kind = core.AccountKind(k)
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// --- obligations ---

func (r *SQLiteRepository) CreateObligation(ctx context.Context, o core.Obligation) error {
	const query = `INSERT INTO obligations (id, account_id, kind, principal, origin_date, due_date, rate, method, active, note)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		o.ID.String(), o.AccountID.String(), string(o.Kind),
		o.Principal.String(), o.OriginDate.Format(dateLayout), nullableDate(o.DueDate),
		o.Rate.String(), string(o.Method), o.Active, o.Note)
	if err != nil {
		return fmt.Errorf("create obligation: %w", err)
	}

	slog.InfoContext(ctx, "Obligation saved",
		"obligation_id", o.ID,
		"account_id", o.AccountID,
		"kind", o.Kind,
		"principal", o.Principal.String(),
		"method", o.Method)
	return nil
}

func (r *SQLiteRepository) GetObligation(ctx context.Context, id uuid.UUID) (core.Obligation, error) {
	const query = `SELECT id, account_id, kind, principal, origin_date, due_date, rate, method, active, note
	FROM obligations WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id.String())
	o, err := scanObligation(row)
	if err == sql.ErrNoRows {
		return core.Obligation{}, ErrNotFound
	}
	if err != nil {
		return core.Obligation{}, fmt.Errorf("get obligation: %w", err)
	}
	return o, nil
}

func (r *SQLiteRepository) ListObligationsByAccount(ctx context.Context, accountID uuid.UUID) ([]core.Obligation, error) {
	const query = `SELECT id, account_id, kind, principal, origin_date, due_date, rate, method, active, note
	FROM obligations WHERE account_id = ? ORDER BY origin_date, id`

	rows, err := r.db.QueryContext(ctx, query, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()

	var obligations []core.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		obligations = append(obligations, o)
	}
	return obligations, rows.Err()
}

func (r *SQLiteRepository) UpdateObligationTerms(ctx context.Context, id uuid.UUID, dueDate *time.Time, active bool) error {
	const query = `UPDATE obligations SET due_date = ?, active = ? WHERE id = ?`

	res, err := r.db.ExecContext(ctx, query, nullableDate(dueDate), active, id.String())
	if err != nil {
		return fmt.Errorf("update obligation terms: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Obligation terms updated",
		"obligation_id", id,
		"active", active)
	return nil
}

// --- transactions ---

func (r *SQLiteRepository) AppendTransaction(ctx context.Context, t core.Transaction) error {
	const query = `INSERT INTO transactions (id, obligation_id, amount, date, kind, note) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		t.ID.String(), t.ObligationID.String(),
		t.Amount.String(), t.Date.Format(dateLayout), string(t.Kind), t.Note)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction appended",
		"transaction_id", t.ID,
		"obligation_id", t.ObligationID,
		"kind", t.Kind,
		"amount", t.Amount.String())
	return nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, obligationID uuid.UUID) ([]core.Transaction, error) {
	const query = `SELECT id, obligation_id, amount, date, kind, note
	FROM transactions WHERE obligation_id = ? ORDER BY date, created_at`

	rows, err := r.db.QueryContext(ctx, query, obligationID.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var rawID, rawObl, amount, date, kind string
		if err := rows.Scan(&rawID, &rawObl, &amount, &date, &kind, &t.Note); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("parse transaction id: %w", err)
		}
		if t.ObligationID, err = uuid.Parse(rawObl); err != nil {
			return nil, fmt.Errorf("parse obligation id: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse transaction amount: %w", err)
		}
		if t.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parse transaction date: %w", err)
		}
		t.Kind = core.TransactionKind(kind)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// --- cheques ---

func (r *SQLiteRepository) CreateCheque(ctx context.Context, c core.Cheque) error {
	const query = `INSERT INTO cheques (id, account_id, obligation_id, number, bank, amount, issue_date, due_date, status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var obligationID any
	if c.ObligationID != nil {
		obligationID = c.ObligationID.String()
	}
	_, err := r.db.ExecContext(ctx, query,
		c.ID.String(), c.AccountID.String(), obligationID,
		c.Number, c.Bank, c.Amount.String(),
		c.IssueDate.Format(dateLayout), c.DueDate.Format(dateLayout), string(c.Status))
	if err != nil {
		return fmt.Errorf("create cheque: %w", err)
	}

	slog.InfoContext(ctx, "Cheque saved",
		"cheque_id", c.ID,
		"account_id", c.AccountID,
		"number", c.Number,
		"amount", c.Amount.String(),
		"due_date", c.DueDate.Format(dateLayout))
	return nil
}

func (r *SQLiteRepository) GetCheque(ctx context.Context, id uuid.UUID) (core.Cheque, error) {
	const query = `SELECT id, account_id, obligation_id, number, bank, amount, issue_date, due_date, status
	FROM cheques WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id.String())
	c, err := scanCheque(row)
	if err == sql.ErrNoRows {
		return core.Cheque{}, ErrNotFound
	}
	if err != nil {
		return core.Cheque{}, fmt.Errorf("get cheque: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListChequesByStatus(ctx context.Context, status core.ChequeStatus) ([]core.Cheque, error) {
	query := `SELECT id, account_id, obligation_id, number, bank, amount, issue_date, due_date, status
	FROM cheques ORDER BY due_date, id`
	args := []any{}
	if status != "" {
		query = `SELECT id, account_id, obligation_id, number, bank, amount, issue_date, due_date, status
	FROM cheques WHERE status = ? ORDER BY due_date, id`
		args = append(args, string(status))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cheques: %w", err)
	}
	defer rows.Close()

	var cheques []core.Cheque
	for rows.Next() {
		c, err := scanCheque(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cheque: %w", err)
		}
		cheques = append(cheques, c)
	}
	return cheques, rows.Err()
}

func (r *SQLiteRepository) UpdateChequeStatus(ctx context.Context, id uuid.UUID, from, to core.ChequeStatus) error {
	const query = `UPDATE cheques SET status = ? WHERE id = ? AND status = ?`

	res, err := r.db.ExecContext(ctx, query, string(to), id.String(), string(from))
	if err != nil {
		return fmt.Errorf("update cheque status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Cheque status updated",
		"cheque_id", id,
		"from", from,
		"to", to)
	return nil
}

// UpdateChequeStatusWithTransaction transitions the cheque and appends its
// ledger row inside a single database transaction, so the ledger never sees
// a cleared cheque without its payment row or the reverse.
func (r *SQLiteRepository) UpdateChequeStatusWithTransaction(ctx context.Context, chequeID uuid.UUID, from, to core.ChequeStatus, t core.Transaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cheque transition: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE cheques SET status = ? WHERE id = ? AND status = ?`,
		string(to), chequeID.String(), string(from))
	if err != nil {
		return fmt.Errorf("transition cheque status: %w", err)
	}
	if n, rowsErr := res.RowsAffected(); rowsErr == nil && n == 0 {
		err = ErrNotFound
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (id, obligation_id, amount, date, kind, note) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.ObligationID.String(),
		t.Amount.String(), t.Date.Format(dateLayout), string(t.Kind), t.Note)
	if err != nil {
		return fmt.Errorf("record cheque transaction: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit cheque transition: %w", err)
	}

	slog.InfoContext(ctx, "Cheque transitioned",
		"cheque_id", chequeID,
		"to", to,
		"transaction_id", t.ID,
		"amount", t.Amount.String())
	return nil
}

// --- expenses ---

func (r *SQLiteRepository) AppendExpense(ctx context.Context, e core.Expense) error {
	const query = `INSERT INTO expenses (id, date, description, amount, category) VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		e.ID.String(), e.Date.Format(dateLayout), e.Description, e.Amount.String(), e.Category)
	if err != nil {
		return fmt.Errorf("append expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"expense_id", e.ID,
		"description", e.Description,
		"amount", e.Amount.String())
	return nil
}

func (r *SQLiteRepository) ListExpensesByMonth(ctx context.Context, year, month int) ([]core.Expense, error) {
	const query = `SELECT id, date, description, amount, category
	FROM expenses WHERE date >= ? AND date < ? ORDER BY date, created_at`

	start, end := monthBounds(year, month)
	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var rawID, date, amount string
		if err := rows.Scan(&rawID, &date, &e.Description, &amount, &e.Category); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("parse expense id: %w", err)
		}
		if e.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parse expense date: %w", err)
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("parse expense amount: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *SQLiteRepository) ExpenseOverview(ctx context.Context, year, month int) (core.ExpenseOverview, error) {
	overview := core.ExpenseOverview{
		Year:  year,
		Month: month,
		Total: decimal.Zero,
	}

	expenses, err := r.ListExpensesByMonth(ctx, year, month)
	if err != nil {
		return overview, fmt.Errorf("expense overview: %w", err)
	}

	// Sum in Go: amounts are decimal strings, not summable in SQL.
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
		overview.ByCategory = append(overview.ByCategory, core.CategoryAmount{
			Name:   name,
			Amount: byCategory[name],
		})
	}
	return overview, nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObligation(row rowScanner) (core.Obligation, error) {
	var o core.Obligation
	var rawID, rawAccount, kind, principal, originDate, rate, method string
	var dueDate sql.NullString

	err := row.Scan(&rawID, &rawAccount, &kind, &principal, &originDate, &dueDate, &rate, &method, &o.Active, &o.Note)
	if err != nil {
		return core.Obligation{}, err
	}

	if o.ID, err = uuid.Parse(rawID); err != nil {
		return core.Obligation{}, fmt.Errorf("parse obligation id: %w", err)
	}
	if o.AccountID, err = uuid.Parse(rawAccount); err != nil {
		return core.Obligation{}, fmt.Errorf("parse account id: %w", err)
	}
	o.Kind = core.ObligationKind(kind)
	if o.Principal, err = decimal.NewFromString(principal); err != nil {
		return core.Obligation{}, fmt.Errorf("parse principal: %w", err)
	}
	if o.OriginDate, err = time.Parse(dateLayout, originDate); err != nil {
		return core.Obligation{}, fmt.Errorf("parse origin date: %w", err)
	}
	if dueDate.Valid {
		d, err := time.Parse(dateLayout, dueDate.String)
		if err != nil {
			return core.Obligation{}, fmt.Errorf("parse due date: %w", err)
		}
		o.DueDate = &d
	}
	// Malformed stored rates render as no interest rather than failing reads.
	if o.Rate, err = decimal.NewFromString(rate); err != nil {
		o.Rate = decimal.Zero
	}
	o.Method = core.InterestMethod(method)
	return o, nil
}

func scanCheque(row rowScanner) (core.Cheque, error) {
	var c core.Cheque
	var rawID, rawAccount, amount, issueDate, dueDate, status string
	var rawObligation sql.NullString

	err := row.Scan(&rawID, &rawAccount, &rawObligation, &c.Number, &c.Bank, &amount, &issueDate, &dueDate, &status)
	if err != nil {
		return core.Cheque{}, err
	}

	if c.ID, err = uuid.Parse(rawID); err != nil {
		return core.Cheque{}, fmt.Errorf("parse cheque id: %w", err)
	}
	if c.AccountID, err = uuid.Parse(rawAccount); err != nil {
		return core.Cheque{}, fmt.Errorf("parse account id: %w", err)
	}
	if rawObligation.Valid {
		id, err := uuid.Parse(rawObligation.String)
		if err != nil {
			return core.Cheque{}, fmt.Errorf("parse obligation id: %w", err)
		}
		c.ObligationID = &id
	}
	if c.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Cheque{}, fmt.Errorf("parse cheque amount: %w", err)
	}
	if c.IssueDate, err = time.Parse(dateLayout, issueDate); err != nil {
		return core.Cheque{}, fmt.Errorf("parse issue date: %w", err)
	}
	if c.DueDate, err = time.Parse(dateLayout, dueDate); err != nil {
		return core.Cheque{}, fmt.Errorf("parse due date: %w", err)
	}
	c.Status = core.ChequeStatus(status)
	return c, nil
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func monthBounds(year, month int) (string, string) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start.Format(dateLayout), start.AddDate(0, 1, 0).Format(dateLayout)
}

var _ Repository = (*SQLiteRepository)(nil)

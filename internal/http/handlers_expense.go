package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"khata/internal/core"
)

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date        string          `json:"date"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		badRequest(w, fmt.Sprintf("invalid date %q", req.Date))
		return
	}

	expense, err := s.ledger.AddExpense(r.Context(), core.Expense{
		Date:        date,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newExpenseView(expense))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)

	expenses, err := s.ledger.ListExpenses(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		views = append(views, newExpenseView(e))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleExpenseOverview(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)

	overview, err := s.ledger.ExpenseOverview(r.Context(), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseOverviewView(overview))
}

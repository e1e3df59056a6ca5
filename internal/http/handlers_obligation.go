package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"khata/internal/core"
)

func (s *Server) handleCreateObligation(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var req struct {
		Kind       string          `json:"kind"`
		Principal  decimal.Decimal `json:"principal"`
		OriginDate string          `json:"origin_date"`
		DueDate    string          `json:"due_date"`
		Rate       decimal.Decimal `json:"rate"`
		Method     string          `json:"method"`
		Note       string          `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	originDate, err := parseDate(req.OriginDate)
	if err != nil {
		badRequest(w, fmt.Sprintf("invalid origin_date %q", req.OriginDate))
		return
	}
	var dueDate *time.Time
	if req.DueDate != "" {
		d, err := parseDate(req.DueDate)
		if err != nil {
			badRequest(w, fmt.Sprintf("invalid due_date %q", req.DueDate))
			return
		}
		dueDate = &d
	}

	method := core.InterestMethod(req.Method)
	if method == "" {
		method = core.MethodNone
	}
	if !method.Valid() {
		badRequest(w, fmt.Sprintf("unknown interest method %q", req.Method))
		return
	}

	obligation, err := s.ledger.CreateObligation(r.Context(), core.Obligation{
		AccountID:  accountID,
		Kind:       core.ObligationKind(req.Kind),
		Principal:  req.Principal,
		OriginDate: originDate,
		DueDate:    dueDate,
		Rate:       req.Rate,
		Method:     method,
		Active:     true,
		Note:       req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newObligationView(obligation))
}

// handleGetObligation returns the obligation with its full statement: the
// transaction history and the derived balance and interest as of the as_of
// query parameter (default today).
func (s *Server) handleGetObligation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	asOf, err := parseAsOf(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	statement, err := s.ledger.ObligationStatement(r.Context(), id, asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatementView(statement))
}

// handleUpdateObligation patches the two mutable fields: due_date and active.
// Absent fields keep their current value; `"due_date": ""` clears it.
func (s *Server) handleUpdateObligation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var req struct {
		DueDate *string `json:"due_date"`
		Active  *bool   `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	current, err := s.ledger.GetObligation(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	dueDate := current.DueDate
	if req.DueDate != nil {
		if *req.DueDate == "" {
			dueDate = nil
		} else {
			d, err := parseDate(*req.DueDate)
			if err != nil {
				badRequest(w, fmt.Sprintf("invalid due_date %q", *req.DueDate))
				return
			}
			dueDate = &d
		}
	}
	active := current.Active
	if req.Active != nil {
		active = *req.Active
	}

	obligation, err := s.ledger.UpdateObligationTerms(r.Context(), id, dueDate, active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newObligationView(obligation))
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	var req struct {
		Amount decimal.Decimal `json:"amount"`
		Date   string          `json:"date"`
		Kind   string          `json:"kind"`
		Note   string          `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		date, err = parseDate(req.Date)
		if err != nil {
			badRequest(w, fmt.Sprintf("invalid date %q", req.Date))
			return
		}
	}
	kind := core.TransactionKind(req.Kind)
	if kind == "" {
		kind = core.TxPayment
	}

	transaction, err := s.ledger.RecordTransaction(r.Context(), id, req.Amount, date, kind, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newTransactionView(transaction))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	statement, err := s.ledger.ObligationStatement(r.Context(), id, time.Now().UTC())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionViews(statement.Transactions))
}
